package workflow

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/seaharvest/lobsterstock_backend/config"
	"github.com/seaharvest/lobsterstock_backend/metrics"
	"github.com/sirupsen/logrus"
)

// ChangeFeedListener subscribes to the change feed and turns bursts of
// matching events into debounced dashboard refreshes. Both delivery paths
// feed it: the Pub/Sub pull subscription (Open) and the push endpoint, which
// calls Notify directly.
//
// A refresh that fails is logged and dropped; the listener keeps running and
// the next event tries again.
type ChangeFeedListener struct {
	Refresher *Refresher
	Debouncer *Debouncer
	Logger    *logrus.Logger

	// RefreshTimeout bounds one debounced refresh cycle.
	RefreshTimeout time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewChangeFeedListener(refresher *Refresher, logger *logrus.Logger) *ChangeFeedListener {
	return &ChangeFeedListener{
		Refresher:      refresher,
		Debouncer:      NewDebouncer(config.DashboardDebounce()),
		Logger:         logger,
		RefreshTimeout: 30 * time.Second,
	}
}

// relevant keeps only events that can change what the dashboard shows.
func relevant(ev config.ChangeEvent) bool {
	if ev.Table != config.ChangeTableInventories && ev.Table != config.ChangeTableTransactions {
		return false
	}
	return ev.Action == config.ChangeActionInsert || ev.Action == config.ChangeActionUpdate
}

// Notify feeds one change event into the debouncer. Irrelevant events are
// dropped without touching the pending refresh.
func (l *ChangeFeedListener) Notify(ev config.ChangeEvent) {
	if !relevant(ev) {
		return
	}
	metrics.ChangeEventsTotal.WithLabelValues(ev.Table, ev.Action).Inc()
	l.Debouncer.Trigger(func() {
		ctx, cancel := context.WithTimeout(context.Background(), l.RefreshTimeout)
		defer cancel()
		if err := l.Refresher.Refresh(ctx); err != nil && l.Logger != nil {
			config.LogError(l.Logger, "workflow", "ChangeFeedListener", "debounced refresh", ev, err)
		}
	})
}

// Open starts the Pub/Sub pull loop when CHANGEFEED_PULL_ENABLED is on.
// Without it the listener still works through Notify (push endpoint).
func (l *ChangeFeedListener) Open(ctx context.Context) error {
	if !config.ChangeFeedPullEnabled() {
		return nil
	}

	client, err := config.GetPubSubClient(ctx)
	if err != nil {
		return err
	}
	topic, err := config.CreateTopicIfNotExists(client, config.ChangeFeedTopicName())
	if err != nil {
		return err
	}
	subName := os.Getenv("CHANGEFEED_SUBSCRIPTION")
	if subName == "" {
		subName = config.ChangeFeedTopicName() + "-dashboard"
	}
	sub, err := config.CreateSubscriptionIfNotExists(client, subName, topic)
	if err != nil {
		return err
	}

	receiveCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	l.mu.Lock()
	l.cancel = cancel
	l.done = done
	l.mu.Unlock()

	go func() {
		defer close(done)
		err := sub.Receive(receiveCtx, func(mctx context.Context, msg *pubsub.Message) {
			var ev config.ChangeEvent
			if err := json.Unmarshal(msg.Data, &ev); err != nil {
				// not a change event; drop it so it doesn't redeliver forever
				if l.Logger != nil {
					config.LogError(l.Logger, "workflow", "ChangeFeedListener", "decode change event", string(msg.Data), err)
				}
				msg.Ack()
				return
			}
			l.Notify(ev)
			msg.Ack()
		})
		if err != nil && receiveCtx.Err() == nil && l.Logger != nil {
			config.LogError(l.Logger, "workflow", "ChangeFeedListener", "receive loop exited", nil, err)
		}
	}()

	return nil
}

// Close stops the pull loop and drops any pending debounced refresh.
func (l *ChangeFeedListener) Close() {
	l.mu.Lock()
	cancel, done := l.cancel, l.done
	l.cancel, l.done = nil, nil
	l.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	l.Debouncer.Cancel()
}
