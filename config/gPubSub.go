package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/joho/godotenv"
	"google.golang.org/api/option"
)

// ChangeEvent is the change-feed payload published whenever the inventory or
// transaction tables are written. Consumers key off Table + Action.
type ChangeEvent struct {
	ID            int       `json:"id"`
	Table         string    `json:"table"`
	Action        string    `json:"action"`
	RecordId      int       `json:"record_id"`
	OccurredAt    time.Time `json:"occurred_at"`
	CorrelationId string    `json:"correlation_id"`
}

const (
	ChangeTableInventories  = "inventories"
	ChangeTableTransactions = "transactions"

	ChangeActionInsert = "INSERT"
	ChangeActionUpdate = "UPDATE"
)

var (
	pubsubClient   *pubsub.Client
	pubsubClientMu sync.Mutex

	// One topic handle per process: each pubsub.Topic owns batching
	// goroutines, so creating one per publish leaks them.
	changeFeedTopic   *pubsub.Topic
	changeFeedTopicMu sync.Mutex
)

func init() {
	// Load env from .env
	godotenv.Load()
}

// GetPubSubClient returns a Pub/Sub client, initializing with retries if needed.
// It uses Application Default Credentials unless PUBSUB_CREDENTIALS_JSON is provided.
func GetPubSubClient(ctx context.Context) (*pubsub.Client, error) {
	return getPubSubClient(ctx)
}

func getPubSubProjectID() string {
	if v := os.Getenv("PUBSUB_PROJECT_ID"); v != "" {
		return v
	}
	if v := os.Getenv("GOOGLE_CLOUD_PROJECT"); v != "" {
		return v
	}
	if v := os.Getenv("GCP_PROJECT"); v != "" {
		return v
	}
	return ""
}

func getPubSubClient(ctx context.Context) (*pubsub.Client, error) {
	pubsubClientMu.Lock()
	if pubsubClient != nil {
		c := pubsubClient
		pubsubClientMu.Unlock()
		return c, nil
	}
	pubsubClientMu.Unlock()

	projectID := getPubSubProjectID()
	if projectID == "" {
		return nil, errors.New("PUBSUB_PROJECT_ID/GOOGLE_CLOUD_PROJECT not set")
	}

	credJSON := os.Getenv("PUBSUB_CREDENTIALS_JSON")

	var attempt int
	for {
		attempt++

		var (
			c   *pubsub.Client
			err error
		)
		if credJSON != "" {
			c, err = pubsub.NewClient(ctx, projectID, option.WithCredentialsJSON([]byte(credJSON)))
		} else {
			// Application Default Credentials (service account or GOOGLE_APPLICATION_CREDENTIALS).
			c, err = pubsub.NewClient(ctx, projectID)
		}
		if err == nil {
			pubsubClientMu.Lock()
			if pubsubClient == nil {
				pubsubClient = c
			} else {
				// Another goroutine won the race; close ours.
				_ = c.Close()
			}
			c2 := pubsubClient
			pubsubClientMu.Unlock()

			log.Printf("pubsub client ready (project_id=%s attempt=%d)", projectID, attempt)
			return c2, nil
		}

		sleep := time.Second * time.Duration(1<<min(attempt, 5))
		if sleep > 30*time.Second {
			sleep = 30 * time.Second
		}
		log.Printf("failed to init pubsub client (project_id=%s attempt=%d): %v; retrying in %s", projectID, attempt, err, sleep)
		time.Sleep(sleep)
	}
}

func CreateTopicIfNotExists(c *pubsub.Client, topic string) (*pubsub.Topic, error) {
	if c == nil {
		return nil, errors.New("pubsub client is nil")
	}
	if topic == "" {
		return nil, errors.New("topic is required")
	}

	ctx := context.Background()
	t := c.Topic(topic)
	ok, err := t.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if ok {
		return t, nil
	}
	t, err = c.CreateTopic(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("create topic %q: %w", topic, err)
	}
	return t, nil
}

func CreateSubscriptionIfNotExists(client *pubsub.Client, name string, topic *pubsub.Topic) (*pubsub.Subscription, error) {
	if client == nil {
		return nil, errors.New("pubsub client is nil")
	}
	if name == "" {
		return nil, errors.New("subscription name is required")
	}
	if topic == nil {
		return nil, errors.New("topic is required")
	}

	ctx := context.Background()
	sub := client.Subscription(name)
	subExists, err := sub.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("check subscription exists: %w", err)
	}
	if !subExists {
		sub, err = client.CreateSubscription(ctx, name, pubsub.SubscriptionConfig{
			Topic:       topic,
			AckDeadline: 20 * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("create subscription %q: %w", name, err)
		}
	}
	return sub, nil
}

func ChangeFeedTopicName() string {
	return os.Getenv("CHANGEFEED_TOPIC")
}

func getChangeFeedTopic(ctx context.Context) (*pubsub.Topic, error) {
	changeFeedTopicMu.Lock()
	defer changeFeedTopicMu.Unlock()
	if changeFeedTopic != nil {
		return changeFeedTopic, nil
	}

	client, err := getPubSubClient(ctx)
	if err != nil {
		return nil, err
	}
	topicName := ChangeFeedTopicName()
	if topicName == "" {
		return nil, errors.New("CHANGEFEED_TOPIC is required")
	}
	changeFeedTopic = client.Topic(topicName)
	return changeFeedTopic, nil
}

// PublishChangeEvent publishes a change event and returns the Pub/Sub
// server-assigned message ID. Table and Action are mirrored into message
// attributes so subscribers can filter without decoding the payload.
func PublishChangeEvent(ctx context.Context, ev ChangeEvent) (string, error) {
	t, err := getChangeFeedTopic(ctx)
	if err != nil {
		return "", err
	}

	evJSON, err := json.Marshal(ev)
	if err != nil {
		return "", err
	}
	result := t.Publish(ctx, &pubsub.Message{
		Data: evJSON,
		Attributes: map[string]string{
			"table":  ev.Table,
			"action": ev.Action,
		},
	})

	id, err := result.Get(ctx)
	return id, err
}
