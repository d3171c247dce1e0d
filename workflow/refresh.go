package workflow

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/bsm/redislock"
	"github.com/seaharvest/lobsterstock_backend/config"
	"github.com/seaharvest/lobsterstock_backend/metrics"
	"github.com/seaharvest/lobsterstock_backend/models"
	"github.com/seaharvest/lobsterstock_backend/models/reports"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("lobsterstock-backend")

const refreshLockKey = "Lock:DashboardRefresh"

// LedgerFetcher is the query surface one refresh cycle needs. The default
// implementation hits the DB; tests substitute stubs.
type LedgerFetcher interface {
	InventorySnapshot(ctx context.Context) ([]*models.InventoryRow, error)
	TransactionsInRange(ctx context.Context, start time.Time, end time.Time) ([]*models.Transaction, error)
	AllOutgoingTransactions(ctx context.Context) ([]*models.Transaction, error)
}

type dbFetcher struct{}

func (dbFetcher) InventorySnapshot(ctx context.Context) ([]*models.InventoryRow, error) {
	return models.GetInventorySnapshot(ctx)
}

func (dbFetcher) TransactionsInRange(ctx context.Context, start time.Time, end time.Time) ([]*models.Transaction, error) {
	return models.GetTransactionsInRange(ctx, start, end, models.TransactionFilter{})
}

func (dbFetcher) AllOutgoingTransactions(ctx context.Context) ([]*models.Transaction, error) {
	return models.GetAllOutgoingTransactions(ctx)
}

// Refresher owns the dashboard snapshot. Refresh runs the four sub-fetches
// concurrently, each under its own timeout, and swaps the snapshot in only
// when every fetch succeeded; a failed cycle leaves the previous snapshot
// visible. Refresh is safe to call from the change-feed listener, the manual
// refresh endpoint, and the post-command hook at the same time.
type Refresher struct {
	Cache   *models.ReferenceCache
	Fetcher LedgerFetcher
	Logger  *logrus.Logger

	// Locker, when set, single-flights refresh cycles across replicas.
	Locker *redislock.Client

	FetchTimeout time.Duration
	Now          func() time.Time

	// Mirror pushes a fresh snapshot to Redis; best effort.
	Mirror func(*reports.DashboardSnapshot) error

	snapshot atomic.Pointer[reports.DashboardSnapshot]
}

func NewRefresher(cache *models.ReferenceCache, logger *logrus.Logger) *Refresher {
	return &Refresher{
		Cache:        cache,
		Fetcher:      dbFetcher{},
		Logger:       logger,
		FetchTimeout: config.FetchTimeout(),
		Now:          func() time.Time { return time.Now().UTC() },
		Mirror:       reports.MirrorSnapshot,
	}
}

// Snapshot returns the last successfully built snapshot, nil before the
// first completed cycle.
func (r *Refresher) Snapshot() *reports.DashboardSnapshot {
	return r.snapshot.Load()
}

// Refresh runs one aggregation cycle. All-or-nothing: the first fetch error
// aborts the cycle and the stale snapshot stays.
func (r *Refresher) Refresh(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "dashboard.refresh")
	defer span.End()

	if r.Locker != nil {
		lock, err := r.Locker.Obtain(ctx, refreshLockKey, 30*time.Second, nil)
		if err == redislock.ErrNotObtained {
			// another replica is already refreshing; its mirror will land in Redis
			return nil
		}
		if err != nil {
			return err
		}
		defer lock.Release(context.WithoutCancel(ctx))
	}

	now := r.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	seriesStart := monthStart.AddDate(0, -5, 0)

	var (
		inventory    []*models.InventoryRow
		monthTxns    []*models.Transaction
		outgoingTxns []*models.Transaction
		seriesTxns   []*models.Transaction
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		fctx, cancel := context.WithTimeout(gctx, r.FetchTimeout)
		defer cancel()
		var err error
		inventory, err = r.Fetcher.InventorySnapshot(fctx)
		return err
	})
	g.Go(func() error {
		fctx, cancel := context.WithTimeout(gctx, r.FetchTimeout)
		defer cancel()
		var err error
		monthTxns, err = r.Fetcher.TransactionsInRange(fctx, monthStart, now)
		return err
	})
	g.Go(func() error {
		fctx, cancel := context.WithTimeout(gctx, r.FetchTimeout)
		defer cancel()
		var err error
		outgoingTxns, err = r.Fetcher.AllOutgoingTransactions(fctx)
		return err
	})
	g.Go(func() error {
		fctx, cancel := context.WithTimeout(gctx, r.FetchTimeout)
		defer cancel()
		var err error
		seriesTxns, err = r.Fetcher.TransactionsInRange(fctx, seriesStart, now)
		return err
	})
	if err := g.Wait(); err != nil {
		metrics.RefreshTotal.WithLabelValues("error").Inc()
		return err
	}

	typeNames, err := r.Cache.LobsterTypeNames(ctx)
	if err != nil {
		metrics.RefreshTotal.WithLabelValues("error").Inc()
		return err
	}
	weightRanges, err := r.Cache.WeightRanges(ctx)
	if err != nil {
		metrics.RefreshTotal.WithLabelValues("error").Inc()
		return err
	}

	snapshot := reports.BuildDashboardSnapshot(
		inventory, monthTxns, outgoingTxns, seriesTxns,
		typeNames, weightRanges, now,
	)
	r.snapshot.Store(snapshot)
	metrics.RefreshTotal.WithLabelValues("success").Inc()

	if r.Mirror != nil {
		if err := r.Mirror(snapshot); err != nil && r.Logger != nil {
			config.LogError(r.Logger, "workflow", "Refresh", "mirror snapshot", nil, err)
		}
	}
	return nil
}
