package workflow

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/seaharvest/lobsterstock_backend/config"
	"github.com/seaharvest/lobsterstock_backend/metrics"
	"github.com/seaharvest/lobsterstock_backend/models"
	"github.com/seaharvest/lobsterstock_backend/models/reports"
)

type stubFetcher struct {
	inventory []*models.InventoryRow
	txns      []*models.Transaction
	outgoing  []*models.Transaction

	mu           sync.Mutex
	inventoryErr error
	rangeCalls   int32
}

func (s *stubFetcher) setInventoryErr(err error) {
	s.mu.Lock()
	s.inventoryErr = err
	s.mu.Unlock()
}

func (s *stubFetcher) InventorySnapshot(ctx context.Context) ([]*models.InventoryRow, error) {
	s.mu.Lock()
	err := s.inventoryErr
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.inventory, nil
}

func (s *stubFetcher) TransactionsInRange(ctx context.Context, start time.Time, end time.Time) ([]*models.Transaction, error) {
	atomic.AddInt32(&s.rangeCalls, 1)
	var out []*models.Transaction
	for _, txn := range s.txns {
		if !txn.TransactionDate.Before(start) && !txn.TransactionDate.After(end) {
			out = append(out, txn)
		}
	}
	return out, nil
}

func (s *stubFetcher) AllOutgoingTransactions(ctx context.Context) ([]*models.Transaction, error) {
	return s.outgoing, nil
}

func testCache() *models.ReferenceCache {
	cache := models.NewReferenceCache()
	cache.FetchLobsterTypes = func(ctx context.Context) ([]*models.LobsterType, error) {
		return []*models.LobsterType{{ID: 1, Name: "Spiny"}}, nil
	}
	cache.FetchWeightClasses = func(ctx context.Context) ([]*models.WeightClass, error) {
		return []*models.WeightClass{{ID: 1, WeightRange: "100-200"}}, nil
	}
	return cache
}

func testRefresher(fetcher LedgerFetcher) *Refresher {
	now := time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)
	return &Refresher{
		Cache:        testCache(),
		Fetcher:      fetcher,
		FetchTimeout: time.Second,
		Now:          func() time.Time { return now },
		Mirror:       nil, // no Redis in unit tests
	}
}

func TestRefreshBuildsSnapshot(t *testing.T) {
	now := time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)
	fetcher := &stubFetcher{
		inventory: []*models.InventoryRow{
			{LobsterTypeId: 1, WeightClassId: 1, Quantity: 10},
		},
		txns: []*models.Transaction{
			{LobsterTypeId: 1, WeightClassId: 1, TransactionType: models.TransactionTypeAdd, Quantity: 10, TransactionDate: now.AddDate(0, 0, -1)},
		},
		outgoing: []*models.Transaction{
			{LobsterTypeId: 1, WeightClassId: 1, TransactionType: models.TransactionTypeDistribute, Quantity: 4, TransactionDate: now.AddDate(0, -2, 0)},
		},
	}
	r := testRefresher(fetcher)

	if r.Snapshot() != nil {
		t.Fatal("snapshot should be nil before the first refresh")
	}
	if err := r.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	snapshot := r.Snapshot()
	if snapshot == nil {
		t.Fatal("snapshot missing after successful refresh")
	}
	if snapshot.TotalStock != 10 {
		t.Fatalf("TotalStock = %d, want 10", snapshot.TotalStock)
	}
	if snapshot.MonthIncoming != 10 {
		t.Fatalf("MonthIncoming = %d, want 10", snapshot.MonthIncoming)
	}
	if len(snapshot.DistributionByType) != 1 || snapshot.DistributionByType[0].Quantity != 4 {
		t.Fatalf("unexpected distribution: %+v", snapshot.DistributionByType)
	}
	// month txns + six-month series
	if got := atomic.LoadInt32(&fetcher.rangeCalls); got != 2 {
		t.Fatalf("expected 2 range fetches, got %d", got)
	}
}

func TestRefreshFailureKeepsPreviousSnapshot(t *testing.T) {
	fetcher := &stubFetcher{
		inventory: []*models.InventoryRow{{LobsterTypeId: 1, WeightClassId: 1, Quantity: 7}},
	}
	r := testRefresher(fetcher)

	if err := r.Refresh(context.Background()); err != nil {
		t.Fatalf("first refresh: %v", err)
	}
	previous := r.Snapshot()

	fetcher.setInventoryErr(errors.New("db timeout"))
	if err := r.Refresh(context.Background()); err == nil {
		t.Fatal("expected refresh to fail")
	}

	if r.Snapshot() != previous {
		t.Fatal("failed refresh must not replace the visible snapshot")
	}
}

func TestRefreshMirrorsSnapshot(t *testing.T) {
	fetcher := &stubFetcher{}
	r := testRefresher(fetcher)

	var mirrored *reports.DashboardSnapshot
	r.Mirror = func(s *reports.DashboardSnapshot) error {
		mirrored = s
		return nil
	}

	if err := r.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if mirrored == nil || mirrored != r.Snapshot() {
		t.Fatal("fresh snapshot should be mirrored")
	}
}

func TestRefreshCacheFailureCountsAsError(t *testing.T) {
	fetcher := &stubFetcher{}
	r := testRefresher(fetcher)
	r.Cache = models.NewReferenceCache()
	r.Cache.FetchLobsterTypes = func(ctx context.Context) ([]*models.LobsterType, error) {
		return nil, errors.New("reference fetch failed")
	}
	r.Cache.FetchWeightClasses = func(ctx context.Context) ([]*models.WeightClass, error) {
		return []*models.WeightClass{{ID: 1, WeightRange: "100-200"}}, nil
	}

	before := testutil.ToFloat64(metrics.RefreshTotal.WithLabelValues("error"))
	if err := r.Refresh(context.Background()); err == nil {
		t.Fatal("expected refresh to fail")
	}
	if got := testutil.ToFloat64(metrics.RefreshTotal.WithLabelValues("error")) - before; got != 1 {
		t.Fatalf("error cycles counted = %v, want 1", got)
	}
}

func TestListenerNotifyFiltersIrrelevantEvents(t *testing.T) {
	fetcher := &stubFetcher{}
	r := testRefresher(fetcher)

	l := &ChangeFeedListener{
		Refresher:      r,
		Debouncer:      NewDebouncer(20 * time.Millisecond),
		RefreshTimeout: time.Second,
	}
	defer l.Close()

	l.Notify(config.ChangeEvent{Table: "users", Action: config.ChangeActionInsert})
	l.Notify(config.ChangeEvent{Table: config.ChangeTableInventories, Action: "DELETE"})

	time.Sleep(80 * time.Millisecond)
	if r.Snapshot() != nil {
		t.Fatal("irrelevant events must not trigger a refresh")
	}

	l.Notify(config.ChangeEvent{Table: config.ChangeTableInventories, Action: config.ChangeActionUpdate})
	time.Sleep(100 * time.Millisecond)
	if r.Snapshot() == nil {
		t.Fatal("relevant event should have refreshed the snapshot")
	}
}

func TestListenerNotifyDebouncesBurst(t *testing.T) {
	fetcher := &stubFetcher{}
	r := testRefresher(fetcher)

	var refreshes int32
	r.Mirror = func(s *reports.DashboardSnapshot) error {
		atomic.AddInt32(&refreshes, 1)
		return nil
	}

	l := &ChangeFeedListener{
		Refresher:      r,
		Debouncer:      NewDebouncer(30 * time.Millisecond),
		RefreshTimeout: time.Second,
	}
	defer l.Close()

	for i := 0; i < 5; i++ {
		l.Notify(config.ChangeEvent{Table: config.ChangeTableTransactions, Action: config.ChangeActionInsert})
		time.Sleep(5 * time.Millisecond)
	}

	time.Sleep(150 * time.Millisecond)
	if got := atomic.LoadInt32(&refreshes); got != 1 {
		t.Fatalf("burst of 5 events caused %d refreshes, want 1", got)
	}
}

func TestListenerSurvivesFailedRefresh(t *testing.T) {
	fetcher := &stubFetcher{
		inventory: []*models.InventoryRow{{LobsterTypeId: 1, WeightClassId: 1, Quantity: 3}},
	}
	fetcher.setInventoryErr(errors.New("db down"))
	r := testRefresher(fetcher)

	l := &ChangeFeedListener{
		Refresher:      r,
		Debouncer:      NewDebouncer(20 * time.Millisecond),
		RefreshTimeout: time.Second,
	}
	defer l.Close()

	l.Notify(config.ChangeEvent{Table: config.ChangeTableInventories, Action: config.ChangeActionInsert})
	time.Sleep(100 * time.Millisecond)
	if r.Snapshot() != nil {
		t.Fatal("failed refresh must not install a snapshot")
	}

	// The failure is dropped; the next event must still trigger a cycle.
	fetcher.setInventoryErr(nil)
	l.Notify(config.ChangeEvent{Table: config.ChangeTableTransactions, Action: config.ChangeActionInsert})
	time.Sleep(100 * time.Millisecond)
	if r.Snapshot() == nil {
		t.Fatal("listener must keep refreshing after an earlier failure")
	}
}
