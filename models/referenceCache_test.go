package models

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func TestReferenceCacheFetchesOnce(t *testing.T) {
	var calls int32
	cache := NewReferenceCache()
	cache.FetchLobsterTypes = func(ctx context.Context) ([]*LobsterType, error) {
		atomic.AddInt32(&calls, 1)
		return []*LobsterType{{ID: 1, Name: "Spiny"}}, nil
	}

	ctx := context.Background()
	first, err := cache.LobsterTypes(ctx)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	second, err := cache.LobsterTypes(ctx)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}

	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected 1 fetch, got %d", calls)
	}
	if len(first) != 1 || len(second) != 1 || second[0].Name != "Spiny" {
		t.Fatalf("unexpected cached rows: %+v", second)
	}
}

func TestReferenceCacheConcurrentColdReadsShareOneFetch(t *testing.T) {
	var calls int32
	release := make(chan struct{})
	cache := NewReferenceCache()
	cache.FetchWeightClasses = func(ctx context.Context) ([]*WeightClass, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return []*WeightClass{{ID: 1, WeightRange: "100-200"}}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cache.WeightClasses(context.Background()); err != nil {
				t.Errorf("concurrent read: %v", err)
			}
		}()
	}
	close(release)
	wg.Wait()

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected a single shared fetch, got %d", got)
	}
}

func TestReferenceCacheErrorIsNotCached(t *testing.T) {
	var calls int32
	cache := NewReferenceCache()
	cache.FetchLobsterTypes = func(ctx context.Context) ([]*LobsterType, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return nil, errors.New("db down")
		}
		return []*LobsterType{{ID: 2, Name: "Rock"}}, nil
	}

	ctx := context.Background()
	if _, err := cache.LobsterTypes(ctx); err == nil {
		t.Fatal("expected error from first fetch")
	}
	rows, err := cache.LobsterTypes(ctx)
	if err != nil {
		t.Fatalf("retry after error: %v", err)
	}
	if len(rows) != 1 || rows[0].Name != "Rock" {
		t.Fatalf("unexpected rows after retry: %+v", rows)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("expected 2 fetches, got %d", calls)
	}
}

func TestReferenceCacheClearForcesRefetch(t *testing.T) {
	var calls int32
	cache := NewReferenceCache()
	cache.FetchWeightClasses = func(ctx context.Context) ([]*WeightClass, error) {
		atomic.AddInt32(&calls, 1)
		return []*WeightClass{{ID: 1, WeightRange: "200-300"}}, nil
	}

	ctx := context.Background()
	if _, err := cache.WeightClasses(ctx); err != nil {
		t.Fatalf("warm up: %v", err)
	}
	cache.Clear()
	if _, err := cache.WeightClasses(ctx); err != nil {
		t.Fatalf("after clear: %v", err)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("expected refetch after Clear, got %d fetches", calls)
	}
}

func TestReferenceCacheLookupMaps(t *testing.T) {
	cache := NewReferenceCache()
	cache.FetchLobsterTypes = func(ctx context.Context) ([]*LobsterType, error) {
		return []*LobsterType{{ID: 1, Name: "Spiny"}, {ID: 2, Name: "Rock"}}, nil
	}
	cache.FetchWeightClasses = func(ctx context.Context) ([]*WeightClass, error) {
		return []*WeightClass{{ID: 7, WeightRange: "100-200"}}, nil
	}

	ctx := context.Background()
	names, err := cache.LobsterTypeNames(ctx)
	if err != nil {
		t.Fatalf("names: %v", err)
	}
	if names[1] != "Spiny" || names[2] != "Rock" {
		t.Fatalf("unexpected name map: %v", names)
	}

	ranges, err := cache.WeightRanges(ctx)
	if err != nil {
		t.Fatalf("ranges: %v", err)
	}
	if ranges[7] != "100-200" {
		t.Fatalf("unexpected range map: %v", ranges)
	}
}
