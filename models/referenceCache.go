package models

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// ReferenceCache memoizes the two reference taxonomies for the lifetime of
// the process. It is an injectable object (constructed once at startup,
// passed where needed) rather than package state, so tests get a fresh cache.
//
// Concurrent cold reads share a single in-flight fetch per key via
// singleflight; errors propagate uncached so the next call retries.
type ReferenceCache struct {
	group singleflight.Group

	mu            sync.RWMutex
	lobsterTypes  []*LobsterType
	weightClasses []*WeightClass

	// Fetchers default to the DB queries; tests swap them out.
	FetchLobsterTypes  func(ctx context.Context) ([]*LobsterType, error)
	FetchWeightClasses func(ctx context.Context) ([]*WeightClass, error)
}

func NewReferenceCache() *ReferenceCache {
	return &ReferenceCache{
		FetchLobsterTypes:  GetAllLobsterTypes,
		FetchWeightClasses: GetAllWeightClasses,
	}
}

// LobsterTypes returns the cached list (ascending by name), fetching on the
// first call only.
func (c *ReferenceCache) LobsterTypes(ctx context.Context) ([]*LobsterType, error) {
	c.mu.RLock()
	cached := c.lobsterTypes
	c.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}

	v, err, _ := c.group.Do("lobster_types", func() (interface{}, error) {
		rows, err := c.FetchLobsterTypes(ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.lobsterTypes = rows
		c.mu.Unlock()
		return rows, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]*LobsterType), nil
}

// WeightClasses returns the cached list (ascending by weight_range),
// fetching on the first call only.
func (c *ReferenceCache) WeightClasses(ctx context.Context) ([]*WeightClass, error) {
	c.mu.RLock()
	cached := c.weightClasses
	c.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}

	v, err, _ := c.group.Do("weight_classes", func() (interface{}, error) {
		rows, err := c.FetchWeightClasses(ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.weightClasses = rows
		c.mu.Unlock()
		return rows, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]*WeightClass), nil
}

// Clear drops both slots; the next call refetches.
func (c *ReferenceCache) Clear() {
	c.mu.Lock()
	c.lobsterTypes = nil
	c.weightClasses = nil
	c.mu.Unlock()
}

// LobsterTypeNames returns an id -> name map for aggregation lookups.
func (c *ReferenceCache) LobsterTypeNames(ctx context.Context) (map[int]string, error) {
	rows, err := c.LobsterTypes(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[int]string, len(rows))
	for _, r := range rows {
		names[r.ID] = r.Name
	}
	return names, nil
}

// WeightRanges returns an id -> weight_range map for aggregation lookups.
func (c *ReferenceCache) WeightRanges(ctx context.Context) (map[int]string, error) {
	rows, err := c.WeightClasses(ctx)
	if err != nil {
		return nil, err
	}
	ranges := make(map[int]string, len(rows))
	for _, r := range rows {
		ranges[r.ID] = r.WeightRange
	}
	return ranges, nil
}
