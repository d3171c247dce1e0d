package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ChangeFeedPullEnabled turns on the in-process pull subscriber. When the
// service runs behind a Pub/Sub push endpoint (/changefeed) this stays off.
//
// Set via env:
// - CHANGEFEED_PULL_ENABLED=true
func ChangeFeedPullEnabled() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("CHANGEFEED_PULL_ENABLED")))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

// DashboardDebounce is the trailing-edge debounce applied to change-feed
// bursts before a dashboard refresh. One policy for every call site.
//
// Env: DASHBOARD_DEBOUNCE_MS (default 500)
func DashboardDebounce() time.Duration {
	ms := 500
	if v := strings.TrimSpace(os.Getenv("DASHBOARD_DEBOUNCE_MS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			ms = n
		}
	}
	return time.Duration(ms) * time.Millisecond
}

// FetchTimeout bounds every dashboard sub-fetch. One policy for every call site.
//
// Env: DASHBOARD_FETCH_TIMEOUT_SECONDS (default 5)
func FetchTimeout() time.Duration {
	sec := 5
	if v := strings.TrimSpace(os.Getenv("DASHBOARD_FETCH_TIMEOUT_SECONDS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			sec = n
		}
	}
	return time.Duration(sec) * time.Second
}

// SnapshotCacheTTL is how long a mirrored dashboard snapshot lives in Redis.
//
// Env: SNAPSHOT_CACHE_TTL_SECONDS (default 120)
func SnapshotCacheTTL() time.Duration {
	sec := 120
	if v := strings.TrimSpace(os.Getenv("SNAPSHOT_CACHE_TTL_SECONDS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			sec = n
		}
	}
	return time.Duration(sec) * time.Second
}
