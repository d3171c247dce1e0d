package reports

import (
	"context"
	"log"
	"time"

	"github.com/seaharvest/lobsterstock_backend/config"
	"github.com/seaharvest/lobsterstock_backend/utils"
)

const snapshotRedisKey = "DashboardSnapshot"

// MirrorSnapshot writes a freshly built snapshot to Redis so restarted or
// sibling replicas can serve a warm dashboard before their first refresh
// completes. The in-memory snapshot is authoritative; the mirror is best
// effort.
func MirrorSnapshot(snapshot *DashboardSnapshot) error {
	return config.SetRedisObject(snapshotRedisKey, snapshot, config.SnapshotCacheTTL())
}

// LoadMirroredSnapshot returns the Redis copy, if one is live.
func LoadMirroredSnapshot() (*DashboardSnapshot, bool, error) {
	var snapshot DashboardSnapshot
	exists, err := config.GetRedisObject(snapshotRedisKey, &snapshot)
	if err != nil || !exists {
		return nil, false, err
	}
	return &snapshot, true, nil
}

func logSlowReport(ctx context.Context, name string, started time.Time) {
	d := time.Since(started)
	if d.Milliseconds() < 500 {
		return
	}
	cid, _ := utils.GetCorrelationIdFromContext(ctx)
	log.Printf("slow_report name=%s ms=%d correlation_id=%s", name, d.Milliseconds(), cid)
}
