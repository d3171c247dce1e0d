package models

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/seaharvest/lobsterstock_backend/config"
	"github.com/seaharvest/lobsterstock_backend/utils"
	"gorm.io/gorm"
)

const (
	OutboxPublishStatusPending    = "PENDING"
	OutboxPublishStatusProcessing = "PROCESSING"
	OutboxPublishStatusSent       = "SENT"
	OutboxPublishStatusFailed     = "FAILED"
	OutboxPublishStatusDead       = "DEAD"
)

// ChangeEventRecord is the transactional outbox row for change-feed
// notifications. It is written inside the same DB transaction as the
// inventory/ledger mutation it describes; the dispatcher publishes it to
// Pub/Sub after commit, so a notification is never emitted for a rolled-back
// write.
type ChangeEventRecord struct {
	ID         int       `gorm:"primary_key;index:idx_changefeed_dispatch,priority:3" json:"id"`
	Table      string    `gorm:"column:table_name;size:64;not null" json:"table"`
	Action     string    `gorm:"size:10;not null" json:"action"`
	RecordId   int       `gorm:"not null" json:"record_id"`
	OccurredAt time.Time `gorm:"index;not null" json:"occurred_at"`

	PublishStatus    string     `gorm:"size:20;index;not null;default:'PENDING';index:idx_changefeed_dispatch,priority:1" json:"publish_status"` // PENDING|PROCESSING|SENT|FAILED|DEAD
	PublishedAt      *time.Time `gorm:"index" json:"published_at"`
	PubSubMessageId  *string    `gorm:"size:255" json:"pubsub_message_id"`
	PublishAttempts  int        `gorm:"not null;default:0" json:"publish_attempts"`
	NextAttemptAt    *time.Time `gorm:"index;index:idx_changefeed_dispatch,priority:2" json:"next_attempt_at"`
	LockedAt         *time.Time `gorm:"index" json:"locked_at"`
	LockedBy         *string    `gorm:"size:100" json:"locked_by"`
	LastPublishError *string    `gorm:"type:text" json:"last_publish_error"`

	CorrelationId string    `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (ChangeEventRecord) TableName() string {
	return "change_event_records"
}

// EnqueueChangeEvent writes an outbox row on the caller's transaction. The
// event does NOT reach Pub/Sub here; the dispatcher picks it up after commit.
func EnqueueChangeEvent(ctx context.Context, tx *gorm.DB, table string, action string, recordId int, occurredAt time.Time) error {
	record := ChangeEventRecord{
		Table:         table,
		Action:        action,
		RecordId:      recordId,
		OccurredAt:    occurredAt,
		PublishStatus: OutboxPublishStatusPending,
		CorrelationId: correlationIdFromContextOrNew(ctx),
	}
	return tx.Create(&record).Error
}

func correlationIdFromContextOrNew(ctx context.Context) string {
	if ctx != nil {
		if v, ok := utils.GetCorrelationIdFromContext(ctx); ok && v != "" {
			return v
		}
	}
	return uuid.NewString()
}

func ConvertToChangeEvent(record ChangeEventRecord) config.ChangeEvent {
	return config.ChangeEvent{
		ID:            record.ID,
		Table:         record.Table,
		Action:        record.Action,
		RecordId:      record.RecordId,
		OccurredAt:    record.OccurredAt,
		CorrelationId: record.CorrelationId,
	}
}
