package models

import (
	"context"
	"errors"
	"time"

	"github.com/rahulkrishna-web/homerun-shipping-app/config"
)

type WebhookLogStatus string

const (
	WebhookLogStatusInfo    WebhookLogStatus = "INFO"
	WebhookLogStatusSuccess WebhookLogStatus = "SUCCESS"
	WebhookLogStatusWarning WebhookLogStatus = "WARNING"
	WebhookLogStatusError   WebhookLogStatus = "ERROR"
)

// WebhookLog is the append-only audit record of one webhook or force-status
// invocation. Rows are never updated after insert.
type WebhookLog struct {
	ID            uint             `gorm:"primary_key" json:"id"`
	Status        WebhookLogStatus `gorm:"size:20;not null;index" json:"status"`
	Message       string           `gorm:"size:500" json:"message"`
	CorrelationId string           `gorm:"size:64;index" json:"correlation_id"`
	RawPayload    []byte           `gorm:"type:json" json:"raw_payload"`
	FlowLogJSON   []byte           `gorm:"type:json" json:"flow_log"`
	SummaryJSON   []byte           `gorm:"type:json" json:"summary"`
	CreatedAt     time.Time        `gorm:"autoCreateTime;index" json:"created_at"`
}

// InsertWebhookLog persists one log record. Persistence failures are logged
// and swallowed: observability must never fail the invocation that produced it.
func InsertWebhookLog(ctx context.Context, record *WebhookLog) {
	db := config.GetDB()
	if db == nil {
		return
	}
	if err := db.WithContext(ctx).Create(record).Error; err != nil {
		config.LogError(config.GetLogger(), "webhookLog.go", "InsertWebhookLog", "db.Create", record.CorrelationId, err)
	}
}

func ListWebhookLogs(ctx context.Context, limit int) ([]WebhookLog, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if config.GetDB() == nil {
		return nil, errors.New("db is nil")
	}
	var logs []WebhookLog
	err := config.GetDB().WithContext(ctx).
		Order("id desc").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}
