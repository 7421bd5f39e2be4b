package models

import (
	"context"
	"errors"
	"time"

	"github.com/thiagosoaresdev/hcm-position-panorama-sub002/config"
	"github.com/thiagosoaresdev/hcm-position-panorama-sub002/utils"
	"gorm.io/gorm"
)

// WebhookEventRecord is the durable intake row for one inbound HR event.
// Unique constraint (organization_id, event_id) backs idempotent redelivery:
// a re-delivered event id maps back onto the same row.
type WebhookEventRecord struct {
	ID             int                   `gorm:"primary_key" json:"id"`
	OrganizationId string                `gorm:"size:64;not null;index:uniq_event,unique" json:"organization_id"`
	EventId        string                `gorm:"size:64;not null;index:uniq_event,unique" json:"event_id"`
	EventType      WebhookEventType      `gorm:"size:20;not null" json:"event_type"`
	RawPayload     []byte                `gorm:"type:mediumblob" json:"raw_payload"`
	Status         WebhookDeliveryStatus `gorm:"size:20;not null;index" json:"status"`
	Outcome        EventOutcome          `gorm:"size:20" json:"outcome"`
	ProposalId     *int                  `json:"proposal_id"`
	Reason         string                `gorm:"type:text" json:"reason"`
	Attempts       int                   `gorm:"not null;default:0" json:"attempts"`
	NextAttemptAt  *time.Time            `json:"next_attempt_at"`
	LastError      *string               `gorm:"type:text" json:"last_error"`
	LatencyMs      int64                 `json:"latency_ms"`
	CorrelationId  string                `gorm:"size:64;index" json:"correlation_id"`
	ProcessedAt    *time.Time            `json:"processed_at"`
	// Alert is set while processing when the discrepancy policy asks for a
	// post-commit monitoring alert. Not persisted: a redelivered event that
	// resolves from its stored outcome must not alert twice.
	Alert bool `gorm:"-" json:"-"`
	CreatedAt      time.Time             `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time             `gorm:"autoUpdateTime" json:"updated_at"`
}

// FindWebhookEvent returns the stored intake row for an event id, if any.
func FindWebhookEvent(ctx context.Context, organizationId string, eventId string) (*WebhookEventRecord, error) {
	db := config.GetDB()
	var record WebhookEventRecord
	err := db.WithContext(ctx).
		Where("organization_id = ? AND event_id = ?", organizationId, eventId).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &record, nil
}

// WasApplied reports whether this event already mutated the ledger; reprocessing
// such an event must not double-apply.
func (r *WebhookEventRecord) WasApplied() bool {
	switch r.Status {
	case WebhookDeliveryStatusApplied, WebhookDeliveryStatusPendingApproval:
		return true
	}
	return false
}

// IsTerminal reports whether the delivery has finished, successfully or not.
func (r *WebhookEventRecord) IsTerminal() bool {
	switch r.Status {
	case WebhookDeliveryStatusApplied,
		WebhookDeliveryStatusBlocked,
		WebhookDeliveryStatusRejected,
		WebhookDeliveryStatusPendingApproval,
		WebhookDeliveryStatusDead:
		return true
	}
	return false
}

// FailedWebhookEvents lists manual-reprocessing candidates: deliveries that
// exhausted retries or are waiting for their next attempt.
func FailedWebhookEvents(ctx context.Context, organizationId string, limit int) ([]*WebhookEventRecord, error) {
	db := config.GetDB()
	var records []*WebhookEventRecord
	dbCtx := db.WithContext(ctx).
		Where("organization_id = ? AND status IN ?", organizationId,
			[]WebhookDeliveryStatus{WebhookDeliveryStatusFailed, WebhookDeliveryStatusDead}).
		Order("created_at ASC")
	if limit > 0 {
		dbCtx = dbCtx.Limit(limit)
	}
	err := dbCtx.Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}
