package workflow

import (
	"context"
	"errors"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/thiagosoaresdev/hcm-position-panorama-sub002/config"
	"github.com/thiagosoaresdev/hcm-position-panorama-sub002/models"
	"github.com/thiagosoaresdev/hcm-position-panorama-sub002/utils"
	"gorm.io/gorm"
)

// RetryConfig controls the webhook redelivery schedule. Defaults suit local
// runs; production tunes through the environment.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

func LoadRetryConfig() RetryConfig {
	cfg := RetryConfig{
		MaxAttempts: 6,
		BaseDelay:   30 * time.Second,
		MaxDelay:    1 * time.Hour,
	}
	if v := os.Getenv("WEBHOOK_RETRY_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxAttempts = n
		}
	}
	if v := os.Getenv("WEBHOOK_RETRY_BASE_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.BaseDelay = time.Duration(n) * time.Second
		}
	}
	if v := os.Getenv("WEBHOOK_RETRY_MAX_DELAY_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxDelay = time.Duration(n) * time.Second
		}
	}
	return cfg
}

// NextDelay doubles per attempt from the base, capped at MaxDelay.
// Attempt numbers start at 1.
func (c RetryConfig) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := c.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= c.MaxDelay {
			return c.MaxDelay
		}
	}
	if delay > c.MaxDelay {
		return c.MaxDelay
	}
	return delay
}

// IsTransientError separates retryable infrastructure failures from permanent
// domain rejections. Domain errors must not retry: the event would fail the
// same way every time.
func IsTransientError(err error) bool {
	if err == nil {
		return false
	}

	var domainTargets = []error{
		models.ErrDecisionNotFound,
		models.ErrInvalidDecisionAction,
	}
	for _, target := range domainTargets {
		if errors.Is(err, target) {
			return false
		}
	}

	var noSlot *models.NoAvailableSlotError
	var noOccupant *models.NoOccupantToRemoveError
	var deficit *models.WouldCreateDeficitError
	var dup *models.DuplicateRecordError
	var validation *ValidationError
	if errors.As(err, &noSlot) || errors.As(err, &noOccupant) ||
		errors.As(err, &deficit) || errors.As(err, &dup) ||
		errors.As(err, &validation) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		// 1205 lock wait timeout, 1213 deadlock
		return mysqlErr.Number == 1205 || mysqlErr.Number == 1213
	}
	if errors.Is(err, gorm.ErrInvalidTransaction) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, ErrIdempotencyInProgress) {
		return true
	}

	msg := err.Error()
	for _, marker := range []string{"connection refused", "broken pipe", "i/o timeout", "bad connection"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// nextFailureState advances the record's retry bookkeeping in memory.
// Permanent failures become REJECTED with the cause as the stored diagnostic;
// transients schedule the next attempt or park the event as DEAD once
// attempts run out.
func nextFailureState(record *models.WebhookEventRecord, cfg RetryConfig, cause error, transient bool, now time.Time) {

	record.Attempts++
	record.LastError = utils.NilIfEmpty(cause.Error())

	switch {
	case !transient:
		record.Status = models.WebhookDeliveryStatusRejected
		record.Outcome = models.EventOutcomeRejected
		record.Reason = cause.Error()
		record.NextAttemptAt = nil
	case record.Attempts >= cfg.MaxAttempts:
		record.Status = models.WebhookDeliveryStatusDead
		record.NextAttemptAt = nil
	default:
		record.Status = models.WebhookDeliveryStatusFailed
		next := now.Add(cfg.NextDelay(record.Attempts))
		record.NextAttemptAt = &next
	}
}

// markWebhookFailure persists the failure bookkeeping, diagnostics included,
// so a rejected row reads back with its outcome and reason intact.
func markWebhookFailure(ctx context.Context, record *models.WebhookEventRecord, cause error, transient bool) error {

	nextFailureState(record, LoadRetryConfig(), cause, transient, time.Now().UTC())
	if record.Status == models.WebhookDeliveryStatusDead {
		config.GetLogger().WithField("event_id", record.EventId).
			WithField("attempts", record.Attempts).
			Error("webhook event exhausted retries, parked as dead")
	}

	db := config.GetDB()
	return db.WithContext(ctx).Model(&models.WebhookEventRecord{}).
		Where("id = ?", record.ID).
		Updates(map[string]interface{}{
			"status":          record.Status,
			"outcome":         record.Outcome,
			"reason":          record.Reason,
			"attempts":        record.Attempts,
			"next_attempt_at": record.NextAttemptAt,
			"last_error":      record.LastError,
		}).Error
}

func markWebhookSuccess(tx *gorm.DB, record *models.WebhookEventRecord) error {
	now := time.Now().UTC()
	record.ProcessedAt = &now
	return tx.Model(&models.WebhookEventRecord{}).
		Where("id = ?", record.ID).
		Updates(map[string]interface{}{
			"status":          record.Status,
			"outcome":         record.Outcome,
			"proposal_id":     record.ProposalId,
			"reason":          record.Reason,
			"latency_ms":      record.LatencyMs,
			"last_error":      nil,
			"next_attempt_at": nil,
			"processed_at":    record.ProcessedAt,
		}).Error
}
