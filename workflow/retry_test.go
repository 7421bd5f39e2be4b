package workflow

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/thiagosoaresdev/hcm-position-panorama-sub002/models"
	"github.com/thiagosoaresdev/hcm-position-panorama-sub002/utils"
	"gorm.io/gorm"
)

func TestRetryConfig_NextDelayDoublesAndCaps(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 6, BaseDelay: 30 * time.Second, MaxDelay: 5 * time.Minute}

	cases := []struct {
		attempt  int
		expected time.Duration
	}{
		{1, 30 * time.Second},
		{2, 1 * time.Minute},
		{3, 2 * time.Minute},
		{4, 4 * time.Minute},
		{5, 5 * time.Minute},
		{9, 5 * time.Minute},
		{0, 30 * time.Second},
	}
	for _, tc := range cases {
		if got := cfg.NextDelay(tc.attempt); got != tc.expected {
			t.Fatalf("NextDelay(%d) expected %s, got %s", tc.attempt, tc.expected, got)
		}
	}
}

func TestIsTransientError_DomainErrorsArePermanent(t *testing.T) {
	permanent := []error{
		&models.NoAvailableSlotError{Planned: 5, Filled: 5},
		&models.NoOccupantToRemoveError{Filled: 0},
		&models.WouldCreateDeficitError{NewPlanned: 3, Filled: 5},
		&models.DuplicateRecordError{PlanId: 1, PositionId: 2, CargoId: 3},
		&ValidationError{Violations: []FieldViolation{{Field: "person_id", Rule: "required"}}},
		models.ErrDecisionNotFound,
	}
	for _, err := range permanent {
		if IsTransientError(err) {
			t.Fatalf("%T must be permanent: %v", err, err)
		}
		// Wrapping must not change the classification.
		if IsTransientError(fmt.Errorf("applying event: %w", err)) {
			t.Fatalf("wrapped %T must stay permanent", err)
		}
	}
}

func TestIsTransientError_InfrastructureErrorsRetry(t *testing.T) {
	transient := []error{
		context.DeadlineExceeded,
		ErrIdempotencyInProgress,
		errors.New("dial tcp 10.0.0.5:3306: connection refused"),
		errors.New("write: broken pipe"),
	}
	for _, err := range transient {
		if !IsTransientError(err) {
			t.Fatalf("expected transient: %v", err)
		}
	}

	if IsTransientError(nil) {
		t.Fatalf("nil error is not transient")
	}
	if IsTransientError(errors.New("person \"emp-1\" is already active")) {
		t.Fatalf("plain domain rejection must not retry")
	}
}

func TestNextFailureState_PermanentFailureKeepsDiagnostics(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 6, BaseDelay: 30 * time.Second, MaxDelay: time.Hour}
	record := &models.WebhookEventRecord{Status: models.WebhookDeliveryStatusProcessing}

	nextFailureState(record, cfg, &models.NoAvailableSlotError{Planned: 5, Filled: 5}, false, time.Now().UTC())

	if record.Status != models.WebhookDeliveryStatusRejected {
		t.Fatalf("permanent failure expected REJECTED, got %s", record.Status)
	}
	if record.Outcome != models.EventOutcomeRejected {
		t.Fatalf("rejected row must carry its outcome, got %q", record.Outcome)
	}
	if record.Reason == "" {
		t.Fatalf("rejected row must say why it was rejected")
	}
	if record.NextAttemptAt != nil {
		t.Fatalf("rejected events never retry")
	}
	if record.LastError == nil || *record.LastError == "" {
		t.Fatalf("last_error must hold the failure cause")
	}
}

func TestNextFailureState_TransientSchedulesThenDies(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 3, BaseDelay: 30 * time.Second, MaxDelay: time.Hour}
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	record := &models.WebhookEventRecord{Status: models.WebhookDeliveryStatusProcessing}

	nextFailureState(record, cfg, errors.New("dial tcp: connection refused"), true, now)
	if record.Status != models.WebhookDeliveryStatusFailed || record.Attempts != 1 {
		t.Fatalf("first transient failure expected FAILED/1, got %s/%d", record.Status, record.Attempts)
	}
	if record.NextAttemptAt == nil || !record.NextAttemptAt.Equal(now.Add(30*time.Second)) {
		t.Fatalf("expected next attempt at +30s, got %v", record.NextAttemptAt)
	}

	nextFailureState(record, cfg, errors.New("dial tcp: connection refused"), true, now)
	nextFailureState(record, cfg, errors.New("dial tcp: connection refused"), true, now)
	if record.Status != models.WebhookDeliveryStatusDead {
		t.Fatalf("exhausted attempts expected DEAD, got %s", record.Status)
	}
	if record.NextAttemptAt != nil {
		t.Fatalf("dead events never reschedule")
	}
}

func TestNotFoundOr_KeepsTransientIdentity(t *testing.T) {
	if notFoundOr(gorm.ErrRecordNotFound) != utils.ErrorRecordNotFound {
		t.Fatalf("gorm not-found must map to the API's record-not-found error")
	}

	lockWait := &mysql.MySQLError{Number: 1205, Message: "Lock wait timeout exceeded"}
	got := notFoundOr(lockWait)
	if !errors.Is(got, lockWait) {
		t.Fatalf("non-not-found errors must pass through unchanged, got %v", got)
	}
	if !IsTransientError(got) {
		t.Fatalf("a lock wait timeout must stay retryable after mapping")
	}
}
