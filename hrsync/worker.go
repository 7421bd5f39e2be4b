package hrsync

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/thiagosoaresdev/hcm-position-panorama-sub002/config"
	"github.com/thiagosoaresdev/hcm-position-panorama-sub002/models"
	"github.com/thiagosoaresdev/hcm-position-panorama-sub002/workflow"
)

var ErrAlreadyApplied = errors.New("event already applied, reprocessing would double-apply")

// ReprocessEvent re-runs a stored delivery from its persisted raw payload.
// Applied events never re-run; the attempt counter restarts for the fresh run.
func ReprocessEvent(ctx context.Context, organizationId string, eventId string) (*workflow.ReconcileOutcome, error) {

	record, err := models.FindWebhookEvent(ctx, organizationId, eventId)
	if err != nil {
		return nil, err
	}
	if record.WasApplied() {
		return nil, ErrAlreadyApplied
	}

	org, err := models.GetOrganization(ctx, organizationId)
	if err != nil {
		return nil, err
	}

	event, err := ParseEvent(record.RawPayload)
	if err != nil {
		return nil, fmt.Errorf("stored payload no longer parses: %w", err)
	}
	if err = event.Validate(); err != nil {
		return nil, err
	}

	// A fresh run starts from a clean slate: the stored attempt history
	// belonged to the automatic schedule, not to this operator action.
	db := config.GetDB()
	if err = db.WithContext(ctx).Model(&models.WebhookEventRecord{}).
		Where("id = ?", record.ID).
		Updates(map[string]interface{}{
			"status":          models.WebhookDeliveryStatusPending,
			"attempts":        0,
			"next_attempt_at": nil,
			"last_error":      nil,
		}).Error; err != nil {
		return nil, err
	}

	// The reconcile idempotency key must not short-circuit the re-run.
	if err = db.WithContext(ctx).
		Where("organization_id = ? AND handler_name = ? AND event_id = ?",
			organizationId, "hr-event-reconcile", eventId).
		Delete(&models.IdempotencyKey{}).Error; err != nil {
		return nil, err
	}

	return workflow.ReconcileEvent(ctx, org, event, record.RawPayload)
}

// NormalizeOrganization runs a full-feed reconciliation for one organization,
// with the HR roster cross-check when the organization carries an API key.
func NormalizeOrganization(ctx context.Context, organizationId string) (*workflow.NormalizationResult, error) {

	org, err := models.GetOrganization(ctx, organizationId)
	if err != nil {
		return nil, err
	}

	var source workflow.RosterSource
	if apiKey := resolveApiKey(org.HrApiKeyRef); apiKey != "" {
		client, cErr := NewHrClient(apiKey)
		if cErr != nil {
			config.GetLogger().WithError(cErr).
				WithField("organization_id", organizationId).
				Warn("hr client unavailable, normalizing from local data only")
		} else {
			source = client
		}
	}

	return workflow.RunNormalization(ctx, organizationId, source)
}

// resolveApiKey dereferences the organization's key reference through the
// environment. The database row never holds the key itself.
func resolveApiKey(keyRef string) string {
	if keyRef == "" {
		return ""
	}
	return os.Getenv(keyRef)
}
