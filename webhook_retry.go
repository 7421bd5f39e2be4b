package main

import (
	"context"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/thiagosoaresdev/hcm-position-panorama-sub002/config"
	"github.com/thiagosoaresdev/hcm-position-panorama-sub002/hrsync"
	"github.com/thiagosoaresdev/hcm-position-panorama-sub002/models"
	"github.com/thiagosoaresdev/hcm-position-panorama-sub002/utils"
	"github.com/thiagosoaresdev/hcm-position-panorama-sub002/workflow"
)

// runWebhookSweeper re-drives FAILED deliveries whose next attempt is due.
// DEAD events are never picked up automatically; those wait for an operator.
func runWebhookSweeper(ctx context.Context, logger *logrus.Logger) {
	interval := 30 * time.Second
	if v := strings.TrimSpace(os.Getenv("WEBHOOK_SWEEP_INTERVAL_SECONDS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			interval = time.Duration(n) * time.Second
		}
	}
	if strings.EqualFold(strings.TrimSpace(os.Getenv("WEBHOOK_SWEEP_DISABLED")), "true") {
		logger.Warn("webhook sweeper disabled")
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweepDueWebhookEvents(ctx, logger)
		}
	}
}

func sweepDueWebhookEvents(ctx context.Context, logger *logrus.Logger) {
	db := config.GetDB()
	if db == nil {
		return
	}

	var due []models.WebhookEventRecord
	err := db.WithContext(ctx).
		Where("status = ? AND next_attempt_at IS NOT NULL AND next_attempt_at <= ?",
			models.WebhookDeliveryStatusFailed, time.Now().UTC()).
		Order("next_attempt_at ASC").
		Limit(50).
		Find(&due).Error
	if err != nil {
		logger.WithError(err).Error("webhook sweep query failed")
		return
	}

	for i := range due {
		record := &due[i]
		if err := redriveWebhookEvent(ctx, record); err != nil {
			logger.WithError(err).
				WithField("event_id", record.EventId).
				WithField("attempts", record.Attempts).
				Warn("webhook redrive failed")
		}
	}
}

// redriveWebhookEvent replays one stored delivery with its original attempt
// history intact so the backoff schedule keeps advancing toward DEAD.
func redriveWebhookEvent(ctx context.Context, record *models.WebhookEventRecord) error {
	org, err := models.GetOrganization(ctx, record.OrganizationId)
	if err != nil {
		return err
	}

	event, err := hrsync.ParseEvent(record.RawPayload)
	if err != nil {
		return err
	}
	if err = event.Validate(); err != nil {
		return err
	}

	runCtx := utils.SetOrganizationIdInContext(ctx, record.OrganizationId)
	runCtx = utils.SetCorrelationIdInContext(runCtx, record.CorrelationId)
	runCtx = utils.SetUserNameInContext(runCtx, "webhook-sweeper")

	_, err = workflow.ReconcileEvent(runCtx, org, event, record.RawPayload)
	return err
}
