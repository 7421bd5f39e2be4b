package workflow

import (
	"context"
	"time"

	"github.com/thiagosoaresdev/hcm-position-panorama-sub002/config"
	"github.com/thiagosoaresdev/hcm-position-panorama-sub002/utils"
)

// DispatchNotification publishes a pub/sub message after the surrounding
// transaction committed. Delivery is best effort; a publish failure is logged
// and never fails the caller.
func DispatchNotification(ctx context.Context, organizationId string, recipientId int, eventKind string, referenceId int, referenceType string) {

	correlationId, _ := utils.GetCorrelationIdFromContext(ctx)
	msg := config.NotificationMessage{
		OrganizationId: organizationId,
		RecipientId:    recipientId,
		EventKind:      eventKind,
		ReferenceId:    referenceId,
		ReferenceType:  referenceType,
		CorrelationId:  correlationId,
		EmittedAt:      time.Now().UTC(),
	}

	go func() {
		pubCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, err := config.PublishNotification(pubCtx, msg); err != nil {
			config.LogError(config.GetLogger(), "workflow", "DispatchNotification", eventKind, msg, err)
		}
	}()
}

// DispatchComplianceAlert fans a compliance alert out to the organization's
// operators.
func DispatchComplianceAlert(ctx context.Context, organizationId string, priority string, referenceId int, payload []byte) {

	correlationId, _ := utils.GetCorrelationIdFromContext(ctx)
	msg := config.NotificationMessage{
		OrganizationId: organizationId,
		EventKind:      "compliance-alert-" + priority,
		ReferenceId:    referenceId,
		ReferenceType:  "ComplianceSnapshot",
		Payload:        payload,
		CorrelationId:  correlationId,
		EmittedAt:      time.Now().UTC(),
	}

	go func() {
		pubCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, err := config.PublishNotification(pubCtx, msg); err != nil {
			config.LogError(config.GetLogger(), "workflow", "DispatchComplianceAlert", priority, msg, err)
		}
	}()
}
