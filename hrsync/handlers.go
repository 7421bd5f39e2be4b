package hrsync

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/thiagosoaresdev/hcm-position-panorama-sub002/config"
	"github.com/thiagosoaresdev/hcm-position-panorama-sub002/models"
	"github.com/thiagosoaresdev/hcm-position-panorama-sub002/utils"
	"github.com/thiagosoaresdev/hcm-position-panorama-sub002/workflow"
)

const signatureHeader = "X-Webhook-Signature"

// WebhookHandler is the HR system's entry point. Response codes map the
// reconciliation outcome: 200 applied, 202 pending approval, 409 blocked,
// 422 rejected, 500 only for transient failures worth redelivering.
func WebhookHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		organizationId := strings.TrimSpace(c.Param("organizationId"))
		org, err := models.GetOrganization(c.Request.Context(), organizationId)
		if err != nil || org.IsActive == nil || !*org.IsActive {
			c.JSON(http.StatusNotFound, gin.H{"error": "organization not found"})
			return
		}

		body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "could not read request body"})
			return
		}

		// An unauthenticated delivery leaves no trace beyond the access log.
		if err = VerifySignature(org.WebhookSecret, body, c.GetHeader(signatureHeader)); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
			return
		}

		event, err := ParseEvent(body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err = event.Validate(); err != nil {
			var verr *workflow.ValidationError
			if errors.As(err, &verr) {
				c.JSON(http.StatusBadRequest, gin.H{
					"error":      "payload validation failed",
					"violations": verr.Violations,
				})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx := utils.SetOrganizationIdInContext(c.Request.Context(), organizationId)
		ctx = utils.SetCorrelationIdInContext(ctx, requestCorrelationId(c))
		ctx = utils.SetUserNameInContext(ctx, "hr-webhook")

		outcome, err := workflow.ReconcileEvent(ctx, org, event, body)
		if err != nil {
			config.LogError(config.GetLogger(), "hrsync", "WebhookHandler", "reconcile", event.EventId, err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":    "temporary failure, redeliver later",
				"event_id": event.EventId,
			})
			return
		}

		c.JSON(statusForOutcome(outcome), gin.H{
			"event_id": event.EventId,
			"outcome":  outcome.Outcome,
			"status":   outcome.Status,
			"reason":   outcome.Reason,
			"proposal_id": outcome.ProposalId,
		})
	}
}

func statusForOutcome(outcome *workflow.ReconcileOutcome) int {
	switch outcome.Outcome {
	case models.EventOutcomeAllowed:
		return http.StatusOK
	case models.EventOutcomePendingApproval:
		return http.StatusAccepted
	case models.EventOutcomeBlocked:
		return http.StatusConflict
	default:
		return http.StatusUnprocessableEntity
	}
}

func requestCorrelationId(c *gin.Context) string {
	if v := strings.TrimSpace(c.GetHeader("X-Correlation-Id")); v != "" {
		return v
	}
	return uuid.NewString()
}

// ReprocessHandler re-runs a stored failed delivery on operator demand.
type reprocessRequest struct {
	EventId string `json:"event_id" binding:"required"`
}

func ReprocessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		organizationId, ok := utils.GetOrganizationIdFromContext(c.Request.Context())
		if !ok || organizationId == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var req reprocessRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		outcome, err := ReprocessEvent(c.Request.Context(), organizationId, req.EventId)
		if err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
				return
			}
			if errors.Is(err, ErrAlreadyApplied) {
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, outcome)
	}
}

// FailedEventsHandler lists deliveries waiting on retry or parked as dead.
func FailedEventsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		organizationId, ok := utils.GetOrganizationIdFromContext(c.Request.Context())
		if !ok || organizationId == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		records, err := models.FailedWebhookEvents(c.Request.Context(), organizationId, 100)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"events": records})
	}
}
