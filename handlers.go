package main

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/thiagosoaresdev/hcm-position-panorama-sub002/config"
	"github.com/thiagosoaresdev/hcm-position-panorama-sub002/hrsync"
	"github.com/thiagosoaresdev/hcm-position-panorama-sub002/models"
	"github.com/thiagosoaresdev/hcm-position-panorama-sub002/utils"
	"github.com/thiagosoaresdev/hcm-position-panorama-sub002/workflow"
)

// bindError turns gin binding failures into a field-keyed response when the
// validator produced them, and a plain message otherwise.
func bindError(c *gin.Context, err error) {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": utils.ProcessValidationErrors(ve)})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func loginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}

		user, err := models.GetUserByEmail(c.Request.Context(), req.Email)
		if err != nil || !utils.DereferencePtr(user.IsActive) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		if err = utils.ComparePassword(user.Password, req.Password); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}

		token, err := utils.JwtGenerate(user.ID, user.Role)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue token"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"token": token})
	}
}

// authMiddleware resolves the bearer token to a user and stamps the request
// context with the user's organization and identity.
func authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		if raw == "" {
			raw = strings.TrimSpace(c.GetHeader("token"))
		}
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}

		token, err := utils.JwtValidate(raw)
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		claims, ok := token.Claims.(*utils.JwtCustomClaim)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		db := config.GetDB()
		var user models.User
		if err = db.WithContext(c.Request.Context()).First(&user, claims.ID).Error; err != nil ||
			!utils.DereferencePtr(user.IsActive) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unknown user"})
			return
		}

		ctx := utils.SetOrganizationIdInContext(c.Request.Context(), user.OrganizationId)
		ctx = utils.SetUserIdInContext(ctx, user.ID)
		ctx = utils.SetUserNameInContext(ctx, user.Name)
		ctx = utils.SetIsAdminInContext(ctx, user.Role == "admin")
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if isAdmin, ok := utils.GetIsAdminFromContext(c.Request.Context()); !ok || !isAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin role required"})
			return
		}
		c.Next()
	}
}

func pathId(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

func createStaffingRecordHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewStaffingRecord
		if err := c.ShouldBindJSON(&input); err != nil {
			bindError(c, err)
			return
		}
		record, err := models.CreateStaffingRecord(c.Request.Context(), &input)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, record)
	}
}

func getStaffingRecordHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		record, err := models.GetStaffingRecord(c.Request.Context(), id)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "staffing record not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"record":          record,
			"available_slots": record.AvailableSlots(),
			"occupancy_rate":  record.OccupancyRate(),
			"has_deficit":     record.HasDeficit(),
			"deficit_amount":  record.DeficitAmount(),
		})
	}
}

type updatePlannedRequest struct {
	PlannedCount int    `json:"planned_count" binding:"required"`
	Reason       string `json:"reason" binding:"required"`
}

func updatePlannedHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		var req updatePlannedRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
		record, err := models.UpdatePlannedCount(c.Request.Context(), id, req.PlannedCount, req.Reason)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, record)
	}
}

type deactivateRequest struct {
	Reason string `json:"reason" binding:"required"`
}

func deactivateStaffingRecordHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		var req deactivateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
		record, err := models.SoftDeleteStaffingRecord(c.Request.Context(), id, req.Reason)
		if err != nil {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, record)
	}
}

type reservationRequest struct {
	Reason string `json:"reason" binding:"required"`
}

func reserveSlotHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		var req reservationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
		record, err := models.ReserveSlot(c.Request.Context(), id, req.Reason)
		if err != nil {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"record": record, "available_slots": record.AvailableSlots()})
	}
}

func releaseReservationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		var req reservationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
		record, err := models.ReleaseSlotReservation(c.Request.Context(), id, req.Reason)
		if err != nil {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"record": record, "available_slots": record.AvailableSlots()})
	}
}

func positionStaffingRecordsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		organizationId, _ := utils.GetOrganizationIdFromContext(c.Request.Context())
		position, err := models.GetPosition(c.Request.Context(), organizationId, id)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "position not found"})
			return
		}
		records, err := models.FindStaffingRecordsByPosition(c.Request.Context(), organizationId, position.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"position": position, "records": records})
	}
}

type annotateDecisionRequest struct {
	Comment string `json:"comment" binding:"required"`
}

func annotateDecisionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		decisionId, ok := pathId(c, "decisionId")
		if !ok {
			return
		}
		var req annotateDecisionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
		if err := workflow.AnnotateDecision(c.Request.Context(), decisionId, req.Comment); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func auditTrailHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		entityId, ok := pathId(c, "entityId")
		if !ok {
			return
		}
		entries, err := models.AuditTrail(c.Request.Context(), entityId, c.Param("entityType"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"entries": entries})
	}
}

func verifyAuditChainHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		entityId, ok := pathId(c, "entityId")
		if !ok {
			return
		}
		breaks, err := models.ValidateAuditChain(c.Request.Context(), entityId, c.Param("entityType"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"intact": len(breaks) == 0, "breaks": breaks})
	}
}

func createProposalHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewProposal
		if err := c.ShouldBindJSON(&input); err != nil {
			bindError(c, err)
			return
		}
		proposal, err := workflow.CreateProposal(c.Request.Context(), &input)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, proposal)
	}
}

type submitProposalRequest struct {
	ApproversByLevel [][]int `json:"approvers_by_level" binding:"required"`
}

func submitProposalHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		var req submitProposalRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
		proposal, err := workflow.SubmitProposal(c.Request.Context(), id, req.ApproversByLevel)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, proposal)
	}
}

type decideProposalRequest struct {
	Level   int    `json:"level" binding:"required"`
	Action  string `json:"action" binding:"required"`
	Comment string `json:"comment"`
}

func decideProposalHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		var req decideProposalRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
		var action models.DecisionAction
		if err := action.UnmarshalString(req.Action); err != nil {
			bindError(c, err)
			return
		}

		approverId, _ := utils.GetUserIdFromContext(c.Request.Context())
		proposal, err := workflow.DecideProposal(c.Request.Context(), id, req.Level, approverId, action, req.Comment)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, proposal)
	}
}

func complianceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		organizationId, _ := utils.GetOrganizationIdFromContext(c.Request.Context())
		persons, err := models.ActivePersons(c.Request.Context(), organizationId)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		snapshot := models.CalculateCompliance(persons)
		alerts := models.MonitorCompliance(persons, config.ComplianceCriticalShare())
		c.JSON(http.StatusOK, gin.H{"snapshot": snapshot, "alerts": alerts})
	}
}

func complianceProjectionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		organizationId, _ := utils.GetOrganizationIdFromContext(c.Request.Context())

		var scenario models.ComplianceScenario
		if err := c.ShouldBindQuery(&scenario); err != nil {
			bindError(c, err)
			return
		}
		persons, err := models.ActivePersons(c.Request.Context(), organizationId)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, models.ProjectCompliance(persons, scenario))
	}
}

func normalizeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		organizationId, _ := utils.GetOrganizationIdFromContext(c.Request.Context())
		result, err := hrsync.NormalizeOrganization(c.Request.Context(), organizationId)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func overdueDecisionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		overdue, err := workflow.ListOverdueDecisions(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		for _, od := range overdue {
			workflow.DispatchNotification(c.Request.Context(), od.Proposal.OrganizationId,
				od.Decision.ApproverId, "proposal-decision-overdue", od.Proposal.ID, "Proposal")
		}
		c.JSON(http.StatusOK, gin.H{"overdue": overdue})
	}
}
