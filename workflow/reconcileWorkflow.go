package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/thiagosoaresdev/hcm-position-panorama-sub002/config"
	"github.com/thiagosoaresdev/hcm-position-panorama-sub002/models"
	"github.com/thiagosoaresdev/hcm-position-panorama-sub002/utils"
	"gorm.io/gorm"
)

const reconcileHandlerName = "hr-event-reconcile"

// ReconcileOutcome is what the intake surface reports back to the HR system.
type ReconcileOutcome struct {
	Applied    bool                         `json:"applied"`
	Outcome    models.EventOutcome          `json:"outcome"`
	Status     models.WebhookDeliveryStatus `json:"status"`
	ProposalId *int                         `json:"proposal_id,omitempty"`
	Reason     string                       `json:"reason"`
	LatencyMs  int64                        `json:"latency_ms"`
}

func outcomeFromRecord(record *models.WebhookEventRecord) *ReconcileOutcome {
	return &ReconcileOutcome{
		Applied:    record.WasApplied(),
		Outcome:    record.Outcome,
		Status:     record.Status,
		ProposalId: record.ProposalId,
		Reason:     record.Reason,
		LatencyMs:  record.LatencyMs,
	}
}

// ReconcileEvent runs one validated HR event against the staffing ledger.
// Redelivery of an already-applied event id returns the stored outcome
// without touching the ledger again. The ledger mutation, the person change,
// the audit entry and the delivery status all commit in one transaction.
func ReconcileEvent(ctx context.Context, org *models.Organization, event *InboundEvent, rawPayload []byte) (*ReconcileOutcome, error) {

	started := time.Now()
	logger := config.GetLogger().WithField("organization_id", org.ID.String()).
		WithField("event_id", event.EventId).
		WithField("event_type", event.EventType)

	record, err := intakeEventRecord(ctx, org.ID.String(), event, rawPayload)
	if err != nil {
		return nil, err
	}
	if record.IsTerminal() && record.Status != models.WebhookDeliveryStatusFailed {
		logger.WithField("status", record.Status).Info("redelivered event resolved from stored outcome")
		return outcomeFromRecord(record), nil
	}

	db := config.GetDB()
	txErr := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		skip, idErr := BeginIdempotency(tx, org.ID.String(), reconcileHandlerName, event.EventId)
		if idErr != nil {
			return idErr
		}
		if skip {
			// Another delivery finished between our intake read and now.
			return nil
		}

		// On error the rollback drops the STARTED row too, freeing the key
		// for the next attempt.
		if idErr = applyEvent(tx, org, event, record); idErr != nil {
			return idErr
		}

		record.LatencyMs = time.Since(started).Milliseconds()
		if idErr = markWebhookSuccess(tx, record); idErr != nil {
			return idErr
		}
		return MarkIdempotencySucceeded(tx, org.ID.String(), reconcileHandlerName, event.EventId)
	})

	if txErr != nil {
		transient := IsTransientError(txErr)
		if markErr := markWebhookFailure(ctx, record, txErr, transient); markErr != nil {
			config.LogError(config.GetLogger(), "workflow", "ReconcileEvent", "mark failure", record.EventId, markErr)
		}
		// The rollback dropped a freshly inserted STARTED row; a reused stale
		// one survives it, so record the failure there.
		if markErr := MarkIdempotencyFailed(db.WithContext(ctx), org.ID.String(), reconcileHandlerName, event.EventId, txErr); markErr != nil {
			config.LogError(config.GetLogger(), "workflow", "ReconcileEvent", "mark idempotency failure", record.EventId, markErr)
		}
		if transient {
			logger.WithError(txErr).Warn("event reconciliation failed, scheduled for retry")
			return nil, txErr
		}
		logger.WithError(txErr).Info("event rejected")
		return outcomeFromRecord(record), nil
	}

	if record.Status == models.WebhookDeliveryStatusProcessing {
		// Idempotency said another delivery already finished; report its outcome.
		if stored, findErr := models.FindWebhookEvent(ctx, org.ID.String(), event.EventId); findErr == nil {
			record = stored
		}
	}

	if target := config.WebhookLatencyTarget(); time.Since(started) > target {
		logger.WithField("latency_ms", record.LatencyMs).
			WithField("target_ms", target.Milliseconds()).
			Warn("event reconciliation exceeded latency target")
	}

	// Alert-mode events apply (or block) AND alert; the flag travels on the
	// record from the policy decision to here.
	if record.Alert {
		DispatchComplianceAlert(ctx, org.ID.String(), "high", record.ID, rawPayload)
	}
	return outcomeFromRecord(record), nil
}

// applyPolicyDecision copies the discrepancy verdict onto the delivery record,
// including the alert flag the post-commit dispatch reads.
func applyPolicyDecision(record *models.WebhookEventRecord, decision PolicyDecision) {
	record.Outcome = decision.Outcome
	record.Reason = decision.Reason
	record.Alert = decision.Alert
}

// intakeEventRecord persists the raw delivery before any processing, or maps a
// redelivered event id back onto its existing row.
func intakeEventRecord(ctx context.Context, organizationId string, event *InboundEvent, rawPayload []byte) (*models.WebhookEventRecord, error) {

	correlationId, _ := utils.GetCorrelationIdFromContext(ctx)
	record := models.WebhookEventRecord{
		OrganizationId: organizationId,
		EventId:        event.EventId,
		EventType:      event.EventType,
		RawPayload:     rawPayload,
		Status:         models.WebhookDeliveryStatusProcessing,
		CorrelationId:  correlationId,
	}

	db := config.GetDB()
	err := db.WithContext(ctx).Create(&record).Error
	if err == nil {
		return &record, nil
	}
	if !isDuplicateKeyErr(err) {
		return nil, err
	}
	return models.FindWebhookEvent(ctx, organizationId, event.EventId)
}

// applyEvent dispatches on the event type. It mutates record in place with the
// resulting status, outcome and reason; the caller persists.
func applyEvent(tx *gorm.DB, org *models.Organization, event *InboundEvent, record *models.WebhookEventRecord) error {

	switch event.EventType {
	case models.WebhookEventTypeAdmitted:
		return applyAdmission(tx, org, event, record)
	case models.WebhookEventTypeTransferred:
		return applyTransfer(tx, org, event, record)
	case models.WebhookEventTypeTerminated:
		return applyTermination(tx, org, event, record)
	case models.WebhookEventTypePromoted:
		return applyPromotion(tx, org, event, record)
	default:
		return fmt.Errorf("no handler for event type %q", event.EventType)
	}
}

// resolveSlot locates the staffing record targeted by the event's position and
// cargo. A missing position or cargo is a hard failure; a missing staffing
// record is a policy matter and comes back as (position, cargo, nil, nil).
func resolveSlot(tx *gorm.DB, organizationId string, positionExternal, cargoExternal string) (*models.Position, *models.Cargo, *models.StaffingRecord, error) {

	var position models.Position
	if err := tx.Where("organization_id = ? AND external_id = ?", organizationId, positionExternal).
		First(&position).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, nil, fmt.Errorf("unknown position %q", positionExternal)
		}
		return nil, nil, nil, err
	}

	var cargo models.Cargo
	if err := tx.Where("organization_id = ? AND external_id = ?", organizationId, cargoExternal).
		First(&cargo).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, nil, fmt.Errorf("unknown cargo %q", cargoExternal)
		}
		return nil, nil, nil, err
	}

	var slot models.StaffingRecord
	err := tx.Clauses(forUpdate()).
		Where("organization_id = ? AND position_id = ? AND cargo_id = ? AND is_active = ?",
			organizationId, position.ID, cargo.ID, true).
		First(&slot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &position, &cargo, nil, nil
		}
		return nil, nil, nil, err
	}
	return &position, &cargo, &slot, nil
}

func applyAdmission(tx *gorm.DB, org *models.Organization, event *InboundEvent, record *models.WebhookEventRecord) error {

	organizationId := org.ID.String()
	if existing, err := models.FindPersonByExternalIdTx(tx, organizationId, event.PersonExternalId); err == nil &&
		existing.Status == models.PersonStatusActive {
		return fmt.Errorf("person %q is already active", event.PersonExternalId)
	}

	position, cargo, slot, err := resolveSlot(tx, organizationId, event.PositionExternal, event.CargoExternalId)
	if err != nil {
		decision := FailClosedDecision(err)
		record.Status = models.WebhookDeliveryStatusBlocked
		applyPolicyDecision(record, decision)
		return nil
	}

	expectedMismatch := slot == nil || position.ExpectedCargoId != cargo.ID
	if expectedMismatch {
		decision := EvaluateCargoDiscrepancy(org.DiscrepancyMode, event, slot)
		applyPolicyDecision(record, decision)

		switch decision.Outcome {
		case models.EventOutcomeBlocked:
			record.Status = models.WebhookDeliveryStatusBlocked
			return nil
		case models.EventOutcomePendingApproval:
			propSlot, pErr := ensureSlotForProposal(tx, organizationId, position, cargo, slot)
			if pErr != nil {
				decision = FailClosedDecision(pErr)
				record.Status = models.WebhookDeliveryStatusBlocked
				applyPolicyDecision(record, decision)
				return nil
			}
			proposal, pErr := createDiscrepancyProposalTx(tx, organizationId, propSlot.ID, cargo.ID, event, decision.Reason)
			if pErr != nil {
				return pErr
			}
			record.Status = models.WebhookDeliveryStatusPendingApproval
			record.ProposalId = &proposal.ID
			return nil
		}
		// allowed (plain or with alert): fall through and admit
	}

	if err = AcquireStaffingRecordLock(tx, organizationId, slot.ID); err != nil {
		return err
	}
	defer ReleaseStaffingRecordLock(tx, organizationId, slot.ID)

	before := *slot
	if err = slot.Admit(); err != nil {
		record.Status = models.WebhookDeliveryStatusBlocked
		record.Outcome = models.EventOutcomeBlocked
		record.Reason = err.Error()
		return nil
	}
	if err = slot.SaveCounts(tx); err != nil {
		return err
	}

	accessibility := event.Accessibility != nil && *event.Accessibility
	person, err := models.CreatePersonTx(tx, organizationId, &models.NewPerson{
		ExternalId:    event.PersonExternalId,
		Name:          event.Name,
		GovernmentId:  event.GovernmentId,
		CargoId:       cargo.ID,
		PositionId:    position.ID,
		Shift:         event.Shift,
		Accessibility: accessibility,
		AdmissionDate: event.AdmissionDate,
	})
	if err != nil {
		return err
	}

	if err = models.RecordAudit(tx, models.NewAuditEntry{
		EntityId:   slot.ID,
		EntityType: "StaffingRecord",
		Action:     models.AuditActionAdmit,
		Before:     &before,
		After:      slot,
		Reason:     fmt.Sprintf("admission of person %d via event %s", person.ID, event.EventId),
	}); err != nil {
		return err
	}

	record.Status = models.WebhookDeliveryStatusApplied
	if record.Outcome == "" {
		record.Outcome = models.EventOutcomeAllowed
		record.Reason = fmt.Sprintf("admitted into position %q", event.PositionExternal)
	}
	return nil
}

func applyTermination(tx *gorm.DB, org *models.Organization, event *InboundEvent, record *models.WebhookEventRecord) error {

	organizationId := org.ID.String()
	person, err := models.FindPersonByExternalIdTx(tx, organizationId, event.PersonExternalId)
	if err != nil {
		record.Status = models.WebhookDeliveryStatusBlocked
		record.Outcome = models.EventOutcomeBlocked
		record.Reason = fmt.Sprintf("unknown person %q", event.PersonExternalId)
		return nil
	}
	if person.Status == models.PersonStatusInactive {
		record.Status = models.WebhookDeliveryStatusApplied
		record.Outcome = models.EventOutcomeAllowed
		record.Reason = "person already inactive"
		return nil
	}

	slot, err := lockSlotByIds(tx, organizationId, person.PositionId, person.CargoId)
	if err != nil {
		return err
	}

	if slot != nil {
		if err = AcquireStaffingRecordLock(tx, organizationId, slot.ID); err != nil {
			return err
		}
		defer ReleaseStaffingRecordLock(tx, organizationId, slot.ID)

		before := *slot
		if err = slot.Terminate(); err != nil {
			record.Status = models.WebhookDeliveryStatusBlocked
			record.Outcome = models.EventOutcomeBlocked
			record.Reason = err.Error()
			return nil
		}
		if err = slot.SaveCounts(tx); err != nil {
			return err
		}
		if err = models.RecordAudit(tx, models.NewAuditEntry{
			EntityId:   slot.ID,
			EntityType: "StaffingRecord",
			Action:     models.AuditActionTerminate,
			Before:     &before,
			After:      slot,
			Reason:     fmt.Sprintf("termination of person %d via event %s", person.ID, event.EventId),
		}); err != nil {
			return err
		}
	}

	if err = models.TerminatePersonTx(tx, person, event.TerminationDate); err != nil {
		return err
	}

	record.Status = models.WebhookDeliveryStatusApplied
	record.Outcome = models.EventOutcomeAllowed
	record.Reason = fmt.Sprintf("person %q terminated", event.PersonExternalId)
	return nil
}

func applyTransfer(tx *gorm.DB, org *models.Organization, event *InboundEvent, record *models.WebhookEventRecord) error {

	organizationId := org.ID.String()
	person, err := models.FindPersonByExternalIdTx(tx, organizationId, event.PersonExternalId)
	if err != nil {
		record.Status = models.WebhookDeliveryStatusBlocked
		record.Outcome = models.EventOutcomeBlocked
		record.Reason = fmt.Sprintf("unknown person %q", event.PersonExternalId)
		return nil
	}

	position, cargo, target, err := resolveSlot(tx, organizationId, event.PositionExternal, event.CargoExternalId)
	if err != nil {
		decision := FailClosedDecision(err)
		record.Status = models.WebhookDeliveryStatusBlocked
		applyPolicyDecision(record, decision)
		return nil
	}

	if target == nil || position.ExpectedCargoId != cargo.ID {
		decision := EvaluateCargoDiscrepancy(org.DiscrepancyMode, event, target)
		applyPolicyDecision(record, decision)
		switch decision.Outcome {
		case models.EventOutcomeBlocked:
			record.Status = models.WebhookDeliveryStatusBlocked
			return nil
		case models.EventOutcomePendingApproval:
			propSlot, pErr := ensureSlotForProposal(tx, organizationId, position, cargo, target)
			if pErr != nil {
				decision = FailClosedDecision(pErr)
				record.Status = models.WebhookDeliveryStatusBlocked
				applyPolicyDecision(record, decision)
				return nil
			}
			proposal, pErr := createDiscrepancyProposalTx(tx, organizationId, propSlot.ID, cargo.ID, event, decision.Reason)
			if pErr != nil {
				return pErr
			}
			record.Status = models.WebhookDeliveryStatusPendingApproval
			record.ProposalId = &proposal.ID
			return nil
		}
	}

	// Admit into the destination before releasing the origin: a full target
	// must block the transfer with the origin intact.
	if err = AcquireStaffingRecordLock(tx, organizationId, target.ID); err != nil {
		return err
	}
	defer ReleaseStaffingRecordLock(tx, organizationId, target.ID)

	targetBefore := *target
	if err = target.Admit(); err != nil {
		record.Status = models.WebhookDeliveryStatusBlocked
		record.Outcome = models.EventOutcomeBlocked
		record.Reason = err.Error()
		return nil
	}
	if err = target.SaveCounts(tx); err != nil {
		return err
	}

	origin, err := lockSlotByIds(tx, organizationId, person.PositionId, person.CargoId)
	if err != nil {
		return err
	}
	if origin != nil && origin.ID != target.ID {
		originBefore := *origin
		if err = origin.Terminate(); err != nil {
			return err
		}
		if err = origin.SaveCounts(tx); err != nil {
			return err
		}
		if err = models.RecordAudit(tx, models.NewAuditEntry{
			EntityId:   origin.ID,
			EntityType: "StaffingRecord",
			Action:     models.AuditActionTransfer,
			Before:     &originBefore,
			After:      origin,
			Reason:     fmt.Sprintf("transfer of person %d out via event %s", person.ID, event.EventId),
		}); err != nil {
			return err
		}
	}

	if err = tx.Model(&models.Person{}).
		Where("id = ?", person.ID).
		Updates(map[string]interface{}{
			"position_id": position.ID,
			"cargo_id":    cargo.ID,
			"shift":       event.Shift,
		}).Error; err != nil {
		return err
	}

	if err = models.RecordAudit(tx, models.NewAuditEntry{
		EntityId:   target.ID,
		EntityType: "StaffingRecord",
		Action:     models.AuditActionTransfer,
		Before:     &targetBefore,
		After:      target,
		Reason:     fmt.Sprintf("transfer of person %d in via event %s", person.ID, event.EventId),
	}); err != nil {
		return err
	}

	record.Status = models.WebhookDeliveryStatusApplied
	if record.Outcome == "" {
		record.Outcome = models.EventOutcomeAllowed
		record.Reason = fmt.Sprintf("transferred into position %q", event.PositionExternal)
	}
	return nil
}

func applyPromotion(tx *gorm.DB, org *models.Organization, event *InboundEvent, record *models.WebhookEventRecord) error {

	organizationId := org.ID.String()
	person, err := models.FindPersonByExternalIdTx(tx, organizationId, event.PersonExternalId)
	if err != nil {
		record.Status = models.WebhookDeliveryStatusBlocked
		record.Outcome = models.EventOutcomeBlocked
		record.Reason = fmt.Sprintf("unknown person %q", event.PersonExternalId)
		return nil
	}

	position, cargo, target, err := resolveSlot(tx, organizationId, event.PositionExternal, event.CargoExternalId)
	if err != nil {
		decision := FailClosedDecision(err)
		record.Status = models.WebhookDeliveryStatusBlocked
		applyPolicyDecision(record, decision)
		return nil
	}
	if cargo.ID == person.CargoId && position.ID == person.PositionId {
		record.Status = models.WebhookDeliveryStatusApplied
		record.Outcome = models.EventOutcomeAllowed
		record.Reason = "promotion already reflected"
		return nil
	}

	if target == nil || position.ExpectedCargoId != cargo.ID {
		decision := EvaluateCargoDiscrepancy(org.DiscrepancyMode, event, target)
		applyPolicyDecision(record, decision)
		switch decision.Outcome {
		case models.EventOutcomeBlocked:
			record.Status = models.WebhookDeliveryStatusBlocked
			return nil
		case models.EventOutcomePendingApproval:
			propSlot, pErr := ensureSlotForProposal(tx, organizationId, position, cargo, target)
			if pErr != nil {
				decision = FailClosedDecision(pErr)
				record.Status = models.WebhookDeliveryStatusBlocked
				applyPolicyDecision(record, decision)
				return nil
			}
			proposal, pErr := createDiscrepancyProposalTx(tx, organizationId, propSlot.ID, cargo.ID, event, decision.Reason)
			if pErr != nil {
				return pErr
			}
			record.Status = models.WebhookDeliveryStatusPendingApproval
			record.ProposalId = &proposal.ID
			return nil
		}
	}

	if err = AcquireStaffingRecordLock(tx, organizationId, target.ID); err != nil {
		return err
	}
	defer ReleaseStaffingRecordLock(tx, organizationId, target.ID)

	targetBefore := *target
	if err = target.Admit(); err != nil {
		record.Status = models.WebhookDeliveryStatusBlocked
		record.Outcome = models.EventOutcomeBlocked
		record.Reason = err.Error()
		return nil
	}
	if err = target.SaveCounts(tx); err != nil {
		return err
	}

	origin, err := lockSlotByIds(tx, organizationId, person.PositionId, person.CargoId)
	if err != nil {
		return err
	}
	if origin != nil && origin.ID != target.ID {
		originBefore := *origin
		if err = origin.Terminate(); err != nil {
			return err
		}
		if err = origin.SaveCounts(tx); err != nil {
			return err
		}
		if err = models.RecordAudit(tx, models.NewAuditEntry{
			EntityId:   origin.ID,
			EntityType: "StaffingRecord",
			Action:     models.AuditActionPromote,
			Before:     &originBefore,
			After:      origin,
			Reason:     fmt.Sprintf("promotion of person %d out via event %s", person.ID, event.EventId),
		}); err != nil {
			return err
		}
	}

	if err = tx.Model(&models.Person{}).
		Where("id = ?", person.ID).
		Updates(map[string]interface{}{
			"position_id": position.ID,
			"cargo_id":    cargo.ID,
		}).Error; err != nil {
		return err
	}

	if err = models.RecordAudit(tx, models.NewAuditEntry{
		EntityId:   target.ID,
		EntityType: "StaffingRecord",
		Action:     models.AuditActionPromote,
		Before:     &targetBefore,
		After:      target,
		Reason:     fmt.Sprintf("promotion of person %d in via event %s", person.ID, event.EventId),
	}); err != nil {
		return err
	}

	record.Status = models.WebhookDeliveryStatusApplied
	if record.Outcome == "" {
		record.Outcome = models.EventOutcomeAllowed
		record.Reason = fmt.Sprintf("promoted into cargo %q", event.CargoExternalId)
	}
	return nil
}

// ensureSlotForProposal returns the slot a discrepancy proposal will target.
// When no staffing record exists for the pair at all, a zero-planned record is
// opened under the organization's newest plan so the proposal has something to
// raise; approving it then sets the real planned count.
func ensureSlotForProposal(tx *gorm.DB, organizationId string, position *models.Position, cargo *models.Cargo, slot *models.StaffingRecord) (*models.StaffingRecord, error) {
	if slot != nil {
		return slot, nil
	}

	var plan models.StaffingPlan
	if err := tx.Where("organization_id = ?", organizationId).
		Order("id DESC").First(&plan).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("no staffing plan to attach proposal to")
		}
		return nil, err
	}

	placeholder := models.StaffingRecord{
		OrganizationId:   organizationId,
		PlanId:           plan.ID,
		PositionId:       position.ID,
		CargoId:          cargo.ID,
		PlannedCount:     0,
		ControlStartDate: time.Now().UTC(),
		ControlMode:      models.ControlModeDaily,
	}
	if err := tx.Create(&placeholder).Error; err != nil {
		return nil, err
	}
	return &placeholder, nil
}

func lockSlotByIds(tx *gorm.DB, organizationId string, positionId, cargoId int) (*models.StaffingRecord, error) {
	var slot models.StaffingRecord
	err := tx.Clauses(forUpdate()).
		Where("organization_id = ? AND position_id = ? AND cargo_id = ? AND is_active = ?",
			organizationId, positionId, cargoId, true).
		First(&slot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &slot, nil
}
