package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/thiagosoaresdev/hcm-position-panorama-sub002/config"
	"github.com/thiagosoaresdev/hcm-position-panorama-sub002/models"
	"github.com/thiagosoaresdev/hcm-position-panorama-sub002/utils"
	"gorm.io/gorm"
)

// CreateProposal stores a draft proposal. Nothing moves until submission.
func CreateProposal(ctx context.Context, input *models.NewProposal) (*models.Proposal, error) {

	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}
	if err := utils.ValidateResourceId[models.StaffingRecord](ctx, organizationId, input.StaffingRecordId); err != nil {
		return nil, errors.New("staffing record not found")
	}
	if input.RequestedCargoId != 0 {
		if _, err := models.GetCargo(ctx, organizationId, input.RequestedCargoId); err != nil {
			return nil, errors.New("requested cargo not found")
		}
	}

	userId, _ := utils.GetUserIdFromContext(ctx)
	proposal := models.Proposal{
		OrganizationId:          organizationId,
		Kind:                    input.Kind,
		StaffingRecordId:        input.StaffingRecordId,
		RequestedDelta:          input.RequestedDelta,
		RequestedCargoId:        input.RequestedCargoId,
		DestinationCostCenterId: input.DestinationCostCenterId,
		Status:                  models.ProposalStatusDraft,
		Reason:                  input.Reason,
		CreatedBy:               userId,
	}

	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if txErr := tx.Create(&proposal).Error; txErr != nil {
			return txErr
		}
		return models.RecordAudit(tx, models.NewAuditEntry{
			EntityId:   proposal.ID,
			EntityType: "Proposal",
			Action:     models.AuditActionCreate,
			After:      &proposal,
			Reason:     input.Reason,
		})
	})
	if err != nil {
		return nil, err
	}
	return &proposal, nil
}

// SubmitProposal validates the draft, creates one pending decision per
// configured approver per level, and advances the proposal to LEVEL_1. The
// proposal and its decisions mutate as one unit.
func SubmitProposal(ctx context.Context, proposalId int, approversByLevel [][]int) (*models.Proposal, error) {

	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	db := config.GetDB()
	var proposal *models.Proposal
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txErr error
		proposal, txErr = utils.FetchModel[models.Proposal](ctx, organizationId, proposalId)
		if txErr != nil {
			return txErr
		}

		if txErr = proposal.CanSubmit(approversByLevel); txErr != nil {
			return txErr
		}

		before := *proposal
		proposal.LevelCount = len(approversByLevel)
		// Headcount reductions get an extra compliance review stage: shrinking
		// the table can push the accessibility quota into deficit.
		proposal.RequiresComplianceReview = proposal.Kind == models.ProposalKindRemove || proposal.RequestedDelta < 0
		proposal.Status = models.ProposalStatusForLevel(1)

		stages := approversByLevel
		if proposal.RequiresComplianceReview {
			// The final level's approvers also sign the compliance review.
			stages = append(append([][]int{}, approversByLevel...), approversByLevel[len(approversByLevel)-1])
		}
		for level, approvers := range stages {
			for _, approverId := range utils.UniqueSlice(approvers) {
				decision := models.ApprovalDecision{
					ProposalId: proposal.ID,
					Level:      level + 1,
					ApproverId: approverId,
					Action:     models.DecisionActionPending,
				}
				if txErr = tx.Create(&decision).Error; txErr != nil {
					return txErr
				}
			}
		}

		if txErr = tx.Model(&models.Proposal{}).
			Where("id = ?", proposal.ID).
			Updates(map[string]interface{}{
				"level_count":                proposal.LevelCount,
				"requires_compliance_review": proposal.RequiresComplianceReview,
				"status":                     proposal.Status,
			}).Error; txErr != nil {
			return txErr
		}

		return models.RecordAudit(tx, models.NewAuditEntry{
			EntityId:   proposal.ID,
			EntityType: "Proposal",
			Action:     models.AuditActionUpdate,
			Before:     &before,
			After:      proposal,
			Reason:     "submitted for approval",
		})
	})
	if err != nil {
		return nil, err
	}

	notifyLevelApprovers(ctx, proposal, 1)
	return proposal, nil
}

// DecideProposal records one approver's decision and advances or resets the
// proposal. Decisions within one proposal level serialize through a redis
// lock so two simultaneous final approvals cannot both complete the level.
func DecideProposal(ctx context.Context, proposalId int, level int, approverId int, action models.DecisionAction, comment string) (*models.Proposal, error) {

	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	if locker := config.GetRedisLock(); locker != nil {
		lockKey := fmt.Sprintf("proposal:%d:level:%d", proposalId, level)
		lock, lockErr := locker.Obtain(ctx, lockKey, 10*time.Second, &redislock.Options{
			RetryStrategy: redislock.LinearBackoff(100 * time.Millisecond),
		})
		if lockErr != nil {
			return nil, fmt.Errorf("could not serialize decision for proposal %d level %d: %w", proposalId, level, lockErr)
		}
		defer lock.Release(context.Background())
	}

	db := config.GetDB()
	var proposal *models.Proposal
	var approved bool
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p models.Proposal
		if txErr := tx.Clauses(forUpdate()).
			Where("organization_id = ?", organizationId).
			First(&p, proposalId).Error; txErr != nil {
			// A lock wait or dropped connection is not a missing proposal.
			return notFoundOr(txErr)
		}

		var decisions []models.ApprovalDecision
		if txErr := tx.Where("proposal_id = ?", p.ID).
			Order("level ASC, approver_id ASC").
			Find(&decisions).Error; txErr != nil {
			return txErr
		}

		before := p
		var txErr error
		approved, txErr = p.ApplyDecision(decisions, level, approverId, action, comment, time.Now().UTC())
		if txErr != nil {
			return txErr
		}

		for i := range decisions {
			if txErr = tx.Model(&models.ApprovalDecision{}).
				Where("id = ?", decisions[i].ID).
				Updates(map[string]interface{}{
					"action":     decisions[i].Action,
					"decided_at": decisions[i].DecidedAt,
					"comment":    decisions[i].Comment,
				}).Error; txErr != nil {
				return txErr
			}
		}
		if txErr = tx.Model(&models.Proposal{}).
			Where("id = ?", p.ID).
			Update("status", p.Status).Error; txErr != nil {
			return txErr
		}

		if txErr = models.RecordAudit(tx, models.NewAuditEntry{
			EntityId:   p.ID,
			EntityType: "Proposal",
			Action:     models.AuditActionUpdate,
			Before:     &before,
			After:      &p,
			Reason:     fmt.Sprintf("decision %s at level %d by approver %d", action, level, approverId),
		}); txErr != nil {
			return txErr
		}

		// The workflow decides; the effect on the ledger happens here, at the
		// transition into APPROVED, inside the same transaction.
		if approved {
			if txErr = applyApprovedProposal(tx, &p); txErr != nil {
				return txErr
			}
		}

		proposal = &p
		return nil
	})
	if err != nil {
		return nil, err
	}

	if approved {
		notifyProposalOutcome(ctx, proposal, "proposal-approved")
	} else if proposal.Status == models.ProposalStatusDraft {
		notifyProposalOutcome(ctx, proposal, "proposal-rejected")
	}
	return proposal, nil
}

// applyApprovedProposal applies the proposal's delta to the staffing ledger
// with its audit entry, inside the caller's transaction.
func applyApprovedProposal(tx *gorm.DB, proposal *models.Proposal) error {

	record, err := models.FetchStaffingRecordForUpdate(tx, proposal.OrganizationId, proposal.StaffingRecordId)
	if err != nil {
		return err
	}
	before := *record

	switch proposal.Kind {
	case models.ProposalKindAdd, models.ProposalKindModify, models.ProposalKindRemove:
		if proposal.RequestedDelta != 0 {
			if err = record.SetPlanned(record.PlannedCount + proposal.RequestedDelta); err != nil {
				return err
			}
		}
		if proposal.RequestedCargoId != 0 {
			record.CargoId = proposal.RequestedCargoId
			if err = tx.Model(&models.StaffingRecord{}).
				Where("id = ?", record.ID).
				Update("cargo_id", proposal.RequestedCargoId).Error; err != nil {
				return err
			}
		}
		if err = record.SaveCounts(tx); err != nil {
			return err
		}

	case models.ProposalKindTransfer:
		if err = tx.Model(&models.Position{}).
			Where("id = ? AND organization_id = ?", record.PositionId, proposal.OrganizationId).
			Update("cost_center_id", proposal.DestinationCostCenterId).Error; err != nil {
			return err
		}

	default:
		return fmt.Errorf("cannot apply proposal kind %q", proposal.Kind)
	}

	return models.RecordAudit(tx, models.NewAuditEntry{
		EntityId:   record.ID,
		EntityType: "StaffingRecord",
		Action:     models.AuditActionUpdate,
		Before:     &before,
		After:      record,
		Reason:     fmt.Sprintf("approved proposal %d (%s)", proposal.ID, proposal.Kind),
	})
}

// AnnotateDecision appends a comment to an already-decided decision. Pending
// decisions take their comment through the verdict itself, and the verdict is
// immutable either way.
func AnnotateDecision(ctx context.Context, decisionId int, comment string) error {

	decision, err := utils.FetchSingleModel[models.ApprovalDecision](ctx, decisionId)
	if err != nil {
		return err
	}
	if decision.Action == models.DecisionActionPending {
		return errors.New("decision is still pending; comment with the verdict instead")
	}

	db := config.GetDB()
	return db.WithContext(ctx).Model(&models.ApprovalDecision{}).
		Where("id = ?", decisionId).
		Update("comment", comment).Error
}

// OverdueDecision pairs a pending decision with its proposal for escalation.
type OverdueDecision struct {
	Decision models.ApprovalDecision `json:"decision"`
	Proposal models.Proposal         `json:"proposal"`
}

// ListOverdueDecisions flags pending decisions older than the configured max
// age. Read-only; nothing auto-transitions.
func ListOverdueDecisions(ctx context.Context) ([]OverdueDecision, error) {

	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	maxAge := config.ApprovalMaxPendingAge()
	cutoff := time.Now().UTC().Add(-maxAge)

	db := config.GetDB()
	var decisions []models.ApprovalDecision
	err := db.WithContext(ctx).
		Joins("JOIN proposals ON proposals.id = approval_decisions.proposal_id").
		Where("proposals.organization_id = ?", organizationId).
		Where("approval_decisions.action = ?", models.DecisionActionPending).
		Where("approval_decisions.created_at < ?", cutoff).
		Find(&decisions).Error
	if err != nil {
		return nil, err
	}

	var result []OverdueDecision
	for _, d := range decisions {
		proposal, perr := utils.FetchModel[models.Proposal](ctx, organizationId, d.ProposalId)
		if perr != nil {
			continue
		}
		// Only decisions at the proposal's current level are actionable.
		if !proposal.Status.IsPendingApproval(proposal.LevelCount) {
			continue
		}
		if current, _ := proposal.Status.LevelOf(proposal.LevelCount); current != d.Level {
			continue
		}
		result = append(result, OverdueDecision{Decision: d, Proposal: *proposal})
	}
	return result, nil
}

func notifyLevelApprovers(ctx context.Context, proposal *models.Proposal, level int) {
	db := config.GetDB()
	var decisions []models.ApprovalDecision
	if err := db.WithContext(ctx).
		Where("proposal_id = ? AND level = ?", proposal.ID, level).
		Find(&decisions).Error; err != nil {
		config.LogError(config.GetLogger(), "workflow", "notifyLevelApprovers", "load decisions", proposal.ID, err)
		return
	}
	for _, d := range decisions {
		DispatchNotification(ctx, proposal.OrganizationId, d.ApproverId, "proposal-pending-decision", proposal.ID, "Proposal")
	}
}

func notifyProposalOutcome(ctx context.Context, proposal *models.Proposal, eventKind string) {
	DispatchNotification(ctx, proposal.OrganizationId, proposal.CreatedBy, eventKind, proposal.ID, "Proposal")
}
