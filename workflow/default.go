package workflow

import (
	"errors"
	"fmt"

	"github.com/thiagosoaresdev/hcm-position-panorama-sub002/models"
	"github.com/thiagosoaresdev/hcm-position-panorama-sub002/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func forUpdate() clause.Locking {
	return clause.Locking{Strength: "UPDATE"}
}

// notFoundOr maps gorm's not-found onto the API's record-not-found error and
// passes every other failure through untouched, so transient DB errors keep
// their retryable identity.
func notFoundOr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return utils.ErrorRecordNotFound
	}
	return err
}

// newDiscrepancyProposal builds the draft proposal a require-approval
// discrepancy raises: one extra planned seat under the event's actual cargo,
// so approving it authorizes the held admission. RequestedDelta and
// RequestedCargoId must both be set or the draft can never pass CanSubmit.
func newDiscrepancyProposal(organizationId string, staffingRecordId int, cargoId int, event *InboundEvent, reason string) models.Proposal {
	return models.Proposal{
		OrganizationId:   organizationId,
		Kind:             models.ProposalKindModify,
		StaffingRecordId: staffingRecordId,
		RequestedDelta:   1,
		RequestedCargoId: cargoId,
		Status:           models.ProposalStatusDraft,
		Reason:           reason,
		SourceEventId:    event.EventId,
	}
}

// createDiscrepancyProposalTx opens a draft modify proposal for a webhook
// event routed through the require-approval discrepancy mode. The event id is
// kept on the proposal so a later decision can be traced back to its trigger.
func createDiscrepancyProposalTx(tx *gorm.DB, organizationId string, staffingRecordId int, cargoId int, event *InboundEvent, reason string) (*models.Proposal, error) {

	proposal := newDiscrepancyProposal(organizationId, staffingRecordId, cargoId, event, reason)
	if err := tx.Create(&proposal).Error; err != nil {
		return nil, err
	}

	if err := models.RecordAudit(tx, models.NewAuditEntry{
		EntityId:   proposal.ID,
		EntityType: "Proposal",
		Action:     models.AuditActionCreate,
		After:      &proposal,
		Reason:     fmt.Sprintf("cargo discrepancy on event %s", event.EventId),
	}); err != nil {
		return nil, err
	}
	return &proposal, nil
}
