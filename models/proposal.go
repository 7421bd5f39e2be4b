package models

import (
	"time"
)

// Proposal is a staffing change awaiting multi-level human sign-off. The
// proposal and its decisions are always created and mutated as one unit.
type Proposal struct {
	ID                       int            `gorm:"primary_key" json:"id"`
	OrganizationId           string         `gorm:"index;not null" json:"organization_id"`
	Kind                     ProposalKind   `gorm:"size:20;not null" json:"kind"`
	StaffingRecordId         int            `gorm:"index;not null" json:"staffing_record_id"`
	RequestedDelta           int            `json:"requested_delta"`
	RequestedCargoId         int            `json:"requested_cargo_id"`
	DestinationCostCenterId  int            `json:"destination_cost_center_id"`
	Status                   ProposalStatus `gorm:"size:30;not null;default:'DRAFT'" json:"status"`
	LevelCount               int            `gorm:"not null;default:0" json:"level_count"`
	RequiresComplianceReview bool           `gorm:"not null;default:false" json:"requires_compliance_review"`
	Reason                   string         `gorm:"type:text" json:"reason"`
	SourceEventId            string         `gorm:"size:64;index" json:"source_event_id"`
	CreatedBy                int            `gorm:"index" json:"created_by"`
	CreatedAt                time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt                time.Time      `gorm:"autoUpdateTime" json:"updated_at"`

	Decisions []ApprovalDecision `gorm:"foreignKey:ProposalId" json:"decisions"`
}

// ApprovalDecision is one approver's verdict at one level. Immutable once
// decided, except for comment annotation.
type ApprovalDecision struct {
	ID         int            `gorm:"primary_key" json:"id"`
	ProposalId int            `gorm:"index;not null;index:uniq_decision,unique" json:"proposal_id"`
	Level      int            `gorm:"not null;index:uniq_decision,unique" json:"level"`
	ApproverId int            `gorm:"not null;index:uniq_decision,unique" json:"approver_id"`
	Action     DecisionAction `gorm:"size:20;not null;default:'PENDING'" json:"action"`
	DecidedAt  *time.Time     `json:"decided_at"`
	Comment    string         `gorm:"type:text" json:"comment"`
	CreatedAt  time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsOverdue flags a pending decision older than maxAge for escalation.
// Read-only; overdue decisions never auto-transition.
func (d *ApprovalDecision) IsOverdue(maxAge time.Duration, now time.Time) bool {
	return d.Action == DecisionActionPending && now.Sub(d.CreatedAt) > maxAge
}

type NewProposal struct {
	Kind                    ProposalKind `json:"kind" binding:"required"`
	StaffingRecordId        int          `json:"staffing_record_id" binding:"required"`
	RequestedDelta          int          `json:"requested_delta"`
	RequestedCargoId        int          `json:"requested_cargo_id"`
	DestinationCostCenterId int          `json:"destination_cost_center_id"`
	Reason                  string       `json:"reason"`
}

/* Pure state machine. Persistence lives in the workflow package so these
   transitions stay independently testable. */

// CanSubmit checks the structural requirements for the proposal's kind and
// that the proposal is still a draft.
func (p *Proposal) CanSubmit(approversByLevel [][]int) error {
	if p.Status != ProposalStatusDraft {
		return &NotSubmittableError{Status: p.Status, Reason: "only drafts can be submitted"}
	}
	if len(approversByLevel) == 0 {
		return &NotSubmittableError{Status: p.Status, Reason: "at least one approval level is required"}
	}
	for i, approvers := range approversByLevel {
		if len(approvers) == 0 {
			return &NotSubmittableError{Status: p.Status, Reason: "level " + ProposalStatusForLevel(i+1).String() + " has no approvers"}
		}
	}
	switch p.Kind {
	case ProposalKindAdd, ProposalKindModify:
		if p.RequestedDelta == 0 && p.RequestedCargoId == 0 {
			return &NotSubmittableError{Status: p.Status, Reason: "add/modify proposals require a requested delta or cargo change"}
		}
	case ProposalKindRemove:
		if p.RequestedDelta >= 0 {
			return &NotSubmittableError{Status: p.Status, Reason: "remove proposals require a negative requested delta"}
		}
	case ProposalKindTransfer:
		if p.DestinationCostCenterId == 0 {
			return &NotSubmittableError{Status: p.Status, Reason: "transfer proposals require a destination cost center"}
		}
	default:
		return &NotSubmittableError{Status: p.Status, Reason: "unknown proposal kind"}
	}
	return nil
}

func (s ProposalStatus) String() string { return string(s) }

// totalStages counts approval levels plus the optional compliance review.
func (p *Proposal) totalStages() int {
	if p.RequiresComplianceReview {
		return p.LevelCount + 1
	}
	return p.LevelCount
}

// statusAfterLevel returns the status reached once the given stage completes.
func (p *Proposal) statusAfterLevel(level int) ProposalStatus {
	if level >= p.totalStages() {
		return ProposalStatusApproved
	}
	if p.RequiresComplianceReview && level == p.LevelCount {
		return ProposalStatusComplianceReview
	}
	return ProposalStatusForLevel(level + 1)
}

// ApplyDecision records one approver's verdict and advances the proposal.
//
// Approve: the level completes only when every assigned approver at that level
// has approved; the last level (or the compliance review) moves the proposal
// to APPROVED. Reject: every decision resets to pending and the proposal
// returns to draft — a full restart, not a partial rollback.
//
// Returns approved=true when this decision transitioned the proposal into
// APPROVED. Mutates p and decisions in place; the caller persists them.
func (p *Proposal) ApplyDecision(decisions []ApprovalDecision, level int, approverId int, action DecisionAction, comment string, now time.Time) (approved bool, err error) {

	currentLevel, pending := p.Status.LevelOf(p.LevelCount)
	if !pending || currentLevel != level {
		return false, &LevelMismatchError{CurrentStatus: p.Status, RequestedLevel: level}
	}

	var target *ApprovalDecision
	for i := range decisions {
		if decisions[i].Level == level && decisions[i].ApproverId == approverId {
			target = &decisions[i]
			break
		}
	}
	if target == nil {
		return false, ErrDecisionNotFound
	}
	if target.Action != DecisionActionPending {
		return false, &NotPendingError{Level: level, ApproverId: approverId, Action: target.Action}
	}

	switch action {
	case DecisionActionRejected:
		target.Action = DecisionActionRejected
		target.DecidedAt = &now
		target.Comment = comment
		// Full restart: wipe every decision back to pending and re-enter draft.
		for i := range decisions {
			decisions[i].Action = DecisionActionPending
			decisions[i].DecidedAt = nil
		}
		p.Status = ProposalStatusDraft
		return false, nil

	case DecisionActionApproved:
		target.Action = DecisionActionApproved
		target.DecidedAt = &now
		target.Comment = comment

		for i := range decisions {
			if decisions[i].Level == level && decisions[i].Action != DecisionActionApproved {
				// Partial approval: status unchanged until all concur.
				return false, nil
			}
		}
		p.Status = p.statusAfterLevel(level)
		return p.Status == ProposalStatusApproved, nil

	default:
		return false, ErrInvalidDecisionAction
	}
}
