package models

import (
	"errors"
	"testing"
	"time"
)

func submittedProposal(levelCount int, complianceReview bool) *Proposal {
	return &Proposal{
		ID:                       1,
		Kind:                     ProposalKindModify,
		RequestedDelta:           2,
		Status:                   ProposalStatusForLevel(1),
		LevelCount:               levelCount,
		RequiresComplianceReview: complianceReview,
	}
}

func decisionsFor(levels ...[]int) []ApprovalDecision {
	var decisions []ApprovalDecision
	id := 0
	for levelIdx, approvers := range levels {
		for _, approverId := range approvers {
			id++
			decisions = append(decisions, ApprovalDecision{
				ID:         id,
				ProposalId: 1,
				Level:      levelIdx + 1,
				ApproverId: approverId,
				Action:     DecisionActionPending,
			})
		}
	}
	return decisions
}

func TestApplyDecision_TwoLevelProgression(t *testing.T) {
	p := submittedProposal(2, false)
	decisions := decisionsFor([]int{10}, []int{20})
	now := time.Now()

	approved, err := p.ApplyDecision(decisions, 1, 10, DecisionActionApproved, "ok", now)
	if err != nil {
		t.Fatalf("level 1 approval: %v", err)
	}
	if approved {
		t.Fatalf("level 1 approval must not finish a two-level proposal")
	}
	if p.Status != ProposalStatusForLevel(2) {
		t.Fatalf("expected LEVEL_2, got %s", p.Status)
	}

	approved, err = p.ApplyDecision(decisions, 2, 20, DecisionActionApproved, "ok", now)
	if err != nil {
		t.Fatalf("level 2 approval: %v", err)
	}
	if !approved || p.Status != ProposalStatusApproved {
		t.Fatalf("final approval should transition to APPROVED, got approved=%v status=%s", approved, p.Status)
	}
}

func TestApplyDecision_LevelRequiresAllApprovers(t *testing.T) {
	p := submittedProposal(1, false)
	decisions := decisionsFor([]int{10, 11})
	now := time.Now()

	approved, err := p.ApplyDecision(decisions, 1, 10, DecisionActionApproved, "", now)
	if err != nil {
		t.Fatalf("first approver: %v", err)
	}
	if approved || p.Status != ProposalStatusForLevel(1) {
		t.Fatalf("one of two approvers must not complete the level, got approved=%v status=%s", approved, p.Status)
	}

	approved, err = p.ApplyDecision(decisions, 1, 11, DecisionActionApproved, "", now)
	if err != nil {
		t.Fatalf("second approver: %v", err)
	}
	if !approved {
		t.Fatalf("all approvers concurring should approve the proposal")
	}
}

func TestApplyDecision_RejectResetsEverything(t *testing.T) {
	p := submittedProposal(2, false)
	decisions := decisionsFor([]int{10}, []int{20})
	now := time.Now()

	if _, err := p.ApplyDecision(decisions, 1, 10, DecisionActionApproved, "", now); err != nil {
		t.Fatalf("level 1 approval: %v", err)
	}

	approved, err := p.ApplyDecision(decisions, 2, 20, DecisionActionRejected, "headcount not justified", now)
	if err != nil {
		t.Fatalf("rejection: %v", err)
	}
	if approved || p.Status != ProposalStatusDraft {
		t.Fatalf("rejection must return the proposal to draft, got %s", p.Status)
	}
	for _, d := range decisions {
		if d.Action != DecisionActionPending {
			t.Fatalf("rejection must reset every decision to pending, decision %d is %s", d.ID, d.Action)
		}
		if d.DecidedAt != nil {
			t.Fatalf("reset decision %d kept its timestamp", d.ID)
		}
	}
}

func TestApplyDecision_WrongLevelRejected(t *testing.T) {
	p := submittedProposal(2, false)
	decisions := decisionsFor([]int{10}, []int{20})

	_, err := p.ApplyDecision(decisions, 2, 20, DecisionActionApproved, "", time.Now())
	var mismatch *LevelMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("deciding level 2 while at level 1 expected LevelMismatchError, got %v", err)
	}
}

func TestApplyDecision_UnknownApprover(t *testing.T) {
	p := submittedProposal(1, false)
	decisions := decisionsFor([]int{10})

	_, err := p.ApplyDecision(decisions, 1, 99, DecisionActionApproved, "", time.Now())
	if !errors.Is(err, ErrDecisionNotFound) {
		t.Fatalf("unknown approver expected ErrDecisionNotFound, got %v", err)
	}
}

func TestApplyDecision_DoubleVoteRejected(t *testing.T) {
	p := submittedProposal(1, true)
	decisions := decisionsFor([]int{10, 11})
	now := time.Now()

	if _, err := p.ApplyDecision(decisions, 1, 10, DecisionActionApproved, "", now); err != nil {
		t.Fatalf("first vote: %v", err)
	}

	_, err := p.ApplyDecision(decisions, 1, 10, DecisionActionApproved, "", now)
	var notPending *NotPendingError
	if !errors.As(err, &notPending) {
		t.Fatalf("second vote by same approver expected NotPendingError, got %v", err)
	}
}

func TestApplyDecision_ComplianceReviewStage(t *testing.T) {
	p := submittedProposal(1, true)
	p.Kind = ProposalKindRemove
	p.RequestedDelta = -1
	decisions := decisionsFor([]int{10}, []int{10})
	now := time.Now()

	approved, err := p.ApplyDecision(decisions, 1, 10, DecisionActionApproved, "", now)
	if err != nil {
		t.Fatalf("level 1 approval: %v", err)
	}
	if approved || p.Status != ProposalStatusComplianceReview {
		t.Fatalf("removal must pass through compliance review, got approved=%v status=%s", approved, p.Status)
	}

	approved, err = p.ApplyDecision(decisions, 2, 10, DecisionActionApproved, "quota verified", now)
	if err != nil {
		t.Fatalf("compliance review approval: %v", err)
	}
	if !approved || p.Status != ProposalStatusApproved {
		t.Fatalf("compliance review completion should approve, got approved=%v status=%s", approved, p.Status)
	}
}

func TestCanSubmit_KindRules(t *testing.T) {
	base := Proposal{Status: ProposalStatusDraft}
	levels := [][]int{{10}}

	p := base
	p.Kind = ProposalKindModify
	if err := p.CanSubmit(levels); err == nil {
		t.Fatalf("modify with no delta and no cargo change must not submit")
	}
	p.RequestedDelta = 3
	if err := p.CanSubmit(levels); err != nil {
		t.Fatalf("modify with delta should submit: %v", err)
	}

	p = base
	p.Kind = ProposalKindRemove
	p.RequestedDelta = 1
	if err := p.CanSubmit(levels); err == nil {
		t.Fatalf("remove with positive delta must not submit")
	}
	p.RequestedDelta = -1
	if err := p.CanSubmit(levels); err != nil {
		t.Fatalf("remove with negative delta should submit: %v", err)
	}

	p = base
	p.Kind = ProposalKindTransfer
	if err := p.CanSubmit(levels); err == nil {
		t.Fatalf("transfer without destination cost center must not submit")
	}
	p.DestinationCostCenterId = 7
	if err := p.CanSubmit(levels); err != nil {
		t.Fatalf("transfer with destination should submit: %v", err)
	}

	p.Status = ProposalStatusApproved
	if err := p.CanSubmit(levels); err == nil {
		t.Fatalf("non-draft proposals must not submit")
	}

	p.Status = ProposalStatusDraft
	if err := p.CanSubmit([][]int{}); err == nil {
		t.Fatalf("zero approval levels must not submit")
	}
	if err := p.CanSubmit([][]int{{}}); err == nil {
		t.Fatalf("an empty approver level must not submit")
	}
}

func TestProposalStatus_LevelRoundTrip(t *testing.T) {
	for level := 1; level <= 3; level++ {
		status := ProposalStatusForLevel(level)
		got, pending := status.LevelOf(3)
		if !pending || got != level {
			t.Fatalf("LevelOf(%s) expected (%d,true), got (%d,%v)", status, level, got, pending)
		}
	}

	got, pending := ProposalStatusComplianceReview.LevelOf(3)
	if !pending || got != 4 {
		t.Fatalf("compliance review should read as stage 4 of a 3-level proposal, got (%d,%v)", got, pending)
	}

	if _, pending = ProposalStatusDraft.LevelOf(3); pending {
		t.Fatalf("draft is not a pending approval stage")
	}
	if _, pending = ProposalStatusApproved.LevelOf(3); pending {
		t.Fatalf("approved is not a pending approval stage")
	}
}
