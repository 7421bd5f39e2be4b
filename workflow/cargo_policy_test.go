package workflow

import (
	"errors"
	"strings"
	"testing"

	"github.com/thiagosoaresdev/hcm-position-panorama-sub002/models"
)

func discrepantEvent() *InboundEvent {
	return &InboundEvent{
		EventId:          "evt-1",
		EventType:        models.WebhookEventTypeAdmitted,
		PersonExternalId: "emp-9",
		CargoExternalId:  "enfermeiro",
		PositionExternal: "UBS-Central-03",
	}
}

func TestEvaluateCargoDiscrepancy_AllowAppliesAsIs(t *testing.T) {
	record := &models.StaffingRecord{ID: 1, PlannedCount: 5, FilledCount: 2}

	decision := EvaluateCargoDiscrepancy(models.DiscrepancyModeAllow, discrepantEvent(), record)
	if decision.Outcome != models.EventOutcomeAllowed {
		t.Fatalf("allow mode expected allowed, got %s", decision.Outcome)
	}
	if decision.CreateProposal || decision.Alert {
		t.Fatalf("allow mode must not propose or alert: %+v", decision)
	}
}

func TestEvaluateCargoDiscrepancy_AlertAppliesWithAlert(t *testing.T) {
	record := &models.StaffingRecord{ID: 1, PlannedCount: 5, FilledCount: 2}

	decision := EvaluateCargoDiscrepancy(models.DiscrepancyModeAlert, discrepantEvent(), record)
	if decision.Outcome != models.EventOutcomeAllowed {
		t.Fatalf("alert mode expected allowed, got %s", decision.Outcome)
	}
	if !decision.Alert {
		t.Fatalf("alert mode must flag an alert")
	}
}

func TestEvaluateCargoDiscrepancy_BlockRejectsEvent(t *testing.T) {
	record := &models.StaffingRecord{ID: 1, PlannedCount: 5, FilledCount: 2}

	decision := EvaluateCargoDiscrepancy(models.DiscrepancyModeBlock, discrepantEvent(), record)
	if decision.Outcome != models.EventOutcomeBlocked {
		t.Fatalf("block mode expected blocked, got %s", decision.Outcome)
	}
	if decision.Reason == "" {
		t.Fatalf("blocked decision must carry a reason")
	}
}

func TestEvaluateCargoDiscrepancy_RequireApprovalSpawnsProposal(t *testing.T) {
	record := &models.StaffingRecord{ID: 1, PlannedCount: 5, FilledCount: 2}

	decision := EvaluateCargoDiscrepancy(models.DiscrepancyModeRequireApproval, discrepantEvent(), record)
	if decision.Outcome != models.EventOutcomePendingApproval {
		t.Fatalf("require-approval mode expected pending-approval, got %s", decision.Outcome)
	}
	if !decision.CreateProposal {
		t.Fatalf("require-approval mode must request a proposal")
	}
}

func TestEvaluateCargoDiscrepancy_MissingRecordNeverAppliesSilently(t *testing.T) {
	// Allow and Alert have nothing to apply to without a record; both block.
	for _, mode := range []models.DiscrepancyMode{models.DiscrepancyModeAllow, models.DiscrepancyModeAlert} {
		decision := EvaluateCargoDiscrepancy(mode, discrepantEvent(), nil)
		if decision.Outcome != models.EventOutcomeBlocked {
			t.Fatalf("%s with missing record expected blocked, got %s", mode, decision.Outcome)
		}
	}

	decision := EvaluateCargoDiscrepancy(models.DiscrepancyModeRequireApproval, discrepantEvent(), nil)
	if decision.Outcome != models.EventOutcomePendingApproval || !decision.CreateProposal {
		t.Fatalf("require-approval with missing record should still route to a proposal, got %+v", decision)
	}
}

func TestEvaluateCargoDiscrepancy_UnknownModeFailsClosed(t *testing.T) {
	decision := EvaluateCargoDiscrepancy(models.DiscrepancyMode("Shrug"), discrepantEvent(), nil)
	if decision.Outcome != models.EventOutcomeBlocked {
		t.Fatalf("unknown mode must fail closed, got %s", decision.Outcome)
	}
}

func TestDiscrepancyProposal_IsSubmittable(t *testing.T) {
	proposal := newDiscrepancyProposal("org-1", 7, 42, discrepantEvent(), "cargo mismatch on admission")

	if err := proposal.CanSubmit([][]int{{10}, {11}}); err != nil {
		t.Fatalf("discrepancy proposal must be submittable: %v", err)
	}
	if proposal.RequestedDelta != 1 {
		t.Fatalf("expected one extra planned seat, got delta %d", proposal.RequestedDelta)
	}
	if proposal.RequestedCargoId != 42 {
		t.Fatalf("proposal must request the event's cargo, got %d", proposal.RequestedCargoId)
	}
	if proposal.SourceEventId != "evt-1" {
		t.Fatalf("proposal lost its triggering event id: %q", proposal.SourceEventId)
	}
	if proposal.Status != models.ProposalStatusDraft {
		t.Fatalf("discrepancy proposal starts as a draft, got %s", proposal.Status)
	}
}

func TestApplyPolicyDecision_CarriesAlertFlag(t *testing.T) {
	record := &models.StaffingRecord{ID: 1, PlannedCount: 5, FilledCount: 2}

	applied := &models.WebhookEventRecord{}
	applyPolicyDecision(applied, EvaluateCargoDiscrepancy(models.DiscrepancyModeAlert, discrepantEvent(), record))
	if applied.Outcome != models.EventOutcomeAllowed {
		t.Fatalf("alert mode with a matching slot applies, got %s", applied.Outcome)
	}
	if !applied.Alert {
		t.Fatalf("alert flag dropped between the policy decision and the record")
	}

	// Without a slot the event blocks, but the operator still hears about it.
	blocked := &models.WebhookEventRecord{}
	applyPolicyDecision(blocked, EvaluateCargoDiscrepancy(models.DiscrepancyModeAlert, discrepantEvent(), nil))
	if blocked.Outcome != models.EventOutcomeBlocked || !blocked.Alert {
		t.Fatalf("blocked alert-mode event must still alert: outcome=%s alert=%v", blocked.Outcome, blocked.Alert)
	}

	quiet := &models.WebhookEventRecord{}
	applyPolicyDecision(quiet, EvaluateCargoDiscrepancy(models.DiscrepancyModeAllow, discrepantEvent(), record))
	if quiet.Alert {
		t.Fatalf("allow mode must not alert")
	}
}

func TestFailClosedDecision_CarriesDiagnostic(t *testing.T) {
	decision := FailClosedDecision(errors.New("db connection lost"))
	if decision.Outcome != models.EventOutcomeBlocked {
		t.Fatalf("internal failure must block, got %s", decision.Outcome)
	}
	if !strings.Contains(decision.Reason, "db connection lost") {
		t.Fatalf("diagnostic lost: %s", decision.Reason)
	}
}
