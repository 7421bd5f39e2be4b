package workflow

import (
	"fmt"

	"github.com/thiagosoaresdev/hcm-position-panorama-sub002/models"
)

// PolicyDecision is the outcome of evaluating a cargo discrepancy.
type PolicyDecision struct {
	Outcome models.EventOutcome
	Mode    models.DiscrepancyMode
	// CreateProposal asks the reconciler to spawn a modify proposal inside the
	// same unit of work.
	CreateProposal bool
	// Alert asks the reconciler to emit a monitoring alert after commit.
	Alert  bool
	Reason string
}

// EvaluateCargoDiscrepancy decides what to do when the HR event's cargo does
// not match the staffing record's expected cargo. A nil record means no
// staffing record exists at all for the (position, cargo) pair, which is
// treated as a maximal discrepancy and routed through the same modes.
func EvaluateCargoDiscrepancy(mode models.DiscrepancyMode, event *InboundEvent, record *models.StaffingRecord) PolicyDecision {

	subject := fmt.Sprintf("cargo %q at position %q", event.CargoExternalId, event.PositionExternal)
	if record == nil {
		subject = fmt.Sprintf("no staffing record for cargo %q at position %q", event.CargoExternalId, event.PositionExternal)
	}

	switch mode {
	case models.DiscrepancyModeAllow:
		if record == nil {
			// Nothing to apply against; even allow cannot conjure a slot.
			return PolicyDecision{
				Outcome: models.EventOutcomeBlocked,
				Mode:    mode,
				Reason:  subject + ": admission has no slot to apply to",
			}
		}
		return PolicyDecision{
			Outcome: models.EventOutcomeAllowed,
			Mode:    mode,
			Reason:  subject + ": applied as-is under the event's cargo",
		}

	case models.DiscrepancyModeAlert:
		if record == nil {
			return PolicyDecision{
				Outcome: models.EventOutcomeBlocked,
				Mode:    mode,
				Alert:   true,
				Reason:  subject + ": admission has no slot to apply to",
			}
		}
		return PolicyDecision{
			Outcome: models.EventOutcomeAllowed,
			Mode:    mode,
			Alert:   true,
			Reason:  subject + ": applied with monitoring alert",
		}

	case models.DiscrepancyModeBlock:
		return PolicyDecision{
			Outcome: models.EventOutcomeBlocked,
			Mode:    mode,
			Reason:  subject + ": blocked by organization policy",
		}

	case models.DiscrepancyModeRequireApproval:
		return PolicyDecision{
			Outcome:        models.EventOutcomePendingApproval,
			Mode:           mode,
			CreateProposal: true,
			Reason:         subject + ": staffing change requires approval",
		}

	default:
		// Unknown mode behaves like an internal failure: fail closed.
		return FailClosedDecision(fmt.Errorf("unknown discrepancy mode %q", mode))
	}
}

// FailClosedDecision is the mandatory default on any internal failure during
// discrepancy evaluation: block the event and surface the diagnostic. Never
// fails open.
func FailClosedDecision(cause error) PolicyDecision {
	return PolicyDecision{
		Outcome: models.EventOutcomeBlocked,
		Mode:    models.DiscrepancyModeBlock,
		Reason:  "discrepancy evaluation failed, blocking event: " + cause.Error(),
	}
}
