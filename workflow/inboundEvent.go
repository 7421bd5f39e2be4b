package workflow

import (
	"fmt"
	"strings"
	"time"

	"github.com/thiagosoaresdev/hcm-position-panorama-sub002/models"
)

// InboundEvent is the strongly typed form of one HR-of-record webhook event.
// The boundary (hrsync) parses the dynamic payload into this exactly once;
// no business logic ever sees raw JSON.
type InboundEvent struct {
	EventId   string
	EventType models.WebhookEventType
	Timestamp time.Time

	PersonExternalId string
	Name             string
	GovernmentId     string
	CargoExternalId  string
	PositionExternal string
	Shift            string
	AdmissionDate    time.Time
	Accessibility    *bool
	Status           string

	// transfer only
	PreviousPositionExternal string
	PreviousCargoExternal    string

	// termination only
	TerminationDate time.Time
}

// FieldViolation names one violated payload field. Validation collects every
// violation instead of failing on the first.
type FieldViolation struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

type ValidationError struct {
	Violations []FieldViolation `json:"violations"`
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		fields = append(fields, v.Field+" ("+v.Rule+")")
	}
	return "invalid payload fields: " + strings.Join(fields, ", ")
}

func (e *ValidationError) add(field, rule string) {
	e.Violations = append(e.Violations, FieldViolation{Field: field, Rule: rule})
}

// Validate checks the per-kind required fields and returns every violation
// together.
func (ev *InboundEvent) Validate() error {
	verr := &ValidationError{}

	requireString := func(field, value string) {
		if strings.TrimSpace(value) == "" {
			verr.add(field, "required")
		}
	}

	switch ev.EventType {
	case models.WebhookEventTypeAdmitted, models.WebhookEventTypeTransferred:
		requireString("person_id", ev.PersonExternalId)
		requireString("name", ev.Name)
		requireString("government_id", ev.GovernmentId)
		requireString("role_id", ev.CargoExternalId)
		requireString("position_id", ev.PositionExternal)
		requireString("shift", ev.Shift)
		requireString("status", ev.Status)
		if ev.AdmissionDate.IsZero() {
			verr.add("admission_date", "required")
		}
		if ev.Accessibility == nil {
			verr.add("accessibility", "required")
		}
		if ev.EventType == models.WebhookEventTypeTransferred {
			requireString("previous_position_id", ev.PreviousPositionExternal)
		}

	case models.WebhookEventTypeTerminated:
		requireString("person_id", ev.PersonExternalId)
		if ev.TerminationDate.IsZero() {
			verr.add("termination_date", "required")
		}

	case models.WebhookEventTypePromoted:
		requireString("person_id", ev.PersonExternalId)
		requireString("role_id", ev.CargoExternalId)
		requireString("position_id", ev.PositionExternal)

	default:
		verr.add("event_type", fmt.Sprintf("unknown event type %q", ev.EventType))
	}

	if len(verr.Violations) > 0 {
		return verr
	}
	return nil
}
