package workflow

import (
	"errors"
	"testing"
	"time"

	"github.com/thiagosoaresdev/hcm-position-panorama-sub002/models"
	"github.com/thiagosoaresdev/hcm-position-panorama-sub002/utils"
)

func validAdmission() *InboundEvent {
	return &InboundEvent{
		EventId:          "evt-100",
		EventType:        models.WebhookEventTypeAdmitted,
		PersonExternalId: "emp-1",
		Name:             "Ana Lima",
		GovernmentId:     "987.654.321-00",
		CargoExternalId:  "medico",
		PositionExternal: "UBS-Norte-01",
		Shift:            "manha",
		Status:           "active",
		AdmissionDate:    time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Accessibility:    utils.NewFalse(),
	}
}

func TestValidate_AdmissionOk(t *testing.T) {
	if err := validAdmission().Validate(); err != nil {
		t.Fatalf("valid admission rejected: %v", err)
	}
}

func TestValidate_CollectsEveryViolation(t *testing.T) {
	ev := validAdmission()
	ev.PersonExternalId = ""
	ev.Name = ""
	ev.AdmissionDate = time.Time{}
	ev.Accessibility = nil

	err := ev.Validate()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(verr.Violations) != 4 {
		t.Fatalf("expected all 4 violations reported at once, got %d: %+v", len(verr.Violations), verr.Violations)
	}

	fields := map[string]bool{}
	for _, v := range verr.Violations {
		fields[v.Field] = true
	}
	for _, want := range []string{"person_id", "name", "admission_date", "accessibility"} {
		if !fields[want] {
			t.Fatalf("missing violation for %s in %+v", want, verr.Violations)
		}
	}
}

func TestValidate_TransferRequiresPreviousPosition(t *testing.T) {
	ev := validAdmission()
	ev.EventType = models.WebhookEventTypeTransferred

	err := ev.Validate()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("transfer without previous position expected ValidationError, got %v", err)
	}
	if len(verr.Violations) != 1 || verr.Violations[0].Field != "previous_position_id" {
		t.Fatalf("expected only previous_position_id, got %+v", verr.Violations)
	}

	ev.PreviousPositionExternal = "UBS-Sul-02"
	if err = ev.Validate(); err != nil {
		t.Fatalf("complete transfer rejected: %v", err)
	}
}

func TestValidate_TerminationNeedsDateOnly(t *testing.T) {
	ev := &InboundEvent{
		EventId:          "evt-101",
		EventType:        models.WebhookEventTypeTerminated,
		PersonExternalId: "emp-1",
		TerminationDate:  time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC),
	}
	if err := ev.Validate(); err != nil {
		t.Fatalf("termination with person and date rejected: %v", err)
	}

	ev.TerminationDate = time.Time{}
	err := ev.Validate()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("termination without date expected ValidationError, got %v", err)
	}
}

func TestValidate_PromotionFieldSet(t *testing.T) {
	ev := &InboundEvent{
		EventId:          "evt-102",
		EventType:        models.WebhookEventTypePromoted,
		PersonExternalId: "emp-1",
		CargoExternalId:  "enfermeiro-chefe",
		PositionExternal: "UBS-Norte-01",
	}
	if err := ev.Validate(); err != nil {
		t.Fatalf("valid promotion rejected: %v", err)
	}

	ev.CargoExternalId = ""
	if err := ev.Validate(); err == nil {
		t.Fatalf("promotion without role must not validate")
	}
}
