package hrsync

import (
	"testing"
	"time"

	"github.com/thiagosoaresdev/hcm-position-panorama-sub002/models"
)

func TestParseEvent_Admission(t *testing.T) {
	raw := []byte(`{
		"event_type": "admitted",
		"event_id": "evt-555",
		"timestamp": "2026-03-01T08:30:00Z",
		"data": {
			"person_id": "emp-1",
			"name": "Ana Lima",
			"government_id": "987.654.321-00",
			"role_id": "medico",
			"position_id": "UBS-Norte-01",
			"shift": "manha",
			"admission_date": "2026-03-01",
			"accessibility": true,
			"status": "active"
		}
	}`)

	event, err := ParseEvent(raw)
	if err != nil {
		t.Fatalf("ParseEvent: %v", err)
	}
	if event.EventId != "evt-555" || event.EventType != models.WebhookEventTypeAdmitted {
		t.Fatalf("envelope fields wrong: %+v", event)
	}
	if event.PersonExternalId != "emp-1" || event.CargoExternalId != "medico" {
		t.Fatalf("data fields wrong: %+v", event)
	}
	if event.Accessibility == nil || !*event.Accessibility {
		t.Fatalf("accessibility flag lost")
	}
	want := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	if !event.AdmissionDate.Equal(want) {
		t.Fatalf("admission date expected %s, got %s", want, event.AdmissionDate)
	}
	if err = event.Validate(); err != nil {
		t.Fatalf("parsed admission should validate: %v", err)
	}
}

func TestParseEvent_DerivesStableEventId(t *testing.T) {
	raw := []byte(`{"event_type":"terminated","data":{"person_id":"emp-2","termination_date":"2026-06-30"}}`)

	first, err := ParseEvent(raw)
	if err != nil {
		t.Fatalf("ParseEvent: %v", err)
	}
	if first.EventId == "" {
		t.Fatalf("missing event id must be derived, not empty")
	}

	second, err := ParseEvent(raw)
	if err != nil {
		t.Fatalf("ParseEvent: %v", err)
	}
	if first.EventId != second.EventId {
		t.Fatalf("derived event id must be deterministic: %s vs %s", first.EventId, second.EventId)
	}

	other, err := ParseEvent([]byte(`{"event_type":"terminated","data":{"person_id":"emp-3","termination_date":"2026-06-30"}}`))
	if err != nil {
		t.Fatalf("ParseEvent: %v", err)
	}
	if other.EventId == first.EventId {
		t.Fatalf("different payloads must not share a derived id")
	}
}

func TestParseEvent_RejectsGarbage(t *testing.T) {
	if _, err := ParseEvent([]byte(`{not json`)); err == nil {
		t.Fatalf("malformed json must fail")
	}
	if _, err := ParseEvent([]byte(`{"event_type":"resigned","event_id":"x"}`)); err == nil {
		t.Fatalf("unknown event type must fail")
	}
	if _, err := ParseEvent([]byte(`{"event_type":"admitted","event_id":"x","data":"not-an-object"}`)); err == nil {
		t.Fatalf("non-object data must fail")
	}
}

func TestParseEvent_ToleratesDateFormats(t *testing.T) {
	raw := []byte(`{
		"event_type": "terminated",
		"event_id": "evt-7",
		"data": {"person_id": "emp-9", "termination_date": "2026-06-30T17:00:00-03:00"}
	}`)

	event, err := ParseEvent(raw)
	if err != nil {
		t.Fatalf("ParseEvent: %v", err)
	}
	if event.TerminationDate.IsZero() {
		t.Fatalf("RFC3339 termination date dropped")
	}
	if got := event.TerminationDate.Location(); got != time.UTC {
		t.Fatalf("parsed times must normalize to UTC, got %v", got)
	}
}
