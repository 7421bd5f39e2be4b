package hrsync

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/thiagosoaresdev/hcm-position-panorama-sub002/models"
	"github.com/thiagosoaresdev/hcm-position-panorama-sub002/workflow"
)

// Envelope is the outer shape every HR webhook delivery shares. Event data
// stays raw until the event type picks its field set.
type Envelope struct {
	EventType string          `json:"event_type"`
	EventId   string          `json:"event_id"`
	Timestamp string          `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

type eventData struct {
	PersonId           string `json:"person_id"`
	Name               string `json:"name"`
	GovernmentId       string `json:"government_id"`
	RoleId             string `json:"role_id"`
	PositionId         string `json:"position_id"`
	Shift              string `json:"shift"`
	AdmissionDate      string `json:"admission_date"`
	Accessibility      *bool  `json:"accessibility"`
	Status             string `json:"status"`
	PreviousPositionId string `json:"previous_position_id"`
	PreviousRoleId     string `json:"previous_role_id"`
	TerminationDate    string `json:"termination_date"`
}

// ParseEvent decodes a raw delivery into the typed event the reconciler runs.
// A missing event id is derived deterministically from the payload bytes so
// the same delivery always maps to the same id.
func ParseEvent(raw []byte) (*workflow.InboundEvent, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("malformed webhook payload: %w", err)
	}

	var eventType models.WebhookEventType
	if err := eventType.UnmarshalString(strings.TrimSpace(env.EventType)); err != nil {
		return nil, err
	}

	eventId := strings.TrimSpace(env.EventId)
	if eventId == "" {
		sum := sha256.Sum256(raw)
		eventId = hex.EncodeToString(sum[:16])
	}

	var data eventData
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, fmt.Errorf("malformed event data: %w", err)
		}
	}

	event := workflow.InboundEvent{
		EventId:                  eventId,
		EventType:                eventType,
		Timestamp:                parseEventTime(env.Timestamp),
		PersonExternalId:         strings.TrimSpace(data.PersonId),
		Name:                     strings.TrimSpace(data.Name),
		GovernmentId:             strings.TrimSpace(data.GovernmentId),
		CargoExternalId:          strings.TrimSpace(data.RoleId),
		PositionExternal:         strings.TrimSpace(data.PositionId),
		Shift:                    strings.TrimSpace(data.Shift),
		AdmissionDate:            parseEventTime(data.AdmissionDate),
		Accessibility:            data.Accessibility,
		Status:                   strings.TrimSpace(data.Status),
		PreviousPositionExternal: strings.TrimSpace(data.PreviousPositionId),
		PreviousCargoExternal:    strings.TrimSpace(data.PreviousRoleId),
		TerminationDate:          parseEventTime(data.TerminationDate),
	}
	return &event, nil
}

// parseEventTime accepts RFC3339 or a bare date; anything else comes back zero
// and fails field validation downstream rather than here.
func parseEventTime(v string) time.Time {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.UTC()
	}
	if t, err := time.Parse("2006-01-02", v); err == nil {
		return t.UTC()
	}
	return time.Time{}
}
