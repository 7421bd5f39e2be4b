package models

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestRedactSnapshot_MasksSensitiveFields(t *testing.T) {
	person := Person{
		Name:         "Maria Souza",
		GovernmentId: "123.456.789-00",
	}

	out, err := redactSnapshot(&person)
	if err != nil {
		t.Fatalf("redactSnapshot: %v", err)
	}
	if strings.Contains(out, "123.456.789-00") {
		t.Fatalf("government id leaked into snapshot: %s", out)
	}
	if !strings.Contains(out, RedactionMarker) {
		t.Fatalf("expected redaction marker in snapshot: %s", out)
	}
	if !strings.Contains(out, "Maria Souza") {
		t.Fatalf("non-sensitive fields must survive redaction: %s", out)
	}
}

func TestRedactSnapshot_NilIsEmpty(t *testing.T) {
	out, err := redactSnapshot(nil)
	if err != nil || out != "" {
		t.Fatalf("nil snapshot expected empty string, got %q err %v", out, err)
	}
}

func TestChangedFields_FromSnapshots(t *testing.T) {
	entry := AuditEntry{
		Before: `{"planned_count":10,"filled_count":3,"control_mode":"Daily"}`,
		After:  `{"planned_count":12,"filled_count":3,"control_mode":"Daily"}`,
	}

	changed, err := entry.ChangedFields()
	if err != nil {
		t.Fatalf("ChangedFields: %v", err)
	}
	if len(changed) != 1 || changed[0] != "planned_count" {
		t.Fatalf("expected [planned_count], got %v", changed)
	}
}

func mustJSON(t *testing.T, v interface{}) string {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(b)
}

func TestValidateChain_DetectsGap(t *testing.T) {
	entries := []*AuditEntry{
		{
			ID:    1,
			After: mustJSON(t, map[string]int{"planned_count": 10, "filled_count": 3}),
		},
		{
			ID:     2,
			Before: mustJSON(t, map[string]int{"planned_count": 10, "filled_count": 3}),
			After:  mustJSON(t, map[string]int{"planned_count": 10, "filled_count": 4}),
		},
		{
			// Break: filled jumped from 4 to 6 with no entry in between.
			ID:     3,
			Before: mustJSON(t, map[string]int{"planned_count": 10, "filled_count": 6}),
			After:  mustJSON(t, map[string]int{"planned_count": 10, "filled_count": 5}),
		},
	}

	breaks := validateChain(entries)
	if len(breaks) != 1 {
		t.Fatalf("expected exactly one break, got %+v", breaks)
	}
	if breaks[0].PrevEntryId != 2 || breaks[0].NextEntryId != 3 {
		t.Fatalf("break should sit between entries 2 and 3, got %+v", breaks[0])
	}
	if len(breaks[0].Fields) != 1 || breaks[0].Fields[0] != "filled_count" {
		t.Fatalf("expected [filled_count], got %v", breaks[0].Fields)
	}
}

func TestValidateChain_SkipsCreateAndDeleteSnapshots(t *testing.T) {
	entries := []*AuditEntry{
		{ID: 1, After: mustJSON(t, map[string]int{"planned_count": 5})},
		{
			ID:     2,
			Before: mustJSON(t, map[string]int{"planned_count": 5}),
			After:  mustJSON(t, map[string]int{"planned_count": 6}),
		},
		// Delete entries carry no after-snapshot; the chain must not flag them.
		{ID: 3, Before: mustJSON(t, map[string]int{"planned_count": 6})},
	}

	if breaks := validateChain(entries); len(breaks) != 0 {
		t.Fatalf("intact chain reported breaks: %+v", breaks)
	}
}

func TestValidateChain_IgnoresUpdatedAt(t *testing.T) {
	entries := []*AuditEntry{
		{
			ID:    1,
			After: `{"planned_count":5,"updated_at":"2026-01-01T00:00:00Z"}`,
		},
		{
			ID:     2,
			Before: `{"planned_count":5,"updated_at":"2026-02-01T00:00:00Z"}`,
			After:  `{"planned_count":7,"updated_at":"2026-02-01T00:00:00Z"}`,
		},
	}

	if breaks := validateChain(entries); len(breaks) != 0 {
		t.Fatalf("updated_at drift must not break the chain: %+v", breaks)
	}
}

func TestAuditEntry_ImmutableOperations(t *testing.T) {
	if _, err := UpdateAuditEntry(nil, 1, nil); err == nil {
		t.Fatalf("UpdateAuditEntry must always fail")
	}
	if _, err := DeleteAuditEntry(nil, 1); err == nil {
		t.Fatalf("DeleteAuditEntry must always fail")
	}
}
