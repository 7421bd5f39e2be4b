package models

import (
	"strings"
	"testing"
)

func TestMigrationChecksum_DetectsEditedStatements(t *testing.T) {
	a := migrationChecksum("CREATE INDEX idx_a ON t (x)")
	b := migrationChecksum("CREATE INDEX idx_a ON t (x, y)")

	if a == b {
		t.Fatalf("different statements must not share a checksum")
	}
	if a != migrationChecksum("CREATE INDEX idx_a ON t (x)") {
		t.Fatalf("checksum must be deterministic")
	}
	if len(a) != 64 {
		t.Fatalf("expected hex sha256, got %d chars", len(a))
	}
}

func TestSQLMigrations_NamesAreUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, m := range sqlMigrations {
		if m.Name == "" || strings.TrimSpace(m.SQL) == "" {
			t.Fatalf("migration entry incomplete: %+v", m)
		}
		if seen[m.Name] {
			t.Fatalf("duplicate migration name %q", m.Name)
		}
		seen[m.Name] = true
	}
}
