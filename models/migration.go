package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/thiagosoaresdev/hcm-position-panorama-sub002/config"
	"gorm.io/gorm"
)

// MigrationRecord tracks applied raw-SQL migrations with a sha256 checksum of
// the statement text, so a later edit to an already-applied migration is
// detected instead of silently ignored.
type MigrationRecord struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Name      string    `gorm:"size:255;not null;uniqueIndex" json:"name"`
	Checksum  string    `gorm:"size:64;not null" json:"checksum"`
	AppliedAt time.Time `gorm:"autoCreateTime" json:"applied_at"`
}

func migrationChecksum(sql string) string {
	sum := sha256.Sum256([]byte(sql))
	return hex.EncodeToString(sum[:])
}

// sqlMigrations are hand-written statements AutoMigrate cannot express,
// applied in order on startup after the schema migration.
var sqlMigrations = []struct {
	Name string
	SQL  string
}{
	{
		Name: "2026_08_webhook_event_records_due_idx",
		SQL:  "CREATE INDEX idx_webhook_event_records_due ON webhook_event_records (status, next_attempt_at)",
	},
	{
		Name: "2026_08_audit_entries_trail_idx",
		SQL:  "CREATE INDEX idx_audit_entries_trail ON audit_entries (entity_type, entity_id, id)",
	},
	{
		Name: "2026_08_approval_decisions_pending_idx",
		SQL:  "CREATE INDEX idx_approval_decisions_pending ON approval_decisions (action, created_at)",
	},
}

// RunSQLMigrations applies the raw statements in order, each at most once.
func RunSQLMigrations() error {
	for _, m := range sqlMigrations {
		if err := ApplyMigration(m.Name, m.SQL); err != nil {
			return fmt.Errorf("raw migration %q: %w", m.Name, err)
		}
	}
	return nil
}

// ApplyMigration runs the statement once. Re-running with the same name is a
// no-op when the checksum matches and an error when it does not.
func ApplyMigration(name string, sql string) error {
	db := config.GetDB()
	checksum := migrationChecksum(sql)

	var existing MigrationRecord
	err := db.Where("name = ?", name).First(&existing).Error
	if err == nil {
		if existing.Checksum != checksum {
			return fmt.Errorf("migration %q was modified after being applied (checksum %s != %s)",
				name, checksum, existing.Checksum)
		}
		return nil
	}
	if err != gorm.ErrRecordNotFound {
		return err
	}

	return db.Transaction(func(tx *gorm.DB) error {
		if execErr := tx.Exec(sql).Error; execErr != nil {
			return execErr
		}
		return tx.Create(&MigrationRecord{Name: name, Checksum: checksum}).Error
	})
}
