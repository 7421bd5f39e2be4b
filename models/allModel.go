package models

import (
	"log"

	"github.com/thiagosoaresdev/hcm-position-panorama-sub002/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Organization{}, &User{},
		&StaffingPlan{}, &Position{}, &Cargo{}, &CostCenter{},
		&StaffingRecord{}, &Person{},
		&Proposal{}, &ApprovalDecision{},
		&AuditEntry{},
		&WebhookEventRecord{}, &IdempotencyKey{},
		&MigrationRecord{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
