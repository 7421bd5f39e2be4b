package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/thiagosoaresdev/hcm-position-panorama-sub002/config"
	"github.com/thiagosoaresdev/hcm-position-panorama-sub002/models"
	"gorm.io/gorm"
)

// RosterEntry is one active employee as the HR system of record reports it.
type RosterEntry struct {
	PersonExternalId string
	PositionExternal string
	CargoExternal    string
	Accessibility    bool
}

// RosterSource pulls the authoritative active roster. The HR client implements
// it; a nil source limits the run to the local persons table.
type RosterSource interface {
	ActiveRoster(ctx context.Context, organizationId string) ([]RosterEntry, error)
}

// NormalizationResult summarizes one full-feed reconciliation run.
type NormalizationResult struct {
	OrganizationId   string    `json:"organization_id"`
	RecordsChecked   int       `json:"records_checked"`
	FilledCorrected  int       `json:"filled_corrected"`
	RosterDrift      int       `json:"roster_drift"`
	StartedAt        time.Time `json:"started_at"`
	FinishedAt       time.Time `json:"finished_at"`
	DurationMs       int64     `json:"duration_ms"`
}

// RunNormalization recomputes each active staffing record's filled count from
// the persons table and corrects drift, one audit entry per correction.
// Planned counts are never touched: headcount targets only move through the
// approval workflow. When a roster source is given, local persons are also
// cross-checked against the HR feed; drift there is reported, not fixed.
func RunNormalization(ctx context.Context, organizationId string, source RosterSource) (*NormalizationResult, error) {

	started := time.Now().UTC()
	logger := config.GetLogger().WithField("organization_id", organizationId)
	result := NormalizationResult{OrganizationId: organizationId, StartedAt: started}

	persons, err := models.ActivePersons(ctx, organizationId)
	if err != nil {
		return nil, err
	}

	filledByPair := make(map[[2]int]int)
	for _, p := range persons {
		filledByPair[[2]int{p.PositionId, p.CargoId}]++
	}

	if source != nil {
		drift, rosterErr := rosterDrift(ctx, organizationId, persons, source)
		if rosterErr != nil {
			// The local pass still runs; roster comparison is best effort.
			logger.WithError(rosterErr).Warn("roster cross-check skipped")
		} else {
			result.RosterDrift = drift
		}
	}

	db := config.GetDB()
	var records []models.StaffingRecord
	if err = db.WithContext(ctx).
		Where("organization_id = ? AND is_active = ?", organizationId, true).
		Find(&records).Error; err != nil {
		return nil, err
	}

	for i := range records {
		record := &records[i]
		result.RecordsChecked++
		actual := filledByPair[[2]int{record.PositionId, record.CargoId}]
		if actual == record.FilledCount {
			continue
		}

		txErr := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			locked, lErr := models.FetchStaffingRecordForUpdate(tx, organizationId, record.ID)
			if lErr != nil {
				return lErr
			}
			if locked.FilledCount == actual {
				return nil
			}
			before := *locked
			locked.FilledCount = actual
			if lErr = locked.SaveCounts(tx); lErr != nil {
				return lErr
			}
			return models.RecordAudit(tx, models.NewAuditEntry{
				EntityId:   locked.ID,
				EntityType: "StaffingRecord",
				Action:     models.AuditActionNormalize,
				Before:     &before,
				After:      locked,
				Reason:     fmt.Sprintf("normalization run corrected filled count %d -> %d", before.FilledCount, actual),
			})
		})
		if txErr != nil {
			logger.WithError(txErr).WithField("staffing_record_id", record.ID).
				Error("normalization correction failed")
			continue
		}
		result.FilledCorrected++

		if record.FilledCount > record.PlannedCount || actual > record.PlannedCount {
			payload, _ := json.Marshal(map[string]interface{}{
				"staffing_record_id": record.ID,
				"planned":            record.PlannedCount,
				"filled":             actual,
			})
			DispatchComplianceAlert(ctx, organizationId, "high", record.ID, payload)
		}
	}

	result.FinishedAt = time.Now().UTC()
	result.DurationMs = result.FinishedAt.Sub(started).Milliseconds()
	logger.WithField("records_checked", result.RecordsChecked).
		WithField("filled_corrected", result.FilledCorrected).
		WithField("roster_drift", result.RosterDrift).
		Info("normalization run finished")
	return &result, nil
}

// rosterDrift counts persons present on one side only. Reported for operators
// to act on; the run never creates or terminates persons by itself.
func rosterDrift(ctx context.Context, organizationId string, persons []models.Person, source RosterSource) (int, error) {

	roster, err := source.ActiveRoster(ctx, organizationId)
	if err != nil {
		return 0, err
	}

	local := make(map[string]bool, len(persons))
	for _, p := range persons {
		local[p.ExternalId] = true
	}
	remote := make(map[string]bool, len(roster))
	drift := 0
	logger := config.GetLogger().WithField("organization_id", organizationId)
	for _, r := range roster {
		if remote[r.PersonExternalId] {
			continue
		}
		remote[r.PersonExternalId] = true
		if local[r.PersonExternalId] {
			continue
		}
		drift++
		// Resolving the referenced slot tells the operator whether the gap is
		// a missing person or missing reference data.
		entry := logger.WithField("person_external_id", r.PersonExternalId)
		if _, pErr := models.FindPositionByExternalId(ctx, organizationId, r.PositionExternal); pErr != nil {
			entry = entry.WithField("unknown_position", r.PositionExternal)
		}
		if _, cErr := models.FindCargoByExternalId(ctx, organizationId, r.CargoExternal); cErr != nil {
			entry = entry.WithField("unknown_cargo", r.CargoExternal)
		}
		entry.Warn("person active in HR feed but missing locally")
	}
	for id := range local {
		if !remote[id] {
			drift++
			logger.WithField("person_external_id", id).Warn("person active locally but absent from HR feed")
		}
	}
	return drift, nil
}
