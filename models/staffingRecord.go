package models

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/thiagosoaresdev/hcm-position-panorama-sub002/config"
	"github.com/thiagosoaresdev/hcm-position-panorama-sub002/utils"
	"gorm.io/gorm"
)

// StaffingRecord is one authorized headcount slot of the quadro de lotação:
// identity is (plan, position, cargo) within an organization.
//
// filled+reserved may transiently exceed planned (a deficit inherited from the
// HR feed), but new admissions are rejected once filled+reserved >= planned,
// and planned can never be lowered below filled.
type StaffingRecord struct {
	ID               int         `gorm:"primary_key" json:"id"`
	OrganizationId   string      `gorm:"index;not null;index:uniq_quadro,unique" json:"organization_id"`
	PlanId           int         `gorm:"not null;index:uniq_quadro,unique" json:"plan_id"`
	PositionId       int         `gorm:"not null;index:uniq_quadro,unique" json:"position_id"`
	CargoId          int         `gorm:"not null;index:uniq_quadro,unique" json:"cargo_id"`
	PlannedCount     int         `gorm:"not null" json:"planned_count"`
	FilledCount      int         `gorm:"not null;default:0" json:"filled_count"`
	ReservedCount    int         `gorm:"not null;default:0" json:"reserved_count"`
	ControlStartDate time.Time   `json:"control_start_date"`
	ControlMode      ControlMode `gorm:"size:20;not null;default:'Daily'" json:"control_mode"`
	IsActive         *bool       `gorm:"not null;default:true" json:"is_active"`
	CreatedAt        time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewStaffingRecord struct {
	PlanId           int         `json:"plan_id" binding:"required"`
	PositionId       int         `json:"position_id" binding:"required"`
	CargoId          int         `json:"cargo_id" binding:"required"`
	PlannedCount     int         `json:"planned_count"`
	ControlStartDate time.Time   `json:"control_start_date"`
	ControlMode      ControlMode `json:"control_mode"`
}

/* Derived read accessors */

func (r *StaffingRecord) AvailableSlots() int {
	n := r.PlannedCount - r.FilledCount - r.ReservedCount
	if n < 0 {
		return 0
	}
	return n
}

func (r *StaffingRecord) OccupancyRate() decimal.Decimal {
	if r.PlannedCount == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(r.FilledCount)).
		Div(decimal.NewFromInt(int64(r.PlannedCount))).
		Mul(decimal.NewFromInt(100)).
		Round(2)
}

func (r *StaffingRecord) HasDeficit() bool {
	return r.FilledCount > r.PlannedCount
}

func (r *StaffingRecord) DeficitAmount() int {
	d := r.FilledCount - r.PlannedCount
	if d < 0 {
		return 0
	}
	return d
}

/* In-memory mutations. Persistence is the caller's job so that the counter
   change and its audit entry share one transaction. */

func (r *StaffingRecord) Admit() error {
	if r.PlannedCount-r.FilledCount-r.ReservedCount <= 0 {
		return &NoAvailableSlotError{
			Planned:  r.PlannedCount,
			Filled:   r.FilledCount,
			Reserved: r.ReservedCount,
		}
	}
	r.FilledCount++
	return nil
}

func (r *StaffingRecord) Terminate() error {
	if r.FilledCount <= 0 {
		return &NoOccupantToRemoveError{Filled: r.FilledCount}
	}
	r.FilledCount--
	return nil
}

func (r *StaffingRecord) Reserve() error {
	if r.PlannedCount-r.FilledCount-r.ReservedCount <= 0 {
		return &NoAvailableSlotError{
			Planned:  r.PlannedCount,
			Filled:   r.FilledCount,
			Reserved: r.ReservedCount,
		}
	}
	r.ReservedCount++
	return nil
}

func (r *StaffingRecord) ReleaseReservation() error {
	if r.ReservedCount <= 0 {
		return &NoReservationToReleaseError{Reserved: r.ReservedCount}
	}
	r.ReservedCount--
	return nil
}

func (r *StaffingRecord) SetPlanned(newPlanned int) error {
	if newPlanned < 0 {
		return errors.New("planned count must be non-negative")
	}
	if newPlanned < r.FilledCount {
		return &WouldCreateDeficitError{NewPlanned: newPlanned, Filled: r.FilledCount}
	}
	r.PlannedCount = newPlanned
	return nil
}

/* Persistence */

func (input *NewStaffingRecord) validate(ctx context.Context, organizationId string) error {
	if input.PlannedCount < 0 {
		return errors.New("planned count must be non-negative")
	}
	if err := utils.ValidateResourceId[StaffingPlan](ctx, organizationId, input.PlanId); err != nil {
		return errors.New("staffing plan not found")
	}
	if err := utils.ValidateResourceId[Position](ctx, organizationId, input.PositionId); err != nil {
		return errors.New("position not found")
	}
	if err := utils.ValidateResourceId[Cargo](ctx, organizationId, input.CargoId); err != nil {
		return errors.New("cargo not found")
	}
	return nil
}

func CreateStaffingRecord(ctx context.Context, input *NewStaffingRecord) (*StaffingRecord, error) {

	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	if err := input.validate(ctx, organizationId); err != nil {
		return nil, err
	}

	count, err := utils.ResourceCountWhere[StaffingRecord](ctx, organizationId,
		"plan_id = ? AND position_id = ? AND cargo_id = ?",
		input.PlanId, input.PositionId, input.CargoId)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, &DuplicateRecordError{
			PlanId:     input.PlanId,
			PositionId: input.PositionId,
			CargoId:    input.CargoId,
		}
	}

	mode := input.ControlMode
	if mode == "" {
		mode = ControlModeDaily
	}
	record := StaffingRecord{
		OrganizationId:   organizationId,
		PlanId:           input.PlanId,
		PositionId:       input.PositionId,
		CargoId:          input.CargoId,
		PlannedCount:     input.PlannedCount,
		ControlStartDate: input.ControlStartDate,
		ControlMode:      mode,
		IsActive:         utils.NewTrue(),
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Create(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func GetStaffingRecord(ctx context.Context, id int) (*StaffingRecord, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}
	return utils.FetchModel[StaffingRecord](ctx, organizationId, id)
}

// FindStaffingRecord locates the slot the reconciler expects for an incoming
// (position, cargo) pair on the active plan.
func FindStaffingRecord(ctx context.Context, organizationId string, positionId int, cargoId int) (*StaffingRecord, error) {
	db := config.GetDB()
	var record StaffingRecord
	err := db.WithContext(ctx).
		Where("organization_id = ? AND position_id = ? AND cargo_id = ? AND is_active = true",
			organizationId, positionId, cargoId).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &record, nil
}

// FindStaffingRecordsByPosition returns every active slot attached to a
// position, regardless of cargo. Used for discrepancy evaluation.
func FindStaffingRecordsByPosition(ctx context.Context, organizationId string, positionId int) ([]*StaffingRecord, error) {
	db := config.GetDB()
	var records []*StaffingRecord
	err := db.WithContext(ctx).
		Where("organization_id = ? AND position_id = ? AND is_active = true", organizationId, positionId).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// FetchStaffingRecordForUpdate reads the record under a row lock so concurrent
// events touching the same slot serialize inside their transactions.
func FetchStaffingRecordForUpdate(tx *gorm.DB, organizationId string, id int) (*StaffingRecord, error) {
	var record StaffingRecord
	err := tx.
		Clauses(forUpdateClause()).
		Where("organization_id = ?", organizationId).
		First(&record, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &record, nil
}

// SaveCounts persists the counter columns of an in-memory mutation inside the
// caller's transaction.
func (r *StaffingRecord) SaveCounts(tx *gorm.DB) error {
	return tx.Model(&StaffingRecord{}).
		Where("id = ?", r.ID).
		Updates(map[string]interface{}{
			"planned_count":  r.PlannedCount,
			"filled_count":   r.FilledCount,
			"reserved_count": r.ReservedCount,
			"updated_at":     time.Now().UTC(),
		}).Error
}

// UpdatePlannedCount changes the authorized headcount, writes the audit entry
// in the same transaction and fails without side effects on a would-be deficit.
func UpdatePlannedCount(ctx context.Context, id int, newPlanned int, reason string) (*StaffingRecord, error) {

	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	db := config.GetDB()
	var record *StaffingRecord
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txErr error
		record, txErr = FetchStaffingRecordForUpdate(tx, organizationId, id)
		if txErr != nil {
			return txErr
		}

		before := *record
		if txErr = record.SetPlanned(newPlanned); txErr != nil {
			return txErr
		}
		if txErr = record.SaveCounts(tx); txErr != nil {
			return txErr
		}
		return RecordAudit(tx, NewAuditEntry{
			EntityId:   record.ID,
			EntityType: "StaffingRecord",
			Action:     AuditActionUpdate,
			Before:     &before,
			After:      record,
			Reason:     reason,
		})
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// ReserveSlot holds one open slot for a planned admission. The reservation
// consumes availability like an occupant and is audited like one.
func ReserveSlot(ctx context.Context, id int, reason string) (*StaffingRecord, error) {

	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	db := config.GetDB()
	var record *StaffingRecord
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txErr error
		record, txErr = FetchStaffingRecordForUpdate(tx, organizationId, id)
		if txErr != nil {
			return txErr
		}

		before := *record
		if txErr = record.Reserve(); txErr != nil {
			return txErr
		}
		if txErr = record.SaveCounts(tx); txErr != nil {
			return txErr
		}
		return RecordAudit(tx, NewAuditEntry{
			EntityId:   record.ID,
			EntityType: "StaffingRecord",
			Action:     AuditActionReserve,
			Before:     &before,
			After:      record,
			Reason:     reason,
		})
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// ReleaseSlotReservation returns a held slot to availability.
func ReleaseSlotReservation(ctx context.Context, id int, reason string) (*StaffingRecord, error) {

	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	db := config.GetDB()
	var record *StaffingRecord
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txErr error
		record, txErr = FetchStaffingRecordForUpdate(tx, organizationId, id)
		if txErr != nil {
			return txErr
		}

		before := *record
		if txErr = record.ReleaseReservation(); txErr != nil {
			return txErr
		}
		if txErr = record.SaveCounts(tx); txErr != nil {
			return txErr
		}
		return RecordAudit(tx, NewAuditEntry{
			EntityId:   record.ID,
			EntityType: "StaffingRecord",
			Action:     AuditActionRelease,
			Before:     &before,
			After:      record,
			Reason:     reason,
		})
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// SoftDeleteStaffingRecord deactivates an empty slot. Slots with occupants are
// never deleted, silently or otherwise.
func SoftDeleteStaffingRecord(ctx context.Context, id int, reason string) (*StaffingRecord, error) {

	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	db := config.GetDB()
	var record *StaffingRecord
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txErr error
		record, txErr = FetchStaffingRecordForUpdate(tx, organizationId, id)
		if txErr != nil {
			return txErr
		}
		if record.FilledCount > 0 {
			return &HasActiveOccupantsError{Filled: record.FilledCount}
		}

		before := *record
		record.IsActive = utils.NewFalse()
		if txErr = tx.Model(&StaffingRecord{}).
			Where("id = ?", record.ID).
			Update("is_active", false).Error; txErr != nil {
			return txErr
		}
		return RecordAudit(tx, NewAuditEntry{
			EntityId:   record.ID,
			EntityType: "StaffingRecord",
			Action:     AuditActionDelete,
			Before:     &before,
			After:      record,
			Reason:     reason,
		})
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}
