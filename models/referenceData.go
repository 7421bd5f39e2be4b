package models

import (
	"context"
	"time"

	"github.com/thiagosoaresdev/hcm-position-panorama-sub002/config"
	"github.com/thiagosoaresdev/hcm-position-panorama-sub002/utils"
)

// Reference data (job catalog, work positions, cost centers) is owned by an
// external CRUD service; the core only needs read access plus the
// position -> expected-cargo mapping.

type Cargo struct {
	ID             int       `gorm:"primary_key" json:"id"`
	OrganizationId string    `gorm:"index;not null" json:"organization_id"`
	ExternalId     string    `gorm:"size:64;index" json:"external_id"`
	Name           string    `gorm:"size:255;not null" json:"name"`
	IsActive       *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type Position struct {
	ID              int       `gorm:"primary_key" json:"id"`
	OrganizationId  string    `gorm:"index;not null" json:"organization_id"`
	ExternalId      string    `gorm:"size:64;index" json:"external_id"`
	Name            string    `gorm:"size:255;not null" json:"name"`
	ExpectedCargoId int       `gorm:"index;not null" json:"expected_cargo_id"`
	CostCenterId    int       `gorm:"index" json:"cost_center_id"`
	IsActive        *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type CostCenter struct {
	ID             int       `gorm:"primary_key" json:"id"`
	OrganizationId string    `gorm:"index;not null" json:"organization_id"`
	Name           string    `gorm:"size:255;not null" json:"name"`
	IsActive       *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type StaffingPlan struct {
	ID             int       `gorm:"primary_key" json:"id"`
	OrganizationId string    `gorm:"index;not null" json:"organization_id"`
	Name           string    `gorm:"size:255;not null" json:"name"`
	Year           int       `gorm:"index" json:"year"`
	IsActive       *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func GetPosition(ctx context.Context, organizationId string, id int) (*Position, error) {
	return utils.FetchModel[Position](ctx, organizationId, id)
}

func GetCargo(ctx context.Context, organizationId string, id int) (*Cargo, error) {
	return utils.FetchModel[Cargo](ctx, organizationId, id)
}

// FindPositionByExternalId maps the HR feed's position identifier onto the
// local reference row.
func FindPositionByExternalId(ctx context.Context, organizationId string, externalId string) (*Position, error) {
	db := config.GetDB()
	var position Position
	err := db.WithContext(ctx).
		Where("organization_id = ? AND external_id = ?", organizationId, externalId).
		First(&position).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &position, nil
}

func FindCargoByExternalId(ctx context.Context, organizationId string, externalId string) (*Cargo, error) {
	db := config.GetDB()
	var cargo Cargo
	err := db.WithContext(ctx).
		Where("organization_id = ? AND external_id = ?", organizationId, externalId).
		First(&cargo).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &cargo, nil
}
