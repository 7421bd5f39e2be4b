package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/thiagosoaresdev/hcm-position-panorama-sub002/config"
	"github.com/thiagosoaresdev/hcm-position-panorama-sub002/utils"
	"gorm.io/gorm"
)

// Person mirrors one employee of the HR-of-record feed. Accessibility (PcD)
// marks the person as counted toward the statutory accessibility quota.
type Person struct {
	ID              int          `gorm:"primary_key" json:"id"`
	OrganizationId  string       `gorm:"index;not null;index:uniq_person,unique" json:"organization_id"`
	ExternalId      string       `gorm:"size:64;not null;index:uniq_person,unique" json:"external_id"`
	Name            string       `gorm:"size:255;not null" json:"name" binding:"required"`
	GovernmentId    string       `gorm:"size:32" json:"government_id"`
	CargoId         int          `gorm:"index;not null" json:"cargo_id"`
	PositionId      int          `gorm:"index;not null" json:"position_id"`
	Shift           string       `gorm:"size:50" json:"shift"`
	Accessibility   *bool        `gorm:"not null;default:false" json:"accessibility"`
	AdmissionDate   time.Time    `gorm:"not null" json:"admission_date"`
	TerminationDate *time.Time   `json:"termination_date"`
	Status          PersonStatus `gorm:"size:20;not null;default:'Active'" json:"status"`
	CreatedAt       time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewPerson struct {
	ExternalId    string    `json:"external_id" binding:"required"`
	Name          string    `json:"name" binding:"required"`
	GovernmentId  string    `json:"government_id" binding:"required"`
	CargoId       int       `json:"cargo_id" binding:"required"`
	PositionId    int       `json:"position_id" binding:"required"`
	Shift         string    `json:"shift"`
	Accessibility bool      `json:"accessibility"`
	AdmissionDate time.Time `json:"admission_date" binding:"required"`
}

func (p *Person) IsAccessible() bool {
	return p.Accessibility != nil && *p.Accessibility
}

// validate enforces the person lifecycle invariants:
// termination date >= admission date; inactive implies termination date present.
func (p *Person) validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("person name is required")
	}
	if p.AdmissionDate.IsZero() {
		return errors.New("admission date is required")
	}
	if p.TerminationDate != nil && p.TerminationDate.Before(p.AdmissionDate) {
		return errors.New("termination date must not precede admission date")
	}
	if p.Status == PersonStatusInactive && p.TerminationDate == nil {
		return errors.New("inactive person requires a termination date")
	}
	return nil
}

// CreatePersonTx inserts a person inside the caller's transaction so the
// insert shares the reconciler's durability boundary.
func CreatePersonTx(tx *gorm.DB, organizationId string, input *NewPerson) (*Person, error) {

	person := Person{
		OrganizationId: organizationId,
		ExternalId:     input.ExternalId,
		Name:           input.Name,
		GovernmentId:   input.GovernmentId,
		CargoId:        input.CargoId,
		PositionId:     input.PositionId,
		Shift:          input.Shift,
		Accessibility:  &input.Accessibility,
		AdmissionDate:  input.AdmissionDate,
		Status:         PersonStatusActive,
	}
	if err := person.validate(); err != nil {
		return nil, err
	}

	if err := tx.Create(&person).Error; err != nil {
		return nil, err
	}
	return &person, nil
}

// TerminatePersonTx marks the person inactive with the given termination date.
func TerminatePersonTx(tx *gorm.DB, person *Person, terminationDate time.Time) error {

	if terminationDate.Before(person.AdmissionDate) {
		return errors.New("termination date must not precede admission date")
	}

	person.TerminationDate = &terminationDate
	person.Status = PersonStatusInactive
	return tx.Model(&Person{}).
		Where("id = ?", person.ID).
		Updates(map[string]interface{}{
			"termination_date": terminationDate,
			"status":           PersonStatusInactive,
		}).Error
}

func FindPersonByExternalId(ctx context.Context, organizationId string, externalId string) (*Person, error) {
	db := config.GetDB()
	var person Person
	err := db.WithContext(ctx).
		Where("organization_id = ? AND external_id = ?", organizationId, externalId).
		First(&person).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &person, nil
}

func FindPersonByExternalIdTx(tx *gorm.DB, organizationId string, externalId string) (*Person, error) {
	var person Person
	err := tx.
		Where("organization_id = ? AND external_id = ?", organizationId, externalId).
		First(&person).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &person, nil
}

// ActivePersons returns every active person for the organization; the
// compliance calculator consumes this set.
func ActivePersons(ctx context.Context, organizationId string) ([]Person, error) {
	db := config.GetDB()
	var persons []Person
	err := db.WithContext(ctx).
		Where("organization_id = ? AND status = ?", organizationId, PersonStatusActive).
		Find(&persons).Error
	if err != nil {
		return nil, err
	}
	return persons, nil
}
