package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/thiagosoaresdev/hcm-position-panorama-sub002/config"
	"github.com/thiagosoaresdev/hcm-position-panorama-sub002/utils"
)

type Organization struct {
	ID              uuid.UUID       `gorm:"type:char(36);primary_key" json:"id"`
	Name            string          `gorm:"size:255;not null" json:"name" binding:"required"`
	Email           string          `gorm:"size:255" json:"email"`
	WebhookSecret   string          `gorm:"size:255;not null" json:"-"`
	DiscrepancyMode DiscrepancyMode `gorm:"size:30;not null;default:'Block'" json:"discrepancy_mode"`
	HrApiKeyRef     string          `gorm:"size:255" json:"-"`
	IsActive        *bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewOrganization struct {
	Name            string          `json:"name" binding:"required"`
	Email           string          `json:"email"`
	DiscrepancyMode DiscrepancyMode `json:"discrepancy_mode"`
}

func CreateOrganization(ctx context.Context, input *NewOrganization) (*Organization, error) {

	if strings.TrimSpace(input.Name) == "" {
		return nil, errors.New("organization name is required")
	}
	if input.Email != "" && !utils.IsValidEmail(input.Email) {
		return nil, errors.New("invalid email")
	}

	mode := input.DiscrepancyMode
	if mode == "" {
		mode = DiscrepancyModeBlock
	}

	org := Organization{
		ID:              uuid.New(),
		Name:            input.Name,
		Email:           input.Email,
		WebhookSecret:   uuid.NewString(),
		DiscrepancyMode: mode,
		IsActive:        utils.NewTrue(),
	}

	db := config.GetDB()
	err := db.WithContext(ctx).Create(&org).Error
	if err != nil {
		return nil, err
	}
	return &org, nil
}

const organizationCacheTTL = 5 * time.Minute

func organizationCacheKey(id string) string {
	return "org:" + id
}

// GetOrganization resolves the organization config (webhook secret, discrepancy
// mode) needed on every inbound event. Redis-cached; DB is the source of truth.
func GetOrganization(ctx context.Context, id string) (*Organization, error) {

	var cached Organization
	if found, _ := config.GetRedisObject(organizationCacheKey(id), &cached); found {
		return &cached, nil
	}

	db := config.GetDB()
	var org Organization
	err := db.WithContext(ctx).Where("id = ?", id).First(&org).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	_ = config.SetRedisObject(organizationCacheKey(id), org, organizationCacheTTL)
	return &org, nil
}

func UpdateOrganizationDiscrepancyMode(ctx context.Context, id string, mode DiscrepancyMode) (*Organization, error) {

	db := config.GetDB()
	var org Organization
	if err := db.WithContext(ctx).Where("id = ?", id).First(&org).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	err := db.WithContext(ctx).Model(&org).Update("discrepancy_mode", mode).Error
	if err != nil {
		return nil, err
	}
	_ = config.RemoveRedisKey(organizationCacheKey(id))
	org.DiscrepancyMode = mode
	return &org, nil
}
