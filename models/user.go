package models

import (
	"context"
	"errors"
	"time"

	"github.com/thiagosoaresdev/hcm-position-panorama-sub002/config"
	"github.com/thiagosoaresdev/hcm-position-panorama-sub002/utils"
)

// User is an internal operator/approver account. Approvers referenced by
// approval decisions are users.
type User struct {
	ID             int       `gorm:"primary_key" json:"id"`
	OrganizationId string    `gorm:"index;not null" json:"organization_id"`
	Name           string    `gorm:"size:100;not null" json:"name" binding:"required"`
	Email          string    `gorm:"size:255;not null;uniqueIndex" json:"email" binding:"required,email"`
	Password       string    `gorm:"size:255;not null" json:"-"`
	Role           string    `gorm:"size:50;not null;default:'approver'" json:"role"`
	IsActive       *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewUser struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role"`
}

func CreateUser(ctx context.Context, organizationId string, input *NewUser) (*User, error) {

	if !utils.IsValidEmail(input.Email) {
		return nil, errors.New("invalid email")
	}
	// Emails are unique across organizations, so the check is unscoped.
	if err := utils.ValidateUnique[User](ctx, "", "email", input.Email, 0); err != nil {
		return nil, err
	}

	hashed, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	role := input.Role
	if role == "" {
		role = "approver"
	}
	user := User{
		OrganizationId: organizationId,
		Name:           input.Name,
		Email:          input.Email,
		Password:       string(hashed),
		Role:           role,
		IsActive:       utils.NewTrue(),
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Create(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func GetUserByEmail(ctx context.Context, email string) (*User, error) {
	db := config.GetDB()
	var user User
	err := db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &user, nil
}
