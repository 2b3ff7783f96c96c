package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID              string    `gorm:"type:varchar(36);primarykey" json:"id"`
	Name            string    `gorm:"type:varchar(255);not null" json:"name"`
	Email           string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash    string    `gorm:"type:varchar(255);not null" json:"-"`
	CurrentTenantID *string   `gorm:"type:varchar(36);index" json:"current_tenant_id"`
	ActiveRole      *Role     `gorm:"type:varchar(20)" json:"active_role"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	// Relations
	CurrentTenant *Tenant      `gorm:"foreignKey:CurrentTenantID" json:"-"`
	Memberships   []Membership `gorm:"foreignKey:UserID" json:"-"`
	AssignedTasks []Task       `gorm:"foreignKey:AssignedTo" json:"-"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// HasActiveTenant reports whether the user has selected a tenant to operate on.
func (u *User) HasActiveTenant() bool {
	return u.CurrentTenantID != nil && *u.CurrentTenantID != ""
}
