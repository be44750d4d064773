package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/tillpoint-api/internal/domain/enum"
	"gorm.io/gorm"
)

// User is a member of staff who can log in to the till
type User struct {
	ID          uuid.UUID      `gorm:"type:char(36);primaryKey" json:"id"`
	Username    string         `gorm:"size:150;uniqueIndex;not null" json:"username"`
	FirstName   string         `gorm:"size:150" json:"first_name"`
	LastName    string         `gorm:"size:150" json:"last_name"`
	Email       *string        `gorm:"size:255" json:"email,omitempty"`
	Password    string         `gorm:"size:255;not null" json:"-"`
	Role        enum.UserRole  `gorm:"size:20;not null;default:'cashier'" json:"role"`
	IsStaff     bool           `gorm:"not null;default:true" json:"is_staff"`
	IsActive    bool           `gorm:"not null;default:true" json:"is_active"`
	LastLoginAt *time.Time     `json:"last_login_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate generates a UUID before creating a new user
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the User model
func (User) TableName() string {
	return "users"
}

// CanUseTill reports whether the user may log in at the point of sale
func (u *User) CanUseTill() bool {
	return u.IsActive && u.IsStaff && u.Role.IsValid()
}

// Roles returns the role names carried in access tokens
func (u *User) Roles() []string {
	return []string{u.Role.String()}
}
