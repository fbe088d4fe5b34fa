package models

import (
	"time"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

// User roles.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// User is the locally synced profile of an identity-provider account.
// Password is only set for local development logins.
type User struct {
	ID       uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	Username string    `json:"username" gorm:"unique"`
	Email    string    `json:"email" gorm:"unique;not null"`
	Password string    `json:"-"`

	Name     string `json:"name"`
	ImageURL string `json:"image_url"`
	Area     string `json:"area" gorm:"not null;index"`
	Role     string `json:"role" gorm:"not null;default:'member'"`

	IsActive    bool       `json:"is_active" gorm:"default:true"`
	LastLoginAt *time.Time `json:"last_login_at"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	Tasks []Task `json:"tasks,omitempty" gorm:"foreignKey:CreatorID"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
