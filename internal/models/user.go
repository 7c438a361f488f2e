package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role string

const (
	RoleFreelancer Role = "freelancer"
	RoleAdmin      Role = "admin"
)

type NotificationPrefs struct {
	Email bool `json:"email"`
	SMS   bool `gorm:"column:sms" json:"sms"`
}

type Preferences struct {
	Language      string            `gorm:"type:varchar(2)" json:"language"`
	Notifications NotificationPrefs `gorm:"embedded;embeddedPrefix:notify_" json:"notifications"`
}

// internal/models/user.go
type User struct {
	ID       uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Email    string    `gorm:"type:varchar(320);uniqueIndex;not null" json:"email"`
	Password string    `gorm:"not null" json:"-"`

	Role       Role `gorm:"type:varchar(20);not null;index" json:"role"`
	IsActive   bool `gorm:"not null" json:"isActive"`
	IsVerified bool `gorm:"not null" json:"isVerified"`

	Preferences Preferences `gorm:"embedded;embeddedPrefix:pref_" json:"preferences"`
	LastLogin   *time.Time  `json:"lastLogin,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// HAS ONE freelancers.user_id -> users.id
	Freelancer *Freelancer `gorm:"foreignKey:UserID;references:ID" json:"freelancer,omitempty"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// NormalizeEmail is the canonical form used for storage and lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// DefaultPreferences applies to every new account.
func DefaultPreferences(language string) Preferences {
	if language == "" {
		language = "fr"
	}
	return Preferences{
		Language:      language,
		Notifications: NotificationPrefs{Email: true, SMS: false},
	}
}

// Deactivate soft-deletes the account and frees its email for reuse.
func (u *User) Deactivate(now time.Time) {
	u.IsActive = false
	u.Email = fmt.Sprintf("deleted_%d_%s", now.Unix(), u.Email)
}
