package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role string

const (
	RoleAdmin            Role = "admin"
	RoleOfficer          Role = "officer"
	RoleCitizenAnonymous Role = "citizen_anonymous"
)

// User is an account. Every officer has exactly one user with RoleOfficer,
// created lazily the first time the officer is assigned by email.
type User struct {
	ID       string `gorm:"type:uuid;primaryKey" json:"id"`
	Email    string `gorm:"type:text;uniqueIndex:idx_users_email,where:email <> ''" json:"email"`
	Name     string `gorm:"type:text" json:"name"`
	Role     Role   `gorm:"type:text;not null;index" json:"role"`
	Language string `gorm:"type:text" json:"language,omitempty"`
	// TelegramChatID links the account to a Telegram chat used as an
	// additional push channel.
	TelegramChatID *int64 `gorm:"uniqueIndex" json:"telegram_chat_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns a UUID when the caller left ID empty.
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return
}

func (u User) Clone() User {
	out := u
	if u.TelegramChatID != nil {
		v := *u.TelegramChatID
		out.TelegramChatID = &v
	}
	return out
}
