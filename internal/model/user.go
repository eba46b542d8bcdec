package model

import "time"

// User is a registered identity. Nickname and email are unique at the store
// level; the application-level checks are advisory only.
type User struct {
	ID       string `gorm:"primaryKey;type:varchar(36)"`
	Nickname string `gorm:"type:varchar(64);uniqueIndex:ux_user_nickname;not null"`
	Email    string `gorm:"type:varchar(120);uniqueIndex:ux_user_email;not null"`
	// bcrypt hash; empty for identities provisioned through federated login
	Password  string `gorm:"type:varchar(128)"`
	AboutMe   string `gorm:"type:varchar(140)"`
	LastSeen  time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (User) TableName() string { return "users" }
