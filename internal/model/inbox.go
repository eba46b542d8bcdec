package model

import "time"

// Inbox is the materialized home-timeline entry for one (user, post) pair.
// Score is the publish instant in nanoseconds and orders the timeline.
type Inbox struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)"`
	UserID    string    `gorm:"type:varchar(36);index:idx_inbox_user;uniqueIndex:ux_inbox_user_post"`
	PostID    string    `gorm:"type:varchar(36);index:idx_inbox_post;uniqueIndex:ux_inbox_user_post"`
	Score     int64     `gorm:"index:idx_inbox_user_score"`
	CreatedAt time.Time `gorm:"index:idx_inbox_user_score"`
}

func (Inbox) TableName() string { return "inbox" }
