package model

import "time"

// Follow is one directed edge: follower follows followee.
// Self edges are legal; every identity gets one at registration so its own
// posts show up in its feed without special-casing.
type Follow struct {
	ID         string `gorm:"primaryKey;type:varchar(36)"`
	FollowerID string `gorm:"type:varchar(36);index:idx_follow_follower;index:idx_follow_pair,unique;not null"`
	FolloweeID string `gorm:"type:varchar(36);not null;index:idx_follow_pair,unique"`
	// idx_follow_pair = (follower_id, followee_id) keeps the relation a set
	CreatedAt time.Time
}

func (Follow) TableName() string { return "follows" }
