package model

import "time"

// Fan is the reverse-direction redundancy of Follow: user_id is followed by
// fan_id. Maintained asynchronously off the follow path so follower listings
// never scan the follows table by followee.
type Fan struct {
	ID        string `gorm:"primaryKey;type:varchar(36)"`
	UserID    string `gorm:"type:varchar(36);index:idx_fan_user;index:idx_fan_pair,unique;not null"`
	FanID     string `gorm:"type:varchar(36);not null;index:idx_fan_pair,unique"`
	CreatedAt time.Time
}

func (Fan) TableName() string { return "fans" }
