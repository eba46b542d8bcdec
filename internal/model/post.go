package model

import "time"

// Post is one immutable authored entry. Language is whatever the caller's
// guesser produced, blank when unknown.
// Index names stay derived: the sharded store migrates this model into
// posts_0..posts_N inside one database, and explicit names would collide.
type Post struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)"`
	AuthorID  string    `gorm:"type:varchar(36);index;not null"`
	Body      string    `gorm:"type:varchar(140);not null"`
	Language  string    `gorm:"type:varchar(5)"`
	CreatedAt time.Time `gorm:"index"`
}

func (Post) TableName() string { return "posts" }
