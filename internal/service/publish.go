package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/d60-Lab/microblog/internal/model"
)

// Publisher lands a post and its outbox event in one transaction.
type Publisher struct {
	db *gorm.DB
}

func NewPublisher(db *gorm.DB) *Publisher { return &Publisher{db: db} }

// normalizeLanguage mirrors the upstream guesser contract: anything unknown
// or longer than a 5-char tag collapses to empty.
func normalizeLanguage(lang string) string {
	if lang == "UNKNOWN" || len(lang) > 5 {
		return ""
	}
	return lang
}

// Publish validates the author, then writes posts + outbox atomically.
// The body arrives pre-validated by the edge; no length policy here.
func (p *Publisher) Publish(ctx context.Context, authorID, body, language string) (*model.Post, error) {
	var exists int64
	if err := p.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", authorID).
		Count(&exists).Error; err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, ErrUserNotFound
	}

	now := time.Now().UTC()
	post := &model.Post{
		ID:        uuid.New().String(),
		AuthorID:  authorID,
		Body:      body,
		Language:  normalizeLanguage(language),
		CreatedAt: now,
	}
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(post).Error; err != nil {
			return err
		}
		out := &model.Outbox{
			ID:        uuid.New().String(),
			PostID:    post.ID,
			AuthorID:  authorID,
			CreatedAt: now,
			Status:    "pending",
		}
		return tx.Create(out).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return post, nil
}
