package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/microblog/internal/model"
)

type InboxRepository interface {
	CreateBatch(ctx context.Context, entries []model.Inbox) error
	// ListPosts reads the materialized home timeline, newest first.
	ListPosts(ctx context.Context, userID string, offset, limit int) ([]*model.Post, error)
	CountForUser(ctx context.Context, userID string) (int64, error)
}

type inboxRepository struct{ db *gorm.DB }

func NewInboxRepository(db *gorm.DB) InboxRepository { return &inboxRepository{db: db} }

func (r *inboxRepository) CreateBatch(ctx context.Context, entries []model.Inbox) error {
	if len(entries) == 0 {
		return nil
	}
	// redelivery after a crashed fanout hits ux_inbox_user_post and is dropped
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&entries).Error
}

func (r *inboxRepository) ListPosts(ctx context.Context, userID string, offset, limit int) ([]*model.Post, error) {
	var res []*model.Post
	err := r.db.WithContext(ctx).
		Model(&model.Post{}).
		Joins("JOIN inbox ON inbox.post_id = posts.id").
		Where("inbox.user_id = ?", userID).
		Order("inbox.score DESC, inbox.post_id DESC").
		Offset(offset).Limit(limit).
		Find(&res).Error
	return res, err
}

func (r *inboxRepository) CountForUser(ctx context.Context, userID string) (int64, error) {
	var cnt int64
	err := r.db.WithContext(ctx).
		Model(&model.Inbox{}).
		Where("user_id = ?", userID).
		Count(&cnt).Error
	return cnt, err
}
