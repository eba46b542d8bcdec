package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/d60-Lab/microblog/internal/model"
)

// SingleDBPostStore keeps all posts in one database.
type SingleDBPostStore struct {
	db *gorm.DB
}

func NewSingleDBPostStore(db *gorm.DB) *SingleDBPostStore {
	return &SingleDBPostStore{db: db}
}

func (s *SingleDBPostStore) Create(ctx context.Context, post *model.Post) error {
	return s.db.WithContext(ctx).Create(post).Error
}

func (s *SingleDBPostStore) ListByAuthor(ctx context.Context, authorID string, limit int) ([]*model.Post, error) {
	var posts []*model.Post
	err := s.db.WithContext(ctx).
		Where("author_id = ?", authorID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&posts).Error
	return posts, err
}

func (s *SingleDBPostStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.Post{}).Count(&count).Error
	return count, err
}

func (s *SingleDBPostStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *SingleDBPostStore) InitSchema() error {
	if err := s.db.AutoMigrate(&model.Post{}); err != nil {
		return fmt.Errorf("migrate posts table: %w", err)
	}
	return nil
}
