package repository

import (
	"context"

	"github.com/d60-Lab/microblog/internal/model"
)

// PostStore is the storage contract shared by the single-database and the
// sharded post backends. The sharded variant exists for the capacity
// experiments under cmd/shardbench; the API server uses the single one.
type PostStore interface {
	Create(ctx context.Context, post *model.Post) error
	ListByAuthor(ctx context.Context, authorID string, limit int) ([]*model.Post, error)
	Count(ctx context.Context) (int64, error)
	Close() error
}
