package service

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/d60-Lab/microblog/internal/model"
	"github.com/d60-Lab/microblog/internal/repository"
)

// TimelineService assembles per-user feeds. The pull path joins the follow
// edges against posts at read time; HomeInbox reads the push-materialized
// inbox written by the fanout worker.
type TimelineService interface {
	// FollowedPosts returns one page of posts authored by everyone the viewer
	// follows (the viewer included, via the self edge), newest first, plus a
	// has-next flag. An unknown viewer is ErrUserNotFound, never an empty page.
	FollowedPosts(ctx context.Context, viewerID string, page, pageSize int) ([]*model.Post, bool, error)
	PostsByAuthor(ctx context.Context, authorID string, page, pageSize int) ([]*model.Post, bool, error)
	HomeInbox(ctx context.Context, viewerID string, page, pageSize int) ([]*model.Post, bool, error)
}

type timelineService struct {
	users           repository.UserRepository
	posts           repository.PostRepository
	inbox           repository.InboxRepository
	defaultPageSize int
	maxPageSize     int
}

func NewTimelineService(users repository.UserRepository, posts repository.PostRepository, inbox repository.InboxRepository, defaultPageSize, maxPageSize int) TimelineService {
	if defaultPageSize < 1 {
		defaultPageSize = 3
	}
	if maxPageSize < defaultPageSize {
		maxPageSize = 100
	}
	return &timelineService{users: users, posts: posts, inbox: inbox, defaultPageSize: defaultPageSize, maxPageSize: maxPageSize}
}

func (s *timelineService) clamp(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = s.defaultPageSize
	}
	if pageSize > s.maxPageSize {
		pageSize = s.maxPageSize
	}
	return page, pageSize
}

func (s *timelineService) requireUser(ctx context.Context, id string) error {
	if _, err := s.users.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}

func (s *timelineService) FollowedPosts(ctx context.Context, viewerID string, page, pageSize int) ([]*model.Post, bool, error) {
	if err := s.requireUser(ctx, viewerID); err != nil {
		return nil, false, err
	}
	page, pageSize = s.clamp(page, pageSize)
	offset := (page - 1) * pageSize
	// one extra row answers has-next without a count query
	posts, err := s.posts.ListFollowed(ctx, viewerID, offset, pageSize+1)
	if err != nil {
		return nil, false, err
	}
	return trimPage(posts, pageSize)
}

func (s *timelineService) PostsByAuthor(ctx context.Context, authorID string, page, pageSize int) ([]*model.Post, bool, error) {
	if err := s.requireUser(ctx, authorID); err != nil {
		return nil, false, err
	}
	page, pageSize = s.clamp(page, pageSize)
	offset := (page - 1) * pageSize
	posts, err := s.posts.ListByAuthor(ctx, authorID, offset, pageSize+1)
	if err != nil {
		return nil, false, err
	}
	return trimPage(posts, pageSize)
}

func (s *timelineService) HomeInbox(ctx context.Context, viewerID string, page, pageSize int) ([]*model.Post, bool, error) {
	if err := s.requireUser(ctx, viewerID); err != nil {
		return nil, false, err
	}
	page, pageSize = s.clamp(page, pageSize)
	offset := (page - 1) * pageSize
	posts, err := s.inbox.ListPosts(ctx, viewerID, offset, pageSize+1)
	if err != nil {
		return nil, false, err
	}
	return trimPage(posts, pageSize)
}

func trimPage(posts []*model.Post, pageSize int) ([]*model.Post, bool, error) {
	hasNext := len(posts) > pageSize
	if hasNext {
		posts = posts[:pageSize]
	}
	return posts, hasNext, nil
}
