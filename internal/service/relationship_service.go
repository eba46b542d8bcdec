package service

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/d60-Lab/microblog/internal/repository"
)

// FollowOutcome is the tagged result of an edge mutation. No-op conditions
// are legitimate outcomes, not errors.
type FollowOutcome int

const (
	OutcomeCreated FollowOutcome = iota + 1
	OutcomeAlreadyFollowing
	OutcomeRemoved
	OutcomeNotFollowing
)

func (o FollowOutcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeAlreadyFollowing:
		return "already_following"
	case OutcomeRemoved:
		return "removed"
	case OutcomeNotFollowing:
		return "not_following"
	default:
		return "unknown"
	}
}

// Changed reports whether the edge set actually mutated.
func (o FollowOutcome) Changed() bool {
	return o == OutcomeCreated || o == OutcomeRemoved
}

// RelationshipService owns the directed follower graph. It never touches
// posts; graph state only.
type RelationshipService interface {
	Follow(ctx context.Context, followerID, followeeID string) (FollowOutcome, error)
	Unfollow(ctx context.Context, followerID, followeeID string) (FollowOutcome, error)
	IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error)
	// ListFollowing reads the forward direction from the follows table.
	ListFollowing(ctx context.Context, userID string, page, pageSize int) ([]string, error)
	// ListFans reads the reverse direction from the async-maintained fans
	// table; eventual visibility is acceptable there.
	ListFans(ctx context.Context, userID string, page, pageSize int) ([]string, error)
	// FollowerCount counts the fans table, so it shares ListFans' eventual
	// visibility. FollowingCount counts the authoritative follows table.
	FollowerCount(ctx context.Context, userID string) (int64, error)
	FollowingCount(ctx context.Context, userID string) (int64, error)
}

type relationshipService struct {
	users      repository.UserRepository
	followRepo repository.FollowRepository
	fanRepo    repository.FanRepository
	replicator *FanReplicator
}

func NewRelationshipService(users repository.UserRepository, followRepo repository.FollowRepository, fanRepo repository.FanRepository, replicator *FanReplicator) RelationshipService {
	return &relationshipService{users: users, followRepo: followRepo, fanRepo: fanRepo, replicator: replicator}
}

func (s *relationshipService) checkUsers(ctx context.Context, ids ...string) error {
	for _, id := range ids {
		if _, err := s.users.GetByID(ctx, id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}
	}
	return nil
}

func (s *relationshipService) Follow(ctx context.Context, followerID, followeeID string) (FollowOutcome, error) {
	if err := s.checkUsers(ctx, followerID, followeeID); err != nil {
		return 0, err
	}
	created, err := s.followRepo.Create(ctx, followerID, followeeID)
	if err != nil {
		return 0, err
	}
	if !created {
		return OutcomeAlreadyFollowing, nil
	}
	if s.replicator != nil {
		s.replicator.EnqueueAdd(followeeID, followerID)
	}
	return OutcomeCreated, nil
}

func (s *relationshipService) Unfollow(ctx context.Context, followerID, followeeID string) (FollowOutcome, error) {
	if err := s.checkUsers(ctx, followerID, followeeID); err != nil {
		return 0, err
	}
	removed, err := s.followRepo.Delete(ctx, followerID, followeeID)
	if err != nil {
		return 0, err
	}
	if !removed {
		return OutcomeNotFollowing, nil
	}
	if s.replicator != nil {
		s.replicator.EnqueueRemove(followeeID, followerID)
	}
	return OutcomeRemoved, nil
}

func (s *relationshipService) IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error) {
	return s.followRepo.Exists(ctx, followerID, followeeID)
}

func (s *relationshipService) ListFollowing(ctx context.Context, userID string, page, pageSize int) ([]string, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	offset := (page - 1) * pageSize
	items, err := s.followRepo.ListFollowees(ctx, userID, offset, pageSize)
	if err != nil {
		return nil, err
	}
	res := make([]string, len(items))
	for i, it := range items {
		res[i] = it.FolloweeID
	}
	return res, nil
}

func (s *relationshipService) ListFans(ctx context.Context, userID string, page, pageSize int) ([]string, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	offset := (page - 1) * pageSize
	items, err := s.fanRepo.ListFans(ctx, userID, offset, pageSize)
	if err != nil {
		return nil, err
	}
	res := make([]string, len(items))
	for i, it := range items {
		res[i] = it.FanID
	}
	return res, nil
}

func (s *relationshipService) FollowerCount(ctx context.Context, userID string) (int64, error) {
	return s.fanRepo.CountFans(ctx, userID)
}

func (s *relationshipService) FollowingCount(ctx context.Context, userID string) (int64, error) {
	return s.followRepo.CountFollowees(ctx, userID)
}
