package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/microblog/internal/repository"
)

func newRelationshipFixture(t *testing.T) (RelationshipService, IdentityService) {
	t.Helper()
	db := newTestDB(t)
	users := repository.NewUserRepository(db)
	followRepo := repository.NewFollowRepository(db)
	fanRepo := repository.NewFanRepository(db)
	identity := NewIdentityService(db, users)
	relations := NewRelationshipService(users, followRepo, fanRepo, nil)
	return relations, identity
}

func TestFollowOutcomes(t *testing.T) {
	relations, identity := newRelationshipFixture(t)
	ctx := context.Background()

	u1, err := identity.Register(ctx, "u1@example.com", "u1", "")
	require.NoError(t, err)
	u2, err := identity.Register(ctx, "u2@example.com", "u2", "")
	require.NoError(t, err)

	outcome, err := relations.Follow(ctx, u1.ID, u2.ID)
	require.NoError(t, err)
	require.Equal(t, OutcomeCreated, outcome)
	require.True(t, outcome.Changed())

	// repeat follow reports the no-op without failing
	outcome, err = relations.Follow(ctx, u1.ID, u2.ID)
	require.NoError(t, err)
	require.Equal(t, OutcomeAlreadyFollowing, outcome)
	require.False(t, outcome.Changed())

	following, err := relations.IsFollowing(ctx, u1.ID, u2.ID)
	require.NoError(t, err)
	require.True(t, following)

	outcome, err = relations.Unfollow(ctx, u1.ID, u2.ID)
	require.NoError(t, err)
	require.Equal(t, OutcomeRemoved, outcome)

	outcome, err = relations.Unfollow(ctx, u1.ID, u2.ID)
	require.NoError(t, err)
	require.Equal(t, OutcomeNotFollowing, outcome)
	require.False(t, outcome.Changed())
}

func TestFollowUnknownUser(t *testing.T) {
	relations, identity := newRelationshipFixture(t)
	ctx := context.Background()

	u1, err := identity.Register(ctx, "u1@example.com", "u1", "")
	require.NoError(t, err)

	_, err = relations.Follow(ctx, u1.ID, "missing")
	require.ErrorIs(t, err, ErrUserNotFound)

	_, err = relations.Follow(ctx, "missing", u1.ID)
	require.ErrorIs(t, err, ErrUserNotFound)

	_, err = relations.Unfollow(ctx, u1.ID, "missing")
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestListFollowingIncludesSelfEdge(t *testing.T) {
	relations, identity := newRelationshipFixture(t)
	ctx := context.Background()

	u1, err := identity.Register(ctx, "u1@example.com", "u1", "")
	require.NoError(t, err)
	u2, err := identity.Register(ctx, "u2@example.com", "u2", "")
	require.NoError(t, err)

	_, err = relations.Follow(ctx, u1.ID, u2.ID)
	require.NoError(t, err)

	following, err := relations.ListFollowing(ctx, u1.ID, 1, 10)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{u1.ID, u2.ID}, following)

	// fans table is seeded synchronously only for the self row here
	fans, err := relations.ListFans(ctx, u1.ID, 1, 10)
	require.NoError(t, err)
	require.Equal(t, []string{u1.ID}, fans)
}

func TestRelationCounts(t *testing.T) {
	relations, identity := newRelationshipFixture(t)
	ctx := context.Background()

	u1, err := identity.Register(ctx, "u1@example.com", "u1", "")
	require.NoError(t, err)
	u2, err := identity.Register(ctx, "u2@example.com", "u2", "")
	require.NoError(t, err)

	_, err = relations.Follow(ctx, u1.ID, u2.ID)
	require.NoError(t, err)

	// self edge plus u2
	following, err := relations.FollowingCount(ctx, u1.ID)
	require.NoError(t, err)
	require.EqualValues(t, 2, following)

	// no replicator in the fixture, so only the registration self row counts
	followers, err := relations.FollowerCount(ctx, u1.ID)
	require.NoError(t, err)
	require.EqualValues(t, 1, followers)

	followers, err = relations.FollowerCount(ctx, u2.ID)
	require.NoError(t, err)
	require.EqualValues(t, 1, followers)
}
