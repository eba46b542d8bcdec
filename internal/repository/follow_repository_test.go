package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFollowCreateIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	repo := NewFollowRepository(db)
	ctx := context.Background()
	seedUser(t, db, "u1")
	seedUser(t, db, "u2")

	created, err := repo.Create(ctx, "u1", "u2")
	require.NoError(t, err)
	require.True(t, created)

	// second insert of the same pair affects nothing
	created, err = repo.Create(ctx, "u1", "u2")
	require.NoError(t, err)
	require.False(t, created)

	exists, err := repo.Exists(ctx, "u1", "u2")
	require.NoError(t, err)
	require.True(t, exists)

	cnt, err := repo.CountFollowees(ctx, "u1")
	require.NoError(t, err)
	require.EqualValues(t, 1, cnt)
}

func TestFollowDeleteReportsRemoval(t *testing.T) {
	db := newTestDB(t)
	repo := NewFollowRepository(db)
	ctx := context.Background()
	seedUser(t, db, "u1")
	seedUser(t, db, "u2")

	removed, err := repo.Delete(ctx, "u1", "u2")
	require.NoError(t, err)
	require.False(t, removed)

	_, err = repo.Create(ctx, "u1", "u2")
	require.NoError(t, err)

	removed, err = repo.Delete(ctx, "u1", "u2")
	require.NoError(t, err)
	require.True(t, removed)

	removed, err = repo.Delete(ctx, "u1", "u2")
	require.NoError(t, err)
	require.False(t, removed)

	exists, err := repo.Exists(ctx, "u1", "u2")
	require.NoError(t, err)
	require.False(t, exists)
}

func TestFollowSelfEdgeAllowed(t *testing.T) {
	db := newTestDB(t)
	repo := NewFollowRepository(db)
	ctx := context.Background()
	seedUser(t, db, "u1")

	created, err := repo.Create(ctx, "u1", "u1")
	require.NoError(t, err)
	require.True(t, created)

	exists, err := repo.Exists(ctx, "u1", "u1")
	require.NoError(t, err)
	require.True(t, exists)
}

func TestListFollowees(t *testing.T) {
	db := newTestDB(t)
	repo := NewFollowRepository(db)
	ctx := context.Background()
	for _, id := range []string{"u1", "a", "b", "c"} {
		seedUser(t, db, id)
	}
	for _, id := range []string{"a", "b", "c"} {
		_, err := repo.Create(ctx, "u1", id)
		require.NoError(t, err)
	}

	follows, err := repo.ListFollowees(ctx, "u1", 0, 10)
	require.NoError(t, err)
	require.Len(t, follows, 3)

	follows, err = repo.ListFollowees(ctx, "u1", 2, 10)
	require.NoError(t, err)
	require.Len(t, follows, 1)
}
