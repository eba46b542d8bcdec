package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/microblog/internal/model"
)

func TestListFollowedJoinsEdgesWithPosts(t *testing.T) {
	db := newTestDB(t)
	followRepo := NewFollowRepository(db)
	postRepo := NewPostRepository(db)
	ctx := context.Background()

	seedUser(t, db, "viewer")
	seedUser(t, db, "followed")
	seedUser(t, db, "stranger")
	_, err := followRepo.Create(ctx, "viewer", "viewer")
	require.NoError(t, err)
	_, err = followRepo.Create(ctx, "viewer", "followed")
	require.NoError(t, err)

	now := time.Now().UTC()
	for i, author := range []string{"viewer", "followed", "stranger"} {
		p := &model.Post{
			ID:        fmt.Sprintf("p%d", i+1),
			AuthorID:  author,
			Body:      "post from " + author,
			CreatedAt: now.Add(time.Duration(i+1) * time.Second),
		}
		require.NoError(t, postRepo.Create(ctx, p))
	}

	posts, err := postRepo.ListFollowed(ctx, "viewer", 0, 10)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	// newest first, stranger's post absent
	require.Equal(t, "p2", posts[0].ID)
	require.Equal(t, "p1", posts[1].ID)
}

func TestListFollowedTieBreakIsStable(t *testing.T) {
	db := newTestDB(t)
	followRepo := NewFollowRepository(db)
	postRepo := NewPostRepository(db)
	ctx := context.Background()

	seedUser(t, db, "u1")
	_, err := followRepo.Create(ctx, "u1", "u1")
	require.NoError(t, err)

	// identical timestamps break on id descending
	ts := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	for _, id := range []string{"aaa", "zzz", "mmm"} {
		p := &model.Post{ID: id, AuthorID: "u1", Body: "b", CreatedAt: ts}
		require.NoError(t, postRepo.Create(ctx, p))
	}

	want := []string{"zzz", "mmm", "aaa"}
	for i := 0; i < 3; i++ {
		posts, err := postRepo.ListFollowed(ctx, "u1", 0, 10)
		require.NoError(t, err)
		got := make([]string, len(posts))
		for j, p := range posts {
			got[j] = p.ID
		}
		require.Equal(t, want, got)
	}
}

func TestListByAuthorNewestFirst(t *testing.T) {
	db := newTestDB(t)
	postRepo := NewPostRepository(db)
	ctx := context.Background()
	seedUser(t, db, "u1")

	now := time.Now().UTC()
	for i := 0; i < 3; i++ {
		p := &model.Post{
			ID:        fmt.Sprintf("p%d", i),
			AuthorID:  "u1",
			Body:      "b",
			CreatedAt: now.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, postRepo.Create(ctx, p))
	}

	posts, err := postRepo.ListByAuthor(ctx, "u1", 0, 2)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	require.Equal(t, "p2", posts[0].ID)
	require.Equal(t, "p1", posts[1].ID)
}

func TestInboxBatchIgnoresDuplicates(t *testing.T) {
	db := newTestDB(t)
	inboxRepo := NewInboxRepository(db)
	postRepo := NewPostRepository(db)
	ctx := context.Background()
	seedUser(t, db, "u1")

	p := &model.Post{ID: "p1", AuthorID: "u1", Body: "b", CreatedAt: time.Now().UTC()}
	require.NoError(t, postRepo.Create(ctx, p))

	entries := []model.Inbox{{ID: "i1", UserID: "u1", PostID: "p1", Score: 1}}
	require.NoError(t, inboxRepo.CreateBatch(ctx, entries))
	// redelivery of the same (user, post) pair is dropped
	entries = []model.Inbox{{ID: "i2", UserID: "u1", PostID: "p1", Score: 1}}
	require.NoError(t, inboxRepo.CreateBatch(ctx, entries))

	cnt, err := inboxRepo.CountForUser(ctx, "u1")
	require.NoError(t, err)
	require.EqualValues(t, 1, cnt)

	posts, err := inboxRepo.ListPosts(ctx, "u1", 0, 10)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	require.Equal(t, "p1", posts[0].ID)
}
