package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/d60-Lab/microblog/internal/model"
)

func newShardedStore(t *testing.T) *ShardedPostStore {
	t.Helper()
	dbs := make([]*gorm.DB, PostShardCount)
	for i := range dbs {
		db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		})
		require.NoError(t, err)
		sqlDB, err := db.DB()
		require.NoError(t, err)
		sqlDB.SetMaxOpenConns(1)
		dbs[i] = db
	}
	store, err := NewShardedPostStore(dbs)
	require.NoError(t, err)
	require.NoError(t, store.InitSchema())
	return store
}

func TestInitSchemaCreatesEveryTable(t *testing.T) {
	// all PostTableCount tables live in one database, so migration must not
	// reuse an index name across them
	store := newShardedStore(t)
	for i := 0; i < PostShardCount; i++ {
		db := store.shards[i][0]
		for j := 0; j < PostTableCount; j++ {
			require.True(t, db.Migrator().HasTable(postTableName(j)), "db %d table %s", i, postTableName(j))
		}
	}
}

func TestRoutingIsDeterministic(t *testing.T) {
	for _, key := range []string{"alice", "bob", "carol"} {
		db1 := RouteByAuthorID(key)
		db2 := RouteByAuthorID(key)
		require.Equal(t, db1, db2)
		require.GreaterOrEqual(t, db1, 0)
		require.Less(t, db1, PostShardCount)

		tbl := RouteByPostID(key)
		require.GreaterOrEqual(t, tbl, 0)
		require.Less(t, tbl, PostTableCount)
	}
}

func TestShardedStoreMergesAuthorArchive(t *testing.T) {
	store := newShardedStore(t)
	ctx := context.Background()

	// enough posts that ids spread across several tables of one database
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	const n = 40
	for i := 0; i < n; i++ {
		p := &model.Post{
			ID:        fmt.Sprintf("post-%03d", i),
			AuthorID:  "alice",
			Body:      "b",
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, store.Create(ctx, p))
	}

	posts, err := store.ListByAuthor(ctx, "alice", 10)
	require.NoError(t, err)
	require.Len(t, posts, 10)
	for i := 0; i < len(posts)-1; i++ {
		require.False(t, posts[i].CreatedAt.Before(posts[i+1].CreatedAt))
	}
	require.Equal(t, fmt.Sprintf("post-%03d", n-1), posts[0].ID)

	total, err := store.Count(ctx)
	require.NoError(t, err)
	require.EqualValues(t, n, total)
}

func TestShardedStoreIsolatesAuthors(t *testing.T) {
	store := newShardedStore(t)
	ctx := context.Background()

	for i, author := range []string{"alice", "bob"} {
		p := &model.Post{
			ID:        fmt.Sprintf("p-%s", author),
			AuthorID:  author,
			Body:      "b",
			CreatedAt: time.Date(2024, 6, 1, 12, 0, i, 0, time.UTC),
		}
		require.NoError(t, store.Create(ctx, p))
	}

	posts, err := store.ListByAuthor(ctx, "alice", 10)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	require.Equal(t, "alice", posts[0].AuthorID)
}

func TestSingleStoreMatchesShardedOrdering(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	single := NewSingleDBPostStore(db)
	require.NoError(t, single.InitSchema())
	sharded := newShardedStore(t)
	ctx := context.Background()

	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 20; i++ {
		p := model.Post{
			ID:        fmt.Sprintf("post-%03d", i),
			AuthorID:  "alice",
			Body:      "b",
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		cp := p
		require.NoError(t, single.Create(ctx, &cp))
		cp = p
		require.NoError(t, sharded.Create(ctx, &cp))
	}

	fromSingle, err := single.ListByAuthor(ctx, "alice", 7)
	require.NoError(t, err)
	fromSharded, err := sharded.ListByAuthor(ctx, "alice", 7)
	require.NoError(t, err)

	require.Equal(t, len(fromSingle), len(fromSharded))
	for i := range fromSingle {
		require.Equal(t, fromSingle[i].ID, fromSharded[i].ID)
	}
}
