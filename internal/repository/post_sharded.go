package repository

import (
	"context"
	"fmt"
	"hash/fnv"
	"sort"
	"sync"

	"gorm.io/gorm"

	"github.com/d60-Lab/microblog/internal/model"
)

const (
	// PostShardCount databases x PostTableCount tables per database
	PostShardCount = 4
	PostTableCount = 8
)

// ShardedPostStore spreads posts across PostShardCount databases. The
// database is picked by author so one author's archive lives in a single
// database; within it, posts spread across PostTableCount tables by post id.
type ShardedPostStore struct {
	// shards[dbIndex][tableIndex] = *gorm.DB
	shards [][]*gorm.DB
}

func NewShardedPostStore(dbs []*gorm.DB) (*ShardedPostStore, error) {
	if len(dbs) != PostShardCount {
		return nil, fmt.Errorf("expected %d databases, got %d", PostShardCount, len(dbs))
	}
	shards := make([][]*gorm.DB, PostShardCount)
	for i := 0; i < PostShardCount; i++ {
		shards[i] = make([]*gorm.DB, PostTableCount)
		for j := 0; j < PostTableCount; j++ {
			shards[i][j] = dbs[i]
		}
	}
	return &ShardedPostStore{shards: shards}, nil
}

func hashKey(s string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return h.Sum32()
}

// RouteByAuthorID picks the database holding an author's posts.
func RouteByAuthorID(authorID string) int {
	return int(hashKey(authorID) % PostShardCount)
}

// RouteByPostID picks the table within the author's database.
func RouteByPostID(postID string) int {
	return int(hashKey(postID) % PostTableCount)
}

func postTableName(tableIndex int) string {
	return fmt.Sprintf("posts_%d", tableIndex)
}

func (s *ShardedPostStore) Create(ctx context.Context, post *model.Post) error {
	dbIdx := RouteByAuthorID(post.AuthorID)
	tblIdx := RouteByPostID(post.ID)
	return s.shards[dbIdx][tblIdx].WithContext(ctx).
		Table(postTableName(tblIdx)).
		Create(post).Error
}

// ListByAuthor queries every table of the author's database concurrently and
// merges by created_at DESC.
func (s *ShardedPostStore) ListByAuthor(ctx context.Context, authorID string, limit int) ([]*model.Post, error) {
	dbIdx := RouteByAuthorID(authorID)

	var wg sync.WaitGroup
	resultChan := make(chan []*model.Post, PostTableCount)
	errChan := make(chan error, PostTableCount)

	for tblIdx := 0; tblIdx < PostTableCount; tblIdx++ {
		wg.Add(1)
		go func(tableIndex int) {
			defer wg.Done()
			var posts []*model.Post
			err := s.shards[dbIdx][tableIndex].WithContext(ctx).
				Table(postTableName(tableIndex)).
				Where("author_id = ?", authorID).
				Order("created_at DESC, id DESC").
				Limit(limit).
				Find(&posts).Error
			if err != nil {
				errChan <- err
				return
			}
			resultChan <- posts
		}(tblIdx)
	}

	wg.Wait()
	close(resultChan)
	close(errChan)

	if len(errChan) > 0 {
		return nil, <-errChan
	}

	var all []*model.Post
	for posts := range resultChan {
		all = append(all, posts...)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (s *ShardedPostStore) Count(ctx context.Context) (int64, error) {
	var total int64
	var mu sync.Mutex
	var wg sync.WaitGroup
	errChan := make(chan error, PostShardCount*PostTableCount)

	for dbIdx := 0; dbIdx < PostShardCount; dbIdx++ {
		for tblIdx := 0; tblIdx < PostTableCount; tblIdx++ {
			wg.Add(1)
			go func(di, ti int) {
				defer wg.Done()
				var count int64
				if err := s.shards[di][ti].WithContext(ctx).
					Table(postTableName(ti)).
					Count(&count).Error; err != nil {
					errChan <- err
					return
				}
				mu.Lock()
				total += count
				mu.Unlock()
			}(dbIdx, tblIdx)
		}
	}

	wg.Wait()
	close(errChan)
	if len(errChan) > 0 {
		return 0, <-errChan
	}
	return total, nil
}

func (s *ShardedPostStore) Close() error {
	// the same *gorm.DB backs all tables of one shard
	seen := make(map[*gorm.DB]bool)
	for i := 0; i < PostShardCount; i++ {
		seen[s.shards[i][0]] = true
	}
	for db := range seen {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		if err := sqlDB.Close(); err != nil {
			return err
		}
	}
	return nil
}

func (s *ShardedPostStore) InitSchema() error {
	for dbIdx := 0; dbIdx < PostShardCount; dbIdx++ {
		db := s.shards[dbIdx][0]
		for tblIdx := 0; tblIdx < PostTableCount; tblIdx++ {
			name := postTableName(tblIdx)
			if err := db.Table(name).AutoMigrate(&model.Post{}); err != nil {
				return fmt.Errorf("migrate table %s in db %d: %w", name, dbIdx, err)
			}
		}
	}
	return nil
}
