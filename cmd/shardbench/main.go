package main

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/d60-Lab/microblog/internal/model"
	"github.com/d60-Lab/microblog/internal/repository"
)

// Compares post writes and per-author archive reads on a single database
// versus the author-sharded store.
func main() {
	ctx := context.Background()

	authors := envInt("AUTHORS", 1000)
	postsPerAuthor := envInt("POSTS_PER_AUTHOR", 20)
	conc := envInt("CONC", 16)
	readSeconds := envInt("READ_SECONDS", 10)

	fmt.Printf("authors=%d posts/author=%d conc=%d\n", authors, postsPerAuthor, conc)

	posts := generatePosts(authors, postsPerAuthor)

	// single database
	single := repository.NewSingleDBPostStore(openDB("file:shard_single?mode=memory&cache=shared"))
	mustDo(single.InitSchema())
	runStore(ctx, "single", single, posts, conc, readSeconds)
	_ = single.Close()

	// sharded
	dbs := make([]*gorm.DB, repository.PostShardCount)
	for i := range dbs {
		dbs[i] = openDB(fmt.Sprintf("file:shard_%d?mode=memory&cache=shared", i))
	}
	sharded := must(repository.NewShardedPostStore(dbs))
	mustDo(sharded.InitSchema())
	runStore(ctx, "sharded", sharded, posts, conc, readSeconds)
	_ = sharded.Close()
}

func runStore(ctx context.Context, name string, store repository.PostStore, posts []*model.Post, conc, readSeconds int) {
	// writes
	var wg sync.WaitGroup
	var failed atomic.Int64
	writeDur := make([]time.Duration, len(posts))
	per := (len(posts) + conc - 1) / conc
	start := time.Now()
	for w := 0; w < conc; w++ {
		lo, hi := w*per, min((w+1)*per, len(posts))
		if lo >= hi {
			break
		}
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			for i := lo; i < hi; i++ {
				st := time.Now()
				if err := store.Create(ctx, posts[i]); err != nil {
					failed.Add(1)
				}
				writeDur[i] = time.Since(st)
			}
		}(lo, hi)
	}
	wg.Wait()
	elapsed := time.Since(start)
	fmt.Printf("[%s] insert: n=%d failed=%d qps=%.0f p95=%v p99=%v\n",
		name, len(posts), failed.Load(), float64(len(posts))/elapsed.Seconds(),
		pct(writeDur, 0.95), pct(writeDur, 0.99))

	// reads: random author archives for a fixed duration
	authorIDs := make([]string, 0)
	seen := map[string]bool{}
	for _, p := range posts {
		if !seen[p.AuthorID] {
			seen[p.AuthorID] = true
			authorIDs = append(authorIDs, p.AuthorID)
		}
	}
	var total atomic.Int64
	var mu sync.Mutex
	readDur := make([]time.Duration, 0, 1<<16)
	deadline := time.Now().Add(time.Duration(readSeconds) * time.Second)
	for w := 0; w < conc; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rnd := rand.New(rand.NewSource(seed))
			local := make([]time.Duration, 0, 4096)
			for time.Now().Before(deadline) {
				author := authorIDs[rnd.Intn(len(authorIDs))]
				st := time.Now()
				_, _ = store.ListByAuthor(ctx, author, 20)
				local = append(local, time.Since(st))
				total.Add(1)
			}
			mu.Lock()
			readDur = append(readDur, local...)
			mu.Unlock()
		}(int64(w))
	}
	wg.Wait()
	fmt.Printf("[%s] read by author: n=%d qps=%.0f p95=%v p99=%v\n",
		name, total.Load(), float64(total.Load())/float64(readSeconds),
		pct(readDur, 0.95), pct(readDur, 0.99))

	cnt, _ := store.Count(ctx)
	fmt.Printf("[%s] total rows: %d\n", name, cnt)
}

func generatePosts(authors, perAuthor int) []*model.Post {
	out := make([]*model.Post, 0, authors*perAuthor)
	base := time.Now().Add(-24 * time.Hour)
	for a := 0; a < authors; a++ {
		authorID := fmt.Sprintf("author_%05d", a)
		for p := 0; p < perAuthor; p++ {
			out = append(out, &model.Post{
				ID:        uuid.NewString(),
				AuthorID:  authorID,
				Body:      fmt.Sprintf("post %d by %s", p, authorID),
				CreatedAt: base.Add(time.Duration(a*perAuthor+p) * time.Second),
			})
		}
	}
	return out
}

func openDB(dsn string) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		panic(err)
	}
	return db
}

func envInt(name string, def int) int {
	if s := os.Getenv(name); s != "" {
		if v, e := strconv.Atoi(s); e == nil && v > 0 {
			return v
		}
	}
	return def
}

func pct(vs []time.Duration, p float64) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	xs := append([]time.Duration(nil), vs...)
	sort.Slice(xs, func(i, j int) bool { return xs[i] < xs[j] })
	k := int(math.Ceil(p*float64(len(xs)))) - 1
	if k < 0 {
		k = 0
	}
	if k >= len(xs) {
		k = len(xs) - 1
	}
	return xs[k]
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func mustDo(err error) {
	if err != nil {
		panic(err)
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
