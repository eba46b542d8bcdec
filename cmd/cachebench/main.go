package main

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/d60-Lab/microblog/config"
	"github.com/d60-Lab/microblog/internal/cacheperf"
	"github.com/d60-Lab/microblog/internal/model"
	"github.com/d60-Lab/microblog/pkg/database"
)

type request struct {
	page int
	size int
}

func main() {
	ctx := context.Background()

	cfg := must(config.Load())
	db := must(database.InitDB(cfg))

	// fresh tables for a reproducible run
	_ = db.Exec("DELETE FROM fans").Error
	_ = db.Exec("DELETE FROM users").Error

	const (
		userCount  = 20000
		ttlMinutes = 10
	)

	fmt.Println("Setting up test data...")

	celebs := make([]model.User, 3)
	for i := range celebs {
		id := fmt.Sprintf("celeb%d", i+1)
		celebs[i] = model.User{ID: id, Nickname: id, Email: id + "@example.com"}
		mustDo(db.Create(&celebs[i]).Error)
	}

	followers := make([]model.User, userCount)
	for i := 0; i < userCount; i++ {
		id := uuid.NewString()
		followers[i] = model.User{
			ID:       id,
			Nickname: fmt.Sprintf("user_%d", i),
			Email:    fmt.Sprintf("user_%d@example.com", i),
			AboutMe:  "hello",
		}
	}
	mustDo(db.CreateInBatches(&followers, 1000).Error)

	// overlapping follower sets per celebrity
	base := time.Now()
	for ci, celeb := range celebs {
		rows := make([]model.Fan, userCount/2)
		for i := 0; i < userCount/2; i++ {
			rows[i] = model.Fan{
				ID:        uuid.NewString(),
				UserID:    celeb.ID,
				FanID:     followers[(i+ci*userCount/4)%userCount].ID,
				CreatedAt: base.Add(-time.Duration(i) * time.Second),
			}
		}
		mustDo(db.CreateInBatches(&rows, 1000).Error)
	}
	fmt.Println("Test data ready: 3 users with overlapping followers")

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = cfg.Redis.Addr
	}
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{Addr: redisAddr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	defer client.Close()
	if err := client.Ping(ctx).Err(); err != nil {
		panic(fmt.Sprintf("redis at %s: %v", redisAddr, err))
	}

	svc := cacheperf.NewFollowerService(db, client, ttlMinutes*time.Minute, 0)

	allReqs := make([]userRequest, 0, 9000)
	for _, celeb := range celebs {
		for _, r := range makeRequests(3000) {
			allReqs = append(allReqs, userRequest{celeb.ID, r})
		}
	}

	noCache := runScenario(ctx, svc, allReqs, false, svc.FetchFollowersNoCache, client)
	naive := runScenario(ctx, svc, allReqs, true, svc.FetchFollowersNaiveCache, client)
	optimized := runScenario(ctx, svc, allReqs, true, svc.FetchFollowersOptimized, client)

	fmt.Println("\nFollower list latency (9k req across 3 users, 20k users)")
	report("No cache", noCache)
	report("Naive list cache", naive)
	report("Optimized cache", optimized)
}

type userRequest struct {
	userID string
	req    request
}

type scenarioResult struct {
	durations []time.Duration
	counters  cacheperf.FollowerDBCounters
	cacheKeys int
}

func report(name string, r scenarioResult) {
	fmt.Printf("%-18s avg=%v p95=%v p99=%v db_page=%d db_index=%d db_user_bulk=%d cache_keys=%d\n",
		name, avg(r.durations), pct(r.durations, 0.95), pct(r.durations, 0.99),
		r.counters.PageQueries, r.counters.IndexLoads, r.counters.UserBulkLoad, r.cacheKeys)
}

func runScenario(ctx context.Context, svc *cacheperf.FollowerService, reqs []userRequest, warm bool,
	call func(context.Context, string, int, int) ([]cacheperf.FollowerSnapshot, error), client *redis.Client) scenarioResult {

	client.FlushAll(ctx)
	svc.ResetCounters()

	if warm {
		fmt.Print("  Warming cache...")
		for _, r := range reqs {
			if _, err := call(ctx, r.userID, r.req.page, r.req.size); err != nil {
				panic(err)
			}
		}
		fmt.Println(" done")
	}

	fmt.Print("  Running benchmark...")
	out := make([]time.Duration, 0, len(reqs))
	for _, r := range reqs {
		start := time.Now()
		if _, err := call(ctx, r.userID, r.req.page, r.req.size); err != nil {
			panic(err)
		}
		out = append(out, time.Since(start))
	}
	fmt.Println(" done")

	keys, _ := client.Keys(ctx, "*").Result()
	return scenarioResult{durations: out, counters: svc.Counters(), cacheKeys: len(keys)}
}

func makeRequests(n int) []request {
	sizes := []int{20, 40, 60}
	out := make([]request, n)
	rnd := rand.New(rand.NewSource(42))
	for i := 0; i < n; i++ {
		size := sizes[rnd.Intn(len(sizes))]
		page := 1
		if rnd.Float64() > 0.72 {
			// deep pagination or alternate views
			page = 2 + rnd.Intn(120)
		}
		out[i] = request{page: page, size: size}
	}
	return out
}

func avg(vs []time.Duration) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	var sum time.Duration
	for _, v := range vs {
		sum += v
	}
	return sum / time.Duration(len(vs))
}

func pct(vs []time.Duration, p float64) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), vs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := int(math.Ceil(p*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
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
