package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/d60-Lab/microblog/config"
	"github.com/d60-Lab/microblog/internal/model"
	"github.com/d60-Lab/microblog/internal/repository"
	"github.com/d60-Lab/microblog/internal/service"
	"github.com/d60-Lab/microblog/pkg/database"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
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

func envInt(name string, def int) int {
	if s := os.Getenv(name); s != "" {
		if v, e := strconv.Atoi(s); e == nil && v > 0 {
			return v
		}
	}
	return def
}

func main() {
	cfg := must(config.Load())
	db := must(database.InitDB(cfg))

	userRepo := repository.NewUserRepository(db)
	followRepo := repository.NewFollowRepository(db)
	fanRepo := repository.NewFanRepository(db)
	replicator := service.NewFanReplicator(fanRepo, 100000)
	stop := replicator.Start(8)
	relSvc := service.NewRelationshipService(userRepo, followRepo, fanRepo, replicator)

	ctx := context.Background()

	N := envInt("N", 10000)
	CONC := envInt("CONC", 1)
	PAGE := envInt("PAGE", 50)

	// seed: u0 is the celebrity; everyone else follows u0
	celeb := model.User{ID: "u0", Nickname: "u0", Email: "u0@example.com"}
	_ = db.Where("id = ?", celeb.ID).FirstOrCreate(&celeb).Error
	users := make([]model.User, N)
	batch := 1000
	for i := 0; i < N; i++ {
		id := uuid.New().String()
		users[i] = model.User{ID: id, Nickname: "u" + id[:8], Email: id[:8] + "@example.com"}
		if (i+1)%batch == 0 {
			sub := users[i+1-batch : i+1]
			_ = db.Create(&sub).Error
		}
	}
	if rem := N % batch; rem != 0 {
		sub := users[N-rem:]
		_ = db.Create(&sub).Error
	}

	// follow writes
	followDur := make([]time.Duration, 0, N)
	var mu sync.Mutex
	var wg sync.WaitGroup
	per := N / CONC
	start := time.Now()
	for w := 0; w < CONC; w++ {
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			local := make([]time.Duration, 0, hi-lo)
			for i := lo; i < hi; i++ {
				st := time.Now()
				_, _ = relSvc.Follow(ctx, users[i].ID, celeb.ID)
				local = append(local, time.Since(st))
			}
			mu.Lock()
			followDur = append(followDur, local...)
			mu.Unlock()
		}(w*per, min((w+1)*per, N))
	}
	wg.Wait()
	elapsed := time.Since(start)

	fmt.Printf("follow writes: n=%d conc=%d total=%v qps=%.0f p50=%v p95=%v p99=%v\n",
		N, CONC, elapsed, float64(N)/elapsed.Seconds(),
		pct(followDur, 0.50), pct(followDur, 0.95), pct(followDur, 0.99))

	// wait for fan redundancy to drain, then measure both list directions
	for replicator.QueueLen() > 0 {
		time.Sleep(100 * time.Millisecond)
	}

	listDur := make([]time.Duration, 0, 200)
	for i := 0; i < 200; i++ {
		st := time.Now()
		_, _ = relSvc.ListFans(ctx, celeb.ID, 1, PAGE)
		listDur = append(listDur, time.Since(st))
	}
	fmt.Printf("list fans (page=%d): p50=%v p95=%v p99=%v\n",
		PAGE, pct(listDur, 0.50), pct(listDur, 0.95), pct(listDur, 0.99))

	listDur = listDur[:0]
	for i := 0; i < 200; i++ {
		st := time.Now()
		_, _ = relSvc.ListFollowing(ctx, users[i%N].ID, 1, PAGE)
		listDur = append(listDur, time.Since(st))
	}
	fmt.Printf("list following (page=%d): p50=%v p95=%v p99=%v\n",
		PAGE, pct(listDur, 0.50), pct(listDur, 0.95), pct(listDur, 0.99))

	_ = stop(ctx)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
