package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
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

// Compares the two feed paths for one author with N followers: the pull
// join (follows x posts at read time) and the push inbox written by the
// fanout worker.
func main() {
	cfg := must(config.Load())
	db := must(database.InitDB(cfg))

	userRepo := repository.NewUserRepository(db)
	followRepo := repository.NewFollowRepository(db)
	fanRepo := repository.NewFanRepository(db)
	postRepo := repository.NewPostRepository(db)
	inboxRepo := repository.NewInboxRepository(db)
	publisher := service.NewPublisher(db)
	timeline := service.NewTimelineService(userRepo, postRepo, inboxRepo, 20, 200)

	N := envInt("N", 20000)
	POSTS := envInt("POSTS", 100)
	WORKERS := envInt("WORKERS", 8)
	BATCH := envInt("BATCH", 1000)
	CLAIM := envInt("CLAIM", 64)
	PAGE := envInt("PAGE", 20)

	ctx := context.Background()

	// reset for a reproducible run (local bench only)
	if db.Dialector.Name() == "postgres" {
		_ = db.Exec("TRUNCATE TABLE inbox, outbox, posts, fans, follows, users RESTART IDENTITY CASCADE").Error
	}

	// one author, N followers (plus the author's own self edge)
	author := model.User{ID: "author0", Nickname: "author0", Email: "author0@example.com"}
	_ = db.Where("id = ?", author.ID).FirstOrCreate(&author).Error
	_, _ = followRepo.Create(ctx, author.ID, author.ID)
	_ = fanRepo.Create(ctx, author.ID, author.ID)

	users := make([]model.User, N)
	for i := 0; i < N; i++ {
		id := uuid.New().String()
		users[i] = model.User{ID: id, Nickname: "u" + id[:8], Email: id[:8] + "@example.com"}
	}
	_ = db.CreateInBatches(&users, 1000).Error
	for i := 0; i < N; i++ {
		_, _ = followRepo.Create(ctx, users[i].ID, author.ID)
		_ = fanRepo.Create(ctx, author.ID, users[i].ID)
	}

	worker := service.NewFanoutWorker(db, fanRepo, inboxRepo, WORKERS, BATCH, CLAIM, 20*time.Millisecond)
	stop := worker.Start()
	defer func() { _ = stop(ctx) }()

	// publish and wait for fanout to finish
	pubDur := make([]time.Duration, 0, POSTS)
	for i := 0; i < POSTS; i++ {
		st := time.Now()
		_ = must(publisher.Publish(ctx, author.ID, fmt.Sprintf("post %d", i), "en"))
		pubDur = append(pubDur, time.Since(st))
	}
	deadline := time.Now().Add(5 * time.Minute)
	for time.Now().Before(deadline) {
		var pending int64
		_ = db.Model(&model.Outbox{}).Where("status <> 'done'").Count(&pending).Error
		if pending == 0 {
			break
		}
		time.Sleep(200 * time.Millisecond)
	}

	fmt.Printf("publish: n=%d p50=%v p95=%v p99=%v\n",
		POSTS, pct(pubDur, 0.50), pct(pubDur, 0.95), pct(pubDur, 0.99))

	// pull path: join at read time
	reader := users[0].ID
	pullDur := make([]time.Duration, 0, 500)
	for i := 0; i < 500; i++ {
		st := time.Now()
		_, _, _ = timeline.FollowedPosts(ctx, reader, 1, PAGE)
		pullDur = append(pullDur, time.Since(st))
	}
	fmt.Printf("pull feed (page=%d): p50=%v p95=%v p99=%v\n",
		PAGE, pct(pullDur, 0.50), pct(pullDur, 0.95), pct(pullDur, 0.99))

	// push path: pre-materialized inbox
	pushDur := make([]time.Duration, 0, 500)
	for i := 0; i < 500; i++ {
		st := time.Now()
		_, _, _ = timeline.HomeInbox(ctx, reader, 1, PAGE)
		pushDur = append(pushDur, time.Since(st))
	}
	fmt.Printf("push feed (page=%d): p50=%v p95=%v p99=%v\n",
		PAGE, pct(pushDur, 0.50), pct(pushDur, 0.95), pct(pushDur, 0.99))

	cnt, _ := inboxRepo.CountForUser(ctx, reader)
	fmt.Printf("inbox entries for reader: %d\n", cnt)
}
