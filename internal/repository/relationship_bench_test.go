package repository

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/d60-Lab/microblog/internal/model"
)

func setupRelBenchDB(b *testing.B) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		b.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		b.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&model.User{}, &model.Follow{}, &model.Fan{}); err != nil {
		b.Fatalf("migrate: %v", err)
	}
	return db
}

func BenchmarkFollowWrite_And_FanRedundancy(b *testing.B) {
	db := setupRelBenchDB(b)
	followRepo := NewFollowRepository(db)
	fanRepo := NewFanRepository(db)
	ctx := context.Background()

	users := make([]model.User, 1000)
	for i := range users {
		id := fmt.Sprintf("u%04d", i)
		users[i] = model.User{ID: id, Nickname: id, Email: id + "@example.com"}
	}
	if err := db.Create(&users).Error; err != nil {
		b.Fatalf("seed users: %v", err)
	}

	rnd := rand.New(rand.NewSource(1))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		from := users[rnd.Intn(len(users))].ID
		to := users[rnd.Intn(len(users))].ID
		_, _ = followRepo.Create(ctx, from, to)
		_ = fanRepo.Create(ctx, to, from)
	}
}

func BenchmarkQueryFansAndFollowing(b *testing.B) {
	db := setupRelBenchDB(b)
	followRepo := NewFollowRepository(db)
	fanRepo := NewFanRepository(db)
	ctx := context.Background()

	// u0 has N fans and follows N users
	const N = 5000
	u0 := model.User{ID: "u0", Nickname: "u0", Email: "u0@example.com"}
	_ = db.Create(&u0).Error
	for i := 1; i <= N; i++ {
		uid := fmt.Sprintf("u%v", i)
		_ = db.Create(&model.User{ID: uid, Nickname: uid, Email: uid + "@example.com"}).Error
		_, _ = followRepo.Create(ctx, uid, u0.ID)
		_ = fanRepo.Create(ctx, u0.ID, uid)
		_, _ = followRepo.Create(ctx, u0.ID, uid)
		_ = fanRepo.Create(ctx, uid, u0.ID)
	}

	b.ResetTimer()
	b.Run("ListFans", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_, _ = fanRepo.ListFans(ctx, u0.ID, 0, 50)
		}
	})

	b.Run("ListFollowees", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_, _ = followRepo.ListFollowees(ctx, u0.ID, 0, 50)
		}
	})
}

func BenchmarkFollowedPostsJoin(b *testing.B) {
	db := setupRelBenchDB(b)
	if err := db.AutoMigrate(&model.Post{}); err != nil {
		b.Fatalf("migrate posts: %v", err)
	}
	followRepo := NewFollowRepository(db)
	postRepo := NewPostRepository(db)
	ctx := context.Background()

	// viewer follows 200 authors with 50 posts each
	const authors = 200
	const perAuthor = 50
	viewer := model.User{ID: "viewer", Nickname: "viewer", Email: "viewer@example.com"}
	_ = db.Create(&viewer).Error
	_, _ = followRepo.Create(ctx, viewer.ID, viewer.ID)
	for a := 0; a < authors; a++ {
		uid := fmt.Sprintf("a%04d", a)
		_ = db.Create(&model.User{ID: uid, Nickname: uid, Email: uid + "@example.com"}).Error
		_, _ = followRepo.Create(ctx, viewer.ID, uid)
		posts := make([]model.Post, perAuthor)
		for p := 0; p < perAuthor; p++ {
			posts[p] = model.Post{ID: fmt.Sprintf("%s-p%03d", uid, p), AuthorID: uid, Body: "b"}
		}
		_ = db.Create(&posts).Error
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = postRepo.ListFollowed(ctx, viewer.ID, 0, 20)
	}
}
