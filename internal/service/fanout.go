package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/d60-Lab/microblog/internal/model"
	"github.com/d60-Lab/microblog/internal/repository"
	"github.com/d60-Lab/microblog/pkg/logger"
)

// FanoutWorker drains the outbox and materializes posts into follower
// inboxes. Because registration seeds a self row in fans, authors receive
// their own posts through the same path.
type FanoutWorker struct {
	db           *gorm.DB
	fanRepo      repository.FanRepository
	inboxRepo    repository.InboxRepository
	batchSize    int
	claimLimit   int
	pollInterval time.Duration
	workers      int
	metricsCh    chan time.Duration // outbox created -> processed latency
}

func NewFanoutWorker(db *gorm.DB, fanRepo repository.FanRepository, inboxRepo repository.InboxRepository, workers, batchSize, claimLimit int, pollInterval time.Duration) *FanoutWorker {
	if workers <= 0 {
		workers = 4
	}
	if batchSize <= 0 {
		batchSize = 500
	}
	if claimLimit <= 0 {
		claimLimit = 128
	}
	if pollInterval <= 0 {
		pollInterval = 50 * time.Millisecond
	}
	return &FanoutWorker{
		db:           db,
		fanRepo:      fanRepo,
		inboxRepo:    inboxRepo,
		workers:      workers,
		batchSize:    batchSize,
		claimLimit:   claimLimit,
		pollInterval: pollInterval,
		metricsCh:    make(chan time.Duration, 65536),
	}
}

func (w *FanoutWorker) Metrics() <-chan time.Duration { return w.metricsCh }

// Start launches the polling workers; returns a stop func.
func (w *FanoutWorker) Start() func(context.Context) error {
	stop := make(chan struct{})
	for i := 0; i < w.workers; i++ {
		go w.loop(stop)
	}
	return func(ctx context.Context) error { close(stop); return nil }
}

func (w *FanoutWorker) loop(stop <-chan struct{}) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			_ = w.ProcessOnce(context.Background())
		}
	}
}

// ProcessOnce claims one batch of pending outbox rows and fans them out.
func (w *FanoutWorker) ProcessOnce(ctx context.Context) error {
	type ob struct {
		ID        string
		PostID    string
		AuthorID  string
		CreatedAt time.Time
	}
	claimSQL := `
        SELECT id, post_id, author_id, created_at
        FROM outbox
        WHERE status = 'pending'
        ORDER BY created_at
        LIMIT ?`
	if w.db.Dialector.Name() == "postgres" {
		claimSQL += "\n        FOR UPDATE SKIP LOCKED"
	}
	var batch []ob
	err := w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Raw(claimSQL, w.claimLimit).Scan(&batch).Error; err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}
		ids := make([]string, len(batch))
		for i, b := range batch {
			ids[i] = b.ID
		}
		return tx.Model(&model.Outbox{}).Where("id IN ?", ids).Update("status", "processing").Error
	})
	if err != nil {
		return err
	}
	if len(batch) == 0 {
		return nil
	}

	for _, b := range batch {
		written, err := w.deliver(ctx, b.AuthorID, b.PostID, b.CreatedAt.UnixNano())
		if err != nil {
			// release the claim so a later pass retries; redelivered rows are
			// dropped by the inbox unique index
			logger.Error("fanout delivery failed",
				zap.String("outbox_id", b.ID), zap.String("post_id", b.PostID), zap.Error(err))
			_ = w.db.WithContext(ctx).Model(&model.Outbox{}).
				Where("id = ?", b.ID).
				Update("status", "pending").Error
			continue
		}
		now := time.Now()
		_ = w.db.WithContext(ctx).Model(&model.Outbox{}).
			Where("id = ?", b.ID).
			Updates(map[string]any{"status": "done", "processed_at": now, "fanout_count": written}).Error
		if !b.CreatedAt.IsZero() {
			select {
			case w.metricsCh <- time.Since(b.CreatedAt):
			default:
			}
		}
	}
	return nil
}

// deliver pages through the author's fans and writes inbox rows. Any error
// aborts so the outbox row can be reclaimed.
func (w *FanoutWorker) deliver(ctx context.Context, authorID, postID string, score int64) (int64, error) {
	offset := 0
	var total int64
	for {
		fans, err := w.fanRepo.ListFans(ctx, authorID, offset, w.batchSize)
		if err != nil {
			return total, err
		}
		if len(fans) == 0 {
			return total, nil
		}
		now := time.Now()
		records := make([]model.Inbox, 0, len(fans))
		for _, f := range fans {
			records = append(records, model.Inbox{
				ID:        uuid.New().String(),
				UserID:    f.FanID,
				PostID:    postID,
				Score:     score,
				CreatedAt: now,
			})
		}
		if err := w.inboxRepo.CreateBatch(ctx, records); err != nil {
			return total, err
		}
		total += int64(len(records))
		if len(fans) < w.batchSize {
			return total, nil
		}
		offset += w.batchSize
	}
}
