package jobs

import (
	"context"
	"log/slog"
	"time"

	"caseflow.dev/caseflowlearn/pkg/storage"
	"github.com/redis/go-redis/v9"
)

const (
	FileCleanupJob       = "file_cleanup"
	LikeResyncJob        = "like_resync"
	NotificationPruneJob = "notification_prune"
	StaleReviewJob       = "stale_review_release"

	fileCleanupBatch      = 100
	NotificationRetention = 90 * 24 * time.Hour
	// ReviewTimeout is how long a review may sit untouched before the report
	// goes back to the pending queue.
	ReviewTimeout = 14 * 24 * time.Hour
)

type CounterResyncer interface {
	ResyncCounters(ctx context.Context) (int, error)
}

type StaleReviewReleaser interface {
	ReleaseStaleReviews(ctx context.Context, age time.Duration) (int64, error)
}

type NotificationPruner interface {
	PruneOlderThan(ctx context.Context, age time.Duration) (int64, error)
}

// FileCleanup retries deletions of uploads whose report or profile row is
// already gone.
func FileCleanup(fs storage.FileStorage, rdb *redis.Client) Job {
	return Func(FileCleanupJob, "*/15 * * * *", func(ctx context.Context) error {
		removed, err := storage.RetryPendingDeletions(ctx, fs, rdb, fileCleanupBatch)
		if removed > 0 {
			slog.InfoContext(ctx, "orphaned files removed", "count", removed)
		}
		return err
	})
}

func LikeResync(likes CounterResyncer) Job {
	return Func(LikeResyncJob, "*/5 * * * *", func(ctx context.Context) error {
		n, err := likes.ResyncCounters(ctx)
		if n > 0 {
			slog.InfoContext(ctx, "like counters resynced", "reports", n)
		}
		return err
	})
}

func NotificationPrune(notifications NotificationPruner) Job {
	return Func(NotificationPruneJob, "30 3 * * *", func(ctx context.Context) error {
		n, err := notifications.PruneOlderThan(ctx, NotificationRetention)
		if n > 0 {
			slog.InfoContext(ctx, "old notifications pruned", "count", n)
		}
		return err
	})
}

// StaleReviewRelease returns reports to the queue when their review was
// abandoned without a word or lost its evaluator.
func StaleReviewRelease(reviews StaleReviewReleaser) Job {
	return Func(StaleReviewJob, "0 * * * *", func(ctx context.Context) error {
		n, err := reviews.ReleaseStaleReviews(ctx, ReviewTimeout)
		if n > 0 {
			slog.InfoContext(ctx, "stale reviews released", "reports", n)
		}
		return err
	})
}
