package storage

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// PendingDeletionsKey holds URLs whose Delete failed and must be retried.
const PendingDeletionsKey = "pending:file_deletions"

// DeleteOrQueue removes fileURL now, or queues it for the cleanup job when
// the storage call fails and redis is available.
func DeleteOrQueue(ctx context.Context, fs FileStorage, rdb *redis.Client, fileURL string) {
	if fs == nil || fileURL == "" {
		return
	}
	err := fs.Delete(ctx, fileURL)
	if err == nil {
		return
	}

	slog.WarnContext(ctx, "failed to delete stored file", "url", fileURL, "error", err)
	if rdb == nil {
		return
	}
	if err := rdb.SAdd(ctx, PendingDeletionsKey, fileURL).Err(); err != nil {
		slog.ErrorContext(ctx, "failed to queue file deletion", "url", fileURL, "error", err)
	}
}

// RetryPendingDeletions pops up to batch queued URLs and deletes them. URLs
// that fail again go back into the set. It returns how many were removed.
func RetryPendingDeletions(ctx context.Context, fs FileStorage, rdb *redis.Client, batch int64) (int, error) {
	if fs == nil || rdb == nil {
		return 0, nil
	}

	urls, err := rdb.SPopN(ctx, PendingDeletionsKey, batch).Result()
	if err != nil {
		return 0, err
	}

	removed := 0
	var failed []interface{}
	for _, u := range urls {
		if err := fs.Delete(ctx, u); err != nil {
			slog.WarnContext(ctx, "retry of file deletion failed", "url", u, "error", err)
			failed = append(failed, u)
			continue
		}
		removed++
	}

	if len(failed) > 0 {
		if err := rdb.SAdd(ctx, PendingDeletionsKey, failed...).Err(); err != nil {
			return removed, err
		}
	}
	return removed, nil
}
