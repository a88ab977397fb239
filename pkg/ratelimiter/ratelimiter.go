package ratelimiter

import (
	"context"
	"fmt"
	"time"

	"caseflow.dev/caseflowlearn/pkg/apperror"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const ScopeSubmit = "submit_case_report"

type RateLimitError struct {
	Message    string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return e.Message
}

func (e *RateLimitError) Unwrap() error {
	return apperror.ErrRateLimitExceeded
}

func key(subject, scope string) string {
	return fmt.Sprintf("rate_limit:%s:%s", subject, scope)
}

// CheckAndSetRateLimit reports whether the action is allowed and, if so,
// starts the cooldown window. A nil client always allows.
func CheckAndSetRateLimit(ctx context.Context, rdb *redis.Client, userID uuid.UUID, scope string, limit time.Duration) (bool, error) {
	if rdb == nil || limit <= 0 {
		return true, nil
	}

	wasSet, err := rdb.SetNX(ctx, key("user:"+userID.String(), scope), "locked", limit).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check rate limit in redis: %w", err)
	}

	return wasSet, nil
}

func GetRateLimitTTL(ctx context.Context, rdb *redis.Client, userID uuid.UUID, scope string) (time.Duration, error) {
	if rdb == nil {
		return 0, nil
	}
	return rdb.TTL(ctx, key("user:"+userID.String(), scope)).Result()
}

func ClearRateLimit(ctx context.Context, rdb *redis.Client, userID uuid.UUID, scope string) error {
	if rdb == nil {
		return nil
	}
	return rdb.Del(ctx, key("user:"+userID.String(), scope)).Err()
}
