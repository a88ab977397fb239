// Package authevents fans out session changes (sign-in, sign-out, role changes) to
// in-process subscribers and, when configured, to Redis for websocket clients.
package authevents

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type Kind string

const (
	SignedUp       Kind = "signed_up"
	SignedIn       Kind = "signed_in"
	SignedOut      Kind = "signed_out"
	TokenRefreshed Kind = "token_refreshed"
	RoleChanged    Kind = "role_changed"
	AccountDeleted Kind = "account_deleted"
)

type Event struct {
	Kind   Kind      `json:"kind"`
	UserID uuid.UUID `json:"user_id"`
	Role   string    `json:"role"`
	At     time.Time `json:"at"`
}

type Callback func(Event)

// Hub is safe for concurrent use.
type Hub struct {
	mu          sync.RWMutex
	next        uint64
	subscribers map[uint64]Callback
	redisClient *redis.Client
}

func NewHub(redisClient *redis.Client) *Hub {
	return &Hub{
		subscribers: make(map[uint64]Callback),
		redisClient: redisClient,
	}
}

// Channel is the Redis pub/sub channel carrying a user's auth events.
func Channel(userID uuid.UUID) string {
	return fmt.Sprintf("auth_events:%s", userID.String())
}

// Subscribe registers cb and returns a function that removes it. The returned
// function may be called any number of times.
func (h *Hub) Subscribe(cb Callback) func() {
	h.mu.Lock()
	id := h.next
	h.next++
	h.subscribers[id] = cb
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subscribers, id)
			h.mu.Unlock()
		})
	}
}

// Publish delivers ev synchronously to every subscriber registered at call time.
func (h *Hub) Publish(ctx context.Context, ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	h.mu.RLock()
	callbacks := make([]Callback, 0, len(h.subscribers))
	for _, cb := range h.subscribers {
		callbacks = append(callbacks, cb)
	}
	h.mu.RUnlock()

	for _, cb := range callbacks {
		cb(ev)
	}

	if h.redisClient != nil {
		payload, err := json.Marshal(ev)
		if err != nil {
			return
		}
		if err := h.redisClient.Publish(ctx, Channel(ev.UserID), payload).Err(); err != nil {
			slog.Warn("failed to publish auth event", "kind", ev.Kind, "error", err)
		}
	}
}

func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}
