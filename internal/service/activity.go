package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ActivityTracker remembers who was seen within the last window, shared
// across instances through Redis.
type ActivityTracker struct {
	rdb    *redis.Client
	window time.Duration
}

func NewActivityTracker(rdb *redis.Client, window time.Duration) *ActivityTracker {
	return &ActivityTracker{rdb: rdb, window: window}
}

func activityKey(userID uuid.UUID) string {
	return "activity:" + userID.String()
}

// Touch marks userID as active now.
func (t *ActivityTracker) Touch(ctx context.Context, userID uuid.UUID) error {
	return t.rdb.Set(ctx, activityKey(userID), time.Now().Unix(), t.window).Err()
}

// RecentlyActive reports whether userID was touched within the window.
func (t *ActivityTracker) RecentlyActive(ctx context.Context, userID uuid.UUID) (bool, error) {
	n, err := t.rdb.Exists(ctx, activityKey(userID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
