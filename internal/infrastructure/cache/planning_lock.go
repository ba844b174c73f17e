package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrPlanningLocked is returned when another replica holds a planning's
// edit lock for longer than the acquire patience.
var ErrPlanningLocked = errors.New("planning is being edited elsewhere")

// PlanningLocker serializes edits on one planning across service
// replicas with a SETNX lease. Single-instance deployments skip it and
// rely on the in-process lock alone.
type PlanningLocker struct {
	cache    *RedisCache
	ttl      time.Duration
	patience time.Duration
}

// NewPlanningLocker creates a locker with sensible lease settings: the
// lock expires after ttl even if a replica dies mid-edit.
func NewPlanningLocker(cache *RedisCache) *PlanningLocker {
	return &PlanningLocker{
		cache:    cache,
		ttl:      10 * time.Second,
		patience: 2 * time.Second,
	}
}

func lockKey(databaseID string, planningID int64) string {
	return fmt.Sprintf("atelier:planning_lock:%s:%d", databaseID, planningID)
}

// Acquire takes the lock for the given planning, polling briefly when
// another replica holds it. The returned release function is safe to
// call exactly once.
func (l *PlanningLocker) Acquire(ctx context.Context, databaseID string, planningID int64) (func(), error) {
	key := lockKey(databaseID, planningID)
	deadline := time.Now().Add(l.patience)

	for {
		ok, err := l.cache.SetNX(ctx, key, 1, l.ttl)
		if err != nil {
			return nil, fmt.Errorf("acquire planning lock: %w", err)
		}
		if ok {
			return func() {
				_ = l.cache.Delete(context.Background(), key)
			}, nil
		}
		if time.Now().After(deadline) {
			return nil, ErrPlanningLocked
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
}
