package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smilemakc/atelier/internal/config"
)

func lockTestCache(t *testing.T) *RedisCache {
	t.Helper()
	s := miniredis.RunT(t)
	cache, err := NewRedisCache(config.RedisConfig{URL: "redis://" + s.Addr(), PoolSize: 10})
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })
	return cache
}

func TestPlanningLockerAcquireRelease(t *testing.T) {
	locker := NewPlanningLocker(lockTestCache(t))
	ctx := context.Background()

	release, err := locker.Acquire(ctx, "prod", 1)
	require.NoError(t, err)
	release()

	// Released lock is immediately acquirable again.
	release, err = locker.Acquire(ctx, "prod", 1)
	require.NoError(t, err)
	release()
}

func TestPlanningLockerIsPerPlanning(t *testing.T) {
	locker := NewPlanningLocker(lockTestCache(t))
	ctx := context.Background()

	release1, err := locker.Acquire(ctx, "prod", 1)
	require.NoError(t, err)
	defer release1()

	// A different planning is independent.
	release2, err := locker.Acquire(ctx, "prod", 2)
	require.NoError(t, err)
	release2()
}

func TestPlanningLockerBlocksConcurrentHolder(t *testing.T) {
	locker := NewPlanningLocker(lockTestCache(t))
	locker.patience = 150 * time.Millisecond
	ctx := context.Background()

	release, err := locker.Acquire(ctx, "prod", 1)
	require.NoError(t, err)
	defer release()

	_, err = locker.Acquire(ctx, "prod", 1)
	assert.ErrorIs(t, err, ErrPlanningLocked)
}
