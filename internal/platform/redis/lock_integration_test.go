//go:build integration

package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flock/internal/platform/config"
	"flock/pkg/platform/sentinel"
	"flock/pkg/testutil/containers"
)

func TestLocker(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	ctx := context.Background()
	require.NoError(t, rc.FlushAll(ctx))

	locker := NewLocker(rc.Client, "test:")

	release, err := locker.Acquire(ctx, "absence:svc:2024-06-02", time.Minute)
	require.NoError(t, err)

	_, err = locker.Acquire(ctx, "absence:svc:2024-06-02", time.Minute)
	assert.ErrorIs(t, err, ErrLockHeld)
	assert.ErrorIs(t, err, sentinel.ErrConflict)

	require.NoError(t, release(ctx))

	release, err = locker.Acquire(ctx, "absence:svc:2024-06-02", time.Minute)
	require.NoError(t, err)
	require.NoError(t, release(ctx))
}

func TestClientLocker(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	ctx := context.Background()

	client, err := New(ctx, config.RedisConfig{URL: rc.URL, PoolSize: 2})
	require.NoError(t, err)
	defer func() { _ = client.Close() }()
	require.NoError(t, client.Health(ctx))

	release, err := client.Locker().Acquire(ctx, "absence:svc:2024-06-09", time.Minute)
	require.NoError(t, err)
	defer func() { _ = release(ctx) }()

	held, err := rc.Client.Exists(ctx, lockPrefix+"absence:svc:2024-06-09").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), held)
}
