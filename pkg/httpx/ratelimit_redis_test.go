package httpx_test

import (
	"context"
	"testing"
	"time"

	"github.com/aussiebroadwan/chambers/pkg/httpx"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRedis(t *testing.T) *redis.Client {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)
	ctx := context.Background()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(ctx) })

	endpoint, err := c.Endpoint(ctx, "")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err())
	return client
}

func TestRedisLimiter(t *testing.T) {
	if testing.Short() {
		t.Skip("needs docker")
	}
	client := startRedis(t)
	l := httpx.NewRedisLimiter(client, "test:ratelimit:", nil)
	ctx := context.Background()
	cfg := httpx.RateLimitConfig{RequestsPerWindow: 2, Window: time.Minute}

	require.True(t, l.Allow(ctx, "login:1.2.3.4", cfg).Allowed)
	require.True(t, l.Allow(ctx, "login:1.2.3.4", cfg).Allowed)

	d := l.Allow(ctx, "login:1.2.3.4", cfg)
	require.False(t, d.Allowed)
	require.Greater(t, d.RetryAfter, time.Duration(0))

	require.True(t, l.Allow(ctx, "login:5.6.7.8", cfg).Allowed)

	ttl, err := client.TTL(ctx, "test:ratelimit:login:1.2.3.4").Result()
	require.NoError(t, err)
	require.Greater(t, ttl, time.Duration(0))
}

func TestRedisLimiterRestoresMissingTTL(t *testing.T) {
	if testing.Short() {
		t.Skip("needs docker")
	}
	client := startRedis(t)
	l := httpx.NewRedisLimiter(client, "test:ratelimit:", nil)
	ctx := context.Background()
	cfg := httpx.RateLimitConfig{RequestsPerWindow: 2, Window: time.Minute}

	// A counter left behind without an expiry.
	require.NoError(t, client.Set(ctx, "test:ratelimit:login:9.9.9.9", 10, 0).Err())

	d := l.Allow(ctx, "login:9.9.9.9", cfg)
	require.False(t, d.Allowed)
	require.Greater(t, d.RetryAfter, time.Duration(0))
	require.LessOrEqual(t, d.RetryAfter, time.Minute)

	ttl, err := client.TTL(ctx, "test:ratelimit:login:9.9.9.9").Result()
	require.NoError(t, err)
	require.Greater(t, ttl, time.Duration(0))
}

func TestRedisLimiterFailsOpen(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 50 * time.Millisecond})
	t.Cleanup(func() { _ = client.Close() })

	l := httpx.NewRedisLimiter(client, "x:", nil)
	cfg := httpx.RateLimitConfig{RequestsPerWindow: 1, Window: time.Minute}
	for range 3 {
		require.True(t, l.Allow(context.Background(), "k", cfg).Allowed)
	}
}
