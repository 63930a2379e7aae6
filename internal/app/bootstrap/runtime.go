// Package bootstrap wires optional runtime dependencies for the API server.
package bootstrap

import (
	"context"
	"crypto/tls"
	"strings"

	"github.com/redis/go-redis/v9"

	appconfig "github.com/nniahq/portal-api/internal/config"
	"github.com/nniahq/portal-api/internal/dashboard"
	"github.com/nniahq/portal-api/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		return nil
	}
	return client
}

// BuildPreviewStore picks the Redis-backed snapshot store when Redis is
// reachable and falls back to the in-process store otherwise.
func BuildPreviewStore(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) dashboard.PreviewStore {
	if logger == nil {
		logger = logging.Default()
	}
	client := BuildRedisClient(ctx, cfg, logger, true)
	if client == nil {
		logger.Info("using in-memory preview store")
		return dashboard.NewMemoryStore()
	}
	logger.Info("using redis preview store", "addr", cfg.RedisAddr)
	return dashboard.NewRedisStore(client, cfg.PreviewSnapshotTTL)
}
