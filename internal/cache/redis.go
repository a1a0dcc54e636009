package cache

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Arshlankhann/Collaborative-AI-Todo-Board/internal/config"
	"github.com/Arshlankhann/Collaborative-AI-Todo-Board/pkg/logger"
)

const boardCacheKey = "board:all"

var (
	client *redis.Client
	once   sync.Once
)

// Client returns the global Redis client (initialized on first use). All
// cache operations degrade to no-ops when Redis is unreachable; the board
// read path falls through to the store.
func Client(ctx context.Context) *redis.Client {
	once.Do(func() {
		cfg := config.Get()
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error(ctx, "Invalid REDIS_URL", "error", err, "url", cfg.RedisURL)
			return
		}
		opts.PoolSize = cfg.RedisPoolSize
		c := redis.NewClient(opts)
		if err := c.Ping(ctx).Err(); err != nil {
			logger.Error(ctx, "Redis ping failed", "error", err)
			return
		}
		client = c
		logger.Info(ctx, "Redis client initialized", "pool_size", cfg.RedisPoolSize)
	})
	return client
}

// GetRawBoard reads the cached board snapshot as raw JSON bytes. Returns
// (nil, false) on miss or error.
func GetRawBoard(ctx context.Context) ([]byte, bool) {
	c := Client(ctx)
	if c == nil {
		return nil, false
	}
	b, err := c.Get(ctx, boardCacheKey).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		logger.Debug(ctx, "Redis get board failed", "error", err)
		return nil, false
	}
	return b, true
}

// SetRawBoardAsync writes the serialized board snapshot with the configured
// TTL. Runs with its own context so it is safe to call from a goroutine after
// the request ends.
func SetRawBoardAsync(b []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c := Client(ctx)
	if c == nil {
		return
	}
	ttl := time.Duration(config.Get().CacheTTL) * time.Second
	if err := c.Set(ctx, boardCacheKey, b, ttl).Err(); err != nil {
		logger.Debug(ctx, "Redis set board failed", "error", err)
	}
}

// InvalidateBoard deletes the board snapshot so the next read goes to the
// store. Called after every successful mutation and registration.
func InvalidateBoard(ctx context.Context) {
	c := Client(ctx)
	if c == nil {
		return
	}
	if err := c.Del(ctx, boardCacheKey).Err(); err != nil {
		logger.Debug(ctx, "Redis invalidate board failed", "error", err)
	}
}
