package db

import (
	"context"
	"fmt"
	"log"
	"time"

	"doubleordie/config"

	"github.com/redis/go-redis/v9"
)

var (
	// RedisClient is the global Redis client instance
	RedisClient *redis.Client
)

// InitRedis initializes the Redis client connection
func InitRedis(addr, password string, database int) error {
	log.Println("🔌 Connecting to Redis...")

	if addr == "" {
		addr = "localhost:6379"
	}

	RedisClient = redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           database,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := RedisClient.Ping(ctx).Err(); err != nil {
		RedisClient.Close()
		RedisClient = nil
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Printf("✅ Redis connected successfully - URL: %s", addr)
	return nil
}

// CloseRedis closes the Redis connection
func CloseRedis() error {
	if RedisClient != nil {
		log.Println("🔌 Closing Redis connection...")
		return RedisClient.Close()
	}
	return nil
}

/* =========================
   LEADERBOARD CACHE
   Redis Key: leaderboard:season:{seasonId} -> public leaderboard JSON
   A nil cache or nil client is a permanent miss.
========================= */

// LeaderboardCache holds rendered public leaderboard bodies per season
type LeaderboardCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewLeaderboardCache(client *redis.Client) *LeaderboardCache {
	return &LeaderboardCache{client: client, ttl: config.LeaderboardCacheTTL}
}

func (c *LeaderboardCache) enabled() bool {
	return c != nil && c.client != nil
}

// Get returns the cached body, or nil on a miss
func (c *LeaderboardCache) Get(ctx context.Context, seasonID string) ([]byte, error) {
	if !c.enabled() {
		return nil, nil
	}

	data, err := c.client.Get(ctx, fmt.Sprintf(config.RedisLeaderboardKey, seasonID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached leaderboard: %w", err)
	}
	return data, nil
}

// Set stores a body with the cache TTL
func (c *LeaderboardCache) Set(ctx context.Context, seasonID string, body []byte) error {
	if !c.enabled() {
		return nil
	}

	if err := c.client.Set(ctx, fmt.Sprintf(config.RedisLeaderboardKey, seasonID), body, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache leaderboard: %w", err)
	}
	return nil
}

// Invalidate drops a season's cached body
func (c *LeaderboardCache) Invalidate(ctx context.Context, seasonID string) error {
	if !c.enabled() {
		return nil
	}

	if err := c.client.Del(ctx, fmt.Sprintf(config.RedisLeaderboardKey, seasonID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate leaderboard cache: %w", err)
	}

	log.Printf("🧹 Invalidated leaderboard cache for season %s", seasonID)
	return nil
}

/* =========================
   HEALTH CHECK
========================= */

// HealthCheck performs a Redis health check
func HealthCheck(ctx context.Context) error {
	if RedisClient == nil {
		return fmt.Errorf("redis client not initialized")
	}
	return RedisClient.Ping(ctx).Err()
}
