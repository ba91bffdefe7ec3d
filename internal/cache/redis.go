package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/extra/redisotel/v8"
	"github.com/go-redis/redis/v8"
	"github.com/matchfound/matchfound/internal/telemetry"
)

// ErrCacheMiss is returned when a key is absent or expired
var ErrCacheMiss = errors.New("cache miss")

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	PoolSize int
}

// ConfigFromEnv loads Redis configuration from environment variables
func ConfigFromEnv() *RedisConfig {
	port, _ := strconv.Atoi(getEnvOrDefault("REDIS_PORT", "6379"))
	db, _ := strconv.Atoi(getEnvOrDefault("REDIS_DB", "0"))
	poolSize, _ := strconv.Atoi(getEnvOrDefault("REDIS_POOL_SIZE", "10"))

	return &RedisConfig{
		Host:     getEnvOrDefault("REDIS_HOST", "localhost"),
		Port:     port,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       db,
		PoolSize: poolSize,
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// RedisClient is the subset of the go-redis client the service uses,
// extracted for testing
type RedisClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Keys(ctx context.Context, pattern string) *redis.StringSliceCmd
	TTL(ctx context.Context, key string) *redis.DurationCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	Ping(ctx context.Context) *redis.StatusCmd
	Info(ctx context.Context, section ...string) *redis.StringCmd
	Close() error
}

// RedisService wraps the Redis client with JSON encoding and logging
type RedisService struct {
	client RedisClient
	config *RedisConfig
}

// NewRedisService creates a new Redis service instance
func NewRedisService(config *RedisConfig) (*RedisService, error) {
	return newRedisService(config, false)
}

// NewInstrumentedRedisService creates a Redis service with an
// OpenTelemetry tracing hook attached
func NewInstrumentedRedisService(config *RedisConfig) (*RedisService, error) {
	return newRedisService(config, true)
}

func newRedisService(config *RedisConfig, instrumented bool) (*RedisService, error) {
	ctx := telemetry.WithCorrelationID(context.Background(), telemetry.NewCorrelationID())
	logger := telemetry.GetContextualLogger(ctx).WithFields(map[string]interface{}{
		"operation": "redis_connection",
		"service":   "cache",
	})

	if config == nil {
		config = ConfigFromEnv()
	}

	logger = logger.WithFields(map[string]interface{}{
		"host":         config.Host,
		"port":         config.Port,
		"db":           config.DB,
		"pool_size":    config.PoolSize,
		"instrumented": instrumented,
	})
	logger.Info("Establishing Redis connection")

	client := redis.NewClient(&redis.Options{
		Addr:       fmt.Sprintf("%s:%d", config.Host, config.Port),
		Password:   config.Password,
		DB:         config.DB,
		PoolSize:   config.PoolSize,
		MaxRetries: 3,
	})

	if instrumented {
		client.AddHook(redisotel.NewTracingHook())
	}

	if err := client.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Error("Failed to connect to Redis")
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Redis connected successfully")
	return &RedisService{client: client, config: config}, nil
}

// NewRedisServiceWithClient wraps an existing client, used by tests
func NewRedisServiceWithClient(client RedisClient) *RedisService {
	return &RedisService{client: client, config: &RedisConfig{}}
}

// Set stores a JSON-encoded value with a TTL
func (r *RedisService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	if err := r.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}
	return nil
}

// SetNX stores a value only if the key is absent. The single round trip
// makes check-and-set atomic, which the find cooldown depends on.
func (r *RedisService) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return false, fmt.Errorf("failed to marshal value: %w", err)
	}
	ok, err := r.client.SetNX(ctx, key, data, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to setnx key %s: %w", key, err)
	}
	return ok, nil
}

// Get retrieves the raw value for a key. Returns ErrCacheMiss when absent.
func (r *RedisService) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return "", ErrCacheMiss
		}
		return "", fmt.Errorf("failed to get key %s: %w", key, err)
	}
	return val, nil
}

// GetJSON retrieves a value and unmarshals it into dest.
// Returns ErrCacheMiss when absent.
func (r *RedisService) GetJSON(ctx context.Context, key string, dest interface{}) error {
	val, err := r.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(val), dest); err != nil {
		return fmt.Errorf("failed to unmarshal key %s: %w", key, err)
	}
	return nil
}

// Delete removes keys
func (r *RedisService) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete keys: %w", err)
	}
	return nil
}

// Exists checks if a key exists
func (r *RedisService) Exists(ctx context.Context, key string) (bool, error) {
	result, err := r.client.Exists(ctx, key).Result()
	return result > 0, err
}

// Expire sets TTL for a key
func (r *RedisService) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return r.client.Expire(ctx, key, ttl).Err()
}

// TTL gets the remaining time to live for a key
func (r *RedisService) TTL(ctx context.Context, key string) (time.Duration, error) {
	return r.client.TTL(ctx, key).Result()
}

// DeletePattern removes keys matching a pattern, returning the count
func (r *RedisService) DeletePattern(ctx context.Context, pattern string) (int64, error) {
	keys, err := r.client.Keys(ctx, pattern).Result()
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}
	return r.client.Del(ctx, keys...).Result()
}

// HealthCheck verifies Redis connectivity
func (r *RedisService) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// GetStats returns keyspace hit/miss statistics from INFO
func (r *RedisService) GetStats(ctx context.Context) map[string]interface{} {
	stats := map[string]interface{}{
		"hits":     int64(0),
		"misses":   int64(0),
		"hit_rate": 0.0,
	}

	info, err := r.client.Info(ctx, "stats").Result()
	if err != nil {
		stats["error"] = err.Error()
		return stats
	}

	for _, line := range strings.Split(info, "\r\n") {
		if value, ok := strings.CutPrefix(line, "keyspace_hits:"); ok {
			hits, _ := strconv.ParseInt(value, 10, 64)
			stats["hits"] = hits
		}
		if value, ok := strings.CutPrefix(line, "keyspace_misses:"); ok {
			misses, _ := strconv.ParseInt(value, 10, 64)
			stats["misses"] = misses
		}
	}

	hits := stats["hits"].(int64)
	misses := stats["misses"].(int64)
	if total := hits + misses; total > 0 {
		stats["hit_rate"] = float64(hits) / float64(total)
	}
	return stats
}

// Close closes the Redis connection
func (r *RedisService) Close() error {
	return r.client.Close()
}
