package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/matchfound/matchfound/internal/cache"
)

// Store is the session persistence capability. A missing or expired
// session reads back as nil with no error.
type Store interface {
	GetMatchSession(ctx context.Context, userID int64) (*MatchSession, error)
	SetMatchSession(ctx context.Context, userID int64, s *MatchSession) error
	DeleteMatchSession(ctx context.Context, userID int64) error
	GetLikedBySession(ctx context.Context, userID int64) (*LikedBySession, error)
	SetLikedBySession(ctx context.Context, userID int64, s *LikedBySession) error
	DeleteLikedBySession(ctx context.Context, userID int64) error
}

const (
	matchSessionKeyPrefix   = "session:match:"
	likedBySessionKeyPrefix = "session:likedby:"
)

type kvStore interface {
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	GetJSON(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
}

// RedisStore keeps sessions in Redis so cursors survive process restarts
// and are shared across instances
type RedisStore struct {
	kv  kvStore
	ttl time.Duration
}

// NewRedisStore creates a session store over the given Redis service
func NewRedisStore(kv kvStore, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = BrowseTTL
	}
	return &RedisStore{kv: kv, ttl: ttl}
}

func (r *RedisStore) GetMatchSession(ctx context.Context, userID int64) (*MatchSession, error) {
	var s MatchSession
	err := r.kv.GetJSON(ctx, matchSessionKey(userID), &s)
	if err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load match session: %w", err)
	}
	return &s, nil
}

func (r *RedisStore) SetMatchSession(ctx context.Context, userID int64, s *MatchSession) error {
	if err := r.kv.Set(ctx, matchSessionKey(userID), s, r.ttl); err != nil {
		return fmt.Errorf("failed to store match session: %w", err)
	}
	return nil
}

func (r *RedisStore) DeleteMatchSession(ctx context.Context, userID int64) error {
	return r.kv.Delete(ctx, matchSessionKey(userID))
}

func (r *RedisStore) GetLikedBySession(ctx context.Context, userID int64) (*LikedBySession, error) {
	var s LikedBySession
	err := r.kv.GetJSON(ctx, likedBySessionKey(userID), &s)
	if err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load liked-by session: %w", err)
	}
	return &s, nil
}

func (r *RedisStore) SetLikedBySession(ctx context.Context, userID int64, s *LikedBySession) error {
	if err := r.kv.Set(ctx, likedBySessionKey(userID), s, r.ttl); err != nil {
		return fmt.Errorf("failed to store liked-by session: %w", err)
	}
	return nil
}

func (r *RedisStore) DeleteLikedBySession(ctx context.Context, userID int64) error {
	return r.kv.Delete(ctx, likedBySessionKey(userID))
}

func matchSessionKey(userID int64) string {
	return fmt.Sprintf("%s%d", matchSessionKeyPrefix, userID)
}

func likedBySessionKey(userID int64) string {
	return fmt.Sprintf("%s%d", likedBySessionKeyPrefix, userID)
}
