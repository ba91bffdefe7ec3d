package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/matchfound/matchfound/internal/telemetry"
)

// Key prefixes. All keys are per-seeker.
const (
	matchListKeyPrefix      = "matches:"
	exclusionCountKeyPrefix = "exclusions:"
	findCooldownKeyPrefix   = "findcooldown:"
)

// CachedMatch is the serialized form of one ranked-list entry: the
// candidate ID plus the minimal metadata to rebuild a MatchUser. Full
// profiles are never cached; they are re-read on rehydration so profile
// edits are always visible.
type CachedMatch struct {
	ID       int64 `json:"id"`
	Priority int   `json:"priority"`
	Score    int   `json:"score"`
}

// Store is the key-value capability MatchCache needs, satisfied by
// RedisService
type Store interface {
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error)
	GetJSON(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	TTL(ctx context.Context, key string) (time.Duration, error)
}

// MatchCache holds the two per-seeker caches (ranked match list,
// exclusion-set size) and the find-cooldown entries. Reads fail open:
// an unreachable cache reports a miss and the caller recomputes from the
// store. Writes after a Like/Ignore/profile edit must invalidate both
// caches for both users before the write is acknowledged.
type MatchCache struct {
	store         Store
	matchListTTL  time.Duration
	exclusionsTTL time.Duration
}

// NewMatchCache creates a match cache with the given TTLs
func NewMatchCache(store Store, matchListTTL, exclusionsTTL time.Duration) *MatchCache {
	return &MatchCache{
		store:         store,
		matchListTTL:  matchListTTL,
		exclusionsTTL: exclusionsTTL,
	}
}

// GetMatches returns the cached ranked list for the seeker, or ok=false on
// miss. Cache errors are logged and reported as a miss.
func (c *MatchCache) GetMatches(ctx context.Context, seekerID int64) ([]CachedMatch, bool) {
	var entries []CachedMatch
	err := c.store.GetJSON(ctx, matchListKey(seekerID), &entries)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			telemetry.GetContextualLogger(ctx).WithFields(map[string]interface{}{
				"operation": "get_match_cache",
				"user_id":   seekerID,
			}).WithError(err).Warn("Match cache read failed, treating as miss")
		}
		return nil, false
	}
	return entries, true
}

// SetMatches stores the ranked list for the seeker. Write failures are
// logged, not returned: the cache is a disposable projection of the store.
func (c *MatchCache) SetMatches(ctx context.Context, seekerID int64, entries []CachedMatch) {
	if entries == nil {
		entries = []CachedMatch{}
	}
	if err := c.store.Set(ctx, matchListKey(seekerID), entries, c.matchListTTL); err != nil {
		telemetry.GetContextualLogger(ctx).WithFields(map[string]interface{}{
			"operation": "set_match_cache",
			"user_id":   seekerID,
		}).WithError(err).Warn("Match cache write failed")
	}
}

// InvalidateMatches drops the cached ranked list for one user
func (c *MatchCache) InvalidateMatches(ctx context.Context, userID int64) error {
	return c.store.Delete(ctx, matchListKey(userID))
}

// InvalidateMatchesForUsers drops the cached ranked lists for several users
func (c *MatchCache) InvalidateMatchesForUsers(ctx context.Context, userIDs ...int64) error {
	return c.store.Delete(ctx, matchListKeys(userIDs)...)
}

// GetExclusionCount returns the cached exclusion-set size, or ok=false
func (c *MatchCache) GetExclusionCount(ctx context.Context, userID int64) (int, bool) {
	var count int
	if err := c.store.GetJSON(ctx, exclusionCountKey(userID), &count); err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			telemetry.GetContextualLogger(ctx).WithFields(map[string]interface{}{
				"operation": "get_exclusion_cache",
				"user_id":   userID,
			}).WithError(err).Warn("Exclusion cache read failed, treating as miss")
		}
		return 0, false
	}
	return count, true
}

// SetExclusionCount stores the exclusion-set size for a user
func (c *MatchCache) SetExclusionCount(ctx context.Context, userID int64, count int) {
	if err := c.store.Set(ctx, exclusionCountKey(userID), count, c.exclusionsTTL); err != nil {
		telemetry.GetContextualLogger(ctx).WithFields(map[string]interface{}{
			"operation": "set_exclusion_cache",
			"user_id":   userID,
		}).WithError(err).Warn("Exclusion cache write failed")
	}
}

// InvalidateExclusions drops the cached exclusion count for one user
func (c *MatchCache) InvalidateExclusions(ctx context.Context, userID int64) error {
	return c.store.Delete(ctx, exclusionCountKey(userID))
}

// InvalidateExclusionsForUsers drops cached exclusion counts for several users
func (c *MatchCache) InvalidateExclusionsForUsers(ctx context.Context, userIDs ...int64) error {
	return c.store.Delete(ctx, exclusionCountKeys(userIDs)...)
}

// InvalidateForUsers drops both caches for every listed user in one call.
// This is the invalidation hook Like/Ignore/profile writes call before
// acknowledging.
func (c *MatchCache) InvalidateForUsers(ctx context.Context, userIDs ...int64) error {
	keys := append(matchListKeys(userIDs), exclusionCountKeys(userIDs)...)
	if err := c.store.Delete(ctx, keys...); err != nil {
		return fmt.Errorf("failed to invalidate caches: %w", err)
	}
	return nil
}

// AcquireFindSlot attempts to start a search for the seeker. It returns
// ok=true when the cooldown slot was taken; otherwise retryAfter holds the
// remaining wait. The check-and-set is a single atomic SETNX so
// concurrent finds cannot both pass.
func (c *MatchCache) AcquireFindSlot(ctx context.Context, seekerID int64, window time.Duration) (time.Duration, bool, error) {
	key := findCooldownKey(seekerID)
	ok, err := c.store.SetNX(ctx, key, time.Now().UTC().Unix(), window)
	if err != nil {
		return 0, false, fmt.Errorf("failed to acquire find slot: %w", err)
	}
	if ok {
		return 0, true, nil
	}

	retryAfter, err := c.store.TTL(ctx, key)
	if err != nil || retryAfter < 0 {
		retryAfter = window
	}
	return retryAfter, false, nil
}

func matchListKey(userID int64) string {
	return fmt.Sprintf("%s%d", matchListKeyPrefix, userID)
}

func exclusionCountKey(userID int64) string {
	return fmt.Sprintf("%s%d", exclusionCountKeyPrefix, userID)
}

func findCooldownKey(userID int64) string {
	return fmt.Sprintf("%s%d", findCooldownKeyPrefix, userID)
}

func matchListKeys(userIDs []int64) []string {
	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, matchListKey(id))
	}
	return keys
}

func exclusionCountKeys(userIDs []int64) []string {
	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, exclusionCountKey(id))
	}
	return keys
}
