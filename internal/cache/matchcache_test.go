package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore is an in-memory Store with injectable failures
type fakeStore struct {
	data    map[string][]byte
	ttls    map[string]time.Duration
	failAll bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		data: make(map[string][]byte),
		ttls: make(map[string]time.Duration),
	}
}

func (f *fakeStore) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if f.failAll {
		return fmt.Errorf("store unavailable")
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.data[key] = raw
	f.ttls[key] = ttl
	return nil
}

func (f *fakeStore) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	if f.failAll {
		return false, fmt.Errorf("store unavailable")
	}
	if _, exists := f.data[key]; exists {
		return false, nil
	}
	return true, f.Set(ctx, key, value, ttl)
}

func (f *fakeStore) GetJSON(ctx context.Context, key string, dest interface{}) error {
	if f.failAll {
		return fmt.Errorf("store unavailable")
	}
	raw, ok := f.data[key]
	if !ok {
		return ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (f *fakeStore) Delete(ctx context.Context, keys ...string) error {
	if f.failAll {
		return fmt.Errorf("store unavailable")
	}
	for _, key := range keys {
		delete(f.data, key)
		delete(f.ttls, key)
	}
	return nil
}

func (f *fakeStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	if f.failAll {
		return 0, fmt.Errorf("store unavailable")
	}
	ttl, ok := f.ttls[key]
	if !ok {
		return -2 * time.Second, nil
	}
	return ttl, nil
}

func newTestMatchCache() (*MatchCache, *fakeStore) {
	store := newFakeStore()
	return NewMatchCache(store, 5*time.Minute, time.Hour), store
}

func TestMatchCache_SetAndGetMatches(t *testing.T) {
	c, store := newTestMatchCache()
	ctx := context.Background()

	entries := []CachedMatch{
		{ID: 2, Priority: 1, Score: 90},
		{ID: 3, Priority: 2, Score: 60},
	}
	c.SetMatches(ctx, 1, entries)

	got, ok := c.GetMatches(ctx, 1)
	require.True(t, ok)
	assert.Equal(t, entries, got)
	assert.Equal(t, 5*time.Minute, store.ttls["matches:1"])
}

func TestMatchCache_EmptyListIsCached(t *testing.T) {
	c, _ := newTestMatchCache()
	ctx := context.Background()

	c.SetMatches(ctx, 1, nil)

	got, ok := c.GetMatches(ctx, 1)
	assert.True(t, ok, "empty result must cache as a hit, not a miss")
	assert.Empty(t, got)
}

func TestMatchCache_GetMatches_FailsOpen(t *testing.T) {
	c, store := newTestMatchCache()
	ctx := context.Background()

	c.SetMatches(ctx, 1, []CachedMatch{{ID: 2}})
	store.failAll = true

	got, ok := c.GetMatches(ctx, 1)
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestMatchCache_SetMatches_SwallowsWriteFailure(t *testing.T) {
	c, store := newTestMatchCache()
	store.failAll = true

	// must not panic or surface the error
	c.SetMatches(context.Background(), 1, []CachedMatch{{ID: 2}})
}

func TestMatchCache_ExclusionCountRoundTrip(t *testing.T) {
	c, store := newTestMatchCache()
	ctx := context.Background()

	_, ok := c.GetExclusionCount(ctx, 1)
	assert.False(t, ok)

	c.SetExclusionCount(ctx, 1, 42)

	count, ok := c.GetExclusionCount(ctx, 1)
	require.True(t, ok)
	assert.Equal(t, 42, count)
	assert.Equal(t, time.Hour, store.ttls["exclusions:1"])
}

func TestMatchCache_InvalidateForUsers_DropsBothCachesForBothParties(t *testing.T) {
	c, _ := newTestMatchCache()
	ctx := context.Background()

	c.SetMatches(ctx, 1, []CachedMatch{{ID: 2}})
	c.SetMatches(ctx, 2, []CachedMatch{{ID: 1}})
	c.SetExclusionCount(ctx, 1, 3)
	c.SetExclusionCount(ctx, 2, 4)

	require.NoError(t, c.InvalidateForUsers(ctx, 1, 2))

	_, ok := c.GetMatches(ctx, 1)
	assert.False(t, ok)
	_, ok = c.GetMatches(ctx, 2)
	assert.False(t, ok)
	_, ok = c.GetExclusionCount(ctx, 1)
	assert.False(t, ok)
	_, ok = c.GetExclusionCount(ctx, 2)
	assert.False(t, ok)
}

func TestMatchCache_InvalidateForUsers_LeavesOthersIntact(t *testing.T) {
	c, _ := newTestMatchCache()
	ctx := context.Background()

	c.SetMatches(ctx, 1, []CachedMatch{{ID: 2}})
	c.SetMatches(ctx, 9, []CachedMatch{{ID: 5}})

	require.NoError(t, c.InvalidateForUsers(ctx, 1))

	_, ok := c.GetMatches(ctx, 9)
	assert.True(t, ok)
}

func TestMatchCache_AcquireFindSlot(t *testing.T) {
	c, _ := newTestMatchCache()
	ctx := context.Background()

	retryAfter, ok, err := c.AcquireFindSlot(ctx, 1, 2*time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Zero(t, retryAfter)

	// second attempt within the window is refused with the remaining wait
	retryAfter, ok, err = c.AcquireFindSlot(ctx, 1, 2*time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 2*time.Minute, retryAfter)

	// a different user has an independent slot
	_, ok, err = c.AcquireFindSlot(ctx, 2, 2*time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMatchCache_AcquireFindSlot_StoreError(t *testing.T) {
	c, store := newTestMatchCache()
	store.failAll = true

	_, ok, err := c.AcquireFindSlot(context.Background(), 1, time.Minute)
	assert.Error(t, err)
	assert.False(t, ok)
}
