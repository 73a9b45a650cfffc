package listing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

type kindFilter struct {
	Kind string
}

func matchKind(r row, f kindFilter) bool {
	return f.Kind == "" || f.Kind == r.Kind
}

// memCache mimics the Redis cache: values are stored JSON-encoded.
type memCache struct {
	mu          sync.Mutex
	data        map[string][]byte
	invalidated []string
	getErr      error
}

func newMemCache() *memCache { return &memCache{data: map[string][]byte{}} }

func (c *memCache) Get(_ context.Context, collection, scope string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return false, c.getErr
	}
	raw, ok := c.data[collection+":"+scope]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dst)
}

func (c *memCache) Set(_ context.Context, collection, scope string, v any, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.data[collection+":"+scope] = raw
	return nil
}

func (c *memCache) Invalidate(_ context.Context, collections ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, col := range collections {
		c.invalidated = append(c.invalidated, col)
		for k := range c.data {
			if len(k) > len(col) && k[:len(col)+1] == col+":" {
				delete(c.data, k)
			}
		}
	}
	return nil
}

type countingFetch struct {
	mu     sync.Mutex
	calls  int
	limits []int
	rows   []row
	err    error
}

func (f *countingFetch) fetch(_ context.Context, _ uuid.UUID, limit int) ([]row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.limits = append(f.limits, limit)
	if f.err != nil {
		return nil, f.err
	}
	return f.rows, nil
}

func fixtureRows() []row {
	return []row{{"a", "x"}, {"b", "y"}, {"c", "x"}}
}

func TestHook_NilScopeIsEmptyAndDoesNotFetch(t *testing.T) {
	f := &countingFetch{rows: fixtureRows()}
	h := New[row, kindFilter](CollectionEvents, f.fetch, matchKind, nil, Options{}, nil)

	res, err := h.Load(context.Background(), nil, kindFilter{})

	require.NoError(t, err)
	assert.Empty(t, res.Rows)
	assert.NotNil(t, res.Rows)
	assert.Equal(t, 0, f.calls)
}

func TestHook_LoadFiltersAndUsesDefaultLimit(t *testing.T) {
	f := &countingFetch{rows: fixtureRows()}
	h := New[row, kindFilter](CollectionEvents, f.fetch, matchKind, nil, Options{}, nil)
	scope := uuid.New()

	res, err := h.Load(context.Background(), &scope, kindFilter{Kind: "x"})

	require.NoError(t, err)
	assert.Equal(t, []row{{"a", "x"}, {"c", "x"}}, res.Rows)
	assert.Equal(t, 3, res.Fetched)
	assert.Equal(t, []int{200}, f.limits)
}

func TestHook_DefaultParamsReturnFullSet(t *testing.T) {
	f := &countingFetch{rows: fixtureRows()}
	h := New[row, kindFilter](CollectionEvents, f.fetch, matchKind, nil, Options{}, nil)
	scope := uuid.New()

	res, err := h.Load(context.Background(), &scope, kindFilter{})

	require.NoError(t, err)
	assert.Equal(t, fixtureRows(), res.Rows)
}

func TestHook_FetchErrorIsSurfacedNotRetried(t *testing.T) {
	boom := errors.New("connection refused")
	f := &countingFetch{err: boom}
	h := New[row, kindFilter](CollectionAlerts, f.fetch, matchKind, newMemCache(), Options{}, nil)
	scope := uuid.New()

	res, err := h.Load(context.Background(), &scope, kindFilter{})

	assert.Nil(t, res)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, f.calls)
}

func TestHook_CachedSnapshotIsReusedWhileFresh(t *testing.T) {
	f := &countingFetch{rows: fixtureRows()}
	cache := newMemCache()
	h := New[row, kindFilter](CollectionStores, f.fetch, matchKind, cache, Options{StaleAfter: 30 * time.Second}, nil)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return now }
	scope := uuid.New()

	_, err := h.Load(context.Background(), &scope, kindFilter{})
	require.NoError(t, err)
	now = now.Add(29 * time.Second)
	_, err = h.Load(context.Background(), &scope, kindFilter{Kind: "y"})
	require.NoError(t, err)
	assert.Equal(t, 1, f.calls)

	now = now.Add(2 * time.Second)
	_, err = h.Load(context.Background(), &scope, kindFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, f.calls, "stale snapshot must be refetched")
}

func TestHook_CacheReadFailureFallsBackToFetch(t *testing.T) {
	f := &countingFetch{rows: fixtureRows()}
	cache := newMemCache()
	cache.getErr = fmt.Errorf("redis down")
	h := New[row, kindFilter](CollectionStores, f.fetch, matchKind, cache, Options{}, nil)
	scope := uuid.New()

	res, err := h.Load(context.Background(), &scope, kindFilter{})

	require.NoError(t, err)
	assert.Len(t, res.Rows, 3)
	assert.Equal(t, 1, f.calls)
}

func TestHook_ReloadAlwaysFetches(t *testing.T) {
	f := &countingFetch{rows: fixtureRows()}
	h := New[row, kindFilter](CollectionStores, f.fetch, matchKind, newMemCache(), Options{}, nil)
	scope := uuid.New()

	_, err := h.Load(context.Background(), &scope, kindFilter{})
	require.NoError(t, err)
	_, err = h.Reload(context.Background(), &scope, kindFilter{})
	require.NoError(t, err)

	assert.Equal(t, 2, f.calls)
}

func TestHook_FilterIsMemoizedPerSnapshotAndParams(t *testing.T) {
	f := &countingFetch{rows: fixtureRows()}
	h := New[row, kindFilter](CollectionEvents, f.fetch, matchKind, nil, Options{}, nil)
	scope := uuid.New()
	snap, err := h.Fetch(context.Background(), scope)
	require.NoError(t, err)

	first := h.Filter(scope, snap, kindFilter{Kind: "x"})
	second := h.Filter(scope, snap, kindFilter{Kind: "x"})
	other := h.Filter(scope, snap, kindFilter{Kind: "y"})

	require.Len(t, first, 2)
	assert.Same(t, &first[0], &second[0], "same inputs must return the same slice")
	assert.Equal(t, []row{{"b", "y"}}, other)
	assert.Equal(t, fixtureRows(), snap.Rows, "filtering must not touch the snapshot")

	fresh, err := h.Fetch(context.Background(), scope)
	require.NoError(t, err)
	third := h.Filter(scope, fresh, kindFilter{Kind: "x"})
	assert.NotSame(t, &first[0], &third[0], "a new snapshot is a new memo key")
}

type recordingNotifier struct {
	orgID       uuid.UUID
	collections []string
}

func (n *recordingNotifier) NotifyInvalidated(orgID uuid.UUID, collections ...string) {
	n.orgID = orgID
	n.collections = append(n.collections, collections...)
}

func TestCacheInvalidator_DropsCacheAndNotifies(t *testing.T) {
	f := &countingFetch{rows: fixtureRows()}
	cache := newMemCache()
	notifier := &recordingNotifier{}
	h := New[row, kindFilter](CollectionTeamMembers, f.fetch, matchKind, cache, Options{}, nil)
	inv := NewCacheInvalidator(cache, notifier, nil)
	scope := uuid.New()

	_, err := h.Load(context.Background(), &scope, kindFilter{})
	require.NoError(t, err)
	require.NoError(t, inv.Invalidate(context.Background(), scope, CollectionTeamMembers))
	_, err = h.Load(context.Background(), &scope, kindFilter{})
	require.NoError(t, err)

	assert.Equal(t, 2, f.calls)
	assert.Equal(t, []string{CollectionTeamMembers}, cache.invalidated)
	assert.Equal(t, scope, notifier.orgID)
	assert.Equal(t, []string{CollectionTeamMembers}, notifier.collections)
}

func TestCacheInvalidator_NoCollectionsIsNoop(t *testing.T) {
	cache := newMemCache()
	inv := NewCacheInvalidator(cache, nil, nil)

	require.NoError(t, inv.Invalidate(context.Background(), uuid.New()))
	assert.Empty(t, cache.invalidated)
}
