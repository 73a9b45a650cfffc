// Package listing implements the fetch → cache → filter pipeline shared by every dashboard list.
package listing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/merchant-ops/backend/internal/filter"
)

// Cached collection keys. Mutations invalidate by these names.
const (
	CollectionEvents        = "events"
	CollectionAlerts        = "alerts"
	CollectionStores        = "stores"
	CollectionTeamMembers   = "team_members"
	CollectionOrganizations = "organizations"
)

const (
	defaultLimit      = 200
	defaultStaleAfter = 30 * time.Second
)

// FetchFunc reads at most limit rows for scope, newest first.
type FetchFunc[T any] func(ctx context.Context, scope uuid.UUID, limit int) ([]T, error)

// MatchFunc reports whether row passes every active filter in params.
type MatchFunc[T any, P comparable] func(row T, params P) bool

// Cache stores fetched snapshots between requests.
type Cache interface {
	Get(ctx context.Context, collection, scope string, dst any) (bool, error)
	Set(ctx context.Context, collection, scope string, v any, ttl time.Duration) error
	Invalidate(ctx context.Context, collections ...string) error
}

// Options tune a hook. Zero values take the defaults (200 rows, 30s freshness).
type Options struct {
	Limit      int
	StaleAfter time.Duration
}

// Snapshot is one completed fetch. ID changes on every fetch and keys the filter memo.
type Snapshot[T any] struct {
	ID        uuid.UUID `json:"id"`
	Rows      []T       `json:"rows"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Result is the filtered view of a snapshot.
type Result[T any] struct {
	Rows      []T       `json:"rows"`
	Fetched   int       `json:"fetched"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Hook loads a scoped collection and returns it filtered by P.
type Hook[T any, P comparable] struct {
	collection string
	fetch      FetchFunc[T]
	match      MatchFunc[T, P]
	cache      Cache
	opts       Options
	memo       *memo[T, P]
	logger     *zap.Logger
	now        func() time.Time
}

// New creates a hook for collection. cache may be nil to always read through.
func New[T any, P comparable](collection string, fetch FetchFunc[T], match MatchFunc[T, P], cache Cache, opts Options, logger *zap.Logger) *Hook[T, P] {
	if opts.Limit <= 0 {
		opts.Limit = defaultLimit
	}
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = defaultStaleAfter
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hook[T, P]{
		collection: collection,
		fetch:      fetch,
		match:      match,
		cache:      cache,
		opts:       opts,
		memo:       newMemo[T, P](memoCapacity),
		logger:     logger,
		now:        time.Now,
	}
}

// Collection returns the cache key this hook reads and is invalidated by.
func (h *Hook[T, P]) Collection() string { return h.collection }

// Load returns the filtered list for scope. A nil scope disables the fetch and yields an empty list.
func (h *Hook[T, P]) Load(ctx context.Context, scope *uuid.UUID, params P) (*Result[T], error) {
	if scope == nil {
		return &Result[T]{Rows: []T{}}, nil
	}
	snap, err := h.Snapshot(ctx, *scope)
	if err != nil {
		return nil, err
	}
	return h.result(*scope, snap, params), nil
}

// Reload bypasses the cache, fetches a fresh snapshot and returns it filtered.
func (h *Hook[T, P]) Reload(ctx context.Context, scope *uuid.UUID, params P) (*Result[T], error) {
	if scope == nil {
		return &Result[T]{Rows: []T{}}, nil
	}
	snap, err := h.Fetch(ctx, *scope)
	if err != nil {
		return nil, err
	}
	return h.result(*scope, snap, params), nil
}

// Snapshot returns the cached snapshot for scope while it is fresh, otherwise fetches.
func (h *Hook[T, P]) Snapshot(ctx context.Context, scope uuid.UUID) (*Snapshot[T], error) {
	if h.cache != nil {
		var snap Snapshot[T]
		ok, err := h.cache.Get(ctx, h.collection, scope.String(), &snap)
		if err != nil {
			h.logger.Warn("list cache read failed", zap.String("collection", h.collection), zap.Error(err))
		} else if ok && h.now().Sub(snap.FetchedAt) < h.opts.StaleAfter {
			return &snap, nil
		}
	}
	return h.Fetch(ctx, scope)
}

// Fetch issues the remote read and stores the snapshot. Errors are returned as-is, never retried.
func (h *Hook[T, P]) Fetch(ctx context.Context, scope uuid.UUID) (*Snapshot[T], error) {
	rows, err := h.fetch(ctx, scope, h.opts.Limit)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", h.collection, err)
	}
	if rows == nil {
		rows = []T{}
	}
	snap := &Snapshot[T]{ID: uuid.New(), Rows: rows, FetchedAt: h.now()}
	if h.cache != nil {
		if err := h.cache.Set(ctx, h.collection, scope.String(), snap, h.opts.StaleAfter); err != nil {
			h.logger.Warn("list cache write failed", zap.String("collection", h.collection), zap.Error(err))
		}
	}
	return snap, nil
}

// Filter narrows snap by params. Identical (scope, snapshot, params) return the identical slice.
func (h *Hook[T, P]) Filter(scope uuid.UUID, snap *Snapshot[T], params P) []T {
	key := memoKey[P]{scope: scope, snapshot: snap.ID, params: params}
	if rows, ok := h.memo.get(key); ok {
		return rows
	}
	rows := filter.Apply(snap.Rows, func(row T) bool { return h.match(row, params) })
	h.memo.put(key, rows)
	return rows
}

func (h *Hook[T, P]) result(scope uuid.UUID, snap *Snapshot[T], params P) *Result[T] {
	return &Result[T]{
		Rows:      h.Filter(scope, snap, params),
		Fetched:   len(snap.Rows),
		FetchedAt: snap.FetchedAt,
	}
}
