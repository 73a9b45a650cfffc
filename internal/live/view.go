// Package live pushes filtered dashboard lists over WebSocket and refetches them when they go
// stale or are invalidated by a mutation.
package live

import (
	"context"

	"github.com/google/uuid"

	"github.com/merchant-ops/backend/internal/listing"
	"github.com/merchant-ops/backend/internal/querystate"
)

// View is one list a session can watch.
type View interface {
	Name() string
	Collection() string
	Schema() querystate.Schema
	// Load returns the page for st. fresh bypasses the query cache.
	Load(ctx context.Context, scope uuid.UUID, st querystate.State, fresh bool) (any, error)
}

// Source is the subset of listing.Hook a view reads through.
type Source[T any, P comparable] interface {
	Collection() string
	Load(ctx context.Context, scope *uuid.UUID, params P) (*listing.Result[T], error)
	Reload(ctx context.Context, scope *uuid.UUID, params P) (*listing.Result[T], error)
}

type listView[T any, P comparable] struct {
	name   string
	src    Source[T, P]
	schema querystate.Schema
	params func(querystate.State) P
}

// NewView adapts a list hook into a View. params converts the session's filter state.
func NewView[T any, P comparable](name string, src Source[T, P], schema querystate.Schema, params func(querystate.State) P) View {
	return &listView[T, P]{name: name, src: src, schema: schema, params: params}
}

func (v *listView[T, P]) Name() string { return v.name }
func (v *listView[T, P]) Collection() string { return v.src.Collection() }
func (v *listView[T, P]) Schema() querystate.Schema { return v.schema }

func (v *listView[T, P]) Load(ctx context.Context, scope uuid.UUID, st querystate.State, fresh bool) (any, error) {
	load := v.src.Load
	if fresh {
		load = v.src.Reload
	}
	res, err := load(ctx, &scope, v.params(st))
	if err != nil {
		return nil, err
	}
	return listing.NewPage(res, v.schema, st), nil
}
