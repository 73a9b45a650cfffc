package listing

import (
	"time"

	"github.com/merchant-ops/backend/internal/querystate"
)

// Page is what list endpoints and live sessions send: the filtered rows plus the normalized
// filter state, so a client can write it back into its URL.
type Page[T any] struct {
	Rows      []T              `json:"rows"`
	Total     int              `json:"total"`
	Fetched   int              `json:"fetched"`
	FetchedAt *time.Time       `json:"fetched_at,omitempty"`
	Filters   querystate.State `json:"filters"`
	Query     string           `json:"query"`
}

// NewPage wraps a result with the filter state that produced it.
func NewPage[T any](res *Result[T], schema querystate.Schema, st querystate.State) Page[T] {
	p := Page[T]{
		Rows:    res.Rows,
		Total:   len(res.Rows),
		Fetched: res.Fetched,
		Filters: st,
		Query:   schema.Encode(st).Encode(),
	}
	if !res.FetchedAt.IsZero() {
		at := res.FetchedAt
		p.FetchedAt = &at
	}
	return p
}
