package stores

import (
	"net/url"

	"github.com/merchant-ops/backend/internal/filter"
	"github.com/merchant-ops/backend/internal/models"
	"github.com/merchant-ops/backend/internal/querystate"
)

// Schema binds the integrations view filters to the query string.
var Schema = querystate.NewSchema(
	querystate.Field{Name: "platform", Default: filter.All, Allowed: filter.WithAll(models.Platforms...)},
	querystate.Field{Name: "status", Default: filter.All, Allowed: filter.WithAll(models.AuthStatusActive, models.AuthStatusExpired)},
	querystate.Field{Name: "search", Debounced: true},
)

// Filter narrows the stores list.
type Filter struct {
	Platform string
	Status   string
	Search   string
}

// FilterFromState builds a Filter from parsed query state.
func FilterFromState(st querystate.State) Filter {
	return Filter{Platform: st.Get("platform"), Status: st.Get("status"), Search: st.Get("search")}
}

// ParseFilter reads the filter from query parameters.
func ParseFilter(values url.Values) (Filter, querystate.State) {
	st := Schema.Parse(values)
	return FilterFromState(st), st
}

// Match applies every store predicate. Search covers the store name.
func Match(s models.Store, f Filter) bool {
	return filter.Equal(f.Platform, s.Platform) &&
		filter.Equal(f.Status, s.AuthStatus) &&
		filter.Contains(f.Search, s.Name)
}
