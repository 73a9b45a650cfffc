package events

import (
	"net/url"

	"github.com/merchant-ops/backend/internal/filter"
	"github.com/merchant-ops/backend/internal/models"
	"github.com/merchant-ops/backend/internal/querystate"
)

// Schema binds the events view filters to the query string.
var Schema = querystate.NewSchema(
	querystate.Field{Name: "platform", Default: filter.All, Allowed: filter.WithAll(models.Platforms...)},
	querystate.Field{Name: "search", Debounced: true},
)

// Filter narrows the events list.
type Filter struct {
	Platform string
	Search   string
}

// FilterFromState builds a Filter from parsed query state.
func FilterFromState(st querystate.State) Filter {
	return Filter{Platform: st.Get("platform"), Search: st.Get("search")}
}

// ParseFilter reads the filter from query parameters.
func ParseFilter(values url.Values) (Filter, querystate.State) {
	st := Schema.Parse(values)
	return FilterFromState(st), st
}

// Match searches the external event id and entity.
func Match(e models.Event, f Filter) bool {
	return filter.Equal(f.Platform, e.Platform) &&
		filter.Contains(f.Search, e.ExternalEventID, e.Entity)
}
