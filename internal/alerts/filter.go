package alerts

import (
	"net/url"

	"github.com/merchant-ops/backend/internal/filter"
	"github.com/merchant-ops/backend/internal/models"
	"github.com/merchant-ops/backend/internal/querystate"
)

// Schema binds the alerts view filters to the query string.
var Schema = querystate.NewSchema(
	querystate.Field{Name: "platform", Default: filter.All, Allowed: filter.WithAll(models.Platforms...)},
	querystate.Field{Name: "severity", Default: filter.All, Allowed: filter.WithAll(models.Severities...)},
	querystate.Field{Name: "resolved", Default: filter.All, Allowed: filter.WithAll(filter.StateOpen, filter.StateResolved)},
	querystate.Field{Name: "search", Debounced: true},
)

// Filter narrows the alerts list.
type Filter struct {
	Platform string
	Severity string
	Resolved string
	Search   string
}

// FilterFromState builds a Filter from parsed query state.
func FilterFromState(st querystate.State) Filter {
	return Filter{
		Platform: st.Get("platform"),
		Severity: st.Get("severity"),
		Resolved: st.Get("resolved"),
		Search:   st.Get("search"),
	}
}

// ParseFilter reads the filter from query parameters.
func ParseFilter(values url.Values) (Filter, querystate.State) {
	st := Schema.Parse(values)
	return FilterFromState(st), st
}

// Match applies every alert predicate. Search covers the message and the alert type.
func Match(a models.Alert, f Filter) bool {
	return filter.Equal(f.Platform, a.Platform) &&
		filter.Equal(f.Severity, a.Severity) &&
		filter.Resolved(f.Resolved, a.Resolved) &&
		filter.Contains(f.Search, a.Message, a.AlertType)
}
