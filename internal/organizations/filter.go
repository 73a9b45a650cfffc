package organizations

import (
	"net/url"

	"github.com/merchant-ops/backend/internal/filter"
	"github.com/merchant-ops/backend/internal/models"
	"github.com/merchant-ops/backend/internal/querystate"
)

// TeamSchema binds the team view filters to the query string.
var TeamSchema = querystate.NewSchema(
	querystate.Field{Name: "role", Default: filter.All, Allowed: filter.WithAll(models.MemberRoles...)},
	querystate.Field{Name: "search", Debounced: true},
)

// TeamFilter narrows the members list.
type TeamFilter struct {
	Role   string
	Search string
}

// TeamFilterFromState builds a TeamFilter from parsed query state.
func TeamFilterFromState(st querystate.State) TeamFilter {
	return TeamFilter{Role: st.Get("role"), Search: st.Get("search")}
}

// ParseTeamFilter reads the team filter from query parameters.
func ParseTeamFilter(values url.Values) (TeamFilter, querystate.State) {
	st := TeamSchema.Parse(values)
	return TeamFilterFromState(st), st
}

// MatchMember searches full name and email.
func MatchMember(m models.Member, f TeamFilter) bool {
	return filter.Equal(f.Role, m.Role) && filter.Contains(f.Search, m.FullName, m.Email)
}

// OrgSchema binds the organization switcher search.
var OrgSchema = querystate.NewSchema(
	querystate.Field{Name: "search", Debounced: true},
)

// OrgFilter narrows the organization switcher.
type OrgFilter struct {
	Search string
}

// ParseOrgFilter reads the switcher filter from query parameters.
func ParseOrgFilter(values url.Values) (OrgFilter, querystate.State) {
	st := OrgSchema.Parse(values)
	return OrgFilter{Search: st.Get("search")}, st
}

// MatchOrganization searches the organization name.
func MatchOrganization(o models.Organization, f OrgFilter) bool {
	return filter.Contains(f.Search, o.Name)
}
