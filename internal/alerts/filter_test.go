package alerts

import (
	"net/url"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/merchant-ops/backend/internal/filter"
	"github.com/merchant-ops/backend/internal/models"
)

func boolPtr(b bool) *bool { return &b }

func alert(severity, platform, alertType, message string, resolved *bool) models.Alert {
	return models.Alert{
		ID:        uuid.New(),
		Severity:  severity,
		Platform:  platform,
		AlertType: alertType,
		Message:   message,
		Resolved:  resolved,
	}
}

func apply(rows []models.Alert, f Filter) []models.Alert {
	return filter.Apply(rows, func(a models.Alert) bool { return Match(a, f) })
}

func fixture() []models.Alert {
	return []models.Alert{
		alert("critical", "shopify", "inventory", "Low Stock Alert", nil),
		alert("low", "amazon", "sync", "Listing sync delayed", boolPtr(false)),
		alert("critical", "amazon", "auth", "Token expired", boolPtr(true)),
		alert("medium", "walmart", "order", "Order stuck in pending", nil),
	}
}

func TestMatch_SeverityScenario(t *testing.T) {
	rows := []models.Alert{
		alert("critical", "shopify", "a", "x", nil),
		alert("low", "shopify", "a", "y", nil),
		alert("critical", "shopify", "a", "z", nil),
	}

	got := apply(rows, Filter{Severity: "critical"})

	assert.Len(t, got, 2)
	for _, a := range got {
		assert.Equal(t, "critical", a.Severity)
	}
}

func TestMatch_ResolvedTriState(t *testing.T) {
	rows := []models.Alert{
		alert("low", "shopify", "a", "resolved", boolPtr(true)),
		alert("low", "shopify", "a", "open-false", boolPtr(false)),
		alert("low", "shopify", "a", "open-null", nil),
	}

	open := apply(rows, Filter{Resolved: filter.StateOpen})
	resolved := apply(rows, Filter{Resolved: filter.StateResolved})
	all := apply(rows, Filter{Resolved: filter.All})

	assert.Equal(t, []models.Alert{rows[1], rows[2]}, open)
	assert.Equal(t, []models.Alert{rows[0]}, resolved)
	assert.Equal(t, rows, all)
}

func TestMatch_SearchIsCaseInsensitive(t *testing.T) {
	rows := fixture()

	for _, term := range []string{"stock", "STOCK", "Stock Al"} {
		got := apply(rows, Filter{Search: term})
		assert.Len(t, got, 1, term)
		assert.Equal(t, "Low Stock Alert", got[0].Message)
	}
	assert.Len(t, apply(rows, Filter{Search: "SYNC"}), 1, "alert_type is searched too")
}

func TestMatch_PredicatesCombineWithAnd(t *testing.T) {
	got := apply(fixture(), Filter{Platform: "amazon", Severity: "critical", Resolved: filter.StateOpen})
	assert.Empty(t, got)

	got = apply(fixture(), Filter{Platform: "amazon", Resolved: filter.StateOpen})
	assert.Len(t, got, 1)
	assert.Equal(t, "Listing sync delayed", got[0].Message)
}

func TestMatch_OrderPreservingAndIdempotent(t *testing.T) {
	rows := fixture()
	params := []Filter{
		{},
		{Severity: "critical"},
		{Resolved: filter.StateOpen},
		{Platform: "amazon", Search: "e"},
		{Search: "order"},
	}
	for _, f := range params {
		once := apply(rows, f)
		twice := apply(once, f)
		assert.Equal(t, once, twice)

		last := -1
		for _, a := range once {
			idx := indexOf(rows, a.ID)
			assert.Greater(t, idx, last, "filtering must not reorder")
			last = idx
		}
	}
	assert.Equal(t, fixture()[0].Message, rows[0].Message)
}

func TestParseFilter_DefaultsAreNoop(t *testing.T) {
	f, st := ParseFilter(url.Values{})

	assert.Equal(t, Filter{Platform: "all", Severity: "all", Resolved: "all"}, f)
	assert.True(t, Schema.IsDefault(st))
	assert.Equal(t, fixture()[3].Message, apply(fixture(), f)[3].Message)
	assert.Len(t, apply(fixture(), f), 4)
}

func TestParseFilter_InvalidValuesResetToDefault(t *testing.T) {
	f, _ := ParseFilter(url.Values{
		"platform": {"bogus"},
		"severity": {"urgent"},
		"resolved": {"maybe"},
	})

	assert.Equal(t, Filter{Platform: "all", Severity: "all", Resolved: "all"}, f)
}

func indexOf(rows []models.Alert, id uuid.UUID) int {
	for i, a := range rows {
		if a.ID == id {
			return i
		}
	}
	return -1
}
