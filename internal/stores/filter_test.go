package stores

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/merchant-ops/backend/internal/filter"
	"github.com/merchant-ops/backend/internal/models"
)

func TestMatch(t *testing.T) {
	rows := []models.Store{
		{Name: "Main Shopify", Platform: "shopify", AuthStatus: "active"},
		{Name: "Amazon US", Platform: "amazon", AuthStatus: "expired"},
		{Name: "Amazon EU", Platform: "amazon", AuthStatus: "active"},
	}

	tests := []struct {
		name  string
		query url.Values
		want  []string
	}{
		{"defaults pass everything", url.Values{}, []string{"Main Shopify", "Amazon US", "Amazon EU"}},
		{"platform", url.Values{"platform": {"amazon"}}, []string{"Amazon US", "Amazon EU"}},
		{"status", url.Values{"status": {"expired"}}, []string{"Amazon US"}},
		{"search is case-insensitive", url.Values{"search": {"AMAZON eu"}}, []string{"Amazon EU"}},
		{"combined", url.Values{"platform": {"amazon"}, "status": {"active"}}, []string{"Amazon EU"}},
		{"unknown status resets", url.Values{"status": {"broken"}}, []string{"Main Shopify", "Amazon US", "Amazon EU"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, _ := ParseFilter(tt.query)
			got := filter.Apply(rows, func(s models.Store) bool { return Match(s, f) })
			names := make([]string, 0, len(got))
			for _, s := range got {
				names = append(names, s.Name)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestMask(t *testing.T) {
	assert.Equal(t, "****", mask("abcd"))
	assert.Equal(t, "********cdef", mask("456789abcdef"))
	assert.Equal(t, "", mask(""))
}
