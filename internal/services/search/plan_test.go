package search

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkhedmin/mkhedmin-api/internal/validation"
)

func sqls(p Plan) []string {
	out := make([]string, 0, len(p.Conditions))
	for _, c := range p.Conditions {
		out = append(out, c.SQL)
	}
	return out
}

func TestBuild_EmptyQueryStillPublicOnly(t *testing.T) {
	p := Build(validation.SearchInput{Sort: "best", Page: 1, Limit: 12})

	require.Len(t, p.Conditions, 1)
	assert.Equal(t, "visibility = ?", p.Conditions[0].SQL)
	assert.Equal(t, []any{"public"}, p.Conditions[0].Args)
	assert.Equal(t, "stats_profile_views DESC, created_at DESC", p.Order.SQL)
	assert.Equal(t, 0, p.Offset)
}

func TestBuild_FiltersAreConjunctive(t *testing.T) {
	p := Build(validation.SearchInput{
		Category:     "design",
		Stacks:       []string{"figma", "illustrator"},
		Mode:         "remote",
		City:         "casa",
		Availability: "now",
		Experience:   "senior",
		Sort:         "newest",
		Page:         3,
		Limit:        12,
	})

	got := sqls(p)
	assert.Len(t, got, 7)
	assert.Contains(t, got, "category = ?")
	assert.Contains(t, got, "mode = ?")
	assert.Contains(t, got, "location_city ILIKE ?")
	assert.Contains(t, got, "availability = ?")
	assert.Contains(t, got, "experience = ?")
	assert.Contains(t, got, stacksAnyOf)
	assert.Equal(t, "created_at DESC", p.Order.SQL)
	assert.Equal(t, 24, p.Offset)
}

func TestBuild_CitySubstringIsEscaped(t *testing.T) {
	p := Build(validation.SearchInput{City: "50%_off", Page: 1, Limit: 12})
	assert.Equal(t, []any{`%50\%\_off%`}, p.Conditions[1].Args)
}

func TestBuild_RateBoundsRequirePublicRate(t *testing.T) {
	rateMin := 100.0
	p := Build(validation.SearchInput{RateMin: &rateMin, Page: 1, Limit: 12})
	assert.Equal(t, []string{"visibility = ?", "rate_is_public = ?", "rate_hourly_rate >= ?"}, sqls(p))

	p = Build(validation.SearchInput{Page: 1, Limit: 12})
	for _, s := range sqls(p) {
		assert.False(t, strings.Contains(s, "rate_"), "rate filter must be a no-op without bounds")
	}
}

func TestBuild_TermRanksByRelevance(t *testing.T) {
	p := Build(validation.SearchInput{Q: "react native", Sort: "best", Page: 1, Limit: 12})

	assert.Contains(t, p.Conditions[1].SQL, "@@ plainto_tsquery('simple', ?)")
	assert.True(t, strings.HasPrefix(p.Order.SQL, "ts_rank("))
	assert.Equal(t, []any{"react native"}, p.Order.Args)
}

func TestBuild_SortTable(t *testing.T) {
	cases := map[string]string{
		"newest":     "created_at DESC",
		"rating":     "stats_profile_views DESC, created_at DESC",
		"views":      "stats_profile_views DESC, created_at DESC",
		"price_low":  "rate_hourly_rate ASC NULLS LAST, created_at DESC",
		"price_high": "rate_hourly_rate DESC NULLS LAST, created_at DESC",
	}
	for sort, want := range cases {
		p := Build(validation.SearchInput{Q: "go", Sort: sort, Page: 1, Limit: 12})
		assert.Equal(t, want, p.Order.SQL, sort)
		assert.Empty(t, p.Order.Args, sort)
	}
}
