// Package search turns a validated search query into the predicate, ordering and window
// run against the freelancers table.
package search

import (
	"strings"

	"github.com/mkhedmin/mkhedmin-api/internal/models"
	"github.com/mkhedmin/mkhedmin-api/internal/validation"
)

// Clause is a SQL fragment with its bind arguments.
type Clause struct {
	SQL  string
	Args []any
}

type Plan struct {
	Conditions []Clause
	Order      Clause
	Page       int
	Limit      int
	Offset     int
	Term       string
}

const (
	viewsDesc   = "stats_profile_views DESC, created_at DESC"
	tsQuery     = "plainto_tsquery('simple', ?)"
	stacksAnyOf = "EXISTS (SELECT 1 FROM jsonb_array_elements_text(freelancers.stacks) AS s(stack) WHERE s.stack IN ?)"
)

// sortOrders is the fixed sort table. rating has no aggregate behind it yet and sorts by views.
var sortOrders = map[string]string{
	"newest":     "created_at DESC",
	"rating":     viewsDesc,
	"views":      viewsDesc,
	"price_low":  "rate_hourly_rate ASC NULLS LAST, created_at DESC",
	"price_high": "rate_hourly_rate DESC NULLS LAST, created_at DESC",
	"best":       viewsDesc,
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func contains(s string) string { return "%" + likeEscaper.Replace(s) + "%" }

// Build expects a query that already went through validation.Validate.
func Build(in validation.SearchInput) Plan {
	p := Plan{Page: in.Page, Limit: in.Limit, Term: in.Q}
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = 12
	}
	p.Offset = (p.Page - 1) * p.Limit

	add := func(sql string, args ...any) {
		p.Conditions = append(p.Conditions, Clause{SQL: sql, Args: args})
	}

	add("visibility = ?", string(models.VisibilityPublic))
	if in.Q != "" {
		add(models.FreelancerSearchDocument+" @@ "+tsQuery, in.Q)
	}
	if in.Category != "" {
		add("category = ?", in.Category)
	}
	if len(in.Stacks) > 0 {
		add(stacksAnyOf, in.Stacks)
	}
	if in.Mode != "" {
		add("mode = ?", in.Mode)
	}
	if in.City != "" {
		add("location_city ILIKE ?", contains(in.City))
	}
	if in.Region != "" {
		add("location_region ILIKE ?", contains(in.Region))
	}
	if in.RateMin != nil || in.RateMax != nil {
		add("rate_is_public = ?", true)
		if in.RateMin != nil {
			add("rate_hourly_rate >= ?", *in.RateMin)
		}
		if in.RateMax != nil {
			add("rate_hourly_rate <= ?", *in.RateMax)
		}
	}
	if in.Availability != "" {
		add("availability = ?", in.Availability)
	}
	if in.Experience != "" {
		add("experience = ?", in.Experience)
	}

	p.Order = order(in.Sort, in.Q)
	return p
}

func order(sort, term string) Clause {
	if (sort == "" || sort == "best") && term != "" {
		return Clause{
			SQL:  "ts_rank(" + models.FreelancerSearchDocument + ", " + tsQuery + ") DESC, " + viewsDesc,
			Args: []any{term},
		}
	}
	if o, ok := sortOrders[sort]; ok {
		return Clause{SQL: o}
	}
	return Clause{SQL: sortOrders["best"]}
}
