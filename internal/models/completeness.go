package models

import "strings"

type completenessRule struct {
	field  string
	weight int
	filled func(f *Freelancer) bool
}

// completenessRules weights sum to 100.
var completenessRules = []completenessRule{
	{"name", 10, func(f *Freelancer) bool { return strings.TrimSpace(f.Name) != "" }},
	{"title", 10, func(f *Freelancer) bool { return strings.TrimSpace(f.Title) != "" }},
	{"avatar", 10, func(f *Freelancer) bool { return f.Avatar != "" }},
	{"bio", 15, func(f *Freelancer) bool { return strings.TrimSpace(f.Bio) != "" }},
	{"category", 5, func(f *Freelancer) bool { return f.Category != "" }},
	{"stacks", 10, func(f *Freelancer) bool { return len(f.Stacks) > 0 }},
	{"location.city", 5, func(f *Freelancer) bool { return f.Location.City != "" }},
	{"rate", 10, func(f *Freelancer) bool { return f.Rate.Type == RateNegotiable || f.Rate.HasAmount() }},
	{"languages", 5, func(f *Freelancer) bool { return len(f.Languages) > 0 }},
	{"services", 5, func(f *Freelancer) bool { return len(f.Services) > 0 }},
	{"portfolio", 10, func(f *Freelancer) bool { return len(f.Portfolio) > 0 }},
	{"contacts", 5, func(f *Freelancer) bool { return f.Contacts.Any() }},
}

// ComputeCompleteness scores the profile against completenessRules.
func (f *Freelancer) ComputeCompleteness() Completeness {
	total, earned := 0, 0
	missing := []string{}
	for _, r := range completenessRules {
		total += r.weight
		if r.filled(f) {
			earned += r.weight
		} else {
			missing = append(missing, r.field)
		}
	}
	score := 0
	if total > 0 {
		score = earned * 100 / total
	}
	return Completeness{Score: score, Missing: missing}
}
