package models

import "github.com/google/uuid"

// CountBy is one bucket of a GROUP BY count.
type CountBy struct {
	Key   string `gorm:"column:bucket" json:"key"`
	Count int64  `gorm:"column:count" json:"count"`
}

// CountMap flattens buckets into {key: count}.
func CountMap(rows []CountBy) map[string]int64 {
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Key] = r.Count
	}
	return out
}

type PlatformStats struct {
	TotalFreelancers int64     `json:"totalFreelancers"`
	TotalLeads       int64     `json:"totalLeads"`
	ByCategory       []CountBy `json:"byCategory"`
	TopCities        []CountBy `json:"topCities"`
}

// LeadWindowStats aggregates one freelancer's leads created since a cutoff.
type LeadWindowStats struct {
	Total            int64
	Responded        int64
	Converted        int64
	AvgResponseHours *float64
}

type LeadFilter struct {
	FreelancerID uuid.UUID
	Status       string
	Channel      string
	Priority     string
	Sort         string
	Page         int
	Limit        int
}
