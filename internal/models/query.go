package models

import (
	"fmt"
	"strings"
)

// ItemSearchQuery is a global search over line item descriptions.
type ItemSearchQuery struct {
	Query        string `json:"query"`
	Limit        int    `json:"limit,omitempty"`
	RankedSearch bool   `json:"ranked,omitempty"` // use the keyword index instead of substring matching
	FuzzyEnabled bool   `json:"fuzzy_enabled,omitempty"`
}

// Validate ensures the query is non-empty and normalizes the limit.
func (q *ItemSearchQuery) Validate() error {
	q.Query = strings.TrimSpace(q.Query)
	if q.Query == "" {
		return fmt.Errorf("query cannot be empty")
	}
	if q.Limit <= 0 {
		q.Limit = 50
	}
	if q.Limit > 500 {
		q.Limit = 500
	}
	if q.FuzzyEnabled {
		q.RankedSearch = true
	}
	return nil
}

// ListFilter narrows a requisition listing.
type ListFilter struct {
	Status Status `json:"status,omitempty"`
}
