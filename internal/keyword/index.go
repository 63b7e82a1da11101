// Package keyword provides a ranked term index over requisition line items, used for
// global item search with optional typo tolerance.
package keyword

import (
	"context"

	"github.com/hyperjump/prtrack/internal/models"
)

// SearchOptions optional parameters for keyword search. Nil means use defaults.
type SearchOptions struct {
	// NameBoost multiplies matches in the requisition name relative to the description.
	// Use 0 to leave requisition names out of the query.
	NameBoost float64
	// FuzzyEnabled enables fuzzy matching for typo tolerance.
	FuzzyEnabled bool
	// Fuzziness is the maximum Levenshtein edit distance for fuzzy matching (1 or 2).
	// Default is 1 when FuzzyEnabled is true.
	Fuzziness int
}

// ItemIndex defines item indexing and search operations.
type ItemIndex interface {
	// IndexRequisition adds or replaces every item of pr.
	IndexRequisition(ctx context.Context, pr *models.PurchaseRequisition) error
	// DeleteRequisition removes every item belonging to the requisition id.
	DeleteRequisition(ctx context.Context, prID string) error
	Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*KeywordResult, error)
	// DocCount returns the total number of items in the index.
	DocCount() (uint64, error)
	Close() error
}

// KeywordResult is a single keyword search hit. ID is the item id.
type KeywordResult struct {
	ID    string
	PRID  string
	Score float64
}

// itemDocument is the indexed form of a line item.
type itemDocument struct {
	Description string `json:"description"`
	PRName      string `json:"pr_name"`
	PRID        string `json:"pr_id"`
}
