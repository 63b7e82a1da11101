// Package models defines core data structures for purchase requisitions, their line items,
// item search queries, and search results.
package models

import (
	"strings"
	"time"
)

// Status is the lifecycle state of a purchase requisition.
type Status string

const (
	StatusInProgress Status = "In Progress"
	StatusCompleted  Status = "Completed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusInProgress || s == StatusCompleted
}

// ParseStatus accepts a status by its display name or as a snake/kebab-case token.
func ParseStatus(raw string) (Status, bool) {
	norm := strings.NewReplacer("_", " ", "-", " ").Replace(strings.ToLower(strings.TrimSpace(raw)))
	switch norm {
	case "in progress":
		return StatusInProgress, true
	case "completed":
		return StatusCompleted, true
	}
	return "", false
}

// LastModified records who last touched a record and when.
type LastModified struct {
	UserName  string    `json:"user_name"`
	Timestamp time.Time `json:"timestamp"`
}

// PRItem is a single line item of a purchase requisition.
// IsComplete implies ReceivedQuantity >= OriginalQuantity.
type PRItem struct {
	ID               string        `json:"id" db:"id"`
	Description      string        `json:"description" db:"description"`
	OriginalQuantity float64       `json:"original_quantity" db:"original_quantity"`
	ReceivedQuantity float64       `json:"received_quantity" db:"received_quantity"`
	Comment          string        `json:"comment" db:"comment"`
	IsComplete       bool          `json:"is_complete" db:"is_complete"`
	LastModifiedBy   *LastModified `json:"last_modified_by,omitempty" db:"-"`
}

// Pending returns the quantity still outstanding, never negative.
func (it PRItem) Pending() float64 {
	if p := it.OriginalQuantity - it.ReceivedQuantity; p > 0 {
		return p
	}
	return 0
}

// ItemState summarizes receipt progress of an item.
type ItemState string

const (
	ItemPending   ItemState = "pending"
	ItemPartial   ItemState = "partial"
	ItemCompleted ItemState = "completed"
)

// State classifies the item as completed, partially received, or pending.
func (it PRItem) State() ItemState {
	switch {
	case it.IsComplete:
		return ItemCompleted
	case it.ReceivedQuantity > 0:
		return ItemPartial
	default:
		return ItemPending
	}
}

// PurchaseRequisition is a requisition document with its line items.
// IssueDate is kept as the display string produced at import time.
type PurchaseRequisition struct {
	ID             string        `json:"id" db:"id"`
	Name           string        `json:"name" db:"name"`
	IssueDate      string        `json:"issue_date" db:"issue_date"`
	Status         Status        `json:"status" db:"status"`
	Items          []PRItem      `json:"items" db:"-"`
	RequisitionBy  string        `json:"requisition_by" db:"requisition_by"`
	ApprovedBy     string        `json:"approved_by" db:"approved_by"`
	LastModifiedBy *LastModified `json:"last_modified_by,omitempty" db:"-"`
	CreatedAt      time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at" db:"updated_at"`
}

// Item returns a pointer to the item with the given id, or nil.
func (pr *PurchaseRequisition) Item(id string) *PRItem {
	for i := range pr.Items {
		if pr.Items[i].ID == id {
			return &pr.Items[i]
		}
	}
	return nil
}

// AllComplete reports whether every item is complete. A requisition with no items is not.
func (pr *PurchaseRequisition) AllComplete() bool {
	if len(pr.Items) == 0 {
		return false
	}
	for _, it := range pr.Items {
		if !it.IsComplete {
			return false
		}
	}
	return true
}

// Summary is the list view of a requisition without its items.
type Summary struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	IssueDate      string        `json:"issue_date"`
	Status         Status        `json:"status"`
	RequisitionBy  string        `json:"requisition_by"`
	ApprovedBy     string        `json:"approved_by"`
	ItemCount      int           `json:"item_count"`
	CompleteCount  int           `json:"complete_count"`
	LastModifiedBy *LastModified `json:"last_modified_by,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
}
