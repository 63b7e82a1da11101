// Package receipt records deliveries against requisition line items and keeps the
// requisition status in step with its items.
package receipt

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/hyperjump/prtrack/internal/models"
)

var (
	// ErrItemNotFound is returned when the item id is not part of the requisition.
	ErrItemNotFound = errors.New("item not found")
	// ErrInvalidQuantity is returned for negative or non-finite received quantities.
	ErrInvalidQuantity = errors.New("received quantity must be zero or more")
	// ErrItemComplete is returned when a completed item is edited without reopening it.
	ErrItemComplete = errors.New("item is complete; reopen it before editing")
)

// ItemUpdate is a partial change to one item. Nil fields are left unchanged.
//
// Complete set to true marks the item received in full. Complete set to false reopens
// it: received quantity and comment are cleared.
type ItemUpdate struct {
	ReceivedQuantity *float64 `json:"received_quantity,omitempty"`
	Comment          *string  `json:"comment,omitempty"`
	Complete         *bool    `json:"complete,omitempty"`
}

// UpdateItem applies upd to the item itemID of pr on behalf of by.
//
// Setting a received quantity completes the item when it reaches the original quantity.
// When an item becomes complete its comment is prefixed with "Received on YYYY-MM-DD.".
// The requisition becomes Completed when every item is complete and In Progress otherwise.
func UpdateItem(pr *models.PurchaseRequisition, itemID string, upd ItemUpdate, by models.LastModified) error {
	it := pr.Item(itemID)
	if it == nil {
		return fmt.Errorf("%w: %s", ErrItemNotFound, itemID)
	}

	if upd.Complete != nil && !*upd.Complete {
		it.ReceivedQuantity = 0
		it.IsComplete = false
		it.Comment = ""
		touch(pr, it, by)
		return nil
	}
	if it.IsComplete {
		return fmt.Errorf("%w: %s", ErrItemComplete, itemID)
	}

	if upd.ReceivedQuantity != nil {
		q := *upd.ReceivedQuantity
		if q < 0 || math.IsNaN(q) || math.IsInf(q, 0) {
			return fmt.Errorf("%w: %v", ErrInvalidQuantity, q)
		}
		it.ReceivedQuantity = q
	}
	if upd.Comment != nil {
		it.Comment = strings.TrimSpace(*upd.Comment)
	}

	complete := upd.Complete != nil && *upd.Complete
	// Note items (original 0) complete only when marked explicitly.
	if upd.ReceivedQuantity != nil && it.OriginalQuantity > 0 && it.ReceivedQuantity >= it.OriginalQuantity {
		complete = true
	}
	if complete {
		markComplete(it, by.Timestamp)
	}
	touch(pr, it, by)
	return nil
}

// ReceiveAll completes every incomplete item of pr and marks the requisition Completed.
func ReceiveAll(pr *models.PurchaseRequisition, by models.LastModified) {
	for i := range pr.Items {
		it := &pr.Items[i]
		if it.IsComplete {
			continue
		}
		markComplete(it, by.Timestamp)
		stamp(it, by)
	}
	pr.Status = models.StatusCompleted
	pr.LastModifiedBy = &by
}

// Reopen resets every item of pr to unreceived with no comment and marks the
// requisition In Progress.
func Reopen(pr *models.PurchaseRequisition, by models.LastModified) {
	for i := range pr.Items {
		it := &pr.Items[i]
		it.ReceivedQuantity = 0
		it.IsComplete = false
		it.Comment = ""
		stamp(it, by)
	}
	pr.Status = models.StatusInProgress
	pr.LastModifiedBy = &by
}

// ReceivedNote returns the comment prefix recorded when an item is completed on day.
func ReceivedNote(day time.Time) string {
	return "Received on " + day.Format("2006-01-02") + "."
}

func markComplete(it *models.PRItem, at time.Time) {
	if it.ReceivedQuantity < it.OriginalQuantity {
		it.ReceivedQuantity = it.OriginalQuantity
	}
	it.IsComplete = true
	it.Comment = strings.TrimSpace(ReceivedNote(at) + " " + it.Comment)
}

func stamp(it *models.PRItem, by models.LastModified) {
	lm := by
	it.LastModifiedBy = &lm
}

func touch(pr *models.PurchaseRequisition, it *models.PRItem, by models.LastModified) {
	stamp(it, by)
	if pr.AllComplete() {
		pr.Status = models.StatusCompleted
	} else {
		pr.Status = models.StatusInProgress
	}
	pr.LastModifiedBy = &by
}
