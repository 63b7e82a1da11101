// Package report builds status reports over purchase requisitions: filtering by issue
// date and status, flagging delayed requisitions, and exporting to XLSX.
package report

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hyperjump/prtrack/internal/models"
)

// DelayThresholdDays is how long an in-progress requisition may stay open before it is
// reported as delayed.
const DelayThresholdDays = 30

// Filter selects requisitions by issue date (whole days, inclusive) and status.
// An empty Statuses selects every status.
type Filter struct {
	From     time.Time
	To       time.Time
	Statuses []models.Status
}

// DefaultFilter covers the last days days up to and including today.
func DefaultFilter(now time.Time, days int) Filter {
	return Filter{From: now.AddDate(0, 0, -days), To: now}
}

func (f Filter) wantStatus(s models.Status) bool {
	if len(f.Statuses) == 0 {
		return true
	}
	for _, want := range f.Statuses {
		if want == s {
			return true
		}
	}
	return false
}

// Summary holds report totals.
type Summary struct {
	Total        int     `json:"total"`
	InProgress   int     `json:"in_progress"`
	Completed    int     `json:"completed"`
	Delayed      int     `json:"delayed"`
	PendingItems int     `json:"pending_items"`
	PendingQty   float64 `json:"pending_quantity"`
}

// PendingLine is one incomplete item of an in-progress requisition.
type PendingLine struct {
	ItemID      string  `json:"item_id"`
	Description string  `json:"description"`
	Original    float64 `json:"original_quantity"`
	Received    float64 `json:"received_quantity"`
	Pending     float64 `json:"pending_quantity"`
	Comment     string  `json:"comment"`
}

// InProgressEntry is an in-progress requisition with its pending items.
type InProgressEntry struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	IssueDate  string        `json:"issue_date"`
	DaysOpen   int           `json:"days_open"`
	Delayed    bool          `json:"delayed"`
	TotalItems int           `json:"total_items"`
	Pending    []PendingLine `json:"pending"`
}

// CompletedEntry is a completed requisition.
type CompletedEntry struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	IssueDate     string `json:"issue_date"`
	RequisitionBy string `json:"requisition_by"`
	ApprovedBy    string `json:"approved_by"`
	Items         int    `json:"items"`
}

// Report is a status report for a date range.
type Report struct {
	From       string             `json:"from"`
	To         string             `json:"to"`
	Summary    Summary            `json:"summary"`
	InProgress []*InProgressEntry `json:"in_progress"`
	Completed  []*CompletedEntry  `json:"completed"`
}

// Builder parses stored issue dates and evaluates delays relative to a clock.
type Builder struct {
	layouts []string
	now     func() time.Time
}

// NewBuilder returns a Builder that parses issue dates with layouts, tried in order.
func NewBuilder(layouts []string, now func() time.Time) *Builder {
	if now == nil {
		now = time.Now
	}
	return &Builder{layouts: layouts, now: now}
}

// IssueDate parses a stored issue date string.
func (b *Builder) IssueDate(s string) (time.Time, bool) {
	for _, layout := range b.layouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DaysOpen returns whole days between the issue date and now, and whether the
// requisition counts as delayed. Requisitions with unparseable dates are never delayed.
func (b *Builder) DaysOpen(pr *models.PurchaseRequisition) (int, bool) {
	issued, ok := b.IssueDate(pr.IssueDate)
	if !ok {
		return 0, false
	}
	days := int(math.Round(startOfDay(b.now()).Sub(startOfDay(issued)).Hours() / 24))
	return days, pr.Status == models.StatusInProgress && days > DelayThresholdDays
}

// Build filters prs and assembles the report. Requisitions whose issue date cannot be
// parsed are excluded.
func (b *Builder) Build(prs []*models.PurchaseRequisition, f Filter) *Report {
	from, to := startOfDay(f.From), startOfDay(f.To)
	r := &Report{
		From:       from.Format("2006-01-02"),
		To:         to.Format("2006-01-02"),
		InProgress: []*InProgressEntry{},
		Completed:  []*CompletedEntry{},
	}
	pendingTotal := decimal.Zero

	for _, pr := range prs {
		issued, ok := b.IssueDate(pr.IssueDate)
		if !ok {
			continue
		}
		day := startOfDay(issued)
		if day.Before(from) || day.After(to) || !f.wantStatus(pr.Status) {
			continue
		}
		r.Summary.Total++

		switch pr.Status {
		case models.StatusCompleted:
			r.Summary.Completed++
			r.Completed = append(r.Completed, &CompletedEntry{
				ID:            pr.ID,
				Name:          pr.Name,
				IssueDate:     pr.IssueDate,
				RequisitionBy: pr.RequisitionBy,
				ApprovedBy:    pr.ApprovedBy,
				Items:         len(pr.Items),
			})
		default:
			r.Summary.InProgress++
			days, delayed := b.DaysOpen(pr)
			if delayed {
				r.Summary.Delayed++
			}
			entry := &InProgressEntry{
				ID:         pr.ID,
				Name:       pr.Name,
				IssueDate:  pr.IssueDate,
				DaysOpen:   days,
				Delayed:    delayed,
				TotalItems: len(pr.Items),
				Pending:    []PendingLine{},
			}
			for _, it := range pr.Items {
				if it.IsComplete {
					continue
				}
				pending := PendingQuantity(it)
				pendingTotal = pendingTotal.Add(pending)
				entry.Pending = append(entry.Pending, PendingLine{
					ItemID:      it.ID,
					Description: it.Description,
					Original:    it.OriginalQuantity,
					Received:    it.ReceivedQuantity,
					Pending:     pending.InexactFloat64(),
					Comment:     it.Comment,
				})
			}
			r.Summary.PendingItems += len(entry.Pending)
			r.InProgress = append(r.InProgress, entry)
		}
	}
	r.Summary.PendingQty = pendingTotal.InexactFloat64()
	return r
}

// PendingQuantity returns original minus received, computed in decimal so fractional
// quantities subtract exactly.
func PendingQuantity(it models.PRItem) decimal.Decimal {
	return decimal.NewFromFloat(it.OriginalQuantity).Sub(decimal.NewFromFloat(it.ReceivedQuantity))
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}
