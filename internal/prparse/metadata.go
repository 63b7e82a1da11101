package prparse

import (
	"strings"
	"time"

	"github.com/hyperjump/prtrack/internal/sheet"
)

// NotAvailable is recorded when a requisition-by or approved-by label is absent.
const NotAvailable = "N/A"

const (
	labelDate          = "date"
	labelRequisitionBy = "requisition by"
	labelApprovedBy    = "approved by"
)

// DefaultDateLayouts are tried in order when a date label's value is text.
var DefaultDateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"1/2/2006",
	"01/02/2006",
	"1/2/06",
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan 2 2006",
	"2 Jan 2006",
	"2 January 2006",
	"2-Jan-2006",
	"02-Jan-2006",
	"2-Jan-06",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// Metadata is the header information found above the item table.
type Metadata struct {
	IssueDate     *time.Time `json:"issue_date,omitempty"`
	RequisitionBy string     `json:"requisition_by"`
	ApprovedBy    string     `json:"approved_by"`
}

// ScanMetadata searches the first window rows of g for the date, requisition-by and
// approved-by labels. A label matches the first text cell whose lower-cased trimmed text
// contains it; its value is the first non-empty cell to the right. A text value under the
// date label is kept only if one of layouts parses it. Each label stops being searched once
// resolved, and the scan ends early when all three are.
func ScanMetadata(g sheet.Grid, window int, layouts []string) Metadata {
	md := Metadata{RequisitionBy: NotAvailable, ApprovedBy: NotAvailable}
	limit := min(window, g.Rows())
	for r := 0; r < limit; r++ {
		row := g[r]
		if md.IssueDate == nil {
			if v, ok := valueAfterLabel(row, labelDate); ok {
				if d, isDate := v.DateValue(); isDate {
					md.IssueDate = &d
				} else if d, parsed := parseDate(v.Trimmed(), layouts); parsed {
					md.IssueDate = &d
				}
			}
		}
		if md.RequisitionBy == NotAvailable {
			if v, ok := valueAfterLabel(row, labelRequisitionBy); ok && v.Kind() != sheet.KindDate {
				md.RequisitionBy = v.Trimmed()
			}
		}
		if md.ApprovedBy == NotAvailable {
			if v, ok := valueAfterLabel(row, labelApprovedBy); ok && v.Kind() != sheet.KindDate {
				md.ApprovedBy = v.Trimmed()
			}
		}
		if md.IssueDate != nil && md.RequisitionBy != NotAvailable && md.ApprovedBy != NotAvailable {
			break
		}
	}
	return md
}

// valueAfterLabel finds the first text cell in row containing label and returns the first
// meaningful cell to its right.
func valueAfterLabel(row []sheet.Value, label string) (sheet.Value, bool) {
	idx := -1
	for i, cell := range row {
		if s, ok := cell.TextValue(); ok && strings.Contains(strings.ToLower(strings.TrimSpace(s)), label) {
			idx = i
			break
		}
	}
	if idx == -1 {
		return sheet.Empty(), false
	}
	for _, v := range row[idx+1:] {
		if !meaningful(v) {
			continue
		}
		if v.Kind() == sheet.KindDate || v.Trimmed() != "" {
			return v, true
		}
	}
	return sheet.Empty(), false
}

// meaningful reports whether a cell carries a usable value. Zero numbers do not.
func meaningful(v sheet.Value) bool {
	if n, ok := v.NumberValue(); ok {
		return n != 0
	}
	return !v.IsEmpty()
}

func parseDate(s string, layouts []string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
