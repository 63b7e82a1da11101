package prparse

import (
	"errors"
	"time"

	"github.com/hyperjump/prtrack/internal/fileid"
	"github.com/hyperjump/prtrack/internal/models"
)

// MsgNoItems is the failure reported when a sheet yields no line items.
const MsgNoItems = "No valid item rows found. Check column and row settings, and ensure items have quantities greater than 0."

// ErrNoItems is returned by Assemble when there are no items.
var ErrNoItems = errors.New(MsgNoItems)

// Assembly carries the inputs of Assemble that do not come from the sheet.
type Assembly struct {
	FileName      string
	Submitter     string
	Now           time.Time
	DisplayLayout string
}

// Assemble builds a requisition from scanned metadata and extracted items.
// The name is the file name without its spreadsheet extension. The issue date is the
// scanned date, or a.Now when none was found, rendered with a.DisplayLayout.
func Assemble(md Metadata, items []models.PRItem, a Assembly) (*models.PurchaseRequisition, error) {
	if len(items) == 0 {
		return nil, ErrNoItems
	}
	issued := a.Now
	if md.IssueDate != nil {
		issued = *md.IssueDate
	}
	layout := a.DisplayLayout
	if layout == "" {
		layout = DefaultDisplayLayout
	}
	return &models.PurchaseRequisition{
		ID:            fileid.NewRequisitionID(),
		Name:          fileid.PRName(a.FileName),
		IssueDate:     issued.Format(layout),
		Status:        models.StatusInProgress,
		Items:         items,
		RequisitionBy: orNotAvailable(md.RequisitionBy),
		ApprovedBy:    orNotAvailable(md.ApprovedBy),
		LastModifiedBy: &models.LastModified{
			UserName:  a.Submitter,
			Timestamp: a.Now,
		},
		CreatedAt: a.Now,
		UpdatedAt: a.Now,
	}, nil
}

func orNotAvailable(s string) string {
	if s == "" {
		return NotAvailable
	}
	return s
}
