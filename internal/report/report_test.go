package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/prtrack/internal/models"
)

var layouts = []string{"1/2/2006", "2006-01-02"}

func fixedNow() time.Time { return time.Date(2024, 5, 31, 12, 0, 0, 0, time.Local) }

func sampleRequisitions() []*models.PurchaseRequisition {
	return []*models.PurchaseRequisition{
		{
			ID: "old", Name: "PR-OLD", IssueDate: "4/1/2024", Status: models.StatusInProgress,
			Items: []models.PRItem{
				{ID: "o1", Description: "Cable", OriginalQuantity: 2.5, ReceivedQuantity: 0.8},
				{ID: "o2", Description: "Tray", OriginalQuantity: 4, ReceivedQuantity: 4, IsComplete: true},
			},
		},
		{
			ID: "new", Name: "PR-NEW", IssueDate: "5/20/2024", Status: models.StatusInProgress,
			Items: []models.PRItem{{ID: "n1", Description: "Lamp", OriginalQuantity: 3}},
		},
		{
			ID: "done", Name: "PR-DONE", IssueDate: "5/31/2024", Status: models.StatusCompleted,
			RequisitionBy: "Alice", ApprovedBy: "Bob",
			Items: []models.PRItem{{ID: "d1", Description: "Desk", OriginalQuantity: 1, ReceivedQuantity: 1, IsComplete: true}},
		},
		{
			ID: "bad", Name: "PR-BAD", IssueDate: "someday", Status: models.StatusInProgress,
		},
	}
}

func TestBuild_dateRangeAndStatus(t *testing.T) {
	b := NewBuilder(layouts, fixedNow)

	r := b.Build(sampleRequisitions(), Filter{
		From: time.Date(2024, 4, 1, 23, 0, 0, 0, time.Local),
		To:   time.Date(2024, 5, 31, 0, 0, 0, 0, time.Local),
	})

	if r.Summary.Total != 3 {
		t.Fatalf("total = %d, want 3 (unparseable date excluded)", r.Summary.Total)
	}
	if r.Summary.InProgress != 2 || r.Summary.Completed != 1 {
		t.Errorf("summary = %+v", r.Summary)
	}
	if r.Summary.Delayed != 1 {
		t.Errorf("delayed = %d, want 1", r.Summary.Delayed)
	}
	if r.Summary.PendingItems != 2 {
		t.Errorf("pending items = %d, want 2", r.Summary.PendingItems)
	}
	if r.Summary.PendingQty != 4.7 {
		t.Errorf("pending qty = %v, want 4.7", r.Summary.PendingQty)
	}
	if r.InProgress[0].Pending[0].Pending != 1.7 {
		t.Errorf("line pending = %v, want exactly 1.7", r.InProgress[0].Pending[0].Pending)
	}
	if r.From != "2024-04-01" || r.To != "2024-05-31" {
		t.Errorf("range = %s..%s", r.From, r.To)
	}

	onlyDone := b.Build(sampleRequisitions(), Filter{
		From:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local),
		To:       fixedNow(),
		Statuses: []models.Status{models.StatusCompleted},
	})
	if onlyDone.Summary.Total != 1 || len(onlyDone.Completed) != 1 || len(onlyDone.InProgress) != 0 {
		t.Errorf("status filter: %+v", onlyDone.Summary)
	}

	narrow := b.Build(sampleRequisitions(), Filter{
		From: time.Date(2024, 5, 21, 0, 0, 0, 0, time.Local),
		To:   time.Date(2024, 5, 30, 0, 0, 0, 0, time.Local),
	})
	if narrow.Summary.Total != 0 {
		t.Errorf("narrow range should be empty, got %d", narrow.Summary.Total)
	}
}

func TestDaysOpen(t *testing.T) {
	b := NewBuilder(layouts, fixedNow)
	prs := sampleRequisitions()

	days, delayed := b.DaysOpen(prs[0])
	if days != 60 || !delayed {
		t.Errorf("old: days=%d delayed=%v, want 60 true", days, delayed)
	}
	if _, delayed := b.DaysOpen(prs[1]); delayed {
		t.Error("11-day-old requisition should not be delayed")
	}
	if _, delayed := b.DaysOpen(prs[3]); delayed {
		t.Error("unparseable date should not be delayed")
	}
}

func TestWriteXLSX(t *testing.T) {
	b := NewBuilder(layouts, fixedNow)
	r := b.Build(sampleRequisitions(), DefaultFilter(fixedNow(), 90))

	var buf bytes.Buffer
	if err := r.WriteXLSX(&buf); err != nil {
		t.Fatalf("WriteXLSX: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) != 2 || sheets[0] != "In Progress Items" || sheets[1] != "Completed PRs" {
		t.Fatalf("sheets = %v", sheets)
	}
	rows, err := f.GetRows("In Progress Items")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("in-progress rows = %d, want header + 2", len(rows))
	}
	if rows[0][4] != "Pending Qty" || rows[1][0] != "PR-OLD" || rows[1][4] != "1.7" {
		t.Errorf("in-progress rows = %v", rows)
	}
	done, _ := f.GetRows("Completed PRs")
	if len(done) != 2 || done[1][0] != "PR-DONE" || done[1][2] != "Alice" {
		t.Errorf("completed rows = %v", done)
	}
	if r.FileName() != "PR_Status_Report_2024-03-02_to_2024-05-31.xlsx" {
		t.Errorf("file name = %s", r.FileName())
	}
}
