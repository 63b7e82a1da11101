package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/prtrack/internal/ingest"
	"github.com/hyperjump/prtrack/internal/models"
	"github.com/hyperjump/prtrack/internal/report"
)

func sampleRequisition() *models.PurchaseRequisition {
	return &models.PurchaseRequisition{
		ID:            "pr-1",
		Name:          "PR-2024-001",
		IssueDate:     "1/15/2024",
		Status:        models.StatusInProgress,
		RequisitionBy: "Dana",
		Items: []models.PRItem{
			{ID: "it-1", Description: "Bolt M8\nzinc plated", OriginalQuantity: 10, ReceivedQuantity: 4},
			{ID: "it-2", Description: "Washer", OriginalQuantity: 2.5, ReceivedQuantity: 2.5, IsComplete: true, Comment: "ok"},
		},
		LastModifiedBy: &models.LastModified{UserName: "sam", Timestamp: time.Date(2024, 1, 20, 9, 30, 0, 0, time.UTC)},
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]OutputFormat{"": OutputText, "text": OutputText, "JSON": OutputJSON} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseFormat("yaml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestWriteRequisition_text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteRequisition(&buf, sampleRequisition(), OutputText); err != nil {
		t.Fatalf("WriteRequisition: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"PR-2024-001", "In Progress", "Bolt M8 zinc plated", "4/10", "2.5/2.5", "comment: ok", "sam at 2024-01-20 09:30", "Approved by:    -"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteRequisition_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteRequisition(&buf, sampleRequisition(), OutputJSON); err != nil {
		t.Fatalf("WriteRequisition: %v", err)
	}
	var decoded models.PurchaseRequisition
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if decoded.Name != "PR-2024-001" || len(decoded.Items) != 2 {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestWriteRequisitions(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteRequisitions(&buf, nil, OutputJSON); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Errorf("empty JSON list = %q", buf.String())
	}

	buf.Reset()
	if err := WriteRequisitions(&buf, nil, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "No requisitions.") {
		t.Errorf("got %q", buf.String())
	}

	buf.Reset()
	list := []*models.Summary{{ID: "pr-1", Name: "PR-A", IssueDate: "2/1/2024", Status: models.StatusCompleted, ItemCount: 3, CompleteCount: 3}}
	if err := WriteRequisitions(&buf, list, OutputText); err != nil {
		t.Fatal(err)
	}
	if out := buf.String(); !strings.Contains(out, "1 requisition(s)") || !strings.Contains(out, "3/3 items") || !strings.Contains(out, "Completed") {
		t.Errorf("got %q", out)
	}
}

func TestWriteItemHits(t *testing.T) {
	resp := &models.ItemSearchResponse{
		Query:  "bolt",
		Ranked: true,
		Total:  1,
		Hits: []*models.ItemHit{{
			Item:   models.PRItem{ID: "it-1", Description: "Bolt M8", OriginalQuantity: 10, ReceivedQuantity: 3},
			PRID:   "pr-1",
			PRName: "PR-2024-001",
			Score:  0.75,
		}},
	}
	var buf bytes.Buffer
	if err := WriteItemHits(&buf, resp, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{`Found 1 item(s) for "bolt"`, "(ranked)", "PR-2024-001", "partial", "score 0.7500", "received 3 of 10"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	if err := WriteItemHits(&buf, resp, OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded models.ItemSearchResponse
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(decoded.Hits) != 1 || decoded.Hits[0].PRID != "pr-1" {
		t.Errorf("decoded hits = %+v", decoded.Hits)
	}
}

func TestWriteFileResults(t *testing.T) {
	results := []ingest.FileResult{
		{FileName: "a.xlsx", Status: ingest.StatusImported, Requisition: sampleRequisition()},
		{FileName: "b.xlsx", Status: ingest.StatusExisting, ExistingID: "pr-9"},
		{FileName: "c.txt", Status: ingest.StatusFailed, Message: ingest.MsgDecodeFailed},
		{FileName: "d.csv", Status: ingest.StatusNeedsManual, PendingID: "p-1"},
	}
	var buf bytes.Buffer
	if err := WriteFileResults(&buf, results, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"imported (PR-2024-001, 2 items)", "existing (pr-9)", "failed: " + ingest.MsgDecodeFailed, "needs manual header selection"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteReport(t *testing.T) {
	rep := &report.Report{
		From:    "1/1/2024",
		To:      "1/31/2024",
		Summary: report.Summary{Total: 2, InProgress: 1, Completed: 1, Delayed: 1, PendingItems: 1, PendingQty: 6},
		InProgress: []*report.InProgressEntry{{
			ID: "pr-1", Name: "PR-2024-001", IssueDate: "1/2/2024", DaysOpen: 40, Delayed: true,
			Pending: []report.PendingLine{{ItemID: "it-1", Description: "Bolt M8", Original: 10, Received: 4, Pending: 6}},
		}},
	}
	var buf bytes.Buffer
	if err := WriteReport(&buf, rep, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"Report 1/1/2024 to 1/31/2024", "1 delayed", "6 units outstanding", "40 day(s) open", "DELAYED", "Bolt M8: 6 pending"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestFormatQuantity(t *testing.T) {
	if got := FormatQuantity(10); got != "10" {
		t.Errorf("got %s", got)
	}
	if got := FormatQuantity(2.25); got != "2.25" {
		t.Errorf("got %s", got)
	}
}
