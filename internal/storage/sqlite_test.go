package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperjump/prtrack/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStorage {
	t.Helper()
	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func samplePR(id, name string) *models.PurchaseRequisition {
	return &models.PurchaseRequisition{
		ID:            id,
		Name:          name,
		IssueDate:     "3/15/2024",
		Status:        models.StatusInProgress,
		RequisitionBy: "Alice",
		ApprovedBy:    "N/A",
		LastModifiedBy: &models.LastModified{
			UserName:  "alice",
			Timestamp: time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC),
		},
		Items: []models.PRItem{
			{ID: id + "-0", Description: "Hex Bolt M6", OriginalQuantity: 20},
			{ID: id + "-1", Description: "Washer\n(zinc)", OriginalQuantity: 40},
			{ID: id + "-2", Description: "Deliver to bay 3", Comment: "Note: No quantity specified in PR"},
		},
	}
}

func TestSQLiteStorage_CRUD(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	pr := samplePR("pr1", "PR-001")
	if err := store.CreateRequisition(ctx, pr); err != nil {
		t.Fatal(err)
	}
	if pr.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}

	got, err := store.GetRequisition(ctx, "pr1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "PR-001" || got.RequisitionBy != "Alice" || got.Status != models.StatusInProgress {
		t.Errorf("got %+v", got)
	}
	if len(got.Items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(got.Items))
	}
	if got.Items[1].Description != "Washer\n(zinc)" {
		t.Errorf("items out of order: %q", got.Items[1].Description)
	}
	if got.LastModifiedBy == nil || got.LastModifiedBy.UserName != "alice" {
		t.Errorf("last modified = %+v", got.LastModifiedBy)
	}
	if got.Items[0].LastModifiedBy != nil {
		t.Error("item last modified should be nil when unset")
	}

	got.Items[0].ReceivedQuantity = 20
	got.Items[0].IsComplete = true
	got.Items[0].Comment = "Received on 2024-03-20."
	got.Items[0].LastModifiedBy = &models.LastModified{UserName: "bob", Timestamp: time.Now()}
	if err := store.UpdateRequisition(ctx, got); err != nil {
		t.Fatal(err)
	}
	again, _ := store.GetRequisitionByName(ctx, "PR-001")
	if !again.Items[0].IsComplete || again.Items[0].ReceivedQuantity != 20 {
		t.Errorf("update not persisted: %+v", again.Items[0])
	}
	if again.Items[0].LastModifiedBy == nil || again.Items[0].LastModifiedBy.UserName != "bob" {
		t.Errorf("item last modified = %+v", again.Items[0].LastModifiedBy)
	}

	if err := store.DeleteRequisition(ctx, "pr1"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.GetRequisition(ctx, "pr1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if n, _ := store.CountItems(ctx); n != 0 {
		t.Errorf("items should be deleted with requisition, %d left", n)
	}
	if err := store.DeleteRequisition(ctx, "pr1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteStorage_DuplicateName(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.CreateRequisition(ctx, samplePR("a", "PR-DUP")); err != nil {
		t.Fatal(err)
	}
	err := store.CreateRequisition(ctx, samplePR("b", "PR-DUP"))
	if !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("expected ErrDuplicateName, got %v", err)
	}
	if n, _ := store.CountRequisitions(ctx); n != 1 {
		t.Errorf("expected 1 requisition, got %d", n)
	}
}

func TestSQLiteStorage_UpdateMissing(t *testing.T) {
	store := newTestStore(t)
	err := store.UpdateRequisition(context.Background(), samplePR("ghost", "Ghost"))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteStorage_ListAndSearch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := samplePR("p1", "PR-001")
	second := samplePR("p2", "PR-002")
	second.Status = models.StatusCompleted
	second.Items = []models.PRItem{{ID: "p2-0", Description: "Copper pipe", OriginalQuantity: 2, ReceivedQuantity: 2, IsComplete: true}}
	for _, pr := range []*models.PurchaseRequisition{first, second} {
		if err := store.CreateRequisition(ctx, pr); err != nil {
			t.Fatal(err)
		}
	}

	all, err := store.ListRequisitions(ctx, models.ListFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(all))
	}
	done, _ := store.ListRequisitions(ctx, models.ListFilter{Status: models.StatusCompleted})
	if len(done) != 1 || done[0].Name != "PR-002" {
		t.Fatalf("status filter: got %+v", done)
	}
	if done[0].ItemCount != 1 || done[0].CompleteCount != 1 {
		t.Errorf("counts = %d/%d, want 1/1", done[0].CompleteCount, done[0].ItemCount)
	}

	hits, err := store.SearchItems(ctx, "BOLT", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].PRName != "PR-001" || hits[0].Item.ID != "p1-0" {
		t.Errorf("search hits = %+v", hits)
	}
	if hits, _ := store.SearchItems(ctx, "   ", 10); len(hits) != 0 {
		t.Errorf("blank query should match nothing, got %d", len(hits))
	}

	byID, err := store.GetItemHits(ctx, []string{"p2-0", "missing", "p1-1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(byID) != 2 || byID[0].Item.ID != "p2-0" || byID[1].Item.ID != "p1-1" {
		t.Errorf("GetItemHits order = %+v", byID)
	}

	full, err := store.AllRequisitions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(full) != 2 || len(full[0].Items)+len(full[1].Items) != 4 {
		t.Errorf("AllRequisitions returned %d requisitions", len(full))
	}

	n, err := store.DeleteRequisitions(ctx, []string{"p1", "p2", "nope"})
	if err != nil || n != 2 {
		t.Errorf("DeleteRequisitions = %d, %v; want 2", n, err)
	}
}

func TestSQLiteStorage_SearchItemsFoldsUnicode(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	pr := samplePR("p1", "PR-001")
	pr.Items[0].Description = "Schraube ÜBERLANG"
	pr.Items[1].Description = "Ψήκτρα ΔΟΚΙΜΉΣ"
	if err := store.CreateRequisition(ctx, pr); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		query  string
		wantID string
	}{
		{"überlang", "p1-0"},
		{"ÜberLang", "p1-0"},
		{"schraube", "p1-0"},
		{"δοκιμ", "p1-1"},
	}
	for _, tt := range tests {
		hits, err := store.SearchItems(ctx, tt.query, 10)
		if err != nil {
			t.Fatalf("SearchItems(%q): %v", tt.query, err)
		}
		if len(hits) != 1 || hits[0].Item.ID != tt.wantID {
			t.Errorf("SearchItems(%q) = %+v, want %s", tt.query, hits, tt.wantID)
		}
	}
}
