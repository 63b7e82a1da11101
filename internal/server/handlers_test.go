package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/prtrack/internal/config"
	"github.com/hyperjump/prtrack/internal/decode"
	"github.com/hyperjump/prtrack/internal/ingest"
	"github.com/hyperjump/prtrack/internal/keyword"
	"github.com/hyperjump/prtrack/internal/models"
	"github.com/hyperjump/prtrack/internal/prparse"
	"github.com/hyperjump/prtrack/internal/report"
	"github.com/hyperjump/prtrack/internal/search"
	"github.com/hyperjump/prtrack/internal/storage"
)

type mockWatchService struct {
	dirs []string
}

func (m *mockWatchService) Directories() []string {
	return append([]string(nil), m.dirs...)
}

var testNow = time.Date(2024, 3, 20, 10, 0, 0, 0, time.Local)

func testServer(t *testing.T) http.Handler {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{}
	cfg.Storage.DatabasePath = filepath.Join(dir, "db.sqlite")
	cfg.Storage.KeywordIndexPath = filepath.Join(dir, "items")
	config.ApplyDefaults(cfg)

	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	kwIdx, err := keyword.NewBleveIndex(cfg.Storage.KeywordIndexPath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = kwIdx.Close() })

	clock := func() time.Time { return testNow }
	parser := prparse.NewParser(prparse.WithClock(clock))
	srv := NewServer(Deps{
		Ingestor: ingest.NewIngestor(store, kwIdx, decode.NewDecoder(), parser),
		Engine:   search.NewEngine(store, kwIdx),
		Storage:  store,
		Index:    kwIdx,
		Reports:  report.NewBuilder([]string{parser.DisplayLayout()}, clock),
		Watch:    &mockWatchService{dirs: []string{"/srv/inbox"}},
	}, cfg, zap.NewNop())
	srv.now = clock
	return srv.Routes()
}

func do(t *testing.T, h http.Handler, method, target, role string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(method, target, body)
	if role != "" {
		r.Header.Set(headerUserName, role+"-user")
		r.Header.Set(headerUserRole, role)
	}
	if contentType != "" {
		r.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func doJSON(t *testing.T, h http.Handler, method, target, role string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatal(err)
		}
		body = bytes.NewReader(data)
	}
	return do(t, h, method, target, role, body, "application/json")
}

func upload(t *testing.T, h http.Handler, role string, files map[string]string, order ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, name := range order {
		fw, err := mw.CreateFormFile(uploadField, name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := io.WriteString(fw, files[name]); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return do(t, h, http.MethodPost, "/api/v1/requisitions/upload", role, &buf, mw.FormDataContentType())
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
}

const sampleCSV = "Date,2024-03-15\nRequisition By,Alice\nApproved By,Bob\nDescription,Qty\nFuel filter,4\nHydraulic hose,2\n"

func importSample(t *testing.T, h http.Handler) *models.PurchaseRequisition {
	t.Helper()
	w := upload(t, h, roleAdmin, map[string]string{"PR-2024-001.csv": sampleCSV}, "PR-2024-001.csv")
	if w.Code != http.StatusOK {
		t.Fatalf("upload status = %d: %s", w.Code, w.Body.String())
	}
	var batch ingest.BatchResult
	decodeBody(t, w, &batch)
	if batch.Imported != 1 || batch.Files[0].Requisition == nil {
		t.Fatalf("batch = %+v", batch)
	}
	return batch.Files[0].Requisition
}

func TestIdentityHeaders(t *testing.T) {
	h := testServer(t)

	if w := do(t, h, http.MethodGet, "/health", "", nil, ""); w.Code != http.StatusOK {
		t.Errorf("health status = %d", w.Code)
	}
	if w := do(t, h, http.MethodGet, "/api/v1/requisitions", "", nil, ""); w.Code != http.StatusUnauthorized {
		t.Errorf("anonymous list status = %d, want 401", w.Code)
	}
	if w := do(t, h, http.MethodGet, "/api/v1/requisitions", "owner", nil, ""); w.Code != http.StatusBadRequest {
		t.Errorf("unknown role status = %d, want 400", w.Code)
	}
	if w := do(t, h, http.MethodGet, "/api/v1/requisitions", roleViewer, nil, ""); w.Code != http.StatusOK {
		t.Errorf("viewer list status = %d, want 200", w.Code)
	}
	w := upload(t, h, roleViewer, map[string]string{"a.csv": sampleCSV}, "a.csv")
	if w.Code != http.StatusForbidden {
		t.Errorf("viewer upload status = %d, want 403", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("forbidden content type = %q", ct)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil || body["error"] != "viewers cannot modify requisitions" {
		t.Errorf("forbidden body = %s (%v)", w.Body.String(), err)
	}
}

func TestUploadListGet(t *testing.T) {
	h := testServer(t)
	pr := importSample(t, h)
	if pr.Name != "PR-2024-001" || pr.IssueDate != "3/15/2024" || pr.ApprovedBy != "Bob" {
		t.Errorf("pr = %+v", pr)
	}

	w := do(t, h, http.MethodGet, "/api/v1/requisitions?status=in_progress", roleViewer, nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var list struct {
		Requisitions []models.Summary `json:"requisitions"`
		Total        int              `json:"total"`
	}
	decodeBody(t, w, &list)
	if list.Total != 1 || list.Requisitions[0].ItemCount != 2 {
		t.Errorf("list = %+v", list)
	}

	if w := do(t, h, http.MethodGet, "/api/v1/requisitions?status=bogus", roleViewer, nil, ""); w.Code != http.StatusBadRequest {
		t.Errorf("bad status filter = %d, want 400", w.Code)
	}

	w = do(t, h, http.MethodGet, "/api/v1/requisitions/"+pr.ID, roleViewer, nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var got models.PurchaseRequisition
	decodeBody(t, w, &got)
	if len(got.Items) != 2 || got.Items[0].Description != "Fuel filter" {
		t.Errorf("items = %+v", got.Items)
	}

	if w := do(t, h, http.MethodGet, "/api/v1/requisitions/missing", roleViewer, nil, ""); w.Code != http.StatusNotFound {
		t.Errorf("missing get = %d, want 404", w.Code)
	}

	w = upload(t, h, roleAdmin, map[string]string{"PR-2024-001.csv": sampleCSV}, "PR-2024-001.csv")
	var again ingest.BatchResult
	decodeBody(t, w, &again)
	if again.Existing != 1 || again.Files[0].ExistingID != pr.ID {
		t.Errorf("re-upload = %+v", again)
	}
}

func TestManualConfigurationFlow(t *testing.T) {
	h := testServer(t)
	w := upload(t, h, roleAdmin, map[string]string{
		"loose.csv":  "Item,Amount\nWidget,3\nGasket,1\n",
		"loose2.csv": "Item,Amount\nBolt,3\n",
	}, "loose.csv", "loose2.csv")
	var batch ingest.BatchResult
	decodeBody(t, w, &batch)
	if batch.PendingID == "" || batch.Files[1].Message != ingest.MsgOneManualOnly {
		t.Fatalf("batch = %+v", batch)
	}

	w = do(t, h, http.MethodGet, "/api/v1/requisitions/pending/"+batch.PendingID, roleViewer, nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("pending status = %d", w.Code)
	}
	var pending struct {
		FileName  string  `json:"file_name"`
		TotalRows int     `json:"total_rows"`
		Rows      [][]any `json:"rows"`
	}
	decodeBody(t, w, &pending)
	if pending.FileName != "loose.csv" || pending.TotalRows != 3 || len(pending.Rows) != 3 {
		t.Errorf("pending = %+v", pending)
	}

	target := "/api/v1/requisitions/manual/" + batch.PendingID
	w = doJSON(t, h, http.MethodPost, target, roleAdmin, prparse.ManualConfig{HeaderRow: 1, DescColumn: "A", QtyColumn: "A"})
	if w.Code != http.StatusUnprocessableEntity || !strings.Contains(w.Body.String(), "must be different") {
		t.Errorf("same columns = %d %s", w.Code, w.Body.String())
	}
	w = doJSON(t, h, http.MethodPost, target, roleViewer, prparse.ManualConfig{HeaderRow: 1, DescColumn: "A", QtyColumn: "B"})
	if w.Code != http.StatusForbidden {
		t.Errorf("viewer manual = %d, want 403", w.Code)
	}
	w = doJSON(t, h, http.MethodPost, target, roleAdmin, prparse.ManualConfig{HeaderRow: 1, DescColumn: "A", QtyColumn: "B"})
	if w.Code != http.StatusCreated {
		t.Fatalf("manual apply = %d %s", w.Code, w.Body.String())
	}
	var res ingest.FileResult
	decodeBody(t, w, &res)
	if res.Requisition == nil || len(res.Requisition.Items) != 2 {
		t.Errorf("result = %+v", res)
	}
	w = doJSON(t, h, http.MethodPost, target, roleAdmin, prparse.ManualConfig{HeaderRow: 1, DescColumn: "A", QtyColumn: "B"})
	if w.Code != http.StatusNotFound {
		t.Errorf("second apply = %d, want 404", w.Code)
	}
}

func TestItemReceiptLifecycle(t *testing.T) {
	h := testServer(t)
	pr := importSample(t, h)
	itemPath := fmt.Sprintf("/api/v1/requisitions/%s/items/%s", pr.ID, pr.Items[0].ID)

	qty := 4.0
	w := doJSON(t, h, http.MethodPatch, itemPath, roleAdmin, map[string]interface{}{"received_quantity": qty})
	if w.Code != http.StatusOK {
		t.Fatalf("patch status = %d %s", w.Code, w.Body.String())
	}
	var got models.PurchaseRequisition
	decodeBody(t, w, &got)
	if !got.Items[0].IsComplete || !strings.HasPrefix(got.Items[0].Comment, "Received on 2024-03-20.") {
		t.Errorf("item = %+v", got.Items[0])
	}
	if got.Status != models.StatusInProgress {
		t.Errorf("status = %s, want In Progress", got.Status)
	}
	if got.LastModifiedBy == nil || got.LastModifiedBy.UserName != "admin-user" {
		t.Errorf("last modified = %+v", got.LastModifiedBy)
	}

	w = doJSON(t, h, http.MethodPatch, itemPath, roleAdmin, map[string]interface{}{"received_quantity": 1})
	if w.Code != http.StatusConflict {
		t.Errorf("edit completed item = %d, want 409", w.Code)
	}
	w = doJSON(t, h, http.MethodPatch, itemPath, roleAdmin, map[string]interface{}{"received_quantity": -1})
	if w.Code != http.StatusConflict && w.Code != http.StatusBadRequest {
		t.Errorf("negative qty = %d", w.Code)
	}
	w = doJSON(t, h, http.MethodPatch, itemPath, roleViewer, map[string]interface{}{"comment": "x"})
	if w.Code != http.StatusForbidden {
		t.Errorf("viewer patch = %d, want 403", w.Code)
	}

	w = doJSON(t, h, http.MethodPost, "/api/v1/requisitions/"+pr.ID+"/receive-all", roleAdmin, nil)
	decodeBody(t, w, &got)
	if got.Status != models.StatusCompleted || !got.AllComplete() {
		t.Errorf("after receive-all: %+v", got)
	}

	w = doJSON(t, h, http.MethodPost, "/api/v1/requisitions/"+pr.ID+"/reopen", roleAdmin, nil)
	decodeBody(t, w, &got)
	if got.Status != models.StatusInProgress || got.Items[0].IsComplete || got.Items[0].Comment != "" {
		t.Errorf("after reopen: %+v", got)
	}
}

func TestSearchReportStatus(t *testing.T) {
	h := testServer(t)
	pr := importSample(t, h)

	w := do(t, h, http.MethodGet, "/api/v1/items/search?q=FILTER", roleViewer, nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("search status = %d", w.Code)
	}
	var sr models.ItemSearchResponse
	decodeBody(t, w, &sr)
	if sr.Total != 1 || sr.Hits[0].PRID != pr.ID {
		t.Errorf("search = %+v", sr)
	}
	if w := do(t, h, http.MethodGet, "/api/v1/items/search?q=", roleViewer, nil, ""); w.Code != http.StatusBadRequest {
		t.Errorf("empty search = %d, want 400", w.Code)
	}

	w = do(t, h, http.MethodGet, "/api/v1/report?from=2024-03-01&to=2024-03-31&format=json", roleViewer, nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("report status = %d %s", w.Code, w.Body.String())
	}
	var rep report.Report
	decodeBody(t, w, &rep)
	if rep.Summary.Total != 1 || rep.Summary.PendingItems != 2 || rep.Summary.PendingQty != 6 {
		t.Errorf("summary = %+v", rep.Summary)
	}

	w = do(t, h, http.MethodGet, "/api/v1/report?from=2024-03-01&to=2024-03-31", roleViewer, nil, "")
	if ct := w.Header().Get("Content-Type"); ct != xlsxContentType {
		t.Errorf("content type = %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "PR_Status_Report_2024-03-01_to_2024-03-31.xlsx") {
		t.Errorf("content disposition = %q", cd)
	}
	if w := do(t, h, http.MethodGet, "/api/v1/report?from=2024-04-01&to=2024-03-01", roleViewer, nil, ""); w.Code != http.StatusBadRequest {
		t.Errorf("inverted range = %d, want 400", w.Code)
	}

	w = do(t, h, http.MethodGet, "/api/v1/status", roleViewer, nil, "")
	var status map[string]interface{}
	decodeBody(t, w, &status)
	if status["requisitions"] != float64(1) || status["items"] != float64(2) {
		t.Errorf("status = %v", status)
	}

	w = do(t, h, http.MethodGet, "/api/v1/watch/directories", roleViewer, nil, "")
	if !strings.Contains(w.Body.String(), "/srv/inbox") {
		t.Errorf("watch directories = %s", w.Body.String())
	}
}

func TestDeleteRequisitions(t *testing.T) {
	h := testServer(t)
	pr := importSample(t, h)

	if w := do(t, h, http.MethodDelete, "/api/v1/requisitions/"+pr.ID, roleViewer, nil, ""); w.Code != http.StatusForbidden {
		t.Errorf("viewer delete = %d, want 403", w.Code)
	}
	if w := do(t, h, http.MethodDelete, "/api/v1/requisitions/"+pr.ID, roleAdmin, nil, ""); w.Code != http.StatusOK {
		t.Errorf("delete = %d", w.Code)
	}
	if w := do(t, h, http.MethodDelete, "/api/v1/requisitions/"+pr.ID, roleAdmin, nil, ""); w.Code != http.StatusNotFound {
		t.Errorf("second delete = %d, want 404", w.Code)
	}

	pr = importSample(t, h)
	w := doJSON(t, h, http.MethodPost, "/api/v1/requisitions/delete", roleAdmin, bulkDeleteRequest{IDs: []string{pr.ID, "missing"}})
	var out struct {
		Deleted int `json:"deleted"`
	}
	decodeBody(t, w, &out)
	if out.Deleted != 1 {
		t.Errorf("bulk deleted = %d, want 1", out.Deleted)
	}
}
