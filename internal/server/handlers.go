package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/prtrack/internal/ingest"
	"github.com/hyperjump/prtrack/internal/models"
	"github.com/hyperjump/prtrack/internal/prparse"
	"github.com/hyperjump/prtrack/internal/receipt"
	"github.com/hyperjump/prtrack/internal/sheet"
	"github.com/hyperjump/prtrack/internal/storage"
)

// uploadField is the multipart field carrying spreadsheet files.
const uploadField = "files"

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	maxBytes := int64(s.config.Server.MaxUploadMB) << 20
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid multipart upload")
		return
	}
	headers := r.MultipartForm.File[uploadField]
	if len(headers) == 0 {
		s.respondError(w, http.StatusBadRequest, "no files uploaded")
		return
	}
	uploads := make([]ingest.Upload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "failed to read "+fh.Filename)
			return
		}
		content, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "failed to read "+fh.Filename)
			return
		}
		uploads = append(uploads, ingest.Upload{Name: fh.Filename, Content: content})
	}
	caller := callerFrom(r.Context())
	s.logger.Debug("upload request", zap.Int("files", len(uploads)), zap.String("user", caller.UserName))
	batch, err := s.ingestor.IngestBatch(r.Context(), uploads, caller)
	if err != nil {
		s.logger.Error("upload failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, batch)
}

type pendingResponse struct {
	ID        string     `json:"id"`
	FileName  string     `json:"file_name"`
	TotalRows int        `json:"total_rows"`
	Rows      sheet.Grid `json:"rows"`
}

func (s *Server) handleGetPending(w http.ResponseWriter, r *http.Request) {
	p, err := s.ingestor.Pending(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusNotFound, "pending workbook not found")
		return
	}
	s.respondJSON(w, http.StatusOK, pendingResponse{
		ID:        p.ID,
		FileName:  p.FileName,
		TotalRows: p.Worksheet.Grid.Rows(),
		Rows:      p.Preview(),
	})
}

func (s *Server) handleApplyManual(w http.ResponseWriter, r *http.Request) {
	var cfg prparse.ManualConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	id := chi.URLParam(r, "id")
	s.logger.Debug("manual configuration request", zap.String("pending_id", id), zap.Int("header_row", cfg.HeaderRow))
	result, err := s.ingestor.ApplyManual(r.Context(), id, cfg, callerFrom(r.Context()))
	var rejection *ingest.ConfigRejection
	switch {
	case err == nil:
	case errors.As(err, &rejection):
		s.respondError(w, http.StatusUnprocessableEntity, rejection.Message)
		return
	case errors.Is(err, ingest.ErrPendingNotFound):
		s.respondError(w, http.StatusNotFound, "pending workbook not found")
		return
	case errors.Is(err, ingest.ErrForbidden):
		s.respondError(w, http.StatusForbidden, err.Error())
		return
	default:
		s.logger.Error("manual import failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	status := http.StatusOK
	if result.Status == ingest.StatusImported {
		status = http.StatusCreated
	}
	s.respondJSON(w, status, result)
}

func (s *Server) handleDiscardPending(w http.ResponseWriter, r *http.Request) {
	if err := s.ingestor.Discard(chi.URLParam(r, "id")); err != nil {
		s.respondError(w, http.StatusNotFound, "pending workbook not found")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "discarded"})
}

func (s *Server) handleListRequisitions(w http.ResponseWriter, r *http.Request) {
	var filter models.ListFilter
	if raw := r.URL.Query().Get("status"); raw != "" {
		st, ok := models.ParseStatus(raw)
		if !ok {
			s.respondError(w, http.StatusBadRequest, "unknown status "+raw)
			return
		}
		filter.Status = st
	}
	list, err := s.storage.ListRequisitions(r.Context(), filter)
	if err != nil {
		s.logger.Error("list requisitions failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if list == nil {
		list = []*models.Summary{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"requisitions": list, "total": len(list)})
}

func (s *Server) handleGetRequisition(w http.ResponseWriter, r *http.Request) {
	pr, err := s.storage.GetRequisition(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondStorageError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, pr)
}

func (s *Server) handleDeleteRequisition(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.logger.Debug("delete requisition request", zap.String("id", id))
	if err := s.ingestor.DeleteRequisition(r.Context(), id); err != nil {
		s.respondStorageError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type bulkDeleteRequest struct {
	IDs []string `json:"ids"`
}

func (s *Server) handleDeleteRequisitions(w http.ResponseWriter, r *http.Request) {
	var req bulkDeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.IDs) == 0 {
		s.respondError(w, http.StatusBadRequest, "ids are required")
		return
	}
	n, err := s.ingestor.DeleteRequisitions(r.Context(), req.IDs)
	if err != nil {
		s.logger.Error("bulk delete failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"status": "deleted", "deleted": n})
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	var upd receipt.ItemUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	itemID := chi.URLParam(r, "itemID")
	s.mutate(w, r, func(pr *models.PurchaseRequisition, by models.LastModified) error {
		return receipt.UpdateItem(pr, itemID, upd, by)
	})
}

func (s *Server) handleReceiveAll(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, func(pr *models.PurchaseRequisition, by models.LastModified) error {
		receipt.ReceiveAll(pr, by)
		return nil
	})
}

func (s *Server) handleReopen(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, func(pr *models.PurchaseRequisition, by models.LastModified) error {
		receipt.Reopen(pr, by)
		return nil
	})
}

// mutate loads the requisition named in the path, applies fn on behalf of the caller and
// stores the result.
func (s *Server) mutate(w http.ResponseWriter, r *http.Request, fn func(*models.PurchaseRequisition, models.LastModified) error) {
	ctx := r.Context()
	pr, err := s.storage.GetRequisition(ctx, chi.URLParam(r, "id"))
	if err != nil {
		s.respondStorageError(w, err)
		return
	}
	by := models.LastModified{UserName: callerFrom(ctx).UserName, Timestamp: s.now()}
	if err := fn(pr, by); err != nil {
		switch {
		case errors.Is(err, receipt.ErrItemNotFound):
			s.respondError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, receipt.ErrInvalidQuantity):
			s.respondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, receipt.ErrItemComplete):
			s.respondError(w, http.StatusConflict, err.Error())
		default:
			s.respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	if err := s.storage.UpdateRequisition(ctx, pr); err != nil {
		s.respondStorageError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, pr)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleWatchDirectories(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"directories": s.watch.Directories()})
}

func (s *Server) respondStorageError(w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "requisition not found")
		return
	}
	s.logger.Error("storage operation failed", zap.Error(err))
	s.respondError(w, http.StatusInternalServerError, err.Error())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
