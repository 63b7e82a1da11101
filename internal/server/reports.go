package server

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/prtrack/internal/models"
	"github.com/hyperjump/prtrack/internal/report"
	"github.com/hyperjump/prtrack/internal/storage"
)

const (
	queryDateLayout = "2006-01-02"
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

func (s *Server) handleSearchItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := models.ItemSearchQuery{
		Query:        q.Get("q"),
		RankedSearch: queryBool(q.Get("ranked")),
		FuzzyEnabled: queryBool(q.Get("fuzzy")),
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		query.Limit = n
	}
	s.logger.Debug("item search request", zap.String("query", query.Query), zap.Bool("fuzzy", query.FuzzyEnabled))
	resp, err := s.engine.Search(r.Context(), &query)
	if err != nil {
		if strings.TrimSpace(query.Query) == "" {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("item search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := report.DefaultFilter(s.now(), s.config.Report.DefaultDays)
	if raw := q.Get("from"); raw != "" {
		t, err := time.ParseInLocation(queryDateLayout, raw, time.Local)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "from must be YYYY-MM-DD")
			return
		}
		f.From = t
	}
	if raw := q.Get("to"); raw != "" {
		t, err := time.ParseInLocation(queryDateLayout, raw, time.Local)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "to must be YYYY-MM-DD")
			return
		}
		f.To = t
	}
	if f.To.Before(f.From) {
		s.respondError(w, http.StatusBadRequest, "from must not be after to")
		return
	}
	if raw := q.Get("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			st, ok := models.ParseStatus(part)
			if !ok {
				s.respondError(w, http.StatusBadRequest, "unknown status "+part)
				return
			}
			f.Statuses = append(f.Statuses, st)
		}
	}

	prs, err := s.storage.AllRequisitions(r.Context())
	if err != nil {
		s.logger.Error("report: load requisitions failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	rep := s.reports.Build(prs, f)
	if q.Get("format") == "json" {
		s.respondJSON(w, http.StatusOK, rep)
		return
	}

	var buf bytes.Buffer
	if err := rep.WriteXLSX(&buf); err != nil {
		s.logger.Error("report: write xlsx failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+rep.FileName()+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	prCount, err := s.storage.CountRequisitions(ctx)
	if err != nil {
		s.logger.Error("status: count requisitions failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	itemCount, err := s.storage.CountItems(ctx)
	if err != nil {
		s.logger.Error("status: count items failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := map[string]interface{}{
		"requisitions": prCount,
		"items":        itemCount,
		"pending":      s.ingestor.PendingCount(),
	}
	if s.index != nil {
		if n, err := s.index.DocCount(); err == nil {
			resp["indexed_items"] = n
		}
	}
	configInfo := map[string]interface{}{
		"database_path":      s.config.Storage.DatabasePath,
		"keyword_index_path": s.config.Storage.KeywordIndexPath,
		"locale_date_layout": s.config.Parse.LocaleDateLayout,
	}
	if fp, err := storage.DataFootprint(s.config.Storage.DatabasePath, s.config.Storage.KeywordIndexPath); err == nil {
		resp["disk_usage_bytes"] = fp.Total()
		resp["disk_usage"] = fp
	}
	resp["config"] = configInfo
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReindex(w http.ResponseWriter, r *http.Request) {
	n, err := s.ingestor.Reindex(r.Context())
	if err != nil {
		s.logger.Error("reindex failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"status": "reindexed", "requisitions": n})
}

func queryBool(raw string) bool {
	b, err := strconv.ParseBool(raw)
	return err == nil && b
}
