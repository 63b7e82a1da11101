package ingest

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/hyperjump/prtrack/internal/prparse"
)

// ErrInvalidConfig wraps a rejected manual configuration. The pending workbook is kept so
// the operator can correct it.
var ErrInvalidConfig = errors.New("invalid manual configuration")

// ConfigRejection carries the operator-facing reason a manual configuration was refused.
type ConfigRejection struct {
	Message string
}

func (e *ConfigRejection) Error() string { return e.Message }

func (e *ConfigRejection) Unwrap() error { return ErrInvalidConfig }

// Pending returns the workbook waiting for manual configuration under id.
func (in *Ingestor) Pending(id string) (*Pending, error) {
	p, ok := in.pending.get(id)
	if !ok {
		return nil, ErrPendingNotFound
	}
	return p, nil
}

// Discard drops a pending workbook without importing it.
func (in *Ingestor) Discard(id string) error {
	if !in.pending.remove(id) {
		return ErrPendingNotFound
	}
	return nil
}

// PendingCount returns how many workbooks are waiting for manual configuration.
func (in *Ingestor) PendingCount() int {
	return in.pending.count()
}

// ApplyManual parses a pending workbook with an operator-supplied table location.
// A rejected configuration returns a *ConfigRejection and keeps the workbook pending; any
// other outcome consumes it. A parse that finds no items yields a failed result.
func (in *Ingestor) ApplyManual(ctx context.Context, pendingID string, cfg prparse.ManualConfig, caller prparse.Caller) (*FileResult, error) {
	if !caller.Admin {
		return nil, ErrForbidden
	}
	p, ok := in.pending.get(pendingID)
	if !ok {
		return nil, ErrPendingNotFound
	}
	out := in.parser.ParseManual(p.Worksheet, p.FileName, cfg, caller)
	if out.Kind == prparse.OutcomeInvalidConfig {
		return nil, &ConfigRejection{Message: out.Message}
	}
	in.pending.remove(pendingID)
	if out.Kind != prparse.OutcomeImported {
		return &FileResult{
			FileName: p.FileName,
			Status:   StatusFailed,
			Message:  "Failed to parse with manual settings: " + out.Message,
		}, nil
	}
	r, err := in.persist(ctx, p.FileName, out.Requisition)
	if err != nil {
		return nil, err
	}
	if in.logger != nil {
		in.logger.Debug("ingest manual configuration applied",
			zap.String("pending_id", pendingID),
			zap.String("status", string(r.Status)))
	}
	return &r, nil
}
