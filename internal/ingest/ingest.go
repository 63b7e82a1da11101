// Package ingest imports spreadsheet uploads into storage and the item keyword index.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/prtrack/internal/decode"
	"github.com/hyperjump/prtrack/internal/keyword"
	"github.com/hyperjump/prtrack/internal/models"
	"github.com/hyperjump/prtrack/internal/prparse"
	"github.com/hyperjump/prtrack/internal/storage"
)

const (
	// MsgDecodeFailed is reported for files that cannot be read as a spreadsheet.
	MsgDecodeFailed = "Failed to parse. Please ensure it's a valid format."
	// MsgOneManualOnly is reported for every needs-manual file after the first in a batch.
	MsgOneManualOnly = "Requires manual header selection. Can only process one at a time."
)

var (
	// ErrForbidden is returned when the caller lacks the admin role for an operation.
	ErrForbidden = errors.New("operation requires admin role")
	// ErrPendingNotFound is returned for an unknown or expired pending workbook id.
	ErrPendingNotFound = errors.New("pending workbook not found")
)

// Status is the per-file result of an import.
type Status string

const (
	StatusImported    Status = "imported"
	StatusExisting    Status = "existing"
	StatusFailed      Status = "failed"
	StatusNeedsManual Status = "needs_manual"
)

// Upload is one file submitted for import.
type Upload struct {
	Name    string
	Content []byte
}

// FileResult describes what happened to one uploaded file.
// ExistingID is set for StatusExisting and PendingID for StatusNeedsManual.
type FileResult struct {
	FileName    string                      `json:"file_name"`
	Status      Status                      `json:"status"`
	Requisition *models.PurchaseRequisition `json:"requisition,omitempty"`
	ExistingID  string                      `json:"existing_id,omitempty"`
	PendingID   string                      `json:"pending_id,omitempty"`
	Message     string                      `json:"message,omitempty"`
}

// BatchResult collects the results of one upload batch in input order.
type BatchResult struct {
	Files     []FileResult `json:"files"`
	Imported  int          `json:"imported"`
	Existing  int          `json:"existing"`
	Failed    int          `json:"failed"`
	PendingID string       `json:"pending_id,omitempty"`
}

func (b *BatchResult) add(r FileResult) {
	b.Files = append(b.Files, r)
	switch r.Status {
	case StatusImported:
		b.Imported++
	case StatusExisting:
		b.Existing++
	case StatusFailed:
		b.Failed++
	case StatusNeedsManual:
		b.PendingID = r.PendingID
	}
}

// Ingestor decodes, parses and persists requisition spreadsheets.
type Ingestor struct {
	storage      storage.Storage
	keywordIndex keyword.ItemIndex
	decoder      *decode.Decoder
	parser       *prparse.Parser
	pending      *pendingSet
	now          func() time.Time
	logger       *zap.Logger // optional; when set, logs debug events
}

// Option configures an Ingestor.
type Option func(*Ingestor)

// WithLogger sets a logger for debug output (file imported, requisition deleted, etc.).
func WithLogger(l *zap.Logger) Option {
	return func(in *Ingestor) { in.logger = l }
}

// WithPendingLimit caps the number of workbooks kept for manual configuration.
func WithPendingLimit(n int) Option {
	return func(in *Ingestor) { in.pending = newPendingSet(n) }
}

// WithClock overrides the time source used for pending entries.
func WithClock(now func() time.Time) Option {
	return func(in *Ingestor) { in.now = now }
}

// NewIngestor creates an ingestor with the given dependencies.
// keywordIndex may be nil, in which case only storage is written.
func NewIngestor(
	store storage.Storage,
	keywordIndex keyword.ItemIndex,
	decoder *decode.Decoder,
	parser *prparse.Parser,
	opts ...Option,
) *Ingestor {
	in := &Ingestor{
		storage:      store,
		keywordIndex: keywordIndex,
		decoder:      decoder,
		parser:       parser,
		pending:      newPendingSet(DefaultPendingLimit),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

type parsed struct {
	upload  Upload
	outcome prparse.Outcome
}

// IngestBatch parses every upload concurrently, then reconciles the results in input
// order: names already stored are reported as existing, names repeated within the batch
// fail, and only the first workbook needing manual configuration is kept as pending.
// Per-file problems are reported in the result; the error is reserved for storage failures.
func (in *Ingestor) IngestBatch(ctx context.Context, uploads []Upload, caller prparse.Caller) (*BatchResult, error) {
	if in.logger != nil {
		in.logger.Debug("ingest batch", zap.Int("files", len(uploads)), zap.String("user", caller.UserName))
	}
	results := make([]parsed, len(uploads))
	var wg sync.WaitGroup
	for i, u := range uploads {
		wg.Add(1)
		go func(i int, u Upload) {
			defer wg.Done()
			results[i] = parsed{upload: u, outcome: in.parse(u, caller)}
		}(i, u)
	}
	wg.Wait()

	batch := &BatchResult{Files: make([]FileResult, 0, len(results))}
	seen := make(map[string]bool)
	manualTaken := false
	for _, res := range results {
		name := res.upload.Name
		out := res.outcome
		switch out.Kind {
		case prparse.OutcomeImported:
			prName := out.Requisition.Name
			// seen holds only names stored by this batch, so it is checked first.
			if seen[prName] {
				batch.add(FileResult{
					FileName: name,
					Status:   StatusFailed,
					Message:  fmt.Sprintf("Duplicate name %q in the same upload batch.", prName),
				})
				continue
			}
			existing, err := in.storage.GetRequisitionByName(ctx, prName)
			if err == nil {
				batch.add(FileResult{FileName: name, Status: StatusExisting, ExistingID: existing.ID})
				continue
			}
			if !errors.Is(err, storage.ErrNotFound) {
				return batch, fmt.Errorf("lookup requisition %q: %w", prName, err)
			}
			seen[prName] = true
			r, err := in.persist(ctx, name, out.Requisition)
			if err != nil {
				return batch, err
			}
			batch.add(r)
		case prparse.OutcomeNeedsManual:
			if manualTaken {
				batch.add(FileResult{FileName: name, Status: StatusFailed, Message: MsgOneManualOnly})
				continue
			}
			manualTaken = true
			p := in.pending.add(name, out.Worksheet, in.now())
			batch.add(FileResult{FileName: name, Status: StatusNeedsManual, PendingID: p.ID})
		default:
			batch.add(FileResult{FileName: name, Status: StatusFailed, Message: out.Message})
		}
	}
	if in.logger != nil {
		in.logger.Debug("ingest batch done",
			zap.Int("imported", batch.Imported),
			zap.Int("existing", batch.Existing),
			zap.Int("failed", batch.Failed),
			zap.String("pending_id", batch.PendingID))
	}
	return batch, nil
}

func (in *Ingestor) parse(u Upload, caller prparse.Caller) prparse.Outcome {
	ws, err := in.decoder.DecodeBytes(u.Content, filepath.Ext(u.Name))
	if err != nil {
		if in.logger != nil {
			in.logger.Debug("ingest decode failed", zap.String("file", u.Name), zap.Error(err))
		}
		return prparse.Outcome{Kind: prparse.OutcomeFailed, Message: MsgDecodeFailed}
	}
	return in.parser.Parse(ws, u.Name, caller)
}

// persist stores pr and indexes its items. A name that was stored concurrently is
// reported as existing.
func (in *Ingestor) persist(ctx context.Context, fileName string, pr *models.PurchaseRequisition) (FileResult, error) {
	if err := in.storage.CreateRequisition(ctx, pr); err != nil {
		if errors.Is(err, storage.ErrDuplicateName) {
			existing, getErr := in.storage.GetRequisitionByName(ctx, pr.Name)
			if getErr != nil {
				return FileResult{}, fmt.Errorf("lookup requisition %q: %w", pr.Name, getErr)
			}
			return FileResult{FileName: fileName, Status: StatusExisting, ExistingID: existing.ID}, nil
		}
		return FileResult{}, fmt.Errorf("failed to store requisition: %w", err)
	}
	if in.keywordIndex != nil {
		if err := in.keywordIndex.IndexRequisition(ctx, pr); err != nil && in.logger != nil {
			in.logger.Warn("keyword index update failed", zap.String("pr_id", pr.ID), zap.Error(err))
		}
	}
	if in.logger != nil {
		in.logger.Debug("ingest requisition stored",
			zap.String("file", fileName),
			zap.String("pr_id", pr.ID),
			zap.Int("items", len(pr.Items)))
	}
	return FileResult{FileName: fileName, Status: StatusImported, Requisition: pr}, nil
}
