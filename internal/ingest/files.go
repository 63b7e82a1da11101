package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/prtrack/internal/prparse"
	"github.com/hyperjump/prtrack/internal/storage"
)

// IngestFile reads a spreadsheet from path and imports it as a batch of one. If allowedExts
// is non-nil and non-empty, the file's extension must be in the list (case-insensitive).
// Returns an error if the path is not a regular file, cannot be read, or storage fails.
func (in *Ingestor) IngestFile(ctx context.Context, path string, allowedExts []string, caller prparse.Caller) (*FileResult, error) {
	if in.logger != nil {
		in.logger.Debug("ingest reading file", zap.String("path", path))
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(absPath))
	if len(allowedExts) > 0 && !extensionAllowed(ext, allowedExts) {
		return nil, fmt.Errorf("extension %q not in allowed list", ext)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("not a regular file: %s", absPath)
	}
	content, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	batch, err := in.IngestBatch(ctx, []Upload{{Name: filepath.Base(absPath), Content: content}}, caller)
	if err != nil {
		return nil, err
	}
	r := batch.Files[0]
	if in.logger != nil {
		in.logger.Debug("ingest file done", zap.String("path", absPath), zap.String("status", string(r.Status)))
	}
	return &r, nil
}

// IngestDirectory walks dir recursively and imports each regular file whose extension
// is in allowedExts (if non-nil and non-empty; otherwise all files). Returns the per-file
// results and the first error encountered, if any.
func (in *Ingestor) IngestDirectory(ctx context.Context, dir string, allowedExts []string, caller prparse.Caller) ([]FileResult, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return nil, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", absDir)
	}
	var results []FileResult
	err = filepath.WalkDir(absDir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if len(allowedExts) > 0 && !extensionAllowed(ext, allowedExts) {
			return nil
		}
		// Resolve symlinks so only regular files are read
		finfo, statErr := os.Stat(path)
		if statErr != nil || !finfo.Mode().IsRegular() {
			return nil
		}
		r, ingestErr := in.IngestFile(ctx, path, allowedExts, caller)
		if ingestErr != nil {
			return ingestErr
		}
		results = append(results, *r)
		return nil
	})
	return results, err
}

func extensionAllowed(ext string, allowed []string) bool {
	extNorm := strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == extNorm {
			return true
		}
	}
	return false
}

// DeleteRequisitions removes requisitions from the keyword index and storage and returns
// how many were stored. Unknown ids are ignored.
func (in *Ingestor) DeleteRequisitions(ctx context.Context, ids []string) (int64, error) {
	if in.logger != nil {
		in.logger.Debug("ingest deleting requisitions", zap.Strings("ids", ids))
	}
	if in.keywordIndex != nil {
		for _, id := range ids {
			if err := in.keywordIndex.DeleteRequisition(ctx, id); err != nil {
				return 0, fmt.Errorf("failed to delete from keyword index: %w", err)
			}
		}
	}
	n, err := in.storage.DeleteRequisitions(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("failed to delete requisitions: %w", err)
	}
	return n, nil
}

// DeleteRequisition removes one requisition. Returns storage.ErrNotFound if it does not exist.
func (in *Ingestor) DeleteRequisition(ctx context.Context, id string) error {
	n, err := in.DeleteRequisitions(ctx, []string{id})
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("requisition %w: %s", storage.ErrNotFound, id)
	}
	return nil
}

// Reindex rebuilds the keyword index from storage and returns the number of requisitions
// indexed. Used when the index was opened empty or lost.
func (in *Ingestor) Reindex(ctx context.Context) (int, error) {
	if in.keywordIndex == nil {
		return 0, errors.New("no keyword index configured")
	}
	prs, err := in.storage.AllRequisitions(ctx)
	if err != nil {
		return 0, fmt.Errorf("load requisitions: %w", err)
	}
	for _, pr := range prs {
		if err := in.keywordIndex.IndexRequisition(ctx, pr); err != nil {
			return 0, fmt.Errorf("index requisition %s: %w", pr.ID, err)
		}
	}
	if in.logger != nil {
		in.logger.Debug("ingest reindexed", zap.Int("requisitions", len(prs)))
	}
	return len(prs), nil
}
