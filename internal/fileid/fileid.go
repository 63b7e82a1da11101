// Package fileid derives requisition names and identifiers from the identity of an
// uploaded file.
package fileid

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// spreadsheetExts are stripped from a file name to form the requisition name.
var spreadsheetExts = []string{".xlsx", ".xls", ".csv"}

// PRName returns the requisition name for a file: its base name with a trailing
// .xlsx, .xls or .csv extension removed, compared case-insensitively.
// Any other extension is kept.
func PRName(fileName string) string {
	base := filepath.Base(fileName)
	if base == "." || base == string(filepath.Separator) {
		return ""
	}
	lower := strings.ToLower(base)
	for _, ext := range spreadsheetExts {
		if strings.HasSuffix(lower, ext) {
			return base[:len(base)-len(ext)]
		}
	}
	return base
}

// NewRequisitionID returns a fresh time-ordered requisition id.
func NewRequisitionID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// ItemIDs returns a generator of item ids for one parse run of fileName.
// Ids combine the run time, the file identity and the item's ordinal, so ids from one
// run are unique and a re-parse of the same file yields different ids.
func ItemIDs(fileName string, at time.Time) func(n int) string {
	stamp := at.UnixMilli()
	name := filepath.Base(fileName)
	run := uuid.New().String()[:8]
	return func(n int) string {
		return fmt.Sprintf("%d-%s-%s-%d", stamp, run, name, n)
	}
}
