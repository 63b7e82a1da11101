package decode

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/hyperjump/prtrack/internal/sheet"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// decodeCSV reads comma-separated text. Input that is not valid UTF-8 is treated as
// Windows-1252, the usual encoding of spreadsheet CSV exports.
func decodeCSV(content []byte) (*sheet.Worksheet, error) {
	content = bytes.TrimPrefix(content, utf8BOM)
	if !utf8.Valid(content) {
		decoded, err := charmap.Windows1252.NewDecoder().Bytes(content)
		if err != nil {
			return nil, fmt.Errorf("decode CSV text: %w", err)
		}
		content = decoded
	}

	r := csv.NewReader(bytes.NewReader(content))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	// encoding/csv skips blank lines; they are put back as empty rows so row numbers
	// match what a spreadsheet application shows.
	var grid sheet.Grid
	lastLine := 0
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read CSV: %w", err)
		}
		start, _ := r.FieldPos(0)
		for ; lastLine < start-1; lastLine++ {
			grid = append(grid, nil)
		}
		end, _ := r.FieldPos(len(rec) - 1)
		lastLine = end + strings.Count(rec[len(rec)-1], "\n")

		cols := make([]sheet.Value, len(rec))
		for j, field := range rec {
			cols[j] = sheet.Text(field)
		}
		grid = append(grid, cols)
	}
	trimTrailingEmptyRows(&grid)
	return &sheet.Worksheet{Name: "Sheet1", Grid: grid}, nil
}
