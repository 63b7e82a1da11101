// Package decode reads spreadsheet bytes into a sheet.Worksheet: the first sheet's grid of
// typed cell values plus its merged ranges.
package decode

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/prtrack/internal/sheet"
)

// ErrUnsupported is returned for file extensions that cannot be decoded.
var ErrUnsupported = errors.New("unsupported file type")

// Extensions lists the supported file extensions, lower-case with leading dot.
var Extensions = []string{".xlsx", ".xls", ".csv"}

// Decoder decodes spreadsheet files.
type Decoder struct {
	xlsCharset string
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithXLSCharset sets the code page assumed for legacy .xls string records.
func WithXLSCharset(charset string) Option {
	return func(d *Decoder) {
		if charset != "" {
			d.xlsCharset = charset
		}
	}
}

// NewDecoder returns a new Decoder.
func NewDecoder(opts ...Option) *Decoder {
	d := &Decoder{xlsCharset: "utf-8"}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Supported reports whether ext (with leading dot, any case) can be decoded.
func Supported(ext string) bool {
	ext = strings.ToLower(ext)
	for _, e := range Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

// Decode reads the file at path and decodes its first sheet.
func (d *Decoder) Decode(path string) (*sheet.Worksheet, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return d.DecodeBytes(content, filepath.Ext(path))
}

// DecodeBytes decodes content according to ext, which should include the leading dot.
func (d *Decoder) DecodeBytes(content []byte, ext string) (*sheet.Worksheet, error) {
	switch strings.ToLower(ext) {
	case ".xlsx":
		return decodeXLSX(content)
	case ".xls":
		return decodeXLS(content, d.xlsCharset)
	case ".csv":
		return decodeCSV(content)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupported, ext)
	}
}
