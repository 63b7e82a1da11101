package decode

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/prtrack/internal/sheet"
)

// builtinDateFormats are the built-in number format ids that render dates or times.
var builtinDateFormats = map[int]bool{
	14: true, 15: true, 16: true, 17: true, 18: true, 19: true, 20: true, 21: true, 22: true,
	27: true, 28: true, 29: true, 30: true, 31: true, 32: true, 33: true, 34: true, 35: true, 36: true,
	45: true, 46: true, 47: true,
	50: true, 51: true, 52: true, 53: true, 54: true, 55: true, 56: true, 57: true, 58: true,
}

type xlsxReader struct {
	f         *excelize.File
	sheet     string
	date1904  bool
	dateStyle map[int]bool
}

func decodeXLSX(content []byte) (*sheet.Worksheet, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("open Excel: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("open Excel: workbook has no sheets")
	}
	x := &xlsxReader{f: f, sheet: sheets[0], dateStyle: make(map[int]bool)}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		x.date1904 = *props.Date1904
	}

	rows, err := f.GetRows(x.sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("get rows for sheet %q: %w", x.sheet, err)
	}
	grid := make(sheet.Grid, len(rows))
	for r, cols := range rows {
		out := make([]sheet.Value, len(cols))
		for c, raw := range cols {
			if raw == "" {
				continue
			}
			out[c] = x.cell(r, c, raw)
		}
		grid[r] = out
	}

	merges, err := x.merges()
	if err != nil {
		return nil, err
	}
	return &sheet.Worksheet{Name: x.sheet, Grid: grid, Merges: merges}, nil
}

// cell types a raw cell value using the cell's stored type and number format.
func (x *xlsxReader) cell(r, c int, raw string) sheet.Value {
	axis, err := excelize.CoordinatesToCellName(c+1, r+1)
	if err != nil {
		return sheet.Text(raw)
	}
	typ, err := x.f.GetCellType(x.sheet, axis)
	if err != nil {
		return sheet.Text(raw)
	}
	switch typ {
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString,
		excelize.CellTypeFormula, excelize.CellTypeError:
		return sheet.Text(raw)
	case excelize.CellTypeBool:
		if raw == "1" {
			return sheet.Text("TRUE")
		}
		return sheet.Text("FALSE")
	case excelize.CellTypeDate:
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, raw); err == nil {
				return sheet.Date(t)
			}
		}
		return sheet.Text(raw)
	}

	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return sheet.Text(raw)
	}
	if x.isDate(axis) {
		if t, err := excelize.ExcelDateToTime(n, x.date1904); err == nil {
			return sheet.Date(t)
		}
	}
	return sheet.Number(n)
}

func (x *xlsxReader) isDate(axis string) bool {
	idx, err := x.f.GetCellStyle(x.sheet, axis)
	if err != nil || idx == 0 {
		return false
	}
	if v, ok := x.dateStyle[idx]; ok {
		return v
	}
	isDate := false
	if style, err := x.f.GetStyle(idx); err == nil && style != nil {
		isDate = builtinDateFormats[style.NumFmt]
		if style.CustomNumFmt != nil {
			isDate = isDate || customDateFormat(*style.CustomNumFmt)
		}
	}
	x.dateStyle[idx] = isDate
	return isDate
}

// customDateFormat reports whether a custom number format renders a date: after dropping
// quoted literals and bracketed sections it must contain a year, day or hour token.
func customDateFormat(code string) bool {
	var b strings.Builder
	depth, quoted := 0, false
	for _, r := range strings.ToLower(code) {
		switch {
		case r == '"':
			quoted = !quoted
		case quoted:
		case r == '[':
			depth++
		case r == ']':
			if depth > 0 {
				depth--
			}
		case depth == 0:
			b.WriteRune(r)
		}
	}
	return strings.ContainsAny(b.String(), "ydh")
}

func (x *xlsxReader) merges() ([]sheet.MergeRange, error) {
	cells, err := x.f.GetMergeCells(x.sheet)
	if err != nil {
		return nil, fmt.Errorf("get merged cells for sheet %q: %w", x.sheet, err)
	}
	out := make([]sheet.MergeRange, 0, len(cells))
	for _, mc := range cells {
		sc, sr, err := excelize.CellNameToCoordinates(mc.GetStartAxis())
		if err != nil {
			continue
		}
		ec, er, err := excelize.CellNameToCoordinates(mc.GetEndAxis())
		if err != nil {
			continue
		}
		out = append(out, sheet.MergeRange{
			StartRow: sr - 1,
			StartCol: sc - 1,
			EndRow:   er - 1,
			EndCol:   ec - 1,
		})
	}
	return out, nil
}
