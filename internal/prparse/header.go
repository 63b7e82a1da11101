package prparse

import (
	"strings"

	"github.com/hyperjump/prtrack/internal/sheet"
)

// Location is the position of the item table: the header row and the description and
// quantity columns, all 0-based.
type Location struct {
	HeaderRow int `json:"header_row"`
	DescCol   int `json:"desc_col"`
	QtyCol    int `json:"qty_col"`
}

// LocateHeader returns the first row holding both a text cell containing "description"
// and a text cell whose trimmed text equals "qty", case-insensitively. Within that row the
// first matching column of each label wins. ok is false when no row qualifies.
func LocateHeader(g sheet.Grid) (loc Location, ok bool) {
	for r, row := range g {
		desc, qty := -1, -1
		for c, cell := range row {
			s, isText := cell.TextValue()
			if !isText {
				continue
			}
			lower := strings.ToLower(s)
			if desc == -1 && strings.Contains(lower, "description") {
				desc = c
			}
			if qty == -1 && strings.TrimSpace(lower) == "qty" {
				qty = c
			}
		}
		if desc != -1 && qty != -1 {
			return Location{HeaderRow: r, DescCol: desc, QtyCol: qty}, true
		}
	}
	return Location{}, false
}
