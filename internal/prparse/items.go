package prparse

import (
	"math"
	"strconv"
	"strings"

	"github.com/hyperjump/prtrack/internal/models"
	"github.com/hyperjump/prtrack/internal/sheet"
)

// NoQuantityNote is the comment given to a trailing description with no quantity.
const NoQuantityNote = "Note: No quantity specified in PR"

// ExtractItems walks the rows below the header and builds line items.
//
// Description lines accumulate until a row whose quantity cell holds a finite number
// greater than zero; that row closes the item. Merged description cells contribute once
// per item. A quantity with no accumulated description is dropped. Description lines left
// over at the end become an item with quantity 0 and a note comment.
func ExtractItems(ws *sheet.Worksheet, loc Location, nextID func(n int) string) []models.PRItem {
	res := sheet.NewResolver(ws)
	var items []models.PRItem
	var parts []string

	for r := loc.HeaderRow + 1; r < ws.Grid.Rows(); r++ {
		if line := descriptionText(res.Resolve(r, loc.DescCol)); line != "" {
			parts = append(parts, line)
		}

		qty, ok := Quantity(ws.Grid.At(r, loc.QtyCol))
		if !ok {
			continue
		}
		desc := strings.TrimSpace(strings.Join(parts, "\n"))
		if desc == "" {
			continue
		}
		items = append(items, models.PRItem{
			ID:               nextID(len(items)),
			Description:      desc,
			OriginalQuantity: qty,
		})
		parts = nil
		res.Reset()
	}

	if desc := strings.TrimSpace(strings.Join(parts, "\n")); desc != "" {
		items = append(items, models.PRItem{
			ID:          nextID(len(items)),
			Description: desc,
			Comment:     NoQuantityNote,
		})
	}
	return items
}

// Quantity coerces a raw cell to a quantity. Numbers are used as-is and text is parsed
// after trimming. ok is true only for finite values greater than zero; empty cells,
// dates, zero, negatives and non-numeric text are rejected.
func Quantity(v sheet.Value) (float64, bool) {
	var n float64
	switch v.Kind() {
	case sheet.KindNumber:
		n, _ = v.NumberValue()
	case sheet.KindText:
		s := strings.TrimSpace(v.String())
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		n = f
	default:
		return 0, false
	}
	if math.IsNaN(n) || math.IsInf(n, 0) || n <= 0 {
		return 0, false
	}
	return n, true
}

func descriptionText(v sheet.Value) string {
	if !meaningful(v) {
		return ""
	}
	return v.Trimmed()
}
