package prparse

import (
	"fmt"
	"time"

	"github.com/hyperjump/prtrack/internal/sheet"
)

// row builds a grid row from Go values: string -> Text, int/float64 -> Number,
// time.Time -> Date, nil -> Empty.
func row(cells ...any) []sheet.Value {
	out := make([]sheet.Value, len(cells))
	for i, c := range cells {
		switch v := c.(type) {
		case nil:
			out[i] = sheet.Empty()
		case string:
			out[i] = sheet.Text(v)
		case int:
			out[i] = sheet.Number(float64(v))
		case float64:
			out[i] = sheet.Number(v)
		case time.Time:
			out[i] = sheet.Date(v)
		default:
			panic(fmt.Sprintf("unsupported cell %T", c))
		}
	}
	return out
}

func seqIDs(n int) string { return fmt.Sprintf("item-%d", n) }

var fixedNow = time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }
