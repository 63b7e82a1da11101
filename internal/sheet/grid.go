package sheet

import "fmt"

// Grid is an ordered list of rows of raw cell values. Rows may differ in length;
// any access outside the stored cells yields the empty value.
type Grid [][]Value

// At returns the raw value at (row, col), or Empty when out of range.
func (g Grid) At(row, col int) Value {
	if row < 0 || row >= len(g) {
		return Empty()
	}
	r := g[row]
	if col < 0 || col >= len(r) {
		return Empty()
	}
	return r[col]
}

// Rows returns the number of rows in the grid.
func (g Grid) Rows() int { return len(g) }

// Width returns the length of the longest row.
func (g Grid) Width() int {
	w := 0
	for _, r := range g {
		if len(r) > w {
			w = len(r)
		}
	}
	return w
}

// MergeRange is a rectangular merged region, 0-based and inclusive on both ends.
// Only the top-left cell of the range carries a value in the grid.
type MergeRange struct {
	StartRow int `json:"start_row"`
	StartCol int `json:"start_col"`
	EndRow   int `json:"end_row"`
	EndCol   int `json:"end_col"`
}

// Contains reports whether (row, col) lies inside the range.
func (m MergeRange) Contains(row, col int) bool {
	return row >= m.StartRow && row <= m.EndRow && col >= m.StartCol && col <= m.EndCol
}

// Key identifies the range by its top-left corner.
func (m MergeRange) Key() string {
	return fmt.Sprintf("%d-%d", m.StartRow, m.StartCol)
}

// Worksheet is a decoded sheet: the raw grid plus its merged ranges.
type Worksheet struct {
	Name   string       `json:"name"`
	Grid   Grid         `json:"grid"`
	Merges []MergeRange `json:"merges"`
}

// MergeAt returns the merge range containing (row, col), if any.
func (w *Worksheet) MergeAt(row, col int) (MergeRange, bool) {
	for _, m := range w.Merges {
		if m.Contains(row, col) {
			return m, true
		}
	}
	return MergeRange{}, false
}
