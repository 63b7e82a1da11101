// Package sheet holds the decoded form of a worksheet: a ragged grid of typed cell values,
// its merged ranges, and the merge-aware cell resolver used during item extraction.
package sheet

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Kind identifies which variant a Value holds.
type Kind int

const (
	KindEmpty Kind = iota
	KindText
	KindNumber
	KindDate
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	case KindDate:
		return "date"
	default:
		return "empty"
	}
}

// Value is a single raw cell value: Empty, Text, Number or Date.
// The zero Value is Empty.
type Value struct {
	kind Kind
	text string
	num  float64
	date time.Time
}

// Empty returns the empty cell value.
func Empty() Value { return Value{} }

// Text returns a text cell. An empty string yields the empty value.
func Text(s string) Value {
	if s == "" {
		return Value{}
	}
	return Value{kind: KindText, text: s}
}

// Number returns a numeric cell.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// Date returns a native date cell.
func Date(t time.Time) Value { return Value{kind: KindDate, date: t} }

// Kind reports the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsEmpty reports whether v is the empty value.
func (v Value) IsEmpty() bool { return v.kind == KindEmpty }

// TextValue returns the string of a text cell; ok is false for every other kind.
func (v Value) TextValue() (string, bool) {
	return v.text, v.kind == KindText
}

// NumberValue returns the number of a numeric cell; ok is false for every other kind.
func (v Value) NumberValue() (float64, bool) {
	return v.num, v.kind == KindNumber
}

// DateValue returns the time of a date cell; ok is false for every other kind.
func (v Value) DateValue() (time.Time, bool) {
	return v.date, v.kind == KindDate
}

// String renders the value as display text. Dates use ISO form (2006-01-02).
func (v Value) String() string {
	switch v.kind {
	case KindText:
		return v.text
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindDate:
		return v.date.Format("2006-01-02")
	default:
		return ""
	}
}

// Trimmed returns String with surrounding whitespace removed.
func (v Value) Trimmed() string {
	return strings.TrimSpace(v.String())
}

// MarshalJSON encodes the value as null, a string, a number, or an RFC 3339 timestamp.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindText:
		return json.Marshal(v.text)
	case KindNumber:
		return json.Marshal(v.num)
	case KindDate:
		return json.Marshal(v.date.Format(time.RFC3339))
	default:
		return []byte("null"), nil
	}
}
