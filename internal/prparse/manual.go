package prparse

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ManualConfig is an operator-supplied table location used when the header cannot be
// found automatically. HeaderRow is 1-based and columns are single letters A-Z.
type ManualConfig struct {
	HeaderRow  int    `json:"header_row" validate:"gte=1"`
	DescColumn string `json:"desc_column" validate:"required,len=1,alpha"`
	QtyColumn  string `json:"qty_column" validate:"required,len=1,alpha"`
}

// ConfigError reports an invalid manual configuration.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string { return e.Message }

// Location validates the configuration against a sheet of totalRows rows and converts it
// to a 0-based Location. Out-of-range values are rejected, never clamped.
func (c ManualConfig) Location(totalRows int) (Location, error) {
	norm := ManualConfig{
		HeaderRow:  c.HeaderRow,
		DescColumn: strings.TrimSpace(c.DescColumn),
		QtyColumn:  strings.TrimSpace(c.QtyColumn),
	}
	// Validate before upper-casing: ToUpper maps "ı" and "ſ" into A-Z.
	if err := validate.Struct(norm); err != nil {
		return Location{}, configError(err, totalRows)
	}
	if norm.HeaderRow > totalRows {
		return Location{}, rowError(totalRows)
	}
	norm.DescColumn = strings.ToUpper(norm.DescColumn)
	norm.QtyColumn = strings.ToUpper(norm.QtyColumn)
	if norm.DescColumn == norm.QtyColumn {
		return Location{}, &ConfigError{Field: "qty_column", Message: "Description and quantity columns must be different."}
	}
	return Location{
		HeaderRow: norm.HeaderRow - 1,
		DescCol:   int(norm.DescColumn[0] - 'A'),
		QtyCol:    int(norm.QtyColumn[0] - 'A'),
	}, nil
}

func configError(err error, totalRows int) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ConfigError{Message: err.Error()}
	}
	fe := verrs[0]
	switch fe.StructField() {
	case "HeaderRow":
		return rowError(totalRows)
	case "DescColumn":
		return &ConfigError{Field: "desc_column", Message: "Description column must be a single letter from A to Z."}
	case "QtyColumn":
		return &ConfigError{Field: "qty_column", Message: "Quantity column must be a single letter from A to Z."}
	}
	return &ConfigError{Message: fe.Error()}
}

func rowError(totalRows int) error {
	return &ConfigError{
		Field:   "header_row",
		Message: fmt.Sprintf("Header row must be between 1 and %d.", totalRows),
	}
}
