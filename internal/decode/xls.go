package decode

import (
	"bytes"
	"fmt"
	"time"

	"github.com/extrame/xls"

	"github.com/hyperjump/prtrack/internal/sheet"
)

// decodeXLS reads the first sheet of a legacy BIFF workbook. The format's merge records
// are not exposed by the reader, so the worksheet carries no merges.
func decodeXLS(content []byte, charset string) (*sheet.Worksheet, error) {
	wb, err := xls.OpenReader(bytes.NewReader(content), charset)
	if err != nil {
		return nil, fmt.Errorf("open XLS: %w", err)
	}
	if wb.NumSheets() == 0 {
		return nil, fmt.Errorf("open XLS: workbook has no sheets")
	}
	ws := wb.GetSheet(0)
	if ws == nil {
		return nil, fmt.Errorf("open XLS: first sheet unreadable")
	}

	grid := make(sheet.Grid, 0, int(ws.MaxRow)+1)
	for i := 0; i <= int(ws.MaxRow); i++ {
		row := ws.Row(i)
		if row == nil {
			grid = append(grid, nil)
			continue
		}
		cols := make([]sheet.Value, row.LastCol())
		for j := 0; j < row.LastCol(); j++ {
			cols[j] = xlsCell(row.Col(j))
		}
		grid = append(grid, cols)
	}
	trimTrailingEmptyRows(&grid)
	return &sheet.Worksheet{Name: ws.Name, Grid: grid}, nil
}

func xlsCell(s string) sheet.Value {
	if s == "" {
		return sheet.Empty()
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return sheet.Date(t)
	}
	return sheet.Text(s)
}

func trimTrailingEmptyRows(g *sheet.Grid) {
	rows := *g
	for len(rows) > 0 {
		last := rows[len(rows)-1]
		empty := true
		for _, v := range last {
			if !v.IsEmpty() {
				empty = false
				break
			}
		}
		if !empty {
			break
		}
		rows = rows[:len(rows)-1]
	}
	*g = rows
}
