// Package cli provides output writers for the prtrack command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/hyperjump/prtrack/internal/ingest"
	"github.com/hyperjump/prtrack/internal/models"
	"github.com/hyperjump/prtrack/internal/report"
	"github.com/hyperjump/prtrack/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseFormat maps a flag value to an OutputFormat.
func ParseFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(strings.TrimSpace(s))) {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	}
	return "", fmt.Errorf("unknown output format %q (want text or json)", s)
}

const descriptionWidth = 60

// styles binds lipgloss styles to the writer so colour is only emitted on terminals.
type styles struct {
	title   lipgloss.Style
	muted   lipgloss.Style
	success lipgloss.Style
	warning lipgloss.Style
	failure lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		title:   r.NewStyle().Bold(true),
		muted:   r.NewStyle().Foreground(lipgloss.Color("245")),
		success: r.NewStyle().Foreground(lipgloss.Color("42")),
		warning: r.NewStyle().Foreground(lipgloss.Color("214")),
		failure: r.NewStyle().Foreground(lipgloss.Color("196")),
	}
}

func (s styles) status(st models.Status) string {
	if st == models.StatusCompleted {
		return s.success.Render(string(st))
	}
	return s.warning.Render(string(st))
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteRequisitions writes a requisition list.
func WriteRequisitions(w io.Writer, list []*models.Summary, format OutputFormat) error {
	if format == OutputJSON {
		if list == nil {
			list = []*models.Summary{}
		}
		return writeJSON(w, list)
	}
	st := newStyles(w)
	if len(list) == 0 {
		fmt.Fprintln(w, st.muted.Render("No requisitions."))
		return nil
	}
	fmt.Fprintln(w, st.title.Render(fmt.Sprintf("%d requisition(s)", len(list))))
	for _, s := range list {
		fmt.Fprintf(w, "%s  %-24s  %-10s  %d/%d items  %s\n",
			s.ID, utils.Truncate(s.Name, 24), s.IssueDate, s.CompleteCount, s.ItemCount, st.status(s.Status))
	}
	return nil
}

// WriteRequisition writes one requisition with its items.
func WriteRequisition(w io.Writer, pr *models.PurchaseRequisition, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, pr)
	}
	st := newStyles(w)
	fmt.Fprintf(w, "%s  %s\n", st.title.Render(pr.Name), st.status(pr.Status))
	fmt.Fprintf(w, "ID:             %s\n", pr.ID)
	fmt.Fprintf(w, "Issue date:     %s\n", orDash(pr.IssueDate))
	fmt.Fprintf(w, "Requisition by: %s\n", orDash(pr.RequisitionBy))
	fmt.Fprintf(w, "Approved by:    %s\n", orDash(pr.ApprovedBy))
	if pr.LastModifiedBy != nil {
		fmt.Fprintf(w, "Last modified:  %s at %s\n", pr.LastModifiedBy.UserName, pr.LastModifiedBy.Timestamp.Format("2006-01-02 15:04"))
	}
	fmt.Fprintln(w)
	for i, it := range pr.Items {
		fmt.Fprintf(w, "%3d. %-*s  %s/%s  %s\n", i+1, descriptionWidth,
			utils.Truncate(utils.OneLine(it.Description), descriptionWidth),
			FormatQuantity(it.ReceivedQuantity), FormatQuantity(it.OriginalQuantity), itemState(st, it.State()))
		fmt.Fprintln(w, st.muted.Render("     id "+it.ID))
		if it.Comment != "" {
			fmt.Fprintln(w, st.muted.Render("     comment: "+utils.OneLine(it.Comment)))
		}
	}
	return nil
}

func itemState(st styles, s models.ItemState) string {
	switch s {
	case models.ItemCompleted:
		return st.success.Render(string(s))
	case models.ItemPartial:
		return st.warning.Render(string(s))
	}
	return string(s)
}

// WriteItemHits writes item search results.
func WriteItemHits(w io.Writer, resp *models.ItemSearchResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, resp)
	}
	st := newStyles(w)
	mode := "substring"
	if resp.Ranked {
		mode = "ranked"
	}
	fmt.Fprintf(w, "\nFound %d item(s) for %q in %dms (%s)\n\n", resp.Total, resp.Query, resp.QueryTime, mode)
	for _, h := range resp.Hits {
		score := ""
		if resp.Ranked {
			score = st.muted.Render(fmt.Sprintf("  score %.4f", h.Score))
		}
		fmt.Fprintf(w, "%s  %s%s\n", st.title.Render(h.PRName), itemState(st, h.Item.State()), score)
		fmt.Fprintf(w, "  %s\n", utils.Truncate(utils.OneLine(h.Item.Description), 200))
		fmt.Fprintf(w, "  received %s of %s\n", FormatQuantity(h.Item.ReceivedQuantity), FormatQuantity(h.Item.OriginalQuantity))
	}
	return nil
}

// WriteFileResults writes per-file import results.
func WriteFileResults(w io.Writer, results []ingest.FileResult, format OutputFormat) error {
	if format == OutputJSON {
		if results == nil {
			results = []ingest.FileResult{}
		}
		return writeJSON(w, results)
	}
	st := newStyles(w)
	for _, r := range results {
		var label string
		switch r.Status {
		case ingest.StatusImported:
			label = st.success.Render("imported")
		case ingest.StatusExisting:
			label = st.muted.Render("existing")
		case ingest.StatusNeedsManual:
			label = st.warning.Render("needs manual header selection")
		default:
			label = st.failure.Render("failed")
		}
		line := fmt.Sprintf("%-40s %s", r.FileName, label)
		switch {
		case r.Requisition != nil:
			line += fmt.Sprintf(" (%s, %d items)", r.Requisition.Name, len(r.Requisition.Items))
		case r.ExistingID != "":
			line += " (" + r.ExistingID + ")"
		}
		if r.Message != "" {
			line += ": " + r.Message
		}
		fmt.Fprintln(w, line)
	}
	return nil
}

// WriteReport writes a status report summary with the pending items of each open requisition.
func WriteReport(w io.Writer, rep *report.Report, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, rep)
	}
	st := newStyles(w)
	sum := rep.Summary
	fmt.Fprintln(w, st.title.Render(fmt.Sprintf("Report %s to %s", rep.From, rep.To)))
	fmt.Fprintf(w, "%d requisition(s): %d in progress, %d completed, %d delayed\n",
		sum.Total, sum.InProgress, sum.Completed, sum.Delayed)
	fmt.Fprintf(w, "%d pending item(s), %s units outstanding\n", sum.PendingItems, FormatQuantity(sum.PendingQty))
	for _, e := range rep.InProgress {
		fmt.Fprintln(w)
		head := fmt.Sprintf("%s  %s  %d day(s) open", e.Name, e.IssueDate, e.DaysOpen)
		if e.Delayed {
			head += "  " + st.failure.Render("DELAYED")
		}
		fmt.Fprintln(w, head)
		for _, p := range e.Pending {
			fmt.Fprintf(w, "  - %s: %s pending\n", utils.Truncate(utils.OneLine(p.Description), descriptionWidth), FormatQuantity(p.Pending))
		}
	}
	return nil
}

// FormatQuantity prints whole quantities without a fraction.
func FormatQuantity(q float64) string {
	return strconv.FormatFloat(q, 'f', -1, 64)
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
