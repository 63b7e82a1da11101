// Package prparse turns a decoded worksheet into a purchase requisition: it scans header
// metadata, locates the item table, extracts wrapped and merged line items, and falls back
// to an operator-supplied table location when the header cannot be found.
//
// Parsing is synchronous and does no I/O. Every result, including failures, is returned
// as an Outcome value.
package prparse

import (
	"time"

	"github.com/hyperjump/prtrack/internal/fileid"
	"github.com/hyperjump/prtrack/internal/models"
	"github.com/hyperjump/prtrack/internal/sheet"
)

const (
	// DefaultMetadataWindow is the number of leading rows scanned for metadata labels.
	DefaultMetadataWindow = 20
	// DefaultDisplayLayout renders issue dates as a short numeric locale date.
	DefaultDisplayLayout = "1/2/2006"

	// MsgHeadersNotFound is returned to callers that may not configure headers manually.
	MsgHeadersNotFound = "Could not automatically find headers. Please ask an admin to upload."
)

// Caller identifies who is importing. Admin callers receive a needs-manual outcome when
// the header is missing; everyone else receives a failure.
type Caller struct {
	UserName string `json:"user_name"`
	Admin    bool   `json:"admin"`
}

// OutcomeKind classifies an Outcome.
type OutcomeKind int

const (
	OutcomeImported OutcomeKind = iota
	OutcomeFailed
	OutcomeNeedsManual
	OutcomeInvalidConfig
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeImported:
		return "imported"
	case OutcomeFailed:
		return "failed"
	case OutcomeNeedsManual:
		return "needs_manual"
	case OutcomeInvalidConfig:
		return "invalid_config"
	default:
		return "unknown"
	}
}

// Outcome is the result of parsing one worksheet.
// Requisition is set for OutcomeImported, Worksheet for OutcomeNeedsManual, and Message
// for the failure kinds.
type Outcome struct {
	Kind        OutcomeKind
	Requisition *models.PurchaseRequisition
	Worksheet   *sheet.Worksheet
	Message     string
}

// Parser holds parse settings. The zero value is not usable; use NewParser.
type Parser struct {
	window        int
	layouts       []string
	displayLayout string
	now           func() time.Time
}

// Option configures a Parser.
type Option func(*Parser)

// WithMetadataWindow sets how many leading rows are scanned for metadata.
func WithMetadataWindow(n int) Option {
	return func(p *Parser) {
		if n > 0 {
			p.window = n
		}
	}
}

// WithDateLayouts sets the layouts tried when a date label's value is text.
func WithDateLayouts(layouts []string) Option {
	return func(p *Parser) {
		if len(layouts) > 0 {
			p.layouts = layouts
		}
	}
}

// WithDisplayLayout sets the layout used to render issue dates.
func WithDisplayLayout(layout string) Option {
	return func(p *Parser) {
		if layout != "" {
			p.displayLayout = layout
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(p *Parser) { p.now = now }
}

// NewParser creates a Parser with the given options.
func NewParser(opts ...Option) *Parser {
	p := &Parser{
		window:        DefaultMetadataWindow,
		layouts:       DefaultDateLayouts,
		displayLayout: DefaultDisplayLayout,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// DisplayLayout returns the layout used for issue dates.
func (p *Parser) DisplayLayout() string { return p.displayLayout }

// DateLayouts returns the layouts tried when parsing date text.
func (p *Parser) DateLayouts() []string { return p.layouts }

// Parse locates the item table automatically and builds a requisition from ws.
func (p *Parser) Parse(ws *sheet.Worksheet, fileName string, caller Caller) Outcome {
	loc, ok := LocateHeader(ws.Grid)
	if !ok {
		if caller.Admin {
			return Outcome{Kind: OutcomeNeedsManual, Worksheet: ws}
		}
		return Outcome{Kind: OutcomeFailed, Message: MsgHeadersNotFound}
	}
	return p.build(ws, loc, fileName, caller)
}

// ParseManual builds a requisition using an operator-supplied table location.
// An invalid configuration yields OutcomeInvalidConfig with a specific message.
func (p *Parser) ParseManual(ws *sheet.Worksheet, fileName string, cfg ManualConfig, caller Caller) Outcome {
	loc, err := cfg.Location(ws.Grid.Rows())
	if err != nil {
		return Outcome{Kind: OutcomeInvalidConfig, Message: err.Error()}
	}
	return p.build(ws, loc, fileName, caller)
}

func (p *Parser) build(ws *sheet.Worksheet, loc Location, fileName string, caller Caller) Outcome {
	now := p.now()
	md := ScanMetadata(ws.Grid, p.window, p.layouts)
	items := ExtractItems(ws, loc, fileid.ItemIDs(fileName, now))
	pr, err := Assemble(md, items, Assembly{
		FileName:      fileName,
		Submitter:     caller.UserName,
		Now:           now,
		DisplayLayout: p.displayLayout,
	})
	if err != nil {
		return Outcome{Kind: OutcomeFailed, Message: err.Error()}
	}
	return Outcome{Kind: OutcomeImported, Requisition: pr}
}
