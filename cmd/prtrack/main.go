// Package main is the prtrack CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/prtrack/internal/cli"
	"github.com/hyperjump/prtrack/internal/config"
	"github.com/hyperjump/prtrack/internal/decode"
	"github.com/hyperjump/prtrack/internal/ingest"
	"github.com/hyperjump/prtrack/internal/keyword"
	"github.com/hyperjump/prtrack/internal/models"
	"github.com/hyperjump/prtrack/internal/prparse"
	"github.com/hyperjump/prtrack/internal/receipt"
	"github.com/hyperjump/prtrack/internal/report"
	"github.com/hyperjump/prtrack/internal/search"
	"github.com/hyperjump/prtrack/internal/server"
	"github.com/hyperjump/prtrack/internal/sheet"
	"github.com/hyperjump/prtrack/internal/storage"
	"github.com/hyperjump/prtrack/internal/watcher"
	"github.com/hyperjump/prtrack/pkg/utils"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/prtrack/config.yaml"
	defaultServerURL  = "http://localhost:8080"
	queryDateLayout   = "2006-01-02"
	previewColumns    = 8
)

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory so that running from a project dir uses its config.
// Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "import":
		runImport()
	case "list":
		runList()
	case "show":
		runShow()
	case "search":
		runSearch()
	case "receive":
		runReceive()
	case "receive-all":
		runReceiveAll()
	case "reopen":
		runReopen()
	case "delete":
		runDelete()
	case "report":
		runReport()
	case "status":
		runStatus()
	case "watch":
		runWatch()
	case "version", "--version", "-v":
		fmt.Printf("prtrack version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// defaultUser names the operator for commands that record who changed a requisition.
func defaultUser() string {
	if u := os.Getenv("PRTRACK_USER"); u != "" {
		return u
	}
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "cli"
}

func fail(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func parseFormat(raw string) cli.OutputFormat {
	format, err := cli.ParseFormat(raw)
	if err != nil {
		fail("%v", err)
	}
	return format
}

// setup loads config and a logger and opens the components. The keyword index is only
// opened when withIndex is set, so read-only commands can run beside a live server.
func setup(configPath string, debugFlag, withIndex bool) (*config.Config, *zap.Logger, *Components) {
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		fail("Failed to load config: %v", err)
	}
	debugMode := cfg.Debug || debugFlag
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fail("Failed to create logger: %v", err)
	}
	logger.Debug("config loaded", zap.String("config_path", resolved), zap.Bool("debug", debugMode))
	components, err := initializeComponents(cfg, logger, withIndex)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	return cfg, logger, components
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (watched files, imports, etc.)")
	_ = fs.Parse(os.Args[2:])

	cfg, logger, components := setup(*configPath, *debug, true)
	defer logger.Sync()
	defer components.Close()

	exts := cfg.Watch.Extensions
	submitter := prparse.Caller{UserName: cfg.Watch.Submitter}
	watchSvc := watcher.NewWatcher(
		cfg.Watch.Directories,
		exts,
		cfg.Watch.RecursiveOrDefault(),
		func(ctx context.Context, path string) {
			res, err := components.Ingestor.IngestFile(ctx, path, exts, submitter)
			if err != nil {
				logger.Warn("watch import failed", zap.String("path", path), zap.Error(err))
				return
			}
			logger.Info("watch import",
				zap.String("path", path),
				zap.String("status", string(res.Status)),
				zap.String("message", res.Message))
		},
		watcher.WithLogger(logger),
	)
	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if err := watchSvc.Start(watchCtx); err != nil {
		logger.Fatal("Failed to start watcher", zap.Error(err))
	}
	watchSvc.SyncExistingFiles()

	srv := server.NewServer(server.Deps{
		Ingestor: components.Ingestor,
		Engine:   components.Engine,
		Storage:  components.Storage,
		Index:    components.KeywordIndex,
		Reports:  components.Reports,
		Watch:    watchSvc,
	}, cfg, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	watchSvc.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runImport() {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	user := fs.String("user", defaultUser(), "name recorded as the importer")
	headerRow := fs.Int("header-row", 0, "1-based header row, used when the header cannot be found")
	descCol := fs.String("desc-col", "", "description column letter (A-Z) for manual import")
	qtyCol := fs.String("qty-col", "", "quantity column letter (A-Z) for manual import")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(reorderArgs(os.Args[2:]))

	if fs.NArg() < 1 {
		fmt.Println("Usage: prtrack import [flags] <file-or-directory>")
		os.Exit(1)
	}
	format := parseFormat(*outputFormat)
	path := fs.Arg(0)
	info, err := os.Stat(path)
	if err != nil {
		fail("Failed to stat path: %v", err)
	}

	cfg, logger, components := setup(*configPath, false, true)
	defer logger.Sync()
	defer components.Close()

	ctx := context.Background()
	caller := prparse.Caller{UserName: *user, Admin: true}
	if info.IsDir() {
		results, err := components.Ingestor.IngestDirectory(ctx, path, cfg.Watch.Extensions, caller)
		if err != nil {
			fail("Import failed: %v", err)
		}
		if err := cli.WriteFileResults(os.Stdout, results, format); err != nil {
			fail("Output failed: %v", err)
		}
		return
	}

	res, err := components.Ingestor.IngestFile(ctx, path, nil, caller)
	if err != nil {
		fail("Import failed: %v", err)
	}
	if res.Status == ingest.StatusNeedsManual {
		if *headerRow == 0 {
			p, perr := components.Ingestor.Pending(res.PendingID)
			if perr == nil {
				printPreview(os.Stderr, p.Preview())
			}
			fail("%s: %s\nRe-run with --header-row, --desc-col and --qty-col.", res.FileName, res.Message)
		}
		manual := prparse.ManualConfig{HeaderRow: *headerRow, DescColumn: *descCol, QtyColumn: *qtyCol}
		res, err = components.Ingestor.ApplyManual(ctx, res.PendingID, manual, caller)
		if err != nil {
			fail("Manual import failed: %v", err)
		}
	}
	if err := cli.WriteFileResults(os.Stdout, []ingest.FileResult{*res}, format); err != nil {
		fail("Output failed: %v", err)
	}
	if res.Status == ingest.StatusFailed {
		os.Exit(1)
	}
}

// printPreview writes the first rows of a sheet with spreadsheet row numbers and column
// letters so the operator can pick the header row and columns.
func printPreview(w io.Writer, g sheet.Grid) {
	cols := g.Width()
	if cols > previewColumns {
		cols = previewColumns
	}
	fmt.Fprint(w, "     ")
	for c := 0; c < cols; c++ {
		fmt.Fprintf(w, "%-18c", 'A'+c)
	}
	fmt.Fprintln(w)
	for r := 0; r < g.Rows(); r++ {
		fmt.Fprintf(w, "%4d ", r+1)
		for c := 0; c < cols; c++ {
			fmt.Fprintf(w, "%-18s", utils.Truncate(utils.OneLine(g.At(r, c).String()), 15))
		}
		fmt.Fprintln(w)
	}
}

func runList() {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	status := fs.String("status", "", "filter by status: in-progress or completed")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])
	format := parseFormat(*outputFormat)

	var filter models.ListFilter
	if *status != "" {
		st, ok := models.ParseStatus(*status)
		if !ok {
			fail("Unknown status %q", *status)
		}
		filter.Status = st
	}

	_, logger, components := setup(*configPath, false, false)
	defer logger.Sync()
	defer components.Close()

	list, err := components.Storage.ListRequisitions(context.Background(), filter)
	if err != nil {
		fail("List failed: %v", err)
	}
	if err := cli.WriteRequisitions(os.Stdout, list, format); err != nil {
		fail("Output failed: %v", err)
	}
}

func runShow() {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(reorderArgs(os.Args[2:]))
	if fs.NArg() < 1 {
		fmt.Println("Usage: prtrack show [flags] <requisition-id>")
		os.Exit(1)
	}
	format := parseFormat(*outputFormat)

	_, logger, components := setup(*configPath, false, false)
	defer logger.Sync()
	defer components.Close()

	pr, err := components.Storage.GetRequisition(context.Background(), fs.Arg(0))
	if err != nil {
		fail("Show failed: %v", err)
	}
	if err := cli.WriteRequisition(os.Stdout, pr, format); err != nil {
		fail("Output failed: %v", err)
	}
}

// printSearchUsage prints search subcommand usage.
func printSearchUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: prtrack search [flags] <query>\n\n")
	fmt.Fprintf(fs.Output(), "Query is all remaining arguments joined by spaces. Multi-word queries work with or without quotes.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
By default items are matched by case-insensitive substring of their description.
  • Use --ranked to score items with the keyword index (requisition names are boosted).
  • Use --fuzzy for typo tolerance (implies --ranked).

Examples:
  prtrack search bolt m8
  prtrack search --ranked "hex bolt"
  prtrack search --fuzzy wahser
`)
}

// buildSearchQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// reorderArgs moves any flags (and their values) that appear after the positional
// arguments to the front so that flag.Parse() sees them. Go's flag package stops at the
// first non-flag argument.
func reorderArgs(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = open the index directly when the server is not running)")
	user := fs.String("user", defaultUser(), "user name sent to the server")
	limit := fs.Int("limit", 0, "maximum number of items (0 = server default)")
	ranked := fs.Bool("ranked", false, "rank items with the keyword index")
	fuzzy := fs.Bool("fuzzy", false, "enable fuzzy matching for typo tolerance")
	outputFormat := fs.String("output", "text", "output format: text or json")
	fs.Usage = func() { printSearchUsage(fs) }
	_ = fs.Parse(reorderArgs(os.Args[2:]))

	queryStr := buildSearchQuery(fs.Args())
	if queryStr == "" {
		printSearchUsage(fs)
		os.Exit(1)
	}
	format := parseFormat(*outputFormat)
	query := &models.ItemSearchQuery{
		Query:        queryStr,
		Limit:        *limit,
		RankedSearch: *ranked,
		FuzzyEnabled: *fuzzy,
	}

	var response *models.ItemSearchResponse
	if *serverURL != "" {
		// The server holds the keyword index lock, so go through its API.
		var err error
		response, err = searchViaHTTP(*serverURL, *user, query)
		if err != nil {
			fail("Search failed: %v", err)
		}
	} else {
		_, logger, components := setup(*configPath, false, true)
		defer logger.Sync()
		defer components.Close()
		var err error
		response, err = components.Engine.Search(context.Background(), query)
		if err != nil {
			fail("Search failed: %v", err)
		}
	}
	if err := cli.WriteItemHits(os.Stdout, response, format); err != nil {
		fail("Output failed: %v", err)
	}
}

func searchQueryValues(q *models.ItemSearchQuery) url.Values {
	v := url.Values{}
	v.Set("q", q.Query)
	if q.RankedSearch {
		v.Set("ranked", "true")
	}
	if q.FuzzyEnabled {
		v.Set("fuzzy", "true")
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	return v
}

func searchViaHTTP(serverURL, user string, query *models.ItemSearchQuery) (*models.ItemSearchResponse, error) {
	var response models.ItemSearchResponse
	if err := apiGet(serverURL, "/api/v1/items/search?"+searchQueryValues(query).Encode(), user, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// apiGet performs an identified GET against the server API and decodes the JSON body.
func apiGet(serverURL, path, user string, out interface{}) error {
	req, err := http.NewRequest(http.MethodGet, strings.TrimRight(serverURL, "/")+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("X-User-Name", user)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// mutateRequisition loads a requisition, applies fn on behalf of user and stores it.
func mutateRequisition(configPath, user, id string, fn func(*models.PurchaseRequisition, models.LastModified) error) *models.PurchaseRequisition {
	_, logger, components := setup(configPath, false, false)
	defer logger.Sync()
	defer components.Close()

	ctx := context.Background()
	pr, err := components.Storage.GetRequisition(ctx, id)
	if err != nil {
		fail("Load requisition failed: %v", err)
	}
	by := models.LastModified{UserName: user, Timestamp: time.Now()}
	if err := fn(pr, by); err != nil {
		fail("Update failed: %v", err)
	}
	if err := components.Storage.UpdateRequisition(ctx, pr); err != nil {
		fail("Save failed: %v", err)
	}
	return pr
}

// itemUpdateFromFlags builds an ItemUpdate from the receive flags that were set.
func itemUpdateFromFlags(fs *flag.FlagSet, qty float64, comment string, complete, reopen bool) (receipt.ItemUpdate, error) {
	var upd receipt.ItemUpdate
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if set["qty"] {
		upd.ReceivedQuantity = &qty
	}
	if set["comment"] {
		upd.Comment = &comment
	}
	switch {
	case complete && reopen:
		return upd, errors.New("--complete and --reopen are mutually exclusive")
	case complete:
		upd.Complete = &complete
	case reopen:
		f := false
		upd.Complete = &f
	}
	if upd.ReceivedQuantity == nil && upd.Comment == nil && upd.Complete == nil {
		return upd, errors.New("nothing to update: set --qty, --comment, --complete or --reopen")
	}
	return upd, nil
}

func runReceive() {
	fs := flag.NewFlagSet("receive", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	user := fs.String("user", defaultUser(), "name recorded as the last modifier")
	qty := fs.Float64("qty", 0, "total quantity received so far")
	comment := fs.String("comment", "", "item comment")
	complete := fs.Bool("complete", false, "mark the item received in full")
	reopen := fs.Bool("reopen", false, "reopen a completed item")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(reorderArgs(os.Args[2:]))
	if fs.NArg() < 2 {
		fmt.Println("Usage: prtrack receive [flags] <requisition-id> <item-id>")
		os.Exit(1)
	}
	format := parseFormat(*outputFormat)
	upd, err := itemUpdateFromFlags(fs, *qty, *comment, *complete, *reopen)
	if err != nil {
		fail("%v", err)
	}
	itemID := fs.Arg(1)
	pr := mutateRequisition(*configPath, *user, fs.Arg(0), func(pr *models.PurchaseRequisition, by models.LastModified) error {
		return receipt.UpdateItem(pr, itemID, upd, by)
	})
	if err := cli.WriteRequisition(os.Stdout, pr, format); err != nil {
		fail("Output failed: %v", err)
	}
}

func runReceiveAll() {
	runWholeRequisition("receive-all", func(pr *models.PurchaseRequisition, by models.LastModified) error {
		receipt.ReceiveAll(pr, by)
		return nil
	})
}

func runReopen() {
	runWholeRequisition("reopen", func(pr *models.PurchaseRequisition, by models.LastModified) error {
		receipt.Reopen(pr, by)
		return nil
	})
}

func runWholeRequisition(name string, fn func(*models.PurchaseRequisition, models.LastModified) error) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	user := fs.String("user", defaultUser(), "name recorded as the last modifier")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(reorderArgs(os.Args[2:]))
	if fs.NArg() < 1 {
		fmt.Printf("Usage: prtrack %s [flags] <requisition-id>\n", name)
		os.Exit(1)
	}
	format := parseFormat(*outputFormat)
	pr := mutateRequisition(*configPath, *user, fs.Arg(0), fn)
	if err := cli.WriteRequisition(os.Stdout, pr, format); err != nil {
		fail("Output failed: %v", err)
	}
}

func runDelete() {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(reorderArgs(os.Args[2:]))

	if fs.NArg() < 1 {
		fmt.Println("Usage: prtrack delete [flags] <requisition-id>...")
		os.Exit(1)
	}

	_, logger, components := setup(*configPath, false, true)
	defer logger.Sync()
	defer components.Close()

	n, err := components.Ingestor.DeleteRequisitions(context.Background(), fs.Args())
	if err != nil {
		fail("Deletion failed: %v", err)
	}
	fmt.Printf("Deleted %d of %d requisition(s)\n", n, fs.NArg())
}

// reportFilter builds a report filter from YYYY-MM-DD bounds and a comma-separated status list.
// Empty bounds keep the default window of days ending at now.
func reportFilter(now time.Time, days int, from, to, statuses string) (report.Filter, error) {
	f := report.DefaultFilter(now, days)
	if from != "" {
		t, err := time.ParseInLocation(queryDateLayout, from, time.Local)
		if err != nil {
			return f, fmt.Errorf("--from must be YYYY-MM-DD")
		}
		f.From = t
	}
	if to != "" {
		t, err := time.ParseInLocation(queryDateLayout, to, time.Local)
		if err != nil {
			return f, fmt.Errorf("--to must be YYYY-MM-DD")
		}
		f.To = t
	}
	if f.To.Before(f.From) {
		return f, fmt.Errorf("--from must not be after --to")
	}
	if statuses != "" {
		for _, part := range strings.Split(statuses, ",") {
			st, ok := models.ParseStatus(part)
			if !ok {
				return f, fmt.Errorf("unknown status %q", part)
			}
			f.Statuses = append(f.Statuses, st)
		}
	}
	return f, nil
}

func runReport() {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	from := fs.String("from", "", "first issue date to include (YYYY-MM-DD)")
	to := fs.String("to", "", "last issue date to include (YYYY-MM-DD)")
	days := fs.Int("days", 0, "window in days ending today when --from is unset (0 = config default)")
	status := fs.String("status", "", "comma-separated statuses to include")
	xlsxPath := fs.String("xlsx", "", "write the report workbook to this path")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])
	format := parseFormat(*outputFormat)

	cfg, logger, components := setup(*configPath, false, false)
	defer logger.Sync()
	defer components.Close()

	window := cfg.Report.DefaultDays
	if *days > 0 {
		window = *days
	}
	f, err := reportFilter(time.Now(), window, *from, *to, *status)
	if err != nil {
		fail("%v", err)
	}
	prs, err := components.Storage.AllRequisitions(context.Background())
	if err != nil {
		fail("Load requisitions failed: %v", err)
	}
	rep := components.Reports.Build(prs, f)

	if *xlsxPath != "" {
		path := *xlsxPath
		if info, statErr := os.Stat(path); statErr == nil && info.IsDir() {
			path = filepath.Join(path, rep.FileName())
		}
		out, err := os.Create(path)
		if err != nil {
			fail("Create report file failed: %v", err)
		}
		if err := rep.WriteXLSX(out); err != nil {
			_ = out.Close()
			fail("Write report failed: %v", err)
		}
		if err := out.Close(); err != nil {
			fail("Write report failed: %v", err)
		}
		fmt.Fprintf(os.Stderr, "Report written to %s\n", path)
	}
	if err := cli.WriteReport(os.Stdout, rep, format); err != nil {
		fail("Output failed: %v", err)
	}
}

// statusResponse is the shape of the GET /api/v1/status response.
type statusResponse struct {
	Requisitions   int64                  `json:"requisitions"`
	Items          int64                  `json:"items"`
	Pending        int                    `json:"pending"`
	IndexedItems   *uint64                `json:"indexed_items,omitempty"`
	DiskUsageBytes *int64                 `json:"disk_usage_bytes,omitempty"`
	Config         map[string]interface{} `json:"config,omitempty"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = use direct storage)")
	user := fs.String("user", defaultUser(), "user name sent to the server")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])
	format := parseFormat(*outputFormat)

	var status statusResponse
	if *serverURL != "" {
		if err := apiGet(*serverURL, "/api/v1/status", *user, &status); err != nil {
			fail("Status failed: %v", err)
		}
	} else {
		cfg, logger, components := setup(*configPath, false, true)
		defer logger.Sync()
		defer components.Close()
		ctx := context.Background()
		prCount, err := components.Storage.CountRequisitions(ctx)
		if err != nil {
			fail("Count requisitions failed: %v", err)
		}
		itemCount, err := components.Storage.CountItems(ctx)
		if err != nil {
			fail("Count items failed: %v", err)
		}
		status = statusResponse{
			Requisitions: prCount,
			Items:        itemCount,
			Config: map[string]interface{}{
				"database_path":      cfg.Storage.DatabasePath,
				"keyword_index_path": cfg.Storage.KeywordIndexPath,
				"locale_date_layout": cfg.Parse.LocaleDateLayout,
			},
		}
		if n, err := components.KeywordIndex.DocCount(); err == nil {
			status.IndexedItems = &n
		}
		if fp, err := storage.DataFootprint(cfg.Storage.DatabasePath, cfg.Storage.KeywordIndexPath); err == nil {
			total := fp.Total()
			status.DiskUsageBytes = &total
		}
	}

	if format == cli.OutputJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fail("Output failed: %v", err)
		}
		return
	}
	fmt.Printf("requisitions:       %d\n", status.Requisitions)
	fmt.Printf("items:              %d\n", status.Items)
	fmt.Printf("pending_manual:     %d   # uploads waiting for header selection\n", status.Pending)
	if status.IndexedItems != nil {
		fmt.Printf("indexed_items:      %d   # items in the keyword index\n", *status.IndexedItems)
	}
	if status.DiskUsageBytes != nil {
		fmt.Printf("disk_usage_bytes:   %d   # database + index on disk\n", *status.DiskUsageBytes)
	}
	if len(status.Config) > 0 {
		fmt.Println()
		fmt.Println("# configuration")
		for _, key := range []string{"database_path", "keyword_index_path", "locale_date_layout"} {
			if v, ok := status.Config[key]; ok && v != "" {
				fmt.Printf("%-19s %v\n", key+":", v)
			}
		}
	}
}

func runWatch() {
	if len(os.Args) < 3 || os.Args[2] != "list" {
		fmt.Println("Usage: prtrack watch list [--server URL]")
		fmt.Println("  Inbox directories are configured under watch.directories in the config file.")
		os.Exit(1)
	}
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	user := fs.String("user", defaultUser(), "user name sent to the server")
	_ = fs.Parse(os.Args[3:])

	var out struct {
		Directories []string `json:"directories"`
	}
	if err := apiGet(*serverURL, "/api/v1/watch/directories", *user, &out); err != nil {
		fail("List failed: %v", err)
	}
	for _, d := range out.Directories {
		fmt.Println(d)
	}
}

// Components holds initialized services.
type Components struct {
	Storage      storage.Storage
	KeywordIndex keyword.ItemIndex
	Engine       *search.Engine
	Ingestor     *ingest.Ingestor
	Reports      *report.Builder
}

func (c *Components) Close() {
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
	if c.KeywordIndex != nil {
		_ = c.KeywordIndex.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger, withIndex bool) (*Components, error) {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	c := &Components{Storage: store}

	if withIndex {
		idx, err := keyword.NewBleveIndex(cfg.Storage.KeywordIndexPath)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to initialize keyword index: %w", err)
		}
		c.KeywordIndex = idx
		c.Engine = search.NewEngine(store, idx,
			search.WithNameBoost(cfg.Search.NameBoost),
			search.WithLimits(cfg.Search.DefaultLimit, cfg.Search.MaxLimit),
		)
	}

	parser := prparse.NewParser(
		prparse.WithMetadataWindow(cfg.Parse.MetadataWindow),
		prparse.WithDateLayouts(cfg.Parse.DateLayouts),
		prparse.WithDisplayLayout(cfg.Parse.LocaleDateLayout),
	)
	decoder := decode.NewDecoder(decode.WithXLSCharset(cfg.Parse.XLSCharset))
	c.Ingestor = ingest.NewIngestor(store, c.KeywordIndex, decoder, parser, ingest.WithLogger(logger))
	c.Reports = report.NewBuilder([]string{cfg.Parse.LocaleDateLayout}, nil)
	return c, nil
}

func printUsage() {
	fmt.Println(`prtrack - Purchase requisition tracker

Usage:
  prtrack server [flags]                       Start the HTTP server and inbox watcher
  prtrack import [flags] <file-or-dir>         Import requisition spreadsheets
  prtrack list [flags]                         List requisitions
  prtrack show [flags] <id>                    Show a requisition and its items
  prtrack search [flags] <query>               Search line items across requisitions
  prtrack receive [flags] <id> <item-id>       Record a receipt for one item
  prtrack receive-all [flags] <id>             Mark every item received in full
  prtrack reopen [flags] <id>                  Reopen every item of a requisition
  prtrack delete [flags] <id>...               Delete requisitions
  prtrack report [flags]                       Status report (text, json or xlsx)
  prtrack status [flags]                       Show storage/index status
  prtrack watch list                           List watched inbox directories
  prtrack version                              Show version
  prtrack help                                 Show this help

Common Flags:
  --config string    Config file path (default: /usr/local/etc/prtrack/config.yaml)
  --user string      Name recorded on changes (default: $PRTRACK_USER or $USER)
  --output string    Output format: text or json (default: text)

Import Flags:
  --header-row int   1-based header row when the header cannot be found
  --desc-col string  Description column letter
  --qty-col string   Quantity column letter

Receive Flags:
  --qty float        Total quantity received so far
  --comment string   Item comment
  --complete         Mark the item received in full
  --reopen           Reopen a completed item

Search Flags:
  --server string    Server URL (default: http://localhost:8080). Use --server "" to open the index directly.
  --limit int        Maximum number of items
  --ranked           Rank with the keyword index
  --fuzzy            Typo-tolerant matching (implies --ranked)

Report Flags:
  --from, --to       Issue date bounds (YYYY-MM-DD)
  --days int         Window ending today when --from is unset
  --status string    Comma-separated statuses (in-progress, completed)
  --xlsx string      Also write the workbook to this path

Examples:
  prtrack server
  prtrack import ~/Downloads/PR-2024-001.xlsx
  prtrack import --header-row 5 --desc-col B --qty-col D odd-layout.csv
  prtrack search --fuzzy "hex bolt"
  prtrack receive --qty 4 <id> <item-id>
  prtrack report --from 2024-01-01 --to 2024-03-31 --xlsx .`)
}
