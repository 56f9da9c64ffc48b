package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/jimezsa/jobcrawl/internal/browser"
	"github.com/jimezsa/jobcrawl/internal/config"
	"github.com/jimezsa/jobcrawl/internal/crawl"
	"github.com/jimezsa/jobcrawl/internal/export"
	"github.com/jimezsa/jobcrawl/internal/gate"
	"github.com/jimezsa/jobcrawl/internal/models"
)

type CrawlCmd struct {
	Query     string `arg:"" help:"Search query."`
	Location  string `help:"Job location."`
	Country   string `help:"Country code; selects the Indeed host (us, de, uk, ...)."`
	Pages     int    `help:"Number of result pages to crawl."`
	StartPage int    `name:"start-page" help:"Zero-based result page to start from."`

	Output      string `name:"output" short:"o" help:"NDJSON output path ('-' for stdout). Defaults to <output_dir>/<query>.jsonl."`
	Append      bool   `help:"Append to the output file instead of replacing it."`
	MetricsFile string `name:"metrics-file" help:"Write Prometheus text metrics to this file after the run."`

	Driver      string `help:"Browser driver: chromedp, rod, static." enum:",chromedp,rod,static" default:""`
	Fixtures    string `help:"Directory of saved result pages (start-<offset>.html) for the static driver."`
	Headless    bool   `help:"Run the browser without a window."`
	UserDataDir string `name:"user-data-dir" help:"Browser profile directory to reuse cookies and logins."`
	ChromePath  string `name:"chrome-path" help:"Browser executable."`

	NoGate        bool   `name:"no-gate" help:"Start crawling without waiting for ENTER."`
	KeepOpen      bool   `name:"keep-open" help:"Keep the browser open after the crawl until ENTER is pressed."`
	ListTimeout   string `name:"list-timeout" help:"Wait for job cards on each results page (e.g. 20s)."`
	DetailTimeout string `name:"detail-timeout" help:"Wait for the detail pane after a click (e.g. 10s)."`
}

// crawlPlan is a CrawlCmd resolved against the config.
type crawlPlan struct {
	spec        models.SearchSpec
	country     string
	driver      string
	session     models.SessionConfig
	timing      crawl.Timing
	output      string
	append      bool
	metricsFile string
}

func (c *CrawlCmd) Run(ctx *Context) error {
	plan, err := c.plan(ctx.Config)
	if err != nil {
		return err
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := ctx.Logger.With().Str("run_id", ctx.RunID).Logger()
	logger.Info().
		Str("query", plan.spec.Query).
		Str("location", plan.spec.Location).
		Int("pages", plan.spec.PageCount).
		Int("start_page", plan.spec.StartPage).
		Str("driver", plan.driver).
		Str("output", plan.output).
		Msg("starting crawl")

	sink, err := openSink(ctx, plan)
	if err != nil {
		return err
	}

	session, err := browser.Open(runCtx, plan.driver, plan.session)
	if err != nil {
		sink.Close()
		return fmt.Errorf("open %s browser: %w", plan.driver, err)
	}

	opts := crawl.Options{
		Site:    crawl.Indeed(plan.country),
		Timing:  plan.timing,
		Logger:  logger,
		Metrics: crawl.NewMetrics(),
		OnPage:  func(out crawl.PageOutcome) { reportPage(ctx, out) },
	}
	console := gate.NewConsole(ctx.input(), ctx.UI)
	if !c.NoGate {
		opts.Gate = gate.Manual(console)
	}
	if c.KeepOpen {
		opts.Linger = gate.Linger(console)
	}

	summary, runErr := crawl.NewOrchestrator(session, sink, opts).Run(runCtx, plan.spec)

	printCrawlSummary(ctx, summary)
	if plan.metricsFile != "" {
		if err := opts.Metrics.WriteTextfile(plan.metricsFile); err != nil {
			logger.Warn().Err(err).Str("path", plan.metricsFile).Msg("metrics not written")
		}
	}
	if runErr != nil {
		return runErr
	}
	if plan.output != "-" && ctx.UI != nil {
		ctx.UI.Successf("Wrote %d records to %s", summary.Records, plan.output)
	}
	return nil
}

func (c *CrawlCmd) plan(cfg config.Config) (crawlPlan, error) {
	plan := crawlPlan{
		spec: models.SearchSpec{
			Query:     strings.TrimSpace(c.Query),
			Location:  strings.TrimSpace(firstNonEmpty(c.Location, cfg.DefaultLocation)),
			PageCount: defaultInt(c.Pages, cfg.DefaultPages),
			StartPage: c.StartPage,
		},
		country:     firstNonEmpty(c.Country, cfg.DefaultCountry),
		driver:      browser.NormalizeDriver(firstNonEmpty(c.Driver, cfg.Driver)),
		append:      c.Append,
		metricsFile: strings.TrimSpace(c.MetricsFile),
		session: models.SessionConfig{
			Headless:    c.Headless || cfg.Headless,
			UserDataDir: firstNonEmpty(c.UserDataDir, cfg.UserDataDir),
			ChromePath:  firstNonEmpty(c.ChromePath, cfg.ChromePath),
			UserAgent:   cfg.UserAgent,
			Fixtures:    strings.TrimSpace(c.Fixtures),
		},
	}
	if err := plan.spec.Validate(); err != nil {
		return plan, err
	}
	if plan.driver == browser.DriverStatic && plan.session.Fixtures == "" {
		return plan, fmt.Errorf("--driver static requires --fixtures")
	}

	timing, err := resolveTiming(cfg, c.ListTimeout, c.DetailTimeout)
	if err != nil {
		return plan, err
	}
	if plan.driver == browser.DriverStatic {
		// Replayed pages render synchronously.
		timing.ListSettle, timing.ScrollSettle, timing.ClickSettle = 0, 0, 0
	}
	plan.timing = timing

	plan.output = strings.TrimSpace(c.Output)
	if plan.output == "" {
		plan.output = filepath.Join(cfg.OutputDir, outputSlug(plan.spec)+".jsonl")
	}
	if plan.metricsFile != "" && plan.output != "-" && pathsEqual(plan.metricsFile, plan.output) {
		return plan, fmt.Errorf("--metrics-file path must differ from --output")
	}
	return plan, nil
}

func resolveTiming(cfg config.Config, listFlag, detailFlag string) (crawl.Timing, error) {
	timing := crawl.DefaultTiming()
	for _, t := range []struct {
		name  string
		value string
		dst   *time.Duration
	}{
		{"--list-timeout", firstNonEmpty(listFlag, cfg.ListTimeout), &timing.List},
		{"--detail-timeout", firstNonEmpty(detailFlag, cfg.DetailTimeout), &timing.Detail},
		{"content_timeout", cfg.ContentTimeout, &timing.Content},
	} {
		if strings.TrimSpace(t.value) == "" {
			continue
		}
		d, err := config.ParseTimeout(t.value)
		if err != nil {
			return timing, fmt.Errorf("invalid %s: %w", t.name, err)
		}
		*t.dst = d
	}
	return timing, nil
}

func openSink(ctx *Context, plan crawlPlan) (*export.RecordWriter, error) {
	if plan.output == "-" {
		return export.NewRecordWriter(ctx.Out), nil
	}
	sink, err := export.OpenRecordWriter(plan.output, plan.append)
	if err != nil {
		return nil, fmt.Errorf("open --output: %w", err)
	}
	return sink, nil
}

// outputSlug turns query and location into a file name stem.
func outputSlug(spec models.SearchSpec) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(spec.Query + " " + spec.Location) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimRight(b.String(), "-")
	if slug == "" {
		return "jobs"
	}
	return slug
}

func reportPage(ctx *Context, out crawl.PageOutcome) {
	if ctx == nil || ctx.UI == nil || ctx.JSONOutput {
		return
	}
	if out.Err != nil {
		ctx.UI.Warnf("page %d: skipped (%v)", out.Page.PageIndex, out.Err)
		return
	}
	ctx.UI.Statusf("page %d: %d cards, %d records, %d skipped, %d failed",
		out.Page.PageIndex, out.Cards, out.Records, out.Skipped, out.Failed)
}

func printCrawlSummary(ctx *Context, summary crawl.Summary) {
	if ctx == nil || ctx.Err == nil {
		return
	}
	_, _ = fmt.Fprintf(ctx.Err, "%s\n", formatCrawlSummary(summary))
}

func formatCrawlSummary(summary crawl.Summary) string {
	return fmt.Sprintf("summary: records=%d skipped=%d failed=%d failed_pages=%d",
		summary.Records, summary.Skipped, summary.Failed, summary.FailedPages)
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

func defaultInt(value, fallback int) int {
	if value == 0 {
		return fallback
	}
	return value
}

func pathsEqual(a, b string) bool {
	if strings.TrimSpace(a) == "" || strings.TrimSpace(b) == "" {
		return false
	}
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA == nil && errB == nil {
		return absA == absB
	}
	return filepath.Clean(a) == filepath.Clean(b)
}
