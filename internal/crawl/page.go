package crawl

import (
	"context"
	"time"

	"github.com/jimezsa/jobcrawl/internal/browser"
	"github.com/jimezsa/jobcrawl/internal/models"
	"github.com/rs/zerolog"
)

// Status is the result kind of one card position.
type Status int

const (
	StatusOK Status = iota
	StatusSkipped
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// CardOutcome is the typed result of one logical position: a record, a skip
// with its reason, or a failure with its cause.
type CardOutcome struct {
	Page     int
	Position int
	Status   Status
	Record   models.JobRecord
	Reason   string
	Err      error
}

// PageOutcome summarizes one results page. Err is set when the page was
// page-fatal and contributed no records.
type PageOutcome struct {
	Page    models.PageRequest
	URL     string
	Cards   int
	Records int
	Skipped int
	Failed  int
	Err     error
}

// PageCrawler drives one results page at a time against a session. It is the
// only component that navigates, scrolls or clicks.
type PageCrawler struct {
	session   browser.Session
	site      Site
	timing    Timing
	spec      models.SearchSpec
	extractor Extractor
	urls      URLResolver
	logger    zerolog.Logger
	metrics   *Metrics

	last    uint64
	hasLast bool
}

func NewPageCrawler(session browser.Session, site Site, timing Timing, spec models.SearchSpec, logger zerolog.Logger, metrics *Metrics) *PageCrawler {
	return &PageCrawler{
		session:   session,
		site:      site,
		timing:    timing,
		spec:      spec,
		extractor: Extractor{Fields: site.Fields},
		urls:      URLResolver{Site: site},
		logger:    logger,
		metrics:   metrics,
	}
}

// Crawl visits one results page and hands every card outcome to yield in
// position order. Page-fatal conditions are reported in PageOutcome.Err; the
// returned error is reserved for session-fatal failures and errors from yield.
func (c *PageCrawler) Crawl(ctx context.Context, page models.PageRequest, yield func(CardOutcome) error) (PageOutcome, error) {
	target := c.site.SearchURL(c.spec, page)
	out := PageOutcome{Page: page, URL: target}
	log := c.logger.With().Int("page", page.PageIndex).Str("url", target).Logger()
	c.hasLast = false

	count, err := c.open(ctx, target)
	if err != nil {
		if browser.IsFatal(err) {
			c.metrics.IncPage("aborted")
			return out, err
		}
		out.Err = PageError{Page: page.PageIndex, URL: target, Err: err}
		c.metrics.IncPage("failed")
		log.Warn().Err(err).Str("reason", reasonLabel(err)).Msg("results page did not render, moving on")
		return out, nil
	}
	out.Cards = count
	log.Info().Int("cards", count).Msg("results page ready")

	for position := 0; position < count; position++ {
		outcome, err := c.crawlCard(ctx, page.PageIndex, position)
		if err != nil {
			c.metrics.IncPage("aborted")
			return out, err
		}
		switch outcome.Status {
		case StatusOK:
			out.Records++
		case StatusSkipped:
			out.Skipped++
		case StatusFailed:
			out.Failed++
		}
		if err := yield(outcome); err != nil {
			c.metrics.IncPage("aborted")
			return out, err
		}
	}

	c.metrics.IncPage("ok")
	return out, nil
}

// open navigates and returns the card count snapshot that bounds iteration.
func (c *PageCrawler) open(ctx context.Context, target string) (int, error) {
	if err := c.session.Navigate(ctx, target); err != nil {
		return 0, err
	}
	if _, err := c.session.WaitUntilAllPresent(ctx, c.site.CardSelector, c.timing.List); err != nil {
		return 0, err
	}
	if err := sleep(ctx, c.timing.ListSettle); err != nil {
		return 0, err
	}
	cards, err := c.session.QueryAll(ctx, c.site.CardSelector)
	if err != nil {
		return 0, err
	}
	if len(cards) == 0 {
		return 0, browser.ErrNotFound
	}
	return len(cards), nil
}

// crawlCard runs one activation cycle. Every non-fatal error is turned into a
// Failed outcome here, so nothing from one card reaches the next.
func (c *PageCrawler) crawlCard(ctx context.Context, page, position int) (CardOutcome, error) {
	started := time.Now()
	defer func() { c.metrics.ObserveCard(time.Since(started)) }()

	log := c.logger.With().Int("page", page).Int("position", position).Logger()
	outcome := CardOutcome{Page: page, Position: position}

	fail := func(stage string, err error) (CardOutcome, error) {
		if browser.IsFatal(err) {
			c.metrics.IncCard(StatusFailed.String(), reasonLabel(err))
			return outcome, err
		}
		reason := reasonLabel(err)
		outcome.Status = StatusFailed
		outcome.Reason = stage
		outcome.Err = CardError{Page: page, Position: position, Stage: stage, Err: err}
		c.metrics.IncCard(StatusFailed.String(), reason)
		log.Warn().Err(err).Str("stage", stage).Str("reason", reason).Msg("card failed, continuing")
		return outcome, nil
	}

	card, ok, err := ResolveCard(ctx, c.session, c.site.CardSelector, position)
	if err != nil {
		return fail("resolve", err)
	}
	if !ok {
		outcome.Status = StatusSkipped
		outcome.Reason = "position unavailable"
		c.metrics.IncCard(StatusSkipped.String(), "unavailable")
		log.Info().Msg("card no longer present, skipping")
		return outcome, nil
	}

	if err := c.session.ScrollIntoView(ctx, card); err != nil {
		return fail("scroll", err)
	}
	if err := sleep(ctx, c.timing.ScrollSettle); err != nil {
		return fail("scroll", err)
	}
	if err := c.session.Activate(ctx, card); err != nil {
		return fail("activate", err)
	}
	if err := sleep(ctx, c.timing.ClickSettle); err != nil {
		return fail("activate", err)
	}

	if _, err := c.session.WaitUntilPresent(ctx, c.site.PaneSelector, c.timing.Detail); err != nil {
		return fail("detail pane", err)
	}
	if _, err := c.session.WaitUntilPresent(ctx, c.site.ReadySelector, c.timing.Content); err != nil {
		return fail("detail content", err)
	}
	content, fp, err := c.awaitChange(ctx, log)
	if err != nil {
		return fail("detail content", err)
	}

	record, err := c.extractor.Extract(ctx, content)
	if err != nil {
		return fail("extract", err)
	}

	// The activation may have re-rendered the list; resolve the position
	// again instead of reusing the clicked handle.
	if card, ok, err = ResolveCard(ctx, c.session, c.site.CardSelector, position); err != nil {
		if browser.IsFatal(err) {
			return fail("url", err)
		}
	} else if ok {
		url, err := c.urls.Resolve(ctx, card)
		if err != nil {
			return fail("url", err)
		}
		record.URL = url
	}

	c.last, c.hasLast = fp, true
	for _, name := range models.RecordFields {
		if record.Get(name) == nil {
			c.metrics.IncNullField(name)
		}
	}

	outcome.Status = StatusOK
	outcome.Record = record
	c.metrics.IncCard(StatusOK.String(), "none")
	log.Debug().Str("title", models.Value(record.Title)).Msg("card extracted")
	return outcome, nil
}

// awaitChange polls the detail content until it shows a listing other than
// the one extracted last, bounded by Timing.Change. When the bound expires the
// current content is used as is.
func (c *PageCrawler) awaitChange(ctx context.Context, log zerolog.Logger) (browser.Element, uint64, error) {
	deadline := time.Now().Add(c.timing.Change)
	var lastErr error
	for {
		content, err := c.session.Query(ctx, c.site.ContentSelector)
		if err == nil {
			var text string
			text, err = content.Text(ctx)
			if err == nil {
				fp := fingerprint(text)
				if !c.hasLast || fp != c.last {
					return content, fp, nil
				}
				if !time.Now().Before(deadline) {
					log.Debug().Msg("detail content unchanged after activation, extracting anyway")
					return content, fp, nil
				}
			}
		}
		if err != nil {
			if browser.IsFatal(err) {
				return nil, 0, err
			}
			lastErr = err
			if !time.Now().Before(deadline) {
				return nil, 0, lastErr
			}
		}
		if err := sleep(ctx, c.timing.Poll); err != nil {
			return nil, 0, err
		}
	}
}
