package crawl

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jimezsa/jobcrawl/internal/browser"
	"github.com/jimezsa/jobcrawl/internal/models"
	"github.com/rs/zerolog"
)

// State is the lifecycle position of an Orchestrator.
type State int32

const (
	StateIdle State = iota
	StateAwaitingGate
	StateRunning
	StateCompleted
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingGate:
		return "awaiting_gate"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Gate blocks until an operator confirms the browser is ready.
type Gate interface {
	Wait(ctx context.Context) error
}

// Sink persists records in the order they are handed over.
type Sink interface {
	Write(record models.JobRecord) error
	Close() error
}

// Summary reports what a run produced.
type Summary struct {
	Pages       int
	FailedPages int
	Records     int
	Skipped     int
	Failed      int
	Duration    time.Duration
}

// Options configures an Orchestrator.
type Options struct {
	Site    Site
	Timing  Timing
	Gate    Gate
	Logger  zerolog.Logger
	Metrics *Metrics
	// Linger, when set, is waited on after the last page and before the
	// session is released, so the operator can inspect the browser.
	Linger Gate
	// OnPage is called after each results page.
	OnPage func(PageOutcome)
}

// Orchestrator owns one session and one sink for a single run.
type Orchestrator struct {
	session browser.Session
	sink    Sink
	opts    Options
	state   atomic.Int32
}

func NewOrchestrator(session browser.Session, sink Sink, opts Options) *Orchestrator {
	if opts.Gate == nil {
		opts.Gate = NoGate{}
	}
	return &Orchestrator{session: session, sink: sink, opts: opts}
}

func (o *Orchestrator) State() State {
	return State(o.state.Load())
}

func (o *Orchestrator) setState(s State) {
	prev := State(o.state.Swap(int32(s)))
	o.opts.Logger.Debug().Str("from", prev.String()).Str("to", s.String()).Msg("crawl state")
}

// Run executes spec end to end. Records are written to the sink as they are
// produced. The sink is closed and the session released on every path; a
// session-fatal error moves the run to Aborted and is returned.
func (o *Orchestrator) Run(ctx context.Context, spec models.SearchSpec) (summary Summary, err error) {
	if !o.state.CompareAndSwap(int32(StateIdle), int32(StateAwaitingGate)) {
		return summary, fmt.Errorf("crawl already %s", o.State())
	}
	started := time.Now()
	log := o.opts.Logger

	defer func() {
		summary.Duration = time.Since(started)
		if cerr := o.sink.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("close output: %w", cerr))
		}
		if cerr := o.session.Close(); cerr != nil {
			log.Warn().Err(cerr).Msg("browser close failed")
		}
		if err != nil && o.State() != StateCompleted {
			o.setState(StateAborted)
		}
	}()

	if err := spec.Validate(); err != nil {
		return summary, err
	}

	pages := spec.Pages()
	first := o.opts.Site.SearchURL(spec, pages[0])
	log.Info().Str("url", first).Msg("opening first results page")
	if err := o.session.Navigate(ctx, first); err != nil {
		if browser.IsFatal(err) {
			return summary, fmt.Errorf("open first page: %w", err)
		}
		log.Warn().Err(err).Msg("first results page did not load; continue in the browser")
	}

	if err := o.opts.Gate.Wait(ctx); err != nil {
		return summary, fmt.Errorf("wait for operator: %w", err)
	}

	o.setState(StateRunning)
	crawler := NewPageCrawler(o.session, o.opts.Site, o.opts.Timing, spec, log, o.opts.Metrics)

	yield := func(outcome CardOutcome) error {
		switch outcome.Status {
		case StatusOK:
			if err := o.sink.Write(outcome.Record); err != nil {
				return SinkError{Err: err}
			}
			o.opts.Metrics.IncRecords()
			summary.Records++
		case StatusSkipped:
			summary.Skipped++
		case StatusFailed:
			summary.Failed++
		}
		return nil
	}

	for _, page := range pages {
		out, err := crawler.Crawl(ctx, page, yield)
		summary.Pages++
		if out.Err != nil {
			summary.FailedPages++
		}
		if o.opts.OnPage != nil {
			o.opts.OnPage(out)
		}
		if err != nil {
			log.Error().Err(err).Int("page", page.PageIndex).Str("reason", reasonLabel(err)).Msg("crawl aborted")
			return summary, err
		}
	}

	o.setState(StateCompleted)
	log.Info().
		Int("records", summary.Records).
		Int("skipped", summary.Skipped).
		Int("failed", summary.Failed).
		Int("failed_pages", summary.FailedPages).
		Msg("crawl completed")

	if o.opts.Linger != nil {
		if err := o.opts.Linger.Wait(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Warn().Err(err).Msg("linger gate failed")
		}
	}
	return summary, nil
}

// NoGate never blocks.
type NoGate struct{}

func (NoGate) Wait(ctx context.Context) error {
	return ctx.Err()
}
