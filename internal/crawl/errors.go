package crawl

import (
	"context"
	"errors"
	"fmt"

	"github.com/jimezsa/jobcrawl/internal/browser"
)

// PageError is a page-fatal failure: the page contributes no records.
type PageError struct {
	Page int
	URL  string
	Err  error
}

func (e PageError) Error() string {
	return fmt.Errorf("page %d: %w", e.Page, e.Err).Error()
}

func (e PageError) Unwrap() error {
	return e.Err
}

// CardError is a card-fatal failure at one logical position.
type CardError struct {
	Page     int
	Position int
	Stage    string
	Err      error
}

func (e CardError) Error() string {
	return fmt.Errorf("page %d card %d: %s: %w", e.Page, e.Position, e.Stage, e.Err).Error()
}

func (e CardError) Unwrap() error {
	return e.Err
}

// SinkError wraps a failure to persist a record. It always ends the run.
type SinkError struct {
	Err error
}

func (e SinkError) Error() string {
	return fmt.Errorf("write record: %w", e.Err).Error()
}

func (e SinkError) Unwrap() error {
	return e.Err
}

// reasonLabel classifies an error for metrics and log fields.
func reasonLabel(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, browser.ErrSessionLost):
		return "session_lost"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, browser.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, browser.ErrStale):
		return "stale"
	case errors.Is(err, browser.ErrNotFound):
		return "not_found"
	}
	var sinkErr SinkError
	if errors.As(err, &sinkErr) {
		return "sink"
	}
	return "other"
}

// IsSinkFailure reports whether err came from persisting a record.
func IsSinkFailure(err error) bool {
	var sinkErr SinkError
	return errors.As(err, &sinkErr)
}
