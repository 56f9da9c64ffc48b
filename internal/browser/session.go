package browser

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a query matches no element.
	ErrNotFound = errors.New("element not found")
	// ErrTimeout is returned when a bounded wait expires.
	ErrTimeout = errors.New("wait timed out")
	// ErrStale is returned when a handle outlived the render it came from.
	ErrStale = errors.New("stale element handle")
	// ErrSessionLost means the rendering context is unusable: the browser
	// crashed, disconnected or was closed. It is never recoverable in-run.
	ErrSessionLost = errors.New("browser session lost")
)

// Element is a handle to a rendered node. Handles are only valid until the
// next session-mutating action (Navigate, Activate).
type Element interface {
	// Query finds the first descendant matching selector without waiting.
	Query(ctx context.Context, selector string) (Element, error)
	// Attribute returns the attribute value and whether it is present.
	Attribute(ctx context.Context, name string) (string, bool, error)
	// Text returns the rendered text of the element.
	Text(ctx context.Context) (string, error)
}

// Session is one live rendering context. It is not safe for concurrent use;
// a crawl drives it strictly sequentially.
type Session interface {
	Navigate(ctx context.Context, url string) error
	WaitUntilPresent(ctx context.Context, selector string, timeout time.Duration) (Element, error)
	WaitUntilAllPresent(ctx context.Context, selector string, timeout time.Duration) ([]Element, error)
	Query(ctx context.Context, selector string) (Element, error)
	QueryAll(ctx context.Context, selector string) ([]Element, error)
	ScrollIntoView(ctx context.Context, el Element) error
	Activate(ctx context.Context, el Element) error
	Close() error
}

// TextOf reads the text of el.
func TextOf(ctx context.Context, el Element) (string, error) {
	if el == nil {
		return "", ErrNotFound
	}
	return el.Text(ctx)
}

// IsFatal reports whether err ends the whole run rather than one card or page.
func IsFatal(err error) bool {
	return errors.Is(err, ErrSessionLost) ||
		errors.Is(err, context.Canceled)
}
