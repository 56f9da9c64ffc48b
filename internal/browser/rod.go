package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/cdp"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/jimezsa/jobcrawl/internal/models"
)

type rodSession struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
}

// OpenRod launches a local Chrome with the rod launcher and connects to it.
func OpenRod(ctx context.Context, cfg models.SessionConfig) (Session, error) {
	l := launcher.New().
		Context(context.WithoutCancel(ctx)).
		Headless(cfg.Headless).
		Set("disable-dev-shm-usage").
		Set("start-maximized")
	if cfg.UserDataDir != "" {
		l = l.UserDataDir(cfg.UserDataDir)
	}
	if cfg.ChromePath != "" {
		l = l.Bin(cfg.ChromePath)
	}
	if cfg.UserAgent != "" {
		l = l.Set("user-agent", cfg.UserAgent)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chrome: %w", err)
	}

	base := context.WithoutCancel(ctx)
	b := rod.New().ControlURL(controlURL).Context(base)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect chrome: %w", err)
	}

	startup := cfg.StartupTimeout
	if startup <= 0 {
		startup = 30 * time.Second
	}
	startCtx, cancel := context.WithTimeout(base, startup)
	defer cancel()
	page, err := b.Context(startCtx).Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = b.Close()
		l.Kill()
		return nil, fmt.Errorf("chrome failed startup test: %w", err)
	}

	return &rodSession{launcher: l, browser: b, page: page.Context(base)}, nil
}

// bound returns the page bound to ctx and timeout.
func (s *rodSession) bound(ctx context.Context, timeout time.Duration) (*rod.Page, context.CancelFunc) {
	opCtx, cancel := context.WithTimeout(ctx, timeout)
	return s.page.Context(opCtx), cancel
}

func (s *rodSession) classify(ctx context.Context, err error, timeoutAs error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if !s.alive() {
		return fmt.Errorf("%w: %v", ErrSessionLost, err)
	}
	var notFound *rod.ObjectNotFoundError
	if errors.As(err, &notFound) || errors.Is(err, cdp.ErrObjNotFound) {
		return fmt.Errorf("%w: %v", ErrStale, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", timeoutAs, err)
	}
	return err
}

// alive probes the browser connection.
func (s *rodSession) alive() bool {
	_, err := proto.BrowserGetVersion{}.Call(s.browser.Timeout(2 * time.Second))
	return err == nil
}

func (s *rodSession) Navigate(ctx context.Context, url string) error {
	page, cancel := s.bound(ctx, navigateTimeout)
	defer cancel()
	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, s.classify(ctx, err, ErrTimeout))
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("navigate %s: %w", url, s.classify(ctx, err, ErrTimeout))
	}
	return nil
}

func (s *rodSession) WaitUntilPresent(ctx context.Context, selector string, timeout time.Duration) (Element, error) {
	page, cancel := s.bound(ctx, timeout)
	defer cancel()
	el, err := page.Element(selector)
	if err != nil {
		return nil, fmt.Errorf("wait for %q: %w", selector, s.classify(ctx, err, ErrTimeout))
	}
	return s.element(el), nil
}

func (s *rodSession) WaitUntilAllPresent(ctx context.Context, selector string, timeout time.Duration) ([]Element, error) {
	page, cancel := s.bound(ctx, timeout)
	defer cancel()
	if _, err := page.Element(selector); err != nil {
		return nil, fmt.Errorf("wait for all %q: %w", selector, s.classify(ctx, err, ErrTimeout))
	}
	els, err := page.Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("wait for all %q: %w", selector, s.classify(ctx, err, ErrTimeout))
	}
	return s.elements(els), nil
}

func (s *rodSession) Query(ctx context.Context, selector string) (Element, error) {
	page, cancel := s.bound(ctx, elementTimeout)
	defer cancel()
	has, el, err := page.Has(selector)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", selector, s.classify(ctx, err, ErrStale))
	}
	if !has {
		return nil, fmt.Errorf("query %q: %w", selector, ErrNotFound)
	}
	return s.element(el), nil
}

func (s *rodSession) QueryAll(ctx context.Context, selector string) ([]Element, error) {
	page, cancel := s.bound(ctx, elementTimeout)
	defer cancel()
	els, err := page.Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("query all %q: %w", selector, s.classify(ctx, err, ErrStale))
	}
	return s.elements(els), nil
}

func (s *rodSession) ScrollIntoView(ctx context.Context, el Element) error {
	re, err := s.unwrap(el)
	if err != nil {
		return err
	}
	opCtx, cancel := context.WithTimeout(ctx, elementTimeout)
	defer cancel()
	if err := re.Context(opCtx).ScrollIntoView(); err != nil {
		return fmt.Errorf("scroll into view: %w", s.classify(ctx, err, ErrStale))
	}
	return nil
}

func (s *rodSession) Activate(ctx context.Context, el Element) error {
	re, err := s.unwrap(el)
	if err != nil {
		return err
	}
	opCtx, cancel := context.WithTimeout(ctx, elementTimeout)
	defer cancel()
	if err := re.Context(opCtx).Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("activate: %w", s.classify(ctx, err, ErrStale))
	}
	return nil
}

func (s *rodSession) Close() error {
	err := s.browser.Close()
	s.launcher.Kill()
	s.launcher.Cleanup()
	return err
}

func (s *rodSession) element(el *rod.Element) Element {
	return &rodElement{s: s, el: el}
}

func (s *rodSession) elements(els rod.Elements) []Element {
	out := make([]Element, 0, len(els))
	for _, el := range els {
		out = append(out, s.element(el))
	}
	return out
}

func (s *rodSession) unwrap(el Element) (*rod.Element, error) {
	re, ok := el.(*rodElement)
	if !ok || re == nil || re.el == nil {
		return nil, fmt.Errorf("foreign element %T: %w", el, ErrStale)
	}
	return re.el, nil
}

type rodElement struct {
	s  *rodSession
	el *rod.Element
}

func (e *rodElement) Query(ctx context.Context, selector string) (Element, error) {
	opCtx, cancel := context.WithTimeout(ctx, elementTimeout)
	defer cancel()
	child, err := e.el.Context(opCtx).Sleeper(rod.NotFoundSleeper).Element(selector)
	if errors.Is(err, &rod.ElementNotFoundError{}) {
		return nil, fmt.Errorf("query %q: %w", selector, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", selector, e.s.classify(ctx, err, ErrStale))
	}
	return e.s.element(child), nil
}

func (e *rodElement) Attribute(ctx context.Context, name string) (string, bool, error) {
	opCtx, cancel := context.WithTimeout(ctx, elementTimeout)
	defer cancel()
	value, err := e.el.Context(opCtx).Attribute(name)
	if err != nil {
		return "", false, fmt.Errorf("attribute %q: %w", name, e.s.classify(ctx, err, ErrStale))
	}
	if value == nil {
		return "", false, nil
	}
	return *value, true, nil
}

func (e *rodElement) Text(ctx context.Context) (string, error) {
	opCtx, cancel := context.WithTimeout(ctx, elementTimeout)
	defer cancel()
	text, err := e.el.Context(opCtx).Text()
	if err != nil {
		return "", fmt.Errorf("text: %w", e.s.classify(ctx, err, ErrStale))
	}
	return text, nil
}
