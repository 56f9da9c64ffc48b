package browser

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Loader returns the HTML of a results page for the static session.
type Loader interface {
	Load(ctx context.Context, target string) (string, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, target string) (string, error)

func (f LoaderFunc) Load(ctx context.Context, target string) (string, error) {
	return f(ctx, target)
}

// DirLoader serves saved result pages named start-<offset>.html from Dir,
// keyed by the start query parameter of the requested URL.
type DirLoader struct {
	Dir string
}

func (d DirLoader) Load(_ context.Context, target string) (string, error) {
	u, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", target, err)
	}
	start := u.Query().Get("start")
	if start == "" {
		start = "0"
	}
	path := filepath.Join(d.Dir, "start-"+start+".html")
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("load fixture: %w", err)
	}
	return string(data), nil
}

// StaticOptions describes how activation is replayed on saved pages.
type StaticOptions struct {
	// IDAttr is the card attribute that keys a detail fixture.
	IDAttr string
	// PaneSelector is the detail pane replaced on activation.
	PaneSelector string
}

// StaticSession replays saved result pages without a browser. Detail panes are
// stored in the page as <script type="text/html" data-detail-for="ID">. Every
// Navigate or Activate re-renders the document, so handles from a previous
// render report ErrStale.
type StaticSession struct {
	loader   Loader
	opts     StaticOptions
	pristine string
	doc      *goquery.Document
	gen      int
	closed   bool
}

func NewStaticSession(loader Loader, opts StaticOptions) *StaticSession {
	if opts.IDAttr == "" {
		opts.IDAttr = "data-jk"
	}
	if opts.PaneSelector == "" {
		opts.PaneSelector = "div.jobsearch-RightPane"
	}
	return &StaticSession{loader: loader, opts: opts}
}

func (s *StaticSession) check(ctx context.Context) error {
	if s.closed {
		return ErrSessionLost
	}
	return ctx.Err()
}

func (s *StaticSession) render(html string) error {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return err
	}
	s.doc = doc
	s.gen++
	return nil
}

func (s *StaticSession) Navigate(ctx context.Context, target string) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	html, err := s.loader.Load(ctx, target)
	if err != nil {
		return fmt.Errorf("navigate %s: %w", target, err)
	}
	s.pristine = html
	if err := s.render(html); err != nil {
		return fmt.Errorf("navigate %s: %w", target, err)
	}
	return nil
}

// WaitUntilPresent never blocks: a saved page does not change over time, so a
// missing selector times out at once.
func (s *StaticSession) WaitUntilPresent(ctx context.Context, selector string, _ time.Duration) (Element, error) {
	el, err := s.Query(ctx, selector)
	if err != nil {
		if s.closed || ctx.Err() != nil {
			return nil, err
		}
		return nil, fmt.Errorf("wait for %q: %w", selector, ErrTimeout)
	}
	return el, nil
}

func (s *StaticSession) WaitUntilAllPresent(ctx context.Context, selector string, _ time.Duration) ([]Element, error) {
	els, err := s.QueryAll(ctx, selector)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, fmt.Errorf("wait for all %q: %w", selector, ErrTimeout)
	}
	return els, nil
}

func (s *StaticSession) Query(ctx context.Context, selector string) (Element, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	if s.doc == nil {
		return nil, fmt.Errorf("query %q: %w", selector, ErrNotFound)
	}
	sel := s.doc.Find(selector).First()
	if sel.Length() == 0 {
		return nil, fmt.Errorf("query %q: %w", selector, ErrNotFound)
	}
	return &staticElement{s: s, sel: sel, gen: s.gen}, nil
}

func (s *StaticSession) QueryAll(ctx context.Context, selector string) ([]Element, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	if s.doc == nil {
		return nil, nil
	}
	var out []Element
	s.doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		out = append(out, &staticElement{s: s, sel: sel, gen: s.gen})
	})
	return out, nil
}

func (s *StaticSession) ScrollIntoView(ctx context.Context, el Element) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	_, err := s.live(el)
	return err
}

// Activate re-renders the page with the detail fixture of the card in the
// pane. Without a fixture the pane is removed.
func (s *StaticSession) Activate(ctx context.Context, el Element) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	sel, err := s.live(el)
	if err != nil {
		return err
	}

	id, ok := sel.Attr(s.opts.IDAttr)
	if !ok {
		id, ok = sel.Find("[" + s.opts.IDAttr + "]").First().Attr(s.opts.IDAttr)
	}

	var detail string
	found := false
	if ok && id != "" {
		s.doc.Find(`script[type="text/html"]`).EachWithBreak(func(_ int, script *goquery.Selection) bool {
			if key, _ := script.Attr("data-detail-for"); key == id {
				detail = script.Text()
				found = true
				return false
			}
			return true
		})
	}

	if err := s.render(s.pristine); err != nil {
		return fmt.Errorf("activate: %w", err)
	}
	pane := s.doc.Find(s.opts.PaneSelector)
	if found {
		pane.SetHtml(detail)
	} else {
		pane.Remove()
	}
	return nil
}

func (s *StaticSession) Close() error {
	s.closed = true
	s.doc = nil
	return nil
}

func (s *StaticSession) live(el Element) (*goquery.Selection, error) {
	se, ok := el.(*staticElement)
	if !ok || se == nil || se.s != s {
		return nil, fmt.Errorf("foreign element %T: %w", el, ErrStale)
	}
	if s.closed {
		return nil, ErrSessionLost
	}
	if se.gen != s.gen {
		return nil, ErrStale
	}
	return se.sel, nil
}

type staticElement struct {
	s   *StaticSession
	sel *goquery.Selection
	gen int
}

func (e *staticElement) Query(ctx context.Context, selector string) (Element, error) {
	if err := e.s.check(ctx); err != nil {
		return nil, err
	}
	sel, err := e.s.live(e)
	if err != nil {
		return nil, err
	}
	child := sel.Find(selector).First()
	if child.Length() == 0 {
		return nil, fmt.Errorf("query %q: %w", selector, ErrNotFound)
	}
	return &staticElement{s: e.s, sel: child, gen: e.gen}, nil
}

func (e *staticElement) Attribute(ctx context.Context, name string) (string, bool, error) {
	if err := e.s.check(ctx); err != nil {
		return "", false, err
	}
	sel, err := e.s.live(e)
	if err != nil {
		return "", false, err
	}
	value, ok := sel.Attr(name)
	return value, ok, nil
}

func (e *staticElement) Text(ctx context.Context) (string, error) {
	if err := e.s.check(ctx); err != nil {
		return "", err
	}
	sel, err := e.s.live(e)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(sel.Text()), nil
}
