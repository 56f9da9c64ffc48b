package crawl

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jimezsa/jobcrawl/internal/browser"
	"github.com/jimezsa/jobcrawl/internal/models"
)

type fakeCard struct {
	id     string
	href   string
	noLink bool
	// fields keyed by record field name; nil means the pane never renders.
	fields map[string]string
}

type fakePage struct {
	cards []fakeCard
}

// fakeSession is a scripted DOM keyed by result offset. Every Navigate or
// Activate bumps the generation, so earlier handles go stale.
type fakeSession struct {
	site  Site
	pages map[int]*fakePage

	current *fakePage
	active  *fakeCard
	gen     int
	closed  bool

	navigations []string
	activations int
	// loseAt ends the session on the n-th activation (1-based).
	loseAt int
	// shrinkOnActivate drops the last card on the first activation.
	shrinkOnActivate bool
}

func newFakeSession(site Site, pages map[int]*fakePage) *fakeSession {
	return &fakeSession{site: site, pages: pages}
}

func (s *fakeSession) check(ctx context.Context) error {
	if s.closed {
		return browser.ErrSessionLost
	}
	return ctx.Err()
}

func (s *fakeSession) Navigate(ctx context.Context, target string) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	s.navigations = append(s.navigations, target)
	u, err := url.Parse(target)
	if err != nil {
		return err
	}
	offset, _ := strconv.Atoi(u.Query().Get("start"))
	s.current = s.pages[offset]
	s.active = nil
	s.gen++
	return nil
}

func (s *fakeSession) find(selector string) []browser.Element {
	var out []browser.Element
	switch selector {
	case s.site.CardSelector:
		if s.current == nil {
			return nil
		}
		for i := range s.current.cards {
			out = append(out, &fakeElement{s: s, gen: s.gen, kind: "card", card: &s.current.cards[i]})
		}
	case s.site.PaneSelector, s.site.ReadySelector, s.site.ContentSelector:
		if s.active != nil && s.active.fields != nil {
			out = append(out, &fakeElement{s: s, gen: s.gen, kind: "content", card: s.active})
		}
	}
	return out
}

func (s *fakeSession) WaitUntilPresent(ctx context.Context, selector string, _ time.Duration) (browser.Element, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	found := s.find(selector)
	if len(found) == 0 {
		return nil, browser.ErrTimeout
	}
	return found[0], nil
}

func (s *fakeSession) WaitUntilAllPresent(ctx context.Context, selector string, _ time.Duration) ([]browser.Element, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	found := s.find(selector)
	if len(found) == 0 {
		return nil, browser.ErrTimeout
	}
	return found, nil
}

func (s *fakeSession) Query(ctx context.Context, selector string) (browser.Element, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	found := s.find(selector)
	if len(found) == 0 {
		return nil, browser.ErrNotFound
	}
	return found[0], nil
}

func (s *fakeSession) QueryAll(ctx context.Context, selector string) ([]browser.Element, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	return s.find(selector), nil
}

func (s *fakeSession) ScrollIntoView(ctx context.Context, el browser.Element) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	return el.(*fakeElement).live()
}

func (s *fakeSession) Activate(ctx context.Context, el browser.Element) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	fe := el.(*fakeElement)
	if err := fe.live(); err != nil {
		return err
	}
	s.activations++
	if s.loseAt > 0 && s.activations >= s.loseAt {
		s.closed = true
		return browser.ErrSessionLost
	}
	s.active = fe.card
	s.gen++
	if s.shrinkOnActivate && s.activations == 1 {
		s.current.cards = s.current.cards[:len(s.current.cards)-1]
	}
	return nil
}

func (s *fakeSession) Close() error {
	s.closed = true
	return nil
}

type fakeElement struct {
	s     *fakeSession
	gen   int
	kind  string
	card  *fakeCard
	field string
}

func (e *fakeElement) live() error {
	if e.s.closed {
		return browser.ErrSessionLost
	}
	if e.gen != e.s.gen {
		return browser.ErrStale
	}
	return nil
}

func (e *fakeElement) Query(ctx context.Context, selector string) (browser.Element, error) {
	if err := e.live(); err != nil {
		return nil, err
	}
	switch e.kind {
	case "card":
		if selector == e.s.site.LinkSelector && !e.card.noLink {
			return &fakeElement{s: e.s, gen: e.gen, kind: "link", card: e.card}, nil
		}
	case "content":
		for _, field := range e.s.site.Fields {
			if field.Selector == selector {
				if _, ok := e.card.fields[field.Name]; ok {
					return &fakeElement{s: e.s, gen: e.gen, kind: "field", card: e.card, field: field.Name}, nil
				}
			}
		}
	}
	return nil, browser.ErrNotFound
}

func (e *fakeElement) Attribute(ctx context.Context, name string) (string, bool, error) {
	if err := e.live(); err != nil {
		return "", false, err
	}
	if e.kind != "link" {
		return "", false, nil
	}
	switch name {
	case "href":
		return e.card.href, e.card.href != "", nil
	case e.s.site.IDAttr:
		return e.card.id, e.card.id != "", nil
	}
	return "", false, nil
}

func (e *fakeElement) Text(ctx context.Context) (string, error) {
	if err := e.live(); err != nil {
		return "", err
	}
	switch e.kind {
	case "field":
		return "  " + e.card.fields[e.field] + "\n", nil
	case "content":
		var parts []string
		for _, field := range e.s.site.Fields {
			parts = append(parts, e.card.fields[field.Name])
		}
		return strings.Join(parts, "\n"), nil
	}
	return e.card.id, nil
}

type memSink struct {
	records   []models.JobRecord
	closed    bool
	failAfter int
}

func (m *memSink) Write(record models.JobRecord) error {
	if m.failAfter > 0 && len(m.records) >= m.failAfter {
		return errSinkFull
	}
	m.records = append(m.records, record)
	return nil
}

func (m *memSink) Close() error {
	m.closed = true
	return nil
}

type errString string

func (e errString) Error() string { return string(e) }

const errSinkFull = errString("disk full")

type gateFunc func(ctx context.Context) error

func (f gateFunc) Wait(ctx context.Context) error { return f(ctx) }

func fastTiming() Timing {
	return Timing{
		Change: 20 * time.Millisecond,
		Poll:   2 * time.Millisecond,
	}
}

func card(id, title string) fakeCard {
	return fakeCard{
		id: id,
		fields: map[string]string{
			"title":       title,
			"company":     "Acme " + id,
			"location":    "Remote",
			"salary":      "$100k",
			"description": "Build things for " + id,
		},
	}
}

func titles(records []models.JobRecord) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, models.Value(r.Title))
	}
	return out
}
