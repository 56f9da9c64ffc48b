package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
	"github.com/jimezsa/jobcrawl/internal/models"
)

const (
	navigateTimeout = 60 * time.Second
	elementTimeout  = 5 * time.Second
)

type chromedpSession struct {
	tabCtx      context.Context
	tabCancel   context.CancelFunc
	allocCancel context.CancelFunc
}

// OpenChromedp launches a Chrome process through chromedp and opens one tab.
func OpenChromedp(ctx context.Context, cfg models.SessionConfig) (Session, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("start-maximized", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if cfg.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(cfg.UserDataDir))
	}
	if cfg.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ChromePath))
	}
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}

	// The browser outlives the caller's cancellation so that a run can still
	// release it in order; per-operation contexts are linked back to ctx.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	s := &chromedpSession{
		tabCtx:      tabCtx,
		tabCancel:   tabCancel,
		allocCancel: allocCancel,
	}

	// First Run allocates the browser; it must use the tab context itself.
	if err := chromedp.Run(tabCtx); err != nil {
		s.Close()
		return nil, fmt.Errorf("start chrome: %w", err)
	}

	startup := cfg.StartupTimeout
	if startup <= 0 {
		startup = 30 * time.Second
	}
	testCtx, cancel := s.opContext(ctx, startup)
	defer cancel()
	if err := chromedp.Run(testCtx, chromedp.Navigate("about:blank")); err != nil {
		s.Close()
		return nil, fmt.Errorf("chrome failed startup test: %w", err)
	}

	return s, nil
}

// opContext derives an operation context from the tab context, bounded by
// timeout and cancelled together with the caller's ctx.
func (s *chromedpSession) opContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	opCtx, cancel := context.WithTimeout(s.tabCtx, timeout)
	stop := context.AfterFunc(ctx, cancel)
	return opCtx, func() {
		stop()
		cancel()
	}
}

// classify maps chromedp errors onto the package sentinels.
func (s *chromedpSession) classify(ctx context.Context, err error, timeoutAs error) error {
	if err == nil {
		return nil
	}
	if s.tabCtx.Err() != nil {
		return fmt.Errorf("%w: %v", ErrSessionLost, err)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", timeoutAs, err)
	}
	return err
}

func (s *chromedpSession) Navigate(ctx context.Context, url string) error {
	opCtx, cancel := s.opContext(ctx, navigateTimeout)
	defer cancel()
	if err := chromedp.Run(opCtx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate %s: %w", url, s.classify(ctx, err, ErrTimeout))
	}
	return nil
}

func (s *chromedpSession) WaitUntilPresent(ctx context.Context, selector string, timeout time.Duration) (Element, error) {
	opCtx, cancel := s.opContext(ctx, timeout)
	defer cancel()

	var nodes []*cdp.Node
	if err := chromedp.Run(opCtx, chromedp.Nodes(selector, &nodes, chromedp.ByQuery)); err != nil {
		return nil, fmt.Errorf("wait for %q: %w", selector, s.classify(ctx, err, ErrTimeout))
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("wait for %q: %w", selector, ErrNotFound)
	}
	return &chromedpElement{s: s, node: nodes[0]}, nil
}

func (s *chromedpSession) WaitUntilAllPresent(ctx context.Context, selector string, timeout time.Duration) ([]Element, error) {
	opCtx, cancel := s.opContext(ctx, timeout)
	defer cancel()

	var nodes []*cdp.Node
	if err := chromedp.Run(opCtx, chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll)); err != nil {
		return nil, fmt.Errorf("wait for all %q: %w", selector, s.classify(ctx, err, ErrTimeout))
	}
	return s.wrap(nodes), nil
}

func (s *chromedpSession) Query(ctx context.Context, selector string) (Element, error) {
	nodes, err := s.query(ctx, selector, nil, chromedp.ByQuery)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("query %q: %w", selector, ErrNotFound)
	}
	return &chromedpElement{s: s, node: nodes[0]}, nil
}

func (s *chromedpSession) QueryAll(ctx context.Context, selector string) ([]Element, error) {
	nodes, err := s.query(ctx, selector, nil, chromedp.ByQueryAll)
	if err != nil {
		return nil, err
	}
	return s.wrap(nodes), nil
}

// query runs a non-waiting lookup, optionally scoped to a parent node.
func (s *chromedpSession) query(ctx context.Context, selector string, parent *cdp.Node, by chromedp.QueryOption) ([]*cdp.Node, error) {
	opCtx, cancel := s.opContext(ctx, elementTimeout)
	defer cancel()

	opts := []chromedp.QueryOption{by, chromedp.AtLeast(0)}
	if parent != nil {
		opts = append(opts, chromedp.FromNode(parent))
	}
	var nodes []*cdp.Node
	if err := chromedp.Run(opCtx, chromedp.Nodes(selector, &nodes, opts...)); err != nil {
		return nil, fmt.Errorf("query %q: %w", selector, s.classify(ctx, err, ErrStale))
	}
	return nodes, nil
}

func (s *chromedpSession) ScrollIntoView(ctx context.Context, el Element) error {
	node, err := s.node(el)
	if err != nil {
		return err
	}
	opCtx, cancel := s.opContext(ctx, elementTimeout)
	defer cancel()
	if err := chromedp.Run(opCtx, chromedp.ScrollIntoView([]cdp.NodeID{node.NodeID}, chromedp.ByNodeID)); err != nil {
		return fmt.Errorf("scroll into view: %w", s.classify(ctx, err, ErrStale))
	}
	return nil
}

func (s *chromedpSession) Activate(ctx context.Context, el Element) error {
	node, err := s.node(el)
	if err != nil {
		return err
	}
	opCtx, cancel := s.opContext(ctx, elementTimeout)
	defer cancel()
	if err := chromedp.Run(opCtx, chromedp.MouseClickNode(node)); err != nil {
		return fmt.Errorf("activate: %w", s.classify(ctx, err, ErrStale))
	}
	return nil
}

func (s *chromedpSession) Close() error {
	s.tabCancel()
	s.allocCancel()
	return nil
}

func (s *chromedpSession) wrap(nodes []*cdp.Node) []Element {
	out := make([]Element, 0, len(nodes))
	for _, node := range nodes {
		out = append(out, &chromedpElement{s: s, node: node})
	}
	return out
}

func (s *chromedpSession) node(el Element) (*cdp.Node, error) {
	ce, ok := el.(*chromedpElement)
	if !ok || ce == nil || ce.node == nil {
		return nil, fmt.Errorf("foreign element %T: %w", el, ErrStale)
	}
	return ce.node, nil
}

type chromedpElement struct {
	s    *chromedpSession
	node *cdp.Node
}

func (e *chromedpElement) Query(ctx context.Context, selector string) (Element, error) {
	nodes, err := e.s.query(ctx, selector, e.node, chromedp.ByQuery)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("query %q: %w", selector, ErrNotFound)
	}
	return &chromedpElement{s: e.s, node: nodes[0]}, nil
}

func (e *chromedpElement) Attribute(ctx context.Context, name string) (string, bool, error) {
	opCtx, cancel := e.s.opContext(ctx, elementTimeout)
	defer cancel()

	var (
		value string
		ok    bool
	)
	ids := []cdp.NodeID{e.node.NodeID}
	if err := chromedp.Run(opCtx, chromedp.AttributeValue(ids, name, &value, &ok, chromedp.ByNodeID)); err != nil {
		return "", false, fmt.Errorf("attribute %q: %w", name, e.s.classify(ctx, err, ErrStale))
	}
	return value, ok, nil
}

func (e *chromedpElement) Text(ctx context.Context) (string, error) {
	opCtx, cancel := e.s.opContext(ctx, elementTimeout)
	defer cancel()

	var text string
	ids := []cdp.NodeID{e.node.NodeID}
	if err := chromedp.Run(opCtx, chromedp.Text(ids, &text, chromedp.ByNodeID)); err != nil {
		return "", fmt.Errorf("text: %w", e.s.classify(ctx, err, ErrStale))
	}
	return text, nil
}
