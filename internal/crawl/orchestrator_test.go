package crawl

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jimezsa/jobcrawl/internal/browser"
	"github.com/jimezsa/jobcrawl/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOrchestrator(session browser.Session, sink Sink, gate Gate, metrics *Metrics) *Orchestrator {
	return NewOrchestrator(session, sink, Options{
		Site:    Indeed(""),
		Timing:  fastTiming(),
		Gate:    gate,
		Logger:  zerolog.Nop(),
		Metrics: metrics,
	})
}

func TestOrchestratorPreservesOrderAcrossPages(t *testing.T) {
	session := newFakeSession(Indeed(""), map[int]*fakePage{
		0:  {cards: []fakeCard{card("a", "p0c0"), card("b", "p0c1"), card("c", "p0c2")}},
		10: {cards: []fakeCard{card("d", "p1c0"), card("e", "p1c1"), card("f", "p1c2")}},
	})
	sink := &memSink{}
	gated := false
	gate := gateFunc(func(context.Context) error {
		gated = true
		assert.Len(t, session.navigations, 1, "first page opens before the gate")
		return nil
	})
	metrics := NewMetrics()
	o := newOrchestrator(session, sink, gate, metrics)

	summary, err := o.Run(context.Background(), testSpec(2))
	require.NoError(t, err)

	assert.True(t, gated)
	assert.Equal(t, StateCompleted, o.State())
	assert.Equal(t, []string{"p0c0", "p0c1", "p0c2", "p1c0", "p1c1", "p1c2"}, titles(sink.records))
	assert.Equal(t, 6, summary.Records)
	assert.Equal(t, 2, summary.Pages)
	assert.Zero(t, summary.FailedPages)
	assert.True(t, sink.closed)
	assert.True(t, session.closed)

	path := filepath.Join(t.TempDir(), "jobcrawl.prom")
	require.NoError(t, metrics.WriteTextfile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "jobcrawl_records_written_total 6")
	assert.Contains(t, string(data), `jobcrawl_pages_total{outcome="ok"} 2`)
}

func TestOrchestratorContinuesAfterPageFatal(t *testing.T) {
	session := newFakeSession(Indeed(""), map[int]*fakePage{
		10: {cards: []fakeCard{card("d", "p1c0"), card("e", "p1c1")}},
	})
	sink := &memSink{}
	var pages []PageOutcome
	o := NewOrchestrator(session, sink, Options{
		Site:   Indeed(""),
		Timing: fastTiming(),
		Logger: zerolog.Nop(),
		OnPage: func(out PageOutcome) { pages = append(pages, out) },
	})

	summary, err := o.Run(context.Background(), testSpec(2))
	require.NoError(t, err)

	require.Len(t, pages, 2)
	assert.Error(t, pages[0].Err)
	assert.Zero(t, pages[0].Records)
	assert.NoError(t, pages[1].Err)
	assert.Equal(t, 1, summary.FailedPages)
	assert.Equal(t, []string{"p1c0", "p1c1"}, titles(sink.records))
	assert.True(t, strings.Contains(session.navigations[len(session.navigations)-1], "start=10"))
	assert.Equal(t, StateCompleted, o.State())
}

func TestOrchestratorAbortsOnSessionLoss(t *testing.T) {
	session := newFakeSession(Indeed(""), map[int]*fakePage{
		0:  {cards: []fakeCard{card("a", "first"), card("b", "second"), card("c", "third")}},
		10: {cards: []fakeCard{card("d", "never")}},
	})
	session.loseAt = 2
	sink := &memSink{}
	o := newOrchestrator(session, sink, nil, nil)

	summary, err := o.Run(context.Background(), testSpec(2))

	require.ErrorIs(t, err, browser.ErrSessionLost)
	assert.Equal(t, StateAborted, o.State())
	assert.Equal(t, []string{"first"}, titles(sink.records))
	assert.Equal(t, 1, summary.Records)
	assert.True(t, sink.closed)
	assert.True(t, session.closed)
}

func TestOrchestratorStopsOnSinkFailure(t *testing.T) {
	session := newFakeSession(Indeed(""), map[int]*fakePage{
		0: {cards: []fakeCard{card("a", "first"), card("b", "second")}},
	})
	sink := &memSink{failAfter: 1}
	o := newOrchestrator(session, sink, nil, nil)

	_, err := o.Run(context.Background(), testSpec(1))

	require.Error(t, err)
	assert.True(t, IsSinkFailure(err))
	assert.ErrorIs(t, err, errSinkFull)
	assert.Equal(t, StateAborted, o.State())
	assert.True(t, session.closed)
}

func TestOrchestratorGateCancellation(t *testing.T) {
	session := newFakeSession(Indeed(""), map[int]*fakePage{
		0: {cards: []fakeCard{card("a", "first")}},
	})
	sink := &memSink{}
	ctx, cancel := context.WithCancel(context.Background())
	gate := gateFunc(func(ctx context.Context) error {
		cancel()
		<-ctx.Done()
		return ctx.Err()
	})
	o := newOrchestrator(session, sink, gate, nil)

	_, err := o.Run(ctx, testSpec(1))

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateAborted, o.State())
	assert.Len(t, session.navigations, 1)
	assert.Empty(t, sink.records)
	assert.True(t, sink.closed)
	assert.True(t, session.closed)
}

func TestOrchestratorRejectsInvalidSpec(t *testing.T) {
	session := newFakeSession(Indeed(""), nil)
	sink := &memSink{}
	o := newOrchestrator(session, sink, nil, nil)

	_, err := o.Run(context.Background(), models.SearchSpec{Query: "", PageCount: 1})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "Query")
	assert.Empty(t, session.navigations)
	assert.True(t, session.closed)

	_, err = o.Run(context.Background(), testSpec(1))
	assert.Error(t, err, "an orchestrator runs once")
}

func TestOrchestratorResumesFromStartPage(t *testing.T) {
	session := newFakeSession(Indeed(""), map[int]*fakePage{
		20: {cards: []fakeCard{card("x", "p2c0")}},
	})
	sink := &memSink{}
	lingered := false
	o := NewOrchestrator(session, sink, Options{
		Site:   Indeed(""),
		Timing: fastTiming(),
		Logger: zerolog.Nop(),
		Linger: gateFunc(func(context.Context) error {
			lingered = true
			assert.False(t, session.closed, "browser stays open while lingering")
			return nil
		}),
	})
	spec := testSpec(1)
	spec.StartPage = 2

	_, err := o.Run(context.Background(), spec)
	require.NoError(t, err)

	assert.True(t, lingered)
	assert.Equal(t, []string{"p2c0"}, titles(sink.records))
	for _, target := range session.navigations {
		assert.Contains(t, target, "start=20")
	}
}
