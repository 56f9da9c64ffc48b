package crawl

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the crawl collectors on a dedicated registry.
type Metrics struct {
	Registry     *prometheus.Registry
	PagesTotal   *prometheus.CounterVec
	CardsTotal   *prometheus.CounterVec
	RecordsTotal prometheus.Counter
	CardDuration prometheus.Histogram
	FieldsNull   *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	pages := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobcrawl_pages_total",
			Help: "Result pages visited, by outcome.",
		},
		[]string{"outcome"},
	)
	cards := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobcrawl_cards_total",
			Help: "Card positions processed, by outcome and reason.",
		},
		[]string{"outcome", "reason"},
	)
	records := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "jobcrawl_records_written_total",
			Help: "Records written to the sink.",
		},
	)
	cardDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "jobcrawl_card_duration_seconds",
			Help:    "Time spent activating and extracting one card.",
			Buckets: prometheus.DefBuckets,
		},
	)
	fieldsNull := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobcrawl_fields_null_total",
			Help: "Extracted records with a null field, by field.",
		},
		[]string{"field"},
	)

	registry.MustRegister(pages, cards, records, cardDuration, fieldsNull)

	return &Metrics{
		Registry:     registry,
		PagesTotal:   pages,
		CardsTotal:   cards,
		RecordsTotal: records,
		CardDuration: cardDuration,
		FieldsNull:   fieldsNull,
	}
}

func (m *Metrics) IncPage(outcome string) {
	if m == nil {
		return
	}
	m.PagesTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncCard(outcome, reason string) {
	if m == nil {
		return
	}
	m.CardsTotal.WithLabelValues(outcome, reason).Inc()
}

func (m *Metrics) IncRecords() {
	if m == nil {
		return
	}
	m.RecordsTotal.Inc()
}

func (m *Metrics) ObserveCard(d time.Duration) {
	if m == nil {
		return
	}
	m.CardDuration.Observe(d.Seconds())
}

func (m *Metrics) IncNullField(field string) {
	if m == nil {
		return
	}
	m.FieldsNull.WithLabelValues(field).Inc()
}

// WriteTextfile dumps the registry in the node_exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return fmt.Errorf("write metrics %s: %w", path, err)
	}
	return nil
}
