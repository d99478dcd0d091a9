// Package instrumented decorates a ports.ContentStore with Prometheus metrics.
package instrumented

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/happenings-community/requests-and-offers-sub003/internal/domain/entities"
	"github.com/happenings-community/requests-and-offers-sub003/internal/domain/ports"
)

var _ ports.ContentStore = (*Store)(nil)

// Outcome label values.
const (
	OutcomeOK          = "ok"
	OutcomeMiss        = "miss"
	OutcomeUnavailable = "unavailable"
	OutcomeError       = "error"
)

// Metrics holds the collectors shared by every instrumented store on a registry.
type Metrics struct {
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	links    *prometheus.HistogramVec
}

// NewMetrics registers the content store collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		calls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "market",
			Subsystem: "content_store",
			Name:      "calls_total",
			Help:      "Content store calls by operation and outcome.",
		}, []string{"op", "outcome"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "market",
			Subsystem: "content_store",
			Name:      "call_duration_seconds",
			Help:      "Content store call latency by operation.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}, []string{"op"}),
		links: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "market",
			Subsystem: "content_store",
			Name:      "links_returned",
			Help:      "Number of links returned per GetLinks call by link type filter.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}, []string{"filter"}),
	}
}

// Store records a call counter and latency histogram per operation.
type Store struct {
	inner   ports.ContentStore
	metrics *Metrics
}

// New wraps inner.
func New(inner ports.ContentStore, metrics *Metrics) *Store {
	return &Store{inner: inner, metrics: metrics}
}

func (s *Store) observe(op string, start time.Time, err error, miss bool) {
	s.metrics.duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	s.metrics.calls.WithLabelValues(op, outcome(err, miss)).Inc()
}

func outcome(err error, miss bool) string {
	switch {
	case err == nil && miss:
		return OutcomeMiss
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ports.ErrUnavailable), errors.Is(err, context.DeadlineExceeded):
		return OutcomeUnavailable
	default:
		return OutcomeError
	}
}

// Put stores a record.
func (s *Store) Put(ctx context.Context, rec *entities.Record) (entities.Hash, error) {
	start := time.Now()
	h, err := s.inner.Put(ctx, rec)
	s.observe("put", start, err, false)
	return h, err
}

// Get returns a record. An unresolved hash counts as a miss.
func (s *Store) Get(ctx context.Context, hash entities.Hash) (*entities.Record, error) {
	start := time.Now()
	rec, err := s.inner.Get(ctx, hash)
	s.observe("get", start, err, rec == nil)
	return rec, err
}

// CreateLink stores a link.
func (s *Store) CreateLink(ctx context.Context, link entities.Link) (entities.Hash, error) {
	start := time.Now()
	id, err := s.inner.CreateLink(ctx, link)
	s.observe("create_link", start, err, false)
	return id, err
}

// GetLinks lists links from base.
func (s *Store) GetLinks(ctx context.Context, base entities.Hash, filter entities.LinkFilter) ([]entities.Link, error) {
	start := time.Now()
	links, err := s.inner.GetLinks(ctx, base, filter)
	s.observe("get_links", start, err, false)
	if err == nil {
		s.metrics.links.WithLabelValues(filterLabel(filter)).Observe(float64(len(links)))
	}
	return links, err
}

// DeleteLink deletes a link.
func (s *Store) DeleteLink(ctx context.Context, linkID entities.Hash) error {
	start := time.Now()
	err := s.inner.DeleteLink(ctx, linkID)
	s.observe("delete_link", start, err, false)
	return err
}

// Close closes the wrapped store.
func (s *Store) Close() error {
	return s.inner.Close()
}

// filterLabel keeps label cardinality bounded to the known link types.
func filterLabel(f entities.LinkFilter) string {
	if len(f.Types) != 1 {
		return "mixed"
	}
	return string(f.Types[0])
}
