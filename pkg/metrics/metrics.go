package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all notifier metrics
type Metrics struct {
	// Event bus metrics
	EventsReceived  *prometheus.CounterVec
	HandlerDuration *prometheus.HistogramVec
	HandlerOutcomes *prometheus.CounterVec

	// Delivery metrics
	Deliveries       *prometheus.CounterVec
	BatchesSubmitted prometheus.Counter
	BatchSize        prometheus.Histogram
	BatchFailures    prometheus.Counter

	// Roster metrics
	TokensInvalidated prometheus.Counter
	RosterOperations  *prometheus.CounterVec
}

// New creates and registers all metrics on reg. A nil reg uses the default
// registerer.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		EventsReceived: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_received_total",
			Help:      "Total number of events received from the bus",
		}, []string{"event_type"}),
		HandlerDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "handler_duration_seconds",
			Help:      "Time spent handling one event",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"event_type"}),
		HandlerOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handler_outcomes_total",
			Help:      "Handler results by kind",
		}, []string{"event_type", "outcome"}),

		Deliveries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Push deliveries by kind and result code",
		}, []string{"kind", "code"}),
		BatchesSubmitted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_submitted_total",
			Help:      "Total number of batches submitted to the delivery service",
		}),
		BatchSize: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Number of messages per submitted batch",
			Buckets:   []float64{1, 10, 50, 100, 250, 500},
		}),
		BatchFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_failures_total",
			Help:      "Batches that failed as a whole",
		}),

		TokensInvalidated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_invalidated_total",
			Help:      "Delivery tokens removed from the roster",
		}),
		RosterOperations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "roster_operations_total",
			Help:      "Total number of roster store operations",
		}, []string{"operation", "status"}),
	}
}

// NewNop returns metrics registered on a private registry, for tests.
func NewNop() *Metrics {
	return New("test", prometheus.NewRegistry())
}
