package db

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	mRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "skmf",
		Subsystem: "sparql",
		Name:      "requests_total",
		Help:      "Number of SPARQL endpoint calls by operation and outcome.",
	}, []string{"operation", "outcome"})

	mDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "skmf",
		Subsystem: "sparql",
		Name:      "request_duration_seconds",
		Help:      "Duration of SPARQL endpoint calls in seconds.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"operation"})
)

// outcome returns the metric label for an endpoint call result.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrEndpointUnreachable):
		return "unreachable"
	case errors.Is(err, ErrMalformedQuery):
		return "malformed"
	case errors.Is(err, ErrEndpointInternal):
		return "internal"
	default:
		return "error"
	}
}

func observe(op string, start time.Time, err error) {
	mDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	mRequests.WithLabelValues(op, outcome(err)).Inc()
}
