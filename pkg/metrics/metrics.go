package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "contact_guard"

// Recorder counts submission outcomes and times relay calls
type Recorder struct {
	registry     *prometheus.Registry
	submissions  *prometheus.CounterVec
	relayLatency *prometheus.HistogramVec
}

// NewRecorder registers the metrics on a private registry
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),

		// outcome: success, honeypot, rate_limited, field_invalid,
		// spam_detected, dispatch_failed, storage_error
		submissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "submissions_total",
				Help:      "Contact form submissions by outcome",
			},
			[]string{"outcome"},
		),

		relayLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "relay_duration_seconds",
				Help:      "Time spent waiting for the mail relay",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"success"},
		),
	}

	r.registry.MustRegister(r.submissions, r.relayLatency)
	return r
}

// Submission counts one submission with the given outcome
func (r *Recorder) Submission(outcome string) {
	r.submissions.WithLabelValues(outcome).Inc()
}

// RelayDuration records how long one relay call took
func (r *Recorder) RelayDuration(seconds float64, success bool) {
	label := "false"
	if success {
		label = "true"
	}
	r.relayLatency.WithLabelValues(label).Observe(seconds)
}

// Handler exposes the recorder's registry in the Prometheus text format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
