// Package metrics exposes reservation lifecycle counters to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "reservations"

// Recorder implements application.Metrics on a dedicated registry.
type Recorder struct {
	registry *prometheus.Registry

	created       *prometheus.CounterVec
	rejected      *prometheus.CounterVec
	transitioned  *prometheus.CounterVec
	alerted       *prometheus.CounterVec
	sweepDuration prometheus.Histogram
	sweptTotal    prometheus.Counter
}

// NewRecorder registers the reservation collectors plus the Go runtime and
// process collectors on a fresh registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		created: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "created_total",
			Help:      "Reservations created, by resource kind.",
		}, []string{"kind"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejected_total",
			Help:      "Reservation requests rejected, by resource kind and error kind.",
		}, []string{"kind", "reason"}),
		transitioned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Reservations leaving the active state, by kind and terminal status.",
		}, []string{"kind", "status"}),
		alerted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "expiring_soon_alerts_total",
			Help:      "Expiring-soon alerts raised, by resource kind.",
		}, []string{"kind"}),
		sweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sweep_duration_seconds",
			Help:      "Time spent in expiration sweeps.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
		sweptTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "swept_total",
			Help:      "Reservations transitioned by expiration sweeps.",
		}),
	}

	r.registry.MustRegister(
		r.created,
		r.rejected,
		r.transitioned,
		r.alerted,
		r.sweepDuration,
		r.sweptTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Registry returns the registry backing the recorder.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

func (r *Recorder) ReservationCreated(kind string) {
	r.created.WithLabelValues(kind).Inc()
}

func (r *Recorder) ReservationRejected(kind, reason string) {
	r.rejected.WithLabelValues(kind, reason).Inc()
}

func (r *Recorder) ReservationTransitioned(kind, status string) {
	r.transitioned.WithLabelValues(kind, status).Inc()
}

func (r *Recorder) ExpiringSoonAlerted(kind string) {
	r.alerted.WithLabelValues(kind).Inc()
}

func (r *Recorder) SweepObserved(duration time.Duration, transitioned int) {
	r.sweepDuration.Observe(duration.Seconds())
	r.sweptTotal.Add(float64(transitioned))
}
