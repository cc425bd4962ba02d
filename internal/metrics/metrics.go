// Package metrics exposes Prometheus counters for shortening and resolution.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "shortener"

// Metrics records shortener activity. It satisfies the metrics dependency of the usecase.
type Metrics struct {
	registry          *prometheus.Registry
	shortened         *prometheus.CounterVec
	collisions        prometheus.Counter
	resolutions       *prometheus.CounterVec
	incrementFailures prometheus.Counter
}

// New registers the shortener collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		shortened: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "urls_shortened_total",
			Help:      "Shortened URLs by result (created or reused).",
		}, []string{"result"}),
		collisions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "code_collisions_total",
			Help:      "Generated short codes rejected because they already exist.",
		}),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Short code resolutions by result (hit or miss).",
		}, []string{"result"}),
		incrementFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "click_increment_failures_total",
			Help:      "Resolutions whose click counter could not be incremented.",
		}),
	}

	m.registry.MustRegister(
		m.shortened,
		m.collisions,
		m.resolutions,
		m.incrementFailures,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

func (m *Metrics) URLShortened(reused bool) {
	if reused {
		m.shortened.WithLabelValues("reused").Inc()
		return
	}
	m.shortened.WithLabelValues("created").Inc()
}

func (m *Metrics) CodeCollision() {
	m.collisions.Inc()
}

func (m *Metrics) Resolution(found bool) {
	if found {
		m.resolutions.WithLabelValues("hit").Inc()
		return
	}
	m.resolutions.WithLabelValues("miss").Inc()
}

func (m *Metrics) ClickIncrementFailed() {
	m.incrementFailures.Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
