// Package metrics exposes Prometheus counters for uploads, imports and the
// OAuth handshake. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "dataimport"

type Metrics struct {
	registry *prometheus.Registry

	Uploads *prometheus.CounterVec
	Imports *prometheus.CounterVec
	OAuth   *prometheus.CounterVec
	Swept   prometheus.Counter
}

// New registers collectors on a private registry; call once from main.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Upload attempts by result kind.",
		}, []string{"result"}),
		Imports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "imports_total",
			Help:      "Import requests by source and outcome.",
		}, []string{"source", "outcome"}),
		OAuth: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oauth_operations_total",
			Help:      "OAuth handshake operations by operation and result kind.",
		}, []string{"operation", "result"}),
		Swept: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "staged_files_swept_total",
			Help:      "Staged files removed after their TTL.",
		}),
	}
	m.registry.MustRegister(m.Uploads, m.Imports, m.OAuth, m.Swept)
	return m
}

func (m *Metrics) ObserveUpload(result string) {
	if m == nil {
		return
	}
	m.Uploads.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveImport(source, outcome string) {
	if m == nil {
		return
	}
	m.Imports.WithLabelValues(source, outcome).Inc()
}

func (m *Metrics) ObserveOAuth(operation, result string) {
	if m == nil {
		return
	}
	m.OAuth.WithLabelValues(operation, result).Inc()
}

func (m *Metrics) ObserveSwept(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.Swept.Add(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
