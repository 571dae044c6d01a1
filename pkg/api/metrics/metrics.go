// Package metrics provides the HTTP handler exposing Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nicholas-fedor/dockerpoller/pkg/metrics"
)

// Pattern is the route served by Handler.
const Pattern = "GET /v1/metrics"

// Handler is an HTTP handle for serving metric data.
type Handler struct {
	Pattern string
	Handle  http.HandlerFunc
	Metrics *metrics.Metrics
}

// New creates a handler exposing the default registry, where metrics.Default registers.
func New() *Handler {
	return NewWithGatherer(metrics.Default(), prometheus.DefaultGatherer)
}

// NewWithGatherer creates a handler exposing the metrics collected by gatherer.
func NewWithGatherer(m *metrics.Metrics, gatherer prometheus.Gatherer) *Handler {
	handler := promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})

	return &Handler{
		Pattern: Pattern,
		Handle:  handler.ServeHTTP,
		Metrics: m,
	}
}
