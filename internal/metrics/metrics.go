// Package metrics owns the Prometheus registry and the collectors the API
// exports on /metrics.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry is the dedicated Prometheus registry for the API.
	Registry = prometheus.NewRegistry()

	// HTTPRequests counts requests by method, route pattern and status.
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "route", "status"},
	)
	// HTTPDuration records request durations in seconds.
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "route", "status"},
	)

	// Generations counts text generation calls by purpose and result.
	Generations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "text_generations_total", Help: "Text generation calls by purpose and result."},
		[]string{"purpose", "result"},
	)
	// PlaceHoursLookups counts opening-hours lookups by cache result.
	PlaceHoursLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "place_hours_lookups_total", Help: "Opening-hours lookups by cache result (hit, miss, error)."},
		[]string{"result"},
	)
	// Verdicts counts next-stop feasibility verdicts by outcome.
	Verdicts = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "feasibility_verdicts_total", Help: "Next-stop feasibility verdicts by outcome."},
		[]string{"outcome"},
	)
)

var regOnce sync.Once

// Register adds every collector to Registry. Safe to call more than once.
func Register() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(Generations)
		Registry.MustRegister(PlaceHoursLookups)
		Registry.MustRegister(Verdicts)
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	Register()
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}
