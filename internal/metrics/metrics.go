package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Batch scenario outcomes
const (
	OutcomeOK      = "ok"
	OutcomeError   = "error"
	OutcomeTimeout = "timeout"
	OutcomeCached  = "cached"
)

// Registry holds all Prometheus metrics for the stress engine
// 전역 레지스트리 대신 인스턴스별 레지스트리 (테스트에서 중복 등록 방지)
type Registry struct {
	reg *prometheus.Registry

	Optimizations        *prometheus.CounterVec
	OptimizationDuration prometheus.Histogram
	SeverityFallbacks    *prometheus.CounterVec
	BatchScenarios       *prometheus.CounterVec
	BatchDuration        prometheus.Histogram
	WorstLossRatio       prometheus.Gauge
	HTTPRequests         *prometheus.CounterVec
}

// NewRegistry creates and registers all collectors
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),

		Optimizations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hedgestress_optimizations_total",
				Help: "Worst-case searches by outcome (converged/non_converged)",
			},
			[]string{"outcome"},
		),

		OptimizationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "hedgestress_optimization_duration_seconds",
				Help:    "Duration of one worst-case search in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
		),

		SeverityFallbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hedgestress_severity_fallbacks_total",
				Help: "Joint severity computations that used the euclidean fallback",
			},
			[]string{"scenario"},
		),

		BatchScenarios: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hedgestress_batch_scenarios_total",
				Help: "Scenarios processed by batch runs, by outcome",
			},
			[]string{"outcome"},
		),

		BatchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "hedgestress_batch_duration_seconds",
				Help:    "Wall-clock duration of a batch run",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
			},
		),

		WorstLossRatio: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "hedgestress_last_run_worst_loss_ratio",
				Help: "Largest loss ratio across scenarios in the last batch run",
			},
		),

		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hedgestress_http_requests_total",
				Help: "HTTP API requests by route and status code",
			},
			[]string{"route", "code"},
		),
	}

	r.reg.MustRegister(
		r.Optimizations,
		r.OptimizationDuration,
		r.SeverityFallbacks,
		r.BatchScenarios,
		r.BatchDuration,
		r.WorstLossRatio,
		r.HTTPRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return r
}

// Handler exposes the registry for scraping
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// Gatherer returns the underlying registry
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// ObserveOptimization records one worst-case search
func (r *Registry) ObserveOptimization(_ string, converged bool, elapsed time.Duration) {
	outcome := "converged"
	if !converged {
		outcome = "non_converged"
	}
	r.Optimizations.WithLabelValues(outcome).Inc()
	r.OptimizationDuration.Observe(elapsed.Seconds())
}

// SeverityFallback records a euclidean severity fallback
func (r *Registry) SeverityFallback(scenario string) {
	if scenario == "" {
		scenario = "unknown"
	}
	r.SeverityFallbacks.WithLabelValues(scenario).Inc()
}

// ObserveScenario records one batch scenario outcome
func (r *Registry) ObserveScenario(outcome string) {
	r.BatchScenarios.WithLabelValues(outcome).Inc()
}

// ObserveBatch records a finished batch run
func (r *Registry) ObserveBatch(elapsed time.Duration, worstLossRatio float64) {
	r.BatchDuration.Observe(elapsed.Seconds())
	r.WorstLossRatio.Set(worstLossRatio)
}

// ObserveRequest records one HTTP request
func (r *Registry) ObserveRequest(route, code string) {
	r.HTTPRequests.WithLabelValues(route, code).Inc()
}
