// Package telemetry exposes the process's Prometheus metrics registry,
// adapted from the teacher's pipeline metrics to this pipeline's stages:
// ingestion, indicator computation, scoring, and signal generation.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds every metric the orchestrator and ingestion engine
// update as they run.
type Registry struct {
	StageDuration *prometheus.HistogramVec
	BarsStored    *prometheus.CounterVec
	SignalsEmitted *prometheus.CounterVec
	SymbolFailures *prometheus.CounterVec
	WatermarkAge  *prometheus.GaugeVec
	CircuitState  *prometheus.GaugeVec
	BatchDuration prometheus.Histogram
	ActiveRun     prometheus.Gauge
}

// NewRegistry builds a Registry. Call MustRegister against a
// prometheus.Registerer (typically prometheus.NewRegistry()) before
// serving it.
func NewRegistry() *Registry {
	return &Registry{
		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vnquant_stage_duration_seconds",
				Help:    "Duration of each pipeline stage (ingest, indicator, scoring, signal) per symbol",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"stage", "result"},
		),
		BarsStored: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vnquant_bars_stored_total",
				Help: "Bars stored by the ingestion engine, by symbol",
			},
			[]string{"symbol"},
		),
		SignalsEmitted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vnquant_signals_emitted_total",
				Help: "Signals emitted by the signal engine, by symbol and action",
			},
			[]string{"symbol", "action"},
		),
		SymbolFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vnquant_symbol_failures_total",
				Help: "Per-symbol pipeline failures by error kind",
			},
			[]string{"symbol", "kind"},
		),
		WatermarkAge: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "vnquant_watermark_age_days",
				Help: "Days between a symbol's watermark and the effective trading-day bound",
			},
			[]string{"symbol"},
		),
		CircuitState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "vnquant_circuit_state",
				Help: "Circuit breaker state per provider (0=closed, 1=half-open, 2=open)",
			},
			[]string{"provider"},
		),
		BatchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "vnquant_batch_duration_seconds",
				Help:    "Duration of one orchestrator batch",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300},
			},
		),
		ActiveRun: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "vnquant_active_run",
				Help: "1 while an orchestrator run is in progress, 0 otherwise",
			},
		),
	}
}

// MustRegister registers every collector against reg.
func (r *Registry) MustRegister(reg *prometheus.Registry) {
	reg.MustRegister(
		r.StageDuration, r.BarsStored, r.SignalsEmitted, r.SymbolFailures,
		r.WatermarkAge, r.CircuitState, r.BatchDuration, r.ActiveRun,
	)
}
