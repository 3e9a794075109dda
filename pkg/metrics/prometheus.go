package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	tickDuration  prometheus.Histogram
	overruns      prometheus.Counter
	screened      prometheus.Gauge
	solveFailures prometheus.Counter
	errorsTotal   *prometheus.CounterVec
	lastPrice     *prometheus.GaugeVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		tickDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "optifeed_tick_duration_seconds",
				Help:    "Duration of one full snapshot cycle",
				Buckets: prometheus.DefBuckets,
			},
		),
		overruns: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "optifeed_tick_overruns_total",
				Help: "Ticks that ran longer than the monitor interval",
			},
		),
		screened: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "optifeed_screened_options",
				Help: "Options passing the screen in the latest snapshot",
			},
		),
		solveFailures: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "optifeed_vol_solve_failures_total",
				Help: "Implied volatility solves that failed to converge",
			},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "optifeed_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "optifeed_last_price",
				Help: "Last recorded level for an underlying",
			},
			[]string{"symbol"},
		),
	}
}

// RecordTick records the duration of one snapshot cycle.
func (r *Recorder) RecordTick(seconds float64) {
	r.tickDuration.Observe(seconds)
}

// RecordOverrun records a tick that outlasted the interval.
func (r *Recorder) RecordOverrun() {
	r.overruns.Inc()
}

// RecordScreened records how many options passed the latest screen.
func (r *Recorder) RecordScreened(n int) {
	r.screened.Set(float64(n))
}

// RecordSolveFailure records a failed implied-vol solve.
func (r *Recorder) RecordSolveFailure() {
	r.solveFailures.Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last level for an underlying.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}
