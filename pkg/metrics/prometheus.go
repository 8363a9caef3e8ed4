package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	cycles       *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	stageLatency *prometheus.HistogramVec
	marketScore  *prometheus.GaugeVec
	calibrated   *prometheus.GaugeVec
	signals      *prometheus.CounterVec
}

// New creates a recorder registered on reg. A nil reg uses the default
// Prometheus registerer.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Recorder{
		cycles: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ocsignal_cycles_total",
				Help: "Signal cycles by symbol and result",
			},
			[]string{"symbol", "result"},
		),
		errorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ocsignal_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		stageLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ocsignal_stage_duration_seconds",
				Help:    "Duration of cycle stages in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"stage"},
		),
		marketScore: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "ocsignal_market_score",
				Help: "Last fused market score per symbol",
			},
			[]string{"symbol"},
		),
		calibrated: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "ocsignal_calibrated_probability",
				Help: "Last calibrated probability per symbol",
			},
			[]string{"symbol"},
		),
		signals: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ocsignal_signals_total",
				Help: "Trade signals emitted by symbol and side",
			},
			[]string{"symbol", "side"},
		),
	}
}

func (r *Recorder) RecordCycle(symbol, result string) {
	r.cycles.WithLabelValues(symbol, result).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordStageLatency records stage latency in seconds.
func (r *Recorder) RecordStageLatency(stage string, seconds float64) {
	r.stageLatency.WithLabelValues(stage).Observe(seconds)
}

func (r *Recorder) RecordDecision(symbol string, marketScore int, calibratedProb float64) {
	r.marketScore.WithLabelValues(symbol).Set(float64(marketScore))
	r.calibrated.WithLabelValues(symbol).Set(calibratedProb)
}

func (r *Recorder) RecordSignal(symbol, side string) {
	r.signals.WithLabelValues(symbol, side).Inc()
}

// Nop discards all observations.
type Nop struct{}

func (Nop) RecordCycle(string, string)          {}
func (Nop) RecordStageLatency(string, float64)  {}
func (Nop) RecordError(string)                  {}
func (Nop) RecordDecision(string, int, float64) {}
func (Nop) RecordSignal(string, string)         {}
