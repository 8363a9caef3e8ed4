package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.RecordCycle("NSE:NIFTY50-INDEX", "ok")
	r.RecordCycle("NSE:NIFTY50-INDEX", "ok")
	r.RecordCycle("NSE:NIFTY50-INDEX", "busy")
	r.RecordError("persist_snapshot")
	r.RecordDecision("NSE:NIFTY50-INDEX", 46, 0.61)
	r.RecordSignal("NSE:NIFTY50-INDEX", "CE")
	r.RecordStageLatency("evaluate", 0.02)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.cycles.WithLabelValues("NSE:NIFTY50-INDEX", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.cycles.WithLabelValues("NSE:NIFTY50-INDEX", "busy")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.errorsTotal.WithLabelValues("persist_snapshot")))
	assert.Equal(t, 46.0, testutil.ToFloat64(r.marketScore.WithLabelValues("NSE:NIFTY50-INDEX")))
	assert.InDelta(t, 0.61, testutil.ToFloat64(r.calibrated.WithLabelValues("NSE:NIFTY50-INDEX")), 1e-12)
	assert.Equal(t, 1.0, testutil.ToFloat64(r.signals.WithLabelValues("NSE:NIFTY50-INDEX", "CE")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.stageLatency))
}
