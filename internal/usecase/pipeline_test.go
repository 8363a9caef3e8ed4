package usecase

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudipta6891/OC-Chain-System-ver-01/internal/domain/models"
	"github.com/sudipta6891/OC-Chain-System-ver-01/internal/services/oidelta"
	"github.com/sudipta6891/OC-Chain-System-ver-01/pkg/config"
)

func newTestPipeline(store *memStore) *Pipeline {
	p := NewPipeline(oidelta.NewEngine(store, oidelta.WithLocation(ist)), store, store, nil)
	p.now = func() time.Time { return snapTime.Add(time.Minute) }
	return p
}

func TestEvaluateWithFeaturesDisabled(t *testing.T) {
	store := &memStore{}
	d, err := newTestPipeline(store).Evaluate(context.Background(), testSnapshot(), PipelineOptions{})
	require.NoError(t, err)

	assert.Equal(t, "NSE:NIFTY50-INDEX", d.Symbol)
	assert.True(t, d.Quality.IsUsable)
	assert.Equal(t, models.RegimeUnknown, d.Regime.Label)
	assert.Equal(t, models.CalibrationIdentity, d.Calibration.Method)
	assert.Contains(t, d.Timing.Reasons, "Timing v2 disabled")
	assert.Equal(t, models.OIDeltaNoPrevious, d.OIDelta.Classification)
	assert.Zero(t, store.historyReq)
	assert.Zero(t, store.statsReq)

	assert.Equal(t, 25.0, d.Execution.StopLossPct)
	assert.Equal(t, 45.0, d.Execution.TargetPct)
	assert.Equal(t, 30, d.Execution.TimeStopMin)
	assert.Contains(t, []string{"CE", "PE", models.SideNone}, d.Execution.Side)
	// dynamic OTM and outcome tracking are off, so no selector runs
	assert.Nil(t, d.Selection.Strike)
	assert.False(t, d.Execution.AllowTrade)
	assert.NotEmpty(t, d.Selection.Reasons)
}

func TestEvaluateDegradesOnStoreErrors(t *testing.T) {
	store := &memStore{err: errors.New("db down")}
	opts := PipelineOptions{Features: config.Features{All: true}.Effective(), MinSamples: 10}

	d, err := newTestPipeline(store).Evaluate(context.Background(), testSnapshot(), opts)
	require.NoError(t, err)

	assert.Equal(t, 1, store.historyReq)
	assert.Equal(t, 2, store.statsReq)
	assert.Equal(t, models.CalibrationInsufficientSamples, d.Calibration.Method)
	assert.Equal(t, 10, d.Calibration.MinSamplesRequired)
	assert.Equal(t, models.OIDeltaFetchFailed, d.OIDelta.Classification)
	assert.Zero(t, d.Performance.Trades)
}

func TestEvaluateStaleSnapshotBlocksTrade(t *testing.T) {
	p := newTestPipeline(&memStore{})
	p.now = func() time.Time { return snapTime.Add(2 * time.Hour) }
	opts := PipelineOptions{Features: config.Features{Guardrails: true, DynamicOTM: true}}

	d, err := p.Evaluate(context.Background(), testSnapshot(), opts)
	require.NoError(t, err)
	assert.True(t, d.Quality.StaleData)
	assert.False(t, d.Execution.AllowTrade)
	assert.Nil(t, d.Selection.Strike)
}

func TestEvaluateReturnsContextError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestPipeline(&memStore{}).Evaluate(ctx, testSnapshot(), PipelineOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOptionsFromConfig(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Features.All = true

	opts := OptionsFromConfig(cfg)
	assert.True(t, opts.Features.Calibration)
	assert.Equal(t, cfg.Calibration.MinSamples, opts.MinSamples)
	assert.Equal(t, cfg.Strike.Strategy, opts.StrikeStrategy)
	assert.Equal(t, cfg.Backtest.TimeStopMin, opts.TimeStopMin)
}

// historyStore serves a single earlier chain to the OI delta engine.
type historyStore struct {
	*memStore
	prevAt time.Time
	prev   []models.ChainRow
}

func (s *historyStore) SnapshotTimes(context.Context, string, time.Time, int) ([]time.Time, error) {
	return []time.Time{s.prevAt}, nil
}

func (s *historyStore) SnapshotAt(context.Context, string, time.Time) ([]models.ChainRow, error) {
	return s.prev, nil
}

func TestEvaluateWithNaNOpenInterest(t *testing.T) {
	prevAt := snapTime.Add(-5 * time.Minute)
	prev := testRows(prevAt)
	for i := range prev {
		if prev[i].OptionType == models.CE {
			prev[i].OpenInterest -= 100
		} else {
			prev[i].OpenInterest -= 300
		}
	}
	// rows 8 and 9 are the 22000 CE and PE
	prev[9].OpenInterest = math.NaN()

	snap := testSnapshot()
	snap.Rows[8].OpenInterest = math.NaN()
	snap.Rows[3].IV = iv(math.NaN())

	store := &memStore{}
	hist := &historyStore{memStore: store, prevAt: prevAt, prev: prev}
	p := NewPipeline(oidelta.NewEngine(hist, oidelta.WithLocation(ist)), store, store, nil)
	p.now = func() time.Time { return snapTime.Add(time.Minute) }

	opts := PipelineOptions{Features: config.Features{All: true}.Effective()}
	d, err := p.Evaluate(context.Background(), snap, opts)
	require.NoError(t, err)

	assert.Equal(t, 600, d.OIDelta.CEDelta)
	assert.Equal(t, 3520, d.OIDelta.PEDelta)
	assert.Equal(t, 85, d.OIDelta.BullishProbability)
	assert.Equal(t, 15, d.OIDelta.BearishProbability)

	for name, v := range map[string]int{
		"oi bullish": d.OIDelta.BullishProbability,
		"oi bearish": d.OIDelta.BearishProbability,
		"upside":     d.Probability.UpsideProbability,
		"downside":   d.Probability.DownsideProbability,
	} {
		assert.GreaterOrEqual(t, v, 0, name)
		assert.LessOrEqual(t, v, 100, name)
	}
	assert.GreaterOrEqual(t, d.Bias.MarketScore, -100)
	assert.LessOrEqual(t, d.Bias.MarketScore, 100)
	assert.False(t, math.IsNaN(d.Timing.CalibrationInputProbability))
	assert.False(t, math.IsNaN(d.Calibration.CalibratedProbability))
	assert.Greater(t, d.Summary.TotalCEOI, 0.0)
}
