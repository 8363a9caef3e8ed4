package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudipta6891/OC-Chain-System-ver-01/internal/domain/models"
	"github.com/sudipta6891/OC-Chain-System-ver-01/pkg/cache"
)

type countingOutcomes struct {
	samples []models.CalibrationSample
	err     error
	calls   int
}

func (c *countingOutcomes) UpsertOutcome(context.Context, models.TradeOutcome) error { return nil }

func (c *countingOutcomes) CalibrationSamples(context.Context, string, int) ([]models.CalibrationSample, error) {
	c.calls++
	return c.samples, c.err
}

func (c *countingOutcomes) RecentPerformance(context.Context, string, int) (models.Performance, error) {
	return models.Performance{Trades: 3}, nil
}

func newMemCache(t *testing.T) *cache.MemoryCache {
	t.Helper()
	mc := cache.NewMemoryCache()
	t.Cleanup(func() { _ = mc.Close() })
	return mc
}

func TestCachedOutcomeStoreCachesSamples(t *testing.T) {
	inner := &countingOutcomes{samples: []models.CalibrationSample{{RawProbability: 0.6, Outcome: 1}}}
	s := NewCachedOutcomeStore(inner, newMemCache(t), time.Minute)
	ctx := context.Background()

	first, err := s.CalibrationSamples(ctx, "NIFTY", 45)
	require.NoError(t, err)
	second, err := s.CalibrationSamples(ctx, "NIFTY", 45)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.calls)

	_, err = s.CalibrationSamples(ctx, "NIFTY", 30)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)

	perf, err := s.RecentPerformance(ctx, "NIFTY", 20)
	require.NoError(t, err)
	assert.Equal(t, 3, perf.Trades)
}

func TestCachedOutcomeStoreDoesNotCacheErrors(t *testing.T) {
	inner := &countingOutcomes{err: errors.New("db down")}
	s := NewCachedOutcomeStore(inner, newMemCache(t), time.Minute)

	_, err := s.CalibrationSamples(context.Background(), "NIFTY", 45)
	require.Error(t, err)
	inner.err = nil
	samples, err := s.CalibrationSamples(context.Background(), "NIFTY", 45)
	require.NoError(t, err)
	assert.Empty(t, samples)
	assert.Equal(t, 2, inner.calls)
}

func TestDecisionCache(t *testing.T) {
	dc := NewDecisionCache(newMemCache(t), time.Hour)
	ctx := context.Background()

	_, err := dc.LatestDecision(ctx, "NIFTY")
	require.ErrorIs(t, err, cache.ErrCacheMiss)

	strike := 22100.0
	in := models.Decision{CycleID: "c-9", Symbol: "NIFTY", Spot: 22010, Selection: models.StrikeSelection{Strike: &strike}}
	require.NoError(t, dc.SaveDecision(ctx, in))

	out, err := dc.LatestDecision(ctx, "NIFTY")
	require.NoError(t, err)
	assert.Equal(t, "c-9", out.CycleID)
	require.NotNil(t, out.Selection.Strike)
	assert.Equal(t, 22100.0, *out.Selection.Strike)
}
