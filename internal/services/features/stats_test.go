package features

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMeanAndMedianSkipNaN(t *testing.T) {
	xs := []float64{1, math.NaN(), 3, 8}
	assert.InDelta(t, 4.0, Mean(xs), 1e-12)
	assert.InDelta(t, 3.0, Median(xs), 1e-12)
	assert.InDelta(t, 2.5, Median([]float64{1, 2, 3, 4}), 1e-12)
	assert.True(t, math.IsNaN(Mean(nil)))
	assert.True(t, math.IsNaN(Median([]float64{math.NaN()})))
}

func TestSampleStd(t *testing.T) {
	assert.InDelta(t, 1.0, SampleStd([]float64{1, 2, 3}), 1e-12)
	assert.True(t, math.IsNaN(SampleStd([]float64{5})))
}

func TestQuantileLinear(t *testing.T) {
	xs := []float64{10, 20, 30, 40, 50}
	assert.InDelta(t, 38.0, Quantile(xs, 0.7), 1e-12)
	assert.InDelta(t, 10.0, Quantile(xs, 0), 1e-12)
	assert.InDelta(t, 50.0, Quantile(xs, 1), 1e-12)
	assert.InDelta(t, 7.0, Quantile([]float64{7}, 0.7), 1e-12)
}

func TestRoundToHalfEven(t *testing.T) {
	assert.Equal(t, 2, RoundInt(2.5))
	assert.Equal(t, 4, RoundInt(3.5))
	assert.Equal(t, -2, RoundInt(-2.5))
	assert.InDelta(t, 1.2346, RoundTo(1.23456, 4), 1e-12)
}

func TestClampAndLast(t *testing.T) {
	assert.Equal(t, 1.0, Clamp(3, 0, 1))
	assert.Equal(t, -100, ClampInt(-150, -100, 100))
	assert.Equal(t, []float64{3, 4}, Last([]float64{1, 2, 3, 4}, 2))
	assert.Equal(t, []float64{1}, Last([]float64{1}, 5))
}
