package calibration

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudipta6891/OC-Chain-System-ver-01/internal/domain/models"
)

func randomSamples(r *rand.Rand, n int) []models.CalibrationSample {
	out := make([]models.CalibrationSample, n)
	for i := range out {
		p := r.Float64()
		y := 0
		if r.Float64() < p {
			y = 1
		}
		out[i] = models.CalibrationSample{RawProbability: p, Outcome: y}
	}
	return out
}

func TestCalibrateInsufficientSamples(t *testing.T) {
	c := Calibrate(1.4, randomSamples(rand.New(rand.NewSource(1)), 5), 30)
	assert.Equal(t, models.CalibrationInsufficientSamples, c.Method)
	assert.InDelta(t, 0.99, c.CalibratedProbability, 1e-12)
	assert.Equal(t, 5, c.SampleSize)
	assert.Equal(t, 30, c.MinSamplesRequired)
	assert.Nil(t, c.Platt)

	c = Calibrate(0.4, nil, 0)
	assert.Equal(t, 1, c.MinSamplesRequired)
	assert.Equal(t, models.CalibrationInsufficientSamples, c.Method)
}

func TestCalibrateAlwaysInBounds(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	sets := [][]models.CalibrationSample{
		randomSamples(r, 40),
		randomSamples(r, 200),
		make([]models.CalibrationSample, 35),
	}
	allWins := make([]models.CalibrationSample, 35)
	for i := range allWins {
		allWins[i] = models.CalibrationSample{RawProbability: 0.9, Outcome: 1}
	}
	sets = append(sets, allWins)

	for _, samples := range sets {
		for _, p := range []float64{-1, 0, 0.01, 0.2, 0.5, 0.77, 0.99, 1, 2} {
			c := Calibrate(p, samples, 30)
			require.Equal(t, models.CalibrationPlattIsotonicBlend, c.Method)
			assert.GreaterOrEqual(t, c.CalibratedProbability, 0.01)
			assert.LessOrEqual(t, c.CalibratedProbability, 0.99)
			require.NotNil(t, c.Platt)
			require.NotNil(t, c.Isotonic)
		}
	}
}

func TestIsotonicBlocksAreMonotonic(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		blocks := FitIsotonic(randomSamples(r, 10+r.Intn(200)))
		require.NotEmpty(t, blocks)
		for j := 1; j < len(blocks); j++ {
			assert.LessOrEqual(t, blocks[j-1].Mean, blocks[j].Mean)
			assert.LessOrEqual(t, blocks[j-1].XMax, blocks[j].XMin)
		}
	}
}

func TestIsotonicPooling(t *testing.T) {
	blocks := FitIsotonic([]models.CalibrationSample{
		{RawProbability: 0.3, Outcome: 1},
		{RawProbability: 0.1, Outcome: 1},
		{RawProbability: 0.2, Outcome: 0},
	})
	assert.Equal(t, []Block{{XMin: 0.1, XMax: 0.2, Mean: 0.5}, {XMin: 0.3, XMax: 0.3, Mean: 1}}, blocks)

	assert.InDelta(t, 0.5, ApplyIsotonic(blocks, 0.15), 1e-12)
	assert.InDelta(t, 0.5, ApplyIsotonic(blocks, 0.05), 1e-12)
	assert.InDelta(t, 1.0, ApplyIsotonic(blocks, 0.95), 1e-12)
	assert.InDelta(t, 1.0, ApplyIsotonic(blocks, 0.25), 1e-12)
	assert.InDelta(t, 0.42, ApplyIsotonic(nil, 0.42), 1e-12)
}

func TestCalibrationPullsDownOverconfidence(t *testing.T) {
	// Raw ~0.8 wins only half the time.
	samples := make([]models.CalibrationSample, 0, 60)
	for i := 0; i < 30; i++ {
		samples = append(samples,
			models.CalibrationSample{RawProbability: 0.8 + float64(i)*1e-4, Outcome: i % 2},
			models.CalibrationSample{RawProbability: 0.2, Outcome: 0},
		)
	}
	query := samples[30].RawProbability
	c := Calibrate(query, samples, 30)
	assert.Less(t, c.CalibratedProbability, 0.8)
	assert.Less(t, *c.Platt, 0.8)
	assert.InDelta(t, 0.5, *c.Isotonic, 1e-12)
}

func TestIdentity(t *testing.T) {
	c := Identity(0.005)
	assert.Equal(t, models.CalibrationIdentity, c.Method)
	assert.InDelta(t, 0.01, c.CalibratedProbability, 1e-12)
	assert.Zero(t, c.SampleSize)
}

func TestCalibrateNaN(t *testing.T) {
	c := Calibrate(math.NaN(), nil, 30)
	assert.Equal(t, models.CalibrationInsufficientSamples, c.Method)
	assert.InDelta(t, 0.5, c.CalibratedProbability, 1e-12)

	samples := randomSamples(rand.New(rand.NewSource(7)), 40)
	samples = append(samples, models.CalibrationSample{RawProbability: math.NaN(), Outcome: 1})
	c = Calibrate(math.NaN(), samples, 30)
	require.Equal(t, models.CalibrationPlattIsotonicBlend, c.Method)
	assert.Equal(t, 40, c.SampleSize)
	assert.False(t, math.IsNaN(c.CalibratedProbability))
	assert.False(t, math.IsNaN(*c.Platt))
	assert.GreaterOrEqual(t, c.CalibratedProbability, 0.01)
	assert.LessOrEqual(t, c.CalibratedProbability, 0.99)

	assert.InDelta(t, 0.5, Identity(math.NaN()).CalibratedProbability, 1e-12)
}
