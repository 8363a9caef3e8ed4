package regime

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sudipta6891/OC-Chain-System-ver-01/internal/domain/models"
)

func history(spots []float64, pcrs []float64) []models.SummaryRow {
	out := make([]models.SummaryRow, len(spots))
	for i, s := range spots {
		out[i] = models.SummaryRow{SpotPrice: s, PCR: 1.0}
		if pcrs != nil {
			out[i].PCR = pcrs[i]
		}
	}
	return out
}

func TestDetectEmptyHistory(t *testing.T) {
	r := Detect(nil, nil, models.OIDelta{})
	assert.Equal(t, models.RegimeUnknown, r.Label)
	assert.Zero(t, r.Confidence)
	assert.Equal(t, []string{"Insufficient summary history"}, r.WhyNow)
}

func TestDetectRangeOnSlowDecline(t *testing.T) {
	r := Detect(history([]float64{22000, 21995, 21990, 21985, 21980}, nil), nil, models.OIDelta{})
	assert.Equal(t, models.RegimeRange, r.Label)
	assert.Equal(t, 74, r.Confidence)
	assert.InDelta(t, 5.0, r.Features.ATRProxy, 1e-9)
	assert.InDelta(t, -20.0, r.Features.TrendSlope, 1e-9)
	assert.InDelta(t, 0.45, r.Features.IVPercentile, 1e-9)
	assert.Equal(t, []string{
		"Volume breadth is weak; confirmation is limited.",
		"OI acceleration is low; move persistence risk is higher.",
	}, r.WhyNotNow)
}

func TestDetectTrend(t *testing.T) {
	r := Detect(history([]float64{22000, 22150, 22300, 22450, 22600}, nil), nil, models.OIDelta{AccelerationProbability: 50})
	assert.Equal(t, models.RegimeTrend, r.Label)
	assert.Equal(t, 90, r.Confidence)
	assert.InDelta(t, 600.0, r.Features.TrendSlope, 1e-9)
}

func TestDetectVolatile(t *testing.T) {
	r := Detect(
		history([]float64{22000, 22200, 22000, 22200, 22000}, []float64{0.7, 1.2, 0.7, 1.2, 0.7}),
		nil, models.OIDelta{AccelerationProbability: 50},
	)
	assert.Equal(t, models.RegimeVolatile, r.Label)
	assert.Equal(t, 77, r.Confidence)
	assert.InDelta(t, 0.2739, r.Features.PCRVol, 1e-4)
}

func TestDetectTrap(t *testing.T) {
	iv := 40.0
	rows := []models.ChainRow{
		{StrikePrice: 22000, OptionType: models.CE, Volume: 900, IV: &iv},
		{StrikePrice: 22000, OptionType: models.PE, Volume: 100, IV: &iv},
	}
	r := Detect(history([]float64{22000, 22000, 22000}, nil), rows, models.OIDelta{AccelerationProbability: 70})
	assert.Equal(t, models.RegimeTrap, r.Label)
	assert.Equal(t, 80, r.Confidence)
	assert.InDelta(t, 0.8, r.Features.Breadth, 1e-9)
	assert.Equal(t, []string{"IV is elevated; OTM long premium is expensive."}, r.WhyNotNow)
}

func TestConfidenceBounds(t *testing.T) {
	spots := []float64{100, 5000, 100, 90000, 10}
	for _, acc := range []int{0, 65, 100} {
		r := Detect(history(spots, []float64{0.1, 5, 0.1, 5, 0.1}), nil, models.OIDelta{AccelerationProbability: acc})
		assert.GreaterOrEqual(t, r.Confidence, 0)
		assert.LessOrEqual(t, r.Confidence, 90)
	}
}
