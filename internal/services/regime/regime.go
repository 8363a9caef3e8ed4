// Package regime labels the prevailing market regime from recent chain
// summaries, the current chain and OI acceleration.
package regime

import (
	"math"

	"github.com/sudipta6891/OC-Chain-System-ver-01/internal/domain/models"
	"github.com/sudipta6891/OC-Chain-System-ver-01/internal/services/features"
	"github.com/sudipta6891/OC-Chain-System-ver-01/internal/services/greeks"
)

// HistoryWindow is the number of prior summaries read per cycle.
const HistoryWindow = 24

const (
	atrWindow    = 12
	slopeWindow  = 5
	pcrVolWindow = 8
	defaultIVPct = 0.45
)

// Detect classifies the regime. history must be ordered oldest first.
func Detect(history []models.SummaryRow, rows []models.ChainRow, oiDelta models.OIDelta) models.RegimeClassification {
	if len(history) == 0 {
		return models.RegimeClassification{
			Label:      models.RegimeUnknown,
			Confidence: 0,
			WhyNow:     []string{"Insufficient summary history"},
			WhyNotNow:  []string{"No historical context to classify regime"},
		}
	}

	spots := make([]float64, 0, len(history))
	pcrs := make([]float64, 0, len(history))
	for _, h := range history {
		if !math.IsNaN(h.SpotPrice) {
			spots = append(spots, h.SpotPrice)
		}
		if !math.IsNaN(h.PCR) {
			pcrs = append(pcrs, h.PCR)
		}
	}

	atr := atrProxy(spots)
	avgSpot := 0.0
	if len(spots) > 0 {
		avgSpot = features.Mean(features.Last(spots, atrWindow))
		if avgSpot == 0 {
			avgSpot = spots[len(spots)-1]
		}
	}
	atrPct := atr / math.Max(1, avgSpot) * 100
	ivPct := ivPercentile(rows)
	breadth := volumeBreadth(rows, avgSpot)
	oiAcc := oiDelta.AccelerationProbability

	slope := 0.0
	if len(spots) >= slopeWindow {
		tail := features.Last(spots, slopeWindow)
		slope = tail[len(tail)-1] - tail[0]
	}

	pcrVol := 0.0
	if len(pcrs) >= 2 {
		pcrVol = features.Or(features.SampleStd(features.Last(pcrs, pcrVolWindow)), 0)
	}

	out := models.RegimeClassification{}
	switch {
	case atrPct > 0.55 && math.Abs(slope) > avgSpot*0.003:
		out.Label = models.RegimeTrend
		out.Confidence = min(90, int(55+math.Abs(slope)/math.Max(1, avgSpot)*10000))
		out.WhyNow = append(out.WhyNow, "Range expansion with directional slope confirms trend regime.")
	case atrPct > 0.75 && pcrVol > 0.15:
		out.Label = models.RegimeVolatile
		out.Confidence = min(90, int(50+atrPct*30))
		out.WhyNow = append(out.WhyNow, "High ATR proxy and unstable positioning indicate volatile regime.")
	case oiAcc >= 65 && ivPct > 0.70:
		out.Label = models.RegimeTrap
		out.Confidence = min(85, int(45+float64(oiAcc)*0.5))
		out.WhyNow = append(out.WhyNow, "High OI acceleration with elevated IV often precedes trap moves.")
	default:
		out.Label = models.RegimeRange
		out.Confidence = min(85, int(45+(1-math.Min(1, atrPct))*30))
		out.WhyNow = append(out.WhyNow, "Contained ATR proxy and muted slope indicate range behavior.")
	}

	if ivPct > 0.8 {
		out.WhyNotNow = append(out.WhyNotNow, "IV is elevated; OTM long premium is expensive.")
	}
	if math.Abs(breadth) < 0.08 {
		out.WhyNotNow = append(out.WhyNotNow, "Volume breadth is weak; confirmation is limited.")
	}
	if oiAcc < 35 {
		out.WhyNotNow = append(out.WhyNotNow, "OI acceleration is low; move persistence risk is higher.")
	}

	out.Features = models.RegimeFeatures{
		ATRProxy:     features.RoundTo(atr, 2),
		ATRPct:       features.RoundTo(atrPct, 4),
		IVPercentile: features.RoundTo(ivPct, 4),
		Breadth:      features.RoundTo(breadth, 4),
		OIAccelProb:  oiAcc,
		TrendSlope:   features.RoundTo(slope, 2),
		PCRVol:       features.RoundTo(pcrVol, 4),
	}
	return out
}

// atrProxy is the mean absolute spot change over the last twelve steps.
func atrProxy(spots []float64) float64 {
	if len(spots) < 3 {
		return 0
	}
	moves := make([]float64, 0, len(spots)-1)
	for i := 1; i < len(spots); i++ {
		moves = append(moves, math.Abs(spots[i]-spots[i-1]))
	}
	return features.Or(features.Mean(features.Last(moves, atrWindow)), 0)
}

// ivPercentile rescales the median chain IV into the 10%..45% band.
func ivPercentile(rows []models.ChainRow) float64 {
	iv := greeks.MedianIV(rows, "")
	if math.IsNaN(iv) {
		return defaultIVPct
	}
	iv = greeks.NormalizeIV(iv)
	return features.Clamp((iv-0.10)/math.Max(0.01, 0.45-0.10), 0, 1)
}

// volumeBreadth is the signed CE/PE volume imbalance within 2% of spot.
func volumeBreadth(rows []models.ChainRow, spot float64) float64 {
	if len(rows) == 0 {
		return 0
	}
	var ceNear, peNear, ceAll, peAll float64
	near := 0
	for _, r := range rows {
		v := features.Or(r.Volume, 0)
		inBand := r.StrikePrice >= spot*0.98 && r.StrikePrice <= spot*1.02
		if inBand {
			near++
		}
		switch r.OptionType {
		case models.CE:
			ceAll += v
			if inBand {
				ceNear += v
			}
		case models.PE:
			peAll += v
			if inBand {
				peNear += v
			}
		}
	}
	ce, pe := ceNear, peNear
	if near == 0 {
		ce, pe = ceAll, peAll
	}
	if ce+pe == 0 {
		return 0
	}
	return (ce - pe) / (ce + pe)
}
