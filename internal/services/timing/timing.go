// Package timing is the final OTM entry gate of a cycle.
package timing

import (
	"github.com/sudipta6891/OC-Chain-System-ver-01/internal/domain/models"
	"github.com/sudipta6891/OC-Chain-System-ver-01/internal/services/features"
)

const (
	WindowFavorable = "FAVORABLE"
	WindowSelective = "SELECTIVE"
	WindowWait      = "WAIT"

	minAllowScore   = 55
	favorableScore  = 70
	minDirectional  = 15
	minGeeksTiming  = 45
	fallbackMovePct = 0.5
	fallbackInvPct  = 0.25
)

var regimeAdjust = map[string]struct {
	points int
	reason string
}{
	models.RegimeTrend:    {10, "Trend regime supports momentum continuation."},
	models.RegimeRange:    {-6, "Range regime reduces OTM breakout edge."},
	models.RegimeVolatile: {-4, "Volatile regime increases whipsaw risk."},
	models.RegimeTrap:     {-12, "Trap regime raises false-breakout probability."},
}

// Score blends Greeks timing, bias strength and the regime into a single
// entry decision.
func Score(g models.GreeksAnalysis, regime models.RegimeClassification, q models.QualityVerdict, b models.BiasScore) models.TimingDecision {
	abs := b.MarketScore
	if abs < 0 {
		abs = -abs
	}

	timing := 50
	timing += int(0.30 * float64(g.TimingScore))
	timing += int(0.15 * float64(abs))
	timing += int(0.10 * float64(b.Confidence))

	var reasons, blockers []string
	if adj, ok := regimeAdjust[regime.Label]; ok {
		timing += adj.points
		reasons = append(reasons, adj.reason)
	}

	if q.StaleData {
		blockers = append(blockers, "Data is stale.")
	}
	if q.MissingStrikes {
		blockers = append(blockers, "Missing strike continuity near ATM.")
	}
	if len(q.AnomalyFlags) > 0 {
		blockers = append(blockers, "Anomalies detected in option chain.")
	}
	if d := g.DirectionalScore; d > -minDirectional && d < minDirectional {
		blockers = append(blockers, "Directional conviction too low.")
	}
	if g.TimingScore < minGeeksTiming {
		blockers = append(blockers, "Greeks timing quality too low.")
	}

	timing = features.ClampInt(timing, 0, 100)
	allow := len(blockers) == 0 && timing >= minAllowScore
	window := WindowWait
	switch {
	case allow && timing >= favorableScore:
		window = WindowFavorable
	case allow:
		window = WindowSelective
	}

	move := features.Clamp(0.15+float64(abs)*0.015, 0.10, 2.20)
	return models.TimingDecision{
		TimingScoreV2:               timing,
		AllowTrade:                  allow,
		EntryWindow:                 window,
		Reasons:                     reasons,
		Blockers:                    blockers,
		CalibrationInputProbability: CalibrationInput(b.MarketScore),
		ExpectedMovePct:             features.RoundTo(move, 3),
		InvalidationPct:             features.RoundTo(features.Clamp(move*0.45, 0.20, 1.20), 3),
	}
}

// CalibrationInput maps a market score to the raw probability handed to
// calibration.
func CalibrationInput(marketScore int) float64 {
	return features.Clamp(0.5+float64(marketScore)/200, 0.01, 0.99)
}

// Fallback is used when the v2 gate is switched off: Greeks timing and data
// usability decide on their own.
func Fallback(g models.GreeksAnalysis, q models.QualityVerdict, marketScore int) models.TimingDecision {
	return models.TimingDecision{
		TimingScoreV2:               g.TimingScore,
		AllowTrade:                  q.IsUsable,
		EntryWindow:                 g.EntryWindow,
		Reasons:                     []string{"Timing v2 disabled"},
		Blockers:                    []string{},
		CalibrationInputProbability: CalibrationInput(marketScore),
		ExpectedMovePct:             fallbackMovePct,
		InvalidationPct:             fallbackInvPct,
	}
}
