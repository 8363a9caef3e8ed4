// Package strike picks the OTM strike to trade once a side is chosen.
package strike

import (
	"fmt"
	"math"

	"github.com/sudipta6891/OC-Chain-System-ver-01/internal/domain/models"
	"github.com/sudipta6891/OC-Chain-System-ver-01/internal/domain/service"
	"github.com/sudipta6891/OC-Chain-System-ver-01/internal/services/chain"
	"github.com/sudipta6891/OC-Chain-System-ver-01/internal/services/features"
	"github.com/sudipta6891/OC-Chain-System-ver-01/internal/services/greeks"
)

const (
	StrategyDynamic  = "dynamic"
	StrategyDistance = "distance"

	skewScale    = 0.12
	thetaScale   = 9.0
	deltaSpread  = 0.20
	liquidityRef = 0.7
)

type deltaBand struct{ low, high float64 }

func (b deltaBand) center() float64 { return (b.low + b.high) / 2 }

func targetBand(regime string) deltaBand {
	switch regime {
	case models.RegimeTrend:
		return deltaBand{0.18, 0.32}
	case models.RegimeVolatile:
		return deltaBand{0.10, 0.22}
	case models.RegimeRange:
		return deltaBand{0.12, 0.22}
	case models.RegimeTrap:
		return deltaBand{0.08, 0.18}
	}
	return deltaBand{0.15, 0.28}
}

// DynamicSelector scores every OTM candidate on delta fit, liquidity,
// theta, IV skew and breakout alignment.
type DynamicSelector struct{}

var _ service.StrikeSelector = (*DynamicSelector)(nil)

func NewDynamicSelector() *DynamicSelector { return &DynamicSelector{} }

func (s *DynamicSelector) Name() string { return StrategyDynamic }

func none(strategy, reason string) models.StrikeSelection {
	return models.StrikeSelection{Strategy: strategy, Reasons: []string{reason}}
}

// refLevel is the 70th percentile of xs, falling back to the mean and then 1.
func refLevel(xs []float64) float64 {
	if q := features.Quantile(xs, liquidityRef); q != 0 && !math.IsNaN(q) {
		return q
	}
	if m := features.Mean(xs); m != 0 && !math.IsNaN(m) {
		return m
	}
	return 1
}

// ivSkew is median PE IV minus median CE IV, zero when either is missing.
func ivSkew(rows []models.ChainRow) float64 {
	ce, pe := greeks.MedianIV(rows, models.CE), greeks.MedianIV(rows, models.PE)
	if math.IsNaN(ce) || math.IsNaN(pe) {
		return 0
	}
	return greeks.NormalizeIV(pe) - greeks.NormalizeIV(ce)
}

func skewScore(side models.OptionType, skew float64) float64 {
	if side == models.CE {
		if skew <= 0 {
			return 1
		}
		return math.Max(0, 1-math.Min(1, skew/skewScale))
	}
	if skew >= 0 {
		return 1
	}
	return math.Max(0, 1-math.Min(1, math.Abs(skew)/skewScale))
}

func momentumScore(side models.OptionType, breakout string) float64 {
	switch {
	case breakout == chain.BreakoutBullish && side == models.CE:
		return 1
	case breakout == chain.BreakoutBearish && side == models.PE:
		return 1
	case breakout == chain.BreakoutNone:
		return 0.35
	}
	return 0.5
}

func otm(side models.OptionType, strike, atm float64) bool {
	if side == models.CE {
		return strike > atm
	}
	return strike < atm
}

func (s *DynamicSelector) Select(rows []models.ChainRow, req models.StrikeRequest) models.StrikeSelection {
	if len(rows) == 0 || (req.Side != models.CE && req.Side != models.PE) {
		return none(StrategyDynamic, "No eligible chain data.")
	}

	var tradable []models.ChainRow
	for _, r := range rows {
		if r.OptionType == req.Side && !math.IsNaN(r.LTP) && r.LTP > 0 {
			tradable = append(tradable, r)
		}
	}
	if len(tradable) == 0 {
		return none(StrategyDynamic, "No tradable strikes found.")
	}

	var cands []models.ChainRow
	for _, r := range tradable {
		if otm(req.Side, r.StrikePrice, req.ATM) {
			cands = append(cands, r)
		}
	}
	if len(cands) == 0 {
		return none(StrategyDynamic, "No OTM strikes found.")
	}

	timeYears := greeks.TimeToExpiryYears(rows, req.SnapshotTime)
	sigma := greeks.InferSigma(rows, req.Spot, req.ATM)
	band := targetBand(req.Regime)
	skew := ivSkew(rows)

	vols := make([]float64, len(cands))
	ois := make([]float64, len(cands))
	for i, r := range cands {
		vols[i] = features.Or(r.Volume, 0)
		ois[i] = features.Or(r.OpenInterest, 0)
	}
	volRef, oiRef := refLevel(vols), refLevel(ois)

	type scored struct {
		row                    models.ChainRow
		score, delta, theta, v float64
	}
	var best *scored
	for i, r := range cands {
		g := greeks.BlackScholes(req.Spot, r.StrikePrice, timeYears, sigma, req.Side)
		deltaAbs, thetaAbs := math.Abs(g.Delta), math.Abs(g.Theta)

		deltaFit := 1 - math.Min(1, math.Abs(deltaAbs-band.center())/deltaSpread)
		liquidity := math.Min(1, vols[i]/math.Max(1, volRef)*0.6+ois[i]/math.Max(1, oiRef)*0.4)
		thetaFit := math.Max(0, 1-math.Min(1, thetaAbs/thetaScale))

		total := 0.32*deltaFit +
			0.28*liquidity +
			0.18*thetaFit +
			0.10*skewScore(req.Side, skew) +
			0.12*momentumScore(req.Side, req.Breakout)

		if best == nil || total > best.score {
			best = &scored{row: r, score: total, delta: deltaAbs, theta: thetaAbs, v: g.Vega}
		}
	}

	strike, ltp := best.row.StrikePrice, best.row.LTP
	return models.StrikeSelection{
		Strike:   &strike,
		EntryLTP: &ltp,
		Score:    features.RoundTo(best.score*100, 2),
		DeltaAbs: features.RoundTo(best.delta, 4),
		ThetaAbs: features.RoundTo(best.theta, 4),
		Vega:     features.RoundTo(best.v, 4),
		Strategy: StrategyDynamic,
		Reasons: []string{
			fmt.Sprintf("Selected strike with highest blended score (%.2f).", best.score),
			fmt.Sprintf("Delta abs %.2f in target regime band [%.2f, %.2f].", best.delta, band.low, band.high),
			fmt.Sprintf("Theta abs %.2f and liquidity considered.", best.theta),
		},
	}
}
