package strike

import (
	"fmt"
	"math"

	"github.com/sudipta6891/OC-Chain-System-ver-01/internal/domain/models"
	"github.com/sudipta6891/OC-Chain-System-ver-01/internal/domain/service"
)

const DefaultDistancePct = 2.0

// DistanceSelector takes the strike nearest to spot moved DistancePct
// percent out of the money, at or beyond that target.
type DistanceSelector struct {
	DistancePct float64
}

var _ service.StrikeSelector = (*DistanceSelector)(nil)

func NewDistanceSelector(pct float64) *DistanceSelector {
	if pct <= 0 {
		pct = DefaultDistancePct
	}
	return &DistanceSelector{DistancePct: pct}
}

func (s *DistanceSelector) Name() string { return StrategyDistance }

func (s *DistanceSelector) Select(rows []models.ChainRow, req models.StrikeRequest) models.StrikeSelection {
	var target float64
	switch req.Side {
	case models.CE:
		target = req.Spot * (1 + s.DistancePct/100)
	case models.PE:
		target = req.Spot * (1 - s.DistancePct/100)
	default:
		return none(StrategyDistance, "Invalid side for fallback picker.")
	}

	var pick *models.ChainRow
	bestDist := math.Inf(1)
	for i := range rows {
		r := &rows[i]
		if r.OptionType != req.Side {
			continue
		}
		if (req.Side == models.CE && !(r.StrikePrice >= target)) || (req.Side == models.PE && !(r.StrikePrice <= target)) {
			continue
		}
		if d := math.Abs(r.StrikePrice - target); d < bestDist {
			pick, bestDist = r, d
		}
	}
	if pick == nil {
		return none(StrategyDistance, "No fallback eligible OTM strike found.")
	}

	strike, ltp := pick.StrikePrice, pick.LTP
	return models.StrikeSelection{
		Strike:   &strike,
		EntryLTP: &ltp,
		Strategy: StrategyDistance,
		Reasons:  []string{fmt.Sprintf("Fallback %.1f%% OTM picker used for outcome tracking.", s.DistancePct)},
	}
}
