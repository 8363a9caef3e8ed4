package strike

import (
	"strings"

	"github.com/sudipta6891/OC-Chain-System-ver-01/internal/domain/models"
	"github.com/sudipta6891/OC-Chain-System-ver-01/internal/domain/service"
)

// PickSide agrees the bias score with the Greeks side preference. A strong
// enough score wins on its own. The empty result means no side.
func PickSide(b models.BiasScore, g models.GreeksAnalysis) models.OptionType {
	score := b.MarketScore
	switch {
	case score >= 20 && strings.Contains(g.PreferredSide, "CE"):
		return models.CE
	case score <= -20 && strings.Contains(g.PreferredSide, "PE"):
		return models.PE
	case score >= 25:
		return models.CE
	case score <= -25:
		return models.PE
	}
	return ""
}

// Choose returns the selector for a cycle: dynamic when enabled, the
// distance picker when only outcome tracking needs a strike, nil otherwise.
func Choose(dynamic, tracking bool, strategy string, distancePct float64) service.StrikeSelector {
	switch {
	case dynamic && strategy != StrategyDistance:
		return NewDynamicSelector()
	case dynamic, tracking:
		return NewDistanceSelector(distancePct)
	}
	return nil
}
