// Package bias fuses the per-cycle chain readings into one directional
// market score and an OTM side preference.
package bias

import (
	"fmt"
	"math"
	"strings"

	"github.com/sudipta6891/OC-Chain-System-ver-01/internal/domain/models"
	"github.com/sudipta6891/OC-Chain-System-ver-01/internal/services/chain"
	"github.com/sudipta6891/OC-Chain-System-ver-01/internal/services/features"
)

const (
	LabelStrongBullish = "STRONG BULLISH"
	LabelBullish       = "BULLISH"
	LabelNeutral       = "NEUTRAL"
	LabelBearish       = "BEARISH"
	LabelStrongBearish = "STRONG BEARISH"
)

type Input struct {
	PCR         float64
	Structure   string
	Breakout    string
	Trap        string
	Spot        float64
	Support     float64
	Resistance  float64
	MaxPain     float64
	Probability models.ProbabilityView
	Volume      models.VolumeSpike
	OIDelta     models.OIDelta
	Scalp       models.ScalpScore
}

// InputFromSummary fills the chain-derived fields of an Input.
func InputFromSummary(s models.ChainSummary) Input {
	return Input{
		PCR:        s.PCR,
		Structure:  s.Structure,
		Breakout:   s.Breakout,
		Trap:       s.Trap,
		Spot:       s.Spot,
		Support:    s.Support,
		Resistance: s.Resistance,
		MaxPain:    s.MaxPain,
		Volume:     s.VolumeSpike,
	}
}

func Label(score int) string {
	switch {
	case score >= 45:
		return LabelStrongBullish
	case score >= 20:
		return LabelBullish
	case score <= -45:
		return LabelStrongBearish
	case score <= -20:
		return LabelBearish
	}
	return LabelNeutral
}

// edgePoints scales a probability edge by 0.3 and bounds it to +/-15.
func edgePoints(edge int) int {
	return features.ClampInt(features.RoundInt(float64(edge)*0.3), -15, 15)
}

// Calculate applies the additive rule table in a fixed order.
func Calculate(in Input) models.BiasScore {
	score := 0
	var factors []string
	add := func(points int, factor string) {
		score += points
		factors = append(factors, factor)
	}

	switch {
	case in.PCR >= 1.4:
		add(16, "PCR high: bullish put-writer dominance (+16)")
	case in.PCR >= 1.15:
		add(10, "PCR supportive for upside (+10)")
	case in.PCR <= 0.7:
		add(-16, "PCR very low: bearish call-writer dominance (-16)")
	case in.PCR <= 0.9:
		add(-10, "PCR weak for upside (-10)")
	}

	if strings.Contains(in.Structure, "Put Writing") {
		add(10, "Put writing structure (+10)")
	} else if strings.Contains(in.Structure, "Call Writing") {
		add(-10, "Call writing structure (-10)")
	}

	switch in.Breakout {
	case chain.BreakoutBullish:
		add(20, "Bullish breakout (+20)")
	case chain.BreakoutBearish:
		add(-20, "Bearish breakdown (-20)")
	}

	if strings.Contains(in.Trap, "Call Trap") {
		add(-8, "Call trap risk (-8)")
	} else if strings.Contains(in.Trap, "Put Trap") {
		add(8, "Put trap risk (+8)")
	}

	if p := edgePoints(in.Probability.UpsideProbability - in.Probability.DownsideProbability); p != 0 {
		add(p, fmt.Sprintf("Probability edge (%+d)", p))
	}
	if p := edgePoints(in.OIDelta.BullishProbability - in.OIDelta.BearishProbability); p != 0 {
		add(p, fmt.Sprintf("OI delta directional edge (%+d)", p))
	}

	switch {
	case in.Volume.CESpike && !in.Volume.PESpike:
		add(7, "ATM CE volume expansion (+7)")
	case in.Volume.PESpike && !in.Volume.CESpike:
		add(-7, "ATM PE volume expansion (-7)")
	case in.Volume.Spike:
		add(0, "Bidirectional ATM volume spike (neutral)")
	}

	pos := (in.Spot - in.Support) / math.Max(1, in.Resistance-in.Support)
	if pos >= 0.75 {
		add(5, "Spot near upper range (+5)")
	} else if pos <= 0.25 {
		add(-5, "Spot near lower range (-5)")
	}

	if math.Abs(in.Spot-in.MaxPain)/math.Max(1, in.Spot)*100 <= 0.15 {
		score = int(float64(score) * 0.9)
		factors = append(factors, "Spot near max pain: trend confidence reduced (x0.9)")
	}

	if p := features.ClampInt(features.RoundInt(float64(in.Scalp.Score)*0.2), -12, 12); p != 0 {
		add(p, fmt.Sprintf("Scalp directional contribution (%+d)", p))
	}

	score = features.ClampInt(score, -100, 100)

	bonus := 0
	if in.Volume.Spike {
		bonus = 20
	}
	abs := score
	if abs < 0 {
		abs = -abs
	}

	preferred := models.SideNoTrade
	switch {
	case score >= 20:
		preferred = models.SideBuyCE
	case score <= -20:
		preferred = models.SideBuyPE
	}

	return models.BiasScore{
		MarketScore:   score,
		MarketBias:    Label(score),
		Confidence:    features.ClampInt(abs+bonus, 15, 100),
		CEOTMBuyScore: features.ClampInt(50+score, 0, 100),
		PEOTMBuyScore: features.ClampInt(50-score, 0, 100),
		PreferredSide: preferred,
		Factors:       factors,
	}
}
