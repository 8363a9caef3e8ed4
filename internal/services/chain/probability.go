package chain

import (
	"math"
	"strings"

	"github.com/sudipta6891/OC-Chain-System-ver-01/internal/domain/models"
	"github.com/sudipta6891/OC-Chain-System-ver-01/internal/services/features"
)

// ProbabilityView converts PCR, breakout and structure into a heuristic
// up/down probability. A non-nil calibrated value replaces the raw upside
// probability in CalibratedUpsideProb.
func ProbabilityView(pcr float64, breakout, structure string, calibrated *float64) models.ProbabilityView {
	score := 0
	switch {
	case pcr > 1.2:
		score += 2
	case pcr > 1.0:
		score++
	case pcr < 0.8:
		score -= 2
	case pcr < 1.0:
		score--
	}

	switch breakout {
	case BreakoutBullish:
		score += 2
	case BreakoutBearish:
		score -= 2
	}

	if strings.Contains(structure, "Put Writing") {
		score++
	} else if strings.Contains(structure, "Call Writing") {
		score--
	}

	up := 50 + score*10
	down := features.ClampInt(100-up, 0, 100)
	up = features.ClampInt(up, 0, 100)

	bias := "Neutral"
	if up > down {
		bias = "Bullish"
	} else if down > up {
		bias = "Bearish"
	}

	cal := float64(up) / 100
	if calibrated != nil {
		cal = *calibrated
	}
	return models.ProbabilityView{
		UpsideProbability:    up,
		DownsideProbability:  down,
		Bias:                 bias,
		BreakoutProbability:  absInt(score) * 10,
		RawScore:             score,
		CalibratedUpsideProb: features.RoundTo(features.Clamp(cal, 0, 1), 4),
	}
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// ScalpSignal scores a 10-minute OTM scalp from breakout, volume, bias and
// short-covering readings. The score is signed: positive is bullish.
func ScalpSignal(breakout, covering string, vol models.VolumeSpike, prob models.ProbabilityView) models.ScalpScore {
	var b models.ScalpBreakdown
	direction := 0

	switch breakout {
	case BreakoutBullish:
		b.Breakout, direction = 30, 1
	case BreakoutBearish:
		b.Breakout, direction = -30, -1
	}

	if vol.Spike && direction != 0 {
		b.Volume = 20 * direction
	}

	switch {
	case prob.UpsideProbability >= 65:
		b.Bias = 20
	case prob.DownsideProbability >= 65:
		b.Bias = -20
	case prob.UpsideProbability >= 55:
		b.Bias = 10
	case prob.DownsideProbability >= 55:
		b.Bias = -10
	}

	if strings.Contains(covering, "Bullish") {
		b.Covering = 10
	} else if strings.Contains(covering, "Bearish") {
		b.Covering = -10
	}

	total := b.Breakout + b.Volume + b.Bias + b.Covering
	abs := absInt(total)

	out := models.ScalpScore{Score: total, AbsScore: abs, Breakdown: b}
	switch {
	case abs >= 70:
		out.Signal, out.Edge, out.Risk = "STRONG BUY OTM", "HIGH EDGE", "MODERATE RISK"
	case abs >= 50:
		out.Signal, out.Edge, out.Risk = "BUY OTM", "MEDIUM EDGE", "HIGH RISK"
	default:
		out.Signal, out.Edge, out.Risk = "NO TRADE", "LOW EDGE", "AVOID TRADE"
	}
	switch {
	case total > 0:
		out.Direction = "BULLISH"
	case total < 0:
		out.Direction = "BEARISH"
	default:
		out.Direction = "NEUTRAL"
	}
	return out
}

// InstitutionalConfidence measures how strongly positioning points one way.
func InstitutionalConfidence(oiDelta models.OIDelta, prob models.ProbabilityView, vol models.VolumeSpike, scalp models.ScalpScore) models.InstitutionalConfidence {
	score := 0.0
	direction := 0
	var reasons []string

	ce, pe := math.Abs(float64(oiDelta.CEDelta)), math.Abs(float64(oiDelta.PEDelta))
	oiStrength := math.Min((ce+pe)/100000, 25)
	score += oiStrength
	if pe > ce {
		direction = 1
	} else if ce > pe {
		direction = -1
	}
	if oiStrength > 10 {
		reasons = append(reasons, "Strong OI Expansion")
	}

	switch prob.Bias {
	case "Bullish":
		score += 20
		direction = 1
		reasons = append(reasons, "Bullish Bias Alignment")
	case "Bearish":
		score += 20
		direction = -1
		reasons = append(reasons, "Bearish Bias Alignment")
	}

	if vol.Spike {
		score += 20
		reasons = append(reasons, "Volume Spike Confirmed")
	}

	if scalp.Signal == "BUY OTM" || scalp.Signal == "STRONG BUY OTM" {
		score += 20
		reasons = append(reasons, "Directional Setup Active")
	}

	score += math.Abs(float64(scalp.Score)) * 0.15
	if scalp.Score > 0 {
		direction = 1
	} else if scalp.Score < 0 {
		direction = -1
	}

	capped := int(score)
	if capped > 100 {
		capped = 100
	}
	directional := capped
	if direction < 0 {
		directional = -capped
	}
	abs := absInt(directional)

	out := models.InstitutionalConfidence{
		DirectionalScore: directional,
		AbsScore:         abs,
		Reasons:          reasons,
	}
	switch {
	case abs >= 75:
		out.Level = "HIGH"
		out.Note = "Strong institutional conviction detected. Aggressive build-up with directional alignment. High probability of sustained move."
	case abs >= 50:
		out.Level = "MODERATE"
		out.Note = "Institutional activity visible but not aggressive. Structured positioning. Monitor confirmation."
	case abs >= 30:
		out.Level = "LOW"
		out.Note = "Limited conviction from institutions. Range-bound environment likely."
	default:
		out.Level = "VERY LOW"
		out.Note = "Very weak institutional positioning. Low conviction environment. Avoid aggressive exposure."
	}
	switch {
	case directional > 0:
		out.Direction = "BULLISH INSTITUTIONAL BUILD-UP"
	case directional < 0:
		out.Direction = "BEARISH INSTITUTIONAL BUILD-UP"
	default:
		out.Direction = "NEUTRAL POSITIONING"
	}
	return out
}

// IntradayOutlook projects the next 15/30/60 minutes from bias and breakout.
func IntradayOutlook(prob models.ProbabilityView, breakout string) models.Outlook {
	switch prob.Bias {
	case "Bullish":
		if breakout == BreakoutBullish {
			return models.Outlook{
				Next15: "Momentum Continuation Likely",
				Next30: "Upside Expansion Towards Higher Strikes",
				Next60: "Sustained Buying Pressure Possible",
			}
		}
		return models.Outlook{
			Next15: "Minor Pullback Possible",
			Next30: "Upside Retest Towards Resistance",
			Next60: "Gradual Strength Building",
		}
	case "Bearish":
		if breakout == BreakoutBearish {
			return models.Outlook{
				Next15: "Immediate Selling Pressure",
				Next30: "Downside Expansion Towards Lower Strikes",
				Next60: "Sustained Pressure If Support Breaks",
			}
		}
		return models.Outlook{
			Next15: "Minor Pullback Possible",
			Next30: "Downside Test Towards Support",
			Next60: "Sustained Pressure If Resistance Holds",
		}
	}
	return models.Outlook{
		Next15: "Whipsaw Possible",
		Next30: "Range Bound Between Key Levels",
		Next60: "Wait For Breakout Confirmation",
	}
}
