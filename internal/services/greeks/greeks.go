// Package greeks estimates option sensitivities from a chain snapshot and
// turns them into a directional bias and an OTM-buying timing score.
package greeks

import (
	"math"
	"strings"
	"time"

	"github.com/sudipta6891/OC-Chain-System-ver-01/internal/domain/models"
	"github.com/sudipta6891/OC-Chain-System-ver-01/internal/services/features"
)

const (
	ProfileAggressive   = "aggressive"
	ProfileConservative = "conservative"

	WindowFavorable    = "FAVORABLE FOR OTM BUYING"
	WindowSelective    = "SELECTIVE ENTRY ONLY"
	WindowAvoid        = "AVOID / WAIT FOR BETTER SETUP"
	WindowHardBlocked  = "HARD FILTER BLOCKED"
	windowNoData       = "No data"
	windowInsufficient = "Insufficient Greeks data"

	// nearBandPct is the half-width, as a fraction of ATM, of one band step.
	nearBandPct   = 0.002
	nearBandSteps = 3
)

type Input struct {
	Rows         []models.ChainRow
	Spot         float64
	ATM          float64
	Breakout     string
	SnapshotTime time.Time
	Profile      string
}

func normalizeProfile(p string) string {
	p = strings.ToLower(strings.TrimSpace(p))
	if p != ProfileConservative {
		return ProfileAggressive
	}
	return p
}

func neutral(profile, window, filter, driver string) models.GreeksAnalysis {
	return models.GreeksAnalysis{
		Bias:          "NEUTRAL",
		PreferredSide: models.SideNoTrade,
		EntryWindow:   window,
		Profile:       strings.ToUpper(profile),
		HardFilters:   []string{filter},
		Drivers:       []string{driver},
	}
}

// Analyze never fails: empty or unpriceable chains come back NEUTRAL with
// the reason in HardFilters and Drivers.
func Analyze(in Input) models.GreeksAnalysis {
	if len(in.Rows) == 0 {
		return neutral(in.Profile, windowNoData, "No option chain snapshot data", "Option chain snapshot is empty")
	}

	timeYears := TimeToExpiryYears(in.Rows, in.SnapshotTime)
	sigma := InferSigma(in.Rows, in.Spot, in.ATM)
	rows := ComputeRows(in.Rows, in.Spot, timeYears, sigma)
	if len(rows) == 0 {
		return neutral(in.Profile, windowInsufficient, "Unable to compute Greeks rows", "Unable to compute Greeks for chain rows")
	}

	band := nearBand(rows, in.ATM)

	var deltaExposure, ceGamma, peGamma, thetaAbs, vegaSum, bandVolume, totalVolume float64
	for _, g := range band {
		deltaExposure += g.Delta * g.OpenInterest
		if g.OptionType == models.CE {
			ceGamma += g.Gamma * g.OpenInterest
		} else {
			peGamma += g.Gamma * g.OpenInterest
		}
		thetaAbs += math.Abs(g.Theta)
		vegaSum += g.Vega
		bandVolume += g.Volume
	}
	for _, g := range rows {
		totalVolume += g.Volume
	}
	gammaImbalance := peGamma - ceGamma
	thetaAbsMean := thetaAbs / float64(len(band))
	vegaMean := vegaSum / float64(len(band))
	volumeRatio := bandVolume / math.Max(1, totalVolume)

	profile := normalizeProfile(in.Profile)
	var drivers []string
	directional := 0

	switch {
	case deltaExposure > 0:
		directional += 18
		drivers = append(drivers, "Net positive delta exposure near ATM (+18)")
	case deltaExposure < 0:
		directional -= 18
		drivers = append(drivers, "Net negative delta exposure near ATM (-18)")
	}

	switch {
	case gammaImbalance > 0:
		directional += 14
		drivers = append(drivers, "Put-side gamma support stronger (+14)")
	case gammaImbalance < 0:
		directional -= 14
		drivers = append(drivers, "Call-side gamma wall stronger (-14)")
	}

	switch {
	case in.Breakout == "Bullish Breakout":
		directional += 12
		drivers = append(drivers, "Breakout confirmation supports CE side (+12)")
	case in.Breakout == "Bearish Breakdown":
		directional -= 12
		drivers = append(drivers, "Breakdown confirmation supports PE side (-12)")
	case profile == ProfileAggressive:
		directional -= 4
		drivers = append(drivers, "No breakout confirmation yet (-4)")
	}

	directional = features.ClampInt(directional, -100, 100)

	threshold := 18
	if profile == ProfileConservative {
		threshold = 25
	}
	bias, side := "NEUTRAL", models.SideNoTrade
	switch {
	case directional >= threshold:
		bias, side = "BULLISH", models.SideBuyCE
	case directional <= -threshold:
		bias, side = "BEARISH", models.SideBuyPE
	}

	timing := 55
	if profile == ProfileConservative {
		timing = 50
	}
	switch {
	case sigma < 0.17:
		timing += 10
		drivers = append(drivers, "Implied vol proxy is low: better for option buying (+10)")
	case sigma > 0.31:
		timing -= 10
		drivers = append(drivers, "Implied vol proxy is elevated: option buying expensive (-10)")
	}
	switch {
	case thetaAbsMean > 7.5:
		timing -= 12
		drivers = append(drivers, "High theta decay around ATM (-12)")
	case thetaAbsMean < 4.5:
		timing += 6
		drivers = append(drivers, "Theta pressure manageable (+6)")
	}
	if volumeRatio >= 0.30 {
		timing += 10
		drivers = append(drivers, "Near-ATM liquidity participation is strong (+10)")
	} else {
		timing -= 4
		drivers = append(drivers, "Liquidity participation is moderate/low (-4)")
	}
	absDir := directional
	if absDir < 0 {
		absDir = -absDir
	}
	switch {
	case absDir >= 30:
		timing += 8
		drivers = append(drivers, "Directional conviction strong (+8)")
	case absDir < 12:
		timing -= 8
		drivers = append(drivers, "Directional conviction weak (-8)")
	}
	timing = features.ClampInt(timing, 0, 100)

	window := WindowAvoid
	switch {
	case timing >= 68:
		window = WindowFavorable
	case timing >= 52:
		window = WindowSelective
	}

	var filters []string
	if absDir < 12 {
		filters = append(filters, "Directional score too weak (<12)")
	}
	if timing < 45 {
		filters = append(filters, "Timing score too low (<45)")
	}
	if sigma > 0.40 {
		filters = append(filters, "Volatility too high (sigma proxy > 0.40)")
	}
	if thetaAbsMean > 9.5 {
		filters = append(filters, "Theta decay too high (theta abs mean > 9.5)")
	}
	if volumeRatio < 0.18 {
		filters = append(filters, "Liquidity too low near ATM (volume ratio < 0.18)")
	}
	if in.Breakout == "No Breakout" && absDir < 20 {
		filters = append(filters, "No breakout + low directional conviction")
	}

	allowed := len(filters) == 0
	if !allowed {
		side = models.SideNoTrade
		window = WindowHardBlocked
	}

	return models.GreeksAnalysis{
		Bias:             bias,
		DirectionalScore: directional,
		TimingScore:      timing,
		PreferredSide:    side,
		EntryWindow:      window,
		Profile:          strings.ToUpper(profile),
		TradeAllowed:     allowed,
		HardFilters:      filters,
		Metrics: models.GreeksMetrics{
			DeltaExposure:      features.RoundTo(deltaExposure, 2),
			GammaImbalance:     features.RoundTo(gammaImbalance, 6),
			ThetaAbsMean:       features.RoundTo(thetaAbsMean, 4),
			VegaMean:           features.RoundTo(vegaMean, 4),
			SigmaProxy:         features.RoundTo(sigma, 4),
			TimeToExpiryYears:  features.RoundTo(timeYears, 4),
			NearATMVolumeRatio: features.RoundTo(volumeRatio, 4),
		},
		Drivers: drivers,
	}
}

// nearBand keeps rows within three 0.2% steps of ATM, or all rows when
// none fall inside.
func nearBand(rows []models.GreeksRow, atm float64) []models.GreeksRow {
	width := nearBandSteps * math.Abs(atm) * nearBandPct
	band := make([]models.GreeksRow, 0, len(rows))
	for _, g := range rows {
		if g.Strike >= atm-width && g.Strike <= atm+width {
			band = append(band, g)
		}
	}
	if len(band) == 0 {
		return rows
	}
	return band
}
