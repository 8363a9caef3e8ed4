package greeks

import (
	"math"

	"github.com/sudipta6891/OC-Chain-System-ver-01/internal/domain/models"
)

const (
	RiskFreeRate = 0.05

	minTimeYears = 1.0 / 3650.0
	minSigma     = 0.05
	minPrice     = 1e-6
)

// Sensitivities are per-unit Black-Scholes greeks. Theta is per calendar
// day and vega per volatility point.
type Sensitivities struct {
	Delta float64
	Gamma float64
	Theta float64
	Vega  float64
}

func normCDF(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt2))
}

func normPDF(x float64) float64 {
	return math.Exp(-0.5*x*x) / math.Sqrt(2*math.Pi)
}

// BlackScholes prices the sensitivities of one European option with the
// time, volatility and price floors applied.
func BlackScholes(spot, strike, timeYears, sigma float64, side models.OptionType) Sensitivities {
	t := math.Max(timeYears, minTimeYears)
	vol := math.Max(sigma, minSigma)
	s := math.Max(spot, minPrice)
	k := math.Max(strike, minPrice)
	sqrtT := math.Sqrt(t)

	d1 := (math.Log(s/k) + (RiskFreeRate+0.5*vol*vol)*t) / (vol * sqrtT)
	d2 := d1 - vol*sqrtT
	pdf := normPDF(d1)
	decay := -(s * pdf * vol) / (2 * sqrtT)
	carry := RiskFreeRate * k * math.Exp(-RiskFreeRate*t)

	var out Sensitivities
	if side == models.CE {
		out.Delta = normCDF(d1)
		out.Theta = (decay - carry*normCDF(d2)) / 365
	} else {
		out.Delta = normCDF(d1) - 1
		out.Theta = (decay + carry*normCDF(-d2)) / 365
	}
	out.Gamma = pdf / (s * vol * sqrtT)
	out.Vega = s * pdf * sqrtT / 100
	return out
}
