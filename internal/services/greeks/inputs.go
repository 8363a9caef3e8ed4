package greeks

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/sudipta6891/OC-Chain-System-ver-01/internal/domain/models"
	"github.com/sudipta6891/OC-Chain-System-ver-01/internal/services/features"
)

const (
	DefaultDTEDays = 3
	DefaultSigma   = 0.20

	// epochMillisThreshold separates epoch seconds from milliseconds.
	epochMillisThreshold = 10_000_000_000
)

var expiryLayouts = []string{
	"2006-01-02",
	"02-01-2006",
	"2006/01/02",
	"02/01/2006",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// ParseExpiry reads an expiry given as a date, a timestamp or epoch
// seconds/milliseconds. Epoch values are interpreted in loc.
func ParseExpiry(raw string, loc *time.Location) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return time.Time{}, false
		}
		v := int64(f)
		if v > epochMillisThreshold {
			v /= 1000
		}
		return dateOf(time.Unix(v, 0).In(loc)), true
	}
	for _, layout := range expiryLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return dateOf(t), true
		}
	}
	return time.Time{}, false
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// TimeToExpiryYears uses the nearest parseable expiry with a one day floor;
// no parseable expiry means three days.
func TimeToExpiryYears(rows []models.ChainRow, snapshotTime time.Time) float64 {
	loc := snapshotTime.Location()
	var nearest time.Time
	found := false
	for _, r := range rows {
		d, ok := ParseExpiry(r.Expiry, loc)
		if !ok {
			continue
		}
		if !found || d.Before(nearest) {
			nearest, found = d, true
		}
	}
	if !found {
		return DefaultDTEDays / 365.0
	}
	days := int(nearest.Sub(dateOf(snapshotTime)).Hours() / 24)
	if days < 1 {
		days = 1
	}
	return float64(days) / 365.0
}

// NormalizeIV converts a percentage IV to a decimal.
func NormalizeIV(iv float64) float64 {
	if iv > 1.5 {
		return iv / 100
	}
	return iv
}

// MedianIV returns the median of the rows' IV (all rows when side is
// empty), or NaN when none is present.
func MedianIV(rows []models.ChainRow, side models.OptionType) float64 {
	ivs := make([]float64, 0, len(rows))
	for _, r := range rows {
		if r.IV == nil || (side != "" && r.OptionType != side) {
			continue
		}
		ivs = append(ivs, *r.IV)
	}
	return features.Median(ivs)
}

// InferSigma prefers the chain's median IV, then an ATM straddle proxy,
// then a flat 20%.
func InferSigma(rows []models.ChainRow, spot, atm float64) float64 {
	if iv := MedianIV(rows, ""); !math.IsNaN(iv) {
		return features.Clamp(NormalizeIV(iv), 0.08, 1.0)
	}

	ce, pe := math.NaN(), math.NaN()
	for _, r := range rows {
		if r.StrikePrice != atm {
			continue
		}
		if r.OptionType == models.CE && math.IsNaN(ce) {
			ce = r.LTP
		}
		if r.OptionType == models.PE && math.IsNaN(pe) {
			pe = r.LTP
		}
	}
	if math.IsNaN(ce) || math.IsNaN(pe) {
		return DefaultSigma
	}
	straddle := ce + pe
	return features.Clamp(straddle/math.Max(spot, 1)*3.5, 0.10, 0.60)
}

// ComputeRows prices every CE/PE row of the chain.
func ComputeRows(rows []models.ChainRow, spot, timeYears, sigma float64) []models.GreeksRow {
	out := make([]models.GreeksRow, 0, len(rows))
	for _, r := range rows {
		if r.OptionType != models.CE && r.OptionType != models.PE {
			continue
		}
		if math.IsNaN(r.StrikePrice) {
			continue
		}
		g := BlackScholes(spot, r.StrikePrice, timeYears, sigma, r.OptionType)
		out = append(out, models.GreeksRow{
			Strike:       r.StrikePrice,
			OptionType:   r.OptionType,
			Delta:        g.Delta,
			Gamma:        g.Gamma,
			Theta:        g.Theta,
			Vega:         g.Vega,
			OpenInterest: features.Or(r.OpenInterest, 0),
			Volume:       features.Or(r.Volume, 0),
			LTP:          r.LTP,
		})
	}
	return out
}
