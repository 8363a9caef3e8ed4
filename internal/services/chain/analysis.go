// Package chain derives the basic option-chain analytics of a snapshot:
// ATM, PCR, OI levels, max pain and the writing/trap/breakout readings.
package chain

import (
	"math"
	"sort"

	"github.com/sudipta6891/OC-Chain-System-ver-01/internal/domain/models"
	"github.com/sudipta6891/OC-Chain-System-ver-01/internal/services/features"
)

// ATMStrike returns the strike nearest to spot; the first seen wins ties.
func ATMStrike(rows []models.ChainRow, spot float64) float64 {
	best := math.NaN()
	bestDist := math.Inf(1)
	for _, r := range rows {
		if math.IsNaN(r.StrikePrice) {
			continue
		}
		if d := math.Abs(r.StrikePrice - spot); d < bestDist {
			best, bestDist = r.StrikePrice, d
		}
	}
	return best
}

// SplitCEPE separates the chain by side, preserving row order.
func SplitCEPE(rows []models.ChainRow) (ce, pe []models.ChainRow) {
	for _, r := range rows {
		switch r.OptionType {
		case models.CE:
			ce = append(ce, r)
		case models.PE:
			pe = append(pe, r)
		}
	}
	return ce, pe
}

func sumOf(rows []models.ChainRow, field func(models.ChainRow) float64) float64 {
	total := 0.0
	for _, r := range rows {
		if v := field(r); !math.IsNaN(v) {
			total += v
		}
	}
	return total
}

func oi(r models.ChainRow) float64       { return r.OpenInterest }
func oiChange(r models.ChainRow) float64 { return r.OIChange }
func volume(r models.ChainRow) float64   { return r.Volume }

// TotalOI sums open interest per side.
func TotalOI(ce, pe []models.ChainRow) (float64, float64) {
	return sumOf(ce, oi), sumOf(pe, oi)
}

// PCR is put OI over call OI at 4 decimals, 0 when there is no call OI.
func PCR(totalPE, totalCE float64) float64 {
	if totalCE == 0 {
		return 0
	}
	return features.RoundTo(totalPE/totalCE, 4)
}

func maxOIStrike(rows []models.ChainRow) float64 {
	best := 0.0
	bestOI := math.Inf(-1)
	for _, r := range rows {
		if r.OpenInterest > bestOI {
			best, bestOI = r.StrikePrice, r.OpenInterest
		}
	}
	return best
}

// OILevels returns resistance (max CE OI strike) and support (max PE OI strike).
func OILevels(ce, pe []models.ChainRow) (resistance, support float64) {
	return maxOIStrike(ce), maxOIStrike(pe)
}

// UniqueStrikes returns the sorted distinct strikes of the chain.
func UniqueStrikes(rows []models.ChainRow) []float64 {
	seen := make(map[float64]struct{}, len(rows))
	out := make([]float64, 0, len(rows)/2+1)
	for _, r := range rows {
		if math.IsNaN(r.StrikePrice) {
			continue
		}
		if _, ok := seen[r.StrikePrice]; ok {
			continue
		}
		seen[r.StrikePrice] = struct{}{}
		out = append(out, r.StrikePrice)
	}
	sort.Float64s(out)
	return out
}

// MaxPain returns the expiry price at which option writers pay the least
// intrinsic value across the chain.
func MaxPain(rows []models.ChainRow) float64 {
	strikes := UniqueStrikes(rows)
	if len(strikes) == 0 {
		return 0
	}
	best := strikes[0]
	bestLoss := math.Inf(1)
	for _, k := range strikes {
		loss := 0.0
		for _, r := range rows {
			var intrinsic float64
			if r.OptionType == models.CE {
				intrinsic = math.Max(0, k-r.StrikePrice)
			} else {
				intrinsic = math.Max(0, r.StrikePrice-k)
			}
			if !math.IsNaN(r.OpenInterest) {
				loss += intrinsic * r.OpenInterest
			}
		}
		if loss < bestLoss {
			best, bestLoss = k, loss
		}
	}
	return best
}
