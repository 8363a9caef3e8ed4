// Package quality gates a chain snapshot before any scoring runs.
package quality

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/sudipta6891/OC-Chain-System-ver-01/internal/domain/models"
)

const (
	DefaultMaxStaleMinutes = 12

	// maxMissingStrikes is the tolerated number of absent grid points within
	// atmWindowSteps steps either side of ATM.
	maxMissingStrikes = 3
	atmWindowSteps    = 8
	naRatioLimit      = 0.2

	FlagEmptySnapshot   = "empty_snapshot"
	FlagInvalidStrike   = "invalid_strike_price"
	FlagNegativeOI      = "negative_open_interest"
	FlagNegativeVolume  = "negative_volume"
	FlagDuplicateRows   = "duplicate_strike_option_rows"
	flagHighNARatioBase = "high_na_ratio_"
	flagInfBase         = "inf_detected_"
)

var criticalFlags = map[string]bool{
	FlagEmptySnapshot:  true,
	FlagInvalidStrike:  true,
	FlagNegativeOI:     true,
	FlagNegativeVolume: true,
}

// StrikeStep infers the listed strike spacing from the symbol family.
func StrikeStep(symbol string) int {
	upper := strings.ToUpper(symbol)
	if strings.Contains(upper, "NIFTY50") || strings.Contains(upper, "NIFTY-INDEX") {
		return 50
	}
	return 100
}

type Input struct {
	Symbol          string
	Rows            []models.ChainRow
	Spot            float64
	SnapshotTime    time.Time
	MaxStaleMinutes int
}

// Assess evaluates the snapshot as of now.
func Assess(in Input, now time.Time) models.QualityVerdict {
	if len(in.Rows) == 0 {
		return models.QualityVerdict{
			IsUsable:       false,
			StaleData:      false,
			MissingStrikes: true,
			AnomalyFlags:   []string{FlagEmptySnapshot},
			Warnings:       []string{"Option chain is empty."},
		}
	}

	maxStale := in.MaxStaleMinutes
	if maxStale <= 0 {
		maxStale = DefaultMaxStaleMinutes
	}

	var (
		flags    []string
		warnings []string
	)

	age := now.Sub(in.SnapshotTime)
	stale := age > time.Duration(maxStale)*time.Minute
	if stale {
		warnings = append(warnings, fmt.Sprintf("Snapshot is stale by %d minutes.", int(age/time.Minute)))
	}

	flags = append(flags, rowFlags(in.Rows)...)

	step := StrikeStep(in.Symbol)
	missing := missingNearATM(in.Rows, in.Spot, step)
	missingStrikes := missing > maxMissingStrikes
	if missingStrikes {
		warnings = append(warnings, fmt.Sprintf("Missing strikes near ATM: %d gaps detected.", missing))
	}

	usable := !stale && !missingStrikes
	for _, f := range flags {
		if criticalFlags[f] {
			usable = false
			continue
		}
		warnings = append(warnings, fmt.Sprintf("Non-critical anomaly: %s.", f))
	}

	return models.QualityVerdict{
		IsUsable:       usable,
		StaleData:      stale,
		MissingStrikes: missingStrikes,
		AnomalyFlags:   flags,
		Warnings:       warnings,
	}
}

func rowFlags(rows []models.ChainRow) []string {
	var invalidStrike, negOI, negVol, dup bool
	type key struct {
		strike float64
		side   models.OptionType
	}
	seen := make(map[key]struct{}, len(rows))
	for _, r := range rows {
		if r.StrikePrice <= 0 {
			invalidStrike = true
		}
		if r.OpenInterest < 0 {
			negOI = true
		}
		if r.Volume < 0 {
			negVol = true
		}
		k := key{r.StrikePrice, r.OptionType}
		if _, ok := seen[k]; ok {
			dup = true
		}
		seen[k] = struct{}{}
	}

	var flags []string
	if invalidStrike {
		flags = append(flags, FlagInvalidStrike)
	}
	if negOI {
		flags = append(flags, FlagNegativeOI)
	}
	if negVol {
		flags = append(flags, FlagNegativeVolume)
	}
	if dup {
		flags = append(flags, FlagDuplicateRows)
	}

	columns := []struct {
		name string
		get  func(models.ChainRow) float64
	}{
		{"open_interest", func(r models.ChainRow) float64 { return r.OpenInterest }},
		{"oi_change", func(r models.ChainRow) float64 { return r.OIChange }},
		{"volume", func(r models.ChainRow) float64 { return r.Volume }},
		{"ltp", func(r models.ChainRow) float64 { return r.LTP }},
	}
	for _, col := range columns {
		nan := 0
		absSum := 0.0
		for _, r := range rows {
			v := col.get(r)
			if math.IsNaN(v) {
				nan++
				continue
			}
			absSum += math.Abs(v)
		}
		if float64(nan)/float64(len(rows)) > naRatioLimit {
			flags = append(flags, flagHighNARatioBase+col.name)
		}
		if math.IsInf(absSum, 0) {
			flags = append(flags, flagInfBase+col.name)
		}
	}
	return flags
}

// missingNearATM counts the grid points within the ATM window that have no
// observed strike.
func missingNearATM(rows []models.ChainRow, spot float64, step int) int {
	uniq := make(map[float64]struct{}, len(rows))
	strikes := make([]float64, 0, len(rows))
	for _, r := range rows {
		if math.IsNaN(r.StrikePrice) {
			continue
		}
		if _, ok := uniq[r.StrikePrice]; !ok {
			uniq[r.StrikePrice] = struct{}{}
			strikes = append(strikes, r.StrikePrice)
		}
	}
	sort.Float64s(strikes)

	atm := spot
	bestDist := math.Inf(1)
	for _, s := range strikes {
		if d := math.Abs(s - spot); d < bestDist {
			atm, bestDist = s, d
		}
	}

	fstep := float64(step)
	lower := atm - fstep*atmWindowSteps
	upper := atm + fstep*atmWindowSteps

	actual := make(map[int]struct{})
	for _, s := range strikes {
		if s >= lower && s <= upper {
			actual[int(math.RoundToEven(s/fstep))*step] = struct{}{}
		}
	}

	missing := 0
	for k := int(lower); k < int(upper+fstep); k += step {
		if _, ok := actual[k]; !ok {
			missing++
		}
	}
	return missing
}
