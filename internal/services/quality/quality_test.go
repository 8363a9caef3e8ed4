package quality

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sudipta6891/OC-Chain-System-ver-01/internal/domain/models"
)

var now = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func grid(lo, hi, step float64) []models.ChainRow {
	var rows []models.ChainRow
	for k := lo; k <= hi; k += step {
		for _, side := range []models.OptionType{models.CE, models.PE} {
			rows = append(rows, models.ChainRow{StrikePrice: k, OptionType: side, OpenInterest: 100, Volume: 10, LTP: 5})
		}
	}
	return rows
}

func TestAssessEmpty(t *testing.T) {
	v := Assess(Input{Symbol: "NSE:NIFTY50-INDEX", Spot: 22000, SnapshotTime: now}, now)
	assert.False(t, v.IsUsable)
	assert.False(t, v.StaleData)
	assert.True(t, v.MissingStrikes)
	assert.Equal(t, []string{FlagEmptySnapshot}, v.AnomalyFlags)
	assert.Equal(t, []string{"Option chain is empty."}, v.Warnings)
}

func TestAssessCleanSnapshot(t *testing.T) {
	v := Assess(Input{
		Symbol:       "NSE:NIFTY50-INDEX",
		Rows:         grid(21500, 22500, 50),
		Spot:         22010,
		SnapshotTime: now.Add(-5 * time.Minute),
	}, now)
	assert.True(t, v.IsUsable)
	assert.Empty(t, v.AnomalyFlags)
	assert.Empty(t, v.Warnings)
}

func TestAssessStale(t *testing.T) {
	v := Assess(Input{
		Symbol:       "NSE:NIFTY50-INDEX",
		Rows:         grid(21500, 22500, 50),
		Spot:         22000,
		SnapshotTime: now.Add(-20*time.Minute - 30*time.Second),
	}, now)
	assert.True(t, v.StaleData)
	assert.False(t, v.IsUsable)
	assert.Contains(t, v.Warnings, "Snapshot is stale by 20 minutes.")
}

func TestAssessMissingStrikes(t *testing.T) {
	// 100-point grid for a 50-step index leaves 8 of 17 grid points absent.
	v := Assess(Input{
		Symbol:       "NSE:NIFTY50-INDEX",
		Rows:         grid(21000, 23000, 100),
		Spot:         22000,
		SnapshotTime: now,
	}, now)
	assert.True(t, v.MissingStrikes)
	assert.False(t, v.IsUsable)
	assert.Contains(t, v.Warnings, "Missing strikes near ATM: 8 gaps detected.")

	// Same grid is complete for a 100-step index.
	v = Assess(Input{Symbol: "NSE:NIFTYBANK-INDEX", Rows: grid(21000, 23000, 100), Spot: 22000, SnapshotTime: now}, now)
	assert.False(t, v.MissingStrikes)
	assert.True(t, v.IsUsable)
}

func TestAssessCriticalAndNonCriticalFlags(t *testing.T) {
	rows := grid(21500, 22500, 50)
	rows[0].OpenInterest = -1
	rows = append(rows, rows[1])
	v := Assess(Input{Symbol: "NSE:NIFTY50-INDEX", Rows: rows, Spot: 22000, SnapshotTime: now}, now)
	assert.Contains(t, v.AnomalyFlags, FlagNegativeOI)
	assert.Contains(t, v.AnomalyFlags, FlagDuplicateRows)
	assert.False(t, v.IsUsable)

	rows = grid(21500, 22500, 50)
	for i := range rows {
		if i%2 == 0 {
			rows[i].LTP = math.NaN()
		}
	}
	rows[3].Volume = math.Inf(1)
	v = Assess(Input{Symbol: "NSE:NIFTY50-INDEX", Rows: rows, Spot: 22000, SnapshotTime: now}, now)
	assert.Equal(t, []string{"inf_detected_volume", "high_na_ratio_ltp"}, v.AnomalyFlags)
	assert.True(t, v.IsUsable)
	assert.Len(t, v.Warnings, 2)
}

func TestStrikeStep(t *testing.T) {
	assert.Equal(t, 50, StrikeStep("NSE:NIFTY50-INDEX"))
	assert.Equal(t, 100, StrikeStep("NSE:NIFTYBANK-INDEX"))
	assert.Equal(t, 100, StrikeStep("BSE:SENSEX-INDEX"))
}
