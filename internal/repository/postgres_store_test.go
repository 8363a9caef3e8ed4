package repository

import (
	"context"
	"errors"
	"math"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudipta6891/OC-Chain-System-ver-01/internal/domain/models"
	pkgpg "github.com/sudipta6891/OC-Chain-System-ver-01/pkg/postgres"
)

var fixedNow = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func newMockStore(t *testing.T) (*PGStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	s := NewPGStore(pkgpg.NewWithDB(sqlx.NewDb(db, "postgres")), time.Second)
	s.now = func() time.Time { return fixedNow }
	return s, mock
}

func TestSaveSnapshotMapsNaNToNull(t *testing.T) {
	s, mock := newMockStore(t)
	ts := time.Date(2026, 3, 2, 15, 30, 0, 0, time.FixedZone("IST", 5*3600+1800))
	iv := 14.2
	rows := []models.ChainRow{
		{StrikePrice: 22000, OptionType: models.CE, OpenInterest: 100, OIChange: 5, Volume: math.NaN(), LTP: 12.5, SnapshotTime: ts},
		{StrikePrice: 22000, OptionType: models.PE, OpenInterest: 80, OIChange: -2, Volume: 40, LTP: 30, IV: &iv, Expiry: "2026-03-05", SnapshotTime: ts},
		{StrikePrice: 22100},
	}

	insert := regexp.QuoteMeta("INSERT INTO option_chain_snapshot (" + snapshotColumns + ") VALUES ($1, $2")
	mock.ExpectBegin()
	mock.ExpectExec(insert).
		WithArgs(
			"NIFTY", 22000.0, "CE", 100.0, 5.0, nil, 12.5, nil, nil, ts.UTC(),
			"NIFTY", 22000.0, "PE", 80.0, -2.0, 40.0, 30.0, 14.2, "2026-03-05", ts.UTC(),
		).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	require.NoError(t, s.SaveSnapshot(context.Background(), "NIFTY", rows))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveSnapshotRollsBackOnError(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO option_chain_snapshot").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := s.SaveSnapshot(context.Background(), "NIFTY", []models.ChainRow{{StrikePrice: 1, OptionType: models.CE}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "save snapshot")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshotTimesAndAt(t *testing.T) {
	s, mock := newMockStore(t)
	t1 := fixedNow
	t0 := fixedNow.Add(-5 * time.Minute)

	mock.ExpectQuery("SELECT DISTINCT snapshot_time").
		WithArgs("NIFTY", fixedNow, 3).
		WillReturnRows(sqlmock.NewRows([]string{"snapshot_time"}).AddRow(t1).AddRow(t0))

	times, err := s.SnapshotTimes(context.Background(), "NIFTY", fixedNow, 3)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{t1, t0}, times)

	cols := []string{"symbol", "strike_price", "option_type", "open_interest", "oi_change", "volume", "ltp", "iv", "expiry", "snapshot_time"}
	mock.ExpectQuery("FROM option_chain_snapshot").
		WithArgs("NIFTY", t0).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("NIFTY", 22000.0, "CE", 1000.0, nil, 50.0, 10.0, 12.0, "2026-03-05", t0).
			AddRow("NIFTY", 22000.0, "PE", 900.0, 3.0, nil, nil, nil, nil, t0))

	rows, err := s.SnapshotAt(context.Background(), "NIFTY", t0)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, models.CE, rows[0].OptionType)
	assert.True(t, math.IsNaN(rows[0].OIChange))
	require.NotNil(t, rows[0].IV)
	assert.InDelta(t, 12.0, *rows[0].IV, 1e-9)
	assert.Equal(t, "2026-03-05", rows[0].Expiry)
	assert.True(t, math.IsNaN(rows[1].Volume))
	assert.True(t, math.IsNaN(rows[1].LTP))
	assert.Nil(t, rows[1].IV)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLTPQueries(t *testing.T) {
	s, mock := newMockStore(t)
	from := fixedNow
	until := fixedNow.Add(30 * time.Minute)

	mock.ExpectQuery("snapshot_time BETWEEN").
		WithArgs("NIFTY", "CE", 22100.0, from, until).
		WillReturnRows(sqlmock.NewRows([]string{"snapshot_time", "ltp"}).
			AddRow(from, 100.0).
			AddRow(from.Add(5*time.Minute), nil).
			AddRow(from.Add(10*time.Minute), 120.0))

	path, err := s.LTPPath(context.Background(), "NIFTY", models.CE, 22100, from, until)
	require.NoError(t, err)
	assert.Equal(t, []models.LTPPoint{{Time: from, LTP: 100}, {Time: from.Add(10 * time.Minute), LTP: 120}}, path)

	mock.ExpectQuery("LIMIT 1").
		WillReturnRows(sqlmock.NewRows([]string{"snapshot_time", "ltp"}))
	p, err := s.LTPAtOrAfter(context.Background(), "NIFTY", models.PE, 21900, from)
	require.NoError(t, err)
	assert.Nil(t, p)

	mock.ExpectQuery("LIMIT 1").
		WillReturnRows(sqlmock.NewRows([]string{"snapshot_time", "ltp"}).AddRow(until, 88.5))
	p, err = s.LTPAtOrAfter(context.Background(), "NIFTY", models.PE, 21900, from)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, 88.5, p.LTP)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecentSummariesAscending(t *testing.T) {
	s, mock := newMockStore(t)
	cols := []string{"snapshot_time", "spot_price", "pcr", "resistance", "support", "max_pain"}
	mock.ExpectQuery("FROM option_chain_summary").
		WithArgs("NIFTY", fixedNow, 24).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(fixedNow, 22050.0, 1.1, 22200.0, 21900.0, 22000.0).
			AddRow(fixedNow.Add(-10*time.Minute), 22000.0, 1.0, 22200.0, 21900.0, 22000.0).
			AddRow(fixedNow.Add(-20*time.Minute), 21950.0, 0.9, 22200.0, 21800.0, 22000.0))

	out, err := s.RecentSummaries(context.Background(), "NIFTY", fixedNow, 24)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, 21950.0, out[0].SpotPrice)
	assert.Equal(t, 22050.0, out[2].SpotPrice)
	assert.True(t, out[0].SnapshotTime.Before(out[2].SnapshotTime))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveSummary(t *testing.T) {
	s, mock := newMockStore(t)
	sum := models.ChainSummary{Symbol: "NIFTY", SnapshotTime: fixedNow, Spot: 22010, ATM: 22000, TotalCEOI: 10, TotalPEOI: 12,
		PCR: 1.2, Resistance: 22200, Support: 21800, MaxPain: 22000, Structure: "Unclear Structure", Trap: "No Trap Detected"}
	mock.ExpectExec("INSERT INTO option_chain_summary").
		WithArgs("NIFTY", fixedNow, 22010.0, 22000.0, 10.0, 12.0, 1.2, 22200.0, 21800.0, 22000.0, "Unclear Structure", "No Trap Detected").
		WillReturnResult(sqlmock.NewResult(1, 1))
	require.NoError(t, s.SaveSummary(context.Background(), sum))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveScalpHealsSequenceDrift(t *testing.T) {
	s, mock := newMockStore(t)
	sc := models.ScalpScore{Score: 60, Signal: "BUY OTM", Edge: "Moderate", Risk: "Medium",
		Breakdown: models.ScalpBreakdown{Breakout: 30, Volume: 20, Bias: 10}}

	mock.ExpectExec("INSERT INTO scalp_score_tracking").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "scalp_score_tracking_pkey"})
	mock.ExpectExec("SELECT setval").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO scalp_score_tracking").
		WithArgs("NIFTY", fixedNow, 22000.0, 30, 20, 10, 0, 60, "BUY OTM", "Moderate", "Medium").
		WillReturnResult(sqlmock.NewResult(9, 1))

	require.NoError(t, s.SaveScalp(context.Background(), "NIFTY", fixedNow, 22000, sc))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveScalpOtherErrorsSurface(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("INSERT INTO scalp_score_tracking").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "other_unique"})

	require.Error(t, s.SaveScalp(context.Background(), "NIFTY", fixedNow, 22000, models.ScalpScore{}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func signalCols() []string {
	return []string{"id", "cycle_id", "symbol", "snapshot_time", "side", "strike_price", "entry_ltp", "spot_price",
		"regime", "signal_strength", "timing_score", "raw_probability", "calibrated_probability",
		"stop_loss_pct", "target_pct", "time_stop_min", "execution_notes"}
}

func TestInsertAndReadSignals(t *testing.T) {
	s, mock := newMockStore(t)
	entry := 101.5
	rec := models.SignalRecord{CycleID: "c1", Symbol: "NIFTY", SnapshotTime: fixedNow, Side: "CE", StrikePrice: 22100,
		EntryLTP: &entry, SpotPrice: 22010, Regime: models.RegimeTrend, SignalStrength: 61, TimingScore: 77,
		RawProbability: 0.8, CalibratedProbability: 0.74, StopLossPct: 25, TargetPct: 45, TimeStopMin: 30,
		ExecutionNotes: "a; b"}

	mock.ExpectQuery("INSERT INTO trade_signals").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))
	id, err := s.InsertSignal(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	mock.ExpectQuery(regexp.QuoteMeta("snapshot_time::date BETWEEN $2::date AND $3::date")).
		WithArgs("NIFTY", "2026-03-01", "2026-03-02").
		WillReturnRows(sqlmock.NewRows(signalCols()).
			AddRow(int64(42), "c1", "NIFTY", fixedNow, "CE", 22100.0, 101.5, 22010.0, "TREND", 61.0, 77.0, 0.8, 0.74, 25.0, 45.0, 30, "a; b").
			AddRow(int64(43), "", "NIFTY", fixedNow.Add(time.Hour), "PE", 21900.0, nil, 22010.0, "", 0.0, 0.0, 0.5, 0.5, 25.0, 45.0, 30, ""))

	sigs, err := s.SignalsInRange(context.Background(), "NIFTY",
		time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, sigs, 2)
	require.NotNil(t, sigs[0].EntryLTP)
	assert.Equal(t, 101.5, *sigs[0].EntryLTP)
	assert.Nil(t, sigs[1].EntryLTP)
	assert.Equal(t, "PE", sigs[1].Side)

	mock.ExpectQuery("ORDER BY snapshot_time DESC").
		WithArgs("NIFTY", fixedNow.Add(-8*time.Hour)).
		WillReturnRows(sqlmock.NewRows(signalCols()))
	pending, err := s.PendingSignals(context.Background(), "NIFTY", fixedNow.Add(-8*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, pending)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertOutcome(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (signal_id, horizon_min) DO UPDATE")).
		WithArgs(int64(42), 30, nil, nil, nil, nil, models.OutcomeOpen, false, false, 0.0).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.UpsertOutcome(context.Background(), models.TradeOutcome{SignalID: 42, HorizonMin: 30, Label: models.OutcomeOpen})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCalibrationSamplesAndPerformance(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("FROM trade_outcomes o").
		WithArgs("NIFTY", fixedNow.Add(-45*24*time.Hour), 30).
		WillReturnRows(sqlmock.NewRows([]string{"raw_probability", "outcome"}).
			AddRow(0.99, 1).AddRow(0.42, 0))
	samples, err := s.CalibrationSamples(context.Background(), "NIFTY", 45)
	require.NoError(t, err)
	assert.Equal(t, []models.CalibrationSample{{RawProbability: 0.99, Outcome: 1}, {RawProbability: 0.42, Outcome: 0}}, samples)

	mock.ExpectQuery("COUNT").
		WithArgs("NIFTY", fixedNow.Add(-20*24*time.Hour), 30).
		WillReturnRows(sqlmock.NewRows([]string{"trades", "avg_return_pct", "hit_rate", "expectancy"}).
			AddRow(int64(4), 6.5, 0.5, 0.065))
	perf, err := s.RecentPerformance(context.Background(), "NIFTY", 20)
	require.NoError(t, err)
	assert.Equal(t, models.Performance{Trades: 4, HitRate: 0.5, Expectancy: 0.065, AvgReturnPct: 6.5}, perf)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteOlderThan(t *testing.T) {
	s, mock := newMockStore(t)
	cutoff := fixedNow.Add(-7 * 24 * time.Hour)

	mock.ExpectBegin()
	for i, table := range []string{"option_chain_snapshot", "option_chain_summary", "scalp_score_tracking", "trade_outcomes", "trade_signals"} {
		mock.ExpectExec("DELETE FROM " + table).WithArgs(cutoff).WillReturnResult(sqlmock.NewResult(0, int64(i+1)))
	}
	mock.ExpectCommit()

	n, err := s.DeleteOlderThan(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(15), n)
	require.NoError(t, mock.ExpectationsWereMet())
}
