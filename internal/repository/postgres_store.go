package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sudipta6891/OC-Chain-System-ver-01/internal/domain/models"
	domrepo "github.com/sudipta6891/OC-Chain-System-ver-01/internal/domain/repository"
	applogger "github.com/sudipta6891/OC-Chain-System-ver-01/pkg/logger"
	pkgpg "github.com/sudipta6891/OC-Chain-System-ver-01/pkg/postgres"
)

const (
	calibrationHorizon = 30
	uniqueViolation    = "23505"
	scalpPrimaryKey    = "scalp_score_tracking_pkey"
)

var (
	_ domrepo.SnapshotStore  = (*PGStore)(nil)
	_ domrepo.SummaryStore   = (*PGStore)(nil)
	_ domrepo.SignalStore    = (*PGStore)(nil)
	_ domrepo.OutcomeStore   = (*PGStore)(nil)
	_ domrepo.RetentionStore = (*PGStore)(nil)
)

// PGStore is the Postgres system of record: snapshots, summaries, scalp
// scores, signals and their outcomes.
type PGStore struct {
	db      *sqlx.DB
	timeout time.Duration
	now     func() time.Time
	l       *applogger.Logger
}

func NewPGStore(pg *pkgpg.Client, timeout time.Duration) *PGStore {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &PGStore{db: pg.DB(), timeout: timeout, now: time.Now, l: applogger.Nop()}
}

// SetLogger injects a structured logger.
func (s *PGStore) SetLogger(l *applogger.Logger) {
	if l != nil {
		s.l = l
	}
}

func (s *PGStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

func (s *PGStore) logError(op string, err error, fields ...applogger.Field) {
	s.l.Error("postgres "+op+" error", append(fields, applogger.Error(err))...)
}

func (s *PGStore) SaveSnapshot(ctx context.Context, symbol string, rows []models.ChainRow) error {
	if len(rows) == 0 {
		return nil
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	queries, argSets := snapshotInserts("option_chain_snapshot", symbol, rows, s.now())
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save snapshot: begin: %w", err)
	}
	for i, q := range queries {
		if _, err := tx.ExecContext(ctx, s.db.Rebind(q), argSets[i]...); err != nil {
			_ = tx.Rollback()
			s.logError("save_snapshot", err, applogger.String("symbol", symbol), applogger.Int("rows", len(rows)))
			return fmt.Errorf("save snapshot: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save snapshot: commit: %w", err)
	}
	return nil
}

func (s *PGStore) SnapshotTimes(ctx context.Context, symbol string, upto time.Time, limit int) ([]time.Time, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	const q = `
		SELECT DISTINCT snapshot_time
		FROM option_chain_snapshot
		WHERE symbol = $1 AND snapshot_time <= $2
		ORDER BY snapshot_time DESC
		LIMIT $3`
	var out []time.Time
	if err := s.db.SelectContext(ctx, &out, q, symbol, upto, limit); err != nil {
		s.logError("snapshot_times", err, applogger.String("symbol", symbol))
		return nil, fmt.Errorf("snapshot times: %w", err)
	}
	return out, nil
}

func (s *PGStore) SnapshotAt(ctx context.Context, symbol string, at time.Time) ([]models.ChainRow, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	q := `SELECT ` + snapshotColumns + `
		FROM option_chain_snapshot
		WHERE symbol = $1 AND snapshot_time = $2
		ORDER BY option_type, strike_price`
	var recs []snapshotRecord
	if err := s.db.SelectContext(ctx, &recs, q, symbol, at); err != nil {
		s.logError("snapshot_at", err, applogger.String("symbol", symbol), applogger.Time("at", at))
		return nil, fmt.Errorf("snapshot at: %w", err)
	}
	out := make([]models.ChainRow, len(recs))
	for i, r := range recs {
		out[i] = r.chainRow()
	}
	return out, nil
}

func (s *PGStore) LTPPath(ctx context.Context, symbol string, side models.OptionType, strike float64, from, until time.Time) ([]models.LTPPoint, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	const q = `
		SELECT snapshot_time, ltp
		FROM option_chain_snapshot
		WHERE symbol = $1 AND option_type = $2 AND strike_price = $3
		  AND snapshot_time BETWEEN $4 AND $5
		ORDER BY snapshot_time ASC`
	var recs []ltpRecord
	if err := s.db.SelectContext(ctx, &recs, q, symbol, string(side), strike, from, until); err != nil {
		s.logError("ltp_path", err, applogger.String("symbol", symbol), applogger.Float64("strike", strike))
		return nil, fmt.Errorf("ltp path: %w", err)
	}
	return ltpPoints(recs), nil
}

func (s *PGStore) LTPAtOrAfter(ctx context.Context, symbol string, side models.OptionType, strike float64, t time.Time) (*models.LTPPoint, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	const q = `
		SELECT snapshot_time, ltp
		FROM option_chain_snapshot
		WHERE symbol = $1 AND option_type = $2 AND strike_price = $3
		  AND snapshot_time >= $4
		ORDER BY snapshot_time ASC
		LIMIT 1`
	var recs []ltpRecord
	if err := s.db.SelectContext(ctx, &recs, q, symbol, string(side), strike, t); err != nil {
		s.logError("ltp_at_or_after", err, applogger.String("symbol", symbol), applogger.Float64("strike", strike))
		return nil, fmt.Errorf("ltp at or after: %w", err)
	}
	points := ltpPoints(recs)
	if len(points) == 0 {
		return nil, nil
	}
	return &points[0], nil
}

func (s *PGStore) SaveSummary(ctx context.Context, sum models.ChainSummary) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	const q = `
		INSERT INTO option_chain_summary (
			symbol, snapshot_time, spot_price, atm_strike, total_ce_oi, total_pe_oi,
			pcr, resistance, support, max_pain, structure, trap_signal
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := s.db.ExecContext(ctx, q,
		sum.Symbol, sum.SnapshotTime, sum.Spot, sum.ATM, sum.TotalCEOI, sum.TotalPEOI,
		sum.PCR, sum.Resistance, sum.Support, sum.MaxPain, sum.Structure, sum.Trap)
	if err != nil {
		s.logError("save_summary", err, applogger.String("symbol", sum.Symbol))
		return fmt.Errorf("save summary: %w", err)
	}
	return nil
}

func (s *PGStore) RecentSummaries(ctx context.Context, symbol string, upto time.Time, limit int) ([]models.SummaryRow, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	const q = `
		SELECT snapshot_time, spot_price,
		       COALESCE(pcr, 'NaN') AS pcr,
		       COALESCE(resistance, 'NaN') AS resistance,
		       COALESCE(support, 'NaN') AS support,
		       COALESCE(max_pain, 'NaN') AS max_pain
		FROM option_chain_summary
		WHERE symbol = $1 AND snapshot_time <= $2
		ORDER BY snapshot_time DESC
		LIMIT $3`
	var out []models.SummaryRow
	if err := s.db.SelectContext(ctx, &out, q, symbol, upto, limit); err != nil {
		s.logError("recent_summaries", err, applogger.String("symbol", symbol), applogger.Int("limit", limit))
		return nil, fmt.Errorf("recent summaries: %w", err)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

const insertScalp = `
	INSERT INTO scalp_score_tracking (
		symbol, snapshot_time, spot_price, breakout_score, volume_score,
		bias_score, covering_score, total_score, signal, edge, risk_level
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

// SaveScalp inserts a scalp score. A primary-key collision means the serial
// sequence drifted behind MAX(id); the sequence is reset and the insert retried once.
func (s *PGStore) SaveScalp(ctx context.Context, symbol string, snapshotTime time.Time, spot float64, sc models.ScalpScore) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	args := []any{
		symbol, snapshotTime, spot,
		sc.Breakdown.Breakout, sc.Breakdown.Volume, sc.Breakdown.Bias, sc.Breakdown.Covering,
		sc.Score, sc.Signal, sc.Edge, sc.Risk,
	}
	_, err := s.db.ExecContext(ctx, insertScalp, args...)
	if err == nil {
		return nil
	}
	if !isScalpKeyDrift(err) {
		s.logError("save_scalp", err, applogger.String("symbol", symbol))
		return fmt.Errorf("save scalp: %w", err)
	}

	s.l.Warn("scalp id sequence drift, resetting", applogger.String("symbol", symbol))
	const reset = `
		SELECT setval(
			pg_get_serial_sequence('scalp_score_tracking', 'id'),
			COALESCE((SELECT MAX(id) FROM scalp_score_tracking), 0) + 1,
			false)`
	if _, err := s.db.ExecContext(ctx, reset); err != nil {
		return fmt.Errorf("save scalp: reset sequence: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, insertScalp, args...); err != nil {
		s.logError("save_scalp", err, applogger.String("symbol", symbol), applogger.Bool("retry", true))
		return fmt.Errorf("save scalp after sequence reset: %w", err)
	}
	return nil
}

func isScalpKeyDrift(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return string(pqErr.Code) == uniqueViolation && pqErr.Constraint == scalpPrimaryKey
}

func (s *PGStore) InsertSignal(ctx context.Context, rec models.SignalRecord) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	const q = `
		INSERT INTO trade_signals (
			cycle_id, symbol, snapshot_time, side, strike_price, entry_ltp, spot_price,
			regime, signal_strength, timing_score, raw_probability, calibrated_probability,
			stop_loss_pct, target_pct, time_stop_min, execution_notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id`
	var id int64
	err := s.db.QueryRowxContext(ctx, q,
		rec.CycleID, rec.Symbol, rec.SnapshotTime, rec.Side, rec.StrikePrice, rec.EntryLTP, rec.SpotPrice,
		rec.Regime, rec.SignalStrength, rec.TimingScore, rec.RawProbability, rec.CalibratedProbability,
		rec.StopLossPct, rec.TargetPct, rec.TimeStopMin, rec.ExecutionNotes,
	).Scan(&id)
	if err != nil {
		s.logError("insert_signal", err, applogger.String("symbol", rec.Symbol), applogger.String("cycle_id", rec.CycleID))
		return 0, fmt.Errorf("insert signal: %w", err)
	}
	return id, nil
}

const signalColumns = `id, cycle_id, symbol, snapshot_time, side, strike_price, entry_ltp, spot_price,
	regime, signal_strength, timing_score,
	COALESCE(raw_probability, calibrated_probability, 0.5) AS raw_probability,
	COALESCE(calibrated_probability, raw_probability, 0.5) AS calibrated_probability,
	stop_loss_pct, target_pct, time_stop_min, execution_notes`

func (s *PGStore) SignalsInRange(ctx context.Context, symbol string, start, end time.Time) ([]models.SignalRecord, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	q := `SELECT ` + signalColumns + `
		FROM trade_signals
		WHERE symbol = $1
		  AND snapshot_time::date BETWEEN $2::date AND $3::date
		ORDER BY snapshot_time ASC`
	var out []models.SignalRecord
	if err := s.db.SelectContext(ctx, &out, q, symbol, start.Format(time.DateOnly), end.Format(time.DateOnly)); err != nil {
		s.logError("signals_in_range", err, applogger.String("symbol", symbol))
		return nil, fmt.Errorf("signals in range: %w", err)
	}
	return out, nil
}

func (s *PGStore) PendingSignals(ctx context.Context, symbol string, since time.Time) ([]models.SignalRecord, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	q := `SELECT ` + signalColumns + `
		FROM trade_signals
		WHERE symbol = $1 AND snapshot_time >= $2
		ORDER BY snapshot_time DESC`
	var out []models.SignalRecord
	if err := s.db.SelectContext(ctx, &out, q, symbol, since); err != nil {
		s.logError("pending_signals", err, applogger.String("symbol", symbol))
		return nil, fmt.Errorf("pending signals: %w", err)
	}
	return out, nil
}

func (s *PGStore) UpsertOutcome(ctx context.Context, o models.TradeOutcome) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	const q = `
		INSERT INTO trade_outcomes (
			signal_id, horizon_min, exit_time, exit_ltp, return_pct, pnl_points,
			outcome_label, hit_target, hit_stop, expectancy_component
		) VALUES (
			:signal_id, :horizon_min, :exit_time, :exit_ltp, :return_pct, :pnl_points,
			:outcome_label, :hit_target, :hit_stop, :expectancy_component
		)
		ON CONFLICT (signal_id, horizon_min) DO UPDATE SET
			exit_time = EXCLUDED.exit_time,
			exit_ltp = EXCLUDED.exit_ltp,
			return_pct = EXCLUDED.return_pct,
			pnl_points = EXCLUDED.pnl_points,
			outcome_label = EXCLUDED.outcome_label,
			hit_target = EXCLUDED.hit_target,
			hit_stop = EXCLUDED.hit_stop,
			expectancy_component = EXCLUDED.expectancy_component`
	if _, err := s.db.NamedExecContext(ctx, q, o); err != nil {
		s.logError("upsert_outcome", err, applogger.Int64("signal_id", o.SignalID), applogger.Int("horizon_min", o.HorizonMin))
		return fmt.Errorf("upsert outcome: %w", err)
	}
	return nil
}

// CalibrationSamples returns horizon-30 WIN/LOSS outcomes of signals
// emitted within the lookback, probabilities clamped to [0.01, 0.99].
func (s *PGStore) CalibrationSamples(ctx context.Context, symbol string, lookbackDays int) ([]models.CalibrationSample, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	const q = `
		SELECT LEAST(0.99, GREATEST(0.01, COALESCE(s.raw_probability, s.calibrated_probability))) AS raw_probability,
		       CASE WHEN o.outcome_label = 'WIN' THEN 1 ELSE 0 END AS outcome
		FROM trade_outcomes o
		JOIN trade_signals s ON s.id = o.signal_id
		WHERE s.symbol = $1
		  AND s.snapshot_time >= $2
		  AND o.horizon_min = $3
		  AND o.outcome_label IN ('WIN', 'LOSS')
		  AND COALESCE(s.raw_probability, s.calibrated_probability) IS NOT NULL`
	cutoff := s.now().Add(-time.Duration(lookbackDays) * 24 * time.Hour)
	var out []models.CalibrationSample
	if err := s.db.SelectContext(ctx, &out, q, symbol, cutoff, calibrationHorizon); err != nil {
		s.logError("calibration_samples", err, applogger.String("symbol", symbol), applogger.Int("lookback_days", lookbackDays))
		return nil, fmt.Errorf("calibration samples: %w", err)
	}
	return out, nil
}

func (s *PGStore) RecentPerformance(ctx context.Context, symbol string, lookbackDays int) (models.Performance, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	const q = `
		SELECT COUNT(*) AS trades,
		       COALESCE(AVG(o.return_pct), 0) AS avg_return_pct,
		       COALESCE(SUM(CASE WHEN o.outcome_label = 'WIN' THEN 1 ELSE 0 END)::float / NULLIF(COUNT(*), 0), 0) AS hit_rate,
		       COALESCE(AVG(o.expectancy_component), 0) AS expectancy
		FROM trade_outcomes o
		JOIN trade_signals s ON s.id = o.signal_id
		WHERE s.symbol = $1
		  AND s.snapshot_time >= $2
		  AND o.horizon_min = $3
		  AND o.outcome_label IN ('WIN', 'LOSS', 'FLAT')`
	cutoff := s.now().Add(-time.Duration(lookbackDays) * 24 * time.Hour)
	var p models.Performance
	if err := s.db.GetContext(ctx, &p, q, symbol, cutoff, calibrationHorizon); err != nil {
		s.logError("recent_performance", err, applogger.String("symbol", symbol))
		return models.Performance{}, fmt.Errorf("recent performance: %w", err)
	}
	return p, nil
}

// DeleteOlderThan prunes every table in one transaction and returns the
// number of rows removed.
func (s *PGStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	tables := []struct{ name, column string }{
		{"option_chain_snapshot", "snapshot_time"},
		{"option_chain_summary", "snapshot_time"},
		{"scalp_score_tracking", "snapshot_time"},
		{"trade_outcomes", "created_at"},
		{"trade_signals", "snapshot_time"},
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("cleanup: begin: %w", err)
	}
	var total int64
	for _, t := range tables {
		res, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE %s < $1", t.name, t.column), cutoff)
		if err != nil {
			_ = tx.Rollback()
			s.logError("cleanup", err, applogger.String("table", t.name))
			return 0, fmt.Errorf("cleanup %s: %w", t.name, err)
		}
		n, _ := res.RowsAffected()
		total += n
		s.l.Info("cleaned old data", applogger.String("table", t.name), applogger.Int64("rows", n))
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("cleanup: commit: %w", err)
	}
	return total, nil
}
