package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sudipta6891/OC-Chain-System-ver-01/internal/domain/models"
	domrepo "github.com/sudipta6891/OC-Chain-System-ver-01/internal/domain/repository"
	pkgch "github.com/sudipta6891/OC-Chain-System-ver-01/pkg/clickhouse"
	applogger "github.com/sudipta6891/OC-Chain-System-ver-01/pkg/logger"
)

var (
	_ domrepo.SnapshotStore  = (*CHSnapshotStore)(nil)
	_ domrepo.RetentionStore = (*CHSnapshotStore)(nil)
)

// CHSnapshotStore keeps raw chain snapshots in ClickHouse and serves the
// LTP paths used by outcome labeling and the backtester.
type CHSnapshotStore struct {
	db    *sqlx.DB
	table string
	now   func() time.Time
	l     *applogger.Logger
}

func NewCHSnapshotStore(ch *pkgch.Client, database string) *CHSnapshotStore {
	table := "option_chain_snapshot"
	if database != "" {
		table = database + "." + table
	}
	return &CHSnapshotStore{db: ch.DB(), table: table, now: time.Now, l: applogger.Nop()}
}

// SetLogger injects a structured logger.
func (s *CHSnapshotStore) SetLogger(l *applogger.Logger) {
	if l != nil {
		s.l = l
	}
}

func (s *CHSnapshotStore) SaveSnapshot(ctx context.Context, symbol string, rows []models.ChainRow) error {
	start := time.Now()
	queries, argSets := snapshotInserts(s.table, symbol, rows, s.now())
	for i, q := range queries {
		if _, err := s.db.ExecContext(ctx, q, argSets[i]...); err != nil {
			s.l.Error("clickhouse save_snapshot error",
				applogger.String("table", s.table),
				applogger.String("symbol", symbol),
				applogger.Int("rows", len(rows)),
				applogger.Error(err),
			)
			return fmt.Errorf("save snapshot: %w", err)
		}
	}
	s.l.Debug("clickhouse save_snapshot ok",
		applogger.String("symbol", symbol),
		applogger.Int("rows", len(rows)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return nil
}

func (s *CHSnapshotStore) SnapshotTimes(ctx context.Context, symbol string, upto time.Time, limit int) ([]time.Time, error) {
	q := fmt.Sprintf(`
		SELECT DISTINCT snapshot_time
		FROM %s
		WHERE symbol = ? AND snapshot_time <= ?
		ORDER BY snapshot_time DESC
		LIMIT ?`, s.table)
	var out []time.Time
	if err := s.db.SelectContext(ctx, &out, q, symbol, upto.UTC(), limit); err != nil {
		s.l.Error("clickhouse snapshot_times query error",
			applogger.String("symbol", symbol),
			applogger.Int("limit", limit),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("snapshot times: %w", err)
	}
	return out, nil
}

func (s *CHSnapshotStore) SnapshotAt(ctx context.Context, symbol string, at time.Time) ([]models.ChainRow, error) {
	q := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE symbol = ? AND snapshot_time = ?
		ORDER BY option_type, strike_price`, snapshotColumns, s.table)
	var recs []snapshotRecord
	if err := s.db.SelectContext(ctx, &recs, q, symbol, at.UTC()); err != nil {
		s.l.Error("clickhouse snapshot_at query error",
			applogger.String("symbol", symbol),
			applogger.Time("at", at),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("snapshot at: %w", err)
	}
	out := make([]models.ChainRow, len(recs))
	for i, r := range recs {
		out[i] = r.chainRow()
	}
	return out, nil
}

func (s *CHSnapshotStore) LTPPath(ctx context.Context, symbol string, side models.OptionType, strike float64, from, until time.Time) ([]models.LTPPoint, error) {
	q := fmt.Sprintf(`
		SELECT snapshot_time, ltp
		FROM %s
		WHERE symbol = ? AND option_type = ? AND strike_price = ?
		  AND snapshot_time >= ? AND snapshot_time <= ?
		ORDER BY snapshot_time ASC`, s.table)
	var recs []ltpRecord
	if err := s.db.SelectContext(ctx, &recs, q, symbol, string(side), strike, from.UTC(), until.UTC()); err != nil {
		s.l.Error("clickhouse ltp_path query error",
			applogger.String("symbol", symbol),
			applogger.String("side", string(side)),
			applogger.Float64("strike", strike),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("ltp path: %w", err)
	}
	return ltpPoints(recs), nil
}

func (s *CHSnapshotStore) LTPAtOrAfter(ctx context.Context, symbol string, side models.OptionType, strike float64, t time.Time) (*models.LTPPoint, error) {
	q := fmt.Sprintf(`
		SELECT snapshot_time, ltp
		FROM %s
		WHERE symbol = ? AND option_type = ? AND strike_price = ?
		  AND snapshot_time >= ? AND ltp IS NOT NULL AND NOT isNaN(ltp)
		ORDER BY snapshot_time ASC
		LIMIT 1`, s.table)
	var recs []ltpRecord
	if err := s.db.SelectContext(ctx, &recs, q, symbol, string(side), strike, t.UTC()); err != nil {
		s.l.Error("clickhouse ltp_at_or_after query error",
			applogger.String("symbol", symbol),
			applogger.Float64("strike", strike),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("ltp at or after: %w", err)
	}
	points := ltpPoints(recs)
	if len(points) == 0 {
		return nil, nil
	}
	return &points[0], nil
}

// DeleteOlderThan issues a lightweight mutation; ClickHouse reports no row
// count so the result is always 0.
func (s *CHSnapshotStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	q := fmt.Sprintf(`ALTER TABLE %s DELETE WHERE snapshot_time < ?`, s.table)
	if _, err := s.db.ExecContext(ctx, q, cutoff); err != nil {
		s.l.Error("clickhouse retention error", applogger.String("table", s.table), applogger.Error(err))
		return 0, fmt.Errorf("delete snapshots before %s: %w", cutoff.Format(time.DateOnly), err)
	}
	return 0, nil
}
