package repository

import (
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sudipta6891/OC-Chain-System-ver-01/internal/domain/models"
)

const (
	snapshotColumns = "symbol, strike_price, option_type, open_interest, oi_change, volume, ltp, iv, expiry, snapshot_time"
	insertChunkSize = 2000
)

// snapshotRecord is one option_chain_snapshot row as scanned by sqlx.
type snapshotRecord struct {
	Symbol       string          `db:"symbol"`
	StrikePrice  float64         `db:"strike_price"`
	OptionType   string          `db:"option_type"`
	OpenInterest sql.NullFloat64 `db:"open_interest"`
	OIChange     sql.NullFloat64 `db:"oi_change"`
	Volume       sql.NullFloat64 `db:"volume"`
	LTP          sql.NullFloat64 `db:"ltp"`
	IV           sql.NullFloat64 `db:"iv"`
	Expiry       sql.NullString  `db:"expiry"`
	SnapshotTime time.Time       `db:"snapshot_time"`
}

func (r snapshotRecord) chainRow() models.ChainRow {
	side, _ := models.ParseOptionType(r.OptionType)
	row := models.ChainRow{
		Symbol:       r.Symbol,
		StrikePrice:  r.StrikePrice,
		OptionType:   side,
		OpenInterest: orNaN(r.OpenInterest),
		OIChange:     orNaN(r.OIChange),
		Volume:       orNaN(r.Volume),
		LTP:          orNaN(r.LTP),
		Expiry:       r.Expiry.String,
		SnapshotTime: r.SnapshotTime,
	}
	if r.IV.Valid {
		iv := r.IV.Float64
		row.IV = &iv
	}
	return row
}

type ltpRecord struct {
	SnapshotTime time.Time       `db:"snapshot_time"`
	LTP          sql.NullFloat64 `db:"ltp"`
}

// ltpPoints drops NULL and NaN observations.
func ltpPoints(recs []ltpRecord) []models.LTPPoint {
	out := make([]models.LTPPoint, 0, len(recs))
	for _, r := range recs {
		if !r.LTP.Valid || math.IsNaN(r.LTP.Float64) {
			continue
		}
		out = append(out, models.LTPPoint{Time: r.SnapshotTime, LTP: r.LTP.Float64})
	}
	return out
}

func orNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

// nullable maps NaN and Inf to NULL.
func nullable(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// snapshotInserts builds chunked multi-row INSERT statements with '?' bind
// vars. Rows without a snapshot time take fallback.
func snapshotInserts(table, symbol string, rows []models.ChainRow, fallback time.Time) ([]string, [][]any) {
	var queries []string
	var argSets [][]any
	for start := 0; start < len(rows); start += insertChunkSize {
		end := min(start+insertChunkSize, len(rows))
		values := make([]string, 0, end-start)
		args := make([]any, 0, (end-start)*10)
		for _, r := range rows[start:end] {
			if r.OptionType == "" {
				continue
			}
			ts := r.SnapshotTime
			if ts.IsZero() {
				ts = fallback
			}
			sym := r.Symbol
			if sym == "" {
				sym = symbol
			}
			var iv any
			if r.IV != nil {
				iv = nullable(*r.IV)
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				sym,
				r.StrikePrice,
				string(r.OptionType),
				nullable(r.OpenInterest),
				nullable(r.OIChange),
				nullable(r.Volume),
				nullable(r.LTP),
				iv,
				nullableString(r.Expiry),
				ts.UTC(),
			)
		}
		if len(values) == 0 {
			continue
		}
		queries = append(queries, fmt.Sprintf("INSERT INTO %s (%s) VALUES %s", table, snapshotColumns, strings.Join(values, ",")))
		argSets = append(argSets, args)
	}
	return queries, argSets
}
