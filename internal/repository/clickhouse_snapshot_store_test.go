package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudipta6891/OC-Chain-System-ver-01/internal/domain/models"
	pkgch "github.com/sudipta6891/OC-Chain-System-ver-01/pkg/clickhouse"
)

func newMockCH(t *testing.T) (*CHSnapshotStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	s := NewCHSnapshotStore(pkgch.NewWithDB(sqlx.NewDb(db, "clickhouse")), "option_chain")
	s.now = func() time.Time { return fixedNow }
	return s, mock
}

func TestCHSaveSnapshotUsesFallbackTime(t *testing.T) {
	s, mock := newMockCH(t)
	insert := regexp.QuoteMeta("INSERT INTO option_chain.option_chain_snapshot (" + snapshotColumns + ") VALUES (?, ?")
	mock.ExpectExec(insert).
		WithArgs("NIFTY", 22000.0, "CE", 10.0, 1.0, 2.0, 3.0, nil, nil, fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rows := []models.ChainRow{{StrikePrice: 22000, OptionType: models.CE, OpenInterest: 10, OIChange: 1, Volume: 2, LTP: 3}}
	require.NoError(t, s.SaveSnapshot(context.Background(), "NIFTY", rows))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCHSaveSnapshotEmptyIsNoop(t *testing.T) {
	s, mock := newMockCH(t)
	require.NoError(t, s.SaveSnapshot(context.Background(), "NIFTY", nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCHSnapshotQueries(t *testing.T) {
	s, mock := newMockCH(t)

	mock.ExpectQuery("SELECT DISTINCT snapshot_time").
		WithArgs("NIFTY", fixedNow, 3).
		WillReturnRows(sqlmock.NewRows([]string{"snapshot_time"}).AddRow(fixedNow))
	times, err := s.SnapshotTimes(context.Background(), "NIFTY", fixedNow, 3)
	require.NoError(t, err)
	assert.Len(t, times, 1)

	mock.ExpectQuery("isNaN").
		WithArgs("NIFTY", "CE", 22100.0, fixedNow).
		WillReturnRows(sqlmock.NewRows([]string{"snapshot_time", "ltp"}).AddRow(fixedNow.Add(time.Minute), 55.0))
	p, err := s.LTPAtOrAfter(context.Background(), "NIFTY", models.CE, 22100, fixedNow)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, 55.0, p.LTP)

	mock.ExpectQuery("ORDER BY snapshot_time ASC").WillReturnError(errors.New("timeout"))
	_, err = s.LTPPath(context.Background(), "NIFTY", models.CE, 22100, fixedNow, fixedNow.Add(time.Hour))
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCHDeleteOlderThan(t *testing.T) {
	s, mock := newMockCH(t)
	cutoff := fixedNow.AddDate(0, 0, -7)
	mock.ExpectExec(regexp.QuoteMeta("ALTER TABLE option_chain.option_chain_snapshot DELETE WHERE snapshot_time < ?")).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 0))
	n, err := s.DeleteOlderThan(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Zero(t, n)

	mock.ExpectExec("ALTER TABLE").WillReturnError(errors.New("readonly"))
	_, err = s.DeleteOlderThan(context.Background(), cutoff)
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
