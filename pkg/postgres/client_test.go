package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDSN(t *testing.T) {
	cfg := defaultConfig()
	WithHost("db.internal")(&cfg)
	WithDatabase("option_chain")(&cfg)
	WithCredentials("trader", "it's secret")(&cfg)
	WithSSLMode("require")(&cfg)

	assert.Equal(t,
		`host=db.internal port=5432 dbname=option_chain user=trader password='it\'s secret' sslmode=require connect_timeout=10`,
		buildDSN(cfg))
}

func TestNewClientValidates(t *testing.T) {
	_, err := NewClient(WithDatabase("x"))
	require.Error(t, err)
	_, err = NewClient(WithHost("localhost"))
	require.Error(t, err)
}

func TestInitSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	c := NewWithDB(sqlx.NewDb(db, "postgres"))

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE a").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE b").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	require.NoError(t, c.InitSchema(context.Background(), []string{"CREATE TABLE a (x int)", "CREATE TABLE b (y int)"}))

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE a").WillReturnError(errors.New("boom"))
	mock.ExpectRollback()
	require.Error(t, c.InitSchema(context.Background(), []string{"CREATE TABLE a (x int)"}))

	assert.NoError(t, mock.ExpectationsWereMet())
}
