package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Client manages the Postgres connection pool.
type Client struct {
	db *sqlx.DB
}

// NewClient opens and pings a Postgres pool.
func NewClient(opts ...ClientOption) (*Client, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.Host == "" {
		return nil, fmt.Errorf("host is required")
	}
	if cfg.Database == "" {
		return nil, fmt.Errorf("database is required")
	}

	db, err := sqlx.Open("postgres", buildDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("postgres open: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}

	return &Client{db: db}, nil
}

// NewWithDB wraps an already opened handle.
func NewWithDB(db *sqlx.DB) *Client {
	return &Client{db: db}
}

func (c *Client) DB() *sqlx.DB {
	return c.db
}

func (c *Client) Health(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// InitSchema runs idempotent DDL statements in one transaction.
func (c *Client) InitSchema(ctx context.Context, stmts []string) error {
	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("init schema: begin: %w", err)
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("init schema: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit: %w", err)
	}
	return nil
}

// buildDSN renders a libpq key/value connection string.
func buildDSN(cfg ClientConfig) string {
	parts := []string{
		kv("host", cfg.Host),
		fmt.Sprintf("port=%d", cfg.Port),
		kv("dbname", cfg.Database),
	}
	if cfg.User != "" {
		parts = append(parts, kv("user", cfg.User))
	}
	if cfg.Password != "" {
		parts = append(parts, kv("password", cfg.Password))
	}
	parts = append(parts, kv("sslmode", cfg.SSLMode))
	if s := int(cfg.ConnectTimeout.Seconds()); s > 0 {
		parts = append(parts, fmt.Sprintf("connect_timeout=%d", s))
	}
	return strings.Join(parts, " ")
}

func kv(key, value string) string {
	if value == "" || strings.ContainsAny(value, ` '\`) {
		value = "'" + strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(value) + "'"
	}
	return key + "=" + value
}
