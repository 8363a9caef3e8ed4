package repository

// PostgresSchema creates every table the signal engine reads or writes.
var PostgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS option_chain_snapshot (
		id            BIGSERIAL PRIMARY KEY,
		symbol        TEXT NOT NULL,
		strike_price  DOUBLE PRECISION NOT NULL,
		option_type   VARCHAR(2) NOT NULL,
		open_interest DOUBLE PRECISION,
		oi_change     DOUBLE PRECISION,
		volume        DOUBLE PRECISION,
		ltp           DOUBLE PRECISION,
		iv            DOUBLE PRECISION,
		expiry        TEXT,
		snapshot_time TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_snapshot_symbol_time ON option_chain_snapshot (symbol, snapshot_time)`,
	`CREATE INDEX IF NOT EXISTS idx_snapshot_contract ON option_chain_snapshot (symbol, option_type, strike_price, snapshot_time)`,

	`CREATE TABLE IF NOT EXISTS option_chain_summary (
		id            BIGSERIAL PRIMARY KEY,
		symbol        TEXT NOT NULL,
		snapshot_time TIMESTAMPTZ NOT NULL,
		spot_price    DOUBLE PRECISION NOT NULL,
		atm_strike    DOUBLE PRECISION,
		total_ce_oi   DOUBLE PRECISION,
		total_pe_oi   DOUBLE PRECISION,
		pcr           DOUBLE PRECISION,
		resistance    DOUBLE PRECISION,
		support       DOUBLE PRECISION,
		max_pain      DOUBLE PRECISION,
		structure     TEXT,
		trap_signal   TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_summary_symbol_time ON option_chain_summary (symbol, snapshot_time)`,

	`CREATE TABLE IF NOT EXISTS scalp_score_tracking (
		id             SERIAL PRIMARY KEY,
		symbol         TEXT NOT NULL,
		snapshot_time  TIMESTAMPTZ NOT NULL,
		spot_price     DOUBLE PRECISION,
		breakout_score INTEGER,
		volume_score   INTEGER,
		bias_score     INTEGER,
		covering_score INTEGER,
		total_score    INTEGER,
		signal         TEXT,
		edge           TEXT,
		risk_level     TEXT
	)`,

	`CREATE TABLE IF NOT EXISTS trade_signals (
		id                     BIGSERIAL PRIMARY KEY,
		cycle_id               TEXT NOT NULL DEFAULT '',
		symbol                 TEXT NOT NULL,
		snapshot_time          TIMESTAMPTZ NOT NULL,
		side                   VARCHAR(2) NOT NULL,
		strike_price           DOUBLE PRECISION NOT NULL,
		entry_ltp              DOUBLE PRECISION,
		spot_price             DOUBLE PRECISION NOT NULL,
		regime                 TEXT NOT NULL DEFAULT '',
		signal_strength        DOUBLE PRECISION NOT NULL DEFAULT 0,
		timing_score           DOUBLE PRECISION NOT NULL DEFAULT 0,
		raw_probability        DOUBLE PRECISION,
		calibrated_probability DOUBLE PRECISION,
		stop_loss_pct          DOUBLE PRECISION NOT NULL DEFAULT 25,
		target_pct             DOUBLE PRECISION NOT NULL DEFAULT 45,
		time_stop_min          INTEGER NOT NULL DEFAULT 30,
		execution_notes        TEXT NOT NULL DEFAULT '',
		created_at             TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_signals_symbol_time ON trade_signals (symbol, snapshot_time)`,

	`CREATE TABLE IF NOT EXISTS trade_outcomes (
		id                   BIGSERIAL PRIMARY KEY,
		signal_id            BIGINT NOT NULL REFERENCES trade_signals (id) ON DELETE CASCADE,
		horizon_min          INTEGER NOT NULL,
		exit_time            TIMESTAMPTZ,
		exit_ltp             DOUBLE PRECISION,
		return_pct           DOUBLE PRECISION,
		pnl_points           DOUBLE PRECISION,
		outcome_label        VARCHAR(8) NOT NULL,
		hit_target           BOOLEAN NOT NULL DEFAULT FALSE,
		hit_stop             BOOLEAN NOT NULL DEFAULT FALSE,
		expectancy_component DOUBLE PRECISION NOT NULL DEFAULT 0,
		created_at           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (signal_id, horizon_min)
	)`,
}

// ClickHouseSchema mirrors option_chain_snapshot for the columnar history backend.
var ClickHouseSchema = []string{
	`CREATE TABLE IF NOT EXISTS option_chain_snapshot (
		symbol        LowCardinality(String),
		strike_price  Float64,
		option_type   LowCardinality(String),
		open_interest Nullable(Float64),
		oi_change     Nullable(Float64),
		volume        Nullable(Float64),
		ltp           Nullable(Float64),
		iv            Nullable(Float64),
		expiry        Nullable(String),
		snapshot_time DateTime64(3, 'UTC')
	) ENGINE = MergeTree
	PARTITION BY toYYYYMMDD(snapshot_time)
	ORDER BY (symbol, snapshot_time, option_type, strike_price)
	TTL toDateTime(snapshot_time) + INTERVAL 30 DAY`,
}
