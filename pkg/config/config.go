package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	applogger "github.com/sudipta6891/OC-Chain-System-ver-01/pkg/logger"
)

// Features holds the pipeline toggles. All switches every enhancement on.
type Features struct {
	Guardrails      bool `yaml:"guardrails" default:"true"`
	RegimeV2        bool `yaml:"regime_v2"`
	TimingV2        bool `yaml:"timing_v2"`
	DynamicOTM      bool `yaml:"dynamic_otm"`
	OutcomeTracking bool `yaml:"outcome_tracking"`
	Calibration     bool `yaml:"calibration"`
	All             bool `yaml:"all"`
}

// Effective resolves the All switch.
func (f Features) Effective() Features {
	if !f.All {
		return f
	}
	return Features{
		Guardrails:      true,
		RegimeV2:        true,
		TimingV2:        true,
		DynamicOTM:      true,
		OutcomeTracking: true,
		Calibration:     true,
		All:             true,
	}
}

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080" validate:"gte=1,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		CORSOrigins     []string      `yaml:"cors_origins"`
		CORSMaxAge      time.Duration `yaml:"cors_max_age" default:"10m"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Log applogger.Config `yaml:"log"`

	Storage struct {
		// Snapshots selects the backend holding chain snapshot history.
		Snapshots string `yaml:"snapshots" default:"postgres" validate:"oneof=postgres clickhouse"`
	} `yaml:"storage"`
	Postgres struct {
		Host            string        `yaml:"host" default:"localhost"`
		Port            int           `yaml:"port" default:"5432"`
		Database        string        `yaml:"database" default:"option_chain"`
		User            string        `yaml:"user" default:"postgres"`
		Password        string        `yaml:"password"`
		SSLMode         string        `yaml:"sslmode" default:"disable"`
		MaxOpenConns    int           `yaml:"max_open_conns" default:"10"`
		MaxIdleConns    int           `yaml:"max_idle_conns" default:"5"`
		ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" default:"30m"`
		ConnectTimeout  time.Duration `yaml:"connect_timeout" default:"10s"`
		QueryTimeout    time.Duration `yaml:"query_timeout" default:"10s"`
		InitSchema      bool          `yaml:"init_schema" default:"true"`
	} `yaml:"postgres"`
	ClickHouse struct {
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"option_chain"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"30s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
	} `yaml:"clickhouse"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		SignalTopic  string   `yaml:"signal_topic" default:"option-chain.signals"`
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
		Compression  string   `yaml:"compression" default:"snappy"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"5"`
			Linger       time.Duration `yaml:"linger" default:"50ms"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			Enabled       bool          `yaml:"enabled"`
			SnapshotTopic string        `yaml:"snapshot_topic" default:"option-chain.snapshots"`
			GroupID       string        `yaml:"group_id" default:"oc-signal-engine"`
			Workers       int           `yaml:"workers" default:"2"`
			BufferSize    int           `yaml:"buffer_size" default:"64"`
			RetryMax      int           `yaml:"retry_max" default:"3"`
			BackoffMin    time.Duration `yaml:"backoff_min" default:"200ms"`
			BackoffMax    time.Duration `yaml:"backoff_max" default:"5s"`
			DLQTopic      string        `yaml:"dlq_topic"`
			MinBytes      int           `yaml:"min_bytes" default:"1"`
			MaxBytes      int           `yaml:"max_bytes" default:"10485760"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	Redis struct {
		Enabled  bool          `yaml:"enabled"`
		Addr     string        `yaml:"addr" default:"localhost:6379"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db"`
		Prefix   string        `yaml:"prefix" default:"ocsignal"`
		LockTTL  time.Duration `yaml:"lock_ttl" default:"9m"`
	} `yaml:"redis"`

	Broker struct {
		BaseURL      string        `yaml:"base_url" default:"https://api-t1.fyers.in/data"`
		ClientID     string        `yaml:"client_id"`
		AccessToken  string        `yaml:"access_token"`
		StrikeCount  int           `yaml:"strike_count" default:"40" validate:"gte=1,lte=200"`
		Timeout      time.Duration `yaml:"timeout" default:"10s"`
		RatePerSec   float64       `yaml:"rate_per_sec" default:"5"`
		Burst        int           `yaml:"burst" default:"5"`
		MaxRetries   int           `yaml:"max_retries" default:"2"`
		BreakerFails uint32        `yaml:"breaker_failures" default:"5"`
		BreakerReset time.Duration `yaml:"breaker_reset" default:"30s"`
	} `yaml:"broker"`
	Scheduler struct {
		Enabled      bool          `yaml:"enabled" default:"true"`
		Symbols      []string      `yaml:"symbols" default:"[\"NSE:NIFTY50-INDEX\"]" validate:"min=1"`
		Interval     time.Duration `yaml:"interval" default:"10m"`
		TestInterval time.Duration `yaml:"test_interval" default:"1m"`
		Timezone     string        `yaml:"timezone" default:"Asia/Kolkata"`
		SessionStart string        `yaml:"session_start" default:"09:10"`
		SessionEnd   string        `yaml:"session_end" default:"15:30"`
		CleanupAt    string        `yaml:"cleanup_at" default:"09:25"`
		TestMode     bool          `yaml:"test_mode"`
	} `yaml:"scheduler"`

	Features    Features `yaml:"features"`
	Calibration struct {
		MinSamples   int           `yaml:"min_samples" default:"30" validate:"gte=1"`
		LookbackDays int           `yaml:"lookback_days" default:"45" validate:"gte=1"`
		CacheTTL     time.Duration `yaml:"cache_ttl" default:"5m"`
	} `yaml:"calibration"`
	Quality struct {
		MaxStaleMinutes int `yaml:"max_stale_minutes" default:"12" validate:"gte=1"`
	} `yaml:"quality"`
	Greeks struct {
		Profile string `yaml:"profile" default:"aggressive" validate:"oneof=aggressive conservative"`
	} `yaml:"greeks"`
	Strike struct {
		Strategy    string  `yaml:"strategy" default:"dynamic" validate:"oneof=dynamic distance"`
		DistancePct float64 `yaml:"distance_pct" default:"2" validate:"gt=0,lte=20"`
	} `yaml:"strike"`
	Backtest struct {
		SlippagePct float64 `yaml:"slippage_pct" default:"0.35" validate:"gte=0"`
		TxnCostPct  float64 `yaml:"txn_cost_pct" default:"0.10" validate:"gte=0"`
		StopLossPct float64 `yaml:"stop_loss_pct" default:"25" validate:"gt=0"`
		TargetPct   float64 `yaml:"target_pct" default:"45" validate:"gt=0"`
		TimeStopMin int     `yaml:"time_stop_min" default:"30" validate:"gte=1"`
	} `yaml:"backtest"`
	Retention struct {
		Days int `yaml:"days" default:"7" validate:"gte=1"`
	} `yaml:"retention"`
}

// Load reads and parses a YAML configuration file on top of the struct defaults.
func Load(path string) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("set defaults: %w", err)
	}

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads .env (if present), the YAML file, then applies
// environment overrides and validates again.
func LoadWithEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := c.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	setBool := func(key string, dst *bool) error {
		v := getenv(key)
		if v == "" {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("env %s: %w", key, err)
		}
		*dst = b
		return nil
	}
	setInt := func(key string, dst *int) error {
		v := getenv(key)
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("env %s: %w", key, err)
		}
		*dst = n
		return nil
	}

	bools := []struct {
		key string
		dst *bool
	}{
		{"ENABLE_ALL_ENHANCEMENTS", &c.Features.All},
		{"ENABLE_GUARDRAILS", &c.Features.Guardrails},
		{"ENABLE_REGIME_V2", &c.Features.RegimeV2},
		{"ENABLE_TIMING_V2", &c.Features.TimingV2},
		{"ENABLE_DYNAMIC_OTM", &c.Features.DynamicOTM},
		{"ENABLE_OUTCOME_TRACKING", &c.Features.OutcomeTracking},
		{"ENABLE_CALIBRATION", &c.Features.Calibration},
		{"TEST_MODE", &c.Scheduler.TestMode},
		{"KAFKA_ENABLED", &c.Kafka.Enabled},
		{"REDIS_ENABLED", &c.Redis.Enabled},
	}
	for _, b := range bools {
		if err := setBool(b.key, b.dst); err != nil {
			return err
		}
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"CALIBRATION_MIN_SAMPLES", &c.Calibration.MinSamples},
		{"OPTION_CHAIN_STRIKE_COUNT", &c.Broker.StrikeCount},
		{"DATA_RETENTION_DAYS", &c.Retention.Days},
		{"DB_PORT", &c.Postgres.Port},
	}
	for _, i := range ints {
		if err := setInt(i.key, i.dst); err != nil {
			return err
		}
	}

	strs := []struct {
		key string
		dst *string
	}{
		{"TIMEZONE", &c.Scheduler.Timezone},
		{"DB_NAME", &c.Postgres.Database},
		{"DB_USER", &c.Postgres.User},
		{"DB_PASSWORD", &c.Postgres.Password},
		{"DB_HOST", &c.Postgres.Host},
		{"FYERS_CLIENT_ID", &c.Broker.ClientID},
		{"FYERS_ACCESS_TOKEN", &c.Broker.AccessToken},
		{"REDIS_ADDR", &c.Redis.Addr},
		{"SNAPSHOT_STORAGE", &c.Storage.Snapshots},
	}
	for _, s := range strs {
		if v := getenv(s.key); v != "" {
			*s.dst = v
		}
	}

	if v := getenv("SYMBOLS"); v != "" {
		c.Scheduler.Symbols = splitList(v)
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = splitList(v)
	}
	return nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return fmt.Errorf("scheduler.timezone: %w", err)
	}
	for _, hm := range []string{c.Scheduler.SessionStart, c.Scheduler.SessionEnd, c.Scheduler.CleanupAt} {
		if _, err := time.Parse("15:04", hm); err != nil {
			return fmt.Errorf("scheduler clock %q must be HH:MM", hm)
		}
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Kafka.Consumer.Enabled && !c.Kafka.Enabled {
		return fmt.Errorf("kafka.consumer requires kafka.enabled")
	}
	return nil
}
