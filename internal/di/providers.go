package di

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	domrepo "github.com/sudipta6891/OC-Chain-System-ver-01/internal/domain/repository"
	"github.com/sudipta6891/OC-Chain-System-ver-01/internal/handler/api"
	internalrepo "github.com/sudipta6891/OC-Chain-System-ver-01/internal/repository"
	"github.com/sudipta6891/OC-Chain-System-ver-01/internal/service/broker"
	"github.com/sudipta6891/OC-Chain-System-ver-01/internal/service/ratelimit"
	"github.com/sudipta6891/OC-Chain-System-ver-01/internal/services/backtest"
	"github.com/sudipta6891/OC-Chain-System-ver-01/internal/services/oidelta"
	"github.com/sudipta6891/OC-Chain-System-ver-01/internal/services/outcome"
	"github.com/sudipta6891/OC-Chain-System-ver-01/internal/usecase"
	"github.com/sudipta6891/OC-Chain-System-ver-01/pkg/cache"
	pkgch "github.com/sudipta6891/OC-Chain-System-ver-01/pkg/clickhouse"
	"github.com/sudipta6891/OC-Chain-System-ver-01/pkg/config"
	xhttp "github.com/sudipta6891/OC-Chain-System-ver-01/pkg/http"
	pkgkafka "github.com/sudipta6891/OC-Chain-System-ver-01/pkg/kafka"
	applogger "github.com/sudipta6891/OC-Chain-System-ver-01/pkg/logger"
	"github.com/sudipta6891/OC-Chain-System-ver-01/pkg/metrics"
	pkgpg "github.com/sudipta6891/OC-Chain-System-ver-01/pkg/postgres"
	"github.com/sudipta6891/OC-Chain-System-ver-01/pkg/server"
)

const schemaTimeout = 10 * time.Second

// ProvideLogger creates the application logger from the log section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideMetrics registers the cycle metrics on the default registry served
// at /metrics.
func ProvideMetrics(cfg *config.Config) domrepo.Metrics {
	if !cfg.Metrics.Enabled {
		return metrics.Nop{}
	}
	return metrics.New(prometheus.DefaultRegisterer)
}

// ProvidePostgresClient connects and creates the schema when enabled.
func ProvidePostgresClient(cfg *config.Config, l *applogger.Logger) (*pkgpg.Client, func(), error) {
	pg := cfg.Postgres
	client, err := pkgpg.NewClient(
		pkgpg.WithHost(pg.Host),
		pkgpg.WithPort(pg.Port),
		pkgpg.WithDatabase(pg.Database),
		pkgpg.WithCredentials(pg.User, pg.Password),
		pkgpg.WithSSLMode(pg.SSLMode),
		pkgpg.WithPool(pg.MaxOpenConns, pg.MaxIdleConns, pg.ConnMaxLifetime),
		pkgpg.WithConnectTimeout(pg.ConnectTimeout),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("postgres client: %w", err)
	}
	cleanup := func() {
		if err := client.Close(); err != nil {
			l.Warn("postgres close error", applogger.Error(err))
		}
	}

	if pg.InitSchema {
		ctx, cancel := context.WithTimeout(context.Background(), schemaTimeout)
		defer cancel()
		if err := client.InitSchema(ctx, internalrepo.PostgresSchema); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("postgres schema: %w", err)
		}
	}
	l.Info("postgres connected", applogger.String("host", pg.Host), applogger.String("database", pg.Database))
	return client, cleanup, nil
}

// ProvideClickHouseClient connects only when snapshots live in ClickHouse;
// otherwise it returns nil.
func ProvideClickHouseClient(cfg *config.Config, l *applogger.Logger) (*pkgch.Client, func(), error) {
	if cfg.Storage.Snapshots != "clickhouse" {
		return nil, func() {}, nil
	}
	ch := cfg.ClickHouse
	client, err := pkgch.NewClient(
		pkgch.WithHost(ch.Host),
		pkgch.WithPort(ch.Port),
		pkgch.WithDatabase(ch.Database),
		pkgch.WithCredentials(ch.User, ch.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(ch.UseHTTP),
		pkgch.WithAsyncInsert(ch.AsyncInsert, ch.WaitForAsync),
		pkgch.WithTimeouts(ch.DialTimeout, ch.ReadTimeout),
		pkgch.WithMaxExecutionTime(ch.MaxExecutionTime),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}
	cleanup := func() {
		if err := client.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), schemaTimeout)
	defer cancel()
	if err := client.InitSchema(ctx, internalrepo.ClickHouseSchema); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	l.Info("clickhouse connected", applogger.String("host", ch.Host), applogger.String("database", ch.Database))
	return client, cleanup, nil
}

// ProvideRedisCache returns nil when Redis is disabled.
func ProvideRedisCache(cfg *config.Config, l *applogger.Logger) (*cache.RedisCache, func(), error) {
	if !cfg.Redis.Enabled {
		return nil, func() {}, nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Redis.Addr),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("redis: %w", err)
	}
	l.Info("redis connected", applogger.String("addr", cfg.Redis.Addr))
	return rc, func() {
		if err := rc.Close(); err != nil {
			l.Warn("redis close error", applogger.Error(err))
		}
	}, nil
}

// ProvideCache layers an in-process L1 over Redis when Redis is enabled.
// Without Redis, locks and cached decisions are local to this process.
func ProvideCache(rc *cache.RedisCache) (cache.Service, func()) {
	mem := cache.NewMemoryCache()
	cleanup := func() { _ = mem.Close() }
	if rc == nil {
		return mem, cleanup
	}
	return cache.NewLayeredCache(mem, rc, cache.WithL1TTL(30*time.Second)), cleanup
}

func ProvidePGStore(client *pkgpg.Client, cfg *config.Config, l *applogger.Logger) *internalrepo.PGStore {
	s := internalrepo.NewPGStore(client, cfg.Postgres.QueryTimeout)
	s.SetLogger(l)
	return s
}

// ProvideSnapshotStore picks the snapshot history backend.
func ProvideSnapshotStore(pg *internalrepo.PGStore, ch *pkgch.Client, cfg *config.Config, l *applogger.Logger) domrepo.SnapshotStore {
	if ch == nil {
		return pg
	}
	s := internalrepo.NewCHSnapshotStore(ch, cfg.ClickHouse.Database)
	s.SetLogger(l)
	return s
}

func ProvideOutcomeStore(pg *internalrepo.PGStore, c cache.Service, cfg *config.Config, l *applogger.Logger) *internalrepo.CachedOutcomeStore {
	s := internalrepo.NewCachedOutcomeStore(pg, c, cfg.Calibration.CacheTTL)
	s.SetLogger(l)
	return s
}

func ProvideDecisionCache(c cache.Service) *internalrepo.DecisionCache {
	return internalrepo.NewDecisionCache(c, 24*time.Hour)
}

// ProvideKafkaProducer returns nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Producer, func(), error) {
	if !cfg.Kafka.Enabled {
		return nil, func() {}, nil
	}
	k := cfg.Kafka
	producer, err := pkgkafka.NewProducer(pkgkafka.ProducerConfig{
		Brokers:      k.Brokers,
		RequiredAcks: k.RequiredAcks,
		Compression:  k.Compression,
		MaxAttempts:  k.Producer.MaxAttempts,
		WriteTimeout: k.Producer.WriteTimeout,
		ReadTimeout:  k.Producer.ReadTimeout,
		BatchSize:    k.Producer.BatchSize,
		BatchBytes:   k.Producer.BatchBytes,
		Linger:       k.Producer.Linger,
		Async:        k.Producer.Async,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	l.Info("kafka producer ready", applogger.Strings("brokers", k.Brokers), applogger.String("topic", k.SignalTopic))
	return producer, func() {
		if err := producer.Close(); err != nil {
			l.Warn("kafka producer close error", applogger.Error(err))
		}
	}, nil
}

func ProvideSignalPublisher(producer *pkgkafka.Producer, cfg *config.Config) domrepo.SignalPublisher {
	if producer == nil {
		return internalrepo.NoopSignalPublisher{}
	}
	return internalrepo.NewKafkaSignalPublisher(producer, cfg.Kafka.SignalTopic)
}

// ProvideKafkaConsumer returns nil unless snapshot ingest is enabled.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	k := cfg.Kafka
	if !k.Enabled || !k.Consumer.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(k.Brokers),
		pkgkafka.WithConsumerGroupID(k.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(k.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(k.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(k.Consumer.RetryMax, k.Consumer.BackoffMin, k.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(k.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(k.Consumer.MinBytes, k.Consumer.MaxBytes),
		pkgkafka.WithConsumerLogger(l),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

func ProvideBrokerClient(cfg *config.Config, l *applogger.Logger) (*broker.Client, error) {
	b := cfg.Broker
	loc, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		return nil, fmt.Errorf("broker timezone: %w", err)
	}
	client, err := broker.NewClient(
		broker.WithBaseURL(b.BaseURL),
		broker.WithCredentials(b.ClientID, b.AccessToken),
		broker.WithStrikeCount(b.StrikeCount),
		broker.WithTimeout(b.Timeout),
		broker.WithRateLimit(b.RatePerSec, b.Burst),
		broker.WithRetries(b.MaxRetries, 300*time.Millisecond),
		broker.WithBreaker(b.BreakerFails, b.BreakerReset),
		broker.WithLocation(loc),
		broker.WithLogger(l),
	)
	if err != nil {
		return nil, fmt.Errorf("broker client: %w", err)
	}
	return client, nil
}

func ProvideOIDeltaEngine(snapshots domrepo.SnapshotStore, cfg *config.Config, l *applogger.Logger) (*oidelta.Engine, error) {
	loc, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		return nil, fmt.Errorf("oi delta timezone: %w", err)
	}
	return oidelta.NewEngine(snapshots, oidelta.WithLocation(loc), oidelta.WithLogger(l)), nil
}

func ProvidePipeline(oi *oidelta.Engine, pg *internalrepo.PGStore, outcomes *internalrepo.CachedOutcomeStore, l *applogger.Logger) *usecase.Pipeline {
	return usecase.NewPipeline(oi, pg, outcomes, l)
}

func ProvideLabeler(snapshots domrepo.SnapshotStore, pg *internalrepo.PGStore, l *applogger.Logger) *outcome.Labeler {
	return outcome.NewLabeler(snapshots, pg, pg, l)
}

func ProvideCycleRunner(
	cfg *config.Config,
	source *broker.Client,
	pipeline *usecase.Pipeline,
	snapshots domrepo.SnapshotStore,
	pg *internalrepo.PGStore,
	labeler *outcome.Labeler,
	publisher domrepo.SignalPublisher,
	c cache.Service,
	decisions *internalrepo.DecisionCache,
	m domrepo.Metrics,
	l *applogger.Logger,
) *usecase.CycleRunner {
	return usecase.NewCycleRunner(usecase.CycleDeps{
		Source:    source,
		Pipeline:  pipeline,
		Snapshots: snapshots,
		Summaries: pg,
		Signals:   pg,
		Labeler:   labeler,
		Publisher: publisher,
		Lock:      c,
		Decisions: decisions,
		Metrics:   m,
	}, usecase.OptionsFromConfig(cfg), usecase.RunnerConfig{
		TestMode: cfg.Scheduler.TestMode,
		LockTTL:  cfg.Redis.LockTTL,
	}, l)
}

// ProvideCleaner prunes Postgres and, when it holds the snapshots,
// ClickHouse.
func ProvideCleaner(cfg *config.Config, pg *internalrepo.PGStore, snapshots domrepo.SnapshotStore, m domrepo.Metrics, l *applogger.Logger) *usecase.Cleaner {
	stores := []domrepo.RetentionStore{pg}
	if chs, ok := snapshots.(*internalrepo.CHSnapshotStore); ok {
		stores = append(stores, chs)
	}
	return usecase.NewCleaner(cfg.Retention.Days, m, l, stores...)
}

func ProvideScheduler(cfg *config.Config, runner *usecase.CycleRunner, cleaner *usecase.Cleaner, l *applogger.Logger) (*usecase.Scheduler, error) {
	sc, err := usecase.SchedulerConfigFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	return usecase.NewScheduler(runner, cleaner, sc, l), nil
}

func ProvideBacktester(pg *internalrepo.PGStore, snapshots domrepo.SnapshotStore, l *applogger.Logger) *backtest.Backtester {
	return backtest.New(pg, snapshots, l)
}

func ProvideSnapshotHandler(cfg *config.Config, runner *usecase.CycleRunner, m domrepo.Metrics, l *applogger.Logger) *usecase.KafkaSnapshotHandler {
	return usecase.NewKafkaSnapshotHandler(cfg.Kafka.Consumer.SnapshotTopic, runner, m, l)
}

// ProvideHandlers builds every HTTP route group.
func ProvideHandlers(
	pipeline *usecase.Pipeline,
	runner *usecase.CycleRunner,
	bt *backtest.Backtester,
	outcomes *internalrepo.CachedOutcomeStore,
	decisions *internalrepo.DecisionCache,
	pgClient *pkgpg.Client,
	chClient *pkgch.Client,
	rc *cache.RedisCache,
	l *applogger.Logger,
) []xhttp.Handler {
	checks := map[string]api.HealthCheck{"postgres": pgClient.Health}
	if chClient != nil {
		checks["clickhouse"] = chClient.Health
	}
	if rc != nil {
		checks["redis"] = rc.Health
	}
	signals := api.NewSignalsHandler(l, pipeline, runner, bt, outcomes, decisions, ratelimit.New(0.2, 3))
	return []xhttp.Handler{api.NewHealthHandler(checks), signals}
}

func ProvideHTTPServer(cfg *config.Config, handlers []xhttp.Handler, l *applogger.Logger) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer(handlers,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsPath(metricsPath),
		xhttp.WithCORS(cfg.Server.CORSOrigins, cfg.Server.CORSMaxAge),
		xhttp.WithLogger(l),
	)
}

// ProvideApp assembles the long-running components.
func ProvideApp(
	cfg *config.Config,
	httpServer *xhttp.Server,
	scheduler *usecase.Scheduler,
	consumer *pkgkafka.Consumer,
	snapshotHandler *usecase.KafkaSnapshotHandler,
	l *applogger.Logger,
) *server.App {
	return server.New(cfg, httpServer, scheduler, consumer, snapshotHandler, l)
}
