package usecase

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sudipta6891/OC-Chain-System-ver-01/internal/domain/models"
	domrepo "github.com/sudipta6891/OC-Chain-System-ver-01/internal/domain/repository"
	"github.com/sudipta6891/OC-Chain-System-ver-01/internal/services/chain"
	"github.com/sudipta6891/OC-Chain-System-ver-01/internal/services/outcome"
	applogger "github.com/sudipta6891/OC-Chain-System-ver-01/pkg/logger"
)

var (
	// ErrCycleBusy is returned when another cycle holds the symbol lock.
	ErrCycleBusy = errors.New("usecase: cycle already running for symbol")
	ErrNoChain   = errors.New("usecase: no option chain to evaluate")
)

const (
	resultOK      = "ok"
	resultBusy    = "busy"
	resultSkipped = "skipped"
	resultFailed  = "failed"
)

// DecisionCache keeps the latest decision per symbol for the API.
type DecisionCache interface {
	SaveDecision(ctx context.Context, d models.Decision) error
	LatestDecision(ctx context.Context, symbol string) (models.Decision, error)
}

// CycleDeps are the collaborators of a CycleRunner. Publisher, Lock and
// Decisions may be nil.
type CycleDeps struct {
	Source    domrepo.ChainSource
	Pipeline  *Pipeline
	Snapshots domrepo.SnapshotStore
	Summaries domrepo.SummaryStore
	Signals   domrepo.SignalStore
	Labeler   *outcome.Labeler
	Publisher domrepo.SignalPublisher
	Lock      domrepo.CycleLock
	Decisions DecisionCache
	Metrics   domrepo.Metrics
}

type RunnerConfig struct {
	// TestMode evaluates without writing snapshots, summaries or signals.
	TestMode bool
	LockTTL  time.Duration
}

// CycleRunner runs one fetch-evaluate-persist cycle per call.
type CycleRunner struct {
	deps CycleDeps
	opts PipelineOptions
	cfg  RunnerConfig
	now  func() time.Time
	l    *applogger.Logger
}

func NewCycleRunner(deps CycleDeps, opts PipelineOptions, cfg RunnerConfig, l *applogger.Logger) *CycleRunner {
	if l == nil {
		l = applogger.Nop()
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 9 * time.Minute
	}
	return &CycleRunner{deps: deps, opts: opts.withDefaults(), cfg: cfg, now: time.Now, l: l}
}

// Options returns the pipeline options cycles run with.
func (r *CycleRunner) Options() PipelineOptions { return r.opts }

// Run fetches the live chain for symbol and processes it.
func (r *CycleRunner) Run(ctx context.Context, symbol string) (models.Decision, error) {
	release, err := r.acquire(ctx, symbol)
	if err != nil {
		return models.Decision{}, err
	}
	defer release()

	start := time.Now()
	spot, err := r.deps.Source.FetchSpotPrice(ctx, symbol)
	if err != nil {
		r.fail(symbol, "fetch_spot")
		return models.Decision{}, fmt.Errorf("fetch spot %s: %w", symbol, err)
	}
	rows, err := r.deps.Source.FetchOptionChain(ctx, symbol)
	if err != nil && !errors.Is(err, domrepo.ErrNoChainData) {
		r.fail(symbol, "fetch_chain")
		return models.Decision{}, fmt.Errorf("fetch chain %s: %w", symbol, err)
	}
	r.deps.Metrics.RecordStageLatency("fetch", time.Since(start).Seconds())

	if len(rows) == 0 {
		r.l.Warn("skipping cycle without chain data", applogger.String("symbol", symbol))
		r.deps.Metrics.RecordCycle(symbol, resultSkipped)
		return models.Decision{}, fmt.Errorf("%s: %w", symbol, ErrNoChain)
	}

	snap := models.Snapshot{
		Symbol:       symbol,
		Spot:         spot,
		SnapshotTime: rows[0].SnapshotTime,
		Rows:         rows,
	}
	return r.process(ctx, snap)
}

// Process handles an already captured snapshot, e.g. one consumed from
// Kafka or posted to the API with persist set.
func (r *CycleRunner) Process(ctx context.Context, snap models.Snapshot) (models.Decision, error) {
	if len(snap.Rows) == 0 {
		r.deps.Metrics.RecordCycle(snap.Symbol, resultSkipped)
		return models.Decision{}, fmt.Errorf("%s: %w", snap.Symbol, ErrNoChain)
	}
	release, err := r.acquire(ctx, snap.Symbol)
	if err != nil {
		return models.Decision{}, err
	}
	defer release()
	return r.process(ctx, snap)
}

func (r *CycleRunner) process(ctx context.Context, snap models.Snapshot) (models.Decision, error) {
	cycleID := uuid.NewString()
	log := r.l.With(applogger.String("cycle_id", cycleID), applogger.String("symbol", snap.Symbol))
	if snap.SnapshotTime.IsZero() {
		snap.SnapshotTime = r.now()
	}
	snap.Rows = slices.Clone(snap.Rows)
	for i := range snap.Rows {
		if snap.Rows[i].SnapshotTime.IsZero() {
			snap.Rows[i].SnapshotTime = snap.SnapshotTime
		}
	}
	log.Info("cycle started", applogger.Time("snapshot_time", snap.SnapshotTime), applogger.Int("rows", len(snap.Rows)))

	if !r.cfg.TestMode {
		r.persistSnapshot(ctx, log, snap)
	}

	start := time.Now()
	d, err := r.deps.Pipeline.Evaluate(ctx, snap, r.opts)
	r.deps.Metrics.RecordStageLatency("evaluate", time.Since(start).Seconds())
	if err != nil {
		r.fail(snap.Symbol, "evaluate")
		return models.Decision{}, fmt.Errorf("evaluate %s: %w", snap.Symbol, err)
	}
	d.CycleID = cycleID

	if !r.cfg.TestMode {
		start = time.Now()
		if err := r.deps.Summaries.SaveScalp(ctx, snap.Symbol, snap.SnapshotTime, snap.Spot, d.Scalp); err != nil {
			log.Error("persist scalp failed", applogger.Error(err))
			r.deps.Metrics.RecordError("persist_scalp")
		}
		if r.opts.Features.OutcomeTracking {
			n, err := r.deps.Labeler.ProcessPending(ctx, snap.Symbol, r.now())
			if err != nil {
				log.Error("pending outcome labeling failed", applogger.Error(err))
				r.deps.Metrics.RecordError("label_pending")
			} else {
				log.Debug("pending outcomes labeled", applogger.Int("signals", n))
			}
		}
		r.recordSignal(ctx, log, &d)
		r.deps.Metrics.RecordStageLatency("persist", time.Since(start).Seconds())
	}

	r.deps.Metrics.RecordDecision(snap.Symbol, d.Bias.MarketScore, d.Calibration.CalibratedProbability)
	r.deps.Metrics.RecordCycle(snap.Symbol, resultOK)
	if r.deps.Decisions != nil {
		if err := r.deps.Decisions.SaveDecision(ctx, d); err != nil {
			log.Warn("cache decision failed", applogger.Error(err))
			r.deps.Metrics.RecordError("cache_decision")
		}
	}

	log.Info("cycle completed",
		applogger.String("bias", d.Bias.MarketBias),
		applogger.Int("market_score", d.Bias.MarketScore),
		applogger.String("side", d.Execution.Side),
		applogger.Bool("allow_trade", d.Execution.AllowTrade),
	)
	return d, nil
}

func (r *CycleRunner) persistSnapshot(ctx context.Context, log *applogger.Logger, snap models.Snapshot) {
	start := time.Now()
	if err := r.deps.Snapshots.SaveSnapshot(ctx, snap.Symbol, snap.Rows); err != nil {
		log.Error("persist snapshot failed", applogger.Error(err))
		r.deps.Metrics.RecordError("persist_snapshot")
	}
	if err := r.deps.Summaries.SaveSummary(ctx, chain.Summarize(snap)); err != nil {
		log.Error("persist summary failed", applogger.Error(err))
		r.deps.Metrics.RecordError("persist_summary")
	}
	r.deps.Metrics.RecordStageLatency("persist_snapshot", time.Since(start).Seconds())
}

// recordSignal stores, labels and publishes the selected trade.
func (r *CycleRunner) recordSignal(ctx context.Context, log *applogger.Logger, d *models.Decision) {
	sel := d.Selection
	if !r.opts.Features.OutcomeTracking || sel.Strike == nil || d.Execution.Side == models.SideNone {
		return
	}

	entry := 0.0
	if sel.EntryLTP != nil {
		entry = *sel.EntryLTP
	}
	rec := models.SignalRecord{
		CycleID:               d.CycleID,
		Symbol:                d.Symbol,
		SnapshotTime:          d.SnapshotTime,
		Side:                  d.Execution.Side,
		StrikePrice:           *sel.Strike,
		EntryLTP:              &entry,
		SpotPrice:             d.Spot,
		Regime:                d.Regime.Label,
		SignalStrength:        float64(d.Bias.MarketScore),
		TimingScore:           float64(d.Timing.TimingScoreV2),
		RawProbability:        d.Timing.CalibrationInputProbability,
		CalibratedProbability: d.Calibration.CalibratedProbability,
		StopLossPct:           d.Execution.StopLossPct,
		TargetPct:             d.Execution.TargetPct,
		TimeStopMin:           d.Execution.TimeStopMin,
		ExecutionNotes:        strings.Join(sel.Reasons, "; "),
	}

	id, err := r.deps.Signals.InsertSignal(ctx, rec)
	if err != nil {
		log.Error("insert signal failed", applogger.Error(err))
		r.deps.Metrics.RecordError("insert_signal")
		return
	}
	rec.ID = id
	d.Execution.SignalID = &id
	r.deps.Metrics.RecordSignal(rec.Symbol, rec.Side)
	log.Info("signal recorded",
		applogger.Int64("signal_id", id),
		applogger.String("side", rec.Side),
		applogger.Float64("strike", rec.StrikePrice),
		applogger.Float64("entry_ltp", entry),
	)

	if err := r.deps.Labeler.LabelSignal(ctx, rec); err != nil {
		log.Error("label signal failed", applogger.Int64("signal_id", id), applogger.Error(err))
		r.deps.Metrics.RecordError("label_signal")
	}
	if r.deps.Publisher != nil {
		if err := r.deps.Publisher.PublishSignal(ctx, rec); err != nil {
			log.Error("publish signal failed", applogger.Int64("signal_id", id), applogger.Error(err))
			r.deps.Metrics.RecordError("publish_signal")
		}
	}
}

// acquire takes the per-symbol lock. A lock backend error is logged and the
// cycle proceeds unlocked.
func (r *CycleRunner) acquire(ctx context.Context, symbol string) (func(), error) {
	if r.deps.Lock == nil {
		return func() {}, nil
	}
	key := "cycle:" + symbol
	ok, err := r.deps.Lock.TryLock(ctx, key, r.cfg.LockTTL)
	if err != nil {
		r.l.Warn("cycle lock unavailable", applogger.String("symbol", symbol), applogger.Error(err))
		r.deps.Metrics.RecordError("cycle_lock")
		return func() {}, nil
	}
	if !ok {
		r.deps.Metrics.RecordCycle(symbol, resultBusy)
		return nil, fmt.Errorf("%s: %w", symbol, ErrCycleBusy)
	}
	return func() {
		// The caller's ctx may already be cancelled; release regardless.
		uctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := r.deps.Lock.Unlock(uctx, key); err != nil {
			r.l.Warn("cycle unlock failed", applogger.String("symbol", symbol), applogger.Error(err))
		}
	}, nil
}

func (r *CycleRunner) fail(symbol, kind string) {
	r.deps.Metrics.RecordError(kind)
	r.deps.Metrics.RecordCycle(symbol, resultFailed)
}
