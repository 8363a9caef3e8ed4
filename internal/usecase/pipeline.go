package usecase

import (
	"context"
	"time"

	"github.com/sudipta6891/OC-Chain-System-ver-01/internal/domain/models"
	"github.com/sudipta6891/OC-Chain-System-ver-01/internal/services/bias"
	"github.com/sudipta6891/OC-Chain-System-ver-01/internal/services/calibration"
	"github.com/sudipta6891/OC-Chain-System-ver-01/internal/services/chain"
	"github.com/sudipta6891/OC-Chain-System-ver-01/internal/services/greeks"
	"github.com/sudipta6891/OC-Chain-System-ver-01/internal/services/oidelta"
	"github.com/sudipta6891/OC-Chain-System-ver-01/internal/services/quality"
	"github.com/sudipta6891/OC-Chain-System-ver-01/internal/services/regime"
	"github.com/sudipta6891/OC-Chain-System-ver-01/internal/services/strike"
	"github.com/sudipta6891/OC-Chain-System-ver-01/internal/services/timing"
	"github.com/sudipta6891/OC-Chain-System-ver-01/pkg/config"
	applogger "github.com/sudipta6891/OC-Chain-System-ver-01/pkg/logger"
)

const (
	regimeHistoryLimit      = 24
	performanceLookbackDays = 20
)

// SummaryHistory feeds the regime detector.
type SummaryHistory interface {
	RecentSummaries(ctx context.Context, symbol string, upto time.Time, limit int) ([]models.SummaryRow, error)
}

// OutcomeStats feeds calibration and the performance block.
type OutcomeStats interface {
	CalibrationSamples(ctx context.Context, symbol string, lookbackDays int) ([]models.CalibrationSample, error)
	RecentPerformance(ctx context.Context, symbol string, lookbackDays int) (models.Performance, error)
}

// PipelineOptions is everything a single evaluation may be tuned by.
type PipelineOptions struct {
	Features        config.Features
	MinSamples      int
	LookbackDays    int
	GreeksProfile   string
	StrikeStrategy  string
	DistancePct     float64
	MaxStaleMinutes int
	StopLossPct     float64
	TargetPct       float64
	TimeStopMin     int
}

// OptionsFromConfig resolves the effective toggles and risk defaults.
func OptionsFromConfig(cfg *config.Config) PipelineOptions {
	return PipelineOptions{
		Features:        cfg.Features.Effective(),
		MinSamples:      cfg.Calibration.MinSamples,
		LookbackDays:    cfg.Calibration.LookbackDays,
		GreeksProfile:   cfg.Greeks.Profile,
		StrikeStrategy:  cfg.Strike.Strategy,
		DistancePct:     cfg.Strike.DistancePct,
		MaxStaleMinutes: cfg.Quality.MaxStaleMinutes,
		StopLossPct:     cfg.Backtest.StopLossPct,
		TargetPct:       cfg.Backtest.TargetPct,
		TimeStopMin:     cfg.Backtest.TimeStopMin,
	}
}

func (o PipelineOptions) withDefaults() PipelineOptions {
	if o.MinSamples < 1 {
		o.MinSamples = 30
	}
	if o.LookbackDays < 1 {
		o.LookbackDays = 45
	}
	if o.MaxStaleMinutes < 1 {
		o.MaxStaleMinutes = 12
	}
	if o.DistancePct <= 0 {
		o.DistancePct = 2
	}
	if o.StopLossPct <= 0 {
		o.StopLossPct = 25
	}
	if o.TargetPct <= 0 {
		o.TargetPct = 45
	}
	if o.TimeStopMin <= 0 {
		o.TimeStopMin = 30
	}
	return o
}

// Pipeline runs every engine over one snapshot. It reads history but never
// writes; store failures degrade the affected stage instead of failing.
type Pipeline struct {
	oi        *oidelta.Engine
	summaries SummaryHistory
	outcomes  OutcomeStats
	now       func() time.Time
	l         *applogger.Logger
}

func NewPipeline(oi *oidelta.Engine, summaries SummaryHistory, outcomes OutcomeStats, l *applogger.Logger) *Pipeline {
	if l == nil {
		l = applogger.Nop()
	}
	return &Pipeline{oi: oi, summaries: summaries, outcomes: outcomes, now: time.Now, l: l}
}

// Evaluate returns the full decision for snap. The only error is a done ctx.
func (p *Pipeline) Evaluate(ctx context.Context, snap models.Snapshot, opts PipelineOptions) (models.Decision, error) {
	opts = opts.withDefaults()
	ft := opts.Features
	log := p.l.With(applogger.String("symbol", snap.Symbol))

	q := models.QualityVerdict{IsUsable: true, AnomalyFlags: []string{}, Warnings: []string{}}
	if ft.Guardrails {
		q = quality.Assess(quality.Input{
			Symbol:          snap.Symbol,
			Rows:            snap.Rows,
			Spot:            snap.Spot,
			SnapshotTime:    snap.SnapshotTime,
			MaxStaleMinutes: opts.MaxStaleMinutes,
		}, p.now())
	}
	log.Info("data quality",
		applogger.Bool("usable", q.IsUsable),
		applogger.Bool("stale", q.StaleData),
		applogger.Bool("missing_strikes", q.MissingStrikes),
		applogger.Int("anomalies", len(q.AnomalyFlags)),
	)

	summary := chain.Summarize(snap)
	oiDelta := p.oi.Calculate(ctx, snap.Symbol, snap.SnapshotTime, snap.Spot, snap.Rows)

	reg := models.RegimeClassification{Label: models.RegimeUnknown, WhyNow: []string{}, WhyNotNow: []string{}}
	if ft.RegimeV2 {
		history, err := p.summaries.RecentSummaries(ctx, snap.Symbol, snap.SnapshotTime, regimeHistoryLimit)
		if err != nil {
			log.Error("regime history query failed", applogger.Error(err))
		}
		reg = regime.Detect(history, snap.Rows, oiDelta)
	}
	log.Info("regime",
		applogger.Bool("enabled", ft.RegimeV2),
		applogger.String("label", reg.Label),
		applogger.Int("confidence", reg.Confidence),
		applogger.Strings("cautions", reg.WhyNotNow),
	)

	prob := chain.ProbabilityView(summary.PCR, summary.Breakout, summary.Structure, nil)
	scalp := chain.ScalpSignal(summary.Breakout, summary.ShortCovering, summary.VolumeSpike, prob)

	in := bias.InputFromSummary(summary)
	in.Probability = prob
	in.OIDelta = oiDelta
	in.Scalp = scalp
	b := bias.Calculate(in)

	g := greeks.Analyze(greeks.Input{
		Rows:         snap.Rows,
		Spot:         snap.Spot,
		ATM:          summary.ATM,
		Breakout:     summary.Breakout,
		SnapshotTime: snap.SnapshotTime,
		Profile:      opts.GreeksProfile,
	})

	var td models.TimingDecision
	if ft.TimingV2 {
		td = timing.Score(g, reg, q, b)
	} else {
		td = timing.Fallback(g, q, b.MarketScore)
	}
	log.Info("timing",
		applogger.Bool("enabled", ft.TimingV2),
		applogger.Int("score", td.TimingScoreV2),
		applogger.Bool("allow_trade", td.AllowTrade),
		applogger.String("entry_window", td.EntryWindow),
		applogger.Strings("blockers", td.Blockers),
	)

	cal := calibration.Identity(td.CalibrationInputProbability)
	if ft.Calibration {
		samples, err := p.outcomes.CalibrationSamples(ctx, snap.Symbol, opts.LookbackDays)
		if err != nil {
			log.Error("calibration samples query failed", applogger.Error(err))
		}
		cal = calibration.Calibrate(td.CalibrationInputProbability, samples, opts.MinSamples)
	}
	log.Info("calibration",
		applogger.Bool("enabled", ft.Calibration),
		applogger.String("method", cal.Method),
		applogger.Float64("p", cal.CalibratedProbability),
		applogger.Int("samples", cal.SampleSize),
	)

	calibrated := cal.CalibratedProbability
	prob = chain.ProbabilityView(summary.PCR, summary.Breakout, summary.Structure, &calibrated)

	side := strike.PickSide(b, g)
	selection := models.StrikeSelection{Reasons: []string{"No trade side selected."}}
	if side != "" && td.AllowTrade && q.IsUsable {
		selector := strike.Choose(ft.DynamicOTM, ft.OutcomeTracking, opts.StrikeStrategy, opts.DistancePct)
		if selector == nil {
			selection = models.StrikeSelection{Reasons: []string{"Dynamic OTM selector disabled."}}
		} else {
			selection = selector.Select(snap.Rows, models.StrikeRequest{
				Side:         side,
				Spot:         snap.Spot,
				ATM:          summary.ATM,
				Breakout:     summary.Breakout,
				Regime:       reg.Label,
				SnapshotTime: snap.SnapshotTime,
			})
		}
		log.Info("strike selection",
			applogger.String("side", string(side)),
			applogger.String("strategy", selection.Strategy),
			applogger.Any("strike", selection.Strike),
			applogger.Float64("score", selection.Score),
			applogger.Strings("reasons", selection.Reasons),
		)
	}

	var perf models.Performance
	if ft.OutcomeTracking {
		var err error
		perf, err = p.outcomes.RecentPerformance(ctx, snap.Symbol, performanceLookbackDays)
		if err != nil {
			log.Error("recent performance query failed", applogger.Error(err))
		}
	}

	finalSide := models.SideNone
	if side != "" {
		finalSide = string(side)
	}

	d := models.Decision{
		Symbol:       snap.Symbol,
		SnapshotTime: snap.SnapshotTime,
		Spot:         snap.Spot,
		Quality:      q,
		Summary:      summary,
		OIDelta:      oiDelta,
		Regime:       reg,
		Probability:  prob,
		Scalp:        scalp,
		Bias:         b,
		Greeks:       g,
		Timing:       td,
		Calibration:  cal,
		Confidence:   chain.InstitutionalConfidence(oiDelta, prob, summary.VolumeSpike, scalp),
		Outlook:      chain.IntradayOutlook(prob, summary.Breakout),
		Selection:    selection,
		Performance:  perf,
		PCRNote:      chain.PCRNote(summary.PCR),
		MaxPainNote:  chain.MaxPainNote(snap.Spot, summary.MaxPain),
		Execution: models.Execution{
			Side:            finalSide,
			AllowTrade:      td.AllowTrade && q.IsUsable && side != "" && selection.Strike != nil,
			StopLossPct:     opts.StopLossPct,
			TargetPct:       opts.TargetPct,
			TimeStopMin:     opts.TimeStopMin,
			ExpectedMovePct: td.ExpectedMovePct,
			InvalidationPct: td.InvalidationPct,
		},
	}
	return d, ctx.Err()
}
