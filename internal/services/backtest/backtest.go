// Package backtest replays stored signals against the recorded option
// price path that followed each of them.
package backtest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sudipta6891/OC-Chain-System-ver-01/internal/domain/models"
	"github.com/sudipta6891/OC-Chain-System-ver-01/internal/services/features"
	"github.com/sudipta6891/OC-Chain-System-ver-01/pkg/logger"
	"github.com/sudipta6891/OC-Chain-System-ver-01/pkg/util"
)

// ErrDateRange is returned when the end date precedes the start date.
var ErrDateRange = errors.New("backtest: end date before start date")

type SignalSource interface {
	SignalsInRange(ctx context.Context, symbol string, start, end time.Time) ([]models.SignalRecord, error)
}

type PathSource interface {
	LTPPath(ctx context.Context, symbol string, side models.OptionType, strike float64, from, until time.Time) ([]models.LTPPoint, error)
}

type Backtester struct {
	signals SignalSource
	paths   PathSource
	logger  *logger.Logger
}

func New(signals SignalSource, paths PathSource, l *logger.Logger) *Backtester {
	if l == nil {
		l = logger.Nop()
	}
	return &Backtester{signals: signals, paths: paths, logger: l}
}

func orDefault(v, fallback float64) float64 {
	if v == 0 || math.IsNaN(v) {
		return fallback
	}
	return v
}

// Window is the path query range for a signal.
func Window(sig models.SignalRecord, cfg models.BacktestConfig) (from, until time.Time) {
	mins := sig.TimeStopMin
	if mins == 0 {
		mins = cfg.DefaultTimeStopMin
	}
	return sig.SnapshotTime, sig.SnapshotTime.Add(time.Duration(mins) * time.Minute)
}

// Simulate walks path in order and exits on the first stop or target
// breach, else at the last observation.
func Simulate(sig models.SignalRecord, path []models.LTPPoint, cfg models.BacktestConfig) models.BacktestTrade {
	skip := models.BacktestTrade{SignalID: sig.ID, Status: models.TradeSkip}
	entry := 0.0
	if sig.EntryLTP != nil {
		entry = *sig.EntryLTP
	}
	if !(entry > 0) {
		return skip
	}

	points := make([]float64, 0, len(path))
	for _, p := range path {
		if !math.IsNaN(p.LTP) {
			points = append(points, p.LTP)
		}
	}
	if len(points) == 0 {
		return skip
	}

	stopPct := orDefault(sig.StopLossPct, cfg.DefaultStopLossPct)
	targetPct := orDefault(sig.TargetPct, cfg.DefaultTargetPct)

	executedEntry := entry * (1 + cfg.SlippagePct/100)
	stopLevel := executedEntry * (1 - math.Abs(stopPct)/100)
	targetLevel := executedEntry * (1 + math.Abs(targetPct)/100)

	exit, reason := points[len(points)-1], models.ExitTimeStop
	for _, ltp := range points {
		if ltp <= stopLevel {
			exit, reason = ltp, models.ExitStopLoss
			break
		}
		if ltp >= targetLevel {
			exit, reason = ltp, models.ExitTarget
			break
		}
	}

	executedExit := exit * (1 - cfg.SlippagePct/100)
	gross := (executedExit - executedEntry) / executedEntry * 100
	return models.BacktestTrade{
		SignalID:       sig.ID,
		Status:         models.TradeDone,
		ExitReason:     reason,
		GrossReturnPct: gross,
		NetReturnPct:   gross - cfg.TxnCostPct,
	}
}

// Aggregate summarizes completed trades in order. Skipped trades are ignored.
func Aggregate(symbol, start, end string, trades []models.BacktestTrade) models.BacktestResult {
	res := models.BacktestResult{Symbol: symbol, StartDate: start, EndDate: end}

	var equity, peak, maxDD, sum float64
	done, wins := 0, 0
	for _, t := range trades {
		if t.Status != models.TradeDone {
			continue
		}
		done++
		sum += t.NetReturnPct
		if t.NetReturnPct > 0 {
			wins++
		}
		equity += t.NetReturnPct
		peak = math.Max(peak, equity)
		maxDD = math.Min(maxDD, equity-peak)
	}
	if done == 0 {
		return res
	}

	avg := sum / float64(done)
	res.Trades = done
	res.HitRate = features.RoundTo(float64(wins)/float64(done), 4)
	res.AvgNetReturnPct = features.RoundTo(avg, 4)
	res.Expectancy = features.RoundTo(avg/100, 6)
	res.MaxDrawdownPct = features.RoundTo(math.Abs(maxDD), 4)
	return res
}

// Run backtests every signal of symbol dated within [start, end]. A path
// that cannot be read skips its trade.
func (b *Backtester) Run(ctx context.Context, symbol, start, end string, cfg models.BacktestConfig) (models.BacktestResult, []models.BacktestTrade, error) {
	from, err := util.ParseDate(start, time.UTC)
	if err != nil {
		return models.BacktestResult{}, nil, fmt.Errorf("parse start date: %w", err)
	}
	to, err := util.ParseDate(end, time.UTC)
	if err != nil {
		return models.BacktestResult{}, nil, fmt.Errorf("parse end date: %w", err)
	}
	if to.Before(from) {
		return models.BacktestResult{}, nil, fmt.Errorf("%w: %s > %s", ErrDateRange, start, end)
	}

	signals, err := b.signals.SignalsInRange(ctx, symbol, from, to)
	if err != nil {
		return models.BacktestResult{}, nil, fmt.Errorf("fetch signals: %w", err)
	}

	trades := make([]models.BacktestTrade, 0, len(signals))
	for _, sig := range signals {
		if err := ctx.Err(); err != nil {
			return models.BacktestResult{}, nil, err
		}
		if sig.EntryLTP == nil || !(*sig.EntryLTP > 0) {
			trades = append(trades, models.BacktestTrade{SignalID: sig.ID, Status: models.TradeSkip})
			continue
		}
		winFrom, winTo := Window(sig, cfg)
		path, err := b.paths.LTPPath(ctx, sig.Symbol, models.OptionType(sig.Side), sig.StrikePrice, winFrom, winTo)
		if err != nil {
			b.logger.Warn("backtest: ltp path",
				logger.Int64("signal_id", sig.ID),
				logger.String("symbol", sig.Symbol),
				logger.Error(err),
			)
		}
		trades = append(trades, Simulate(sig, path, cfg))
	}

	res := Aggregate(symbol, start, end, trades)
	b.logger.Info("backtest finished",
		logger.String("symbol", symbol),
		logger.Int("signals", len(signals)),
		logger.Int("trades", res.Trades),
		logger.Float64("hit_rate", res.HitRate),
	)
	return res, trades, nil
}
