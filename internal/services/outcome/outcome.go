// Package outcome labels stored signals WIN/LOSS/FLAT/OPEN at fixed
// horizons after entry, feeding calibration and performance stats.
package outcome

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sudipta6891/OC-Chain-System-ver-01/internal/domain/models"
	"github.com/sudipta6891/OC-Chain-System-ver-01/pkg/logger"
)

const (
	DefaultStopLossPct = 25.0
	DefaultTargetPct   = 45.0
	PendingLookback    = 8 * time.Hour
	flatBandPct        = 1.0
)

type PriceSource interface {
	LTPAtOrAfter(ctx context.Context, symbol string, side models.OptionType, strike float64, t time.Time) (*models.LTPPoint, error)
}

type Store interface {
	UpsertOutcome(ctx context.Context, o models.TradeOutcome) error
}

type PendingSource interface {
	PendingSignals(ctx context.Context, symbol string, since time.Time) ([]models.SignalRecord, error)
}

type Labeler struct {
	prices  PriceSource
	store   Store
	pending PendingSource
	logger  *logger.Logger
}

func NewLabeler(prices PriceSource, store Store, pending PendingSource, l *logger.Logger) *Labeler {
	if l == nil {
		l = logger.Nop()
	}
	return &Labeler{prices: prices, store: store, pending: pending, logger: l}
}

// Classify labels a horizon exit. Target and stop take precedence over the
// flat band.
func Classify(entry, exit, stopPct, targetPct float64) (label string, ret float64, hitTarget, hitStop bool) {
	ret = (exit - entry) / entry * 100
	hitTarget = ret >= targetPct
	hitStop = ret <= -math.Abs(stopPct)
	switch {
	case hitTarget:
		label = models.OutcomeWin
	case hitStop:
		label = models.OutcomeLoss
	case math.Abs(ret) < flatBandPct:
		label = models.OutcomeFlat
	case ret > 0:
		label = models.OutcomeWin
	default:
		label = models.OutcomeLoss
	}
	return label, ret, hitTarget, hitStop
}

// Build computes the outcome of one horizon; a nil exit means the horizon
// has not been observed yet.
func Build(signalID int64, horizon int, entry, stopPct, targetPct float64, exit *models.LTPPoint) models.TradeOutcome {
	o := models.TradeOutcome{SignalID: signalID, HorizonMin: horizon, Label: models.OutcomeOpen}
	if exit == nil {
		return o
	}
	label, ret, hitTarget, hitStop := Classify(entry, exit.LTP, stopPct, targetPct)
	exitTime, exitLTP, pnl := exit.Time, exit.LTP, exit.LTP-entry
	o.ExitTime = &exitTime
	o.ExitLTP = &exitLTP
	o.ReturnPct = &ret
	o.PnLPoints = &pnl
	o.Label = label
	o.HitTarget = hitTarget
	o.HitStop = hitStop
	o.ExpectancyComponent = ret / 100
	return o
}

// LabelSignal upserts one outcome per horizon. Signals without a positive
// entry price are ignored.
func (l *Labeler) LabelSignal(ctx context.Context, sig models.SignalRecord) error {
	if sig.EntryLTP == nil || !(*sig.EntryLTP > 0) {
		return nil
	}
	entry := *sig.EntryLTP
	stop, target := sig.StopLossPct, sig.TargetPct
	if stop == 0 {
		stop = DefaultStopLossPct
	}
	if target == 0 {
		target = DefaultTargetPct
	}

	for _, h := range models.OutcomeHorizons {
		at := sig.SnapshotTime.Add(time.Duration(h) * time.Minute)
		exit, err := l.prices.LTPAtOrAfter(ctx, sig.Symbol, models.OptionType(sig.Side), sig.StrikePrice, at)
		if err != nil {
			return fmt.Errorf("ltp at %dm for signal %d: %w", h, sig.ID, err)
		}
		if err := l.store.UpsertOutcome(ctx, Build(sig.ID, h, entry, stop, target, exit)); err != nil {
			return fmt.Errorf("upsert outcome %dm for signal %d: %w", h, sig.ID, err)
		}
	}
	return nil
}

// ProcessPending relabels every signal of symbol from the last eight hours.
// A failing signal is logged and skipped.
func (l *Labeler) ProcessPending(ctx context.Context, symbol string, now time.Time) (int, error) {
	sigs, err := l.pending.PendingSignals(ctx, symbol, now.Add(-PendingLookback))
	if err != nil {
		return 0, fmt.Errorf("pending signals: %w", err)
	}
	labeled := 0
	for _, sig := range sigs {
		if err := l.LabelSignal(ctx, sig); err != nil {
			l.logger.Warn("outcome labeling failed",
				logger.Int64("signal_id", sig.ID),
				logger.String("symbol", symbol),
				logger.Error(err),
			)
			continue
		}
		labeled++
	}
	return labeled, nil
}
