// Package oidelta measures how near-ATM open interest moved between the
// current snapshot and the previous stored ones.
package oidelta

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/sudipta6891/OC-Chain-System-ver-01/internal/domain/models"
	"github.com/sudipta6891/OC-Chain-System-ver-01/internal/services/chain"
	"github.com/sudipta6891/OC-Chain-System-ver-01/pkg/logger"
)

const (
	ClassCallWriting   = "Call Writing Dominant"
	ClassPutWriting    = "Put Writing Dominant"
	ClassShortCovering = "Short Covering Both Sides"
	ClassStraddle      = "Straddle/Strangle Build-Up"
	ClassMixed         = "Mixed Activity"

	AccelBullish = "Bullish Acceleration"
	AccelBearish = "Bearish Acceleration"
	accelNone    = "N/A"

	atmRange   = 3
	maxGap     = 15 * time.Minute
	historyLen = 3
)

// History is the slice of snapshot storage the engine reads.
type History interface {
	SnapshotTimes(ctx context.Context, symbol string, upto time.Time, limit int) ([]time.Time, error)
	SnapshotAt(ctx context.Context, symbol string, at time.Time) ([]models.ChainRow, error)
}

type Engine struct {
	history History
	loc     *time.Location
	logger  *logger.Logger
}

type Option func(*Engine)

func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

func WithLogger(l *logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

func NewEngine(history History, opts ...Option) *Engine {
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		loc = time.FixedZone("IST", 5*3600+1800)
	}
	e := &Engine{history: history, loc: loc, logger: logger.Nop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Neutral is the 50/50 reading returned with a sentinel classification.
func Neutral(reason string) models.OIDelta {
	return models.OIDelta{
		Classification:        reason,
		BullishProbability:    50,
		BearishProbability:    50,
		AccelerationDirection: accelNone,
	}
}

// StrikeStep is the grid width used for the ATM window.
func StrikeStep(symbol string) float64 {
	upper := strings.ToUpper(symbol)
	switch {
	case strings.Contains(upper, "BANKNIFTY"):
		return 100
	case strings.Contains(upper, "NIFTY"):
		return 50
	}
	return 100
}

// MarketOpen reports whether t falls inside the Mon-Fri 09:15-15:30 session.
func MarketOpen(t time.Time, loc *time.Location) bool {
	local := t.In(loc)
	if wd := local.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	mins := local.Hour()*60 + local.Minute()
	secs := local.Second()
	if mins < 9*60+15 {
		return false
	}
	return mins < 15*60+30 || (mins == 15*60+30 && secs == 0 && local.Nanosecond() == 0)
}

type strikeKey struct {
	strike float64
	side   models.OptionType
}

func oiByKey(rows []models.ChainRow) map[strikeKey]float64 {
	m := make(map[strikeKey]float64, len(rows))
	for _, r := range rows {
		k := strikeKey{r.StrikePrice, r.OptionType}
		if _, ok := m[k]; !ok {
			m[k] = r.OpenInterest
		}
	}
	return m
}

// sideDeltas left-joins cur onto prev and sums the OI change per side. A
// missing or NaN previous OI counts as zero; a NaN current OI is skipped.
func sideDeltas(cur, prev []models.ChainRow) (ce, pe float64) {
	before := oiByKey(prev)
	for _, r := range cur {
		if math.IsNaN(r.OpenInterest) {
			continue
		}
		p := before[strikeKey{r.StrikePrice, r.OptionType}]
		if math.IsNaN(p) {
			p = 0
		}
		d := r.OpenInterest - p
		switch r.OptionType {
		case models.CE:
			ce += d
		case models.PE:
			pe += d
		}
	}
	return ce, pe
}

func window(rows []models.ChainRow, lower, upper float64) []models.ChainRow {
	out := make([]models.ChainRow, 0, len(rows))
	for _, r := range rows {
		if r.StrikePrice >= lower && r.StrikePrice <= upper {
			out = append(out, r)
		}
	}
	return out
}

// Calculate compares current (the in-memory rows at snapshotTime) against
// the stored snapshots before it.
func (e *Engine) Calculate(ctx context.Context, symbol string, snapshotTime time.Time, spot float64, current []models.ChainRow) models.OIDelta {
	if !MarketOpen(snapshotTime, e.loc) {
		return Neutral(models.OIDeltaMarketClosed)
	}

	times, err := e.history.SnapshotTimes(ctx, symbol, snapshotTime, historyLen)
	if err != nil {
		e.logger.Error("oi delta: snapshot times",
			logger.String("symbol", symbol),
			logger.Error(err),
		)
		return Neutral(models.OIDeltaFetchFailed)
	}
	if len(times) == 0 || !times[0].Equal(snapshotTime) {
		times = append([]time.Time{snapshotTime}, times...)
		if len(times) > historyLen {
			times = times[:historyLen]
		}
	}
	if len(times) < 2 {
		return Neutral(models.OIDeltaNoPrevious)
	}
	if d := times[0].Sub(times[1]); d > maxGap || d < -maxGap {
		return Neutral(models.OIDeltaDataGap)
	}

	prev, err := e.history.SnapshotAt(ctx, symbol, times[1])
	if err != nil {
		e.logger.Error("oi delta: previous snapshot",
			logger.String("symbol", symbol),
			logger.Time("snapshot_time", times[1]),
			logger.Error(err),
		)
	}
	if len(current) == 0 || len(prev) == 0 {
		return Neutral(models.OIDeltaFetchFailed)
	}

	step := StrikeStep(symbol)
	atm := chain.ATMStrike(current, spot)
	lower, upper := atm-step*atmRange, atm+step*atmRange
	cur := window(current, lower, upper)
	prevWin := window(prev, lower, upper)
	if len(cur) == 0 || len(prevWin) == 0 {
		return Neutral(models.OIDeltaATMFilterEmpty)
	}

	ceDelta, peDelta := sideDeltas(cur, prevWin)
	out := models.OIDelta{
		CEDelta:               int(ceDelta),
		PEDelta:               int(peDelta),
		AccelerationDirection: accelNone,
	}

	if len(times) >= 3 {
		older, err := e.history.SnapshotAt(ctx, symbol, times[2])
		if err != nil {
			e.logger.Warn("oi delta: acceleration snapshot",
				logger.String("symbol", symbol),
				logger.Error(err),
			)
		}
		if len(older) > 0 {
			prevCE, prevPE := sideDeltas(prevWin, older)
			ceAcc, peAcc := math.Abs(ceDelta-prevCE), math.Abs(peDelta-prevPE)
			if total := ceAcc + peAcc; total > 0 {
				if peAcc > ceAcc {
					out.AccelerationDirection = AccelBullish
					out.AccelerationProbability = int(peAcc / total * 100)
				} else {
					out.AccelerationDirection = AccelBearish
					out.AccelerationProbability = int(ceAcc / total * 100)
				}
			}
		}
	}

	activity := math.Abs(ceDelta) + math.Abs(peDelta)
	if activity == 0 {
		out.BullishProbability, out.BearishProbability = 50, 50
	} else {
		bullish := math.Max(peDelta, 0) + math.Abs(math.Min(ceDelta, 0))
		out.BullishProbability = int(bullish / activity * 100)
		out.BearishProbability = 100 - out.BullishProbability
	}

	switch {
	case ceDelta > 0 && peDelta < 0:
		out.Classification = ClassCallWriting
	case peDelta > 0 && ceDelta < 0:
		out.Classification = ClassPutWriting
	case ceDelta < 0 && peDelta < 0:
		out.Classification = ClassShortCovering
	case ceDelta > 0 && peDelta > 0:
		out.Classification = ClassStraddle
	default:
		out.Classification = ClassMixed
	}
	return out
}
