package repository

import (
	"context"
	"errors"
	"time"

	"github.com/sudipta6891/OC-Chain-System-ver-01/internal/domain/models"
)

// ErrNoChainData is wrapped by chain sources when a symbol has nothing to
// evaluate, e.g. no listed expiry.
var ErrNoChainData = errors.New("no option chain data")

// ChainSource fetches live option-chain data from the broker.
type ChainSource interface {
	FetchOptionChain(ctx context.Context, symbol string) ([]models.ChainRow, error)
	FetchSpotPrice(ctx context.Context, symbol string) (float64, error)
}

// SnapshotStore keeps raw chain snapshots and serves price paths from them.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, symbol string, rows []models.ChainRow) error
	// SnapshotTimes returns distinct snapshot times <= upto, newest first.
	SnapshotTimes(ctx context.Context, symbol string, upto time.Time, limit int) ([]time.Time, error)
	SnapshotAt(ctx context.Context, symbol string, at time.Time) ([]models.ChainRow, error)
	LTPPath(ctx context.Context, symbol string, side models.OptionType, strike float64, from, until time.Time) ([]models.LTPPoint, error)
	// LTPAtOrAfter returns the first observation at or after t, or nil.
	LTPAtOrAfter(ctx context.Context, symbol string, side models.OptionType, strike float64, t time.Time) (*models.LTPPoint, error)
}

// SummaryStore keeps per-cycle chain summaries and scalp scores.
type SummaryStore interface {
	SaveSummary(ctx context.Context, summary models.ChainSummary) error
	// RecentSummaries returns up to limit summaries <= upto in ascending time order.
	RecentSummaries(ctx context.Context, symbol string, upto time.Time, limit int) ([]models.SummaryRow, error)
	SaveScalp(ctx context.Context, symbol string, snapshotTime time.Time, spot float64, scalp models.ScalpScore) error
}

type SignalStore interface {
	InsertSignal(ctx context.Context, rec models.SignalRecord) (int64, error)
	// SignalsInRange returns signals whose snapshot date is within [start, end], oldest first.
	SignalsInRange(ctx context.Context, symbol string, start, end time.Time) ([]models.SignalRecord, error)
	PendingSignals(ctx context.Context, symbol string, since time.Time) ([]models.SignalRecord, error)
}

type OutcomeStore interface {
	UpsertOutcome(ctx context.Context, o models.TradeOutcome) error
	CalibrationSamples(ctx context.Context, symbol string, lookbackDays int) ([]models.CalibrationSample, error)
	RecentPerformance(ctx context.Context, symbol string, lookbackDays int) (models.Performance, error)
}

type RetentionStore interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// SignalPublisher fans signal records out to downstream consumers.
type SignalPublisher interface {
	PublishSignal(ctx context.Context, rec models.SignalRecord) error
	Close() error
}

// CycleLock guards a symbol against overlapping cycles across replicas.
type CycleLock interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}

type Metrics interface {
	RecordCycle(symbol, result string)
	RecordStageLatency(stage string, seconds float64)
	RecordError(kind string)
	RecordDecision(symbol string, marketScore int, calibratedProb float64)
	RecordSignal(symbol, side string)
}
