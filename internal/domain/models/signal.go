package models

import "time"

const (
	OutcomeWin  = "WIN"
	OutcomeLoss = "LOSS"
	OutcomeFlat = "FLAT"
	OutcomeOpen = "OPEN"
)

// OutcomeHorizons are the minutes after entry at which a signal is labeled.
var OutcomeHorizons = []int{10, 30, 60}

// SignalRecord is the persisted and published form of one trade decision.
type SignalRecord struct {
	ID                    int64     `json:"id" db:"id"`
	CycleID               string    `json:"cycle_id" db:"cycle_id"`
	Symbol                string    `json:"symbol" db:"symbol"`
	SnapshotTime          time.Time `json:"snapshot_time" db:"snapshot_time"`
	Side                  string    `json:"side" db:"side"`
	StrikePrice           float64   `json:"strike_price" db:"strike_price"`
	EntryLTP              *float64  `json:"entry_ltp" db:"entry_ltp"`
	SpotPrice             float64   `json:"spot_price" db:"spot_price"`
	Regime                string    `json:"regime" db:"regime"`
	SignalStrength        float64   `json:"signal_strength" db:"signal_strength"`
	TimingScore           float64   `json:"timing_score" db:"timing_score"`
	RawProbability        float64   `json:"raw_probability" db:"raw_probability"`
	CalibratedProbability float64   `json:"calibrated_probability" db:"calibrated_probability"`
	StopLossPct           float64   `json:"stop_loss_pct" db:"stop_loss_pct"`
	TargetPct             float64   `json:"target_pct" db:"target_pct"`
	TimeStopMin           int       `json:"time_stop_min" db:"time_stop_min"`
	ExecutionNotes        string    `json:"execution_notes" db:"execution_notes"`
}

type TradeOutcome struct {
	SignalID            int64      `json:"signal_id" db:"signal_id"`
	HorizonMin          int        `json:"horizon_min" db:"horizon_min"`
	ExitTime            *time.Time `json:"exit_time" db:"exit_time"`
	ExitLTP             *float64   `json:"exit_ltp" db:"exit_ltp"`
	ReturnPct           *float64   `json:"return_pct" db:"return_pct"`
	PnLPoints           *float64   `json:"pnl_points" db:"pnl_points"`
	Label               string     `json:"outcome_label" db:"outcome_label"`
	HitTarget           bool       `json:"hit_target" db:"hit_target"`
	HitStop             bool       `json:"hit_stop" db:"hit_stop"`
	ExpectancyComponent float64    `json:"expectancy_component" db:"expectancy_component"`
}

type Performance struct {
	Trades       int     `json:"trades" db:"trades"`
	HitRate      float64 `json:"hit_rate" db:"hit_rate"`
	Expectancy   float64 `json:"expectancy" db:"expectancy"`
	AvgReturnPct float64 `json:"avg_return_pct" db:"avg_return_pct"`
}
