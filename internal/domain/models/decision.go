package models

import "time"

// SideNone is the execution side when no trade is taken.
const SideNone = "NO TRADE"

// Execution is the final trade instruction of a cycle.
type Execution struct {
	Side            string  `json:"side"` // CE, PE or NO TRADE
	AllowTrade      bool    `json:"allow_trade"`
	SignalID        *int64  `json:"signal_id"`
	StopLossPct     float64 `json:"stop_loss_pct"`
	TargetPct       float64 `json:"target_pct"`
	TimeStopMin     int     `json:"time_stop_min"`
	ExpectedMovePct float64 `json:"expected_move_pct"`
	InvalidationPct float64 `json:"invalidation_pct"`
}

// Decision is the full result of evaluating one snapshot.
type Decision struct {
	CycleID      string                  `json:"cycle_id"`
	Symbol       string                  `json:"symbol"`
	SnapshotTime time.Time               `json:"snapshot_time"`
	Spot         float64                 `json:"spot"`
	Quality      QualityVerdict          `json:"quality"`
	Summary      ChainSummary            `json:"summary"`
	OIDelta      OIDelta                 `json:"oi_delta"`
	Regime       RegimeClassification    `json:"regime"`
	Probability  ProbabilityView         `json:"probability"`
	Scalp        ScalpScore              `json:"scalp"`
	Bias         BiasScore               `json:"bias"`
	Greeks       GreeksAnalysis          `json:"greeks"`
	Timing       TimingDecision          `json:"timing"`
	Calibration  CalibratedProbability   `json:"calibration"`
	Confidence   InstitutionalConfidence `json:"institutional_confidence"`
	Outlook      Outlook                 `json:"outlook"`
	Selection    StrikeSelection         `json:"selection"`
	Performance  Performance             `json:"performance"`
	PCRNote      string                  `json:"pcr_note"`
	MaxPainNote  string                  `json:"max_pain_note"`
	Execution    Execution               `json:"execution"`
}
