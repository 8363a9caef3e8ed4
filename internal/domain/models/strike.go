package models

import "time"

// StrikeSelection has a nil Strike when no eligible OTM candidate exists.
type StrikeSelection struct {
	Strike   *float64 `json:"strike"`
	EntryLTP *float64 `json:"entry_ltp"`
	Score    float64  `json:"score"`
	DeltaAbs float64  `json:"delta_abs"`
	ThetaAbs float64  `json:"theta_abs"`
	Vega     float64  `json:"vega"`
	Strategy string   `json:"strategy"`
	Reasons  []string `json:"reasons"`
}

// StrikeRequest carries everything a strike strategy may look at.
type StrikeRequest struct {
	Side         OptionType
	Spot         float64
	ATM          float64
	Breakout     string
	Regime       string
	SnapshotTime time.Time
}
