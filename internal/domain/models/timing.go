package models

type TimingDecision struct {
	TimingScoreV2               int      `json:"timing_score_v2"`
	AllowTrade                  bool     `json:"allow_trade"`
	EntryWindow                 string   `json:"entry_window"`
	Reasons                     []string `json:"reasons"`
	Blockers                    []string `json:"blockers"`
	CalibrationInputProbability float64  `json:"calibration_input_probability"`
	ExpectedMovePct             float64  `json:"expected_move_pct"`
	InvalidationPct             float64  `json:"invalidation_pct"`
}
