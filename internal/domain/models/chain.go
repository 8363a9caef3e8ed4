package models

import (
	"strings"
	"time"
)

type OptionType string

const (
	CE OptionType = "CE"
	PE OptionType = "PE"
)

// ParseOptionType normalizes broker spellings ("ce", "CALL", "PE") to CE/PE.
func ParseOptionType(s string) (OptionType, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CE", "CALL", "C":
		return CE, true
	case "PE", "PUT", "P":
		return PE, true
	}
	return "", false
}

// ChainRow is one strike/side line of an option-chain snapshot. Numeric
// fields that failed coercion hold NaN.
type ChainRow struct {
	Symbol       string     `json:"symbol,omitempty"`
	StrikePrice  float64    `json:"strike_price"`
	OptionType   OptionType `json:"option_type"`
	OpenInterest float64    `json:"open_interest"`
	OIChange     float64    `json:"oi_change"`
	Volume       float64    `json:"volume"`
	LTP          float64    `json:"ltp"`
	IV           *float64   `json:"iv,omitempty"`
	Expiry       string     `json:"expiry,omitempty"` // date, timestamp or epoch (s/ms) as text
	SnapshotTime time.Time  `json:"snapshot_time,omitempty"`
}

type Snapshot struct {
	Symbol       string     `json:"symbol"`
	Spot         float64    `json:"spot"`
	SnapshotTime time.Time  `json:"snapshot_time"`
	Rows         []ChainRow `json:"rows"`
}

// SummaryRow is the persisted per-cycle chain summary read back as regime history.
type SummaryRow struct {
	SnapshotTime time.Time `json:"snapshot_time" db:"snapshot_time"`
	SpotPrice    float64   `json:"spot_price" db:"spot_price"`
	PCR          float64   `json:"pcr" db:"pcr"`
	Resistance   float64   `json:"resistance" db:"resistance"`
	Support      float64   `json:"support" db:"support"`
	MaxPain      float64   `json:"max_pain" db:"max_pain"`
}

// ChainSummary bundles the per-cycle chain analytics.
type ChainSummary struct {
	Symbol        string      `json:"symbol"`
	SnapshotTime  time.Time   `json:"snapshot_time"`
	Spot          float64     `json:"spot"`
	ATM           float64     `json:"atm"`
	TotalCEOI     float64     `json:"total_ce_oi"`
	TotalPEOI     float64     `json:"total_pe_oi"`
	PCR           float64     `json:"pcr"`
	Resistance    float64     `json:"resistance"`
	Support       float64     `json:"support"`
	MaxPain       float64     `json:"max_pain"`
	Structure     string      `json:"structure"`
	Trap          string      `json:"trap"`
	Breakout      string      `json:"breakout"`
	ShortCovering string      `json:"short_covering"`
	VolumeSpike   VolumeSpike `json:"volume_spike"`
}

type VolumeSpike struct {
	Spike   bool `json:"volume_spike"`
	CESpike bool `json:"ce_spike"`
	PESpike bool `json:"pe_spike"`
}

// ProbabilityView is the heuristic directional probability of a cycle.
type ProbabilityView struct {
	UpsideProbability    int     `json:"upside_probability"`
	DownsideProbability  int     `json:"downside_probability"`
	Bias                 string  `json:"bias"`
	BreakoutProbability  int     `json:"breakout_probability"`
	RawScore             int     `json:"raw_score"`
	CalibratedUpsideProb float64 `json:"calibrated_upside_probability"`
}

type ScalpScore struct {
	Score     int            `json:"score"` // signed: + bullish, - bearish
	AbsScore  int            `json:"abs_score"`
	Signal    string         `json:"signal"`
	Direction string         `json:"direction"`
	Edge      string         `json:"edge"`
	Risk      string         `json:"risk"`
	Breakdown ScalpBreakdown `json:"breakdown"`
}

type ScalpBreakdown struct {
	Breakout int `json:"breakout"`
	Volume   int `json:"volume"`
	Bias     int `json:"bias"`
	Covering int `json:"covering"`
}

type InstitutionalConfidence struct {
	DirectionalScore int      `json:"directional_score"`
	AbsScore         int      `json:"abs_score"`
	Level            string   `json:"level"`
	Direction        string   `json:"direction"`
	Reasons          []string `json:"reasons"`
	Note             string   `json:"note"`
}

type Outlook struct {
	Next15 string `json:"next_15"`
	Next30 string `json:"next_30"`
	Next60 string `json:"next_60"`
}
