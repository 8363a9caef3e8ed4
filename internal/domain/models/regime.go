package models

const (
	RegimeTrend    = "TREND"
	RegimeVolatile = "VOLATILE"
	RegimeTrap     = "TRAP"
	RegimeRange    = "RANGE"
	RegimeUnknown  = "UNKNOWN"
)

type RegimeFeatures struct {
	ATRProxy     float64 `json:"atr_proxy"`
	ATRPct       float64 `json:"atr_pct"`
	IVPercentile float64 `json:"iv_percentile"`
	Breadth      float64 `json:"breadth"`
	OIAccelProb  int     `json:"oi_acceleration_prob"`
	TrendSlope   float64 `json:"trend_slope"`
	PCRVol       float64 `json:"pcr_volatility"`
}

// RegimeClassification is rebuilt per cycle from at most 24 prior summaries.
type RegimeClassification struct {
	Label      string         `json:"regime"`
	Confidence int            `json:"confidence"`
	Features   RegimeFeatures `json:"features"`
	WhyNow     []string       `json:"why_now"`
	WhyNotNow  []string       `json:"why_not_now"`
}
