package models

type GreeksRow struct {
	Strike       float64    `json:"strike"`
	OptionType   OptionType `json:"option_type"`
	Delta        float64    `json:"delta"`
	Gamma        float64    `json:"gamma"`
	Theta        float64    `json:"theta"`
	Vega         float64    `json:"vega"`
	OpenInterest float64    `json:"open_interest"`
	Volume       float64    `json:"volume"`
	LTP          float64    `json:"ltp"`
}

type GreeksMetrics struct {
	DeltaExposure      float64 `json:"delta_exposure"`
	GammaImbalance     float64 `json:"gamma_imbalance"`
	ThetaAbsMean       float64 `json:"theta_abs_mean"`
	VegaMean           float64 `json:"vega_mean"`
	SigmaProxy         float64 `json:"sigma_proxy"`
	TimeToExpiryYears  float64 `json:"time_to_expiry_years"`
	NearATMVolumeRatio float64 `json:"near_atm_volume_ratio"`
}

type GreeksAnalysis struct {
	Bias             string        `json:"bias"`
	DirectionalScore int           `json:"directional_score"`
	TimingScore      int           `json:"timing_score"`
	PreferredSide    string        `json:"preferred_side"`
	EntryWindow      string        `json:"entry_window"`
	Profile          string        `json:"profile"`
	TradeAllowed     bool          `json:"trade_allowed"`
	HardFilters      []string      `json:"hard_filters"`
	Metrics          GreeksMetrics `json:"metrics"`
	Drivers          []string      `json:"drivers"`
}
