package models

import "time"

// Requests for the signal HTTP endpoints.

type EvaluateRequest struct {
	Symbol       string     `json:"symbol" validate:"required,symbol"`
	Spot         float64    `json:"spot" validate:"gt=0"`
	SnapshotTime time.Time  `json:"snapshot_time"`
	Rows         []ChainRow `json:"rows"`
	Persist      bool       `json:"persist"`
}

type CalibrateRequest struct {
	Symbol         string              `json:"symbol" validate:"omitempty,symbol"`
	RawProbability float64             `json:"raw_probability" validate:"gte=0,lte=1"`
	MinSamples     int                 `json:"min_samples" default:"30" validate:"gte=1,lte=100000"`
	LookbackDays   int                 `json:"lookback_days" default:"45" validate:"gte=1,lte=365"`
	Samples        []CalibrationSample `json:"samples"`
}

type BacktestRequest struct {
	Symbol      string  `query:"symbol" json:"symbol" validate:"required,symbol"`
	StartDate   string  `query:"start_date" json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate     string  `query:"end_date" json:"end_date" validate:"required,datetime=2006-01-02"`
	SlippagePct float64 `query:"slippage_pct" json:"slippage_pct" default:"0.35" validate:"gte=0,lte=10"`
	TxnCostPct  float64 `query:"txn_cost_pct" json:"txn_cost_pct" default:"0.10" validate:"gte=0,lte=10"`
	StopLossPct float64 `query:"stop_loss_pct" json:"stop_loss_pct" default:"25" validate:"gt=0,lte=100"`
	TargetPct   float64 `query:"target_pct" json:"target_pct" default:"45" validate:"gt=0,lte=1000"`
	TimeStopMin int     `query:"time_stop_min" json:"time_stop_min" default:"30" validate:"gte=1,lte=375"`
}

// Config converts the request into backtest settings.
func (r BacktestRequest) Config() BacktestConfig {
	return BacktestConfig{
		SlippagePct:        r.SlippagePct,
		TxnCostPct:         r.TxnCostPct,
		DefaultStopLossPct: r.StopLossPct,
		DefaultTargetPct:   r.TargetPct,
		DefaultTimeStopMin: r.TimeStopMin,
	}
}

type SymbolRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required,symbol"`
}

type PerformanceRequest struct {
	Symbol       string `query:"symbol" json:"symbol" validate:"required,symbol"`
	LookbackDays int    `query:"lookback_days" json:"lookback_days" default:"20" validate:"gte=1,lte=365"`
}
