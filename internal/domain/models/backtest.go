package models

import "time"

const (
	ExitStopLoss = "STOP_LOSS"
	ExitTarget   = "TARGET"
	ExitTimeStop = "TIME_STOP"

	TradeDone = "done"
	TradeSkip = "skip"
)

type BacktestConfig struct {
	SlippagePct        float64 `json:"slippage_pct"`
	TxnCostPct         float64 `json:"txn_cost_pct"`
	DefaultStopLossPct float64 `json:"default_stop_loss_pct"`
	DefaultTargetPct   float64 `json:"default_target_pct"`
	DefaultTimeStopMin int     `json:"default_time_stop_min"`
}

// DefaultBacktestConfig mirrors the risk defaults stamped on live signals.
func DefaultBacktestConfig() BacktestConfig {
	return BacktestConfig{
		SlippagePct:        0.35,
		TxnCostPct:         0.10,
		DefaultStopLossPct: 25,
		DefaultTargetPct:   45,
		DefaultTimeStopMin: 30,
	}
}

// LTPPoint is one observation of an option's last traded price.
type LTPPoint struct {
	Time time.Time `json:"time" db:"snapshot_time"`
	LTP  float64   `json:"ltp" db:"ltp"`
}

type BacktestTrade struct {
	SignalID       int64   `json:"signal_id"`
	Status         string  `json:"status"`
	ExitReason     string  `json:"exit_reason,omitempty"`
	GrossReturnPct float64 `json:"gross_return_pct"`
	NetReturnPct   float64 `json:"net_return_pct"`
}

type BacktestResult struct {
	Symbol          string  `json:"symbol"`
	StartDate       string  `json:"start_date"`
	EndDate         string  `json:"end_date"`
	Trades          int     `json:"trades"`
	HitRate         float64 `json:"hit_rate"`
	AvgNetReturnPct float64 `json:"avg_net_return_pct"`
	Expectancy      float64 `json:"expectancy"`
	MaxDrawdownPct  float64 `json:"max_drawdown_pct"`
}
