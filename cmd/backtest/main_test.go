package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudipta6891/OC-Chain-System-ver-01/internal/domain/models"
	"github.com/sudipta6891/OC-Chain-System-ver-01/pkg/config"
)

func TestBacktestConfigPrefersChangedFlags(t *testing.T) {
	cfg := &config.Config{}
	cfg.Backtest.SlippagePct = 0.5
	cfg.Backtest.TxnCostPct = 0.2
	cfg.Backtest.StopLossPct = 20
	cfg.Backtest.TargetPct = 40
	cfg.Backtest.TimeStopMin = 15

	cmd := newRootCmd()
	require.NoError(t, cmd.Flags().Parse([]string{"--target-pct", "60", "--time-stop-min", "45"}))
	opts := &options{}
	opts.targetPct, _ = cmd.Flags().GetFloat64("target-pct")
	opts.timeStopMin, _ = cmd.Flags().GetInt("time-stop-min")

	bc := backtestConfig(cmd.Flags(), cfg, opts)
	assert.Equal(t, models.BacktestConfig{
		SlippagePct:        0.5,
		TxnCostPct:         0.2,
		DefaultStopLossPct: 20,
		DefaultTargetPct:   60,
		DefaultTimeStopMin: 45,
	}, bc)
}

func TestRequiredFlags(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"--symbol", "NSE:NIFTY50-INDEX"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "start-date")
}

func TestPrintResult(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printResult(&buf, models.BacktestResult{
		Symbol:    "NSE:NIFTY50-INDEX",
		StartDate: "2026-02-01",
		EndDate:   "2026-02-28",
		Trades:    4,
		HitRate:   0.75,
	}))
	out := buf.String()
	assert.Contains(t, out, "NSE:NIFTY50-INDEX")
	assert.Contains(t, out, "2026-02-01 .. 2026-02-28")
	assert.Contains(t, out, "0.7500")
}
