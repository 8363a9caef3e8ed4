package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sudipta6891/OC-Chain-System-ver-01/internal/di"
	"github.com/sudipta6891/OC-Chain-System-ver-01/internal/domain/models"
	"github.com/sudipta6891/OC-Chain-System-ver-01/pkg/config"
)

type options struct {
	configPath  string
	symbol      string
	startDate   string
	endDate     string
	slippagePct float64
	txnCostPct  float64
	stopLossPct float64
	targetPct   float64
	timeStopMin int
	asJSON      bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	defaults := models.DefaultBacktestConfig()
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Replay stored signals against recorded option prices",
		Long: `Replay every stored signal of a symbol dated within [start-date, end-date]
against the option LTP path that followed it, applying slippage, costs,
stop loss, target and a time stop.

Examples:
  backtest --symbol NSE:NIFTY50-INDEX --start-date 2026-02-01 --end-date 2026-02-28
  backtest --symbol NSE:NIFTYBANK-INDEX --start-date 2026-02-01 --end-date 2026-02-28 --as-json`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.configPath, "config", "config/config.yaml", "config file path")
	f.StringVar(&opts.symbol, "symbol", "", "symbol, e.g. NSE:NIFTY50-INDEX")
	f.StringVar(&opts.startDate, "start-date", "", "first signal date (YYYY-MM-DD)")
	f.StringVar(&opts.endDate, "end-date", "", "last signal date (YYYY-MM-DD)")
	f.Float64Var(&opts.slippagePct, "slippage-pct", defaults.SlippagePct, "round-trip slippage in percent")
	f.Float64Var(&opts.txnCostPct, "txn-cost-pct", defaults.TxnCostPct, "transaction cost in percent")
	f.Float64Var(&opts.stopLossPct, "stop-loss-pct", defaults.DefaultStopLossPct, "stop loss for signals without one")
	f.Float64Var(&opts.targetPct, "target-pct", defaults.DefaultTargetPct, "target for signals without one")
	f.IntVar(&opts.timeStopMin, "time-stop-min", defaults.DefaultTimeStopMin, "time stop in minutes for signals without one")
	f.BoolVar(&opts.asJSON, "as-json", false, "print the result as JSON")
	_ = cmd.MarkFlagRequired("symbol")
	_ = cmd.MarkFlagRequired("start-date")
	_ = cmd.MarkFlagRequired("end-date")
	return cmd
}

func run(cmd *cobra.Command, opts *options) error {
	cfg, err := config.LoadWithEnv(opts.configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	// the backtester only reads
	cfg.Postgres.InitSchema = false

	l, err := di.ProvideLogger(cfg)
	if err != nil {
		return err
	}
	pg, closePG, err := di.ProvidePostgresClient(cfg, l)
	if err != nil {
		return err
	}
	defer closePG()
	ch, closeCH, err := di.ProvideClickHouseClient(cfg, l)
	if err != nil {
		return err
	}
	defer closeCH()

	store := di.ProvidePGStore(pg, cfg, l)
	bt := di.ProvideBacktester(store, di.ProvideSnapshotStore(store, ch, cfg, l), l)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, trades, err := bt.Run(ctx, opts.symbol, opts.startDate, opts.endDate, backtestConfig(cmd.Flags(), cfg, opts))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"result": res, "trades": trades})
	}
	return printResult(out, res)
}

// backtestConfig takes each parameter from its flag when set on the command
// line and from the config file otherwise.
func backtestConfig(flags *pflag.FlagSet, cfg *config.Config, opts *options) models.BacktestConfig {
	bc := models.BacktestConfig{
		SlippagePct:        cfg.Backtest.SlippagePct,
		TxnCostPct:         cfg.Backtest.TxnCostPct,
		DefaultStopLossPct: cfg.Backtest.StopLossPct,
		DefaultTargetPct:   cfg.Backtest.TargetPct,
		DefaultTimeStopMin: cfg.Backtest.TimeStopMin,
	}
	if flags.Changed("slippage-pct") {
		bc.SlippagePct = opts.slippagePct
	}
	if flags.Changed("txn-cost-pct") {
		bc.TxnCostPct = opts.txnCostPct
	}
	if flags.Changed("stop-loss-pct") {
		bc.DefaultStopLossPct = opts.stopLossPct
	}
	if flags.Changed("target-pct") {
		bc.DefaultTargetPct = opts.targetPct
	}
	if flags.Changed("time-stop-min") {
		bc.DefaultTimeStopMin = opts.timeStopMin
	}
	return bc
}

func printResult(w io.Writer, res models.BacktestResult) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "symbol\t%s\n", res.Symbol)
	fmt.Fprintf(tw, "range\t%s .. %s\n", res.StartDate, res.EndDate)
	fmt.Fprintf(tw, "trades\t%d\n", res.Trades)
	fmt.Fprintf(tw, "hit rate\t%.4f\n", res.HitRate)
	fmt.Fprintf(tw, "avg net return %%\t%.4f\n", res.AvgNetReturnPct)
	fmt.Fprintf(tw, "expectancy\t%.4f\n", res.Expectancy)
	fmt.Fprintf(tw, "max drawdown %%\t%.4f\n", res.MaxDrawdownPct)
	return tw.Flush()
}
