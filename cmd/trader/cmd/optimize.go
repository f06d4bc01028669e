package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/quant/backtest"
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize SYMBOL",
	Short: "Grid search the crossover windows",
	Long: `Optimize backtests every short/long window pair with short < long
and lists them by total return, best first.

Example:
  trader optimize AAPL --short 5,10,20 --long 30,50,100,200 --top 5`,
	Args: cobra.ExactArgs(1),
	RunE: runOptimize,
}

var (
	optShorts []int
	optLongs  []int
	optTop    int
)

func init() {
	rootCmd.AddCommand(optimizeCmd)

	optimizeCmd.Flags().IntSliceVar(&optShorts, "short", backtest.DefaultShortWindows, "short window candidates")
	optimizeCmd.Flags().IntSliceVar(&optLongs, "long", backtest.DefaultLongWindows, "long window candidates")
	optimizeCmd.Flags().IntVar(&optTop, "top", 5, "number of results to show (0 = all)")
}

func runOptimize(cmd *cobra.Command, args []string) error {
	sym := args[0]
	p, err := loadPredictor()
	if err != nil {
		return err
	}
	runner, err := backtest.NewRunner(cfg.BacktestConfig(sym), p, logger)
	if err != nil {
		return err
	}

	s, err := source().FetchBars(cmd.Context(), sym, cfg.Period, cfg.Interval)
	if err != nil {
		return err
	}
	if s.Symbol == "" {
		s.Symbol = sym
	}

	cands, err := runner.Optimize(cmd.Context(), s, optShorts, optLongs)
	if err != nil {
		return err
	}
	if len(cands) == 0 {
		fmt.Printf("%s: not enough data for any window pair\n", sym)
		return nil
	}
	if optTop > 0 && len(cands) > optTop {
		cands = cands[:optTop]
	}

	fmt.Printf("%-6s %-6s %10s %10s %8s %8s %7s\n", "SHORT", "LONG", "RETURN%", "B&H%", "SHARPE", "MAXDD%", "TRADES")
	for _, c := range cands {
		r := c.Report
		fmt.Printf("%-6d %-6d %10.2f %10.2f %8.2f %8.2f %7d\n",
			c.ShortWindow, c.LongWindow, r.TotalReturnPct, r.BuyHoldReturnPct, r.SharpeRatio, r.MaxDrawdownPct, r.TradeCount)
	}
	return nil
}
