package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/quant/backtest"
)

var portfolioCmd = &cobra.Command{
	Use:   "portfolio [SYMBOL...]",
	Short: "Backtest an equal-weight portfolio",
	Long: `Portfolio splits the initial capital equally across the symbols,
backtests each share, and sums the equity curves. A symbol without data
keeps its share as cash.

Example:
  trader portfolio AAPL MSFT AMZN`,
	RunE: runPortfolio,
}

func init() {
	rootCmd.AddCommand(portfolioCmd)
}

func runPortfolio(cmd *cobra.Command, args []string) error {
	symbols := symbolsOr(args)
	p, err := loadPredictor()
	if err != nil {
		return err
	}
	runner, err := backtest.NewRunner(cfg.BacktestConfig("PORTFOLIO"), p, logger)
	if err != nil {
		return err
	}

	res, err := runner.Portfolio(cmd.Context(), source(), symbols)
	if err != nil {
		return err
	}

	fmt.Printf("Allocation per symbol: %.2f\n\n", res.Allocation)
	for _, sym := range res.Batch.Symbols {
		if err, ok := res.Batch.Errors[sym]; ok {
			fmt.Printf("  %-8s error: %v\n", sym, err)
			continue
		}
		r := res.Batch.Results[sym].Report
		if r.Empty {
			fmt.Printf("  %-8s no data\n", sym)
			continue
		}
		fmt.Printf("  %-8s return %8.2f%%  sharpe %6.2f\n", sym, r.TotalReturnPct, r.SharpeRatio)
	}
	fmt.Println()
	res.Report.Print(os.Stdout)
	return nil
}
