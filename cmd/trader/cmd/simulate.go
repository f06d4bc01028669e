package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/quant/backtest"
	"github.com/rustyeddy/quant/internal/id"
	"github.com/rustyeddy/quant/sim"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate SYMBOL",
	Short: "Replay a symbol bar by bar through the share ledger",
	Long: `Simulate executes each signal at the next bar's open against a cash
and share ledger, sizing entries by the model's confidence. Fills and
equity go to the configured journal.

Example:
  trader simulate AAPL --risk 0.5`,
	Args: cobra.ExactArgs(1),
	RunE: runSimulate,
}

var simRisk float64

func init() {
	rootCmd.AddCommand(simulateCmd)

	simulateCmd.Flags().Float64Var(&simRisk, "risk", 0, "fraction of cash per entry (default: backtest.risk_fraction)")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	sym := args[0]
	p, err := loadPredictor()
	if err != nil {
		return err
	}

	bc := cfg.BacktestConfig(sym)
	if simRisk > 0 {
		bc.RiskFraction = simRisk
	}
	runner, err := backtest.NewRunner(bc, p, logger)
	if err != nil {
		return err
	}

	s, err := source().FetchBars(cmd.Context(), sym, bc.Period, bc.Interval)
	if err != nil {
		return err
	}
	if s.Symbol == "" {
		s.Symbol = sym
	}

	j, err := openJournal()
	if err != nil {
		return fmt.Errorf("create journal: %w", err)
	}
	opts := []sim.Option{sim.WithRunID(id.New()), sim.WithLogger(logger)}
	if j != nil {
		defer j.Close()
		opts = append(opts, sim.WithJournal(j))
	}
	ledger := sim.NewLedger(bc.InitialCapital, opts...)

	res, err := runner.Simulate(cmd.Context(), s, ledger)
	if err != nil {
		return err
	}

	fmt.Printf("Simulated %s (run %s)\n", sym, ledger.RunID())
	for _, f := range res.Fills {
		fmt.Printf("  %s %-4s %6d @ %.4f\n", f.Time.Format("2006-01-02"), f.Side, f.Quantity, f.Price)
	}
	fmt.Println()
	res.Report.Print(os.Stdout)
	fmt.Println()
	res.Final.Print(os.Stdout)
	return nil
}
