package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rustyeddy/quant/backtest"
	"github.com/rustyeddy/quant/journal"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest [SYMBOL...]",
	Short: "Backtest the hybrid strategy on one or more symbols",
	Long: `Backtest replays each symbol's bars through the crossover and model
signal, holding long from the bar after a BUY until the bar after a SELL.

Symbols default to the config's symbol list. Results can be saved to the
SQLite journal and written as org-mode entries.

Example:
  trader backtest AAPL MSFT --data ./data --db ./runs.sqlite --org ./notes`,
	RunE: runBacktest,
}

var (
	btDBPath   string
	btOrgDir   string
	btStrategy string
)

func init() {
	rootCmd.AddCommand(backtestCmd)

	backtestCmd.Flags().StringVarP(&btDBPath, "db", "d", "", "SQLite journal to record runs in (default: journal.db_path when type is sqlite)")
	backtestCmd.Flags().StringVar(&btOrgDir, "org", "", "directory to write one org file per run (default: journal.org_dir)")
	backtestCmd.Flags().StringVarP(&btStrategy, "strategy", "s", "sma-hybrid", "strategy label stored with each run")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	symbols := symbolsOr(args)
	p, err := loadPredictor()
	if err != nil {
		return err
	}

	runner, err := backtest.NewRunner(cfg.BacktestConfig(symbols[0]), p, logger)
	if err != nil {
		return err
	}

	out, err := runner.Batch(cmd.Context(), source(), symbols)
	if err != nil {
		return err
	}

	dbPath := btDBPath
	if dbPath == "" && cfg.Journal.Type == "sqlite" {
		dbPath = cfg.Journal.DBPath
	}
	orgDir := btOrgDir
	if orgDir == "" {
		orgDir = cfg.Journal.OrgDir
	}

	var db *journal.SQLite
	if dbPath != "" {
		if db, err = journal.NewSQLite(dbPath); err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer db.Close()
	}
	if orgDir != "" {
		if err := os.MkdirAll(orgDir, 0755); err != nil {
			return err
		}
	}

	for _, sym := range out.Symbols {
		if err, ok := out.Errors[sym]; ok {
			fmt.Printf("%s: %v\n\n", sym, err)
			continue
		}
		res := out.Results[sym]
		res.Report.Print(os.Stdout)
		fmt.Println()
		if res.Empty {
			continue
		}

		run, err := res.Report.Run(cfg.BacktestConfig(sym), btStrategy)
		if err != nil {
			return err
		}
		if orgDir != "" {
			run.OrgPath = filepath.Join(orgDir, fmt.Sprintf("%s-%s.org", sym, run.RunID))
			if err := run.WriteBacktestOrg(); err != nil {
				return err
			}
		}
		if db != nil {
			if err := db.RecordBacktest(cmd.Context(), run); err != nil {
				return fmt.Errorf("record run: %w", err)
			}
			logger.Info("run recorded", zap.String("run_id", run.RunID), zap.String("symbol", sym))
		}
	}
	return nil
}
