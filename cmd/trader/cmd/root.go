package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rustyeddy/quant/config"
	"github.com/rustyeddy/quant/internal/logging"
	"github.com/rustyeddy/quant/journal"
	"github.com/rustyeddy/quant/market"
	"github.com/rustyeddy/quant/predictor"
)

var rootCmd = &cobra.Command{
	Use:   "trader",
	Short: "Hybrid SMA crossover + model strategy engine",
	Long: `Trader backtests and paper-trades a long/flat equity strategy that
combines a moving-average crossover with a model's probability that the
next bar closes higher.

It provides tools for:
  - Backtesting one or many symbols against CSV bar files
  - Bar-by-bar simulation through a share ledger
  - Grid search over crossover windows
  - Equal-weight portfolio backtests
  - Recommendations and a polling paper-trading loop

Settings come from a YAML/JSON config file, a .env file and QUANT_*
environment variables, in that order of increasing precedence.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

var (
	cfgFile  string
	envFile  string
	logLevel string
	dataDir  string

	cfg    *config.Config
	logger *zap.Logger
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer func() {
		if logger != nil {
			_ = logger.Sync()
		}
	}()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (YAML or JSON); defaults are used when empty")
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "env file with QUANT_* overrides")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", "", "directory of <SYMBOL>.csv bar files")
}

func setup(cmd *cobra.Command, args []string) error {
	if err := config.LoadDotEnv(envFile); err != nil {
		return err
	}
	c, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if logLevel != "" {
		c.Log.Level = logLevel
	}
	if dataDir != "" {
		c.DataDir = dataDir
	}

	l, err := logging.New(c.Log.Level, c.Log.Dev)
	if err != nil {
		return err
	}
	cfg, logger = c, l
	return nil
}

func source() market.Source {
	return market.NewCSVSource(cfg.DataDir)
}

// loadPredictor returns nil, meaning trend-only, when no model is configured.
func loadPredictor() (predictor.Predictor, error) {
	if cfg.ModelPath == "" {
		logger.Info("no model configured, running trend-only")
		return nil, nil
	}
	p, err := predictor.LoadFile(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	logger.Info("model loaded", zap.String("path", cfg.ModelPath), zap.Strings("features", p.FeatureNames()))
	return p, nil
}

// openJournal returns nil when journaling is off.
func openJournal() (journal.Journal, error) {
	switch cfg.Journal.Type {
	case "csv":
		return journal.NewCSV(cfg.Journal.TradesFile, cfg.Journal.EquityFile)
	case "sqlite":
		return journal.NewSQLite(cfg.Journal.DBPath)
	default:
		return nil, nil
	}
}

func symbolsOr(args []string) []string {
	if len(args) > 0 {
		return args
	}
	return cfg.Symbols
}
