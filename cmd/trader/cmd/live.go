package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rustyeddy/quant/internal/id"
	"github.com/rustyeddy/quant/session"
	"github.com/rustyeddy/quant/sim"
)

var liveCmd = &cobra.Command{
	Use:   "live [SYMBOL...]",
	Short: "Paper-trade the strategy on a polling loop",
	Long: `Live polls the data directory every interval, evaluates every symbol
and applies BUY/SELL decisions to a simulated ledger. It stops on Ctrl-C
or after --cycles cycles.

Example:
  trader live AAPL MSFT --every 5m`,
	RunE: runLive,
}

var (
	liveEvery  time.Duration
	liveCycles int
)

func init() {
	rootCmd.AddCommand(liveCmd)

	liveCmd.Flags().DurationVar(&liveEvery, "every", 0, "polling interval (default: live.poll_interval)")
	liveCmd.Flags().IntVar(&liveCycles, "cycles", 0, "stop after this many cycles (0 = run until interrupted)")
}

func runLive(cmd *cobra.Command, args []string) error {
	p, err := loadPredictor()
	if err != nil {
		return err
	}
	sc := cfg.SessionConfig()
	sc.Symbols = symbolsOr(args)

	every := liveEvery
	if every <= 0 {
		if every, err = cfg.Live.Poll(); err != nil {
			return err
		}
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
	ledger := sim.NewLedger(cfg.Live.Capital, opts...)

	s, err := session.New(source(), p, ledger, sc, logger)
	if err != nil {
		return err
	}
	logger.Info("live session started",
		zap.String("run_id", ledger.RunID()),
		zap.Strings("symbols", s.Symbols()),
		zap.Duration("every", every))

	return loop(cmd.Context(), s, every, liveCycles)
}

func loop(ctx context.Context, s *session.Session, every time.Duration, cycles int) error {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for n := 1; ; n++ {
		cyc, err := s.Tick(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		cyc.Print(os.Stdout)
		fmt.Println()

		if cycles > 0 && n >= cycles {
			return nil
		}
		select {
		case <-ctx.Done():
			logger.Info("live session stopped")
			return nil
		case <-ticker.C:
		}
	}
}
