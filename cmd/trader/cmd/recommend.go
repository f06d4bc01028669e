package cmd

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/quant/session"
	"github.com/rustyeddy/quant/sim"
)

var recommendCmd = &cobra.Command{
	Use:   "recommend [SYMBOL...]",
	Short: "Print today's action and suggested size per symbol",
	Long: `Recommend evaluates the latest bar of each symbol and suggests a share
count for BUYs: capital × live.recommend_risk × probability / price.

Example:
  trader recommend --capital 25000 --json`,
	RunE: runRecommend,
}

var (
	recCapital float64
	recJSON    bool
)

func init() {
	rootCmd.AddCommand(recommendCmd)

	recommendCmd.Flags().Float64Var(&recCapital, "capital", 0, "capital to size against (default: live.capital)")
	recommendCmd.Flags().BoolVar(&recJSON, "json", false, "print JSON")
}

func runRecommend(cmd *cobra.Command, args []string) error {
	p, err := loadPredictor()
	if err != nil {
		return err
	}
	sc := cfg.SessionConfig()
	sc.Symbols = symbolsOr(args)

	capital := recCapital
	if capital <= 0 {
		capital = cfg.Live.Capital
	}

	s, err := session.New(source(), p, sim.NewLedger(capital), sc, logger)
	if err != nil {
		return err
	}
	recs, err := s.Recommend(cmd.Context(), capital)
	if err != nil {
		return err
	}

	if recJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(recs)
	}
	recs.Print(os.Stdout)
	return nil
}
