package backtest

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/rustyeddy/quant/internal/id"
	"github.com/rustyeddy/quant/journal"
)

// Report summarizes one backtest.
type Report struct {
	Symbol           string    `json:"symbol"`
	Period           string    `json:"period"`
	Interval         string    `json:"interval,omitempty"`
	Start            time.Time `json:"start"`
	End              time.Time `json:"end"`
	InitialCapital   float64   `json:"initial_capital"`
	FinalEquity      float64   `json:"final_equity"`
	TotalReturnPct   float64   `json:"total_return_pct"`
	WinRatePct       float64   `json:"win_rate_pct"`
	SharpeRatio      float64   `json:"sharpe_ratio"`
	MaxDrawdownPct   float64   `json:"max_drawdown_pct"`
	TradeCount       int       `json:"trade_count"`
	BuyHoldReturnPct float64   `json:"buy_hold_return_pct"`
	Empty            bool      `json:"empty,omitempty"`
}

func (r Report) Print(w io.Writer) {
	fmt.Fprintln(w, "===== BACKTEST RESULTS =====")
	fmt.Fprintf(w, "Symbol: %s\n", r.Symbol)
	fmt.Fprintf(w, "Period: %s | Interval: %s\n", r.Period, r.Interval)
	if r.Empty {
		fmt.Fprintln(w, "Not enough data for a result.")
		return
	}
	fmt.Fprintf(w, "Range: %s -> %s\n", r.Start.Format("2006-01-02"), r.End.Format("2006-01-02"))
	fmt.Fprintf(w, "Initial capital: %.2f\n\n", r.InitialCapital)
	fmt.Fprintf(w, "Final equity:        %.2f\n", r.FinalEquity)
	fmt.Fprintf(w, "Total return:        %.2f%%\n", r.TotalReturnPct)
	fmt.Fprintf(w, "Buy & hold return:   %.2f%%\n", r.BuyHoldReturnPct)
	fmt.Fprintf(w, "Max drawdown:        %.2f%%\n", r.MaxDrawdownPct)
	fmt.Fprintf(w, "Sharpe ratio:        %.2f\n", r.SharpeRatio)
	fmt.Fprintf(w, "Win rate:            %.2f%%\n", r.WinRatePct)
	fmt.Fprintf(w, "Trades:              %d\n", r.TradeCount)
}

// Run converts the report into a journal row with a fresh run id.
func (r Report) Run(cfg Config, strategy string) (journal.BacktestRun, error) {
	raw, err := json.Marshal(cfg.Signal)
	if err != nil {
		return journal.BacktestRun{}, fmt.Errorf("encode signal config: %w", err)
	}
	return journal.BacktestRun{
		RunID:            id.New(),
		Created:          time.Now(),
		Symbol:           r.Symbol,
		Period:           r.Period,
		Interval:         r.Interval,
		Strategy:         strategy,
		Config:           raw,
		RiskFraction:     cfg.RiskFraction,
		Start:            r.Start,
		End:              r.End,
		InitialCapital:   r.InitialCapital,
		FinalEquity:      r.FinalEquity,
		TotalReturnPct:   r.TotalReturnPct,
		BuyHoldReturnPct: r.BuyHoldReturnPct,
		WinRatePct:       r.WinRatePct,
		SharpeRatio:      r.SharpeRatio,
		MaxDrawdownPct:   r.MaxDrawdownPct,
		Trades:           r.TradeCount,
	}, nil
}
