package journal

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"text/template"
	"time"
)

// BacktestRun mirrors the backtest_runs table.
type BacktestRun struct {
	RunID    string
	Created  time.Time
	Symbol   string
	Period   string
	Interval string
	Strategy string
	Config   []byte // signal config as JSON

	RiskFraction float64

	Start time.Time
	End   time.Time

	InitialCapital   float64
	FinalEquity      float64
	TotalReturnPct   float64
	BuyHoldReturnPct float64
	WinRatePct       float64
	SharpeRatio      float64
	MaxDrawdownPct   float64
	Trades           int

	OrgPath     string
	Notes       []string
	NextActions []string
}

// NetPL is the absolute profit over the run.
func (v *BacktestRun) NetPL() float64 {
	return v.FinalEquity - v.InitialCapital
}

var backtestOrgFuncs = template.FuncMap{
	"mul100": func(x float64) float64 { return x * 100.0 },
	"orTime": func(t time.Time) time.Time {
		if t.IsZero() {
			return time.Now()
		}
		return t
	},
}

var backtestOrg = template.Must(template.New("backtest").Funcs(backtestOrgFuncs).Parse(BacktestOrgTemplate))

// RenderOrg writes the run as an org-mode entry.
func (v *BacktestRun) RenderOrg(w io.Writer) error {
	if err := backtestOrg.Execute(w, v); err != nil {
		return fmt.Errorf("render backtest org: %w", err)
	}
	return nil
}

// WriteBacktestOrg renders the run to v.OrgPath.
func (v *BacktestRun) WriteBacktestOrg() error {
	if v.OrgPath == "" {
		return fmt.Errorf("write backtest org: no path for run %q", v.RunID)
	}
	buf := new(bytes.Buffer)
	if err := v.RenderOrg(buf); err != nil {
		return err
	}
	return os.WriteFile(v.OrgPath, buf.Bytes(), 0644)
}

const BacktestOrgTemplate = `
* BACKTEST: {{if .Strategy}}{{.Strategy}}{{else}}sma-hybrid{{end}} {{.Symbol}} {{if .Period}}{{.Period}}{{else}}(period?){{end}}
:PROPERTIES:
:RUN_ID:      {{if .RunID}}{{.RunID}}{{else}}(run-id?){{end}}
:STRATEGY:    {{if .Strategy}}{{.Strategy}}{{else}}sma-hybrid{{end}}
:SYMBOL:      {{.Symbol}}
:PERIOD:      {{if .Period}}{{.Period}}{{else}}(period?){{end}}
:INTERVAL:    {{if .Interval}}{{.Interval}}{{else}}(interval?){{end}}
:START_DATE:  {{.Start.Format "2006-01-02"}}
:END_DATE:    {{.End.Format "2006-01-02"}}
:START_BAL:   {{printf "%.2f" .InitialCapital}}
:END_BAL:     {{printf "%.2f" .FinalEquity}}
:NET_PL:      {{printf "%.2f" .NetPL}}
:RETURN_PCT:  {{printf "%.2f" .TotalReturnPct}}
:BH_PCT:      {{printf "%.2f" .BuyHoldReturnPct}}
:MAX_DD_PCT:  {{printf "%.2f" .MaxDrawdownPct}}
:SHARPE:      {{printf "%.2f" .SharpeRatio}}
:TRADES:      {{.Trades}}
:WIN_RATE:    {{printf "%.2f" .WinRatePct}}
:CREATED:     [{{(orTime .Created).Format "2006-01-02 Mon 15:04"}}]
:END:

** Strategy Parameters
| Parameter        | Value |
|------------------+-------|
| Config           | {{printf "%s" .Config}} |
| Risk per Trade % | {{printf "%.2f" (mul100 .RiskFraction)}} |

** Performance Summary
- Net P/L:          *{{printf "%.2f" .NetPL}}*
- Return:           *{{printf "%.2f" .TotalReturnPct}}%*
- Buy & Hold:       *{{printf "%.2f" .BuyHoldReturnPct}}%*
- Max Drawdown:     *{{printf "%.2f" .MaxDrawdownPct}}%*
- Sharpe:           *{{printf "%.2f" .SharpeRatio}}*
- Win Rate:         *{{printf "%.2f" .WinRatePct}}%*

{{- if .Notes }}
** Observations
{{- range .Notes }}
- {{.}}
{{- end }}
{{- end }}

{{- if .NextActions }}
** Notes / Next Actions
{{- range .NextActions }}
- [ ] {{.}}
{{- end }}
{{- end }}
`
