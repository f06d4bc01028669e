package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned by lookups that match no row.
var ErrNotFound = errors.New("not found")

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create journal schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordTrade(t TradeRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO trades
		(trade_id, run_id, symbol, side, quantity, price, avg_cost, time, realized_pl, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.TradeID, t.RunID, t.Symbol, t.Side, t.Quantity, t.Price,
		t.AvgCost, t.Time.UTC(), t.RealizedPL, t.Reason,
	)
	return err
}

func (j *SQLite) RecordEquity(e EquitySnapshot) error {
	_, err := j.db.Exec(`
		INSERT INTO equity
		(run_id, time, cash, holdings, equity)
		VALUES (?, ?, ?, ?, ?)`,
		e.RunID, e.Time.UTC(), e.Cash, e.Holdings, e.Equity,
	)
	return err
}

func (j *SQLite) RecordBacktest(ctx context.Context, r BacktestRun) error {
	if r.RunID == "" {
		return errors.New("record backtest: empty run id")
	}
	created := r.Created
	if created.IsZero() {
		created = time.Now()
	}
	_, err := j.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO backtest_runs
		(run_id, created, symbol, period, interval, strategy, config, risk_fraction,
		 start_time, end_time, initial_capital, final_equity, total_return_pct,
		 buy_hold_return_pct, win_rate_pct, sharpe_ratio, max_drawdown_pct, trades, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, created.UTC(), r.Symbol, r.Period, r.Interval, r.Strategy, r.Config, r.RiskFraction,
		r.Start.UTC(), r.End.UTC(), r.InitialCapital, r.FinalEquity, r.TotalReturnPct,
		r.BuyHoldReturnPct, r.WinRatePct, r.SharpeRatio, r.MaxDrawdownPct, r.Trades,
		strings.Join(r.Notes, "\n"),
	)
	if err != nil {
		return fmt.Errorf("record backtest %s: %w", r.RunID, err)
	}
	return nil
}

func (j *SQLite) GetBacktestRun(ctx context.Context, runID string) (BacktestRun, error) {
	var (
		r     BacktestRun
		notes string
	)
	row := j.db.QueryRowContext(ctx, `
		SELECT run_id, created, symbol, period, interval, strategy, config, risk_fraction,
		       start_time, end_time, initial_capital, final_equity, total_return_pct,
		       buy_hold_return_pct, win_rate_pct, sharpe_ratio, max_drawdown_pct, trades, notes
		FROM backtest_runs
		WHERE run_id = ?`, runID)

	err := row.Scan(
		&r.RunID, &r.Created, &r.Symbol, &r.Period, &r.Interval, &r.Strategy, &r.Config, &r.RiskFraction,
		&r.Start, &r.End, &r.InitialCapital, &r.FinalEquity, &r.TotalReturnPct,
		&r.BuyHoldReturnPct, &r.WinRatePct, &r.SharpeRatio, &r.MaxDrawdownPct, &r.Trades, &notes,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return BacktestRun{}, fmt.Errorf("backtest run %q: %w", runID, ErrNotFound)
		}
		return BacktestRun{}, err
	}
	if notes != "" {
		r.Notes = strings.Split(notes, "\n")
	}
	return r, nil
}

func (j *SQLite) ListTradesByRunID(ctx context.Context, runID string) ([]TradeRecord, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT `+tradeColumns+`
		FROM trades
		WHERE run_id = ?
		ORDER BY time ASC, rowid ASC`, runID)
	if err != nil {
		return nil, err
	}
	return scanTrades(rows)
}

func (j *SQLite) ListEquityByRunID(ctx context.Context, runID string) ([]EquitySnapshot, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT run_id, time, cash, holdings, equity
		FROM equity
		WHERE run_id = ?
		ORDER BY time ASC, rowid ASC`, runID)
	if err != nil {
		return nil, err
	}
	return scanEquity(rows)
}

// ExportBacktestOrg loads a run with its trades and returns the org text.
func (j *SQLite) ExportBacktestOrg(ctx context.Context, runID string) (string, error) {
	r, err := j.GetBacktestRun(ctx, runID)
	if err != nil {
		return "", err
	}
	trades, err := j.ListTradesByRunID(ctx, runID)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	if err := r.RenderOrg(&b); err != nil {
		return "", err
	}
	if len(trades) > 0 {
		b.WriteString("\n** Trades\n")
		b.WriteString(FormatTradesOrg(trades))
	}
	return b.String(), nil
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
