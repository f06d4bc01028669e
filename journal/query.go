package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const tradeColumns = `trade_id, run_id, symbol, side, quantity, price, avg_cost, time, realized_pl, reason`

// GetTrade returns a single trade record by ID.
func (j *SQLite) GetTrade(tradeID string) (TradeRecord, error) {
	var rec TradeRecord

	row := j.db.QueryRow(`
		SELECT `+tradeColumns+`
		FROM trades
		WHERE trade_id = ?`, tradeID)

	err := row.Scan(
		&rec.TradeID,
		&rec.RunID,
		&rec.Symbol,
		&rec.Side,
		&rec.Quantity,
		&rec.Price,
		&rec.AvgCost,
		&rec.Time,
		&rec.RealizedPL,
		&rec.Reason,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return TradeRecord{}, fmt.Errorf("trade %q: %w", tradeID, ErrNotFound)
		}
		return TradeRecord{}, err
	}
	return rec, nil
}

// ListTradesBetween returns trades whose time is within [start, end).
func (j *SQLite) ListTradesBetween(start, end time.Time) ([]TradeRecord, error) {
	rows, err := j.db.Query(`
		SELECT `+tradeColumns+`
		FROM trades
		WHERE time >= ? AND time < ?
		ORDER BY time ASC, rowid ASC`, start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}
	return scanTrades(rows)
}

// ListEquityBetween returns snapshots within [start, end).
func (j *SQLite) ListEquityBetween(start, end time.Time) ([]EquitySnapshot, error) {
	rows, err := j.db.Query(`
		SELECT run_id, time, cash, holdings, equity
		FROM equity
		WHERE time >= ? AND time < ?
		ORDER BY time ASC, rowid ASC`, start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}
	return scanEquity(rows)
}

// RealizedPL sums realized profit and loss over a run's sells.
func (j *SQLite) RealizedPL(runID string) (gross, loss float64, err error) {
	row := j.db.QueryRow(`
		SELECT
			COALESCE(SUM(CASE WHEN realized_pl > 0 THEN realized_pl ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN realized_pl < 0 THEN -realized_pl ELSE 0 END), 0)
		FROM trades
		WHERE run_id = ? AND side = 'SELL'`, runID)
	err = row.Scan(&gross, &loss)
	return gross, loss, err
}

func scanTrades(rows *sql.Rows) ([]TradeRecord, error) {
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		var rec TradeRecord
		if err := rows.Scan(
			&rec.TradeID,
			&rec.RunID,
			&rec.Symbol,
			&rec.Side,
			&rec.Quantity,
			&rec.Price,
			&rec.AvgCost,
			&rec.Time,
			&rec.RealizedPL,
			&rec.Reason,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanEquity(rows *sql.Rows) ([]EquitySnapshot, error) {
	defer rows.Close()

	var out []EquitySnapshot
	for rows.Next() {
		var e EquitySnapshot
		if err := rows.Scan(&e.RunID, &e.Time, &e.Cash, &e.Holdings, &e.Equity); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
