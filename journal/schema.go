package journal

const Schema = `
CREATE TABLE IF NOT EXISTS trades (
	trade_id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL DEFAULT '',
	symbol TEXT NOT NULL,
	side TEXT NOT NULL,
	quantity INTEGER NOT NULL,
	price REAL NOT NULL,
	avg_cost REAL NOT NULL,
	time DATETIME NOT NULL,
	realized_pl REAL NOT NULL,
	reason TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_run ON trades(run_id);
CREATE INDEX IF NOT EXISTS idx_trades_time ON trades(time);

CREATE TABLE IF NOT EXISTS equity (
	run_id TEXT NOT NULL DEFAULT '',
	time DATETIME NOT NULL,
	cash REAL NOT NULL,
	holdings REAL NOT NULL,
	equity REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_equity_time ON equity(time);
CREATE INDEX IF NOT EXISTS idx_equity_run ON equity(run_id);

CREATE TABLE IF NOT EXISTS backtest_runs (
	run_id TEXT PRIMARY KEY,
	created DATETIME NOT NULL,
	symbol TEXT NOT NULL,
	period TEXT NOT NULL,
	interval TEXT NOT NULL,
	strategy TEXT NOT NULL,
	config BLOB,
	risk_fraction REAL NOT NULL,
	start_time DATETIME NOT NULL,
	end_time DATETIME NOT NULL,
	initial_capital REAL NOT NULL,
	final_equity REAL NOT NULL,
	total_return_pct REAL NOT NULL,
	buy_hold_return_pct REAL NOT NULL,
	win_rate_pct REAL NOT NULL,
	sharpe_ratio REAL NOT NULL,
	max_drawdown_pct REAL NOT NULL,
	trades INTEGER NOT NULL,
	notes TEXT NOT NULL DEFAULT ''
);
`
