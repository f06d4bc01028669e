package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := Default()
	assert.NotNil(t, cfg)
	assert.Equal(t, []string{"AAPL", "MSFT", "AMZN"}, cfg.Symbols)
	assert.Equal(t, 20, cfg.Signal.ShortWindow)
	assert.Equal(t, 50, cfg.Signal.LongWindow)
	assert.Equal(t, 10000.0, cfg.Backtest.InitialCapital)
	assert.Equal(t, 0.2, cfg.Live.Policy.AllocationFraction)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mod    func(*Config)
		errMsg string
	}{
		{"valid config", func(*Config) {}, ""},
		{"no symbols", func(c *Config) { c.Symbols = nil }, "symbols is required"},
		{"no data dir", func(c *Config) { c.DataDir = "" }, "data_dir is required"},
		{"negative capital", func(c *Config) { c.Backtest.InitialCapital = -1 }, "initial_capital must be positive"},
		{"windows", func(c *Config) { c.Signal.LongWindow = c.Signal.ShortWindow }, "backtest"},
		{"allocation", func(c *Config) { c.Live.Policy.AllocationFraction = 2 }, "allocation_fraction"},
		{"live capital", func(c *Config) { c.Live.Capital = 0 }, "live.capital must be positive"},
		{"poll interval", func(c *Config) { c.Live.PollInterval = "soon" }, "live.poll_interval"},
		{"log level", func(c *Config) { c.Log.Level = "chatty" }, "unknown log level"},
		{"journal type", func(c *Config) { c.Journal.Type = "mongo" }, "journal.type"},
		{"csv files", func(c *Config) { c.Journal.Type = "csv" }, "trades_file and equity_file"},
		{"sqlite path", func(c *Config) { c.Journal.Type = "sqlite" }, "db_path required"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := Default()
			tt.mod(cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	t.Parallel()
	tmpDir := t.TempDir()

	tests := []struct {
		name string
		ext  string
	}{
		{"json format", ".json"},
		{"yaml format", ".yaml"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Symbols = []string{"SPY"}
			cfg.Signal.ShortWindow = 10
			cfg.Journal = JournalConfig{Type: "sqlite", DBPath: "runs.db"}
			path := filepath.Join(tmpDir, "test"+tt.ext)

			require.NoError(t, cfg.SaveToFile(path))
			_, err := os.Stat(path)
			require.NoError(t, err)

			loaded, err := LoadFromFile(path)
			require.NoError(t, err)
			assert.Equal(t, cfg, loaded)
		})
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "partial.yaml")
	require.NoError(t, os.WriteFile(path, []byte("symbols: [QQQ]\nsignal:\n  short_window: 5\n  long_window: 30\n  buy_threshold: 0.6\n  sell_threshold: 0.4\n"), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"QQQ"}, cfg.Symbols)
	assert.Equal(t, 5, cfg.Signal.ShortWindow)
	assert.Equal(t, 0.6, cfg.Signal.BuyThreshold)
	assert.Equal(t, Default().Backtest, cfg.Backtest)
	assert.Equal(t, "./data", cfg.DataDir)
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	_, err := LoadFromFile(filepath.Join(dir, "missing.yaml"))
	assert.ErrorContains(t, err, "read config file")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("symbols: [\n"), 0644))
	_, err = LoadFromFile(bad)
	assert.ErrorContains(t, err, "parse config")

	invalid := filepath.Join(dir, "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("symbols: []\n"), 0644))
	_, err = LoadFromFile(invalid)
	assert.ErrorContains(t, err, "invalid config")
}

func TestApplyEnv(t *testing.T) {
	t.Parallel()

	cfg := Default()
	err := cfg.ApplyEnv(MapLookup(map[string]string{
		"QUANT_SYMBOLS":       "spy, qqq ,",
		"QUANT_DATA_DIR":      "/bars",
		"QUANT_MODEL_PATH":    "model.json",
		"QUANT_CAPITAL":       "2500",
		"QUANT_RISK_FRACTION": "0.5",
		"QUANT_LOG_LEVEL":     "debug",
		"QUANT_LOG_DEV":       "true",
		"QUANT_PERIOD":        "",
	}))
	require.NoError(t, err)

	assert.Equal(t, []string{"SPY", "QQQ"}, cfg.Symbols)
	assert.Equal(t, "/bars", cfg.DataDir)
	assert.Equal(t, "model.json", cfg.ModelPath)
	assert.Equal(t, 2500.0, cfg.Backtest.InitialCapital)
	assert.Equal(t, 0.5, cfg.Live.Policy.RiskFraction)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.Dev)
	assert.Equal(t, Default().Period, cfg.Period)

	err = Default().ApplyEnv(MapLookup(map[string]string{"QUANT_CAPITAL": "lots"}))
	assert.ErrorContains(t, err, "QUANT_CAPITAL")
}

func TestReadEnvFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("# local overrides\nQUANT_SYMBOLS=AAPL,TSLA\nQUANT_POLL_INTERVAL=5m\n"), 0644))

	vars, err := ReadEnvFile(path)
	require.NoError(t, err)

	cfg := Default()
	require.NoError(t, cfg.ApplyEnv(MapLookup(vars)))
	assert.Equal(t, []string{"AAPL", "TSLA"}, cfg.Symbols)

	poll, err := cfg.Live.Poll()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, poll)
}

func TestLoadDotEnvMissingFileIsFine(t *testing.T) {
	t.Parallel()

	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "nope.env")))
}

func TestDerivedConfigs(t *testing.T) {
	t.Parallel()

	cfg := Default()
	bt := cfg.BacktestConfig("MSFT")
	assert.Equal(t, "MSFT", bt.Symbol)
	assert.Equal(t, cfg.Signal, bt.Signal)
	assert.NoError(t, bt.Validate())

	sc := cfg.SessionConfig()
	assert.Equal(t, cfg.Symbols, sc.Symbols)
	assert.Equal(t, cfg.Live.Policy, sc.Policy)
	assert.NoError(t, sc.Validate())
}
