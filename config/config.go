// Package config loads the trader configuration from YAML or JSON files and
// applies QUANT_* environment overrides.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/quant/backtest"
	"github.com/rustyeddy/quant/internal/logging"
	"github.com/rustyeddy/quant/risk"
	"github.com/rustyeddy/quant/session"
	"github.com/rustyeddy/quant/signal"
)

// Config is the complete trader configuration.
type Config struct {
	Symbols  []string `json:"symbols" yaml:"symbols"`
	Period   string   `json:"period" yaml:"period"`
	Interval string   `json:"interval" yaml:"interval"`

	// DataDir holds <SYMBOL>[_<interval>].csv bar files.
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// ModelPath is a logistic artifact (JSON or YAML). Empty runs trend-only.
	ModelPath string `json:"model_path,omitempty" yaml:"model_path,omitempty"`

	Signal   signal.Config  `json:"signal" yaml:"signal"`
	Backtest BacktestConfig `json:"backtest" yaml:"backtest"`
	Live     LiveConfig     `json:"live" yaml:"live"`
	Journal  JournalConfig  `json:"journal" yaml:"journal"`
	Log      LogConfig      `json:"log" yaml:"log"`
}

// BacktestConfig contains backtest and simulate parameters
type BacktestConfig struct {
	InitialCapital float64 `json:"initial_capital" yaml:"initial_capital"`
	RiskFreeAnnual float64 `json:"risk_free_annual" yaml:"risk_free_annual"`
	RiskFraction   float64 `json:"risk_fraction" yaml:"risk_fraction"`
}

// LiveConfig contains live session parameters
type LiveConfig struct {
	Capital       float64     `json:"capital" yaml:"capital"`
	PollInterval  string      `json:"poll_interval" yaml:"poll_interval"` // e.g. "60s", "5m"
	Policy        risk.Policy `json:"policy" yaml:"policy"`
	RecommendRisk float64     `json:"recommend_risk" yaml:"recommend_risk"`
}

// Poll parses PollInterval.
func (l LiveConfig) Poll() (time.Duration, error) {
	if l.PollInterval == "" {
		return time.Minute, nil
	}
	return time.ParseDuration(l.PollInterval)
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	Type       string `json:"type" yaml:"type"` // "none", "csv" or "sqlite"
	TradesFile string `json:"trades_file,omitempty" yaml:"trades_file,omitempty"`
	EquityFile string `json:"equity_file,omitempty" yaml:"equity_file,omitempty"`
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	OrgDir     string `json:"org_dir,omitempty" yaml:"org_dir,omitempty"`
}

type LogConfig struct {
	Level string `json:"level" yaml:"level"`
	Dev   bool   `json:"dev" yaml:"dev"`
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	bt := backtest.DefaultConfig()
	live := session.DefaultConfig()
	return &Config{
		Symbols:  live.Symbols,
		Period:   bt.Period,
		Interval: bt.Interval,
		DataDir:  "./data",
		Signal:   signal.DefaultConfig(),
		Backtest: BacktestConfig{
			InitialCapital: bt.InitialCapital,
			RiskFreeAnnual: bt.RiskFreeAnnual,
			RiskFraction:   bt.RiskFraction,
		},
		Live: LiveConfig{
			Capital:       10000,
			PollInterval:  "60s",
			Policy:        live.Policy,
			RecommendRisk: live.RecommendRisk,
		},
		Journal: JournalConfig{Type: "none"},
		Log:     LogConfig{Level: "info"},
	}
}

// Load reads path when it is non-empty, otherwise starts from Default, and
// then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = LoadFromFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a file. Fields missing from the
// file keep their defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		cfg = Default()
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SaveToFile saves configuration to a file (YAML for .yaml/.yml, JSON otherwise)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// LoadDotEnv loads .env style files into the process environment. Missing
// files are ignored; variables already set win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		err := godotenv.Load(f)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// ReadEnvFile parses an env file without touching the process environment.
func ReadEnvFile(path string) (map[string]string, error) {
	return godotenv.Read(path)
}

// MapLookup adapts a map to the lookup used by ApplyEnv.
func MapLookup(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

// ApplyEnv overrides fields from QUANT_* variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *float64) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = f
		return nil
	}

	if v, ok := lookup("QUANT_SYMBOLS"); ok && v != "" {
		c.Symbols = splitList(v)
	}
	str("QUANT_PERIOD", &c.Period)
	str("QUANT_INTERVAL", &c.Interval)
	str("QUANT_DATA_DIR", &c.DataDir)
	str("QUANT_MODEL_PATH", &c.ModelPath)
	str("QUANT_JOURNAL_TYPE", &c.Journal.Type)
	str("QUANT_JOURNAL_DB", &c.Journal.DBPath)
	str("QUANT_ORG_DIR", &c.Journal.OrgDir)
	str("QUANT_LOG_LEVEL", &c.Log.Level)
	str("QUANT_POLL_INTERVAL", &c.Live.PollInterval)

	if err := num("QUANT_CAPITAL", &c.Backtest.InitialCapital); err != nil {
		return err
	}
	if err := num("QUANT_LIVE_CAPITAL", &c.Live.Capital); err != nil {
		return err
	}
	if err := num("QUANT_RISK_FRACTION", &c.Live.Policy.RiskFraction); err != nil {
		return err
	}
	if v, ok := lookup("QUANT_LOG_DEV"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("QUANT_LOG_DEV: %w", err)
		}
		c.Log.Dev = b
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, strings.ToUpper(p))
		}
	}
	return out
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if len(c.Symbols) == 0 {
		return fmt.Errorf("symbols is required")
	}
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	if err := c.BacktestConfig(c.Symbols[0]).Validate(); err != nil {
		return fmt.Errorf("backtest: %w", err)
	}
	if err := c.SessionConfig().Validate(); err != nil {
		return fmt.Errorf("live: %w", err)
	}
	if c.Live.Capital <= 0 {
		return fmt.Errorf("live.capital must be positive")
	}
	if _, err := c.Live.Poll(); err != nil {
		return fmt.Errorf("live.poll_interval: %w", err)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return err
	}

	switch c.Journal.Type {
	case "", "none":
	case "csv":
		if c.Journal.TradesFile == "" || c.Journal.EquityFile == "" {
			return fmt.Errorf("journal trades_file and equity_file required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	default:
		return fmt.Errorf("journal.type must be 'none', 'csv' or 'sqlite'")
	}
	return nil
}

// BacktestConfig builds the runner configuration for symbol.
func (c *Config) BacktestConfig(symbol string) backtest.Config {
	return backtest.Config{
		Symbol:         symbol,
		Period:         c.Period,
		Interval:       c.Interval,
		InitialCapital: c.Backtest.InitialCapital,
		RiskFreeAnnual: c.Backtest.RiskFreeAnnual,
		Signal:         c.Signal,
		RiskFraction:   c.Backtest.RiskFraction,
	}
}

// SessionConfig builds the live session configuration.
func (c *Config) SessionConfig() session.Config {
	return session.Config{
		Symbols:       append([]string(nil), c.Symbols...),
		Period:        c.Period,
		Interval:      c.Interval,
		Signal:        c.Signal,
		Policy:        c.Live.Policy,
		RecommendRisk: c.Live.RecommendRisk,
	}
}
