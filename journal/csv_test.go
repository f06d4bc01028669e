package journal

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	rows, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestCSVJournalHeaders(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tradesPath := filepath.Join(dir, "trades.csv")
	equityPath := filepath.Join(dir, "equity.csv")

	j, err := NewCSV(tradesPath, equityPath)
	require.NoError(t, err)
	require.NoError(t, j.Close())

	wantTrades := []string{"trade_id", "run_id", "symbol", "side", "quantity", "price", "avg_cost", "time", "realized_pl", "reason"}
	assert.Equal(t, [][]string{wantTrades}, readCSV(t, tradesPath))

	wantEquity := []string{"run_id", "time", "cash", "holdings", "equity"}
	assert.Equal(t, [][]string{wantEquity}, readCSV(t, equityPath))
}

func TestCSVJournalRecordTrade(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tradesPath := filepath.Join(dir, "trades.csv")
	equityPath := filepath.Join(dir, "equity.csv")

	j, err := NewCSV(tradesPath, equityPath)
	require.NoError(t, err)

	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	err = j.RecordTrade(TradeRecord{
		TradeID:    "T1",
		RunID:      "R1",
		Symbol:     "AAPL",
		Side:       "SELL",
		Quantity:   12,
		Price:      1.2345678,
		AvgCost:    1.3456789,
		Time:       ts,
		RealizedPL: -12.5,
		Reason:     "signal",
	})
	require.NoError(t, err)
	require.NoError(t, j.Close())

	rows := readCSV(t, tradesPath)
	require.Len(t, rows, 2)

	want := []string{
		"T1",
		"R1",
		"AAPL",
		"SELL",
		"12",
		"1.234568",
		"1.345679",
		ts.Format(time.RFC3339),
		"-12.500000",
		"signal",
	}
	assert.Equal(t, want, rows[1])
}

func TestCSVJournalRecordEquity(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tradesPath := filepath.Join(dir, "trades.csv")
	equityPath := filepath.Join(dir, "equity.csv")

	j, err := NewCSV(tradesPath, equityPath)
	require.NoError(t, err)

	ts := time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)
	err = j.RecordEquity(EquitySnapshot{
		RunID:    "R1",
		Time:     ts,
		Cash:     1000.1,
		Holdings: 10.5,
		Equity:   1010.6,
	})
	require.NoError(t, err)
	require.NoError(t, j.Close())

	rows := readCSV(t, equityPath)
	require.Len(t, rows, 2)

	want := []string{
		"R1",
		ts.Format(time.RFC3339),
		"1000.100000",
		"10.500000",
		"1010.600000",
	}
	assert.Equal(t, want, rows[1])
}

func TestNewCSVBadPath(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, err := NewCSV(filepath.Join(dir, "missing", "t.csv"), filepath.Join(dir, "e.csv"))
	assert.Error(t, err)
}

func TestMemoryAndMulti(t *testing.T) {
	t.Parallel()

	a, b := NewMemory(), NewMemory()
	m := Multi{a, b}

	require.NoError(t, m.RecordTrade(TradeRecord{TradeID: "T1"}))
	require.NoError(t, m.RecordEquity(EquitySnapshot{Equity: 5}))
	require.NoError(t, m.Close())

	for _, j := range []*Memory{a, b} {
		assert.Len(t, j.Trades(), 1)
		assert.Len(t, j.Equity(), 1)
		assert.True(t, j.Closed())
	}
}
