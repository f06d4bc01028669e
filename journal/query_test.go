package journal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetTrade(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()

	ts := time.Date(2024, 4, 10, 9, 0, 0, 0, time.UTC)
	want := TradeRecord{
		TradeID:    "T123",
		RunID:      "R1",
		Symbol:     "MSFT",
		Side:       "SELL",
		Quantity:   15,
		Price:      410.25,
		AvgCost:    400.00,
		Time:       ts,
		RealizedPL: 153.75,
		Reason:     "trend",
	}
	require.NoError(t, j.RecordTrade(want))

	got, err := j.GetTrade("T123")
	require.NoError(t, err)

	assert.Equal(t, want.TradeID, got.TradeID)
	assert.Equal(t, want.RunID, got.RunID)
	assert.Equal(t, want.Symbol, got.Symbol)
	assert.Equal(t, want.Side, got.Side)
	assert.Equal(t, want.Quantity, got.Quantity)
	assert.InDelta(t, want.Price, got.Price, 1e-9)
	assert.InDelta(t, want.AvgCost, got.AvgCost, 1e-9)
	assert.True(t, want.Time.Equal(got.Time))
	assert.InDelta(t, want.RealizedPL, got.RealizedPL, 1e-9)
	assert.Equal(t, want.Reason, got.Reason)
}

func TestGetTradeNotFound(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()

	_, err := j.GetTrade("NOPE")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "NOPE")
}

func TestListTradesBetween(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	// inserted out of order
	for i, day := range []int{3, 1, 5, 2} {
		require.NoError(t, j.RecordTrade(TradeRecord{
			TradeID:  string(rune('A' + i)),
			Symbol:   "AAPL",
			Side:     "BUY",
			Quantity: 1,
			Price:    10,
			Time:     base.AddDate(0, 0, day),
		}))
	}

	got, err := j.ListTradesBetween(base.AddDate(0, 0, 1), base.AddDate(0, 0, 4))
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "B", got[0].TradeID)
	assert.Equal(t, "D", got[1].TradeID)
	assert.Equal(t, "A", got[2].TradeID)

	none, err := j.ListTradesBetween(base.AddDate(1, 0, 0), base.AddDate(2, 0, 0))
	require.NoError(t, err)
	assert.Empty(t, none)
}
