package market

import (
	"bytes"
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func dailyBars(closes ...float64) []Bar {
	bars := make([]Bar, len(closes))
	for i, c := range closes {
		bars[i] = Bar{
			Time:   day0.AddDate(0, 0, i),
			Open:   c,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 1000,
		}
	}
	return bars
}

func TestSeriesValidate(t *testing.T) {
	t.Parallel()

	s := NewSeries("AAPL", dailyBars(1, 2, 3))
	assert.NoError(t, s.Validate())

	s.Bars[2].Time = s.Bars[1].Time
	err := s.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnordered))
}

func TestSeriesValidateRejectsNonFinite(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		set  func(b *Bar)
	}{
		{"NaN close", func(b *Bar) { b.Close = math.NaN() }},
		{"+Inf close", func(b *Bar) { b.Close = math.Inf(1) }},
		{"-Inf low", func(b *Bar) { b.Low = math.Inf(-1) }},
		{"NaN open", func(b *Bar) { b.Open = math.NaN() }},
		{"Inf high", func(b *Bar) { b.High = math.Inf(1) }},
		{"NaN volume", func(b *Bar) { b.Volume = math.NaN() }},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := NewSeries("AAPL", dailyBars(1, 2, 3))
			tt.set(&s.Bars[0])
			assert.ErrorIs(t, s.Validate(), ErrNonFinite)
		})
	}

	_, err := ReadCSV(strings.NewReader("2024-01-02,1,1,1,1\n2024-01-03,1,1,1,Inf\n"), "ABC")
	assert.ErrorIs(t, err, ErrNonFinite)
	_, err = ReadCSV(strings.NewReader("2024-01-02,NaN,1,1,1\n"), "ABC")
	assert.ErrorIs(t, err, ErrNonFinite)
}

func TestSeriesTruncateCopies(t *testing.T) {
	t.Parallel()

	s := NewSeries("AAPL", dailyBars(1, 2, 3, 4))
	tr := s.Truncate(2)
	assert.Equal(t, 2, tr.Len())
	assert.Equal(t, []float64{1, 2}, tr.Closes())

	tr.Bars[0].Close = 99
	assert.Equal(t, 1.0, s.Bars[0].Close)

	assert.Equal(t, 4, s.Truncate(10).Len())
	assert.True(t, s.Truncate(-1).Empty())
}

func TestParsePeriod(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"", 0, false},
		{"max", 0, false},
		{"5d", 5 * 24 * time.Hour, false},
		{"2wk", 14 * 24 * time.Hour, false},
		{"6mo", 180 * 24 * time.Hour, false},
		{"1y", 365 * 24 * time.Hour, false},
		{"abc", 0, true},
		{"0d", 0, true},
		{"xd", 0, true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePeriod(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestApplyPeriodKeepsTrailingWindow(t *testing.T) {
	t.Parallel()

	s := NewSeries("X", dailyBars(1, 2, 3, 4, 5, 6, 7, 8, 9, 10))
	got, err := ApplyPeriod(s, "3d")
	require.NoError(t, err)
	assert.Equal(t, []float64{7, 8, 9, 10}, got.Closes())
}

func TestReadCSV(t *testing.T) {
	t.Parallel()

	in := strings.Join([]string{
		"date,open,high,low,close,volume",
		"2024-01-02,10,11,9,10.5,100",
		"2024-01-03T00:00:00Z,10.5,12,10,11.5,200",
		"",
		"2024-01-04,11.5,12,11,12,",
	}, "\n")

	s, err := ReadCSV(strings.NewReader(in), "ABC")
	require.NoError(t, err)
	require.Equal(t, 3, s.Len())
	assert.Equal(t, "ABC", s.Symbol)
	assert.Equal(t, []float64{10.5, 11.5, 12}, s.Closes())
	assert.Equal(t, 200.0, s.Bars[1].Volume)
	assert.Equal(t, 0.0, s.Bars[2].Volume)
}

func TestReadCSVErrors(t *testing.T) {
	t.Parallel()

	_, err := ReadCSV(strings.NewReader("2024-01-02,x,1,1,1\n"), "ABC")
	assert.ErrorContains(t, err, "bad open")

	_, err = ReadCSV(strings.NewReader("yesterday,1,1,1,1\n"), "ABC")
	assert.ErrorContains(t, err, "bad time")

	_, err = ReadCSV(strings.NewReader("2024-01-03,1,1,1,1\n2024-01-02,1,1,1,1\n"), "ABC")
	assert.True(t, errors.Is(err, ErrUnordered))
}

func TestWriteThenReadCSV(t *testing.T) {
	t.Parallel()

	s := NewSeries("XYZ", dailyBars(3, 4.25, 5))
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, s))

	got, err := ReadCSV(&buf, "XYZ")
	require.NoError(t, err)
	assert.Equal(t, s.Bars, got.Bars)
}

func TestCSVSourcePrefersIntervalFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	write := func(name string, s Series) {
		f, err := os.Create(filepath.Join(dir, name))
		require.NoError(t, err)
		require.NoError(t, WriteCSV(f, s))
		require.NoError(t, f.Close())
	}
	write("AAPL.csv", NewSeries("AAPL", dailyBars(1, 2)))
	write("AAPL_1d.csv", NewSeries("AAPL", dailyBars(7, 8, 9)))

	src := NewCSVSource(dir)
	ctx := context.Background()

	got, err := src.FetchBars(ctx, "AAPL", "max", "1d")
	require.NoError(t, err)
	assert.Equal(t, []float64{7, 8, 9}, got.Closes())
	assert.Equal(t, "1d", got.Interval)

	got, err = src.FetchBars(ctx, "AAPL", "", "1h")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, got.Closes())
}

func TestCSVSourceMissingSymbolIsEmpty(t *testing.T) {
	t.Parallel()

	got, err := NewCSVSource(t.TempDir()).FetchBars(context.Background(), "NOPE", "1y", "1d")
	require.NoError(t, err)
	assert.True(t, got.Empty())
	assert.Equal(t, "NOPE", got.Symbol)
}

func TestMemorySource(t *testing.T) {
	t.Parallel()

	m := NewMemorySource()
	m.Put(NewSeries("MSFT", dailyBars(1, 2, 3, 4)))

	ctx := context.Background()
	got, err := m.FetchBars(ctx, "MSFT", "1d", "1d")
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 4}, got.Closes())

	empty, err := m.FetchBars(ctx, "GOOG", "", "1d")
	require.NoError(t, err)
	assert.True(t, empty.Empty())

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	_, err = m.FetchBars(cctx, "MSFT", "", "")
	assert.ErrorIs(t, err, context.Canceled)
}
