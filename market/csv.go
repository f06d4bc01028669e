package market

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// CSVSource reads daily or intraday bars from files in Dir:
//
//	<Dir>/<SYMBOL>_<interval>.csv  (tried first)
//	<Dir>/<SYMBOL>.csv
//
// Rows are time,open,high,low,close[,volume]. A header row starting with
// "time" or "date" is skipped. Time is RFC3339 or YYYY-MM-DD.
type CSVSource struct {
	Dir string
}

func NewCSVSource(dir string) *CSVSource {
	return &CSVSource{Dir: dir}
}

func (c *CSVSource) FetchBars(ctx context.Context, symbol, period, interval string) (Series, error) {
	if err := ctx.Err(); err != nil {
		return Series{}, err
	}

	candidates := []string{filepath.Join(c.Dir, symbol+".csv")}
	if interval != "" {
		candidates = append([]string{filepath.Join(c.Dir, symbol+"_"+interval+".csv")}, candidates...)
	}

	for _, path := range candidates {
		s, err := ReadCSVFile(path, symbol)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return Series{}, err
		}
		s.Interval = interval
		return ApplyPeriod(s, period)
	}

	// No data is not an error; callers treat it as insufficient data.
	return Series{Symbol: symbol, Interval: interval}, nil
}

// ReadCSVFile loads a bar file and validates ordering.
func ReadCSVFile(path, symbol string) (Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return Series{}, err
	}
	defer f.Close()

	s, err := ReadCSV(f, symbol)
	if err != nil {
		return Series{}, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// ReadCSV parses bars from r.
func ReadCSV(r io.Reader, symbol string) (Series, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	var bars []Bar
	line := 0
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Series{}, err
		}
		line++
		if len(row) == 0 {
			continue
		}
		if line == 1 && isHeader(row[0]) {
			continue
		}

		b, ok, err := parseBarRow(row)
		if err != nil {
			return Series{}, fmt.Errorf("line %d: %w", line, err)
		}
		if !ok {
			continue
		}
		bars = append(bars, b)
	}

	s := NewSeries(symbol, bars)
	if err := s.Validate(); err != nil {
		return Series{}, err
	}
	return s, nil
}

// WriteCSV writes s in the format ReadCSV understands.
func WriteCSV(w io.Writer, s Series) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"time", "open", "high", "low", "close", "volume"}); err != nil {
		return err
	}
	for _, b := range s.Bars {
		err := cw.Write([]string{
			b.Time.UTC().Format(time.RFC3339),
			ff(b.Open), ff(b.High), ff(b.Low), ff(b.Close), ff(b.Volume),
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func isHeader(first string) bool {
	h := strings.ToLower(strings.TrimSpace(first))
	return h == "time" || h == "date" || h == "timestamp"
}

func parseBarRow(row []string) (Bar, bool, error) {
	// Need at least: time,open,high,low,close
	if len(row) < 5 {
		return Bar{}, false, nil
	}

	ts := strings.TrimSpace(row[0])
	if ts == "" {
		return Bar{}, false, nil
	}
	t, err := parseTime(ts)
	if err != nil {
		return Bar{}, false, err
	}

	vals := make([]float64, 5)
	names := []string{"open", "high", "low", "close", "volume"}
	for i := 0; i < 5; i++ {
		if i+1 >= len(row) {
			break
		}
		raw := strings.TrimSpace(row[i+1])
		if raw == "" && i == 4 {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Bar{}, false, fmt.Errorf("bad %s %q: %w", names[i], row[i+1], err)
		}
		vals[i] = v
	}

	return Bar{
		Time:   t,
		Open:   vals[0],
		High:   vals[1],
		Low:    vals[2],
		Close:  vals[3],
		Volume: vals[4],
	}, true, nil
}

func parseTime(ts string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, time.RFC3339Nano, "2006-01-02", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, ts); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("bad time %q", ts)
}

func ff(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}
