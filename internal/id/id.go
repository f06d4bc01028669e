// Package id hands out ULIDs for trades and backtest runs.
package id

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	mu   sync.Mutex
	mono io.Reader
)

func init() {
	// ulid.Monotonic keeps IDs minted within the same millisecond ordered.
	var seed int64
	_ = binary.Read(cryptoRand.Reader, binary.LittleEndian, &seed)
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	mono = ulid.Monotonic(rand.New(rand.NewSource(seed)), 0)
}

// New returns a ULID stamped with the current wall clock.
func New() string {
	return NewAt(time.Now())
}

// NewAt returns a ULID stamped with t. Replays use the bar time so that
// trade ids sort in simulated, not wall-clock, order.
func NewAt(t time.Time) string {
	mu.Lock()
	defer mu.Unlock()

	if t.IsZero() || t.Before(time.Unix(0, 0)) {
		t = time.Now()
	}

	id, err := ulid.New(ulid.Timestamp(t.UTC()), mono)
	if err != nil {
		// Monotonic entropy overflow within one millisecond; fall back to a fresh reader.
		id = ulid.MustNew(ulid.Timestamp(t.UTC()), ulid.DefaultEntropy())
	}
	return id.String()
}

// Time extracts the timestamp embedded in a ULID string.
func Time(s string) (time.Time, error) {
	u, err := ulid.Parse(s)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(u.Time()).UTC(), nil
}
