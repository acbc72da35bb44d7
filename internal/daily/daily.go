// internal/daily/daily.go
//
// Deterministic "number of the day".
// Every player gets the same secret for a given UTC date; the value is
// derived from HMAC-SHA256(salt, YYYY-MM-DD) so it cannot be predicted
// without the server salt.

package daily

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"time"

	"github.com/jtsiddons/guessing-game/internal/game"
)

// DateKey returns YYYY-MM-DD in UTC.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Secret folds HMAC(salt, DateKey(date)) into [low, high].
func Secret(date time.Time, salt string, low, high uint32) uint32 {
	if low >= high {
		return low
	}
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(DateKey(date)))
	sum := h.Sum(nil)
	// first 8 bytes as uint64 for the modulus
	n := binary.BigEndian.Uint64(sum[:8])
	span := uint64(high) - uint64(low) + 1
	return low + uint32(n%span)
}

// Source is a game.RandomSource that always yields the day's secret.
type Source struct {
	Date time.Time
	Salt string
}

var _ game.RandomSource = Source{}

// NextInRange implements game.RandomSource.
func (s Source) NextInRange(low, high uint32) uint32 {
	return Secret(s.Date, s.Salt, low, high)
}
