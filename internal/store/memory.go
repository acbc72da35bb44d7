// internal/store/memory.go
//
// In-memory session store for games being played over HTTP.
// The secret lives only in the *game.Game held here; the SQLite history
// never sees it, so a restart forfeits every in-progress game.
//
// Games untouched for longer than the idle TTL are forgotten: Get treats
// them as missing and the next Save sweeps them out. Abandoned browser tabs
// therefore cannot grow the map without bound.

package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jtsiddons/guessing-game/internal/game"
)

var ErrNotFound = errors.New("game not found")

// DefaultIdleTTL is how long the server keeps a game nobody touches.
const DefaultIdleTTL = 24 * time.Hour

// Store defines the persistence interface for live game sessions.
type Store interface {
	// Save inserts g or refreshes its idle deadline.
	Save(ctx context.Context, g *game.Game) error

	// Get retrieves a game by ID, or ErrNotFound once it expired.
	Get(ctx context.Context, id string) (*game.Game, error)
}

type session struct {
	g       *game.Game
	touched time.Time
}

type memory struct {
	mu    sync.RWMutex
	games map[string]session
	ttl   time.Duration // <= 0 keeps games forever
	now   func() time.Time
}

// NewMemoryStore constructs an in-memory Store that drops games idle for
// longer than ttl. A ttl <= 0 disables expiry.
func NewMemoryStore(ttl time.Duration) Store {
	return &memory{games: make(map[string]session), ttl: ttl, now: time.Now}
}

func (m *memory) Save(_ context.Context, g *game.Game) error {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweep(now)
	m.games[g.ID] = session{g: g, touched: now}
	return nil
}

func (m *memory) Get(_ context.Context, id string) (*game.Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.games[id]
	if !ok || m.expired(s, m.now()) {
		return nil, ErrNotFound
	}
	return s.g, nil
}

// sweep drops expired sessions. Callers hold m.mu for writing.
func (m *memory) sweep(now time.Time) {
	if m.ttl <= 0 {
		return
	}
	for id, s := range m.games {
		if m.expired(s, now) {
			delete(m.games, id)
		}
	}
}

func (m *memory) expired(s session, now time.Time) bool {
	return m.ttl > 0 && now.Sub(s.touched) > m.ttl
}
