package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jtsiddons/guessing-game/internal/game"
)

func newGame(t *testing.T) *game.Game {
	t.Helper()
	g, err := game.New(game.FixedSource(5), game.DefaultRange)
	require.NoError(t, err)
	return g
}

func TestMemory_SaveGet(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore(0)

	_, err := st.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	g := newGame(t)
	require.NoError(t, st.Save(ctx, g))

	got, err := st.Get(ctx, g.ID)
	require.NoError(t, err)
	assert.Same(t, g, got)
}

func TestMemory_IdleGamesExpire(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2026, 1, 2, 3, 0, 0, 0, time.UTC)
	m := NewMemoryStore(time.Hour).(*memory)
	m.now = func() time.Time { return clock }

	idle, active := newGame(t), newGame(t)
	require.NoError(t, m.Save(ctx, idle))
	require.NoError(t, m.Save(ctx, active))

	clock = clock.Add(40 * time.Minute)
	require.NoError(t, m.Save(ctx, active)) // a guess refreshes the deadline

	clock = clock.Add(40 * time.Minute)
	_, err := m.Get(ctx, idle.ID)
	require.ErrorIs(t, err, ErrNotFound)
	got, err := m.Get(ctx, active.ID)
	require.NoError(t, err)
	assert.Same(t, active, got)

	// the next write sweeps the expired entry out of the map
	require.NoError(t, m.Save(ctx, newGame(t)))
	m.mu.RLock()
	_, still := m.games[idle.ID]
	size := len(m.games)
	m.mu.RUnlock()
	assert.False(t, still)
	assert.Equal(t, 2, size)
}

func TestMemory_ZeroTTLNeverExpires(t *testing.T) {
	ctx := context.Background()
	clock := time.Now()
	m := NewMemoryStore(0).(*memory)
	m.now = func() time.Time { return clock }

	g := newGame(t)
	require.NoError(t, m.Save(ctx, g))
	clock = clock.Add(365 * 24 * time.Hour)
	_, err := m.Get(ctx, g.ID)
	assert.NoError(t, err)
}

func TestMemory_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore(DefaultIdleTTL)

	var wg sync.WaitGroup
	ids := make(chan string, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g, _ := game.New(game.CryptoSource{}, game.DefaultRange)
			_ = st.Save(ctx, g)
			ids <- g.ID
		}()
	}
	wg.Wait()
	close(ids)

	for id := range ids {
		_, err := st.Get(ctx, id)
		assert.NoError(t, err)
	}
}
