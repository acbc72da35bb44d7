package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jtsiddons/guessing-game/internal/config"
	"github.com/jtsiddons/guessing-game/internal/daily"
	"github.com/jtsiddons/guessing-game/internal/game"
	"github.com/jtsiddons/guessing-game/internal/history"
	"github.com/jtsiddons/guessing-game/internal/store"
)

type harness struct {
	t    *testing.T
	srv  *Server
	ts   *httptest.Server
	hist *history.Store
}

func newHarness(t *testing.T, secret uint32) *harness {
	t.Helper()
	hist, err := history.Open(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = hist.Close() })

	cfg := config.Default()
	cfg.DailySalt = "test-salt"
	srv := New(store.NewMemoryStore(store.DefaultIdleTTL), hist, cfg, game.FixedSource(secret))
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return &harness{t: t, srv: srv, ts: ts, hist: hist}
}

// client returns a cookie-keeping client, i.e. one browser.
func (h *harness) client() *http.Client {
	jar, err := cookiejar.New(nil)
	require.NoError(h.t, err)
	return &http.Client{Jar: jar}
}

func (h *harness) do(c *http.Client, method, path string, body any, out any) int {
	h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(h.t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, h.ts.URL+path, &buf)
	require.NoError(h.t, err)
	req.Header.Set("Content-Type", "application/json")
	res, err := c.Do(req)
	require.NoError(h.t, err)
	defer res.Body.Close()
	if out != nil {
		require.NoError(h.t, json.NewDecoder(res.Body).Decode(out))
	}
	return res.StatusCode
}

func TestHealth(t *testing.T) {
	h := newHarness(t, 1)
	var body map[string]bool
	assert.Equal(t, http.StatusOK, h.do(h.client(), http.MethodGet, "/health", nil, &body))
	assert.True(t, body["ok"])
}

func TestNotFoundIsJSON(t *testing.T) {
	h := newHarness(t, 1)
	var body map[string]string
	assert.Equal(t, http.StatusNotFound, h.do(h.client(), http.MethodGet, "/nope", nil, &body))
	assert.Equal(t, "not_found", body["error"])
}

func TestGame_PlayToWin(t *testing.T) {
	h := newHarness(t, 50)
	c := h.client()

	var ng gameRes
	require.Equal(t, http.StatusOK, h.do(c, http.MethodPost, "/game/new", nil, &ng))
	require.NotEmpty(t, ng.GameID)
	assert.Equal(t, uint32(1), ng.Low)
	assert.Equal(t, uint32(100), ng.High)
	assert.Nil(t, ng.Secret)

	var res guessRes
	require.Equal(t, http.StatusOK, h.do(c, http.MethodPost, "/game/guess", guessReq{GameID: ng.GameID, Guess: "10"}, &res))
	assert.Equal(t, game.FeedbackTooSmall, res.Feedback)
	assert.Equal(t, game.StateAwaitingInput, res.State)
	assert.Nil(t, res.Secret)

	require.Equal(t, http.StatusOK, h.do(c, http.MethodPost, "/game/guess", guessReq{GameID: ng.GameID, Guess: "90"}, &res))
	assert.Equal(t, game.FeedbackTooBig, res.Feedback)

	var bad map[string]string
	require.Equal(t, http.StatusBadRequest, h.do(c, http.MethodPost, "/game/guess", guessReq{GameID: ng.GameID, Guess: "abc"}, &bad))
	assert.Equal(t, "invalid guess", bad["error"])

	require.Equal(t, http.StatusOK, h.do(c, http.MethodPost, "/game/guess", guessReq{GameID: ng.GameID, Guess: "50"}, &res))
	assert.Equal(t, game.FeedbackWin, res.Feedback)
	assert.Equal(t, game.StateWon, res.State)
	assert.Equal(t, 3, res.Attempts)
	require.NotNil(t, res.Secret)
	assert.Equal(t, uint32(50), *res.Secret)

	require.Equal(t, http.StatusConflict, h.do(c, http.MethodPost, "/game/guess", guessReq{GameID: ng.GameID, Guess: "50"}, nil))

	var st gameRes
	require.Equal(t, http.StatusOK, h.do(c, http.MethodGet, "/game/"+ng.GameID, nil, &st))
	assert.Equal(t, game.StateWon, st.State)
	assert.Equal(t, 3, st.Attempts)
}

func TestGame_CustomRangeAndErrors(t *testing.T) {
	h := newHarness(t, 50)
	c := h.client()

	var ng gameRes
	require.Equal(t, http.StatusOK, h.do(c, http.MethodPost, "/game/new", map[string]uint32{"low": 1, "high": 10}, &ng))
	assert.Equal(t, uint32(10), ng.High)

	var res guessRes
	// FixedSource clamps 50 into [1, 10]
	require.Equal(t, http.StatusOK, h.do(c, http.MethodPost, "/game/guess", guessReq{GameID: ng.GameID, Guess: "10"}, &res))
	assert.Equal(t, game.FeedbackWin, res.Feedback)

	assert.Equal(t, http.StatusBadRequest, h.do(c, http.MethodPost, "/game/new", map[string]uint32{"low": 9, "high": 2}, nil))
	assert.Equal(t, http.StatusNotFound, h.do(c, http.MethodPost, "/game/guess", guessReq{GameID: "missing", Guess: "1"}, nil))
	assert.Equal(t, http.StatusNotFound, h.do(c, http.MethodGet, "/game/missing", nil, nil))
}

func TestGame_NewRejectsMalformedBody(t *testing.T) {
	h := newHarness(t, 50)

	res, err := http.Post(h.ts.URL+"/game/new", "application/json", strings.NewReader(`{"low": 1,`))
	require.NoError(t, err)
	defer res.Body.Close()
	var body map[string]string
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Equal(t, "bad_json", body["error"])

	// an empty body still plays over the configured range
	var ng gameRes
	assert.Equal(t, http.StatusOK, h.do(h.client(), http.MethodPost, "/game/new", nil, &ng))
	assert.NotEmpty(t, ng.GameID)
}

func TestGame_ConcurrentGuessesRevealSecretOnce(t *testing.T) {
	h := newHarness(t, 50)
	c := h.client()

	var ng gameRes
	require.Equal(t, http.StatusOK, h.do(c, http.MethodPost, "/game/new", nil, &ng))

	const n = 40
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		wins    int
		secrets int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			guess := "50"
			if i%2 == 0 {
				guess = "10"
			}
			var res guessRes
			status := h.do(c, http.MethodPost, "/game/guess", guessReq{GameID: ng.GameID, Guess: guess}, &res)
			mu.Lock()
			defer mu.Unlock()
			if status != http.StatusOK {
				return
			}
			if res.State == game.StateWon {
				wins++
			}
			if res.Secret != nil {
				secrets++
				assert.Equal(t, uint32(50), *res.Secret)
				assert.Equal(t, game.StateWon, res.State)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, secrets)
}

func TestAuth_SignupStatsAndClaim(t *testing.T) {
	h := newHarness(t, 7)
	c := h.client()

	// play one game as a guest first
	var ng gameRes
	require.Equal(t, http.StatusOK, h.do(c, http.MethodPost, "/game/new", nil, &ng))
	require.Equal(t, http.StatusOK, h.do(c, http.MethodPost, "/game/guess", guessReq{GameID: ng.GameID, Guess: "3"}, nil))

	assert.Equal(t, http.StatusUnauthorized, h.do(c, http.MethodGet, "/auth/me", nil, nil))

	var me map[string]any
	require.Equal(t, http.StatusCreated, h.do(c, http.MethodPost, "/auth/signup", credentials{Username: "ada", Password: "password123"}, &me))
	assert.Equal(t, "ada", me["username"])

	var mine []history.GameRow
	require.Equal(t, http.StatusOK, h.do(c, http.MethodGet, "/games/mine", nil, &mine))
	require.Len(t, mine, 1)
	assert.Equal(t, ng.GameID, mine[0].ID)
	assert.Equal(t, 1, mine[0].Attempts)

	// a game played while logged in counts towards stats
	require.Equal(t, http.StatusOK, h.do(c, http.MethodPost, "/game/new", nil, &ng))
	require.Equal(t, http.StatusOK, h.do(c, http.MethodPost, "/game/guess", guessReq{GameID: ng.GameID, Guess: "1"}, nil))
	require.Equal(t, http.StatusOK, h.do(c, http.MethodPost, "/game/guess", guessReq{GameID: ng.GameID, Guess: "7"}, nil))

	var stats map[string]any
	require.Equal(t, http.StatusOK, h.do(c, http.MethodGet, "/stats/me", nil, &stats))
	assert.EqualValues(t, 2, stats["gamesPlayed"])
	assert.EqualValues(t, 1, stats["gamesWon"])
	assert.EqualValues(t, 2, stats["bestAttempts"])

	assert.Equal(t, http.StatusConflict, h.do(h.client(), http.MethodPost, "/auth/signup", credentials{Username: "ADA", Password: "password123"}, nil))
	assert.Equal(t, http.StatusBadRequest, h.do(h.client(), http.MethodPost, "/auth/signup", credentials{Username: "x", Password: "password123"}, nil))

	require.Equal(t, http.StatusOK, h.do(c, http.MethodPost, "/auth/logout", nil, nil))
	assert.Equal(t, http.StatusUnauthorized, h.do(c, http.MethodGet, "/auth/me", nil, nil))
}

func TestAuth_LoginAndBearer(t *testing.T) {
	h := newHarness(t, 7)
	_, err := h.hist.CreateUser(context.Background(), "bob", "password123")
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, h.do(h.client(), http.MethodPost, "/auth/login", credentials{Username: "bob", Password: "nope"}, nil))

	c := h.client()
	require.Equal(t, http.StatusOK, h.do(c, http.MethodPost, "/auth/login", credentials{Username: "bob", Password: "password123"}, nil))
	var me authUser
	require.Equal(t, http.StatusOK, h.do(c, http.MethodGet, "/auth/me", nil, &me))
	assert.Equal(t, "bob", me.Username)

	tok, _, err := h.srv.signJWT(me.ID, me.Username)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodGet, h.ts.URL+"/auth/me", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+tok)
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)

	req.Header.Set("Authorization", "Bearer "+tok+"x")
	res, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestDaily_OncePerDayAndLeaderboard(t *testing.T) {
	h := newHarness(t, 1)
	day := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	h.srv.now = func() time.Time { return day }
	secret := daily.Secret(day, "test-salt", 1, 100)

	c := h.client()
	var nr dailyNewRes
	require.Equal(t, http.StatusOK, h.do(c, http.MethodPost, "/daily/new", nil, &nr))
	require.NotEmpty(t, nr.GameID)
	assert.Equal(t, "2026-10-19", nr.Date)
	assert.False(t, nr.Played)

	// resuming returns the same session
	var again dailyNewRes
	require.Equal(t, http.StatusOK, h.do(c, http.MethodPost, "/daily/new", nil, &again))
	assert.Equal(t, nr.GameID, again.GameID)

	assert.Equal(t, http.StatusConflict, h.do(c, http.MethodPost, "/daily/guess", guessReq{GameID: "other", Guess: "1"}, nil))
	assert.Equal(t, http.StatusBadRequest, h.do(c, http.MethodPost, "/daily/guess", guessReq{GameID: nr.GameID, Guess: "x"}, nil))

	var gr dailyGuessRes
	require.Equal(t, http.StatusOK, h.do(c, http.MethodPost, "/daily/guess", guessReq{GameID: nr.GameID, Guess: fmtUint(secret)}, &gr))
	assert.Equal(t, game.FeedbackWin, gr.Feedback)
	assert.Equal(t, string(game.StateWon), gr.State)
	assert.Equal(t, 1, gr.Attempts)

	require.Equal(t, http.StatusOK, h.do(c, http.MethodPost, "/daily/guess", guessReq{GameID: nr.GameID, Guess: "1"}, &gr))
	assert.Equal(t, stateLocked, gr.State)

	require.Equal(t, http.StatusOK, h.do(c, http.MethodPost, "/daily/new", nil, &again))
	assert.True(t, again.Played)
	assert.Empty(t, again.GameID)

	// a second browser gets the same secret
	c2 := h.client()
	require.Equal(t, http.StatusOK, h.do(c2, http.MethodPost, "/daily/new", nil, &nr))
	require.Equal(t, http.StatusOK, h.do(c2, http.MethodPost, "/daily/guess", guessReq{GameID: nr.GameID, Guess: fmtUint(secret)}, &gr))
	assert.Equal(t, game.FeedbackWin, gr.Feedback)

	var lb lbRes
	require.Equal(t, http.StatusOK, h.do(c, http.MethodGet, "/daily/leaderboard", nil, &lb))
	assert.Equal(t, "2026-10-19", lb.Date)
	assert.Len(t, lb.Top, 2)

	require.Equal(t, http.StatusOK, h.do(c, http.MethodGet, "/daily/leaderboard?date=2026-10-18", nil, &lb))
	assert.Empty(t, lb.Top)
	assert.Equal(t, http.StatusBadRequest, h.do(c, http.MethodGet, "/daily/leaderboard?date=yesterday", nil, nil))
}

func fmtUint(n uint32) string { return strconv.FormatUint(uint64(n), 10) }
