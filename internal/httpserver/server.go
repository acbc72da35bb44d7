// internal/httpserver/server.go
//
// HTTP server wiring for the guessing game.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs, access log).
//   - Public endpoints: "/", "/health".
//   - Game endpoints (optional auth): POST /game/new, POST /game/guess, GET /game/{id}.
//   - Daily endpoints (optional auth): mounted under /daily.
//   - Auth + profile endpoints: /auth/*, /stats/me, /games/mine.
//
// Notes:
//   - Live games (and their secrets) are kept in the session store only.
//   - History writes are best effort: failures are logged, never returned.
//   - Unlike the console, an unparsable guess is reported (400 invalid guess)
//     because an API caller cannot see a re-prompt.

package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/jtsiddons/guessing-game/internal/config"
	"github.com/jtsiddons/guessing-game/internal/game"
	"github.com/jtsiddons/guessing-game/internal/history"
	"github.com/jtsiddons/guessing-game/internal/store"
)

// Server bundles router, live game store, history DB and config.
type Server struct {
	r    *chi.Mux
	st   store.Store
	hist *history.Store
	cfg  config.Config
	src  game.RandomSource
	now  func() time.Time

	// guards game mutation; the store hands out shared *game.Game pointers
	mu sync.Mutex
}

// New constructs a Server, installs middleware, and registers routes.
// src draws secrets for classic games; daily games use the date-derived source.
func New(st store.Store, hist *history.Store, cfg config.Config, src game.RandomSource) *Server {
	s := &Server{r: chi.NewRouter(), st: st, hist: hist, cfg: cfg, src: src, now: time.Now}

	s.r.Use(chimw.RequestID)
	s.r.Use(chimw.RealIP)
	s.r.Use(accessLog)
	s.r.Use(chimw.Recoverer)
	s.r.Use(chimw.Timeout(10 * time.Second))
	s.r.Use(jsonContentType)
	s.r.Use(cors(cfg.ClientOrigin))

	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"service":"guess-go","endpoints":["/health","POST /game/new","POST /game/guess","/daily/*","/auth/*"]}`))
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	s.r.Group(func(r chi.Router) {
		r.Use(s.withOptionalAuth())
		r.Post("/game/new", s.handleNewGame)
		r.Post("/game/guess", s.handleGuess)
		r.Get("/game/{id}", s.handleGetGame)
		s.mountDaily(r)
	})

	s.mountAuthRoutes()

	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found")
	})
	return s
}

// Start begins serving HTTP on addr.
func (s *Server) Start(addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.r, ReadHeaderTimeout: 5 * time.Second}
	return srv.ListenAndServe()
}

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// ------------------------------ GAME ---------------------------------------

type newGameReq struct {
	Low  *uint32 `json:"low"`
	High *uint32 `json:"high"`
}

type gameRes struct {
	GameID   string     `json:"gameId"`
	State    game.State `json:"state"`
	Attempts int        `json:"attempts"`
	Low      uint32     `json:"low"`
	High     uint32     `json:"high"`
	Secret   *uint32    `json:"secret,omitempty"`
}

func toGameRes(g *game.Game) gameRes {
	res := gameRes{GameID: g.ID, State: g.State, Attempts: g.Attempts, Low: g.Range.Low, High: g.Range.High}
	if n, ok := g.Secret(); ok {
		res.Secret = &n
	}
	return res
}

// handleNewGame creates a live game and a history row for its owner.
// An empty body plays over the configured range.
func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	var req newGameReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}

	rng := s.cfg.Range
	if req.Low != nil {
		rng.Low = *req.Low
	}
	if req.High != nil {
		rng.High = *req.High
	}
	g, err := game.New(s.src, rng)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.st.Save(r.Context(), g); err != nil {
		log.Error().Err(err).Msg("save game")
		writeError(w, http.StatusInternalServerError, "save_failed")
		return
	}

	if err := s.hist.StartGame(r.Context(), g, s.owner(w, r), history.ModeClassic); err != nil {
		log.Warn().Err(err).Str("gameId", g.ID).Msg("insert game row")
	}
	writeJSON(w, http.StatusOK, toGameRes(g))
}

type guessReq struct {
	GameID string `json:"gameId"`
	Guess  string `json:"guess"`
}

type guessRes struct {
	game.Outcome
	Secret *uint32 `json:"secret,omitempty"`
}

// handleGuess scores one guess against a live game.
func (s *Server) handleGuess(w http.ResponseWriter, r *http.Request) {
	var req guessReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	g, err := s.st.Get(r.Context(), req.GameID)
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}

	s.mu.Lock()
	out, err := g.Submit(req.Guess)
	secret, won := g.Secret()
	s.mu.Unlock()
	switch {
	case errors.Is(err, game.ErrInvalidGuess):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, game.ErrFinished):
		writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "guess_failed")
		return
	}
	if err := s.st.Save(r.Context(), g); err != nil {
		writeError(w, http.StatusInternalServerError, "save_failed")
		return
	}

	s.recordOutcome(r, g.ID, out)

	res := guessRes{Outcome: out}
	if won {
		res.Secret = &secret
	}
	writeJSON(w, http.StatusOK, res)
}

// recordOutcome mirrors an accepted guess into the history DB.
func (s *Server) recordOutcome(r *http.Request, gameID string, out game.Outcome) {
	if out.State.Terminal() {
		if err := s.hist.FinishGame(r.Context(), gameID, out.Attempts); err != nil {
			log.Warn().Err(err).Str("gameId", gameID).Msg("finish game")
		}
		return
	}
	if err := s.hist.RecordAttempt(r.Context(), gameID); err != nil {
		log.Warn().Err(err).Str("gameId", gameID).Msg("update attempts")
	}
}

// handleGetGame reports progress; the secret is only included once won.
func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	g, err := s.st.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	s.mu.Lock()
	res := toGameRes(g)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, res)
}

// ------------------------------- small util --------------------------------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
