// internal/httpserver/routes_daily.go
//
// HTTP routes for the daily challenge: one shared secret per UTC date.
//   - POST /daily/new         → start (or resume) today's game
//   - POST /daily/guess       → guess in today's game
//   - GET  /daily/leaderboard → top 20 for today or ?date=YYYY-MM-DD
//
// Each owner plays once per day: the result row (written on win) is the
// durable lock, the in-memory session covers the game in progress.

package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/jtsiddons/guessing-game/internal/daily"
	"github.com/jtsiddons/guessing-game/internal/game"
	"github.com/jtsiddons/guessing-game/internal/history"
)

const stateLocked = "locked"

type dailyServer struct {
	srv      *Server
	store    *daily.Store
	sessions map[string]*dailySession // keyed by ownerID|date
	mu       sync.Mutex               // guards sessions and the games inside them
}

type dailySession struct {
	Game    *game.Game
	OwnerID string
	Date    string
	Start   time.Time
}

// mountDaily registers all /daily routes.
func (s *Server) mountDaily(r chi.Router) {
	dd := &dailyServer{
		srv:      s,
		store:    daily.NewStore(s.hist.DB()),
		sessions: make(map[string]*dailySession),
	}
	r.Route("/daily", func(r chi.Router) {
		r.Post("/new", dd.handleNew)
		r.Post("/guess", dd.handleGuess)
		r.Get("/leaderboard", dd.handleLeaderboard)
	})
}

type dailyNewRes struct {
	GameID string `json:"gameId"`
	Date   string `json:"date"`
	Played bool   `json:"played"`
	Low    uint32 `json:"low"`
	High   uint32 `json:"high"`
}

// handleNew returns played=true when today's result is already recorded,
// otherwise the ID of a new or resumed session.
func (d *dailyServer) handleNew(w http.ResponseWriter, r *http.Request) {
	owner := d.srv.owner(w, r)
	now := d.srv.now()
	date := daily.DateKey(now)
	rng := d.srv.cfg.Range

	played, err := d.store.AlreadyPlayed(r.Context(), owner.ID(), date)
	if err != nil {
		log.Warn().Err(err).Msg("daily already played")
	}
	if played {
		writeJSON(w, http.StatusOK, dailyNewRes{Date: date, Played: true, Low: rng.Low, High: rng.High})
		return
	}

	key := owner.ID() + "|" + date
	d.mu.Lock()
	sess, ok := d.sessions[key]
	if !ok {
		g, err := game.New(daily.Source{Date: now, Salt: d.srv.cfg.DailySalt}, rng)
		if err != nil {
			d.mu.Unlock()
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		sess = &dailySession{Game: g, OwnerID: owner.ID(), Date: date, Start: now}
		d.sessions[key] = sess
		d.evictBefore(date)
	}
	d.mu.Unlock()

	if !ok {
		if err := d.srv.hist.StartGame(r.Context(), sess.Game, owner, history.ModeDaily); err != nil {
			log.Warn().Err(err).Str("gameId", sess.Game.ID).Msg("insert daily game row")
		}
	}
	writeJSON(w, http.StatusOK, dailyNewRes{GameID: sess.Game.ID, Date: date, Low: rng.Low, High: rng.High})
}

// evictBefore drops sessions from earlier days. Callers hold d.mu.
func (d *dailyServer) evictBefore(date string) {
	for k, sess := range d.sessions {
		if sess.Date != date {
			delete(d.sessions, k)
		}
	}
}

type dailyGuessRes struct {
	Guess    uint32        `json:"guess"`
	Feedback game.Feedback `json:"feedback,omitempty"`
	State    string        `json:"state"` // awaiting_input | won | locked
	Attempts int           `json:"attempts"`
}

// handleGuess scores a guess in the caller's session for today.
func (d *dailyServer) handleGuess(w http.ResponseWriter, r *http.Request) {
	owner := d.srv.owner(w, r)
	var p guessReq
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	date := daily.DateKey(d.srv.now())

	d.mu.Lock()
	sess, ok := d.sessions[owner.ID()+"|"+date]
	if !ok || p.GameID == "" || sess.Game.ID != p.GameID {
		d.mu.Unlock()
		writeError(w, http.StatusConflict, "no session")
		return
	}
	out, err := sess.Game.Submit(p.Guess)
	d.mu.Unlock()

	switch {
	case errors.Is(err, game.ErrFinished):
		writeJSON(w, http.StatusOK, dailyGuessRes{State: stateLocked, Attempts: out.Attempts})
		return
	case errors.Is(err, game.ErrInvalidGuess):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "guess_failed")
		return
	}

	d.srv.recordOutcome(r, sess.Game.ID, out)
	if out.State.Terminal() {
		res := daily.Result{
			OwnerID:   sess.OwnerID,
			Date:      date,
			Attempts:  out.Attempts,
			ElapsedMs: int(d.srv.now().Sub(sess.Start).Milliseconds()),
		}
		if err := d.store.InsertResult(r.Context(), res); err != nil {
			log.Warn().Err(err).Str("owner", sess.OwnerID).Msg("insert daily result")
		}
	}
	writeJSON(w, http.StatusOK, dailyGuessRes{
		Guess:    out.Guess,
		Feedback: out.Feedback,
		State:    string(out.State),
		Attempts: out.Attempts,
	})
}

type lbRes struct {
	Date string        `json:"date"`
	Top  []daily.LBRow `json:"top"`
}

// handleLeaderboard returns the leaderboard for ?date= (default today).
func (d *dailyServer) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = daily.DateKey(d.srv.now())
	} else if _, err := time.Parse("2006-01-02", date); err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	rows, err := d.store.Leaderboard(r.Context(), date, daily.DefaultLimit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	writeJSON(w, http.StatusOK, lbRes{Date: date, Top: rows})
}
