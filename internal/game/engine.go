// internal/game/engine.go
//
// Core engine for a single number-guessing game.
// Responsibilities:
//   - Create games with a secret drawn once from a RandomSource.
//   - Parse raw guess text into an unsigned integer.
//   - Compare guesses against the secret and drive the state machine.
//
// Notes:
//   - A parse failure leaves the game untouched; callers decide whether to
//     report it (HTTP) or silently re-prompt (console).
//   - The parser only enforces uint32 bounds, not the game range: a guess of
//     0 or 500 is a valid, if unhelpful, guess.
package game

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// New constructs a game over r with its secret drawn from src.
func New(src RandomSource, r Range) (*Game, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &Game{
		ID:        uuid.NewString(),
		Range:     r,
		State:     StateAwaitingInput,
		StartedAt: time.Now().UTC(),
		secret:    src.NextInRange(r.Low, r.High),
	}, nil
}

// Submit parses raw and, if it is a well-formed guess, scores it.
//
// Errors:
//   - ErrFinished when the game is already won.
//   - ErrInvalidGuess when raw does not parse; the game is not modified.
func (g *Game) Submit(raw string) (Outcome, error) {
	if g.State.Terminal() {
		return Outcome{State: g.State, Attempts: g.Attempts}, ErrFinished
	}
	guess, err := ParseGuess(raw)
	if err != nil {
		return Outcome{State: g.State, Attempts: g.Attempts}, err
	}

	fb := Compare(guess, g.secret)
	g.Attempts++
	g.State = Transition(g.State, fb)
	return Outcome{Guess: guess, Feedback: fb, State: g.State, Attempts: g.Attempts}, nil
}

// Secret returns the secret once the game is over, and ok=false before that.
func (g *Game) Secret() (n uint32, ok bool) {
	if !g.State.Terminal() {
		return 0, false
	}
	return g.secret, true
}

// ParseGuess trims surrounding whitespace and parses a base-10 uint32 with an
// optional leading '+'. Anything else (empty, '-', letters, overflow) is
// ErrInvalidGuess.
func ParseGuess(raw string) (uint32, error) {
	s := strings.TrimSpace(raw)
	if rest, ok := strings.CutPrefix(s, "+"); ok {
		// ParseUint rejects any sign, so "++5" and "+-5" still fail
		s = rest
	}
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, ErrInvalidGuess
	}
	return uint32(n), nil
}

// Compare orders guess against secret.
func Compare(guess, secret uint32) Feedback {
	switch {
	case guess < secret:
		return FeedbackTooSmall
	case guess > secret:
		return FeedbackTooBig
	default:
		return FeedbackWin
	}
}

// Transition is the state table. Terminal states absorb every input.
func Transition(s State, fb Feedback) State {
	if s.Terminal() {
		return s
	}
	if fb == FeedbackWin {
		return StateWon
	}
	return StateAwaitingInput
}
