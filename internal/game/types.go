// internal/game/types.go
//
// Core type definitions for the number-guessing engine.
// Defines:
//   - Feedback: the category reported for one accepted guess.
//   - State:    where a game sits in its (tiny) state machine.
//   - Range:    the closed interval the secret is drawn from.
//   - Game:     state for a single in-progress or finished game.

package game

import (
	"errors"
	"fmt"
	"time"
)

// Feedback is the evaluation result for one parsed guess.
type Feedback string

const (
	FeedbackTooSmall Feedback = "too_small"
	FeedbackTooBig   Feedback = "too_big"
	FeedbackWin      Feedback = "win"
)

// State is the coarse game state exposed to callers.
//
//	awaiting_input --(too_small | too_big)--> awaiting_input
//	awaiting_input --(win)------------------> won
//
// Won is terminal.
type State string

const (
	StateAwaitingInput State = "awaiting_input"
	StateWon           State = "won"
)

// Terminal reports whether no further guesses are accepted in s.
func (s State) Terminal() bool { return s == StateWon }

var (
	ErrInvalidGuess = errors.New("invalid guess")
	ErrFinished     = errors.New("game finished")
	ErrInvalidRange = errors.New("invalid range")
)

// Range is a closed interval [Low, High].
type Range struct {
	Low  uint32 `json:"low" yaml:"low"`
	High uint32 `json:"high" yaml:"high"`
}

// DefaultRange is the classic 1..100 game.
var DefaultRange = Range{Low: 1, High: 100}

// Validate rejects empty intervals.
func (r Range) Validate() error {
	if r.Low > r.High {
		return fmt.Errorf("%w: low %d > high %d", ErrInvalidRange, r.Low, r.High)
	}
	return nil
}

// Contains reports whether n lies inside the range.
func (r Range) Contains(n uint32) bool { return n >= r.Low && n <= r.High }

// Outcome is what Submit reports for one accepted guess.
type Outcome struct {
	Guess    uint32   `json:"guess"`
	Feedback Feedback `json:"feedback"`
	State    State    `json:"state"`
	Attempts int      `json:"attempts"`
}

// Game holds the state of a single guessing game.
// The secret is unexported so it cannot leak through JSON encoding.
type Game struct {
	ID        string    // Unique game identifier (uuid).
	Range     Range     // Interval the secret was drawn from.
	Attempts  int       // Accepted (parsed) guesses so far.
	State     State     // awaiting_input or won.
	StartedAt time.Time // Creation time, UTC.
	secret    uint32
}
