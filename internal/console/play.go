// internal/console/play.go
//
// Interactive line-oriented front end for a single game.
// Responsibilities:
//   - Prompt, read one line, submit it, print feedback; repeat until won.
//   - Swallow malformed guesses without any message (the prompt repeats).
//   - Treat an unreadable or exhausted input stream as fatal.
//
// Input stream policy:
//   - A last line without a trailing newline is still scored.
//   - A read that returns no data and io.EOF yields ErrInputClosed.
//   - Any other read error yields ErrInputRead.
//   Both are returned to the caller, which terminates the process.

package console

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"

	"github.com/jtsiddons/guessing-game/internal/game"
)

var (
	ErrInputClosed = errors.New("input closed before the game was won")
	ErrInputRead   = errors.New("failed to read line")
)

// Result summarises a won game.
type Result struct {
	GameID   string
	Attempts int
	Duration time.Duration
}

// Play runs g to completion against in/out.
func Play(in io.Reader, out io.Writer, g *game.Game) (Result, error) {
	start := time.Now()
	st := newStyles(out)
	rd := bufio.NewReader(in)

	fmt.Fprintln(out, st.title.Render("Guess the number!"))
	log.Debug().Str("gameId", g.ID).Uint32("low", g.Range.Low).Uint32("high", g.Range.High).Msg("game started")

	for !g.State.Terminal() {
		fmt.Fprintln(out, "Please input your guess.")

		line, err := rd.ReadString('\n')
		if err != nil {
			if !errors.Is(err, io.EOF) {
				return Result{}, fmt.Errorf("%w: %w", ErrInputRead, err)
			}
			if line == "" {
				return Result{}, ErrInputClosed
			}
		}

		oc, err := g.Submit(line)
		if errors.Is(err, game.ErrInvalidGuess) {
			continue
		}
		if err != nil {
			return Result{}, err
		}

		fmt.Fprintf(out, "You guessed: %d\n", oc.Guess)
		switch oc.Feedback {
		case game.FeedbackTooSmall:
			fmt.Fprintln(out, st.small.Render("Too small!"))
		case game.FeedbackTooBig:
			fmt.Fprintln(out, st.big.Render("Too big!"))
		case game.FeedbackWin:
			fmt.Fprintln(out, st.win.Render("You win!"))
		}
	}

	res := Result{GameID: g.ID, Attempts: g.Attempts, Duration: time.Since(start)}
	log.Info().Str("gameId", g.ID).Int("attempts", res.Attempts).Dur("elapsed", res.Duration).Msg("game won")
	return res, nil
}

type styles struct {
	title, small, big, win lipgloss.Style
}

// newStyles binds styles to out so that pipes and buffers get plain text.
func newStyles(out io.Writer) styles {
	r := lipgloss.NewRenderer(out)
	return styles{
		title: r.NewStyle().Bold(true),
		small: r.NewStyle().Foreground(lipgloss.Color("12")),
		big:   r.NewStyle().Foreground(lipgloss.Color("9")),
		win:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
	}
}
