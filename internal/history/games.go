package history

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jtsiddons/guessing-game/internal/game"
)

// Game modes stored in games.mode.
const (
	ModeClassic = "classic"
	ModeDaily   = "daily"
)

// Owner identifies who a game belongs to: a registered user or an
// anonymous identifier (browser cookie, or "cli:<player>" for the console).
type Owner struct {
	UserID string
	AnonID string
}

// CLIOwner is the owner used for console games recorded under player.
func CLIOwner(player string) Owner { return Owner{AnonID: "cli:" + player} }

// ID is the single identifier used where one key per owner is needed
// (daily results).
func (o Owner) ID() string {
	if o.UserID != "" {
		return o.UserID
	}
	return o.AnonID
}

func (o Owner) clause() (string, any) {
	if o.UserID != "" {
		return `user_id=?`, o.UserID
	}
	return `anonymous_id=?`, o.AnonID
}

// GameRow is the persisted view of a game.
type GameRow struct {
	ID         string `json:"id"`
	Mode       string `json:"mode"`
	Low        uint32 `json:"low"`
	High       uint32 `json:"high"`
	Status     string `json:"status"`
	Attempts   int    `json:"attempts"`
	StartedAt  string `json:"startedAt"`
	FinishedAt string `json:"finishedAt,omitempty"`
}

// Summary aggregates an owner's games.
type Summary struct {
	Played       int     `json:"played"`
	Won          int     `json:"won"`
	BestAttempts int     `json:"bestAttempts"`
	AvgAttempts  float64 `json:"avgAttempts"`
}

// StartGame inserts an owner row for g. The secret is not stored.
func (s *Store) StartGame(ctx context.Context, g *game.Game, owner Owner, mode string) error {
	var userID, anonID any
	if owner.UserID != "" {
		userID = owner.UserID
	} else {
		anonID = owner.AnonID
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO games (id, user_id, anonymous_id, mode, range_low, range_high, status, attempts, started_at)
		 VALUES (?,?,?,?,?,?,?,0,?)`,
		g.ID, userID, anonID, mode, g.Range.Low, g.Range.High, string(g.State),
		g.StartedAt.UTC().Format(time.RFC3339))
	return err
}

// RecordAttempt bumps the attempt counter of an unfinished game.
func (s *Store) RecordAttempt(ctx context.Context, gameID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE games SET attempts = attempts + 1 WHERE id=? AND finished_at IS NULL`, gameID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// FinishGame marks gameID won with the final attempt count and, when the
// game belongs to a registered user, updates that user's stats in the same
// transaction.
func (s *Store) FinishGame(ctx context.Context, gameID string, attempts int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var userID sql.NullString
	err = tx.QueryRowContext(ctx,
		`SELECT user_id FROM games WHERE id=? AND finished_at IS NULL`, gameID).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE games SET status=?, attempts=?, finished_at=? WHERE id=?`,
		string(game.StateWon), attempts, time.Now().UTC().Format(time.RFC3339), gameID); err != nil {
		return err
	}
	if userID.Valid {
		if err := bumpStats(ctx, tx, userID.String, attempts); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// bumpStats adds one win to the user's counters and tracks the best game.
func bumpStats(ctx context.Context, tx *sql.Tx, userID string, attempts int) error {
	var won, total, best int
	row := tx.QueryRowContext(ctx, `SELECT games_won, total_attempts, best_attempts FROM users WHERE id=?`, userID)
	if err := row.Scan(&won, &total, &best); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	won++
	total += attempts
	if best == 0 || attempts < best {
		best = attempts
	}
	_, err := tx.ExecContext(ctx,
		`UPDATE users SET games_won=?, total_attempts=?, best_attempts=? WHERE id=?`, won, total, best, userID)
	return err
}

// RecentGames lists the owner's latest games, newest first.
func (s *Store) RecentGames(ctx context.Context, owner Owner, limit int) ([]GameRow, error) {
	if limit <= 0 {
		limit = 50
	}
	where, arg := owner.clause()
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, mode, range_low, range_high, status, attempts, started_at, COALESCE(finished_at,'')
		 FROM games WHERE `+where+` ORDER BY started_at DESC, rowid DESC LIMIT ?`, arg, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []GameRow{}
	for rows.Next() {
		var gr GameRow
		if err := rows.Scan(&gr.ID, &gr.Mode, &gr.Low, &gr.High, &gr.Status, &gr.Attempts, &gr.StartedAt, &gr.FinishedAt); err != nil {
			return nil, err
		}
		out = append(out, gr)
	}
	return out, rows.Err()
}

// Summary aggregates every game of owner.
func (s *Store) Summary(ctx context.Context, owner Owner) (Summary, error) {
	where, arg := owner.clause()
	var sum Summary
	var best sql.NullInt64
	var avg sql.NullFloat64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1),
		        COUNT(finished_at),
		        MIN(CASE WHEN finished_at IS NOT NULL THEN attempts END),
		        AVG(CASE WHEN finished_at IS NOT NULL THEN attempts END)
		 FROM games WHERE `+where, arg,
	).Scan(&sum.Played, &sum.Won, &best, &avg)
	if err != nil {
		return Summary{}, err
	}
	sum.BestAttempts = int(best.Int64)
	sum.AvgAttempts = avg.Float64
	return sum, nil
}

// ClaimAnonGames moves an anonymous history (games and daily results) to userID.
func (s *Store) ClaimAnonGames(ctx context.Context, anonID, userID string) error {
	if anonID == "" || userID == "" {
		return nil
	}
	if _, err := s.db.ExecContext(ctx,
		`UPDATE games SET user_id=?, anonymous_id=NULL WHERE anonymous_id=?`, userID, anonID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE OR IGNORE daily_results SET owner_id=? WHERE owner_id=?`, userID, anonID)
	return err
}
