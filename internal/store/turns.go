package store

import (
	"context"
	"fmt"
	"time"
)

// OpenTurn appends a new open turn record for the player.
func (s *Store) OpenTurn(ctx context.Context, sessionID string, day int, userID string, at time.Time) error {
	_, err := s.getDB(ctx).ExecContext(ctx,
		`INSERT INTO turn_records (session_id, day, user_id, started_at) VALUES (?, ?, ?, ?)`,
		sessionID, day, userID, at.UTC().Format(time.RFC3339Nano))
	return mapErr(err)
}

// CloseOpenTurn stamps the player's open turn record as ended.
func (s *Store) CloseOpenTurn(ctx context.Context, sessionID, userID string, at time.Time) error {
	res, err := s.getDB(ctx).ExecContext(ctx,
		`UPDATE turn_records SET ended_at = ? WHERE session_id = ? AND user_id = ? AND ended_at IS NULL`,
		at.UTC().Format(time.RFC3339Nano), sessionID, userID)
	if err != nil {
		return mapErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return mapErr(err)
	}
	if n == 0 {
		return fmt.Errorf("no open turn for player %s in session %s", userID, sessionID)
	}
	return nil
}

// OpenTurnCount counts open turn records; the invariant is at most one.
func (s *Store) OpenTurnCount(ctx context.Context, sessionID string) (int, error) {
	return s.countTurns(ctx,
		`SELECT COUNT(*) FROM turn_records WHERE session_id = ? AND ended_at IS NULL`, sessionID)
}

// ClosedTurnCount counts completed turns for the given day.
func (s *Store) ClosedTurnCount(ctx context.Context, sessionID string, day int) (int, error) {
	return s.countTurns(ctx,
		`SELECT COUNT(*) FROM turn_records WHERE session_id = ? AND day = ? AND ended_at IS NOT NULL`,
		sessionID, day)
}

func (s *Store) countTurns(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	if err := s.getDB(ctx).QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, mapErr(err)
	}
	return n, nil
}
