package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"fortnight/internal/domain"
)

// Session loads one session row.
func (s *Store) Session(ctx context.Context, sessionID string) (*domain.Session, error) {
	row := s.getDB(ctx).QueryRowContext(ctx,
		`SELECT id, day, status, current_turn_player FROM sessions WHERE id = ?`, sessionID)
	var sess domain.Session
	if err := row.Scan(&sess.ID, &sess.Day, &sess.Status, &sess.CurrentTurnPlayer); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("session %s: %w", sessionID, domain.ErrSessionNotFound)
		}
		return nil, mapErr(err)
	}
	return &sess, nil
}

// RunningSessions lists sessions in the running status, ordered by id.
func (s *Store) RunningSessions(ctx context.Context) ([]*domain.Session, error) {
	rows, err := s.getDB(ctx).QueryContext(ctx,
		`SELECT id, day, status, current_turn_player FROM sessions WHERE status = ? ORDER BY id`,
		string(domain.StatusRunning))
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var sessions []*domain.Session
	for rows.Next() {
		var sess domain.Session
		if err := rows.Scan(&sess.ID, &sess.Day, &sess.Status, &sess.CurrentTurnPlayer); err != nil {
			return nil, mapErr(err)
		}
		sessions = append(sessions, &sess)
	}
	return sessions, mapErr(rows.Err())
}

// SetCurrentTurnPlayer records the acting player; empty clears it.
func (s *Store) SetCurrentTurnPlayer(ctx context.Context, sessionID, userID string) error {
	return s.updateSession(ctx, sessionID,
		`UPDATE sessions SET current_turn_player = ? WHERE id = ?`, userID)
}

// SetDay advances the session day counter.
func (s *Store) SetDay(ctx context.Context, sessionID string, day int) error {
	return s.updateSession(ctx, sessionID,
		`UPDATE sessions SET day = ? WHERE id = ?`, day)
}

// SetStatus moves the session to a new lifecycle status.
func (s *Store) SetStatus(ctx context.Context, sessionID string, status domain.Status) error {
	return s.updateSession(ctx, sessionID,
		`UPDATE sessions SET status = ? WHERE id = ?`, string(status))
}

func (s *Store) updateSession(ctx context.Context, sessionID, query string, value any) error {
	res, err := s.getDB(ctx).ExecContext(ctx, query, value, sessionID)
	if err != nil {
		return mapErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return mapErr(err)
	}
	if n == 0 {
		return fmt.Errorf("session %s: %w", sessionID, domain.ErrSessionNotFound)
	}
	return nil
}
