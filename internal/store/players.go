package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"fortnight/internal/domain"
)

const playerColumns = `session_id, user_id, turn_order, autonomous, position,
	last_position, moved, acted, resolve_tokens, cash, insight, charm, grit`

func scanPlayer(scan func(dest ...any) error) (*domain.Player, error) {
	var p domain.Player
	err := scan(&p.SessionID, &p.UserID, &p.TurnOrder, &p.Autonomous, &p.Position,
		&p.LastPosition, &p.Moved, &p.Acted, &p.ResolveTokens, &p.Cash,
		&p.Insight, &p.Charm, &p.Grit)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Players lists a session's players in turn order.
func (s *Store) Players(ctx context.Context, sessionID string) ([]*domain.Player, error) {
	rows, err := s.getDB(ctx).QueryContext(ctx,
		`SELECT `+playerColumns+` FROM session_players WHERE session_id = ? ORDER BY turn_order`,
		sessionID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var players []*domain.Player
	for rows.Next() {
		p, err := scanPlayer(rows.Scan)
		if err != nil {
			return nil, mapErr(err)
		}
		players = append(players, p)
	}
	return players, mapErr(rows.Err())
}

// Player loads one player row.
func (s *Store) Player(ctx context.Context, sessionID, userID string) (*domain.Player, error) {
	row := s.getDB(ctx).QueryRowContext(ctx,
		`SELECT `+playerColumns+` FROM session_players WHERE session_id = ? AND user_id = ?`,
		sessionID, userID)
	p, err := scanPlayer(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("player %s in session %s: %w", userID, sessionID, domain.ErrPlayerNotFound)
		}
		return nil, mapErr(err)
	}
	return p, nil
}

// SetPosition moves the player, recording the cell they came from.
func (s *Store) SetPosition(ctx context.Context, sessionID, userID string, pos, last domain.Cell) error {
	return s.updatePlayer(ctx, sessionID, userID,
		`UPDATE session_players SET position = ?, last_position = ? WHERE session_id = ? AND user_id = ?`,
		int(pos), int(last))
}

// SetTurnFlags updates the per-turn moved/acted pair.
func (s *Store) SetTurnFlags(ctx context.Context, sessionID, userID string, moved, acted bool) error {
	return s.updatePlayer(ctx, sessionID, userID,
		`UPDATE session_players SET moved = ?, acted = ? WHERE session_id = ? AND user_id = ?`,
		moved, acted)
}

// ResetTurnState clears the turn-scoped flags and the last position,
// performed when a player's turn begins.
func (s *Store) ResetTurnState(ctx context.Context, sessionID, userID string) error {
	res, err := s.getDB(ctx).ExecContext(ctx,
		`UPDATE session_players SET moved = 0, acted = 0, last_position = 0
		 WHERE session_id = ? AND user_id = ?`, sessionID, userID)
	if err != nil {
		return mapErr(err)
	}
	return s.requireRow(res, sessionID, userID)
}

// SetTurnOrder reassigns a player's seat order.
func (s *Store) SetTurnOrder(ctx context.Context, sessionID, userID string, order int) error {
	return s.updatePlayer(ctx, sessionID, userID,
		`UPDATE session_players SET turn_order = ? WHERE session_id = ? AND user_id = ?`, order)
}

// SetResolveTokens sets the player's resolve token count.
func (s *Store) SetResolveTokens(ctx context.Context, sessionID, userID string, tokens int) error {
	return s.updatePlayer(ctx, sessionID, userID,
		`UPDATE session_players SET resolve_tokens = ? WHERE session_id = ? AND user_id = ?`, tokens)
}

// ApplyEffects adds a card's deltas to the player's currency and traits.
func (s *Store) ApplyEffects(ctx context.Context, sessionID, userID string, eff domain.CardEffects) error {
	res, err := s.getDB(ctx).ExecContext(ctx,
		`UPDATE session_players SET cash = cash + ?, insight = insight + ?,
		 charm = charm + ?, grit = grit + ? WHERE session_id = ? AND user_id = ?`,
		eff.Cash, eff.Insight, eff.Charm, eff.Grit, sessionID, userID)
	if err != nil {
		return mapErr(err)
	}
	return s.requireRow(res, sessionID, userID)
}

// TransferCash moves funds between two players of the same session,
// failing without effect when the sender cannot cover the amount.
func (s *Store) TransferCash(ctx context.Context, sessionID, fromID, toID string, amount int64) error {
	from, err := s.Player(ctx, sessionID, fromID)
	if err != nil {
		return err
	}
	if from.Cash < amount {
		return fmt.Errorf("player %s has %d, needs %d: %w", fromID, from.Cash, amount, domain.ErrInsufficientFunds)
	}
	if err := s.ApplyEffects(ctx, sessionID, fromID, domain.CardEffects{Cash: -amount}); err != nil {
		return err
	}
	return s.ApplyEffects(ctx, sessionID, toID, domain.CardEffects{Cash: amount})
}

func (s *Store) updatePlayer(ctx context.Context, sessionID, userID, query string, values ...any) error {
	args := append(values, sessionID, userID)
	res, err := s.getDB(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return mapErr(err)
	}
	return s.requireRow(res, sessionID, userID)
}

func (s *Store) requireRow(res sql.Result, sessionID, userID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return mapErr(err)
	}
	if n == 0 {
		return fmt.Errorf("player %s in session %s: %w", userID, sessionID, domain.ErrPlayerNotFound)
	}
	return nil
}
