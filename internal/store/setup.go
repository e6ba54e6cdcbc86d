package store

import (
	"context"
	"encoding/json"
	"fmt"

	"fortnight/internal/domain"
)

// Setup writes used by the session-setup collaborator (and tests): these
// create the rows the coordinator and executor operate on. Seat
// assignment, shuffling and starting grants happen outside the core.

// CreateSession inserts a new session row.
func (s *Store) CreateSession(ctx context.Context, sess *domain.Session) error {
	_, err := s.getDB(ctx).ExecContext(ctx,
		`INSERT INTO sessions (id, day, status, current_turn_player) VALUES (?, ?, ?, ?)`,
		sess.ID, sess.Day, string(sess.Status), sess.CurrentTurnPlayer)
	return mapErr(err)
}

// AddPlayer inserts a player row for a session.
func (s *Store) AddPlayer(ctx context.Context, p *domain.Player) error {
	_, err := s.getDB(ctx).ExecContext(ctx,
		`INSERT INTO session_players (session_id, user_id, turn_order, autonomous,
		 position, last_position, moved, acted, resolve_tokens, cash, insight, charm, grit)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.SessionID, p.UserID, p.TurnOrder, p.Autonomous, int(p.Position),
		int(p.LastPosition), p.Moved, p.Acted, p.ResolveTokens, p.Cash,
		p.Insight, p.Charm, p.Grit)
	return mapErr(err)
}

// AddCard inserts a card into the catalog.
func (s *Store) AddCard(ctx context.Context, card *domain.Card) error {
	effects, err := json.Marshal(card.Effects)
	if err != nil {
		return fmt.Errorf("encode effects for card %s: %w", card.ID, err)
	}
	_, err = s.getDB(ctx).ExecContext(ctx,
		`INSERT INTO cards (id, deck, title, effects) VALUES (?, ?, ?, ?)`,
		card.ID, string(card.Deck), card.Title, string(effects))
	return mapErr(err)
}

// SeedDeck installs a deck's initial draw order for a session.
func (s *Store) SeedDeck(ctx context.Context, sessionID string, deck domain.DeckKind, order []string) error {
	db := s.getDB(ctx)
	for i, cardID := range order {
		_, err := db.ExecContext(ctx,
			`INSERT INTO deck_cards (session_id, deck, zone, position, card_id)
			 VALUES (?, ?, 'draw', ?, ?)`,
			sessionID, string(deck), i, cardID)
		if err != nil {
			return mapErr(err)
		}
	}
	return nil
}
