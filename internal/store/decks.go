package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"fortnight/internal/domain"
)

// DrawCard pops the head of the deck's draw order and returns the card.
// Returns ErrDeckExhausted when the draw zone is empty; recycling the
// discard pile is the caller's decision (it owns the shuffle).
func (s *Store) DrawCard(ctx context.Context, sessionID string, deck domain.DeckKind) (*domain.Card, error) {
	db := s.getDB(ctx)
	row := db.QueryRowContext(ctx,
		`SELECT c.id, c.deck, c.title, c.effects
		 FROM deck_cards d JOIN cards c ON c.id = d.card_id
		 WHERE d.session_id = ? AND d.deck = ? AND d.zone = 'draw'
		 ORDER BY d.position LIMIT 1`,
		sessionID, string(deck))
	card, err := scanCard(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("deck %s in session %s: %w", deck, sessionID, domain.ErrDeckExhausted)
		}
		return nil, mapErr(err)
	}
	_, err = db.ExecContext(ctx,
		`DELETE FROM deck_cards WHERE session_id = ? AND deck = ? AND zone = 'draw' AND card_id = ?`,
		sessionID, string(deck), card.ID)
	if err != nil {
		return nil, mapErr(err)
	}
	return card, nil
}

// DiscardCard appends the card to the deck's discard pile.
func (s *Store) DiscardCard(ctx context.Context, sessionID string, deck domain.DeckKind, cardID string) error {
	_, err := s.getDB(ctx).ExecContext(ctx,
		`INSERT INTO deck_cards (session_id, deck, zone, position, card_id)
		 VALUES (?, ?, 'discard',
			(SELECT COALESCE(MAX(position) + 1, 0) FROM deck_cards
			 WHERE session_id = ? AND deck = ? AND zone = 'discard'),
			?)`,
		sessionID, string(deck), sessionID, string(deck), cardID)
	return mapErr(err)
}

// DiscardPile lists the discard pile's card ids in discard order.
func (s *Store) DiscardPile(ctx context.Context, sessionID string, deck domain.DeckKind) ([]string, error) {
	rows, err := s.getDB(ctx).QueryContext(ctx,
		`SELECT card_id FROM deck_cards
		 WHERE session_id = ? AND deck = ? AND zone = 'discard' ORDER BY position`,
		sessionID, string(deck))
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, mapErr(err)
		}
		ids = append(ids, id)
	}
	return ids, mapErr(rows.Err())
}

// RefillDeck replaces the discard pile with a new draw order.
func (s *Store) RefillDeck(ctx context.Context, sessionID string, deck domain.DeckKind, order []string) error {
	db := s.getDB(ctx)
	_, err := db.ExecContext(ctx,
		`DELETE FROM deck_cards WHERE session_id = ? AND deck = ? AND zone = 'discard'`,
		sessionID, string(deck))
	if err != nil {
		return mapErr(err)
	}
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

// AddToHand places a card into a player's hand.
func (s *Store) AddToHand(ctx context.Context, sessionID, userID, cardID string) error {
	_, err := s.getDB(ctx).ExecContext(ctx,
		`INSERT INTO hand_cards (session_id, user_id, card_id) VALUES (?, ?, ?)`,
		sessionID, userID, cardID)
	return mapErr(err)
}

// HandContains reports whether the player holds the card.
func (s *Store) HandContains(ctx context.Context, sessionID, userID, cardID string) (bool, error) {
	var n int
	err := s.getDB(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM hand_cards WHERE session_id = ? AND user_id = ? AND card_id = ?`,
		sessionID, userID, cardID).Scan(&n)
	if err != nil {
		return false, mapErr(err)
	}
	return n > 0, nil
}

// TransferHandCard moves a card from one player's hand to another's.
func (s *Store) TransferHandCard(ctx context.Context, sessionID, cardID, fromID, toID string) error {
	res, err := s.getDB(ctx).ExecContext(ctx,
		`UPDATE hand_cards SET user_id = ? WHERE session_id = ? AND user_id = ? AND card_id = ?`,
		toID, sessionID, fromID, cardID)
	if err != nil {
		return mapErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return mapErr(err)
	}
	if n == 0 {
		return fmt.Errorf("card %s not held by %s: %w", cardID, fromID, domain.ErrCardNotFound)
	}
	return nil
}

func scanCard(scan func(dest ...any) error) (*domain.Card, error) {
	var (
		card    domain.Card
		effects string
	)
	if err := scan(&card.ID, &card.Deck, &card.Title, &effects); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(effects), &card.Effects); err != nil {
		return nil, fmt.Errorf("decode effects for card %s: %w", card.ID, err)
	}
	return &card, nil
}
