package ports

import (
	"context"
	"time"

	"fortnight/internal/domain"
)

// Store is the durable backing for sessions, players, turns, decks, hands
// and the event ledger.
//
// WithinTx runs fn with a transaction installed in the derived context;
// every other operation must execute against that transaction when one is
// present, and auto-commit otherwise. All mutations performed by the core
// happen inside WithinTx so partial effects are never observable.
type Store interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error

	// Sessions.
	Session(ctx context.Context, sessionID string) (*domain.Session, error)
	RunningSessions(ctx context.Context) ([]*domain.Session, error)
	SetCurrentTurnPlayer(ctx context.Context, sessionID, userID string) error
	SetDay(ctx context.Context, sessionID string, day int) error
	SetStatus(ctx context.Context, sessionID string, status domain.Status) error

	// Players.
	Players(ctx context.Context, sessionID string) ([]*domain.Player, error)
	Player(ctx context.Context, sessionID, userID string) (*domain.Player, error)
	SetPosition(ctx context.Context, sessionID, userID string, pos, last domain.Cell) error
	SetTurnFlags(ctx context.Context, sessionID, userID string, moved, acted bool) error
	ResetTurnState(ctx context.Context, sessionID, userID string) error
	SetTurnOrder(ctx context.Context, sessionID, userID string, order int) error
	SetResolveTokens(ctx context.Context, sessionID, userID string, tokens int) error
	ApplyEffects(ctx context.Context, sessionID, userID string, eff domain.CardEffects) error
	TransferCash(ctx context.Context, sessionID, fromID, toID string, amount int64) error

	// Turn records.
	OpenTurn(ctx context.Context, sessionID string, day int, userID string, at time.Time) error
	CloseOpenTurn(ctx context.Context, sessionID, userID string, at time.Time) error
	OpenTurnCount(ctx context.Context, sessionID string) (int, error)
	ClosedTurnCount(ctx context.Context, sessionID string, day int) (int, error)

	// Decks and hands.
	DrawCard(ctx context.Context, sessionID string, deck domain.DeckKind) (*domain.Card, error)
	DiscardCard(ctx context.Context, sessionID string, deck domain.DeckKind, cardID string) error
	DiscardPile(ctx context.Context, sessionID string, deck domain.DeckKind) ([]string, error)
	RefillDeck(ctx context.Context, sessionID string, deck domain.DeckKind, order []string) error
	AddToHand(ctx context.Context, sessionID, userID, cardID string) error
	HandContains(ctx context.Context, sessionID, userID, cardID string) (bool, error)
	TransferHandCard(ctx context.Context, sessionID, cardID, fromID, toID string) error

	// Event ledger.
	AppendLog(ctx context.Context, entry *domain.LogEntry) error
	HasLog(ctx context.Context, sessionID, kind, userID string) (bool, error)
	HasLogBetweenDays(ctx context.Context, sessionID, kind, userID string, fromDay, toDay int) (bool, error)
}
