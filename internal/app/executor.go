package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/heroiclabs/nakama-common/runtime"

	"fortnight/internal/domain"
	"fortnight/internal/ports"
)

// ActionResult reports a performed action: the drawn card and a short
// human-readable summary of its effects.
type ActionResult struct {
	Card    *domain.Card
	Summary string
}

// Executor validates and applies one player's move and board action within
// their turn. Preconditions are checked before any mutation; a violation
// aborts the enclosing transaction so no partial effect is observable.
type Executor struct {
	store    ports.Store
	turns    *Coordinator
	notifier Notifier
	logger   runtime.Logger

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewExecutor constructs an Executor with the provided rng or a
// time-seeded default. The rng drives discard-pool reshuffles.
func NewExecutor(st ports.Store, turns *Coordinator, notifier Notifier, logger runtime.Logger, rng *rand.Rand) *Executor {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Executor{store: st, turns: turns, notifier: notifier, logger: logger, rng: rng}
}

// Move relocates the player to an adjacent cell. The previous cell becomes
// their last position, which the next step may not immediately revisit.
func (e *Executor) Move(ctx context.Context, sessionID, userID string, target domain.Cell) error {
	if err := e.turns.ValidateTurn(sessionID, userID); err != nil {
		return err
	}
	err := e.store.WithinTx(ctx, func(ctx context.Context) error {
		player, err := e.store.Player(ctx, sessionID, userID)
		if err != nil {
			return err
		}
		if !player.Position.Adjacent(target) {
			return fmt.Errorf("move %s to %s: %w", player.Position.Name(), target.Name(), domain.ErrNotAdjacent)
		}
		if target == player.LastPosition {
			return fmt.Errorf("move back to %s: %w", target.Name(), domain.ErrImmediateRepeat)
		}
		if err := e.store.SetPosition(ctx, sessionID, userID, target, player.Position); err != nil {
			return err
		}
		if err := e.store.SetTurnFlags(ctx, sessionID, userID, true, player.Acted); err != nil {
			return err
		}
		sess, err := e.store.Session(ctx, sessionID)
		if err != nil {
			return err
		}
		return e.store.AppendLog(ctx, &domain.LogEntry{
			SessionID: sessionID, Kind: domain.LogMoved, UserID: userID, Day: sess.Day,
			Payload: map[string]any{"from": int(player.Position), "to": int(target)},
		})
	})
	if err != nil {
		return err
	}
	e.notifier.Publish(ctx, sessionID, Event{
		Kind:    EventStateUpdated,
		Payload: StateUpdatedPayload{UserID: userID, Reason: "moved"},
	})
	return nil
}

// PerformAction draws from the deck mapped to the given action type and
// applies the card. Requires a prior move this turn and at most one action
// per turn. The action must match the player's cell, except on the
// free-action cell which accepts any action type.
func (e *Executor) PerformAction(ctx context.Context, sessionID, userID string, action int) (*ActionResult, error) {
	if err := e.turns.ValidateTurn(sessionID, userID); err != nil {
		return nil, err
	}
	var result *ActionResult
	err := e.store.WithinTx(ctx, func(ctx context.Context) error {
		player, err := e.store.Player(ctx, sessionID, userID)
		if err != nil {
			return err
		}
		if !player.Moved {
			return fmt.Errorf("player %s: %w", userID, domain.ErrMoveRequired)
		}
		if player.Acted {
			return fmt.Errorf("player %s: %w", userID, domain.ErrAlreadyActed)
		}
		if action < 1 || action > domain.ActionCount {
			return fmt.Errorf("action %d: %w", action, domain.ErrUnknownAction)
		}
		if !player.Position.ActionAllowedAt(action) {
			return fmt.Errorf("action %d at %s: %w", action, player.Position.Name(), domain.ErrWrongCell)
		}
		result, err = e.drawAndApply(ctx, sessionID, userID, action)
		if err != nil {
			return err
		}
		return e.store.SetTurnFlags(ctx, sessionID, userID, true, true)
	})
	if err != nil {
		return nil, err
	}
	e.notifier.Publish(ctx, sessionID, Event{
		Kind:    EventStateUpdated,
		Payload: StateUpdatedPayload{UserID: userID, Reason: "action"},
	})
	return result, nil
}

// UseResolveToken spends a resolve token on an extra action without a
// move. The chosen action may not repeat the immediately preceding one.
func (e *Executor) UseResolveToken(ctx context.Context, sessionID, userID string, action int) (*ActionResult, error) {
	if err := e.turns.ValidateTurn(sessionID, userID); err != nil {
		return nil, err
	}
	var result *ActionResult
	err := e.store.WithinTx(ctx, func(ctx context.Context) error {
		player, err := e.store.Player(ctx, sessionID, userID)
		if err != nil {
			return err
		}
		if player.ResolveTokens <= 0 {
			return fmt.Errorf("player %s: %w", userID, domain.ErrNoResolveTokens)
		}
		if action < 1 || action > domain.ActionCount {
			return fmt.Errorf("action %d: %w", action, domain.ErrUnknownAction)
		}
		if domain.Cell(action) == player.LastPosition {
			return fmt.Errorf("action %d repeats previous: %w", action, domain.ErrImmediateRepeat)
		}
		if err := e.store.SetResolveTokens(ctx, sessionID, userID, player.ResolveTokens-1); err != nil {
			return err
		}
		sess, err := e.store.Session(ctx, sessionID)
		if err != nil {
			return err
		}
		// Day-stamped so the autonomous scheduler can tell which usage
		// window has already been spent.
		if err := e.store.AppendLog(ctx, &domain.LogEntry{
			SessionID: sessionID, Kind: domain.LogResolveUsed, UserID: userID, Day: sess.Day,
			Payload: map[string]any{"action": action},
		}); err != nil {
			return err
		}
		result, err = e.drawAndApply(ctx, sessionID, userID, action)
		return err
	})
	if err != nil {
		return nil, err
	}
	e.notifier.Publish(ctx, sessionID, Event{
		Kind:    EventStateUpdated,
		Payload: StateUpdatedPayload{UserID: userID, Reason: "resolve"},
	})
	return result, nil
}

// drawAndApply draws the head of the action's deck, recycling the discard
// pool once if the draw order is empty, applies the card's effects and
// routes the card to the player's hand (plan decks) or the discard pile.
// Runs inside the caller's transaction.
func (e *Executor) drawAndApply(ctx context.Context, sessionID, userID string, action int) (*ActionResult, error) {
	deck := domain.DeckForAction(action)
	card, err := e.store.DrawCard(ctx, sessionID, deck)
	if errors.Is(err, domain.ErrDeckExhausted) {
		pile, pileErr := e.store.DiscardPile(ctx, sessionID, deck)
		if pileErr != nil {
			return nil, pileErr
		}
		if len(pile) == 0 {
			return nil, err
		}
		e.shuffle(pile)
		if err := e.store.RefillDeck(ctx, sessionID, deck, pile); err != nil {
			return nil, err
		}
		if e.logger != nil {
			e.logger.Debug("Recycled %d discarded cards into the %s deck for session %s.", len(pile), deck, sessionID)
		}
		card, err = e.store.DrawCard(ctx, sessionID, deck)
	}
	if err != nil {
		return nil, err
	}

	if err := e.store.ApplyEffects(ctx, sessionID, userID, card.Effects); err != nil {
		return nil, err
	}
	if deck.Plan() {
		if err := e.store.AddToHand(ctx, sessionID, userID, card.ID); err != nil {
			return nil, err
		}
	} else {
		if err := e.store.DiscardCard(ctx, sessionID, deck, card.ID); err != nil {
			return nil, err
		}
	}

	sess, err := e.store.Session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := e.store.AppendLog(ctx, &domain.LogEntry{
		SessionID: sessionID, Kind: domain.LogActionPerformed, UserID: userID, Day: sess.Day,
		Payload: map[string]any{"action": action, "card": card.ID},
	}); err != nil {
		return nil, err
	}

	return &ActionResult{
		Card:    card,
		Summary: fmt.Sprintf("%s: %s", card.Title, card.Effects.Describe()),
	}, nil
}

func (e *Executor) shuffle(ids []string) {
	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	e.rng.Shuffle(len(ids), func(i, j int) {
		ids[i], ids[j] = ids[j], ids[i]
	})
}
