package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/heroiclabs/nakama-common/runtime"

	"fortnight/internal/domain"
	"fortnight/internal/ports"
)

// turnLocks maps sessionID to the player currently authorized to act. It
// mirrors Session.CurrentTurnPlayer but lives in process memory; only the
// Coordinator mutates it, and only after the matching transaction commits.
type turnLocks struct {
	mu      sync.Mutex
	holders map[string]string
}

func newTurnLocks() *turnLocks {
	return &turnLocks{holders: make(map[string]string)}
}

func (l *turnLocks) holder(sessionID string) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	h, ok := l.holders[sessionID]
	return h, ok
}

func (l *turnLocks) set(sessionID, userID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.holders[sessionID] = userID
}

func (l *turnLocks) clear(sessionID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.holders, sessionID)
}

// handoff clears the previous holder and installs the next one as a single
// step, so no observer ever sees a stale holder between turns.
func (l *turnLocks) handoff(sessionID, userID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.holders, sessionID)
	l.holders[sessionID] = userID
}

// Handoff reports the outcome of ending a turn.
type Handoff struct {
	NextPlayer string
	GameEnded  bool
	Autonomous bool
}

// Coordinator owns per-session turn exclusivity and the day/turn-order
// state machine. All durable effects of a transition happen in one store
// transaction; the in-memory lock is updated only after commit.
type Coordinator struct {
	store    ports.Store
	notifier Notifier
	logger   runtime.Logger
	locks    *turnLocks
}

// NewCoordinator constructs a Coordinator.
func NewCoordinator(st ports.Store, notifier Notifier, logger runtime.Logger) *Coordinator {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Coordinator{
		store:    st,
		notifier: notifier,
		logger:   logger,
		locks:    newTurnLocks(),
	}
}

// ValidateTurn fails with ErrTurnViolation unless userID holds the
// session's turn lock. Called before any turn-scoped mutation.
func (c *Coordinator) ValidateTurn(sessionID, userID string) error {
	holder, ok := c.locks.holder(sessionID)
	if !ok || holder != userID {
		return fmt.Errorf("session %s: player %s: %w", sessionID, userID, domain.ErrTurnViolation)
	}
	return nil
}

// LockHolder returns the current lock holder, if any.
func (c *Coordinator) LockHolder(sessionID string) (string, bool) {
	return c.locks.holder(sessionID)
}

// RebuildLocks reconstructs the lock table from persisted session state.
// Called once at startup so an open turn survives a process restart.
func (c *Coordinator) RebuildLocks(ctx context.Context) error {
	sessions, err := c.store.RunningSessions(ctx)
	if err != nil {
		return fmt.Errorf("rebuild turn locks: %w", err)
	}
	restored := 0
	for _, sess := range sessions {
		if sess.CurrentTurnPlayer == "" {
			continue
		}
		c.locks.set(sess.ID, sess.CurrentTurnPlayer)
		restored++
	}
	if c.logger != nil && restored > 0 {
		c.logger.Info("Restored %d turn locks from persisted sessions.", restored)
	}
	return nil
}

// StartTurn begins a turn for the player. The session must be running and
// have no open turn. The lock is set only after the transaction commits,
// so a lock never points at state that was not durably written.
func (c *Coordinator) StartTurn(ctx context.Context, sessionID, userID string) error {
	var started TurnStartedPayload
	err := c.store.WithinTx(ctx, func(ctx context.Context) error {
		sess, err := c.store.Session(ctx, sessionID)
		if err != nil {
			return err
		}
		if sess.Status != domain.StatusRunning {
			return fmt.Errorf("session %s is %s: %w", sessionID, sess.Status, domain.ErrSessionNotRunning)
		}
		open, err := c.store.OpenTurnCount(ctx, sessionID)
		if err != nil {
			return err
		}
		if open != 0 {
			return fmt.Errorf("session %s already has an open turn: %w", sessionID, domain.ErrDuplicateTurn)
		}
		player, err := c.store.Player(ctx, sessionID, userID)
		if err != nil {
			return err
		}
		if err := c.openTurnTx(ctx, sessionID, sess.Day, player, time.Now()); err != nil {
			return err
		}
		started = TurnStartedPayload{UserID: userID, Day: sess.Day, Autonomous: player.Autonomous}
		return nil
	})
	if err != nil {
		return err
	}
	c.locks.set(sessionID, userID)
	c.notifier.Publish(ctx, sessionID, Event{Kind: EventTurnStarted, Payload: started})
	return nil
}

// EndTurn closes the player's turn and performs exactly one transition:
// hand the turn to the next seat, roll the day over, or end the game. The
// whole transition, including opening the next turn, is one transaction.
func (c *Coordinator) EndTurn(ctx context.Context, sessionID, userID string) (*Handoff, error) {
	if err := c.ValidateTurn(sessionID, userID); err != nil {
		return nil, err
	}

	var (
		h         Handoff
		started   TurnStartedPayload
		recovered []ResourceRecoveredPayload
	)
	err := c.store.WithinTx(ctx, func(ctx context.Context) error {
		now := time.Now()
		sess, err := c.store.Session(ctx, sessionID)
		if err != nil {
			return err
		}
		players, err := c.store.Players(ctx, sessionID)
		if err != nil {
			return err
		}
		n := len(players)
		cur := domain.FindPlayer(players, userID)
		if cur == nil {
			return fmt.Errorf("player %s in session %s: %w", userID, sessionID, domain.ErrPlayerNotFound)
		}

		if err := c.store.CloseOpenTurn(ctx, sessionID, userID, now); err != nil {
			return err
		}
		if err := c.store.AppendLog(ctx, &domain.LogEntry{
			SessionID: sessionID, Kind: domain.LogTurnEnded, UserID: userID, Day: sess.Day,
		}); err != nil {
			return err
		}

		closed, err := c.store.ClosedTurnCount(ctx, sessionID, sess.Day)
		if err != nil {
			return err
		}
		switch {
		case closed > n:
			// More finished turns than seats is a defect, never a race we
			// can recover from. Abort before anything else is written.
			return fmt.Errorf("session %s day %d: %d closed turns for %d players: %w",
				sessionID, sess.Day, closed, n, domain.ErrDuplicateTurn)

		case closed < n:
			next := domain.PlayerAtOrder(players, domain.NextOrder(cur.TurnOrder, n))
			if next == nil {
				return fmt.Errorf("no player at order %d in session %s: %w",
					domain.NextOrder(cur.TurnOrder, n), sessionID, domain.ErrPlayerNotFound)
			}
			if err := c.openTurnTx(ctx, sessionID, sess.Day, next, now); err != nil {
				return err
			}
			h = Handoff{NextPlayer: next.UserID, Autonomous: next.Autonomous}
			started = TurnStartedPayload{UserID: next.UserID, Day: sess.Day, Autonomous: next.Autonomous}

		default:
			// Every seat played today.
			newDay := sess.Day + 1
			if newDay > domain.FinalDay {
				if err := c.store.SetStatus(ctx, sessionID, domain.StatusFinalizing); err != nil {
					return err
				}
				if err := c.store.SetCurrentTurnPlayer(ctx, sessionID, ""); err != nil {
					return err
				}
				if err := c.store.AppendLog(ctx, &domain.LogEntry{
					SessionID: sessionID, Kind: domain.LogGameEnded, Day: sess.Day,
				}); err != nil {
					return err
				}
				h = Handoff{GameEnded: true}
				return nil
			}

			if err := c.store.SetDay(ctx, sessionID, newDay); err != nil {
				return err
			}
			if err := c.store.AppendLog(ctx, &domain.LogEntry{
				SessionID: sessionID, Kind: domain.LogDayRolled, Day: newDay,
			}); err != nil {
				return err
			}

			if newDay == domain.RecoveryDay {
				rec, err := c.recoverResolveTokens(ctx, sessionID, newDay, players)
				if err != nil {
					return err
				}
				recovered = rec
			}

			// Left rotation of seating: order 0 moves to n-1, the rest
			// shift down, so a new player opens each day.
			for _, p := range players {
				if err := c.store.SetTurnOrder(ctx, sessionID, p.UserID,
					domain.RotatedOrder(p.TurnOrder, n)); err != nil {
					return err
				}
			}
			next := domain.PlayerAtOrder(players, 1%n) // old order 1 is the new order 0
			if next == nil {
				return fmt.Errorf("no player at order %d in session %s: %w", 1%n, sessionID, domain.ErrPlayerNotFound)
			}
			if err := c.openTurnTx(ctx, sessionID, newDay, next, now); err != nil {
				return err
			}
			h = Handoff{NextPlayer: next.UserID, Autonomous: next.Autonomous}
			started = TurnStartedPayload{UserID: next.UserID, Day: newDay, Autonomous: next.Autonomous}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if h.GameEnded {
		c.locks.clear(sessionID)
		c.notifier.Publish(ctx, sessionID, Event{Kind: EventGameEnded, Payload: GameEndedPayload{Day: domain.FinalDay}})
		return &h, nil
	}
	c.locks.handoff(sessionID, h.NextPlayer)
	for _, rec := range recovered {
		c.notifier.Publish(ctx, sessionID, Event{Kind: EventResourceRecovered, Payload: rec})
	}
	c.notifier.Publish(ctx, sessionID, Event{Kind: EventTurnStarted, Payload: started})
	return &h, nil
}

// openTurnTx applies the durable effects of starting a turn: open the turn
// record, set the session's current player and clear the player's
// turn-scoped state. Runs inside the caller's transaction.
func (c *Coordinator) openTurnTx(ctx context.Context, sessionID string, day int, p *domain.Player, now time.Time) error {
	if err := c.store.OpenTurn(ctx, sessionID, day, p.UserID, now); err != nil {
		return err
	}
	if err := c.store.SetCurrentTurnPlayer(ctx, sessionID, p.UserID); err != nil {
		return err
	}
	if err := c.store.ResetTurnState(ctx, sessionID, p.UserID); err != nil {
		return err
	}
	return c.store.AppendLog(ctx, &domain.LogEntry{
		SessionID: sessionID, Kind: domain.LogTurnStarted, UserID: p.UserID, Day: day,
	})
}

// recoverResolveTokens grants one token to every player at zero, exactly
// once per game. The ledger, not memory, decides whether a player already
// recovered, so replaying the rollover cannot double-grant.
func (c *Coordinator) recoverResolveTokens(ctx context.Context, sessionID string, day int, players []*domain.Player) ([]ResourceRecoveredPayload, error) {
	var recovered []ResourceRecoveredPayload
	for _, p := range players {
		if p.ResolveTokens != 0 {
			continue
		}
		has, err := c.store.HasLog(ctx, sessionID, domain.LogResolveRecovered, p.UserID)
		if err != nil {
			return nil, err
		}
		if has {
			continue
		}
		if err := c.store.SetResolveTokens(ctx, sessionID, p.UserID, 1); err != nil {
			return nil, err
		}
		if err := c.store.AppendLog(ctx, &domain.LogEntry{
			SessionID: sessionID, Kind: domain.LogResolveRecovered, UserID: p.UserID, Day: day,
			Payload: map[string]any{"tokens": 1},
		}); err != nil {
			return nil, err
		}
		recovered = append(recovered, ResourceRecoveredPayload{UserID: p.UserID, Tokens: 1})
	}
	return recovered, nil
}
