package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/heroiclabs/nakama-common/runtime"

	"fortnight/internal/domain"
	"fortnight/internal/ports"
)

// InteractionKind identifies the effect applied when the target accepts.
type InteractionKind string

const (
	// KindTransfer sends cash from the requester to the target.
	KindTransfer InteractionKind = "transfer"
	// KindTrade exchanges one hand card each way between the two players.
	KindTrade InteractionKind = "trade"
	// KindSwap exchanges the two players' board positions.
	KindSwap InteractionKind = "swap"
	// KindRally relocates every other player to the requester's cell.
	KindRally InteractionKind = "rally"
)

// Proposal describes a requested interaction. TargetID is empty for
// session-wide kinds (rally); the kind-specific fields are ignored by
// kinds that do not use them.
type Proposal struct {
	Kind        InteractionKind
	RequesterID string
	TargetID    string
	Amount      int64  // transfer
	OfferCardID string // trade: card the requester gives
	WantCardID  string // trade: card the requester receives
}

// Outcome is the settlement of an interaction. It is delivered exactly
// once per interaction, from whichever of respond or the deadline timer
// fires first.
type Outcome struct {
	InteractionID string
	Kind          InteractionKind
	Accepted      bool
	TimedOut      bool
}

// Pending is the caller's handle on an in-flight interaction. Done yields
// the single settlement.
type Pending struct {
	ID       string
	Deadline time.Time
	Done     <-chan Outcome
}

type pendingEntry struct {
	sessionID string
	proposal  Proposal
	deadline  time.Time
	timer     *time.Timer
	done      chan Outcome
}

// Broker runs timed request/response rendezvous between players,
// independent of turn state. Pending interactions live only in process
// memory; they are in-flight requests, not game state, so a restart drops
// them without harm.
type Broker struct {
	store    ports.Store
	notifier Notifier
	logger   runtime.Logger
	wait     time.Duration

	mu      sync.Mutex
	pending map[string]*pendingEntry
}

// NewBroker constructs a Broker with the given response window.
func NewBroker(st ports.Store, notifier Notifier, logger runtime.Logger, wait time.Duration) *Broker {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Broker{
		store:    st,
		notifier: notifier,
		logger:   logger,
		wait:     wait,
		pending:  make(map[string]*pendingEntry),
	}
}

// Request registers a pending interaction, notifies the session and arms
// the deadline timer. The returned handle settles exactly once: either an
// explicit Respond or the timer, whichever fires first.
func (b *Broker) Request(ctx context.Context, sessionID string, p Proposal) (*Pending, error) {
	if err := b.validateProposal(ctx, sessionID, p); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	deadline := time.Now().Add(b.wait)
	entry := &pendingEntry{
		sessionID: sessionID,
		proposal:  p,
		deadline:  deadline,
		done:      make(chan Outcome, 1),
	}

	b.mu.Lock()
	b.pending[id] = entry
	entry.timer = time.AfterFunc(b.wait, func() { b.expire(id) })
	b.mu.Unlock()

	recipients := []string{}
	if p.TargetID != "" {
		recipients = append(recipients, p.TargetID)
	}
	b.notifier.Publish(ctx, sessionID, Event{
		Kind:       EventInteractionRequested,
		Recipients: recipients,
		Payload: InteractionRequestedPayload{
			InteractionID: id,
			Kind:          string(p.Kind),
			RequesterID:   p.RequesterID,
			TargetID:      p.TargetID,
			Deadline:      deadline,
		},
	})
	return &Pending{ID: id, Deadline: deadline, Done: entry.done}, nil
}

// Respond settles the interaction with an explicit answer. A late or
// duplicate response fails with ErrInteractionNotFound; the interaction
// was already settled and its effect, if any, already applied.
func (b *Broker) Respond(ctx context.Context, interactionID string, accepted bool) (*Outcome, error) {
	entry := b.take(interactionID)
	if entry == nil {
		return nil, fmt.Errorf("interaction %s: %w", interactionID, domain.ErrInteractionNotFound)
	}

	if accepted {
		if err := b.applyEffect(ctx, entry.sessionID, entry.proposal); err != nil {
			// The entry is gone either way; an interaction settles once.
			b.settle(ctx, interactionID, entry, Outcome{
				InteractionID: interactionID, Kind: entry.proposal.Kind,
			})
			return nil, err
		}
	}

	out := Outcome{InteractionID: interactionID, Kind: entry.proposal.Kind, Accepted: accepted}
	b.settle(ctx, interactionID, entry, out)
	return &out, nil
}

// PendingCount reports the number of unsettled interactions.
func (b *Broker) PendingCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// take removes and returns the pending entry, stopping its timer. Returns
// nil when the interaction was already settled. Removal and timer stop
// happen under one lock so respond and expiry cannot both win.
func (b *Broker) take(interactionID string) *pendingEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	entry, ok := b.pending[interactionID]
	if !ok {
		return nil
	}
	delete(b.pending, interactionID)
	entry.timer.Stop()
	return entry
}

// expire settles an interaction as declined when its window closes. Every
// kind resolves on timeout; none rejects, so waiters have one failure-free
// path.
func (b *Broker) expire(interactionID string) {
	entry := b.take(interactionID)
	if entry == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	b.settle(ctx, interactionID, entry, Outcome{
		InteractionID: interactionID,
		Kind:          entry.proposal.Kind,
		TimedOut:      true,
	})
}

func (b *Broker) settle(ctx context.Context, interactionID string, entry *pendingEntry, out Outcome) {
	if err := b.store.AppendLog(ctx, &domain.LogEntry{
		SessionID: entry.sessionID,
		Kind:      domain.LogInteraction,
		UserID:    entry.proposal.RequesterID,
		Payload: map[string]any{
			"interaction_id": interactionID,
			"kind":           string(entry.proposal.Kind),
			"target":         entry.proposal.TargetID,
			"accepted":       out.Accepted,
			"timed_out":      out.TimedOut,
		},
	}); err != nil && b.logger != nil {
		b.logger.Warn("Failed to log interaction %s settlement: %v", interactionID, err)
	}
	b.notifier.Publish(ctx, entry.sessionID, Event{
		Kind: EventInteractionResolved,
		Payload: InteractionResolvedPayload{
			InteractionID: interactionID,
			Kind:          string(entry.proposal.Kind),
			Accepted:      out.Accepted,
			TimedOut:      out.TimedOut,
		},
	})
	entry.done <- out
}

// validateProposal rejects malformed proposals before anything is armed.
func (b *Broker) validateProposal(ctx context.Context, sessionID string, p Proposal) error {
	sess, err := b.store.Session(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess.Status != domain.StatusRunning {
		return fmt.Errorf("session %s is %s: %w", sessionID, sess.Status, domain.ErrSessionNotRunning)
	}
	if _, err := b.store.Player(ctx, sessionID, p.RequesterID); err != nil {
		return err
	}
	switch p.Kind {
	case KindTransfer:
		if p.TargetID == "" || p.Amount <= 0 {
			return fmt.Errorf("transfer needs a target and a positive amount: %w", domain.ErrUnknownAction)
		}
	case KindTrade:
		if p.TargetID == "" || p.OfferCardID == "" || p.WantCardID == "" {
			return fmt.Errorf("trade needs a target and two cards: %w", domain.ErrUnknownAction)
		}
	case KindSwap:
		if p.TargetID == "" {
			return fmt.Errorf("swap needs a target: %w", domain.ErrUnknownAction)
		}
	case KindRally:
		// Session-wide; no target.
	default:
		return fmt.Errorf("interaction kind %q: %w", p.Kind, domain.ErrUnknownAction)
	}
	if p.TargetID != "" {
		if _, err := b.store.Player(ctx, sessionID, p.TargetID); err != nil {
			return err
		}
	}
	return nil
}

// applyEffect performs the accepted interaction's durable effect as one
// all-or-nothing transaction.
func (b *Broker) applyEffect(ctx context.Context, sessionID string, p Proposal) error {
	return b.store.WithinTx(ctx, func(ctx context.Context) error {
		switch p.Kind {
		case KindTransfer:
			return b.store.TransferCash(ctx, sessionID, p.RequesterID, p.TargetID, p.Amount)

		case KindTrade:
			for _, side := range []struct{ card, from, to string }{
				{p.OfferCardID, p.RequesterID, p.TargetID},
				{p.WantCardID, p.TargetID, p.RequesterID},
			} {
				ok, err := b.store.HandContains(ctx, sessionID, side.from, side.card)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("card %s not in hand of %s: %w", side.card, side.from, domain.ErrCardNotFound)
				}
				if err := b.store.TransferHandCard(ctx, sessionID, side.card, side.from, side.to); err != nil {
					return err
				}
			}
			return nil

		case KindSwap:
			requester, err := b.store.Player(ctx, sessionID, p.RequesterID)
			if err != nil {
				return err
			}
			target, err := b.store.Player(ctx, sessionID, p.TargetID)
			if err != nil {
				return err
			}
			if err := b.store.SetPosition(ctx, sessionID, requester.UserID, target.Position, requester.Position); err != nil {
				return err
			}
			return b.store.SetPosition(ctx, sessionID, target.UserID, requester.Position, target.Position)

		case KindRally:
			requester, err := b.store.Player(ctx, sessionID, p.RequesterID)
			if err != nil {
				return err
			}
			players, err := b.store.Players(ctx, sessionID)
			if err != nil {
				return err
			}
			for _, other := range players {
				if other.UserID == p.RequesterID || other.Position == requester.Position {
					continue
				}
				if err := b.store.SetPosition(ctx, sessionID, other.UserID, requester.Position, other.Position); err != nil {
					return err
				}
			}
			return nil

		default:
			return fmt.Errorf("interaction kind %q: %w", p.Kind, domain.ErrUnknownAction)
		}
	})
}
