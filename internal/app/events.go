package app

import (
	"context"
	"time"
)

// EventKind identifies emitted app events for client push dispatch.
type EventKind string

const (
	EventTurnStarted          EventKind = "turn_started"
	EventStateUpdated         EventKind = "state_updated"
	EventInteractionRequested EventKind = "interaction_requested"
	EventInteractionResolved  EventKind = "interaction_resolved"
	EventResourceRecovered    EventKind = "resource_recovered"
	EventGameEnded            EventKind = "game_ended"
)

// Event is an app event with optional targeted recipients.
type Event struct {
	Kind       EventKind
	Payload    any
	Recipients []string // user IDs; empty means every session player
}

// Notifier delivers events to connected clients. Implementations live at
// the transport edge.
type Notifier interface {
	Publish(ctx context.Context, sessionID string, ev Event)
}

// NopNotifier discards events; used by tests and tools.
type NopNotifier struct{}

func (NopNotifier) Publish(context.Context, string, Event) {}

type TurnStartedPayload struct {
	UserID     string `json:"user_id"`
	Day        int    `json:"day"`
	Autonomous bool   `json:"autonomous"`
}

type StateUpdatedPayload struct {
	UserID string `json:"user_id"`
	Reason string `json:"reason"`
}

type InteractionRequestedPayload struct {
	InteractionID string    `json:"interaction_id"`
	Kind          string    `json:"kind"`
	RequesterID   string    `json:"requester_id"`
	TargetID      string    `json:"target_id,omitempty"`
	Deadline      time.Time `json:"deadline"`
}

type InteractionResolvedPayload struct {
	InteractionID string `json:"interaction_id"`
	Kind          string `json:"kind"`
	Accepted      bool   `json:"accepted"`
	TimedOut      bool   `json:"timed_out"`
}

type ResourceRecoveredPayload struct {
	UserID string `json:"user_id"`
	Tokens int    `json:"tokens"`
}

type GameEndedPayload struct {
	Day int `json:"day"`
}
