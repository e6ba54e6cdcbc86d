package domain

import "time"

// Status represents the lifecycle stage of a session.
type Status string

const (
	// StatusSetting indicates seats and decks are still being prepared.
	StatusSetting Status = "setting"
	// StatusRunning indicates the session is actively playing days 1..14.
	StatusRunning Status = "running"
	// StatusFinalizing indicates day 14 completed and scoring is pending.
	StatusFinalizing Status = "finalizing"
	// StatusFinished indicates the session is fully settled.
	StatusFinished Status = "finished"
)

const (
	// FinalDay is the last playable day. Completing it ends the game.
	FinalDay = 14
	// RecoveryDay is the day on which depleted resolve tokens recover.
	RecoveryDay = 8
	// MaxResolveTokens caps a player's resolve token count.
	MaxResolveTokens = 2
)

// Session is the authoritative per-game row.
type Session struct {
	ID                string
	Day               int
	Status            Status
	CurrentTurnPlayer string // empty when no turn is active
}

// Player holds per-session state for one seat, human or autonomous.
type Player struct {
	SessionID     string
	UserID        string
	TurnOrder     int // dense 0..N-1 seating order, rotated at each day rollover
	Autonomous    bool
	Position      Cell
	LastPosition  Cell // cell acted on by the immediately preceding action; NoCell if none
	Moved         bool // has moved this turn
	Acted         bool // has performed the cell action this turn
	ResolveTokens int
	Cash          int64
	Insight       int
	Charm         int
	Grit          int
}

// TurnRecord is one append-only row per started turn.
type TurnRecord struct {
	ID        int64
	SessionID string
	Day       int
	UserID    string
	StartedAt time.Time
	EndedAt   time.Time // zero while the turn is open
}

// Open reports whether the turn has not ended yet.
func (t *TurnRecord) Open() bool {
	return t.EndedAt.IsZero()
}

// LogEntry is one append-only ledger row. The ledger is both the audit
// trail and the source of truth for once-per-game decisions.
type LogEntry struct {
	ID        string
	SessionID string
	Kind      string
	UserID    string // empty for session-level entries
	Day       int
	Payload   map[string]any
	CreatedAt time.Time
}

// Ledger entry kinds.
const (
	LogTurnStarted      = "turn_started"
	LogTurnEnded        = "turn_ended"
	LogMoved            = "moved"
	LogActionPerformed  = "action_performed"
	LogResolveUsed      = "resolve_used"
	LogResolveRecovered = "resolve_recovered"
	LogDayRolled        = "day_rolled"
	LogGameEnded        = "game_ended"
	LogInteraction      = "interaction_settled"
)

// NextOrder returns the turn order following cur in an n-player session.
func NextOrder(cur, n int) int {
	return (cur + 1) % n
}

// RotatedOrder returns a seat's order after a day rollover: the player at
// order 0 moves to n-1 and everyone else shifts down by one.
func RotatedOrder(cur, n int) int {
	return (cur + n - 1) % n
}

// PlayerAtOrder returns the player holding the given turn order, or nil.
func PlayerAtOrder(players []*Player, order int) *Player {
	for _, p := range players {
		if p.TurnOrder == order {
			return p
		}
	}
	return nil
}

// FindPlayer returns the player with the given user id, or nil.
func FindPlayer(players []*Player, userID string) *Player {
	for _, p := range players {
		if p.UserID == userID {
			return p
		}
	}
	return nil
}
