package autopilot

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/heroiclabs/nakama-common/runtime"

	"fortnight/internal/app"
	"fortnight/internal/domain"
	"fortnight/internal/ports"
)

// inflightGuard tracks sessions whose autonomous turn is currently being
// driven, so overlapping scans never double-drive the same seat.
type inflightGuard struct {
	mu     sync.Mutex
	active map[string]bool
}

func newInflightGuard() *inflightGuard {
	return &inflightGuard{active: make(map[string]bool)}
}

// tryBegin claims the session. Returns false when it is already claimed.
func (g *inflightGuard) tryBegin(sessionID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.active[sessionID] {
		return false
	}
	g.active[sessionID] = true
	return true
}

func (g *inflightGuard) finish(sessionID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.active, sessionID)
}

// Driver periodically scans for running sessions whose current turn
// belongs to an autonomous seat and plays that turn through the same
// operations a human request handler would call.
type Driver struct {
	store     ports.Store
	turns     *app.Coordinator
	executor  *app.Executor
	logger    runtime.Logger
	tuning    Tuning
	interval  time.Duration
	retries   int
	retryBase time.Duration

	guard *inflightGuard

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewDriver constructs a Driver. A nil rng gets a time-seeded default.
func NewDriver(st ports.Store, turns *app.Coordinator, executor *app.Executor, logger runtime.Logger,
	interval time.Duration, retries int, retryBase time.Duration, rng *rand.Rand) *Driver {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Driver{
		store:     st,
		turns:     turns,
		executor:  executor,
		logger:    logger,
		tuning:    DefaultTuning,
		interval:  interval,
		retries:   retries,
		retryBase: retryBase,
		guard:     newInflightGuard(),
		rng:       rng,
	}
}

// Tune replaces the decision weights. Call before Run.
func (d *Driver) Tune(t Tuning) {
	d.tuning = t
}

// Run scans on a fixed interval until ctx is canceled.
func (d *Driver) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.Scan(ctx)
		}
	}
}

// Scan drives one autonomous turn in every eligible session. Sessions
// already being driven are skipped via the in-flight guard.
func (d *Driver) Scan(ctx context.Context) {
	sessions, err := d.store.RunningSessions(ctx)
	if err != nil {
		if d.logger != nil {
			d.logger.Warn("Autonomous scan failed to list sessions: %v", err)
		}
		return
	}
	for _, sess := range sessions {
		if sess.CurrentTurnPlayer == "" {
			continue
		}
		player, err := d.store.Player(ctx, sess.ID, sess.CurrentTurnPlayer)
		if err != nil || !player.Autonomous {
			continue
		}
		if !d.guard.tryBegin(sess.ID) {
			continue
		}
		if err := d.driveTurn(ctx, sess, player); err != nil && d.logger != nil {
			d.logger.Warn("Autonomous turn for %s in session %s failed: %v", player.UserID, sess.ID, err)
		}
		d.guard.finish(sess.ID)
	}
}

// driveTurn plays one full turn: move, act, maybe spend a resolve token,
// then end the turn. Transient store failures are retried with backoff;
// logical violations abort the turn attempt.
func (d *Driver) driveTurn(ctx context.Context, sess *domain.Session, player *domain.Player) error {
	target := d.tuning.ChooseMove(player)
	if err := d.withRetry(ctx, func() error {
		return d.executor.Move(ctx, sess.ID, player.UserID, target)
	}); err != nil {
		return fmt.Errorf("move to %s: %w", target.Name(), err)
	}

	action := ChooseAction(target, player.Position)
	if err := d.withRetry(ctx, func() error {
		_, err := d.executor.PerformAction(ctx, sess.ID, player.UserID, action)
		return err
	}); err != nil {
		return fmt.Errorf("action %d: %w", action, err)
	}

	if err := d.maybeUseResolve(ctx, sess, player.UserID); err != nil {
		return err
	}

	if err := d.withRetry(ctx, func() error {
		_, err := d.turns.EndTurn(ctx, sess.ID, player.UserID)
		return err
	}); err != nil {
		return fmt.Errorf("end turn: %w", err)
	}
	return nil
}

// maybeUseResolve evaluates the token schedule near turn end. At most one
// use per window; the ledger's day-stamped usage entries decide whether
// this window was already spent.
func (d *Driver) maybeUseResolve(ctx context.Context, sess *domain.Session, userID string) error {
	player, err := d.store.Player(ctx, sess.ID, userID)
	if err != nil {
		return err
	}
	if player.ResolveTokens <= 0 {
		return nil
	}
	start, end, ok := ResolveWindow(sess.Day)
	if !ok {
		return nil
	}
	used, err := d.store.HasLogBetweenDays(ctx, sess.ID, domain.LogResolveUsed, userID, start, end)
	if err != nil {
		return err
	}
	if used || !d.shouldUseResolve(sess.Day) {
		return nil
	}

	action := ChooseAction(domain.FreeActionCell, player.LastPosition)
	err = d.withRetry(ctx, func() error {
		_, err := d.executor.UseResolveToken(ctx, sess.ID, userID, action)
		return err
	})
	if err != nil {
		return fmt.Errorf("resolve action %d: %w", action, err)
	}
	return nil
}

func (d *Driver) shouldUseResolve(day int) bool {
	d.rngMu.Lock()
	defer d.rngMu.Unlock()
	return ShouldUseResolve(day, d.rng)
}

// withRetry retries fn on transient store failures only, with an
// increasing delay between attempts.
func (d *Driver) withRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = fn()
		if err == nil || !domain.Retryable(err) || attempt >= d.retries {
			return err
		}
		delay := d.retryBase * time.Duration(attempt+1)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}
