package autopilot

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"fortnight/internal/app"
	"fortnight/internal/domain"
	"fortnight/internal/store"
)

const testSession = "s1"

func newDriverFixture(t *testing.T) (*store.Store, *app.Coordinator, *Driver) {
	t.Helper()
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	ctx := context.Background()
	if err := st.CreateSession(ctx, &domain.Session{ID: testSession, Day: 1, Status: domain.StatusRunning}); err != nil {
		t.Fatalf("create session: %v", err)
	}
	players := []*domain.Player{
		{SessionID: testSession, UserID: "bot", TurnOrder: 0, Autonomous: true, Position: domain.CellOffice, Cash: 100},
		{SessionID: testSession, UserID: "human", TurnOrder: 1, Position: domain.CellOffice, Cash: 100},
	}
	for _, p := range players {
		if err := st.AddPlayer(ctx, p); err != nil {
			t.Fatalf("add player %s: %v", p.UserID, err)
		}
	}
	for _, deck := range []domain.DeckKind{domain.DeckWork, domain.DeckChance, domain.DeckStudy, domain.DeckTrade, domain.DeckSocial} {
		var order []string
		for i := 0; i < 4; i++ {
			id := fmt.Sprintf("%s-%d", deck, i)
			if err := st.AddCard(ctx, &domain.Card{ID: id, Deck: deck, Title: id}); err != nil {
				t.Fatalf("add card: %v", err)
			}
			order = append(order, id)
		}
		if err := st.SeedDeck(ctx, testSession, deck, order); err != nil {
			t.Fatalf("seed deck: %v", err)
		}
	}

	co := app.NewCoordinator(st, nil, nil)
	ex := app.NewExecutor(st, co, nil, nil, rand.New(rand.NewSource(2)))
	dr := NewDriver(st, co, ex, nil, time.Millisecond, 2, time.Millisecond, rand.New(rand.NewSource(2)))
	return st, co, dr
}

func TestScanDrivesAutonomousTurn(t *testing.T) {
	st, co, dr := newDriverFixture(t)
	ctx := context.Background()

	if err := co.StartTurn(ctx, testSession, "bot"); err != nil {
		t.Fatalf("start turn: %v", err)
	}
	dr.Scan(ctx)

	// The bot's turn closed and the human seat holds the lock, without
	// any externally issued move or action call.
	holder, ok := co.LockHolder(testSession)
	if !ok || holder != "human" {
		t.Fatalf("lock holder = %q, %v, want human", holder, ok)
	}
	sess, err := st.Session(ctx, testSession)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	if sess.CurrentTurnPlayer != "human" {
		t.Fatalf("current player = %q, want human", sess.CurrentTurnPlayer)
	}
	bot, err := st.Player(ctx, testSession, "bot")
	if err != nil {
		t.Fatalf("load bot: %v", err)
	}
	if bot.Position == domain.CellOffice {
		t.Fatal("bot never moved")
	}
}

func TestScanIgnoresHumanTurns(t *testing.T) {
	_, co, dr := newDriverFixture(t)
	ctx := context.Background()

	if err := co.StartTurn(ctx, testSession, "human"); err != nil {
		t.Fatalf("start turn: %v", err)
	}
	dr.Scan(ctx)

	holder, _ := co.LockHolder(testSession)
	if holder != "human" {
		t.Fatalf("lock holder = %q, want human untouched", holder)
	}
}

func TestInflightGuardClaimsOnce(t *testing.T) {
	g := newInflightGuard()
	if !g.tryBegin("s1") {
		t.Fatal("first claim refused")
	}
	if g.tryBegin("s1") {
		t.Fatal("second claim succeeded while in flight")
	}
	if !g.tryBegin("s2") {
		t.Fatal("unrelated session blocked")
	}
	g.finish("s1")
	if !g.tryBegin("s1") {
		t.Fatal("claim refused after finish")
	}
}

func TestOverlappingScansDriveOnce(t *testing.T) {
	st, co, dr := newDriverFixture(t)
	ctx := context.Background()

	if err := co.StartTurn(ctx, testSession, "bot"); err != nil {
		t.Fatalf("start turn: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			dr.Scan(ctx)
		}()
	}
	wg.Wait()

	// Exactly one closed turn for the bot: concurrent scans either drove
	// it once or skipped via the guard (or saw the turn already handed
	// to the human seat).
	closed, err := st.ClosedTurnCount(ctx, testSession, 1)
	if err != nil {
		t.Fatalf("count turns: %v", err)
	}
	if closed != 1 {
		t.Fatalf("closed turns = %d, want exactly 1", closed)
	}
	holder, _ := co.LockHolder(testSession)
	if holder != "human" {
		t.Fatalf("lock holder = %q, want human", holder)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	_, _, dr := newDriverFixture(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		dr.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop on cancel")
	}
}
