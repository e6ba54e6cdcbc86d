package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"fortnight/internal/domain"
	"fortnight/internal/store"
)

const testSession = "s1"

type fixture struct {
	t  *testing.T
	st *store.Store
	co *Coordinator
	ex *Executor
	br *Broker
}

func newFixture(t *testing.T, players int) *fixture {
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
	for i := 0; i < players; i++ {
		err := st.AddPlayer(ctx, &domain.Player{
			SessionID:     testSession,
			UserID:        fmt.Sprintf("p%d", i),
			TurnOrder:     i,
			Position:      domain.CellOffice,
			ResolveTokens: 1,
			Cash:          100,
		})
		if err != nil {
			t.Fatalf("add player %d: %v", i, err)
		}
	}

	effects := map[domain.DeckKind]domain.CardEffects{
		domain.DeckWork:   {Cash: 30},
		domain.DeckChance: {Cash: 10, Grit: 1},
		domain.DeckStudy:  {Insight: 1},
		domain.DeckTrade:  {Cash: 20},
		domain.DeckSocial: {Charm: 1},
	}
	for deck, eff := range effects {
		var order []string
		for i := 0; i < 8; i++ {
			id := fmt.Sprintf("%s-%d", deck, i)
			err := st.AddCard(ctx, &domain.Card{ID: id, Deck: deck, Title: id, Effects: eff})
			if err != nil {
				t.Fatalf("add card %s: %v", id, err)
			}
			order = append(order, id)
		}
		if err := st.SeedDeck(ctx, testSession, deck, order); err != nil {
			t.Fatalf("seed deck %s: %v", deck, err)
		}
	}

	co := NewCoordinator(st, nil, nil)
	ex := NewExecutor(st, co, nil, nil, rand.New(rand.NewSource(1)))
	br := NewBroker(st, nil, nil, 50*time.Millisecond)
	return &fixture{t: t, st: st, co: co, ex: ex, br: br}
}

func (f *fixture) player(userID string) *domain.Player {
	f.t.Helper()
	p, err := f.st.Player(context.Background(), testSession, userID)
	if err != nil {
		f.t.Fatalf("load player %s: %v", userID, err)
	}
	return p
}

func (f *fixture) session() *domain.Session {
	f.t.Helper()
	sess, err := f.st.Session(context.Background(), testSession)
	if err != nil {
		f.t.Fatalf("load session: %v", err)
	}
	return sess
}

func (f *fixture) startTurn(userID string) {
	f.t.Helper()
	if err := f.co.StartTurn(context.Background(), testSession, userID); err != nil {
		f.t.Fatalf("start turn for %s: %v", userID, err)
	}
}

func (f *fixture) endTurn(userID string) *Handoff {
	f.t.Helper()
	h, err := f.co.EndTurn(context.Background(), testSession, userID)
	if err != nil {
		f.t.Fatalf("end turn for %s: %v", userID, err)
	}
	return h
}

func TestStartTurnSetsLock(t *testing.T) {
	f := newFixture(t, 2)
	f.startTurn("p0")

	holder, ok := f.co.LockHolder(testSession)
	if !ok || holder != "p0" {
		t.Fatalf("lock holder = %q, %v, want p0", holder, ok)
	}
	if got := f.session().CurrentTurnPlayer; got != "p0" {
		t.Fatalf("persisted current player = %q, want p0", got)
	}

	err := f.co.StartTurn(context.Background(), testSession, "p1")
	if !errors.Is(err, domain.ErrDuplicateTurn) {
		t.Fatalf("second start = %v, want ErrDuplicateTurn", err)
	}
}

func TestValidateTurnRejectsNonHolder(t *testing.T) {
	f := newFixture(t, 2)
	f.startTurn("p0")

	if err := f.co.ValidateTurn(testSession, "p1"); !errors.Is(err, domain.ErrTurnViolation) {
		t.Fatalf("validate p1 = %v, want ErrTurnViolation", err)
	}
	if err := f.ex.Move(context.Background(), testSession, "p1", domain.CellMarket); !errors.Is(err, domain.ErrTurnViolation) {
		t.Fatalf("move by p1 = %v, want ErrTurnViolation", err)
	}
}

func TestMoveLegality(t *testing.T) {
	f := newFixture(t, 2)
	f.startTurn("p0")
	ctx := context.Background()

	// Office touches Market and Library only.
	if err := f.ex.Move(ctx, testSession, "p0", domain.CellPark); !errors.Is(err, domain.ErrNotAdjacent) {
		t.Fatalf("move to Park = %v, want ErrNotAdjacent", err)
	}
	if err := f.ex.Move(ctx, testSession, "p0", domain.CellMarket); err != nil {
		t.Fatalf("move to Market: %v", err)
	}
	if err := f.ex.Move(ctx, testSession, "p0", domain.CellOffice); !errors.Is(err, domain.ErrImmediateRepeat) {
		t.Fatalf("move back to Office = %v, want ErrImmediateRepeat", err)
	}
	if err := f.ex.Move(ctx, testSession, "p0", domain.CellHarbor); err != nil {
		t.Fatalf("move on to Harbor: %v", err)
	}

	p := f.player("p0")
	if p.Position != domain.CellHarbor || p.LastPosition != domain.CellMarket || !p.Moved {
		t.Fatalf("player state = pos %v last %v moved %v", p.Position, p.LastPosition, p.Moved)
	}
}

func TestPerformActionPreconditions(t *testing.T) {
	f := newFixture(t, 2)
	f.startTurn("p0")
	ctx := context.Background()

	if _, err := f.ex.PerformAction(ctx, testSession, "p0", 1); !errors.Is(err, domain.ErrMoveRequired) {
		t.Fatalf("act before move = %v, want ErrMoveRequired", err)
	}
	if err := f.ex.Move(ctx, testSession, "p0", domain.CellMarket); err != nil {
		t.Fatalf("move: %v", err)
	}
	if _, err := f.ex.PerformAction(ctx, testSession, "p0", 3); !errors.Is(err, domain.ErrWrongCell) {
		t.Fatalf("wrong-cell action = %v, want ErrWrongCell", err)
	}

	res, err := f.ex.PerformAction(ctx, testSession, "p0", 2)
	if err != nil {
		t.Fatalf("perform action: %v", err)
	}
	if res.Card == nil || res.Card.Deck != domain.DeckChance {
		t.Fatalf("drew %+v, want a chance card", res.Card)
	}
	if res.Summary == "" {
		t.Fatal("empty action summary")
	}

	p := f.player("p0")
	if p.Cash != 110 || p.Grit != 1 {
		t.Fatalf("effects not applied: cash %d grit %d", p.Cash, p.Grit)
	}
	if !p.Acted {
		t.Fatal("acted flag not set")
	}

	if _, err := f.ex.PerformAction(ctx, testSession, "p0", 2); !errors.Is(err, domain.ErrAlreadyActed) {
		t.Fatalf("second action = %v, want ErrAlreadyActed", err)
	}
}

func TestPlanDeckCardsGoToHand(t *testing.T) {
	f := newFixture(t, 2)
	f.startTurn("p0")
	ctx := context.Background()

	if err := f.ex.Move(ctx, testSession, "p0", domain.CellLibrary); err != nil {
		t.Fatalf("move: %v", err)
	}
	res, err := f.ex.PerformAction(ctx, testSession, "p0", 3)
	if err != nil {
		t.Fatalf("perform action: %v", err)
	}
	ok, err := f.st.HandContains(ctx, testSession, "p0", res.Card.ID)
	if err != nil {
		t.Fatalf("hand lookup: %v", err)
	}
	if !ok {
		t.Fatalf("study card %s not in hand", res.Card.ID)
	}
}

func TestFreeActionCellAcceptsAnyAction(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	// Park is adjacent to the Plaza.
	if err := f.st.AddPlayer(ctx, &domain.Player{SessionID: testSession, UserID: "px", TurnOrder: 2, Position: domain.CellPark}); err != nil {
		t.Fatalf("add player: %v", err)
	}
	f.startTurn("px")

	if err := f.ex.Move(ctx, testSession, "px", domain.CellPlaza); err != nil {
		t.Fatalf("move to Plaza: %v", err)
	}
	res, err := f.ex.PerformAction(ctx, testSession, "px", 1)
	if err != nil {
		t.Fatalf("work action from Plaza: %v", err)
	}
	if res.Card.Deck != domain.DeckWork {
		t.Fatalf("drew from %s, want work", res.Card.Deck)
	}
}

func TestDeckRecyclesDiscardPile(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()

	// Shrink the work deck to a single card so the second draw must
	// recycle the discard pile.
	for i := 1; i < 8; i++ {
		if _, err := f.st.DrawCard(ctx, testSession, domain.DeckWork); err != nil {
			t.Fatalf("drain deck: %v", err)
		}
	}

	f.startTurn("p0")
	if err := f.ex.Move(ctx, testSession, "p0", domain.CellMarket); err != nil {
		t.Fatalf("move: %v", err)
	}
	if err := f.ex.Move(ctx, testSession, "p0", domain.CellHarbor); err != nil {
		t.Fatalf("move: %v", err)
	}
	if err := f.ex.Move(ctx, testSession, "p0", domain.CellPlaza); err != nil {
		t.Fatalf("move: %v", err)
	}

	first, err := f.ex.PerformAction(ctx, testSession, "p0", 1)
	if err != nil {
		t.Fatalf("first work action: %v", err)
	}
	second, err := f.ex.UseResolveToken(ctx, testSession, "p0", 1)
	if err != nil {
		t.Fatalf("recycled work action: %v", err)
	}
	if first.Card.ID != second.Card.ID {
		t.Fatalf("recycle drew %s, want the recycled %s", second.Card.ID, first.Card.ID)
	}
}

func TestUseResolveToken(t *testing.T) {
	f := newFixture(t, 2)
	f.startTurn("p0")
	ctx := context.Background()

	if err := f.ex.Move(ctx, testSession, "p0", domain.CellMarket); err != nil {
		t.Fatalf("move: %v", err)
	}
	if _, err := f.ex.PerformAction(ctx, testSession, "p0", 2); err != nil {
		t.Fatalf("perform action: %v", err)
	}

	// The previous cell was the Office; its action may not repeat.
	if _, err := f.ex.UseResolveToken(ctx, testSession, "p0", 1); !errors.Is(err, domain.ErrImmediateRepeat) {
		t.Fatalf("repeat resolve action = %v, want ErrImmediateRepeat", err)
	}
	if _, err := f.ex.UseResolveToken(ctx, testSession, "p0", 4); err != nil {
		t.Fatalf("resolve action: %v", err)
	}

	p := f.player("p0")
	if p.ResolveTokens != 0 {
		t.Fatalf("resolve tokens = %d, want 0", p.ResolveTokens)
	}
	if _, err := f.ex.UseResolveToken(ctx, testSession, "p0", 4); !errors.Is(err, domain.ErrNoResolveTokens) {
		t.Fatalf("spent resolve = %v, want ErrNoResolveTokens", err)
	}

	has, err := f.st.HasLogBetweenDays(ctx, testSession, domain.LogResolveUsed, "p0", 1, 1)
	if err != nil {
		t.Fatalf("ledger lookup: %v", err)
	}
	if !has {
		t.Fatal("resolve usage not day-stamped in the ledger")
	}
}

func TestEndTurnHandsToNextSeat(t *testing.T) {
	f := newFixture(t, 2)
	f.startTurn("p0")
	ctx := context.Background()

	if err := f.ex.Move(ctx, testSession, "p0", domain.CellMarket); err != nil {
		t.Fatalf("move: %v", err)
	}
	if _, err := f.ex.PerformAction(ctx, testSession, "p0", 2); err != nil {
		t.Fatalf("perform action: %v", err)
	}

	h := f.endTurn("p0")
	if h.NextPlayer != "p1" || h.GameEnded {
		t.Fatalf("handoff = %+v, want next p1", h)
	}
	if got := f.session().Day; got != 1 {
		t.Fatalf("day = %d, want 1", got)
	}
	holder, _ := f.co.LockHolder(testSession)
	if holder != "p1" {
		t.Fatalf("lock holder = %q, want p1", holder)
	}
	if got := f.session().CurrentTurnPlayer; got != holder {
		t.Fatalf("lock %q disagrees with persisted player %q", holder, got)
	}
}

func TestDayRolloverRotatesSeats(t *testing.T) {
	f := newFixture(t, 3)
	f.startTurn("p0")

	f.endTurn("p0")
	f.endTurn("p1")
	h := f.endTurn("p2")

	if got := f.session().Day; got != 2 {
		t.Fatalf("day = %d, want 2", got)
	}
	wantOrders := map[string]int{"p0": 2, "p1": 0, "p2": 1}
	for userID, want := range wantOrders {
		if got := f.player(userID).TurnOrder; got != want {
			t.Fatalf("%s order = %d, want %d", userID, got, want)
		}
	}
	// The seat previously at order 1 opens the new day.
	if h.NextPlayer != "p1" {
		t.Fatalf("new day opened by %s, want p1", h.NextPlayer)
	}
	holder, ok := f.co.LockHolder(testSession)
	if !ok || holder != "p1" {
		t.Fatalf("lock holder = %q, %v, want p1", holder, ok)
	}
}

func TestResolveRecoveryOnDayEightIsOnce(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()

	if err := f.st.SetResolveTokens(ctx, testSession, "p0", 0); err != nil {
		t.Fatalf("zero tokens: %v", err)
	}
	if err := f.st.SetDay(ctx, testSession, 7); err != nil {
		t.Fatalf("set day: %v", err)
	}

	f.startTurn("p0")
	f.endTurn("p0")
	f.endTurn("p1")

	if got := f.session().Day; got != 8 {
		t.Fatalf("day = %d, want 8", got)
	}
	if got := f.player("p0").ResolveTokens; got != 1 {
		t.Fatalf("p0 tokens = %d, want 1 after recovery", got)
	}
	// p1 still held a token; no grant for them.
	if got := f.player("p1").ResolveTokens; got != 1 {
		t.Fatalf("p1 tokens = %d, want untouched 1", got)
	}

	// Replaying the rollover must not grant twice: the ledger already
	// records the recovery.
	if err := f.st.SetResolveTokens(ctx, testSession, "p0", 0); err != nil {
		t.Fatalf("zero tokens: %v", err)
	}
	if err := f.st.SetDay(ctx, testSession, 7); err != nil {
		t.Fatalf("set day: %v", err)
	}
	holder, _ := f.co.LockHolder(testSession)
	f.endTurn(holder)
	holder, _ = f.co.LockHolder(testSession)
	f.endTurn(holder)

	if got := f.player("p0").ResolveTokens; got != 0 {
		t.Fatalf("p0 tokens = %d, want 0 (no second recovery)", got)
	}
}

func TestGameEndsAfterFinalDay(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	if err := f.st.SetDay(ctx, testSession, domain.FinalDay); err != nil {
		t.Fatalf("set day: %v", err)
	}

	f.startTurn("p0")
	f.endTurn("p0")
	h := f.endTurn("p1")

	if !h.GameEnded {
		t.Fatalf("handoff = %+v, want game ended", h)
	}
	sess := f.session()
	if sess.Status != domain.StatusFinalizing {
		t.Fatalf("status = %s, want finalizing", sess.Status)
	}
	if sess.CurrentTurnPlayer != "" {
		t.Fatalf("current player = %q, want cleared", sess.CurrentTurnPlayer)
	}
	if _, ok := f.co.LockHolder(testSession); ok {
		t.Fatal("lock still held after game end")
	}
}

func TestEndToEndTwoPlayerDay(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	f.startTurn("p0")

	if err := f.ex.Move(ctx, testSession, "p0", domain.CellMarket); err != nil {
		t.Fatalf("move: %v", err)
	}
	if _, err := f.ex.PerformAction(ctx, testSession, "p0", 2); err != nil {
		t.Fatalf("perform action: %v", err)
	}
	f.endTurn("p0")

	if got := f.session().CurrentTurnPlayer; got != "p1" {
		t.Fatalf("current player = %q, want p1", got)
	}
	if got := f.session().Day; got != 1 {
		t.Fatalf("day = %d, want 1", got)
	}

	if err := f.ex.Move(ctx, testSession, "p1", domain.CellLibrary); err != nil {
		t.Fatalf("move: %v", err)
	}
	if _, err := f.ex.PerformAction(ctx, testSession, "p1", 3); err != nil {
		t.Fatalf("perform action: %v", err)
	}
	f.endTurn("p1")

	if got := f.session().Day; got != 2 {
		t.Fatalf("day = %d, want 2", got)
	}
	if got := f.player("p1").TurnOrder; got != 0 {
		t.Fatalf("p1 order = %d, want 0 after rotation", got)
	}
	holder, ok := f.co.LockHolder(testSession)
	if !ok || holder != "p1" {
		t.Fatalf("lock holder = %q, %v, want p1 with an active turn", holder, ok)
	}
}

func TestRebuildLocksFromPersistedState(t *testing.T) {
	f := newFixture(t, 2)
	f.startTurn("p0")

	rebuilt := NewCoordinator(f.st, nil, nil)
	if _, ok := rebuilt.LockHolder(testSession); ok {
		t.Fatal("fresh coordinator should hold no locks")
	}
	if err := rebuilt.RebuildLocks(context.Background()); err != nil {
		t.Fatalf("rebuild locks: %v", err)
	}
	holder, ok := rebuilt.LockHolder(testSession)
	if !ok || holder != "p0" {
		t.Fatalf("rebuilt holder = %q, %v, want p0", holder, ok)
	}
}

func TestInteractionRespondSettlesOnce(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()

	pending, err := f.br.Request(ctx, testSession, Proposal{
		Kind: KindTransfer, RequesterID: "p0", TargetID: "p1", Amount: 40,
	})
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	out, err := f.br.Respond(ctx, pending.ID, true)
	if err != nil {
		t.Fatalf("respond: %v", err)
	}
	if !out.Accepted || out.TimedOut {
		t.Fatalf("outcome = %+v, want accepted", out)
	}

	got := <-pending.Done
	if got.InteractionID != pending.ID || !got.Accepted {
		t.Fatalf("settled outcome = %+v", got)
	}

	// Wait past the deadline: the expired timer must not settle again.
	time.Sleep(80 * time.Millisecond)
	select {
	case extra := <-pending.Done:
		t.Fatalf("second settlement %+v", extra)
	default:
	}
	if n := f.br.PendingCount(); n != 0 {
		t.Fatalf("pending count = %d, want 0", n)
	}
	if _, err := f.br.Respond(ctx, pending.ID, true); !errors.Is(err, domain.ErrInteractionNotFound) {
		t.Fatalf("late respond = %v, want ErrInteractionNotFound", err)
	}

	if got := f.player("p0").Cash; got != 60 {
		t.Fatalf("p0 cash = %d, want 60", got)
	}
	if got := f.player("p1").Cash; got != 140 {
		t.Fatalf("p1 cash = %d, want 140", got)
	}
}

func TestInteractionTimesOutDeclined(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()

	pending, err := f.br.Request(ctx, testSession, Proposal{
		Kind: KindTransfer, RequesterID: "p0", TargetID: "p1", Amount: 40,
	})
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	select {
	case out := <-pending.Done:
		if !out.TimedOut || out.Accepted {
			t.Fatalf("outcome = %+v, want timed-out decline", out)
		}
	case <-time.After(time.Second):
		t.Fatal("interaction never timed out")
	}

	if _, err := f.br.Respond(ctx, pending.ID, true); !errors.Is(err, domain.ErrInteractionNotFound) {
		t.Fatalf("respond after timeout = %v, want ErrInteractionNotFound", err)
	}
	if got := f.player("p0").Cash; got != 100 {
		t.Fatalf("p0 cash = %d, want untouched 100", got)
	}
}

func TestInteractionTradeSwapsHandCards(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()

	for userID, cardID := range map[string]string{"p0": "study-7", "p1": "social-7"} {
		if err := f.st.AddToHand(ctx, testSession, userID, cardID); err != nil {
			t.Fatalf("seed hand: %v", err)
		}
	}

	pending, err := f.br.Request(ctx, testSession, Proposal{
		Kind: KindTrade, RequesterID: "p0", TargetID: "p1",
		OfferCardID: "study-7", WantCardID: "social-7",
	})
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if _, err := f.br.Respond(ctx, pending.ID, true); err != nil {
		t.Fatalf("respond: %v", err)
	}

	for userID, cardID := range map[string]string{"p0": "social-7", "p1": "study-7"} {
		ok, err := f.st.HandContains(ctx, testSession, userID, cardID)
		if err != nil {
			t.Fatalf("hand lookup: %v", err)
		}
		if !ok {
			t.Fatalf("%s missing traded card %s", userID, cardID)
		}
	}
}

func TestInteractionSwapExchangesPositions(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	if err := f.st.SetPosition(ctx, testSession, "p1", domain.CellHarbor, domain.NoCell); err != nil {
		t.Fatalf("place p1: %v", err)
	}

	pending, err := f.br.Request(ctx, testSession, Proposal{
		Kind: KindSwap, RequesterID: "p0", TargetID: "p1",
	})
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if _, err := f.br.Respond(ctx, pending.ID, true); err != nil {
		t.Fatalf("respond: %v", err)
	}

	if got := f.player("p0").Position; got != domain.CellHarbor {
		t.Fatalf("p0 position = %v, want Harbor", got)
	}
	if got := f.player("p1").Position; got != domain.CellOffice {
		t.Fatalf("p1 position = %v, want Office", got)
	}
}

func TestInteractionRallyRelocatesEveryone(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()
	if err := f.st.SetPosition(ctx, testSession, "p1", domain.CellPark, domain.NoCell); err != nil {
		t.Fatalf("place p1: %v", err)
	}
	if err := f.st.SetPosition(ctx, testSession, "p2", domain.CellPlaza, domain.NoCell); err != nil {
		t.Fatalf("place p2: %v", err)
	}

	pending, err := f.br.Request(ctx, testSession, Proposal{Kind: KindRally, RequesterID: "p0"})
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if _, err := f.br.Respond(ctx, pending.ID, true); err != nil {
		t.Fatalf("respond: %v", err)
	}

	for _, userID := range []string{"p0", "p1", "p2"} {
		if got := f.player(userID).Position; got != domain.CellOffice {
			t.Fatalf("%s position = %v, want Office", userID, got)
		}
	}
}

func TestInteractionInsufficientFundsLeavesNoEffect(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()

	pending, err := f.br.Request(ctx, testSession, Proposal{
		Kind: KindTransfer, RequesterID: "p0", TargetID: "p1", Amount: 1000,
	})
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if _, err := f.br.Respond(ctx, pending.ID, true); !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("respond = %v, want ErrInsufficientFunds", err)
	}
	if got := f.player("p1").Cash; got != 100 {
		t.Fatalf("p1 cash = %d, want untouched 100", got)
	}
	// The interaction is spent even though the effect failed.
	if _, err := f.br.Respond(ctx, pending.ID, true); !errors.Is(err, domain.ErrInteractionNotFound) {
		t.Fatalf("second respond = %v, want ErrInteractionNotFound", err)
	}
}

func TestRequestValidation(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()

	cases := []struct {
		name     string
		proposal Proposal
		want     error
	}{
		{"unknown kind", Proposal{Kind: "duel", RequesterID: "p0", TargetID: "p1"}, domain.ErrUnknownAction},
		{"transfer without amount", Proposal{Kind: KindTransfer, RequesterID: "p0", TargetID: "p1"}, domain.ErrUnknownAction},
		{"trade without cards", Proposal{Kind: KindTrade, RequesterID: "p0", TargetID: "p1"}, domain.ErrUnknownAction},
		{"missing target", Proposal{Kind: KindSwap, RequesterID: "p0"}, domain.ErrUnknownAction},
		{"unknown target", Proposal{Kind: KindSwap, RequesterID: "p0", TargetID: "ghost"}, domain.ErrPlayerNotFound},
	}
	for _, tc := range cases {
		if _, err := f.br.Request(ctx, testSession, tc.proposal); !errors.Is(err, tc.want) {
			t.Errorf("%s: got %v, want %v", tc.name, err, tc.want)
		}
	}
	if n := f.br.PendingCount(); n != 0 {
		t.Fatalf("pending count = %d after rejected requests", n)
	}
}
