package autopilot

import (
	"math/rand"
	"testing"

	"fortnight/internal/domain"
)

func TestChooseMoveNeverRepeatsLastPosition(t *testing.T) {
	for cell := domain.CellOffice; cell <= domain.CellPlaza; cell++ {
		n := cell.Neighbors()
		for _, last := range n {
			p := &domain.Player{Position: cell, LastPosition: last}
			got := DefaultTuning.ChooseMove(p)
			if got == last {
				t.Errorf("from %s with last %s: chose the forbidden cell", cell.Name(), last.Name())
			}
			if !cell.Adjacent(got) {
				t.Errorf("from %s: chose non-adjacent %s", cell.Name(), got.Name())
			}
		}
	}
}

func TestChooseMovePrefersCashWhenBroke(t *testing.T) {
	// The Library touches the Office and the Park; a broke player should
	// pick the cash cell.
	broke := &domain.Player{Position: domain.CellLibrary, Cash: 0}
	if got := DefaultTuning.ChooseMove(broke); got != domain.CellOffice {
		t.Fatalf("broke player moved to %s, want Office", got.Name())
	}
}

func TestChooseMovePlazaWithTokens(t *testing.T) {
	tuning := DefaultTuning
	tuning.FreeActionBonus = 10 // dominate every other weight
	p := &domain.Player{Position: domain.CellHarbor, Cash: 100, ResolveTokens: 1}
	if got := tuning.ChooseMove(p); got != domain.CellPlaza {
		t.Fatalf("token holder moved to %s, want Plaza", got.Name())
	}
	p.ResolveTokens = 0
	if got := tuning.ChooseMove(p); got == domain.CellPlaza {
		t.Fatal("bonus applied without tokens")
	}
}

func TestChooseActionOutsidePlaza(t *testing.T) {
	for cell := domain.CellOffice; cell <= domain.CellPark; cell++ {
		if got := ChooseAction(cell, domain.NoCell); got != int(cell) {
			t.Errorf("at %s: action %d, want %d", cell.Name(), got, int(cell))
		}
	}
}

func TestChooseActionOnPlazaSkipsLast(t *testing.T) {
	if got := ChooseAction(domain.FreeActionCell, domain.NoCell); got != int(domain.CellOffice) {
		t.Fatalf("first priority = %d, want work", got)
	}
	if got := ChooseAction(domain.FreeActionCell, domain.CellOffice); got != int(domain.CellHarbor) {
		t.Fatalf("with Office last = %d, want trade", got)
	}
}

func TestResolveWindow(t *testing.T) {
	cases := []struct {
		day   int
		start int
		ok    bool
	}{
		{1, 0, false}, {2, 0, false},
		{3, 3, true}, {7, 3, true},
		{8, 0, false},
		{9, 9, true}, {13, 9, true},
		{14, 0, false},
	}
	for _, tc := range cases {
		start, _, ok := ResolveWindow(tc.day)
		if ok != tc.ok || (ok && start != tc.start) {
			t.Errorf("day %d: window %d,%v, want %d,%v", tc.day, start, ok, tc.start, tc.ok)
		}
	}
}

func TestShouldUseResolveCertainOnLastWindowDay(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 100; i++ {
		if !ShouldUseResolve(7, rng) {
			t.Fatal("early window's last day must force usage")
		}
		if !ShouldUseResolve(13, rng) {
			t.Fatal("late window's last day must force usage")
		}
		if ShouldUseResolve(8, rng) {
			t.Fatal("recovery day is outside both windows")
		}
	}
}

func TestShouldUseResolveRampsUp(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	hits := func(day int) int {
		n := 0
		for i := 0; i < 2000; i++ {
			if ShouldUseResolve(day, rng) {
				n++
			}
		}
		return n
	}
	early, late := hits(3), hits(6)
	if early >= late {
		t.Fatalf("usage should ramp up through the window: day 3 hit %d, day 6 hit %d", early, late)
	}
}
