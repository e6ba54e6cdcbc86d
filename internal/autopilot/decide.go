// Package autopilot drives seats marked autonomous through the same
// public turn surface human players use, so no legality rule is bypassed.
package autopilot

import (
	"math/rand"

	"fortnight/internal/domain"
)

// Tuning holds the fixed utilities behind an autonomous seat's choices.
type Tuning struct {
	// CellBase is the thematic fit of each cell, before situational bonuses.
	CellBase map[domain.Cell]float64
	// CashNeed marks the balance under which cash-earning cells gain CashBonus.
	CashNeed  int64
	CashBonus float64
	// ChanceWeight is the fixed gamble appetite for the Market cell.
	ChanceWeight float64
	// FreeActionBonus favors the Plaza while the seat holds resolve tokens.
	FreeActionBonus float64
}

// DefaultTuning prefers steady earning, with the Plaza becoming attractive
// while tokens are available to spend there.
var DefaultTuning = Tuning{
	CellBase: map[domain.Cell]float64{
		domain.CellOffice:  1.0,
		domain.CellMarket:  0.4,
		domain.CellLibrary: 0.7,
		domain.CellHarbor:  0.9,
		domain.CellPark:    0.6,
		domain.CellPlaza:   0.5,
	},
	CashNeed:        50,
	CashBonus:       0.8,
	ChanceWeight:    0.3,
	FreeActionBonus: 0.6,
}

// cashCells earn currency directly; they gain the cash bonus when low.
var cashCells = map[domain.Cell]bool{
	domain.CellOffice: true,
	domain.CellHarbor: true,
}

// actionPriority orders fallback action choices: earn first, gamble last.
var actionPriority = [...]int{
	int(domain.CellOffice),
	int(domain.CellHarbor),
	int(domain.CellLibrary),
	int(domain.CellPark),
	int(domain.CellMarket),
}

// Resolve-token usage windows. Each allows at most one use; the chance of
// using rises to certainty on the window's last day.
const (
	earlyWindowStart = 3
	earlyWindowEnd   = 7
	lateWindowStart  = 9
	lateWindowEnd    = 13
)

// ChooseMove scores the two cells adjacent to the player and returns the
// better one. A cell equal to the player's last position is never chosen.
func (t Tuning) ChooseMove(p *domain.Player) domain.Cell {
	n := p.Position.Neighbors()
	a, b := n[0], n[1]
	if a == p.LastPosition {
		return b
	}
	if b == p.LastPosition {
		return a
	}
	if t.scoreCell(p, b) > t.scoreCell(p, a) {
		return b
	}
	return a
}

func (t Tuning) scoreCell(p *domain.Player, c domain.Cell) float64 {
	score := t.CellBase[c]
	if cashCells[c] && p.Cash < t.CashNeed {
		score += t.CashBonus
	}
	if c == domain.CellMarket {
		score += t.ChanceWeight
	}
	if c == domain.FreeActionCell && p.ResolveTokens > 0 {
		score += t.FreeActionBonus
	}
	return score
}

// ChooseAction returns the action to perform at the cell. On the free
// action cell the highest-priority action that does not repeat last is
// chosen; elsewhere the cell dictates the action.
func ChooseAction(cell, last domain.Cell) int {
	if cell != domain.FreeActionCell {
		return int(cell)
	}
	for _, action := range actionPriority {
		if action != int(last) {
			return action
		}
	}
	return actionPriority[0]
}

// ResolveWindow returns the bounds of the usage window containing day, or
// ok=false when day is outside both windows.
func ResolveWindow(day int) (start, end int, ok bool) {
	switch {
	case day >= earlyWindowStart && day <= earlyWindowEnd:
		return earlyWindowStart, earlyWindowEnd, true
	case day >= lateWindowStart && day <= lateWindowEnd:
		return lateWindowStart, lateWindowEnd, true
	}
	return 0, 0, false
}

// ShouldUseResolve decides probabilistically whether to spend a token
// today. The chance grows linearly through the window and reaches 1 on
// its last day, so an unused token is always spent before the window
// closes.
func ShouldUseResolve(day int, rng *rand.Rand) bool {
	start, end, ok := ResolveWindow(day)
	if !ok {
		return false
	}
	p := float64(day-start+1) / float64(end-start+1)
	return rng.Float64() < p
}
