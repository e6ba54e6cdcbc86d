package domain

import (
	"fmt"
	"strings"
)

// DeckKind identifies one of the five action decks.
type DeckKind string

const (
	DeckWork   DeckKind = "work"
	DeckChance DeckKind = "chance"
	DeckStudy  DeckKind = "study"
	DeckTrade  DeckKind = "trade"
	DeckSocial DeckKind = "social"
)

// deckByAction maps action type 1..5 to its deck.
var deckByAction = [ActionCount + 1]DeckKind{
	CellOffice:  DeckWork,
	CellMarket:  DeckChance,
	CellLibrary: DeckStudy,
	CellHarbor:  DeckTrade,
	CellPark:    DeckSocial,
}

// DeckForAction returns the deck consumed by the given action type.
// Panics on an out-of-range action; callers validate first.
func DeckForAction(action int) DeckKind {
	if action < 1 || action > ActionCount {
		panic(fmt.Sprintf("no deck for action %d", action))
	}
	return deckByAction[action]
}

// Plan reports whether cards drawn from this deck are kept in the
// player's hand instead of going to the discard pile.
func (d DeckKind) Plan() bool {
	return d == DeckStudy || d == DeckSocial
}

// CardEffects is the typed effect payload of a card. Absent fields
// default to zero and apply no change.
type CardEffects struct {
	Cash    int64 `json:"cash,omitempty"`
	Insight int   `json:"insight,omitempty"`
	Charm   int   `json:"charm,omitempty"`
	Grit    int   `json:"grit,omitempty"`
}

// Empty reports whether the card changes nothing.
func (e CardEffects) Empty() bool {
	return e == CardEffects{}
}

// Describe renders the effects as a short human-readable summary,
// e.g. "+30 cash, +1 insight".
func (e CardEffects) Describe() string {
	var parts []string
	add := func(v int64, unit string) {
		if v == 0 {
			return
		}
		parts = append(parts, fmt.Sprintf("%+d %s", v, unit))
	}
	add(e.Cash, "cash")
	add(int64(e.Insight), "insight")
	add(int64(e.Charm), "charm")
	add(int64(e.Grit), "grit")
	if len(parts) == 0 {
		return "no effect"
	}
	return strings.Join(parts, ", ")
}

// Card is one entry of a deck's card catalog.
type Card struct {
	ID      string
	Deck    DeckKind
	Title   string
	Effects CardEffects
}
