package domain

// Cell identifies one of the six board cells.
type Cell int

const (
	// NoCell marks an unset position (e.g. no previous action yet).
	NoCell Cell = 0

	CellOffice  Cell = 1
	CellMarket  Cell = 2
	CellLibrary Cell = 3
	CellHarbor  Cell = 4
	CellPark    Cell = 5
	CellPlaza   Cell = 6
)

// CellCount is the number of cells on the board ring.
const CellCount = 6

// FreeActionCell is the cell that accepts any action type 1..5.
const FreeActionCell = CellPlaza

// ActionCount is the number of distinct action types (one per deck).
const ActionCount = 5

// adjacency is the fixed board ring. Every cell touches exactly two others.
var adjacency = map[Cell][2]Cell{
	CellOffice:  {CellMarket, CellLibrary},
	CellMarket:  {CellOffice, CellHarbor},
	CellLibrary: {CellOffice, CellPark},
	CellHarbor:  {CellMarket, CellPlaza},
	CellPark:    {CellLibrary, CellPlaza},
	CellPlaza:   {CellHarbor, CellPark},
}

var cellNames = map[Cell]string{
	CellOffice:  "Office",
	CellMarket:  "Market",
	CellLibrary: "Library",
	CellHarbor:  "Harbor",
	CellPark:    "Park",
	CellPlaza:   "Plaza",
}

// Valid reports whether c is a real board cell.
func (c Cell) Valid() bool {
	return c >= CellOffice && c <= CellPlaza
}

// Name returns the display name for the cell.
func (c Cell) Name() string {
	if name, ok := cellNames[c]; ok {
		return name
	}
	return "Unknown"
}

// Neighbors returns the two cells adjacent to c on the ring.
func (c Cell) Neighbors() [2]Cell {
	return adjacency[c]
}

// Adjacent reports whether a move from c to target is legal on the board.
func (c Cell) Adjacent(target Cell) bool {
	n := adjacency[c]
	return target == n[0] || target == n[1]
}

// ActionAllowedAt reports whether the given action type may be performed
// from this cell. Every cell maps to its own action, except the free-action
// cell which accepts any of them.
func (c Cell) ActionAllowedAt(action int) bool {
	if action < 1 || action > ActionCount {
		return false
	}
	if c == FreeActionCell {
		return true
	}
	return int(c) == action
}
