package tafl

import (
	"cmp"
	"slices"

	"github.com/rocketscienceinc/tafl-backend/internal/entity"
)

// ApplyCaptures removes every piece captured by the piece that just arrived on dest and
// returns their coordinates in board scan order (row by row).
func (that *Engine) ApplyCaptures(board entity.Board, dest entity.Coordinate) []entity.Coordinate {
	mover := board.At(dest)
	side := mover.Side()

	if !that.isCapturing(mover, side) {
		return nil
	}

	found := make(map[entity.Coordinate]struct{})

	if that.rules.Sandwich {
		for _, c := range that.sandwichCaptures(board, dest, side) {
			found[c] = struct{}{}
		}
	}

	if that.rules.Shieldwall {
		for _, c := range that.shieldwallCaptures(board, dest, side) {
			found[c] = struct{}{}
		}
	}

	taken := make([]entity.Coordinate, 0, len(found))
	for c := range found {
		taken = append(taken, c)
	}

	slices.SortFunc(taken, func(a, b entity.Coordinate) int {
		return cmp.Or(cmp.Compare(a.Y, b.Y), cmp.Compare(a.X, b.X))
	})

	for _, c := range taken {
		board.Set(c, entity.Empty)
	}

	return taken
}

// isCapturing reports whether piece takes part in captures for side. The king only does
// so under the armed king rule.
func (that *Engine) isCapturing(piece entity.Piece, side entity.Side) bool {
	switch piece {
	case entity.Attacker:
		return side == entity.SideAttacker
	case entity.Defender:
		return side == entity.SideDefender
	case entity.King:
		return side == entity.SideDefender && that.rules.ArmedKing
	default:
		return false
	}
}

func (that *Engine) sandwichCaptures(board entity.Board, dest entity.Coordinate, side entity.Side) []entity.Coordinate {
	var taken []entity.Coordinate

	for _, dir := range directions {
		victimPos := dest.Add(dir[0], dir[1])
		victim := board.At(victimPos)

		if victim.IsEmpty() || victim == entity.King || victim.Side() == side {
			continue
		}

		partnerPos := victimPos.Add(dir[0], dir[1])
		if !board.InBounds(partnerPos) {
			continue
		}

		if that.isPartner(board, partnerPos, side) {
			taken = append(taken, victimPos)
		}
	}

	return taken
}

// isPartner reports whether the cell closes a sandwich for side: a capturing piece, or an
// empty restricted square when captures against restricted squares are allowed.
func (that *Engine) isPartner(board entity.Board, pos entity.Coordinate, side entity.Side) bool {
	piece := board.At(pos)
	if that.isCapturing(piece, side) {
		return true
	}

	return piece.IsEmpty() && that.rules.TakeAgainstRestricted && board.IsRestricted(pos)
}

// edge is one board border walked from one end to the other.
type edge struct {
	cells  []entity.Coordinate
	inward [2]int
}

func edgesOf(board entity.Board) []edge {
	size := board.Size()
	last := size - 1

	top, bottom := make([]entity.Coordinate, size), make([]entity.Coordinate, size)
	left, right := make([]entity.Coordinate, size), make([]entity.Coordinate, size)

	for i := 0; i < size; i++ {
		top[i] = entity.Coordinate{X: i, Y: 0}
		bottom[i] = entity.Coordinate{X: i, Y: last}
		left[i] = entity.Coordinate{X: 0, Y: i}
		right[i] = entity.Coordinate{X: last, Y: i}
	}

	return []edge{
		{cells: top, inward: [2]int{0, 1}},
		{cells: bottom, inward: [2]int{0, -1}},
		{cells: left, inward: [2]int{1, 0}},
		{cells: right, inward: [2]int{-1, 0}},
	}
}

// shieldwallCaptures finds runs of at least two enemy pieces along an edge that are
// fronted by pieces of the moving side, bracketed on both ends, and where dest is one of the brackets.
func (that *Engine) shieldwallCaptures(board entity.Board, dest entity.Coordinate, side entity.Side) []entity.Coordinate {
	if !board.IsEdge(dest) {
		return nil
	}

	victimSide := side.Opponent()

	var taken []entity.Coordinate

	for _, e := range edgesOf(board) {
		for start := 0; start < len(e.cells); {
			if board.At(e.cells[start]).Side() != victimSide {
				start++
				continue
			}

			end := start
			for end+1 < len(e.cells) && board.At(e.cells[end+1]).Side() == victimSide {
				end++
			}

			run := e.cells[start : end+1]
			if that.isShieldwall(board, e, start, end, dest, side) {
				for _, c := range run {
					if board.At(c) != entity.King {
						taken = append(taken, c)
					}
				}
			}

			start = end + 1
		}
	}

	return taken
}

func (that *Engine) isShieldwall(board entity.Board, e edge, start, end int, dest entity.Coordinate, side entity.Side) bool {
	if end-start+1 < 2 || start == 0 || end == len(e.cells)-1 {
		return false
	}

	before, after := e.cells[start-1], e.cells[end+1]
	if dest != before && dest != after {
		return false
	}

	if !isBracket(board, before, side) || !isBracket(board, after, side) {
		return false
	}

	// The king fronts and brackets a shieldwall whether or not it is armed.
	for _, c := range e.cells[start : end+1] {
		if board.At(c.Add(e.inward[0], e.inward[1])).Side() != side {
			return false
		}
	}

	return true
}

func isBracket(board entity.Board, pos entity.Coordinate, side entity.Side) bool {
	return board.IsCorner(pos) || board.At(pos).Side() == side
}
