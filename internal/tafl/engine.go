package tafl

import (
	"github.com/rocketscienceinc/tafl-backend/internal/entity"
)

// directions are the four orthogonal steps.
var directions = [4][2]int{{0, -1}, {1, 0}, {0, 1}, {-1, 0}}

// Engine adjudicates moves on a board. It holds no per-game state and is safe for concurrent use.
type Engine struct {
	rules Rules
}

func NewEngine(rules Rules) *Engine {
	return &Engine{rules: rules}
}

func (that *Engine) Rules() Rules {
	return that.rules
}

// IsMoveLegal reports whether the piece on from may slide to to. Out of range
// coordinates make a move illegal.
func (that *Engine) IsMoveLegal(board entity.Board, from, to entity.Coordinate) bool {
	if !board.InBounds(from) || !board.InBounds(to) {
		return false
	}

	piece := board.At(from)
	if piece.IsEmpty() {
		return false
	}

	if !board.At(to).IsEmpty() {
		return false
	}

	if from.X != to.X && from.Y != to.Y {
		return false
	}

	if that.rules.CantMoveOver && !isPathClear(board, from, to) {
		return false
	}

	if that.rules.KingOnlyRestricted && piece != entity.King && board.IsRestricted(to) {
		return false
	}

	return true
}

// isPathClear checks the cells strictly between from and to.
func isPathClear(board entity.Board, from, to entity.Coordinate) bool {
	dx, dy := sign(to.X-from.X), sign(to.Y-from.Y)

	for current := from.Add(dx, dy); current != to; current = current.Add(dx, dy) {
		if !board.At(current).IsEmpty() {
			return false
		}
	}

	return true
}

// MovePiece relocates the piece on from to to without any rule checks.
func MovePiece(board entity.Board, from, to entity.Coordinate) {
	board.Set(to, board.At(from))
	board.Set(from, entity.Empty)
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
