package tafl

import (
	"github.com/rocketscienceinc/tafl-backend/internal/entity"
)

const (
	ReasonKingCornerRetreat   = "king_corner_retreat"
	ReasonKingSurrounded      = "king_surrounded"
	ReasonEdgeFortEscape      = "edge_fort_escape"
	ReasonDefendersSurrounded = "defenders_surrounded"
	ReasonRepetition          = "repetition"
)

// Outcome is the result of a win-condition evaluation.
type Outcome struct {
	Occurred bool
	Reason   string
	Winner   entity.Side
}

func noOutcome() Outcome {
	return Outcome{Winner: entity.SideNone}
}

func won(reason string, winner entity.Side) Outcome {
	return Outcome{Occurred: true, Reason: reason, Winner: winner}
}

// EvaluateWin checks the win conditions in priority order and returns the first one met.
// history holds the earlier boards of the game and is only consulted for repetition.
func (that *Engine) EvaluateWin(board entity.Board, history []entity.Board) Outcome {
	king, hasKing := board.FindKing()

	if hasKing && that.rules.KingCornerRetreat && board.IsCorner(king) {
		return won(ReasonKingCornerRetreat, entity.SideDefender)
	}

	if hasKing && that.rules.KingSurrounded && isKingSurrounded(board, king) {
		return won(ReasonKingSurrounded, entity.SideAttacker)
	}

	if hasKing && that.rules.EdgeFortEscape && isEdgeFortEscape(board, king) {
		return won(ReasonEdgeFortEscape, entity.SideDefender)
	}

	if that.rules.DefendersSurrounded && areDefendersSurrounded(board) {
		return won(ReasonDefendersSurrounded, entity.SideAttacker)
	}

	if that.rules.EndOnRepetition && isRepetition(board, history) {
		return won(ReasonRepetition, entity.SideNone)
	}

	return noOutcome()
}

// isKingSurrounded requires an attacker on all four sides; a board border does not count.
func isKingSurrounded(board entity.Board, king entity.Coordinate) bool {
	for _, dir := range directions {
		neighbor := king.Add(dir[0], dir[1])
		if !board.InBounds(neighbor) || board.At(neighbor) != entity.Attacker {
			return false
		}
	}

	return true
}

func isEdgeFortEscape(board entity.Board, king entity.Coordinate) bool {
	if !board.IsEdge(king) || !hasEmptyNeighbor(board, king) {
		return false
	}

	reachable := floodFill(board, []entity.Coordinate{king}, entity.Defender)

	return !reachable.contains(entity.Attacker)
}

func hasEmptyNeighbor(board entity.Board, c entity.Coordinate) bool {
	for _, dir := range directions {
		neighbor := c.Add(dir[0], dir[1])
		if board.InBounds(neighbor) && board.At(neighbor).IsEmpty() {
			return true
		}
	}

	return false
}

// areDefendersSurrounded reports whether no defender piece can be reached from the board
// border without crossing an attacker. The king is not a defender piece here.
func areDefendersSurrounded(board entity.Board) bool {
	var seeds []entity.Coordinate
	for _, e := range edgesOf(board) {
		seeds = append(seeds, e.cells...)
	}

	reachable := floodFill(board, seeds, entity.Attacker)

	return !reachable.contains(entity.Defender)
}

func isRepetition(board entity.Board, history []entity.Board) bool {
	for _, previous := range history {
		if board.Equal(previous) {
			return true
		}
	}

	return false
}
