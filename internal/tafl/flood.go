package tafl

import (
	"slices"

	"github.com/rocketscienceinc/tafl-backend/internal/entity"
)

// region is the set of cells reached by a flood fill.
type region struct {
	board   entity.Board
	visited [][]bool
}

// floodFill visits every cell orthogonally connected to the seeds without entering a cell
// that holds the blocking piece. It uses a queue, so its depth does not grow with the board.
func floodFill(board entity.Board, seeds []entity.Coordinate, blocking entity.Piece) region {
	visited := make([][]bool, board.Size())
	for y := range visited {
		visited[y] = make([]bool, len(board[y]))
	}

	queue := make([]entity.Coordinate, 0, len(seeds))

	visit := func(c entity.Coordinate) {
		if !board.InBounds(c) || visited[c.Y][c.X] || board.At(c) == blocking {
			return
		}

		visited[c.Y][c.X] = true
		queue = append(queue, c)
	}

	for _, seed := range seeds {
		visit(seed)
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, dir := range directions {
			visit(current.Add(dir[0], dir[1]))
		}
	}

	return region{board: board, visited: visited}
}

// contains reports whether any reached cell holds one of the pieces.
func (that region) contains(pieces ...entity.Piece) bool {
	for y, row := range that.visited {
		for x, seen := range row {
			if seen && slices.Contains(pieces, that.board[y][x]) {
				return true
			}
		}
	}

	return false
}
