package entity

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/rocketscienceinc/tafl-backend/internal/apperror"
)

type Piece string

const (
	Empty    Piece = " "
	Attacker Piece = "a"
	Defender Piece = "d"
	King     Piece = "k"
)

type Side string

const (
	SideAttacker Side = "attacker"
	SideDefender Side = "defender"
	SideNone     Side = "none"
)

const (
	MinBoardSize = 5
	MaxBoardSize = 19
)

var errCoordinateShape = errors.New("coordinate must be a pair of integers")

// Side returns the side a piece fights for. The king fights for the defenders.
func (that Piece) Side() Side {
	switch that {
	case Attacker:
		return SideAttacker
	case Defender, King:
		return SideDefender
	default:
		return SideNone
	}
}

func (that Piece) IsEmpty() bool {
	return that == Empty
}

// Opponent returns the other playing side, SideNone stays SideNone.
func (that Side) Opponent() Side {
	switch that {
	case SideAttacker:
		return SideDefender
	case SideDefender:
		return SideAttacker
	default:
		return SideNone
	}
}

func (that Side) IsPlaying() bool {
	return that == SideAttacker || that == SideDefender
}

// Coordinate addresses a cell as column X and row Y. On the wire it is the pair [x, y].
type Coordinate struct {
	X int
	Y int
}

func (that Coordinate) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{that.X, that.Y})
}

func (that *Coordinate) UnmarshalJSON(data []byte) error {
	var pair []int
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("%w: %w", errCoordinateShape, err)
	}

	if len(pair) != 2 {
		return errCoordinateShape
	}

	that.X, that.Y = pair[0], pair[1]

	return nil
}

func (that Coordinate) Add(dx, dy int) Coordinate {
	return Coordinate{X: that.X + dx, Y: that.Y + dy}
}

// Board is indexed as board[y][x].
type Board [][]Piece

// NewBoard builds an empty square board of the given size.
func NewBoard(size int) Board {
	board := make(Board, size)
	for y := range board {
		board[y] = make([]Piece, size)
		for x := range board[y] {
			board[y][x] = Empty
		}
	}

	return board
}

// ParseBoard builds a board from rows of cell strings, e.g. "a  d k".
func ParseBoard(rows ...string) Board {
	board := make(Board, len(rows))
	for y, row := range rows {
		board[y] = make([]Piece, len(row))
		for x, cell := range row {
			board[y][x] = Piece(string(cell))
		}
	}

	return board
}

func (that Board) Size() int {
	return len(that)
}

func (that Board) InBounds(c Coordinate) bool {
	return c.Y >= 0 && c.Y < len(that) && c.X >= 0 && c.X < len(that[c.Y])
}

// At returns the piece at c, out of range cells read as empty.
func (that Board) At(c Coordinate) Piece {
	if !that.InBounds(c) {
		return Empty
	}

	return that[c.Y][c.X]
}

func (that Board) Set(c Coordinate, piece Piece) {
	if that.InBounds(c) {
		that[c.Y][c.X] = piece
	}
}

func (that Board) IsCorner(c Coordinate) bool {
	last := len(that) - 1
	return (c.X == 0 || c.X == last) && (c.Y == 0 || c.Y == last)
}

func (that Board) IsEdge(c Coordinate) bool {
	last := len(that) - 1
	return that.InBounds(c) && (c.X == 0 || c.Y == 0 || c.X == last || c.Y == last)
}

// IsThrone reports whether c is the centre square. Even-sized boards have none.
func (that Board) IsThrone(c Coordinate) bool {
	size := len(that)
	return size%2 == 1 && c.X == size/2 && c.Y == size/2
}

// IsRestricted reports whether c is one of the king-only squares: the corners and the throne.
func (that Board) IsRestricted(c Coordinate) bool {
	return that.IsCorner(c) || that.IsThrone(c)
}

// FindKing returns the position of the king.
func (that Board) FindKing() (Coordinate, bool) {
	for y, row := range that {
		for x, piece := range row {
			if piece == King {
				return Coordinate{X: x, Y: y}, true
			}
		}
	}

	return Coordinate{}, false
}

func (that Board) Clone() Board {
	clone := make(Board, len(that))
	for y, row := range that {
		clone[y] = slices.Clone(row)
	}

	return clone
}

func (that Board) Equal(other Board) bool {
	if len(that) != len(other) {
		return false
	}

	for y := range that {
		if !slices.Equal(that[y], other[y]) {
			return false
		}
	}

	return true
}

// Normalize validates an untrusted board in place: square, within size limits, only known
// pieces and exactly one king. Empty strings are read as empty cells.
func (that Board) Normalize() error {
	size := len(that)
	if size < MinBoardSize || size > MaxBoardSize {
		return fmt.Errorf("%w: size %d", apperror.ErrInvalidBoard, size)
	}

	kings := 0
	for y, row := range that {
		if len(row) != size {
			return fmt.Errorf("%w: row %d has %d cells", apperror.ErrInvalidBoard, y, len(row))
		}

		for x, piece := range row {
			switch piece {
			case "":
				row[x] = Empty
			case Empty, Attacker, Defender:
			case King:
				kings++
			default:
				return fmt.Errorf("%w: unknown piece %q at [%d,%d]", apperror.ErrInvalidBoard, piece, x, y)
			}
		}
	}

	if kings != 1 {
		return fmt.Errorf("%w: expected one king, found %d", apperror.ErrInvalidBoard, kings)
	}

	return nil
}
