package tafl

import (
	"testing"

	"github.com/rocketscienceinc/tafl-backend/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(x, y int) entity.Coordinate {
	return entity.Coordinate{X: x, Y: y}
}

func TestEngine_IsMoveLegal(t *testing.T) {
	engine := NewEngine(DefaultRules())

	board := entity.ParseBoard(
		"       ",
		"   a   ",
		"       ",
		" d k  a",
		"       ",
		"       ",
		"       ",
	)

	cases := []struct {
		name     string
		from, to entity.Coordinate
		legal    bool
	}{
		{"slide along a file", at(3, 1), at(3, 0), true},
		{"slide along a rank", at(1, 3), at(1, 6), true},
		{"slide up to a blocker", at(6, 3), at(4, 3), true},
		{"diagonal", at(3, 1), at(4, 2), false},
		{"occupied destination", at(1, 3), at(3, 3), false},
		{"jump over a piece", at(6, 3), at(2, 3), false},
		{"stand still", at(3, 1), at(3, 1), false},
		{"empty origin", at(0, 0), at(0, 4), false},
		{"origin out of range", at(-1, 3), at(0, 3), false},
		{"destination out of range", at(3, 1), at(3, -1), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.legal, engine.IsMoveLegal(board, tc.from, tc.to))
		})
	}

	t.Run("Blocking is ignored when moving over pieces is allowed", func(t *testing.T) {
		rules := DefaultRules()
		rules.CantMoveOver = false

		assert.True(t, NewEngine(rules).IsMoveLegal(board, at(6, 3), at(2, 3)))
	})
}

func TestEngine_IsMoveLegal_RestrictedSquares(t *testing.T) {
	board := entity.ParseBoard(
		"a    ",
		"     ",
		"     ",
		"     ",
		"k   d",
	)

	t.Run("Permissive by default", func(t *testing.T) {
		engine := NewEngine(DefaultRules())
		assert.True(t, engine.IsMoveLegal(board, at(0, 0), at(2, 0)))
		assert.True(t, engine.IsMoveLegal(board, at(4, 4), at(4, 0)))
	})

	t.Run("Only the king may enter restricted squares", func(t *testing.T) {
		rules := DefaultRules()
		rules.KingOnlyRestricted = true
		engine := NewEngine(rules)

		// Given: a defender heading for a corner and the throne
		// Then: both are refused while the king may take the throne
		assert.False(t, engine.IsMoveLegal(board, at(4, 4), at(4, 0)))
		assert.True(t, engine.IsMoveLegal(board, at(0, 0), at(0, 2)))
		assert.False(t, engine.IsMoveLegal(entity.ParseBoard(
			"     ",
			"     ",
			"d    ",
			"     ",
			"    k",
		), at(0, 2), at(2, 2)))
		assert.True(t, engine.IsMoveLegal(entity.ParseBoard(
			"     ",
			"     ",
			"k    ",
			"     ",
			"    d",
		), at(0, 2), at(2, 2)))
	})
}

func TestMovePiece(t *testing.T) {
	board := entity.ParseBoard(
		"a    ",
		"     ",
		"  k  ",
		"     ",
		"     ",
	)

	MovePiece(board, at(0, 0), at(0, 3))

	assert.Equal(t, entity.Empty, board.At(at(0, 0)))
	assert.Equal(t, entity.Attacker, board.At(at(0, 3)))
}

func TestEngine_SandwichCapture(t *testing.T) {
	t.Run("Attacker flanks a defender", func(t *testing.T) {
		// Given: an attacker that just arrived next to a defender backed by another attacker
		engine := NewEngine(DefaultRules())
		board := entity.ParseBoard(
			"     ",
			"     ",
			"ada  ",
			"     ",
			"    k",
		)

		// When: captures are applied for the mover on [2,2]
		taken := engine.ApplyCaptures(board, at(2, 2))

		// Then: the defender is removed
		require.Equal(t, []entity.Coordinate{at(1, 2)}, taken)
		assert.Equal(t, entity.Empty, board.At(at(1, 2)))
	})

	t.Run("Captures on several sides at once are reported in scan order", func(t *testing.T) {
		engine := NewEngine(DefaultRules())
		board := entity.ParseBoard(
			"  a  ",
			"  d  ",
			"adada",
			"     ",
			"    k",
		)

		taken := engine.ApplyCaptures(board, at(2, 2))

		assert.Equal(t, []entity.Coordinate{at(2, 1), at(1, 2), at(3, 2)}, taken)
	})

	t.Run("King is never sandwiched", func(t *testing.T) {
		engine := NewEngine(DefaultRules())
		board := entity.ParseBoard(
			"     ",
			"     ",
			"aka  ",
			"     ",
			"     ",
		)

		taken := engine.ApplyCaptures(board, at(2, 2))

		assert.Empty(t, taken)
		assert.Equal(t, entity.King, board.At(at(1, 2)))
	})

	t.Run("Own pieces are never taken", func(t *testing.T) {
		engine := NewEngine(DefaultRules())
		board := entity.ParseBoard(
			"     ",
			"     ",
			"aaa  ",
			"     ",
			"    k",
		)

		assert.Empty(t, engine.ApplyCaptures(board, at(2, 2)))
	})

	t.Run("Armed king closes a sandwich against an attacker", func(t *testing.T) {
		board := func() entity.Board {
			return entity.ParseBoard(
				"     ",
				"     ",
				"kad  ",
				"     ",
				"     ",
			)
		}

		armed := NewEngine(DefaultRules())
		assert.Equal(t, []entity.Coordinate{at(1, 2)}, armed.ApplyCaptures(board(), at(2, 2)))

		rules := DefaultRules()
		rules.ArmedKing = false
		unarmed := NewEngine(rules)
		assert.Empty(t, unarmed.ApplyCaptures(board(), at(2, 2)))
	})

	t.Run("Unarmed king does not capture when it moves", func(t *testing.T) {
		rules := DefaultRules()
		rules.ArmedKing = false
		board := entity.ParseBoard(
			"     ",
			"     ",
			"dak  ",
			"     ",
			"     ",
		)

		assert.Empty(t, NewEngine(rules).ApplyCaptures(board, at(2, 2)))
		assert.Equal(t, []entity.Coordinate{at(1, 2)}, NewEngine(DefaultRules()).ApplyCaptures(board, at(2, 2)))
	})

	t.Run("Empty restricted square acts as a partner", func(t *testing.T) {
		board := func() entity.Board {
			return entity.ParseBoard(
				" da  ",
				"     ",
				"     ",
				"     ",
				"    k",
			)
		}

		engine := NewEngine(DefaultRules())
		assert.Equal(t, []entity.Coordinate{at(1, 0)}, engine.ApplyCaptures(board(), at(2, 0)))

		rules := DefaultRules()
		rules.TakeAgainstRestricted = false
		assert.Empty(t, NewEngine(rules).ApplyCaptures(board(), at(2, 0)))
	})

	t.Run("Disabled sandwich rule captures nothing", func(t *testing.T) {
		rules := DefaultRules()
		rules.Sandwich = false
		board := entity.ParseBoard(
			"     ",
			"     ",
			"ada  ",
			"     ",
			"    k",
		)

		assert.Empty(t, NewEngine(rules).ApplyCaptures(board, at(2, 2)))
	})
}

func TestEngine_ShieldwallCapture(t *testing.T) {
	t.Run("Bracketed and fronted run is taken", func(t *testing.T) {
		// Given: two defenders on the top edge, fronted by attackers, with the attacker
		// that just moved to [4,0] closing the bracket
		engine := NewEngine(DefaultRules())
		board := entity.ParseBoard(
			" adda  ",
			"  aa   ",
			"       ",
			"       ",
			"       ",
			"       ",
			"      k",
		)

		// When: captures are applied
		taken := engine.ApplyCaptures(board, at(4, 0))

		// Then: the whole run is removed
		assert.Equal(t, []entity.Coordinate{at(2, 0), at(3, 0)}, taken)
		assert.Equal(t, entity.Empty, board.At(at(2, 0)))
		assert.Equal(t, entity.Empty, board.At(at(3, 0)))
	})

	t.Run("King inside the run stays on the board", func(t *testing.T) {
		engine := NewEngine(DefaultRules())
		board := entity.ParseBoard(
			" adka  ",
			"  aa   ",
			"       ",
			"       ",
			"       ",
			"       ",
			"       ",
		)

		taken := engine.ApplyCaptures(board, at(4, 0))

		assert.Equal(t, []entity.Coordinate{at(2, 0)}, taken)
		assert.Equal(t, entity.King, board.At(at(3, 0)))
	})

	t.Run("Corner brackets the run", func(t *testing.T) {
		engine := NewEngine(DefaultRules())
		board := entity.ParseBoard(
			" dda   ",
			" aa    ",
			"       ",
			"       ",
			"       ",
			"       ",
			"      k",
		)

		taken := engine.ApplyCaptures(board, at(3, 0))

		assert.Equal(t, []entity.Coordinate{at(1, 0), at(2, 0)}, taken)
	})

	t.Run("Unarmed king still brackets a defender shieldwall", func(t *testing.T) {
		// Given: armed king is off and the king holds the far bracket at [1,0]
		rules := DefaultRules()
		rules.ArmedKing = false
		engine := NewEngine(rules)
		board := entity.ParseBoard(
			" kaad  ",
			"  dd   ",
			"       ",
			"       ",
			"       ",
			"       ",
			"       ",
		)

		// When: the defender that just moved to [4,0] closes the bracket
		taken := engine.ApplyCaptures(board, at(4, 0))

		// Then: both attackers are taken
		assert.Equal(t, []entity.Coordinate{at(2, 0), at(3, 0)}, taken)
	})

	t.Run("Unarmed king still fronts a defender shieldwall", func(t *testing.T) {
		rules := DefaultRules()
		rules.ArmedKing = false
		engine := NewEngine(rules)
		board := entity.ParseBoard(
			" daad  ",
			"  kd   ",
			"       ",
			"       ",
			"       ",
			"       ",
			"       ",
		)

		taken := engine.ApplyCaptures(board, at(4, 0))

		assert.Equal(t, []entity.Coordinate{at(2, 0), at(3, 0)}, taken)
	})

	t.Run("Move that is not a bracket does not trigger the capture", func(t *testing.T) {
		// Given: a complete shieldwall where the last move filled in a front square
		engine := NewEngine(DefaultRules())
		board := entity.ParseBoard(
			" adda  ",
			"  aa   ",
			"       ",
			"       ",
			"       ",
			"       ",
			"      k",
		)

		// When: captures are applied for the front piece
		taken := engine.ApplyCaptures(board, at(3, 1))

		// Then: nothing is taken
		assert.Empty(t, taken)
		assert.Equal(t, entity.Defender, board.At(at(2, 0)))
	})

	t.Run("Missing front leaves the run alone", func(t *testing.T) {
		engine := NewEngine(DefaultRules())
		board := entity.ParseBoard(
			" adda  ",
			"  a    ",
			"       ",
			"       ",
			"       ",
			"       ",
			"      k",
		)

		assert.Empty(t, engine.ApplyCaptures(board, at(4, 0)))
	})

	t.Run("Defenders capture attackers along the left edge", func(t *testing.T) {
		engine := NewEngine(DefaultRules())
		board := entity.ParseBoard(
			"       ",
			"d      ",
			"ad     ",
			"ad     ",
			"k      ",
			"       ",
			"       ",
		)

		taken := engine.ApplyCaptures(board, at(0, 4))

		assert.Equal(t, []entity.Coordinate{at(0, 2), at(0, 3)}, taken)
	})
}

func TestEngine_EvaluateWin(t *testing.T) {
	engine := NewEngine(DefaultRules())

	t.Run("King on a corner wins for the defenders regardless of the board", func(t *testing.T) {
		board := entity.ParseBoard(
			"kaaaa",
			"aaaaa",
			"aaaaa",
			"aaaaa",
			"aaaaa",
		)

		outcome := engine.EvaluateWin(board, nil)

		assert.Equal(t, Outcome{Occurred: true, Reason: ReasonKingCornerRetreat, Winner: entity.SideDefender}, outcome)
	})

	t.Run("King enclosed by four attackers", func(t *testing.T) {
		board := entity.ParseBoard(
			"     ",
			"  a  ",
			" aka ",
			"  a d",
			"     ",
		)

		outcome := engine.EvaluateWin(board, nil)

		assert.Equal(t, Outcome{Occurred: true, Reason: ReasonKingSurrounded, Winner: entity.SideAttacker}, outcome)
	})

	t.Run("Board border does not surround the king", func(t *testing.T) {
		board := entity.ParseBoard(
			"akad ",
			" a   ",
			"     ",
			"     ",
			"a    ",
		)

		outcome := engine.EvaluateWin(board, nil)

		assert.NotEqual(t, ReasonKingSurrounded, outcome.Reason)
	})

	t.Run("Defenders fully enclosed by attackers", func(t *testing.T) {
		board := entity.ParseBoard(
			"       ",
			" aaaaa ",
			" a d a ",
			" adkda ",
			" a d a ",
			" aaaaa ",
			"       ",
		)

		outcome := engine.EvaluateWin(board, nil)

		assert.Equal(t, Outcome{Occurred: true, Reason: ReasonDefendersSurrounded, Winner: entity.SideAttacker}, outcome)
	})

	t.Run("Enclosed defenders lose even when the king is outside the ring", func(t *testing.T) {
		// Given: the only defender is ringed by attackers, the king stands free at [3,1]
		board := entity.ParseBoard(
			"       ",
			"   k   ",
			"   a   ",
			"  ada  ",
			"   a   ",
			"       ",
			"       ",
		)

		// When: the win conditions are evaluated
		outcome := engine.EvaluateWin(board, nil)

		// Then: the attackers win
		assert.Equal(t, Outcome{Occurred: true, Reason: ReasonDefendersSurrounded, Winner: entity.SideAttacker}, outcome)
	})

	t.Run("Gap in the ring keeps the defenders alive", func(t *testing.T) {
		board := entity.ParseBoard(
			"       ",
			" aa aa ",
			" a d a ",
			" adkda ",
			" a d a ",
			" aaaaa ",
			"       ",
		)

		assert.False(t, engine.EvaluateWin(board, nil).Occurred)
	})

	t.Run("King on an edge with an attacker in reach does not escape", func(t *testing.T) {
		board := entity.ParseBoard(
			"  k  ",
			"     ",
			"     ",
			"   a ",
			" d   ",
		)

		assert.False(t, engine.EvaluateWin(board, nil).Occurred)
	})

	t.Run("Evaluation is idempotent and does not touch the board", func(t *testing.T) {
		board := entity.ParseBoard(
			"       ",
			" aaaaa ",
			" a d a ",
			" adkda ",
			" a d a ",
			" aaaaa ",
			"       ",
		)
		before := board.Clone()

		first := engine.EvaluateWin(board, nil)
		second := engine.EvaluateWin(board, nil)

		assert.Equal(t, first, second)
		assert.True(t, before.Equal(board))
	})

	t.Run("Corner retreat takes priority over a surrounded defence", func(t *testing.T) {
		board := entity.ParseBoard(
			"ka   ",
			"a    ",
			"     ",
			"     ",
			"     ",
		)

		assert.Equal(t, ReasonKingCornerRetreat, engine.EvaluateWin(board, nil).Reason)
	})
}

func TestEngine_EvaluateWin_Repetition(t *testing.T) {
	board := entity.ParseBoard(
		"     ",
		" a   ",
		"  k  ",
		"   d ",
		"a    ",
	)
	history := []entity.Board{entity.NewBoard(5), board.Clone()}

	t.Run("Disabled by default", func(t *testing.T) {
		assert.False(t, NewEngine(DefaultRules()).EvaluateWin(board, history).Occurred)
	})

	t.Run("Repeated position ends in a draw", func(t *testing.T) {
		rules := DefaultRules()
		rules.EndOnRepetition = true

		outcome := NewEngine(rules).EvaluateWin(board, history)

		assert.Equal(t, Outcome{Occurred: true, Reason: ReasonRepetition, Winner: entity.SideNone}, outcome)
	})
}

func TestEngine_EdgeFortEscapeScenario(t *testing.T) {
	// Given: an 11x11 board where a wall of defenders keeps every attacker away from the
	// upper part of the board
	engine := NewEngine(DefaultRules())
	board := entity.ParseBoard(
		"           ",
		"           ",
		"           ",
		"           ",
		"           ",
		"     k     ",
		"           ",
		"           ",
		"ddddddddddd",
		"           ",
		"aaa     aaa",
	)

	// When: the king slides from [5,5] to the top edge at [5,0]
	require.True(t, engine.IsMoveLegal(board, at(5, 5), at(5, 0)))
	MovePiece(board, at(5, 5), at(5, 0))
	taken := engine.ApplyCaptures(board, at(5, 0))
	outcome := engine.EvaluateWin(board, nil)

	// Then: nothing is captured and the defenders win by edge fort escape
	assert.Empty(t, taken)
	assert.Equal(t, Outcome{Occurred: true, Reason: ReasonEdgeFortEscape, Winner: entity.SideDefender}, outcome)
}

func TestEngine_NoWinOnOpeningPosition(t *testing.T) {
	board := entity.ParseBoard(
		"   aaaaa   ",
		"     a     ",
		"           ",
		"a    d    a",
		"a   ddd   a",
		"aa ddkdd aa",
		"a   ddd   a",
		"a    d    a",
		"           ",
		"     a     ",
		"   aaaaa   ",
	)

	assert.False(t, NewEngine(DefaultRules()).EvaluateWin(board, nil).Occurred)
}
