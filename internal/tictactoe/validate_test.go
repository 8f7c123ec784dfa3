package tictactoe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-sync/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-sync/internal/entity"
)

func TestValidate(t *testing.T) {
	t.Run("Accepts every reachable in-progress document", func(t *testing.T) {
		eachPlayableBoard(func(game entity.Game) {
			require.NoError(t, Validate(game), "board %v", game.Board)
		})
	})

	t.Run("Accepts a fresh session", func(t *testing.T) {
		game := entity.NewGame("alice")
		game.ID = "s1"

		assert.NoError(t, Validate(game))
	})

	t.Run("Accepts a finished game with frozen turn", func(t *testing.T) {
		game, err := ApplyMove(func() entity.Game {
			g := readyGame()
			g.Board = entity.Board{x, x, e, o, o, e, e, e, e}
			return g
		}(), entity.FirstPlayer, 2)
		require.NoError(t, err)

		assert.NoError(t, Validate(game))
	})

	t.Run("Accepts a second player win", func(t *testing.T) {
		game := readyGame()
		game.Board = entity.Board{o, o, o, x, x, e, x, e, e}
		game.Outcome = entity.SecondPlayerWins

		assert.NoError(t, Validate(game))
	})

	tests := []struct {
		name   string
		mutate func(game *entity.Game)
	}{
		{"Missing session id", func(g *entity.Game) { g.ID = "" }},
		{"Missing first player", func(g *entity.Game) { g.FirstPlayerID = "" }},
		{"Unknown turn", func(g *entity.Game) { g.Turn = "third" }},
		{"Unknown mark", func(g *entity.Game) { g.Board[0] = "Z" }},
		{"Moves before join", func(g *entity.Game) {
			g.SecondPlayerID = ""
			g.Board[0] = x
			g.Turn = entity.SecondPlayer
		}},
		{"Second player moved first", func(g *entity.Game) {
			g.Board[0] = o
		}},
		{"First player moved twice", func(g *entity.Game) {
			g.Board[0], g.Board[1] = x, x
		}},
		{"Both players complete a line", func(g *entity.Game) {
			g.Board = entity.Board{x, x, x, o, o, o, x, e, e}
			g.Outcome = entity.FirstPlayerWins
		}},
		{"Outcome does not match board", func(g *entity.Game) {
			g.Board = entity.Board{x, x, x, o, o, e, e, e, e}
			g.Turn = entity.SecondPlayer
		}},
		{"Second player moved after the first player won", func(g *entity.Game) {
			g.Board = entity.Board{x, x, x, o, o, e, o, e, e}
			g.Outcome = entity.FirstPlayerWins
		}},
		{"First player moved after the second player won", func(g *entity.Game) {
			g.Board = entity.Board{o, o, o, x, x, e, x, x, e}
			g.Outcome = entity.SecondPlayerWins
		}},
		{"Turn out of order", func(g *entity.Game) {
			g.Turn = entity.SecondPlayer
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Given: a document broken in one way
			game := readyGame()
			tt.mutate(&game)

			// When: validating it
			err := Validate(game)

			// Then: it is reported as corrupted
			require.ErrorIs(t, err, apperror.ErrCorruptedSession)
		})
	}
}

func TestProgression(t *testing.T) {
	base := readyGame()
	base.Board = entity.Board{x, e, e, e, o, e, e, e, e}

	t.Run("Same document is a progression", func(t *testing.T) {
		stale, err := Progression(base, base)

		require.NoError(t, err)
		assert.False(t, stale)
	})

	t.Run("Next move is a progression", func(t *testing.T) {
		next, err := ApplyMove(base, entity.FirstPlayer, 8)
		require.NoError(t, err)

		stale, err := Progression(base, next)

		require.NoError(t, err)
		assert.False(t, stale)
	})

	t.Run("Earlier document is stale", func(t *testing.T) {
		earlier := readyGame()
		earlier.Board = entity.Board{x, e, e, e, e, e, e, e, e}
		earlier.Turn = entity.SecondPlayer

		stale, err := Progression(base, earlier)

		require.NoError(t, err)
		assert.True(t, stale)
	})

	t.Run("Document from before the join is stale", func(t *testing.T) {
		beforeJoin := entity.NewGame("alice")
		beforeJoin.ID = "s1"

		stale, err := Progression(readyGame(), beforeJoin)

		require.NoError(t, err)
		assert.True(t, stale)
	})

	t.Run("Overwritten cell is corrupted", func(t *testing.T) {
		rewritten := base
		rewritten.Board[0] = o
		rewritten.Board[4] = x

		_, err := Progression(base, rewritten)

		require.ErrorIs(t, err, apperror.ErrCorruptedSession)
	})

	t.Run("Replaced second player is corrupted", func(t *testing.T) {
		replaced := base
		replaced.SecondPlayerID = "carol"

		_, err := Progression(base, replaced)

		require.ErrorIs(t, err, apperror.ErrCorruptedSession)
	})

	t.Run("Different session is corrupted", func(t *testing.T) {
		other := base
		other.ID = "s2"

		_, err := Progression(base, other)

		require.ErrorIs(t, err, apperror.ErrCorruptedSession)
	})
}
