package tictactoe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-sync/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-sync/internal/entity"
)

func readyGame() entity.Game {
	game := entity.NewGame("alice")
	game.ID = "s1"
	game.SecondPlayerID = "bob"

	return game
}

// eachPlayableBoard calls fn for every board that legal play can reach while the game is still in progress.
func eachPlayableBoard(fn func(game entity.Game)) {
	marks := [3]entity.Mark{e, x, o}

	for n := 0; n < 19683; n++ {
		var board entity.Board
		for i, rest := 0, n; i < entity.BoardSize; i, rest = i+1, rest/3 {
			board[i] = marks[rest%3]
		}

		firstMarks, secondMarks := board.Count(x), board.Count(o)
		if firstMarks != secondMarks && firstMarks != secondMarks+1 {
			continue
		}

		if Evaluate(board) != entity.InProgress {
			continue
		}

		game := readyGame()
		game.Board = board
		if firstMarks > secondMarks {
			game.Turn = entity.SecondPlayer
		}

		fn(game)
	}
}

func TestApplyMove(t *testing.T) {
	t.Run("First move on a fresh session", func(t *testing.T) {
		// Given: a fresh ready session
		game := readyGame()

		// When: the first player plays the center
		next, err := ApplyMove(game, entity.FirstPlayer, 4)
		require.NoError(t, err)

		// Then: the mark is placed and the turn passes to the second player
		expected := entity.Game{
			ID:             "s1",
			Board:          entity.Board{e, e, e, e, x, e, e, e, e},
			Turn:           entity.SecondPlayer,
			FirstPlayerID:  "alice",
			SecondPlayerID: "bob",
			Outcome:        entity.InProgress,
		}

		require.Equal(t, expected, next)
	})

	t.Run("Second player out of turn on a fresh session", func(t *testing.T) {
		// Given: a fresh session where the first player moves
		game := readyGame()

		// When: the second player tries to move
		next, err := ApplyMove(game, entity.SecondPlayer, 0)

		// Then: the move is rejected and the document is unchanged
		require.ErrorIs(t, err, apperror.ErrNotYourTurn)
		assert.Equal(t, readyGame(), next)
		assert.Equal(t, readyGame(), game)
	})

	t.Run("Cell index past the board", func(t *testing.T) {
		game := readyGame()

		next, err := ApplyMove(game, entity.FirstPlayer, 9)

		require.ErrorIs(t, err, apperror.ErrInvalidPosition)
		assert.Equal(t, readyGame(), next)
	})

	t.Run("Negative cell index", func(t *testing.T) {
		_, err := ApplyMove(readyGame(), entity.FirstPlayer, -1)

		require.ErrorIs(t, err, apperror.ErrInvalidPosition)
	})

	t.Run("Cell already occupied", func(t *testing.T) {
		// Given: the first player holds the center
		game, err := ApplyMove(readyGame(), entity.FirstPlayer, 4)
		require.NoError(t, err)

		// When: the second player plays the same cell
		next, err := ApplyMove(game, entity.SecondPlayer, 4)

		// Then: the move is rejected and the board keeps the first mark
		require.ErrorIs(t, err, apperror.ErrCellOccupied)
		assert.Equal(t, x, next.Board[4])
		assert.Equal(t, entity.SecondPlayer, next.Turn)
	})

	t.Run("Session without second player", func(t *testing.T) {
		game := entity.NewGame("alice")
		game.ID = "s1"

		_, err := ApplyMove(game, entity.FirstPlayer, 0)

		require.ErrorIs(t, err, apperror.ErrSessionNotReady)
	})

	t.Run("Position is checked before readiness", func(t *testing.T) {
		game := entity.NewGame("alice")

		_, err := ApplyMove(game, entity.SecondPlayer, 12)

		require.ErrorIs(t, err, apperror.ErrInvalidPosition)
	})

	t.Run("Game over is checked before turn", func(t *testing.T) {
		// Given: a game the first player already won
		game := readyGame()
		game.Board = entity.Board{x, x, x, o, o, e, e, e, e}
		game.Outcome = entity.FirstPlayerWins

		// When: the loser tries to play out of turn on an occupied cell
		_, err := ApplyMove(game, entity.SecondPlayer, 0)

		// Then: the game being over is reported
		require.ErrorIs(t, err, apperror.ErrGameAlreadyOver)
	})

	t.Run("Winning move freezes the turn", func(t *testing.T) {
		// Given: the first player can complete the top row
		game := readyGame()
		game.Board = entity.Board{x, x, e, o, o, e, e, e, e}

		// When: the first player plays cell 2
		next, err := ApplyMove(game, entity.FirstPlayer, 2)
		require.NoError(t, err)

		// Then: the first player wins and the turn does not flip
		assert.Equal(t, entity.FirstPlayerWins, next.Outcome)
		assert.Equal(t, entity.FirstPlayer, next.Turn)
	})

	t.Run("Full board draw then game over", func(t *testing.T) {
		// Given: one empty cell left and no line possible
		game := readyGame()
		game.Board = entity.Board{x, o, x, x, o, o, o, x, e}

		// When: the first player fills the last cell
		next, err := ApplyMove(game, entity.FirstPlayer, 8)
		require.NoError(t, err)

		// Then: the game is a draw and the turn is frozen
		assert.Equal(t, entity.Draw, next.Outcome)
		assert.Equal(t, entity.FirstPlayer, next.Turn)

		// When: anyone tries to move afterwards
		for _, role := range []entity.Role{entity.FirstPlayer, entity.SecondPlayer} {
			for cell := 0; cell < entity.BoardSize; cell++ {
				_, err = ApplyMove(next, role, cell)

				// Then: the game is already over
				require.ErrorIs(t, err, apperror.ErrGameAlreadyOver)
			}
		}
	})
}

func TestApplyMove_IsPure(t *testing.T) {
	// Given: a game in progress
	game := readyGame()
	game.Board = entity.Board{x, e, e, e, o, e, e, e, e}
	snapshot := game

	// When: applying the same move twice to the same input
	first, err := ApplyMove(game, entity.FirstPlayer, 8)
	require.NoError(t, err)

	second, err := ApplyMove(game, entity.FirstPlayer, 8)
	require.NoError(t, err)

	// Then: both results are identical and the input is untouched
	assert.Equal(t, first, second)
	assert.Equal(t, snapshot, game)
}

func TestApplyMove_LastCellWithoutLineIsDraw(t *testing.T) {
	checked := 0

	eachPlayableBoard(func(game entity.Game) {
		if game.Board.Filled() != entity.BoardSize-1 {
			return
		}

		cell := 0
		for i, mark := range game.Board {
			if mark == e {
				cell = i
			}
		}

		final := game.Board
		final[cell] = game.Turn.Mark()
		if first, second := Winners(final); first || second {
			return
		}

		next, err := ApplyMove(game, game.Turn, cell)
		require.NoError(t, err)
		require.Equal(t, entity.Draw, next.Outcome, "board %v", game.Board)
		require.Equal(t, game.Turn, next.Turn)

		checked++
	})

	assert.Positive(t, checked)
}

func TestApplyMove_CompletingALineWins(t *testing.T) {
	checked := 0

	eachPlayableBoard(func(game entity.Game) {
		for cell, mark := range game.Board {
			if mark != e {
				continue
			}

			next, err := ApplyMove(game, game.Turn, cell)
			require.NoError(t, err)

			first, second := Winners(next.Board)
			won := (game.Turn == entity.FirstPlayer && first) || (game.Turn == entity.SecondPlayer && second)
			if !won {
				continue
			}

			require.Equal(t, entity.WinFor(game.Turn), next.Outcome)
			require.Equal(t, game.Turn, next.Turn)

			checked++
		}
	})

	assert.Positive(t, checked)
}

func TestApplyMove_WrongRoleIsAlwaysNotYourTurn(t *testing.T) {
	eachPlayableBoard(func(game entity.Game) {
		for cell := 0; cell < entity.BoardSize; cell++ {
			next, err := ApplyMove(game, game.Turn.Opponent(), cell)

			require.ErrorIs(t, err, apperror.ErrNotYourTurn)
			require.Equal(t, game, next)
		}
	})
}

func TestClaimSecondSeat(t *testing.T) {
	t.Run("Seats the joiner", func(t *testing.T) {
		game := entity.NewGame("alice")

		next, err := ClaimSecondSeat(game, "bob")

		require.NoError(t, err)
		assert.Equal(t, "bob", next.SecondPlayerID)
		assert.Empty(t, game.SecondPlayerID)
	})

	t.Run("Seated participants keep their seat", func(t *testing.T) {
		game := readyGame()

		for _, id := range []string{"alice", "bob"} {
			next, err := ClaimSecondSeat(game, id)

			require.NoError(t, err)
			assert.Equal(t, game, next)
		}
	})

	t.Run("Third participant is refused", func(t *testing.T) {
		_, err := ClaimSecondSeat(readyGame(), "carol")

		require.ErrorIs(t, err, apperror.ErrSessionFull)
	})

	t.Run("Empty id is refused", func(t *testing.T) {
		_, err := ClaimSecondSeat(entity.NewGame("alice"), "")

		require.ErrorIs(t, err, apperror.ErrNotParticipant)
	})
}
