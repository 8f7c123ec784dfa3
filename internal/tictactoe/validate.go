package tictactoe

import (
	"fmt"

	"github.com/rocketscienceinc/tictactoe-sync/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-sync/internal/entity"
)

// Validate - checks that a received document could have been produced by legal play.
func Validate(game entity.Game) error {
	if game.ID == "" {
		return corrupted("missing session id")
	}

	if game.FirstPlayerID == "" {
		return corrupted("missing first player")
	}

	if !game.Turn.Valid() || !game.Outcome.Valid() {
		return corrupted("unknown turn or outcome")
	}

	for i, cell := range game.Board {
		if !cell.Valid() {
			return corrupted(fmt.Sprintf("unknown mark in cell %d", i))
		}
	}

	if game.SecondPlayerID == "" && game.Board.Filled() > 0 {
		return corrupted("moves before the second player joined")
	}

	firstMarks, secondMarks := game.Board.Count(entity.MarkFirst), game.Board.Count(entity.MarkSecond)
	if firstMarks != secondMarks && firstMarks != secondMarks+1 {
		return corrupted(fmt.Sprintf("mark counts %d/%d", firstMarks, secondMarks))
	}

	if first, second := Winners(game.Board); first && second {
		return corrupted("both players complete a line")
	}

	if outcome := Evaluate(game.Board); outcome != game.Outcome {
		return corrupted(fmt.Sprintf("outcome %s does not match board (%s)", game.Outcome, outcome))
	}

	// the winner made the last move, nothing may follow it
	switch game.Outcome {
	case entity.FirstPlayerWins:
		if firstMarks != secondMarks+1 {
			return corrupted(fmt.Sprintf("first player won with mark counts %d/%d", firstMarks, secondMarks))
		}
	case entity.SecondPlayerWins:
		if firstMarks != secondMarks {
			return corrupted(fmt.Sprintf("second player won with mark counts %d/%d", firstMarks, secondMarks))
		}
	}

	if game.Outcome == entity.InProgress {
		expected := entity.FirstPlayer
		if firstMarks > secondMarks {
			expected = entity.SecondPlayer
		}

		if game.Turn != expected {
			return corrupted(fmt.Sprintf("turn %s out of order", game.Turn))
		}
	}

	return nil
}

// Progression - compares a received document with the last one accepted for the same session.
// It reports stale when next is an earlier state of prev, and an error when next could not
// follow prev under the game rules.
func Progression(prev, next entity.Game) (bool, error) {
	if next.ID != prev.ID || next.FirstPlayerID != prev.FirstPlayerID {
		return false, corrupted("session identity changed")
	}

	if prev.SecondPlayerID != "" && next.SecondPlayerID != "" && next.SecondPlayerID != prev.SecondPlayerID {
		return false, corrupted("second player replaced")
	}

	secondLost := prev.SecondPlayerID != "" && next.SecondPlayerID == ""

	switch {
	case extends(next.Board, prev.Board) && !secondLost:
		return false, nil
	case extends(prev.Board, next.Board):
		return true, nil
	default:
		return false, corrupted("occupied cells were overwritten")
	}
}

// extends - reports whether every mark of base is kept in board.
func extends(board, base entity.Board) bool {
	for i, cell := range base {
		if cell != entity.EmptyCell && board[i] != cell {
			return false
		}
	}
	return true
}

func corrupted(reason string) error {
	return fmt.Errorf("%w: %s", apperror.ErrCorruptedSession, reason)
}
