package tictactoe

import "github.com/rocketscienceinc/tictactoe-sync/internal/entity"

// WinCombos lists the 3 rows, 3 columns and 2 diagonals of the board.
var WinCombos = [8][3]int{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

// Evaluate - decides the outcome of a board.
// A board where both roles complete a line is reported as FirstPlayerWins; use Winners to detect it.
func Evaluate(board entity.Board) entity.Outcome {
	first, second := Winners(board)

	switch {
	case first:
		return entity.FirstPlayerWins
	case second:
		return entity.SecondPlayerWins
	case board.IsFull():
		return entity.Draw
	default:
		return entity.InProgress
	}
}

// Winners - reports which roles hold at least one complete line.
func Winners(board entity.Board) (first, second bool) {
	for _, combo := range WinCombos {
		a, b, c := board[combo[0]], board[combo[1]], board[combo[2]]
		if a == entity.EmptyCell || a != b || b != c {
			continue
		}

		switch a {
		case entity.MarkFirst:
			first = true
		case entity.MarkSecond:
			second = true
		}
	}

	return first, second
}
