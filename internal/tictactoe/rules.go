package tictactoe

import (
	"fmt"

	"github.com/rocketscienceinc/tictactoe-sync/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-sync/internal/entity"
)

// ApplyMove - validates a move by role into cell and returns the resulting document.
// The input is never modified, so the same call always yields the same result.
func ApplyMove(game entity.Game, role entity.Role, cell int) (entity.Game, error) {
	if err := validateMove(game, role, cell); err != nil {
		return game, err
	}

	next := game
	next.Board[cell] = role.Mark()
	next.Outcome = Evaluate(next.Board)

	// turn stays on the last mover once the game is over
	if next.Outcome == entity.InProgress {
		next.Turn = role.Opponent()
	}

	return next, nil
}

// validateMove - checks if the move is valid, failing on the first violated rule.
func validateMove(game entity.Game, role entity.Role, cell int) error {
	if cell < 0 || cell >= entity.BoardSize {
		return fmt.Errorf("%w: cell %d", apperror.ErrInvalidPosition, cell)
	}

	if !game.IsReady() {
		return apperror.ErrSessionNotReady
	}

	if game.Outcome != entity.InProgress {
		return apperror.ErrGameAlreadyOver
	}

	if game.Turn != role {
		return apperror.ErrNotYourTurn
	}

	if game.Board[cell] != entity.EmptyCell {
		return fmt.Errorf("%w: cell %d", apperror.ErrCellOccupied, cell)
	}

	return nil
}

// ClaimSecondSeat - seats participantID as the second player.
// Claiming a seat the participant already holds returns the game unchanged.
func ClaimSecondSeat(game entity.Game, participantID string) (entity.Game, error) {
	if participantID == "" {
		return game, fmt.Errorf("%w: empty participant id", apperror.ErrNotParticipant)
	}

	if _, seated := game.RoleOf(participantID); seated {
		return game, nil
	}

	if game.SecondPlayerID != "" {
		return game, fmt.Errorf("%w: session %s", apperror.ErrSessionFull, game.ID)
	}

	next := game
	next.SecondPlayerID = participantID

	return next, nil
}
