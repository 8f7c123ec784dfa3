package entity

const (
	StatusYourTurn      = "Your turn"
	StatusRivalsTurn    = "Rivals Turn"
	StatusWaitingRival  = "Waiting for the second player"
	StatusFirstWins     = "Player 1 wins"
	StatusSecondWins    = "Player 2 wins"
	StatusDraw          = "Draw"
	StatusNotInSession  = "Not in a session"
	StatusNotASeatOwner = "Watching"
)

// Projection is what one participant sees of a game. It is derived from a Game on
// every snapshot and never stored.
type Projection struct {
	SessionID   string  `json:"session_id"`
	Board       Board   `json:"board"`
	IsGameReady bool    `json:"is_game_ready"`
	IsMyTurn    bool    `json:"is_my_turn"`
	Outcome     Outcome `json:"outcome"`
	Role        Role    `json:"role,omitempty"`
	Status      string  `json:"status"`
}

// EmptyProjection is shown while no session is active.
func EmptyProjection() Projection {
	return Projection{Outcome: InProgress, Status: StatusNotInSession}
}

// NewProjection - derives the view of game for the participant participantID.
func NewProjection(game Game, participantID string) Projection {
	role, seated := game.RoleOf(participantID)
	ready := game.IsReady()

	projection := Projection{
		SessionID:   game.ID,
		Board:       game.Board,
		IsGameReady: ready,
		IsMyTurn:    seated && ready && game.Outcome == InProgress && game.Turn == role,
		Outcome:     game.Outcome,
		Role:        role,
	}

	switch {
	case game.Outcome == FirstPlayerWins:
		projection.Status = StatusFirstWins
	case game.Outcome == SecondPlayerWins:
		projection.Status = StatusSecondWins
	case game.Outcome == Draw:
		projection.Status = StatusDraw
	case !ready:
		projection.Status = StatusWaitingRival
	case !seated:
		projection.Status = StatusNotASeatOwner
	case projection.IsMyTurn:
		projection.Status = StatusYourTurn
	default:
		projection.Status = StatusRivalsTurn
	}

	return projection
}
