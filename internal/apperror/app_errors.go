package apperror

import "errors"

// Move validation errors, checked in this order by the rule engine.
var (
	ErrInvalidPosition = errors.New("invalid cell index")
	ErrSessionNotReady = errors.New("session is not ready, waiting for the second player")
	ErrGameAlreadyOver = errors.New("game is already finished")
	ErrNotYourTurn     = errors.New("it's not your turn")
	ErrCellOccupied    = errors.New("cell is already occupied")
)

var (
	ErrNotParticipant    = errors.New("participant does not belong to this session")
	ErrMoveInFlight      = errors.New("previous move is still waiting for confirmation")
	ErrSessionFull       = errors.New("session already has two players")
	ErrNoActiveSession   = errors.New("no active session")
	ErrSessionInProgress = errors.New("already in a session, leave it first")
)

var (
	ErrTransport        = errors.New("transport error")
	ErrCorruptedSession = errors.New("corrupted session document")
	ErrSessionNotFound  = errors.New("session not found")
)

// Presentation errors.
var (
	ErrUnknownAction  = errors.New("unknown action")
	ErrInvalidPayload = errors.New("invalid payload")
)

var codes = []struct {
	err  error
	code string
}{
	{ErrInvalidPosition, "invalid_position"},
	{ErrSessionNotReady, "session_not_ready"},
	{ErrGameAlreadyOver, "game_already_over"},
	{ErrNotYourTurn, "not_your_turn"},
	{ErrCellOccupied, "cell_occupied"},
	{ErrNotParticipant, "not_participant"},
	{ErrMoveInFlight, "move_in_flight"},
	{ErrSessionFull, "session_full"},
	{ErrNoActiveSession, "no_active_session"},
	{ErrSessionInProgress, "session_in_progress"},
	{ErrCorruptedSession, "corrupted_session"},
	{ErrSessionNotFound, "session_not_found"},
	{ErrTransport, "transport_error"},
	{ErrUnknownAction, "unknown_action"},
	{ErrInvalidPayload, "invalid_payload"},
}

// Code classifies err into a stable identifier for the presentation layer.
// Unknown errors are reported as "internal".
func Code(err error) string {
	if err == nil {
		return ""
	}

	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}

	return "internal"
}

// IsMoveError reports whether err rejects a single move attempt without affecting the session.
func IsMoveError(err error) bool {
	return errors.Is(err, ErrInvalidPosition) ||
		errors.Is(err, ErrSessionNotReady) ||
		errors.Is(err, ErrGameAlreadyOver) ||
		errors.Is(err, ErrNotYourTurn) ||
		errors.Is(err, ErrCellOccupied)
}
