package websocket

import (
	"encoding/json"

	"github.com/rocketscienceinc/tictactoe-sync/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-sync/internal/entity"
	"github.com/rocketscienceinc/tictactoe-sync/internal/usecase"
)

const (
	actionConnect     = "connect"
	actionCreate      = "session:create"
	actionJoin        = "session:join"
	actionSelectCell  = "cell:select"
	actionLeave       = "session:leave"
	actionResubscribe = "session:resubscribe"
	actionState       = "session:state"
	actionError       = "error"
)

// Message is the envelope of every frame in both directions.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type JoinPayload struct {
	SessionID string `json:"session_id"`
}

type SelectCellPayload struct {
	Cell *int `json:"cell"`
}

type ConnectPayload struct {
	ParticipantID string `json:"participant_id"`
}

type CreatedPayload struct {
	SessionID string `json:"session_id"`
}

type StatePayload struct {
	State      usecase.State     `json:"state"`
	Projection entity.Projection `json:"projection"`
	Error      string            `json:"error,omitempty"`
	Code       string            `json:"code,omitempty"`
}

type ErrorPayload struct {
	Action  string `json:"action"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func newStatePayload(update usecase.Update) StatePayload {
	payload := StatePayload{
		State:      update.State,
		Projection: update.Projection,
	}

	if update.Err != nil {
		payload.Error = update.Err.Error()
		payload.Code = apperror.Code(update.Err)
	}

	return payload
}
