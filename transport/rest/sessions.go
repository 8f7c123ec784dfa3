package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rocketscienceinc/tictactoe-sync/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-sync/internal/entity"
)

type sessionResponse struct {
	Game       *entity.Game      `json:"game"`
	Projection entity.Projection `json:"projection"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// sessionHandler - returns the stored document of a session, seen by the participant named in ?participant_id.
func (that *Server) sessionHandler(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "sessionHandler")

	id := r.PathValue("id")

	game, err := that.sessions.GetByID(r.Context(), id)
	if err != nil {
		status := http.StatusInternalServerError

		switch {
		case errors.Is(err, apperror.ErrSessionNotFound):
			status = http.StatusNotFound
		case errors.Is(err, apperror.ErrCorruptedSession):
			status = http.StatusUnprocessableEntity
		case errors.Is(err, apperror.ErrTransport):
			status = http.StatusBadGateway
		}

		if status != http.StatusNotFound {
			log.Error("failed to get session", "sessionID", id, "error", err)
		}

		that.respondJSON(w, status, errorResponse{Code: apperror.Code(err), Message: err.Error()})
		return
	}

	that.respondJSON(w, http.StatusOK, sessionResponse{
		Game:       game,
		Projection: entity.NewProjection(*game, r.URL.Query().Get("participant_id")),
	})
}

func (that *Server) respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		that.logger.Error("failed to write response", "error", err)
	}
}
