package websocket

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rocketscienceinc/tictactoe-sync/internal/apperror"
)

func (that *Server) handleCreate(ctx context.Context, c *client, msg *Message) error {
	log := that.logger.With("method", "handleCreate", "participantID", c.participantID)

	sessionID, err := c.controller.CreateSession(ctx, c.participantID)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	c.send(msg.Action, CreatedPayload{SessionID: sessionID})

	log.Info("session created", "sessionID", sessionID)

	return nil
}

func (that *Server) handleJoin(ctx context.Context, c *client, msg *Message) error {
	log := that.logger.With("method", "handleJoin", "participantID", c.participantID)

	var payload JoinPayload
	if err := decodePayload(msg, &payload); err != nil {
		return err
	}

	if payload.SessionID == "" {
		return fmt.Errorf("%w: session_id is required", apperror.ErrInvalidPayload)
	}

	if err := c.controller.JoinSession(ctx, payload.SessionID, c.participantID); err != nil {
		return fmt.Errorf("failed to join session: %w", err)
	}

	c.send(msg.Action, JoinPayload{SessionID: payload.SessionID})

	log.Info("session joined", "sessionID", payload.SessionID)

	return nil
}

func (that *Server) handleSelectCell(ctx context.Context, c *client, msg *Message) error {
	var payload SelectCellPayload
	if err := decodePayload(msg, &payload); err != nil {
		return err
	}

	if payload.Cell == nil {
		return fmt.Errorf("%w: cell is required", apperror.ErrInvalidPayload)
	}

	if err := c.controller.SelectCell(ctx, *payload.Cell); err != nil {
		if apperror.IsMoveError(err) {
			return err
		}
		return fmt.Errorf("failed to select cell: %w", err)
	}

	return nil
}

func (that *Server) handleLeave(_ context.Context, c *client, _ *Message) error {
	if err := c.controller.LeaveSession(); err != nil {
		return fmt.Errorf("failed to leave session: %w", err)
	}

	return nil
}

func (that *Server) handleResubscribe(ctx context.Context, c *client, _ *Message) error {
	if err := c.controller.Resubscribe(ctx); err != nil {
		return fmt.Errorf("failed to resubscribe: %w", err)
	}

	return nil
}

func decodePayload(msg *Message, payload any) error {
	if len(msg.Payload) == 0 {
		return fmt.Errorf("%w: payload is required", apperror.ErrInvalidPayload)
	}

	if err := json.Unmarshal(msg.Payload, payload); err != nil {
		return fmt.Errorf("%w: %w", apperror.ErrInvalidPayload, err)
	}

	return nil
}
