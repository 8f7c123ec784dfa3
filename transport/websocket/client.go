package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/tictactoe-sync/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-sync/internal/usecase"
)

const (
	writeWait  = 10 * time.Second
	outboxSize = 16
)

// client is one WebSocket connection. Only the writer goroutine writes to conn.
type client struct {
	logger        *slog.Logger
	conn          *websocket.Conn
	participantID string
	controller    Controller

	outbox chan Message
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// newClient - greets the peer with its participant id, then starts the writer.
func newClient(ctx context.Context, logger *slog.Logger, conn *websocket.Conn, participantID string, controller Controller) (*client, error) {
	ctx, cancel := context.WithCancel(ctx)

	c := &client{
		logger:        logger.With("component", "websocket_client", "participantID", participantID),
		conn:          conn,
		participantID: participantID,
		controller:    controller,
		outbox:        make(chan Message, outboxSize),
		ctx:           ctx,
		cancel:        cancel,
	}

	greeting, err := json.Marshal(ConnectPayload{ParticipantID: participantID})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to marshal greeting: %w", err)
	}

	if err = c.write(Message{Action: actionConnect, Payload: greeting}); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to greet client: %w", err)
	}

	c.wg.Add(1)
	go c.writeLoop(controller.Updates(ctx))

	return c, nil
}

// send - queues a message for the writer, it is dropped once the connection is closing.
func (that *client) send(action string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		that.logger.Error("failed to marshal payload", "action", action, "error", err)
		return
	}

	select {
	case that.outbox <- Message{Action: action, Payload: data}:
	case <-that.ctx.Done():
	}
}

func (that *client) sendError(action string, err error) {
	that.send(actionError, ErrorPayload{
		Action:  action,
		Code:    apperror.Code(err),
		Message: err.Error(),
	})
}

func (that *client) writeLoop(updates <-chan usecase.Update) {
	defer that.wg.Done()

	for {
		var message Message

		select {
		case <-that.ctx.Done():
			return
		case message = <-that.outbox:
		case update, ok := <-updates:
			if !ok {
				return
			}

			data, err := json.Marshal(newStatePayload(update))
			if err != nil {
				that.logger.Error("failed to marshal state", "error", err)
				continue
			}

			message = Message{Action: actionState, Payload: data}
		}

		if err := that.write(message); err != nil {
			that.logger.Error("failed to write message", "action", message.Action, "error", err)
			// unblocks the reader so the connection is torn down
			_ = that.conn.Close()
			that.cancel()
			return
		}
	}
}

func (that *client) write(message Message) error {
	if err := that.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}

	return that.conn.WriteJSON(message)
}

// close - stops the writer, leaves the session and closes the connection.
func (that *client) close() {
	that.cancel()
	that.wg.Wait()

	if err := that.controller.LeaveSession(); err != nil && !errors.Is(err, apperror.ErrNoActiveSession) {
		that.logger.Error("failed to leave session", "error", err)
	}

	if err := that.conn.Close(); err != nil {
		that.logger.Debug("failed to close connection", "error", err)
	}
}
