package websocket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/tictactoe-sync/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-sync/internal/usecase"
)

const (
	participantCookie = "participant_id"
	shutdownTimeout   = 5 * time.Second
)

// Controller is the per-connection session state machine.
type Controller interface {
	CreateSession(ctx context.Context, participantID string) (string, error)
	JoinSession(ctx context.Context, sessionID, participantID string) error
	SelectCell(ctx context.Context, cell int) error
	LeaveSession() error
	Resubscribe(ctx context.Context) error
	Updates(ctx context.Context) <-chan usecase.Update
}

type handler func(ctx context.Context, client *client, msg *Message) error

type Server struct {
	logger        *slog.Logger
	newController func() Controller
	upgrader      websocket.Upgrader

	handlers map[string]handler
}

// New - creates the WebSocket bridge, every connection gets its own controller from newController.
func New(logger *slog.Logger, newController func() Controller) *Server {
	server := &Server{
		logger:        logger.With("component", "websocket"),
		newController: newController,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},

		handlers: make(map[string]handler),
	}

	server.handlers[actionCreate] = server.handleCreate
	server.handlers[actionJoin] = server.handleJoin
	server.handlers[actionSelectCell] = server.handleSelectCell
	server.handlers[actionLeave] = server.handleLeave
	server.handlers[actionResubscribe] = server.handleResubscribe

	return server
}

func (that *Server) Handler(ctx context.Context) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", func(w http.ResponseWriter, r *http.Request) {
		that.upgradeToWebSocket(ctx, w, r)
	})

	return mux
}

// Start - starts WebSocket server and stops it when ctx is done.
func (that *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           that.Handler(ctx),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			that.logger.Error("failed to shut down server", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// upgradeToWebSocket - upgrades the connection and serves it until either side closes it.
func (that *Server) upgradeToWebSocket(ctx context.Context, writer http.ResponseWriter, req *http.Request) {
	log := that.logger.With("method", "upgradeToWebSocket")

	participantID, header := participant(req)

	conn, err := that.upgrader.Upgrade(writer, req, header)
	if err != nil {
		log.Error("failed to upgrade connection", "error", err)
		return
	}

	log.Info("WebSocket connection established", "participantID", participantID)

	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	c, err := newClient(connCtx, that.logger, conn, participantID, that.newController())
	if err != nil {
		log.Error("failed to start client", "error", err)
		_ = conn.Close()
		return
	}
	defer c.close()

	// c.ctx also ends when the writer fails, which releases a blocked intent
	that.handleMessages(c.ctx, c)

	log.Info("WebSocket connection closed", "participantID", participantID)
}

// handleMessages - processes messages from the client until the connection fails.
func (that *Server) handleMessages(ctx context.Context, c *client) {
	log := that.logger.With("method", "handleMessages", "participantID", c.participantID)

	for {
		var message Message
		if err := c.conn.ReadJSON(&message); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Error("error reading message", "error", err)
			}
			return
		}

		handle, ok := that.handlers[message.Action]
		if !ok {
			c.sendError(message.Action, apperror.ErrUnknownAction)
			continue
		}

		if err := handle(ctx, c, &message); err != nil {
			log.Debug("action failed", "action", message.Action, "error", err)
			c.sendError(message.Action, err)
		}
	}
}

// participant - reads the participant cookie, or issues a new id with the header setting it.
func participant(req *http.Request) (string, http.Header) {
	if cookie, err := req.Cookie(participantCookie); err == nil {
		if _, err = uuid.Parse(cookie.Value); err == nil {
			return cookie.Value, nil
		}
	}

	id := uuid.NewString()
	cookie := &http.Cookie{
		Name:     participantCookie,
		Value:    id,
		Expires:  time.Now().Add(24 * time.Hour),
		Path:     "/",
		HttpOnly: true,
	}

	header := http.Header{}
	header.Add("Set-Cookie", cookie.String())

	return id, header
}
