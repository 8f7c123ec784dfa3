package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rocketscienceinc/tictactoe-sync/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-sync/internal/entity"
	"github.com/rocketscienceinc/tictactoe-sync/internal/tictactoe"
)

var errSubscriptionClosed = errors.New("session subscription closed")

// Gateway is the shared document store a session lives in.
type Gateway interface {
	Create(ctx context.Context, game entity.Game) (string, error)
	Subscribe(ctx context.Context, id string) (<-chan entity.Snapshot, error)
	Write(ctx context.Context, id string, game entity.Game) error
}

// SeatClaimer is implemented by gateways able to seat the second player only while the seat is free.
type SeatClaimer interface {
	ClaimSecondSeat(ctx context.Context, id, participantID string) error
}

type State int

const (
	StateIdle State = iota
	StateAwaitingOpponent
	StateJoining
	StateActive
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingOpponent:
		return "awaiting_opponent"
	case StateJoining:
		return "joining"
	case StateActive:
		return "active"
	case StateFinished:
		return "finished"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Update is what the presentation layer renders. Err carries the last transport or
// corruption error and is cleared by the next accepted snapshot.
type Update struct {
	State      State
	Projection entity.Projection
	Err        error
}

// SessionController drives one local participant through one session at a time.
// The projection only ever changes when a snapshot arrives from the gateway, including
// the echo of the controller's own writes.
type SessionController struct {
	logger       *slog.Logger
	gateway      Gateway
	feed         *updateFeed
	writeTimeout time.Duration

	mu            sync.Mutex
	state         State
	participantID string
	sessionID     string
	game          *entity.Game
	lastErr       error

	// filled cell count of the move waiting for its echo, zero when none
	pending int
	claimed bool
	joined  chan error
	// set after a resubscription, the next snapshot replaces the cache without an ordering check
	resync bool

	cancel     context.CancelFunc
	generation uint64
	subscribed bool
}

// Options - WriteTimeout bounds every gateway write, zero leaves it to the caller's context.
type Options struct {
	WriteTimeout time.Duration
}

func NewSessionController(logger *slog.Logger, gateway Gateway, options Options) *SessionController {
	return &SessionController{
		logger:       logger.With("component", "session_controller"),
		gateway:      gateway,
		feed:         newUpdateFeed(Update{State: StateIdle, Projection: entity.EmptyProjection()}),
		writeTimeout: options.WriteTimeout,
		state:        StateIdle,
	}
}

// Updates - streams the current update and every later one until ctx is done.
func (that *SessionController) Updates(ctx context.Context) <-chan Update {
	return that.feed.watch(ctx)
}

func (that *SessionController) Current() Update {
	return that.feed.Current()
}

func (that *SessionController) Projection() entity.Projection {
	return that.feed.Current().Projection
}

func (that *SessionController) State() State {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.state
}

// CreateSession - creates a new shared document owned by participantID and starts listening to it.
// A failed subscription does not undo the creation, it is retried on the next interaction.
func (that *SessionController) CreateSession(ctx context.Context, participantID string) (string, error) {
	log := that.logger.With("method", "CreateSession", "participantID", participantID)

	that.mu.Lock()
	defer that.mu.Unlock()

	if that.state != StateIdle {
		return "", apperror.ErrSessionInProgress
	}

	if participantID == "" {
		return "", fmt.Errorf("%w: empty participant id", apperror.ErrNotParticipant)
	}

	sessionID, err := that.gateway.Create(ctx, entity.NewGame(participantID))
	if err != nil {
		return "", fmt.Errorf("failed to create session: %w", asTransport(err))
	}

	that.reset()
	that.state = StateAwaitingOpponent
	that.participantID = participantID
	that.sessionID = sessionID

	if err = that.subscribe(ctx); err != nil {
		log.Error("could not subscribe to created session", "sessionID", sessionID, "error", err)
		that.lastErr = err
	}

	that.publish()

	log.Info("session created", "sessionID", sessionID)

	return sessionID, nil
}

// JoinSession - subscribes to sessionID and takes its second seat if it is free.
// It returns once the participant is seated, or with the reason it could not be.
func (that *SessionController) JoinSession(ctx context.Context, sessionID, participantID string) error {
	log := that.logger.With("method", "JoinSession", "sessionID", sessionID, "participantID", participantID)

	that.mu.Lock()

	if that.state != StateIdle {
		that.mu.Unlock()
		return apperror.ErrSessionInProgress
	}

	if participantID == "" {
		that.mu.Unlock()
		return fmt.Errorf("%w: empty participant id", apperror.ErrNotParticipant)
	}

	if sessionID == "" {
		that.mu.Unlock()
		return fmt.Errorf("%w: empty session id", apperror.ErrSessionNotFound)
	}

	that.reset()
	that.state = StateJoining
	that.participantID = participantID
	that.sessionID = sessionID

	joined := make(chan error, 1)
	that.joined = joined

	if err := that.subscribe(ctx); err != nil {
		that.teardown()
		that.mu.Unlock()
		return fmt.Errorf("failed to join session: %w", err)
	}

	that.publish()
	that.mu.Unlock()

	select {
	case err := <-joined:
		if err != nil {
			log.Info("join refused", "error", err)
			return err
		}

		log.Info("joined session")
		return nil
	case <-ctx.Done():
		that.mu.Lock()
		defer that.mu.Unlock()

		// the join may have been resolved while waiting for the lock
		select {
		case err := <-joined:
			return err
		default:
		}

		that.teardown()
		that.publish()

		return fmt.Errorf("join interrupted: %w", ctx.Err())
	}
}

// SelectCell - plays cell for the local participant. On success the move is only written,
// the projection changes when the store echoes it back.
func (that *SessionController) SelectCell(ctx context.Context, cell int) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	log := that.logger.With("method", "SelectCell", "sessionID", that.sessionID, "cell", cell)

	if cell < 0 || cell >= entity.BoardSize {
		return fmt.Errorf("%w: %d", apperror.ErrInvalidPosition, cell)
	}

	switch that.state {
	case StateIdle:
		return apperror.ErrNoActiveSession
	case StateFinished:
		return apperror.ErrGameAlreadyOver
	}

	if !that.subscribed {
		if err := that.resubscribe(ctx); err != nil {
			return err
		}
	}

	if that.game == nil {
		return apperror.ErrSessionNotReady
	}

	if that.pending > 0 {
		return apperror.ErrMoveInFlight
	}

	role, seated := that.game.RoleOf(that.participantID)
	if !seated {
		if !that.game.IsReady() {
			return apperror.ErrSessionNotReady
		}
		return apperror.ErrNotParticipant
	}

	next, err := tictactoe.ApplyMove(*that.game, role, cell)
	if err != nil {
		log.Debug("move rejected", "error", err)
		return err
	}

	writeCtx, cancel := that.writeContext(ctx)
	defer cancel()

	if err = that.gateway.Write(writeCtx, that.sessionID, next); err != nil {
		err = fmt.Errorf("failed to write move: %w", asTransport(err))
		log.Error("could not write move", "error", err)

		that.lastErr = err
		that.publish()

		return err
	}

	that.pending = next.Board.Filled()

	return nil
}

// LeaveSession - stops listening to the current session. The shared document is left as is.
func (that *SessionController) LeaveSession() error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.state == StateIdle {
		return apperror.ErrNoActiveSession
	}

	that.logger.Info("leaving session", "sessionID", that.sessionID)

	that.teardown()
	that.publish()

	return nil
}

// Resubscribe - re-establishes the subscription to the current session. The first
// snapshot received afterwards is treated as authoritative.
func (that *SessionController) Resubscribe(ctx context.Context) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.state == StateIdle {
		return apperror.ErrNoActiveSession
	}

	that.logger.Info("resubscribing", "sessionID", that.sessionID)

	return that.resubscribe(ctx)
}

// OnRemoteSnapshot - accepts a document pushed by the store. It is the only way the projection changes.
func (that *SessionController) OnRemoteSnapshot(game *entity.Game) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.applySnapshot(game)
}

// subscribe - opens a subscription living until the session is left. Callers hold the lock.
func (that *SessionController) subscribe(ctx context.Context) error {
	subCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	snapshots, err := that.gateway.Subscribe(subCtx, that.sessionID)
	if err != nil {
		cancel()
		that.subscribed = false
		return fmt.Errorf("failed to subscribe: %w", asTransport(err))
	}

	that.generation++
	that.cancel = cancel
	that.subscribed = true

	go that.pump(that.generation, snapshots)

	return nil
}

// resubscribe - replaces the current subscription. A move still waiting for its echo is forgotten.
func (that *SessionController) resubscribe(ctx context.Context) error {
	that.unsubscribe()
	that.pending = 0
	that.resync = true

	if err := that.subscribe(ctx); err != nil {
		that.lastErr = err
		that.publish()
		return err
	}

	return nil
}

func (that *SessionController) unsubscribe() {
	if that.cancel != nil {
		that.cancel()
		that.cancel = nil
	}

	that.generation++
	that.subscribed = false
}

// pump - feeds snapshots of one subscription into the controller, one at a time.
func (that *SessionController) pump(generation uint64, snapshots <-chan entity.Snapshot) {
	for snapshot := range snapshots {
		that.handleSnapshot(generation, snapshot)
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	if generation != that.generation {
		return
	}

	that.logger.Warn("subscription closed by the store", "sessionID", that.sessionID)

	err := fmt.Errorf("%w: %w", apperror.ErrTransport, errSubscriptionClosed)
	if that.state == StateJoining {
		that.fail(err)
		return
	}

	that.cancel = nil
	that.subscribed = false
	that.lastErr = err
	that.publish()
}

func (that *SessionController) handleSnapshot(generation uint64, snapshot entity.Snapshot) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if generation != that.generation {
		return
	}

	switch {
	case errors.Is(snapshot.Err, apperror.ErrCorruptedSession):
		that.fail(snapshot.Err)
	case snapshot.Err != nil && that.state == StateJoining:
		that.fail(asTransport(snapshot.Err))
	case snapshot.Err != nil:
		that.logger.Warn("snapshot not delivered", "sessionID", that.sessionID, "error", snapshot.Err)

		that.lastErr = asTransport(snapshot.Err)
		that.publish()
	default:
		that.applySnapshot(snapshot.Game)
	}
}

// applySnapshot - validates a received document and advances the state machine. Callers hold the lock.
func (that *SessionController) applySnapshot(received *entity.Game) {
	log := that.logger.With("method", "applySnapshot", "sessionID", that.sessionID)

	if that.state == StateIdle || that.state == StateFinished {
		return
	}

	if received == nil {
		that.fail(fmt.Errorf("%w: %s", apperror.ErrSessionNotFound, that.sessionID))
		return
	}

	game := *received

	if game.ID != that.sessionID {
		that.fail(fmt.Errorf("%w: received session %q", apperror.ErrCorruptedSession, game.ID))
		return
	}

	if err := tictactoe.Validate(game); err != nil {
		that.fail(err)
		return
	}

	if that.game != nil && !that.resync {
		stale, err := tictactoe.Progression(*that.game, game)
		if err != nil {
			that.fail(err)
			return
		}

		if stale {
			log.Debug("stale snapshot dropped", "filled", game.Board.Filled())
			return
		}
	}

	that.game = &game
	that.lastErr = nil
	that.resync = false

	if that.pending > 0 && game.Board.Filled() >= that.pending {
		that.pending = 0
	}

	_, seated := game.RoleOf(that.participantID)

	switch {
	case !seated && that.state == StateJoining:
		if err := that.claimSeat(game); err != nil {
			that.fail(err)
			return
		}
	case game.IsFinished():
		that.state = StateFinished
	case game.IsReady():
		that.state = StateActive
	default:
		that.state = StateAwaitingOpponent
	}

	if that.state != StateJoining {
		that.resolveJoin(nil)
	}

	that.publish()
}

// claimSeat - requests the second seat once per join. The echo of the write completes the join.
func (that *SessionController) claimSeat(game entity.Game) error {
	if game.SecondPlayerID != "" {
		return fmt.Errorf("%w: session %s", apperror.ErrSessionFull, game.ID)
	}

	if that.claimed {
		return nil
	}

	that.claimed = true

	ctx, cancel := that.writeContext(context.Background())
	defer cancel()

	// gateways without a conditional write leave a window where two joiners both see a free seat
	if claimer, ok := that.gateway.(SeatClaimer); ok {
		if err := claimer.ClaimSecondSeat(ctx, game.ID, that.participantID); err != nil {
			return asTransport(err)
		}
		return nil
	}

	next, err := tictactoe.ClaimSecondSeat(game, that.participantID)
	if err != nil {
		return err
	}

	if err = that.gateway.Write(ctx, game.ID, next); err != nil {
		return fmt.Errorf("failed to claim seat: %w", asTransport(err))
	}

	return nil
}

// fail - ends the session after an unrecoverable error. A join that never completed returns to idle.
func (that *SessionController) fail(err error) {
	that.logger.Error("session ended", "sessionID", that.sessionID, "state", that.state, "error", err)

	if that.state == StateJoining {
		that.resolveJoin(err)
		that.teardown()
		that.lastErr = err
		that.publish()
		return
	}

	that.unsubscribe()
	that.state = StateFinished
	that.lastErr = err
	that.publish()
}

func (that *SessionController) resolveJoin(err error) {
	if that.joined == nil {
		return
	}

	that.joined <- err
	that.joined = nil
}

// teardown - drops the subscription and every piece of session state.
func (that *SessionController) teardown() {
	that.unsubscribe()
	that.resolveJoin(apperror.ErrNoActiveSession)
	that.reset()
}

func (that *SessionController) reset() {
	that.state = StateIdle
	that.participantID = ""
	that.sessionID = ""
	that.game = nil
	that.lastErr = nil
	that.pending = 0
	that.claimed = false
	that.resync = false
}

func (that *SessionController) writeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if that.writeTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, that.writeTimeout)
}

// publish - pushes the current state to watchers. Callers hold the lock.
func (that *SessionController) publish() {
	projection := entity.EmptyProjection()
	if that.game != nil {
		projection = entity.NewProjection(*that.game, that.participantID)
	} else if that.sessionID != "" {
		projection.SessionID = that.sessionID
		projection.Status = entity.StatusWaitingRival
	}

	that.feed.publish(Update{
		State:      that.state,
		Projection: projection,
		Err:        that.lastErr,
	})
}

// asTransport - classifies errors the gateway did not classify itself as transport errors.
func asTransport(err error) error {
	if apperror.Code(err) == "internal" {
		return fmt.Errorf("%w: %w", apperror.ErrTransport, err)
	}
	return err
}
