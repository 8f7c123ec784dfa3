package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/tictactoe-sync/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-sync/internal/entity"
	"github.com/rocketscienceinc/tictactoe-sync/internal/repository/storage"
	"github.com/rocketscienceinc/tictactoe-sync/internal/tictactoe"
)

const (
	defaultKeyPrefix     = "game:"
	defaultChannelPrefix = "game-updates:"
	defaultClaimRetries  = 3
)

var ErrIDCollision = errors.New("generated session id already exists")

type Options struct {
	KeyPrefix     string
	ChannelPrefix string
	ClaimRetries  int
	// TTL expires idle sessions, every write refreshes it. Zero keeps sessions forever.
	TTL time.Duration
}

// GameRepository keeps every session as a JSON document under its own key and
// publishes the full document on a per-session channel after each write.
type GameRepository struct {
	logger  *slog.Logger
	client  *redis.Client
	options Options
}

func NewGameRepository(logger *slog.Logger, redisStorage *storage.RedisStorage, options Options) *GameRepository {
	if options.KeyPrefix == "" {
		options.KeyPrefix = defaultKeyPrefix
	}

	if options.ChannelPrefix == "" {
		options.ChannelPrefix = defaultChannelPrefix
	}

	if options.ClaimRetries <= 0 {
		options.ClaimRetries = defaultClaimRetries
	}

	return &GameRepository{
		logger:  logger.With("component", "game_repository"),
		client:  redisStorage.Connection,
		options: options,
	}
}

// Create - stores game under a freshly generated session id and returns the id.
func (that *GameRepository) Create(ctx context.Context, game entity.Game) (string, error) {
	game.ID = uuid.NewString()

	gameJSON, err := json.Marshal(game)
	if err != nil {
		return "", fmt.Errorf("could not marshal game: %w", err)
	}

	created, err := that.client.SetNX(ctx, that.key(game.ID), gameJSON, that.options.TTL).Result()
	if err != nil {
		return "", fmt.Errorf("%w: failed to create game: %w", apperror.ErrTransport, err)
	}

	if !created {
		return "", fmt.Errorf("%w: %s", ErrIDCollision, game.ID)
	}

	that.logger.Debug("game created", "gameID", game.ID)

	return game.ID, nil
}

// Write - overwrites the whole document and notifies subscribers.
func (that *GameRepository) Write(ctx context.Context, id string, game entity.Game) error {
	if game.ID != id {
		return fmt.Errorf("%w: document %q written under %q", apperror.ErrCorruptedSession, game.ID, id)
	}

	gameJSON, err := json.Marshal(game)
	if err != nil {
		return fmt.Errorf("could not marshal game: %w", err)
	}

	_, err = that.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, that.key(id), gameJSON, that.options.TTL)
		pipe.Publish(ctx, that.channel(id), gameJSON)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: failed to write game: %w", apperror.ErrTransport, err)
	}

	return nil
}

// GetByID - reads the current document.
func (that *GameRepository) GetByID(ctx context.Context, id string) (*entity.Game, error) {
	response, err := that.client.Get(ctx, that.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", apperror.ErrSessionNotFound, id)
	}

	if err != nil {
		return nil, fmt.Errorf("%w: failed to get game: %w", apperror.ErrTransport, err)
	}

	return decodeGame(response)
}

// Subscribe - streams the current document followed by every published update until ctx is done.
func (that *GameRepository) Subscribe(ctx context.Context, id string) (<-chan entity.Snapshot, error) {
	pubsub := that.client.Subscribe(ctx, that.channel(id))

	// the subscription must be confirmed before the first read, otherwise a write between the two is lost
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("%w: failed to subscribe: %w", apperror.ErrTransport, err)
	}

	snapshots := make(chan entity.Snapshot)

	go func() {
		log := that.logger.With("method", "Subscribe", "gameID", id)

		defer close(snapshots)
		defer func() {
			if err := pubsub.Close(); err != nil {
				log.Error("could not close subscription", "error", err)
			}
		}()

		send := func(snapshot entity.Snapshot) bool {
			select {
			case snapshots <- snapshot:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !send(that.current(ctx, id)) {
			return
		}

		messages := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				log.Debug("subscription cancelled")
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}

				game, err := decodeGame([]byte(msg.Payload))
				if !send(entity.Snapshot{Game: game, Err: err}) {
					return
				}
			}
		}
	}()

	return snapshots, nil
}

// ClaimSecondSeat - seats participantID only if the second seat is still free at commit time.
func (that *GameRepository) ClaimSecondSeat(ctx context.Context, id, participantID string) error {
	key := that.key(id)

	claim := func(tx *redis.Tx) error {
		response, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return fmt.Errorf("%w: %s", apperror.ErrSessionNotFound, id)
		}

		if err != nil {
			return fmt.Errorf("%w: failed to get game: %w", apperror.ErrTransport, err)
		}

		game, err := decodeGame(response)
		if err != nil {
			return err
		}

		next, err := tictactoe.ClaimSecondSeat(*game, participantID)
		if err != nil {
			return err
		}

		if next == *game {
			return nil
		}

		gameJSON, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("could not marshal game: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, gameJSON, that.options.TTL)
			pipe.Publish(ctx, that.channel(id), gameJSON)
			return nil
		})

		return err
	}

	var err error
	for attempt := 0; attempt < that.options.ClaimRetries; attempt++ {
		err = that.client.Watch(ctx, claim, key)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}

		that.logger.Debug("seat claim raced, retrying", "gameID", id, "attempt", attempt)
	}

	if err == nil {
		return nil
	}

	if apperror.Code(err) == "internal" {
		return fmt.Errorf("%w: failed to claim seat: %w", apperror.ErrTransport, err)
	}

	return err
}

func (that *GameRepository) current(ctx context.Context, id string) entity.Snapshot {
	game, err := that.GetByID(ctx, id)
	if errors.Is(err, apperror.ErrSessionNotFound) {
		return entity.Snapshot{}
	}

	return entity.Snapshot{Game: game, Err: err}
}

func (that *GameRepository) key(id string) string {
	return that.options.KeyPrefix + id
}

func (that *GameRepository) channel(id string) string {
	return that.options.ChannelPrefix + id
}

func decodeGame(data []byte) (*entity.Game, error) {
	var game entity.Game
	if err := json.Unmarshal(data, &game); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal game: %w", apperror.ErrCorruptedSession, err)
	}

	return &game, nil
}
