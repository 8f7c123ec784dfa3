package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/rocketscienceinc/tictactoe-sync/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-sync/internal/entity"
	"github.com/rocketscienceinc/tictactoe-sync/internal/tictactoe"
)

// MemoryGameRepository is a process-local store with the same contract as GameRepository.
// Subscribers only ever see the latest document, intermediate writes may be skipped.
type MemoryGameRepository struct {
	mu          sync.Mutex
	games       map[string]entity.Game
	subscribers map[string]map[chan entity.Snapshot]struct{}
}

func NewMemoryGameRepository() *MemoryGameRepository {
	return &MemoryGameRepository{
		games:       make(map[string]entity.Game),
		subscribers: make(map[string]map[chan entity.Snapshot]struct{}),
	}
}

func (that *MemoryGameRepository) Create(_ context.Context, game entity.Game) (string, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	game.ID = uuid.NewString()
	if _, ok := that.games[game.ID]; ok {
		return "", fmt.Errorf("%w: %s", ErrIDCollision, game.ID)
	}

	that.games[game.ID] = game

	return game.ID, nil
}

func (that *MemoryGameRepository) Write(_ context.Context, id string, game entity.Game) error {
	if game.ID != id {
		return fmt.Errorf("%w: document %q written under %q", apperror.ErrCorruptedSession, game.ID, id)
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	that.store(game)

	return nil
}

func (that *MemoryGameRepository) GetByID(_ context.Context, id string) (*entity.Game, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	game, ok := that.games[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperror.ErrSessionNotFound, id)
	}

	return &game, nil
}

func (that *MemoryGameRepository) Subscribe(ctx context.Context, id string) (<-chan entity.Snapshot, error) {
	snapshots := make(chan entity.Snapshot, 1)

	that.mu.Lock()
	if that.subscribers[id] == nil {
		that.subscribers[id] = make(map[chan entity.Snapshot]struct{})
	}
	that.subscribers[id][snapshots] = struct{}{}

	if game, ok := that.games[id]; ok {
		snapshots <- entity.Snapshot{Game: &game}
	} else {
		snapshots <- entity.Snapshot{}
	}
	that.mu.Unlock()

	go func() {
		<-ctx.Done()

		that.mu.Lock()
		defer that.mu.Unlock()

		delete(that.subscribers[id], snapshots)
		if len(that.subscribers[id]) == 0 {
			delete(that.subscribers, id)
		}
		close(snapshots)
	}()

	return snapshots, nil
}

// ClaimSecondSeat - seats participantID atomically, the store lock stands in for a transaction.
func (that *MemoryGameRepository) ClaimSecondSeat(_ context.Context, id, participantID string) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	game, ok := that.games[id]
	if !ok {
		return fmt.Errorf("%w: %s", apperror.ErrSessionNotFound, id)
	}

	next, err := tictactoe.ClaimSecondSeat(game, participantID)
	if err != nil {
		return err
	}

	if next != game {
		that.store(next)
	}

	return nil
}

// store - saves the document and hands the newest copy to every subscriber. Callers hold the lock.
func (that *MemoryGameRepository) store(game entity.Game) {
	that.games[game.ID] = game

	for subscriber := range that.subscribers[game.ID] {
		snapshot := game

		// drop an undelivered older snapshot, only the latest matters
		select {
		case <-subscriber:
		default:
		}

		subscriber <- entity.Snapshot{Game: &snapshot}
	}
}
