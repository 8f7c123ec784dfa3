package usecase

import (
	"context"
	"sync"
)

// updateFeed holds the latest Update and hands it to every watcher.
// A slow watcher skips intermediate updates but always ends on the latest one.
type updateFeed struct {
	mu       sync.Mutex
	current  Update
	watchers map[chan Update]struct{}
}

func newUpdateFeed(initial Update) *updateFeed {
	return &updateFeed{
		current:  initial,
		watchers: make(map[chan Update]struct{}),
	}
}

func (that *updateFeed) Current() Update {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.current
}

func (that *updateFeed) publish(update Update) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.current = update

	for watcher := range that.watchers {
		select {
		case <-watcher:
		default:
		}

		watcher <- update
	}
}

// watch - returns a channel that starts with the current update and is closed when ctx is done.
func (that *updateFeed) watch(ctx context.Context) <-chan Update {
	updates := make(chan Update, 1)

	that.mu.Lock()
	that.watchers[updates] = struct{}{}
	updates <- that.current
	that.mu.Unlock()

	go func() {
		<-ctx.Done()

		that.mu.Lock()
		defer that.mu.Unlock()

		delete(that.watchers, updates)
		close(updates)
	}()

	return updates
}
