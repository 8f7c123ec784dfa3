package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateFeed(t *testing.T) {
	t.Run("A slow watcher ends on the latest update", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		feed := newUpdateFeed(Update{State: StateIdle})
		updates := feed.watch(ctx)

		// When: several updates are published before the watcher reads
		feed.publish(Update{State: StateAwaitingOpponent})
		feed.publish(Update{State: StateActive})
		feed.publish(Update{State: StateFinished})

		// Then: only the newest one is waiting
		assert.Equal(t, StateFinished, (<-updates).State)
		assert.Equal(t, StateFinished, feed.Current().State)
	})

	t.Run("Cancelling the context closes the channel", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())

		feed := newUpdateFeed(Update{State: StateIdle})
		updates := feed.watch(ctx)
		<-updates

		cancel()

		require.Eventually(t, func() bool {
			_, ok := <-updates
			return !ok
		}, time.Second, 5*time.Millisecond)

		// And: publishing afterwards does not block
		feed.publish(Update{State: StateActive})
	})
}

func TestState_String(t *testing.T) {
	names := map[State]string{
		StateIdle:             "idle",
		StateAwaitingOpponent: "awaiting_opponent",
		StateJoining:          "joining",
		StateActive:           "active",
		StateFinished:         "finished",
	}

	for state, name := range names {
		text, err := state.MarshalText()
		require.NoError(t, err)
		assert.Equal(t, name, string(text))
	}

	assert.Equal(t, "state(42)", State(42).String())
}
