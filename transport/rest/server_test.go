package rest

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-sync/internal/entity"
	"github.com/rocketscienceinc/tictactoe-sync/internal/repository"
)

func newTestServer(t *testing.T) (*httptest.Server, *repository.MemoryGameRepository) {
	t.Helper()

	games := repository.NewMemoryGameRepository()
	server := New(slog.New(slog.NewTextHandler(io.Discard, nil)), games)

	httpServer := httptest.NewServer(server.Handler())
	t.Cleanup(httpServer.Close)

	return httpServer, games
}

func TestServer_Ping(t *testing.T) {
	httpServer, _ := newTestServer(t)

	resp, err := http.Get(httpServer.URL + "/ping")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "pong", string(body))
}

func TestServer_GetSession(t *testing.T) {
	httpServer, games := newTestServer(t)
	ctx := context.Background()

	t.Run("Returns the document and the participant's view", func(t *testing.T) {
		// Given: a session with both seats taken
		id, err := games.Create(ctx, entity.NewGame("alice"))
		require.NoError(t, err)
		require.NoError(t, games.ClaimSecondSeat(ctx, id, "bob"))

		// When: alice asks for it
		resp, err := http.Get(httpServer.URL + "/sessions/" + id + "?participant_id=alice")
		require.NoError(t, err)
		defer resp.Body.Close()

		// Then: the document and her projection are returned
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body sessionResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

		require.NotNil(t, body.Game)
		assert.Equal(t, "bob", body.Game.SecondPlayerID)
		assert.Equal(t, entity.FirstPlayer, body.Projection.Role)
		assert.True(t, body.Projection.IsMyTurn)
	})

	t.Run("Returns 404 for a missing session", func(t *testing.T) {
		resp, err := http.Get(httpServer.URL + "/sessions/missing")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)

		var body errorResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "session_not_found", body.Code)
	})

	t.Run("Rejects other methods", func(t *testing.T) {
		resp, err := http.Post(httpServer.URL+"/sessions/any", "application/json", nil)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	})
}
