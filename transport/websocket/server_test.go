package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-minimax/internal/bot"
	"github.com/rocketscienceinc/tictactoe-minimax/internal/entity"
	"github.com/rocketscienceinc/tictactoe-minimax/internal/usecase"
	"github.com/rocketscienceinc/tictactoe-minimax/testing/memory"
)

const readTimeout = 5 * time.Second

func dial(t *testing.T, delay ThinkDelay) *websocket.Conn {
	t.Helper()

	conn, _ := dialWithCancel(t, delay)

	return conn
}

// dialWithCancel also returns the cancel of the context the server runs under.
func dialWithCancel(t *testing.T, delay ThinkDelay) (*websocket.Conn, context.CancelFunc) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rnd := rand.New(rand.NewSource(1)) //nolint: gosec // it's ok

	manager := usecase.NewGameManager(logger, memory.NewSessionStore(), usecase.BoardLimits{
		AIBoardSize: 3,
		MinSize:     3,
		MaxSize:     5,
	}).WithAgentFactory(func(difficulty entity.Difficulty) usecase.MoveSelector {
		return bot.New(difficulty, bot.WithRand(rnd))
	})

	server := httptest.NewServer(New(logger, manager, delay).Handler(ctx))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"

	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	t.Cleanup(func() { _ = conn.Close() })

	return conn, cancel
}

func send(t *testing.T, conn *websocket.Conn, action string, payload Payload) {
	t.Helper()

	require.NoError(t, conn.WriteJSON(Message{Action: action, Payload: mustMarshal(payload)}))
}

// receive reads the next non-ping message.
func receive(t *testing.T, conn *websocket.Conn) (string, Payload) {
	t.Helper()

	for {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(readTimeout)))

		var msg Message
		require.NoError(t, conn.ReadJSON(&msg))

		if msg.Action == actionPing {
			continue
		}

		var payload Payload
		if len(msg.Payload) > 0 {
			require.NoError(t, json.Unmarshal(msg.Payload, &payload))
		}

		return msg.Action, payload
	}
}

func intPtr(v int) *int {
	return &v
}

func TestServer_GameAgainstBot(t *testing.T) {
	conn := dial(t, ThinkDelay{})

	// Given: a new hard game
	send(t, conn, actionGameNew, Payload{Mode: "ai", Difficulty: "hard"})

	action, payload := receive(t, conn)
	require.Equal(t, actionGameNew, action)
	require.Empty(t, payload.Error)
	require.NotNil(t, payload.Game)

	gameID := payload.Game.ID

	// When: the human takes a corner
	send(t, conn, actionGameTurn, Payload{GameID: gameID, Row: intPtr(0), Col: intPtr(0)})

	action, payload = receive(t, conn)
	require.Equal(t, actionGameTurn, action)
	require.Empty(t, payload.Error)
	assert.Len(t, payload.Game.History, 1)

	// Then: the bot answer is pushed without being asked
	action, payload = receive(t, conn)
	require.Equal(t, actionGameTurn, action)
	require.Empty(t, payload.Error)
	assert.Len(t, payload.Game.History, 2)
	assert.Equal(t, entity.PlayerO, payload.Game.State.At(1, 1))
	assert.Equal(t, entity.PlayerX, payload.Game.State.CurrentPlayer)

	// When: the human takes both moves back
	send(t, conn, actionGameUndo, Payload{GameID: gameID})

	action, payload = receive(t, conn)
	require.Equal(t, actionGameUndo, action)
	require.Empty(t, payload.Error)
	assert.Empty(t, payload.Game.History)

	// When: the human asks to play again, the bot starts the next round
	send(t, conn, actionGameRestart, Payload{GameID: gameID})

	action, payload = receive(t, conn)
	require.Equal(t, actionGameRestart, action)
	assert.Equal(t, entity.PlayerO, payload.Game.State.CurrentPlayer)

	action, payload = receive(t, conn)
	require.Equal(t, actionGameTurn, action)
	require.Empty(t, payload.Error)
	// the opening book takes the center
	assert.Equal(t, entity.PlayerO, payload.Game.State.At(1, 1))

	// And: the stored game is the one pushed
	send(t, conn, actionGameGet, Payload{GameID: gameID})

	action, got := receive(t, conn)
	require.Equal(t, actionGameGet, action)
	assert.Equal(t, payload.Game.State, got.Game.State)
}

func TestServer_BotWaitsBeforeMoving(t *testing.T) {
	delay := ThinkDelay{Min: 100 * time.Millisecond, Max: 150 * time.Millisecond}
	conn := dial(t, delay)

	send(t, conn, actionGameNew, Payload{Mode: "ai", Difficulty: "easy"})
	_, payload := receive(t, conn)
	require.NotNil(t, payload.Game)

	send(t, conn, actionGameTurn, Payload{GameID: payload.Game.ID, Row: intPtr(1), Col: intPtr(1)})
	_, _ = receive(t, conn)

	start := time.Now()
	action, payload := receive(t, conn)

	require.Equal(t, actionGameTurn, action)
	assert.Len(t, payload.Game.History, 2)
	assert.GreaterOrEqual(t, time.Since(start), delay.Min/2)
}

func TestServer_Errors(t *testing.T) {
	conn := dial(t, ThinkDelay{})

	t.Run("Unknown action", func(t *testing.T) {
		send(t, conn, "game:fly", Payload{})

		action, payload := receive(t, conn)
		assert.Equal(t, "game:fly", action)
		assert.Equal(t, "unknown action", payload.Error)
	})

	t.Run("Unknown game", func(t *testing.T) {
		send(t, conn, actionGameGet, Payload{GameID: "missing"})

		action, payload := receive(t, conn)
		assert.Equal(t, actionGameGet, action)
		assert.NotEmpty(t, payload.Error)
		assert.Nil(t, payload.Game)
	})

	t.Run("Turn without a cell", func(t *testing.T) {
		send(t, conn, actionGameTurn, Payload{GameID: "missing"})

		_, payload := receive(t, conn)
		assert.Equal(t, "row and col are required", payload.Error)
	})

	t.Run("Board too large", func(t *testing.T) {
		send(t, conn, actionGameNew, Payload{Mode: "multiplayer", Size: 8})

		_, payload := receive(t, conn)
		assert.NotEmpty(t, payload.Error)
	})

	t.Run("Occupied cell", func(t *testing.T) {
		send(t, conn, actionGameNew, Payload{Mode: "multiplayer", Size: 3})
		_, payload := receive(t, conn)
		require.NotNil(t, payload.Game)

		gameID := payload.Game.ID

		send(t, conn, actionGameTurn, Payload{GameID: gameID, Row: intPtr(0), Col: intPtr(0)})
		_, payload = receive(t, conn)
		require.Empty(t, payload.Error)

		send(t, conn, actionGameTurn, Payload{GameID: gameID, Row: intPtr(0), Col: intPtr(0)})
		_, payload = receive(t, conn)
		assert.NotEmpty(t, payload.Error)
	})
}

func TestServer_ThinkDelay(t *testing.T) {
	server := New(slog.New(slog.NewTextHandler(io.Discard, nil)), nil, ThinkDelay{
		Min: 400 * time.Millisecond,
		Max: 700 * time.Millisecond,
	})

	for range 100 {
		delay := server.thinkDelay()

		assert.GreaterOrEqual(t, delay, 400*time.Millisecond)
		assert.LessOrEqual(t, delay, 700*time.Millisecond)
	}
}

func TestServer_ClosesConnectionsOnShutdown(t *testing.T) {
	conn, cancel := dialWithCancel(t, ThinkDelay{})

	send(t, conn, actionGameNew, Payload{Mode: "multiplayer", Size: 3})
	_, payload := receive(t, conn)
	require.NotNil(t, payload.Game)

	// When: the server context is canceled while the client stays idle
	cancel()

	// Then: the server side closes the socket
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(readTimeout)))

	_, _, err := conn.ReadMessage()
	require.Error(t, err)

	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) {
		assert.False(t, netErr.Timeout(), "connection was left open")
	}
}
