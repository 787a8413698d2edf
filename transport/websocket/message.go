package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/tictactoe-minimax/internal/entity"
)

const (
	actionGameNew     = "game:new"
	actionGameGet     = "game:get"
	actionGameTurn    = "game:turn"
	actionGameUndo    = "game:undo"
	actionGameRestart = "game:restart"
	actionPing        = "ping"

	idlePingInterval = 30 * time.Second
	writeWait        = 10 * time.Second
	sendBuffer       = 16
)

// Message represents a WebSocket message with an action type and a payload.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Payload is the body of both requests and responses.
type Payload struct {
	GameID      string `json:"game_id,omitempty"`
	Mode        string `json:"mode,omitempty"`
	Size        int    `json:"size,omitempty"`
	Difficulty  string `json:"difficulty,omitempty"`
	Row         *int   `json:"row,omitempty"`
	Col         *int   `json:"col,omitempty"`
	KeepStarter bool   `json:"keep_starter,omitempty"`

	Game     *entity.Session `json:"game,omitempty"`
	WinCells []entity.Move   `json:"win_cells,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// client owns one connection. Only writePump writes to conn.
type client struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func newClient(conn *websocket.Conn) *client {
	return &client{
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
}

func (that *client) close() {
	that.once.Do(func() {
		close(that.done)
		_ = that.conn.Close()
	})
}

// writePump - drains the send queue and pings the client when idle.
func (that *client) writePump(ctx context.Context) error {
	ticker := time.NewTicker(idlePingInterval)
	defer ticker.Stop()

	lastWrite := time.Now()
	ping := mustMarshal(Message{Action: actionPing})

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-that.done:
			return nil
		case msg := <-that.send:
			if err := that.write(msg); err != nil {
				return err
			}
			lastWrite = time.Now()
		case <-ticker.C:
			if time.Since(lastWrite) < idlePingInterval {
				continue
			}
			if err := that.write(ping); err != nil {
				return err
			}
			lastWrite = time.Now()
		}
	}
}

func (that *client) write(msg []byte) error {
	if err := that.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}

	if err := that.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	return nil
}

// sendMessage - queues a message; it is dropped once the connection is gone.
func (that *client) sendMessage(ctx context.Context, action string, payload Payload) {
	msg := mustMarshal(Message{
		Action:  action,
		Payload: mustMarshal(payload),
	})

	select {
	case that.send <- msg:
	case <-that.done:
	case <-ctx.Done():
	}
}

func (that *client) sendGame(ctx context.Context, action string, session *entity.Session) {
	that.sendMessage(ctx, action, Payload{
		Game:     session,
		WinCells: session.WinCells(),
	})
}

func (that *client) sendError(ctx context.Context, action, message string) {
	that.sendMessage(ctx, action, Payload{Error: message})
}

func mustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
