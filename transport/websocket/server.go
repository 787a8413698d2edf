package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/tictactoe-minimax/internal/entity"
)

const shutdownTimeout = 5 * time.Second

type gameUseCase interface {
	CreateGame(ctx context.Context, mode entity.Mode, size int, difficulty entity.Difficulty) (*entity.Session, error)
	GetGame(ctx context.Context, id string) (*entity.Session, error)
	MakeTurn(ctx context.Context, id string, row, col int) (*entity.Session, error)
	MakeBotTurn(ctx context.Context, id string) (*entity.Session, error)
	Undo(ctx context.Context, id string) (*entity.Session, error)
	Restart(ctx context.Context, id string, keepStarter bool) (*entity.Session, error)
}

// ThinkDelay bounds the pause before the bot answers a human move.
type ThinkDelay struct {
	Min time.Duration
	Max time.Duration
}

type handlerFunc func(ctx context.Context, message *Message, client *client) error

type Server struct {
	logger   *slog.Logger
	games    gameUseCase
	delay    ThinkDelay
	upgrader websocket.Upgrader

	rndMu sync.Mutex
	rnd   *rand.Rand

	handlers map[string]handlerFunc
}

func New(logger *slog.Logger, games gameUseCase, delay ThinkDelay) *Server {
	server := &Server{
		logger: logger.With("component", "websocket"),
		games:  games,
		delay:  delay,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())), //nolint: gosec // it's ok
		handlers: make(map[string]handlerFunc),
	}

	server.handlers[actionGameNew] = server.handleNewGame
	server.handlers[actionGameGet] = server.handleGetGame
	server.handlers[actionGameTurn] = server.handleGameTurn
	server.handlers[actionGameUndo] = server.handleGameUndo
	server.handlers[actionGameRestart] = server.handleGameRestart

	return server
}

// Handler - returns the mux serving /ws; every connection lives until ctx is done.
func (that *Server) Handler(ctx context.Context) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		that.upgradeToWebSocket(ctx, w, r)
	})

	return mux
}

// Start - starts WebSocket server.
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
			that.logger.Error("failed to shutdown server", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// upgradeToWebSocket - upgrades the connection to WebSocket.
func (that *Server) upgradeToWebSocket(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "upgradeToWebSocket")

	conn, err := that.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("failed to upgrade connection", "error", err)
		return
	}

	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	c := newClient(conn)
	defer c.close()

	// closing the connection unblocks the read loop below
	go func() {
		if writeErr := c.writePump(connCtx); writeErr != nil {
			log.Debug("writer stopped", "error", writeErr)
		}
		cancel()
		c.close()
	}()

	log.Info("WebSocket connection established")

	if err = that.handleMessages(connCtx, c); err != nil {
		log.Debug("connection closed", "error", err)
	}
}

// handleMessages - processes messages from the client.
func (that *Server) handleMessages(ctx context.Context, c *client) error {
	log := that.logger.With("method", "handleMessages")

	for {
		_, body, err := c.conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("failed to read message: %w", err)
		}

		var message Message
		if err = json.Unmarshal(body, &message); err != nil {
			log.Warn("failed to unmarshal message", "error", err)
			c.sendError(ctx, "", "invalid message")

			continue
		}

		handler, ok := that.handlers[message.Action]
		if !ok {
			log.Warn("unknown action", "action", message.Action)
			c.sendError(ctx, message.Action, "unknown action")

			continue
		}

		if err = handler(ctx, &message, c); err != nil {
			log.Error("error processing message", "action", message.Action, "error", err)
		}
	}
}

// thinkDelay - picks a pause in [Min, Max].
func (that *Server) thinkDelay() time.Duration {
	if that.delay.Max <= that.delay.Min {
		return that.delay.Min
	}

	that.rndMu.Lock()
	defer that.rndMu.Unlock()

	return that.delay.Min + time.Duration(that.rnd.Int63n(int64(that.delay.Max-that.delay.Min)+1))
}
