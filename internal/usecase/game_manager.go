package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/rocketscienceinc/tictactoe-minimax/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-minimax/internal/bot"
	"github.com/rocketscienceinc/tictactoe-minimax/internal/entity"
	"github.com/rocketscienceinc/tictactoe-minimax/internal/pkg"
)

var ErrNoMoveFound = errors.New("bot found no move")

type sessionRepo interface {
	CreateOrUpdate(ctx context.Context, session *entity.Session) error
	GetByID(ctx context.Context, id string) (*entity.Session, error)
	DeleteByID(ctx context.Context, id string) error
}

// MoveSelector picks a move for the side to move; false means the board is full.
type MoveSelector interface {
	SelectMove(state *entity.GameState) (entity.Move, bool)
}

// AgentFactory builds the move selector for one bot turn.
type AgentFactory func(difficulty entity.Difficulty) MoveSelector

// BoardLimits bounds the board sizes a client may ask for.
type BoardLimits struct {
	AIBoardSize int
	MinSize     int
	MaxSize     int
}

type GameManager struct {
	logger      *slog.Logger
	sessionRepo sessionRepo
	newAgent    AgentFactory
	limits      BoardLimits
	locks       *sessionLocks
}

func NewGameManager(logger *slog.Logger, sessionRepo sessionRepo, limits BoardLimits) *GameManager {
	manager := &GameManager{
		logger:      logger.With("component", "game_manager"),
		sessionRepo: sessionRepo,
		limits:      limits,
		locks:       newSessionLocks(),
	}

	manager.newAgent = func(difficulty entity.Difficulty) MoveSelector {
		return bot.New(difficulty, bot.WithLogger(manager.logger))
	}

	return manager
}

// WithAgentFactory replaces the bot constructor, mostly to seed it in tests.
func (that *GameManager) WithAgentFactory(factory AgentFactory) *GameManager {
	that.newAgent = factory
	return that
}

// CreateGame starts a new session. AI games are always played on the
// configured AI board size; size is only used for multiplayer.
func (that *GameManager) CreateGame(ctx context.Context, mode entity.Mode, size int, difficulty entity.Difficulty) (*entity.Session, error) {
	log := that.logger.With("method", "CreateGame")

	switch mode {
	case entity.ModeAI:
		size = that.limits.AIBoardSize
		if _, err := entity.ParseDifficulty(string(difficulty)); err != nil {
			return nil, fmt.Errorf("invalid difficulty: %w", err)
		}
	case entity.ModeMultiplayer:
		if size < that.limits.MinSize || size > that.limits.MaxSize {
			return nil, fmt.Errorf("%w: %d not in [%d, %d]", apperror.ErrBoardSizeNotAllowed, size, that.limits.MinSize, that.limits.MaxSize)
		}
	default:
		return nil, fmt.Errorf("%w: %q", entity.ErrUnknownMode, mode)
	}

	session, err := entity.NewSession(pkg.GenerateGameID(), mode, size, difficulty)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	if err = that.updateSession(ctx, session); err != nil {
		return nil, err
	}

	log.Info("game created", "gameID", session.ID, "mode", mode, "size", size, "difficulty", session.Difficulty)

	return session, nil
}

func (that *GameManager) GetGame(ctx context.Context, id string) (*entity.Session, error) {
	session, err := that.sessionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}

	return session, nil
}

// MakeTurn plays a move for the human side, or for whoever is to move in a
// multiplayer game.
func (that *GameManager) MakeTurn(ctx context.Context, id string, row, col int) (*entity.Session, error) {
	defer that.locks.Lock(id)()

	session, err := that.GetGame(ctx, id)
	if err != nil {
		return nil, err
	}

	mark := session.State.CurrentPlayer
	if session.IsWithBot() {
		mark = session.HumanMark
	}

	if err = session.MakeTurn(mark, row, col); err != nil {
		return session, fmt.Errorf("failed make turn: %w", err)
	}

	if err = that.updateSession(ctx, session); err != nil {
		return nil, err
	}

	that.logFinished(session)

	return session, nil
}

// MakeBotTurn asks a fresh agent for the session's difficulty to move. The
// search runs unlocked; the move is only stored if the session did not change
// meanwhile, otherwise ErrNotBotTurn is returned with the current session.
func (that *GameManager) MakeBotTurn(ctx context.Context, id string) (*entity.Session, error) {
	log := that.logger.With("method", "MakeBotTurn", "gameID", id)

	session, err := that.GetGame(ctx, id)
	if err != nil {
		return nil, err
	}

	if err = checkBotTurn(session); err != nil {
		return session, err
	}

	move, ok := that.newAgent(session.Difficulty).SelectMove(session.State.Clone())
	if !ok {
		return session, ErrNoMoveFound
	}

	defer that.locks.Lock(id)()

	current, err := that.GetGame(ctx, id)
	if err != nil {
		return nil, err
	}

	if err = checkBotTurn(current); err != nil {
		return current, err
	}

	if !samePosition(session, current) {
		log.Debug("position changed during search, bot move dropped")
		return current, apperror.ErrNotBotTurn
	}

	if err = current.MakeTurn(current.BotMark, move.Row, move.Col); err != nil {
		return nil, fmt.Errorf("bot failed to make turn: %w", err)
	}

	if err = that.updateSession(ctx, current); err != nil {
		return nil, err
	}

	log.Debug("bot moved", "row", move.Row, "col", move.Col)
	that.logFinished(current)

	return current, nil
}

func checkBotTurn(session *entity.Session) error {
	if session.IsFinished() {
		return apperror.ErrGameFinished
	}

	if !session.IsBotTurn() {
		return apperror.ErrNotBotTurn
	}

	return nil
}

// samePosition reports whether two reads of a session describe the same round and board.
func samePosition(a, b *entity.Session) bool {
	return a.StartsRound == b.StartsRound &&
		a.State.CurrentPlayer == b.State.CurrentPlayer &&
		slices.Equal(a.History, b.History) &&
		slices.Equal(a.State.Board, b.State.Board)
}

func (that *GameManager) Undo(ctx context.Context, id string) (*entity.Session, error) {
	defer that.locks.Lock(id)()

	session, err := that.GetGame(ctx, id)
	if err != nil {
		return nil, err
	}

	if err = session.Undo(); err != nil {
		return session, fmt.Errorf("failed to undo: %w", err)
	}

	if err = that.updateSession(ctx, session); err != nil {
		return nil, err
	}

	return session, nil
}

// Restart clears the board. keepStarter replays the round with the same
// starting side; otherwise the starter alternates in AI games.
func (that *GameManager) Restart(ctx context.Context, id string, keepStarter bool) (*entity.Session, error) {
	defer that.locks.Lock(id)()

	session, err := that.GetGame(ctx, id)
	if err != nil {
		return nil, err
	}

	session.Restart(keepStarter)

	if err = that.updateSession(ctx, session); err != nil {
		return nil, err
	}

	return session, nil
}

func (that *GameManager) DeleteGame(ctx context.Context, id string) error {
	log := that.logger.With("method", "DeleteGame")

	defer that.locks.Lock(id)()

	if err := that.sessionRepo.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("failed to delete game: %w", err)
	}

	log.Info("game deleted", "gameID", id)

	return nil
}

func (that *GameManager) updateSession(ctx context.Context, session *entity.Session) error {
	if err := that.sessionRepo.CreateOrUpdate(ctx, session); err != nil {
		return fmt.Errorf("failed to update game: %w", err)
	}

	return nil
}

func (that *GameManager) logFinished(session *entity.Session) {
	if !session.IsFinished() {
		return
	}

	that.logger.Info("game finished", "gameID", session.ID, "winner", session.Winner)
}
