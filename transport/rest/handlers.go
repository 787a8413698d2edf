package rest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rocketscienceinc/tictactoe-minimax/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-minimax/internal/entity"
	"github.com/rocketscienceinc/tictactoe-minimax/internal/usecase"
)

type gameUseCase interface {
	CreateGame(ctx context.Context, mode entity.Mode, size int, difficulty entity.Difficulty) (*entity.Session, error)
	GetGame(ctx context.Context, id string) (*entity.Session, error)
	MakeTurn(ctx context.Context, id string, row, col int) (*entity.Session, error)
	MakeBotTurn(ctx context.Context, id string) (*entity.Session, error)
	Undo(ctx context.Context, id string) (*entity.Session, error)
	Restart(ctx context.Context, id string, keepStarter bool) (*entity.Session, error)
	DeleteGame(ctx context.Context, id string) error
}

type createGameRequest struct {
	Mode       string `json:"mode"`
	Size       int    `json:"size,omitempty"`
	Difficulty string `json:"difficulty,omitempty"`
}

type turnRequest struct {
	Row *int `json:"row"`
	Col *int `json:"col"`
}

type restartRequest struct {
	KeepStarter bool `json:"keep_starter"`
}

type gameResponse struct {
	Game     *entity.Session `json:"game"`
	WinCells []entity.Move   `json:"win_cells,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type Handlers struct {
	logger *slog.Logger
	games  gameUseCase
}

func NewHandlers(logger *slog.Logger, games gameUseCase) *Handlers {
	return &Handlers{
		logger: logger,
		games:  games,
	}
}

func (that *Handlers) CreateGame(w http.ResponseWriter, r *http.Request) {
	var req createGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		that.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	mode, err := entity.ParseMode(req.Mode)
	if err != nil {
		that.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	session, err := that.games.CreateGame(r.Context(), mode, req.Size, entity.Difficulty(req.Difficulty))
	if err != nil {
		that.handleError(w, "CreateGame", err)
		return
	}

	that.writeGame(w, http.StatusCreated, session)
}

func (that *Handlers) GetGame(w http.ResponseWriter, r *http.Request) {
	session, err := that.games.GetGame(r.Context(), chi.URLParam(r, "gameID"))
	if err != nil {
		that.handleError(w, "GetGame", err)
		return
	}

	that.writeGame(w, http.StatusOK, session)
}

func (that *Handlers) DeleteGame(w http.ResponseWriter, r *http.Request) {
	if err := that.games.DeleteGame(r.Context(), chi.URLParam(r, "gameID")); err != nil {
		that.handleError(w, "DeleteGame", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (that *Handlers) MakeTurn(w http.ResponseWriter, r *http.Request) {
	var req turnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		that.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Row == nil || req.Col == nil {
		that.writeError(w, http.StatusBadRequest, "row and col are required")
		return
	}

	session, err := that.games.MakeTurn(r.Context(), chi.URLParam(r, "gameID"), *req.Row, *req.Col)
	if err != nil {
		that.handleError(w, "MakeTurn", err)
		return
	}

	that.writeGame(w, http.StatusOK, session)
}

func (that *Handlers) MakeBotTurn(w http.ResponseWriter, r *http.Request) {
	session, err := that.games.MakeBotTurn(r.Context(), chi.URLParam(r, "gameID"))
	if err != nil {
		that.handleError(w, "MakeBotTurn", err)
		return
	}

	that.writeGame(w, http.StatusOK, session)
}

func (that *Handlers) Undo(w http.ResponseWriter, r *http.Request) {
	session, err := that.games.Undo(r.Context(), chi.URLParam(r, "gameID"))
	if err != nil {
		that.handleError(w, "Undo", err)
		return
	}

	that.writeGame(w, http.StatusOK, session)
}

func (that *Handlers) Restart(w http.ResponseWriter, r *http.Request) {
	var req restartRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			that.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	session, err := that.games.Restart(r.Context(), chi.URLParam(r, "gameID"), req.KeepStarter)
	if err != nil {
		that.handleError(w, "Restart", err)
		return
	}

	that.writeGame(w, http.StatusOK, session)
}

// statusFromError maps domain errors to HTTP status codes.
func statusFromError(err error) int {
	switch {
	case errors.Is(err, apperror.ErrGameNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperror.ErrInvalidCell),
		errors.Is(err, apperror.ErrBoardSizeNotAllowed),
		errors.Is(err, entity.ErrUnknownMode),
		errors.Is(err, entity.ErrUnknownDifficulty):
		return http.StatusBadRequest
	case errors.Is(err, apperror.ErrGameFinished),
		errors.Is(err, apperror.ErrNotYourTurn),
		errors.Is(err, apperror.ErrNotBotTurn),
		errors.Is(err, apperror.ErrUndoUnavailable),
		errors.Is(err, usecase.ErrNoMoveFound):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (that *Handlers) handleError(w http.ResponseWriter, method string, err error) {
	status := statusFromError(err)
	if status == http.StatusInternalServerError {
		that.logger.Error("request failed", "method", method, "error", err)
		that.writeError(w, status, http.StatusText(status))

		return
	}

	that.logger.Debug("request rejected", "method", method, "error", err)
	that.writeError(w, status, err.Error())
}

func (that *Handlers) writeGame(w http.ResponseWriter, status int, session *entity.Session) {
	that.writeJSON(w, status, gameResponse{
		Game:     session,
		WinCells: session.WinCells(),
	})
}

func (that *Handlers) writeError(w http.ResponseWriter, status int, message string) {
	that.writeJSON(w, status, errorResponse{Error: message})
}

func (that *Handlers) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		that.logger.Error("failed to write response", "error", err)
	}
}
