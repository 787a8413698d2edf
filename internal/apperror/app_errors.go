package apperror

import "errors"

var (
	ErrGameFinished        = errors.New("game is already finished")
	ErrNotYourTurn         = errors.New("it's not your turn")
	ErrNotBotTurn          = errors.New("it's not the bot's turn")
	ErrInvalidCell         = errors.New("invalid cell")
	ErrUndoUnavailable     = errors.New("nothing to undo")
	ErrGameNotFound        = errors.New("game not found")
	ErrBoardSizeNotAllowed = errors.New("board size is not allowed")
)
