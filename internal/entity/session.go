package entity

import (
	"errors"
	"fmt"

	"github.com/rocketscienceinc/tictactoe-minimax/internal/apperror"
)

const (
	StatusFinished = "finished"
	StatusOngoing  = "ongoing"
)

type Mode string

const (
	ModeAI          Mode = "ai"
	ModeMultiplayer Mode = "multiplayer"
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

var (
	ErrUnknownMode       = errors.New("unknown game mode")
	ErrUnknownDifficulty = errors.New("unknown difficulty")
)

func ParseMode(value string) (Mode, error) {
	switch mode := Mode(value); mode {
	case ModeAI, ModeMultiplayer:
		return mode, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, value)
	}
}

func ParseDifficulty(value string) (Difficulty, error) {
	switch difficulty := Difficulty(value); difficulty {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return difficulty, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownDifficulty, value)
	}
}

// Turn is one applied move, kept for undo.
type Turn struct {
	Row  int  `json:"row"`
	Col  int  `json:"col"`
	Mark Mark `json:"mark"`
}

// Session is a single game driven by a client, either against the bot or hot-seat.
type Session struct {
	ID         string     `json:"id"`
	Mode       Mode       `json:"mode"`
	Difficulty Difficulty `json:"difficulty,omitempty"`
	HumanMark  Mark       `json:"human_mark,omitempty"`
	BotMark    Mark       `json:"bot_mark,omitempty"`

	State   *GameState `json:"state"`
	Status  string     `json:"status"`
	Winner  string     `json:"winner"`
	WinLine *Line      `json:"win_line,omitempty"`
	History []Turn     `json:"history"`

	StartsRound Mark `json:"starts_round"`
	StartsNext  Mark `json:"starts_next"`
}

// NewSession creates a session and starts its first round. In AI mode the
// human plays X and the bot plays O.
func NewSession(id string, mode Mode, size int, difficulty Difficulty) (*Session, error) {
	session := &Session{
		ID:         id,
		Mode:       mode,
		StartsNext: PlayerX,
	}

	if session.IsWithBot() {
		session.Difficulty = difficulty
		session.HumanMark = PlayerX
		session.BotMark = PlayerO
	}

	state, err := NewGameState(size)
	if err != nil {
		return nil, fmt.Errorf("failed to create board: %w", err)
	}

	session.State = state
	session.Restart(false)

	return session, nil
}

func (that *Session) IsWithBot() bool {
	return that.Mode == ModeAI
}

func (that *Session) IsFinished() bool {
	return that.Status == StatusFinished
}

func (that *Session) IsBotTurn() bool {
	return that.IsWithBot() && !that.IsFinished() && that.State.CurrentPlayer == that.BotMark
}

// Restart clears the board. Play-again rounds against the bot alternate the
// starting side; keepStarter replays the current round with the same starter.
func (that *Session) Restart(keepStarter bool) {
	switch {
	case !that.IsWithBot():
		that.StartsRound = PlayerX
	case !keepStarter || that.StartsRound == Empty:
		that.StartsRound = that.StartsNext
		that.StartsNext = that.StartsRound.Opponent()
	}

	that.State.Board = make([]Mark, that.State.Size*that.State.Size)
	that.State.SetCurrentPlayer(that.StartsRound)
	that.History = []Turn{}
	that.Status = StatusOngoing
	that.Winner = ""
	that.WinLine = nil
}

func (that *Session) MakeTurn(mark Mark, row, col int) error {
	if that.IsFinished() {
		return apperror.ErrGameFinished
	}

	if that.State.CurrentPlayer != mark {
		return apperror.ErrNotYourTurn
	}

	if !that.State.ApplyMove(row, col, mark) {
		return fmt.Errorf("%w: row %d col %d", apperror.ErrInvalidCell, row, col)
	}

	that.History = append(that.History, Turn{Row: row, Col: col, Mark: mark})
	that.State.SetCurrentPlayer(mark.Opponent())

	that.UpdateGameState()

	return nil
}

func (that *Session) UpdateGameState() {
	switch outcome, winner, line := that.State.Outcome(); outcome {
	// one player wins
	case OutcomeWon:
		that.Winner = string(winner)
		that.WinLine = line
		that.Status = StatusFinished
	// tie
	case OutcomeDrawn:
		that.Winner = PlayerTie
		that.WinLine = nil
		that.Status = StatusFinished
	// game continue
	default:
		that.Winner = ""
		that.WinLine = nil
		that.Status = StatusOngoing
	}
}

// Undo takes back the last turn. Against the bot it takes back the bot reply
// and the human move before it, so the human is to move again.
func (that *Session) Undo() error {
	if that.IsFinished() || len(that.History) == 0 {
		return apperror.ErrUndoUnavailable
	}

	if !that.IsWithBot() {
		last := that.popTurn()
		that.State.SetCurrentPlayer(last.Mark)
		that.UpdateGameState()

		return nil
	}

	if len(that.History) < 2 || that.State.CurrentPlayer != that.HumanMark {
		return apperror.ErrUndoUnavailable
	}

	that.popTurn()
	that.popTurn()
	that.State.SetCurrentPlayer(that.HumanMark)
	that.UpdateGameState()

	return nil
}

func (that *Session) popTurn() Turn {
	last := that.History[len(that.History)-1]
	that.History = that.History[:len(that.History)-1]
	that.State.Board[last.Row*that.State.Size+last.Col] = Empty

	return last
}

// WinCells lists the cells of the winning line, if any.
func (that *Session) WinCells() []Move {
	if that.WinLine == nil {
		return nil
	}

	return that.WinLine.Cells(that.State.Size)
}
