package entity

import (
	"errors"
	"fmt"
)

type Mark string

const (
	Empty   Mark = ""
	PlayerX Mark = "X"
	PlayerO Mark = "O"
)

// PlayerTie marks a finished game without a winner.
const PlayerTie = "-"

var ErrInvalidBoardSize = errors.New("invalid board size")

// Opponent returns the other player's mark. Empty has no opponent.
func (that Mark) Opponent() Mark {
	switch that {
	case PlayerX:
		return PlayerO
	case PlayerO:
		return PlayerX
	default:
		return Empty
	}
}

func (that Mark) IsPlayer() bool {
	return that == PlayerX || that == PlayerO
}

type Move struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

type LineKind string

const (
	LineRow          LineKind = "row"
	LineColumn       LineKind = "col"
	LineMainDiagonal LineKind = "diag-main"
	LineAntiDiagonal LineKind = "diag-anti"
)

// Line is a full row, column or diagonal of the board.
type Line struct {
	Kind  LineKind `json:"kind"`
	Index int      `json:"index"`
}

// Cells lists the cells of the line on a board of the given size.
func (that Line) Cells(size int) []Move {
	cells := make([]Move, 0, size)

	for i := range size {
		switch that.Kind {
		case LineRow:
			cells = append(cells, Move{Row: that.Index, Col: i})
		case LineColumn:
			cells = append(cells, Move{Row: i, Col: that.Index})
		case LineMainDiagonal:
			cells = append(cells, Move{Row: i, Col: i})
		case LineAntiDiagonal:
			cells = append(cells, Move{Row: i, Col: size - 1 - i})
		}
	}

	return cells
}

// GameState holds an N×N board in row-major order and the side to move.
type GameState struct {
	Size          int    `json:"size"`
	Board         []Mark `json:"board"`
	CurrentPlayer Mark   `json:"current_player"`
}

func NewGameState(size int) (*GameState, error) {
	if size < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBoardSize, size)
	}

	return &GameState{
		Size:          size,
		Board:         make([]Mark, size*size),
		CurrentPlayer: PlayerX,
	}, nil
}

func (that *GameState) InBounds(row, col int) bool {
	return row >= 0 && col >= 0 && row < that.Size && col < that.Size
}

func (that *GameState) At(row, col int) Mark {
	return that.Board[row*that.Size+col]
}

// ApplyMove puts mark on an empty in-bounds cell. It reports false and leaves
// the state untouched for any other target.
func (that *GameState) ApplyMove(row, col int, mark Mark) bool {
	if !mark.IsPlayer() || !that.InBounds(row, col) {
		return false
	}

	idx := row*that.Size + col
	if that.Board[idx] != Empty {
		return false
	}

	that.Board[idx] = mark

	return true
}

// AvailableMoves returns every empty cell in row-major order.
func (that *GameState) AvailableMoves() []Move {
	moves := make([]Move, 0, len(that.Board))

	for idx, cell := range that.Board {
		if cell == Empty {
			moves = append(moves, Move{Row: idx / that.Size, Col: idx % that.Size})
		}
	}

	return moves
}

// CheckWinner scans rows, then columns, then the main and the anti diagonal,
// and reports the first complete line found in that order.
func (that *GameState) CheckWinner() (Mark, Line, bool) {
	n := that.Size

	for r := range n {
		if mark, ok := that.lineOwner(func(i int) Mark { return that.At(r, i) }); ok {
			return mark, Line{Kind: LineRow, Index: r}, true
		}
	}

	for c := range n {
		if mark, ok := that.lineOwner(func(i int) Mark { return that.At(i, c) }); ok {
			return mark, Line{Kind: LineColumn, Index: c}, true
		}
	}

	if mark, ok := that.lineOwner(func(i int) Mark { return that.At(i, i) }); ok {
		return mark, Line{Kind: LineMainDiagonal, Index: 0}, true
	}

	if mark, ok := that.lineOwner(func(i int) Mark { return that.At(i, n-1-i) }); ok {
		return mark, Line{Kind: LineAntiDiagonal, Index: 1}, true
	}

	return Empty, Line{}, false
}

func (that *GameState) lineOwner(cell func(i int) Mark) (Mark, bool) {
	if that.Size == 0 {
		return Empty, false
	}

	first := cell(0)
	if first == Empty {
		return Empty, false
	}

	for i := 1; i < that.Size; i++ {
		if cell(i) != first {
			return Empty, false
		}
	}

	return first, true
}

func (that *GameState) IsFull() bool {
	for _, cell := range that.Board {
		if cell == Empty {
			return false
		}
	}

	return true
}

func (that *GameState) Clone() *GameState {
	board := make([]Mark, len(that.Board))
	copy(board, that.Board)

	return &GameState{
		Size:          that.Size,
		Board:         board,
		CurrentPlayer: that.CurrentPlayer,
	}
}

func (that *GameState) SetCurrentPlayer(mark Mark) {
	that.CurrentPlayer = mark
}

// SideToMove returns CurrentPlayer, or derives it from the mark counts when
// the field was never set.
func (that *GameState) SideToMove() Mark {
	if that.CurrentPlayer.IsPlayer() {
		return that.CurrentPlayer
	}

	var x, o int
	for _, cell := range that.Board {
		switch cell {
		case PlayerX:
			x++
		case PlayerO:
			o++
		}
	}

	if x > o {
		return PlayerO
	}

	return PlayerX
}

type Outcome string

const (
	OutcomeInProgress Outcome = "in_progress"
	OutcomeWon        Outcome = "won"
	OutcomeDrawn      Outcome = "drawn"
)

// Outcome derives the game result. The winning line is set only for OutcomeWon.
func (that *GameState) Outcome() (Outcome, Mark, *Line) {
	if mark, line, ok := that.CheckWinner(); ok {
		return OutcomeWon, mark, &line
	}

	if that.IsFull() {
		return OutcomeDrawn, Empty, nil
	}

	return OutcomeInProgress, Empty, nil
}
