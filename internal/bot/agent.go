package bot

import (
	"io"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/rocketscienceinc/tictactoe-minimax/internal/entity"
)

const (
	// mediumRandomRate is the chance that Medium skips the search for a turn.
	mediumRandomRate = 0.3

	mediumDepth = 4
	hardDepth   = 8

	scoreWin  = 1
	scoreLoss = -1
	scoreDraw = 0
)

type Option func(agent *Agent)

// WithRand sets the random source used for random moves and move shuffling.
func WithRand(rnd *rand.Rand) Option {
	return func(agent *Agent) {
		if rnd != nil {
			agent.rnd = rnd
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(agent *Agent) {
		if logger != nil {
			agent.logger = logger
		}
	}
}

// Agent picks moves for the side to move of a GameState. It is not safe for
// concurrent use because it owns its random source.
type Agent struct {
	difficulty entity.Difficulty
	rnd        *rand.Rand
	logger     *slog.Logger

	maxDepth int
	nodes    int
}

func New(difficulty entity.Difficulty, options ...Option) *Agent {
	agent := &Agent{
		difficulty: difficulty,
		rnd:        rand.New(rand.NewSource(time.Now().UnixNano())), //nolint: gosec // it's ok
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(agent)
	}

	switch difficulty {
	case entity.DifficultyMedium:
		agent.maxDepth = mediumDepth
	case entity.DifficultyHard:
		agent.maxDepth = hardDepth
	}

	return agent
}

func (that *Agent) Difficulty() entity.Difficulty {
	return that.difficulty
}

// SelectMove returns the agent's move, or false when the board has no empty cell.
func (that *Agent) SelectMove(state *entity.GameState) (entity.Move, bool) {
	log := that.logger.With("method", "SelectMove", "difficulty", that.difficulty)

	moves := state.AvailableMoves()
	if len(moves) == 0 {
		log.Warn("no available moves")
		return entity.Move{}, false
	}

	switch {
	case that.difficulty == entity.DifficultyEasy:
		return that.randomMove(moves), true
	case that.difficulty == entity.DifficultyMedium && that.rnd.Float64() < mediumRandomRate:
		move := that.randomMove(moves)
		log.Debug("medium random move", "row", move.Row, "col", move.Col)

		return move, true
	}

	if move, ok := that.openingMove(state, moves); ok {
		log.Debug("opening book move", "row", move.Row, "col", move.Col)
		return move, true
	}

	that.nodes = 0
	move, score := that.searchRoot(state, moves)
	log.Debug("search finished", "row", move.Row, "col", move.Col, "score", score, "nodes", that.nodes)

	return move, true
}

func (that *Agent) randomMove(moves []entity.Move) entity.Move {
	return moves[that.rnd.Intn(len(moves))]
}

// openingMove answers the first move of a 3×3 game with the center, or a
// random corner if the center is taken.
func (that *Agent) openingMove(state *entity.GameState, moves []entity.Move) (entity.Move, bool) {
	if state.Size != 3 || len(moves) != state.Size*state.Size {
		return entity.Move{}, false
	}

	center := entity.Move{Row: 1, Col: 1}
	if state.At(center.Row, center.Col) == entity.Empty {
		return center, true
	}

	corners := []entity.Move{{Row: 0, Col: 0}, {Row: 0, Col: 2}, {Row: 2, Col: 0}, {Row: 2, Col: 2}}

	return that.randomMove(corners), true
}

func (that *Agent) shuffle(moves []entity.Move) {
	that.rnd.Shuffle(len(moves), func(i, j int) {
		moves[i], moves[j] = moves[j], moves[i]
	})
}

func (that *Agent) searchRoot(state *entity.GameState, moves []entity.Move) (entity.Move, int) {
	me := state.SideToMove()

	that.shuffle(moves)

	bestScore := math.MinInt
	bestMove, found := entity.Move{}, false
	alpha, beta := math.MinInt, math.MaxInt

	for _, move := range moves {
		child := state.Clone()
		child.ApplyMove(move.Row, move.Col, me)
		child.SetCurrentPlayer(me.Opponent())

		score := that.minimax(child, me, 0, false, alpha, beta)
		if score > bestScore {
			bestScore = score
			bestMove, found = move, true
		}

		alpha = max(alpha, bestScore)

		// nothing beats a forced win
		if bestScore == scoreWin {
			return bestMove, bestScore
		}

		if beta <= alpha {
			break
		}
	}

	if !found {
		return moves[0], bestScore
	}

	return bestMove, bestScore
}

// minimax scores state from me's point of view. The depth cap is checked only
// after the terminal checks, so a decided position always scores ±1.
func (that *Agent) minimax(state *entity.GameState, me entity.Mark, depth int, maximizing bool, alpha, beta int) int {
	that.nodes++

	if winner, _, ok := state.CheckWinner(); ok {
		if winner == me {
			return scoreWin
		}

		return scoreLoss
	}

	if state.IsFull() || depth >= that.maxDepth {
		return scoreDraw
	}

	moves := state.AvailableMoves()
	that.shuffle(moves)

	mark := me.Opponent()
	if maximizing {
		mark = me
	}

	best := math.MaxInt
	if maximizing {
		best = math.MinInt
	}

	for _, move := range moves {
		child := state.Clone()
		child.ApplyMove(move.Row, move.Col, mark)
		child.SetCurrentPlayer(mark.Opponent())

		score := that.minimax(child, me, depth+1, !maximizing, alpha, beta)

		if maximizing {
			best = max(best, score)
			alpha = max(alpha, best)
		} else {
			best = min(best, score)
			beta = min(beta, best)
		}

		if beta <= alpha {
			break
		}
	}

	return best
}
