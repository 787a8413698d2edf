package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rocketscienceinc/tictactoe-minimax/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-minimax/internal/entity"
)

func (that *Server) handleNewGame(ctx context.Context, msg *Message, c *client) error {
	log := that.logger.With("method", "handleNewGame")

	payloadReq, err := decodePayload(msg)
	if err != nil {
		c.sendError(ctx, msg.Action, "invalid payload")
		return err
	}

	mode, err := entity.ParseMode(payloadReq.Mode)
	if err != nil {
		c.sendError(ctx, msg.Action, err.Error())
		return nil
	}

	session, err := that.games.CreateGame(ctx, mode, payloadReq.Size, entity.Difficulty(payloadReq.Difficulty))
	if err != nil {
		return that.reject(ctx, c, msg.Action, err)
	}

	log.Info("game started", "gameID", session.ID)

	c.sendGame(ctx, msg.Action, session)
	that.scheduleBotTurn(ctx, c, session)

	return nil
}

func (that *Server) handleGetGame(ctx context.Context, msg *Message, c *client) error {
	payloadReq, err := decodePayload(msg)
	if err != nil {
		c.sendError(ctx, msg.Action, "invalid payload")
		return err
	}

	session, err := that.games.GetGame(ctx, payloadReq.GameID)
	if err != nil {
		return that.reject(ctx, c, msg.Action, err)
	}

	c.sendGame(ctx, msg.Action, session)

	return nil
}

func (that *Server) handleGameTurn(ctx context.Context, msg *Message, c *client) error {
	payloadReq, err := decodePayload(msg)
	if err != nil {
		c.sendError(ctx, msg.Action, "invalid payload")
		return err
	}

	if payloadReq.Row == nil || payloadReq.Col == nil {
		c.sendError(ctx, msg.Action, "row and col are required")
		return nil
	}

	session, err := that.games.MakeTurn(ctx, payloadReq.GameID, *payloadReq.Row, *payloadReq.Col)
	if err != nil {
		return that.reject(ctx, c, msg.Action, err)
	}

	c.sendGame(ctx, msg.Action, session)
	that.scheduleBotTurn(ctx, c, session)

	return nil
}

func (that *Server) handleGameUndo(ctx context.Context, msg *Message, c *client) error {
	payloadReq, err := decodePayload(msg)
	if err != nil {
		c.sendError(ctx, msg.Action, "invalid payload")
		return err
	}

	session, err := that.games.Undo(ctx, payloadReq.GameID)
	if err != nil {
		return that.reject(ctx, c, msg.Action, err)
	}

	c.sendGame(ctx, msg.Action, session)

	return nil
}

func (that *Server) handleGameRestart(ctx context.Context, msg *Message, c *client) error {
	payloadReq, err := decodePayload(msg)
	if err != nil {
		c.sendError(ctx, msg.Action, "invalid payload")
		return err
	}

	session, err := that.games.Restart(ctx, payloadReq.GameID, payloadReq.KeepStarter)
	if err != nil {
		return that.reject(ctx, c, msg.Action, err)
	}

	c.sendGame(ctx, msg.Action, session)
	that.scheduleBotTurn(ctx, c, session)

	return nil
}

// scheduleBotTurn - lets the bot answer after a short pause and pushes the result as game:turn.
func (that *Server) scheduleBotTurn(ctx context.Context, c *client, session *entity.Session) {
	if !session.IsBotTurn() {
		return
	}

	log := that.logger.With("method", "scheduleBotTurn", "gameID", session.ID)
	delay := that.thinkDelay()

	go func() {
		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case <-timer.C:
		}

		updated, err := that.games.MakeBotTurn(ctx, session.ID)
		// the human may have restarted, undone or deleted the game in the meantime
		if errors.Is(err, apperror.ErrNotBotTurn) ||
			errors.Is(err, apperror.ErrGameFinished) ||
			errors.Is(err, apperror.ErrGameNotFound) {
			log.Debug("bot turn skipped", "error", err)
			return
		}

		if err != nil {
			log.Error("bot failed to move", "error", err)
			c.sendError(ctx, actionGameTurn, "bot failed to move")

			return
		}

		c.sendGame(ctx, actionGameTurn, updated)
	}()
}

// reject - reports a failed action to the client; only unexpected errors are returned.
func (that *Server) reject(ctx context.Context, c *client, action string, err error) error {
	switch {
	case errors.Is(err, apperror.ErrGameNotFound),
		errors.Is(err, apperror.ErrGameFinished),
		errors.Is(err, apperror.ErrNotYourTurn),
		errors.Is(err, apperror.ErrInvalidCell),
		errors.Is(err, apperror.ErrUndoUnavailable),
		errors.Is(err, apperror.ErrBoardSizeNotAllowed),
		errors.Is(err, entity.ErrUnknownMode),
		errors.Is(err, entity.ErrUnknownDifficulty):
		c.sendError(ctx, action, err.Error())
		return nil
	default:
		c.sendError(ctx, action, "internal error")
		return fmt.Errorf("%s failed: %w", action, err)
	}
}

func decodePayload(msg *Message) (Payload, error) {
	var payload Payload
	if len(msg.Payload) == 0 {
		return payload, nil
	}

	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return payload, fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	return payload, nil
}
