package websocket

import (
	"context"
	"fmt"

	"github.com/rocketscienceinc/tafl-backend/internal/apperror"
	"github.com/rocketscienceinc/tafl-backend/internal/entity"
)

// handleNewConnection issues an identity for this connection. A connection keeps the first
// identity it was given.
func (that *Server) handleNewConnection(_ context.Context, conn *connection, _ *Request) error {
	log := that.logger.With("method", "handleNewConnection")

	if conn.clientID == "" {
		conn.clientID, conn.resumeToken = that.sessions.Register(conn)
		log.Info("client connected", "clientID", conn.clientID)
	}

	event := entity.ConnectEvent{Method: entity.MethodConnect, ClientID: conn.clientID, ResumeToken: conn.resumeToken}
	if err := conn.Send(event); err != nil {
		return fmt.Errorf("failed to send connect: %w", err)
	}

	return nil
}

// handleResume moves an existing identity onto this connection. An identity this connection
// held before is dropped and forfeits its game.
func (that *Server) handleResume(_ context.Context, conn *connection, req *Request) error {
	log := that.logger.With("method", "handleResume", "clientID", req.ClientID)

	if req.ClientID == "" {
		return fmt.Errorf("%w: client_id is required", apperror.ErrMalformedMessage)
	}

	gameID, err := that.sessions.Resume(req.ClientID, req.ResumeToken, conn, req.GameID)
	if err != nil {
		return err
	}

	previous := conn.clientID
	conn.clientID = req.ClientID
	conn.resumeToken = req.ResumeToken

	log.Info("client resumed", "gameID", gameID)

	event := entity.ConnectEvent{Method: entity.MethodConnect, ClientID: req.ClientID, ResumeToken: req.ResumeToken, GameID: gameID}
	err = conn.Send(event)

	if previous != "" && previous != req.ClientID {
		that.sessions.Remove(previous)
		that.games.ClientRemoved(previous)
		log.Info("connection dropped its previous identity", "previous", previous)
	}

	if err != nil {
		return fmt.Errorf("failed to send connect: %w", err)
	}

	return nil
}

func (that *Server) handleCreate(ctx context.Context, _ *connection, req *Request) error {
	if req.Board == nil {
		return fmt.Errorf("%w: board is required", apperror.ErrMalformedMessage)
	}

	if req.Length == nil {
		return fmt.Errorf("%w: length is required", apperror.ErrMalformedMessage)
	}

	if _, err := that.games.CreateGame(ctx, req.ClientID, req.Board, *req.Length); err != nil {
		return fmt.Errorf("failed to create game: %w", err)
	}

	return nil
}

func (that *Server) handleJoin(ctx context.Context, _ *connection, req *Request) error {
	if req.GameID == "" {
		return fmt.Errorf("%w: game_id is required", apperror.ErrMalformedMessage)
	}

	if _, err := that.games.JoinGame(ctx, req.GameID, req.ClientID, req.Role); err != nil {
		return err
	}

	that.sessions.SetGame(req.ClientID, req.GameID)

	return nil
}

func (that *Server) handleReady(ctx context.Context, _ *connection, req *Request) error {
	if req.GameID == "" {
		return fmt.Errorf("%w: game_id is required", apperror.ErrMalformedMessage)
	}

	if _, err := that.games.SetReady(ctx, req.GameID, req.ClientID); err != nil {
		return err
	}

	return nil
}

func (that *Server) handleMove(ctx context.Context, _ *connection, req *Request) error {
	if req.GameID == "" || req.MoveFrom == nil || req.MoveTo == nil {
		return fmt.Errorf("%w: game_id, move_from and move_to are required", apperror.ErrMalformedMessage)
	}

	return that.games.ApplyMove(ctx, req.GameID, req.ClientID, *req.MoveFrom, *req.MoveTo)
}
