package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/sqlc-dev/pqtype"

	"github.com/rocketscienceinc/tafl-backend/internal/entity"
)

type MatchRepository interface {
	Create(ctx context.Context, record entity.MatchRecord) error
}

type dbMatch struct {
	db *sql.DB
}

func NewMatchRepository(db *sql.DB) MatchRepository {
	return &dbMatch{
		db: db,
	}
}

const insertMatch = `INSERT INTO matches (game_id, winner_id, loser_id, reason, final_board, concluded_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (game_id) DO NOTHING`

func (that *dbMatch) Create(ctx context.Context, record entity.MatchRecord) error {
	var board pqtype.NullRawMessage

	if record.FinalBoard != nil {
		raw, err := json.Marshal(record.FinalBoard)
		if err != nil {
			return fmt.Errorf("could not marshal final board: %w", err)
		}

		board = pqtype.NullRawMessage{RawMessage: raw, Valid: true}
	}

	_, err := that.db.ExecContext(ctx, insertMatch,
		record.GameID,
		record.WinnerID,
		record.LoserID,
		record.Reason,
		board,
		record.ConcludedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert match %s: %w", record.GameID, err)
	}

	return nil
}
