package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rocketscienceinc/tafl-backend/internal/apperror"
	"github.com/rocketscienceinc/tafl-backend/internal/entity"
)

// RatingUpdate is the new rating of one player.
type RatingUpdate struct {
	PlayerID string
	Rating   entity.Rating
}

type ProfileRepository interface {
	GetByID(ctx context.Context, playerID string) (*entity.Profile, error)
	UpdateRatings(ctx context.Context, updates ...RatingUpdate) error
}

type dbProfile struct {
	db *sql.DB
}

func NewProfileRepository(db *sql.DB) ProfileRepository {
	return &dbProfile{
		db: db,
	}
}

const selectProfile = `SELECT player_id, username, current_rating, rating_deviation, rating_volatility
FROM user_profiles
WHERE player_id = $1`

func (that *dbProfile) GetByID(ctx context.Context, playerID string) (*entity.Profile, error) {
	var profile entity.Profile

	err := that.db.QueryRowContext(ctx, selectProfile, playerID).Scan(
		&profile.PlayerID,
		&profile.Username,
		&profile.Rating.Rating,
		&profile.Rating.Deviation,
		&profile.Rating.Volatility,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", apperror.ErrProfileNotFound, playerID)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get profile by id: %w", err)
	}

	return &profile, nil
}

const updateRating = `UPDATE user_profiles
SET current_rating = $2, rating_deviation = $3, rating_volatility = $4
WHERE player_id = $1`

// UpdateRatings writes all updates in one transaction.
func (that *dbProfile) UpdateRatings(ctx context.Context, updates ...RatingUpdate) error {
	tx, err := that.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		_ = tx.Rollback()
	}()

	for _, update := range updates {
		result, execErr := tx.ExecContext(ctx, updateRating,
			update.PlayerID,
			update.Rating.Rating,
			update.Rating.Deviation,
			update.Rating.Volatility,
		)
		if execErr != nil {
			return fmt.Errorf("failed to update rating of %s: %w", update.PlayerID, execErr)
		}

		affected, execErr := result.RowsAffected()
		if execErr != nil {
			return fmt.Errorf("failed to read affected rows: %w", execErr)
		}

		if affected == 0 {
			return fmt.Errorf("%w: %s", apperror.ErrProfileNotFound, update.PlayerID)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit ratings: %w", err)
	}

	return nil
}
