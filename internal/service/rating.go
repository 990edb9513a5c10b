package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rocketscienceinc/tafl-backend/internal/entity"
	"github.com/rocketscienceinc/tafl-backend/internal/repository"
)

type profileRepo interface {
	GetByID(ctx context.Context, playerID string) (*entity.Profile, error)
	UpdateRatings(ctx context.Context, updates ...repository.RatingUpdate) error
}

type matchRepo interface {
	Create(ctx context.Context, record entity.MatchRecord) error
}

type ratingCalculator interface {
	PostGame(winner, loser entity.Rating) (entity.Rating, entity.Rating)
}

// RatingService looks up player profiles and applies post-game rating changes.
type RatingService struct {
	logger   *slog.Logger
	profiles profileRepo
	matches  matchRepo
	calc     ratingCalculator
}

func NewRatingService(logger *slog.Logger, profiles profileRepo, matches matchRepo, calc ratingCalculator) *RatingService {
	return &RatingService{
		logger:   logger,
		profiles: profiles,
		matches:  matches,
		calc:     calc,
	}
}

func (that *RatingService) Lookup(ctx context.Context, playerID string) (*entity.Profile, error) {
	profile, err := that.profiles.GetByID(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up profile: %w", err)
	}

	return profile, nil
}

// RecordResult updates both players' ratings from a decisive game and logs the match.
func (that *RatingService) RecordResult(ctx context.Context, record entity.MatchRecord) error {
	log := that.logger.With("method", "RecordResult", "gameID", record.GameID)

	winner, err := that.profiles.GetByID(ctx, record.WinnerID)
	if err != nil {
		return fmt.Errorf("failed to load winner profile: %w", err)
	}

	loser, err := that.profiles.GetByID(ctx, record.LoserID)
	if err != nil {
		return fmt.Errorf("failed to load loser profile: %w", err)
	}

	newWinner, newLoser := that.calc.PostGame(winner.Rating, loser.Rating)

	err = that.profiles.UpdateRatings(ctx,
		repository.RatingUpdate{PlayerID: record.WinnerID, Rating: newWinner},
		repository.RatingUpdate{PlayerID: record.LoserID, Rating: newLoser},
	)
	if err != nil {
		return fmt.Errorf("failed to store ratings: %w", err)
	}

	if err = that.matches.Create(ctx, record); err != nil {
		return fmt.Errorf("failed to store match: %w", err)
	}

	log.Info("ratings updated",
		"winnerID", record.WinnerID, "winnerRating", newWinner.Rating,
		"loserID", record.LoserID, "loserRating", newLoser.Rating)

	return nil
}
