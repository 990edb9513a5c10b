package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tafl-backend/internal/apperror"
	"github.com/rocketscienceinc/tafl-backend/internal/entity"
	"github.com/rocketscienceinc/tafl-backend/internal/rating"
	"github.com/rocketscienceinc/tafl-backend/internal/repository"
)

var errDatabaseDown = errors.New("database down")

type mockProfileRepo struct {
	mock.Mock
}

func (that *mockProfileRepo) GetByID(ctx context.Context, playerID string) (*entity.Profile, error) {
	args := that.Called(ctx, playerID)
	profile, _ := args.Get(0).(*entity.Profile)

	return profile, args.Error(1)
}

func (that *mockProfileRepo) UpdateRatings(ctx context.Context, updates ...repository.RatingUpdate) error {
	args := that.Called(ctx, updates)

	return args.Error(0)
}

type mockMatchRepo struct {
	mock.Mock
}

func (that *mockMatchRepo) Create(ctx context.Context, record entity.MatchRecord) error {
	return that.Called(ctx, record).Error(0)
}

func TestRatingService_RecordResult(t *testing.T) {
	ctx := context.Background()
	record := entity.MatchRecord{GameID: "game-1", WinnerID: "alice", LoserID: "bob", Reason: "king_surrounded"}
	alice := &entity.Profile{PlayerID: "alice", Username: "Alice", Rating: entity.DefaultPlayerRating()}
	bob := &entity.Profile{PlayerID: "bob", Username: "Bob", Rating: entity.DefaultPlayerRating()}

	t.Run("Winner gains and loser drops", func(t *testing.T) {
		// Given: two fresh profiles
		profiles := &mockProfileRepo{}
		matches := &mockMatchRepo{}
		profiles.On("GetByID", mock.Anything, "alice").Return(alice, nil).Once()
		profiles.On("GetByID", mock.Anything, "bob").Return(bob, nil).Once()
		profiles.On("UpdateRatings", mock.Anything, mock.MatchedBy(func(updates []repository.RatingUpdate) bool {
			return len(updates) == 2 &&
				updates[0].PlayerID == "alice" && updates[0].Rating.Rating > entity.DefaultRating &&
				updates[1].PlayerID == "bob" && updates[1].Rating.Rating < entity.DefaultRating
		})).Return(nil).Once()
		matches.On("Create", mock.Anything, record).Return(nil).Once()

		svc := NewRatingService(discardLogger(), profiles, matches, rating.NewCalculator(rating.DefaultTau))

		// When: the result is recorded
		err := svc.RecordResult(ctx, record)

		// Then: ratings are stored and the match is logged
		require.NoError(t, err)
		profiles.AssertExpectations(t)
		matches.AssertExpectations(t)
	})

	t.Run("Missing profile stops before writing", func(t *testing.T) {
		profiles := &mockProfileRepo{}
		matches := &mockMatchRepo{}
		profiles.On("GetByID", mock.Anything, "alice").Return(alice, nil).Once()
		profiles.On("GetByID", mock.Anything, "bob").Return(nil, apperror.ErrProfileNotFound).Once()

		svc := NewRatingService(discardLogger(), profiles, matches, rating.NewCalculator(rating.DefaultTau))

		err := svc.RecordResult(ctx, record)

		require.ErrorIs(t, err, apperror.ErrProfileNotFound)
		profiles.AssertNotCalled(t, "UpdateRatings", mock.Anything, mock.Anything)
		matches.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("Storage failure is returned", func(t *testing.T) {
		profiles := &mockProfileRepo{}
		matches := &mockMatchRepo{}
		profiles.On("GetByID", mock.Anything, "alice").Return(alice, nil).Once()
		profiles.On("GetByID", mock.Anything, "bob").Return(bob, nil).Once()
		profiles.On("UpdateRatings", mock.Anything, mock.Anything).Return(errDatabaseDown).Once()

		svc := NewRatingService(discardLogger(), profiles, matches, rating.NewCalculator(rating.DefaultTau))

		err := svc.RecordResult(ctx, record)

		require.ErrorIs(t, err, errDatabaseDown)
	})
}

func TestRatingService_Lookup(t *testing.T) {
	profiles := &mockProfileRepo{}
	profiles.On("GetByID", mock.Anything, "alice").
		Return(&entity.Profile{PlayerID: "alice", Username: "Alice", Rating: entity.DefaultPlayerRating()}, nil).Once()

	svc := NewRatingService(discardLogger(), profiles, &mockMatchRepo{}, rating.NewCalculator(0))

	profile, err := svc.Lookup(context.Background(), "alice")

	require.NoError(t, err)
	assert.Equal(t, "Alice", profile.Username)
}
