package rest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/rocketscienceinc/tafl-backend/internal/apperror"
	"github.com/rocketscienceinc/tafl-backend/internal/entity"
	"github.com/rocketscienceinc/tafl-backend/internal/pkg"
)

type Handlers interface {
	PingHandler(w http.ResponseWriter, _ *http.Request)

	GameHandler(w http.ResponseWriter, r *http.Request)
	ProfileHandler(w http.ResponseWriter, r *http.Request)
}

type liveGames interface {
	GetGame(gameID string) (*entity.Game, error)
}

type archivedGames interface {
	GetByID(ctx context.Context, id string) (*entity.Game, error)
}

type profileService interface {
	Lookup(ctx context.Context, playerID string) (*entity.Profile, error)
}

type handlers struct {
	logger   *slog.Logger
	games    liveGames
	archive  archivedGames
	profiles profileService
}

// NewHandlers builds the HTTP handlers. archive and profiles may be nil when the
// backing store is not configured.
func NewHandlers(logger *slog.Logger, games liveGames, archive archivedGames, profiles profileService) Handlers {
	return &handlers{
		logger:   logger,
		games:    games,
		archive:  archive,
		profiles: profiles,
	}
}

type errorResponse struct {
	ErrorType string `json:"error_type"`
	Message   string `json:"message"`
}

func (that *handlers) PingHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("pong")); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
}

// GameHandler returns a live game, or its archived record once it left memory. Client ids
// are left out since they identify sessions.
func (that *handlers) GameHandler(w http.ResponseWriter, r *http.Request) {
	gameID := r.PathValue("id")
	if !pkg.IsValidID(gameID) {
		that.writeError(w, http.StatusBadRequest, apperror.ErrMalformedMessage)
		return
	}

	game, err := that.games.GetGame(gameID)
	if errors.Is(err, apperror.ErrGameNotFound) && that.archive != nil {
		game, err = that.archive.GetByID(r.Context(), gameID)
	}

	if err != nil {
		that.writeError(w, statusOf(err), err)
		return
	}

	that.writeJSON(w, http.StatusOK, game.Redacted())
}

func (that *handlers) ProfileHandler(w http.ResponseWriter, r *http.Request) {
	if that.profiles == nil {
		that.writeError(w, http.StatusNotFound, apperror.ErrProfileNotFound)
		return
	}

	profile, err := that.profiles.Lookup(r.Context(), r.PathValue("id"))
	if err != nil {
		that.writeError(w, statusOf(err), err)
		return
	}

	that.writeJSON(w, http.StatusOK, profile)
}

func (that *handlers) writeError(w http.ResponseWriter, status int, err error) {
	if status == http.StatusInternalServerError {
		that.logger.Error("request failed", "method", "writeError", "error", err)
	}

	that.writeJSON(w, status, errorResponse{ErrorType: apperror.Type(err), Message: err.Error()})
}

func (that *handlers) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		that.logger.Error("failed to write response", "method", "writeJSON", "error", err)
	}
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, apperror.ErrGameNotFound), errors.Is(err, apperror.ErrProfileNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperror.ErrMalformedMessage):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
