package entity

import "time"

// Glicko-2 starting values for a player without history.
const (
	DefaultRating           = 1500.0
	DefaultRatingDeviation  = 350.0
	DefaultRatingVolatility = 0.06
)

type Rating struct {
	Rating     float64 `json:"rating"`
	Deviation  float64 `json:"rating_deviation"`
	Volatility float64 `json:"rating_volatility"`
}

func DefaultPlayerRating() Rating {
	return Rating{
		Rating:     DefaultRating,
		Deviation:  DefaultRatingDeviation,
		Volatility: DefaultRatingVolatility,
	}
}

type Profile struct {
	PlayerID string `json:"player_id"`
	Username string `json:"username"`
	Rating   Rating `json:"rating"`
}

// MatchRecord is the durable summary of a concluded game.
type MatchRecord struct {
	GameID      string    `json:"game_id"`
	WinnerID    string    `json:"winner_id"`
	LoserID     string    `json:"loser_id"`
	Reason      string    `json:"reason"`
	FinalBoard  Board     `json:"final_board"`
	ConcludedAt time.Time `json:"concluded_at"`
}
