package websocket

import (
	"github.com/rocketscienceinc/tafl-backend/internal/entity"
)

// Inbound methods.
const (
	methodNewConnection = "new_connection"
	methodResume        = "resume"
	methodCreate        = "create"
	methodJoin          = "join"
	methodReady         = "ready"
	methodMove          = "move"
)

// Request is the envelope of every client message. Fields beyond method and client_id
// are method specific.
type Request struct {
	Method      string             `json:"method"`
	ClientID    string             `json:"client_id"`
	ResumeToken string             `json:"resume_token,omitempty"`
	GameID      string             `json:"game_id,omitempty"`
	Board       entity.Board       `json:"board,omitempty"`
	Length      *float64           `json:"length,omitempty"`
	Role        entity.Side        `json:"role,omitempty"`
	MoveFrom    *entity.Coordinate `json:"move_from,omitempty"`
	MoveTo      *entity.Coordinate `json:"move_to,omitempty"`
}

// errorDetails is attached to every error notification.
type errorDetails struct {
	Method string `json:"method,omitempty"`
	GameID string `json:"game_id,omitempty"`
}
