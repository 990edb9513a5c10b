package entity

import "time"

// Outbound notification methods.
const (
	MethodConnect          = "connect"
	MethodCreate           = "create"
	MethodJoin             = "join"
	MethodReady            = "ready"
	MethodStart            = "start"
	MethodMove             = "move"
	MethodTaken            = "taken"
	MethodWin              = "win"
	MethodError            = "error"
	MethodCurrentGameState = "current_game_state"
)

// Win reasons that do not come out of the rule engine.
const (
	ReasonAttackerTimeout      = "attacker_timeout"
	ReasonDefenderTimeout      = "defender_timeout"
	ReasonOpponentDisconnected = "opponent_disconnected"
	ReasonInactivity           = "inactivity"
)

// Lifecycle events published to the event bus.
const (
	EventGameCreated   = "created"
	EventGameStarted   = "started"
	EventGameConcluded = "concluded"
)

// Timers holds the remaining budget per side in milliseconds.
type Timers struct {
	Attacker   int64 `json:"attacker"`
	Defender   int64 `json:"defender"`
	ActiveSide Side  `json:"active_side"`
}

type ConnectEvent struct {
	Method      string `json:"method"`
	ClientID    string `json:"client_id"`
	ResumeToken string `json:"resume_token,omitempty"`
	GameID      string `json:"game_id,omitempty"`
}

type CreateEvent struct {
	Method string `json:"method"`
	Game   *Game  `json:"game"`
}

type JoinEvent struct {
	Method          string  `json:"method"`
	NewClient       string  `json:"new_client"`
	NewClientRating float64 `json:"new_client_rating"`
	Game            *Game   `json:"game"`
}

type ReadyEvent struct {
	Method   string `json:"method"`
	ClientID string `json:"client_id"`
	GameID   string `json:"game_id"`
}

type StartEvent struct {
	Method       string `json:"method"`
	GameID       string `json:"game_id"`
	Attacker     string `json:"attacker"`
	Defender     string `json:"defender"`
	StartingTurn Side   `json:"starting_turn"`
	Timers       Timers `json:"timers"`
}

type MoveEvent struct {
	Method   string     `json:"method"`
	GameID   string     `json:"game_id"`
	MoveFrom Coordinate `json:"move_from"`
	MoveTo   Coordinate `json:"move_to"`
	Timers   Timers     `json:"timers"`
}

type TakenEvent struct {
	Method      string       `json:"method"`
	GameID      string       `json:"game_id"`
	Coordinates []Coordinate `json:"taken_piece_coordinates"`
}

type WinEvent struct {
	Method    string `json:"method"`
	GameID    string `json:"game_id"`
	WinReason string `json:"win_reason"`
	Winner    Side   `json:"winner"`
}

type ErrorEvent struct {
	Method    string `json:"method"`
	ErrorType string `json:"error_type"`
	Message   string `json:"message"`
	Details   any    `json:"details,omitempty"`
	Timestamp string `json:"timestamp"`
}

type CurrentGameStateEvent struct {
	Method           string  `json:"method"`
	OpponentUsername string  `json:"opponent_username"`
	OpponentRating   float64 `json:"opponent_rating"`
	GameState        *Game   `json:"game_state"`
}

func NewErrorEvent(errorType, message string, details any, now time.Time) ErrorEvent {
	return ErrorEvent{
		Method:    MethodError,
		ErrorType: errorType,
		Message:   message,
		Details:   details,
		Timestamp: now.UTC().Format(time.RFC3339Nano),
	}
}
