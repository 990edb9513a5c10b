package apperror

import "errors"

var (
	ErrMalformedMessage = errors.New("malformed message")
	ErrInvalidBoard     = errors.New("invalid board")
	ErrInvalidCoord     = errors.New("coordinate is out of the board")
	ErrInvalidSide      = errors.New("unknown side")
	ErrInvalidLength    = errors.New("invalid time length")

	ErrGameNotFound       = errors.New("game not found")
	ErrGameFull           = errors.New("game is already full")
	ErrSideTaken          = errors.New("side is already taken")
	ErrAlreadyJoined      = errors.New("client already joined this game")
	ErrAlreadyInGame      = errors.New("client is already playing another game")
	ErrNotParticipant     = errors.New("client is not a participant of this game")
	ErrGameNotActive      = errors.New("game is not active")
	ErrGameAlreadyStarted = errors.New("game has already started")
	ErrNotYourTurn        = errors.New("it's not your turn")
	ErrNotYourPiece       = errors.New("piece does not belong to your side")
	ErrIllegalMove        = errors.New("illegal move")

	ErrGameLimitReached       = errors.New("too many games for this client")
	ErrConnectionLimitReached = errors.New("too many connections from this address")

	ErrSessionNotFound = errors.New("session not found, please start a new_connection")
	ErrSessionInUse    = errors.New("session is still connected elsewhere")
	ErrUnauthorized    = errors.New("client id is not bound to this connection")
	ErrUnknownMethod   = errors.New("unknown method")

	ErrProfileNotFound = errors.New("profile not found")
)

// types is checked in order, the first match wins.
var types = []struct {
	err  error
	code string
}{
	{ErrMalformedMessage, "malformed_message"},
	{ErrInvalidBoard, "invalid_board"},
	{ErrInvalidCoord, "invalid_coordinate"},
	{ErrInvalidSide, "invalid_role"},
	{ErrInvalidLength, "invalid_length"},
	{ErrGameNotFound, "game_not_found"},
	{ErrGameFull, "game_full"},
	{ErrSideTaken, "role_taken"},
	{ErrAlreadyJoined, "already_joined"},
	{ErrAlreadyInGame, "already_in_game"},
	{ErrNotParticipant, "not_participant"},
	{ErrGameNotActive, "game_not_active"},
	{ErrGameAlreadyStarted, "game_already_started"},
	{ErrNotYourTurn, "not_your_turn"},
	{ErrNotYourPiece, "not_your_piece"},
	{ErrIllegalMove, "illegal_move"},
	{ErrGameLimitReached, "resource_limit"},
	{ErrConnectionLimitReached, "resource_limit"},
	{ErrSessionNotFound, "session_not_found"},
	{ErrSessionInUse, "session_in_use"},
	{ErrUnauthorized, "unauthorized"},
	{ErrUnknownMethod, "unknown_method"},
	{ErrProfileNotFound, "profile_not_found"},
}

// Type returns the error_type code sent to clients for err.
func Type(err error) string {
	for _, t := range types {
		if errors.Is(err, t.err) {
			return t.code
		}
	}

	return "internal"
}
