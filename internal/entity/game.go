package entity

import (
	"fmt"
	"time"

	"github.com/rocketscienceinc/tafl-backend/internal/apperror"
)

type Status string

const (
	StatusPending      Status = "pending"
	StatusFullNotReady Status = "full_not_ready"
	StatusActive       Status = "active"
	StatusConcluded    Status = "concluded"
)

const MaxParticipants = 2

// sideOrder is the order free sides are handed out in.
var sideOrder = []Side{SideAttacker, SideDefender}

type Game struct {
	ID           string         `json:"id"`
	CreatorID    string         `json:"creator_id,omitempty"`
	Board        Board          `json:"board"`
	History      []Board        `json:"history,omitempty"`
	Participants []*Participant `json:"clients"`
	Turn         Side           `json:"current_turn"`
	Status       Status         `json:"status"`
	TimeLimit    time.Duration  `json:"time_limit"`
	Winner       Side           `json:"winner,omitempty"`
	WinReason    string         `json:"win_reason,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	LastActivity time.Time      `json:"last_activity"`
	ConcludedAt  time.Time      `json:"concluded_at,omitempty"`
}

func NewGame(id, creatorID string, board Board, timeLimit time.Duration, now time.Time) *Game {
	return &Game{
		ID:           id,
		CreatorID:    creatorID,
		Board:        board,
		Turn:         SideAttacker,
		Status:       StatusPending,
		TimeLimit:    timeLimit,
		CreatedAt:    now,
		LastActivity: now,
	}
}

func (that *Game) IsPending() bool {
	return that.Status == StatusPending
}

func (that *Game) IsActive() bool {
	return that.Status == StatusActive
}

func (that *Game) IsConcluded() bool {
	return that.Status == StatusConcluded
}

func (that *Game) Participant(clientID string) *Participant {
	for _, participant := range that.Participants {
		if participant.ID == clientID {
			return participant
		}
	}

	return nil
}

func (that *Game) ParticipantBySide(side Side) *Participant {
	for _, participant := range that.Participants {
		if participant.Side == side {
			return participant
		}
	}

	return nil
}

// Opponent returns the other participant of clientID, if any.
func (that *Game) Opponent(clientID string) *Participant {
	for _, participant := range that.Participants {
		if participant.ID != clientID {
			return participant
		}
	}

	return nil
}

func (that *Game) ParticipantIDs() []string {
	ids := make([]string, 0, len(that.Participants))
	for _, participant := range that.Participants {
		ids = append(ids, participant.ID)
	}

	return ids
}

// AddParticipant seats clientID on the requested side, or on the first free side when
// requested is empty. The game moves to StatusFullNotReady once both seats are taken.
func (that *Game) AddParticipant(clientID string, requested Side) (*Participant, error) {
	if that.Participant(clientID) != nil {
		return nil, apperror.ErrAlreadyJoined
	}

	if len(that.Participants) >= MaxParticipants {
		return nil, apperror.ErrGameFull
	}

	if !that.IsPending() {
		return nil, fmt.Errorf("%w: status %s", apperror.ErrGameAlreadyStarted, that.Status)
	}

	side, err := that.freeSide(requested)
	if err != nil {
		return nil, err
	}

	participant := &Participant{ID: clientID, Side: side}
	that.Participants = append(that.Participants, participant)

	if len(that.Participants) == MaxParticipants {
		that.Status = StatusFullNotReady
	}

	return participant, nil
}

func (that *Game) freeSide(requested Side) (Side, error) {
	if requested != "" {
		if !requested.IsPlaying() {
			return "", fmt.Errorf("%w: %q", apperror.ErrInvalidSide, requested)
		}

		if that.ParticipantBySide(requested) != nil {
			return "", apperror.ErrSideTaken
		}

		return requested, nil
	}

	for _, side := range sideOrder {
		if that.ParticipantBySide(side) == nil {
			return side, nil
		}
	}

	return "", apperror.ErrGameFull
}

// AllReady requires exactly two participants, both flagged ready.
func (that *Game) AllReady() bool {
	if len(that.Participants) != MaxParticipants {
		return false
	}

	for _, participant := range that.Participants {
		if !participant.Ready {
			return false
		}
	}

	return true
}

func (that *Game) FlipTurn() {
	that.Turn = that.Turn.Opponent()
}

// ArchiveBoard appends a copy of the current board to the history.
func (that *Game) ArchiveBoard() {
	that.History = append(that.History, that.Board.Clone())
}

func (that *Game) Conclude(winner Side, reason string, now time.Time) {
	that.Status = StatusConcluded
	that.Winner = winner
	that.WinReason = reason
	that.ConcludedAt = now
	that.LastActivity = now
}

func (that *Game) Touch(now time.Time) {
	that.LastActivity = now
}

// Clone returns a deep copy that is safe to hand to other goroutines.
func (that *Game) Clone() *Game {
	clone := *that
	clone.Board = that.Board.Clone()

	if that.History != nil {
		clone.History = make([]Board, len(that.History))
		for i, board := range that.History {
			clone.History[i] = board.Clone()
		}
	}

	clone.Participants = make([]*Participant, len(that.Participants))
	for i, participant := range that.Participants {
		p := *participant
		if participant.Rating != nil {
			rating := *participant.Rating
			p.Rating = &rating
		}
		clone.Participants[i] = &p
	}

	return &clone
}

// Public is a deep copy without the board history, used in client payloads.
func (that *Game) Public() *Game {
	shallow := *that
	shallow.History = nil

	return shallow.Clone()
}

// Redacted is Public without client identities, for readers outside the game.
func (that *Game) Redacted() *Game {
	redacted := that.Public()
	redacted.CreatorID = ""

	for _, participant := range redacted.Participants {
		participant.ID = ""
	}

	return redacted
}
