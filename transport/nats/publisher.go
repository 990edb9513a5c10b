// Package nats publishes game lifecycle events to a NATS subject tree.
package nats

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	natsgo "github.com/nats-io/nats.go"

	"github.com/rocketscienceinc/tafl-backend/internal/entity"
)

const DefaultSubjectPrefix = "tafl.games"

type conn interface {
	Publish(subj string, data []byte) error
}

// GameEvent is the payload published on <prefix>.<event>.
type GameEvent struct {
	Event      string        `json:"event"`
	GameID     string        `json:"game_id"`
	Status     entity.Status `json:"status"`
	Attacker   string        `json:"attacker,omitempty"`
	Defender   string        `json:"defender,omitempty"`
	Winner     entity.Side   `json:"winner,omitempty"`
	WinReason  string        `json:"win_reason,omitempty"`
	OccurredAt time.Time     `json:"occurred_at"`
}

type Publisher struct {
	logger *slog.Logger
	conn   conn
	prefix string
	now    func() time.Time
}

func NewPublisher(logger *slog.Logger, conn conn, prefix string) *Publisher {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}

	return &Publisher{
		logger: logger,
		conn:   conn,
		prefix: prefix,
		now:    time.Now,
	}
}

func (that *Publisher) Publish(event string, game *entity.Game) error {
	payload := GameEvent{
		Event:      event,
		GameID:     game.ID,
		Status:     game.Status,
		OccurredAt: that.now().UTC(),
	}

	if attacker := game.ParticipantBySide(entity.SideAttacker); attacker != nil {
		payload.Attacker = attacker.ID
	}

	if defender := game.ParticipantBySide(entity.SideDefender); defender != nil {
		payload.Defender = defender.ID
	}

	if game.IsConcluded() {
		payload.Winner = game.Winner
		payload.WinReason = game.WinReason
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", event, err)
	}

	subject := that.prefix + "." + event
	if err = that.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}

	that.logger.Debug("game event published", "method", "Publish", "subject", subject, "gameID", game.ID)

	return nil
}

// Connect dials NATS and keeps retrying in the background if the server is not up yet.
func Connect(url string) (*natsgo.Conn, error) {
	opts := []natsgo.Option{
		natsgo.Name("tafl-backend"),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(5),
		natsgo.ReconnectWait(2 * time.Second),
	}

	nc, err := natsgo.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}

	return nc, nil
}
