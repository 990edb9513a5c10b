package service

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rocketscienceinc/tafl-backend/internal/apperror"
	"github.com/rocketscienceinc/tafl-backend/internal/pkg"
)

const DefaultReconnectGrace = 30 * time.Second

var ErrNotConnected = errors.New("client is not connected")

// Transport is the live connection of a client.
type Transport interface {
	Send(message any) error
	Close() error
}

// ExpireFunc is called after an identity was purged because its grace window ran out.
type ExpireFunc func(clientID string)

type session struct {
	clientID  string
	token     string
	gameID    string
	transport Transport

	// generation changes on every disconnect and resume, so a grace timer that fired
	// late can tell it is stale.
	generation uint64
	grace      *time.Timer
}

// SessionRegistry maps client identities to their current transport and game.
type SessionRegistry struct {
	logger *slog.Logger
	grace  time.Duration

	mu       sync.Mutex
	sessions map[string]*session
	onExpire []ExpireFunc
}

func NewSessionRegistry(logger *slog.Logger, grace time.Duration) *SessionRegistry {
	if grace <= 0 {
		grace = DefaultReconnectGrace
	}

	return &SessionRegistry{
		logger:   logger,
		grace:    grace,
		sessions: make(map[string]*session),
	}
}

// OnExpire registers a hook run when an identity is purged after its grace window.
func (that *SessionRegistry) OnExpire(fn ExpireFunc) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.onExpire = append(that.onExpire, fn)
}

// Register creates a new identity bound to transport. It returns the identity and the
// resume token only the owner of the identity learns.
func (that *SessionRegistry) Register(transport Transport) (string, string) {
	clientID := pkg.GenerateClientID()
	token := pkg.GenerateResumeToken()

	that.mu.Lock()
	that.sessions[clientID] = &session{clientID: clientID, token: token, transport: transport}
	that.mu.Unlock()

	that.logger.Info("session registered", "method", "Register", "clientID", clientID)

	return clientID, token
}

// Resume moves an identity onto transport and cancels its grace window. The identity must
// have lost its previous transport and token must match the one issued by Register.
// A non-empty gameID replaces the remembered game. It returns the remembered game id.
func (that *SessionRegistry) Resume(clientID, token string, transport Transport, gameID string) (string, error) {
	log := that.logger.With("method", "Resume", "clientID", clientID)

	that.mu.Lock()
	defer that.mu.Unlock()

	s, ok := that.sessions[clientID]
	if !ok {
		log.Info("resume for unknown session")
		return "", fmt.Errorf("%w: %s", apperror.ErrSessionNotFound, clientID)
	}

	if subtle.ConstantTimeCompare([]byte(s.token), []byte(token)) != 1 {
		log.Warn("resume with a wrong token")
		return "", fmt.Errorf("%w: bad resume token", apperror.ErrUnauthorized)
	}

	if s.transport != nil && s.transport != transport {
		log.Warn("resume while still connected")
		return "", apperror.ErrSessionInUse
	}

	s.stopGrace()
	s.generation++
	s.transport = transport

	if gameID != "" {
		s.gameID = gameID
	}

	log.Info("session resumed", "gameID", s.gameID)

	return s.gameID, nil
}

// Owns reports whether transport is the current transport of clientID.
func (that *SessionRegistry) Owns(clientID string, transport Transport) bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	s, ok := that.sessions[clientID]

	return ok && s.transport == transport
}

// Disconnect detaches transport from clientID and opens the grace window. It returns false
// when transport is no longer the client's current one, e.g. after a resume elsewhere.
func (that *SessionRegistry) Disconnect(clientID string, transport Transport) bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	s, ok := that.sessions[clientID]
	if !ok || s.transport != transport {
		return false
	}

	s.transport = nil
	s.generation++
	s.stopGrace()

	generation := s.generation
	s.grace = time.AfterFunc(that.grace, func() {
		that.expire(clientID, generation)
	})

	that.logger.Info("session disconnected, grace window started",
		"method", "Disconnect", "clientID", clientID, "grace", that.grace)

	return true
}

func (that *SessionRegistry) expire(clientID string, generation uint64) {
	that.mu.Lock()

	s, ok := that.sessions[clientID]
	if !ok || s.generation != generation || s.transport != nil {
		that.mu.Unlock()
		return
	}

	delete(that.sessions, clientID)
	hooks := append([]ExpireFunc(nil), that.onExpire...)
	that.mu.Unlock()

	that.logger.Info("session purged after grace window", "method", "expire", "clientID", clientID)

	for _, hook := range hooks {
		hook(clientID)
	}
}

// Remove forgets clientID immediately.
func (that *SessionRegistry) Remove(clientID string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if s, ok := that.sessions[clientID]; ok {
		s.stopGrace()
		delete(that.sessions, clientID)
	}
}

func (that *SessionRegistry) Exists(clientID string) bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	_, ok := that.sessions[clientID]

	return ok
}

func (that *SessionRegistry) Connected(clientID string) bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	s, ok := that.sessions[clientID]

	return ok && s.transport != nil
}

func (that *SessionRegistry) SetGame(clientID, gameID string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if s, ok := that.sessions[clientID]; ok {
		s.gameID = gameID
	}
}

// ClearGame drops gameID from every session that remembers it.
func (that *SessionRegistry) ClearGame(gameID string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	for _, s := range that.sessions {
		if s.gameID == gameID {
			s.gameID = ""
		}
	}
}

func (that *SessionRegistry) GameID(clientID string) string {
	that.mu.Lock()
	defer that.mu.Unlock()

	if s, ok := that.sessions[clientID]; ok {
		return s.gameID
	}

	return ""
}

// Send delivers message to the current transport of clientID.
func (that *SessionRegistry) Send(clientID string, message any) error {
	that.mu.Lock()
	s, ok := that.sessions[clientID]
	var transport Transport
	if ok {
		transport = s.transport
	}
	that.mu.Unlock()

	if transport == nil {
		return fmt.Errorf("%w: %s", ErrNotConnected, clientID)
	}

	if err := transport.Send(message); err != nil {
		return fmt.Errorf("failed to send to %s: %w", clientID, err)
	}

	return nil
}

func (that *session) stopGrace() {
	if that.grace != nil {
		that.grace.Stop()
		that.grace = nil
	}
}
