package service

import (
	"log/slog"
	"sync"
)

const (
	DefaultMaxConnectionsPerIP = 5
	DefaultMaxGamesPerID       = 5
)

// ResourceGuard is the admission control for new connections and new games.
// Counters never go below zero.
type ResourceGuard struct {
	logger *slog.Logger

	maxConnectionsPerIP int
	maxGamesPerID       int

	mu          sync.Mutex
	connections map[string]int
	games       map[string]int
}

func NewResourceGuard(logger *slog.Logger, maxConnectionsPerIP, maxGamesPerID int) *ResourceGuard {
	if maxConnectionsPerIP <= 0 {
		maxConnectionsPerIP = DefaultMaxConnectionsPerIP
	}

	if maxGamesPerID <= 0 {
		maxGamesPerID = DefaultMaxGamesPerID
	}

	return &ResourceGuard{
		logger:              logger,
		maxConnectionsPerIP: maxConnectionsPerIP,
		maxGamesPerID:       maxGamesPerID,
		connections:         make(map[string]int),
		games:               make(map[string]int),
	}
}

func (that *ResourceGuard) CanCreateConnection(origin string) bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.connections[origin] < that.maxConnectionsPerIP
}

func (that *ResourceGuard) AddConnection(origin string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.connections[origin]++
}

// TryAddConnection checks and counts a connection in one step.
func (that *ResourceGuard) TryAddConnection(origin string) bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.connections[origin] >= that.maxConnectionsPerIP {
		that.logger.Warn("connection limit reached", "method", "TryAddConnection", "origin", origin)
		return false
	}

	that.connections[origin]++

	return true
}

func (that *ResourceGuard) RemoveConnection(origin string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	decrement(that.connections, origin)
}

func (that *ResourceGuard) Connections(origin string) int {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.connections[origin]
}

func (that *ResourceGuard) CanCreateGame(identity string) bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.games[identity] < that.maxGamesPerID
}

func (that *ResourceGuard) AddGame(identity string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.games[identity]++
}

// TryAddGame checks and counts a game in one step.
func (that *ResourceGuard) TryAddGame(identity string) bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.games[identity] >= that.maxGamesPerID {
		that.logger.Warn("game limit reached", "method", "TryAddGame", "clientID", identity)
		return false
	}

	that.games[identity]++

	return true
}

func (that *ResourceGuard) RemoveGame(identity string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	decrement(that.games, identity)
}

func (that *ResourceGuard) Games(identity string) int {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.games[identity]
}

func decrement(counters map[string]int, key string) {
	if counters[key] <= 1 {
		delete(counters, key)
		return
	}

	counters[key]--
}
