package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/rocketscienceinc/tafl-backend/internal/apperror"
	"github.com/rocketscienceinc/tafl-backend/internal/entity"
	"github.com/rocketscienceinc/tafl-backend/internal/pkg"
	"github.com/rocketscienceinc/tafl-backend/internal/tafl"
	"github.com/rocketscienceinc/tafl-backend/internal/turntimer"
)

const (
	ForfeitImmediate  = "immediate"
	ForfeitAfterGrace = "after-grace"

	MaxLengthMinutes = 180

	DefaultInactivityTimeout  = 30 * time.Minute
	DefaultConcludedRetention = 2 * time.Minute

	backgroundTimeout = 10 * time.Second
)

type notifier interface {
	Send(clientID string, message any) error
}

type guard interface {
	TryAddGame(identity string) bool
	RemoveGame(identity string)
}

type profileLookup interface {
	Lookup(ctx context.Context, playerID string) (*entity.Profile, error)
}

type ratingRecorder interface {
	RecordResult(ctx context.Context, record entity.MatchRecord) error
}

type gameArchive interface {
	Save(ctx context.Context, game *entity.Game) error
}

type eventPublisher interface {
	Publish(event string, game *entity.Game) error
}

type Settings struct {
	Rules              tafl.Rules
	TimerInterval      time.Duration
	InactivityTimeout  time.Duration
	ConcludedRetention time.Duration
	DisconnectForfeit  string
}

func DefaultSettings() Settings {
	return Settings{
		Rules:              tafl.DefaultRules(),
		TimerInterval:      turntimer.DefaultInterval,
		InactivityTimeout:  DefaultInactivityTimeout,
		ConcludedRetention: DefaultConcludedRetention,
		DisconnectForfeit:  ForfeitImmediate,
	}
}

type Option func(*GameManager)

func WithSettings(settings Settings) Option {
	return func(m *GameManager) {
		m.settings = settings
	}
}

func WithProfiles(profiles profileLookup) Option {
	return func(m *GameManager) {
		m.profiles = profiles
	}
}

func WithRatings(ratings ratingRecorder) Option {
	return func(m *GameManager) {
		m.ratings = ratings
	}
}

func WithArchive(archive gameArchive) Option {
	return func(m *GameManager) {
		m.archive = archive
	}
}

func WithPublisher(publisher eventPublisher) Option {
	return func(m *GameManager) {
		m.publisher = publisher
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *GameManager) {
		m.now = now
	}
}

// OnGameDeleted registers a hook run after a game left memory.
func OnGameDeleted(fn func(gameID string)) Option {
	return func(m *GameManager) {
		m.onDeleted = append(m.onDeleted, fn)
	}
}

// liveGame is a game together with its clock. mu serializes every mutation of the game.
type liveGame struct {
	mu    sync.Mutex
	game  *entity.Game
	timer *turntimer.Timer
}

// GameManager owns all live games. Lock order is liveGame.mu before GameManager.mu.
type GameManager struct {
	logger   *slog.Logger
	notifier notifier
	guard    guard
	engine   *tafl.Engine
	settings Settings
	now      func() time.Time

	profiles  profileLookup
	ratings   ratingRecorder
	archive   gameArchive
	publisher eventPublisher
	onDeleted []func(gameID string)

	mu      sync.RWMutex
	games   map[string]*liveGame
	players map[string]string

	background sync.WaitGroup
}

func NewGameManager(logger *slog.Logger, notifier notifier, guard guard, opts ...Option) *GameManager {
	manager := &GameManager{
		logger:   logger,
		notifier: notifier,
		guard:    guard,
		settings: DefaultSettings(),
		now:      time.Now,
		games:    make(map[string]*liveGame),
		players:  make(map[string]string),
	}

	for _, opt := range opts {
		opt(manager)
	}

	manager.engine = tafl.NewEngine(manager.settings.Rules)

	return manager
}

// CreateGame opens a pending game with attacker to move first. The creator is not seated.
func (that *GameManager) CreateGame(ctx context.Context, creatorID string, board entity.Board, lengthMinutes float64) (*entity.Game, error) {
	log := that.logger.With("method", "CreateGame", "clientID", creatorID)

	if lengthMinutes <= 0 || lengthMinutes > MaxLengthMinutes || math.IsNaN(lengthMinutes) {
		return nil, fmt.Errorf("%w: %v minutes", apperror.ErrInvalidLength, lengthMinutes)
	}

	if err := board.Normalize(); err != nil {
		return nil, err
	}

	if !that.guard.TryAddGame(creatorID) {
		log.Warn("game limit reached")
		return nil, apperror.ErrGameLimitReached
	}

	timeLimit := time.Duration(lengthMinutes * float64(time.Minute))
	gameID := pkg.GenerateGameID()
	game := entity.NewGame(gameID, creatorID, board, timeLimit, that.now())

	live := &liveGame{game: game}
	live.timer = turntimer.New(timeLimit, entity.SideAttacker, that.timeoutHandler(gameID),
		turntimer.WithInterval(that.settings.TimerInterval))

	that.mu.Lock()
	that.games[gameID] = live
	that.mu.Unlock()

	public := game.Public()
	that.send(creatorID, entity.CreateEvent{Method: entity.MethodCreate, Game: public})
	that.publish(entity.EventGameCreated, public)

	log.Info("game created", "gameID", gameID, "size", board.Size(), "timeLimit", timeLimit)

	return public, nil
}

// JoinGame seats clientID on requested, or on the first free side when requested is empty.
func (that *GameManager) JoinGame(ctx context.Context, gameID, clientID string, requested entity.Side) (*entity.Game, error) {
	log := that.logger.With("method", "JoinGame", "gameID", gameID, "clientID", clientID)

	live, err := that.liveGame(gameID)
	if err != nil {
		return nil, err
	}

	profile := that.lookupProfile(ctx, clientID)

	live.mu.Lock()
	defer live.mu.Unlock()

	claimed, err := that.claimPlayer(clientID, gameID)
	if err != nil {
		log.Info("join rejected", "error", err)
		return nil, err
	}

	participant, err := live.game.AddParticipant(clientID, requested)
	if err != nil {
		if claimed {
			that.releasePlayer(clientID, gameID)
		}

		log.Info("join rejected", "error", err)

		return nil, fmt.Errorf("failed to join game: %w", err)
	}

	newClient := clientID
	var rating float64

	if profile != nil {
		participant.Username = profile.Username
		participant.Rating = &profile.Rating
		rating = profile.Rating.Rating

		if profile.Username != "" {
			newClient = profile.Username
		}
	}

	live.game.Touch(that.now())
	public := live.game.Public()

	that.broadcast(live.game, entity.JoinEvent{
		Method:          entity.MethodJoin,
		NewClient:       newClient,
		NewClientRating: rating,
		Game:            public,
	})

	log.Info("client joined", "side", participant.Side)

	return public, nil
}

// SetReady flags clientID as ready and starts the game once both participants are.
// It reports whether the game started with this call.
func (that *GameManager) SetReady(ctx context.Context, gameID, clientID string) (bool, error) {
	log := that.logger.With("method", "SetReady", "gameID", gameID, "clientID", clientID)

	live, err := that.liveGame(gameID)
	if err != nil {
		return false, err
	}

	live.mu.Lock()
	defer live.mu.Unlock()

	game := live.game

	participant := game.Participant(clientID)
	if participant == nil {
		return false, apperror.ErrNotParticipant
	}

	if game.IsActive() || game.IsConcluded() {
		return false, fmt.Errorf("%w: status %s", apperror.ErrGameAlreadyStarted, game.Status)
	}

	participant.Ready = true
	game.Touch(that.now())

	that.broadcast(game, entity.ReadyEvent{Method: entity.MethodReady, ClientID: clientID, GameID: gameID})

	if !game.AllReady() {
		return false, nil
	}

	game.Status = entity.StatusActive
	live.timer.Start()

	public := game.Public()

	state := entity.CurrentGameStateEvent{Method: entity.MethodCurrentGameState, GameState: public}
	if opponent := game.Opponent(clientID); opponent != nil {
		state.OpponentUsername = opponent.Username
		if opponent.Rating != nil {
			state.OpponentRating = opponent.Rating.Rating
		}
	}

	that.send(clientID, state)

	that.broadcast(game, entity.StartEvent{
		Method:       entity.MethodStart,
		GameID:       gameID,
		Attacker:     game.ParticipantBySide(entity.SideAttacker).ID,
		Defender:     game.ParticipantBySide(entity.SideDefender).ID,
		StartingTurn: game.Turn,
		Timers:       live.timer.Times(),
	})
	that.publish(entity.EventGameStarted, public)

	log.Info("game started")

	return true, nil
}

// ApplyMove validates and plays one move of clientID. A rejected move leaves the game untouched.
func (that *GameManager) ApplyMove(ctx context.Context, gameID, clientID string, from, to entity.Coordinate) error {
	log := that.logger.With("method", "ApplyMove", "gameID", gameID, "clientID", clientID)

	live, err := that.liveGame(gameID)
	if err != nil {
		return err
	}

	live.mu.Lock()
	defer live.mu.Unlock()

	game := live.game

	if err = that.validateMove(live, clientID, from, to); err != nil {
		log.Info("move rejected", "from", from, "to", to, "error", err)
		return err
	}

	game.ArchiveBoard()
	tafl.MovePiece(game.Board, from, to)
	taken := that.engine.ApplyCaptures(game.Board, to)
	outcome := that.engine.EvaluateWin(game.Board, game.History)
	game.Touch(that.now())

	if outcome.Occurred {
		live.timer.Stop()
	} else {
		game.FlipTurn()
		live.timer.SwitchPlayer()
	}

	that.broadcast(game, entity.MoveEvent{
		Method:   entity.MethodMove,
		GameID:   gameID,
		MoveFrom: from,
		MoveTo:   to,
		Timers:   live.timer.Times(),
	})

	if len(taken) > 0 {
		that.broadcast(game, entity.TakenEvent{Method: entity.MethodTaken, GameID: gameID, Coordinates: taken})
	}

	log.Info("move applied", "from", from, "to", to, "taken", len(taken))

	if outcome.Occurred {
		that.conclude(live, outcome.Winner, outcome.Reason)
	}

	return nil
}

// validateMove must be called with live.mu held.
func (that *GameManager) validateMove(live *liveGame, clientID string, from, to entity.Coordinate) error {
	game := live.game

	participant := game.Participant(clientID)
	if participant == nil {
		return apperror.ErrNotParticipant
	}

	if !game.IsActive() {
		return fmt.Errorf("%w: status %s", apperror.ErrGameNotActive, game.Status)
	}

	// The clock can run out before the timeout handler gets the game lock.
	if live.timer.Expired() {
		return fmt.Errorf("%w: clock ran out", apperror.ErrGameNotActive)
	}

	if participant.Side != game.Turn {
		return apperror.ErrNotYourTurn
	}

	if !game.Board.InBounds(from) || !game.Board.InBounds(to) {
		return apperror.ErrInvalidCoord
	}

	if game.Board.At(from).Side() != participant.Side {
		return apperror.ErrNotYourPiece
	}

	if !that.engine.IsMoveLegal(game.Board, from, to) {
		return apperror.ErrIllegalMove
	}

	return nil
}

// ResolveWinByForfeit concludes an active game for winner without a move.
func (that *GameManager) ResolveWinByForfeit(gameID string, winner entity.Side, reason string) error {
	live, err := that.liveGame(gameID)
	if err != nil {
		return err
	}

	live.mu.Lock()
	defer live.mu.Unlock()

	if !live.game.IsActive() {
		return fmt.Errorf("%w: status %s", apperror.ErrGameNotActive, live.game.Status)
	}

	that.conclude(live, winner, reason)

	return nil
}

// ClientDisconnected is called when the transport of clientID is lost.
func (that *GameManager) ClientDisconnected(clientID string) {
	if that.settings.DisconnectForfeit == ForfeitAfterGrace {
		return
	}

	that.forfeitGameOf(clientID)
}

// ClientExpired is called when the reconnection grace window of clientID ran out.
func (that *GameManager) ClientExpired(clientID string) {
	if that.settings.DisconnectForfeit != ForfeitAfterGrace {
		return
	}

	that.forfeitGameOf(clientID)
}

// ClientRemoved is called when clientID was dropped without a grace window.
func (that *GameManager) ClientRemoved(clientID string) {
	that.forfeitGameOf(clientID)
}

func (that *GameManager) forfeitGameOf(clientID string) {
	log := that.logger.With("method", "forfeitGameOf", "clientID", clientID)

	that.mu.RLock()
	gameID, ok := that.players[clientID]
	live := that.games[gameID]
	that.mu.RUnlock()

	if !ok || live == nil {
		return
	}

	live.mu.Lock()
	defer live.mu.Unlock()

	participant := live.game.Participant(clientID)
	if participant == nil || !live.game.IsActive() {
		return
	}

	log.Info("participant left an active game", "gameID", gameID)

	that.conclude(live, participant.Side.Opponent(), entity.ReasonOpponentDisconnected)
}

func (that *GameManager) timeoutHandler(gameID string) turntimer.TimeoutFunc {
	return func(reason string, winner entity.Side) {
		live, err := that.liveGame(gameID)
		if err != nil {
			return
		}

		live.mu.Lock()
		defer live.mu.Unlock()

		if !live.game.IsActive() {
			return
		}

		that.logger.Info("turn timer expired", "method", "timeoutHandler", "gameID", gameID, "reason", reason)

		that.conclude(live, winner, reason)
	}
}

// conclude must be called with live.mu held.
func (that *GameManager) conclude(live *liveGame, winner entity.Side, reason string) {
	game := live.game

	live.timer.Stop()
	game.Conclude(winner, reason, that.now())

	that.mu.Lock()
	for _, id := range game.ParticipantIDs() {
		if that.players[id] == game.ID {
			delete(that.players, id)
		}
	}
	that.mu.Unlock()

	that.broadcast(game, entity.WinEvent{
		Method:    entity.MethodWin,
		GameID:    game.ID,
		WinReason: reason,
		Winner:    winner,
	})

	that.logger.Info("game concluded", "method", "conclude", "gameID", game.ID, "winner", winner, "reason", reason)

	that.afterConclusion(game.Clone())
}

// afterConclusion archives the game, updates ratings and publishes the result in the background.
func (that *GameManager) afterConclusion(game *entity.Game) {
	log := that.logger.With("method", "afterConclusion", "gameID", game.ID)

	that.background.Add(1)

	go func() {
		defer that.background.Done()

		ctx, cancel := context.WithTimeout(context.Background(), backgroundTimeout)
		defer cancel()

		if that.archive != nil {
			if err := that.archive.Save(ctx, game); err != nil {
				log.Error("failed to archive game", "error", err)
			}
		}

		if that.ratings != nil && game.Winner.IsPlaying() {
			winner := game.ParticipantBySide(game.Winner)
			loser := game.ParticipantBySide(game.Winner.Opponent())

			if winner != nil && loser != nil {
				err := that.ratings.RecordResult(ctx, entity.MatchRecord{
					GameID:      game.ID,
					WinnerID:    winner.ID,
					LoserID:     loser.ID,
					Reason:      game.WinReason,
					FinalBoard:  game.Board,
					ConcludedAt: game.ConcludedAt,
				})
				if err != nil {
					log.Error("failed to update ratings", "error", err)
				}
			}
		}

		that.publish(entity.EventGameConcluded, game.Public())
	}()
}

// Wait blocks until background work of concluded games is done.
func (that *GameManager) Wait() {
	that.background.Wait()
}

// SweepInactiveGames deletes idle games and concluded games past their retention.
// It returns the number of deleted games.
func (that *GameManager) SweepInactiveGames(now time.Time) int {
	that.mu.RLock()
	candidates := make([]*liveGame, 0, len(that.games))
	for _, live := range that.games {
		candidates = append(candidates, live)
	}
	that.mu.RUnlock()

	deleted := 0

	for _, live := range candidates {
		live.mu.Lock()

		game := live.game
		expired := now.Sub(game.LastActivity) > that.settings.InactivityTimeout ||
			(game.IsConcluded() && now.Sub(game.ConcludedAt) > that.settings.ConcludedRetention)

		if expired {
			// An abandoned game in play ends as a draw so its players hear about it.
			if game.IsActive() {
				that.conclude(live, entity.SideNone, entity.ReasonInactivity)
			}

			live.timer.Stop()
			that.deleteGame(game)
			deleted++
		}

		live.mu.Unlock()
	}

	if deleted > 0 {
		that.logger.Info("inactive games swept", "method", "SweepInactiveGames", "deleted", deleted)
	}

	return deleted
}

// RunSweeper sweeps every interval until ctx is done.
func (that *GameManager) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			that.SweepInactiveGames(now)
		}
	}
}

func (that *GameManager) deleteGame(game *entity.Game) {
	that.mu.Lock()
	delete(that.games, game.ID)
	for _, id := range game.ParticipantIDs() {
		if that.players[id] == game.ID {
			delete(that.players, id)
		}
	}
	that.mu.Unlock()

	that.guard.RemoveGame(game.CreatorID)

	for _, hook := range that.onDeleted {
		hook(game.ID)
	}
}

// GetGame returns a snapshot of a live game.
func (that *GameManager) GetGame(gameID string) (*entity.Game, error) {
	live, err := that.liveGame(gameID)
	if err != nil {
		return nil, err
	}

	live.mu.Lock()
	defer live.mu.Unlock()

	return live.game.Public(), nil
}

// Timers returns the clock of a live game.
func (that *GameManager) Timers(gameID string) (entity.Timers, error) {
	live, err := that.liveGame(gameID)
	if err != nil {
		return entity.Timers{}, err
	}

	return live.timer.Times(), nil
}

func (that *GameManager) liveGame(gameID string) (*liveGame, error) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	live, ok := that.games[gameID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperror.ErrGameNotFound, gameID)
	}

	return live, nil
}

// claimPlayer binds clientID to gameID unless it already plays another unfinished game.
// It reports whether the binding is new.
func (that *GameManager) claimPlayer(clientID, gameID string) (bool, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	current, ok := that.players[clientID]
	if ok && current != gameID {
		return false, fmt.Errorf("%w: %s", apperror.ErrAlreadyInGame, current)
	}

	that.players[clientID] = gameID

	return !ok, nil
}

func (that *GameManager) releasePlayer(clientID, gameID string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.players[clientID] == gameID {
		delete(that.players, clientID)
	}
}

func (that *GameManager) lookupProfile(ctx context.Context, clientID string) *entity.Profile {
	if that.profiles == nil {
		return nil
	}

	profile, err := that.profiles.Lookup(ctx, clientID)
	if err != nil {
		that.logger.Debug("no profile for client", "method", "lookupProfile", "clientID", clientID, "error", err)
		return nil
	}

	return profile
}

func (that *GameManager) broadcast(game *entity.Game, message any) {
	for _, id := range game.ParticipantIDs() {
		that.send(id, message)
	}
}

func (that *GameManager) send(clientID string, message any) {
	if err := that.notifier.Send(clientID, message); err != nil {
		that.logger.Debug("notification not delivered", "method", "send", "clientID", clientID, "error", err)
	}
}

func (that *GameManager) publish(event string, game *entity.Game) {
	if that.publisher == nil {
		return
	}

	if err := that.publisher.Publish(event, game); err != nil {
		that.logger.Error("failed to publish game event", "method", "publish", "event", event, "gameID", game.ID, "error", err)
	}
}
