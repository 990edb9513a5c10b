package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rocketscienceinc/tafl-backend/internal/config"
	"github.com/rocketscienceinc/tafl-backend/internal/rating"
	"github.com/rocketscienceinc/tafl-backend/internal/repository"
	"github.com/rocketscienceinc/tafl-backend/internal/repository/storage"
	"github.com/rocketscienceinc/tafl-backend/internal/service"
	"github.com/rocketscienceinc/tafl-backend/internal/usecase"
	natsbus "github.com/rocketscienceinc/tafl-backend/transport/nats"
	"github.com/rocketscienceinc/tafl-backend/transport/rest"
	"github.com/rocketscienceinc/tafl-backend/transport/websocket"
)

var ErrAddrNotFound = errors.New("redis address string is empty")

// RunApp - runs the application.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("Received signal, shutting down", "signal", sig)
		cancel()
	}()

	redisAddrString := conf.Redis.GetRedisAddr()
	if redisAddrString == "" {
		return ErrAddrNotFound
	}

	redisStorage, err := storage.NewRedis(ctx, redisAddrString)
	if err != nil {
		return fmt.Errorf("could not connect to redis storage: %w", err)
	}

	defer func() {
		if err = redisStorage.Close(); err != nil {
			log.Error("could not close redis storage", "error", err)
		}
	}()

	gameRepo := repository.NewGameRepository(redisStorage, conf.Redis.ArchiveTTL)

	settings := usecase.Settings{
		Rules:              conf.Rules.ToRules(),
		TimerInterval:      conf.Game.TimerInterval,
		InactivityTimeout:  conf.Game.InactivityTimeout,
		ConcludedRetention: conf.Game.ConcludedRetention,
		DisconnectForfeit:  conf.Game.DisconnectForfeit,
	}

	sessions := service.NewSessionRegistry(logger, conf.Game.ReconnectGrace)
	guard := service.NewResourceGuard(logger, conf.Limits.MaxConnectionsPerIP, conf.Limits.MaxGamesPerID)

	opts := []usecase.Option{
		usecase.WithSettings(settings),
		usecase.WithArchive(gameRepo),
		usecase.OnGameDeleted(sessions.ClearGame),
	}

	var ratingService *service.RatingService
	if conf.Postgres.DSN != "" {
		db, dbErr := storage.NewPostgres(ctx, conf.Postgres.DSN)
		if dbErr != nil {
			return fmt.Errorf("could not connect to postgres: %w", dbErr)
		}

		defer func() {
			if closeErr := db.Close(); closeErr != nil {
				log.Error("could not close postgres", "error", closeErr)
			}
		}()

		if dbErr = storage.Migrate(db, conf.Postgres.Migrations); dbErr != nil {
			return fmt.Errorf("could not migrate postgres: %w", dbErr)
		}

		ratingService = service.NewRatingService(
			logger,
			repository.NewProfileRepository(db),
			repository.NewMatchRepository(db),
			rating.NewCalculator(rating.DefaultTau),
		)
		opts = append(opts, usecase.WithProfiles(ratingService), usecase.WithRatings(ratingService))
	} else {
		log.Info("Postgres is not configured, profiles and ratings are disabled")
	}

	if conf.NATS.URL != "" {
		nc, natsErr := natsbus.Connect(conf.NATS.URL)
		if natsErr != nil {
			return fmt.Errorf("could not connect to nats: %w", natsErr)
		}

		defer nc.Close()

		opts = append(opts, usecase.WithPublisher(natsbus.NewPublisher(logger, nc, conf.NATS.SubjectPrefix)))
	}

	games := usecase.NewGameManager(logger, sessions, guard, opts...)
	sessions.OnExpire(games.ClientExpired)

	go games.RunSweeper(ctx, conf.Game.SweepInterval)

	restHandlers := rest.NewHandlers(logger, games, gameRepo, nil)
	if ratingService != nil {
		restHandlers = rest.NewHandlers(logger, games, gameRepo, ratingService)
	}

	// run HTTP server
	httpErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "port", conf.HTTPPort)
		if httpErr := rest.Start(ctx, logger, conf.HTTPPort, restHandlers); httpErr != nil {
			log.Error("HTTP server error", "error", httpErr)
			httpErrCh <- httpErr
		}
	}()

	// run Websocket server
	wsErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting WebSocket server", "port", conf.SocketPort)
		wsServer := websocket.New(logger, games, sessions, guard)
		if wsErr := wsServer.Start(ctx, conf.SocketPort); wsErr != nil {
			log.Error("WebSocket server error", "error", wsErr)
			wsErrCh <- wsErr
		}
	}()

	select {
	case err = <-httpErrCh:
		err = fmt.Errorf("HTTP server error: %w", err)
	case err = <-wsErrCh:
		err = fmt.Errorf("WebSocket server error: %w", err)
	case <-ctx.Done():
		log.Info("Application context canceled, shutting down")
	}

	cancel()
	games.Wait()

	return err
}
