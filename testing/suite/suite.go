// Package suite starts throwaway redis and postgres containers for integration tests.
package suite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/tafl-backend/internal/repository/storage"
)

const (
	expireDuration  = 120
	maxWaitDuration = 120 * time.Second
)

const (
	redisPort  = "6379/tcp"
	redisImage = "redis"
	redisTag   = "alpine"

	postgresPort     = "5432/tcp"
	postgresImage    = "postgres"
	postgresTag      = "16-alpine"
	postgresUser     = "tafl"
	postgresPassword = "tafl"
	postgresDatabase = "tafl"
)

type Suite struct {
	*testing.T
	Logger *slog.Logger

	Storage *redis.Client
	DB      *sql.DB
}

// New starts a redis container and returns a suite with a flushed client.
func New(t *testing.T) (context.Context, *Suite) {
	t.Helper()

	ctx, pool := setup(t)

	resource := run(t, pool, &dockertest.RunOptions{
		Repository: redisImage,
		Tag:        redisTag,
		Env:        []string{},
	})
	redisHost := resource.GetHostPort(redisPort)

	var redisClient *redis.Client
	retry(t, pool, resource, func() error {
		redisClient = redis.NewClient(&redis.Options{
			Addr: redisHost,
		})
		return redisClient.Ping(ctx).Err()
	})

	if err := redisClient.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("could not flush database: %v", err)
	}

	return ctx, &Suite{
		T:       t,
		Logger:  newLogger(),
		Storage: redisClient,
	}
}

// NewPostgres starts a postgres container and applies the migrations found at
// source, e.g. "file://../../migrations" relative to the test package.
func NewPostgres(t *testing.T, source string) (context.Context, *Suite) {
	t.Helper()

	ctx, pool := setup(t)

	resource := run(t, pool, &dockertest.RunOptions{
		Repository: postgresImage,
		Tag:        postgresTag,
		Env: []string{
			"POSTGRES_USER=" + postgresUser,
			"POSTGRES_PASSWORD=" + postgresPassword,
			"POSTGRES_DB=" + postgresDatabase,
			"listen_addresses='*'",
		},
	})
	dsn := fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=disable",
		postgresUser, postgresPassword, resource.GetHostPort(postgresPort), postgresDatabase)

	var db *sql.DB
	retry(t, pool, resource, func() error {
		var err error
		db, err = storage.NewPostgres(ctx, dsn)
		return err
	})

	t.Cleanup(func() {
		_ = db.Close()
	})

	if err := storage.Migrate(db, source); err != nil {
		t.Fatalf("could not migrate database: %v", err)
	}

	return ctx, &Suite{
		T:      t,
		Logger: newLogger(),
		DB:     db,
	}
}

func setup(t *testing.T) (context.Context, *dockertest.Pool) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), maxWaitDuration)
	t.Cleanup(func() {
		cancel()
	})

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("could not connect to docker: %v", err)
	}

	// exponential backoff-retry, because the application in the container might not be ready to accept connections yet
	pool.MaxWait = maxWaitDuration

	return ctx, pool
}

// run pulls an image, creates a container based on it and runs it.
func run(t *testing.T, pool *dockertest.Pool, opts *dockertest.RunOptions) *dockertest.Resource {
	t.Helper()

	resource, err := pool.RunWithOptions(opts, func(config *docker.HostConfig) {
		// set AutoRemove to true so that stopped container goes away by itself
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("could not start resource: %v", err)
	}

	// never returns error
	_ = resource.Expire(expireDuration) // Tell docker to hard kill the container in 120 seconds

	t.Cleanup(func() {
		if err = pool.Purge(resource); err != nil {
			t.Errorf("could not purge resource: %v", err)
		}
	})

	return resource
}

func retry(t *testing.T, pool *dockertest.Pool, resource *dockertest.Resource, connect func() error) {
	t.Helper()

	if err := pool.Retry(connect); err != nil {
		t.Fatalf("could not connect to %s: %v", resource.Container.Config.Image, err)
	}
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
}
