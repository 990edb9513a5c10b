package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/rocketscienceinc/tafl-backend/internal/tafl"
)

type Config struct {
	LogLevel   string   `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	HTTPPort   string   `yaml:"http-port" env:"HTTP_PORT" env-default:"9090"`
	SocketPort string   `yaml:"socket-port" env:"SOCKET_PORT" env-default:"8080"`
	Redis      Redis    `yaml:"redis"`
	Postgres   Postgres `yaml:"postgres"`
	NATS       NATS     `yaml:"nats"`
	Limits     Limits   `yaml:"limits"`
	Game       Game     `yaml:"game"`
	Rules      Rules    `yaml:"rules"`
}

type Redis struct {
	Host       string        `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port       string        `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	ArchiveTTL time.Duration `yaml:"archive-ttl" env:"REDIS_ARCHIVE_TTL" env-default:"24h"`
}

// Postgres is optional. Profiles and ratings are disabled when DSN is empty.
type Postgres struct {
	DSN        string `yaml:"dsn" env:"POSTGRES_DSN"`
	Migrations string `yaml:"migrations" env:"POSTGRES_MIGRATIONS" env-default:"file://migrations"`
}

// NATS is optional. Lifecycle events are not published when URL is empty.
type NATS struct {
	URL           string `yaml:"url" env:"NATS_URL"`
	SubjectPrefix string `yaml:"subject-prefix" env:"NATS_SUBJECT_PREFIX" env-default:"tafl.games"`
}

type Limits struct {
	MaxConnectionsPerIP int `yaml:"max-connections-per-ip" env:"MAX_CONNECTIONS_PER_IP" env-default:"5"`
	MaxGamesPerID       int `yaml:"max-games-per-id" env:"MAX_GAMES_PER_ID" env-default:"5"`
}

type Game struct {
	TimerInterval      time.Duration `yaml:"timer-interval" env:"GAME_TIMER_INTERVAL" env-default:"100ms"`
	InactivityTimeout  time.Duration `yaml:"inactivity-timeout" env:"GAME_INACTIVITY_TIMEOUT" env-default:"30m"`
	ConcludedRetention time.Duration `yaml:"concluded-retention" env:"GAME_CONCLUDED_RETENTION" env-default:"2m"`
	SweepInterval      time.Duration `yaml:"sweep-interval" env:"GAME_SWEEP_INTERVAL" env-default:"5m"`
	ReconnectGrace     time.Duration `yaml:"reconnect-grace" env:"GAME_RECONNECT_GRACE" env-default:"30s"`
	DisconnectForfeit  string        `yaml:"disconnect-forfeit" env:"GAME_DISCONNECT_FORFEIT" env-default:"immediate"`
}

// Rules toggles the variant rules. Keys left out of the file keep tafl.DefaultRules.
type Rules struct {
	CantMoveOver          bool `yaml:"cant-move-over"`
	KingOnlyRestricted    bool `yaml:"king-only-restricted"`
	Sandwich              bool `yaml:"sandwich"`
	Shieldwall            bool `yaml:"shieldwall"`
	ArmedKing             bool `yaml:"armed-king"`
	TakeAgainstRestricted bool `yaml:"take-against-restricted"`
	KingCornerRetreat     bool `yaml:"king-corner-retreat"`
	KingSurrounded        bool `yaml:"king-surrounded"`
	EdgeFortEscape        bool `yaml:"edge-fort-escape"`
	DefendersSurrounded   bool `yaml:"defenders-surrounded"`
	EndOnRepetition       bool `yaml:"end-on-repetition"`
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config, err := Load(path)
	if err != nil {
		panic(err)
	}

	return config
}

func Load(path string) (*Config, error) {
	config := &Config{Rules: fromRules(tafl.DefaultRules())}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		return nil, fmt.Errorf("unable to load config file: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return config, nil
}

func (that *Config) validate() error {
	switch that.Game.DisconnectForfeit {
	case "immediate", "after-grace":
	default:
		return fmt.Errorf("disconnect-forfeit must be immediate or after-grace, got %q", that.Game.DisconnectForfeit)
	}

	if that.Limits.MaxConnectionsPerIP < 1 || that.Limits.MaxGamesPerID < 1 {
		return errors.New("limits must be positive")
	}

	if that.Game.TimerInterval <= 0 || that.Game.SweepInterval <= 0 {
		return errors.New("timer-interval and sweep-interval must be positive")
	}

	return nil
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}

func (that *Rules) ToRules() tafl.Rules {
	return tafl.Rules{
		CantMoveOver:          that.CantMoveOver,
		KingOnlyRestricted:    that.KingOnlyRestricted,
		Sandwich:              that.Sandwich,
		Shieldwall:            that.Shieldwall,
		ArmedKing:             that.ArmedKing,
		TakeAgainstRestricted: that.TakeAgainstRestricted,
		KingCornerRetreat:     that.KingCornerRetreat,
		KingSurrounded:        that.KingSurrounded,
		EdgeFortEscape:        that.EdgeFortEscape,
		DefendersSurrounded:   that.DefendersSurrounded,
		EndOnRepetition:       that.EndOnRepetition,
	}
}

func fromRules(rules tafl.Rules) Rules {
	return Rules{
		CantMoveOver:          rules.CantMoveOver,
		KingOnlyRestricted:    rules.KingOnlyRestricted,
		Sandwich:              rules.Sandwich,
		Shieldwall:            rules.Shieldwall,
		ArmedKing:             rules.ArmedKing,
		TakeAgainstRestricted: rules.TakeAgainstRestricted,
		KingCornerRetreat:     rules.KingCornerRetreat,
		KingSurrounded:        rules.KingSurrounded,
		EdgeFortEscape:        rules.EdgeFortEscape,
		DefendersSurrounded:   rules.DefendersSurrounded,
		EndOnRepetition:       rules.EndOnRepetition,
	}
}
