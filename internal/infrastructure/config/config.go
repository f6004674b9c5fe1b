package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
)

// Config is built once at startup and passed by value to constructors; it is
// never mutated afterwards.
type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	StoreDriver string `env:"STORE_DRIVER, default=mongo"`

	JWT      JWTConfig
	Auth     AuthConfig
	Mongo    MongoConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Events   EventsConfig
}

type JWTConfig struct {
	Secret      string        `env:"JWT_SECRET"`
	Issuer      string        `env:"JWT_ISSUER,       default=account-service"`
	Audience    string        `env:"JWT_AUDIENCE,     default=account-service"`
	TTL         time.Duration `env:"JWT_TTL,          default=96h"`
	RememberTTL time.Duration `env:"JWT_REMEMBER_TTL, default=720h"`
}

type AuthConfig struct {
	BcryptCost    int           `env:"BCRYPT_COST,          default=10"`
	MaxFailures   int           `env:"LOGIN_MAX_FAILURES,   default=5"`
	FailureWindow time.Duration `env:"LOGIN_FAILURE_WINDOW, default=15m"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=accounts"`
}

type PostgresConfig struct {
	DSN string `env:"POSTGRES_DSN"`
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR"`
	DB   int    `env:"REDIS_DB, default=0"`
}

type EventsConfig struct {
	RabbitURL string `env:"RABBITMQ_URL"`
	Queue     string `env:"EVENTS_QUEUE,  default=account.events"`
	Workers   int    `env:"EVENT_WORKERS, default=4"`
}

// Load reads an optional .env file and then the process environment.
func Load(ctx context.Context) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: read .env: %w", err)
	}
	return FromLookuper(ctx, envconfig.OsLookuper())
}

// FromLookuper builds and validates a Config from an arbitrary source.
func FromLookuper(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("config: failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the service must not start with.
func (c Config) Validate() error {
	if c.JWT.Secret == "" {
		return errors.New("config: JWT_SECRET must be set")
	}
	if c.JWT.TTL <= 0 || c.JWT.RememberTTL <= 0 {
		return errors.New("config: JWT_TTL and JWT_REMEMBER_TTL must be positive")
	}
	switch c.StoreDriver {
	case DriverMongo:
	case DriverPostgres:
		if c.Postgres.DSN == "" {
			return errors.New("config: POSTGRES_DSN must be set when STORE_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("config: unknown STORE_DRIVER %q", c.StoreDriver)
	}
	return nil
}

// IsDevelopment reports whether human-friendly logging should be used.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}
