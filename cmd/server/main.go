// @title                       Account Service API
// @version                     1.0
// @description                 Account registration, login and user management with JWT bearer tokens.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
// @description                 Type "Bearer" followed by a space and the JWT.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/account-service/internal/api"
	"github.com/99minutos/account-service/internal/api/handler"
	"github.com/99minutos/account-service/internal/core/ports"
	"github.com/99minutos/account-service/internal/core/service"
	"github.com/99minutos/account-service/internal/infrastructure/broker/rabbitmq"
	"github.com/99minutos/account-service/internal/infrastructure/config"
	"github.com/99minutos/account-service/internal/infrastructure/db/mongo"
	"github.com/99minutos/account-service/internal/infrastructure/db/postgres"
	"github.com/99minutos/account-service/internal/infrastructure/db/redis"
	"github.com/99minutos/account-service/internal/infrastructure/queue"
	"github.com/99minutos/account-service/pkg/logger"
)

const (
	serviceName     = "account-service"
	shutdownTimeout = 10 * time.Second
)

// store bundles the persistence adapters selected by STORE_DRIVER.
type store struct {
	users ports.UserRepository
	audit ports.EventPublisher
	check handler.Check
	name  string
	close func(context.Context)
}

func main() {
	rootCtx := context.Background()

	cfg, err := config.Load(rootCtx)
	if err != nil {
		bootLog := logger.Init(logger.Options{Service: serviceName})
		bootLog.Fatal().Err(err).Msg("failed to load config")
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: serviceName,
		Env:     cfg.Env,
	})

	tokens, err := service.NewTokenService(service.TokenConfig{
		Secret:   cfg.JWT.Secret,
		Issuer:   cfg.JWT.Issuer,
		Audience: cfg.JWT.Audience,
	}, service.WithTokenLogger(log))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build token service")
	}

	st, err := openStore(rootCtx, cfg, logger.Component("store"))
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("failed to open store")
	}
	defer st.close(rootCtx)

	checks := map[string]handler.Check{st.name: st.check}

	var throttle ports.LoginThrottle
	if cfg.Redis.Addr != "" {
		rdb, err := redis.Connect(rootCtx, redis.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer func() { _ = rdb.Close() }()
		throttle = redis.NewLoginThrottle(rdb, cfg.Auth.MaxFailures, cfg.Auth.FailureWindow)
		checks["redis"] = redis.Pinger(rdb)
	} else {
		log.Warn().Msg("REDIS_ADDR not set, login throttling disabled")
	}

	publishers := []ports.EventPublisher{st.audit}
	if cfg.Events.RabbitURL != "" {
		pub, err := rabbitmq.NewPublisher(cfg.Events.RabbitURL, cfg.Events.Queue, logger.Component("rabbitmq"))
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to rabbitmq")
		}
		defer func() { _ = pub.Close() }()
		publishers = append(publishers, pub)
	}

	workerCtx, stopWorkers := context.WithCancel(rootCtx)
	defer stopWorkers()

	dispatcher := queue.NewDispatcher(cfg.Events.Workers, service.NewActivityService(logger.Component("activity"), publishers...), logger.Component("dispatcher"))
	dispatcher.Start(workerCtx)

	authService := service.NewAuthService(st.users, tokens, service.AuthOptions{
		TokenTTL:      cfg.JWT.TTL,
		RememberMeTTL: cfg.JWT.RememberTTL,
		BcryptCost:    cfg.Auth.BcryptCost,
		Throttle:      throttle,
		Events:        dispatcher,
		Logger:        log,
	})
	userService := service.NewUserService(st.users, dispatcher, log)

	e := api.NewRouter(api.Dependencies{
		Auth:   authService,
		Users:  userService,
		Tokens: tokens,
		Checks: checks,
		Logger: log,
	})

	addr := ":" + cfg.Port
	go func() {
		log.Info().Str("addr", addr).Str("env", cfg.Env).Str("store", cfg.StoreDriver).Msg("HTTP server listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	shutdownCtx, stop := signal.NotifyContext(rootCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	} else {
		log.Info().Msg("graceful shutdown completed")
	}
	stopWorkers()
}

func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*store, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		db, err := postgres.Connect(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
		return &store{
			users: postgres.NewUserRepository(db.Pool),
			audit: postgres.NewEventRepository(db.Pool),
			check: db.Ping,
			name:  "postgres",
			close: func(context.Context) { db.Close() },
		}, nil

	default:
		client, db, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, err
		}
		users := mongo.NewUserRepository(db)
		if err := users.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}
		return &store{
			users: users,
			audit: mongo.NewEventRepository(db),
			check: mongo.Pinger(db),
			name:  "mongodb",
			close: func(ctx context.Context) {
				if err := client.Disconnect(ctx); err != nil {
					log.Warn().Err(err).Msg("mongo disconnect")
				}
			},
		}, nil
	}
}
