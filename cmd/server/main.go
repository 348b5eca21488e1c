// @title        Identity Service API
// @version      1.0
// @description  Account registration, login sessions and user administration.
// @BasePath     /
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/userhub/identity-service/internal/api"
	"github.com/userhub/identity-service/internal/api/session"
	"github.com/userhub/identity-service/internal/core/ports"
	"github.com/userhub/identity-service/internal/core/service"
	"github.com/userhub/identity-service/internal/infrastructure/db/mongo"
	"github.com/userhub/identity-service/internal/infrastructure/db/redis"
	"github.com/userhub/identity-service/internal/infrastructure/db/sqldb"
	"github.com/userhub/identity-service/internal/infrastructure/http/handlers"
	"github.com/userhub/identity-service/internal/infrastructure/tokenclient"
	"github.com/userhub/identity-service/internal/pkg/config"
	"github.com/userhub/identity-service/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// A missing .env is fine; the real environment and defaults apply.
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.New(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: "identity",
	})

	if err := run(cfg, log); err != nil {
		log.Error().Err(err).Msg("identity service stopped")
		os.Exit(1)
	}
}

// identityStore is whichever backend STORE_DRIVER selected.
type identityStore struct {
	users ports.UserRepository
	roles ports.RoleRepository
	ping  handlers.Pinger
	close func(context.Context) error
}

func openStore(ctx context.Context, cfg config.StoreConfig) (*identityStore, error) {
	switch cfg.Driver {
	case config.DriverMongo:
		s, err := mongo.Open(ctx, mongo.Config{URI: cfg.MongoURI, Database: cfg.MongoDB})
		if err != nil {
			return nil, err
		}
		return &identityStore{users: s.Users, roles: s.Roles, ping: s, close: s.Close}, nil
	case config.DriverPostgres, config.DriverSQLite:
		s, err := sqldb.Open(ctx, sqldb.Config{Driver: cfg.Driver, DSN: cfg.DatabaseURL})
		if err != nil {
			return nil, err
		}
		return &identityStore{
			users: s.Users,
			roles: s.Roles,
			ping:  s,
			close: func(context.Context) error { return s.Close() },
		}, nil
	}
	return nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
}

// sessionStore is the session.Store plus what main needs to probe and close it.
type sessionStore interface {
	session.Store
	handlers.Pinger
}

func openSessions(ctx context.Context, cfg config.SessionConfig) (sessionStore, func() error, error) {
	if cfg.Backend == config.SessionMemory {
		return session.NewMemoryStore(), func() error { return nil }, nil
	}
	client, err := redis.Connect(ctx, redis.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		return nil, nil, err
	}
	return redis.NewSessionStore(client), client.Close, nil
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := store.close(closeCtx); err != nil {
			log.Warn().Err(err).Msg("store close failed")
		}
	}()
	log.Info().Str("driver", cfg.Store.Driver).Msg("store ready")

	seed := service.SeedOptions{AdminPassword: cfg.AdminPassword, HashCost: cfg.BcryptCost}
	if err := service.Seed(ctx, store.roles, store.users, seed, log); err != nil {
		return err
	}

	sessions, closeSessions, err := openSessions(ctx, cfg.Session)
	if err != nil {
		return fmt.Errorf("open sessions: %w", err)
	}
	defer func() {
		if err := closeSessions(); err != nil {
			log.Warn().Err(err).Msg("session store close failed")
		}
	}()
	log.Info().Str("backend", cfg.Session.Backend).Msg("session store ready")

	tokens := tokenclient.New(cfg.TokenService.URL, cfg.TokenService.Timeout, log)
	accounts := service.NewAccountService(store.users, store.roles, tokens, cfg.BcryptCost, log)

	e := api.NewRouter(api.Deps{
		Accounts: accounts,
		Sessions: sessions,
		Session: session.Options{
			CookieName: cfg.Session.CookieName,
			TTL:        cfg.Session.TTL,
			Secure:     cfg.Session.Secure,
		},
		Health: []handlers.Dependency{
			{Name: "store", Pinger: store.ping},
			{Name: "sessions", Pinger: sessions},
		},
		Log:       log,
		DevRoutes: !cfg.IsProduction(),
		TestUsers: cfg.TestUsers,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("identity service listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http server shutdown failed")
	}
	return nil
}
