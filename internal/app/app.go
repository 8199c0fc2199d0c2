// Package app wires configuration, the selected user store and the core
// services into a runnable application.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/watchdeck/user-api/internal/api"
	"github.com/watchdeck/user-api/internal/api/handler"
	"github.com/watchdeck/user-api/internal/api/metrics"
	"github.com/watchdeck/user-api/internal/core/domain"
	"github.com/watchdeck/user-api/internal/core/ports"
	"github.com/watchdeck/user-api/internal/core/service"
	"github.com/watchdeck/user-api/internal/infrastructure/db/memory"
	mongostore "github.com/watchdeck/user-api/internal/infrastructure/db/mongo"
	redisstore "github.com/watchdeck/user-api/internal/infrastructure/db/redis"
	"github.com/watchdeck/user-api/internal/infrastructure/security"
	"github.com/watchdeck/user-api/internal/pkg/config"
)

// App contains all wired application components.
type App struct {
	Config *config.Config
	Logger zerolog.Logger

	Repo   ports.UserRepository
	Hasher ports.PasswordHasher
	Users  *service.UserService
	Auth   *service.AuthService

	closers []func(context.Context) error
}

// New connects the store selected by cfg.StoreDriver and builds the services.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	var (
		repo    ports.UserRepository
		closers []func(context.Context) error
	)

	switch cfg.StoreDriver {
	case config.DriverMemory, "":
		repo = memory.NewUserRepository()
	case config.DriverMongo:
		client, db, err := mongostore.Connect(ctx, mongostore.Config{
			URI:      cfg.Mongo.URI,
			Database: cfg.Mongo.Database,
		})
		if err != nil {
			return nil, err
		}
		mongoRepo := mongostore.NewUserRepository(db)
		if err := mongoRepo.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(ctx)
			return nil, fmt.Errorf("mongo indexes: %w", err)
		}
		repo = mongoRepo
		closers = append(closers, client.Disconnect)
	case config.DriverRedis:
		client, err := redisstore.Connect(ctx, redisstore.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, err
		}
		repo = redisstore.NewUserRepository(client)
		closers = append(closers, func(context.Context) error { return client.Close() })
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}

	a := NewWithRepository(repo, cfg, log)
	a.closers = closers
	log.Info().Str("driver", cfg.StoreDriver).Msg("user store ready")
	return a, nil
}

// NewWithRepository builds an App around an existing store.
func NewWithRepository(repo ports.UserRepository, cfg *config.Config, log zerolog.Logger) *App {
	hasher := security.NewBcryptHasher(cfg.BcryptCost)
	return &App{
		Config: cfg,
		Logger: log,
		Repo:   repo,
		Hasher: hasher,
		Users:  service.NewUserService(repo, hasher, log.With().Str("component", "users").Logger()),
		Auth:   service.NewAuthService(repo, hasher, cfg.JWTSecret, cfg.TokenTTL),
	}
}

// RouterOptions toggles the optional HTTP surfaces.
type RouterOptions struct {
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
	Swagger    bool
}

// Router returns the HTTP handler for the application.
func (a *App) Router(opts RouterOptions) *echo.Echo {
	return api.NewRouter(api.RouterConfig{
		Users:      a.Users,
		Auth:       a.Auth,
		JWTSecret:  a.Config.JWTSecret,
		Logger:     a.Logger,
		Health:     map[string]handler.Pinger{"store": a.Repo},
		Registerer: opts.Registerer,
		Gatherer:   opts.Gatherer,
		Swagger:    opts.Swagger,
	})
}

// CreateAdmin registers username and grants it the ADMIN role. It is the
// operator path for bootstrapping the first administrator and bypasses the
// role policy.
func (a *App) CreateAdmin(ctx context.Context, username, password string) (*domain.User, error) {
	user, err := a.Users.Create(ctx, username, password)
	if err != nil {
		return nil, err
	}
	admin, err := a.Repo.Update(ctx, user.ID, user.Username, domain.RoleAdmin)
	if err != nil {
		return nil, fmt.Errorf("grant admin: %w", err)
	}
	metrics.UsersCreatedTotal.Inc()
	a.Logger.Info().Str("user_id", admin.ID).Msg("admin created")
	return admin, nil
}

// EnsureBootstrapAdmin creates the administrator named in cfg.Bootstrap
// unless that username is already taken. An existing account is never
// promoted.
func (a *App) EnsureBootstrapAdmin(ctx context.Context) error {
	b := a.Config.Bootstrap
	if !b.Enabled() {
		return nil
	}

	existing, err := a.Repo.FindByUsername(ctx, b.AdminUsername)
	switch {
	case err == nil:
		if existing.Role != domain.RoleAdmin {
			a.Logger.Warn().Str("user_id", existing.ID).Msg("bootstrap admin username belongs to a non-admin account; skipped")
		}
		return nil
	case !errors.Is(err, domain.ErrUserNotFound):
		return fmt.Errorf("bootstrap admin: %w", err)
	}

	if _, err := a.CreateAdmin(ctx, b.AdminUsername, b.AdminPassword); err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	return nil
}

// Close releases the store connections.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for _, c := range a.closers {
		if err := c(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

