package api

import (
	"regexp"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/watchdeck/user-api/docs"
	"github.com/watchdeck/user-api/internal/api/handler"
	"github.com/watchdeck/user-api/internal/api/middleware"
	"github.com/watchdeck/user-api/internal/core/domain"
	"github.com/watchdeck/user-api/internal/core/ports"
)

// userIDPattern is the shape of store-assigned user ids.
var userIDPattern = regexp.MustCompile(`^[0-9]{1,24}$`)

// RouterConfig holds the dependencies of the HTTP surface.
type RouterConfig struct {
	Users     ports.UserService
	Auth      ports.AuthService
	JWTSecret string
	Logger    zerolog.Logger

	// Health lists the dependencies checked by GET /health/ready.
	Health map[string]handler.Pinger

	// Registerer and Gatherer enable request metrics and GET /metrics.
	// Both nil disables them.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer

	// Swagger serves the API docs under /swagger/.
	Swagger bool
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(cfg RouterConfig) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(cfg.Logger)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(cfg.Logger))
	if cfg.Registerer != nil {
		e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
			Subsystem:  "userapi",
			Registerer: cfg.Registerer,
		}))
	}

	// --- Dependencies ---
	userHandler := handler.NewUserHandler(cfg.Users)
	authHandler := handler.NewAuthHandler(cfg.Auth)
	healthHandler := handler.NewHealthHandler(cfg.Health)
	auth := middleware.Auth(cfg.JWTSecret)
	adminOnly := middleware.RBAC(domain.RoleAdmin)

	// --- Auth routes ---
	e.POST("/auth/login", authHandler.Login)

	// --- User routes ---
	e.POST("/users", userHandler.Create)
	e.GET("/users", userHandler.List, auth, adminOnly)
	e.GET("/users/:id", userHandler.Get, validUserID, auth)
	e.PATCH("/users/:id", userHandler.Edit, validUserID, auth)
	e.DELETE("/users/:id", userHandler.Delete, validUserID, auth, adminOnly)

	// --- Watch list routes ---
	e.GET("/users/:id/watchlist", userHandler.WatchList, validUserID, auth)
	e.POST("/users/:id/watchlist/movie", userHandler.AddMovie, validUserID, auth)
	e.POST("/users/:id/watchlist/tv", userHandler.AddTV, validUserID, auth)

	// --- Health probes (no auth required) ---
	e.GET("/health", healthHandler.Liveness)        // liveness  – is the process alive?
	e.GET("/health/ready", healthHandler.Readiness) // readiness – are dependencies up?

	if cfg.Gatherer != nil {
		e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{
			Gatherer: cfg.Gatherer,
		}))
	}
	if cfg.Swagger {
		e.GET("/swagger/*", echoSwagger.WrapHandler)
	}

	return e
}

// validUserID answers 404 for ids that cannot name a user.
func validUserID(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !userIDPattern.MatchString(c.Param("id")) {
			return echo.ErrNotFound
		}
		return next(c)
	}
}
