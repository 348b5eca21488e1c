package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/userhub/identity-service/docs"
	"github.com/userhub/identity-service/internal/api/handler"
	"github.com/userhub/identity-service/internal/api/middleware"
	"github.com/userhub/identity-service/internal/api/session"
	"github.com/userhub/identity-service/internal/core/ports"
	"github.com/userhub/identity-service/internal/infrastructure/http/handlers"
)

// Deps carries everything the router wires together.
type Deps struct {
	Accounts ports.AccountService
	Sessions session.Store
	Session  session.Options
	Health   []handlers.Dependency
	Log      zerolog.Logger

	// DevRoutes mounts GET /spam and DELETE /purge.
	DevRoutes bool
	// TestUsers is the default count for GET /spam.
	TestUsers int

	// Registerer and Gatherer back the HTTP metrics and /metrics; the
	// Prometheus defaults are used when nil.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	registerer, gatherer := d.Registerer, d.Gatherer
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(d.Log))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace:  "identity",
		Registerer: registerer,
	}))

	accounts := handler.NewAccountHandler(d.Accounts, d.TestUsers)
	sess := session.Middleware(d.Sessions, d.Session)
	gate := middleware.LoginRequired()

	// --- Public routes ---
	e.POST("/register", accounts.Register)
	e.POST("/login", accounts.Login, sess)
	e.GET("/user/:id", accounts.GetUser)

	// --- Gated routes ---
	e.GET("/logout", accounts.Logout, sess, gate)
	e.GET("/me", accounts.GetMe, sess, gate)
	e.PUT("/me", accounts.UpdateMe, sess, gate)
	e.DELETE("/me", accounts.DeleteMe, sess, gate)
	e.GET("/users", accounts.ListUsers, sess, gate)
	e.DELETE("/user/:id", accounts.DeleteUser, sess, gate)

	// --- Development utilities (admin only, checked by the service) ---
	if d.DevRoutes {
		e.GET("/spam", accounts.GenerateTestUsers, sess, gate)
		e.DELETE("/purge", accounts.PurgeTestUsers, sess, gate)
	}

	// --- Health probes (no auth required) ---
	healthHandler := handlers.NewHealthHandler()
	healthDepsHandler := handlers.NewHealthDependenciesHandler(d.Health...)

	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthDepsHandler.Readiness)

	// --- Operations ---
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}
