package router

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/signal-checkin/internal/authz"
	"github.com/iliyamo/signal-checkin/internal/config"
	"github.com/iliyamo/signal-checkin/internal/handler"
	"github.com/iliyamo/signal-checkin/internal/middleware"
)

// Deps carries what the routes need. Redis may be nil, which disables rate
// limiting.
type Deps struct {
	Journal    *handler.JournalHandler
	Resolver   *authz.Resolver
	DB         handler.Pinger
	Redis      *redis.Client
	RateLimit  config.RateLimitConfig
	ServiceKey string
	Log        *zap.Logger
}

// RegisterRoutes wires every endpoint and its middleware onto e.
func RegisterRoutes(e *echo.Echo, d Deps) {
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.ResolvePrincipal(d.Resolver))
	e.Use(middleware.AccessLog(d.Log))

	e.GET("/healthz", handler.Health)
	if d.DB != nil {
		e.GET("/readyz", handler.Ready(d.DB))
	}

	limit := middleware.NewTokenBucket(d.RateLimit, d.Redis, d.Log)

	v1 := e.Group("/v1", limit)
	v1.GET("/entries", d.Journal.ListEntries)
	v1.POST("/entries", d.Journal.SubmitEntry)
	v1.GET("/entries/:id", d.Journal.GetEntry)
	v1.PATCH("/entries/:id", d.Journal.UpdateEntry)
	v1.DELETE("/entries/:id", d.Journal.DeleteEntry)
	v1.GET("/summary", d.Journal.Summary)

	// waitlist signups are open to anonymous callers, so they get a tighter
	// per-IP bucket on top of the shared one
	signupLimit := middleware.NewTokenBucket(config.SignupRateLimitConfig(d.RateLimit), d.Redis, d.Log)
	v1.POST("/signups", d.Journal.SubmitSignup, signupLimit)

	// backend callers present the service key plus the end user's token
	internal := e.Group("/internal/v1", middleware.RequireServiceKey(d.ServiceKey, d.Resolver))
	internal.POST("/entries", d.Journal.SubmitEntry)
	internal.GET("/signups", d.Journal.ListSignups)
}
