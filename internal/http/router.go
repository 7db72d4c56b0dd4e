package http

import (
	"context"

	"github.com/geocoder89/rsvphub/internal/config"
	"github.com/geocoder89/rsvphub/internal/http/handlers"
	"github.com/geocoder89/rsvphub/internal/http/middlewares"
	"github.com/geocoder89/rsvphub/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Deps is everything the router needs; Ping, Prom and Gatherer are optional.
type Deps struct {
	Accounts handlers.AccountsService
	Events   handlers.EventsService
	Seats    handlers.Joiner
	Tokens   middlewares.TokenVerifier

	Ping     func(ctx context.Context) error
	Prom     *observability.Prom
	Gatherer prometheus.Gatherer
}

func NewRouter(cfg config.Config, deps Deps) *gin.Engine {
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// each concern is registered exactly once, here
	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(otelgin.Middleware(observability.ServiceName))
	r.Use(middlewares.RequestLogger())
	if deps.Prom != nil {
		r.Use(deps.Prom.GinHandleMiddleware())
	}
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(cfg.CORSOrigins))
	r.Use(middlewares.MaxBodyBytes(cfg.MaxBodyBytes))
	r.Use(middlewares.RequireJSON())

	// health
	h := handlers.NewHealthHandler(deps.Ping)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	authMW := middlewares.NewAuthMiddleware(deps.Tokens)
	requireAuth := authMW.RequireAuth()

	authHandler := handlers.NewAuthHandler(deps.Accounts)
	eventsHandler := handlers.NewEventsHandler(deps.Events, deps.Seats)

	api := r.Group("/api")

	authRoutes := api.Group("/auth")
	authRoutes.POST("/register", authHandler.Register)
	authRoutes.POST("/login", authHandler.Login)
	authRoutes.GET("/me", requireAuth, authHandler.Me)
	authRoutes.PUT("/profile", requireAuth, authHandler.UpdateProfile)

	eventRoutes := api.Group("/events")
	eventRoutes.GET("", eventsHandler.ListEvents)
	eventRoutes.GET("/:id", eventsHandler.GetEventByID)
	eventRoutes.POST("", requireAuth, eventsHandler.CreateEvent)
	eventRoutes.POST("/:id/rsvp", requireAuth, eventsHandler.RSVP)
	eventRoutes.DELETE("/:id", requireAuth, eventsHandler.DeleteEvent)

	return r
}
