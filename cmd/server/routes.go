package main

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Nixie-Tech-LLC/almanac/internal/config"
	"github.com/Nixie-Tech-LLC/almanac/internal/db"
	"github.com/Nixie-Tech-LLC/almanac/internal/events"
	"github.com/Nixie-Tech-LLC/almanac/internal/http/api"
	authapi "github.com/Nixie-Tech-LLC/almanac/internal/http/api/admin/auth/endpoints"
	adminapi "github.com/Nixie-Tech-LLC/almanac/internal/http/api/admin/control/endpoints"
	"github.com/Nixie-Tech-LLC/almanac/internal/http/middleware"
	"github.com/Nixie-Tech-LLC/almanac/internal/jobs"
	"github.com/Nixie-Tech-LLC/almanac/internal/metrics"
	"github.com/Nixie-Tech-LLC/almanac/internal/plugins"
	"github.com/Nixie-Tech-LLC/almanac/internal/publishing"
)

// Services are the long-lived components the routes are built from.
type Services struct {
	Store    db.Store
	Registry *plugins.Registry
	Manager  *publishing.Manager
	Calendar *events.Calendar
	Exporter *jobs.ICSExporter
	Metrics  *metrics.Collector
	Gatherer prometheus.Gatherer
}

// RegisterRoutes sets up all application routes
func RegisterRoutes(r *gin.Engine, cfg *config.Config, svc Services) {
	// CORS
	r.Use(cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool { return true },
		AllowMethods: []string{
			"GET",
			"POST",
			"PUT",
			"DELETE",
			"OPTIONS",
			"HEAD",
		},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Authorization",
			"Accept",
			middleware.RequestIDHeader,
		},
		ExposeHeaders: []string{
			"Content-Length",
			middleware.RequestIDHeader,
		},
		AllowCredentials: false,
	}))
	r.Use(middleware.RequestID(), middleware.RequestLogger(svc.Metrics))

	r.GET("/metrics", gin.WrapH(metrics.Handler(svc.Gatherer)))

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	api.MountGroup(r, api.GroupConfig{
		Prefix:     "/api/admin",
		Auth:       false,
		Middleware: []gin.HandlerFunc{limiter.Middleware()},
	},
		authapi.AuthPublicModule(cfg.JWTSecret, svc.Store),
	)

	api.MountGroup(r, api.GroupConfig{
		Prefix:     "/api/admin",
		Auth:       true,
		SecretKey:  cfg.JWTSecret,
		Users:      svc.Store,
		Middleware: []gin.HandlerFunc{limiter.Middleware()},
	},
		// session endpoints that require auth
		authapi.AuthSessionModule(cfg.JWTSecret, svc.Store),
		// control modules
		adminapi.ItemModule(svc.Store, svc.Manager, svc.Registry),
		adminapi.EventModule(svc.Store, svc.Calendar, svc.Exporter, svc.Registry, adminapi.EventSettings{
			Timezone:      cfg.DefaultTimezone,
			RepeatHorizon: cfg.RepeatHorizon,
			Metrics:       svc.Metrics,
		}),
		adminapi.RecurrenceModule(svc.Store),
		adminapi.PluginModule(svc.Registry),
	)
}
