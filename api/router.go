package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/use-agent/blockcrawl/api/handler"
	"github.com/use-agent/blockcrawl/api/middleware"
	"github.com/use-agent/blockcrawl/cache"
	"github.com/use-agent/blockcrawl/config"
	"github.com/use-agent/blockcrawl/webhook"
)

// Services are the long-lived dependencies behind the routes.
type Services struct {
	Runner   handler.Extractor
	Cache    *cache.Cache
	Sender   *webhook.Sender
	Gatherer prometheus.Gatherer // default: prometheus.DefaultGatherer
}

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Health and metrics stay outside auth so probes and scrapers always work.
func NewRouter(svc Services, cfg *config.Config, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	gatherer := svc.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	v1 := r.Group("/api/v1")
	v1.GET("/health", handler.Health(startTime))

	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	protected.POST("/extract", handler.Extract(handler.ExtractDeps{
		Runner:  svc.Runner,
		Cache:   svc.Cache,
		Sender:  svc.Sender,
		Timeout: cfg.Server.RequestTimeout,
	}))

	return r
}
