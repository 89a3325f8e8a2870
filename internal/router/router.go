package router

import (
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	promhandler "github.com/jwalitptl/emergency-notifier/internal/handler/prometheus"
	"github.com/jwalitptl/emergency-notifier/internal/middleware"
	"github.com/jwalitptl/emergency-notifier/pkg/logger"
)

type Handler interface {
	RegisterRoutes(gin.IRouter)
}

type Router struct {
	engine  *gin.Engine
	auth    *middleware.AuthMiddleware
	health  Handler
	events  Handler
	metrics *promhandler.Handler
	config  RouterConfig
}

type RouterConfig struct {
	// IngestRate limits POST /api/v1/events across all callers; zero disables.
	IngestRate  rate.Limit
	IngestBurst int
	MaxBodySize int64
}

func NewRouter(
	auth *middleware.AuthMiddleware,
	health Handler,
	events Handler,
	metrics *promhandler.Handler,
	log *logger.Logger,
	config RouterConfig,
) *Router {
	engine := gin.New()

	r := &Router{
		engine:  engine,
		auth:    auth,
		health:  health,
		events:  events,
		metrics: metrics,
		config:  config,
	}

	engine.Use(
		middleware.RequestID(log),
		middleware.Recovery(log),
		middleware.Logger(log),
		metrics.Middleware(),
	)

	return r
}

func (r *Router) Setup() {
	r.health.RegisterRoutes(r.engine)
	r.engine.GET("/metrics", r.metrics.Handler())

	if r.events == nil {
		return
	}

	api := r.engine.Group("/api/v1")
	maxBody := r.config.MaxBodySize
	if maxBody <= 0 {
		maxBody = middleware.DefaultMaxBodySize
	}
	api.Use(middleware.SizeLimit(maxBody))
	if r.config.IngestRate > 0 {
		burst := r.config.IngestBurst
		if burst <= 0 {
			burst = 1
		}
		api.Use(middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  r.config.IngestRate,
			Burst: burst,
		}).RateLimit())
	}
	api.Use(r.auth.Authenticate())
	r.events.RegisterRoutes(api)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
