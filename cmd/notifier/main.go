package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/emergency-notifier/internal/app"
	"github.com/jwalitptl/emergency-notifier/internal/config"
	"github.com/jwalitptl/emergency-notifier/internal/handler/events"
	"github.com/jwalitptl/emergency-notifier/internal/handler/health"
	promhandler "github.com/jwalitptl/emergency-notifier/internal/handler/prometheus"
	"github.com/jwalitptl/emergency-notifier/internal/middleware"
	"github.com/jwalitptl/emergency-notifier/internal/model"
	"github.com/jwalitptl/emergency-notifier/internal/router"
	"github.com/jwalitptl/emergency-notifier/pkg/auth"
	"github.com/jwalitptl/emergency-notifier/pkg/logger"
)

func main() {
	issueFor := flag.String("issue-token", "", "print an ingest token for the given producer and exit")
	tokenTTL := flag.Duration("token-ttl", 24*time.Hour, "lifetime of a token printed by -issue-token")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	if *issueFor != "" {
		token, err := auth.NewTokenManager(cfg.Auth.JWTSecret).Issue(*issueFor, *tokenTTL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to issue token")
		}
		fmt.Println(token)
		return
	}

	lg := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Log.Level),
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
		JSON:       cfg.Log.Format == "json",
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	container, err := app.New(ctx, cfg, lg)
	if err != nil {
		lg.Fatal(err, "failed to initialize notifier")
	}

	if err := container.Bus.Start(ctx); err != nil {
		_ = container.Shutdown()
		lg.Fatal(err, "failed to start event bus")
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      newRouter(container).Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		lg.Info("Starting server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatal(err, "failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	lg.Info("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Error(err, "server forced to shutdown")
	}

	// Stop consuming, then let in-flight handlers finish before closing clients.
	cancel()
	done := make(chan struct{})
	go func() {
		container.Bus.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		lg.Warn("Timed out waiting for in-flight handlers")
	}

	if err := container.Shutdown(); err != nil {
		lg.Error(err, "shutdown finished with errors")
	}
	lg.Info("Notifier stopped")
}

func newRouter(c *app.Container) *router.Router {
	gin.SetMode(gin.ReleaseMode)

	var ingest router.Handler
	if c.Config.Auth.JWTSecret != "" {
		ingest = events.NewHandler(c.Bus, c.Validator, []string{
			model.EventUserDeleted,
			model.EventChatMessageCreated,
			model.EventAnnouncementCreated,
			model.EventReportUpdated,
		}, c.Logger)
	} else {
		c.Logger.Warn("No JWT secret configured; event ingest endpoint disabled")
	}

	r := router.NewRouter(
		middleware.NewAuthMiddleware(c.Config.Auth.JWTSecret),
		health.NewHandler(map[string]health.Pinger{"roster": c.Users}),
		ingest,
		promhandler.New(c.Registry),
		c.Logger,
		router.RouterConfig{MaxBodySize: middleware.DefaultMaxBodySize},
	)
	r.Setup()
	return r
}
