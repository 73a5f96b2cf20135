package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ZanzyTHEbar/seo-maturity-grader/docs"
	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/config"
	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/monitoring"
	"github.com/gin-gonic/gin"
)

// @title        SEO Maturity Grader API
// @version      1.0
// @description  Grades a website's SEO maturity from a self-assessment questionnaire and observed signals.
// @BasePath     /seo/grader
func main() {
	settings, err := config.LoadFromEnv()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := monitoring.NewLoggerWithWriter(os.Stdout, monitoring.ParseLevel(settings.LogLevel))
	slog.SetDefault(logger.Logger)

	docs.SwaggerInfo.Version = config.AppVersion

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	a, err := newApp(settings, logger)
	if err != nil {
		slog.Error("Failed to initialize grader", "error", err)
		os.Exit(1)
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	a.start(ctx)

	srv := &http.Server{
		Addr:              ":" + settings.Port,
		Handler:           a.server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("Starting server", "port", settings.Port, "version", config.AppVersion)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed to start", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Server exited")
}
