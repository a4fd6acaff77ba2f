package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/staff-records-api/internal/app"
	"github.com/noah-isme/staff-records-api/internal/dto"
	"github.com/noah-isme/staff-records-api/pkg/config"
	"github.com/noah-isme/staff-records-api/pkg/jobs"
	"github.com/noah-isme/staff-records-api/pkg/logger"
)

// @title Staff Records API
// @version 1.0.0
// @description Staff profiles, onboarding applications, bulk import and export.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	container, err := app.New(cfg, logr)
	if err != nil {
		logr.Fatal("failed to build application", zap.Error(err))
	}
	defer container.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Seniority.RefreshEnabled {
		queue := jobs.NewQueue("seniority", container.Seniority.HandleJob, jobs.QueueConfig{
			Workers:    1,
			MaxRetries: 2,
			RetryDelay: time.Minute,
			Logger:     logr,
		})
		queue.Start(ctx)
		defer queue.Stop()
		opts := dto.RefreshOptions{ActiveOnly: cfg.Seniority.ActiveOnly}
		if err := queue.Every(cfg.Seniority.RefreshInterval, func() jobs.Job { return container.Seniority.Job(opts) }); err != nil {
			logr.Error("failed to schedule seniority refresh", zap.Error(err))
		}
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           app.NewRouter(container),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Errorw("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
