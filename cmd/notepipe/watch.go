package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"notepipe/internal/handler"
	"notepipe/internal/router"
	"notepipe/internal/service"
)

const shutdownTimeout = 30 * time.Second

var runAtStart bool

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run the pipeline on a schedule and serve its status over HTTP",
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&runAtStart, "now", false, "run once immediately instead of waiting for the first tick")
}

func runWatch(_ *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pipeline, err := buildPipeline(context.Background(), cfg, log, false)
	if err != nil {
		return err
	}

	scheduler := service.NewScheduler(pipeline, log.Named("scheduler"))
	if err := scheduler.Start(ctx, cfg.Schedule.Cron); err != nil {
		return err
	}
	if runAtStart {
		go func() {
			if _, err := scheduler.RunOnce(ctx); err != nil {
				log.Error("initial run failed", zap.Error(err))
			}
		}()
	}

	gin.SetMode(gin.ReleaseMode)
	r := router.Setup(handler.NewHealthHandler(scheduler), handler.NewRunHandler(scheduler), log.Named("http"))
	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("status server starting", zap.String("addr", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-serveErr:
		if err != nil {
			<-scheduler.Stop().Done()
			return fmt.Errorf("status server failed: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("status server shutdown", zap.Error(err))
	}
	select {
	case <-scheduler.Stop().Done():
	case <-shutdownCtx.Done():
		log.Warn("active run did not finish before shutdown timeout")
	}
	return nil
}
