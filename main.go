// File: roomsync/main.go
package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"roomsync/config"
	"roomsync/cron"
	"roomsync/handlers"
	"roomsync/metrics"
	"roomsync/middleware"
	"roomsync/models"
	"roomsync/routes"
	"roomsync/services/feed"
	"roomsync/services/session"
	"roomsync/services/uploader"
	"roomsync/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()
	defer logger.Sync()

	cfg := config.AppConfig
	if err := cfg.Validate(); err != nil {
		logger.Fatal("main: invalid configuration", zap.Error(err))
	}
	metrics.Register()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Session store: Redis when configured, memory otherwise.
	var store session.TokenStore = session.NewMemoryTokenStore()
	redisClient, err := utils.InitSessionCache()
	if err != nil {
		logger.Warn("main: session cache unavailable, keeping session in memory", zap.Error(err))
	} else if redisClient != nil {
		store = session.NewRedisTokenStore(redisClient, cfg.APIUser, cfg.SessionTTL)
		utils.StartHealthMonitor(ctx, redisClient, 60*time.Second)
		defer redisClient.Close()
	}

	client := session.NewClient(ctx, session.Options{
		BaseURL:     cfg.APIURL,
		Credentials: session.Credentials{User: cfg.APIUser, Password: cfg.APIPass},
		Timeout:     cfg.UploadTimeout,
		RatePerSec:  cfg.APIRatePerSec,
		Store:       store,
		Logger:      logger.Named("session"),
	})
	coordinator := session.NewCoordinator(client, cfg.MaxPendingRequests, logger.Named("session"))

	fetcher := feed.NewFetcher(feed.Options{
		URLTemplate: cfg.ICalURLTemplate,
		User:        cfg.ICalUser,
		Password:    cfg.ICalPass,
		Timeout:     cfg.FeedTimeout,
		Logger:      logger.Named("feed"),
	})

	orchestrator := uploader.NewOrchestrator(uploader.Options{
		Sources:     uploader.SourcesFromConfig(cfg.Calendars),
		Locations:   models.Locations(cfg.Locations),
		Feed:        fetcher,
		Uploader:    coordinator,
		Location:    cfg.Location(),
		Concurrency: cfg.UploadConcurrency,
		Logger:      logger.Named("uploader"),
	})

	scheduler, err := cron.NewScheduler(cfg.PollSchedule, orchestrator, logger.Named("cron"))
	if err != nil {
		logger.Fatal("main: failed to create scheduler", zap.Error(err))
	}

	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(middleware.RequestLogger(logger.Named("http")))

	handlerBundle := handlers.NewHandlerBundle(handlers.NewStatusHandler(orchestrator, coordinator))
	routes.RegisterRoutes(router, handlerBundle)

	port := cfg.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting status server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	schedulerDone := scheduler.Start(ctx)

	<-ctx.Done()
	logger.Sugar().Info("main: shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Sugar().Errorf("main: server forced to shutdown: %v", err)
	}
	select {
	case <-schedulerDone:
	case <-shutdownCtx.Done():
		logger.Warn("main: polling cycle still running at shutdown")
	}

	logger.Sugar().Info("main: stopped gracefully")
}
