package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/timmy/mediahub/internal/api"
	"github.com/timmy/mediahub/internal/api/middleware"
	"github.com/timmy/mediahub/internal/config"
	"github.com/timmy/mediahub/internal/logger"
	"github.com/timmy/mediahub/internal/mediainspect"
	"github.com/timmy/mediahub/internal/notify"
	"github.com/timmy/mediahub/internal/repository"
	"github.com/timmy/mediahub/internal/scheduler"
	"github.com/timmy/mediahub/internal/service"
	"github.com/timmy/mediahub/internal/storage"
)

func main() {
	// Support CONFIG_PATH environment variable for production deployments
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(&logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		ServiceName: "mediahub",
		File:        cfg.Log.File,
		MaxSizeMB:   cfg.Log.MaxSizeMB,
		MaxBackups:  cfg.Log.MaxBackups,
		MaxAgeDays:  cfg.Log.MaxAgeDays,
		Compress:    cfg.Log.Compress,
	})
	logger.SetDefaultLogger(log)
	defer logger.Sync()

	// Missing bucket or credentials is fatal before serving anything
	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("Invalid configuration")
	}

	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize database")
	}
	ledger := repository.NewJobRepository(db)

	store, err := storage.NewS3Store(&storage.S3Config{
		Endpoint:      cfg.Storage.Endpoint,
		AccessKey:     cfg.Storage.AccessKey,
		SecretKey:     cfg.Storage.SecretKey,
		UseSSL:        cfg.Storage.UseSSL,
		Bucket:        cfg.Storage.Bucket,
		Region:        cfg.Storage.Region,
		UploadTimeout: cfg.Ingest.UploadTimeout,
		PartSize:      cfg.Ingest.PartSizeBytes,
	}, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize storage")
	}

	var notifier notify.Notifier = notify.NopNotifier{}
	if cfg.Notify.WebhookURL != "" {
		notifier = notify.NewWebhookNotifier(cfg.Notify.WebhookURL, cfg.Notify.Group, cfg.Notify.Timeout, log)
	}

	inspector := mediainspect.NewFFmpegInspector(cfg.Ingest.FFmpegPath, cfg.Ingest.FFprobePath, cfg.Ingest.TempDir)

	ingest := service.NewIngestService(ledger, store, inspector, notifier, log, cfg.Ingest.ThumbnailOffset)
	catalog := service.NewCatalogService(ledger, store, log, service.CatalogConfig{
		PresignTTL:      cfg.Catalog.PresignTTL,
		DefaultPageSize: cfg.Catalog.DefaultPageSize,
		LatestSoftCap:   cfg.Catalog.LatestSoftCap,
	})

	sched := scheduler.New(cfg.Ingest.Workers, cfg.Ingest.QueueSize, log)
	ingest.RegisterHandlers(sched)
	sched.Start(context.Background())

	router := api.SetupRouter(ledger, catalog, sched, api.RouterConfig{
		Mode: cfg.Server.Mode,
		CORS: middleware.CORSConfig{
			AllowedOrigins:  cfg.Server.CORS.AllowedOrigins,
			AllowAllOrigins: cfg.Server.CORS.AllowAllOrigins,
		},
		TempDir: cfg.Ingest.TempDir,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.WithField("port", cfg.Server.Port).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server shutdown failed")
	}

	// Let in-flight ingestion jobs finish
	sched.Stop()

	log.Info("Stopped")
}
