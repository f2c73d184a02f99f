// Command reconcile reports ledger rows whose primary storage artifact is
// missing from the object store. It is read-only: orphan objects in storage
// are tolerated, but a ledger row pointing at nothing indicates a bug in
// the deletion path and is worth surfacing.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/timmy/mediahub/internal/config"
	"github.com/timmy/mediahub/internal/domain"
	"github.com/timmy/mediahub/internal/logger"
	"github.com/timmy/mediahub/internal/repository"
	"github.com/timmy/mediahub/internal/storage"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to config file")
	folder := flag.String("folder", "", "limit the check to one category folder")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(&logger.Config{
		Level:       cfg.Log.Level,
		Format:      "text",
		ServiceName: "mediahub-reconcile",
	})
	logger.SetDefaultLogger(log)

	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("Invalid configuration")
	}

	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize database")
	}
	ledger := repository.NewJobRepository(db)

	store, err := storage.NewS3Store(&storage.S3Config{
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		UseSSL:    cfg.Storage.UseSSL,
		Bucket:    cfg.Storage.Bucket,
		Region:    cfg.Storage.Region,
	}, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize storage")
	}

	ctx := context.Background()

	prefix := ""
	if *folder != "" {
		prefix = *folder + "/"
	}
	listing, err := store.List(ctx, prefix, "")
	if err != nil {
		log.WithError(err).Fatal("Failed to list bucket contents")
	}
	keySet := make(map[string]struct{}, len(listing.Keys))
	for _, key := range listing.Keys {
		keySet[key] = struct{}{}
	}

	jobs, _, err := ledger.ListPosts(ctx, repository.PostFilter{Folder: *folder})
	if err != nil {
		log.WithError(err).Fatal("Failed to list ledger rows")
	}

	missing := 0
	for _, job := range jobs {
		primary := job.StorageKey
		if job.PostType == domain.PostTypeImage && len(job.ImageKeys) > 0 {
			primary = job.ImageKeys[0]
		}
		if _, ok := keySet[primary]; ok {
			continue
		}
		// The listing can lag behind writes; re-check the key directly
		// before reporting it.
		if exists, err := store.Exists(ctx, primary); err != nil {
			log.WithError(err).Fatal("Failed to check object existence")
		} else if exists {
			continue
		}
		missing++
		fmt.Printf("MISSING %-8s %s (job %s, started %s)\n",
			job.PostType, primary, job.JobID, job.StartTime.Format("2006-01-02"))
	}

	fmt.Printf("checked %d published post(s), %d missing artifact(s)\n", len(jobs), missing)
	if missing > 0 {
		os.Exit(1)
	}
}
