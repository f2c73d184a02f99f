package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/timmy/mediahub/internal/domain"
	"github.com/timmy/mediahub/internal/logger"
	"github.com/timmy/mediahub/internal/repository"
	"github.com/timmy/mediahub/internal/storage"
)

// CatalogService composes the job ledger with live object-store listings
// into browsable pages. Reads take no locks against ingestion writes:
// listing filters on IsSuccessful, and a job's thumbnail keys are written
// before it flips successful, so a listed post always has its artifacts in
// place.
type CatalogService struct {
	ledger          *repository.JobRepository
	store           storage.ObjectStore
	logger          *logger.Logger
	presignTTL      time.Duration
	defaultPageSize int
	latestSoftCap   int
}

// CatalogConfig holds catalog tuning knobs.
type CatalogConfig struct {
	PresignTTL      time.Duration
	DefaultPageSize int
	LatestSoftCap   int
}

// NewCatalogService creates the catalog read side.
func NewCatalogService(ledger *repository.JobRepository, store storage.ObjectStore, log *logger.Logger, cfg CatalogConfig) *CatalogService {
	if cfg.PresignTTL <= 0 {
		cfg.PresignTTL = 15 * time.Minute
	}
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = 20
	}
	if cfg.LatestSoftCap <= 0 {
		cfg.LatestSoftCap = 500
	}
	return &CatalogService{
		ledger:          ledger,
		store:           store,
		logger:          log,
		presignTTL:      cfg.PresignTTL,
		defaultPageSize: cfg.DefaultPageSize,
		latestSoftCap:   cfg.LatestSoftCap,
	}
}

// ListCategories enumerates top-level prefixes and counts the videos under
// each via full enumeration. This is O(objects) per call; a running count
// would be needed at scale, but correctness does not depend on it.
// Listing failures degrade to an empty result with a logged warning.
func (c *CatalogService) ListCategories(ctx context.Context) []domain.Category {
	root, err := c.store.List(ctx, "", "/")
	if err != nil {
		c.logger.WithError(err).Warn("Failed to list category prefixes")
		return []domain.Category{}
	}

	categories := make([]domain.Category, 0, len(root.CommonPrefixes))
	for _, prefix := range root.CommonPrefixes {
		count := 0
		contents, err := c.store.List(ctx, prefix, "")
		if err != nil {
			c.logger.WithField(logger.FieldFolder, prefix).WithError(err).Warn("Failed to count category contents")
		} else {
			for _, key := range contents.Keys {
				if strings.HasSuffix(strings.ToLower(key), ".mp4") {
					count++
				}
			}
		}

		name := strings.TrimSuffix(prefix, "/")
		categories = append(categories, domain.Category{
			Name:        name,
			DisplayName: domain.CategoryDisplayName(name),
			ItemCount:   count,
		})
	}
	return categories
}

// ListPosts returns one page of published posts. The query itself is
// ledger-driven; the object listing is consulted only to resolve
// thumbnails. A listing failure degrades to posts without thumbnails.
func (c *CatalogService) ListPosts(ctx context.Context, folder, searchText, sortBy string, page, pageSize int) (*domain.PostPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = c.defaultPageSize
	}

	jobs, total, err := c.ledger.ListPosts(ctx, repository.PostFilter{
		Folder:     folder,
		SearchText: searchText,
		SortBy:     sortBy,
		Page:       page,
		PageSize:   pageSize,
	})
	if err != nil {
		return nil, err
	}

	keySet := c.listKeySet(ctx, folder)

	items := make([]domain.Post, 0, len(jobs))
	for _, job := range jobs {
		items = append(items, c.buildPost(&job, keySet))
	}

	return &domain.PostPage{
		Items:      items,
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
	}, nil
}

// ListLatestAcrossCategories merges the newest posts of every category,
// sorted by recency. The soft cap bounds the rows considered so preview
// surfaces never trigger unbounded enumeration.
func (c *CatalogService) ListLatestAcrossCategories(ctx context.Context, limit int) ([]domain.Post, error) {
	if limit <= 0 || limit > c.latestSoftCap {
		limit = c.latestSoftCap
	}

	keySet := c.listKeySet(ctx, "")

	var jobs []domain.UploadJob
	for _, category := range c.ListCategories(ctx) {
		remaining := c.latestSoftCap - len(jobs)
		if remaining <= 0 {
			break
		}
		categoryJobs, _, err := c.ledger.ListPosts(ctx, repository.PostFilter{
			Folder:   category.Name,
			SortBy:   domain.SortNewest,
			Page:     1,
			PageSize: remaining,
		})
		if err != nil {
			c.logger.WithField(logger.FieldFolder, category.Name).WithError(err).Warn("Failed to list category posts")
			continue
		}
		jobs = append(jobs, categoryJobs...)
	}

	sort.SliceStable(jobs, func(i, j int) bool {
		return jobs[i].StartTime.After(jobs[j].StartTime)
	})
	if len(jobs) > limit {
		jobs = jobs[:limit]
	}

	posts := make([]domain.Post, 0, len(jobs))
	for _, job := range jobs {
		posts = append(posts, c.buildPost(&job, keySet))
	}
	return posts, nil
}

// GetPresignedURL returns a time-limited access URL for one key, using the
// catalog's fixed expiry.
func (c *CatalogService) GetPresignedURL(key string) (string, error) {
	return c.store.Presign(key, c.presignTTL)
}

// IncrementViewCount bumps the view counter of the post owning storageKey.
func (c *CatalogService) IncrementViewCount(ctx context.Context, storageKey string) error {
	job, err := c.ledger.GetByStorageKey(ctx, storageKey)
	if err != nil {
		return err
	}
	return c.ledger.IncrementViewCount(ctx, job.JobID)
}

// DeletePost removes a post's objects and then its ledger row. The row is
// removed if and only if the storage deletion reports success: a ledger
// entry must never reference no underlying object, while orphan objects in
// storage are tolerated. Both video thumbnail candidates are deleted
// speculatively; the store's delete is idempotent on missing keys.
func (c *CatalogService) DeletePost(ctx context.Context, storageKey string) error {
	job, err := c.ledger.GetByStorageKey(ctx, storageKey)
	if err != nil {
		return err
	}

	var keys []string
	switch job.PostType {
	case domain.PostTypeImage:
		keys = append(keys, job.ImageKeys...)
	default:
		png, jpg := ThumbnailCandidates(job.StorageKey)
		keys = []string{job.StorageKey, png, jpg}
	}

	if len(keys) > 0 {
		if err := c.store.BatchDelete(ctx, keys); err != nil {
			c.logger.WithField(logger.FieldStorageKey, storageKey).WithError(err).
				Error("Storage deletion failed, ledger row retained")
			return err
		}
	}

	if err := c.ledger.Delete(ctx, storageKey); err != nil {
		return err
	}

	c.logger.WithFields(logger.Fields{
		logger.FieldStorageKey: storageKey,
		logger.FieldCount:      len(keys),
	}).Info("Post deleted")
	return nil
}

// listKeySet fetches the current object listing as a set. folder may be
// empty to list the whole bucket. Failures degrade to an empty set so the
// page stays available without thumbnails.
func (c *CatalogService) listKeySet(ctx context.Context, folder string) map[string]struct{} {
	prefix := ""
	if folder != "" {
		prefix = folder + "/"
	}
	listing, err := c.store.List(ctx, prefix, "")
	if err != nil {
		c.logger.WithField(logger.FieldFolder, folder).WithError(err).Warn("Failed to list objects for thumbnail resolution")
		return map[string]struct{}{}
	}

	set := make(map[string]struct{}, len(listing.Keys))
	for _, key := range listing.Keys {
		set[key] = struct{}{}
	}
	return set
}

// buildPost derives the catalog view of one ledger row against the current
// object listing. Recomputed per query; nothing here is cached.
func (c *CatalogService) buildPost(job *domain.UploadJob, keySet map[string]struct{}) domain.Post {
	post := domain.Post{
		StorageKey:      job.StorageKey,
		Title:           job.OriginalFileName,
		Description:     job.Description,
		Folder:          job.Folder,
		FolderDisplay:   domain.CategoryDisplayName(job.Folder),
		PostType:        job.PostType,
		PublishedAt:     job.StartTime,
		ViewCount:       job.ViewCount,
		DurationSeconds: job.DurationSeconds,
	}

	if job.PostType == domain.PostTypeImage {
		if len(job.ImageKeys) == 0 {
			return post
		}
		for _, key := range job.ImageKeys {
			if url, err := c.store.Presign(key, c.presignTTL); err == nil {
				post.ImageURLs = append(post.ImageURLs, url)
			} else {
				c.logger.WithField(logger.FieldStorageKey, key).WithError(err).Warn("Failed to presign image")
			}
		}
		if _, ok := keySet[job.ImageKeys[0]]; ok {
			if url, err := c.store.Presign(job.ImageKeys[0], c.presignTTL); err == nil {
				post.ThumbnailURL = url
			}
		}
		return post
	}

	png, jpg := ThumbnailCandidates(job.StorageKey)
	thumbnailKey := ""
	if _, ok := keySet[png]; ok {
		thumbnailKey = png
	} else if _, ok := keySet[jpg]; ok {
		thumbnailKey = jpg
	}
	if thumbnailKey != "" {
		if url, err := c.store.Presign(thumbnailKey, c.presignTTL); err == nil {
			post.ThumbnailURL = url
		} else {
			c.logger.WithField(logger.FieldStorageKey, thumbnailKey).WithError(err).Warn("Failed to presign thumbnail")
		}
	}
	return post
}
