package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/timmy/mediahub/internal/domain"
	"github.com/timmy/mediahub/internal/repository"
)

type catalogHarness struct {
	repo    *repository.JobRepository
	store   *fakeStore
	catalog *CatalogService
}

func newCatalogHarness(t *testing.T, keys ...string) *catalogHarness {
	t.Helper()

	h := &catalogHarness{
		repo:  newTestRepo(t),
		store: newFakeStore(keys...),
	}
	h.catalog = NewCatalogService(h.repo, h.store, newTestLogger(), CatalogConfig{})
	return h
}

// seedVideoPost creates a completed video post in the ledger.
func (h *catalogHarness) seedVideoPost(t *testing.T, jobID, storageKey, name, folder string) {
	t.Helper()
	ctx := context.Background()

	if _, err := h.repo.CreateJob(ctx, jobID, storageKey, name, folder, domain.PostTypeVideo, ""); err != nil {
		t.Fatalf("failed to seed job %s: %v", jobID, err)
	}
	if err := h.repo.UpdateStatus(ctx, jobID, domain.JobStatusCompleted, ""); err != nil {
		t.Fatalf("failed to complete job %s: %v", jobID, err)
	}
}

func (h *catalogHarness) seedGalleryPost(t *testing.T, jobID, primaryKey, folder string, imageKeys []string) {
	t.Helper()
	ctx := context.Background()

	if _, err := h.repo.CreateJob(ctx, jobID, primaryKey, "gallery.jpg", folder, domain.PostTypeImage, ""); err != nil {
		t.Fatalf("failed to seed job %s: %v", jobID, err)
	}
	if err := h.repo.UpdateImageKeys(ctx, jobID, imageKeys); err != nil {
		t.Fatalf("failed to record image keys for %s: %v", jobID, err)
	}
	if err := h.repo.UpdateStatus(ctx, jobID, domain.JobStatusCompleted, ""); err != nil {
		t.Fatalf("failed to complete job %s: %v", jobID, err)
	}
}

func TestListPostsThumbnailResolution(t *testing.T) {
	tests := []struct {
		name        string
		storageKey  string
		liveKeys    []string
		wantThumbIn string // substring the thumbnail URL must contain, empty means no thumbnail
	}{
		{
			name:        "png preferred over jpg",
			storageKey:  "drama/v.mp4",
			liveKeys:    []string{"drama/v.mp4", "drama/v.png", "drama/v.jpg"},
			wantThumbIn: "drama/v.png",
		},
		{
			name:        "jpg fallback",
			storageKey:  "drama/v.mp4",
			liveKeys:    []string{"drama/v.mp4", "drama/v.jpg"},
			wantThumbIn: "drama/v.jpg",
		},
		{
			name:        "no thumbnail in storage",
			storageKey:  "drama/v.mp4",
			liveKeys:    []string{"drama/v.mp4"},
			wantThumbIn: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newCatalogHarness(t, tt.liveKeys...)
			h.seedVideoPost(t, "job-1", tt.storageKey, "v.mp4", "drama")

			page, err := h.catalog.ListPosts(context.Background(), "drama", "", "", 1, 10)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(page.Items) != 1 {
				t.Fatalf("expected 1 post, got %d", len(page.Items))
			}

			thumb := page.Items[0].ThumbnailURL
			if tt.wantThumbIn == "" {
				if thumb != "" {
					t.Errorf("expected no thumbnail, got %q", thumb)
				}
				return
			}
			if !strings.Contains(thumb, tt.wantThumbIn) {
				t.Errorf("expected thumbnail for %q, got %q", tt.wantThumbIn, thumb)
			}
		})
	}
}

func TestListPostsListingFailureDegrades(t *testing.T) {
	h := newCatalogHarness(t, "drama/v.mp4", "drama/v.png")
	h.seedVideoPost(t, "job-1", "drama/v.mp4", "v.mp4", "drama")
	h.store.failList = true

	page, err := h.catalog.ListPosts(context.Background(), "drama", "", "", 1, 10)
	if err != nil {
		t.Fatalf("a listing failure must not fail the page: %v", err)
	}
	if len(page.Items) != 1 {
		t.Fatalf("expected 1 post, got %d", len(page.Items))
	}
	if page.Items[0].ThumbnailURL != "" {
		t.Errorf("expected no thumbnail when listing is unavailable, got %q", page.Items[0].ThumbnailURL)
	}
}

func TestListPostsGallery(t *testing.T) {
	imageKeys := []string{"memes/m_post_1.jpg", "memes/m_post_2.jpg", "memes/m_post_3.jpg"}
	h := newCatalogHarness(t, imageKeys...)
	h.seedGalleryPost(t, "job-1", "memes/m_post", "memes", imageKeys)

	page, err := h.catalog.ListPosts(context.Background(), "memes", "", "", 1, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Items) != 1 {
		t.Fatalf("expected 1 post, got %d", len(page.Items))
	}

	post := page.Items[0]
	if len(post.ImageURLs) != 3 {
		t.Fatalf("expected 3 image URLs, got %v", post.ImageURLs)
	}
	for i, url := range post.ImageURLs {
		if !strings.Contains(url, imageKeys[i]) {
			t.Errorf("image URL %d: expected %q in %q", i, imageKeys[i], url)
		}
	}
	if !strings.Contains(post.ThumbnailURL, imageKeys[0]) {
		t.Errorf("gallery thumbnail must be the first image, got %q", post.ThumbnailURL)
	}
}

func TestListCategories(t *testing.T) {
	h := newCatalogHarness(t,
		"drama/a.mp4",
		"drama/a.png",
		"drama/b.mp4",
		"comedy/c.mp4",
		"comedy/c.MP4",
		"comedy/notes.txt",
	)

	categories := h.catalog.ListCategories(context.Background())
	if len(categories) != 2 {
		t.Fatalf("expected 2 categories, got %v", categories)
	}

	counts := make(map[string]int)
	for _, c := range categories {
		counts[c.Name] = c.ItemCount
	}
	// Extension matching is case-insensitive; non-video objects don't count
	if counts["drama"] != 2 {
		t.Errorf("expected 2 videos in drama, got %d", counts["drama"])
	}
	if counts["comedy"] != 2 {
		t.Errorf("expected 2 videos in comedy, got %d", counts["comedy"])
	}
}

func TestListCategoriesListingFailure(t *testing.T) {
	h := newCatalogHarness(t)
	h.store.failList = true

	categories := h.catalog.ListCategories(context.Background())
	if len(categories) != 0 {
		t.Errorf("expected an empty result on listing failure, got %v", categories)
	}
}

func TestListLatestAcrossCategories(t *testing.T) {
	h := newCatalogHarness(t, "drama/a.mp4", "comedy/b.mp4")

	h.seedVideoPost(t, "job-1", "drama/a.mp4", "a.mp4", "drama")
	time.Sleep(2 * time.Millisecond)
	h.seedVideoPost(t, "job-2", "comedy/b.mp4", "b.mp4", "comedy")

	posts, err := h.catalog.ListLatestAcrossCategories(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(posts) != 2 {
		t.Fatalf("expected 2 posts, got %d", len(posts))
	}
	if posts[0].StorageKey != "comedy/b.mp4" || posts[1].StorageKey != "drama/a.mp4" {
		t.Errorf("expected newest first across categories, got %s then %s", posts[0].StorageKey, posts[1].StorageKey)
	}

	posts, err = h.catalog.ListLatestAcrossCategories(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(posts) != 1 || posts[0].StorageKey != "comedy/b.mp4" {
		t.Errorf("expected only the newest post, got %v", posts)
	}
}

func TestDeletePostKeepsRowOnStorageFailure(t *testing.T) {
	h := newCatalogHarness(t, "drama/v.mp4", "drama/v.png")
	h.seedVideoPost(t, "job-1", "drama/v.mp4", "v.mp4", "drama")
	ctx := context.Background()

	h.store.failDelete = true
	if err := h.catalog.DeletePost(ctx, "drama/v.mp4"); err == nil {
		t.Fatal("expected the storage failure to surface")
	}

	// The ledger row survives a failed storage deletion
	if _, err := h.repo.GetByStorageKey(ctx, "drama/v.mp4"); err != nil {
		t.Fatalf("ledger row must survive a failed deletion: %v", err)
	}

	h.store.failDelete = false
	if err := h.catalog.DeletePost(ctx, "drama/v.mp4"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := h.repo.GetByStorageKey(ctx, "drama/v.mp4"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected the ledger row to be gone, got %v", err)
	}
	// Both thumbnail candidates are deleted speculatively
	want := map[string]bool{"drama/v.mp4": true, "drama/v.png": true, "drama/v.jpg": true}
	if len(h.store.deleted) != 3 {
		t.Fatalf("expected 3 deleted keys, got %v", h.store.deleted)
	}
	for _, key := range h.store.deleted {
		if !want[key] {
			t.Errorf("unexpected deleted key %q", key)
		}
	}
}

func TestDeletePostGallery(t *testing.T) {
	imageKeys := []string{"memes/m_post_1.jpg", "memes/m_post_2.jpg"}
	h := newCatalogHarness(t, imageKeys...)
	h.seedGalleryPost(t, "job-1", "memes/m_post", "memes", imageKeys)
	ctx := context.Background()

	if err := h.catalog.DeletePost(ctx, "memes/m_post"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(h.store.deleted) != 2 {
		t.Fatalf("expected exactly the gallery keys deleted, got %v", h.store.deleted)
	}
	for i, key := range h.store.deleted {
		if key != imageKeys[i] {
			t.Errorf("deleted key %d: expected %q, got %q", i, imageKeys[i], key)
		}
	}
	if _, err := h.repo.GetByStorageKey(ctx, "memes/m_post"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected the ledger row to be gone, got %v", err)
	}
}

func TestDeletePostUnknownKey(t *testing.T) {
	h := newCatalogHarness(t)

	err := h.catalog.DeletePost(context.Background(), "drama/missing.mp4")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestIncrementViewCountByStorageKey(t *testing.T) {
	h := newCatalogHarness(t)
	h.seedVideoPost(t, "job-1", "drama/v.mp4", "v.mp4", "drama")
	ctx := context.Background()

	if err := h.catalog.IncrementViewCount(ctx, "drama/v.mp4"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := h.catalog.IncrementViewCount(ctx, "drama/v.mp4"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	job, _ := h.repo.GetByStorageKey(ctx, "drama/v.mp4")
	if job.ViewCount != 2 {
		t.Errorf("expected view count 2, got %d", job.ViewCount)
	}

	if err := h.catalog.IncrementViewCount(ctx, "drama/missing.mp4"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound for an unknown key, got %v", err)
	}
}

func TestGetPresignedURL(t *testing.T) {
	h := newCatalogHarness(t, "drama/v.mp4")

	url, err := h.catalog.GetPresignedURL("drama/v.mp4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(url, "drama/v.mp4") {
		t.Errorf("unexpected presigned URL %q", url)
	}
}
