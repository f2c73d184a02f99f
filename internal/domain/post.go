package domain

import "time"

// Sort orders accepted by catalog queries.
const (
	SortNewest     = "newest"
	SortOldest     = "oldest"
	SortMostViewed = "mostviewed"
)

// Post is the catalog's view of a successfully ingested job, merged with
// resolved presentation data. It is recomputed on every query and never
// cached across requests.
type Post struct {
	StorageKey      string    `json:"storage_key"`
	Title           string    `json:"title"`
	Description     string    `json:"description,omitempty"`
	Folder          string    `json:"folder"`
	FolderDisplay   string    `json:"folder_display"`
	PostType        PostType  `json:"post_type"`
	PublishedAt     time.Time `json:"published_at"`
	ViewCount       int64     `json:"view_count"`
	DurationSeconds float64   `json:"duration_seconds,omitempty"`
	ThumbnailURL    string    `json:"thumbnail_url,omitempty"`
	ImageURLs       []string  `json:"image_urls,omitempty"`
}

// PostPage is one page of catalog results. TotalCount reflects the full
// filtered set, not the page.
type PostPage struct {
	Items      []Post `json:"items"`
	TotalCount int64  `json:"total_count"`
	Page       int    `json:"page"`
	PageSize   int    `json:"page_size"`
}

// Category is one top-level storage prefix with its video count.
type Category struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	ItemCount   int    `json:"item_count"`
}
