package service

import (
	"fmt"
	"regexp"
	"strings"
	"testing"
	"time"
)

func TestGenerateStorageKey(t *testing.T) {
	key := GenerateStorageKey("drama", ".mp4")

	now := time.Now().UTC()
	datePrefix := fmt.Sprintf("%d_%d_%d", now.Year(), int(now.Month()), now.Day())

	pattern := regexp.MustCompile(`^drama/drama_` + datePrefix + `_[0-9a-f]{8}\.mp4$`)
	if !pattern.MatchString(key) {
		t.Errorf("key %q does not match expected shape", key)
	}
}

func TestGenerateStorageKeyUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		key := GenerateStorageKey("drama", ".mp4")
		if seen[key] {
			t.Fatalf("duplicate key generated: %s", key)
		}
		seen[key] = true
	}
}

func TestNewVideoKeys(t *testing.T) {
	videoKey, thumbnailKey := NewVideoKeys("comedy")

	if !strings.HasSuffix(videoKey, ".mp4") {
		t.Errorf("video key %q must end in .mp4", videoKey)
	}
	if !strings.HasPrefix(videoKey, "comedy/comedy_") {
		t.Errorf("video key %q must live under its folder", videoKey)
	}
	if thumbnailKey != KeyStem(videoKey)+".png" {
		t.Errorf("thumbnail key %q must share the video key stem, got stem %q", thumbnailKey, KeyStem(videoKey))
	}
}

func TestGalleryKeys(t *testing.T) {
	primary := NewGalleryPrimaryKey("memes")

	if !strings.HasSuffix(primary, "_post") {
		t.Errorf("gallery primary key %q must end in _post", primary)
	}
	if strings.Contains(primary, ".") {
		t.Errorf("gallery primary key %q must carry no extension", primary)
	}

	for i := 0; i < 3; i++ {
		want := fmt.Sprintf("%s_%d.jpg", primary, i+1)
		if got := GalleryImageKey(primary, i); got != want {
			t.Errorf("image key for index %d: expected %q, got %q", i, want, got)
		}
	}
}

func TestKeyStem(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"drama/drama_2026_1_2_abcd1234.mp4", "drama/drama_2026_1_2_abcd1234"},
		{"drama/drama_2026_1_2_abcd1234_post", "drama/drama_2026_1_2_abcd1234_post"},
		{"no-extension", "no-extension"},
	}

	for _, tt := range tests {
		if got := KeyStem(tt.key); got != tt.want {
			t.Errorf("KeyStem(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestThumbnailCandidates(t *testing.T) {
	png, jpg := ThumbnailCandidates("drama/drama_2026_1_2_abcd1234.mp4")

	if png != "drama/drama_2026_1_2_abcd1234.png" {
		t.Errorf("unexpected png candidate %q", png)
	}
	if jpg != "drama/drama_2026_1_2_abcd1234.jpg" {
		t.Errorf("unexpected jpg candidate %q", jpg)
	}
}
