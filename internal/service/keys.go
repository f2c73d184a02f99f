package service

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Key naming is part of the storage contract: thumbnail and gallery
// resolution re-derive keys from these conventions across restarts, so the
// exact shapes below must not change.
//
//	video key:     <folder>/<folder>_<yyyy_M_d>_<8-char id>.mp4
//	thumbnail key: same stem with .png (or .jpg)
//	gallery stem:  <folder>/<folder>_<yyyy_M_d>_<8-char id>_post
//	gallery keys:  <stem>_<n>.jpg, n starting at 1

// GenerateStorageKey allocates a unique key under folder with the given
// suffix. The date segment uses no zero padding.
func GenerateStorageKey(folder, suffix string) string {
	now := time.Now().UTC()
	datePrefix := fmt.Sprintf("%d_%d_%d", now.Year(), int(now.Month()), now.Day())
	uniqueID := uuid.New().String()[:8]

	return fmt.Sprintf("%s/%s_%s_%s%s", folder, folder, datePrefix, uniqueID, suffix)
}

// NewVideoKeys allocates the primary video key and its thumbnail key. Both
// are derived once, at enqueue time.
func NewVideoKeys(folder string) (videoKey, thumbnailKey string) {
	videoKey = GenerateStorageKey(folder, ".mp4")
	thumbnailKey = KeyStem(videoKey) + ".png"
	return videoKey, thumbnailKey
}

// NewGalleryPrimaryKey allocates the primary key stem for an image-gallery
// post. The _post suffix carries no extension; individual image keys hang
// off this stem.
func NewGalleryPrimaryKey(folder string) string {
	return GenerateStorageKey(folder, "_post")
}

// GalleryImageKey returns the key for the (index+1)-th image of a gallery.
func GalleryImageKey(primaryKey string, index int) string {
	return fmt.Sprintf("%s_%d.jpg", KeyStem(primaryKey), index+1)
}

// KeyStem strips the extension from a storage key, if any.
func KeyStem(key string) string {
	return strings.TrimSuffix(key, path.Ext(key))
}

// ThumbnailCandidates returns the candidate thumbnail keys for a video key,
// in preference order: .png first, then .jpg.
func ThumbnailCandidates(videoKey string) (png, jpg string) {
	stem := KeyStem(videoKey)
	return stem + ".png", stem + ".jpg"
}
