package service

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/timmy/mediahub/internal/config"
	"github.com/timmy/mediahub/internal/logger"
	"github.com/timmy/mediahub/internal/repository"
	"github.com/timmy/mediahub/internal/storage"
)

func newTestLogger() *logger.Logger {
	return logger.New(&logger.Config{Level: "error", Format: "text", Output: io.Discard})
}

func newTestRepo(t *testing.T) *repository.JobRepository {
	t.Helper()

	db, err := repository.InitDB(&config.DatabaseConfig{
		Driver:      "sqlite",
		Path:        t.TempDir() + "/ledger.db",
		AutoMigrate: true,
	})
	if err != nil {
		t.Fatalf("failed to init test database: %v", err)
	}
	return repository.NewJobRepository(db)
}

// fakeStore is an in-memory ObjectStore recording upload and delete order.
type fakeStore struct {
	mu      sync.Mutex
	objects map[string]struct{}
	uploads []string // keys in upload order
	deleted []string // keys in delete order

	failUploadKey string // UploadFile of this key fails
	failDelete    bool   // BatchDelete fails without deleting anything
	failList      bool   // List fails
}

func newFakeStore(keys ...string) *fakeStore {
	s := &fakeStore{objects: make(map[string]struct{})}
	for _, k := range keys {
		s.objects[k] = struct{}{}
	}
	return s
}

func (s *fakeStore) List(ctx context.Context, prefix, delimiter string) (*storage.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failList {
		return nil, errors.New("listing unavailable")
	}

	listing := &storage.Listing{}
	seenPrefixes := make(map[string]struct{})
	for key := range s.objects {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		rest := key[len(prefix):]
		if delimiter != "" {
			if idx := strings.Index(rest, delimiter); idx >= 0 {
				p := prefix + rest[:idx+len(delimiter)]
				if _, ok := seenPrefixes[p]; !ok {
					seenPrefixes[p] = struct{}{}
					listing.CommonPrefixes = append(listing.CommonPrefixes, p)
				}
				continue
			}
		}
		listing.Keys = append(listing.Keys, key)
	}
	sort.Strings(listing.Keys)
	sort.Strings(listing.CommonPrefixes)
	return listing, nil
}

func (s *fakeStore) UploadFile(ctx context.Context, localPath, key, contentType string, progress storage.ProgressFunc) error {
	if _, err := os.Stat(localPath); err != nil {
		return fmt.Errorf("local file missing: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if key == s.failUploadKey {
		return errors.New("upload refused")
	}

	s.objects[key] = struct{}{}
	s.uploads = append(s.uploads, key)
	if progress != nil {
		progress(100)
	}
	return nil
}

func (s *fakeStore) Presign(key string, ttl time.Duration) (string, error) {
	return "https://signed.test/" + key, nil
}

func (s *fakeStore) BatchDelete(ctx context.Context, keys []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failDelete {
		return errors.New("delete refused")
	}
	for _, key := range keys {
		delete(s.objects, key)
		s.deleted = append(s.deleted, key)
	}
	return nil
}

func (s *fakeStore) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok, nil
}

func (s *fakeStore) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok
}

// fakeInspector returns a fixed duration and writes real 1x1 PNG frames.
type fakeInspector struct {
	duration    time.Duration
	failProbe   error
	failExtract error

	framePath string // last extracted frame
}

func (i *fakeInspector) Probe(ctx context.Context, path string) (time.Duration, error) {
	if i.failProbe != nil {
		return 0, i.failProbe
	}
	return i.duration, nil
}

func (i *fakeInspector) ExtractFrame(ctx context.Context, path string, offset time.Duration) (string, error) {
	if i.failExtract != nil {
		return "", i.failExtract
	}

	f, err := os.CreateTemp("", "frame-*.png")
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := png.Encode(f, image.NewRGBA(image.Rect(0, 0, 1, 1))); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	i.framePath = f.Name()
	return f.Name(), nil
}

// fakeNotifier records every broadcast in order.
type fakeNotifier struct {
	mu     sync.Mutex
	events []notifyEvent
}

type notifyEvent struct {
	jobID   string
	status  string
	percent int
}

func (n *fakeNotifier) Broadcast(ctx context.Context, jobID, status string, percent int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, notifyEvent{jobID: jobID, status: status, percent: percent})
	return nil
}

func (n *fakeNotifier) last() (notifyEvent, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.events) == 0 {
		return notifyEvent{}, false
	}
	return n.events[len(n.events)-1], true
}

// writeTempFile creates a throwaway file owned by the pipeline under test.
func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()

	f, err := os.CreateTemp("", name)
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })
	return f.Name()
}
