package service

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"time"

	_ "golang.org/x/image/webp"

	"github.com/timmy/mediahub/internal/domain"
	"github.com/timmy/mediahub/internal/logger"
	"github.com/timmy/mediahub/internal/mediainspect"
	"github.com/timmy/mediahub/internal/notify"
	"github.com/timmy/mediahub/internal/repository"
	"github.com/timmy/mediahub/internal/scheduler"
	"github.com/timmy/mediahub/internal/storage"
)

// Job descriptor kinds handled by the ingestion pipeline.
const (
	JobKindVideo = "video.process"
	JobKindImage = "image.process"
)

// VideoJobArgs are the serialized arguments of a video ingestion job. Keys
// are allocated at enqueue time and never recomputed mid-pipeline.
type VideoJobArgs struct {
	TempVideoPath string `json:"temp_video_path"`
	VideoKey      string `json:"video_key"`
	ThumbnailKey  string `json:"thumbnail_key"`
}

// ImageJobArgs are the serialized arguments of an image-gallery job. The
// path order is the submission order and determines the gallery key order.
type ImageJobArgs struct {
	TempImagePaths []string `json:"temp_image_paths"`
	Folder         string   `json:"folder"`
	PrimaryKey     string   `json:"primary_key"`
}

// IngestService drives the per-job ingestion state machine:
// Queued -> Processing -> {Completed, Failed}. It is reentrant per job and
// keeps no state between invocations besides the ledger. Failures are not
// retried here; they are recorded and re-raised to the scheduler.
type IngestService struct {
	ledger          *repository.JobRepository
	store           storage.ObjectStore
	inspector       mediainspect.Inspector
	notifier        notify.Notifier
	logger          *logger.Logger
	thumbnailOffset time.Duration
}

// NewIngestService creates the ingestion pipeline.
func NewIngestService(
	ledger *repository.JobRepository,
	store storage.ObjectStore,
	inspector mediainspect.Inspector,
	notifier notify.Notifier,
	log *logger.Logger,
	thumbnailOffset time.Duration,
) *IngestService {
	if thumbnailOffset <= 0 {
		thumbnailOffset = 8 * time.Second
	}
	return &IngestService{
		ledger:          ledger,
		store:           store,
		inspector:       inspector,
		notifier:        notifier,
		logger:          log,
		thumbnailOffset: thumbnailOffset,
	}
}

// RegisterHandlers binds the pipeline's job kinds on the scheduler.
func (s *IngestService) RegisterHandlers(sched *scheduler.Scheduler) {
	sched.Register(JobKindVideo, func(ctx context.Context, jobID string, raw json.RawMessage) error {
		var args VideoJobArgs
		if err := json.Unmarshal(raw, &args); err != nil {
			return fmt.Errorf("bad video job arguments: %w", err)
		}
		return s.ProcessVideo(ctx, jobID, args)
	})
	sched.Register(JobKindImage, func(ctx context.Context, jobID string, raw json.RawMessage) error {
		var args ImageJobArgs
		if err := json.Unmarshal(raw, &args); err != nil {
			return fmt.Errorf("bad image job arguments: %w", err)
		}
		return s.ProcessImages(ctx, jobID, args)
	})
}

// log returns a logger from context if available, otherwise the service logger.
func (s *IngestService) log(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != nil {
		return l
	}
	return s.logger
}

// ProcessVideo ingests one video post: probe duration, extract a thumbnail
// frame, upload thumbnail then video, record duration, mark Completed. Any
// step failure records the error, marks the job Failed, and re-raises to
// the scheduler. Temporary files are removed on every exit path.
func (s *IngestService) ProcessVideo(ctx context.Context, jobID string, args VideoJobArgs) error {
	log := s.log(ctx).WithFields(logger.Fields{
		logger.FieldJobID:      jobID,
		logger.FieldStorageKey: args.VideoKey,
	})

	thumbPath := ""
	defer func() {
		removeIfExists(args.TempVideoPath)
		removeIfExists(thumbPath)
	}()

	if err := s.ledger.UpdateStatus(ctx, jobID, domain.JobStatusProcessing, ""); err != nil {
		return s.fail(ctx, jobID, log, fmt.Errorf("failed to mark job processing: %w", err))
	}
	s.broadcast(ctx, jobID, domain.JobStatusProcessing, 0)

	duration, err := s.inspector.Probe(ctx, args.TempVideoPath)
	if err != nil {
		return s.fail(ctx, jobID, log, err)
	}
	if err := s.ledger.UpdateDuration(ctx, jobID, duration); err != nil {
		return s.fail(ctx, jobID, log, fmt.Errorf("failed to record duration: %w", err))
	}

	thumbPath, err = s.inspector.ExtractFrame(ctx, args.TempVideoPath, s.thumbnailOffset)
	if err != nil {
		return s.fail(ctx, jobID, log, err)
	}
	if err := validateImageFile(thumbPath); err != nil {
		return s.fail(ctx, jobID, log, err)
	}

	// Thumbnail first: by the time the post becomes listable its
	// thumbnail keys are already written.
	if err := s.store.UploadFile(ctx, thumbPath, args.ThumbnailKey, "image/png", nil); err != nil {
		return s.fail(ctx, jobID, log, err)
	}

	if err := s.store.UploadFile(ctx, args.TempVideoPath, args.VideoKey, "video/mp4", s.progressReporter(ctx, jobID)); err != nil {
		return s.fail(ctx, jobID, log, err)
	}

	if err := s.ledger.UpdateStatus(ctx, jobID, domain.JobStatusCompleted, ""); err != nil {
		return s.fail(ctx, jobID, log, fmt.Errorf("failed to mark job completed: %w", err))
	}
	s.broadcast(ctx, jobID, domain.JobStatusCompleted, 100)

	log.WithField("duration", duration.String()).Info("Video post ingested")
	return nil
}

// ProcessImages ingests one image-gallery post. Uploads run sequentially in
// submission order; the resulting key order is a hard contract because the
// first key doubles as the gallery thumbnail.
func (s *IngestService) ProcessImages(ctx context.Context, jobID string, args ImageJobArgs) error {
	log := s.log(ctx).WithFields(logger.Fields{
		logger.FieldJobID:      jobID,
		logger.FieldStorageKey: args.PrimaryKey,
	})

	defer func() {
		for _, p := range args.TempImagePaths {
			removeIfExists(p)
		}
	}()

	if err := s.ledger.UpdateStatus(ctx, jobID, domain.JobStatusProcessing, ""); err != nil {
		return s.fail(ctx, jobID, log, fmt.Errorf("failed to mark job processing: %w", err))
	}
	s.broadcast(ctx, jobID, domain.JobStatusProcessing, 0)

	uploadedKeys := make([]string, 0, len(args.TempImagePaths))
	for i, tempPath := range args.TempImagePaths {
		imageKey := GalleryImageKey(args.PrimaryKey, i)

		if err := s.store.UploadFile(ctx, tempPath, imageKey, "image/jpeg", nil); err != nil {
			return s.fail(ctx, jobID, log, err)
		}
		uploadedKeys = append(uploadedKeys, imageKey)

		percent := (i + 1) * 100 / len(args.TempImagePaths)
		s.broadcast(ctx, jobID, domain.JobStatusProcessing, percent)
	}

	if err := s.ledger.UpdateImageKeys(ctx, jobID, uploadedKeys); err != nil {
		return s.fail(ctx, jobID, log, fmt.Errorf("failed to record image keys: %w", err))
	}

	if err := s.ledger.UpdateStatus(ctx, jobID, domain.JobStatusCompleted, ""); err != nil {
		return s.fail(ctx, jobID, log, fmt.Errorf("failed to mark job completed: %w", err))
	}
	s.broadcast(ctx, jobID, domain.JobStatusCompleted, 100)

	log.WithField(logger.FieldCount, len(uploadedKeys)).Info("Image gallery ingested")
	return nil
}

// fail records the error on the ledger, notifies observers, and re-raises.
func (s *IngestService) fail(ctx context.Context, jobID string, log *logger.Logger, cause error) error {
	log.WithError(cause).Error("Ingestion step failed")

	if err := s.ledger.UpdateStatus(ctx, jobID, domain.JobStatusFailed, cause.Error()); err != nil {
		log.WithError(err).Error("Failed to record job failure")
	}
	s.broadcast(ctx, jobID, domain.JobStatusFailed, 0)
	return cause
}

// broadcast sends a progress event; delivery failures are logged by the
// notifier and never affect the pipeline.
func (s *IngestService) broadcast(ctx context.Context, jobID string, status domain.JobStatus, percent int) {
	_ = s.notifier.Broadcast(ctx, jobID, string(status), percent)
}

// progressReporter forwards coarse upload progress to observers, one event
// per 25% milestone.
func (s *IngestService) progressReporter(ctx context.Context, jobID string) storage.ProgressFunc {
	lastMilestone := 0
	return func(percent float64) {
		milestone := int(percent) / 25 * 25
		if milestone > lastMilestone {
			lastMilestone = milestone
			s.broadcast(ctx, jobID, domain.JobStatusProcessing, milestone)
		}
	}
}

// validateImageFile confirms the extracted frame decodes as an image before
// it is published as a thumbnail.
func validateImageFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open thumbnail %s: %w", path, err)
	}
	defer f.Close()

	if _, _, err := image.DecodeConfig(f); err != nil {
		return fmt.Errorf("extracted thumbnail is not a valid image: %w", err)
	}
	return nil
}

// removeIfExists deletes a temporary file, tolerating files already gone.
func removeIfExists(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.GetDefault().WithField("path", path).WithError(err).Warn("Failed to remove temp file")
	}
}
