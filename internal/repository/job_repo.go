package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/timmy/mediahub/internal/domain"
	"gorm.io/gorm"
)

// JobRepository is the upload job ledger. Every method opens its own unit of
// work; no transaction spans the ingestion pipeline.
type JobRepository struct {
	db *gorm.DB
}

// NewJobRepository creates a new JobRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *JobRepository: repository instance bound to db.
func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

// CreateJob inserts a new ledger row in the Queued state with StartTime set
// to now. Returns domain.ErrDuplicateStorageKey if the storage key is
// already taken.
func (r *JobRepository) CreateJob(ctx context.Context, jobID, storageKey, originalFileName, folder string, postType domain.PostType, description string) (*domain.UploadJob, error) {
	job := &domain.UploadJob{
		JobID:            jobID,
		StorageKey:       storageKey,
		OriginalFileName: originalFileName,
		Folder:           folder,
		PostType:         postType,
		Description:      description,
		Status:           domain.JobStatusQueued,
		StartTime:        time.Now().UTC(),
	}
	if err := r.db.WithContext(ctx).Create(job).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, domain.ErrDuplicateStorageKey
		}
		return nil, fmt.Errorf("failed to create upload job: %w", err)
	}
	return job, nil
}

// UpdateStatus transitions a job to the given status. Unknown job ids are a
// benign no-op: a crash-restarted pipeline must not fail its status updater.
// Terminal statuses stamp CompletionTime and IsSuccessful; a repeated update
// with the same terminal status is idempotent, and transitions out of a
// terminal state are ignored.
func (r *JobRepository) UpdateStatus(ctx context.Context, jobID string, status domain.JobStatus, errorMessage string) error {
	var job domain.UploadJob
	if err := r.db.WithContext(ctx).First(&job, "job_id = ?", jobID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("failed to load job %s: %w", jobID, err)
	}

	if job.Status.IsTerminal() && job.Status != status {
		return nil
	}

	job.Status = status
	if status.IsTerminal() {
		now := time.Now().UTC()
		job.CompletionTime = &now
		job.IsSuccessful = status == domain.JobStatusCompleted
		job.ErrorMessage = errorMessage
	}
	return r.db.WithContext(ctx).Save(&job).Error
}

// UpdateDuration records the probed media duration. No-op for unknown ids.
func (r *JobRepository) UpdateDuration(ctx context.Context, jobID string, duration time.Duration) error {
	res := r.db.WithContext(ctx).Model(&domain.UploadJob{}).
		Where("job_id = ?", jobID).
		Update("duration_seconds", duration.Seconds())
	return res.Error
}

// UpdateImageKeys persists the ordered gallery key list. No-op for unknown ids.
func (r *JobRepository) UpdateImageKeys(ctx context.Context, jobID string, keys []string) error {
	res := r.db.WithContext(ctx).Model(&domain.UploadJob{}).
		Where("job_id = ?", jobID).
		Update("image_keys", domain.StringArray(keys))
	return res.Error
}

// IncrementViewCount bumps the monotonic view counter by one. The increment
// happens SQL-side so concurrent views never lose updates.
func (r *JobRepository) IncrementViewCount(ctx context.Context, jobID string) error {
	res := r.db.WithContext(ctx).Model(&domain.UploadJob{}).
		Where("job_id = ?", jobID).
		Update("view_count", gorm.Expr("view_count + 1"))
	return res.Error
}

// GetByJobID retrieves a job by its scheduler-assigned id.
func (r *JobRepository) GetByJobID(ctx context.Context, jobID string) (*domain.UploadJob, error) {
	var job domain.UploadJob
	if err := r.db.WithContext(ctx).First(&job, "job_id = ?", jobID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &job, nil
}

// GetByStorageKey retrieves a job by its primary artifact key.
func (r *JobRepository) GetByStorageKey(ctx context.Context, storageKey string) (*domain.UploadJob, error) {
	var job domain.UploadJob
	if err := r.db.WithContext(ctx).First(&job, "storage_key = ?", storageKey).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &job, nil
}

// Delete removes the ledger row for a storage key. Only the deletion
// reconciliation path calls this, after storage cleanup is confirmed.
func (r *JobRepository) Delete(ctx context.Context, storageKey string) error {
	return r.db.WithContext(ctx).Delete(&domain.UploadJob{}, "storage_key = ?", storageKey).Error
}

// PostFilter describes a catalog query over published jobs.
type PostFilter struct {
	Folder     string // optional category folder
	SearchText string // optional substring over filename/folder
	SortBy     string // newest, oldest, mostviewed
	Page       int    // 1-based
	PageSize   int
}

// ListPosts queries successfully ingested jobs with optional folder and
// substring filters, sorted and paginated. The returned count reflects the
// filtered set before pagination.
func (r *JobRepository) ListPosts(ctx context.Context, filter PostFilter) ([]domain.UploadJob, int64, error) {
	query := r.db.WithContext(ctx).Model(&domain.UploadJob{}).
		Where("is_successful = ?", true)

	if filter.Folder != "" {
		query = query.Where("folder = ?", filter.Folder)
	}
	if filter.SearchText != "" {
		pattern := "%" + filter.SearchText + "%"
		query = query.Where("original_file_name LIKE ? OR folder LIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count posts: %w", err)
	}

	// Ties break on row order
	switch filter.SortBy {
	case domain.SortOldest:
		query = query.Order("start_time ASC, id ASC")
	case domain.SortMostViewed:
		query = query.Order("view_count DESC, id ASC")
	default:
		query = query.Order("start_time DESC, id ASC")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	if filter.PageSize > 0 {
		query = query.Offset((page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var jobs []domain.UploadJob
	if err := query.Find(&jobs).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list posts: %w", err)
	}
	return jobs, total, nil
}

// ListRecentJobs returns the most recently started jobs regardless of
// status, for the admin uploads screen.
func (r *JobRepository) ListRecentJobs(ctx context.Context, limit int) ([]domain.UploadJob, error) {
	var jobs []domain.UploadJob
	if err := r.db.WithContext(ctx).
		Order("start_time DESC, id DESC").
		Limit(limit).
		Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}
