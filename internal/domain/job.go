package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// PostType distinguishes single-video posts from image-gallery posts.
type PostType string

const (
	PostTypeVideo PostType = "Video"
	PostTypeImage PostType = "Image"
)

// JobStatus represents the lifecycle state of an upload job.
// Transitions are monotonic: Queued -> Processing -> {Completed, Failed}.
type JobStatus string

const (
	JobStatusQueued     JobStatus = "Queued"
	JobStatusProcessing JobStatus = "Processing"
	JobStatusCompleted  JobStatus = "Completed"
	JobStatusFailed     JobStatus = "Failed"
)

// IsTerminal reports whether the status admits no further transitions.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// StringArray is a custom type for storing string arrays as JSON in the database.
type StringArray []string

// Value implements the driver.Valuer interface for database serialization.
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
func (a *StringArray) Scan(value interface{}) error {
	if value == nil {
		*a = StringArray{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan StringArray")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, a)
}

// UploadJob is the ledger record tracking one enqueued ingestion request
// end-to-end. StorageKey is the primary artifact key, assigned once at
// enqueue time and never mutated. ImageKeys is populated only for
// image-gallery posts and its order is a hard contract: the first key is
// the gallery thumbnail.
type UploadJob struct {
	ID               uint        `gorm:"primaryKey" json:"id"`
	JobID            string      `gorm:"type:text;not null;uniqueIndex:idx_upload_jobs_job_id" json:"job_id"`
	StorageKey       string      `gorm:"type:text;not null;uniqueIndex:idx_upload_jobs_storage_key" json:"storage_key"`
	OriginalFileName string      `gorm:"type:text;not null" json:"original_file_name"`
	PostType         PostType    `gorm:"type:text;not null;default:Video" json:"post_type"`
	Folder           string      `gorm:"type:text;not null;index:idx_upload_jobs_folder" json:"folder"`
	Description      string      `gorm:"type:text" json:"description,omitempty"`
	Status           JobStatus   `gorm:"type:text;not null;default:Queued" json:"status"`
	StartTime        time.Time   `json:"start_time"`
	CompletionTime   *time.Time  `json:"completion_time,omitempty"`
	IsSuccessful     bool        `gorm:"index:idx_upload_jobs_successful" json:"is_successful"`
	ErrorMessage     string      `gorm:"type:text" json:"error_message,omitempty"`
	DurationSeconds  float64     `json:"duration_seconds"`
	ViewCount        int64       `gorm:"default:0" json:"view_count"`
	ImageKeys        StringArray `gorm:"type:text" json:"image_keys"`
}

// TableName returns the database table name for UploadJob.
func (UploadJob) TableName() string {
	return "upload_jobs"
}
