package handler

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/timmy/mediahub/internal/api/middleware"
	"github.com/timmy/mediahub/internal/domain"
	"github.com/timmy/mediahub/internal/repository"
	"github.com/timmy/mediahub/internal/scheduler"
	"github.com/timmy/mediahub/internal/service"
)

// AdminHandler serves upload intake, job tracking, and post deletion.
// Authentication is assumed to happen upstream.
type AdminHandler struct {
	ledger  *repository.JobRepository
	catalog *service.CatalogService
	sched   *scheduler.Scheduler
	tempDir string
}

// NewAdminHandler creates a new admin handler. tempDir may be empty to use
// the system temp directory for durable upload copies.
func NewAdminHandler(ledger *repository.JobRepository, catalog *service.CatalogService, sched *scheduler.Scheduler, tempDir string) *AdminHandler {
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &AdminHandler{
		ledger:  ledger,
		catalog: catalog,
		sched:   sched,
		tempDir: tempDir,
	}
}

// Upload handles POST /api/v1/admin/upload. Validation failures are
// rejected here, before any job is created.
func (h *AdminHandler) Upload(c *gin.Context) {
	folder := c.PostForm("folder")
	postType := c.PostForm("post_type")
	description := c.PostForm("description")

	if folder == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "a category folder is required"})
		return
	}

	switch domain.PostType(postType) {
	case domain.PostTypeVideo:
		h.handleVideoUpload(c, folder, description)
	case domain.PostTypeImage:
		h.handleImageUpload(c, folder, description)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid post type"})
	}
}

func (h *AdminHandler) handleVideoUpload(c *gin.Context, folder, description string) {
	file, err := c.FormFile("video")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "a video file is required for a video post"})
		return
	}

	tempVideoPath, err := h.saveTempFile(c, file)
	if err != nil {
		middleware.GetLogger(c).WithError(err).Error("Failed to store uploaded video")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "failed to store upload"})
		return
	}

	videoKey, thumbnailKey := service.NewVideoKeys(folder)

	jobID, err := h.sched.Enqueue(service.JobKindVideo, service.VideoJobArgs{
		TempVideoPath: tempVideoPath,
		VideoKey:      videoKey,
		ThumbnailKey:  thumbnailKey,
	})
	if err != nil {
		os.Remove(tempVideoPath)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "failed to queue job"})
		return
	}

	if _, err := h.ledger.CreateJob(c.Request.Context(), jobID, videoKey, file.Filename, folder, domain.PostTypeVideo, description); err != nil {
		middleware.GetLogger(c).WithError(err).Error("Failed to create upload job record")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "failed to record job"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": fmt.Sprintf("video post %q has been queued", file.Filename),
		"job_id":  jobID,
	})
}

func (h *AdminHandler) handleImageUpload(c *gin.Context, folder, description string) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid multipart form"})
		return
	}
	images := form.File["images"]
	if len(images) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "at least one image is required for an image gallery post"})
		return
	}

	// Durable local copies, in submission order
	tempPaths := make([]string, 0, len(images))
	cleanup := func() {
		for _, p := range tempPaths {
			os.Remove(p)
		}
	}
	for _, image := range images {
		tempPath, err := h.saveTempFile(c, image)
		if err != nil {
			cleanup()
			middleware.GetLogger(c).WithError(err).Error("Failed to store uploaded image")
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "failed to store upload"})
			return
		}
		tempPaths = append(tempPaths, tempPath)
	}

	primaryKey := service.NewGalleryPrimaryKey(folder)

	jobID, err := h.sched.Enqueue(service.JobKindImage, service.ImageJobArgs{
		TempImagePaths: tempPaths,
		Folder:         folder,
		PrimaryKey:     primaryKey,
	})
	if err != nil {
		cleanup()
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "failed to queue job"})
		return
	}

	if _, err := h.ledger.CreateJob(c.Request.Context(), jobID, primaryKey, images[0].Filename, folder, domain.PostTypeImage, description); err != nil {
		middleware.GetLogger(c).WithError(err).Error("Failed to create upload job record")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "failed to record job"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "image gallery post has been queued",
		"job_id":  jobID,
	})
}

// ListJobs handles GET /api/v1/admin/jobs.
func (h *AdminHandler) ListJobs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	jobs, err := h.ledger.ListRecentJobs(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list jobs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

// GetJob handles GET /api/v1/admin/jobs/:id.
func (h *AdminHandler) GetJob(c *gin.Context) {
	job, err := h.ledger.GetByJobID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load job"})
		return
	}

	c.JSON(http.StatusOK, job)
}

// DeletePost handles DELETE /api/v1/admin/posts. The ledger row survives
// unless storage deletion succeeded.
func (h *AdminHandler) DeletePost(c *gin.Context) {
	key := c.Query("key")
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "key is required"})
		return
	}

	if err := h.catalog.DeletePost(c.Request.Context(), key); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "could not find the post to delete"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "failed to delete files from storage; the database record was not removed",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// saveTempFile writes an uploaded file to a durable local copy owned by the
// pipeline from here on.
func (h *AdminHandler) saveTempFile(c *gin.Context, file *multipart.FileHeader) (string, error) {
	tempPath := filepath.Join(h.tempDir, "upload-"+uuid.New().String()+filepath.Ext(file.Filename))
	if err := c.SaveUploadedFile(file, tempPath); err != nil {
		return "", fmt.Errorf("failed to save upload to %s: %w", tempPath, err)
	}
	return tempPath, nil
}
