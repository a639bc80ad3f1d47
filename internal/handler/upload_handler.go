package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/yourorg/studio-media/internal/model"
	"github.com/yourorg/studio-media/internal/registry"
	"github.com/yourorg/studio-media/internal/service"
	"github.com/yourorg/studio-media/internal/staging"
	"github.com/yourorg/studio-media/internal/uploader"
)

// UploaderFactory builds fresh uploader instances per submission, so
// every job owns its selections and retry state
type UploaderFactory interface {
	NewImageUploader() *uploader.ImageUploader
	NewVideoUploader() *uploader.VideoUploader
}

// UploadHandler handles upload submissions and the job list
type UploadHandler struct {
	uploads   *service.UploadService
	registry  *registry.Registry
	spool     *staging.Spool
	uploaders UploaderFactory
	logger    *zap.Logger
}

// NewUploadHandler creates a new upload handler
func NewUploadHandler(uploads *service.UploadService, reg *registry.Registry, spool *staging.Spool, uploaders UploaderFactory, logger *zap.Logger) *UploadHandler {
	return &UploadHandler{
		uploads:   uploads,
		registry:  reg,
		spool:     spool,
		uploaders: uploaders,
		logger:    logger,
	}
}

// Submit starts an upload job for a post submission
// POST /api/v1/uploads
func (h *UploadHandler) Submit(c *gin.Context) {
	var req model.SubmitRequest
	if err := c.ShouldBind(&req); err != nil {
		h.logger.Warn("Failed to bind submit request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request parameters"})
		return
	}

	retained, err := parseRetainedMedia(c.PostForm("retained_media"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid retained_media payload"})
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		h.logger.Warn("Failed to parse multipart form", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse form data"})
		return
	}

	var staged []staging.StagedFile
	discard := func() { h.spool.Discard(staged...) }

	videoUp := h.uploaders.NewVideoUploader()
	imageUp := h.uploaders.NewImageUploader()

	// Stage and validate the single video slot
	if files := form.File["video"]; len(files) > 0 {
		file, err := h.spool.Stage(files[len(files)-1])
		if err != nil {
			h.logger.Error("Failed to stage video file", zap.Error(err))
			discard()
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store uploaded file"})
			return
		}
		staged = append(staged, file)

		if err := videoUp.SetFile(file); err != nil {
			discard()
			respondValidation(c, err)
			return
		}
	}

	// Stage and validate the image selection
	if files := form.File["images"]; len(files) > 0 {
		var images []staging.StagedFile
		for _, header := range files {
			file, err := h.spool.Stage(header)
			if err != nil {
				h.logger.Error("Failed to stage image file", zap.Error(err))
				discard()
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store uploaded file"})
				return
			}
			staged = append(staged, file)
			images = append(images, file)
		}

		if err := imageUp.SetFiles(images...); err != nil {
			discard()
			respondValidation(c, err)
			return
		}
	}

	if len(staged) == 0 && req.PostID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A new post needs at least one media file"})
		return
	}

	// The job outlives this request; staged files are dropped once it
	// settles either way
	jobID := h.uploads.StartJob(req, retained, videoUp, imageUp, func(error) {
		discard()
	})

	c.JSON(http.StatusAccepted, model.SubmitResponse{JobID: jobID})
}

// ListJobs returns the job registry snapshot, most recent first
// GET /api/v1/jobs
func (h *UploadHandler) ListJobs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"jobs": h.registry.Jobs()})
}

// DismissJob removes a job from the registry
// DELETE /api/v1/jobs/:id
func (h *UploadHandler) DismissJob(c *gin.Context) {
	h.registry.Remove(c.Param("id"))
	c.Status(http.StatusNoContent)
}

var validate = validator.New()

func parseRetainedMedia(raw string) ([]model.MediaAsset, error) {
	if raw == "" {
		return nil, nil
	}
	var media []model.MediaAsset
	if err := json.Unmarshal([]byte(raw), &media); err != nil {
		return nil, err
	}
	for i := range media {
		if err := validate.Struct(&media[i]); err != nil {
			return nil, err
		}
	}
	return media, nil
}

func respondValidation(c *gin.Context, err error) {
	var vErr *uploader.ValidationError
	if errors.As(err, &vErr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Error()})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
