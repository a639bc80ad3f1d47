// Package service coordinates upload jobs: create the draft record,
// run the provider uploads, merge media metadata and finalize the post
// against the CMS backend, reporting progress through the job registry
// the whole way.
package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yourorg/studio-media/internal/event"
	"github.com/yourorg/studio-media/internal/model"
	"github.com/yourorg/studio-media/internal/registry"
	"github.com/yourorg/studio-media/internal/uploader"
)

// PostStore is the slice of the CMS backend the orchestrator needs
type PostStore interface {
	CreatePost(ctx context.Context, post *model.Post) (*model.Post, error)
	UpdatePost(ctx context.Context, post *model.Post) (*model.Post, error)
}

// Broadcaster publishes content-changed notifications
type Broadcaster interface {
	PublishPostChanged(ctx context.Context, e event.PostChanged)
}

// Progress milestones of the job state machine. Uploads move progress
// within [10,90]; the finalize step owns the rest.
const (
	progressPreparing = 5
	progressUploading = 10
	progressSyncing   = 95
	progressDone      = 100
)

// UploadService runs upload jobs detached from the HTTP call that
// started them
type UploadService struct {
	registry    *registry.Registry
	posts       PostStore
	broadcaster Broadcaster
	logger      *zap.Logger
}

// NewUploadService creates a new upload orchestrator
func NewUploadService(reg *registry.Registry, posts PostStore, broadcaster Broadcaster, logger *zap.Logger) *UploadService {
	return &UploadService{
		registry:    reg,
		posts:       posts,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

// StartJob registers a job for the submission and runs it in the
// background, returning the job id immediately. retained carries the
// media entries an edited record keeps (already reordered or trimmed by
// the caller); video and images hold the validated selections. done, if
// set, is invoked once with the job outcome.
func (s *UploadService) StartJob(req model.SubmitRequest, retained []model.MediaAsset, video, images uploader.Uploader, done func(error)) string {
	jobID := uuid.New().String()

	title := req.Title
	if title == "" {
		title = "Untitled"
	}

	now := time.Now()
	s.registry.Add(model.UploadJob{
		ID:        jobID,
		Title:     title,
		Status:    model.JobStatusPreparing,
		Progress:  progressPreparing,
		PostID:    req.PostID,
		CreatedAt: now,
		UpdatedAt: now,
	})

	// The job owns its own context: closing the form (or the HTTP
	// request) that started it must not cancel the uploads. The cancel
	// handle exists for a future dismissal contract; nothing calls it
	// mid-flight today.
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		defer cancel()
		s.run(ctx, jobID, req, retained, video, images, done)
	}()

	return jobID
}

func (s *UploadService) run(ctx context.Context, jobID string, req model.SubmitRequest, retained []model.MediaAsset, video, images uploader.Uploader, done func(error)) {
	log := s.logger.With(zap.String("job_id", jobID), zap.String("title", req.Title))

	// Phase 1: make sure a record exists so media attaches to a real id
	// even though uploads are still in flight
	postID := req.PostID
	isNew := postID == ""
	if isNew {
		created, err := s.posts.CreatePost(ctx, &model.Post{
			Title:       req.Title,
			Description: req.Description,
			CategoryID:  req.CategoryID,
			Status:      model.PostStatusDraft,
		})
		if err != nil {
			log.Error("Failed to create draft record", zap.Error(err))
			s.fail(jobID, "failed to create draft record: "+err.Error(), done)
			return
		}
		postID = created.ID
		log.Info("Draft record created", zap.String("post_id", postID))
	}

	s.registry.Update(jobID, func(j *model.UploadJob) {
		j.Status = model.JobStatusUploading
		j.Progress = progressUploading
		j.PostID = postID
	})

	// Phase 2: run all provider uploads concurrently. Aggregate
	// progress moves on settled files, bounded to [10,90]; byte-level
	// progress stays per-file.
	totalSteps := len(video.Files()) + len(images.Files())
	var settled int32
	onSettle := func() {
		doneSteps := atomic.AddInt32(&settled, 1)
		progress := progressUploading + int(float64(doneSteps)/float64(totalSteps)*80+0.5)
		if progress > 90 {
			progress = 90
		}
		s.registry.Update(jobID, func(j *model.UploadJob) {
			j.Progress = progress
		})
	}

	var videoAssets, imageAssets []model.MediaAsset
	var g errgroup.Group
	g.Go(func() error {
		assets, err := video.Upload(ctx, onSettle)
		if err != nil {
			return fmt.Errorf("video upload failed: %w", err)
		}
		videoAssets = assets
		return nil
	})
	g.Go(func() error {
		assets, err := images.Upload(ctx, onSettle)
		if err != nil {
			return fmt.Errorf("image upload failed: %w", err)
		}
		imageAssets = assets
		return nil
	})

	// One exhausted upload fails the whole job. Siblings that already
	// reached their provider stay there; orphaned remote assets are an
	// accepted cost.
	if err := g.Wait(); err != nil {
		log.Error("Upload phase failed", zap.Error(err))
		s.fail(jobID, err.Error(), done)
		return
	}

	// Phase 3: merge and finalize; the video slot leads the appended
	// sequence
	s.registry.Update(jobID, func(j *model.UploadJob) {
		j.Status = model.JobStatusSyncing
		j.Progress = progressSyncing
	})

	uploaded := append(videoAssets, imageAssets...)
	merged := mergeMedia(retained, uploaded, isNew)

	status := model.PostStatus(req.Status)
	if status == "" {
		status = model.PostStatusPublished
	}

	if _, err := s.posts.UpdatePost(ctx, &model.Post{
		ID:          postID,
		Title:       req.Title,
		Description: req.Description,
		CategoryID:  req.CategoryID,
		Status:      status,
		Media:       merged,
	}); err != nil {
		log.Error("Failed to finalize record", zap.Error(err))
		s.fail(jobID, "failed to finalize record: "+err.Error(), done)
		return
	}

	s.registry.Update(jobID, func(j *model.UploadJob) {
		j.Status = model.JobStatusCompleted
		j.Progress = progressDone
	})

	log.Info("Upload job completed",
		zap.String("post_id", postID),
		zap.Int("media_count", len(merged)))

	if done != nil {
		done(nil)
	}

	action := "updated"
	if isNew {
		action = "created"
	}
	s.broadcaster.PublishPostChanged(ctx, event.PostChanged{
		PostID:    postID,
		Title:     req.Title,
		Action:    action,
		Timestamp: time.Now(),
	})
}

// fail moves the job to its terminal error state; it stays visible
// until the user dismisses it
func (s *UploadService) fail(jobID, msg string, done func(error)) {
	s.registry.Update(jobID, func(j *model.UploadJob) {
		j.Status = model.JobStatusError
		j.Error = msg
	})
	if done != nil {
		done(&JobError{Msg: msg})
	}
}

// JobError is the terminal failure handed to the completion callback
type JobError struct {
	Msg string
}

func (e *JobError) Error() string {
	return e.Msg
}
