package uploader

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/yourorg/studio-media/internal/model"
	"github.com/yourorg/studio-media/internal/provider"
	"github.com/yourorg/studio-media/internal/staging"
)

// videoTransport is the provider call wrapped by the video uploader
type videoTransport interface {
	Upload(ctx context.Context, file staging.StagedFile, uploadURL string, progress provider.ProgressFunc) error
}

// VideoUploader owns the single video slot of one submission. The
// streaming provider defers playback metadata, so a successful upload
// yields an asset carrying only the provisional upload identifier; the
// CMS backend reconciles the durable metadata later.
type VideoUploader struct {
	transport videoTransport
	uploads   DirectUploadSource
	maxSize   int64
	retrier   *Retrier
	logger    *zap.Logger

	mu         sync.Mutex
	file       *staging.StagedFile
	lastErr    string
	inProgress bool
}

// NewVideoUploader creates a video uploader
func NewVideoUploader(transport videoTransport, uploads DirectUploadSource, maxSize int64, retrier *Retrier, logger *zap.Logger) *VideoUploader {
	return &VideoUploader{
		transport: transport,
		uploads:   uploads,
		maxSize:   maxSize,
		retrier:   retrier,
		logger:    logger,
	}
}

// SetFile validates the candidate and replaces the current selection.
// A valid selection clears any previous error and resets the retry
// state; an invalid one performs no network call.
func (u *VideoUploader) SetFile(file staging.StagedFile) error {
	if err := validateSelection([]staging.StagedFile{file}, "video/", "video", u.maxSize); err != nil {
		u.mu.Lock()
		u.lastErr = err.Error()
		u.mu.Unlock()
		return err
	}

	u.mu.Lock()
	u.file = &file
	u.lastErr = ""
	u.mu.Unlock()

	u.retrier.Bump()
	return nil
}

// Files returns the current selection
func (u *VideoUploader) Files() []staging.StagedFile {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.file == nil {
		return nil
	}
	return []staging.StagedFile{*u.file}
}

// Clear drops the selection and any recorded error
func (u *VideoUploader) Clear() {
	u.mu.Lock()
	u.file = nil
	u.lastErr = ""
	u.mu.Unlock()
	u.retrier.Bump()
}

// InProgress reports whether an upload is running
func (u *VideoUploader) InProgress() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.inProgress
}

// Err returns the most recent selection or upload error message
func (u *VideoUploader) Err() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.lastErr
}

// Upload transfers the selected video in chunks under the retry policy.
// A fresh direct-upload URL is requested per attempt; the URLs are
// one-time use.
func (u *VideoUploader) Upload(ctx context.Context, onSettle func()) ([]model.MediaAsset, error) {
	u.mu.Lock()
	if u.inProgress {
		u.mu.Unlock()
		return nil, fmt.Errorf("video upload already in progress")
	}
	if u.file == nil {
		u.mu.Unlock()
		return nil, nil
	}
	u.inProgress = true
	file := *u.file
	u.mu.Unlock()

	defer func() {
		u.mu.Lock()
		u.inProgress = false
		u.mu.Unlock()
	}()

	var uploadID string
	err := u.retrier.Do(ctx, func(ctx context.Context) error {
		upload, err := u.uploads.CreateDirectUpload(ctx)
		if err != nil {
			return fmt.Errorf("failed to obtain direct-upload URL: %w", err)
		}

		err = u.transport.Upload(ctx, file, upload.UploadURL, func(pct int) {
			u.logger.Debug("Video upload progress",
				zap.String("file", file.Name),
				zap.Int("percent", pct))
		})
		if err != nil {
			u.logger.Warn("Video upload attempt failed",
				zap.String("file", file.Name),
				zap.Error(err))
			return err
		}

		uploadID = upload.UploadID
		return nil
	})
	if err != nil {
		u.mu.Lock()
		u.lastErr = err.Error()
		u.mu.Unlock()
		return nil, fmt.Errorf("%s: %w", file.Name, err)
	}

	if onSettle != nil {
		onSettle()
	}

	asset := model.MediaAsset{
		Type:     model.MediaTypeVideo,
		Provider: model.ProviderMux,
		PublicID: uploadID,
		// SecureURL stays empty until the provider finishes processing
		Format: strings.TrimPrefix(filepath.Ext(file.Name), "."),
		Size:   file.Size,
	}
	return []model.MediaAsset{asset}, nil
}
