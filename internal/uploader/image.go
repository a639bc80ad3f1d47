package uploader

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yourorg/studio-media/internal/model"
	"github.com/yourorg/studio-media/internal/provider"
	"github.com/yourorg/studio-media/internal/staging"
)

// imageTransport is the provider call wrapped by the image uploader
type imageTransport interface {
	Upload(ctx context.Context, file staging.StagedFile, sig model.UploadSignature, folder string, progress provider.ProgressFunc) (*provider.CloudinaryUploadResult, error)
}

// ImageUploader owns the image selection of one submission and uploads
// it to the image/asset provider with a signed direct upload per file
type ImageUploader struct {
	transport imageTransport
	signer    SignatureSource
	folder    string
	maxSize   int64
	single    bool
	retrier   *Retrier
	logger    *zap.Logger

	mu         sync.Mutex
	files      []staging.StagedFile
	lastErr    string
	inProgress bool
}

// NewImageUploader creates an image uploader. When single is set, a new
// valid selection replaces the current one instead of appending.
func NewImageUploader(transport imageTransport, signer SignatureSource, folder string, maxSize int64, single bool, retrier *Retrier, logger *zap.Logger) *ImageUploader {
	return &ImageUploader{
		transport: transport,
		signer:    signer,
		folder:    folder,
		maxSize:   maxSize,
		single:    single,
		retrier:   retrier,
		logger:    logger,
	}
}

// SetFiles validates candidates and admits them into the selection. A
// valid selection clears any previous error and resets the retry state;
// an invalid one leaves the current selection untouched and performs no
// network call.
func (u *ImageUploader) SetFiles(files ...staging.StagedFile) error {
	if err := validateSelection(files, "image/", "image", u.maxSize); err != nil {
		u.mu.Lock()
		u.lastErr = err.Error()
		u.mu.Unlock()
		return err
	}

	u.mu.Lock()
	if u.single {
		u.files = files
	} else {
		u.files = append(u.files, files...)
	}
	u.lastErr = ""
	u.mu.Unlock()

	u.retrier.Bump()
	return nil
}

// Files returns the current selection
func (u *ImageUploader) Files() []staging.StagedFile {
	u.mu.Lock()
	defer u.mu.Unlock()
	files := make([]staging.StagedFile, len(u.files))
	copy(files, u.files)
	return files
}

// Clear drops the selection and any recorded error
func (u *ImageUploader) Clear() {
	u.mu.Lock()
	u.files = nil
	u.lastErr = ""
	u.mu.Unlock()
	u.retrier.Bump()
}

// InProgress reports whether an upload is running
func (u *ImageUploader) InProgress() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.inProgress
}

// Err returns the most recent selection or upload error message
func (u *ImageUploader) Err() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.lastErr
}

// Upload transfers every selected image concurrently, each file driving
// its own retry schedule. The first exhausted failure fails the whole
// call; already-uploaded siblings are not rolled back.
func (u *ImageUploader) Upload(ctx context.Context, onSettle func()) ([]model.MediaAsset, error) {
	u.mu.Lock()
	if u.inProgress {
		u.mu.Unlock()
		return nil, fmt.Errorf("image upload already in progress")
	}
	u.inProgress = true
	files := make([]staging.StagedFile, len(u.files))
	copy(files, u.files)
	u.mu.Unlock()

	defer func() {
		u.mu.Lock()
		u.inProgress = false
		u.mu.Unlock()
	}()

	if len(files) == 0 {
		return nil, nil
	}

	assets := make([]model.MediaAsset, len(files))
	var g errgroup.Group

	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			asset, err := u.uploadOne(ctx, file)
			if err != nil {
				return fmt.Errorf("%s: %w", file.Name, err)
			}

			assets[i] = *asset
			if onSettle != nil {
				onSettle()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		u.mu.Lock()
		u.lastErr = err.Error()
		u.mu.Unlock()
		return nil, err
	}

	return assets, nil
}

// uploadOne uploads a single file under the retry policy. A fresh
// signature is minted per attempt since authorizations are short-lived.
func (u *ImageUploader) uploadOne(ctx context.Context, file staging.StagedFile) (*model.MediaAsset, error) {
	var result *provider.CloudinaryUploadResult

	err := u.retrier.Do(ctx, func(ctx context.Context) error {
		sig, err := u.signer.SignUpload(ctx, "image", u.folder)
		if err != nil {
			return fmt.Errorf("failed to obtain upload signature: %w", err)
		}

		res, err := u.transport.Upload(ctx, file, *sig, u.folder, func(pct int) {
			u.logger.Debug("Image upload progress",
				zap.String("file", file.Name),
				zap.Int("percent", pct))
		})
		if err != nil {
			u.logger.Warn("Image upload attempt failed",
				zap.String("file", file.Name),
				zap.Error(err))
			return err
		}

		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &model.MediaAsset{
		Type:      model.MediaTypeImage,
		Provider:  model.ProviderCloudinary,
		PublicID:  result.PublicID,
		SecureURL: result.SecureURL,
		Width:     result.Width,
		Height:    result.Height,
		Format:    result.Format,
		Size:      result.Bytes,
		Duration:  result.Duration,
	}, nil
}
