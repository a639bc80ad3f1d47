package uploader

import (
	"time"

	"go.uber.org/zap"
)

// Factory builds uploader instances wired to the configured providers.
// Every submission gets fresh instances so selections and retry state
// never leak across jobs.
type Factory struct {
	imageTransport imageTransport
	videoTransport videoTransport
	signer         SignatureSource
	directUploads  DirectUploadSource
	folder         string
	maxImageSize   int64
	maxVideoSize   int64
	maxAttempts    int
	retryInterval  time.Duration
	logger         *zap.Logger
}

// NewFactory creates an uploader factory
func NewFactory(imageT imageTransport, videoT videoTransport, signer SignatureSource, directUploads DirectUploadSource, folder string, maxImageSize, maxVideoSize int64, logger *zap.Logger) *Factory {
	return &Factory{
		imageTransport: imageT,
		videoTransport: videoT,
		signer:         signer,
		directUploads:  directUploads,
		folder:         folder,
		maxImageSize:   maxImageSize,
		maxVideoSize:   maxVideoSize,
		maxAttempts:    DefaultMaxAttempts,
		retryInterval:  DefaultRetryInterval,
		logger:         logger,
	}
}

// NewImageUploader builds a multi-file image uploader
func (f *Factory) NewImageUploader() *ImageUploader {
	return NewImageUploader(f.imageTransport, f.signer, f.folder, f.maxImageSize, false,
		NewRetrier(f.maxAttempts, f.retryInterval), f.logger)
}

// NewVideoUploader builds a single-slot video uploader
func (f *Factory) NewVideoUploader() *VideoUploader {
	return NewVideoUploader(f.videoTransport, f.directUploads, f.maxVideoSize,
		NewRetrier(f.maxAttempts, f.retryInterval), f.logger)
}
