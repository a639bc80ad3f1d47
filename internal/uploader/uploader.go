// Package uploader implements file selection, validation and the
// direct-to-provider upload clients. Each uploader owns one selection
// slot (N images, or a single video), validates candidates before any
// network call, and drives its own bounded retry schedule per file.
package uploader

import (
	"context"

	"github.com/yourorg/studio-media/internal/model"
	"github.com/yourorg/studio-media/internal/staging"
)

// Uploader is the contract the orchestrator holds on a selection slot
type Uploader interface {
	// Upload transfers the current selection to its provider and returns
	// the resulting assets in selection order. onSettle is invoked once
	// per file that finishes uploading successfully.
	Upload(ctx context.Context, onSettle func()) ([]model.MediaAsset, error)

	// Files returns the current selection
	Files() []staging.StagedFile

	// Clear drops the selection and any recorded error
	Clear()

	// InProgress reports whether an upload is running
	InProgress() bool
}

// SignatureSource mints signed-upload authorizations for the image
// provider. Implemented by the CMS client; the signing secret stays on
// the backend.
type SignatureSource interface {
	SignUpload(ctx context.Context, resourceType, folder string) (*model.UploadSignature, error)
}

// DirectUploadSource issues one-time direct-upload URLs for the video
// provider
type DirectUploadSource interface {
	CreateDirectUpload(ctx context.Context) (*model.DirectUpload, error)
}
