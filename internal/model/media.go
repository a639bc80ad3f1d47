package model

// MediaType identifies the kind of media an asset holds
type MediaType string

const (
	MediaTypeImage MediaType = "image"
	MediaTypeVideo MediaType = "video"
)

// MediaProvider identifies which external host stores the bytes
type MediaProvider string

const (
	ProviderCloudinary MediaProvider = "cloudinary"
	ProviderMux        MediaProvider = "mux"
)

// MediaAsset represents one media item attached to a post record.
// SecureURL may be empty for video assets immediately after upload; the
// streaming provider delivers durable playback metadata asynchronously.
type MediaAsset struct {
	Type         MediaType     `json:"type" validate:"required,oneof=image video"`
	Provider     MediaProvider `json:"provider" validate:"required,oneof=cloudinary mux"`
	PublicID     string        `json:"public_id" validate:"required"`
	SecureURL    string        `json:"secure_url,omitempty"`
	Width        int           `json:"width,omitempty"`
	Height       int           `json:"height,omitempty"`
	Duration     float64       `json:"duration,omitempty"`
	Format       string        `json:"format,omitempty"`
	Size         int64         `json:"size,omitempty"`
	IsFeatured   bool          `json:"is_featured"`
	DisplayOrder int           `json:"display_order"`
}

// UploadSignature is a short-lived signed-upload authorization for the
// image provider, minted by the CMS backend
type UploadSignature struct {
	Timestamp int64  `json:"timestamp"`
	Signature string `json:"signature"`
}

// DirectUpload is a one-time upload destination for the video provider
type DirectUpload struct {
	UploadURL string `json:"upload_url"`
	UploadID  string `json:"upload_id"`
}
