package provider

import (
	"errors"
	"fmt"
)

// Sentinel errors classifying provider upload failures. Handlers and the
// retry policy branch on these with errors.Is.
var (
	// ErrPayloadTooLarge is returned when the provider rejects the file
	// for its size. Retrying cannot help; the user must pick a smaller
	// file.
	ErrPayloadTooLarge = errors.New("payload too large")

	// ErrBadSignature is returned when the provider rejects the signed
	// upload authorization. Points at misconfiguration, not a transient
	// fault.
	ErrBadSignature = errors.New("upload signature rejected")

	// ErrAborted is returned when the caller cancelled the upload.
	ErrAborted = errors.New("upload aborted")
)

// StatusError represents a non-success HTTP response from a provider
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("provider returned status %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("provider returned status %d", e.StatusCode)
}
