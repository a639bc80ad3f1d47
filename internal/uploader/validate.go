package uploader

import (
	"fmt"
	"strings"

	"github.com/yourorg/studio-media/internal/staging"
)

// ValidationError rejects a selection before any network call is made
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationErrorf(format string, args ...interface{}) *ValidationError {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

// sizeMB renders a byte count the way it is shown to the user
func sizeMB(size int64) string {
	return fmt.Sprintf("%.2f MB", float64(size)/(1024*1024))
}

// validateSelection checks every candidate against the MIME prefix and
// the size ceiling. label names the slot in messages ("image", "video").
func validateSelection(files []staging.StagedFile, mimePrefix, label string, maxSize int64) error {
	var wrongType []string
	for _, f := range files {
		if !strings.HasPrefix(f.ContentType, mimePrefix) {
			wrongType = append(wrongType, f.Name)
		}
	}
	if len(wrongType) > 0 {
		return validationErrorf("not %s files: %s", label, strings.Join(wrongType, ", "))
	}

	var oversize []string
	for _, f := range files {
		if f.Size > maxSize {
			oversize = append(oversize, fmt.Sprintf("%s is too large (%s)", f.Name, sizeMB(f.Size)))
		}
	}
	if len(oversize) > 0 {
		return validationErrorf("%s; %s files must be at most %d MB",
			strings.Join(oversize, ", "), label, maxSize/(1024*1024))
	}

	return nil
}
