package staging

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// StagedFile is a media file spooled to local disk between form
// submission and provider upload
type StagedFile struct {
	Name        string
	Path        string
	Size        int64
	ContentType string
}

// Open returns a reader over the staged bytes
func (f StagedFile) Open() (io.ReadSeekCloser, error) {
	return os.Open(f.Path)
}

// Spool stages incoming multipart files on local disk
type Spool struct {
	dir    string
	ttl    time.Duration
	logger *zap.Logger
}

// NewSpool creates a spool rooted at dir
func NewSpool(dir string, ttl time.Duration, logger *zap.Logger) (*Spool, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create spool directory: %w", err)
	}
	return &Spool{dir: dir, ttl: ttl, logger: logger}, nil
}

// Stage copies one multipart file into the spool and returns its handle.
// The declared Content-Type header is carried along for validation; the
// bytes are never inspected here.
func (s *Spool) Stage(file *multipart.FileHeader) (StagedFile, error) {
	src, err := file.Open()
	if err != nil {
		return StagedFile{}, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	ext := filepath.Ext(file.Filename)
	path := filepath.Join(s.dir, uuid.New().String()+ext)

	dst, err := os.Create(path)
	if err != nil {
		return StagedFile{}, fmt.Errorf("failed to create spool file: %w", err)
	}
	defer dst.Close()

	written, err := io.Copy(dst, src)
	if err != nil {
		os.Remove(path)
		return StagedFile{}, fmt.Errorf("failed to copy file content: %w", err)
	}

	return StagedFile{
		Name:        file.Filename,
		Path:        path,
		Size:        written,
		ContentType: file.Header.Get("Content-Type"),
	}, nil
}

// Discard removes staged files; absent files are ignored
func (s *Spool) Discard(files ...StagedFile) {
	for _, f := range files {
		if err := os.Remove(f.Path); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("Failed to remove staged file",
				zap.String("path", f.Path),
				zap.Error(err))
		}
	}
}

// Sweep deletes spool entries older than the TTL. Covers files orphaned
// by submissions that never reached a terminal state.
func (s *Spool) Sweep() {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		s.logger.Error("Failed to read spool directory", zap.Error(err))
		return
	}

	cutoff := time.Now().Add(-s.ttl)
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			path := filepath.Join(s.dir, entry.Name())
			if err := os.Remove(path); err != nil {
				s.logger.Warn("Failed to sweep spool file",
					zap.String("path", path),
					zap.Error(err))
			} else {
				s.logger.Debug("Swept stale spool file", zap.String("path", path))
			}
		}
	}
}

// StartSweeper schedules a recurring sweep on the given interval and
// returns the scheduler so the caller can stop it on shutdown. Intervals
// round to whole seconds, one second minimum.
func (s *Spool) StartSweeper(interval time.Duration) *cron.Cron {
	c := cron.New()
	c.Schedule(cron.Every(interval), cron.FuncJob(s.Sweep))
	c.Start()

	s.logger.Info("Spool sweeper scheduled",
		zap.String("dir", s.dir),
		zap.Duration("interval", interval))
	return c
}
