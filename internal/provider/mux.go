package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/yourorg/studio-media/internal/staging"
)

// DefaultChunkSize is the chunk size for video direct uploads when none
// is configured
const DefaultChunkSize = 5 * 1024 * 1024

// MuxClient performs chunked direct uploads to the video streaming
// provider. The one-time upload URL comes from the CMS backend; the
// provider returns no playback metadata synchronously; until the
// backend reconciles the asset, the provisional upload identifier
// issued alongside the URL is all that identifies it.
type MuxClient struct {
	chunkSize  int64
	httpClient *http.Client
	logger     *zap.Logger
}

// NewMuxClient creates a new chunked upload client
func NewMuxClient(chunkSize int64, logger *zap.Logger) *MuxClient {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &MuxClient{
		chunkSize: chunkSize,
		httpClient: &http.Client{
			Timeout: 10 * time.Minute,
		},
		logger: logger,
	}
}

// Upload transfers the file to the direct-upload URL in fixed-size
// chunks. The progress callback follows bytes acknowledged by the
// provider, not bytes written to the socket.
func (c *MuxClient) Upload(ctx context.Context, file staging.StagedFile, uploadURL string, progress ProgressFunc) error {
	src, err := file.Open()
	if err != nil {
		return fmt.Errorf("failed to open staged file: %w", err)
	}
	defer src.Close()

	var sent int64
	lastPct := 0

	for sent < file.Size {
		end := sent + c.chunkSize
		if end > file.Size {
			end = file.Size
		}

		if err := c.putChunk(ctx, uploadURL, src, sent, end, file.Size); err != nil {
			return err
		}

		sent = end
		if progress != nil {
			pct := int(sent * 100 / file.Size)
			if pct > lastPct {
				lastPct = pct
				progress(pct)
			}
		}
	}

	c.logger.Debug("Video upload completed",
		zap.String("file", file.Name),
		zap.Int64("size", file.Size))

	return nil
}

// putChunk sends one Content-Range slice of the file
func (c *MuxClient) putChunk(ctx context.Context, uploadURL string, src io.ReadSeeker, start, end, total int64) error {
	if _, err := src.Seek(start, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek chunk start: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, io.LimitReader(src, end-start))
	if err != nil {
		return fmt.Errorf("failed to create chunk request: %w", err)
	}
	req.ContentLength = end - start
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end-1, total))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %v", ErrAborted, ctx.Err())
		}
		c.logger.Error("Failed to send video chunk",
			zap.Int64("start", start),
			zap.Error(err))
		return fmt.Errorf("failed to send chunk: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusPermanentRedirect:
		// 308 acknowledges an intermediate chunk of a resumable upload
		return nil
	case resp.StatusCode == http.StatusRequestEntityTooLarge:
		return fmt.Errorf("%w: chunk %d-%d rejected", ErrPayloadTooLarge, start, end-1)
	default:
		return &StatusError{StatusCode: resp.StatusCode}
	}
}
