package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/yourorg/studio-media/internal/model"
	"github.com/yourorg/studio-media/internal/staging"
)

// CloudinaryClient performs direct signed uploads to the image/asset
// provider. The upload authorization is minted by the CMS backend; the
// provider's private signing secret never reaches this process.
type CloudinaryClient struct {
	baseURL    string
	cloudName  string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// CloudinaryUploadResult is the provider's synchronous metadata response
type CloudinaryUploadResult struct {
	PublicID  string  `json:"public_id"`
	SecureURL string  `json:"secure_url"`
	Width     int     `json:"width"`
	Height    int     `json:"height"`
	Format    string  `json:"format"`
	Bytes     int64   `json:"bytes"`
	Duration  float64 `json:"duration"`
}

// NewCloudinaryClient creates a new Cloudinary upload client
func NewCloudinaryClient(baseURL, cloudName, apiKey string, logger *zap.Logger) *CloudinaryClient {
	return &CloudinaryClient{
		baseURL:   baseURL,
		cloudName: cloudName,
		apiKey:    apiKey,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
		logger: logger,
	}
}

// Upload sends one file as a signed multipart upload and returns the
// provider's metadata. The progress callback follows byte transfer.
func (c *CloudinaryClient) Upload(ctx context.Context, file staging.StagedFile, sig model.UploadSignature, folder string, progress ProgressFunc) (*CloudinaryUploadResult, error) {
	src, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open staged file: %w", err)
	}
	defer src.Close()

	// Stream the multipart body so large files never sit in memory
	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	go func() {
		part, err := writer.CreateFormFile("file", file.Name)
		if err != nil {
			pw.CloseWithError(fmt.Errorf("failed to create form file: %w", err))
			return
		}
		if _, err := io.Copy(part, newProgressReader(src, file.Size, progress)); err != nil {
			pw.CloseWithError(fmt.Errorf("failed to copy file content: %w", err))
			return
		}

		fields := map[string]string{
			"api_key":   c.apiKey,
			"timestamp": strconv.FormatInt(sig.Timestamp, 10),
			"signature": sig.Signature,
			"folder":    folder,
		}
		for name, value := range fields {
			if err := writer.WriteField(name, value); err != nil {
				pw.CloseWithError(fmt.Errorf("failed to write %s field: %w", name, err))
				return
			}
		}

		pw.CloseWithError(writer.Close())
	}()

	url := fmt.Sprintf("%s/v1_1/%s/auto/upload", c.baseURL, c.cloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, pr)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrAborted, ctx.Err())
		}
		c.logger.Error("Failed to send upload to image provider", zap.Error(err))
		return nil, fmt.Errorf("failed to send upload request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.classifyStatus(resp)
	}

	var result CloudinaryUploadResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("malformed provider response: %w", err)
	}

	if progress != nil {
		progress(100)
	}

	c.logger.Debug("Image upload completed",
		zap.String("file", file.Name),
		zap.String("public_id", result.PublicID))

	return &result, nil
}

func (c *CloudinaryClient) classifyStatus(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	statusErr := &StatusError{StatusCode: resp.StatusCode, Body: string(body)}

	switch resp.StatusCode {
	case http.StatusRequestEntityTooLarge:
		return fmt.Errorf("%w: %s", ErrPayloadTooLarge, statusErr)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrBadSignature, statusErr)
	default:
		return statusErr
	}
}
