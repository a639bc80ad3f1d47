package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/yourorg/studio-media/internal/model"
)

// CMSClient handles communication with the CMS backend REST API. It
// authenticates with the configured admin credentials, attaches the
// bearer token to every request, and re-authenticates once when the
// backend answers 401.
type CMSClient struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
	logger     *zap.Logger

	mu       sync.Mutex
	token    string
	tokenExp time.Time
}

// LoginResponse is the token envelope returned by POST /auth/login
type LoginResponse struct {
	AccessToken string `json:"access_token"`
}

// User is the authenticated principal returned by GET /auth/me
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role,omitempty"`
}

// NewCMSClient creates a new CMS backend client
func NewCMSClient(baseURL, username, password string, timeout time.Duration, logger *zap.Logger) *CMSClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &CMSClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		username: username,
		password: password,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Login exchanges the configured credentials for a bearer token
func (c *CMSClient) Login(ctx context.Context) error {
	form := url.Values{}
	form.Set("username", c.username)
	form.Set("password", c.password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/login",
		strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Failed to send login request", zap.Error(err))
		return fmt.Errorf("failed to send login request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("login failed with status code %d", resp.StatusCode)
	}

	var loginResp LoginResponse
	if err := json.NewDecoder(resp.Body).Decode(&loginResp); err != nil {
		return fmt.Errorf("failed to decode login response: %w", err)
	}

	c.mu.Lock()
	c.token = loginResp.AccessToken
	c.tokenExp = tokenExpiry(loginResp.AccessToken)
	c.mu.Unlock()

	return nil
}

// tokenExpiry reads the exp claim without verifying the signature; the
// backend is the authority, this is only a hint for preemptive renewal
func tokenExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

// ensureToken logs in when no token is held or the held one is about to
// expire
func (c *CMSClient) ensureToken(ctx context.Context) error {
	c.mu.Lock()
	valid := c.token != "" && (c.tokenExp.IsZero() || time.Until(c.tokenExp) > 30*time.Second)
	c.mu.Unlock()

	if valid {
		return nil
	}
	return c.Login(ctx)
}

// invalidateToken drops the held token after a 401
func (c *CMSClient) invalidateToken() {
	c.mu.Lock()
	c.token = ""
	c.tokenExp = time.Time{}
	c.mu.Unlock()
}

// do performs an authenticated JSON request, replaying once after a 401
func (c *CMSClient) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	if err := c.ensureToken(ctx); err != nil {
		return err
	}

	for attempt := 0; attempt < 2; attempt++ {
		var reader io.Reader
		if body != nil {
			data, err := json.Marshal(body)
			if err != nil {
				return fmt.Errorf("failed to marshal request body: %w", err)
			}
			reader = bytes.NewReader(data)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		c.mu.Lock()
		req.Header.Set("Authorization", "Bearer "+c.token)
		c.mu.Unlock()

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.logger.Error("Failed to send request to CMS backend",
				zap.String("method", method),
				zap.String("path", path),
				zap.Error(err))
			return fmt.Errorf("failed to send request to CMS backend: %w", err)
		}

		if resp.StatusCode == http.StatusUnauthorized && attempt == 0 {
			resp.Body.Close()
			c.invalidateToken()
			if err := c.Login(ctx); err != nil {
				return err
			}
			continue
		}

		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			c.logger.Error("CMS backend returned error",
				zap.String("method", method),
				zap.String("path", path),
				zap.Int("status", resp.StatusCode))
			return fmt.Errorf("CMS backend returned status code %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
		}

		if out != nil {
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return fmt.Errorf("failed to decode response: %w", err)
			}
		}
		return nil
	}

	return fmt.Errorf("CMS backend rejected credentials")
}

// Me returns the authenticated principal
func (c *CMSClient) Me(ctx context.Context) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// CreatePost creates a content record, typically in draft state so media
// can be attached while uploads are still in flight
func (c *CMSClient) CreatePost(ctx context.Context, post *model.Post) (*model.Post, error) {
	var created model.Post
	if err := c.do(ctx, http.MethodPost, "/posts", post, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdatePost replaces the content record, media list included
func (c *CMSClient) UpdatePost(ctx context.Context, post *model.Post) (*model.Post, error) {
	var updated model.Post
	if err := c.do(ctx, http.MethodPut, "/posts/"+post.ID, post, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// GetPost fetches one content record
func (c *CMSClient) GetPost(ctx context.Context, id string) (*model.Post, error) {
	var post model.Post
	if err := c.do(ctx, http.MethodGet, "/posts/"+id, nil, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// ListPosts fetches a filtered page of content records
func (c *CMSClient) ListPosts(ctx context.Context, filter model.PostFilter) (*model.PostList, error) {
	query := url.Values{}
	if filter.Status != "" {
		query.Set("status", filter.Status)
	}
	if filter.Category != "" {
		query.Set("category", filter.Category)
	}
	if filter.Search != "" {
		query.Set("search", filter.Search)
	}
	if filter.Page > 0 {
		query.Set("page", strconv.Itoa(filter.Page))
	}
	if filter.PageSize > 0 {
		query.Set("page_size", strconv.Itoa(filter.PageSize))
	}

	path := "/posts"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var list model.PostList
	if err := c.do(ctx, http.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// CreateCategory creates a category
func (c *CMSClient) CreateCategory(ctx context.Context, category *model.Category) (*model.Category, error) {
	var created model.Category
	if err := c.do(ctx, http.MethodPost, "/categories", category, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// ListCategories fetches all categories
func (c *CMSClient) ListCategories(ctx context.Context) ([]model.Category, error) {
	var categories []model.Category
	if err := c.do(ctx, http.MethodGet, "/categories", nil, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

// DeleteCategory removes a category
func (c *CMSClient) DeleteCategory(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/categories/"+id, nil, nil)
}

// CreateBooking creates a booking request
func (c *CMSClient) CreateBooking(ctx context.Context, booking *model.Booking) (*model.Booking, error) {
	var created model.Booking
	if err := c.do(ctx, http.MethodPost, "/bookings", booking, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateBooking updates a booking request
func (c *CMSClient) UpdateBooking(ctx context.Context, booking *model.Booking) (*model.Booking, error) {
	var updated model.Booking
	if err := c.do(ctx, http.MethodPut, "/bookings/"+booking.ID, booking, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// ListBookings fetches all booking requests
func (c *CMSClient) ListBookings(ctx context.Context) ([]model.Booking, error) {
	var bookings []model.Booking
	if err := c.do(ctx, http.MethodGet, "/bookings", nil, &bookings); err != nil {
		return nil, err
	}
	return bookings, nil
}

// DeleteBooking removes a booking request
func (c *CMSClient) DeleteBooking(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/bookings/"+id, nil, nil)
}

// SignUpload obtains a short-lived signed-upload authorization for the
// image/asset provider
func (c *CMSClient) SignUpload(ctx context.Context, resourceType, folder string) (*model.UploadSignature, error) {
	query := url.Values{}
	query.Set("resource_type", resourceType)
	query.Set("folder", folder)

	var sig model.UploadSignature
	if err := c.do(ctx, http.MethodPost, "/upload/sign?"+query.Encode(), nil, &sig); err != nil {
		return nil, err
	}
	return &sig, nil
}

// CreateDirectUpload obtains a one-time direct-upload URL for the video
// provider
func (c *CMSClient) CreateDirectUpload(ctx context.Context) (*model.DirectUpload, error) {
	var upload model.DirectUpload
	if err := c.do(ctx, http.MethodPost, "/upload/mux-url", nil, &upload); err != nil {
		return nil, err
	}
	return &upload, nil
}
