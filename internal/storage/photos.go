package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/hashicorp/go-retryablehttp"

	"quality-backend/internal/config"
)

// PhotoStore accepts a binary blob plus a path and returns a durable
// public URL. Only the URL is ever persisted, never the blob.
type PhotoStore interface {
	Upload(ctx context.Context, path string, data []byte, contentType string) (string, error)
}

// HTTPPhotoStore uploads photos to an object-store REST API
// (bucket-scoped POST, public read URL derived from the base URL).
type HTTPPhotoStore struct {
	baseURL string
	bucket  string
	token   string
	client  *retryablehttp.Client
}

// NewHTTPPhotoStore creates a photo store client with retrying transport
func NewHTTPPhotoStore(cfg *config.StorageConfig) *HTTPPhotoStore {
	client := retryablehttp.NewClient()
	client.RetryMax = cfg.MaxRetries
	client.HTTPClient.Timeout = cfg.Timeout
	client.Logger = nil // request logging is handled by slog at the call site

	return &HTTPPhotoStore{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		bucket:  cfg.Bucket,
		token:   cfg.Token,
		client:  client,
	}
}

// Upload stores the blob under bucket/path and returns its public URL
func (s *HTTPPhotoStore) Upload(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	if s.baseURL == "" {
		return "", fmt.Errorf("photo storage is not configured")
	}

	uploadURL := fmt.Sprintf("%s/object/%s/%s", s.baseURL, s.bucket, strings.TrimLeft(path, "/"))
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, uploadURL, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to build upload request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("photo upload failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("photo upload failed: status %d: %s", resp.StatusCode, string(body))
	}

	return s.PublicURL(path), nil
}

// PublicURL returns the durable read URL for a stored path
func (s *HTTPPhotoStore) PublicURL(path string) string {
	return fmt.Sprintf("%s/object/public/%s/%s", s.baseURL, s.bucket, strings.TrimLeft(path, "/"))
}
