package supabase

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"vehicle-data-tools/internal/domain"
	apperrors "vehicle-data-tools/pkg/errors"
)

// StorageService uploads objects through the Storage REST endpoint.
type StorageService struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewStorageService(baseURL string, apiKey string) *StorageService {
	return &StorageService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: http.DefaultClient,
	}
}

// Upload stores file at bucket/path, replacing an existing object.
func (s *StorageService) Upload(
	ctx context.Context,
	bucket string,
	path string,
	file io.Reader,
	contentType string,
) error {
	if s.baseURL == "" || s.apiKey == "" {
		return apperrors.NewValidationError("storage upload requires SUPABASE_URL and a key")
	}

	endpoint := s.baseURL + "/storage/v1/object/" + objectPath(bucket, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, file)
	if err != nil {
		return fmt.Errorf("failed to build upload request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("apikey", s.apiKey)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "true")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return apperrors.NewNetworkError("storage upload failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return apperrors.NewProcessingError(
			"storage upload failed",
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
		)
	}

	return nil
}

// objectPath escapes each segment so names with spaces, '#' or '?' reach
// the API as a single object key.
func objectPath(bucket, path string) string {
	segments := []string{url.PathEscape(bucket)}
	for _, seg := range strings.Split(strings.TrimLeft(path, "/"), "/") {
		segments = append(segments, url.PathEscape(seg))
	}
	return strings.Join(segments, "/")
}

var _ domain.StorageService = (*StorageService)(nil)
