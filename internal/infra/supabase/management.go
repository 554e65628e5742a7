package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"vehicle-data-tools/internal/domain"
	apperrors "vehicle-data-tools/pkg/errors"
)

const maxErrorBody = 64 * 1024

// ManagementClient talks to the Supabase Management API.
type ManagementClient struct {
	baseURL    string
	projectRef string
	token      string
	httpClient *http.Client
	logger     domain.Logger
}

// NewManagementClient creates a Management API client from config
func NewManagementClient(config domain.Config, logger domain.Logger) *ManagementClient {
	return &ManagementClient{
		baseURL:    config.GetManagementAPIURL(),
		projectRef: config.GetProjectRef(),
		token:      config.GetAccessToken(),
		httpClient: &http.Client{Timeout: config.GetHTTPTimeout()},
		logger:     logger,
	}
}

// Configured reports whether a project ref and access token are set
func (c *ManagementClient) Configured() bool {
	return c.projectRef != "" && c.token != ""
}

type queryRequest struct {
	Query string `json:"query"`
}

type apiError struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// RunQuery executes SQL through the project's database query endpoint and
// returns the rows of the last statement.
func (c *ManagementClient) RunQuery(ctx context.Context, query string) ([]map[string]interface{}, error) {
	if !c.Configured() {
		return nil, apperrors.NewValidationError(
			"management api requires SUPABASE_ACCESS_TOKEN and SUPABASE_PROJECT_REF",
			domain.ErrNotConfigured.Error(),
		)
	}

	body, err := json.Marshal(queryRequest{Query: query})
	if err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/projects/%s/database/query", c.baseURL, c.projectRef)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewNetworkError("management api request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, c.decodeError(resp)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NewNetworkError("failed to read management api response", err)
	}

	var rows []map[string]interface{}
	if len(bytes.TrimSpace(raw)) == 0 {
		return rows, nil
	}
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, apperrors.NewProcessingError("unexpected management api response", err)
	}

	c.logger.Debug("Management query executed", "rows", len(rows))
	return rows, nil
}

func (c *ManagementClient) decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	message := strings.TrimSpace(string(raw))
	var parsed apiError
	if err := json.Unmarshal(raw, &parsed); err == nil {
		switch {
		case parsed.Message != "":
			message = parsed.Message
		case parsed.Error != "":
			message = parsed.Error
		}
	}
	cause := fmt.Errorf("status %d: %s", resp.StatusCode, message)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		e := apperrors.NewUnauthorizedError("management api rejected access token")
		e.Cause = cause
		return e
	case resp.StatusCode == http.StatusNotFound:
		e := apperrors.NewNotFoundError("project " + c.projectRef + " not found")
		e.Cause = cause
		return e
	case resp.StatusCode >= 500:
		return apperrors.NewNetworkError("management api unavailable", cause)
	default:
		return apperrors.NewProcessingError("query failed", cause)
	}
}
