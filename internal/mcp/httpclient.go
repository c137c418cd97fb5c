package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/claude/overload/internal/advisor"
	"github.com/claude/overload/internal/models"
	"github.com/google/uuid"
)

// HTTPClient implements DataSource by calling the Overload REST API.
// Used for remote MCP mode where the binary runs locally (stdio) but
// data lives on the remote server (accessed over Tailscale).
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

var _ DataSource = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTPClient targeting the given base URL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) get(ctx context.Context, path string, params url.Values, out any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("httpclient: create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("httpclient: read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("httpclient: decode %s: %w", path, err)
	}
	return nil
}

// The server resolves the user from the caller's identity, so the userID
// arguments are ignored.

func (c *HTTPClient) ListExercises(ctx context.Context, _ int) ([]models.Exercise, error) {
	var exercises []models.Exercise
	if err := c.get(ctx, "/api/v1/exercises", nil, &exercises); err != nil {
		return nil, err
	}
	return exercises, nil
}

func (c *HTTPClient) ListSessions(ctx context.Context, _ int, limit int) ([]models.Session, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))

	var sessions []models.Session
	if err := c.get(ctx, "/api/v1/sessions", params, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (c *HTTPClient) Suggest(ctx context.Context, _ int, exerciseID uuid.UUID, sessionID *uuid.UUID) (*advisor.Advice, error) {
	params := url.Values{}
	if sessionID != nil {
		params.Set("session", sessionID.String())
	}

	var advice advisor.Advice
	if err := c.get(ctx, "/api/v1/exercises/"+exerciseID.String()+"/suggestion", params, &advice); err != nil {
		return nil, err
	}
	return &advice, nil
}

func (c *HTTPClient) History(ctx context.Context, _ int, exerciseID uuid.UUID, limit int) (*advisor.ExerciseHistory, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	var hist advisor.ExerciseHistory
	if err := c.get(ctx, "/api/v1/exercises/"+exerciseID.String()+"/history", params, &hist); err != nil {
		return nil, err
	}
	return &hist, nil
}
