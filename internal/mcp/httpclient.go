package mcp

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
	"time"

	"github.com/google/uuid"
	"github.com/meltforce/repcircle/internal/models"
	"github.com/meltforce/repcircle/internal/player"
	"github.com/meltforce/repcircle/internal/storage"
)

// HTTPClient implements DataSource by calling the RepCircle REST API.
// Used for remote MCP mode where the binary runs locally (stdio) but
// data lives on the remote server (accessed over Tailscale).
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Compile-time check: HTTPClient satisfies DataSource.
var _ DataSource = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTPClient targeting the given base URL. apiKey
// is sent on writes.
func NewHTTPClient(baseURL, apiKey string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) do(ctx context.Context, method, path string, userID uuid.UUID, params url.Values, payload any) ([]byte, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("httpclient: encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("httpclient: create request: %w", err)
	}
	req.Header.Set("X-User-ID", userID.String())
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("httpclient: read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, bytes.TrimSpace(data))
	}

	return data, nil
}

func decodeInto[T any](data []byte, what string) (T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("httpclient: decode %s: %w", what, err)
	}
	return v, nil
}

func (c *HTTPClient) QueryCompletedWorkouts(ctx context.Context, q storage.HistoryQuery) ([]models.CompletedWorkout, error) {
	params := url.Values{}
	if !q.Start.IsZero() {
		params.Set("start", q.Start.Format(time.RFC3339))
	}
	if !q.End.IsZero() {
		params.Set("end", q.End.Format(time.RFC3339))
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.IncludeUnfinished {
		params.Set("unfinished", "true")
	}

	data, err := c.do(ctx, http.MethodGet, "/api/v1/history", q.UserID, params, nil)
	if err != nil {
		return nil, err
	}
	return decodeInto[[]models.CompletedWorkout](data, "history")
}

func (c *HTTPClient) GetCompletedWorkout(ctx context.Context, id, userID uuid.UUID) (*models.CompletedWorkout, error) {
	data, err := c.do(ctx, http.MethodGet, "/api/v1/history/"+id.String(), userID, nil, nil)
	if err != nil {
		return nil, err
	}
	w, err := decodeInto[models.CompletedWorkout](data, "workout")
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (c *HTTPClient) ActiveSessions(ctx context.Context, userID uuid.UUID) ([]player.State, error) {
	data, err := c.do(ctx, http.MethodGet, "/api/v1/sessions", userID, nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeInto[[]player.State](data, "sessions")
}

func (c *HTTPClient) GetSession(ctx context.Context, userID, sessionID uuid.UUID) (player.State, error) {
	data, err := c.do(ctx, http.MethodGet, "/api/v1/sessions/"+sessionID.String(), userID, nil, nil)
	if err != nil {
		return player.State{}, err
	}
	return decodeInto[player.State](data, "session")
}

func (c *HTTPClient) StartSession(ctx context.Context, userID, plannedWorkoutID uuid.UUID) (player.State, error) {
	data, err := c.do(ctx, http.MethodPost, "/api/v1/planned-workouts/"+plannedWorkoutID.String()+"/start", userID, nil, nil)
	if err != nil {
		return player.State{}, err
	}
	return decodeInto[player.State](data, "session")
}

func (c *HTTPClient) CompleteSet(ctx context.Context, userID, sessionID uuid.UUID, values *models.SetValues) (player.State, error) {
	payload := map[string]any{}
	if values != nil {
		payload["values"] = values
	}
	data, err := c.do(ctx, http.MethodPost, "/api/v1/sessions/"+sessionID.String()+"/sets", userID, nil, payload)
	if err != nil {
		return player.State{}, err
	}
	return decodeInto[player.State](data, "session")
}

func (c *HTTPClient) FinishSession(ctx context.Context, userID, sessionID uuid.UUID) (player.FinishResult, error) {
	data, err := c.do(ctx, http.MethodPost, "/api/v1/sessions/"+sessionID.String()+"/finish", userID, nil, nil)
	if err != nil {
		return player.FinishResult{}, err
	}
	return decodeInto[player.FinishResult](data, "finish result")
}
