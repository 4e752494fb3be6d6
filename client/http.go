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
	"time"

	"doubleordie/db"
	"doubleordie/service"
)

// APIError is a non-2xx response from the game server
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

// RunSubmission is the submitRun body as the client sends it
type RunSubmission struct {
	RunToken   string `json:"run_token"`
	FinalScore int64  `json:"final_score"`
	Doubles    int    `json:"doubles"`
	DurationMs int64  `json:"duration_ms"`
	Digest     string `json:"digest"`
}

// API is the server surface the controller drives
type API interface {
	StartRun(ctx context.Context, accessToken string) (*service.RunTicket, error)
	SubmitRun(ctx context.Context, accessToken string, run *RunSubmission) (*service.SubmitResult, error)
	Leaderboard(ctx context.Context, accessToken string) (*service.LeaderboardView, error)
	SocialFeed(ctx context.Context, limit int) ([]*db.SocialEventRecord, error)
	Profile(ctx context.Context, accessToken string) (*db.ProfileRecord, error)
	SaveProfile(ctx context.Context, accessToken string, update *service.ProfileUpdate) (*db.ProfileRecord, error)
}

// HTTPClient talks to the game server over JSON/HTTP
type HTTPClient struct {
	baseURL string
	http    *http.Client
}

func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

var _ API = (*HTTPClient)(nil)

func (c *HTTPClient) StartRun(ctx context.Context, accessToken string) (*service.RunTicket, error) {
	var ticket service.RunTicket
	if err := c.do(ctx, http.MethodPost, "/api/runs/start", accessToken, nil, &ticket); err != nil {
		return nil, err
	}
	if ticket.RunToken == "" {
		return nil, &APIError{Status: http.StatusOK, Message: "Unable to verify run token."}
	}
	return &ticket, nil
}

func (c *HTTPClient) SubmitRun(ctx context.Context, accessToken string, run *RunSubmission) (*service.SubmitResult, error) {
	var result service.SubmitResult
	if err := c.do(ctx, http.MethodPost, "/api/runs/submit", accessToken, run, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *HTTPClient) Leaderboard(ctx context.Context, accessToken string) (*service.LeaderboardView, error) {
	var view service.LeaderboardView
	if err := c.do(ctx, http.MethodGet, "/api/leaderboard", accessToken, nil, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

func (c *HTTPClient) SocialFeed(ctx context.Context, limit int) ([]*db.SocialEventRecord, error) {
	var feed struct {
		Events []*db.SocialEventRecord `json:"events"`
	}
	path := "/api/social?" + url.Values{"limit": {strconv.Itoa(limit)}}.Encode()
	if err := c.do(ctx, http.MethodGet, path, "", nil, &feed); err != nil {
		return nil, err
	}
	return feed.Events, nil
}

func (c *HTTPClient) Profile(ctx context.Context, accessToken string) (*db.ProfileRecord, error) {
	var body struct {
		Profile *db.ProfileRecord `json:"profile"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/profile", accessToken, nil, &body); err != nil {
		return nil, err
	}
	return body.Profile, nil
}

func (c *HTTPClient) SaveProfile(ctx context.Context, accessToken string, update *service.ProfileUpdate) (*db.ProfileRecord, error) {
	var body struct {
		Profile *db.ProfileRecord `json:"profile"`
	}
	if err := c.do(ctx, http.MethodPut, "/api/profile", accessToken, update, &body); err != nil {
		return nil, err
	}
	return body.Profile, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path, accessToken string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var failure struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&failure)
		if failure.Error == "" {
			failure.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: failure.Error}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}
