// Package progress talks to the Summit backend's reading-progress and
// course-status endpoints.
package progress

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// SyncError is a failed progress save. Non-fatal by contract: callers
// log it and continue, navigation never blocks on it.
type SyncError struct {
	Status int // 0 for transport errors
	Msg    string
	Cause  error
}

func (e *SyncError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("save progress: status %d: %s", e.Status, e.Msg)
	}
	return fmt.Sprintf("save progress: %s", e.Msg)
}

func (e *SyncError) Unwrap() error { return e.Cause }

// Progress is the backend's view of a reading.
type Progress struct {
	LastPage  int `json:"last_page"`
	StartPage int `json:"start_page"`
	EndPage   int `json:"end_page"`
}

// Client calls the Summit backend HTTP API.
type Client struct {
	baseURL          string
	progressEndpoint string // template, {id} is replaced with the reading id
	statusEndpoint   string // template, {id} is replaced with the course id
	httpClient       *http.Client
}

func NewClient(baseURL, progressEndpoint, statusEndpoint string) *Client {
	return &Client{
		baseURL:          strings.TrimRight(baseURL, "/"),
		progressEndpoint: progressEndpoint,
		statusEndpoint:   statusEndpoint,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *Client) progressURL(readingID string) string {
	return c.baseURL + strings.ReplaceAll(c.progressEndpoint, "{id}", url.PathEscape(readingID))
}

// Save writes the last-viewed page for a reading. Writes are
// idempotent overwrites of a single scalar, so rapid successive saves
// need no dedup.
func (c *Client) Save(ctx context.Context, readingID string, lastPage int, credential string) error {
	body, err := json.Marshal(map[string]int{"last_page": lastPage})
	if err != nil {
		return &SyncError{Msg: "marshal body", Cause: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.progressURL(readingID), bytes.NewReader(body))
	if err != nil {
		return &SyncError{Msg: "create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if credential != "" {
		req.Header.Set("Authorization", "Bearer "+credential)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &SyncError{Msg: err.Error(), Cause: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &SyncError{Status: resp.StatusCode, Msg: string(respBody)}
	}
	return nil
}

// Fetch reads the stored progress for a reading.
func (c *Client) Fetch(ctx context.Context, readingID, credential string) (Progress, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.progressURL(readingID), nil)
	if err != nil {
		return Progress{}, fmt.Errorf("create request: %w", err)
	}
	if credential != "" {
		req.Header.Set("Authorization", "Bearer "+credential)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Progress{}, fmt.Errorf("fetch progress: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return Progress{}, fmt.Errorf("fetch progress %s: status %d: %s", readingID, resp.StatusCode, string(respBody))
	}

	var p Progress
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return Progress{}, fmt.Errorf("decode progress: %w", err)
	}
	return p, nil
}

// CourseStatus returns the backend's processing status for a course,
// e.g. "processing", "complete" or "failed".
func (c *Client) CourseStatus(ctx context.Context, courseID, credential string) (string, error) {
	u := c.baseURL + strings.ReplaceAll(c.statusEndpoint, "{id}", url.PathEscape(courseID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	if credential != "" {
		req.Header.Set("Authorization", "Bearer "+credential)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("course status: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("course status %s: status %d: %s", courseID, resp.StatusCode, string(respBody))
	}

	var out struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode status: %w", err)
	}
	return out.Status, nil
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
