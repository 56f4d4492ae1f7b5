// Package client provides an HTTP client for the FluentNotes server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

// Client talks to the FluentNotes REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new API client.
// If endpoint is empty, uses FLUENTNOTES_SERVER_URL env var or defaults to
// localhost:8475.
func New(endpoint string) *Client {
	if endpoint == "" {
		endpoint = os.Getenv("FLUENTNOTES_SERVER_URL")
	}
	if endpoint == "" {
		endpoint = "http://localhost:8475"
	}

	timeout := 2 * time.Minute
	if t := os.Getenv("FLUENTNOTES_CLIENT_TIMEOUT"); t != "" {
		if d, err := time.ParseDuration(t); err == nil {
			timeout = d
		}
	}

	return &Client{
		baseURL: endpoint,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// UploadResult is the server's reply to an upload.
type UploadResult struct {
	JobID    string `json:"job_id"`
	Filename string `json:"filename"`
	Message  string `json:"message"`
}

// JobStatus mirrors the server's job status payload.
type JobStatus struct {
	JobID            string     `json:"job_id"`
	Filename         string     `json:"filename"`
	State            string     `json:"state"`
	DetectedLanguage *string    `json:"detected_language,omitempty"`
	Summary          *string    `json:"summary,omitempty"`
	ActionItems      []string   `json:"action_items,omitempty"`
	Decisions        []string   `json:"decisions,omitempty"`
	ErrorMessage     *string    `json:"error_message,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

// SearchMatch mirrors one search result.
type SearchMatch struct {
	JobID    string `json:"job_id"`
	Filename string `json:"filename"`
	Snippet  string `json:"snippet"`
}

// Upload submits an audio file and returns the created job.
func (c *Client) Upload(ctx context.Context, path string) (*UploadResult, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("copy file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/meetings", &body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var result UploadResult
	if err := c.do(req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetJob fetches the current status of a job.
func (c *Client) GetJob(ctx context.Context, id string) (*JobStatus, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/v1/meetings/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	var status JobStatus
	if err := c.do(req, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// ListJobs fetches all jobs, most recent first.
func (c *Client) ListJobs(ctx context.Context) ([]JobStatus, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/v1/meetings", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	var result struct {
		Meetings []JobStatus `json:"meetings"`
	}
	if err := c.do(req, &result); err != nil {
		return nil, err
	}
	return result.Meetings, nil
}

// Search queries transcripts and returns matches with snippets.
func (c *Client) Search(ctx context.Context, query string) ([]SearchMatch, error) {
	endpoint := c.baseURL + "/v1/meetings/search?query=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	var result struct {
		Results []SearchMatch `json:"results"`
	}
	if err := c.do(req, &result); err != nil {
		return nil, err
	}
	return result.Results, nil
}

// Export downloads a rendered report for a completed job.
func (c *Client) Export(ctx context.Context, id, format string, includeTranscript bool) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/v1/meetings/%s/export?format=%s&transcript=%t",
		c.baseURL, url.PathEscape(id), url.QueryEscape(format), includeTranscript)
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp.StatusCode, data)
	}
	return data, nil
}

// do executes a request expecting a JSON reply.
func (c *Client) do(req *http.Request, result any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apiError(resp.StatusCode, body)
	}

	if result != nil {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

// apiError extracts the server's error message when present.
func apiError(status int, body []byte) error {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		return fmt.Errorf("server error (%d): %s", status, payload.Error)
	}
	return fmt.Errorf("server error (%d): %s", status, string(body))
}
