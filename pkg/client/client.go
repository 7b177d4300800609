// Package client is a Go client for the pindex HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
)

// Config configures a Client.
type Config struct {
	// BaseURL is the server root, e.g. "http://localhost:8080".
	BaseURL string
	// APIKey is sent as a Bearer token. Empty sends no Authorization header.
	APIKey string
	// Timeout bounds each HTTP attempt. Defaults to 30s.
	Timeout time.Duration
	// MaxRetries is the number of retries for idempotent requests that fail
	// with a network error or a 5xx status. Defaults to 0.
	MaxRetries uint64
	// HTTPClient overrides the underlying client; Timeout is then ignored.
	HTTPClient *http.Client
}

// Client talks to a pindex server.
type Client struct {
	baseURL    string
	apiKey     string
	http       *http.Client
	maxRetries uint64
	retryBase  time.Duration
}

// New creates a Client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("BaseURL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid BaseURL: %w", err)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		http:       hc,
		maxRetries: cfg.MaxRetries,
		retryBase:  200 * time.Millisecond,
	}, nil
}

// Health returns the server health. It needs no API key.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var out HealthResponse
	return &out, c.do(ctx, http.MethodGet, "/health", nil, &out)
}

// ListProjects returns every project with its progress, newest first.
func (c *Client) ListProjects(ctx context.Context) ([]ProjectSummary, error) {
	var out []ProjectSummary
	return out, c.do(ctx, http.MethodGet, "/projects", nil, &out)
}

// CreateProject creates a project seeded with the default checklist.
func (c *Client) CreateProject(ctx context.Context, p NewProject) (*Project, error) {
	var out Project
	return &out, c.do(ctx, http.MethodPost, "/projects", p, &out)
}

// GetProject returns a project.
func (c *Client) GetProject(ctx context.Context, projectID string) (*Project, error) {
	var out Project
	return &out, c.do(ctx, http.MethodGet, projectPath(projectID), nil, &out)
}

// UpdateProject replaces a project's name, description and image.
func (c *Client) UpdateProject(ctx context.Context, projectID string, p NewProject) (*Project, error) {
	var out Project
	return &out, c.do(ctx, http.MethodPut, projectPath(projectID), p, &out)
}

// DeleteProject deletes a project with its items and details.
func (c *Client) DeleteProject(ctx context.Context, projectID string) error {
	return c.do(ctx, http.MethodDelete, projectPath(projectID), nil, nil)
}

// Checklist returns the project's items grouped by category and type.
func (c *Client) Checklist(ctx context.Context, projectID string) ([]CategoryChecklist, error) {
	var out []CategoryChecklist
	return out, c.do(ctx, http.MethodGet, projectPath(projectID)+"/checklist", nil, &out)
}

// CreateItem adds a custom checklist item.
func (c *Client) CreateItem(ctx context.Context, projectID string, req CreateItemRequest) (*ChecklistItem, error) {
	var out ChecklistItem
	return &out, c.do(ctx, http.MethodPost, projectPath(projectID)+"/items", req, &out)
}

// ToggleItem flips an item's completion flag.
func (c *Client) ToggleItem(ctx context.Context, projectID, itemID string) (*ChecklistItem, error) {
	var out ChecklistItem
	return &out, c.do(ctx, http.MethodPost, itemPath(projectID, itemID)+"/toggle", nil, &out)
}

// DeleteItem deletes an item and its detail.
func (c *Client) DeleteItem(ctx context.Context, projectID, itemID string) error {
	return c.do(ctx, http.MethodDelete, itemPath(projectID, itemID), nil, nil)
}

// GetDetail returns the survey detail of an item.
func (c *Client) GetDetail(ctx context.Context, projectID, itemID string) (*ItemDetail, error) {
	var out ItemDetail
	return &out, c.do(ctx, http.MethodGet, itemPath(projectID, itemID)+"/detail", nil, &out)
}

// SaveDetail creates or replaces the survey detail of an item. The server
// recomputes the PI and marks the item complete.
func (c *Client) SaveDetail(ctx context.Context, projectID, itemID string, in DetailInput) (*ItemDetail, error) {
	var out ItemDetail
	return &out, c.do(ctx, http.MethodPut, itemPath(projectID, itemID)+"/detail", in, &out)
}

// RecordMethod returns the item recording method key of participation
// category number in a stage, creating it on first use.
func (c *Client) RecordMethod(ctx context.Context, projectID string, stage, category int, key string) (*MethodItemResponse, error) {
	var out MethodItemResponse
	path := fmt.Sprintf("%s/stages/%d/methods/%d/%s", projectPath(projectID), stage, category, url.PathEscape(key))
	return &out, c.do(ctx, http.MethodPost, path, nil, &out)
}

// Stage returns the participation methods of one lifecycle stage.
func (c *Client) Stage(ctx context.Context, projectID string, stage int) (*StageView, error) {
	var out StageView
	return &out, c.do(ctx, http.MethodGet, fmt.Sprintf("%s/stages/%d", projectPath(projectID), stage), nil, &out)
}

// Analytics returns the chart-ready views of a project.
func (c *Client) Analytics(ctx context.Context, projectID string) (*AnalyticsSeries, error) {
	var out AnalyticsSeries
	return &out, c.do(ctx, http.MethodGet, projectPath(projectID)+"/analytics", nil, &out)
}

// Report returns the full project report.
func (c *Client) Report(ctx context.Context, projectID string) (*Report, error) {
	var out Report
	return &out, c.do(ctx, http.MethodGet, projectPath(projectID)+"/report", nil, &out)
}

// Export writes the project's report archive on the server.
func (c *Client) Export(ctx context.Context, projectID string) (*ExportResult, error) {
	var out ExportResult
	return &out, c.do(ctx, http.MethodPost, projectPath(projectID)+"/export", nil, &out)
}

// ListCategories returns the categories in display order.
func (c *Client) ListCategories(ctx context.Context) ([]Category, error) {
	var out []Category
	return out, c.do(ctx, http.MethodGet, "/categories", nil, &out)
}

// CreateCategory adds a custom category.
func (c *Client) CreateCategory(ctx context.Context, name string) (*Category, error) {
	var out Category
	return &out, c.do(ctx, http.MethodPost, "/categories", map[string]string{"name": name}, &out)
}

// RemoveCategory removes a project's items in a category.
func (c *Client) RemoveCategory(ctx context.Context, projectID, categoryID string) (*RemoveCategoryResult, error) {
	var out RemoveCategoryResult
	path := projectPath(projectID) + "/categories/" + url.PathEscape(categoryID)
	return &out, c.do(ctx, http.MethodDelete, path, nil, &out)
}

func projectPath(projectID string) string {
	return "/projects/" + url.PathEscape(projectID)
}

func itemPath(projectID, itemID string) string {
	return projectPath(projectID) + "/items/" + url.PathEscape(itemID)
}

func idempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}

// do sends a request to /api/v1{path} and decodes a 2xx body into out.
// Idempotent requests are retried on network errors and 5xx responses.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		payload = data
	}

	retries := uint64(0)
	if idempotent(method) {
		retries = c.maxRetries
	}
	backoff := retry.WithMaxRetries(retries, retry.NewExponential(c.retryBase))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := c.once(ctx, method, path, payload, out)
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			if apiErr.Status >= 500 {
				return retry.RetryableError(err)
			}
			return err
		}
		if err != nil && ctx.Err() == nil {
			return retry.RetryableError(err)
		}
		return err
	})
}

func (c *Client) once(ctx context.Context, method, path string, payload []byte, out any) error {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/api/v1"+path, reqBody)
	if err != nil {
		return err
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Title: http.StatusText(resp.StatusCode)}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if len(data) > 0 {
			_ = json.Unmarshal(data, apiErr)
			apiErr.Status = resp.StatusCode
		}
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
