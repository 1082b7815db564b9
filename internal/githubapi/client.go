// Package githubapi covers the two GitHub calls the sync needs: reading a
// file at a pinned ref and dispatching a workflow.
package githubapi

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
)

// ErrNotFound reports a path that does not exist at the requested ref.
var ErrNotFound = errors.New("githubapi: not found")

const (
	defaultBaseURL = "https://api.github.com"
	defaultTimeout = 15 * time.Second
)

// Config carries API access settings. BaseURL exists for tests and
// GitHub Enterprise hosts; empty means api.github.com.
type Config struct {
	Token   string
	BaseURL string
	Timeout time.Duration
}

// Client issues authenticated GitHub REST calls.
type Client struct {
	cfg  Config
	http *http.Client
}

// New builds a client from cfg.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return &Client{cfg: cfg, http: &http.Client{Timeout: timeout}}
}

// ContentsAtRef fetches one file's raw content from owner/repo at ref.
// Returns ErrNotFound when the path is absent at that ref; any other
// non-200 answer is an error.
func (c *Client) ContentsAtRef(ctx context.Context, owner, repo, ref, path string) (string, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/%s/contents/%s?ref=%s",
		c.base(), owner, repo, path, url.QueryEscape(ref))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("build contents request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3.raw")
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s/%s@%s: %w", owner, repo, ref, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read contents response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return string(body), nil
	case http.StatusNotFound:
		return "", fmt.Errorf("%s in %s/%s@%s: %w", path, owner, repo, ref, ErrNotFound)
	default:
		return "", fmt.Errorf("fetch %s/%s@%s %s: status %d: %s",
			owner, repo, ref, path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
}

// DispatchWorkflow triggers a workflow_dispatch event for workflowFile on
// ref. GitHub acknowledges the dispatch with 204 and no body.
func (c *Client) DispatchWorkflow(ctx context.Context, owner, repo, workflowFile, ref string, inputs map[string]string) error {
	payload := struct {
		Ref    string            `json:"ref"`
		Inputs map[string]string `json:"inputs,omitempty"`
	}{Ref: ref, Inputs: inputs}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode dispatch payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/repos/%s/%s/actions/workflows/%s/dispatches",
		c.base(), owner, repo, workflowFile)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build dispatch request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("dispatch %s: %w", workflowFile, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("dispatch %s: status %d: %s",
			workflowFile, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}

func (c *Client) base() string {
	if c.cfg.BaseURL != "" {
		return strings.TrimRight(c.cfg.BaseURL, "/")
	}
	return defaultBaseURL
}
