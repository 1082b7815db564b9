// Package lookerapi is a minimal client for the Looker 4.0 API, covering
// authentication and dashboard LookML export.
package lookerapi

import (
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

// Config carries the connection settings, matching the LOOKERSDK_*
// environment variables the Looker tooling conventionally uses.
type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

const defaultTimeout = 15 * time.Second

// Client talks to one Looker instance. Login happens on the first call and
// the session token is reused afterwards; Client is not safe for
// concurrent use.
type Client struct {
	cfg   Config
	http  *http.Client
	token string
}

// New builds a client from cfg.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return &Client{cfg: cfg, http: &http.Client{Timeout: timeout}}
}

// DashboardLookML exports the LookML text of one dashboard. A dashboard
// that exports no content is an error; the sync has nothing to work with.
func (c *Client) DashboardLookML(ctx context.Context, dashboardID string) (string, error) {
	if err := c.ensureToken(ctx); err != nil {
		return "", err
	}
	endpoint := fmt.Sprintf("%s/api/4.0/dashboards/%s/lookml",
		c.base(), url.PathEscape(dashboardID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("build lookml request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch dashboard %s: %w", dashboardID, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read lookml response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch dashboard %s: status %d: %s",
			dashboardID, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload struct {
		LookML string `json:"lookml"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("decode lookml response: %w", err)
	}
	if payload.LookML == "" {
		return "", fmt.Errorf("dashboard %s returned no lookml", dashboardID)
	}
	return payload.LookML, nil
}

func (c *Client) ensureToken(ctx context.Context) error {
	if c.token != "" {
		return nil
	}
	form := url.Values{
		"client_id":     {c.cfg.ClientID},
		"client_secret": {c.cfg.ClientSecret},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.base()+"/api/4.0/login", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("looker login: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("looker login: status %d: %s",
			resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return fmt.Errorf("decode login response: %w", err)
	}
	if payload.AccessToken == "" {
		return errors.New("looker login: empty access token")
	}
	c.token = payload.AccessToken
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.cfg.BaseURL, "/")
}
