// ABOUTME: HTTP client for the gateway admin API
// ABOUTME: Decodes JSON error bodies into readable errors

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

type agentView struct {
	Name             string    `json:"name"`
	Description      string    `json:"description"`
	Registered       time.Time `json:"registered"`
	DailyLimit       int       `json:"daily_limit"`
	Active           bool      `json:"active"`
	SubmissionsToday int64     `json:"submissions_today"`
}

type agentUpdate struct {
	Active     *bool `json:"active,omitempty"`
	DailyLimit *int  `json:"daily_limit,omitempty"`
}

type client struct {
	baseURL string
	token   string
	http    *http.Client
}

func newClient(baseURL, token string) *client {
	return &client{baseURL: baseURL, token: token, http: &http.Client{Timeout: 15 * time.Second}}
}

func (c *client) getAgent(ctx context.Context, name string) (*agentView, error) {
	var v agentView
	if err := c.do(ctx, http.MethodGet, "/api/admin/agents/"+url.PathEscape(name), nil, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (c *client) updateAgent(ctx context.Context, name string, u agentUpdate) (*agentView, error) {
	var v agentView
	if err := c.do(ctx, http.MethodPatch, "/api/admin/agents/"+url.PathEscape(name), u, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// health returns the service name reported by /api/health.
func (c *client) health(ctx context.Context) (string, error) {
	var h struct {
		Status  string `json:"status"`
		Service string `json:"service"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/health", nil, &h); err != nil {
		return "", err
	}
	return h.Service, nil
}

func (c *client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			return fmt.Errorf("%s (HTTP %d)", e.Error, resp.StatusCode)
		}
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
