// Package embed is the thin client for the analytics embedding service.
package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tenant-console-api/internal/domain"
)

// Client exchanges a session context for a time-boxed dashboard URL.
type Client struct {
	baseURL    string
	token      string
	sessionTTL time.Duration
	httpClient *http.Client
}

func NewClient(baseURL, token string, sessionTTL time.Duration, client *http.Client) *Client {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if sessionTTL <= 0 {
		sessionTTL = 10 * time.Minute
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		sessionTTL: sessionTTL,
		httpClient: client,
	}
}

func (c *Client) EmbedURL(ctx context.Context, tenantID, role string, tags []domain.SessionTag) (string, time.Time, error) {
	payload := map[string]any{
		"tenant_id":    tenantID,
		"role":         role,
		"session_tags": tags,
		"ttl_seconds":  int(c.sessionTTL.Seconds()),
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("embed: encode session: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/sessions", bytes.NewReader(b))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("embed: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("embed: create session: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return "", time.Time{}, fmt.Errorf("embed: create session: status=%d", resp.StatusCode)
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("embed: read response: %w", err)
	}
	var out struct {
		URL       string    `json:"url"`
		ExpiresAt time.Time `json:"expiresAt"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", time.Time{}, fmt.Errorf("embed: decode response: %w", err)
	}
	if out.URL == "" {
		return "", time.Time{}, fmt.Errorf("embed: session returned no url")
	}
	return out.URL, out.ExpiresAt, nil
}
