package identity

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

// HTTPClient talks to the identity provider's admin API.
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewHTTPClient(baseURL, token string, client *http.Client) *HTTPClient {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: client,
	}
}

func (c *HTTPClient) CreateUser(ctx context.Context, email string, attrs Attributes, tempPassword string) (string, error) {
	payload := map[string]any{
		"email":         email,
		"temp_password": tempPassword,
		"attributes": map[string]string{
			AttrTenantID: attrs.TenantID,
			AttrRole:     attrs.Role,
		},
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/admin/users", payload, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", fmt.Errorf("identity: create returned no id")
	}
	return out.ID, nil
}

func (c *HTTPClient) UpdateUserAttribute(ctx context.Context, identityID, name, value string) error {
	if name == AttrTenantID {
		return ErrImmutableAttribute
	}
	path := fmt.Sprintf("/admin/users/%s/attributes/%s", url.PathEscape(identityID), url.PathEscape(name))
	return c.do(ctx, http.MethodPut, path, map[string]string{"value": value}, nil)
}

func (c *HTTPClient) DeleteUser(ctx context.Context, identityID string) error {
	return c.do(ctx, http.MethodDelete, "/admin/users/"+url.PathEscape(identityID), nil, nil)
}

func (c *HTTPClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("identity: encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("identity: build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("identity: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode < 300:
	case resp.StatusCode == http.StatusConflict:
		return ErrAlreadyExists
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrThrottled
	default:
		return fmt.Errorf("identity: %s %s: status=%d", method, path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("identity: read response: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("identity: decode response: %w", err)
	}
	return nil
}
