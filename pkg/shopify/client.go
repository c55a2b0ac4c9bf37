package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// APIError carries a non-2xx Admin API response so callers can branch on the
// upstream status (401 triggers reauthentication, everything else is passed
// through) and surface the body rather than swallow it.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("admin api error: status=%d body=%s", e.Status, e.Body)
	}
	return fmt.Sprintf("admin api error: status=%d", e.Status)
}

// Client talks to the shop's Admin API with a session's access token.
type Client struct {
	HTTPClient  *http.Client
	ShopDomain  string
	AccessToken string
	APIVersion  string
}

// Rest performs a JSON REST request against /admin/api/{version}{path}.
func (c Client) Rest(ctx context.Context, method, path string, reqBody, respBody any) error {
	u := fmt.Sprintf("https://%s/admin/api/%s%s", c.ShopDomain, c.version(), path)
	return c.doJSON(ctx, method, u, reqBody, respBody)
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// GraphQL performs an Admin GraphQL call. respBody receives the full
// {"data": ...} envelope.
func (c Client) GraphQL(ctx context.Context, query string, variables map[string]any, respBody any) error {
	u := fmt.Sprintf("https://%s/admin/api/%s/graphql.json", c.ShopDomain, c.version())
	return c.doJSON(ctx, http.MethodPost, u, graphqlRequest{Query: query, Variables: variables}, respBody)
}

func (c Client) doJSON(ctx context.Context, method, u string, reqBody, respBody any) error {
	client := c.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	if c.ShopDomain == "" || c.AccessToken == "" {
		return fmt.Errorf("missing shop domain or access token")
	}

	var buf bytes.Buffer
	if reqBody != nil {
		if err := json.NewEncoder(&buf).Encode(reqBody); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, u, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Access-Token", c.AccessToken)

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	b, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return readErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Status: resp.StatusCode, Body: string(b)}
	}

	if respBody != nil && len(b) > 0 {
		if err := json.Unmarshal(b, respBody); err != nil {
			// Include body for easier debugging (unexpected shape, partial responses, etc).
			return fmt.Errorf("decode admin response failed: %w body=%s", err, string(b))
		}
	}

	return nil
}

func (c Client) version() string {
	if c.APIVersion == "" {
		return "2025-10"
	}
	return c.APIVersion
}
