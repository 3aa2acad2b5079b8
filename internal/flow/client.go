package flow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// User mirrors the server's user payload.
type User struct {
	Address string `json:"address"`
}

// Session is the explicit credential object a successful auth flow yields.
// It is passed around rather than held in ambient globals.
type Session struct {
	Address string
	Token   string
	User    User
}

// APIError is a non-2xx server response. Its message is what the original UI
// surfaces verbatim in the dialog.
type APIError struct {
	Status  int
	Message string `json:"error"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

// Client talks to the whitelist API.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

type AuthResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	JWT     string `json:"jwt"`
	User    User   `json:"user"`
}

type JoinResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    struct {
		Address    string    `json:"address"`
		Tier       string    `json:"tier"`
		Timestamp  time.Time `json:"timestamp"`
		AuthMethod string    `json:"authMethod"`
	} `json:"data"`
}

type StatusResult struct {
	Address       string `json:"address"`
	Collection    string `json:"collection"`
	IsWhitelisted bool   `json:"isWhitelisted"`
	Data          *struct {
		Tier     string    `json:"tier"`
		JoinedAt time.Time `json:"joinedAt"`
	} `json:"data"`
}

type StatsResult struct {
	Collection string `json:"collection"`
	Stats      struct {
		Total       int64            `json:"total"`
		ByTier      map[string]int64 `json:"byTier"`
		RecentCount int              `json:"recentCount"`
	} `json:"stats"`
}

// Authenticate exchanges a signed challenge for a session token.
func (c *Client) Authenticate(ctx context.Context, address, message, signature string) (*AuthResult, error) {
	var out AuthResult
	err := c.do(ctx, http.MethodPost, "/api/auth", "", map[string]string{
		"address":   address,
		"message":   message,
		"signature": signature,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Join adds the token's address to the whitelist using bearer auth.
func (c *Client) Join(ctx context.Context, token, address string) (*JoinResult, error) {
	var out JoinResult
	err := c.do(ctx, http.MethodPost, "/api/whitelist", token, map[string]string{
		"address": address,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// JoinWithSignature is the legacy path: a raw signed triple, no token.
func (c *Client) JoinWithSignature(ctx context.Context, address, message, signature string) (*JoinResult, error) {
	var out JoinResult
	err := c.do(ctx, http.MethodPost, "/api/whitelist", "", map[string]string{
		"address":   address,
		"message":   message,
		"signature": signature,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Status checks whitelist membership for an address.
func (c *Client) Status(ctx context.Context, address, collection string) (*StatusResult, error) {
	q := url.Values{"address": {address}, "collection": {collection}}
	var out StatusResult
	if err := c.do(ctx, http.MethodGet, "/api/whitelist?"+q.Encode(), "", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Stats fetches collection-wide whitelist statistics.
func (c *Client) Stats(ctx context.Context, collection string) (*StatsResult, error) {
	q := url.Values{"collection": {collection}}
	var out StatsResult
	if err := c.do(ctx, http.MethodGet, "/api/whitelist/stats?"+q.Encode(), "", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	var buf *bytes.Buffer
	if body != nil {
		buf = &bytes.Buffer{}
		if err := json.NewEncoder(buf).Encode(body); err != nil {
			return err
		}
	}

	var req *http.Request
	var err error
	if buf != nil {
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+path, buf)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	}
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
