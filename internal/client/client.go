// Package client talks to the Genesis HTTP API on behalf of a signed-in user.
package client

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

	"github.com/samrogers05/genesis/internal/models"
)

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("genesis api: %d %s", e.Status, e.Message)
}

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func New(baseURL, token string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// ConversationMessages fetches the messages with otherUserID. The signed-in user is taken
// from the token; userID is accepted so the client satisfies chat.Backend.
func (c *Client) ConversationMessages(ctx context.Context, _ string, otherUserID string, since *time.Time) ([]models.Message, error) {
	q := url.Values{"other_user_id": {otherUserID}}
	if since != nil {
		q.Set("since", since.UTC().Format(time.RFC3339Nano))
	}
	var msgs []models.Message
	if err := c.do(ctx, http.MethodGet, "/api/v1/dms/messages?"+q.Encode(), nil, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

func (c *Client) InsertMessage(ctx context.Context, _ string, receiverID, content string) (models.Message, error) {
	body := map[string]string{"receiver_id": receiverID, "content": content}
	var msg models.Message
	if err := c.do(ctx, http.MethodPost, "/api/v1/dms/send", body, &msg); err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

// Profile returns the profile page data of profileID ("me" for the signed-in user).
func (c *Client) Profile(ctx context.Context, profileID string) (models.Profile, error) {
	var resp struct {
		Profile models.Profile `json:"profile"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/profiles/"+url.PathEscape(profileID), nil, &resp); err != nil {
		return models.Profile{}, err
	}
	return resp.Profile, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(raw, &e) != nil || e.Error == "" {
			e.Error = strings.TrimSpace(string(raw))
		}
		return &APIError{Status: resp.StatusCode, Message: e.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
