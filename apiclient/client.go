package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrymomot/notifsync/notification"
)

// TokenSource supplies the current bearer token for each request. Using a
// func instead of a fixed string lets the session layer refresh credentials
// without rebuilding the client.
type TokenSource func() string

// StaticToken returns a TokenSource that always yields the given token.
func StaticToken(token string) TokenSource {
	return func() string { return token }
}

// Client talks to the notification REST backend. All responses follow the
// `{success, data?, message?}` envelope; a response with success=false is
// surfaced as *Error.
//
// Zero value is not usable; use New.
type Client struct {
	baseURL string
	client  *http.Client
	token   TokenSource
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client, ignoring nil for safety.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.client = c
		}
	}
}

// WithTimeout sets the per-request timeout on the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		if d > 0 {
			cl.client.Timeout = d
		}
	}
}

// WithLogger sets the logger for the Client.
func WithLogger(log *slog.Logger) Option {
	return func(cl *Client) {
		if log != nil {
			cl.logger = log
		}
	}
}

// New creates a REST client for the given base URL. The token source is
// consulted on every request.
func New(baseURL string, token TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		token:  token,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// CreateInput describes a notification to be created server-side. The
// server assigns the ID and timestamps.
type CreateInput struct {
	Title       string            `json:"title"`
	Content     string            `json:"content"`
	Type        notification.Type `json:"type"`
	RecipientID string            `json:"recipientId,omitempty"`
	ExpiresAt   *time.Time        `json:"expiresAt,omitempty"`
}

// ListUserNotifications fetches the full notification snapshot for the
// authenticated user.
func (c *Client) ListUserNotifications(ctx context.Context) ([]notification.Notification, error) {
	var list []notification.Notification
	if err := c.do(ctx, http.MethodGet, "/notifications/user", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// UnreadCount fetches the authoritative unread count.
func (c *Client) UnreadCount(ctx context.Context) (int, error) {
	var payload struct {
		Count int `json:"count"`
	}
	if err := c.do(ctx, http.MethodGet, "/notifications/user/count", nil, &payload); err != nil {
		return 0, err
	}
	return payload.Count, nil
}

// MarkRead marks a single notification as read. The operation is idempotent
// server-side: repeating it for an already-read notification succeeds.
func (c *Client) MarkRead(ctx context.Context, id string) error {
	if id == "" {
		return ErrEmptyID
	}
	return c.do(ctx, http.MethodPut, "/notifications/"+url.PathEscape(id)+"/read", nil, nil)
}

// MarkAllRead marks every notification of the authenticated user as read.
func (c *Client) MarkAllRead(ctx context.Context) error {
	return c.do(ctx, http.MethodPut, "/notifications/user/mark-all-read", nil, nil)
}

// Delete removes a notification.
func (c *Client) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrEmptyID
	}
	return c.do(ctx, http.MethodDelete, "/notifications/"+url.PathEscape(id), nil, nil)
}

// Create creates a single notification for its recipient and returns the
// created records with server-assigned IDs.
func (c *Client) Create(ctx context.Context, in CreateInput) ([]notification.Notification, error) {
	var created []notification.Notification
	if err := c.do(ctx, http.MethodPost, "/notifications", in, &created); err != nil {
		return nil, err
	}
	return created, nil
}

// CreateForAll creates the notification for every user.
func (c *Client) CreateForAll(ctx context.Context, in CreateInput) ([]notification.Notification, error) {
	var created []notification.Notification
	if err := c.do(ctx, http.MethodPost, "/notifications/broadcast", in, &created); err != nil {
		return nil, err
	}
	return created, nil
}

// CreateByRole creates the notification for every user holding the role.
func (c *Client) CreateByRole(ctx context.Context, in CreateInput, role string) ([]notification.Notification, error) {
	body := struct {
		CreateInput
		Role string `json:"role"`
	}{CreateInput: in, Role: role}

	var created []notification.Notification
	if err := c.do(ctx, http.MethodPost, "/notifications/role", body, &created); err != nil {
		return nil, err
	}
	return created, nil
}

// CreateFromTemplate instantiates a server-side template for the given
// recipients with the provided variables.
func (c *Client) CreateFromTemplate(ctx context.Context, name string, recipientIDs []string, vars map[string]string) ([]notification.Notification, error) {
	body := struct {
		Template     string            `json:"template"`
		RecipientIDs []string          `json:"recipientIds"`
		Variables    map[string]string `json:"variables,omitempty"`
	}{Template: name, RecipientIDs: recipientIDs, Variables: vars}

	var created []notification.Notification
	if err := c.do(ctx, http.MethodPost, "/notifications/template", body, &created); err != nil {
		return nil, err
	}
	return created, nil
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
}

// do performs a single request and decodes the response envelope into out.
// A nil out discards the data payload.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("apiclient: marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("apiclient: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read body: %w", ErrRequestFailed, err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return &Error{Status: resp.StatusCode, Message: "malformed response body"}
	}

	if !env.Success || resp.StatusCode >= http.StatusBadRequest {
		return &Error{Status: resp.StatusCode, Message: env.Message}
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return &Error{Status: resp.StatusCode, Message: "malformed data payload"}
		}
	}

	return nil
}
