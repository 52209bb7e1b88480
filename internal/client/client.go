// Package client talks to the workspace API over HTTP. Cookies returned by login are kept
// in a jar so later calls and websocket dials carry the session.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/monocle-dev/workspace/internal/billing"
	"github.com/monocle-dev/workspace/internal/models"
	"github.com/monocle-dev/workspace/internal/types"
)

const defaultTimeout = 15 * time.Second

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Message string
	Fields  map[string]string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.UserMessage())
}

// UserMessage is the server's error message, or the status text when there is none.
func (e *APIError) UserMessage() string {
	if e.Message != "" {
		return e.Message
	}
	return http.StatusText(e.Status)
}

// Is lets errors.Is match 404 to types.ErrNotFound and 401 to types.ErrUnauthorized.
func (e *APIError) Is(target error) bool {
	switch target {
	case types.ErrNotFound:
		return e.Status == http.StatusNotFound
	case types.ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	}
	return false
}

type Client struct {
	baseURL *url.URL
	http    *http.Client
	dialer  *websocket.Dialer
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q must be http or https", baseURL)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	c := &Client{
		baseURL: u,
		http:    &http.Client{Jar: jar, Timeout: defaultTimeout},
	}
	c.dialer = &websocket.Dialer{
		Jar:              jar,
		HandshakeTimeout: 10 * time.Second,
	}

	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	if query != nil {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		var payload types.ErrorResponse
		if json.Unmarshal(data, &payload) == nil {
			apiErr.Message = payload.Error
			apiErr.Fields = payload.Fields
		}
		return apiErr
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

type userEnvelope struct {
	User types.UserResponse `json:"user"`
}

func (c *Client) Login(ctx context.Context, email, password string) (types.UserResponse, error) {
	var out userEnvelope
	err := c.do(ctx, http.MethodPost, "/api/auth/login", nil, map[string]string{
		"email":    email,
		"password": password,
	}, &out)
	return out.User, err
}

func (c *Client) Register(ctx context.Context, name, email, password string) (types.UserResponse, error) {
	var out userEnvelope
	err := c.do(ctx, http.MethodPost, "/api/auth/register", nil, map[string]string{
		"name":     name,
		"email":    email,
		"password": password,
	}, &out)
	return out.User, err
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil, nil)
}

func (c *Client) Me(ctx context.Context) (types.UserResponse, error) {
	var out userEnvelope
	err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, nil, &out)
	return out.User, err
}

func (c *Client) ListProjects(ctx context.Context, q types.ProjectQuery) (types.ProjectListResponse, error) {
	var out types.ProjectListResponse
	err := c.do(ctx, http.MethodGet, "/api/projects", q.Values(), nil, &out)
	return out, err
}

func (c *Client) GetProject(ctx context.Context, id string) (types.ProjectDetailResponse, error) {
	var out types.ProjectDetailResponse
	err := c.do(ctx, http.MethodGet, "/api/projects/"+url.PathEscape(id), nil, nil, &out)
	return out, err
}

func (c *Client) UpdateProject(ctx context.Context, id string, patch models.ProjectPatch) (types.ProjectUpdateResponse, error) {
	var out types.ProjectUpdateResponse
	err := c.do(ctx, http.MethodPatch, "/api/projects/"+url.PathEscape(id), nil, patch, &out)
	return out, err
}

// GetBilling returns the saved billing records. A single object under "data" is
// treated as a one element list.
func (c *Client) GetBilling(ctx context.Context) ([]models.BillingRecord, error) {
	var out struct {
		Data json.RawMessage `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/billing", nil, nil, &out); err != nil {
		return nil, err
	}
	return decodeBilling(out.Data)
}

func decodeBilling(raw json.RawMessage) ([]models.BillingRecord, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []models.BillingRecord{}, nil
	}

	if trimmed[0] == '{' {
		var one models.BillingRecord
		if err := json.Unmarshal(trimmed, &one); err != nil {
			return nil, fmt.Errorf("decode billing: %w", err)
		}
		return []models.BillingRecord{one}, nil
	}

	var many []models.BillingRecord
	if err := json.Unmarshal(trimmed, &many); err != nil {
		return nil, fmt.Errorf("decode billing: %w", err)
	}
	return many, nil
}

func (c *Client) SaveBilling(ctx context.Context, data models.BillingData) (types.BillingSaveResponse, error) {
	var out types.BillingSaveResponse
	err := c.do(ctx, http.MethodPost, "/api/billing", nil, data, &out)
	return out, err
}

// BillingSaver adapts SaveBilling for the billing wizard.
func (c *Client) BillingSaver() billing.Saver {
	return billing.SaverFunc(func(ctx context.Context, data models.BillingData) error {
		_, err := c.SaveBilling(ctx, data)
		return err
	})
}

func (c *Client) RemovePaymentMethod(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/billing", nil, types.RemovePaymentMethodRequest{ID: id}, nil)
}

// WatchProject subscribes to refresh events for a project. The channel closes when ctx
// is cancelled or the connection drops.
func (c *Client) WatchProject(ctx context.Context, id string) (<-chan types.ProjectEvent, error) {
	u := *c.baseURL
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path = c.baseURL.Path + "/api/ws/projects/" + url.PathEscape(id)

	conn, resp, err := c.dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil && resp.StatusCode >= 400 {
			return nil, &APIError{Status: resp.StatusCode}
		}
		return nil, fmt.Errorf("watch project %s: %w", id, err)
	}

	events := make(chan types.ProjectEvent, 8)

	done := make(chan struct{})

	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		conn.Close()
	}()

	go func() {
		defer close(events)
		defer close(done)
		for {
			var event types.ProjectEvent
			if err := conn.ReadJSON(&event); err != nil {
				return
			}
			select {
			case events <- event:
			case <-ctx.Done():
				return
			}
		}
	}()

	return events, nil
}

// IsUnauthorized reports whether err means the session is missing or expired.
func IsUnauthorized(err error) bool {
	return errors.Is(err, types.ErrUnauthorized)
}
