// Package restapi implements the service.Service interface against the tasks REST API.
package restapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"tasksync/internal/config"
	"tasksync/internal/logging"
	"tasksync/internal/service"
)

const (
	// RequestIDHeader carries a per-request correlation ID.
	RequestIDHeader = "X-Request-ID"

	// maxBodySize caps how much of a response body is read.
	maxBodySize = 10 << 20
)

// Client implements service.Service over HTTP.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	timeout time.Duration
	log     *logging.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client (for testing or custom transports).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l.WithComponent("restapi")
		}
	}
}

// WithToken authenticates every request with a static bearer token.
func WithToken(ctx context.Context, token string) Option {
	return func(c *Client) {
		if token == "" {
			return
		}
		c.http = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: token,
			TokenType:   "Bearer",
		}))
	}
}

// New creates a client rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("invalid base_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base_url: %q: scheme must be http or https", baseURL)
	}
	u.Path = strings.TrimRight(u.Path, "/")

	c := &Client{
		baseURL: u,
		http:    http.DefaultClient,
		timeout: config.DefaultTimeout,
		log:     logging.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NewFromConfig creates a client from the loaded configuration.
func NewFromConfig(ctx context.Context, cfg *config.Config, log *logging.Logger) (*Client, error) {
	return New(cfg.BaseURL,
		WithToken(ctx, cfg.Token),
		WithTimeout(cfg.Timeout),
		WithLogger(log),
	)
}

// ListTasks implements service.Service.
func (c *Client) ListTasks(ctx context.Context) (service.ListResponse, error) {
	var resp service.ListResponse
	err := c.do(ctx, http.MethodGet, c.endpoint(), nil, &resp)
	return resp, err
}

// CreateTask implements service.Service.
func (c *Client) CreateTask(ctx context.Context, task service.NewTask) (service.TaskResponse, error) {
	var resp service.TaskResponse
	err := c.do(ctx, http.MethodPost, c.endpoint(), task, &resp)
	return resp, err
}

// UpdateTask implements service.Service.
func (c *Client) UpdateTask(ctx context.Context, id service.ID, updates service.Updates) (service.TaskResponse, error) {
	if updates == nil {
		updates = service.Updates{}
	}
	var resp service.TaskResponse
	err := c.do(ctx, http.MethodPatch, c.endpoint(id.String()), updates, &resp)
	return resp, err
}

// ToggleTask implements service.Service.
func (c *Client) ToggleTask(ctx context.Context, id service.ID) (service.TaskResponse, error) {
	var resp service.TaskResponse
	err := c.do(ctx, http.MethodPatch, c.endpoint(id.String(), "toggle"), nil, &resp)
	return resp, err
}

// DeleteTask implements service.Service.
func (c *Client) DeleteTask(ctx context.Context, id service.ID) (service.Response, error) {
	var resp service.Response
	err := c.do(ctx, http.MethodDelete, c.endpoint(id.String()), nil, &resp)
	return resp, err
}

// endpoint builds {base}/tasks[/segment...], escaping each segment.
func (c *Client) endpoint(segments ...string) string {
	u := *c.baseURL
	escaped := []string{"tasks"}
	for _, s := range segments {
		escaped = append(escaped, url.PathEscape(s))
	}
	u.RawPath = u.EscapedPath() + "/" + strings.Join(escaped, "/")
	u.Path, _ = url.PathUnescape(u.RawPath)
	return u.String()
}

// do sends one request and decodes a 2xx body into out.
func (c *Client) do(ctx context.Context, method, endpoint string, body, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return &service.RequestError{Err: err}
	}
	requestID := uuid.New().String()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	fields := logging.Fields{"method": method, "url": endpoint, "request_id": requestID}
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		fields["error"] = err
		c.log.Debug("request failed", fields)
		return &service.RequestError{Err: wrapError(err)}
	}
	defer resp.Body.Close()

	fields["status"] = resp.StatusCode
	fields["duration"] = time.Since(start).Round(time.Millisecond)
	c.log.Debug("request", fields)

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return &service.RequestError{StatusCode: resp.StatusCode, Err: wrapError(err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var envelope service.Response
		_ = json.Unmarshal(data, &envelope)
		return &service.RequestError{
			StatusCode: resp.StatusCode,
			Message:    envelope.Message,
			Err:        fmt.Errorf("request failed with status code %d", resp.StatusCode),
		}
	}

	// A 2xx body that is not an envelope carries no success flag, so the
	// caller sees a declared failure and reports its own default message.
	if err := json.Unmarshal(data, out); err != nil {
		c.log.Debug("undecodable response body", logging.Fields{"status": resp.StatusCode, "error": err})
		reflect.ValueOf(out).Elem().SetZero()
	}
	return nil
}

// wrapError turns transport errors into user-friendly messages.
func wrapError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("request timed out")
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("request cancelled")
	}
	return err
}
