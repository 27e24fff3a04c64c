// Package googletasks implements the service.Service interface using Google Tasks API.
// Tasks live in the user's default list.
package googletasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	tasks "google.golang.org/api/tasks/v1"

	"tasksync/internal/config"
	"tasksync/internal/logging"
	"tasksync/internal/service"
)

const (
	// DefaultListID is the special ID for the default list.
	DefaultListID = "@default"

	// PageSize is the number of tasks per page.
	PageSize = 100

	// Scope is the OAuth scope for Google Tasks.
	Scope = "https://www.googleapis.com/auth/tasks"

	statusCompleted   = "completed"
	statusNeedsAction = "needsAction"
)

// Client implements service.Service using Google Tasks API.
type Client struct {
	svc     *tasks.Service
	listID  string
	timeout time.Duration
	log     *logging.Logger
}

// New creates a new Google Tasks client.
// Requires oauth_client.json and token.json to exist.
func New(ctx context.Context, cfg *config.Config, log *logging.Logger) (*Client, error) {
	oauthConfig, err := LoadOAuthConfig(cfg)
	if err != nil {
		return nil, err
	}

	tokenData, err := os.ReadFile(cfg.TokenPath())
	if err != nil {
		return nil, fmt.Errorf("not logged in: failed to read token.json: %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(tokenData, &token); err != nil {
		return nil, fmt.Errorf("invalid token.json: %w", err)
	}

	// Token source refreshes the access token as needed
	httpClient := oauth2.NewClient(ctx, oauthConfig.TokenSource(ctx, &token))

	svc, err := tasks.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create tasks service: %w", err)
	}
	return newClient(svc, cfg.Timeout, log), nil
}

// NewWithHTTPClient creates a client with a custom HTTP client and endpoint (for testing).
func NewWithHTTPClient(ctx context.Context, httpClient *http.Client, endpoint string) (*Client, error) {
	opts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}
	svc, err := tasks.NewService(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return newClient(svc, config.DefaultTimeout, nil), nil
}

func newClient(svc *tasks.Service, timeout time.Duration, log *logging.Logger) *Client {
	if log == nil {
		log = logging.Discard()
	}
	return &Client{
		svc:     svc,
		listID:  DefaultListID,
		timeout: timeout,
		log:     log.WithComponent("googletasks"),
	}
}

// LoadOAuthConfig reads oauth_client.json from the config directory.
func LoadOAuthConfig(cfg *config.Config) (*oauth2.Config, error) {
	clientJSON, err := os.ReadFile(cfg.OAuthClientPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read oauth_client.json: %w", err)
	}
	oauthConfig, err := google.ConfigFromJSON(clientJSON, Scope)
	if err != nil {
		return nil, fmt.Errorf("invalid oauth_client.json: %w", err)
	}
	return oauthConfig, nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

var okResponse = service.Response{Success: true}

// ListTasks returns every task in the list, completed and hidden ones included, in API order.
func (c *Client) ListTasks(ctx context.Context) (service.ListResponse, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	result := []service.Task{}
	err := c.svc.Tasks.List(c.listID).
		MaxResults(PageSize).
		ShowCompleted(true).
		ShowHidden(true).
		ShowDeleted(false).
		Pages(ctx, func(resp *tasks.Tasks) error {
			for _, item := range resp.Items {
				result = append(result, fromAPI(item))
			}
			return nil
		})
	if err != nil {
		return service.ListResponse{}, wrapError(err)
	}
	c.log.Debug("listed tasks", logging.Fields{"count": len(result)})
	return service.ListResponse{Response: okResponse, Tasks: result}, nil
}

// CreateTask inserts a task; the description is stored as notes.
func (c *Client) CreateTask(ctx context.Context, task service.NewTask) (service.TaskResponse, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	created, err := c.svc.Tasks.Insert(c.listID, &tasks.Task{
		Title: task.Title,
		Notes: task.Description,
	}).Context(ctx).Do()
	if err != nil {
		return service.TaskResponse{}, wrapError(err)
	}
	return taskResponse(created), nil
}

// UpdateTask patches title, description and completion. Other keys have no
// Google Tasks equivalent and are ignored.
func (c *Client) UpdateTask(ctx context.Context, id service.ID, updates service.Updates) (service.TaskResponse, error) {
	patch, err := patchFromUpdates(updates)
	if err != nil {
		return service.TaskResponse{Response: service.Response{Message: err.Error()}}, nil
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	updated, err := c.svc.Tasks.Patch(c.listID, id.String(), patch).Context(ctx).Do()
	if err != nil {
		return service.TaskResponse{}, wrapError(err)
	}
	return taskResponse(updated), nil
}

// ToggleTask reads the task's status and patches the opposite one.
func (c *Client) ToggleTask(ctx context.Context, id service.ID) (service.TaskResponse, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	current, err := c.svc.Tasks.Get(c.listID, id.String()).Context(ctx).Do()
	if err != nil {
		return service.TaskResponse{}, wrapError(err)
	}

	patch := statusPatch(current.Status != statusCompleted)
	updated, err := c.svc.Tasks.Patch(c.listID, id.String(), patch).Context(ctx).Do()
	if err != nil {
		return service.TaskResponse{}, wrapError(err)
	}
	return taskResponse(updated), nil
}

// DeleteTask deletes a task.
func (c *Client) DeleteTask(ctx context.Context, id service.ID) (service.Response, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	if err := c.svc.Tasks.Delete(c.listID, id.String()).Context(ctx).Do(); err != nil {
		return service.Response{}, wrapError(err)
	}
	return okResponse, nil
}

func taskResponse(t *tasks.Task) service.TaskResponse {
	task := fromAPI(t)
	return service.TaskResponse{Response: okResponse, Task: &task}
}

// fromAPI maps a Google task onto the client's task shape.
func fromAPI(t *tasks.Task) service.Task {
	task := service.Task{
		ID:          service.ID(t.Id),
		Title:       t.Title,
		Description: t.Notes,
		IsCompleted: t.Status == statusCompleted,
	}

	// Extra keys use the Google Tasks resource field names.
	extra := map[string]string{
		"due":         t.Due,
		"position":    t.Position,
		"updated":     t.Updated,
		"parent":      t.Parent,
		"webViewLink": t.WebViewLink,
	}
	if t.Completed != nil {
		extra["completed"] = *t.Completed
	}
	for k, v := range extra {
		if v == "" {
			continue
		}
		if task.Extra == nil {
			task.Extra = make(map[string]json.RawMessage)
		}
		task.Extra[k], _ = json.Marshal(v)
	}
	return task
}

func statusPatch(completed bool) *tasks.Task {
	if completed {
		return &tasks.Task{Status: statusCompleted}
	}
	// Reopening requires clearing the completion timestamp.
	return &tasks.Task{Status: statusNeedsAction, NullFields: []string{"Completed"}}
}

// patchFromUpdates translates the generic update keys into a Google patch.
func patchFromUpdates(updates service.Updates) (*tasks.Task, error) {
	patch := &tasks.Task{}
	if v, found := updates[service.FieldIsCompleted]; found {
		done, isBool := v.(bool)
		if !isBool {
			return nil, fmt.Errorf("%s must be a boolean", service.FieldIsCompleted)
		}
		patch = statusPatch(done)
	}
	if v, found := updates[service.FieldTitle]; found {
		title, isString := v.(string)
		if !isString {
			return nil, fmt.Errorf("%s must be a string", service.FieldTitle)
		}
		patch.Title = title
		patch.ForceSendFields = append(patch.ForceSendFields, "Title")
	}
	if v, found := updates[service.FieldDescription]; found {
		notes, isString := v.(string)
		if !isString {
			return nil, fmt.Errorf("%s must be a string", service.FieldDescription)
		}
		patch.Notes = notes
		patch.ForceSendFields = append(patch.ForceSendFields, "Notes")
	}
	return patch, nil
}

// wrapError maps API errors onto service.RequestError with user-friendly messages.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "context deadline exceeded") {
		return &service.RequestError{Err: fmt.Errorf("request timed out")}
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		reqErr := &service.RequestError{StatusCode: apiErr.Code, Message: apiErr.Message, Err: err}
		switch apiErr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			reqErr.Message = "token expired or revoked (run: tasksync login)"
		case http.StatusNotFound:
			reqErr.Message = "Task not found"
		}
		return reqErr
	}

	return &service.RequestError{Err: err}
}
