package service

import (
	"context"
	"errors"
	"fmt"
)

// Service is the remote tasks resource.
// All backend calls go through this interface; commands and the store never
// import a transport directly.
//
// A non-nil error means the request did not complete (network failure,
// timeout, non-2xx status, unreadable body). A response with Success false
// means the server answered and declared the operation failed.
type Service interface {
	// ListTasks fetches the full collection (GET /tasks).
	ListTasks(ctx context.Context) (ListResponse, error)

	// CreateTask creates a task (POST /tasks).
	CreateTask(ctx context.Context, task NewTask) (TaskResponse, error)

	// UpdateTask sends a partial update (PATCH /tasks/{id}).
	UpdateTask(ctx context.Context, id ID, updates Updates) (TaskResponse, error)

	// ToggleTask flips the completion flag (PATCH /tasks/{id}/toggle).
	ToggleTask(ctx context.Context, id ID) (TaskResponse, error)

	// DeleteTask deletes a task (DELETE /tasks/{id}).
	DeleteTask(ctx context.Context, id ID) (Response, error)
}

// RequestError is a transport failure. StatusCode is zero when no HTTP
// response was received. Message is the server-supplied message from the
// response body, if any.
type RequestError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *RequestError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("request failed with status code %d", e.StatusCode)
	}
	return "request failed"
}

func (e *RequestError) Unwrap() error { return e.Err }

// ServerMessage returns the server-supplied message carried by err, if any.
func ServerMessage(err error) string {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Message
	}
	return ""
}
