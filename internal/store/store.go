// Package store keeps an in-memory copy of the remote task collection.
//
// A Store mirrors the server's tasks: every operation makes one request
// through a service.Service, applies the server's answer to the local cache
// and reports the outcome to the user through a notify.Notifier.
//
// Store methods never return errors. Declared failures (the server answered
// success=false) and transport failures (the request itself failed) both end
// in a negative notification and a nil/false result.
//
// Calls are not serialized against each other. Overlapping operations may
// interleave their cache updates; the lock only keeps each individual read or
// write of the cache consistent and is never held across a request.
package store

import (
	"context"
	"sync"

	"tasksync/internal/logging"
	"tasksync/internal/notify"
	"tasksync/internal/service"
)

// User-facing messages.
const (
	MsgCreated = "Task created successfully!"
	MsgUpdated = "Task updated successfully!"
	MsgDeleted = "Task deleted successfully!"

	MsgFetchFailed  = "Failed to fetch tasks"
	MsgCreateFailed = "Failed to create task"
	MsgUpdateFailed = "Failed to update task"
	MsgToggleFailed = "Failed to toggle task"
	MsgDeleteFailed = "Failed to delete task"

	MsgUnknownError = "An unknown error occurred"
)

// Store is the task cache.
type Store struct {
	svc      service.Service
	notifier notify.Notifier
	log      *logging.Logger

	mu      sync.RWMutex
	tasks   []service.Task
	loading bool
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for diagnostics.
func WithLogger(l *logging.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l.WithComponent("store")
		}
	}
}

// New creates an empty Store backed by svc, reporting to n.
func New(svc service.Service, n notify.Notifier, opts ...Option) *Store {
	s := &Store{
		svc:      svc,
		notifier: n,
		log:      logging.Discard(),
		tasks:    []service.Task{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Tasks returns a copy of the cached collection in cache order.
func (s *Store) Tasks() []service.Task {
	return s.filter(func(service.Task) bool { return true })
}

// CompletedTasks returns the cached tasks whose completion flag is set.
func (s *Store) CompletedTasks() []service.Task {
	return s.filter(func(t service.Task) bool { return t.IsCompleted })
}

// PendingTasks returns the cached tasks that are not completed.
func (s *Store) PendingTasks() []service.Task {
	return s.filter(func(t service.Task) bool { return !t.IsCompleted })
}

// Loading reports whether a fetch is in flight.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

func (s *Store) filter(keep func(service.Task) bool) []service.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]service.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if keep(t) {
			out = append(out, t.Clone())
		}
	}
	return out
}

func (s *Store) setLoading(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = v
}

// FetchTasks replaces the cache with the server's collection.
// Loading reports true for the duration of the call.
func (s *Store) FetchTasks(ctx context.Context) bool {
	s.setLoading(true)
	defer s.setLoading(false)

	resp, err := s.svc.ListTasks(ctx)
	if err != nil {
		return s.HandleAPIError(err, MsgFetchFailed)
	}
	if !resp.Success {
		s.declined(resp.Response, MsgFetchFailed)
		return false
	}

	tasks := make([]service.Task, 0, len(resp.Tasks))
	for _, t := range resp.Tasks {
		tasks = append(tasks, t.Clone())
	}

	s.mu.Lock()
	s.tasks = tasks
	s.mu.Unlock()

	s.log.Debug("fetched tasks", logging.Fields{"count": len(tasks)})
	return true
}

// CreateTask creates a task and appends the server's copy to the cache.
// It returns nil on failure.
func (s *Store) CreateTask(ctx context.Context, title, description string) *service.Task {
	resp, err := s.svc.CreateTask(ctx, service.NewTask{Title: title, Description: description})
	if err != nil {
		s.HandleAPIError(err, MsgCreateFailed)
		return nil
	}
	if !resp.Success {
		s.declined(resp.Response, MsgCreateFailed)
		return nil
	}

	created := taskOrZero(resp.Task)
	s.mu.Lock()
	s.tasks = append(s.tasks, created.Clone())
	s.mu.Unlock()

	s.log.Debug("created task", logging.Fields{"id": created.ID})
	s.notifier.Notify(notify.Success(MsgCreated))
	return &created
}

// UpdateTask sends a partial update and replaces the cached entry with the
// server's copy. A task missing from the cache is not added; the call still
// succeeds and returns the server's copy. It returns nil on failure.
func (s *Store) UpdateTask(ctx context.Context, id service.ID, updates service.Updates) *service.Task {
	resp, err := s.svc.UpdateTask(ctx, id, updates)
	if err != nil {
		s.HandleAPIError(err, MsgUpdateFailed)
		return nil
	}
	if !resp.Success {
		s.declined(resp.Response, MsgUpdateFailed)
		return nil
	}

	updated := taskOrZero(resp.Task)
	s.replace(id, updated)
	s.notifier.Notify(notify.Success(MsgUpdated))
	return &updated
}

// ToggleTask flips the completion flag of a task and replaces the cached
// entry with the server's copy. Success is silent. It returns nil on failure.
func (s *Store) ToggleTask(ctx context.Context, id service.ID) *service.Task {
	resp, err := s.svc.ToggleTask(ctx, id)
	if err != nil {
		s.HandleAPIError(err, MsgToggleFailed)
		return nil
	}
	if !resp.Success {
		s.declined(resp.Response, MsgUpdateFailed)
		return nil
	}

	updated := taskOrZero(resp.Task)
	s.replace(id, updated)
	return &updated
}

// DeleteTask deletes a task and drops every cached entry with its ID.
func (s *Store) DeleteTask(ctx context.Context, id service.ID) bool {
	resp, err := s.svc.DeleteTask(ctx, id)
	if err != nil {
		return s.HandleAPIError(err, MsgDeleteFailed)
	}
	if !resp.Success {
		s.declined(resp, MsgDeleteFailed)
		return false
	}

	s.mu.Lock()
	kept := s.tasks[:0:0]
	for _, t := range s.tasks {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	removed := len(s.tasks) - len(kept)
	s.tasks = kept
	s.mu.Unlock()

	s.log.Debug("deleted task", logging.Fields{"id": id, "removed": removed})
	s.notifier.Notify(notify.Success(MsgDeleted))
	return true
}

// ShowErrorNotification shows a negative notification.
// An empty message is replaced by a generic one.
func (s *Store) ShowErrorNotification(message string) {
	if message == "" {
		message = MsgUnknownError
	}
	s.notifier.Notify(notify.Failure(message))
}

// HandleAPIError reports a transport failure. The message shown is the
// server-supplied message carried by err, else err's own text, else
// defaultMessage. It always returns false.
func (s *Store) HandleAPIError(err error, defaultMessage string) bool {
	message := defaultMessage
	if err != nil {
		if m := service.ServerMessage(err); m != "" {
			message = m
		} else if m := err.Error(); m != "" {
			message = m
		}
	}
	s.log.Debug("request failed", logging.Fields{"error": err})
	s.ShowErrorNotification(message)
	return false
}

// declined reports a declared failure.
func (s *Store) declined(resp service.Response, defaultMessage string) {
	message := resp.Message
	if message == "" {
		message = defaultMessage
	}
	s.log.Debug("server declined request", logging.Fields{"message": message})
	s.ShowErrorNotification(message)
}

// replace swaps the first cached task with the given ID for t.
func (s *Store) replace(id service.ID, t service.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			s.tasks[i] = t.Clone()
			s.log.Debug("replaced cached task", logging.Fields{"id": id})
			return
		}
	}
	s.log.Debug("task not cached", logging.Fields{"id": id})
}

// taskOrZero dereferences a server-returned task. A success envelope without
// a task yields the zero Task.
func taskOrZero(t *service.Task) service.Task {
	if t == nil {
		return service.Task{}
	}
	return t.Clone()
}
