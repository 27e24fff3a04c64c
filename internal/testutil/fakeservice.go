// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"

	"tasksync/internal/service"
)

// NotFoundMessage is the message FakeService declares when a task does not exist.
const NotFoundMessage = "Task not found"

// FakeService is an in-memory implementation of service.Service for testing.
// It behaves like a well-behaved server: it keeps its own task collection and
// answers with success envelopes.
type FakeService struct {
	mu     sync.Mutex
	tasks  []service.Task
	nextID int

	// Transport failure injection: returned as the call's error.
	ListErr   error
	CreateErr error
	UpdateErr error
	ToggleErr error
	DeleteErr error

	// Declared failure injection: when set, the call answers
	// {success:false, message:<value>}. Use Declined("") for no message.
	ListDecline   *string
	CreateDecline *string
	UpdateDecline *string
	ToggleDecline *string
	DeleteDecline *string

	// BeforeCall, if set, runs at the start of every call with the operation
	// name ("list", "create", "update", "toggle", "delete").
	BeforeCall func(op string)

	// Calls records operation names in call order.
	Calls []string

	// Last request bodies.
	LastCreate  service.NewTask
	LastUpdates service.Updates
}

// Declined returns a pointer usable as a *Decline field.
func Declined(message string) *string { return &message }

// NewFakeService creates an empty FakeService. IDs are assigned as integers from 1.
func NewFakeService() *FakeService {
	return &FakeService{nextID: 1}
}

// AddTask seeds a task and returns it.
func (f *FakeService) AddTask(title, description string, completed bool) service.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	task := service.Task{
		ID:          f.allocID(),
		Title:       title,
		Description: description,
		IsCompleted: completed,
	}
	f.tasks = append(f.tasks, task)
	return task.Clone()
}

// SeedTasks appends tasks verbatim, IDs included. Duplicate IDs are allowed
// so tests can exercise a misbehaving server.
func (f *FakeService) SeedTasks(tasks ...service.Task) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range tasks {
		f.tasks = append(f.tasks, t.Clone())
	}
}

// ServerTasks returns a copy of the server-side collection.
func (f *FakeService) ServerTasks() []service.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]service.Task, len(f.tasks))
	for i, t := range f.tasks {
		out[i] = t.Clone()
	}
	return out
}

func (f *FakeService) allocID() service.ID {
	id := service.ID(strconv.Itoa(f.nextID))
	f.nextID++
	return id
}

func (f *FakeService) begin(op string) {
	f.mu.Lock()
	f.Calls = append(f.Calls, op)
	hook := f.BeforeCall
	f.mu.Unlock()
	if hook != nil {
		hook(op)
	}
}

func declined(msg *string) service.Response {
	return service.Response{Success: false, Message: *msg}
}

func (f *FakeService) indexOf(id service.ID) int {
	for i, t := range f.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// ListTasks implements service.Service.
func (f *FakeService) ListTasks(ctx context.Context) (service.ListResponse, error) {
	f.begin("list")
	if err := ctx.Err(); err != nil {
		return service.ListResponse{}, err
	}
	if f.ListErr != nil {
		return service.ListResponse{}, f.ListErr
	}
	if f.ListDecline != nil {
		return service.ListResponse{Response: declined(f.ListDecline)}, nil
	}
	return service.ListResponse{Response: service.Response{Success: true}, Tasks: f.ServerTasks()}, nil
}

// CreateTask implements service.Service.
func (f *FakeService) CreateTask(ctx context.Context, task service.NewTask) (service.TaskResponse, error) {
	f.begin("create")
	if err := ctx.Err(); err != nil {
		return service.TaskResponse{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LastCreate = task
	if f.CreateErr != nil {
		return service.TaskResponse{}, f.CreateErr
	}
	if f.CreateDecline != nil {
		return service.TaskResponse{Response: declined(f.CreateDecline)}, nil
	}

	created := service.Task{
		ID:          f.allocID(),
		Title:       task.Title,
		Description: task.Description,
		Extra:       map[string]json.RawMessage{"created_at": json.RawMessage(`"2026-10-18T00:00:00Z"`)},
	}
	f.tasks = append(f.tasks, created)
	out := created.Clone()
	return service.TaskResponse{Response: service.Response{Success: true}, Task: &out}, nil
}

// UpdateTask implements service.Service.
func (f *FakeService) UpdateTask(ctx context.Context, id service.ID, updates service.Updates) (service.TaskResponse, error) {
	f.begin("update")
	if err := ctx.Err(); err != nil {
		return service.TaskResponse{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LastUpdates = updates
	if f.UpdateErr != nil {
		return service.TaskResponse{}, f.UpdateErr
	}
	if f.UpdateDecline != nil {
		return service.TaskResponse{Response: declined(f.UpdateDecline)}, nil
	}

	i := f.indexOf(id)
	if i < 0 {
		return service.TaskResponse{Response: service.Response{Message: NotFoundMessage}}, nil
	}
	task := &f.tasks[i]
	if v, ok := updates[service.FieldTitle].(string); ok {
		task.Title = v
	}
	if v, ok := updates[service.FieldDescription].(string); ok {
		task.Description = v
	}
	if v, ok := updates[service.FieldIsCompleted].(bool); ok {
		task.IsCompleted = v
	}
	out := task.Clone()
	return service.TaskResponse{Response: service.Response{Success: true}, Task: &out}, nil
}

// ToggleTask implements service.Service.
func (f *FakeService) ToggleTask(ctx context.Context, id service.ID) (service.TaskResponse, error) {
	f.begin("toggle")
	if err := ctx.Err(); err != nil {
		return service.TaskResponse{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ToggleErr != nil {
		return service.TaskResponse{}, f.ToggleErr
	}
	if f.ToggleDecline != nil {
		return service.TaskResponse{Response: declined(f.ToggleDecline)}, nil
	}

	i := f.indexOf(id)
	if i < 0 {
		return service.TaskResponse{Response: service.Response{Message: NotFoundMessage}}, nil
	}
	f.tasks[i].IsCompleted = !f.tasks[i].IsCompleted
	out := f.tasks[i].Clone()
	return service.TaskResponse{Response: service.Response{Success: true}, Task: &out}, nil
}

// DeleteTask implements service.Service.
func (f *FakeService) DeleteTask(ctx context.Context, id service.ID) (service.Response, error) {
	f.begin("delete")
	if err := ctx.Err(); err != nil {
		return service.Response{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.DeleteErr != nil {
		return service.Response{}, f.DeleteErr
	}
	if f.DeleteDecline != nil {
		return declined(f.DeleteDecline), nil
	}

	i := f.indexOf(id)
	if i < 0 {
		return service.Response{Message: NotFoundMessage}, nil
	}
	f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
	return service.Response{Success: true}, nil
}
