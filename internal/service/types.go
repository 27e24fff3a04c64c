// Package service defines the backend-agnostic interface for task operations.
package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
)

// JSON field names the client understands. Everything else is carried in Task.Extra.
const (
	FieldID          = "entity_id"
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldIsCompleted = "is_completed"
)

// ID identifies a task. Servers send it either as a JSON string or a JSON
// integer; both decode to the same textual form.
type ID string

// String returns the textual form of the ID.
func (id ID) String() string { return string(id) }

// UnmarshalJSON accepts a JSON string, a JSON number or null.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("entity_id must be a string or a number: %s", data)
	}
	*id = ID(n.String())
	return nil
}

// jsonInteger matches the JSON grammar for integers, so "007" and "+5" stay strings.
var jsonInteger = regexp.MustCompile(`^-?(0|[1-9][0-9]*)$`)

// MarshalJSON writes integer-looking IDs as numbers and everything else as strings.
func (id ID) MarshalJSON() ([]byte, error) {
	if id.isInteger() {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id ID) isInteger() bool {
	return jsonInteger.MatchString(string(id))
}

// Task represents a single task record as served by the backend.
type Task struct {
	ID          ID
	Title       string
	Description string
	IsCompleted bool

	// Extra holds server-defined fields the client does not interpret.
	// They are preserved as raw JSON and written back on encode.
	Extra map[string]json.RawMessage
}

// Clone returns a deep copy of the task.
func (t Task) Clone() Task {
	c := t
	if t.Extra != nil {
		c.Extra = make(map[string]json.RawMessage, len(t.Extra))
		for k, v := range t.Extra {
			c.Extra[k] = append(json.RawMessage(nil), v...)
		}
	}
	return c
}

// UnmarshalJSON decodes the known fields and keeps the rest in Extra.
func (t *Task) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var task Task
	if v, ok := raw[FieldID]; ok {
		if err := json.Unmarshal(v, &task.ID); err != nil {
			return err
		}
		delete(raw, FieldID)
	}
	if err := decodeField(raw, FieldTitle, &task.Title); err != nil {
		return err
	}
	if err := decodeField(raw, FieldDescription, &task.Description); err != nil {
		return err
	}
	if err := decodeField(raw, FieldIsCompleted, &task.IsCompleted); err != nil {
		return err
	}
	if len(raw) > 0 {
		task.Extra = raw
	}

	*t = task
	return nil
}

// MarshalJSON encodes the known fields followed by Extra, keys sorted.
func (t Task) MarshalJSON() ([]byte, error) {
	fields := make(map[string]json.RawMessage, len(t.Extra)+4)
	for k, v := range t.Extra {
		fields[k] = v
	}

	id, err := json.Marshal(t.ID)
	if err != nil {
		return nil, err
	}
	fields[FieldID] = id
	fields[FieldTitle], _ = json.Marshal(t.Title)
	fields[FieldDescription], _ = json.Marshal(t.Description)
	fields[FieldIsCompleted], _ = json.Marshal(t.IsCompleted)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, _ := json.Marshal(k)
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(fields[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// decodeField decodes raw[key] into dst and removes it from raw.
// A missing key or a JSON null leaves dst at its zero value.
func decodeField(raw map[string]json.RawMessage, key string, dst any) error {
	v, ok := raw[key]
	if !ok {
		return nil
	}
	delete(raw, key)
	if bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(v, dst); err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	return nil
}

// NewTask is the body of a create request.
type NewTask struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Updates is an arbitrary set of partial fields sent on update.
type Updates map[string]any

// Response is the envelope every endpoint answers with.
// Success false means the server declared the operation failed.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ListResponse is the body of GET /tasks.
type ListResponse struct {
	Response
	Tasks []Task `json:"tasks"`
}

// TaskResponse is the body of create, update and toggle calls.
type TaskResponse struct {
	Response
	Task *Task `json:"task"`
}
