package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type Status string

const (
	StatusTodo      Status = "todo"
	StatusCompleted Status = "completed"
	StatusCanceled  Status = "canceled"
)

// Statuses lists the board columns in display order.
var Statuses = []Status{StatusTodo, StatusCompleted, StatusCanceled}

func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusCompleted, StatusCanceled:
		return true
	}
	return false
}

// ParseStatus accepts a status name in any case.
func ParseStatus(v string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(v)))
	if !s.Valid() {
		return "", fmt.Errorf("unknown status %q", v)
	}
	return s, nil
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Task is the single board entity. Description is nil when absent.
type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description,omitempty"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Clone returns a copy that shares no memory with t.
func (t Task) Clone() Task {
	t.Description = CopyText(t.Description)
	return t
}

// CopyText returns a fresh pointer holding the same text, or nil.
func CopyText(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// DescriptionText returns the description or "" when absent.
func (t Task) DescriptionText() string {
	if t.Description == nil {
		return ""
	}
	return *t.Description
}

// OptionalText trims v and returns nil for blank input, the way form fields are read.
func OptionalText(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

// CloneTasks deep-copies a task list. A nil input yields nil.
func CloneTasks(tasks []Task) []Task {
	if tasks == nil {
		return nil
	}
	out := make([]Task, len(tasks))
	for i, t := range tasks {
		out[i] = t.Clone()
	}
	return out
}

// CreateTaskRequest is the body of POST /tasks.
type CreateTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// UpdateTaskRequest is the body of PUT /tasks/{id}.
type UpdateTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// ChangeStatusRequest is the body of PATCH /tasks/{id}/status.
type ChangeStatusRequest struct {
	Status string `json:"status"`
}
