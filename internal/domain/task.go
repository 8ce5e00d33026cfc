package domain

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus values match the task status select options.
const (
	TaskStatusTodo       = "todo"
	TaskStatusInProgress = "in_progress"
	TaskStatusDone       = "done"
)

// TaskPriority values match the task priority select options.
const (
	TaskPriorityLow    = "low"
	TaskPriorityMedium = "medium"
	TaskPriorityHigh   = "high"
)

// Task is a CRM task record, always attached to a client.
type Task struct {
	ID           uuid.UUID  `json:"id"`
	Title        string     `json:"title"`
	Description  *string    `json:"description,omitempty"`
	Status       string     `json:"status"`
	Priority     string     `json:"priority"`
	DueDate      *time.Time `json:"due_date,omitempty"`
	ClientID     uuid.UUID  `json:"client"`
	ClientName   string     `json:"client_name,omitempty"`
	AssignedToID *uuid.UUID `json:"assigned_to,omitempty"`
	AssignedTo   string     `json:"assigned_to_name,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
