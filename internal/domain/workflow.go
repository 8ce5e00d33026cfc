package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Workflow trigger types.
const (
	TriggerClientCreated = "CLIENT_CREATED"
)

// Workflow action types.
const (
	ActionCreateTask = "CREATE_TASK"
	ActionSendEmail  = "SEND_EMAIL"
)

// Workflow is an automation rule: when an event of TriggerType occurs and
// the record satisfies Filters, the action runs. An empty filter payload
// means the rule fires unconditionally for every event of its trigger type.
type Workflow struct {
	ID           uuid.UUID       `json:"id"`
	Name         string          `json:"name"`
	Description  *string         `json:"description,omitempty"`
	OwnerID      uuid.UUID       `json:"owner"`
	TriggerType  string          `json:"trigger_type"`
	ActionType   string          `json:"action_type"`
	ActionConfig json.RawMessage `json:"action_config"`
	Filters      json.RawMessage `json:"filters"`
	IsActive     bool            `json:"is_active"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// FilterTree decodes the workflow's gating filters. The boolean is false
// when the rule is unconditional.
func (w Workflow) FilterTree() (FilterTree, bool, error) {
	return ParseFilterTree(w.Filters)
}

// CreateTaskConfig is the action configuration for CREATE_TASK.
type CreateTaskConfig struct {
	TaskTitle       string `json:"task_title"`
	TaskDescription string `json:"task_description"`
	DueDays         int    `json:"due_days"`
}

// SendEmailConfig is the action configuration for SEND_EMAIL.
type SendEmailConfig struct {
	TemplateID string `json:"template_id"`
}
