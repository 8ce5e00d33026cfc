// Package workflow evaluates automation rules against CRM events. A rule's
// filter tree gates its action: events are matched per record at trigger
// time, and existing records can be backfilled in bulk.
package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"crm-api/internal/domain"
	"crm-api/internal/query"
	"crm-api/internal/repository"
)

// Service matches workflow rules and executes their actions.
type Service struct {
	workflows repository.WorkflowRepository
	clients   repository.ClientRepository
	tasks     repository.TaskRepository

	now      func() time.Time
	location *time.Location
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the reference clock for date-relative filters.
func WithClock(now func() time.Time, loc *time.Location) Option {
	return func(s *Service) {
		s.now = now
		s.location = loc
	}
}

// NewService builds a workflow service.
func NewService(workflows repository.WorkflowRepository, clients repository.ClientRepository, tasks repository.TaskRepository, opts ...Option) *Service {
	s := &Service{
		workflows: workflows,
		clients:   clients,
		tasks:     tasks,
		now:       time.Now,
		location:  time.Local,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) queryContext(actingUserID uuid.UUID) query.Context {
	qctx := query.Context{Now: s.now, Location: s.location}
	if actingUserID != uuid.Nil {
		qctx.ActingUserID = actingUserID.String()
	}
	return qctx
}

// HandleClientCreated runs every active CLIENT_CREATED rule against a newly
// created client. A rule without filters fires unconditionally; a rule with
// filters fires only when the new record satisfies them. Action failures
// are logged and do not fail the triggering request.
func (s *Service) HandleClientCreated(ctx context.Context, client domain.Client) {
	rules, err := s.workflows.ListActiveByTrigger(ctx, domain.TriggerClientCreated)
	if err != nil {
		log.Printf("[workflow] list rules for client %s: %v", client.ID, err)
		return
	}

	for _, rule := range rules {
		matched, err := s.ruleMatches(ctx, rule, client)
		if err != nil {
			log.Printf("[workflow] rule %s match against client %s: %v", rule.ID, client.ID, err)
			continue
		}
		if !matched {
			continue
		}
		if err := s.execute(ctx, rule, client); err != nil {
			log.Printf("[workflow] rule %s action for client %s: %v", rule.ID, client.ID, err)
		}
	}
}

func (s *Service) ruleMatches(ctx context.Context, rule domain.Workflow, client domain.Client) (bool, error) {
	tree, hasFilters, err := rule.FilterTree()
	if err != nil {
		return false, fmt.Errorf("decode rule filters: %w", err)
	}
	if !hasFilters {
		return true, nil
	}
	// "me" inside a rule's filters refers to the rule's owner.
	return s.clients.Matches(ctx, client.ID, tree, s.queryContext(rule.OwnerID))
}

// PreviewCount reports how many existing clients a rule's filters match
// today. A rule without filters has no meaningful count: it returns nil
// rather than the total record count, because an unconditional rule gates
// nothing.
func (s *Service) PreviewCount(ctx context.Context, workflowID uuid.UUID) (*int64, error) {
	rule, err := s.workflows.GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	tree, hasFilters, err := rule.FilterTree()
	if err != nil {
		return nil, fmt.Errorf("decode rule filters: %w", err)
	}
	if !hasFilters {
		return nil, nil
	}
	count, err := s.clients.CountMatching(ctx, tree, s.queryContext(rule.OwnerID))
	if err != nil {
		return nil, err
	}
	return &count, nil
}

// RunResult summarizes a backfill run.
type RunResult struct {
	Matched  int `json:"matched"`
	Executed int `json:"executed"`
	Failed   int `json:"failed"`
}

// RunForMatches executes a rule's action once per existing client matching
// its filters. A rule without filters is rejected: backfilling
// unconditionally would hit every record in the system. Per-record action
// failures are logged and skipped; the run continues.
func (s *Service) RunForMatches(ctx context.Context, workflowID uuid.UUID) (RunResult, error) {
	rule, err := s.workflows.GetByID(ctx, workflowID)
	if err != nil {
		return RunResult{}, err
	}
	tree, hasFilters, err := rule.FilterTree()
	if err != nil {
		return RunResult{}, fmt.Errorf("decode rule filters: %w", err)
	}
	if !hasFilters {
		return RunResult{}, domain.ErrNoFilters
	}

	matches, err := s.clients.ListAllMatching(ctx, tree, s.queryContext(rule.OwnerID))
	if err != nil {
		return RunResult{}, err
	}

	result := RunResult{Matched: len(matches)}
	for _, client := range matches {
		if err := s.execute(ctx, rule, client); err != nil {
			log.Printf("[workflow] rule %s backfill action for client %s: %v", rule.ID, client.ID, err)
			result.Failed++
			continue
		}
		result.Executed++
	}
	return result, nil
}

func (s *Service) execute(ctx context.Context, rule domain.Workflow, client domain.Client) error {
	switch rule.ActionType {
	case domain.ActionCreateTask:
		return s.createTask(ctx, rule, client)
	case domain.ActionSendEmail:
		var cfg domain.SendEmailConfig
		if len(rule.ActionConfig) > 0 {
			if err := json.Unmarshal(rule.ActionConfig, &cfg); err != nil {
				return fmt.Errorf("decode send_email config: %w", err)
			}
		}
		// No mail transport is wired up; record the intent.
		log.Printf("[workflow] rule %s would send template %q to client %s", rule.ID, cfg.TemplateID, client.ID)
		return nil
	default:
		return fmt.Errorf("unknown action type %q", rule.ActionType)
	}
}

func (s *Service) createTask(ctx context.Context, rule domain.Workflow, client domain.Client) error {
	var cfg domain.CreateTaskConfig
	if len(rule.ActionConfig) > 0 {
		if err := json.Unmarshal(rule.ActionConfig, &cfg); err != nil {
			return fmt.Errorf("decode create_task config: %w", err)
		}
	}

	title := cfg.TaskTitle
	if title == "" {
		title = fmt.Sprintf("Follow up with %s", client.Name)
	}
	task := domain.Task{
		Title:    title,
		Status:   domain.TaskStatusTodo,
		Priority: domain.TaskPriorityMedium,
		ClientID: client.ID,
	}
	if cfg.TaskDescription != "" {
		description := cfg.TaskDescription
		task.Description = &description
	}
	if cfg.DueDays > 0 {
		due := s.now().In(s.location).AddDate(0, 0, cfg.DueDays)
		task.DueDate = &due
	}
	if client.OwnerID != nil {
		task.AssignedToID = client.OwnerID
	}

	if _, err := s.tasks.Create(ctx, task); err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}
