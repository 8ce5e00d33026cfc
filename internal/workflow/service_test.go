package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"crm-api/internal/domain"
	"crm-api/internal/query"
	"crm-api/internal/repository"
)

type fakeWorkflowRepo struct {
	rules map[uuid.UUID]domain.Workflow
}

func (f *fakeWorkflowRepo) Create(ctx context.Context, wf domain.Workflow) (domain.Workflow, error) {
	return wf, nil
}

func (f *fakeWorkflowRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Workflow, error) {
	wf, ok := f.rules[id]
	if !ok {
		return domain.Workflow{}, domain.ErrNotFound
	}
	return wf, nil
}

func (f *fakeWorkflowRepo) List(ctx context.Context) ([]domain.Workflow, error) {
	out := make([]domain.Workflow, 0, len(f.rules))
	for _, wf := range f.rules {
		out = append(out, wf)
	}
	return out, nil
}

func (f *fakeWorkflowRepo) ListActiveByTrigger(ctx context.Context, triggerType string) ([]domain.Workflow, error) {
	out := make([]domain.Workflow, 0)
	for _, wf := range f.rules {
		if wf.IsActive && wf.TriggerType == triggerType {
			out = append(out, wf)
		}
	}
	return out, nil
}

func (f *fakeWorkflowRepo) Update(ctx context.Context, wf domain.Workflow) (domain.Workflow, error) {
	return wf, nil
}

func (f *fakeWorkflowRepo) Delete(ctx context.Context, id uuid.UUID) error { return nil }

type fakeClientRepo struct {
	matching  map[uuid.UUID]bool
	all       []domain.Client
	count     int64
	lastQctx  query.Context
	countCall bool
}

func (f *fakeClientRepo) Create(ctx context.Context, c domain.Client) (domain.Client, error) {
	return c, nil
}

func (f *fakeClientRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Client, error) {
	return domain.Client{ID: id}, nil
}

func (f *fakeClientRepo) List(ctx context.Context, q repository.ListQuery, qctx query.Context) ([]domain.Client, int64, error) {
	return nil, 0, nil
}

func (f *fakeClientRepo) ListAllMatching(ctx context.Context, tree domain.FilterTree, qctx query.Context) ([]domain.Client, error) {
	f.lastQctx = qctx
	return f.all, nil
}

func (f *fakeClientRepo) Matches(ctx context.Context, id uuid.UUID, tree domain.FilterTree, qctx query.Context) (bool, error) {
	f.lastQctx = qctx
	return f.matching[id], nil
}

func (f *fakeClientRepo) CountMatching(ctx context.Context, tree domain.FilterTree, qctx query.Context) (int64, error) {
	f.lastQctx = qctx
	f.countCall = true
	return f.count, nil
}

func (f *fakeClientRepo) Update(ctx context.Context, c domain.Client) (domain.Client, error) {
	return c, nil
}

func (f *fakeClientRepo) Delete(ctx context.Context, id uuid.UUID) error { return nil }

type fakeTaskRepo struct {
	created []domain.Task
	fail    map[uuid.UUID]error
}

func (f *fakeTaskRepo) Create(ctx context.Context, t domain.Task) (domain.Task, error) {
	if err := f.fail[t.ClientID]; err != nil {
		return domain.Task{}, err
	}
	f.created = append(f.created, t)
	return t, nil
}

func (f *fakeTaskRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Task, error) {
	return domain.Task{}, domain.ErrNotFound
}

func (f *fakeTaskRepo) List(ctx context.Context, q repository.ListQuery, qctx query.Context) ([]domain.Task, int64, error) {
	return nil, 0, nil
}

func (f *fakeTaskRepo) ListAllMatching(ctx context.Context, tree domain.FilterTree, qctx query.Context) ([]domain.Task, error) {
	return nil, nil
}

func (f *fakeTaskRepo) Update(ctx context.Context, t domain.Task) (domain.Task, error) {
	return t, nil
}

func (f *fakeTaskRepo) SetStatus(ctx context.Context, id uuid.UUID, status string) (domain.Task, error) {
	return domain.Task{}, domain.ErrNotFound
}

func (f *fakeTaskRepo) Delete(ctx context.Context, id uuid.UUID) error { return nil }

func gatedRule(owner uuid.UUID) domain.Workflow {
	return domain.Workflow{
		ID:          uuid.New(),
		Name:        "VIP follow up",
		OwnerID:     owner,
		TriggerType: domain.TriggerClientCreated,
		ActionType:  domain.ActionCreateTask,
		ActionConfig: json.RawMessage(
			`{"task_title":"Welcome call","task_description":"Call within a week","due_days":7}`),
		Filters:  json.RawMessage(`{"logic":"AND","conditions":[{"field":"name","operator":"icontains","value":"vip"}]}`),
		IsActive: true,
	}
}

func TestHandleClientCreatedGatesOnFilters(t *testing.T) {
	owner := uuid.New()
	rule := gatedRule(owner)
	workflows := &fakeWorkflowRepo{rules: map[uuid.UUID]domain.Workflow{rule.ID: rule}}

	matched := domain.Client{ID: uuid.New(), Name: "VIP Corp"}
	unmatched := domain.Client{ID: uuid.New(), Name: "Plain Co"}
	clients := &fakeClientRepo{matching: map[uuid.UUID]bool{matched.ID: true}}
	tasks := &fakeTaskRepo{}

	now := time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC)
	s := NewService(workflows, clients, tasks, WithClock(func() time.Time { return now }, time.UTC))

	s.HandleClientCreated(context.Background(), unmatched)
	if len(tasks.created) != 0 {
		t.Fatalf("unmatched client triggered %d tasks", len(tasks.created))
	}

	s.HandleClientCreated(context.Background(), matched)
	if len(tasks.created) != 1 {
		t.Fatalf("matched client triggered %d tasks, want 1", len(tasks.created))
	}
	task := tasks.created[0]
	if task.Title != "Welcome call" || task.ClientID != matched.ID {
		t.Fatalf("unexpected task %+v", task)
	}
	if task.DueDate == nil || !task.DueDate.Equal(now.AddDate(0, 0, 7)) {
		t.Fatalf("due date = %v, want now+7d", task.DueDate)
	}
	if clients.lastQctx.ActingUserID != owner.String() {
		t.Fatalf("rule filters should evaluate as the rule owner, got %q", clients.lastQctx.ActingUserID)
	}
}

func TestHandleClientCreatedUnconditionalRuleFires(t *testing.T) {
	rule := gatedRule(uuid.Nil)
	rule.Filters = json.RawMessage(`{}`)
	workflows := &fakeWorkflowRepo{rules: map[uuid.UUID]domain.Workflow{rule.ID: rule}}
	clients := &fakeClientRepo{}
	tasks := &fakeTaskRepo{}
	s := NewService(workflows, clients, tasks)

	s.HandleClientCreated(context.Background(), domain.Client{ID: uuid.New(), Name: "Anyone"})
	if len(tasks.created) != 1 {
		t.Fatalf("unconditional rule fired %d times, want 1", len(tasks.created))
	}
}

func TestPreviewCount(t *testing.T) {
	rule := gatedRule(uuid.New())
	workflows := &fakeWorkflowRepo{rules: map[uuid.UUID]domain.Workflow{rule.ID: rule}}
	clients := &fakeClientRepo{count: 42}
	s := NewService(workflows, clients, &fakeTaskRepo{})

	count, err := s.PreviewCount(context.Background(), rule.ID)
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if count == nil || *count != 42 {
		t.Fatalf("count = %v, want 42", count)
	}
}

func TestPreviewCountWithoutFiltersIsNil(t *testing.T) {
	rule := gatedRule(uuid.New())
	rule.Filters = json.RawMessage(`{}`)
	workflows := &fakeWorkflowRepo{rules: map[uuid.UUID]domain.Workflow{rule.ID: rule}}
	clients := &fakeClientRepo{count: 99}
	s := NewService(workflows, clients, &fakeTaskRepo{})

	count, err := s.PreviewCount(context.Background(), rule.ID)
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if count != nil {
		t.Fatalf("unconditional rule should have no preview count, got %d", *count)
	}
	if clients.countCall {
		t.Fatalf("unconditional rule should not hit the store")
	}
}

func TestRunForMatchesRejectsUnfilteredRule(t *testing.T) {
	rule := gatedRule(uuid.New())
	rule.Filters = json.RawMessage(`{}`)
	workflows := &fakeWorkflowRepo{rules: map[uuid.UUID]domain.Workflow{rule.ID: rule}}
	s := NewService(workflows, &fakeClientRepo{}, &fakeTaskRepo{})

	if _, err := s.RunForMatches(context.Background(), rule.ID); !errors.Is(err, domain.ErrNoFilters) {
		t.Fatalf("expected ErrNoFilters, got %v", err)
	}
}

func TestRunForMatchesSkipsFailedRecords(t *testing.T) {
	rule := gatedRule(uuid.New())
	workflows := &fakeWorkflowRepo{rules: map[uuid.UUID]domain.Workflow{rule.ID: rule}}

	good := domain.Client{ID: uuid.New(), Name: "VIP One"}
	bad := domain.Client{ID: uuid.New(), Name: "VIP Two"}
	clients := &fakeClientRepo{all: []domain.Client{good, bad}}
	tasks := &fakeTaskRepo{fail: map[uuid.UUID]error{bad.ID: errors.New("constraint violation")}}
	s := NewService(workflows, clients, tasks)

	result, err := s.RunForMatches(context.Background(), rule.ID)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Matched != 2 || result.Executed != 1 || result.Failed != 1 {
		t.Fatalf("result = %+v, want matched 2 executed 1 failed 1", result)
	}
	if len(tasks.created) != 1 || tasks.created[0].ClientID != good.ID {
		t.Fatalf("wrong tasks created: %+v", tasks.created)
	}

	if _, err := s.RunForMatches(context.Background(), uuid.New()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unknown rule should report not found, got %v", err)
	}
}
