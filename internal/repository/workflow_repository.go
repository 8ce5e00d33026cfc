package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"crm-api/internal/db"
	"crm-api/internal/domain"
)

const workflowColumns = "id, name, description, owner_id, trigger_type, action_type, action_config, filters, is_active, created_at, updated_at"

type workflowRepository struct {
	db db.DBTX
}

// NewWorkflowRepository creates a repository for workflow rules.
func NewWorkflowRepository(exec db.DBTX) WorkflowRepository {
	return &workflowRepository{db: exec}
}

func (r *workflowRepository) Create(ctx context.Context, wf domain.Workflow) (domain.Workflow, error) {
	if wf.Name == "" {
		return domain.Workflow{}, domain.ErrNameRequired
	}
	var ownerID any
	if wf.OwnerID != uuid.Nil {
		ownerID = wf.OwnerID
	}
	row := r.db.QueryRow(ctx, `
		INSERT INTO workflows (name, description, owner_id, trigger_type, action_type, action_config, filters, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+workflowColumns,
		wf.Name, wf.Description, ownerID, wf.TriggerType, wf.ActionType,
		rawOrEmptyObject(wf.ActionConfig), rawOrEmptyObject(wf.Filters), wf.IsActive,
	)
	created, err := scanWorkflow(row)
	if err != nil {
		return domain.Workflow{}, fmt.Errorf("create workflow: %w", err)
	}
	return created, nil
}

func (r *workflowRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Workflow, error) {
	row := r.db.QueryRow(ctx,
		"SELECT "+workflowColumns+" FROM workflows WHERE id = $1", id)
	wf, err := scanWorkflow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Workflow{}, domain.ErrNotFound
		}
		return domain.Workflow{}, fmt.Errorf("get workflow: %w", err)
	}
	return wf, nil
}

func (r *workflowRepository) List(ctx context.Context) ([]domain.Workflow, error) {
	rows, err := r.db.Query(ctx,
		"SELECT "+workflowColumns+" FROM workflows ORDER BY created_at")
	if err != nil {
		return nil, fmt.Errorf("list workflows: %w", err)
	}
	defer rows.Close()
	return collectWorkflows(rows)
}

func (r *workflowRepository) ListActiveByTrigger(ctx context.Context, triggerType string) ([]domain.Workflow, error) {
	rows, err := r.db.Query(ctx,
		"SELECT "+workflowColumns+" FROM workflows WHERE trigger_type = $1 AND is_active ORDER BY created_at",
		triggerType)
	if err != nil {
		return nil, fmt.Errorf("list active workflows: %w", err)
	}
	defer rows.Close()
	return collectWorkflows(rows)
}

func (r *workflowRepository) Update(ctx context.Context, wf domain.Workflow) (domain.Workflow, error) {
	if wf.Name == "" {
		return domain.Workflow{}, domain.ErrNameRequired
	}
	row := r.db.QueryRow(ctx, `
		UPDATE workflows
		SET name = $2, description = $3, trigger_type = $4, action_type = $5,
		    action_config = $6, filters = $7, is_active = $8, updated_at = now()
		WHERE id = $1
		RETURNING `+workflowColumns,
		wf.ID, wf.Name, wf.Description, wf.TriggerType, wf.ActionType,
		rawOrEmptyObject(wf.ActionConfig), rawOrEmptyObject(wf.Filters), wf.IsActive,
	)
	updated, err := scanWorkflow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Workflow{}, domain.ErrNotFound
		}
		return domain.Workflow{}, fmt.Errorf("update workflow: %w", err)
	}
	return updated, nil
}

func (r *workflowRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, "DELETE FROM workflows WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete workflow: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanWorkflow(row pgx.Row) (domain.Workflow, error) {
	var w domain.Workflow
	var ownerID *uuid.UUID
	err := row.Scan(&w.ID, &w.Name, &w.Description, &ownerID, &w.TriggerType, &w.ActionType,
		&w.ActionConfig, &w.Filters, &w.IsActive, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return domain.Workflow{}, err
	}
	if ownerID != nil {
		w.OwnerID = *ownerID
	}
	return w, nil
}

func collectWorkflows(rows pgx.Rows) ([]domain.Workflow, error) {
	workflows := make([]domain.Workflow, 0)
	for rows.Next() {
		wf, err := scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan workflow: %w", err)
		}
		workflows = append(workflows, wf)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate workflows: %w", err)
	}
	return workflows, nil
}

func rawOrEmptyObject(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage("{}")
	}
	return raw
}
