package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"crm-api/internal/db"
	"crm-api/internal/domain"
	"crm-api/internal/query"
)

// Tasks are always read joined to their client and assignee so listings can
// show (and sort by) the denormalized names.
const taskSelect = `
	SELECT t.id, t.title, t.description, t.status, t.priority, t.due_date, t.completed_at,
	       t.client_id, COALESCE(c.name, ''), t.assigned_to_id, COALESCE(u.username, ''),
	       t.created_at, t.updated_at
	FROM tasks t
	LEFT JOIN clients c ON c.id = t.client_id
	LEFT JOIN users u ON u.id = t.assigned_to_id`

type taskRepository struct {
	db         db.DBTX
	translator *query.Translator
}

// NewTaskRepository creates a repository for task records.
func NewTaskRepository(exec db.DBTX) TaskRepository {
	return &taskRepository{
		db:         exec,
		translator: query.TaskTranslator(),
	}
}

func (r *taskRepository) Create(ctx context.Context, task domain.Task) (domain.Task, error) {
	var id uuid.UUID
	err := r.db.QueryRow(ctx, `
		INSERT INTO tasks (title, description, status, priority, due_date, client_id, assigned_to_id, completed_at)
		VALUES ($1, COALESCE($2, ''), $3, $4, $5, $6, $7, CASE WHEN $3 = 'done' THEN now() END)
		RETURNING id`,
		task.Title, task.Description, defaultString(task.Status, domain.TaskStatusTodo),
		defaultString(task.Priority, domain.TaskPriorityMedium),
		task.DueDate, task.ClientID, task.AssignedToID,
	).Scan(&id)
	if err != nil {
		return domain.Task{}, fmt.Errorf("create task: %w", err)
	}
	return r.GetByID(ctx, id)
}

func (r *taskRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Task, error) {
	row := r.db.QueryRow(ctx, taskSelect+" WHERE t.id = $1", id)
	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Task{}, domain.ErrNotFound
		}
		return domain.Task{}, fmt.Errorf("get task: %w", err)
	}
	return task, nil
}

func (r *taskRepository) List(ctx context.Context, q ListQuery, qctx query.Context) ([]domain.Task, int64, error) {
	q = q.Normalize()

	where, args := r.whereFor(q, qctx)

	var total int64
	countSQL := "SELECT COUNT(*) FROM tasks t LEFT JOIN clients c ON c.id = t.client_id LEFT JOIN users u ON u.id = t.assigned_to_id" + where
	if err := r.db.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count tasks: %w", err)
	}

	pageSQL := fmt.Sprintf("%s%s ORDER BY %s LIMIT %d OFFSET %d",
		taskSelect, where, r.translator.OrderBy(q.Sort), q.PageSize, q.Offset())
	rows, err := r.db.Query(ctx, pageSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks, err := collectTasks(rows)
	if err != nil {
		return nil, 0, err
	}
	return tasks, total, nil
}

func (r *taskRepository) ListAllMatching(ctx context.Context, tree domain.FilterTree, qctx query.Context) ([]domain.Task, error) {
	where, args := whereClause(r.translator.Where(tree, qctx, 0))
	rows, err := r.db.Query(ctx, taskSelect+where+" ORDER BY t.created_at", args...)
	if err != nil {
		return nil, fmt.Errorf("list matching tasks: %w", err)
	}
	defer rows.Close()
	return collectTasks(rows)
}

func (r *taskRepository) Update(ctx context.Context, task domain.Task) (domain.Task, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE tasks
		SET title = $2, description = COALESCE($3, ''), priority = $4, due_date = $5,
		    client_id = $6, assigned_to_id = $7, updated_at = now()
		WHERE id = $1`,
		task.ID, task.Title, task.Description, task.Priority, task.DueDate, task.ClientID, task.AssignedToID,
	)
	if err != nil {
		return domain.Task{}, fmt.Errorf("update task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.Task{}, domain.ErrNotFound
	}
	return r.GetByID(ctx, task.ID)
}

// SetStatus transitions the status, stamping completed_at on entry to done
// and clearing it on leaving done.
func (r *taskRepository) SetStatus(ctx context.Context, id uuid.UUID, status string) (domain.Task, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE tasks
		SET status = $2,
		    completed_at = CASE
		        WHEN $2 = 'done' AND status <> 'done' THEN now()
		        WHEN $2 <> 'done' THEN NULL
		        ELSE completed_at
		    END,
		    updated_at = now()
		WHERE id = $1`,
		id, status,
	)
	if err != nil {
		return domain.Task{}, fmt.Errorf("set task status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.Task{}, domain.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *taskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, "DELETE FROM tasks WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *taskRepository) whereFor(q ListQuery, qctx query.Context) (string, []any) {
	parts := make([]string, 0, 2)
	args := make([]any, 0, 4)

	if q.HasFilters {
		predicate, filterArgs := r.translator.Where(q.Filters, qctx, 0)
		if predicate != "" {
			parts = append(parts, predicate)
			args = append(args, filterArgs...)
		}
	}
	if predicate, searchArgs := r.translator.Search(q.Search, len(args)); predicate != "" {
		parts = append(parts, predicate)
		args = append(args, searchArgs...)
	}
	if len(parts) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(parts, " AND "), args
}

func scanTask(row pgx.Row) (domain.Task, error) {
	var t domain.Task
	var description string
	err := row.Scan(
		&t.ID, &t.Title, &description, &t.Status, &t.Priority, &t.DueDate, &t.CompletedAt,
		&t.ClientID, &t.ClientName, &t.AssignedToID, &t.AssignedTo,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return domain.Task{}, err
	}
	if description != "" {
		t.Description = &description
	}
	return t, nil
}

func collectTasks(rows pgx.Rows) ([]domain.Task, error) {
	tasks := make([]domain.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return tasks, nil
}

func defaultString(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
