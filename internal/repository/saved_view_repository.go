package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"crm-api/internal/db"
	"crm-api/internal/domain"
)

const savedViewColumns = "id, name, user_id, view_type, filters, column_order, sorting, position, is_system, created_at"

type savedViewRepository struct {
	db db.DBTX
}

// NewSavedViewRepository creates a repository for saved views.
func NewSavedViewRepository(exec db.DBTX) SavedViewRepository {
	return &savedViewRepository{db: exec}
}

func (r *savedViewRepository) Create(ctx context.Context, view domain.SavedView) (domain.SavedView, error) {
	if strings.TrimSpace(view.Name) == "" {
		return domain.SavedView{}, domain.ErrNameRequired
	}
	filters := view.Filters
	if len(filters) == 0 {
		filters = json.RawMessage("{}")
	}
	columnOrder, err := json.Marshal(orEmpty(view.ColumnOrder))
	if err != nil {
		return domain.SavedView{}, fmt.Errorf("marshal column order: %w", err)
	}
	sorting, err := marshalSorting(view.Sorting)
	if err != nil {
		return domain.SavedView{}, err
	}

	var userID any
	if view.UserID != uuid.Nil {
		userID = view.UserID
	}

	// New views land after the current last tab of their type.
	row := r.db.QueryRow(ctx, `
		INSERT INTO saved_views (name, user_id, view_type, filters, column_order, sorting, position, is_system)
		VALUES ($1, $2, $3, $4, $5, $6,
		        (SELECT COALESCE(MAX(position), -1) + 1 FROM saved_views WHERE view_type = $3),
		        FALSE)
		RETURNING `+savedViewColumns,
		strings.TrimSpace(view.Name), userID, view.ViewType, filters, columnOrder, sorting,
	)
	created, err := scanSavedView(row)
	if err != nil {
		return domain.SavedView{}, fmt.Errorf("create saved view: %w", err)
	}
	return created, nil
}

func (r *savedViewRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.SavedView, error) {
	row := r.db.QueryRow(ctx,
		"SELECT "+savedViewColumns+" FROM saved_views WHERE id = $1", id)
	view, err := scanSavedView(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.SavedView{}, domain.ErrNotFound
		}
		return domain.SavedView{}, fmt.Errorf("get saved view: %w", err)
	}
	return view, nil
}

func (r *savedViewRepository) ListByType(ctx context.Context, viewType domain.ViewType) ([]domain.SavedView, error) {
	rows, err := r.db.Query(ctx,
		"SELECT "+savedViewColumns+" FROM saved_views WHERE view_type = $1 ORDER BY position, created_at", viewType)
	if err != nil {
		return nil, fmt.Errorf("list saved views: %w", err)
	}
	defer rows.Close()

	views := make([]domain.SavedView, 0)
	for rows.Next() {
		view, err := scanSavedView(rows)
		if err != nil {
			return nil, fmt.Errorf("scan saved view: %w", err)
		}
		views = append(views, view)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate saved views: %w", err)
	}
	return views, nil
}

// Patch writes exactly the attributes the patch carries. A rename to an
// empty name is rejected; system views accept nothing but Position.
func (r *savedViewRepository) Patch(ctx context.Context, id uuid.UUID, patch domain.SavedViewPatch) (domain.SavedView, error) {
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return domain.SavedView{}, err
	}
	if current.IsSystem && (patch.Name != nil || patch.Filters != nil || patch.ColumnOrder != nil || patch.Sorting != nil) {
		return domain.SavedView{}, domain.ErrSystemView
	}
	if patch.IsZero() {
		return current, nil
	}

	sets := make([]string, 0, 5)
	args := []any{id}
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return domain.SavedView{}, domain.ErrNameRequired
		}
		add("name", name)
	}
	if patch.Filters != nil {
		filters := *patch.Filters
		if len(filters) == 0 {
			filters = json.RawMessage("{}")
		}
		add("filters", filters)
	}
	if patch.ColumnOrder != nil {
		columnOrder, err := json.Marshal(orEmpty(*patch.ColumnOrder))
		if err != nil {
			return domain.SavedView{}, fmt.Errorf("marshal column order: %w", err)
		}
		add("column_order", columnOrder)
	}
	if patch.Sorting != nil {
		sorting, err := marshalSorting(patch.Sorting)
		if err != nil {
			return domain.SavedView{}, err
		}
		add("sorting", sorting)
	}
	if patch.Position != nil {
		add("position", *patch.Position)
	}

	row := r.db.QueryRow(ctx,
		"UPDATE saved_views SET "+strings.Join(sets, ", ")+" WHERE id = $1 RETURNING "+savedViewColumns,
		args...,
	)
	updated, err := scanSavedView(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.SavedView{}, domain.ErrNotFound
		}
		return domain.SavedView{}, fmt.Errorf("patch saved view: %w", err)
	}
	return updated, nil
}

func (r *savedViewRepository) Reorder(ctx context.Context, viewType domain.ViewType, orderedIDs []uuid.UUID) error {
	for position, id := range orderedIDs {
		tag, err := r.db.Exec(ctx,
			"UPDATE saved_views SET position = $1 WHERE id = $2 AND view_type = $3",
			position, id, viewType,
		)
		if err != nil {
			return fmt.Errorf("reorder saved views: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrNotFound
		}
	}
	return nil
}

func (r *savedViewRepository) Delete(ctx context.Context, id uuid.UUID) error {
	view, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if view.IsSystem {
		return domain.ErrSystemView
	}
	if _, err := r.db.Exec(ctx, "DELETE FROM saved_views WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete saved view: %w", err)
	}
	return nil
}

func scanSavedView(row pgx.Row) (domain.SavedView, error) {
	var v domain.SavedView
	var userID *uuid.UUID
	var columnOrder []byte
	var sorting []byte
	err := row.Scan(&v.ID, &v.Name, &userID, &v.ViewType, &v.Filters, &columnOrder, &sorting, &v.Position, &v.IsSystem, &v.CreatedAt)
	if err != nil {
		return domain.SavedView{}, err
	}
	if userID != nil {
		v.UserID = *userID
	}
	if len(columnOrder) > 0 {
		if err := json.Unmarshal(columnOrder, &v.ColumnOrder); err != nil {
			return domain.SavedView{}, fmt.Errorf("decode column order: %w", err)
		}
	}
	if v.ColumnOrder == nil {
		v.ColumnOrder = []string{}
	}
	if len(sorting) > 0 && string(sorting) != "null" {
		var spec domain.SortSpec
		if err := json.Unmarshal(sorting, &spec); err != nil {
			return domain.SavedView{}, fmt.Errorf("decode sorting: %w", err)
		}
		v.Sorting = &spec
	}
	return v, nil
}

func marshalSorting(spec *domain.SortSpec) (any, error) {
	if spec == nil {
		return nil, nil
	}
	encoded, err := json.Marshal(spec)
	if err != nil {
		return nil, fmt.Errorf("marshal sorting: %w", err)
	}
	return encoded, nil
}

func orEmpty(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
