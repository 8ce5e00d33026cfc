package repository

import (
	"context"

	"github.com/google/uuid"

	"crm-api/internal/domain"
	"crm-api/internal/query"
)

// ListQuery is a page request over a filtered, searched, sorted listing.
// Filters and ViewID are mutually exclusive; the listing service resolves a
// view into its filter tree before the repository sees the request.
type ListQuery struct {
	Filters    domain.FilterTree
	HasFilters bool
	Search     string
	Sort       domain.SortSpec
	Page       int
	PageSize   int
}

// Normalize clamps paging to sane bounds.
func (q ListQuery) Normalize() ListQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 || q.PageSize > 200 {
		q.PageSize = 25
	}
	return q
}

// Offset returns the row offset of the requested page.
func (q ListQuery) Offset() int {
	return (q.Page - 1) * q.PageSize
}

// ClientRepository defines the interface for client record operations.
type ClientRepository interface {
	Create(ctx context.Context, client domain.Client) (domain.Client, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Client, error)
	List(ctx context.Context, q ListQuery, qctx query.Context) ([]domain.Client, int64, error)
	// ListAllMatching streams every client satisfying the filter tree,
	// without paging. Used by workflow backfills and exports.
	ListAllMatching(ctx context.Context, tree domain.FilterTree, qctx query.Context) ([]domain.Client, error)
	// Matches reports whether one client satisfies the filter tree.
	Matches(ctx context.Context, id uuid.UUID, tree domain.FilterTree, qctx query.Context) (bool, error)
	// CountMatching counts clients satisfying the filter tree.
	CountMatching(ctx context.Context, tree domain.FilterTree, qctx query.Context) (int64, error)
	Update(ctx context.Context, client domain.Client) (domain.Client, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// TaskRepository defines the interface for task record operations.
type TaskRepository interface {
	Create(ctx context.Context, task domain.Task) (domain.Task, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Task, error)
	List(ctx context.Context, q ListQuery, qctx query.Context) ([]domain.Task, int64, error)
	ListAllMatching(ctx context.Context, tree domain.FilterTree, qctx query.Context) ([]domain.Task, error)
	Update(ctx context.Context, task domain.Task) (domain.Task, error)
	// SetStatus transitions a task's status, stamping or clearing
	// completed_at as the transition dictates.
	SetStatus(ctx context.Context, id uuid.UUID, status string) (domain.Task, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// NoteRepository defines the interface for client note operations.
type NoteRepository interface {
	Create(ctx context.Context, note domain.Note) (domain.Note, error)
	ListByClient(ctx context.Context, clientID uuid.UUID) ([]domain.Note, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// SavedViewRepository defines the interface for saved view persistence.
type SavedViewRepository interface {
	Create(ctx context.Context, view domain.SavedView) (domain.SavedView, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.SavedView, error)
	ListByType(ctx context.Context, viewType domain.ViewType) ([]domain.SavedView, error)
	// Patch applies a partial update. Absent attributes are untouched.
	// System views accept only Position.
	Patch(ctx context.Context, id uuid.UUID, patch domain.SavedViewPatch) (domain.SavedView, error)
	// Reorder rewrites positions to match the given ID order.
	Reorder(ctx context.Context, viewType domain.ViewType, orderedIDs []uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// WorkflowRepository defines the interface for workflow persistence.
type WorkflowRepository interface {
	Create(ctx context.Context, wf domain.Workflow) (domain.Workflow, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Workflow, error)
	List(ctx context.Context) ([]domain.Workflow, error)
	ListActiveByTrigger(ctx context.Context, triggerType string) ([]domain.Workflow, error)
	Update(ctx context.Context, wf domain.Workflow) (domain.Workflow, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// UserRepository defines the interface for user lookups.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) (domain.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
}
