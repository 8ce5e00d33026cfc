// Package listing drives a filtered, searchable, pageable record listing.
// A Controller owns the interplay between ad hoc filters, a selected saved
// view, free-text search, sorting, and paging, and decides when a state
// change actually requires a new fetch.
package listing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"crm-api/internal/domain"
	"crm-api/internal/repository"
)

// ErrTimeout marks a fetch that exceeded the controller's deadline, as
// opposed to one superseded by a newer request or failed by the store.
var ErrTimeout = errors.New("listing fetch timed out")

// errSuperseded marks a fetch whose result was discarded because a newer
// fetch started while it was in flight.
var errSuperseded = errors.New("listing fetch superseded")

// Page is one fetched page of records plus the total match count.
type Page[T any] struct {
	Items    []T   `json:"items"`
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
}

// FetchFunc loads one page from the record store.
type FetchFunc[T any] func(ctx context.Context, q repository.ListQuery) (Page[T], error)

// Controller tracks listing state for one entity type and fetches pages on
// state changes. All methods are safe for concurrent use.
type Controller[T any] struct {
	mu    sync.Mutex
	fetch FetchFunc[T]

	editor   *domain.FilterEditor
	timeout  time.Duration
	pageSize int

	filters    domain.FilterTree
	hasFilters bool
	activeView *domain.SavedView
	search     string
	sort       domain.SortSpec
	page       int

	columnOrder []string

	// generation invalidates in-flight fetches; cancel aborts them.
	generation uint64
	cancel     context.CancelFunc

	lastSignature string
	current       Page[T]
	lastErr       error
}

// Option configures a Controller.
type Option[T any] func(*Controller[T])

// WithTimeout bounds each fetch. Zero disables the deadline.
func WithTimeout[T any](d time.Duration) Option[T] {
	return func(c *Controller[T]) { c.timeout = d }
}

// WithPageSize sets the page length.
func WithPageSize[T any](n int) Option[T] {
	return func(c *Controller[T]) { c.pageSize = n }
}

// WithDefaultSort sets the initial sort order.
func WithDefaultSort[T any](sort domain.SortSpec) Option[T] {
	return func(c *Controller[T]) { c.sort = sort }
}

// NewController builds a controller over a fetch function and the filter
// editor for the listing's entity type.
func NewController[T any](fetch FetchFunc[T], editor *domain.FilterEditor, opts ...Option[T]) *Controller[T] {
	c := &Controller[T]{
		fetch:    fetch,
		editor:   editor,
		timeout:  30 * time.Second,
		pageSize: 25,
		sort:     domain.SortSpec{Field: "created_at", Direction: domain.SortDesc},
		page:     1,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetFilters replaces the ad hoc filter tree. Any selected view is
// detached and the page resets to 1.
func (c *Controller[T]) SetFilters(ctx context.Context, tree domain.FilterTree) (Page[T], error) {
	c.mu.Lock()
	c.filters = tree
	c.hasFilters = !domain.IsEmptyTree(tree)
	c.activeView = nil
	c.page = 1
	return c.refreshLocked(ctx, false)
}

// ClearFilters drops both ad hoc filters and any selected view.
func (c *Controller[T]) ClearFilters(ctx context.Context) (Page[T], error) {
	c.mu.Lock()
	c.filters = domain.FilterTree{}
	c.hasFilters = false
	c.activeView = nil
	c.page = 1
	return c.refreshLocked(ctx, false)
}

// SelectView adopts a saved view: its filters, and its column order and
// sorting when it carries them. The page resets to 1.
func (c *Controller[T]) SelectView(ctx context.Context, view domain.SavedView) (Page[T], error) {
	tree, hasFilters, err := view.FilterTree()
	if err != nil {
		// A corrupt stored payload degrades to match-everything rather
		// than wedging the listing.
		log.Printf("[listing] view %s has undecodable filters: %v", view.ID, err)
		tree, hasFilters = domain.FilterTree{}, false
	}

	c.mu.Lock()
	v := view
	c.activeView = &v
	c.filters = tree
	c.hasFilters = hasFilters
	if len(view.ColumnOrder) > 0 {
		c.columnOrder = append([]string(nil), view.ColumnOrder...)
	}
	if view.Sorting != nil {
		c.sort = *view.Sorting
	}
	c.page = 1
	return c.refreshLocked(ctx, false)
}

// SetSearch replaces the free-text search term and resets to page 1.
func (c *Controller[T]) SetSearch(ctx context.Context, term string) (Page[T], error) {
	c.mu.Lock()
	c.search = term
	c.page = 1
	return c.refreshLocked(ctx, false)
}

// ToggleSort applies the sort-header click behavior for a field.
func (c *Controller[T]) ToggleSort(ctx context.Context, field string) (Page[T], error) {
	c.mu.Lock()
	c.sort = c.sort.Toggle(field)
	return c.refreshLocked(ctx, false)
}

// SetPage navigates to a page without touching filters or search.
func (c *Controller[T]) SetPage(ctx context.Context, page int) (Page[T], error) {
	if page < 1 {
		page = 1
	}
	c.mu.Lock()
	c.page = page
	return c.refreshLocked(ctx, false)
}

// Refresh re-fetches the current state even if nothing changed.
func (c *Controller[T]) Refresh(ctx context.Context) (Page[T], error) {
	c.mu.Lock()
	return c.refreshLocked(ctx, true)
}

// Editor returns the filter editor for this listing's entity type.
func (c *Controller[T]) Editor() *domain.FilterEditor {
	return c.editor
}

// Current returns the last successfully fetched page. It stays valid when
// a later fetch fails, so the reader keeps seeing data over a transient
// store error.
func (c *Controller[T]) Current() Page[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// LastError returns the error of the most recent fetch, nil after a
// success.
func (c *Controller[T]) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// ActiveView returns the selected saved view, if any.
func (c *Controller[T]) ActiveView() *domain.SavedView {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.activeView == nil {
		return nil
	}
	v := *c.activeView
	return &v
}

// ColumnOrder returns the current column arrangement.
func (c *Controller[T]) ColumnOrder() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.columnOrder...)
}

// Sort returns the current sort order.
func (c *Controller[T]) Sort() domain.SortSpec {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sort
}

// Query materializes the current state as a repository page request.
func (c *Controller[T]) Query() repository.ListQuery {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queryLocked()
}

func (c *Controller[T]) queryLocked() repository.ListQuery {
	return repository.ListQuery{
		Filters:    c.filters,
		HasFilters: c.hasFilters,
		Search:     c.search,
		Sort:       c.sort,
		Page:       c.page,
		PageSize:   c.pageSize,
	}
}

// refreshLocked is entered holding c.mu and releases it itself: the lock is
// dropped for the duration of the fetch so state changes (and cancellation)
// stay possible while a slow fetch is in flight.
func (c *Controller[T]) refreshLocked(ctx context.Context, force bool) (Page[T], error) {
	q := c.queryLocked()
	signature := signatureOf(q, c.viewIDLocked())

	// Identical consecutive request: serve the cached page. A failed
	// fetch clears the signature, so retries are never swallowed.
	if !force && signature == c.lastSignature {
		page := c.current
		c.mu.Unlock()
		return page, nil
	}

	// Supersede whatever is in flight.
	if c.cancel != nil {
		c.cancel()
	}
	c.generation++
	generation := c.generation

	fetchCtx := ctx
	var cancel context.CancelFunc
	if c.timeout > 0 {
		fetchCtx, cancel = context.WithTimeout(ctx, c.timeout)
	} else {
		fetchCtx, cancel = context.WithCancel(ctx)
	}
	c.cancel = cancel
	c.mu.Unlock()

	page, err := c.fetch(fetchCtx, q)
	cancel()

	c.mu.Lock()
	defer c.mu.Unlock()

	if generation != c.generation {
		// A newer fetch owns the state now; drop this result.
		return c.current, errSuperseded
	}

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		// Keep the previous page visible; surface the failure.
		c.lastErr = err
		c.lastSignature = ""
		return c.current, err
	}

	page.Page = q.Page
	page.PageSize = q.PageSize
	c.current = page
	c.lastErr = nil
	c.lastSignature = signature
	return page, nil
}

func (c *Controller[T]) viewIDLocked() string {
	if c.activeView == nil {
		return ""
	}
	return c.activeView.ID.String()
}

// signatureOf canonicalizes a page request for duplicate suppression.
type signaturePayload struct {
	Filters  domain.FilterTree `json:"filters"`
	Has      bool              `json:"has"`
	ViewID   string            `json:"view_id"`
	Search   string            `json:"search"`
	Sort     domain.SortSpec   `json:"sort"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
}

func signatureOf(q repository.ListQuery, viewID string) string {
	encoded, err := json.Marshal(signaturePayload{
		Filters:  q.Filters,
		Has:      q.HasFilters,
		ViewID:   viewID,
		Search:   q.Search,
		Sort:     q.Sort,
		Page:     q.Page,
		PageSize: q.PageSize,
	})
	if err != nil {
		return uuid.New().String()
	}
	return string(encoded)
}
