package listing

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"crm-api/internal/domain"
	"crm-api/internal/repository"
)

type fakeStore struct {
	mu       sync.Mutex
	calls    []repository.ListQuery
	fail     error
	delay    time.Duration
	released chan struct{}
}

func (s *fakeStore) fetch(ctx context.Context, q repository.ListQuery) (Page[string], error) {
	s.mu.Lock()
	s.calls = append(s.calls, q)
	fail := s.fail
	delay := s.delay
	released := s.released
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return Page[string]{}, ctx.Err()
		}
	}
	if released != nil {
		select {
		case <-released:
		case <-ctx.Done():
			return Page[string]{}, ctx.Err()
		}
	}
	if fail != nil {
		return Page[string]{}, fail
	}
	return Page[string]{Items: []string{"row"}, Total: 1}, nil
}

func (s *fakeStore) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func (s *fakeStore) lastCall(t *testing.T) repository.ListQuery {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.calls) == 0 {
		t.Fatalf("no fetches recorded")
	}
	return s.calls[len(s.calls)-1]
}

func newTestController(store *fakeStore) *Controller[string] {
	return NewController(store.fetch, domain.NewFilterEditor(domain.ClientCatalog))
}

func TestDuplicateRequestsAreSuppressed(t *testing.T) {
	store := &fakeStore{}
	c := newTestController(store)
	ctx := context.Background()

	if _, err := c.SetSearch(ctx, "ann"); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if _, err := c.SetSearch(ctx, "ann"); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if got := store.callCount(); got != 1 {
		t.Fatalf("identical request fetched %d times, want 1", got)
	}

	if _, err := c.SetSearch(ctx, "bob"); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if got := store.callCount(); got != 2 {
		t.Fatalf("changed request fetched %d times total, want 2", got)
	}
}

func TestRefreshBypassesSuppression(t *testing.T) {
	store := &fakeStore{}
	c := newTestController(store)
	ctx := context.Background()

	if _, err := c.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if _, err := c.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if got := store.callCount(); got != 2 {
		t.Fatalf("refresh fetched %d times, want 2", got)
	}
}

func TestFilterAndSearchChangesResetPage(t *testing.T) {
	store := &fakeStore{}
	c := newTestController(store)
	ctx := context.Background()

	if _, err := c.SetPage(ctx, 4); err != nil {
		t.Fatalf("page: %v", err)
	}
	if got := store.lastCall(t).Page; got != 4 {
		t.Fatalf("page = %d, want 4", got)
	}

	if _, err := c.SetSearch(ctx, "acme"); err != nil {
		t.Fatalf("search: %v", err)
	}
	if got := store.lastCall(t).Page; got != 1 {
		t.Fatalf("search change left page at %d, want 1", got)
	}

	if _, err := c.SetPage(ctx, 3); err != nil {
		t.Fatalf("page: %v", err)
	}
	tree := c.Editor().NewTree()
	if _, err := c.SetFilters(ctx, tree); err != nil {
		t.Fatalf("filters: %v", err)
	}
	if got := store.lastCall(t).Page; got != 1 {
		t.Fatalf("filter change left page at %d, want 1", got)
	}
}

func TestSelectViewAdoptsPreferences(t *testing.T) {
	store := &fakeStore{}
	c := newTestController(store)
	ctx := context.Background()

	view := domain.SavedView{
		ID:          uuid.New(),
		Name:        "Mine",
		ViewType:    domain.ViewTypeClient,
		Filters:     []byte(`{"logic":"AND","conditions":[{"field":"owner","operator":"exact","value":"me"}]}`),
		ColumnOrder: []string{"name", "owner", "created_at"},
		Sorting:     &domain.SortSpec{Field: "name", Direction: domain.SortAsc},
	}
	if _, err := c.SelectView(ctx, view); err != nil {
		t.Fatalf("select view: %v", err)
	}

	q := store.lastCall(t)
	if !q.HasFilters {
		t.Fatalf("view filters were not adopted")
	}
	if q.Sort.Field != "name" || q.Sort.Direction != domain.SortAsc {
		t.Fatalf("view sorting not adopted: %+v", q.Sort)
	}
	if got := c.ColumnOrder(); len(got) != 3 || got[0] != "name" {
		t.Fatalf("view column order not adopted: %v", got)
	}
	if c.ActiveView() == nil || c.ActiveView().ID != view.ID {
		t.Fatalf("active view not recorded")
	}

	// Editing filters detaches the view.
	if _, err := c.SetFilters(ctx, c.Editor().NewTree()); err != nil {
		t.Fatalf("filters: %v", err)
	}
	if c.ActiveView() != nil {
		t.Fatalf("ad hoc filters should detach the active view")
	}
}

func TestFetchErrorKeepsPreviousPage(t *testing.T) {
	store := &fakeStore{}
	c := newTestController(store)
	ctx := context.Background()

	if _, err := c.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	boom := errors.New("store down")
	store.mu.Lock()
	store.fail = boom
	store.mu.Unlock()

	if _, err := c.SetSearch(ctx, "x"); !errors.Is(err, boom) {
		t.Fatalf("expected store error, got %v", err)
	}
	if got := c.Current(); len(got.Items) != 1 {
		t.Fatalf("previous page was dropped on error: %+v", got)
	}
	if !errors.Is(c.LastError(), boom) {
		t.Fatalf("last error not surfaced: %v", c.LastError())
	}

	// The failed signature must not suppress the retry.
	store.mu.Lock()
	store.fail = nil
	store.mu.Unlock()
	before := store.callCount()
	if _, err := c.SetSearch(ctx, "x"); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if store.callCount() != before+1 {
		t.Fatalf("retry after failure was suppressed")
	}
	if c.LastError() != nil {
		t.Fatalf("last error should clear on success, got %v", c.LastError())
	}
}

func TestTimeoutIsDistinguishable(t *testing.T) {
	store := &fakeStore{delay: 200 * time.Millisecond}
	c := NewController(store.fetch, domain.NewFilterEditor(domain.ClientCatalog),
		WithTimeout[string](10*time.Millisecond))

	_, err := c.Refresh(context.Background())
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestInFlightFetchIsSuperseded(t *testing.T) {
	released := make(chan struct{})
	store := &fakeStore{released: released}
	c := newTestController(store)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := c.SetSearch(ctx, "slow")
		done <- err
	}()

	// Wait for the slow fetch to start, then issue a newer one.
	for store.callCount() == 0 {
		time.Sleep(time.Millisecond)
	}
	store.mu.Lock()
	store.released = nil
	store.mu.Unlock()

	if _, err := c.SetSearch(ctx, "fast"); err != nil {
		t.Fatalf("newer fetch: %v", err)
	}
	close(released)

	if err := <-done; err == nil {
		t.Fatalf("superseded fetch should not report success")
	}
	q := c.Query()
	if q.Search != "fast" {
		t.Fatalf("state = %q, want the newer request to win", q.Search)
	}
}
