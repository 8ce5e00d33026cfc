package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"crm-api/internal/domain"
	"crm-api/internal/repository"
)

// listResponse is the wire shape of one listing page.
type listResponse[T any] struct {
	Items    []T   `json:"items"`
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
}

var errBothFilterSources = errors.New("filters and view_id are mutually exclusive")

// parseListQuery reads the listing parameters shared by every record
// listing endpoint. Either inline filters or a saved view reference may be
// given, never both; a view also contributes its sorting when the request
// does not sort explicitly.
func (s *Server) parseListQuery(r *http.Request, viewType domain.ViewType) (repository.ListQuery, *domain.SavedView, error) {
	params := r.URL.Query()

	rawFilters := strings.TrimSpace(params.Get("filters"))
	rawViewID := strings.TrimSpace(params.Get("view_id"))
	if rawFilters != "" && rawViewID != "" {
		return repository.ListQuery{}, nil, errBothFilterSources
	}

	q := repository.ListQuery{
		Search: strings.TrimSpace(params.Get("search")),
		Sort:   domain.SortSpec{Field: "created_at", Direction: domain.SortDesc},
		Page:   1,
	}

	var view *domain.SavedView
	switch {
	case rawViewID != "":
		viewID, err := uuid.Parse(rawViewID)
		if err != nil {
			return repository.ListQuery{}, nil, fmt.Errorf("invalid view_id: %v", err)
		}
		loaded, err := s.views.GetByID(r.Context(), viewID)
		if err != nil {
			return repository.ListQuery{}, nil, err
		}
		if loaded.ViewType != viewType {
			return repository.ListQuery{}, nil, fmt.Errorf("view %s is not a %s view", viewID, viewType)
		}
		tree, hasFilters, err := loaded.FilterTree()
		if err != nil {
			return repository.ListQuery{}, nil, fmt.Errorf("stored filters are invalid: %v", err)
		}
		q.Filters = tree
		q.HasFilters = hasFilters
		if loaded.Sorting != nil {
			q.Sort = *loaded.Sorting
		}
		view = &loaded
	case rawFilters != "":
		tree, hasFilters, err := domain.ParseFilterTree([]byte(rawFilters))
		if err != nil {
			return repository.ListQuery{}, nil, fmt.Errorf("invalid filters: %v", err)
		}
		q.Filters = tree
		q.HasFilters = hasFilters
	}

	if field := strings.TrimSpace(params.Get("sort_field")); field != "" {
		q.Sort = domain.SortSpec{
			Field:     field,
			Direction: domain.ParseSortDirection(params.Get("sort_direction")),
		}
	}
	if raw := strings.TrimSpace(params.Get("page")); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return repository.ListQuery{}, nil, errors.New("page must be a positive integer")
		}
		q.Page = page
	}
	if raw := strings.TrimSpace(params.Get("page_size")); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size < 1 {
			return repository.ListQuery{}, nil, errors.New("page_size must be a positive integer")
		}
		q.PageSize = size
	}

	return q.Normalize(), view, nil
}
