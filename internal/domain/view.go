package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// SortDirection orders a listing ascending or descending.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// ParseSortDirection normalizes a raw direction, defaulting to ascending.
func ParseSortDirection(raw string) SortDirection {
	if SortDirection(raw) == SortDesc {
		return SortDesc
	}
	return SortAsc
}

// SortSpec is a single-column sort order.
type SortSpec struct {
	Field     string        `json:"field"`
	Direction SortDirection `json:"direction"`
}

// Toggle flips direction when re-sorting the same field, otherwise starts
// ascending on the new field. This is the sort-header click behavior.
func (s SortSpec) Toggle(field string) SortSpec {
	if s.Field == field && s.Direction == SortAsc {
		return SortSpec{Field: field, Direction: SortDesc}
	}
	return SortSpec{Field: field, Direction: SortAsc}
}

// SavedView is a named, persisted filter tree plus column and sort
// preferences, selectable as a one-click listing configuration. System
// views are built in: they cannot be deleted or rewritten in place.
type SavedView struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	UserID      uuid.UUID       `json:"user"`
	ViewType    ViewType        `json:"view_type"`
	Filters     json.RawMessage `json:"filters"`
	ColumnOrder []string        `json:"column_order"`
	Sorting     *SortSpec       `json:"sorting,omitempty"`
	Position    int             `json:"position"`
	IsSystem    bool            `json:"is_system"`
	CreatedAt   time.Time       `json:"created_at"`
}

// FilterTree decodes the view's stored filters. The boolean is false for
// the match-everything sentinel (`{}`/null/no conditions).
func (v SavedView) FilterTree() (FilterTree, bool, error) {
	return ParseFilterTree(v.Filters)
}

// SavedViewPatch is a partial update to a saved view. Only non-nil
// attributes are written, so independent UI actions (rename, column
// reorder, sort click, tab drag) do not clobber each other's fields.
type SavedViewPatch struct {
	Name        *string          `json:"name,omitempty"`
	Filters     *json.RawMessage `json:"filters,omitempty"`
	ColumnOrder *[]string        `json:"column_order,omitempty"`
	Sorting     *SortSpec        `json:"sorting,omitempty"`
	Position    *int             `json:"position,omitempty"`
}

// IsZero reports whether the patch writes nothing.
func (p SavedViewPatch) IsZero() bool {
	return p.Name == nil && p.Filters == nil && p.ColumnOrder == nil && p.Sorting == nil && p.Position == nil
}
