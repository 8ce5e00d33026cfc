package domain

import "errors"

// Sentinel errors shared across repositories and services. Handlers map
// them to HTTP status codes; everything else surfaces as a 500.
var (
	// ErrNotFound marks a stale or unknown record identifier.
	ErrNotFound = errors.New("record not found")
	// ErrSystemView marks a delete/rename/overwrite attempt on a
	// system-owned saved view.
	ErrSystemView = errors.New("system views cannot be modified or deleted")
	// ErrNameRequired marks a save attempt with an empty required name.
	ErrNameRequired = errors.New("name is required")
	// ErrNoFilters marks a backfill run requested on a workflow without
	// gating filters.
	ErrNoFilters = errors.New("workflow has no filters")
)
