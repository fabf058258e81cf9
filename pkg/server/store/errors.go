package store

import "errors"

// ErrNotFound is returned when a record doesn't exist or was soft deleted.
var ErrNotFound = errors.New("not found")

// ListOptions pages and filters list queries. A zero Limit means no limit.
type ListOptions struct {
	Limit  int
	Offset int
	Search string
}

// Page is one window of a list with the total row count before paging.
type Page[T any] struct {
	Items  []T   `json:"items"`
	Total  int64 `json:"total"`
	Limit  int   `json:"limit,omitempty"`
	Offset int   `json:"offset"`
}
