package store

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrCategoryNotFound  = errors.New("category not found")
	ErrDuplicateCategory = errors.New("category name already exists")
	ErrDuplicateItem     = errors.New("checklist item already exists")
	// ErrStale means the row was written again after it was read.
	ErrStale = errors.New("row changed since it was read")
)
