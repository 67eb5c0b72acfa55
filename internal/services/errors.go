package services

import "errors"

var (
	// ErrStoreQuery wraps any failure reading totals from the store.
	ErrStoreQuery = errors.New("store query failed")
	// ErrCategoryNotFound means an expense references a category that does not exist.
	ErrCategoryNotFound = errors.New("category does not exist")
	// ErrCategoryInUse is returned when deleting a category that still has expenses.
	ErrCategoryInUse = errors.New("category has expenses")
)
