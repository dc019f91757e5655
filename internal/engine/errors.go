package engine

import "errors"

var (
	// ErrStoreRequired is returned when a Directory is built without a store.
	ErrStoreRequired = errors.New("directory store required")

	// ErrQueryTooComplex is returned when a query would expand into more
	// spellings than the configured limit.
	ErrQueryTooComplex = errors.New("query expands to too many spellings")

	// ErrInvalidCategory is returned for a non-numeric category constraint.
	ErrInvalidCategory = errors.New("category must be numeric")

	// ErrUnknownView is returned for an unknown business view name.
	ErrUnknownView = errors.New("unknown view")

	// ErrEmptyKeyword is returned when recording a blank search.
	ErrEmptyKeyword = errors.New("keyword is required")
)
