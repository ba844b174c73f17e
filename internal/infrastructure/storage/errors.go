package storage

import "errors"

var (
	// ErrDatabaseUnknown is returned when a database id is not configured.
	ErrDatabaseUnknown = errors.New("unknown database")

	// ErrPlanningNotFound is returned when a planning id does not exist
	// or is inactive.
	ErrPlanningNotFound = errors.New("planning not found")

	// ErrProductionNotFound is returned when a production referenced by a
	// task no longer exists upstream.
	ErrProductionNotFound = errors.New("production not found")
)
