package database

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist
	ErrNotFound = errors.New("record not found")

	// ErrStatusConflict indicates a conditional status update matched zero
	// rows: the record was transitioned by a concurrent request or its
	// current status does not satisfy the transition precondition
	ErrStatusConflict = errors.New("status precondition not satisfied")
)
