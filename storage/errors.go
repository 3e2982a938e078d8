package storage

import "errors"

// Storage error constants
var (
	// ErrRuleNotFound is returned when update, remove, or lookup-by-ID
	// references a rule ID that is not present.
	ErrRuleNotFound = errors.New("rule not found")

	// ErrDuplicateRule is returned when attempting to add a rule whose ID is
	// already in use.
	ErrDuplicateRule = errors.New("rule already exists")

	// ErrInvalidRule is returned when a rule fails validation.
	ErrInvalidRule = errors.New("invalid rule")

	// ErrDatabaseClosed is returned when attempting to use a closed database
	// connection.
	ErrDatabaseClosed = errors.New("database is closed")
)
