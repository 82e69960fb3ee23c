package main

import (
	"errors"

	"github.com/matsen/rolo/internal/store"
)

// Exit codes
const (
	ExitSuccess     = 0 // Success
	ExitError       = 1 // General error (invalid arguments, runtime failure)
	ExitConfigError = 2 // Configuration error (no workspace, bad config)
	ExitDataError   = 3 // Data error (malformed file, validation failure)
	ExitNotFound    = 4 // Table, column, or record not found
)

// exitCodeFor maps a store error to an exit code.
func exitCodeFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return ExitNotFound
	case errors.Is(err, store.ErrMalformedFile),
		errors.Is(err, store.ErrDuplicateColumn),
		errors.Is(err, store.ErrDuplicateDisplay),
		errors.Is(err, store.ErrIsIDColumn),
		errors.Is(err, store.ErrInvalidColumn),
		errors.Is(err, store.ErrRequiredField),
		errors.Is(err, store.ErrDuplicateID),
		errors.Is(err, store.ErrIDExhausted),
		errors.Is(err, store.ErrTableExists):
		return ExitDataError
	default:
		return ExitError
	}
}
