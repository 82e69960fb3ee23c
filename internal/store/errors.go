package store

import "errors"

// Errors returned by the schema and record stores. Callers match them with errors.Is.
var (
	ErrNotFound         = errors.New("not found")
	ErrDuplicateColumn  = errors.New("column already exists")
	ErrDuplicateDisplay = errors.New("display name already in use")
	ErrIsIDColumn       = errors.New("the id column cannot be modified")
	ErrMalformedFile    = errors.New("malformed file")
	ErrIO               = errors.New("i/o failure")

	ErrInvalidColumn   = errors.New("invalid column")
	ErrMissingIDColumn = errors.New("schema has no id column")
	ErrRequiredField   = errors.New("required field is empty")
	ErrDuplicateID     = errors.New("duplicate record id")
	ErrIDExhausted     = errors.New("no integer id left")
)

// ErrTableExists is returned when creating a table whose name is already registered.
var ErrTableExists = errors.New("table already exists")
