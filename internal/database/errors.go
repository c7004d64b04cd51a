package database

import "errors"

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// ErrDuplicateName is returned when a unique name constraint is violated.
var ErrDuplicateName = errors.New("name already exists")
