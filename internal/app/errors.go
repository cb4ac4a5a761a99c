package app

import "errors"

// ErrNotFound and related errors describe validation and runtime failures.
var (
	ErrNotFound       = errors.New("not found")
	ErrDependencyLoop = errors.New("dependency cycle")
	ErrInvalidFormat  = errors.New("invalid snapshot format")
)
