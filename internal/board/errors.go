package board

import "errors"

// ErrTransitionBlocked and related errors describe rejected board operations.
var (
	ErrTransitionBlocked = errors.New("transition blocked")
	ErrGestureInProgress = errors.New("another gesture is in progress")
	ErrTaskNotFound      = errors.New("task not found")
	ErrInvalidPolicy     = errors.New("invalid policy")
)
