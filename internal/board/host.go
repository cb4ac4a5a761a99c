package board

import (
	"context"

	"github.com/hylla/taskboard/internal/domain"
)

// Intents are the store mutations the board asks its host to apply. The host
// re-supplies the updated collection afterwards.
type Intents interface {
	UpdateTaskStatus(ctx context.Context, id string, status domain.Status) error
	UpdateTask(ctx context.Context, id string, patch domain.TaskPatch) error
	DeleteTask(ctx context.Context, id string) error
	LinkTasks(ctx context.Context, dependentID, blockerID string) error
}

// FocusKind names what the host should focus.
type FocusKind string

// FocusTask is the only focus target the board raises.
const FocusTask FocusKind = "task"

// Host is the full set of callbacks the board needs.
type Host interface {
	Intents
	Focus(kind FocusKind, task domain.Task)
}

// FocusFunc handles a focus request.
type FocusFunc func(kind FocusKind, task domain.Task)

// NewHost combines store intents with a focus handler. A nil focus handler
// discards focus requests.
func NewHost(intents Intents, focus FocusFunc) Host {
	return composedHost{Intents: intents, focus: focus}
}

// composedHost joins an Intents implementation with a FocusFunc.
type composedHost struct {
	Intents
	focus FocusFunc
}

// Focus forwards to the configured handler.
func (h composedHost) Focus(kind FocusKind, task domain.Task) {
	if h.focus == nil {
		return
	}
	h.focus(kind, task)
}
