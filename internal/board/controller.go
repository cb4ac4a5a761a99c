package board

import (
	"context"
	"fmt"

	"github.com/hylla/taskboard/internal/domain"
)

// ColumnView is one rendered board column.
type ColumnView struct {
	Column domain.Column
	Tasks  []domain.Task
}

// ControllerConfig holds board transition policy.
type ControllerConfig struct {
	// AllowOverrideOnBlocked lets a human move a blocked task to Done.
	AllowOverrideOnBlocked bool
}

// DefaultControllerConfig keeps the permissive Done transition.
func DefaultControllerConfig() ControllerConfig {
	return ControllerConfig{AllowOverrideOnBlocked: true}
}

// Controller owns column membership and status transitions.
// Its drag state is Idle (draggingID == "") or Dragging(draggingID).
type Controller struct {
	intents     Intents
	resolver    *Resolver
	celebration *Celebration
	cfg         ControllerConfig

	draggingID string
}

// NewController builds an idle controller. celebration may be nil.
func NewController(intents Intents, resolver *Resolver, celebration *Celebration, cfg ControllerConfig) *Controller {
	if resolver == nil {
		resolver = NewResolver(DanglingResolved)
	}
	return &Controller{
		intents:     intents,
		resolver:    resolver,
		celebration: celebration,
		cfg:         cfg,
	}
}

// Config returns the transition policy.
func (b *Controller) Config() ControllerConfig {
	return b.cfg
}

// Columns partitions tasks into the four fixed columns. Tasks keep their
// input order within a column; unknown statuses are not shown.
func (b *Controller) Columns(tasks []domain.Task) []ColumnView {
	cols := domain.Columns()
	out := make([]ColumnView, len(cols))
	for idx, col := range cols {
		out[idx] = ColumnView{Column: col, Tasks: []domain.Task{}}
	}
	for _, task := range tasks {
		idx := task.Status.Index()
		if idx < 0 {
			continue
		}
		out[idx].Tasks = append(out[idx].Tasks, task)
	}
	return out
}

// BeginDrag records the task being moved.
func (b *Controller) BeginDrag(taskID string) {
	b.draggingID = taskID
}

// CancelDrag returns to Idle without emitting anything.
func (b *Controller) CancelDrag() {
	b.draggingID = ""
}

// Dragging returns the dragged task id while a drag is active.
func (b *Controller) Dragging() (string, bool) {
	return b.draggingID, b.draggingID != ""
}

// Drop moves the dragged task into status and returns to Idle. With no
// active drag it does nothing. Drag state is cleared even when the move fails.
func (b *Controller) Drop(ctx context.Context, c *Collection, status domain.Status) error {
	taskID, ok := b.Dragging()
	if !ok {
		return nil
	}
	b.draggingID = ""
	return b.MoveTask(ctx, c, taskID, status)
}

// MoveTask issues a status-update intent for taskID. Moving a blocked task
// into Done is refused only when AllowOverrideOnBlocked is off. Every
// successful move into Done triggers the celebration after the intent was
// issued, unless the task was already Done.
func (b *Controller) MoveTask(ctx context.Context, c *Collection, taskID string, status domain.Status) error {
	if !status.Valid() {
		return domain.ErrInvalidStatus
	}
	task, ok := c.Get(taskID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	if status == domain.StatusDone && !b.cfg.AllowOverrideOnBlocked {
		if b.resolver.Readiness(c)[taskID].Blocked {
			return fmt.Errorf("%w: %s has unfinished blockers", ErrTransitionBlocked, taskID)
		}
	}
	if err := b.intents.UpdateTaskStatus(ctx, taskID, status); err != nil {
		return err
	}
	if status == domain.StatusDone && task.Status != domain.StatusDone && b.celebration != nil {
		b.celebration.Trigger()
	}
	return nil
}

// Shift moves taskID delta columns left (negative) or right (positive),
// clamped to the board edges.
func (b *Controller) Shift(ctx context.Context, c *Collection, taskID string, delta int) (domain.Status, error) {
	task, ok := c.Get(taskID)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	target := domain.ColumnAt(task.Status.Index() + delta).Status
	if target == task.Status {
		return target, nil
	}
	return target, b.MoveTask(ctx, c, taskID, target)
}
