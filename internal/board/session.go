package board

import (
	"context"
	"fmt"
	"time"

	"github.com/hylla/taskboard/internal/domain"
)

// SessionConfig holds the board policies a host chooses.
type SessionConfig struct {
	AllowOverrideOnBlocked bool
	RejectCycles           bool
	Dangling               DanglingPolicy
	CelebrationDuration    time.Duration
	CelebrationOptions     []CelebrationOption
}

// DefaultSessionConfig keeps the permissive Done transition, rejects cycles
// and treats missing blockers as resolved.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		AllowOverrideOnBlocked: true,
		RejectCycles:           true,
		Dangling:               DanglingResolved,
		CelebrationDuration:    DefaultCelebrationDuration,
	}
}

// Session is one interactive board: a collection supplied by the host and
// every component that derives state from it. It is not safe for concurrent
// use; the celebration timer is the only background activity.
type Session struct {
	host        Host
	collection  *Collection
	version     uint64
	resolver    *Resolver
	filters     *FilterEngine
	controller  *Controller
	links       *LinkController
	celebration *Celebration
}

// NewSession builds an empty session bound to host.
func NewSession(host Host, cfg SessionConfig) *Session {
	resolver := NewResolver(cfg.Dangling)
	celebration := NewCelebration(cfg.CelebrationDuration, cfg.CelebrationOptions...)
	return &Session{
		host:        host,
		collection:  NewCollection(0, nil),
		resolver:    resolver,
		filters:     NewFilterEngine(),
		controller:  NewController(host, resolver, celebration, ControllerConfig{AllowOverrideOnBlocked: cfg.AllowOverrideOnBlocked}),
		links:       NewLinkController(host, cfg.RejectCycles),
		celebration: celebration,
	}
}

// Load installs a fresh collection. Every call produces a new version, so
// cached derived state is recomputed on next read.
func (s *Session) Load(tasks []domain.Task, tombstones []domain.Tombstone) {
	s.version++
	s.collection = NewCollectionWithTombstones(s.version, tasks, tombstones)
	if id, ok := s.controller.Dragging(); ok && !s.collection.Has(id) {
		s.controller.CancelDrag()
	}
	if id, ok := s.links.PendingBlocker(); ok && !s.collection.Has(id) {
		s.links.Reset()
	}
}

// Collection returns the current collection.
func (s *Session) Collection() *Collection {
	return s.collection
}

// Task looks up one task in the current collection.
func (s *Session) Task(id string) (domain.Task, bool) {
	return s.collection.Get(id)
}

// Readiness returns the derived flags for id.
func (s *Session) Readiness(id string) domain.Readiness {
	return s.resolver.Readiness(s.collection)[id]
}

// ReadinessAll returns the derived flags for every task.
func (s *Session) ReadinessAll() map[string]domain.Readiness {
	return s.resolver.Readiness(s.collection)
}

// Related returns ids linked to id in either direction.
func (s *Session) Related(id string) []string {
	return s.resolver.Related(s.collection, id)
}

// Blockers returns the present blockers of id.
func (s *Session) Blockers(id string) []domain.Task {
	return s.resolver.Blockers(s.collection, id)
}

// Dependents returns the ids blocked by id.
func (s *Session) Dependents(id string) []string {
	return append([]string(nil), s.resolver.ReverseIndex(s.collection)[id]...)
}

// Filters exposes the filter selectors.
func (s *Session) Filters() *FilterEngine {
	return s.filters
}

// FilterOptions lists selector values for the current collection.
func (s *Session) FilterOptions() FilterOptions {
	return Options(s.collection)
}

// Visible returns the filtered tasks.
func (s *Session) Visible() []domain.Task {
	return s.filters.Visible(s.collection)
}

// Columns returns the filtered tasks partitioned into board columns.
func (s *Session) Columns() []ColumnView {
	return s.controller.Columns(s.Visible())
}

// BeginDrag starts moving taskID. It is refused while link mode is on.
func (s *Session) BeginDrag(taskID string) error {
	if s.links.Active() {
		return ErrGestureInProgress
	}
	if !s.collection.Has(taskID) {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	s.controller.BeginDrag(taskID)
	return nil
}

// CancelDrag abandons the active drag.
func (s *Session) CancelDrag() {
	s.controller.CancelDrag()
}

// Dragging returns the dragged task id.
func (s *Session) Dragging() (string, bool) {
	return s.controller.Dragging()
}

// Drop finishes the active drag onto status.
func (s *Session) Drop(ctx context.Context, status domain.Status) error {
	return s.controller.Drop(ctx, s.collection, status)
}

// MoveTask moves taskID to status outside of any gesture.
func (s *Session) MoveTask(ctx context.Context, taskID string, status domain.Status) error {
	return s.controller.MoveTask(ctx, s.collection, taskID, status)
}

// ShiftTask moves taskID delta columns.
func (s *Session) ShiftTask(ctx context.Context, taskID string, delta int) (domain.Status, error) {
	return s.controller.Shift(ctx, s.collection, taskID, delta)
}

// ToggleLinkMode flips link mode. Turning it on is refused while dragging.
func (s *Session) ToggleLinkMode() error {
	if !s.links.Active() {
		if _, dragging := s.controller.Dragging(); dragging {
			return ErrGestureInProgress
		}
	}
	s.links.Toggle()
	return nil
}

// LinkState returns the link gesture state.
func (s *Session) LinkState() LinkState {
	return s.links.State()
}

// PendingBlocker returns the blocker chosen in link mode.
func (s *Session) PendingBlocker() (string, bool) {
	return s.links.PendingBlocker()
}

// ClickTask routes a task click: through link mode when it is on, otherwise
// to the host's focus handler.
func (s *Session) ClickTask(ctx context.Context, taskID string) (LinkOutcome, error) {
	outcome, err := s.links.Click(ctx, s.collection, taskID)
	if err != nil || outcome != LinkOutcomeForward {
		return outcome, err
	}
	task, ok := s.collection.Get(taskID)
	if !ok {
		return outcome, fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	s.host.Focus(FocusTask, task)
	return outcome, nil
}

// UpdateTask forwards a field update intent.
func (s *Session) UpdateTask(ctx context.Context, taskID string, patch domain.TaskPatch) error {
	if err := patch.Validate(); err != nil {
		return err
	}
	if patch.Empty() {
		return nil
	}
	return s.host.UpdateTask(ctx, taskID, patch)
}

// DeleteTask forwards a delete intent. Dangling references left behind are
// handled by the resolver policy on the next Load.
func (s *Session) DeleteTask(ctx context.Context, taskID string) error {
	if id, ok := s.controller.Dragging(); ok && id == taskID {
		s.controller.CancelDrag()
	}
	return s.host.DeleteTask(ctx, taskID)
}

// Celebrating reports whether the completion effect is showing.
func (s *Session) Celebrating() bool {
	return s.celebration.Active()
}

// Celebration exposes the effect timer.
func (s *Session) Celebration() *Celebration {
	return s.celebration
}

// Close stops the celebration timer; call it when the view goes away.
func (s *Session) Close() {
	s.celebration.Stop()
}
