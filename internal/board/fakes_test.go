package board

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/hylla/taskboard/internal/domain"
)

// fakeHost applies intents to an in-memory task list and records each call.
type fakeHost struct {
	tasks   []domain.Task
	calls   []string
	focused []string
	failAll error
}

func newFakeHost(tasks ...domain.Task) *fakeHost {
	return &fakeHost{tasks: tasks}
}

func (h *fakeHost) find(id string) int {
	return slices.IndexFunc(h.tasks, func(t domain.Task) bool { return t.ID == id })
}

func (h *fakeHost) UpdateTaskStatus(_ context.Context, id string, status domain.Status) error {
	h.calls = append(h.calls, "status:"+id+":"+string(status))
	if h.failAll != nil {
		return h.failAll
	}
	if idx := h.find(id); idx >= 0 {
		h.tasks[idx].Status = status
	}
	return nil
}

func (h *fakeHost) UpdateTask(_ context.Context, id string, patch domain.TaskPatch) error {
	h.calls = append(h.calls, "update:"+id)
	if h.failAll != nil {
		return h.failAll
	}
	if idx := h.find(id); idx >= 0 {
		return h.tasks[idx].Apply(patch, time.Now())
	}
	return nil
}

func (h *fakeHost) DeleteTask(_ context.Context, id string) error {
	h.calls = append(h.calls, "delete:"+id)
	if h.failAll != nil {
		return h.failAll
	}
	if idx := h.find(id); idx >= 0 {
		h.tasks = slices.Delete(h.tasks, idx, idx+1)
	}
	return nil
}

func (h *fakeHost) LinkTasks(_ context.Context, dependentID, blockerID string) error {
	h.calls = append(h.calls, "link:"+dependentID+"<-"+blockerID)
	if h.failAll != nil {
		return h.failAll
	}
	if idx := h.find(dependentID); idx >= 0 {
		h.tasks[idx].AddDependency(blockerID, time.Now())
	}
	return nil
}

func (h *fakeHost) Focus(_ FocusKind, task domain.Task) {
	h.focused = append(h.focused, task.ID)
}

// collection snapshots the host's tasks at version.
func (h *fakeHost) collection(version uint64) *Collection {
	return NewCollection(version, h.tasks)
}

// fakeTimer captures scheduled callbacks so tests decide when they fire.
type fakeTimer struct {
	mu      sync.Mutex
	fn      func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	was := !t.stopped
	t.stopped = true
	return was
}

// fire runs the callback as the runtime would, even if Stop raced it.
func (t *fakeTimer) fire() {
	t.fn()
}

type fakeClock struct {
	timers []*fakeTimer
	last   time.Duration
}

func (c *fakeClock) afterFunc(d time.Duration, fn func()) Timer {
	c.last = d
	timer := &fakeTimer{fn: fn}
	c.timers = append(c.timers, timer)
	return timer
}

func task(id string, status domain.Status, deps ...string) domain.Task {
	return domain.Task{
		ID:           id,
		Title:        "task " + id,
		Priority:     domain.PriorityMedium,
		Status:       status,
		Dependencies: deps,
	}
}
