package board

import "github.com/hylla/taskboard/internal/domain"

// Collection is an immutable, versioned view of the host's task set.
// Derived state is cached against Version, so a new Collection must be built
// whenever the underlying tasks change.
type Collection struct {
	version    uint64
	tasks      []domain.Task
	index      map[string]int
	tombstones map[string]domain.Tombstone
}

// NewCollection copies tasks and indexes them by id. When ids repeat, the
// last occurrence wins the index slot.
func NewCollection(version uint64, tasks []domain.Task) *Collection {
	c := &Collection{
		version: version,
		tasks:   make([]domain.Task, 0, len(tasks)),
		index:   make(map[string]int, len(tasks)),
	}
	for _, task := range tasks {
		task = task.Clone()
		if idx, ok := c.index[task.ID]; ok {
			c.tasks[idx] = task
			continue
		}
		c.index[task.ID] = len(c.tasks)
		c.tasks = append(c.tasks, task)
	}
	return c
}

// NewCollectionWithTombstones is NewCollection plus the host's record of
// deleted tasks that may still be referenced as blockers.
func NewCollectionWithTombstones(version uint64, tasks []domain.Task, tombstones []domain.Tombstone) *Collection {
	c := NewCollection(version, tasks)
	if len(tombstones) == 0 {
		return c
	}
	c.tombstones = make(map[string]domain.Tombstone, len(tombstones))
	for _, ts := range tombstones {
		if c.Has(ts.ID) {
			continue
		}
		c.tombstones[ts.ID] = ts
	}
	return c
}

// Tombstone returns the removal record for a deleted task id.
func (c *Collection) Tombstone(id string) (domain.Tombstone, bool) {
	if c == nil || c.tombstones == nil {
		return domain.Tombstone{}, false
	}
	ts, ok := c.tombstones[id]
	return ts, ok
}

// Version returns the collection version supplied by the host.
func (c *Collection) Version() uint64 {
	if c == nil {
		return 0
	}
	return c.version
}

// Len returns the number of tasks.
func (c *Collection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.tasks)
}

// Tasks returns a copy of the tasks in host order.
func (c *Collection) Tasks() []domain.Task {
	if c == nil {
		return nil
	}
	out := make([]domain.Task, 0, len(c.tasks))
	for _, task := range c.tasks {
		out = append(out, task.Clone())
	}
	return out
}

// Get looks up a task by id in O(1).
func (c *Collection) Get(id string) (domain.Task, bool) {
	if c == nil {
		return domain.Task{}, false
	}
	idx, ok := c.index[id]
	if !ok {
		return domain.Task{}, false
	}
	return c.tasks[idx].Clone(), true
}

// Has reports whether id is present.
func (c *Collection) Has(id string) bool {
	if c == nil {
		return false
	}
	_, ok := c.index[id]
	return ok
}

// each visits tasks without copying; fn must not retain or mutate them.
func (c *Collection) each(fn func(domain.Task)) {
	if c == nil {
		return
	}
	for _, task := range c.tasks {
		fn(task)
	}
}

// status returns the status of id without copying the task.
func (c *Collection) status(id string) (domain.Status, bool) {
	if c == nil {
		return "", false
	}
	idx, ok := c.index[id]
	if !ok {
		return "", false
	}
	return c.tasks[idx].Status, true
}

// dependencies returns the blocker ids of id without copying.
func (c *Collection) dependencies(id string) []string {
	if c == nil {
		return nil
	}
	idx, ok := c.index[id]
	if !ok {
		return nil
	}
	return c.tasks[idx].Dependencies
}
