package domain

import (
	"strings"
	"time"
)

// Readiness is the derived dependency state of one task.
type Readiness struct {
	Blocked bool
	Ready   bool
}

// Tombstone is the minimal record kept for a deleted task that other tasks
// still list as a blocker.
type Tombstone struct {
	ID        string
	Title     string
	RemovedAt time.Time
}

// NewTombstone records the removal of task at now.
func NewTombstone(task Task, now time.Time) (Tombstone, error) {
	id := strings.TrimSpace(task.ID)
	if id == "" {
		return Tombstone{}, ErrInvalidID
	}
	return Tombstone{
		ID:        id,
		Title:     task.Title,
		RemovedAt: now.UTC(),
	}, nil
}
