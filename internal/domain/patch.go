package domain

import (
	"slices"
	"time"
)

// TaskPatch carries optional updates to the fields the board is allowed to change.
// Nil fields are left untouched.
type TaskPatch struct {
	Status        *Status
	Priority      *Priority
	DueAt         *time.Time
	ClearDue      bool
	Collaborators *[]string
	Dependencies  *[]string
}

// Validate checks enum values carried by the patch.
func (p TaskPatch) Validate() error {
	if p.Status != nil && !p.Status.Valid() {
		return ErrInvalidStatus
	}
	if p.Priority != nil && !slices.Contains(validPriorities, *p.Priority) {
		return ErrInvalidPriority
	}
	return nil
}

// Empty reports whether the patch changes nothing.
func (p TaskPatch) Empty() bool {
	return p.Status == nil && p.Priority == nil && p.DueAt == nil && !p.ClearDue &&
		p.Collaborators == nil && p.Dependencies == nil
}

// StatusPatch builds a patch that only changes status.
func StatusPatch(status Status) TaskPatch {
	return TaskPatch{Status: &status}
}

// DependenciesPatch builds a patch that replaces the blocker set.
func DependenciesPatch(ids []string) TaskPatch {
	cp := append([]string(nil), ids...)
	return TaskPatch{Dependencies: &cp}
}
