package domain

import (
	"slices"
	"strings"
	"time"
)

type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

var validPriorities = []Priority{PriorityHigh, PriorityMedium, PriorityLow}

// Priorities returns the supported priorities from highest to lowest.
func Priorities() []Priority {
	return append([]Priority(nil), validPriorities...)
}

// ParsePriority resolves a case-insensitive priority name.
func ParsePriority(raw string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "high", "h":
		return PriorityHigh, nil
	case "medium", "med", "m":
		return PriorityMedium, nil
	case "low", "l":
		return PriorityLow, nil
	default:
		return "", ErrInvalidPriority
	}
}

type Task struct {
	ID            string
	Title         string
	Description   string
	Project       string
	Priority      Priority
	Status        Status
	DueAt         *time.Time
	Collaborators []string
	Dependencies  []string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type TaskInput struct {
	ID            string
	Title         string
	Description   string
	Project       string
	Priority      Priority
	Status        Status
	DueAt         *time.Time
	Collaborators []string
	Dependencies  []string
}

func NewTask(in TaskInput, now time.Time) (Task, error) {
	in.ID = strings.TrimSpace(in.ID)
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Project = strings.TrimSpace(in.Project)

	if in.ID == "" {
		return Task{}, ErrInvalidID
	}
	if in.Title == "" {
		return Task{}, ErrInvalidTitle
	}

	if in.Priority == "" {
		in.Priority = PriorityMedium
	}
	if !slices.Contains(validPriorities, in.Priority) {
		return Task{}, ErrInvalidPriority
	}
	if in.Status == "" {
		in.Status = StatusBacklog
	}
	if !in.Status.Valid() {
		return Task{}, ErrInvalidStatus
	}

	return Task{
		ID:            in.ID,
		Title:         in.Title,
		Description:   in.Description,
		Project:       in.Project,
		Priority:      in.Priority,
		Status:        in.Status,
		DueAt:         normalizeDueAt(in.DueAt),
		Collaborators: normalizeCollaborators(in.Collaborators),
		Dependencies:  normalizeDependencies(in.ID, in.Dependencies),
		CreatedAt:     now.UTC(),
		UpdatedAt:     now.UTC(),
	}, nil
}

func (t *Task) SetStatus(status Status, now time.Time) error {
	if !status.Valid() {
		return ErrInvalidStatus
	}
	t.Status = status
	t.UpdatedAt = now.UTC()
	return nil
}

// AddDependency records blockerID as a blocker of t. Self references and
// already-present blockers leave t untouched and report false.
func (t *Task) AddDependency(blockerID string, now time.Time) bool {
	blockerID = strings.TrimSpace(blockerID)
	if blockerID == "" || blockerID == t.ID {
		return false
	}
	if slices.Contains(t.Dependencies, blockerID) {
		return false
	}
	t.Dependencies = append(t.Dependencies, blockerID)
	t.UpdatedAt = now.UTC()
	return true
}

func (t *Task) RemoveDependency(blockerID string, now time.Time) bool {
	idx := slices.Index(t.Dependencies, strings.TrimSpace(blockerID))
	if idx < 0 {
		return false
	}
	t.Dependencies = slices.Delete(t.Dependencies, idx, idx+1)
	t.UpdatedAt = now.UTC()
	return true
}

// DependsOn reports whether blockerID is one of t's blockers.
func (t Task) DependsOn(blockerID string) bool {
	return slices.Contains(t.Dependencies, blockerID)
}

// HasCollaborator reports whether assignee is listed on t.
func (t Task) HasCollaborator(assignee string) bool {
	return slices.Contains(t.Collaborators, assignee)
}

// Apply writes the board-mutable fields carried by patch onto t.
func (t *Task) Apply(patch TaskPatch, now time.Time) error {
	if err := patch.Validate(); err != nil {
		return err
	}
	if patch.Status != nil {
		t.Status = *patch.Status
	}
	if patch.Priority != nil {
		t.Priority = *patch.Priority
	}
	switch {
	case patch.ClearDue:
		t.DueAt = nil
	case patch.DueAt != nil:
		t.DueAt = normalizeDueAt(patch.DueAt)
	}
	if patch.Collaborators != nil {
		t.Collaborators = normalizeCollaborators(*patch.Collaborators)
	}
	if patch.Dependencies != nil {
		t.Dependencies = normalizeDependencies(t.ID, *patch.Dependencies)
	}
	t.UpdatedAt = now.UTC()
	return nil
}

// Clone returns a deep copy so callers can mutate slices freely.
func (t Task) Clone() Task {
	out := t
	out.Collaborators = append([]string(nil), t.Collaborators...)
	out.Dependencies = append([]string(nil), t.Dependencies...)
	if t.DueAt != nil {
		due := *t.DueAt
		out.DueAt = &due
	}
	return out
}

func normalizeDueAt(dueAt *time.Time) *time.Time {
	if dueAt == nil {
		return nil
	}
	ts := dueAt.UTC().Truncate(time.Second)
	return &ts
}

// normalizeCollaborators keeps assignee order while dropping blanks and repeats.
func normalizeCollaborators(in []string) []string {
	out := make([]string, 0, len(in))
	seen := map[string]struct{}{}
	for _, raw := range in {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

func normalizeDependencies(selfID string, in []string) []string {
	out := make([]string, 0, len(in))
	seen := map[string]struct{}{}
	for _, raw := range in {
		id := strings.TrimSpace(raw)
		if id == "" || id == selfID {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
