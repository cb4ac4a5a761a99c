package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hylla/taskboard/internal/board"
	"github.com/hylla/taskboard/internal/domain"
)

// SnapshotVersion defines a package constant value.
const SnapshotVersion = "taskboard.snapshot.v1"

// SnapshotFormat selects the snapshot encoding.
type SnapshotFormat string

// SnapshotFormatJSON and related constants define supported encodings.
const (
	SnapshotFormatJSON SnapshotFormat = "json"
	SnapshotFormatYAML SnapshotFormat = "yaml"
)

// ParseSnapshotFormat resolves a --format flag value; empty means JSON.
func ParseSnapshotFormat(raw string) (SnapshotFormat, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "json":
		return SnapshotFormatJSON, nil
	case "yaml", "yml":
		return SnapshotFormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidFormat, raw)
	}
}

// Snapshot is a portable copy of the whole board.
type Snapshot struct {
	Version    string              `json:"version" yaml:"version"`
	ExportedAt time.Time           `json:"exported_at" yaml:"exported_at"`
	Tasks      []SnapshotTask      `json:"tasks" yaml:"tasks"`
	Tombstones []SnapshotTombstone `json:"tombstones,omitempty" yaml:"tombstones,omitempty"`
}

// SnapshotTask represents snapshot task data used by this package.
type SnapshotTask struct {
	ID            string     `json:"id" yaml:"id"`
	Title         string     `json:"title" yaml:"title"`
	Description   string     `json:"description,omitempty" yaml:"description,omitempty"`
	Project       string     `json:"project,omitempty" yaml:"project,omitempty"`
	Priority      string     `json:"priority" yaml:"priority"`
	Status        string     `json:"status" yaml:"status"`
	DueAt         *time.Time `json:"due_at,omitempty" yaml:"due_at,omitempty"`
	Collaborators []string   `json:"collaborators,omitempty" yaml:"collaborators,omitempty"`
	Dependencies  []string   `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	CreatedAt     time.Time  `json:"created_at" yaml:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" yaml:"updated_at"`
}

// SnapshotTombstone represents a deleted blocker in a snapshot.
type SnapshotTombstone struct {
	ID        string    `json:"id" yaml:"id"`
	Title     string    `json:"title,omitempty" yaml:"title,omitempty"`
	RemovedAt time.Time `json:"removed_at" yaml:"removed_at"`
}

// ExportSnapshot handles export snapshot.
func (s *Service) ExportSnapshot(ctx context.Context) (Snapshot, error) {
	tasks, tombstones, err := s.LoadBoard(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	snap := Snapshot{
		Version:    SnapshotVersion,
		ExportedAt: s.clock().UTC(),
		Tasks:      make([]SnapshotTask, 0, len(tasks)),
		Tombstones: make([]SnapshotTombstone, 0, len(tombstones)),
	}
	for _, task := range tasks {
		snap.Tasks = append(snap.Tasks, snapshotTaskFromDomain(task))
	}
	for _, ts := range tombstones {
		snap.Tombstones = append(snap.Tombstones, SnapshotTombstone{
			ID:        ts.ID,
			Title:     ts.Title,
			RemovedAt: ts.RemovedAt.UTC(),
		})
	}
	snap.sort()
	return snap, nil
}

// ImportSnapshot upserts every task and tombstone in snap in one repository
// write. With RejectCycles set, the store as it would look after the import
// must stay acyclic.
func (s *Service) ImportSnapshot(ctx context.Context, snap Snapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}
	snap.sort()

	tasks := make([]domain.Task, 0, len(snap.Tasks))
	for _, task := range snap.Tasks {
		tasks = append(tasks, task.toDomain())
	}
	if s.cfg.RejectCycles {
		existing, err := s.repo.ListTasks(ctx)
		if err != nil {
			return err
		}
		if err := checkMergedAcyclic(existing, tasks); err != nil {
			return err
		}
	}

	tombstones := make([]domain.Tombstone, 0, len(snap.Tombstones))
	for _, ts := range snap.Tombstones {
		tombstones = append(tombstones, domain.Tombstone{
			ID:        strings.TrimSpace(ts.ID),
			Title:     ts.Title,
			RemovedAt: ts.RemovedAt.UTC(),
		})
	}
	return s.repo.ImportTasks(ctx, tasks, tombstones)
}

// Validate validates the requested operation.
func (s *Snapshot) Validate() error {
	if s.Version != "" && s.Version != SnapshotVersion {
		return fmt.Errorf("unsupported snapshot version: %q", s.Version)
	}

	taskIDs := map[string]struct{}{}
	for i, t := range s.Tasks {
		id := strings.TrimSpace(t.ID)
		if id == "" {
			return fmt.Errorf("tasks[%d].id is required", i)
		}
		if strings.TrimSpace(t.Title) == "" {
			return fmt.Errorf("tasks[%d].title is required", i)
		}
		if _, err := domain.ParsePriority(t.Priority); err != nil {
			return fmt.Errorf("tasks[%d].priority %q: %w", i, t.Priority, err)
		}
		if _, err := domain.ParseStatus(t.Status); err != nil {
			return fmt.Errorf("tasks[%d].status %q: %w", i, t.Status, err)
		}
		if t.CreatedAt.IsZero() || t.UpdatedAt.IsZero() {
			return fmt.Errorf("tasks[%d] timestamps are required", i)
		}
		if _, exists := taskIDs[id]; exists {
			return fmt.Errorf("duplicate task id: %q", id)
		}
		taskIDs[id] = struct{}{}
	}
	for i, ts := range s.Tombstones {
		if strings.TrimSpace(ts.ID) == "" {
			return fmt.Errorf("tombstones[%d].id is required", i)
		}
		if ts.RemovedAt.IsZero() {
			return fmt.Errorf("tombstones[%d].removed_at is required", i)
		}
	}
	return nil
}

// checkMergedAcyclic rejects an import when the stored tasks overlaid with
// imported ones contain a loop.
func checkMergedAcyclic(existing, imported []domain.Task) error {
	merged := make([]domain.Task, 0, len(existing)+len(imported))
	merged = append(merged, existing...)
	merged = append(merged, imported...)
	// Later ids win in NewCollection, so imported tasks replace stored ones.
	if cycle := board.DetectCycle(board.NewCollection(0, merged)); cycle != nil {
		return fmt.Errorf("%w: %s", ErrDependencyLoop, strings.Join(cycle, " -> "))
	}
	return nil
}

// WriteSnapshot encodes snap to w.
func WriteSnapshot(w io.Writer, snap Snapshot, format SnapshotFormat) error {
	switch format {
	case SnapshotFormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(snap); err != nil {
			return fmt.Errorf("encode yaml snapshot: %w", err)
		}
		return enc.Close()
	case SnapshotFormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(snap); err != nil {
			return fmt.Errorf("encode json snapshot: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidFormat, format)
	}
}

// ReadSnapshot decodes a snapshot from r.
func ReadSnapshot(r io.Reader, format SnapshotFormat) (Snapshot, error) {
	var snap Snapshot
	switch format {
	case SnapshotFormatYAML:
		if err := yaml.NewDecoder(r).Decode(&snap); err != nil {
			return Snapshot{}, fmt.Errorf("decode yaml snapshot: %w", err)
		}
	case SnapshotFormatJSON, "":
		if err := json.NewDecoder(r).Decode(&snap); err != nil {
			return Snapshot{}, fmt.Errorf("decode json snapshot: %w", err)
		}
	default:
		return Snapshot{}, fmt.Errorf("%w: %q", ErrInvalidFormat, format)
	}
	return snap, nil
}

// sort orders tasks by creation time then id, tombstones by id.
func (s *Snapshot) sort() {
	sort.Slice(s.Tasks, func(i, j int) bool {
		a := s.Tasks[i]
		b := s.Tasks[j]
		if a.CreatedAt.Equal(b.CreatedAt) {
			return a.ID < b.ID
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
	sort.Slice(s.Tombstones, func(i, j int) bool {
		return s.Tombstones[i].ID < s.Tombstones[j].ID
	})
}

func snapshotTaskFromDomain(t domain.Task) SnapshotTask {
	return SnapshotTask{
		ID:            t.ID,
		Title:         t.Title,
		Description:   t.Description,
		Project:       t.Project,
		Priority:      string(t.Priority),
		Status:        string(t.Status),
		DueAt:         copyTimePtr(t.DueAt),
		Collaborators: append([]string(nil), t.Collaborators...),
		Dependencies:  append([]string(nil), t.Dependencies...),
		CreatedAt:     t.CreatedAt.UTC(),
		UpdatedAt:     t.UpdatedAt.UTC(),
	}
}

// toDomain converts a validated snapshot task.
func (t SnapshotTask) toDomain() domain.Task {
	priority, err := domain.ParsePriority(t.Priority)
	if err != nil {
		priority = domain.PriorityMedium
	}
	status, err := domain.ParseStatus(t.Status)
	if err != nil {
		status = domain.StatusBacklog
	}
	id := strings.TrimSpace(t.ID)
	task := domain.Task{
		ID:          id,
		Title:       strings.TrimSpace(t.Title),
		Description: strings.TrimSpace(t.Description),
		Project:     strings.TrimSpace(t.Project),
		Priority:    priority,
		Status:      status,
		DueAt:       copyTimePtr(t.DueAt),
		CreatedAt:   t.CreatedAt.UTC(),
		UpdatedAt:   t.UpdatedAt.UTC(),
	}
	// Normalize through the patch path so snapshots obey the same list rules.
	people := append([]string(nil), t.Collaborators...)
	deps := append([]string(nil), t.Dependencies...)
	_ = task.Apply(domain.TaskPatch{Collaborators: &people, Dependencies: &deps}, task.UpdatedAt)
	return task
}

// copyTimePtr copies time ptr.
func copyTimePtr(in *time.Time) *time.Time {
	if in == nil {
		return nil
	}
	t := in.UTC().Truncate(time.Second)
	return &t
}
