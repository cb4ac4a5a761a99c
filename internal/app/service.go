package app

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/hylla/taskboard/internal/board"
	"github.com/hylla/taskboard/internal/domain"
)

// ServiceConfig holds configuration for service.
type ServiceConfig struct {
	// RejectCycles refuses links and dependency edits that close a cycle.
	RejectCycles bool
	// PruneDeletedBlockers removes a deleted task from its dependents'
	// blocker lists instead of leaving a tombstoned reference behind.
	PruneDeletedBlockers bool
}

// IDGenerator returns unique identifiers for new entities.
type IDGenerator func() string

// Clock returns the current time.
type Clock func() time.Time

// Service applies board intents to the repository. It implements
// board.Intents; hosts add a focus handler with board.NewHost.
type Service struct {
	repo  Repository
	idGen IDGenerator
	clock Clock
	cfg   ServiceConfig
}

var _ board.Intents = (*Service)(nil)

// NewService constructs a new value for this package.
func NewService(repo Repository, idGen IDGenerator, clock Clock, cfg ServiceConfig) *Service {
	if idGen == nil {
		idGen = func() string { return "" }
	}
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		repo:  repo,
		idGen: idGen,
		clock: clock,
		cfg:   cfg,
	}
}

// CreateTaskInput holds input values for create task operations.
type CreateTaskInput struct {
	Title         string
	Description   string
	Project       string
	Priority      domain.Priority
	Status        domain.Status
	DueAt         *time.Time
	Collaborators []string
	Dependencies  []string
}

// CreateTask creates task. Every listed blocker must already exist.
func (s *Service) CreateTask(ctx context.Context, in CreateTaskInput) (domain.Task, error) {
	task, err := domain.NewTask(domain.TaskInput{
		ID:            s.idGen(),
		Title:         in.Title,
		Description:   in.Description,
		Project:       in.Project,
		Priority:      in.Priority,
		Status:        in.Status,
		DueAt:         in.DueAt,
		Collaborators: in.Collaborators,
		Dependencies:  in.Dependencies,
	}, s.clock())
	if err != nil {
		return domain.Task{}, err
	}
	for _, depID := range task.Dependencies {
		if _, err := s.repo.GetTask(ctx, depID); err != nil {
			return domain.Task{}, fmt.Errorf("blocker %s: %w", depID, err)
		}
	}
	if err := s.repo.CreateTask(ctx, task); err != nil {
		return domain.Task{}, err
	}
	return task, nil
}

// GetTask returns one task.
func (s *Service) GetTask(ctx context.Context, taskID string) (domain.Task, error) {
	return s.repo.GetTask(ctx, strings.TrimSpace(taskID))
}

// ListTasks lists tasks in creation order.
func (s *Service) ListTasks(ctx context.Context) ([]domain.Task, error) {
	return s.repo.ListTasks(ctx)
}

// ListTombstones lists removal records for deleted blockers.
func (s *Service) ListTombstones(ctx context.Context) ([]domain.Tombstone, error) {
	return s.repo.ListTombstones(ctx)
}

// LoadBoard returns everything a board session needs for one Load.
func (s *Service) LoadBoard(ctx context.Context) ([]domain.Task, []domain.Tombstone, error) {
	tasks, err := s.repo.ListTasks(ctx)
	if err != nil {
		return nil, nil, err
	}
	tombstones, err := s.repo.ListTombstones(ctx)
	if err != nil {
		return nil, nil, err
	}
	return tasks, tombstones, nil
}

// UpdateTaskStatus moves a task to another column.
func (s *Service) UpdateTaskStatus(ctx context.Context, taskID string, status domain.Status) error {
	task, err := s.repo.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	if task.Status == status {
		return nil
	}
	if err := task.SetStatus(status, s.clock()); err != nil {
		return err
	}
	return s.repo.UpdateTask(ctx, task)
}

// UpdateTask applies a field patch. Replacing the blocker list is checked for
// cycles when RejectCycles is set.
func (s *Service) UpdateTask(ctx context.Context, taskID string, patch domain.TaskPatch) error {
	task, err := s.repo.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	if err := task.Apply(patch, s.clock()); err != nil {
		return err
	}
	if patch.Dependencies != nil && s.cfg.RejectCycles {
		if err := s.checkAcyclic(ctx, task); err != nil {
			return err
		}
	}
	return s.repo.UpdateTask(ctx, task)
}

// LinkTasks records blockerID as a blocker of dependentID. Self links and
// repeated links succeed without writing.
func (s *Service) LinkTasks(ctx context.Context, dependentID, blockerID string) error {
	dependentID = strings.TrimSpace(dependentID)
	blockerID = strings.TrimSpace(blockerID)
	task, err := s.repo.GetTask(ctx, dependentID)
	if err != nil {
		return err
	}
	if dependentID == blockerID || task.DependsOn(blockerID) {
		return nil
	}
	if _, err := s.repo.GetTask(ctx, blockerID); err != nil {
		return fmt.Errorf("blocker %s: %w", blockerID, err)
	}
	if s.cfg.RejectCycles {
		tasks, err := s.repo.ListTasks(ctx)
		if err != nil {
			return err
		}
		if path, cyclic := board.CyclePath(board.NewCollection(0, tasks), dependentID, blockerID); cyclic {
			return fmt.Errorf("%w: %s", ErrDependencyLoop, strings.Join(append(path, blockerID), " -> "))
		}
	}
	if !task.AddDependency(blockerID, s.clock()) {
		return nil
	}
	return s.repo.UpdateTask(ctx, task)
}

// UnlinkTasks removes blockerID from dependentID's blockers.
func (s *Service) UnlinkTasks(ctx context.Context, dependentID, blockerID string) error {
	task, err := s.repo.GetTask(ctx, dependentID)
	if err != nil {
		return err
	}
	if !task.RemoveDependency(blockerID, s.clock()) {
		return nil
	}
	return s.repo.UpdateTask(ctx, task)
}

// DeleteTask deletes task. When other tasks still list it as a blocker, a
// tombstone is recorded, or the references are pruned under
// PruneDeletedBlockers.
func (s *Service) DeleteTask(ctx context.Context, taskID string) error {
	task, err := s.repo.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	tasks, err := s.repo.ListTasks(ctx)
	if err != nil {
		return err
	}
	now := s.clock()
	removal := TaskRemoval{TaskID: task.ID}
	for _, candidate := range tasks {
		if candidate.ID == task.ID || !candidate.DependsOn(task.ID) {
			continue
		}
		if !s.cfg.PruneDeletedBlockers {
			tombstone, err := domain.NewTombstone(task, now)
			if err != nil {
				return err
			}
			removal.Tombstone = &tombstone
			break
		}
		candidate.RemoveDependency(task.ID, now)
		removal.Pruned = append(removal.Pruned, candidate)
	}
	return s.repo.RemoveTask(ctx, removal)
}

// Dependents returns tasks that list taskID as a blocker.
func (s *Service) Dependents(ctx context.Context, taskID string) ([]domain.Task, error) {
	tasks, err := s.repo.ListTasks(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Task, 0)
	for _, task := range tasks {
		if task.DependsOn(taskID) {
			out = append(out, task)
		}
	}
	return out, nil
}

// checkAcyclic verifies that saving updated adds no edge that closes a cycle.
// Only paths through updated are inspected, so loops elsewhere in the store
// do not block unrelated edits.
func (s *Service) checkAcyclic(ctx context.Context, updated domain.Task) error {
	tasks, err := s.repo.ListTasks(ctx)
	if err != nil {
		return err
	}
	idx := slices.IndexFunc(tasks, func(t domain.Task) bool { return t.ID == updated.ID })
	if idx < 0 {
		return fmt.Errorf("task %s: %w", updated.ID, ErrNotFound)
	}
	previous := tasks[idx]
	c := board.NewCollection(0, tasks)
	for _, blockerID := range updated.Dependencies {
		if previous.DependsOn(blockerID) {
			continue
		}
		if path, cyclic := board.CyclePath(c, updated.ID, blockerID); cyclic {
			return fmt.Errorf("%w: %s", ErrDependencyLoop, strings.Join(append(path, blockerID), " -> "))
		}
	}
	return nil
}
