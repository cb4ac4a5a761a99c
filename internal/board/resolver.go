package board

import (
	"fmt"
	"slices"
	"strings"

	"github.com/hylla/taskboard/internal/domain"
)

// DanglingPolicy selects how a blocker id with no matching task is treated.
type DanglingPolicy string

// DanglingResolved and related constants define the supported policies.
const (
	// DanglingResolved drops missing blockers from the check.
	DanglingResolved DanglingPolicy = "resolved"
	// DanglingBlocking treats every missing blocker as unfinished.
	DanglingBlocking DanglingPolicy = "blocking"
	// DanglingTombstone resolves missing blockers that have a tombstone and
	// treats unknown ids as unfinished.
	DanglingTombstone DanglingPolicy = "tombstone"
)

// ParseDanglingPolicy parses a config value; empty means DanglingResolved.
func ParseDanglingPolicy(raw string) (DanglingPolicy, error) {
	switch policy := DanglingPolicy(strings.ToLower(strings.TrimSpace(raw))); policy {
	case "":
		return DanglingResolved, nil
	case DanglingResolved, DanglingBlocking, DanglingTombstone:
		return policy, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPolicy, raw)
	}
}

// ResolveReadiness computes blocked/ready flags for every task in c.
//
// A task without dependencies is neither blocked nor ready. Otherwise it is
// blocked while any counted blocker is not Done, and ready when unblocked and
// still in Backlog.
func ResolveReadiness(c *Collection, policy DanglingPolicy) map[string]domain.Readiness {
	out := make(map[string]domain.Readiness, c.Len())
	c.each(func(task domain.Task) {
		if len(task.Dependencies) == 0 {
			out[task.ID] = domain.Readiness{}
			return
		}
		blocked := false
		for _, depID := range task.Dependencies {
			if blockerUnfinished(c, depID, policy) {
				blocked = true
				break
			}
		}
		out[task.ID] = domain.Readiness{
			Blocked: blocked,
			Ready:   !blocked && task.Status == domain.StatusBacklog,
		}
	})
	return out
}

// blockerUnfinished reports whether depID keeps its dependent blocked.
func blockerUnfinished(c *Collection, depID string, policy DanglingPolicy) bool {
	if status, ok := c.status(depID); ok {
		return status != domain.StatusDone
	}
	switch policy {
	case DanglingBlocking:
		return true
	case DanglingTombstone:
		_, removed := c.Tombstone(depID)
		return !removed
	default:
		return false
	}
}

// BuildReverseIndex inverts the blocked-by edges: blocker id -> dependent ids.
// Only edges whose dependent is present are recorded; blocker ids may be dangling.
func BuildReverseIndex(c *Collection) map[string][]string {
	out := map[string][]string{}
	c.each(func(task domain.Task) {
		for _, depID := range task.Dependencies {
			out[depID] = append(out[depID], task.ID)
		}
	})
	for key := range out {
		slices.Sort(out[key])
		out[key] = slices.Compact(out[key])
	}
	return out
}

// Resolver memoizes readiness and the reverse index per collection version.
type Resolver struct {
	policy DanglingPolicy

	cachedVersion uint64
	cachedFor     *Collection
	readiness     map[string]domain.Readiness
	reverse       map[string][]string
}

// NewResolver constructs a resolver with the given dangling-blocker policy.
func NewResolver(policy DanglingPolicy) *Resolver {
	if policy == "" {
		policy = DanglingResolved
	}
	return &Resolver{policy: policy}
}

// Policy returns the active dangling-blocker policy.
func (r *Resolver) Policy() DanglingPolicy {
	return r.policy
}

// Readiness returns the readiness map for c, recomputing only when c's
// version differs from the cached one.
func (r *Resolver) Readiness(c *Collection) map[string]domain.Readiness {
	r.refresh(c)
	return r.readiness
}

// ReverseIndex returns blocker id -> dependent ids for c.
func (r *Resolver) ReverseIndex(c *Collection) map[string][]string {
	r.refresh(c)
	return r.reverse
}

// Blockers returns the present tasks that id lists as blockers, in edge order.
func (r *Resolver) Blockers(c *Collection, id string) []domain.Task {
	deps := c.dependencies(id)
	out := make([]domain.Task, 0, len(deps))
	for _, depID := range deps {
		if task, ok := c.Get(depID); ok {
			out = append(out, task)
		}
	}
	return out
}

// Related returns the ids directly linked to id in either direction, sorted.
// It feeds hover highlighting and carries no domain meaning.
func (r *Resolver) Related(c *Collection, id string) []string {
	seen := map[string]struct{}{}
	out := []string{}
	add := func(other string) {
		if other == id || !c.Has(other) {
			return
		}
		if _, ok := seen[other]; ok {
			return
		}
		seen[other] = struct{}{}
		out = append(out, other)
	}
	for _, depID := range c.dependencies(id) {
		add(depID)
	}
	for _, dependent := range r.ReverseIndex(c)[id] {
		add(dependent)
	}
	slices.Sort(out)
	return out
}

// refresh recomputes derived state when the collection changed.
func (r *Resolver) refresh(c *Collection) {
	if r.readiness != nil && r.cachedFor == c && r.cachedVersion == c.Version() {
		return
	}
	r.readiness = ResolveReadiness(c, r.policy)
	r.reverse = BuildReverseIndex(c)
	r.cachedFor = c
	r.cachedVersion = c.Version()
}
