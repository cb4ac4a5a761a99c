package board

import (
	"slices"
	"strings"

	"github.com/hylla/taskboard/internal/domain"
)

// All is the selector value that matches every task on its axis.
const All = "All"

// Filter holds the three independent board selectors. Empty values are
// treated as All.
type Filter struct {
	Priority string
	Project  string
	Assignee string
}

// DefaultFilter returns the identity filter.
func DefaultFilter() Filter {
	return Filter{Priority: All, Project: All, Assignee: All}
}

// Normalize replaces blank selectors with All.
func (f Filter) Normalize() Filter {
	norm := func(v string) string {
		v = strings.TrimSpace(v)
		if v == "" || strings.EqualFold(v, All) {
			return All
		}
		return v
	}
	return Filter{
		Priority: norm(f.Priority),
		Project:  norm(f.Project),
		Assignee: norm(f.Assignee),
	}
}

// IsIdentity reports whether every axis is All.
func (f Filter) IsIdentity() bool {
	return f.Normalize() == DefaultFilter()
}

// Match reports whether task passes all three predicates.
func (f Filter) Match(task domain.Task) bool {
	f = f.Normalize()
	if f.Priority != All && !strings.EqualFold(string(task.Priority), f.Priority) {
		return false
	}
	if f.Project != All && task.Project != f.Project {
		return false
	}
	if f.Assignee != All && !task.HasCollaborator(f.Assignee) {
		return false
	}
	return true
}

// FilterOptions lists the selectable values for each axis.
type FilterOptions struct {
	Priorities []string
	Projects   []string
	Assignees  []string
}

// FilterEngine narrows a collection to the visible tasks, caching the last
// result per (collection version, filter).
type FilterEngine struct {
	filter Filter

	cachedFor     *Collection
	cachedVersion uint64
	cachedFilter  Filter
	visible       []domain.Task
}

// NewFilterEngine starts with every selector on All.
func NewFilterEngine() *FilterEngine {
	return &FilterEngine{filter: DefaultFilter()}
}

// Filter returns the active selectors.
func (e *FilterEngine) Filter() Filter {
	return e.filter
}

// SetFilter replaces the active selectors.
func (e *FilterEngine) SetFilter(f Filter) {
	e.filter = f.Normalize()
}

// SetPriority changes only the priority selector.
func (e *FilterEngine) SetPriority(v string) {
	f := e.filter
	f.Priority = v
	e.SetFilter(f)
}

// SetProject changes only the project selector.
func (e *FilterEngine) SetProject(v string) {
	f := e.filter
	f.Project = v
	e.SetFilter(f)
}

// SetAssignee changes only the assignee selector.
func (e *FilterEngine) SetAssignee(v string) {
	f := e.filter
	f.Assignee = v
	e.SetFilter(f)
}

// Reset returns every selector to All.
func (e *FilterEngine) Reset() {
	e.filter = DefaultFilter()
}

// Visible returns the tasks of c that pass the active filter, in host order.
func (e *FilterEngine) Visible(c *Collection) []domain.Task {
	if e.visible != nil && e.cachedFor == c && e.cachedVersion == c.Version() && e.cachedFilter == e.filter {
		return e.visible
	}
	e.visible = ApplyFilter(c, e.filter)
	e.cachedFor = c
	e.cachedVersion = c.Version()
	e.cachedFilter = e.filter
	return e.visible
}

// ApplyFilter is the uncached conjunctive filter over c.
func ApplyFilter(c *Collection, f Filter) []domain.Task {
	f = f.Normalize()
	out := make([]domain.Task, 0, c.Len())
	c.each(func(task domain.Task) {
		if f.Match(task) {
			out = append(out, task.Clone())
		}
	})
	return out
}

// Options returns the selector values present in c. Each list starts with All.
func Options(c *Collection) FilterOptions {
	projects := map[string]struct{}{}
	assignees := map[string]struct{}{}
	c.each(func(task domain.Task) {
		if task.Project != "" {
			projects[task.Project] = struct{}{}
		}
		for _, name := range task.Collaborators {
			assignees[name] = struct{}{}
		}
	})
	opts := FilterOptions{
		Priorities: []string{All},
		Projects:   append([]string{All}, sortedKeys(projects)...),
		Assignees:  append([]string{All}, sortedKeys(assignees)...),
	}
	for _, p := range domain.Priorities() {
		opts.Priorities = append(opts.Priorities, string(p))
	}
	return opts
}

// NextOption returns the value after current in options, wrapping around.
func NextOption(options []string, current string) string {
	if len(options) == 0 {
		return All
	}
	idx := slices.Index(options, current)
	return options[(idx+1)%len(options)]
}

func sortedKeys(in map[string]struct{}) []string {
	out := make([]string, 0, len(in))
	for key := range in {
		out = append(out, key)
	}
	slices.Sort(out)
	return out
}
