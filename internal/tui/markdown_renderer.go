package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"

	"github.com/hylla/taskboard/internal/board"
	"github.com/hylla/taskboard/internal/domain"
)

// markdownRenderer renders markdown for terminal views and recreates the renderer when wrap width changes.
type markdownRenderer struct {
	width    int
	style    string
	renderer *glamour.TermRenderer
}

// render converts markdown input into ANSI-styled terminal text with the requested wrap width.
func (r *markdownRenderer) render(markdown string, width int) string {
	markdown = strings.TrimSpace(markdown)
	if markdown == "" {
		return ""
	}

	wrapWidth := max(width, 24)
	style := r.style
	if style == "" {
		style = "dark"
	}

	if r.renderer == nil || r.width != wrapWidth {
		renderer, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(style),
			glamour.WithWordWrap(wrapWidth),
		)
		if err != nil {
			return markdown
		}
		r.renderer = renderer
		r.width = wrapWidth
	}

	rendered, err := r.renderer.Render(markdown)
	if err != nil {
		return markdown
	}
	return strings.TrimRight(rendered, "\n")
}

// TaskDetail is everything the detail panel shows about one task.
type TaskDetail struct {
	Task       domain.Task
	Readiness  domain.Readiness
	Blockers   []domain.Task
	Missing    []string
	Dependents []domain.Task
}

// TaskMarkdown formats detail as a markdown document.
func TaskMarkdown(detail TaskDetail) string {
	task := detail.Task
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", task.Title)
	fmt.Fprintf(&b, "`%s` · **%s** · %s priority", task.ID, task.Status, task.Priority)
	switch {
	case detail.Readiness.Blocked:
		b.WriteString(" · blocked")
	case detail.Readiness.Ready:
		b.WriteString(" · ready")
	}
	b.WriteString("\n\n")
	if task.Project != "" {
		fmt.Fprintf(&b, "- Project: %s\n", task.Project)
	}
	if task.DueAt != nil {
		fmt.Fprintf(&b, "- Due: %s\n", task.DueAt.UTC().Format(time.DateOnly))
	}
	if len(task.Collaborators) > 0 {
		fmt.Fprintf(&b, "- Collaborators: %s\n", strings.Join(task.Collaborators, ", "))
	}
	if desc := strings.TrimSpace(task.Description); desc != "" {
		fmt.Fprintf(&b, "\n%s\n", desc)
	}
	if len(detail.Blockers) > 0 || len(detail.Missing) > 0 {
		b.WriteString("\n## Blocked by\n\n")
		for _, blocker := range detail.Blockers {
			mark := " "
			if blocker.Status == domain.StatusDone {
				mark = "x"
			}
			fmt.Fprintf(&b, "- [%s] %s (`%s`)\n", mark, blocker.Title, blocker.ID)
		}
		for _, id := range detail.Missing {
			fmt.Fprintf(&b, "- [ ] *missing* (`%s`)\n", id)
		}
	}
	if len(detail.Dependents) > 0 {
		b.WriteString("\n## Blocks\n\n")
		for _, dep := range detail.Dependents {
			fmt.Fprintf(&b, "- %s (`%s`, %s)\n", dep.Title, dep.ID, dep.Status)
		}
	}
	return b.String()
}

// RenderTaskDetail renders detail for a terminal of the given width.
func RenderTaskDetail(detail TaskDetail, width int) string {
	r := &markdownRenderer{}
	return r.render(TaskMarkdown(detail), width)
}

// DetailFromSession collects the detail view of id from a loaded session.
func DetailFromSession(s *board.Session, id string) (TaskDetail, bool) {
	task, ok := s.Task(id)
	if !ok {
		return TaskDetail{}, false
	}
	detail := TaskDetail{
		Task:      task,
		Readiness: s.Readiness(id),
		Blockers:  s.Blockers(id),
	}
	present := make(map[string]struct{}, len(detail.Blockers))
	for _, blocker := range detail.Blockers {
		present[blocker.ID] = struct{}{}
	}
	for _, depID := range task.Dependencies {
		if _, ok := present[depID]; !ok {
			detail.Missing = append(detail.Missing, depID)
		}
	}
	for _, depID := range s.Dependents(id) {
		if dep, ok := s.Task(depID); ok {
			detail.Dependents = append(detail.Dependents, dep)
		}
	}
	return detail, true
}
