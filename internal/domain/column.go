package domain

import "strings"

// Status identifies the workflow stage of a task.
type Status string

// Workflow stages in board order.
const (
	StatusBacklog    Status = "Backlog"
	StatusInProgress Status = "InProgress"
	StatusReview     Status = "Review"
	StatusDone       Status = "Done"
)

var orderedStatuses = []Status{StatusBacklog, StatusInProgress, StatusReview, StatusDone}

// Valid reports whether s is one of the four board stages.
func (s Status) Valid() bool {
	for _, known := range orderedStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Index returns the column position of s, or -1 when s is unknown.
func (s Status) Index() int {
	for idx, known := range orderedStatuses {
		if s == known {
			return idx
		}
	}
	return -1
}

// ParseStatus resolves common spellings of a status name.
func ParseStatus(raw string) (Status, error) {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.NewReplacer("-", "", "_", "", " ", "").Replace(key)
	switch key {
	case "backlog", "todo":
		return StatusBacklog, nil
	case "inprogress", "progress", "doing":
		return StatusInProgress, nil
	case "review", "inreview":
		return StatusReview, nil
	case "done", "complete", "completed":
		return StatusDone, nil
	default:
		return "", ErrInvalidStatus
	}
}

// Column is one fixed Kanban stage.
type Column struct {
	Status Status
	Name   string
}

// Columns returns the four board columns in display order.
func Columns() []Column {
	return []Column{
		{Status: StatusBacklog, Name: "Backlog"},
		{Status: StatusInProgress, Name: "In Progress"},
		{Status: StatusReview, Name: "Review"},
		{Status: StatusDone, Name: "Done"},
	}
}

// ColumnAt returns the column at idx, clamped to the board bounds.
func ColumnAt(idx int) Column {
	cols := Columns()
	if idx < 0 {
		idx = 0
	}
	if idx >= len(cols) {
		idx = len(cols) - 1
	}
	return cols[idx]
}
