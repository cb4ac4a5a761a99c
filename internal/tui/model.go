package tui

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"slices"
	"strings"
	"sync"
	"time"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/hylla/taskboard/internal/board"
	"github.com/hylla/taskboard/internal/domain"
)

// Service is the store the board reads from and sends intents to.
type Service interface {
	board.Intents
	LoadBoard(context.Context) ([]domain.Task, []domain.Tombstone, error)
}

// cardHeight is the number of rendered lines per card, separator included.
const cardHeight = 3

// Model represents model data used by this package.
type Model struct {
	svc     Service
	session *board.Session
	focused *focusRequest

	celebrationEnded    chan struct{}
	closed              chan struct{}
	closeOnce           func()
	awaitingCelebration bool

	ready  bool
	width  int
	height int
	err    error

	status string

	help help.Model
	keys keyMap

	fields          FieldConfig
	sessionCfg      board.SessionConfig
	copyToClipboard ClipboardFunc
	markdown        *markdownRenderer

	selectedColumn     int
	selectedTask       int
	detailTaskID       string
	pendingFocusTaskID string
	pendingDeleteID    string
}

// focusRequest receives the session's focus callback during Update.
type focusRequest struct {
	taskID string
}

// loadedMsg carries message data through update handling.
type loadedMsg struct {
	tasks      []domain.Task
	tombstones []domain.Tombstone
	err        error
}

// celebrationEndedMsg reports that the completion effect expired.
type celebrationEndedMsg struct{}

// NewModel constructs a new value for this package.
func NewModel(svc Service, opts ...Option) Model {
	h := help.New()
	h.ShowAll = false
	closed := make(chan struct{})
	m := Model{
		svc:              svc,
		focused:          &focusRequest{},
		celebrationEnded: make(chan struct{}, 1),
		closed:           closed,
		closeOnce:        sync.OnceFunc(func() { close(closed) }),
		status:           "loading...",
		help:             h,
		keys:             newKeyMap(),
		fields:           DefaultFieldConfig(),
		sessionCfg:       board.DefaultSessionConfig(),
		copyToClipboard:  systemClipboard,
		markdown:         &markdownRenderer{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&m)
		}
	}

	cfg := m.sessionCfg
	ended := m.celebrationEnded
	cfg.CelebrationOptions = append(slices.Clone(cfg.CelebrationOptions), board.WithCelebrationEnd(func() {
		select {
		case ended <- struct{}{}:
		default:
		}
	}))
	focused := m.focused
	host := board.NewHost(svc, func(kind board.FocusKind, task domain.Task) {
		if kind == board.FocusTask {
			focused.taskID = task.ID
		}
	})
	m.session = board.NewSession(host, cfg)
	return m
}

// Init handles init.
func (m Model) Init() tea.Cmd {
	return m.loadData
}

// Update updates state for the requested operation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.session.Load(msg.tasks, msg.tombstones)
		if m.detailTaskID != "" {
			if _, ok := m.session.Task(m.detailTaskID); !ok {
				m.detailTaskID = ""
			}
		}
		if m.pendingFocusTaskID != "" {
			m.focusTaskByID(m.pendingFocusTaskID)
			m.pendingFocusTaskID = ""
		}
		m.clampSelections()
		if m.status == "" || m.status == "loading..." || m.status == "reloading..." {
			m.status = "ready"
		}
		return m, nil

	case celebrationEndedMsg:
		m.awaitingCelebration = false
		if m.session.Celebrating() {
			m.awaitingCelebration = true
			return m, m.waitForCelebrationEnd
		}
		return m, nil

	case tea.KeyPressMsg:
		return m.handleKey(msg)

	default:
		return m, nil
	}
}

// handleKey routes one key press.
func (m Model) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	if m.pendingDeleteID != "" && !key.Matches(msg, m.keys.deleteTask) {
		m.pendingDeleteID = ""
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		m.session.Close()
		m.closeOnce()
		return m, tea.Quit
	case key.Matches(msg, m.keys.toggleHelp):
		m.help.ShowAll = !m.help.ShowAll
		if m.help.ShowAll {
			m.status = "help"
		} else {
			m.status = "ready"
		}
		return m, nil
	case key.Matches(msg, m.keys.cancel):
		return m.cancelGesture()
	case key.Matches(msg, m.keys.reload):
		m.status = "reloading..."
		return m, m.loadData
	case key.Matches(msg, m.keys.moveLeft):
		if m.selectedColumn > 0 {
			m.selectedColumn--
			m.selectedTask = 0
		}
		m.clampSelections()
		return m, nil
	case key.Matches(msg, m.keys.moveRight):
		if m.selectedColumn < len(domain.Columns())-1 {
			m.selectedColumn++
			m.selectedTask = 0
		}
		m.clampSelections()
		return m, nil
	case key.Matches(msg, m.keys.moveDown):
		if tasks := m.currentColumnTasks(); m.selectedTask < len(tasks)-1 {
			m.selectedTask++
		}
		return m, nil
	case key.Matches(msg, m.keys.moveUp):
		if m.selectedTask > 0 {
			m.selectedTask--
		}
		return m, nil
	case key.Matches(msg, m.keys.pickUp):
		return m.pickUpOrDrop()
	case key.Matches(msg, m.keys.linkMode):
		if err := m.session.ToggleLinkMode(); err != nil {
			m.status = "finish moving the task first (esc cancels)"
			return m, nil
		}
		if m.session.LinkState() == (board.LinkOff{}) {
			m.status = "link mode off"
		} else {
			m.status = "link mode: choose the blocking task"
		}
		return m, nil
	case key.Matches(msg, m.keys.click):
		return m.clickSelected()
	case key.Matches(msg, m.keys.moveTaskLeft):
		return m.shiftSelected(-1)
	case key.Matches(msg, m.keys.moveTaskRight):
		return m.shiftSelected(1)
	case key.Matches(msg, m.keys.filterPriority):
		filters := m.session.Filters()
		filters.SetPriority(board.NextOption(m.session.FilterOptions().Priorities, filters.Filter().Priority))
		return m.filtersChanged("priority: " + filters.Filter().Priority)
	case key.Matches(msg, m.keys.filterProject):
		filters := m.session.Filters()
		filters.SetProject(board.NextOption(m.session.FilterOptions().Projects, filters.Filter().Project))
		return m.filtersChanged("project: " + filters.Filter().Project)
	case key.Matches(msg, m.keys.filterAssignee):
		filters := m.session.Filters()
		filters.SetAssignee(board.NextOption(m.session.FilterOptions().Assignees, filters.Filter().Assignee))
		return m.filtersChanged("assignee: " + filters.Filter().Assignee)
	case key.Matches(msg, m.keys.resetFilters):
		m.session.Filters().Reset()
		return m.filtersChanged("filters cleared")
	case key.Matches(msg, m.keys.yankID):
		task, ok := m.selectedTaskInCurrentColumn()
		if !ok {
			m.status = "no task selected"
			return m, nil
		}
		if err := m.copyToClipboard(task.ID); err != nil {
			m.status = "copy failed: " + err.Error()
			return m, nil
		}
		m.status = "copied id " + task.ID
		return m, nil
	case key.Matches(msg, m.keys.deleteTask):
		return m.deleteSelected()
	}
	return m, nil
}

// cancelGesture closes the innermost active layer.
func (m Model) cancelGesture() (tea.Model, tea.Cmd) {
	switch {
	case m.help.ShowAll:
		m.help.ShowAll = false
		m.status = "ready"
	case m.isDragging():
		m.session.CancelDrag()
		m.status = "move cancelled"
	case m.session.LinkState() != (board.LinkOff{}):
		_ = m.session.ToggleLinkMode()
		m.status = "link mode off"
	case m.detailTaskID != "":
		m.detailTaskID = ""
		m.status = "ready"
	}
	return m, nil
}

// pickUpOrDrop starts a drag on the selected card, or drops the dragged card
// onto the selected column.
func (m Model) pickUpOrDrop() (tea.Model, tea.Cmd) {
	if id, dragging := m.session.Dragging(); dragging {
		column := domain.ColumnAt(m.selectedColumn)
		task, _ := m.session.Task(id)
		if task.Status == column.Status {
			m.session.CancelDrag()
			m.status = fmt.Sprintf("%q stays in %s", truncate(task.Title, 28), column.Name)
			return m, nil
		}
		if err := m.session.Drop(context.Background(), column.Status); err != nil {
			return m.mutationFailed(err)
		}
		m.pendingFocusTaskID = id
		return m.afterMutation(fmt.Sprintf("moved %q to %s", truncate(task.Title, 28), column.Name))
	}

	task, ok := m.selectedTaskInCurrentColumn()
	if !ok {
		m.status = "no task selected"
		return m, nil
	}
	if err := m.session.BeginDrag(task.ID); err != nil {
		if errors.Is(err, board.ErrGestureInProgress) {
			m.status = "leave link mode first (L or esc)"
			return m, nil
		}
		m.status = err.Error()
		return m, nil
	}
	m.status = fmt.Sprintf("moving %q: choose a column and press m", truncate(task.Title, 28))
	return m, nil
}

// clickSelected feeds the selected card through the session click routing.
func (m Model) clickSelected() (tea.Model, tea.Cmd) {
	task, ok := m.selectedTaskInCurrentColumn()
	if !ok {
		m.status = "no task selected"
		return m, nil
	}
	m.focused.taskID = ""
	outcome, err := m.session.ClickTask(context.Background(), task.ID)
	if err != nil {
		return m.mutationFailed(err)
	}
	title := truncate(task.Title, 28)
	switch outcome {
	case board.LinkOutcomeForward:
		if m.focused.taskID != "" {
			m.detailTaskID = m.focused.taskID
			m.focused.taskID = ""
			m.status = fmt.Sprintf("details: %q", title)
		}
	case board.LinkOutcomeSourceSelected:
		m.status = fmt.Sprintf("blocker %q selected: choose the task it blocks", title)
	case board.LinkOutcomeIgnored:
		m.status = "choose a different task to block"
	case board.LinkOutcomeAlreadyLinked:
		m.status = fmt.Sprintf("%q already waits on that blocker", title)
	case board.LinkOutcomeRejectedCycle:
		m.status = "rejected: link would create a cycle"
	case board.LinkOutcomeLinked:
		return m.afterMutation(fmt.Sprintf("linked: %q is now blocked", title))
	}
	return m, nil
}

// shiftSelected moves the selected card one column.
func (m Model) shiftSelected(delta int) (tea.Model, tea.Cmd) {
	task, ok := m.selectedTaskInCurrentColumn()
	if !ok {
		m.status = "no task selected"
		return m, nil
	}
	if m.isDragging() {
		m.status = "finish moving the task first (m drops, esc cancels)"
		return m, nil
	}
	target, err := m.session.ShiftTask(context.Background(), task.ID, delta)
	if err != nil {
		return m.mutationFailed(err)
	}
	if target == task.Status {
		m.status = fmt.Sprintf("%q is already in %s", truncate(task.Title, 28), domain.ColumnAt(target.Index()).Name)
		return m, nil
	}
	m.pendingFocusTaskID = task.ID
	return m.afterMutation(fmt.Sprintf("moved %q to %s", truncate(task.Title, 28), domain.ColumnAt(target.Index()).Name))
}

// deleteSelected asks for a second press before deleting.
func (m Model) deleteSelected() (tea.Model, tea.Cmd) {
	task, ok := m.selectedTaskInCurrentColumn()
	if !ok {
		m.status = "no task selected"
		return m, nil
	}
	if m.pendingDeleteID != task.ID {
		m.pendingDeleteID = task.ID
		m.status = fmt.Sprintf("press d again to delete %q", truncate(task.Title, 28))
		return m, nil
	}
	m.pendingDeleteID = ""
	if err := m.session.DeleteTask(context.Background(), task.ID); err != nil {
		return m.mutationFailed(err)
	}
	if m.detailTaskID == task.ID {
		m.detailTaskID = ""
	}
	return m.afterMutation(fmt.Sprintf("deleted %q", truncate(task.Title, 28)))
}

// filtersChanged re-clamps the cursor after the visible set changed.
func (m Model) filtersChanged(status string) (tea.Model, tea.Cmd) {
	m.clampSelections()
	m.status = status
	return m, nil
}

// afterMutation reloads the board and waits for a running celebration.
func (m Model) afterMutation(status string) (tea.Model, tea.Cmd) {
	m.status = status
	cmds := []tea.Cmd{m.loadData}
	if m.session.Celebrating() && !m.awaitingCelebration {
		m.awaitingCelebration = true
		cmds = append(cmds, m.waitForCelebrationEnd)
	}
	return m, tea.Batch(cmds...)
}

// mutationFailed reports an intent error on the status line.
func (m Model) mutationFailed(err error) (tea.Model, tea.Cmd) {
	switch {
	case errors.Is(err, board.ErrTransitionBlocked):
		m.status = "blocked: finish its blockers before moving it to Done"
	case errors.Is(err, board.ErrTaskNotFound):
		m.status = "task no longer exists; reloading"
		return m, m.loadData
	default:
		m.status = "error: " + err.Error()
	}
	return m, nil
}

// loadData loads required data for the current operation.
func (m Model) loadData() tea.Msg {
	tasks, tombstones, err := m.svc.LoadBoard(context.Background())
	if err != nil {
		return loadedMsg{err: err}
	}
	return loadedMsg{tasks: tasks, tombstones: tombstones}
}

// waitForCelebrationEnd blocks until the celebration timer fires or the
// board quits.
func (m Model) waitForCelebrationEnd() tea.Msg {
	select {
	case <-m.celebrationEnded:
		return celebrationEndedMsg{}
	case <-m.closed:
		return nil
	}
}

// View handles view.
func (m Model) View() tea.View {
	view := tea.NewView(m.render())
	view.AltScreen = true
	return view
}

// render builds the full screen content for the current state.
func (m Model) render() string {
	if m.err != nil {
		return "error: " + m.err.Error() + "\n\npress r to retry • q quit\n"
	}
	if !m.ready {
		return "loading..."
	}

	accent := lipgloss.Color("62")
	muted := lipgloss.Color("241")
	dim := lipgloss.Color("239")

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	statusStyle := lipgloss.NewStyle().Foreground(dim)
	bannerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("16")).Background(lipgloss.Color("220")).Padding(0, 1)

	header := titleStyle.Render("taskboard") + statusStyle.Render("  ["+m.modeLabel()+"]")
	if f := m.session.Filters().Filter(); !f.IsIdentity() {
		header += statusStyle.Render(fmt.Sprintf("  priority: %s  project: %s  assignee: %s", f.Priority, f.Project, f.Assignee))
	}
	banner := ""
	if m.session.Celebrating() {
		banner = bannerStyle.Render("★ task done! ★")
	}

	body := m.renderColumns(accent, muted, dim)
	overlay := ""
	switch {
	case m.help.ShowAll:
		overlay = m.renderHelpOverlay(accent, muted, dim, m.width-8)
	case m.detailTaskID != "":
		overlay = m.renderDetailOverlay(accent, muted, m.width-8)
	}

	sections := []string{header, banner, body}
	if strings.TrimSpace(m.status) != "" && m.status != "ready" {
		sections = append(sections, statusStyle.Render(m.status))
	}
	content := strings.Join(sections, "\n")

	helpBubble := m.help
	helpBubble.ShowAll = false
	helpBubble.SetWidth(max(0, m.width-2))
	helpLine := lipgloss.NewStyle().
		Foreground(muted).
		BorderTop(true).
		BorderForeground(dim).
		Padding(0, 1).
		Width(max(0, m.width)).
		Render(helpBubble.View(m.keys))

	if m.height > 0 {
		content = fitLines(content, max(0, m.height-lipgloss.Height(helpLine)))
	}
	fullContent := content + "\n" + helpLine
	if overlay != "" {
		overlayHeight := lipgloss.Height(fullContent)
		if m.height > 0 {
			overlayHeight = m.height
		}
		fullContent = overlayOnContent(fullContent, overlay, max(1, m.width), max(1, overlayHeight))
	}
	return fullContent
}

// renderColumns renders the four board columns side by side.
func (m Model) renderColumns(accent, muted, dim color.Color) string {
	columns := m.session.Columns()
	colWidth := m.columnWidth()
	innerHeight := max(cardHeight+1, m.columnHeight()-4)
	window := max(1, (innerHeight-2)/cardHeight)

	baseColStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(dim).
		Padding(1, 2).
		MarginRight(1).
		Width(colWidth)
	selColStyle := baseColStyle.BorderForeground(accent)
	colTitle := lipgloss.NewStyle().Bold(true).Foreground(accent)
	emptyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	styles := cardStyles{
		selected: lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true),
		related:  lipgloss.NewStyle().Foreground(accent).Underline(true),
		blocked:  lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
		ready:    lipgloss.NewStyle().Foreground(lipgloss.Color("78")).Bold(true),
		sub:      lipgloss.NewStyle().Foreground(muted),
	}

	related := map[string]struct{}{}
	if task, ok := m.selectedTaskInCurrentColumn(); ok {
		for _, id := range m.session.Related(task.ID) {
			related[id] = struct{}{}
		}
	}
	readiness := m.session.ReadinessAll()
	draggingID, _ := m.session.Dragging()
	pendingID, _ := m.session.PendingBlocker()

	views := make([]string, 0, len(columns))
	for colIdx, column := range columns {
		lines := []string{colTitle.Render(fmt.Sprintf("%s (%d)", column.Column.Name, len(column.Tasks))), ""}
		if len(column.Tasks) == 0 {
			lines = append(lines, emptyStyle.Render("(empty)"))
		}
		start, end := 0, len(column.Tasks)
		if colIdx == m.selectedColumn {
			start, end = windowBounds(len(column.Tasks), m.selectedTask, window)
		} else if end > window {
			end = window
		}
		for taskIdx := start; taskIdx < end; taskIdx++ {
			task := column.Tasks[taskIdx]
			_, isRelated := related[task.ID]
			card := cardState{
				selected: colIdx == m.selectedColumn && taskIdx == m.selectedTask,
				related:  isRelated,
				dragging: task.ID == draggingID,
				pending:  task.ID == pendingID,
			}
			lines = append(lines, m.renderCard(task, readiness[task.ID], card, styles, colWidth)...)
		}
		content := fitLines(strings.Join(lines, "\n"), innerHeight)
		if colIdx == m.selectedColumn {
			views = append(views, selColStyle.Render(content))
		} else {
			views = append(views, baseColStyle.Render(content))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, views...)
}

// cardState holds the per-card highlight flags.
type cardState struct {
	selected bool
	related  bool
	dragging bool
	pending  bool
}

type cardStyles struct {
	selected lipgloss.Style
	related  lipgloss.Style
	blocked  lipgloss.Style
	ready    lipgloss.Style
	sub      lipgloss.Style
}

// renderCard renders exactly cardHeight lines for task.
func (m Model) renderCard(task domain.Task, readiness domain.Readiness, state cardState, styles cardStyles, width int) []string {
	prefix := "  "
	if state.selected {
		prefix = "│ "
	}
	badges := make([]string, 0, 2)
	switch {
	case state.dragging:
		badges = append(badges, "[moving]")
	case state.pending:
		badges = append(badges, "[blocker]")
	}
	switch {
	case readiness.Blocked:
		badges = append(badges, styles.blocked.Render("[blocked]"))
	case readiness.Ready:
		badges = append(badges, styles.ready.Render("[ready]"))
	}

	title := truncate(task.Title, max(1, width-12))
	switch {
	case state.selected:
		title = styles.selected.Render(title)
	case state.related:
		title = styles.related.Render(title)
	}
	line := prefix + title
	if len(badges) > 0 {
		line += " " + strings.Join(badges, " ")
	}
	sub := prefix + styles.sub.Render(truncate(m.cardSecondary(task), max(1, width-4)))
	return []string{line, sub, ""}
}

// cardSecondary returns the muted second card line.
func (m Model) cardSecondary(task domain.Task) string {
	if m.fields.ShowDescription {
		if desc := strings.TrimSpace(task.Description); desc != "" {
			return desc
		}
	}
	parts := []string{string(task.Priority)}
	if task.Project != "" {
		parts = append(parts, task.Project)
	}
	if m.fields.ShowDueDate && task.DueAt != nil {
		parts = append(parts, "due "+task.DueAt.UTC().Format(time.DateOnly))
	}
	if m.fields.ShowCollaborators && len(task.Collaborators) > 0 {
		parts = append(parts, "@"+strings.Join(task.Collaborators, " @"))
	}
	return strings.Join(parts, " · ")
}

// renderHelpOverlay renders the expanded key reference.
func (m Model) renderHelpOverlay(accent, muted, dim color.Color, maxWidth int) string {
	width := clamp(maxWidth, 56, 100)
	hb := m.help
	hb.ShowAll = true
	hb.SetWidth(width - 4)

	title := lipgloss.NewStyle().Bold(true).Foreground(accent).Render("taskboard help")
	workflow := []string{
		lipgloss.NewStyle().Bold(true).Foreground(accent).Render("Workflows"),
		"1. m picks a card up  •  move with h/l  •  m drops it  •  esc cancels",
		"2. L link mode  •  enter on the blocker  •  enter on the task it blocks",
		"3. [ ] move the selected card one column",
		"4. p/o/a cycle priority/project/assignee filters  •  0 clears them",
	}
	lines := []string{
		title,
		"",
		hb.View(m.keys),
		"",
		lipgloss.NewStyle().Foreground(muted).Render(strings.Join(workflow, "\n")),
		lipgloss.NewStyle().Foreground(muted).Render("press ? or esc to close"),
	}
	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(dim).
		Padding(0, 1)
	if maxWidth > 0 {
		style = style.Width(width)
	}
	return style.Render(strings.Join(lines, "\n"))
}

// renderDetailOverlay renders the focused task as markdown.
func (m Model) renderDetailOverlay(accent, muted color.Color, maxWidth int) string {
	detail, ok := DetailFromSession(m.session, m.detailTaskID)
	if !ok {
		return ""
	}
	width := clamp(maxWidth, 40, 90)
	body := m.markdown.render(TaskMarkdown(detail), width-4)
	hint := lipgloss.NewStyle().Foreground(muted).Render("esc close • y copy id • [ ] move")
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accent).
		Padding(0, 1).
		Width(width).
		Render(body + "\n\n" + hint)
}

// modeLabel names the active gesture for the header.
func (m Model) modeLabel() string {
	if _, dragging := m.session.Dragging(); dragging {
		return "moving"
	}
	if state := m.session.LinkState(); state != (board.LinkOff{}) {
		if id, ok := m.session.PendingBlocker(); ok {
			if task, found := m.session.Task(id); found {
				return "link: blocker " + truncate(task.Title, 20)
			}
		}
		return "link: " + fmt.Sprint(state)
	}
	return "board"
}

func (m Model) isDragging() bool {
	_, dragging := m.session.Dragging()
	return dragging
}

// currentColumnTasks returns the visible tasks of the selected column.
func (m Model) currentColumnTasks() []domain.Task {
	columns := m.session.Columns()
	if m.selectedColumn < 0 || m.selectedColumn >= len(columns) {
		return nil
	}
	return columns[m.selectedColumn].Tasks
}

// selectedTaskInCurrentColumn returns the card under the cursor.
func (m Model) selectedTaskInCurrentColumn() (domain.Task, bool) {
	tasks := m.currentColumnTasks()
	if len(tasks) == 0 {
		return domain.Task{}, false
	}
	return tasks[clamp(m.selectedTask, 0, len(tasks)-1)], true
}

// clampSelections clamps selections.
func (m *Model) clampSelections() {
	m.selectedColumn = clamp(m.selectedColumn, 0, len(domain.Columns())-1)
	m.selectedTask = clamp(m.selectedTask, 0, len(m.currentColumnTasks())-1)
}

// focusTaskByID moves the cursor onto id when it is visible.
func (m *Model) focusTaskByID(id string) bool {
	for colIdx, column := range m.session.Columns() {
		for taskIdx, task := range column.Tasks {
			if task.ID == id {
				m.selectedColumn = colIdx
				m.selectedTask = taskIdx
				return true
			}
		}
	}
	return false
}

// columnWidth returns column width.
func (m Model) columnWidth() int {
	count := len(domain.Columns())
	w := 28
	if m.width > 0 {
		// Per-column overhead: left/right border (2), horizontal padding (4), margin-right (1)
		const colOverhead = 7
		if candidate := (m.width - count*colOverhead) / count; candidate > 0 {
			w = candidate
		}
	}
	return clamp(w, 20, 42)
}

// columnHeight returns column height.
func (m Model) columnHeight() int {
	const headerLines = 2
	const footerLines = 4
	return max(12, m.height-headerLines-footerLines)
}

// windowBounds returns the [start, end) slice of total items that keeps
// selected inside a window of size.
func windowBounds(total, selected, size int) (int, int) {
	if size <= 0 || total <= size {
		return 0, total
	}
	selected = clamp(selected, 0, total-1)
	start := selected - size/2
	start = clamp(start, 0, total-size)
	return start, start + size
}

// clamp clamps the requested operation.
func clamp(v, minV, maxV int) int {
	if maxV < minV {
		return minV
	}
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}

func fitLines(content string, maxLines int) string {
	if maxLines <= 0 {
		return ""
	}
	lines := strings.Split(content, "\n")
	switch {
	case len(lines) > maxLines:
		if maxLines == 1 {
			lines = []string{"…"}
		} else {
			lines = append(lines[:maxLines-1], "…")
		}
	case len(lines) < maxLines:
		padding := make([]string, maxLines-len(lines))
		lines = append(lines, padding...)
	}
	return strings.Join(lines, "\n")
}

// overlayOnContent overlays on content.
func overlayOnContent(base, overlay string, width, height int) string {
	if width <= 0 || height <= 0 {
		if strings.TrimSpace(overlay) == "" {
			return base
		}
		return overlay + "\n\n" + base
	}

	base = fitLines(base, height)
	canvas := lipgloss.NewCanvas(width, height)
	baseLayer := lipgloss.NewLayer(base).X(0).Y(0).Z(0)
	centeredOverlay := lipgloss.Place(
		width,
		height,
		lipgloss.Center,
		lipgloss.Center,
		overlay,
	)
	overlayLayer := lipgloss.NewLayer(centeredOverlay).X(0).Y(0).Z(10)

	canvas.Compose(baseLayer)
	canvas.Compose(overlayLayer)
	return canvas.Render()
}

func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	rs := []rune(s)
	if len(rs) <= max {
		return s
	}
	if max <= 1 {
		return string(rs[:max])
	}
	return string(rs[:max-1]) + "…"
}
