package tui

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/hylla/taskboard/internal/board"
	"github.com/hylla/taskboard/internal/domain"
)

// fakeService applies intents to an in-memory board and records each call.
type fakeService struct {
	mu         sync.Mutex
	tasks      []domain.Task
	tombstones []domain.Tombstone
	calls      []string
	err        error
}

func newFakeService(tasks ...domain.Task) *fakeService {
	return &fakeService{tasks: tasks}
}

func (f *fakeService) index(id string) int {
	return slices.IndexFunc(f.tasks, func(t domain.Task) bool { return t.ID == id })
}

func (f *fakeService) LoadBoard(context.Context) ([]domain.Task, []domain.Tombstone, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, nil, f.err
	}
	out := make([]domain.Task, 0, len(f.tasks))
	for _, task := range f.tasks {
		out = append(out, task.Clone())
	}
	return out, slices.Clone(f.tombstones), nil
}

func (f *fakeService) UpdateTaskStatus(_ context.Context, id string, status domain.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "status:"+id+":"+string(status))
	if idx := f.index(id); idx >= 0 {
		f.tasks[idx].Status = status
	}
	return nil
}

func (f *fakeService) UpdateTask(_ context.Context, id string, patch domain.TaskPatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "update:"+id)
	if idx := f.index(id); idx >= 0 {
		return f.tasks[idx].Apply(patch, time.Now())
	}
	return nil
}

func (f *fakeService) DeleteTask(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "delete:"+id)
	if idx := f.index(id); idx >= 0 {
		f.tasks = slices.Delete(f.tasks, idx, idx+1)
	}
	return nil
}

func (f *fakeService) LinkTasks(_ context.Context, dependentID, blockerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "link:"+dependentID+"<-"+blockerID)
	if idx := f.index(dependentID); idx >= 0 {
		f.tasks[idx].AddDependency(blockerID, time.Now())
	}
	return nil
}

func (f *fakeService) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

// manualTimer is a celebration timer fired by the test.
type manualTimer struct {
	fire func()
}

func (t *manualTimer) Stop() bool { return true }

func manualCelebration(timers *[]*manualTimer) board.CelebrationOption {
	return board.WithAfterFunc(func(_ time.Duration, fn func()) board.Timer {
		timer := &manualTimer{fire: fn}
		*timers = append(*timers, timer)
		return timer
	})
}

func newTask(id, title string, status domain.Status, deps ...string) domain.Task {
	now := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)
	task, err := domain.NewTask(domain.TaskInput{
		ID:           id,
		Title:        title,
		Priority:     domain.PriorityMedium,
		Status:       status,
		Dependencies: deps,
	}, now)
	if err != nil {
		panic(err)
	}
	return task
}

func loadReadyModel(t *testing.T, m Model) Model {
	t.Helper()
	return applyMsg(t, applyCmd(t, m, m.Init()), tea.WindowSizeMsg{Width: 140, Height: 40})
}

func applyMsg(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	updated, cmd := m.Update(msg)
	out, ok := updated.(Model)
	if !ok {
		t.Fatalf("expected Model, got %T", updated)
	}
	return applyCmd(t, out, cmd)
}

// applyCmd runs cmd and feeds the resulting messages back into the model.
// Batches are expanded; celebration waits are skipped unless the timer fired.
func applyCmd(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	out := m
	pending := []tea.Cmd{cmd}
	for i := 0; i < 12 && len(pending) > 0; i++ {
		current := pending[0]
		pending = pending[1:]
		if current == nil {
			continue
		}
		msg := current()
		if batch, ok := msg.(tea.BatchMsg); ok {
			pending = append(pending, batch...)
			continue
		}
		updated, next := out.Update(msg)
		casted, ok := updated.(Model)
		if !ok {
			t.Fatalf("expected Model, got %T", updated)
		}
		out = casted
		if next != nil {
			pending = append(pending, next)
		}
	}
	return out
}

// applyKeys presses each key in order. Commands that would block on the
// celebration are not run.
func applyKeys(t *testing.T, m Model, keys ...tea.KeyPressMsg) Model {
	t.Helper()
	for _, k := range keys {
		updated, cmd := m.Update(k)
		casted, ok := updated.(Model)
		if !ok {
			t.Fatalf("expected Model, got %T", updated)
		}
		m = casted
		if m.awaitingCelebration {
			m = applyMsg(t, m, m.loadData())
			continue
		}
		m = applyCmd(t, m, cmd)
	}
	return m
}

func keyRune(r rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: r, Text: string(r)}
}

func keyEnter() tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: tea.KeyEnter}
}

func keyEsc() tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: tea.KeyEscape}
}

func TestModelRendersColumnsAndReadiness(t *testing.T) {
	svc := newFakeService(
		newTask("a", "Write schema", domain.StatusBacklog),
		newTask("b", "Build API", domain.StatusBacklog, "a"),
		newTask("c", "Pick hosting", domain.StatusDone),
		newTask("d", "Deploy", domain.StatusBacklog, "c"),
	)
	m := loadReadyModel(t, NewModel(svc))
	out := m.render()
	for _, want := range []string{"Backlog (3)", "In Progress (0)", "Done (1)", "[blocked]", "[ready]", "Build API"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in board view\n%s", want, out)
		}
	}
	if m.status != "ready" {
		t.Fatalf("expected ready status, got %q", m.status)
	}
}

func TestModelDragAndDropMovesTask(t *testing.T) {
	svc := newFakeService(newTask("a", "Write schema", domain.StatusBacklog))
	m := loadReadyModel(t, NewModel(svc))

	m = applyKeys(t, m, keyRune('m'))
	if id, ok := m.session.Dragging(); !ok || id != "a" {
		t.Fatalf("expected drag of a, got %q %v", id, ok)
	}
	if !strings.Contains(m.render(), "[moving]") {
		t.Fatal("expected dragged card marked")
	}

	m = applyKeys(t, m, keyRune('l'), keyRune('l'), keyRune('m'))
	if _, ok := m.session.Dragging(); ok {
		t.Fatal("expected drag finished")
	}
	if got := svc.recorded(); !slices.Equal(got, []string{"status:a:Review"}) {
		t.Fatalf("unexpected calls %#v", got)
	}
	task, _ := m.session.Task("a")
	if task.Status != domain.StatusReview {
		t.Fatalf("expected reloaded status Review, got %s", task.Status)
	}
	if m.selectedColumn != domain.StatusReview.Index() || m.selectedTask != 0 {
		t.Fatalf("expected cursor to follow moved task, got col=%d task=%d", m.selectedColumn, m.selectedTask)
	}
}

func TestModelDropOnSameColumnCancels(t *testing.T) {
	svc := newFakeService(newTask("a", "Write schema", domain.StatusBacklog))
	m := loadReadyModel(t, NewModel(svc))
	m = applyKeys(t, m, keyRune('m'), keyRune('m'))
	if _, ok := m.session.Dragging(); ok {
		t.Fatal("expected drag cleared")
	}
	if len(svc.recorded()) != 0 {
		t.Fatalf("expected no intents, got %#v", svc.recorded())
	}
}

func TestModelEscapeCancelsDrag(t *testing.T) {
	svc := newFakeService(newTask("a", "Write schema", domain.StatusBacklog))
	m := loadReadyModel(t, NewModel(svc))
	m = applyKeys(t, m, keyRune('m'), keyRune('l'), keyEsc(), keyRune('m'))
	if id, ok := m.session.Dragging(); ok {
		t.Fatalf("expected no drag after pressing m on an empty column, got %q", id)
	}
	if len(svc.recorded()) != 0 {
		t.Fatalf("expected cancelled drag to emit nothing, got %#v", svc.recorded())
	}
}

func TestModelLinkModeFlow(t *testing.T) {
	svc := newFakeService(
		newTask("a", "Blocker", domain.StatusBacklog),
		newTask("b", "Dependent", domain.StatusBacklog),
	)
	m := loadReadyModel(t, NewModel(svc))

	m = applyKeys(t, m, keyRune('L'))
	if _, ok := m.session.LinkState().(board.AwaitingBlocker); !ok {
		t.Fatalf("expected awaiting blocker, got %v", m.session.LinkState())
	}
	m = applyKeys(t, m, keyEnter())
	if id, ok := m.session.PendingBlocker(); !ok || id != "a" {
		t.Fatalf("expected pending blocker a, got %q", id)
	}
	if !strings.Contains(m.render(), "[blocker]") {
		t.Fatal("expected pending blocker marked")
	}

	m = applyKeys(t, m, keyRune('j'), keyEnter())
	if got := svc.recorded(); !slices.Equal(got, []string{"link:b<-a"}) {
		t.Fatalf("unexpected calls %#v", got)
	}
	if m.session.LinkState() != (board.LinkOff{}) {
		t.Fatalf("expected link mode off, got %v", m.session.LinkState())
	}
	if !m.session.Readiness("b").Blocked {
		t.Fatal("expected b blocked after reload")
	}
}

func TestModelLinkModeRejectsCycle(t *testing.T) {
	svc := newFakeService(
		newTask("a", "First", domain.StatusBacklog),
		newTask("b", "Second", domain.StatusBacklog, "a"),
	)
	m := loadReadyModel(t, NewModel(svc))
	// Choosing b as blocker of a would close a -> b -> a.
	m = applyKeys(t, m, keyRune('L'), keyRune('j'), keyEnter(), keyRune('k'), keyEnter())
	if len(svc.recorded()) != 0 {
		t.Fatalf("expected no link intent, got %#v", svc.recorded())
	}
	if !strings.Contains(m.status, "cycle") {
		t.Fatalf("expected cycle status, got %q", m.status)
	}
}

func TestModelGesturesAreExclusive(t *testing.T) {
	svc := newFakeService(newTask("a", "Task", domain.StatusBacklog))
	m := loadReadyModel(t, NewModel(svc))

	m = applyKeys(t, m, keyRune('L'), keyRune('m'))
	if _, ok := m.session.Dragging(); ok {
		t.Fatal("expected drag refused in link mode")
	}
	m = applyKeys(t, m, keyEsc(), keyRune('m'), keyRune('L'))
	if m.session.LinkState() != (board.LinkOff{}) {
		t.Fatal("expected link mode refused while dragging")
	}
	if !strings.Contains(m.status, "finish moving") {
		t.Fatalf("unexpected status %q", m.status)
	}
}

func TestModelClickOpensDetail(t *testing.T) {
	blocker := newTask("a", "Blocker", domain.StatusInProgress)
	dependent := newTask("b", "Dependent", domain.StatusBacklog, "a", "gone")
	dependent.Description = "Needs the blocker first."
	svc := newFakeService(dependent, blocker)
	m := loadReadyModel(t, NewModel(svc))

	m = applyKeys(t, m, keyEnter())
	if m.detailTaskID != "b" {
		t.Fatalf("expected detail for b, got %q", m.detailTaskID)
	}
	detail, ok := DetailFromSession(m.session, "b")
	if !ok {
		t.Fatal("expected detail")
	}
	if len(detail.Blockers) != 1 || detail.Blockers[0].ID != "a" || !slices.Equal(detail.Missing, []string{"gone"}) {
		t.Fatalf("unexpected detail %#v", detail)
	}
	md := TaskMarkdown(detail)
	for _, want := range []string{"# Dependent", "## Blocked by", "Blocker", "*missing*", "Needs the blocker first."} {
		if !strings.Contains(md, want) {
			t.Fatalf("expected %q in markdown\n%s", want, md)
		}
	}
	m = applyKeys(t, m, keyEsc())
	if m.detailTaskID != "" {
		t.Fatal("expected esc to close detail")
	}
}

func TestModelShiftIntoDoneCelebrates(t *testing.T) {
	var timers []*manualTimer
	cfg := board.DefaultSessionConfig()
	cfg.CelebrationOptions = []board.CelebrationOption{manualCelebration(&timers)}
	svc := newFakeService(newTask("a", "Ship", domain.StatusReview))
	m := loadReadyModel(t, NewModel(svc, WithSessionConfig(cfg)))
	m.selectedColumn = domain.StatusReview.Index()

	updated, cmd := m.Update(keyRune(']'))
	m = updated.(Model)
	if !m.session.Celebrating() || !m.awaitingCelebration {
		t.Fatal("expected celebration running")
	}
	if !strings.Contains(m.render(), "task done") {
		t.Fatal("expected celebration banner")
	}
	if len(timers) != 1 {
		t.Fatalf("expected one timer, got %d", len(timers))
	}
	timers[0].fire()
	m = applyCmd(t, m, cmd)
	if m.session.Celebrating() || m.awaitingCelebration {
		t.Fatal("expected celebration finished")
	}
	if strings.Contains(m.render(), "task done") {
		t.Fatal("expected banner gone")
	}
	task, _ := m.session.Task("a")
	if task.Status != domain.StatusDone {
		t.Fatalf("expected Done, got %s", task.Status)
	}
}

func TestModelBlockedDoneRespectsPolicy(t *testing.T) {
	cfg := board.DefaultSessionConfig()
	cfg.AllowOverrideOnBlocked = false
	svc := newFakeService(
		newTask("a", "Blocker", domain.StatusBacklog),
		newTask("b", "Dependent", domain.StatusReview, "a"),
	)
	m := loadReadyModel(t, NewModel(svc, WithSessionConfig(cfg)))
	m.selectedColumn = domain.StatusReview.Index()
	m = applyKeys(t, m, keyRune(']'))
	if len(svc.recorded()) != 0 {
		t.Fatalf("expected blocked move refused, got %#v", svc.recorded())
	}
	if !strings.Contains(m.status, "blocked") {
		t.Fatalf("unexpected status %q", m.status)
	}
}

func TestModelFiltersCycleAndReset(t *testing.T) {
	high := newTask("a", "Urgent", domain.StatusBacklog)
	high.Priority = domain.PriorityHigh
	high.Collaborators = []string{"ana"}
	low := newTask("b", "Later", domain.StatusBacklog)
	low.Priority = domain.PriorityLow
	svc := newFakeService(high, low)
	m := loadReadyModel(t, NewModel(svc))

	m = applyKeys(t, m, keyRune('p'))
	if got := m.session.Filters().Filter().Priority; got != "High" {
		t.Fatalf("expected High priority filter, got %q", got)
	}
	if visible := m.currentColumnTasks(); len(visible) != 1 || visible[0].ID != "a" {
		t.Fatalf("unexpected visible tasks %#v", visible)
	}
	m = applyKeys(t, m, keyRune('0'), keyRune('a'))
	if got := m.session.Filters().Filter(); got.Priority != board.All || got.Assignee != "ana" {
		t.Fatalf("unexpected filter %#v", got)
	}
	m = applyKeys(t, m, keyRune('0'))
	if !m.session.Filters().Filter().IsIdentity() {
		t.Fatal("expected filters reset")
	}
}

func TestModelYankAndDelete(t *testing.T) {
	var copied string
	svc := newFakeService(newTask("a", "Task", domain.StatusBacklog))
	m := loadReadyModel(t, NewModel(svc, WithClipboard(func(text string) error {
		copied = text
		return nil
	})))

	m = applyKeys(t, m, keyRune('y'))
	if copied != "a" {
		t.Fatalf("expected id copied, got %q", copied)
	}

	m = applyKeys(t, m, keyRune('d'))
	if len(svc.recorded()) != 0 || !strings.Contains(m.status, "press d again") {
		t.Fatalf("expected delete confirmation, status %q", m.status)
	}
	m = applyKeys(t, m, keyRune('d'))
	if got := svc.recorded(); !slices.Equal(got, []string{"delete:a"}) {
		t.Fatalf("unexpected calls %#v", got)
	}
	if m.session.Collection().Len() != 0 {
		t.Fatal("expected task gone after reload")
	}
}

func TestModelClipboardFailureReported(t *testing.T) {
	svc := newFakeService(newTask("a", "Task", domain.StatusBacklog))
	m := loadReadyModel(t, NewModel(svc, WithClipboard(func(string) error {
		return errors.New("no clipboard")
	})))
	m = applyKeys(t, m, keyRune('y'))
	if !strings.Contains(m.status, "copy failed") {
		t.Fatalf("unexpected status %q", m.status)
	}
}

func TestModelLoadErrorAndRetry(t *testing.T) {
	svc := newFakeService(newTask("a", "Task", domain.StatusBacklog))
	svc.err = errors.New("database locked")
	m := loadReadyModel(t, NewModel(svc))
	if !strings.Contains(m.render(), "database locked") {
		t.Fatalf("expected error view, got %q", m.render())
	}
	svc.mu.Lock()
	svc.err = nil
	svc.mu.Unlock()
	m = applyKeys(t, m, keyRune('r'))
	if m.err != nil || !strings.Contains(m.render(), "Task") {
		t.Fatalf("expected board after retry, err=%v", m.err)
	}
}

func TestModelQuitStopsCelebration(t *testing.T) {
	var timers []*manualTimer
	cfg := board.DefaultSessionConfig()
	cfg.CelebrationOptions = []board.CelebrationOption{manualCelebration(&timers)}
	m := loadReadyModel(t, NewModel(newFakeService(newTask("a", "Ship", domain.StatusReview)), WithSessionConfig(cfg)))
	m.selectedColumn = domain.StatusReview.Index()
	m = applyKeys(t, m, keyRune(']'))
	_, cmd := m.Update(keyRune('q'))
	if cmd == nil {
		t.Fatal("expected quit cmd")
	}
	if m.session.Celebrating() {
		t.Fatal("expected celebration stopped on quit")
	}
}

func TestModelQuitReleasesCelebrationWait(t *testing.T) {
	var timers []*manualTimer
	cfg := board.DefaultSessionConfig()
	cfg.CelebrationOptions = []board.CelebrationOption{manualCelebration(&timers)}
	m := loadReadyModel(t, NewModel(newFakeService(newTask("a", "Ship", domain.StatusReview)), WithSessionConfig(cfg)))
	m.selectedColumn = domain.StatusReview.Index()
	updated, _ := m.Update(keyRune(']'))
	m = updated.(Model)
	if !m.awaitingCelebration {
		t.Fatal("expected model waiting on celebration")
	}

	done := make(chan tea.Msg, 1)
	go func() { done <- m.waitForCelebrationEnd() }()
	if _, cmd := m.Update(keyRune('q')); cmd == nil {
		t.Fatal("expected quit cmd")
	}
	select {
	case msg := <-done:
		if msg != nil {
			t.Fatalf("expected nil msg after quit, got %T", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("celebration wait still blocked after quit")
	}
}

func TestWindowBounds(t *testing.T) {
	cases := []struct {
		total, selected, size int
		start, end            int
	}{
		{3, 0, 5, 0, 3},
		{10, 0, 4, 0, 4},
		{10, 5, 4, 3, 7},
		{10, 9, 4, 6, 10},
	}
	for _, tc := range cases {
		start, end := windowBounds(tc.total, tc.selected, tc.size)
		if start != tc.start || end != tc.end {
			t.Fatalf("windowBounds(%d, %d, %d) = %d, %d", tc.total, tc.selected, tc.size, start, end)
		}
	}
}
