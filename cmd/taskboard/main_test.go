package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	goruntime "runtime"
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/hylla/taskboard/internal/app"
	"github.com/hylla/taskboard/internal/board"
	"github.com/hylla/taskboard/internal/config"
	"github.com/hylla/taskboard/internal/tui"
)

// TestMain sets deterministic environment defaults for CLI tests.
func TestMain(m *testing.M) {
	_ = os.Setenv("TASKBOARD_DEV_MODE", "false")
	os.Exit(m.Run())
}

// fakeProgram stands in for the TUI program.
type fakeProgram struct {
	runErr error
}

// Run returns the configured error without touching the terminal.
func (f fakeProgram) Run() (tea.Model, error) {
	return nil, f.runErr
}

// cliEnv is one temp database plus config used by a test.
type cliEnv struct {
	dir    string
	dbPath string
	cfg    string
}

// newCLIEnv prepares temp paths and deterministic task ids.
func newCLIEnv(t *testing.T) cliEnv {
	t.Helper()
	dir := t.TempDir()
	origIDs := idGenerator
	t.Cleanup(func() { idGenerator = origIDs })
	next := 0
	idGenerator = func() string {
		next++
		return fmt.Sprintf("t%d", next)
	}
	return cliEnv{
		dir:    dir,
		dbPath: filepath.Join(dir, "taskboard.db"),
		cfg:    filepath.Join(dir, "config.toml"),
	}
}

// writeConfig stores TOML content at the env config path.
func (e cliEnv) writeConfig(t *testing.T, content string) {
	t.Helper()
	if err := os.WriteFile(e.cfg, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
}

// run executes args against the env database and returns stdout.
func (e cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout bytes.Buffer
	args = append(args, "--db", e.dbPath, "--config", e.cfg)
	err := run(context.Background(), args, &stdout, io.Discard)
	return stdout.String(), err
}

// mustRun is run that fails the test on error.
func (e cliEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, args...)
	if err != nil {
		t.Fatalf("run(%v) error = %v", args, err)
	}
	return out
}

// TestRunVersion verifies the version flag.
func TestRunVersion(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), []string{"--version"}, &out, io.Discard); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if !strings.Contains(out.String(), "taskboard dev") {
		t.Fatalf("unexpected version output %q", out.String())
	}
}

// TestRunStartsProgram verifies the root command opens the board.
func TestRunStartsProgram(t *testing.T) {
	origFactory := programFactory
	t.Cleanup(func() { programFactory = origFactory })
	var started tea.Model
	programFactory = func(m tea.Model) program {
		started = m
		return fakeProgram{}
	}

	env := newCLIEnv(t)
	if _, err := env.run(t); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if _, ok := started.(tui.Model); !ok {
		t.Fatalf("expected tui.Model, got %T", started)
	}
	started = nil
	if _, err := env.run(t, "board"); err != nil {
		t.Fatalf("run(board) error = %v", err)
	}
	if started == nil {
		t.Fatal("expected board command to start the program")
	}
}

// TestRunProgramError verifies TUI failures propagate.
func TestRunProgramError(t *testing.T) {
	origFactory := programFactory
	t.Cleanup(func() { programFactory = origFactory })
	boom := errors.New("boom")
	programFactory = func(_ tea.Model) program { return fakeProgram{runErr: boom} }

	env := newCLIEnv(t)
	if _, err := env.run(t); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

// TestRunInvalidFlag verifies unknown flags are rejected.
func TestRunInvalidFlag(t *testing.T) {
	if err := run(context.Background(), []string{"--nope"}, io.Discard, io.Discard); err == nil {
		t.Fatal("expected flag parse error")
	}
}

// TestRunUnknownCommand verifies unknown commands are rejected.
func TestRunUnknownCommand(t *testing.T) {
	err := run(context.Background(), []string{"wat"}, io.Discard, io.Discard)
	if err == nil || !strings.Contains(err.Error(), "unknown command") {
		t.Fatalf("expected unknown command error, got %v", err)
	}
}

// TestRunPathsCommand verifies resolved paths are printed without opening the database.
func TestRunPathsCommand(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), []string{"paths", "--app", "tb-test"}, &out, io.Discard); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	for _, want := range []string{"app: tb-test", "dev_mode: false", "config:", "data_dir:", "db:", "log_dir:"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("expected %q in paths output, got %q", want, out.String())
		}
	}
}

// TestRunAddListResolve verifies tasks created from the CLI show derived readiness.
func TestRunAddListResolve(t *testing.T) {
	env := newCLIEnv(t)
	if got := strings.TrimSpace(env.mustRun(t, "add", "--title", "Design", "--priority", "high", "--project", "web", "--assign", "ana,bo")); got != "t1" {
		t.Fatalf("expected id t1, got %q", got)
	}
	env.mustRun(t, "add", "--title", "Build", "--project", "web", "--blocked-by", "t1", "--due", "2026-11-01")
	env.mustRun(t, "add", "--title", "Docs", "--project", "site", "--priority", "low")

	out := env.mustRun(t, "list")
	if lines := strings.Split(strings.TrimSpace(out), "\n"); len(lines) != 3 {
		t.Fatalf("expected 3 tasks, got %q", out)
	}

	out = env.mustRun(t, "list", "--project", "web", "--priority", "HIGH")
	if !strings.Contains(out, "Design") || strings.Contains(out, "Build") || strings.Contains(out, "Docs") {
		t.Fatalf("unexpected filtered list %q", out)
	}
	out = env.mustRun(t, "list", "--assignee", "bo")
	if strings.TrimSpace(out) != "t1\tBacklog\tHigh\tDesign" {
		t.Fatalf("unexpected assignee list %q", out)
	}

	out = env.mustRun(t, "resolve")
	var buildRow, designRow string
	for _, line := range strings.Split(out, "\n") {
		switch {
		case strings.Contains(line, "Build"):
			buildRow = line
		case strings.Contains(line, "Design"):
			designRow = line
		}
	}
	if !strings.Contains(buildRow, "yes") || !strings.Contains(buildRow, "no") {
		t.Fatalf("expected Build blocked and not ready, got %q", buildRow)
	}
	if strings.Contains(designRow, "yes") {
		t.Fatalf("expected Design neither blocked nor ready, got %q", designRow)
	}
}

// TestRunAddValidation verifies malformed add flags are rejected before opening the board.
func TestRunAddValidation(t *testing.T) {
	env := newCLIEnv(t)
	cases := [][]string{
		{"add"},
		{"add", "--title", "x", "--priority", "urgent"},
		{"add", "--title", "x", "--due", "tomorrow"},
		{"add", "--title", "x", "--status", "shipped"},
		{"add", "--title", "x", "--blocked-by", "missing"},
	}
	for _, args := range cases {
		if _, err := env.run(t, args...); err == nil {
			t.Fatalf("run(%v) expected error", args)
		}
	}
}

// TestRunMoveIntoDone verifies moves go through the board policy and celebrate completion.
func TestRunMoveIntoDone(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun(t, "add", "--title", "Blocker")
	env.mustRun(t, "add", "--title", "Dependent", "--blocked-by", "t1")

	out := env.mustRun(t, "move", "t1", "in-progress")
	if !strings.Contains(out, "moved t1 to In Progress") || strings.Contains(out, "task done") {
		t.Fatalf("unexpected move output %q", out)
	}
	out = env.mustRun(t, "move", "t2", "done")
	if !strings.Contains(out, "task done") {
		t.Fatalf("expected celebration on override move, got %q", out)
	}
}

// TestRunMoveBlockedRefusedWhenOverrideDisabled verifies the blocked-to-Done policy flag.
func TestRunMoveBlockedRefusedWhenOverrideDisabled(t *testing.T) {
	env := newCLIEnv(t)
	env.writeConfig(t, "[board]\nallow_override_on_blocked = false\n")
	env.mustRun(t, "add", "--title", "Blocker")
	env.mustRun(t, "add", "--title", "Dependent", "--blocked-by", "t1")

	if _, err := env.run(t, "move", "t2", "done"); !errors.Is(err, board.ErrTransitionBlocked) {
		t.Fatalf("expected ErrTransitionBlocked, got %v", err)
	}
	env.mustRun(t, "move", "t1", "done")
	env.mustRun(t, "move", "t2", "done")
}

// TestRunMoveRejectsBadInput verifies unknown ids and statuses fail.
func TestRunMoveRejectsBadInput(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun(t, "add", "--title", "Only")
	if _, err := env.run(t, "move", "t1", "shipped"); err == nil {
		t.Fatal("expected invalid status error")
	}
	if _, err := env.run(t, "move", "nope", "done"); !errors.Is(err, board.ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound, got %v", err)
	}
}

// TestRunLinkFlow verifies link outcomes and unlink.
func TestRunLinkFlow(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun(t, "add", "--title", "A")
	env.mustRun(t, "add", "--title", "B")

	if out := env.mustRun(t, "link", "t2", "t1"); !strings.Contains(out, "linked t2 <- t1") {
		t.Fatalf("unexpected link output %q", out)
	}
	if out := env.mustRun(t, "link", "t2", "t1"); !strings.Contains(out, "already blocked") {
		t.Fatalf("unexpected relink output %q", out)
	}
	if _, err := env.run(t, "link", "t1", "t2"); !errors.Is(err, app.ErrDependencyLoop) {
		t.Fatalf("expected ErrDependencyLoop, got %v", err)
	}
	if _, err := env.run(t, "link", "t1", "t1"); !errors.Is(err, errSelfLink) {
		t.Fatalf("expected errSelfLink, got %v", err)
	}
	if _, err := env.run(t, "link", "t1", "ghost"); !errors.Is(err, app.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	out := env.mustRun(t, "show", "t2", "--raw")
	if !strings.Contains(out, "## Blocked by") || !strings.Contains(out, "- [ ] A (`t1`)") {
		t.Fatalf("expected blocker in detail, got %q", out)
	}

	env.mustRun(t, "unlink", "t2", "t1")
	out = env.mustRun(t, "show", "t2", "--raw")
	if strings.Contains(out, "Blocked by") {
		t.Fatalf("expected no blockers after unlink, got %q", out)
	}
}

// TestRunShowRendersMarkdown verifies the styled detail path produces output.
func TestRunShowRendersMarkdown(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun(t, "add", "--title", "Styled", "--description", "Some **bold** text")
	out := env.mustRun(t, "show", "t1")
	if strings.TrimSpace(out) == "" {
		t.Fatal("expected rendered detail")
	}
	if _, err := env.run(t, "show", "missing"); !errors.Is(err, app.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// TestRunDeleteLeavesMissingBlocker verifies deleted blockers stay referenced by default.
func TestRunDeleteLeavesMissingBlocker(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun(t, "add", "--title", "Gone")
	env.mustRun(t, "add", "--title", "Left", "--blocked-by", "t1")

	if out := env.mustRun(t, "delete", "t1"); !strings.Contains(out, "deleted t1") {
		t.Fatalf("unexpected delete output %q", out)
	}
	out := env.mustRun(t, "show", "t2", "--raw")
	if !strings.Contains(out, "*missing* (`t1`)") {
		t.Fatalf("expected dangling blocker in detail, got %q", out)
	}
	if out := env.mustRun(t, "list"); strings.Contains(out, "Gone") {
		t.Fatalf("expected deleted task to be gone, got %q", out)
	}
}

// TestRunExportImportFormats verifies snapshots round-trip through both encodings.
func TestRunExportImportFormats(t *testing.T) {
	for _, name := range []string{"board.json", "board.yaml"} {
		t.Run(name, func(t *testing.T) {
			src := newCLIEnv(t)
			src.mustRun(t, "add", "--title", "Alpha", "--project", "p")
			src.mustRun(t, "add", "--title", "Beta", "--blocked-by", "t1")
			snapPath := filepath.Join(src.dir, "out", name)
			src.mustRun(t, "export", "--out", snapPath)

			content, err := os.ReadFile(snapPath)
			if err != nil {
				t.Fatalf("ReadFile() error = %v", err)
			}
			if !strings.Contains(string(content), app.SnapshotVersion) {
				t.Fatalf("expected snapshot version in %s, got %q", name, content)
			}

			dst := newCLIEnv(t)
			dst.mustRun(t, "import", "--in", snapPath)
			out := dst.mustRun(t, "list")
			if !strings.Contains(out, "Alpha") || !strings.Contains(out, "Beta") {
				t.Fatalf("expected imported tasks, got %q", out)
			}
		})
	}
}

// TestRunExportToStdoutAndImportErrors verifies stdout export and import failures.
func TestRunExportToStdoutAndImportErrors(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun(t, "add", "--title", "Stdout")
	out := env.mustRun(t, "export", "--format", "yaml")
	if !strings.Contains(out, "title: Stdout") {
		t.Fatalf("expected yaml snapshot on stdout, got %q", out)
	}

	if _, err := env.run(t, "import"); err == nil {
		t.Fatal("expected missing --in error")
	}
	if _, err := env.run(t, "import", "--in", filepath.Join(env.dir, "nope.json")); err == nil {
		t.Fatal("expected missing file error")
	}
	if _, err := env.run(t, "export", "--format", "xml"); !errors.Is(err, app.ErrInvalidFormat) {
		t.Fatalf("expected ErrInvalidFormat, got %v", err)
	}
}

// TestRunConfigAndDBEnvOverrides verifies environment path overrides.
func TestRunConfigAndDBEnvOverrides(t *testing.T) {
	origFactory := programFactory
	t.Cleanup(func() { programFactory = origFactory })
	programFactory = func(_ tea.Model) program { return fakeProgram{} }

	tmp := t.TempDir()
	dbPath := filepath.Join(tmp, "env.db")
	t.Setenv("TASKBOARD_DB_PATH", dbPath)
	t.Setenv("TASKBOARD_CONFIG", filepath.Join(tmp, "env.toml"))
	if err := run(context.Background(), nil, io.Discard, io.Discard); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if _, err := os.Stat(dbPath); err != nil {
		t.Fatalf("expected db at env path, stat error = %v", err)
	}
}

// TestParseBoolEnv verifies boolean env parsing.
func TestParseBoolEnv(t *testing.T) {
	t.Setenv("TASKBOARD_TEST_BOOL", "true")
	if v, ok := parseBoolEnv("TASKBOARD_TEST_BOOL"); !ok || !v {
		t.Fatalf("expected true/ok, got %t/%t", v, ok)
	}
	t.Setenv("TASKBOARD_TEST_BOOL", "maybe")
	if _, ok := parseBoolEnv("TASKBOARD_TEST_BOOL"); ok {
		t.Fatal("expected malformed value to be ignored")
	}
	t.Setenv("TASKBOARD_TEST_BOOL", "")
	if _, ok := parseBoolEnv("TASKBOARD_TEST_BOOL"); ok {
		t.Fatal("expected empty value to be ignored")
	}
}

// TestRunTUIModeWritesRuntimeLogsToFileOnly verifies board logs stay off stderr and land in the dev log.
func TestRunTUIModeWritesRuntimeLogsToFileOnly(t *testing.T) {
	origFactory := programFactory
	t.Cleanup(func() { programFactory = origFactory })
	programFactory = func(_ tea.Model) program { return fakeProgram{} }

	workspace := t.TempDir()
	t.Chdir(workspace)

	cfgPath := filepath.Join(workspace, "config.toml")
	if err := os.WriteFile(cfgPath, []byte("[logging.dev_file]\nenabled = true\ndir = \".taskboard/log\"\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	var stderr bytes.Buffer
	args := []string{"--dev", "--db", filepath.Join(workspace, "taskboard.db"), "--config", cfgPath}
	if err := run(context.Background(), args, io.Discard, &stderr); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if got := strings.TrimSpace(stderr.String()); got != "" {
		t.Fatalf("expected no runtime stderr output in TUI mode, got %q", got)
	}

	logDir := filepath.Join(workspace, ".taskboard", "log")
	entries, err := os.ReadDir(logDir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	var logPath string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".log") {
			logPath = filepath.Join(logDir, entry.Name())
			break
		}
	}
	if logPath == "" {
		t.Fatalf("expected a .log file in %s", logDir)
	}
	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(content), "starting tui program loop") {
		t.Fatalf("expected TUI lifecycle entries in dev log, got %q", content)
	}
}

// TestRunRejectsInvalidLoggingLevelFromConfig verifies config validation stops startup.
func TestRunRejectsInvalidLoggingLevelFromConfig(t *testing.T) {
	env := newCLIEnv(t)
	env.writeConfig(t, "[logging]\nlevel = \"loud\"\n")
	if _, err := env.run(t, "list"); err == nil {
		t.Fatal("expected invalid logging level error")
	}
}

// TestWorkspaceRootFromUsesNearestMarker verifies workspace-root resolution.
func TestWorkspaceRootFromUsesNearestMarker(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "go.mod"), []byte("module example.com/test\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	nested := filepath.Join(root, "cmd", "taskboard")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if got := workspaceRootFrom(nested); filepath.Clean(got) != filepath.Clean(root) {
		t.Fatalf("expected workspace root %q, got %q", root, got)
	}
}

// TestDevLogFilePath verifies relative log dirs anchor at the workspace root and names are sanitized.
func TestDevLogFilePath(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "go.mod"), []byte("module example.com/test\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	nested := filepath.Join(root, "internal")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	t.Chdir(nested)

	got, err := devLogFilePath(filepath.Join(".taskboard", "log"), "/unused", " my/app ", time.Date(2026, 2, 22, 12, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("devLogFilePath() error = %v", err)
	}
	normalize := func(p string) string {
		return strings.TrimPrefix(filepath.Clean(p), "/private")
	}
	want := filepath.Join(root, ".taskboard", "log", "my-app-20260222.log")
	if normalize(got) != normalize(want) {
		t.Fatalf("expected %q, got %q", want, got)
	}
	if stem := sanitizeLogFileStem(" / "); stem != "taskboard" {
		t.Fatalf("expected fallback stem, got %q", stem)
	}
	if _, err := devLogFilePath(" ", "", "app", time.Now()); err == nil {
		t.Fatal("expected error without any log dir")
	}
}

// TestRuntimeLoggerUsesPlatformLogDirWhenDirBlank verifies the default dev log location.
func TestRuntimeLoggerUsesPlatformLogDirWhenDirBlank(t *testing.T) {
	logDir := filepath.Join(t.TempDir(), "log")
	cfg := config.Default("/tmp/taskboard.db").Logging
	if cfg.DevFile.Dir != "" {
		t.Fatalf("expected blank default dev dir, got %q", cfg.DevFile.Dir)
	}

	logger, err := newRuntimeLogger(io.Discard, "taskboard-dev", true, cfg, logDir, func() time.Time {
		return time.Date(2026, 2, 24, 9, 0, 0, 0, time.UTC)
	})
	if err != nil {
		t.Fatalf("newRuntimeLogger() error = %v", err)
	}
	t.Cleanup(func() { _ = logger.Close() })

	want := filepath.Join(logDir, "taskboard-dev-20260224.log")
	if logger.DevLogPath() != want {
		t.Fatalf("expected %q, got %q", want, logger.DevLogPath())
	}
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("expected dev log file created: %v", err)
	}
}

// TestRunDevModeLogsUnderPlatformLogDir verifies the CLI feeds the resolved log dir to the logger.
func TestRunDevModeLogsUnderPlatformLogDir(t *testing.T) {
	if goruntime.GOOS != "linux" {
		t.Skip("XDG_DATA_HOME only applies on linux")
	}
	dataHome := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dataHome)
	env := newCLIEnv(t)
	if err := run(context.Background(), []string{"list", "--dev", "--app", "tb-log", "--db", env.dbPath, "--config", env.cfg}, io.Discard, io.Discard); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	entries, err := os.ReadDir(filepath.Join(dataHome, "tb-log-dev", "log"))
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 || !strings.HasPrefix(entries[0].Name(), "tb-log-") {
		t.Fatalf("expected one dev log file, got %v", entries)
	}
}

// TestRuntimeLoggerCanMuteConsoleSink verifies console muting.
func TestRuntimeLoggerCanMuteConsoleSink(t *testing.T) {
	var console bytes.Buffer
	cfg := config.Default("/tmp/taskboard.db").Logging

	logger, err := newRuntimeLogger(&console, "taskboard", false, cfg, "", func() time.Time {
		return time.Date(2026, 2, 23, 12, 0, 0, 0, time.UTC)
	})
	if err != nil {
		t.Fatalf("newRuntimeLogger() error = %v", err)
	}

	logger.Info("before")
	logger.SetConsoleEnabled(false)
	logger.Info("during")
	logger.SetConsoleEnabled(true)
	logger.Info("after")

	out := console.String()
	if !strings.Contains(out, "before") || !strings.Contains(out, "after") {
		t.Fatalf("expected console log to include unmuted entries, got %q", out)
	}
	if strings.Contains(out, "during") {
		t.Fatalf("expected muted console log to omit 'during', got %q", out)
	}
	if logger.DevLogPath() != "" {
		t.Fatalf("expected no dev log outside dev mode, got %q", logger.DevLogPath())
	}
}
