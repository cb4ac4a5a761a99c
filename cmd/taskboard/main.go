package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/fang"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/hylla/taskboard/internal/adapters/storage/sqlite"
	"github.com/hylla/taskboard/internal/app"
	"github.com/hylla/taskboard/internal/board"
	"github.com/hylla/taskboard/internal/config"
	"github.com/hylla/taskboard/internal/platform"
	"github.com/hylla/taskboard/internal/tui"
)

// version is stamped at build time.
var version = "dev"

// program is the part of tea.Program the CLI drives.
type program interface {
	Run() (tea.Model, error)
}

// programFactory builds the TUI program; tests swap it for a fake.
var programFactory = func(m tea.Model) program {
	return tea.NewProgram(m)
}

// idGenerator issues task ids.
var idGenerator app.IDGenerator = uuid.NewString

func main() {
	root := newRootCommand(os.Stdout, os.Stderr)
	if err := fang.Execute(context.Background(), root, fang.WithVersion(version)); err != nil {
		os.Exit(1)
	}
}

// run executes one command line without fang's terminal styling.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if args == nil {
		// cobra reads os.Args when given nil.
		args = []string{}
	}
	root := newRootCommand(stdout, stderr)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// cli holds the global flag values shared by every command.
type cli struct {
	stdout     io.Writer
	stderr     io.Writer
	configPath string
	dbPath     string
	appName    string
	devMode    bool
}

// newRootCommand wires the command tree. Running the root alone opens the board.
func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}
	c := &cli{stdout: stdout, stderr: stderr}

	defaultDevMode := version == "dev"
	if envDev, ok := parseBoolEnv("TASKBOARD_DEV_MODE"); ok {
		defaultDevMode = envDev
	}
	defaultApp := platform.DefaultAppName
	if envApp := strings.TrimSpace(os.Getenv("TASKBOARD_APP_NAME")); envApp != "" {
		defaultApp = envApp
	}

	root := &cobra.Command{
		Use:           "taskboard",
		Short:         "Kanban board with task dependencies",
		Long:          "taskboard tracks tasks across Backlog, In Progress, Review and Done, and shows which tasks are blocked by unfinished work.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runBoard(cmd.Context())
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetVersionTemplate("taskboard {{.Version}}\n")

	flags := root.PersistentFlags()
	flags.StringVar(&c.configPath, "config", "", "path to config TOML")
	flags.StringVar(&c.dbPath, "db", "", "path to sqlite database")
	flags.StringVar(&c.appName, "app", defaultApp, "application name for config/data path resolution")
	flags.BoolVar(&c.devMode, "dev", defaultDevMode, "use dev mode paths (<app>-dev)")

	root.AddCommand(
		c.boardCmd(),
		c.pathsCmd(),
		c.addCmd(),
		c.listCmd(),
		c.resolveCmd(),
		c.moveCmd(),
		c.linkCmd(),
		c.unlinkCmd(),
		c.showCmd(),
		c.deleteCmd(),
		c.exportCmd(),
		c.importCmd(),
	)
	return root
}

// paths resolves the platform locations for the current flags.
func (c *cli) paths() (platform.Paths, error) {
	return platform.Resolve(platform.SystemEnv(), platform.Options{
		AppName: c.appName,
		DevMode: c.devMode,
	})
}

// runtime is the opened state one command works against.
type runtime struct {
	cfg        config.Config
	configPath string
	logger     *runtimeLogger
	repo       *sqlite.Repository
	svc        *app.Service
}

// open resolves config, starts logging and opens the repository. Callers
// must Close the returned runtime.
func (c *cli) open(command string, quietConsole bool) (*runtime, error) {
	paths, err := c.paths()
	if err != nil {
		return nil, err
	}

	configPath := c.configPath
	if configPath == "" {
		if envPath := strings.TrimSpace(os.Getenv("TASKBOARD_CONFIG")); envPath != "" {
			configPath = envPath
		} else {
			configPath = paths.ConfigPath
		}
	}
	dbPath := strings.TrimSpace(c.dbPath)
	dbOverridden := dbPath != ""
	if !dbOverridden {
		if envPath := strings.TrimSpace(os.Getenv("TASKBOARD_DB_PATH")); envPath != "" {
			dbPath = envPath
			dbOverridden = true
		} else {
			dbPath = paths.DBPath
		}
	}

	cfg, err := config.Load(configPath, config.Default(dbPath))
	if err != nil {
		return nil, fmt.Errorf("load config %q: %w", configPath, err)
	}
	if dbOverridden {
		cfg.Database.Path = dbPath
	}

	logger, err := newRuntimeLogger(c.stderr, c.appName, c.devMode, cfg.Logging, paths.LogDir, time.Now)
	if err != nil {
		return nil, fmt.Errorf("configure runtime logger: %w", err)
	}
	if quietConsole {
		// The board owns the terminal; runtime logs go to the dev file only.
		logger.SetConsoleEnabled(false)
	}

	logger.Info("startup configuration resolved", "app", c.appName, "dev_mode", c.devMode, "command", command)
	logger.Debug("runtime paths resolved", "config_path", configPath, "data_dir", paths.DataDir, "log_dir", paths.LogDir, "db_path", dbPath)
	logger.Debug("configuration loaded", "config_path", configPath, "db_path", cfg.Database.Path, "log_level", cfg.Logging.Level)
	if devPath := logger.DevLogPath(); devPath != "" {
		logger.Debug("dev file logging enabled", "path", devPath)
	}

	logger.Debug("opening sqlite repository", "db_path", cfg.Database.Path)
	repo, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Error("sqlite open failed", "db_path", cfg.Database.Path, "err", err)
		_ = logger.Close()
		return nil, fmt.Errorf("open sqlite repository: %w", err)
	}
	logger.Debug("sqlite repository ready", "db_path", cfg.Database.Path, "migrations", "ensured")

	svcCfg := cfg.ServiceConfig()
	svc := app.NewService(repo, idGenerator, nil, svcCfg)
	logger.Debug("application service initialized", "reject_cycles", svcCfg.RejectCycles, "prune_deleted_blockers", svcCfg.PruneDeletedBlockers)

	return &runtime{
		cfg:        cfg,
		configPath: configPath,
		logger:     logger,
		repo:       repo,
		svc:        svc,
	}, nil
}

// Close releases the repository and the log file.
func (rt *runtime) Close(stderr io.Writer) {
	if closeErr := rt.repo.Close(); closeErr != nil {
		rt.logger.Warn("sqlite close failed", "db_path", rt.cfg.Database.Path, "err", closeErr)
	}
	if closeErr := rt.logger.Close(); closeErr != nil && rt.logger.ConsoleEnabled() {
		_, _ = fmt.Fprintf(stderr, "warning: close runtime log sink: %v\n", closeErr)
	}
}

// session loads the whole board into a session configured from [board].
func (rt *runtime) session(ctx context.Context) (*board.Session, error) {
	sessionCfg, err := rt.cfg.SessionConfig()
	if err != nil {
		return nil, err
	}
	tasks, tombstones, err := rt.svc.LoadBoard(ctx)
	if err != nil {
		return nil, fmt.Errorf("load board: %w", err)
	}
	s := board.NewSession(board.NewHost(rt.svc, nil), sessionCfg)
	s.Load(tasks, tombstones)
	return s, nil
}

// withRuntime runs fn inside an opened runtime and logs the command lifecycle.
func (c *cli) withRuntime(command string, fn func(rt *runtime) error) error {
	rt, err := c.open(command, false)
	if err != nil {
		return err
	}
	defer rt.Close(c.stderr)

	rt.logger.Debug("command flow start", "command", command)
	if err := fn(rt); err != nil {
		rt.logger.Error("command flow failed", "command", command, "err", err)
		return fmt.Errorf("run %s command: %w", command, err)
	}
	rt.logger.Debug("command flow complete", "command", command)
	return nil
}

// runBoard starts the interactive board.
func (c *cli) runBoard(_ context.Context) error {
	rt, err := c.open("board", true)
	if err != nil {
		return err
	}
	defer rt.Close(c.stderr)

	sessionCfg, err := rt.cfg.SessionConfig()
	if err != nil {
		return err
	}
	m := tui.NewModel(
		rt.svc,
		tui.WithSessionConfig(sessionCfg),
		tui.WithFieldConfig(tui.FieldConfig{
			ShowDueDate:       rt.cfg.UI.ShowDueDate,
			ShowCollaborators: rt.cfg.UI.ShowCollaborators,
			ShowDescription:   rt.cfg.UI.ShowDescription,
		}),
	)
	rt.logger.Info("command flow start", "command", "board")
	rt.logger.Info("starting tui program loop")
	if _, err := programFactory(m).Run(); err != nil {
		rt.logger.Error("tui program terminated with error", "err", err)
		return fmt.Errorf("run tui program: %w", err)
	}
	rt.logger.Info("command flow complete", "command", "board")
	return nil
}

// parseBoolEnv reads a boolean environment variable; ok is false when unset or malformed.
func parseBoolEnv(name string) (bool, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
