package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/hylla/taskboard/internal/app"
	"github.com/hylla/taskboard/internal/board"
	"github.com/hylla/taskboard/internal/domain"
	"github.com/hylla/taskboard/internal/tui"
)

func (c *cli) boardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "board",
		Short: "Open the interactive board",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runBoard(cmd.Context())
		},
	}
}

func (c *cli) pathsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print resolved config and data paths",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			paths, err := c.paths()
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(c.stdout, "app: %s\n", c.appName)
			_, _ = fmt.Fprintf(c.stdout, "dev_mode: %t\n", c.devMode)
			_, _ = fmt.Fprintf(c.stdout, "config: %s\n", paths.ConfigPath)
			_, _ = fmt.Fprintf(c.stdout, "data_dir: %s\n", paths.DataDir)
			_, _ = fmt.Fprintf(c.stdout, "db: %s\n", paths.DBPath)
			_, _ = fmt.Fprintf(c.stdout, "log_dir: %s\n", paths.LogDir)
			return nil
		},
	}
}

func (c *cli) addCmd() *cobra.Command {
	var (
		title       string
		description string
		project     string
		priority    string
		status      string
		due         string
		assign      []string
		blockedBy   []string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in := app.CreateTaskInput{
				Title:         title,
				Description:   description,
				Project:       project,
				Collaborators: assign,
				Dependencies:  blockedBy,
			}
			if strings.TrimSpace(priority) != "" {
				p, err := domain.ParsePriority(priority)
				if err != nil {
					return fmt.Errorf("--priority %q: %w", priority, err)
				}
				in.Priority = p
			}
			if strings.TrimSpace(status) != "" {
				s, err := domain.ParseStatus(status)
				if err != nil {
					return fmt.Errorf("--status %q: %w", status, err)
				}
				in.Status = s
			}
			if strings.TrimSpace(due) != "" {
				dueAt, err := parseDue(due)
				if err != nil {
					return err
				}
				in.DueAt = &dueAt
			}
			return c.withRuntime("add", func(rt *runtime) error {
				task, err := rt.svc.CreateTask(cmd.Context(), in)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(c.stdout, task.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "task title")
	cmd.Flags().StringVar(&description, "description", "", "task description (markdown)")
	cmd.Flags().StringVar(&project, "project", "", "project name")
	cmd.Flags().StringVar(&priority, "priority", "", "High, Medium or Low (default Medium)")
	cmd.Flags().StringVar(&status, "status", "", "initial status (default Backlog)")
	cmd.Flags().StringVar(&due, "due", "", "due date (YYYY-MM-DD or RFC3339)")
	cmd.Flags().StringSliceVar(&assign, "assign", nil, "collaborators, comma separated")
	cmd.Flags().StringSliceVar(&blockedBy, "blocked-by", nil, "ids of blocking tasks, comma separated")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

// parseDue accepts a calendar date or a full RFC3339 timestamp.
func parseDue(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("--due %q: expected YYYY-MM-DD or RFC3339", raw)
	}
	return t.UTC(), nil
}

// filterFlags binds the three board selectors to cmd.
func filterFlags(cmd *cobra.Command, f *board.Filter) {
	cmd.Flags().StringVar(&f.Priority, "priority", board.All, "only this priority")
	cmd.Flags().StringVar(&f.Project, "project", board.All, "only this project")
	cmd.Flags().StringVar(&f.Assignee, "assignee", board.All, "only tasks with this collaborator")
}

// normalizeFilter canonicalizes the priority selector so "high" matches "High".
func normalizeFilter(f board.Filter) (board.Filter, error) {
	f = f.Normalize()
	if f.Priority != board.All {
		p, err := domain.ParsePriority(f.Priority)
		if err != nil {
			return board.Filter{}, fmt.Errorf("--priority %q: %w", f.Priority, err)
		}
		f.Priority = string(p)
	}
	return f, nil
}

func (c *cli) listCmd() *cobra.Command {
	var filter board.Filter
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks, optionally filtered",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := normalizeFilter(filter)
			if err != nil {
				return err
			}
			return c.withRuntime("list", func(rt *runtime) error {
				s, err := rt.session(cmd.Context())
				if err != nil {
					return err
				}
				defer s.Close()
				s.Filters().SetFilter(f)
				for _, task := range s.Visible() {
					_, _ = fmt.Fprintf(c.stdout, "%s\t%s\t%s\t%s\n", task.ID, task.Status, task.Priority, task.Title)
				}
				return nil
			})
		},
	}
	filterFlags(cmd, &filter)
	return cmd
}

func (c *cli) resolveCmd() *cobra.Command {
	var filter board.Filter
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Show which tasks are blocked and which are ready",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := normalizeFilter(filter)
			if err != nil {
				return err
			}
			return c.withRuntime("resolve", func(rt *runtime) error {
				s, err := rt.session(cmd.Context())
				if err != nil {
					return err
				}
				defer s.Close()
				s.Filters().SetFilter(f)
				_, _ = fmt.Fprintln(c.stdout, readinessTable(s))
				return nil
			})
		},
	}
	filterFlags(cmd, &filter)
	return cmd
}

// readinessTable renders the visible tasks of s with their derived state.
func readinessTable(s *board.Session) string {
	header := lipgloss.NewStyle().Bold(true)
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "Title", "Status", "Blocked", "Ready").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	for _, task := range s.Visible() {
		r := s.Readiness(task.ID)
		t.Row(task.ID, task.Title, domain.ColumnAt(task.Status.Index()).Name, yesNo(r.Blocked), yesNo(r.Ready))
	}
	return t.Render()
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func (c *cli) moveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "move <id> <status>",
		Short: "Move a task to another column",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := domain.ParseStatus(args[1])
			if err != nil {
				return fmt.Errorf("status %q: %w", args[1], err)
			}
			return c.withRuntime("move", func(rt *runtime) error {
				s, err := rt.session(cmd.Context())
				if err != nil {
					return err
				}
				defer s.Close()
				if err := s.MoveTask(cmd.Context(), args[0], status); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(c.stdout, "moved %s to %s\n", args[0], domain.ColumnAt(status.Index()).Name)
				if s.Celebrating() {
					_, _ = fmt.Fprintln(c.stdout, "★ task done! ★")
				}
				return nil
			})
		},
	}
}

// errSelfLink is returned when a task is linked to itself.
var errSelfLink = errors.New("a task cannot block itself")

func (c *cli) linkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "link <dependent> <blocker>",
		Short: "Record that <dependent> is blocked by <blocker>",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dependentID, blockerID := args[0], args[1]
			return c.withRuntime("link", func(rt *runtime) error {
				s, err := rt.session(cmd.Context())
				if err != nil {
					return err
				}
				defer s.Close()
				outcome, err := linkThroughSession(cmd.Context(), s, dependentID, blockerID)
				if err != nil {
					return err
				}
				rt.logger.Debug("link gesture finished", "dependent", dependentID, "blocker", blockerID, "outcome", outcome.String())
				switch outcome {
				case board.LinkOutcomeLinked:
					_, _ = fmt.Fprintf(c.stdout, "linked %s <- %s\n", dependentID, blockerID)
				case board.LinkOutcomeAlreadyLinked:
					_, _ = fmt.Fprintf(c.stdout, "%s is already blocked by %s\n", dependentID, blockerID)
				case board.LinkOutcomeRejectedCycle:
					return fmt.Errorf("link %s <- %s: %w", dependentID, blockerID, app.ErrDependencyLoop)
				default:
					return errSelfLink
				}
				return nil
			})
		},
	}
}

// linkThroughSession replays the two-click link gesture: blocker first, then dependent.
func linkThroughSession(ctx context.Context, s *board.Session, dependentID, blockerID string) (board.LinkOutcome, error) {
	for _, id := range []string{dependentID, blockerID} {
		if _, ok := s.Task(id); !ok {
			return board.LinkOutcomeIgnored, fmt.Errorf("%w: %s", app.ErrNotFound, id)
		}
	}
	if err := s.ToggleLinkMode(); err != nil {
		return board.LinkOutcomeIgnored, err
	}
	if _, err := s.ClickTask(ctx, blockerID); err != nil {
		return board.LinkOutcomeIgnored, err
	}
	return s.ClickTask(ctx, dependentID)
}

func (c *cli) unlinkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unlink <dependent> <blocker>",
		Short: "Remove one dependency",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withRuntime("unlink", func(rt *runtime) error {
				if err := rt.svc.UnlinkTasks(cmd.Context(), args[0], args[1]); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(c.stdout, "unlinked %s <- %s\n", args[0], args[1])
				return nil
			})
		},
	}
}

func (c *cli) showCmd() *cobra.Command {
	var (
		raw   bool
		width int
	)
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one task with its blockers and dependents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withRuntime("show", func(rt *runtime) error {
				s, err := rt.session(cmd.Context())
				if err != nil {
					return err
				}
				defer s.Close()
				detail, ok := tui.DetailFromSession(s, args[0])
				if !ok {
					return fmt.Errorf("%w: %s", app.ErrNotFound, args[0])
				}
				if raw {
					_, _ = io.WriteString(c.stdout, tui.TaskMarkdown(detail))
					return nil
				}
				_, _ = fmt.Fprintln(c.stdout, tui.RenderTaskDetail(detail, width))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "print markdown without terminal styling")
	cmd.Flags().IntVar(&width, "width", 80, "wrap width")
	return cmd
}

func (c *cli) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withRuntime("delete", func(rt *runtime) error {
				s, err := rt.session(cmd.Context())
				if err != nil {
					return err
				}
				defer s.Close()
				if err := s.DeleteTask(cmd.Context(), args[0]); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(c.stdout, "deleted %s\n", args[0])
				return nil
			})
		},
	}
}

// snapshotFormat resolves --format, falling back to the file extension.
func snapshotFormat(flag, path string) (app.SnapshotFormat, error) {
	if strings.TrimSpace(flag) == "" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			return app.SnapshotFormatYAML, nil
		}
	}
	return app.ParseSnapshotFormat(flag)
}

func (c *cli) exportCmd() *cobra.Command {
	var outPath, format string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a snapshot of the board",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := snapshotFormat(format, outPath)
			if err != nil {
				return err
			}
			return c.withRuntime("export", func(rt *runtime) error {
				snap, err := rt.svc.ExportSnapshot(cmd.Context())
				if err != nil {
					return fmt.Errorf("export snapshot: %w", err)
				}
				var buf bytes.Buffer
				if err := app.WriteSnapshot(&buf, snap, f); err != nil {
					return err
				}
				if outPath == "-" {
					if _, err := c.stdout.Write(buf.Bytes()); err != nil {
						return fmt.Errorf("write snapshot to stdout: %w", err)
					}
					return nil
				}
				if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
					return fmt.Errorf("create export output dir: %w", err)
				}
				if err := os.WriteFile(outPath, buf.Bytes(), 0o644); err != nil {
					return fmt.Errorf("write export file: %w", err)
				}
				rt.logger.Info("snapshot exported", "path", outPath, "format", string(f), "tasks", len(snap.Tasks))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&outPath, "out", "-", "output file path ('-' for stdout)")
	cmd.Flags().StringVar(&format, "format", "", "json or yaml (default from extension, else json)")
	return cmd
}

func (c *cli) importCmd() *cobra.Command {
	var inPath, format string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Replace the board with a snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(inPath) == "" {
				return errors.New("--in is required")
			}
			f, err := snapshotFormat(format, inPath)
			if err != nil {
				return err
			}
			return c.withRuntime("import", func(rt *runtime) error {
				file, err := os.Open(inPath)
				if err != nil {
					return fmt.Errorf("read import file: %w", err)
				}
				defer func() { _ = file.Close() }()
				snap, err := app.ReadSnapshot(file, f)
				if err != nil {
					return err
				}
				if err := rt.svc.ImportSnapshot(cmd.Context(), snap); err != nil {
					return fmt.Errorf("import snapshot: %w", err)
				}
				rt.logger.Info("snapshot imported", "path", inPath, "format", string(f), "tasks", len(snap.Tasks))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&inPath, "in", "", "input snapshot file")
	cmd.Flags().StringVar(&format, "format", "", "json or yaml (default from extension, else json)")
	return cmd
}
