package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hylla/taskboard/internal/app"
	"github.com/hylla/taskboard/internal/domain"
	_ "modernc.org/sqlite"
)

// driverName defines a package constant value.
const driverName = "sqlite"

// Repository stores tasks, their blocker edges and tombstones in SQLite.
type Repository struct {
	db *sql.DB
}

var _ app.Repository = (*Repository)(nil)

// Open opens the requested operation.
func Open(path string) (*Repository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	db, err := sql.Open(driverName, "file:"+path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	repo := &Repository{db: db}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// OpenInMemory opens in memory.
func OpenInMemory() (*Repository, error) {
	db, err := sql.Open(driverName, "file::memory:?cache=shared&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite memory: %w", err)
	}
	db.SetMaxOpenConns(1)
	repo := &Repository{db: db}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// Close closes the requested operation.
func (r *Repository) Close() error {
	return r.db.Close()
}

// migrate handles migrate.
func (r *Repository) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS tasks (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			project TEXT NOT NULL DEFAULT '',
			priority TEXT NOT NULL,
			status TEXT NOT NULL,
			due_at TEXT,
			collaborators_json TEXT NOT NULL DEFAULT '[]',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS task_dependencies (
			task_id TEXT NOT NULL,
			blocker_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			PRIMARY KEY(task_id, blocker_id),
			FOREIGN KEY(task_id) REFERENCES tasks(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS tombstones (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL DEFAULT '',
			removed_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_task_dependencies_blocker ON task_dependencies(blocker_id);`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate sqlite: %w", err)
		}
	}
	return nil
}

// CreateTask creates task.
func (r *Repository) CreateTask(ctx context.Context, t domain.Task) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = writeTaskRow(ctx, tx, t, insertTaskSQL); err != nil {
		return err
	}
	err = tx.Commit()
	return err
}

// UpdateTask updates state for the requested operation.
func (r *Repository) UpdateTask(ctx context.Context, t domain.Task) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = updateTaskRow(ctx, tx, t); err != nil {
		return err
	}
	err = tx.Commit()
	return err
}

// GetTask returns task.
func (r *Repository) GetTask(ctx context.Context, id string) (domain.Task, error) {
	task, err := getTaskByID(ctx, r.db, id)
	if err != nil {
		return domain.Task{}, err
	}
	deps, err := r.loadDependencies(ctx, id)
	if err != nil {
		return domain.Task{}, err
	}
	task.Dependencies = deps[id]
	return task, nil
}

// ListTasks lists tasks in insertion order.
func (r *Repository) ListTasks(ctx context.Context) ([]domain.Task, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, description, project, priority, status, due_at, collaborators_json, created_at, updated_at
		FROM tasks
		ORDER BY rowid ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, task)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	deps, err := r.loadDependencies(ctx, "")
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Dependencies = deps[out[i].ID]
	}
	return out, nil
}

// RemoveTask deletes a task together with its tombstone or the pruned
// dependents in one transaction. Nothing is written when any step fails.
func (r *Repository) RemoveTask(ctx context.Context, removal app.TaskRemoval) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if removal.Tombstone != nil {
		if err = putTombstone(ctx, tx, *removal.Tombstone); err != nil {
			return err
		}
	}
	for _, dependent := range removal.Pruned {
		if err = updateTaskRow(ctx, tx, dependent); err != nil {
			return fmt.Errorf("prune %s: %w", dependent.ID, err)
		}
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM task_dependencies WHERE task_id = ?`, removal.TaskID); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, removal.TaskID)
	if err != nil {
		return err
	}
	if err = translateNoRows(res); err != nil {
		return err
	}

	err = tx.Commit()
	return err
}

// ImportTasks upserts tasks and tombstones in one transaction. Existing rows
// keep their list position.
func (r *Repository) ImportTasks(ctx context.Context, tasks []domain.Task, tombstones []domain.Tombstone) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, t := range tasks {
		if err = writeTaskRow(ctx, tx, t, upsertTaskSQL); err != nil {
			return fmt.Errorf("import task %s: %w", t.ID, err)
		}
	}
	for _, tomb := range tombstones {
		if err = putTombstone(ctx, tx, tomb); err != nil {
			return fmt.Errorf("import tombstone %s: %w", tomb.ID, err)
		}
	}

	err = tx.Commit()
	return err
}

// ListTombstones lists removal records ordered by id.
func (r *Repository) ListTombstones(ctx context.Context) ([]domain.Tombstone, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, title, removed_at FROM tombstones ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Tombstone{}
	for rows.Next() {
		var (
			tomb       domain.Tombstone
			removedRaw string
		)
		if err := rows.Scan(&tomb.ID, &tomb.Title, &removedRaw); err != nil {
			return nil, err
		}
		tomb.RemovedAt = parseTS(removedRaw)
		out = append(out, tomb)
	}
	return out, rows.Err()
}

// loadDependencies returns blocker ids per task in edge order. An empty
// taskID loads every edge.
func (r *Repository) loadDependencies(ctx context.Context, taskID string) (map[string][]string, error) {
	query := `SELECT task_id, blocker_id FROM task_dependencies`
	args := []any{}
	if taskID != "" {
		query += ` WHERE task_id = ?`
		args = append(args, taskID)
	}
	query += ` ORDER BY task_id ASC, position ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string][]string{}
	for rows.Next() {
		var id, blockerID string
		if err := rows.Scan(&id, &blockerID); err != nil {
			return nil, err
		}
		out[id] = append(out[id], blockerID)
	}
	return out, rows.Err()
}

// scanner represents scanner data used by this package.
type scanner interface {
	Scan(dest ...any) error
}

// queryRower represents a read-only DB contract used by DB and Tx implementations.
type queryRower interface {
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// execerContext represents a write-only DB contract used by DB and Tx implementations.
type execerContext interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
}

// getTaskByID returns a task row without its dependencies.
func getTaskByID(ctx context.Context, q queryRower, id string) (domain.Task, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, title, description, project, priority, status, due_at, collaborators_json, created_at, updated_at
		FROM tasks
		WHERE id = ?
	`, id)
	return scanTask(row)
}

const insertTaskSQL = `
	INSERT INTO tasks(id, title, description, project, priority, status, due_at, collaborators_json, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const upsertTaskSQL = insertTaskSQL + `
	ON CONFLICT(id) DO UPDATE SET
		title = excluded.title,
		description = excluded.description,
		project = excluded.project,
		priority = excluded.priority,
		status = excluded.status,
		due_at = excluded.due_at,
		collaborators_json = excluded.collaborators_json,
		created_at = excluded.created_at,
		updated_at = excluded.updated_at
`

// writeTaskRow inserts t with query and rewrites its blocker edges.
func writeTaskRow(ctx context.Context, execer execerContext, t domain.Task, query string) error {
	collaboratorsJSON, err := marshalList(t.Collaborators)
	if err != nil {
		return err
	}
	if _, err := execer.ExecContext(ctx, query,
		t.ID,
		t.Title,
		t.Description,
		t.Project,
		string(t.Priority),
		string(t.Status),
		nullableTS(t.DueAt),
		collaboratorsJSON,
		ts(t.CreatedAt),
		ts(t.UpdatedAt),
	); err != nil {
		return err
	}
	return replaceDependencies(ctx, execer, t.ID, t.Dependencies)
}

// updateTaskRow overwrites an existing task row and its blocker edges.
func updateTaskRow(ctx context.Context, execer execerContext, t domain.Task) error {
	collaboratorsJSON, err := marshalList(t.Collaborators)
	if err != nil {
		return err
	}
	res, err := execer.ExecContext(ctx, `
		UPDATE tasks
		SET title = ?, description = ?, project = ?, priority = ?, status = ?, due_at = ?, collaborators_json = ?, updated_at = ?
		WHERE id = ?
	`,
		t.Title,
		t.Description,
		t.Project,
		string(t.Priority),
		string(t.Status),
		nullableTS(t.DueAt),
		collaboratorsJSON,
		ts(t.UpdatedAt),
		t.ID,
	)
	if err != nil {
		return err
	}
	if err := translateNoRows(res); err != nil {
		return err
	}
	return replaceDependencies(ctx, execer, t.ID, t.Dependencies)
}

// putTombstone records or refreshes a removal record.
func putTombstone(ctx context.Context, execer execerContext, tomb domain.Tombstone) error {
	_, err := execer.ExecContext(ctx, `
		INSERT INTO tombstones(id, title, removed_at)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET title = excluded.title, removed_at = excluded.removed_at
	`, tomb.ID, tomb.Title, ts(tomb.RemovedAt))
	return err
}

// replaceDependencies rewrites the blocker edges of taskID.
func replaceDependencies(ctx context.Context, execer execerContext, taskID string, deps []string) error {
	if _, err := execer.ExecContext(ctx, `DELETE FROM task_dependencies WHERE task_id = ?`, taskID); err != nil {
		return err
	}
	for pos, blockerID := range deps {
		if _, err := execer.ExecContext(ctx, `
			INSERT INTO task_dependencies(task_id, blocker_id, position)
			VALUES (?, ?, ?)
		`, taskID, blockerID, pos); err != nil {
			return err
		}
	}
	return nil
}

// scanTask handles scan task.
func scanTask(s scanner) (domain.Task, error) {
	var (
		t                domain.Task
		dueRaw           sql.NullString
		collaboratorsRaw string
		createdRaw       string
		updatedRaw       string
		priority         string
		status           string
	)
	if err := s.Scan(
		&t.ID,
		&t.Title,
		&t.Description,
		&t.Project,
		&priority,
		&status,
		&dueRaw,
		&collaboratorsRaw,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Task{}, app.ErrNotFound
		}
		return domain.Task{}, err
	}
	t.Priority = domain.Priority(priority)
	t.Status = domain.Status(status)
	t.DueAt = parseNullTS(dueRaw)
	t.CreatedAt = parseTS(createdRaw)
	t.UpdatedAt = parseTS(updatedRaw)
	if strings.TrimSpace(collaboratorsRaw) == "" {
		collaboratorsRaw = "[]"
	}
	if err := json.Unmarshal([]byte(collaboratorsRaw), &t.Collaborators); err != nil {
		return domain.Task{}, fmt.Errorf("decode collaborators_json: %w", err)
	}
	return t, nil
}

// marshalList encodes a string list, storing nil as an empty array.
func marshalList(in []string) (string, error) {
	if in == nil {
		in = []string{}
	}
	raw, err := json.Marshal(in)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// translateNoRows handles translate no rows.
func translateNoRows(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return app.ErrNotFound
	}
	return nil
}

// ts handles ts.
func ts(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// nullableTS handles nullable ts.
func nullableTS(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTS parses input into a normalized form.
func parseTS(v string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return ts.UTC()
}

// parseNullTS parses input into a normalized form.
func parseNullTS(v sql.NullString) *time.Time {
	if !v.Valid || strings.TrimSpace(v.String) == "" {
		return nil
	}
	ts := parseTS(v.String)
	return &ts
}
