package repositoryimpl

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/deskhub/tasksync/internal/task"
	"github.com/deskhub/tasksync/internal/user"
	"github.com/deskhub/tasksync/pkg/cerr"
)

// SQLiteRepository stores tasks in an embedded SQLite database. It is the
// backend of choice for single-host deployments where the YAML-per-task
// layout gets slow.
type SQLiteRepository struct {
	db *sqlx.DB
}

type migration struct {
	version int
	sql     string
}

var migrations = []migration{
	{
		version: 1,
		sql: `
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		);
		CREATE TABLE IF NOT EXISTS tasks (
			id           TEXT PRIMARY KEY,
			task_number  INTEGER NOT NULL UNIQUE,
			title        TEXT NOT NULL,
			description  TEXT NOT NULL DEFAULT '',
			assignee     TEXT,
			status       TEXT NOT NULL,
			priority     TEXT NOT NULL,
			network_type TEXT NOT NULL,
			due_date     TIMESTAMP,
			is_archived  INTEGER NOT NULL DEFAULT 0,
			created_at   TIMESTAMP NOT NULL,
			updated_at   TIMESTAMP NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_tasks_archived_number
			ON tasks (is_archived, task_number DESC);
		INSERT INTO schema_version (version) VALUES (1);
		`,
	},
}

// NewSQLiteRepository opens (or creates) the database at dbPath, enables WAL
// mode and applies pending migrations.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	r := &SQLiteRepository{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func (r *SQLiteRepository) migrate() error {
	currentVersion := 0

	var tableCount int
	err := r.db.Get(&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'")
	if err != nil {
		return fmt.Errorf("failed to check schema_version table: %w", err)
	}
	if tableCount > 0 {
		if err := r.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version"); err != nil {
			return fmt.Errorf("failed to read schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := r.db.Exec(m.sql); err != nil {
			return fmt.Errorf("failed to apply migration v%d: %w", m.version, err)
		}
	}
	return nil
}

type taskRow struct {
	ID          string         `db:"id"`
	TaskNumber  int            `db:"task_number"`
	Title       string         `db:"title"`
	Description string         `db:"description"`
	Assignee    sql.NullString `db:"assignee"`
	Status      string         `db:"status"`
	Priority    string         `db:"priority"`
	NetworkType string         `db:"network_type"`
	DueDate     sql.NullTime   `db:"due_date"`
	IsArchived  bool           `db:"is_archived"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

func toRow(t *task.Task) (*taskRow, error) {
	row := &taskRow{
		ID:          t.ID,
		TaskNumber:  t.TaskNumber,
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		Priority:    string(t.Priority),
		NetworkType: string(t.NetworkType),
		IsArchived:  t.IsArchived,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
	if t.Assignee != nil {
		data, err := json.Marshal(t.Assignee)
		if err != nil {
			return nil, cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to marshal assignee: %w", err))
		}
		row.Assignee = sql.NullString{String: string(data), Valid: true}
	}
	if t.DueDate != nil {
		row.DueDate = sql.NullTime{Time: *t.DueDate, Valid: true}
	}
	return row, nil
}

func (row *taskRow) toTask() (*task.Task, error) {
	t := &task.Task{
		ID:          row.ID,
		TaskNumber:  row.TaskNumber,
		Title:       row.Title,
		Description: row.Description,
		Status:      task.Status(row.Status),
		Priority:    task.Priority(row.Priority),
		NetworkType: task.NetworkType(row.NetworkType),
		IsArchived:  row.IsArchived,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
	if row.Assignee.Valid {
		var u user.User
		if err := json.Unmarshal([]byte(row.Assignee.String), &u); err != nil {
			return nil, cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to unmarshal assignee: %w", err))
		}
		t.Assignee = &u
	}
	if row.DueDate.Valid {
		d := row.DueDate.Time
		t.DueDate = &d
	}
	return t, nil
}

func (r *SQLiteRepository) Create(ctx context.Context, t *task.Task) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer tx.Rollback()

	// Task numbers are assigned inside the insert transaction so concurrent
	// creates cannot collide.
	var next int
	if err := tx.GetContext(ctx, &next, "SELECT COALESCE(MAX(task_number), 0) + 1 FROM tasks"); err != nil {
		return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to allocate task number: %w", err))
	}
	t.TaskNumber = next

	row, err := toRow(t)
	if err != nil {
		return err
	}
	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO tasks (
			id, task_number, title, description, assignee,
			status, priority, network_type, due_date, is_archived,
			created_at, updated_at
		) VALUES (
			:id, :task_number, :title, :description, :assignee,
			:status, :priority, :network_type, :due_date, :is_archived,
			:created_at, :updated_at
		)`, row)
	if err != nil {
		return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to insert task: %w", err))
	}
	if err := tx.Commit(); err != nil {
		return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to commit task insert: %w", err))
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (*task.Task, error) {
	var row taskRow
	err := r.db.GetContext(ctx, &row, "SELECT * FROM tasks WHERE id = ?", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, cerr.NewError(cerr.NotFound, "task not found", err)
		}
		return nil, cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to query task: %w", err))
	}
	return row.toTask()
}

func (r *SQLiteRepository) List(ctx context.Context, showArchived bool) ([]*task.Task, error) {
	var rows []taskRow
	err := r.db.SelectContext(ctx, &rows,
		"SELECT * FROM tasks WHERE is_archived = ? ORDER BY task_number DESC", showArchived)
	if err != nil {
		return nil, cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to list tasks: %w", err))
	}
	tasks := make([]*task.Task, 0, len(rows))
	for i := range rows {
		t, err := rows[i].toTask()
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

func (r *SQLiteRepository) Update(ctx context.Context, t *task.Task) error {
	row, err := toRow(t)
	if err != nil {
		return err
	}
	res, err := r.db.NamedExecContext(ctx, `
		UPDATE tasks SET
			title = :title, description = :description, assignee = :assignee,
			status = :status, priority = :priority, network_type = :network_type,
			due_date = :due_date, is_archived = :is_archived, updated_at = :updated_at
		WHERE id = :id`, row)
	if err != nil {
		return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to update task: %w", err))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to read affected rows: %w", err))
	}
	if affected == 0 {
		return cerr.NewError(cerr.NotFound, "task not found", nil)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", id)
	if err != nil {
		return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to delete task: %w", err))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to read affected rows: %w", err))
	}
	if affected == 0 {
		return cerr.NewError(cerr.NotFound, "task not found", nil)
	}
	return nil
}
