package task

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS tasks (
	id              TEXT PRIMARY KEY,
	function        TEXT NOT NULL DEFAULT '{}',
	status          TEXT NOT NULL,
	priority        INTEGER NOT NULL DEFAULT 1,
	dependencies    TEXT NOT NULL DEFAULT '[]',
	allowed_workers TEXT NOT NULL DEFAULT '[]',
	assignment      TEXT,
	progress        TEXT,
	output          TEXT,
	error           TEXT NOT NULL DEFAULT '',
	scheduled_for   DATETIME,
	tags            TEXT NOT NULL DEFAULT '[]',
	project_id      TEXT NOT NULL DEFAULT '',
	parent_id       TEXT NOT NULL DEFAULT '',
	metadata        TEXT NOT NULL DEFAULT '{}',
	created_at      DATETIME NOT NULL,
	events          TEXT NOT NULL DEFAULT '[]'
);
`

// SQLiteStore persists tasks in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and
// ensures the tasks table exists. The caller is responsible for calling
// Close.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	db.SetMaxOpenConns(1) // prevent SQLITE_BUSY
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying database connection.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// Put inserts the task or replaces an existing row with the same ID.
// The upsert keeps the original rowid so List preserves insertion order
// across updates.
func (s *SQLiteStore) Put(t *Task) error {
	function, _ := json.Marshal(t.Function)
	dependencies, _ := json.Marshal(t.Dependencies)
	allowedWorkers, _ := json.Marshal(t.AllowedWorkers)
	tags, _ := json.Marshal(t.Tags)
	metadata, _ := json.Marshal(t.Metadata)
	events, _ := json.Marshal(t.Events)

	_, err := s.db.Exec(`
		INSERT INTO tasks
			(id, function, status, priority, dependencies, allowed_workers,
			 assignment, progress, output, error, scheduled_for, tags,
			 project_id, parent_id, metadata, created_at, events)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET
			function=excluded.function, status=excluded.status,
			priority=excluded.priority, dependencies=excluded.dependencies,
			allowed_workers=excluded.allowed_workers,
			assignment=excluded.assignment, progress=excluded.progress,
			output=excluded.output, error=excluded.error,
			scheduled_for=excluded.scheduled_for, tags=excluded.tags,
			project_id=excluded.project_id, parent_id=excluded.parent_id,
			metadata=excluded.metadata, created_at=excluded.created_at,
			events=excluded.events`,
		t.ID, string(function), string(t.Status), int(t.Priority),
		string(dependencies), string(allowedWorkers),
		nullJSON(t.Assignment), nullJSON(t.Progress), nullJSON(t.Output),
		t.Error, nullTime(t.ScheduledFor),
		string(tags), t.ProjectID, t.ParentID, string(metadata),
		t.CreatedAt, string(events),
	)
	if err != nil {
		return fmt.Errorf("put task %s: %w", t.ID, err)
	}
	return nil
}

// Get retrieves a task by ID.
func (s *SQLiteStore) Get(id string) (*Task, error) {
	row := s.db.QueryRow(`SELECT * FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return t, err
}

// Delete removes a task by ID.
func (s *SQLiteStore) Delete(id string) error {
	res, err := s.db.Exec("DELETE FROM tasks WHERE id=?", id)
	if err != nil {
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns all tasks in insertion order.
func (s *SQLiteStore) List() ([]*Task, error) {
	rows, err := s.db.Query(`SELECT * FROM tasks ORDER BY rowid ASC`)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// scanner abstracts sql.Row and sql.Rows for scanTask.
type scanner interface {
	Scan(dest ...any) error
}

func scanTask(s scanner) (*Task, error) {
	var t Task
	var status, functionJSON, depsJSON, workersJSON, tagsJSON, metadataJSON, eventsJSON string
	var assignmentJSON, progressJSON, outputJSON sql.NullString
	var priority int
	var scheduledFor sql.NullTime

	err := s.Scan(
		&t.ID, &functionJSON, &status, &priority,
		&depsJSON, &workersJSON,
		&assignmentJSON, &progressJSON, &outputJSON,
		&t.Error, &scheduledFor,
		&tagsJSON, &t.ProjectID, &t.ParentID, &metadataJSON,
		&t.CreatedAt, &eventsJSON,
	)
	if err != nil {
		return nil, err
	}

	t.Status = Status(status)
	t.Priority = Priority(priority)

	_ = json.Unmarshal([]byte(functionJSON), &t.Function)
	_ = json.Unmarshal([]byte(depsJSON), &t.Dependencies)
	_ = json.Unmarshal([]byte(workersJSON), &t.AllowedWorkers)
	_ = json.Unmarshal([]byte(tagsJSON), &t.Tags)
	_ = json.Unmarshal([]byte(metadataJSON), &t.Metadata)
	_ = json.Unmarshal([]byte(eventsJSON), &t.Events)

	if assignmentJSON.Valid {
		var a Assignment
		if json.Unmarshal([]byte(assignmentJSON.String), &a) == nil {
			t.Assignment = &a
		}
	}
	if progressJSON.Valid {
		var p Progress
		if json.Unmarshal([]byte(progressJSON.String), &p) == nil {
			t.Progress = &p
		}
	}
	if outputJSON.Valid {
		var o Output
		if json.Unmarshal([]byte(outputJSON.String), &o) == nil {
			t.Output = &o
		}
	}
	if scheduledFor.Valid {
		t.ScheduledFor = &scheduledFor.Time
	}
	return &t, nil
}

func nullJSON(v any) any {
	switch x := v.(type) {
	case *Assignment:
		if x == nil {
			return nil
		}
	case *Progress:
		if x == nil {
			return nil
		}
	case *Output:
		if x == nil {
			return nil
		}
	}
	b, _ := json.Marshal(v)
	return string(b)
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
