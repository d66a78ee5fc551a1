package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"weekplan/internal/domain"
)

// schemaVersion is bumped when migrations are added.
const schemaVersion = 1

// Init opens the SQLite database at baseDir/weekplan.db, creating the
// directory and running migrations. Tests pass t.TempDir().
func Init(baseDir string) (*sql.DB, error) {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	_ = os.Chmod(baseDir, 0700)

	dbPath := filepath.Join(baseDir, "weekplan.db")
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	_ = os.Chmod(dbPath, 0600)
	return db, nil
}

func migrate(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if version >= schemaVersion {
		return nil
	}

	const schema = `
CREATE TABLE IF NOT EXISTS fields (
	position INTEGER PRIMARY KEY,
	text     TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS tasks (
	position INTEGER PRIMARY KEY,
	id       TEXT NOT NULL,
	content  TEXT NOT NULL,
	priority INTEGER
);
CREATE TABLE IF NOT EXISTS schedule (
	day     TEXT NOT NULL,
	period  TEXT NOT NULL,
	slot    INTEGER NOT NULL,
	task_id TEXT NOT NULL,
	PRIMARY KEY (day, period, slot)
);
`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return fmt.Errorf("failed to set schema version: %w", err)
	}
	return nil
}

// Store persists the flat order-preserving representations of fields,
// tasks and schedule entries. Loads tolerate malformed rows, falling
// back to whatever parses; the core never sees bad data.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// SaveFields replaces the stored field list.
func (s *Store) SaveFields(ctx context.Context, fields []domain.CaptureField) error {
	return s.replaceAll(ctx, "DELETE FROM fields", func(tx *sql.Tx) error {
		for position, field := range fields {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO fields (position, text) VALUES (?, ?)", position, field.Text); err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadFields returns the stored field list in order.
func (s *Store) LoadFields(ctx context.Context) ([]domain.CaptureField, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT text FROM fields ORDER BY position")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fields []domain.CaptureField
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			continue
		}
		fields = append(fields, domain.CaptureField{Text: text})
	}
	return fields, rows.Err()
}

// SaveTasks replaces the stored task list.
func (s *Store) SaveTasks(ctx context.Context, tasks []domain.Task) error {
	return s.replaceAll(ctx, "DELETE FROM tasks", func(tx *sql.Tx) error {
		for position, task := range tasks {
			var priority any
			if task.Priority.Valid() {
				priority = int(task.Priority)
			}
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO tasks (position, id, content, priority) VALUES (?, ?, ?, ?)",
				position, task.ID, task.Content, priority); err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadTasks returns the stored task list in order. Rows without an id
// are skipped; an out-of-range priority loads as unprioritized.
func (s *Store) LoadTasks(ctx context.Context) ([]domain.Task, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, content, priority FROM tasks ORDER BY position")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []domain.Task
	for rows.Next() {
		var (
			id, content string
			priority    sql.NullInt64
		)
		if err := rows.Scan(&id, &content, &priority); err != nil {
			continue
		}
		if id == "" {
			continue
		}
		task := domain.Task{ID: id, Content: content}
		if priority.Valid && domain.Priority(priority.Int64).Valid() {
			task.Priority = domain.Priority(priority.Int64)
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// SaveEntries replaces the stored schedule.
func (s *Store) SaveEntries(ctx context.Context, entries []domain.ScheduleEntry) error {
	return s.replaceAll(ctx, "DELETE FROM schedule", func(tx *sql.Tx) error {
		for _, entry := range entries {
			if _, err := tx.ExecContext(ctx,
				"INSERT OR REPLACE INTO schedule (day, period, slot, task_id) VALUES (?, ?, ?, ?)",
				string(entry.Day), string(entry.Period), entry.Slot, entry.TaskID); err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadEntries returns the stored schedule. Rows with an invalid key or
// empty task id are skipped.
func (s *Store) LoadEntries(ctx context.Context) ([]domain.ScheduleEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT day, period, slot, task_id FROM schedule ORDER BY day, period, slot")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.ScheduleEntry
	for rows.Next() {
		var (
			day, period, taskID string
			slot                int
		)
		if err := rows.Scan(&day, &period, &slot, &taskID); err != nil {
			continue
		}
		entry := domain.ScheduleEntry{Day: domain.Day(day), Period: domain.Period(period), Slot: slot, TaskID: taskID}
		if !entry.Day.Valid() || !entry.Period.Valid() || slot < 1 || slot > domain.SlotsPerPeriod || taskID == "" {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (s *Store) replaceAll(ctx context.Context, clear string, insert func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, clear); err != nil {
		return err
	}
	if err := insert(tx); err != nil {
		return err
	}
	return tx.Commit()
}
