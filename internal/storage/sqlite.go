package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"bonsaikeeper/internal/model"
)

// ErrNotFound is returned when a row with the requested ID does not exist.
var ErrNotFound = errors.New("storage: not found")

type Storage struct {
	db  *sql.DB
	now func() time.Time
}

func New(dbPath string) (*Storage, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	s := &Storage{db: db, now: func() time.Time { return time.Now().UTC() }}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS species (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			common_name TEXT NOT NULL,
			scientific_name TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			care_instructions TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS trees (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			species_id INTEGER REFERENCES species(id) ON DELETE SET NULL,
			acquisition_date TEXT,
			origin_date TEXT,
			location TEXT NOT NULL DEFAULT '',
			notes TEXT NOT NULL DEFAULT '',
			development_stage TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'active',
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS graveyard_entries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			tree_id INTEGER NOT NULL UNIQUE REFERENCES trees(id) ON DELETE CASCADE,
			category TEXT NOT NULL DEFAULT 'dead',
			note TEXT NOT NULL DEFAULT '',
			moved_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS tree_updates (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			tree_id INTEGER NOT NULL REFERENCES trees(id) ON DELETE CASCADE,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			performed_on TEXT NOT NULL,
			trunk_diameter_cm REAL,
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS reminders (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			tree_id INTEGER REFERENCES trees(id) ON DELETE SET NULL,
			tree_name TEXT NOT NULL DEFAULT '',
			title TEXT NOT NULL,
			message TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT '',
			due_date TEXT,
			rrule TEXT NOT NULL DEFAULT '',
			read INTEGER NOT NULL DEFAULT 0,
			notified_at DATETIME,
			created_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_reminders_due_date ON reminders(due_date)`,
		`CREATE INDEX IF NOT EXISTS idx_species_common_name ON species(common_name)`,
		`CREATE INDEX IF NOT EXISTS idx_trees_species_id ON trees(species_id)`,
		`CREATE INDEX IF NOT EXISTS idx_tree_updates_tree_id ON tree_updates(tree_id)`,
		`CREATE INDEX IF NOT EXISTS idx_reminders_tree_id ON reminders(tree_id)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return err
		}
	}
	return nil
}

// Species

func (s *Storage) CreateSpecies(ctx context.Context, sp *model.Species) error {
	now := s.now()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO species (common_name, scientific_name, description, care_instructions, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sp.CommonName, sp.ScientificName, sp.Description, sp.CareInstructions, now, now)
	if err != nil {
		return fmt.Errorf("insert species: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert species: %w", err)
	}
	sp.ID = id
	sp.CreatedAt = now
	sp.UpdatedAt = now
	return nil
}

func (s *Storage) GetSpecies(ctx context.Context, id int64) (*model.Species, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, common_name, scientific_name, description, care_instructions, created_at, updated_at
		 FROM species WHERE id = ?`, id)
	sp, err := scanSpecies(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get species %d: %w", id, err)
	}
	return sp, nil
}

func (s *Storage) ListSpecies(ctx context.Context) ([]*model.Species, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, common_name, scientific_name, description, care_instructions, created_at, updated_at
		 FROM species ORDER BY common_name COLLATE NOCASE, id`)
	if err != nil {
		return nil, fmt.Errorf("list species: %w", err)
	}
	defer rows.Close()

	out := []*model.Species{}
	for rows.Next() {
		sp, err := scanSpecies(rows)
		if err != nil {
			return nil, fmt.Errorf("list species: %w", err)
		}
		out = append(out, sp)
	}
	return out, rows.Err()
}

func (s *Storage) UpdateSpecies(ctx context.Context, sp *model.Species) error {
	now := s.now()
	res, err := s.db.ExecContext(ctx,
		`UPDATE species SET common_name = ?, scientific_name = ?, description = ?, care_instructions = ?, updated_at = ?
		 WHERE id = ?`,
		sp.CommonName, sp.ScientificName, sp.Description, sp.CareInstructions, now, sp.ID)
	if err != nil {
		return fmt.Errorf("update species %d: %w", sp.ID, err)
	}
	if err := expectOneRow(res); err != nil {
		return err
	}
	sp.UpdatedAt = now
	return nil
}

func (s *Storage) DeleteSpecies(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM species WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete species %d: %w", id, err)
	}
	return expectOneRow(res)
}

// Reminders

// reminderSelect reads the linked tree's current name over the stored one.
const reminderSelect = `SELECT r.id, r.tree_id, COALESCE(t.name, r.tree_name), r.title, r.message, r.category,
		r.due_date, r.rrule, r.read, r.notified_at, r.created_at
	FROM reminders r LEFT JOIN trees t ON t.id = r.tree_id`

func (s *Storage) CreateReminder(ctx context.Context, r *model.Reminder) error {
	now := s.now()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO reminders (tree_id, tree_name, title, message, category, due_date, rrule, read, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.TreeID, r.TreeName, r.Title, r.Message, r.Category, r.DueDate, r.RRule, r.Read, now)
	if err != nil {
		return fmt.Errorf("insert reminder: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert reminder: %w", err)
	}
	r.ID = id
	r.CreatedAt = now
	return nil
}

func (s *Storage) GetReminder(ctx context.Context, id int64) (*model.Reminder, error) {
	row := s.db.QueryRowContext(ctx, reminderSelect+` WHERE r.id = ?`, id)
	r, err := scanReminder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get reminder %d: %w", id, err)
	}
	return r, nil
}

// ListReminders returns reminders ordered by due date; undated ones last.
func (s *Storage) ListReminders(ctx context.Context) ([]*model.Reminder, error) {
	rows, err := s.db.QueryContext(ctx, reminderSelect+` ORDER BY r.due_date IS NULL, r.due_date, r.id`)
	if err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}
	defer rows.Close()

	out := []*model.Reminder{}
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, fmt.Errorf("list reminders: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Storage) UpdateReminder(ctx context.Context, r *model.Reminder) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE reminders SET tree_id = ?, tree_name = ?, title = ?, message = ?, category = ?, due_date = ?, rrule = ?, read = ?
		 WHERE id = ?`,
		r.TreeID, r.TreeName, r.Title, r.Message, r.Category, r.DueDate, r.RRule, r.Read, r.ID)
	if err != nil {
		return fmt.Errorf("update reminder %d: %w", r.ID, err)
	}
	return expectOneRow(res)
}

// MarkNotified records when the scheduler last announced a reminder.
func (s *Storage) MarkNotified(ctx context.Context, id int64, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `UPDATE reminders SET notified_at = ? WHERE id = ?`, at.UTC(), id)
	if err != nil {
		return fmt.Errorf("mark reminder %d notified: %w", id, err)
	}
	return expectOneRow(res)
}

func (s *Storage) DeleteReminder(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM reminders WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete reminder %d: %w", id, err)
	}
	return expectOneRow(res)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSpecies(row scanner) (*model.Species, error) {
	var sp model.Species
	if err := row.Scan(&sp.ID, &sp.CommonName, &sp.ScientificName, &sp.Description,
		&sp.CareInstructions, &sp.CreatedAt, &sp.UpdatedAt); err != nil {
		return nil, err
	}
	return &sp, nil
}

func scanReminder(row scanner) (*model.Reminder, error) {
	var (
		r        model.Reminder
		treeID   sql.NullInt64
		notified sql.NullTime
	)
	if err := row.Scan(&r.ID, &treeID, &r.TreeName, &r.Title, &r.Message, &r.Category,
		&r.DueDate, &r.RRule, &r.Read, &notified, &r.CreatedAt); err != nil {
		return nil, err
	}
	if treeID.Valid {
		id := treeID.Int64
		r.TreeID = &id
	}
	if notified.Valid {
		t := notified.Time
		r.NotifiedAt = &t
	}
	return &r, nil
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
