package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ErrInvalidBackup is returned by Restore when the upload is not a
// bonsaikeeper database.
var ErrInvalidBackup = errors.New("storage: not a bonsaikeeper backup")

// backupTables lists every collection table in insert order; deletes run in
// reverse so foreign keys hold throughout.
var backupTables = []struct {
	name    string
	columns string
}{
	{"species", "id, common_name, scientific_name, description, care_instructions, created_at, updated_at"},
	{"trees", "id, name, species_id, acquisition_date, origin_date, location, notes, development_stage, status, created_at, updated_at"},
	{"graveyard_entries", "id, tree_id, category, note, moved_at"},
	{"tree_updates", "id, tree_id, title, description, performed_on, trunk_diameter_cm, created_at"},
	{"reminders", "id, tree_id, tree_name, title, message, category, due_date, rrule, read, notified_at, created_at"},
}

// Snapshot writes a consistent copy of the database to w.
func (s *Storage) Snapshot(ctx context.Context, w io.Writer) (int64, error) {
	dir, err := os.MkdirTemp("", "bonsaikeeper-snapshot-")
	if err != nil {
		return 0, fmt.Errorf("snapshot: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "backup.sqlite")
	if _, err := s.db.ExecContext(ctx, `VACUUM INTO ?`, path); err != nil {
		return 0, fmt.Errorf("snapshot: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("snapshot: %w", err)
	}
	defer f.Close()

	n, err := io.Copy(w, f)
	if err != nil {
		return n, fmt.Errorf("snapshot: %w", err)
	}
	return n, nil
}

// Restore replaces every collection table with the contents of the SQLite
// backup read from r. Nothing changes unless the whole copy succeeds. It
// returns the number of rows restored per table.
func (s *Storage) Restore(ctx context.Context, r io.Reader) (map[string]int64, error) {
	dir, err := os.MkdirTemp("", "bonsaikeeper-restore-")
	if err != nil {
		return nil, fmt.Errorf("restore: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "upload.sqlite")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("restore: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return nil, fmt.Errorf("restore: read upload: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("restore: %w", err)
	}

	// ATTACH is per connection, so pin one for the whole restore.
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("restore: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, `ATTACH DATABASE ? AS backup`, path); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}
	defer conn.ExecContext(context.Background(), `DETACH DATABASE backup`)

	for _, t := range backupTables {
		var n int
		err := conn.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM backup.sqlite_master WHERE type = 'table' AND name = ?`, t.name).Scan(&n)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidBackup, err)
		}
		if n == 0 {
			return nil, fmt.Errorf("%w: missing table %s", ErrInvalidBackup, t.name)
		}
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("restore: %w", err)
	}
	defer tx.Rollback()

	for i := len(backupTables) - 1; i >= 0; i-- {
		if _, err := tx.ExecContext(ctx, `DELETE FROM main.`+backupTables[i].name); err != nil {
			return nil, fmt.Errorf("restore: clear %s: %w", backupTables[i].name, err)
		}
	}

	counts := make(map[string]int64, len(backupTables))
	for _, t := range backupTables {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO main.`+t.name+` (`+t.columns+`) SELECT `+t.columns+` FROM backup.`+t.name)
		if err != nil {
			return nil, fmt.Errorf("%w: copy %s: %v", ErrInvalidBackup, t.name, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("restore: %w", err)
		}
		counts[t.name] = n
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("restore: %w", err)
	}
	return counts, nil
}
