package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bonsaikeeper/internal/model"
)

// ErrAlreadyInGraveyard is returned when moving a tree that already has a
// graveyard entry.
var ErrAlreadyInGraveyard = errors.New("storage: tree is already in the graveyard")

// ErrNotInGraveyard is returned when restoring a tree that has no graveyard
// entry.
var ErrNotInGraveyard = errors.New("storage: tree is not in the graveyard")

const treeSelect = `SELECT t.id, t.name, t.species_id, t.acquisition_date, t.origin_date, t.location, t.notes,
		t.development_stage, t.status, t.created_at, t.updated_at,
		g.id, g.category, g.note, g.moved_at
	FROM trees t LEFT JOIN graveyard_entries g ON g.tree_id = t.id`

// Trees

func (s *Storage) CreateTree(ctx context.Context, t *model.Tree) error {
	now := s.now()
	if t.Status == "" {
		t.Status = model.TreeActive
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO trees (name, species_id, acquisition_date, origin_date, location, notes, development_stage, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.Name, t.SpeciesID, t.AcquisitionDate, t.OriginDate, t.Location, t.Notes, t.DevelopmentStage, t.Status, now, now)
	if err != nil {
		return fmt.Errorf("insert tree: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert tree: %w", err)
	}
	t.ID = id
	t.CreatedAt = now
	t.UpdatedAt = now
	return nil
}

func (s *Storage) GetTree(ctx context.Context, id int64) (*model.Tree, error) {
	row := s.db.QueryRowContext(ctx, treeSelect+` WHERE t.id = ?`, id)
	t, err := scanTree(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get tree %d: %w", id, err)
	}
	return t, nil
}

// ListTrees returns trees newest first. An empty status lists all of them.
func (s *Storage) ListTrees(ctx context.Context, status string) ([]*model.Tree, error) {
	rows, err := s.db.QueryContext(ctx,
		treeSelect+` WHERE ? = '' OR t.status = ? ORDER BY t.created_at DESC, t.id DESC`, status, status)
	if err != nil {
		return nil, fmt.Errorf("list trees: %w", err)
	}
	defer rows.Close()

	out := []*model.Tree{}
	for rows.Next() {
		t, err := scanTree(rows)
		if err != nil {
			return nil, fmt.Errorf("list trees: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// UpdateTree saves the editable fields. Status only changes through
// MoveToGraveyard and RestoreTree.
func (s *Storage) UpdateTree(ctx context.Context, t *model.Tree) error {
	now := s.now()
	res, err := s.db.ExecContext(ctx,
		`UPDATE trees SET name = ?, species_id = ?, acquisition_date = ?, origin_date = ?, location = ?, notes = ?,
			development_stage = ?, updated_at = ?
		 WHERE id = ?`,
		t.Name, t.SpeciesID, t.AcquisitionDate, t.OriginDate, t.Location, t.Notes, t.DevelopmentStage, now, t.ID)
	if err != nil {
		return fmt.Errorf("update tree %d: %w", t.ID, err)
	}
	if err := expectOneRow(res); err != nil {
		return err
	}
	t.UpdatedAt = now
	return nil
}

// DeleteTree removes a tree with its journal and graveyard entry. Linked
// reminders keep their last tree name.
func (s *Storage) DeleteTree(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete tree %d: %w", id, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE reminders SET tree_name = (SELECT name FROM trees WHERE id = ?) WHERE tree_id = ?`, id, id); err != nil {
		return fmt.Errorf("delete tree %d: %w", id, err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM trees WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete tree %d: %w", id, err)
	}
	if err := expectOneRow(res); err != nil {
		return err
	}
	return tx.Commit()
}

// Graveyard

// MoveToGraveyard retires a tree and returns the new entry.
func (s *Storage) MoveToGraveyard(ctx context.Context, treeID int64, category, note string) (*model.GraveyardEntry, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("graveyard tree %d: %w", treeID, err)
	}
	defer tx.Rollback()

	var (
		name  string
		entry sql.NullInt64
	)
	err = tx.QueryRowContext(ctx,
		`SELECT t.name, g.id FROM trees t LEFT JOIN graveyard_entries g ON g.tree_id = t.id WHERE t.id = ?`,
		treeID).Scan(&name, &entry)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("graveyard tree %d: %w", treeID, err)
	}
	if entry.Valid {
		return nil, ErrAlreadyInGraveyard
	}

	now := s.now()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO graveyard_entries (tree_id, category, note, moved_at) VALUES (?, ?, ?, ?)`,
		treeID, category, note, now)
	if err != nil {
		return nil, fmt.Errorf("graveyard tree %d: %w", treeID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("graveyard tree %d: %w", treeID, err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE trees SET status = ?, updated_at = ? WHERE id = ?`, model.TreeGraveyard, now, treeID); err != nil {
		return nil, fmt.Errorf("graveyard tree %d: %w", treeID, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("graveyard tree %d: %w", treeID, err)
	}

	return &model.GraveyardEntry{
		ID:       id,
		TreeID:   treeID,
		TreeName: name,
		Category: category,
		Note:     note,
		MovedAt:  now,
	}, nil
}

// RestoreTree drops the graveyard entry and makes the tree active again.
func (s *Storage) RestoreTree(ctx context.Context, treeID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("restore tree %d: %w", treeID, err)
	}
	defer tx.Rollback()

	var exists bool
	if err := tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM trees WHERE id = ?)`, treeID).Scan(&exists); err != nil {
		return fmt.Errorf("restore tree %d: %w", treeID, err)
	}
	if !exists {
		return ErrNotFound
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM graveyard_entries WHERE tree_id = ?`, treeID)
	if err != nil {
		return fmt.Errorf("restore tree %d: %w", treeID, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("restore tree %d: %w", treeID, err)
	} else if n == 0 {
		return ErrNotInGraveyard
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE trees SET status = ?, updated_at = ? WHERE id = ?`, model.TreeActive, s.now(), treeID); err != nil {
		return fmt.Errorf("restore tree %d: %w", treeID, err)
	}
	return tx.Commit()
}

// ListGraveyard returns graveyard entries, most recently moved first.
func (s *Storage) ListGraveyard(ctx context.Context) ([]*model.GraveyardEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT g.id, g.tree_id, t.name, g.category, g.note, g.moved_at
		 FROM graveyard_entries g JOIN trees t ON t.id = g.tree_id
		 ORDER BY g.moved_at DESC, g.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list graveyard: %w", err)
	}
	defer rows.Close()

	out := []*model.GraveyardEntry{}
	for rows.Next() {
		var e model.GraveyardEntry
		if err := rows.Scan(&e.ID, &e.TreeID, &e.TreeName, &e.Category, &e.Note, &e.MovedAt); err != nil {
			return nil, fmt.Errorf("list graveyard: %w", err)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

// Tree updates

func (s *Storage) CreateTreeUpdate(ctx context.Context, u *model.TreeUpdate) error {
	now := s.now()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO tree_updates (tree_id, title, description, performed_on, trunk_diameter_cm, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		u.TreeID, u.Title, u.Description, u.PerformedOn, u.TrunkDiameterCM, now)
	if err != nil {
		return fmt.Errorf("insert tree update: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert tree update: %w", err)
	}
	u.ID = id
	u.CreatedAt = now
	return nil
}

// ListTreeUpdates returns a tree's journal, latest work first.
func (s *Storage) ListTreeUpdates(ctx context.Context, treeID int64) ([]*model.TreeUpdate, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, tree_id, title, description, performed_on, trunk_diameter_cm, created_at
		 FROM tree_updates WHERE tree_id = ? ORDER BY performed_on DESC, id DESC`, treeID)
	if err != nil {
		return nil, fmt.Errorf("list tree updates: %w", err)
	}
	defer rows.Close()

	out := []*model.TreeUpdate{}
	for rows.Next() {
		var (
			u     model.TreeUpdate
			trunk sql.NullFloat64
		)
		if err := rows.Scan(&u.ID, &u.TreeID, &u.Title, &u.Description, &u.PerformedOn, &trunk, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("list tree updates: %w", err)
		}
		if trunk.Valid {
			v := trunk.Float64
			u.TrunkDiameterCM = &v
		}
		out = append(out, &u)
	}
	return out, rows.Err()
}

func (s *Storage) DeleteTreeUpdate(ctx context.Context, treeID, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tree_updates WHERE id = ? AND tree_id = ?`, id, treeID)
	if err != nil {
		return fmt.Errorf("delete tree update %d: %w", id, err)
	}
	return expectOneRow(res)
}

func scanTree(row scanner) (*model.Tree, error) {
	var (
		t         model.Tree
		speciesID sql.NullInt64
		graveID   sql.NullInt64
		category  sql.NullString
		note      sql.NullString
		movedAt   sql.NullTime
	)
	if err := row.Scan(&t.ID, &t.Name, &speciesID, &t.AcquisitionDate, &t.OriginDate, &t.Location, &t.Notes,
		&t.DevelopmentStage, &t.Status, &t.CreatedAt, &t.UpdatedAt,
		&graveID, &category, &note, &movedAt); err != nil {
		return nil, err
	}
	if speciesID.Valid {
		id := speciesID.Int64
		t.SpeciesID = &id
	}
	if graveID.Valid {
		t.Graveyard = &model.GraveyardEntry{
			ID:       graveID.Int64,
			TreeID:   t.ID,
			TreeName: t.Name,
			Category: category.String,
			Note:     note.String,
			MovedAt:  movedAt.Time,
		}
	}
	return &t, nil
}
