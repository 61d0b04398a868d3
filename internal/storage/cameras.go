package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"herdwatch/internal/types"
)

// Cameras lists non-deleted cameras, optionally filtered by state.
func (s *Store) Cameras(ctx context.Context, state *types.CameraState) ([]types.Camera, error) {
	q := `SELECT id, address, state, deleted FROM cameras WHERE deleted = 0`
	args := []any{}
	if state != nil {
		q += ` AND state = ?`
		args = append(args, int(*state))
	}
	q += ` ORDER BY address`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.Camera
	for rows.Next() {
		c, err := scanCamera(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ActiveCameras is the watcher roster: every camera in the active
// state, each exactly once.
func (s *Store) ActiveCameras(ctx context.Context) ([]types.Camera, error) {
	active := types.CameraActive
	return s.Cameras(ctx, &active)
}

func (s *Store) FindCamera(ctx context.Context, id uuid.UUID) (types.Camera, error) {
	return s.findCamera(ctx, id, false)
}

func (s *Store) findCamera(ctx context.Context, id uuid.UUID, includeDeleted bool) (types.Camera, error) {
	q := `SELECT id, address, state, deleted FROM cameras WHERE id = ?`
	if !includeDeleted {
		q += ` AND deleted = 0`
	}
	row := s.db.QueryRowContext(ctx, q, id.String())
	c, err := scanCamera(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Camera{}, fmt.Errorf("camera %s: %w", id, ErrNotFound)
	}
	return c, err
}

func (s *Store) FindCameraByAddress(ctx context.Context, address string, includeDeleted bool) (types.Camera, error) {
	q := `SELECT id, address, state, deleted FROM cameras WHERE address = ?`
	if !includeDeleted {
		q += ` AND deleted = 0`
	}
	row := s.db.QueryRowContext(ctx, q, address)
	c, err := scanCamera(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Camera{}, fmt.Errorf("camera %q: %w", address, ErrNotFound)
	}
	return c, err
}

// AddCamera registers a camera by address. An existing live camera
// with the same address is returned unchanged; a soft-deleted one is
// revived with the given state instead of creating a duplicate row.
func (s *Store) AddCamera(ctx context.Context, address string, state types.CameraState) (types.Camera, error) {
	existing, err := s.FindCameraByAddress(ctx, address, true)
	switch {
	case err == nil:
		if !existing.Deleted {
			return existing, nil
		}
		existing.Deleted = false
		existing.State = state
		_, err = s.db.ExecContext(ctx,
			`UPDATE cameras SET deleted = 0, state = ? WHERE id = ?`,
			int(state), existing.ID.String(),
		)
		return existing, err
	case errors.Is(err, ErrNotFound):
	default:
		return types.Camera{}, err
	}

	c := types.Camera{ID: uuid.New(), Address: address, State: state}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO cameras(id, address, state, deleted) VALUES(?,?,?,0)`,
		c.ID.String(), c.Address, int(c.State),
	)
	return c, err
}

func (s *Store) UpdateCameraState(ctx context.Context, id uuid.UUID, state types.CameraState) (types.Camera, error) {
	c, err := s.FindCamera(ctx, id)
	if err != nil {
		return types.Camera{}, err
	}
	if _, err := s.db.ExecContext(ctx,
		`UPDATE cameras SET state = ? WHERE id = ?`, int(state), id.String(),
	); err != nil {
		return types.Camera{}, err
	}
	c.State = state
	return c, nil
}

// DeleteCamera soft-deletes; reads exclude deleted cameras by default.
// Deleting an unknown or already-deleted camera is a no-op.
func (s *Store) DeleteCamera(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `UPDATE cameras SET deleted = 1 WHERE id = ?`, id.String())
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCamera(r rowScanner) (types.Camera, error) {
	var (
		c       types.Camera
		id      string
		state   int
		deleted int
	)
	if err := r.Scan(&id, &c.Address, &state, &deleted); err != nil {
		return types.Camera{}, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return types.Camera{}, fmt.Errorf("corrupt camera id %q: %w", id, err)
	}
	c.ID = parsed
	c.State = types.CameraState(state)
	c.Deleted = deleted != 0
	return c, nil
}
