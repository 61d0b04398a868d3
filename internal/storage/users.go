package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"herdwatch/internal/types"
)

// FindUser returns the user if their status is at or above min.
func (s *Store) FindUser(ctx context.Context, id int64, min types.UserStatus) (types.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, username, status FROM users WHERE id = ? AND status >= ?`,
		id, int(min),
	)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.User{}, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	return u, err
}

func (s *Store) FindUserByUsername(ctx context.Context, username string, min types.UserStatus) (types.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, username, status FROM users WHERE username = ? AND status >= ?`,
		username, int(min),
	)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.User{}, fmt.Errorf("user @%s: %w", username, ErrNotFound)
	}
	return u, err
}

// UserIDs lists the ids of every user at or above min. This is the
// directory view used for recipient resolution.
func (s *Store) UserIDs(ctx context.Context, min types.UserStatus) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM users WHERE status >= ? ORDER BY id`, int(min),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *Store) Users(ctx context.Context, min types.UserStatus) ([]types.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, username, status FROM users WHERE status >= ? ORDER BY id`, int(min),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// AddUser registers a signup as pending approval. An already-known
// user is returned unchanged, whatever their status.
func (s *Store) AddUser(ctx context.Context, id int64, username string) (types.User, error) {
	existing, err := s.FindUser(ctx, id, types.StatusRefused)
	switch {
	case err == nil:
		return existing, nil
	case errors.Is(err, ErrNotFound):
	default:
		return types.User{}, err
	}

	u := types.User{ID: id, Username: username, Status: types.StatusPendingApprove}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO users(id, username, status) VALUES(?,?,?)`,
		u.ID, u.Username, int(u.Status),
	)
	return u, err
}

func (s *Store) UpdateUsername(ctx context.Context, id int64, username string) (types.User, error) {
	u, err := s.FindUser(ctx, id, types.StatusRefused)
	if err != nil {
		return types.User{}, err
	}
	if _, err := s.db.ExecContext(ctx,
		`UPDATE users SET username = ? WHERE id = ?`, username, id,
	); err != nil {
		return types.User{}, err
	}
	u.Username = username
	return u, nil
}

// ApproveUser moves a pending or refused user to approved. Users
// already at or above approved are returned unchanged.
func (s *Store) ApproveUser(ctx context.Context, id int64) (types.User, error) {
	return s.setStatus(ctx, id, types.StatusApprovedUser, func(current types.UserStatus) bool {
		return current <= types.StatusPendingApprove
	})
}

// RefuseUser blocks a user. A no-op if already refused.
func (s *Store) RefuseUser(ctx context.Context, id int64) (types.User, error) {
	return s.setStatus(ctx, id, types.StatusRefused, func(current types.UserStatus) bool {
		return current != types.StatusRefused
	})
}

// GrantAdmin promotes a user to administrator. A no-op if already one.
func (s *Store) GrantAdmin(ctx context.Context, id int64) (types.User, error) {
	return s.setStatus(ctx, id, types.StatusAdministrator, func(current types.UserStatus) bool {
		return current != types.StatusAdministrator
	})
}

// RemoveAdmin demotes an administrator to approved user. A no-op for
// everyone else.
func (s *Store) RemoveAdmin(ctx context.Context, id int64) (types.User, error) {
	return s.setStatus(ctx, id, types.StatusApprovedUser, func(current types.UserStatus) bool {
		return current == types.StatusAdministrator
	})
}

func (s *Store) setStatus(ctx context.Context, id int64, to types.UserStatus, applies func(types.UserStatus) bool) (types.User, error) {
	u, err := s.FindUser(ctx, id, types.StatusRefused)
	if err != nil {
		return types.User{}, err
	}
	if !applies(u.Status) {
		return u, nil
	}
	if _, err := s.db.ExecContext(ctx,
		`UPDATE users SET status = ? WHERE id = ?`, int(to), id,
	); err != nil {
		return types.User{}, err
	}
	u.Status = to
	return u, nil
}

func scanUser(r rowScanner) (types.User, error) {
	var (
		u      types.User
		status int
	)
	if err := r.Scan(&u.ID, &u.Username, &status); err != nil {
		return types.User{}, err
	}
	u.Status = types.UserStatus(status)
	return u, nil
}
