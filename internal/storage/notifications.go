package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"herdwatch/internal/notification"
)

// Add persists a notification in the outbox. The store assigns the id
// and creation time and sets is_sent to false.
func (s *Store) Add(ctx context.Context, n notification.Notification) error {
	kind, payload, err := notification.Encode(n)
	if err != nil {
		return err
	}
	id := uuid.New()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO notifications(id, created_at, is_sent, kind, payload) VALUES(?,?,0,?,?)`,
		id.String(), time.Now().UnixMilli(), string(kind), string(payload),
	)
	if err != nil {
		return fmt.Errorf("add %s notification: %w", kind, err)
	}
	return nil
}

// Unsent returns every notification still awaiting delivery, oldest
// first.
func (s *Store) Unsent(ctx context.Context) ([]notification.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, is_sent, kind, payload FROM notifications
		 WHERE is_sent = 0
		 ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []notification.Record
	for rows.Next() {
		rec, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) FindNotification(ctx context.Context, id uuid.UUID) (notification.Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, created_at, is_sent, kind, payload FROM notifications WHERE id = ?`,
		id.String(),
	)
	rec, err := scanNotification(row)
	if errors.Is(err, sql.ErrNoRows) {
		return notification.Record{}, fmt.Errorf("notification %s: %w", id, ErrNotFound)
	}
	return rec, err
}

// MarkSent flips is_sent once. Marking an already-sent notification is
// a no-op that returns the existing record.
func (s *Store) MarkSent(ctx context.Context, id uuid.UUID) (notification.Record, error) {
	rec, err := s.FindNotification(ctx, id)
	if err != nil {
		return notification.Record{}, err
	}
	if rec.IsSent {
		return rec, nil
	}
	if _, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET is_sent = 1 WHERE id = ?`, id.String(),
	); err != nil {
		return notification.Record{}, err
	}
	rec.IsSent = true
	return rec, nil
}

func scanNotification(r rowScanner) (notification.Record, error) {
	var (
		id      string
		created int64
		isSent  int
		kind    string
		payload string
	)
	if err := r.Scan(&id, &created, &isSent, &kind, &payload); err != nil {
		return notification.Record{}, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return notification.Record{}, fmt.Errorf("corrupt notification id %q: %w", id, err)
	}
	n, err := notification.Decode(notification.Kind(kind), []byte(payload))
	if err != nil {
		return notification.Record{}, err
	}
	return notification.Record{
		ID:           parsed,
		CreatedAt:    time.UnixMilli(created),
		IsSent:       isSent != 0,
		Notification: n,
	}, nil
}
