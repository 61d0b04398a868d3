package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"herdwatch/internal/types"
)

// AddAnalysis records one raw measurement. A zero timestamp means now.
func (s *Store) AddAnalysis(ctx context.Context, cameraID uuid.UUID, at time.Time, cows, calves int) (types.Analysis, error) {
	if at.IsZero() {
		at = time.Now()
	}
	a := types.Analysis{
		ID:       uuid.New(),
		CameraID: cameraID,
		At:       at,
		Cows:     cows,
		Calves:   calves,
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO analyses(id, camera_id, at, cows, calves) VALUES(?,?,?,?,?)`,
		a.ID.String(), a.CameraID.String(), a.At.UnixMilli(), a.Cows, a.Calves,
	)
	return a, err
}

// Analyses returns the camera's measurements produced within the
// trailing window of the given size, oldest first. An empty result is
// valid and means "no data", not zero counts.
func (s *Store) Analyses(ctx context.Context, cameraID uuid.UUID, since time.Duration) ([]types.Analysis, error) {
	cutoff := time.Now().Add(-since).UnixMilli()
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, camera_id, at, cows, calves FROM analyses
		 WHERE camera_id = ? AND at > ?
		 ORDER BY at ASC`,
		cameraID.String(), cutoff,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.Analysis
	for rows.Next() {
		var (
			a      types.Analysis
			id     string
			camID  string
			atMill int64
		)
		if err := rows.Scan(&id, &camID, &atMill, &a.Cows, &a.Calves); err != nil {
			return nil, err
		}
		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("corrupt analysis id %q: %w", id, err)
		}
		cam, err := uuid.Parse(camID)
		if err != nil {
			return nil, fmt.Errorf("corrupt camera id %q: %w", camID, err)
		}
		a.ID = parsed
		a.CameraID = cam
		a.At = time.UnixMilli(atMill)
		out = append(out, a)
	}
	return out, rows.Err()
}
