package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/murmur-app/murmur/internal/overlay/geometry"
)

// SaveWindowBounds upserts the persisted overlay window geometry for the
// active instance/profile. Bounds are stored in device-independent units.
func (s *Store) SaveWindowBounds(ctx context.Context, bounds geometry.Bounds) error {
	if s.readOnly {
		return fmt.Errorf("store: save window bounds: store opened read-only")
	}

	_, err := s.db.ExecContext(ctx, `
        INSERT INTO window_bounds (instance_name, profile_name, width, height, x, y, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
        ON CONFLICT(instance_name, profile_name) DO UPDATE SET
            width = excluded.width,
            height = excluded.height,
            x = excluded.x,
            y = excluded.y,
            updated_at = CURRENT_TIMESTAMP
    `, s.instanceName, s.profileName, bounds.Width, bounds.Height, bounds.X, bounds.Y)
	if err != nil {
		return fmt.Errorf("store: save window bounds: %w", err)
	}
	return nil
}

// WindowBounds returns the persisted overlay window geometry. A missing row
// yields a NotFoundError so callers can fall back to defaults.
func (s *Store) WindowBounds(ctx context.Context) (geometry.Bounds, error) {
	var bounds geometry.Bounds
	err := s.db.QueryRowContext(ctx, `
        SELECT width, height, x, y FROM window_bounds
        WHERE instance_name = ? AND profile_name = ?
    `, s.instanceName, s.profileName).Scan(&bounds.Width, &bounds.Height, &bounds.X, &bounds.Y)
	if errors.Is(err, sql.ErrNoRows) {
		return geometry.Bounds{}, NotFoundError{Entity: "window bounds"}
	}
	if err != nil {
		return geometry.Bounds{}, fmt.Errorf("store: load window bounds: %w", err)
	}
	return bounds, nil
}
