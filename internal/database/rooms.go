package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"roombooking/internal/models"
)

// CreateRoom inserts a room and assigns its ID.
func (db *DB) CreateRoom(ctx context.Context, room *models.Room) error {
	if err := room.Validate(); err != nil {
		return err
	}
	if room.CreatedAt.IsZero() {
		room.CreatedAt = time.Now()
	}

	res, err := db.ExecContext(ctx,
		`INSERT INTO rooms (name, capacity, price_per_day_cents, created_at) VALUES (?, ?, ?, ?)`,
		room.Name, room.Capacity, room.PricePerDayCents, room.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert room %q: %w", room.Name, err)
	}
	room.ID, err = res.LastInsertId()
	return err
}

// EnsureRoom creates the room unless one with the same name exists; existing rows are left as is.
func (db *DB) EnsureRoom(ctx context.Context, room *models.Room) error {
	if err := room.Validate(); err != nil {
		return err
	}

	var id int64
	err := db.QueryRowContext(ctx, `SELECT id FROM rooms WHERE name = ?`, room.Name).Scan(&id)
	switch {
	case err == nil:
		room.ID = id
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return db.CreateRoom(ctx, room)
	default:
		return fmt.Errorf("lookup room %q: %w", room.Name, err)
	}
}

func (db *DB) ListRooms(ctx context.Context) ([]models.Room, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, name, capacity, price_per_day_cents, created_at FROM rooms ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	defer rows.Close()

	var rooms []models.Room
	for rows.Next() {
		var r models.Room
		if err := rows.Scan(&r.ID, &r.Name, &r.Capacity, &r.PricePerDayCents, &r.CreatedAt); err != nil {
			return nil, err
		}
		rooms = append(rooms, r)
	}
	return rooms, rows.Err()
}

func (db *DB) GetRoom(ctx context.Context, id int64) (*models.Room, error) {
	var r models.Room
	err := db.QueryRowContext(ctx,
		`SELECT id, name, capacity, price_per_day_cents, created_at FROM rooms WHERE id = ?`, id,
	).Scan(&r.ID, &r.Name, &r.Capacity, &r.PricePerDayCents, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: room %d", models.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get room %d: %w", id, err)
	}
	return &r, nil
}
