package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"roombooking/internal/models"
	"roombooking/internal/repository"
)

const reservationColumns = `id, room_id, requester_id, start_date, end_date, is_cancelled, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReservation(row rowScanner) (*models.Reservation, error) {
	var r models.Reservation
	var start, end string
	if err := row.Scan(&r.ID, &r.RoomID, &r.RequesterID, &start, &end, &r.Cancelled, &r.CreatedAt); err != nil {
		return nil, err
	}
	var err error
	if r.StartDate, err = time.Parse(models.DateLayout, start); err != nil {
		return nil, fmt.Errorf("reservation %d: bad start_date %q: %w", r.ID, start, err)
	}
	if r.EndDate, err = time.Parse(models.DateLayout, end); err != nil {
		return nil, fmt.Errorf("reservation %d: bad end_date %q: %w", r.ID, end, err)
	}
	return &r, nil
}

func scanReservations(rows *sql.Rows) ([]models.Reservation, error) {
	defer rows.Close()
	out := make([]models.Reservation, 0)
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// WithinRoomTx runs fn inside one SQLite transaction. The transaction starts with
// BEGIN IMMEDIATE, so its reads cannot go stale before its insert commits.
func (db *DB) WithinRoomTx(ctx context.Context, roomID int64, fn func(tx repository.RoomTx) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx for room %d: %w", roomID, err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				db.logger.Error().Err(rbErr).Int64("room_id", roomID).Msg("Rollback failed")
			}
		}
	}()

	if err = fn(&sqlRoomTx{tx: tx, roomID: roomID}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit tx for room %d: %w", roomID, err)
	}
	return nil
}

type sqlRoomTx struct {
	tx     *sql.Tx
	roomID int64
}

func (t *sqlRoomTx) ListActiveForRoom(ctx context.Context, roomID int64) ([]models.Reservation, error) {
	if roomID != t.roomID {
		return nil, fmt.Errorf("room %d is outside the scope of room %d", roomID, t.roomID)
	}
	rows, err := t.tx.QueryContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations
		WHERE room_id = ? AND is_cancelled = 0
		ORDER BY start_date`, roomID)
	if err != nil {
		return nil, fmt.Errorf("list active reservations for room %d: %w", roomID, err)
	}
	return scanReservations(rows)
}

func (t *sqlRoomTx) Insert(ctx context.Context, r *models.Reservation) error {
	if r.RoomID != t.roomID {
		return fmt.Errorf("room %d is outside the scope of room %d", r.RoomID, t.roomID)
	}
	if err := models.ValidateRange(r.StartDate, r.EndDate); err != nil {
		return err
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}

	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO reservations (room_id, requester_id, start_date, end_date, is_cancelled, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.RoomID, r.RequesterID, models.FormatDate(r.StartDate), models.FormatDate(r.EndDate), r.Cancelled, r.CreatedAt,
	)
	switch {
	case isOverlapAbort(err):
		return fmt.Errorf("%w: %v", models.ErrConflict, err)
	case isCheckViolation(err):
		return fmt.Errorf("%w: %v", models.ErrValidation, err)
	case err != nil:
		return fmt.Errorf("insert reservation: %w", err)
	}

	r.ID, err = res.LastInsertId()
	return err
}

// Cancel marks the reservation cancelled inside a single transaction.
func (db *DB) Cancel(ctx context.Context, reservationID int64, requesterID string) (_ *models.Reservation, changed bool, err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("begin cancel tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	r, err := scanReservation(tx.QueryRowContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, reservationID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("%w: reservation %d", models.ErrNotFound, reservationID)
	}
	if err != nil {
		return nil, false, fmt.Errorf("load reservation %d: %w", reservationID, err)
	}
	if r.RequesterID != requesterID {
		return nil, false, fmt.Errorf("%w: reservation %d belongs to another user", models.ErrForbidden, reservationID)
	}

	if !r.Cancelled {
		if _, err = tx.ExecContext(ctx,
			`UPDATE reservations SET is_cancelled = 1 WHERE id = ? AND is_cancelled = 0`, reservationID); err != nil {
			return nil, false, fmt.Errorf("cancel reservation %d: %w", reservationID, err)
		}
		r.Cancelled = true
		changed = true
	}

	if err = tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("commit cancel: %w", err)
	}
	return r, changed, nil
}

func (db *DB) GetReservation(ctx context.Context, id int64) (*models.Reservation, error) {
	r, err := scanReservation(db.QueryRowContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: reservation %d", models.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get reservation %d: %w", id, err)
	}
	return r, nil
}

func (db *DB) ListByRequester(ctx context.Context, requesterID string) ([]models.Reservation, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations
		WHERE requester_id = ?
		ORDER BY start_date DESC, id DESC`, requesterID)
	if err != nil {
		return nil, fmt.Errorf("list reservations for %s: %w", requesterID, err)
	}
	return scanReservations(rows)
}

// ListActiveOverlapping uses the same strict inequalities as conflict.Overlaps.
func (db *DB) ListActiveOverlapping(ctx context.Context, start, end time.Time) ([]models.Reservation, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations
		WHERE is_cancelled = 0
		AND start_date < ? AND end_date > ?
		ORDER BY id`,
		models.FormatDate(end), models.FormatDate(start))
	if err != nil {
		return nil, fmt.Errorf("list overlapping reservations: %w", err)
	}
	return scanReservations(rows)
}

func (db *DB) ListAll(ctx context.Context) ([]models.Reservation, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+reservationColumns+` FROM reservations ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	return scanReservations(rows)
}

var _ repository.ReservationStore = (*DB)(nil)
