// Package repository defines the Reservation Store contract and an in-memory implementation.
package repository

import (
	"context"
	"time"

	"roombooking/internal/models"
)

// RoomTx is the view of one room's reservation set inside an atomic scope.
// Everything read and written through it commits or aborts together.
type RoomTx interface {
	// ListActiveForRoom returns all non-cancelled reservations of the scoped room.
	ListActiveForRoom(ctx context.Context, roomID int64) ([]models.Reservation, error)
	// Insert persists r and assigns its ID once the scope commits.
	Insert(ctx context.Context, r *models.Reservation) error
}

// RoomCatalog is read access to the static room reference data.
type RoomCatalog interface {
	ListRooms(ctx context.Context) ([]models.Room, error)
	GetRoom(ctx context.Context, id int64) (*models.Room, error)
}

// ReservationStore owns durable reservation state and its transaction boundary.
type ReservationStore interface {
	RoomCatalog

	// WithinRoomTx runs fn in an atomic scope for roomID. A non-nil error from fn
	// aborts the scope and nothing fn inserted is persisted.
	WithinRoomTx(ctx context.Context, roomID int64, fn func(tx RoomTx) error) error

	// Cancel flips the cancelled flag and reports whether this call changed it.
	// Cancelling an already cancelled reservation succeeds without effect;
	// ownership is checked first.
	Cancel(ctx context.Context, reservationID int64, requesterID string) (*models.Reservation, bool, error)

	GetReservation(ctx context.Context, id int64) (*models.Reservation, error)
	// ListByRequester returns the requester's reservations, newest start date first.
	ListByRequester(ctx context.Context, requesterID string) ([]models.Reservation, error)
	// ListActiveOverlapping returns active reservations of any room intersecting [start, end).
	// It is a lock-free snapshot read.
	ListActiveOverlapping(ctx context.Context, start, end time.Time) ([]models.Reservation, error)
	// ListAll returns every reservation including cancelled ones.
	ListAll(ctx context.Context) ([]models.Reservation, error)
}
