package models

import (
	"fmt"
	"time"
)

// Reservation is a booking of one room for the half-open day range [StartDate, EndDate).
// Room, StartDate and EndDate never change after creation; the only mutation
// is the one-way Cancelled flip.
type Reservation struct {
	ID          int64
	RoomID      int64
	RequesterID string
	StartDate   time.Time
	EndDate     time.Time
	Cancelled   bool
	CreatedAt   time.Time
}

// IsActive reports whether the reservation takes part in conflict checks.
func (r *Reservation) IsActive() bool {
	return !r.Cancelled
}

// Nights returns the number of booked days.
func (r *Reservation) Nights() int {
	return int(r.EndDate.Sub(r.StartDate).Hours() / 24)
}

func (r *Reservation) String() string {
	return fmt.Sprintf("room %d | %s - %s", r.RoomID, FormatDate(r.StartDate), FormatDate(r.EndDate))
}
