// Package conflict holds the date-range overlap rule shared by the booking
// write path and the availability read path.
package conflict

import (
	"time"

	"roombooking/internal/models"
)

// Overlaps reports whether the half-open ranges [aStart, aEnd) and [bStart, bEnd)
// intersect. A range ending on day D does not overlap one starting on day D.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// HasConflict reports whether any active reservation of roomID overlaps [start, end).
// Reservations for other rooms and cancelled ones are ignored.
func HasConflict(roomID int64, start, end time.Time, reservations []models.Reservation) bool {
	return FindConflict(roomID, start, end, reservations) != nil
}

// FindConflict returns the first active reservation of roomID overlapping [start, end), or nil.
func FindConflict(roomID int64, start, end time.Time, reservations []models.Reservation) *models.Reservation {
	for i := range reservations {
		r := &reservations[i]
		if r.RoomID != roomID || !r.IsActive() {
			continue
		}
		if Overlaps(start, end, r.StartDate, r.EndDate) {
			return r
		}
	}
	return nil
}

// BookedRooms returns the ids of rooms with at least one active reservation overlapping [start, end).
func BookedRooms(start, end time.Time, reservations []models.Reservation) map[int64]struct{} {
	booked := make(map[int64]struct{})
	for i := range reservations {
		r := &reservations[i]
		if !r.IsActive() {
			continue
		}
		if Overlaps(start, end, r.StartDate, r.EndDate) {
			booked[r.RoomID] = struct{}{}
		}
	}
	return booked
}
