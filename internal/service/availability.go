package service

import (
	"context"
	"time"

	"roombooking/internal/conflict"
	"roombooking/internal/metrics"
	"roombooking/internal/models"
	"roombooking/internal/repository"
)

// AvailabilityService is the read path. It never takes room locks and may see
// a slightly stale snapshot.
type AvailabilityService struct {
	store repository.ReservationStore
}

func NewAvailabilityService(store repository.ReservationStore) *AvailabilityService {
	return &AvailabilityService{store: store}
}

// ListAvailableRooms returns the candidates without an active reservation
// overlapping [start, end), in candidate order.
func (s *AvailabilityService) ListAvailableRooms(ctx context.Context, start, end time.Time, candidates []models.Room) ([]models.Room, error) {
	if err := models.ValidateRange(start, end); err != nil {
		return nil, err
	}
	start, end = models.DateOf(start), models.DateOf(end)
	metrics.IncAvailabilityQuery()

	reservations, err := s.store.ListActiveOverlapping(ctx, start, end)
	if err != nil {
		return nil, err
	}
	booked := conflict.BookedRooms(start, end, reservations)

	available := make([]models.Room, 0, len(candidates))
	for _, room := range candidates {
		if _, ok := booked[room.ID]; !ok {
			available = append(available, room)
		}
	}
	return available, nil
}

// ListAvailable draws candidates from the catalog, narrowed and ordered by filter (may be nil).
func (s *AvailabilityService) ListAvailable(ctx context.Context, start, end time.Time, filter *models.RoomFilter) ([]models.Room, error) {
	if err := models.ValidateRange(start, end); err != nil {
		return nil, err
	}
	rooms, err := s.store.ListRooms(ctx)
	if err != nil {
		return nil, err
	}
	return s.ListAvailableRooms(ctx, start, end, filter.Apply(rooms))
}
