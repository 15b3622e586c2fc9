// Package service holds the booking coordinator and the availability calculator.
package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"roombooking/internal/conflict"
	"roombooking/internal/events"
	"roombooking/internal/lock"
	"roombooking/internal/metrics"
	"roombooking/internal/models"
	"roombooking/internal/repository"

	"github.com/rs/zerolog"
)

// Clock supplies the current instant; "today" is its calendar day in its own location.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in Location (UTC when nil).
type SystemClock struct {
	Location *time.Location
}

func (c SystemClock) Now() time.Time {
	if c.Location == nil {
		return time.Now().UTC()
	}
	return time.Now().In(c.Location)
}

type EventPublisher interface {
	PublishJSON(evType string, payload interface{}) error
}

// BookingEvent is the payload of booking.created and booking.cancelled.
type BookingEvent struct {
	ReservationID int64  `json:"reservation_id"`
	RoomID        int64  `json:"room_id"`
	RequesterID   string `json:"requester_id"`
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"`
}

func newBookingEvent(r *models.Reservation) BookingEvent {
	return BookingEvent{
		ReservationID: r.ID,
		RoomID:        r.RoomID,
		RequesterID:   r.RequesterID,
		StartDate:     models.FormatDate(r.StartDate),
		EndDate:       models.FormatDate(r.EndDate),
	}
}

// BookingService is the write path. It runs validate, lock room, check conflicts
// and insert as one unit per room; different rooms never wait on each other.
type BookingService struct {
	store  repository.ReservationStore
	locker lock.Locker
	events EventPublisher
	clock  Clock
	logger *zerolog.Logger
}

func NewBookingService(store repository.ReservationStore, locker lock.Locker, bus EventPublisher, clock Clock, logger *zerolog.Logger) *BookingService {
	if clock == nil {
		clock = SystemClock{}
	}
	return &BookingService{
		store:  store,
		locker: locker,
		events: bus,
		clock:  clock,
		logger: logger,
	}
}

// Today returns the current calendar date.
func (s *BookingService) Today() time.Time {
	return models.DateOf(s.clock.Now())
}

// ValidateBookingRange checks the range against the clock at call time.
func (s *BookingService) ValidateBookingRange(start, end time.Time) error {
	if err := models.ValidateRange(start, end); err != nil {
		return err
	}
	if models.DateOf(start).Before(s.Today()) {
		return fmt.Errorf("%w: cannot book in the past", models.ErrValidation)
	}
	return nil
}

func roomLockKey(roomID int64) string {
	return "room:" + strconv.FormatInt(roomID, 10)
}

// CreateBooking reserves roomID for [start, end) on behalf of requesterID.
// It fails with ErrValidation, ErrNotFound (unknown room) or ErrConflict.
func (s *BookingService) CreateBooking(ctx context.Context, roomID int64, requesterID string, start, end time.Time) (*models.Reservation, error) {
	if requesterID == "" {
		metrics.IncBookingAttempt(metrics.OutcomeInvalid)
		return nil, fmt.Errorf("%w: requester is required", models.ErrValidation)
	}
	if err := s.ValidateBookingRange(start, end); err != nil {
		metrics.IncBookingAttempt(metrics.OutcomeInvalid)
		return nil, err
	}
	start, end = models.DateOf(start), models.DateOf(end)

	if _, err := s.store.GetRoom(ctx, roomID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			metrics.IncBookingAttempt(metrics.OutcomeInvalid)
		} else {
			metrics.IncBookingAttempt(metrics.OutcomeError)
		}
		return nil, err
	}

	reservation := &models.Reservation{
		RoomID:      roomID,
		RequesterID: requesterID,
		StartDate:   start,
		EndDate:     end,
		CreatedAt:   s.clock.Now(),
	}

	err := s.reserve(ctx, reservation)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			metrics.IncBookingAttempt(metrics.OutcomeConflict)
			s.logger.Info().
				Int64("room_id", roomID).
				Str("requester_id", requesterID).
				Str("start_date", models.FormatDate(start)).
				Str("end_date", models.FormatDate(end)).
				Msg("Booking rejected: room already booked")
			return nil, err
		}
		metrics.IncBookingAttempt(metrics.OutcomeError)
		s.logger.Error().Err(err).Int64("room_id", roomID).Msg("Failed to create booking")
		return nil, fmt.Errorf("create booking: %w", err)
	}

	metrics.IncBookingAttempt(metrics.OutcomeCreated)
	s.logger.Info().
		Int64("reservation_id", reservation.ID).
		Int64("room_id", roomID).
		Str("requester_id", requesterID).
		Str("start_date", models.FormatDate(start)).
		Str("end_date", models.FormatDate(end)).
		Msg("Booking created")
	s.publish(events.BookingCreated, reservation)

	return reservation, nil
}

// reserve holds the room lock only for the conflict check and insert;
// it is released before CreateBooking publishes.
func (s *BookingService) reserve(ctx context.Context, reservation *models.Reservation) error {
	roomID := reservation.RoomID

	waitStart := time.Now()
	unlock, err := s.locker.Lock(ctx, roomLockKey(roomID))
	if err != nil {
		return fmt.Errorf("lock room %d: %w", roomID, err)
	}
	defer unlock()
	metrics.ObserveLockWait(time.Since(waitStart))

	return s.store.WithinRoomTx(ctx, roomID, func(tx repository.RoomTx) error {
		active, err := tx.ListActiveForRoom(ctx, roomID)
		if err != nil {
			return err
		}
		if existing := conflict.FindConflict(roomID, reservation.StartDate, reservation.EndDate, active); existing != nil {
			return fmt.Errorf("%w (reservation %d)", models.ErrConflict, existing.ID)
		}
		return tx.Insert(ctx, reservation)
	})
}

// CancelBooking cancels the requester's own reservation. Cancelling twice is a no-op success.
func (s *BookingService) CancelBooking(ctx context.Context, reservationID int64, requesterID string) (*models.Reservation, error) {
	reservation, changed, err := s.store.Cancel(ctx, reservationID, requesterID)
	if err != nil {
		return nil, err
	}

	if changed {
		metrics.IncBookingCancelled()
		s.logger.Info().
			Int64("reservation_id", reservationID).
			Str("requester_id", requesterID).
			Msg("Booking cancelled")
		s.publish(events.BookingCancelled, reservation)
	}
	return reservation, nil
}

// GetBooking returns a reservation visible to its owner only.
func (s *BookingService) GetBooking(ctx context.Context, reservationID int64, requesterID string) (*models.Reservation, error) {
	reservation, err := s.store.GetReservation(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if reservation.RequesterID != requesterID {
		return nil, fmt.Errorf("%w: reservation %d belongs to another user", models.ErrForbidden, reservationID)
	}
	return reservation, nil
}

// ListBookingsForRequester returns the requester's reservations including cancelled ones.
func (s *BookingService) ListBookingsForRequester(ctx context.Context, requesterID string) ([]models.Reservation, error) {
	return s.store.ListByRequester(ctx, requesterID)
}

func (s *BookingService) publish(evType string, r *models.Reservation) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishJSON(evType, newBookingEvent(r)); err != nil {
		s.logger.Warn().Err(err).Str("event", evType).Int64("reservation_id", r.ID).Msg("Failed to publish event")
	}
}
