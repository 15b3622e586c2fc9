package repository

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"roombooking/internal/conflict"
	"roombooking/internal/lock"
	"roombooking/internal/models"
)

// MemoryStore is a process-local ReservationStore.
type MemoryStore struct {
	mu           sync.RWMutex
	rooms        []models.Room
	reservations map[int64]*models.Reservation
	nextRoomID   int64
	nextResID    int64

	roomLocks *lock.KeyedMutex
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		reservations: make(map[int64]*models.Reservation),
		roomLocks:    lock.NewKeyedMutex(),
	}
}

// CreateRoom adds a room to the catalog and assigns its ID.
func (m *MemoryStore) CreateRoom(_ context.Context, room *models.Room) error {
	if err := room.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextRoomID++
	room.ID = m.nextRoomID
	if room.CreatedAt.IsZero() {
		room.CreatedAt = time.Now()
	}
	m.rooms = append(m.rooms, *room)
	return nil
}

func (m *MemoryStore) ListRooms(_ context.Context) ([]models.Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Room, len(m.rooms))
	copy(out, m.rooms)
	return out, nil
}

func (m *MemoryStore) GetRoom(_ context.Context, id int64) (*models.Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := range m.rooms {
		if m.rooms[i].ID == id {
			room := m.rooms[i]
			return &room, nil
		}
	}
	return nil, fmt.Errorf("%w: room %d", models.ErrNotFound, id)
}

func (m *MemoryStore) WithinRoomTx(ctx context.Context, roomID int64, fn func(tx RoomTx) error) error {
	unlock, err := m.roomLocks.Lock(ctx, strconv.FormatInt(roomID, 10))
	if err != nil {
		return err
	}
	defer unlock()

	tx := &memoryTx{store: m, roomID: roomID}
	if err := fn(tx); err != nil {
		return err
	}
	return m.commit(tx)
}

// commit re-checks staged rows against committed ones, acting as the exclusion constraint.
func (m *MemoryStore) commit(tx *memoryTx) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, r := range tx.staged {
		if !r.IsActive() {
			continue
		}
		for _, existing := range m.reservations {
			if existing.RoomID != r.RoomID || !existing.IsActive() {
				continue
			}
			if conflict.Overlaps(r.StartDate, r.EndDate, existing.StartDate, existing.EndDate) {
				return fmt.Errorf("%w: overlaps reservation %d", models.ErrConflict, existing.ID)
			}
		}
		for _, other := range tx.staged[:i] {
			if other.IsActive() && conflict.Overlaps(r.StartDate, r.EndDate, other.StartDate, other.EndDate) {
				return fmt.Errorf("%w: overlaps a reservation staged in the same transaction", models.ErrConflict)
			}
		}
	}

	for _, r := range tx.staged {
		m.nextResID++
		r.ID = m.nextResID
		stored := *r
		m.reservations[stored.ID] = &stored
	}
	return nil
}

func (m *MemoryStore) Cancel(_ context.Context, reservationID int64, requesterID string) (*models.Reservation, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.reservations[reservationID]
	if !ok {
		return nil, false, fmt.Errorf("%w: reservation %d", models.ErrNotFound, reservationID)
	}
	if r.RequesterID != requesterID {
		return nil, false, fmt.Errorf("%w: reservation %d belongs to another user", models.ErrForbidden, reservationID)
	}
	changed := !r.Cancelled
	r.Cancelled = true
	out := *r
	return &out, changed, nil
}

func (m *MemoryStore) GetReservation(_ context.Context, id int64) (*models.Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.reservations[id]
	if !ok {
		return nil, fmt.Errorf("%w: reservation %d", models.ErrNotFound, id)
	}
	out := *r
	return &out, nil
}

func (m *MemoryStore) ListByRequester(_ context.Context, requesterID string) ([]models.Reservation, error) {
	out := m.collect(func(r *models.Reservation) bool { return r.RequesterID == requesterID })
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartDate.Equal(out[j].StartDate) {
			return out[i].StartDate.After(out[j].StartDate)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (m *MemoryStore) ListActiveOverlapping(_ context.Context, start, end time.Time) ([]models.Reservation, error) {
	out := m.collect(func(r *models.Reservation) bool {
		return r.IsActive() && conflict.Overlaps(start, end, r.StartDate, r.EndDate)
	})
	sortByID(out)
	return out, nil
}

func (m *MemoryStore) ListAll(_ context.Context) ([]models.Reservation, error) {
	out := m.collect(func(*models.Reservation) bool { return true })
	sortByID(out)
	return out, nil
}

func (m *MemoryStore) collect(keep func(r *models.Reservation) bool) []models.Reservation {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Reservation, 0)
	for _, r := range m.reservations {
		if keep(r) {
			out = append(out, *r)
		}
	}
	return out
}

func sortByID(rs []models.Reservation) {
	sort.Slice(rs, func(i, j int) bool { return rs[i].ID < rs[j].ID })
}

type memoryTx struct {
	store  *MemoryStore
	roomID int64
	staged []*models.Reservation
}

func (tx *memoryTx) ListActiveForRoom(_ context.Context, roomID int64) ([]models.Reservation, error) {
	if roomID != tx.roomID {
		return nil, fmt.Errorf("room %d is outside the scope of room %d", roomID, tx.roomID)
	}
	out := tx.store.collect(func(r *models.Reservation) bool {
		return r.RoomID == roomID && r.IsActive()
	})
	sortByID(out)
	for _, r := range tx.staged {
		out = append(out, *r)
	}
	return out, nil
}

func (tx *memoryTx) Insert(_ context.Context, r *models.Reservation) error {
	if r.RoomID != tx.roomID {
		return fmt.Errorf("room %d is outside the scope of room %d", r.RoomID, tx.roomID)
	}
	if err := models.ValidateRange(r.StartDate, r.EndDate); err != nil {
		return err
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	tx.staged = append(tx.staged, r)
	return nil
}
