package database

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"roombooking/internal/models"
	"roombooking/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func newTestDB(t *testing.T) *DB {
	t.Helper()
	logger := zerolog.Nop()
	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newRoom(t *testing.T, db *DB, name string) int64 {
	t.Helper()
	room := &models.Room{Name: name, Capacity: 2, PricePerDayCents: 10000}
	require.NoError(t, db.CreateRoom(context.Background(), room))
	return room.ID
}

func insert(db *DB, roomID int64, user string, start, end time.Time) (*models.Reservation, error) {
	r := &models.Reservation{RoomID: roomID, RequesterID: user, StartDate: start, EndDate: end}
	err := db.WithinRoomTx(context.Background(), roomID, func(tx repository.RoomTx) error {
		return tx.Insert(context.Background(), r)
	})
	return r, err
}

func TestRooms(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	id := newRoom(t, db, "Room 1")
	room, err := db.GetRoom(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Room 1", room.Name)
	assert.Equal(t, "100.00", room.PricePerDay())

	_, err = db.GetRoom(ctx, 999)
	assert.ErrorIs(t, err, models.ErrNotFound)

	again := &models.Room{Name: "Room 1", Capacity: 8, PricePerDayCents: 1}
	require.NoError(t, db.EnsureRoom(ctx, again))
	assert.Equal(t, id, again.ID)

	fresh := &models.Room{Name: "Room 2", Capacity: 3, PricePerDayCents: 5000}
	require.NoError(t, db.EnsureRoom(ctx, fresh))
	assert.NotEqual(t, id, fresh.ID)

	rooms, err := db.ListRooms(ctx)
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	assert.Equal(t, 2, rooms[0].Capacity)
}

func TestReservations_InsertAndRead(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	roomID := newRoom(t, db, "Room 1")

	r, err := insert(db, roomID, "alice", day(2026, 3, 1), day(2026, 3, 5))
	require.NoError(t, err)
	assert.NotZero(t, r.ID)

	got, err := db.GetReservation(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, day(2026, 3, 1), got.StartDate)
	assert.Equal(t, day(2026, 3, 5), got.EndDate)
	assert.Equal(t, "alice", got.RequesterID)
	assert.False(t, got.Cancelled)

	_, err = db.GetReservation(ctx, 999)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestReservations_TriggerBackstop(t *testing.T) {
	db := newTestDB(t)
	roomID := newRoom(t, db, "Room 1")
	otherRoom := newRoom(t, db, "Room 2")

	_, err := insert(db, roomID, "alice", day(2026, 3, 1), day(2026, 3, 5))
	require.NoError(t, err)

	// Inserted without any application-level check.
	_, err = insert(db, roomID, "bob", day(2026, 3, 2), day(2026, 3, 4))
	assert.ErrorIs(t, err, models.ErrConflict)

	_, err = insert(db, roomID, "bob", day(2026, 3, 5), day(2026, 3, 8))
	assert.NoError(t, err)

	_, err = insert(db, otherRoom, "bob", day(2026, 3, 2), day(2026, 3, 4))
	assert.NoError(t, err)

	all, err := db.ListAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestReservations_Immutability(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	roomID := newRoom(t, db, "Room 1")
	r, err := insert(db, roomID, "alice", day(2026, 3, 1), day(2026, 3, 5))
	require.NoError(t, err)

	_, err = db.ExecContext(ctx, `UPDATE reservations SET end_date = '2026-03-09' WHERE id = ?`, r.ID)
	assert.ErrorContains(t, err, "reservation is immutable")

	_, _, err = db.Cancel(ctx, r.ID, "alice")
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `UPDATE reservations SET is_cancelled = 0 WHERE id = ?`, r.ID)
	assert.ErrorContains(t, err, "cannot be reactivated")

	_, err = db.ExecContext(ctx, `INSERT INTO reservations (room_id, requester_id, start_date, end_date, created_at)
		VALUES (?, 'x', '2026-04-02', '2026-04-02', ?)`, roomID, time.Now())
	assert.ErrorContains(t, err, "CHECK constraint failed")
}

func TestReservations_AbortedScopeLeavesNothing(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	roomID := newRoom(t, db, "Room 1")

	err := db.WithinRoomTx(ctx, roomID, func(tx repository.RoomTx) error {
		if err := tx.Insert(ctx, &models.Reservation{RoomID: roomID, RequesterID: "a", StartDate: day(2026, 3, 1), EndDate: day(2026, 3, 2)}); err != nil {
			return err
		}
		return models.ErrConflict
	})
	assert.ErrorIs(t, err, models.ErrConflict)

	all, err := db.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestReservations_Cancel(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	roomID := newRoom(t, db, "Room 1")
	r, err := insert(db, roomID, "alice", day(2026, 3, 1), day(2026, 3, 5))
	require.NoError(t, err)

	_, _, err = db.Cancel(ctx, 999, "alice")
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, _, err = db.Cancel(ctx, r.ID, "bob")
	assert.ErrorIs(t, err, models.ErrForbidden)

	got, changed, err := db.Cancel(ctx, r.ID, "alice")
	require.NoError(t, err)
	assert.True(t, got.Cancelled)
	assert.True(t, changed)

	got, changed, err = db.Cancel(ctx, r.ID, "alice")
	require.NoError(t, err)
	assert.True(t, got.Cancelled)
	assert.False(t, changed)

	// freed range can be booked again, the cancelled row stays for history
	_, err = insert(db, roomID, "bob", day(2026, 3, 2), day(2026, 3, 4))
	require.NoError(t, err)
	all, err := db.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestReservations_Listings(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	room1 := newRoom(t, db, "Room 1")
	room2 := newRoom(t, db, "Room 2")

	a1, err := insert(db, room1, "alice", day(2026, 3, 1), day(2026, 3, 5))
	require.NoError(t, err)
	a2, err := insert(db, room2, "alice", day(2026, 3, 10), day(2026, 3, 12))
	require.NoError(t, err)
	b1, err := insert(db, room2, "bob", day(2026, 3, 4), day(2026, 3, 6))
	require.NoError(t, err)

	mine, err := db.ListByRequester(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, a2.ID, mine[0].ID)
	assert.Equal(t, a1.ID, mine[1].ID)

	overlapping, err := db.ListActiveOverlapping(ctx, day(2026, 3, 5), day(2026, 3, 10))
	require.NoError(t, err)
	require.Len(t, overlapping, 1)
	assert.Equal(t, b1.ID, overlapping[0].ID)

	_, _, err = db.Cancel(ctx, b1.ID, "bob")
	require.NoError(t, err)
	overlapping, err = db.ListActiveOverlapping(ctx, day(2026, 3, 5), day(2026, 3, 10))
	require.NoError(t, err)
	assert.Empty(t, overlapping)
}

func TestWithinRoomTx_ConcurrentWriters(t *testing.T) {
	db := newTestDB(t)
	roomID := newRoom(t, db, "Room 1")

	var wg sync.WaitGroup
	start := make(chan struct{})
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = insert(db, roomID, "user", day(2026, 3, 1), day(2026, 3, 3))
		}(i)
	}
	close(start)
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
		} else {
			assert.ErrorIs(t, err, models.ErrConflict)
		}
	}
	assert.Equal(t, 1, ok)
}
