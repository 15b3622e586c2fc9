// Package audit exports the room catalog and the full reservation history
// (cancelled rows included) as an xlsx workbook.
package audit

import (
	"context"
	"fmt"
	"io"
	"time"

	"roombooking/internal/models"
)

const (
	SheetRooms        = "Rooms"
	SheetReservations = "Reservations"
)

var (
	roomColumns        = []string{"ID", "Name", "Capacity", "Price per day"}
	reservationColumns = []string{"ID", "Room ID", "Room", "Requester", "Start date", "End date", "Nights", "Status", "Created at"}
)

// Source is the read side the report is built from.
type Source interface {
	ListRooms(ctx context.Context) ([]models.Room, error)
	ListAll(ctx context.Context) ([]models.Reservation, error)
}

// GenerateFilename creates a filename like "reservations_2026-10-18.xlsx".
func GenerateFilename(t time.Time) string {
	return fmt.Sprintf("reservations_%s.xlsx", t.Format(models.DateLayout))
}

// WriteReport renders the workbook into out.
func WriteReport(ctx context.Context, src Source, out io.Writer) error {
	rooms, err := src.ListRooms(ctx)
	if err != nil {
		return fmt.Errorf("list rooms: %w", err)
	}
	reservations, err := src.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("list reservations: %w", err)
	}

	w := newSheetWriter()
	defer w.Close()

	if err := w.AddSheet(SheetRooms); err != nil {
		return err
	}
	if err := w.WriteHeader(roomColumns); err != nil {
		return err
	}
	names := make(map[int64]string, len(rooms))
	for i := range rooms {
		r := &rooms[i]
		names[r.ID] = r.Name
		if err := w.WriteRow([]interface{}{r.ID, r.Name, r.Capacity, r.PricePerDay()}); err != nil {
			return fmt.Errorf("write room %d: %w", r.ID, err)
		}
	}

	if err := w.AddSheet(SheetReservations); err != nil {
		return err
	}
	if err := w.WriteHeader(reservationColumns); err != nil {
		return err
	}
	for i := range reservations {
		r := &reservations[i]
		status := "active"
		if r.Cancelled {
			status = "cancelled"
		}
		row := []interface{}{
			r.ID,
			r.RoomID,
			names[r.RoomID],
			r.RequesterID,
			models.FormatDate(r.StartDate),
			models.FormatDate(r.EndDate),
			r.Nights(),
			status,
			r.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := w.WriteRow(row); err != nil {
			return fmt.Errorf("write reservation %d: %w", r.ID, err)
		}
	}

	return w.Save(out)
}
