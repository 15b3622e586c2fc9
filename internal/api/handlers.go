package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"roombooking/internal/models"

	"github.com/gorilla/mux"
)

type roomResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	PricePerDay string `json:"price_per_day"`
	Capacity    int    `json:"capacity"`
}

func newRoomResponses(rooms []models.Room) []roomResponse {
	out := make([]roomResponse, 0, len(rooms))
	for i := range rooms {
		out = append(out, roomResponse{
			ID:          rooms[i].ID,
			Name:        rooms[i].Name,
			PricePerDay: rooms[i].PricePerDay(),
			Capacity:    rooms[i].Capacity,
		})
	}
	return out
}

type bookingResponse struct {
	ID          int64     `json:"id"`
	RoomID      int64     `json:"room_id"`
	StartDate   string    `json:"start_date"`
	EndDate     string    `json:"end_date"`
	IsCancelled bool      `json:"is_cancelled"`
	CreatedAt   time.Time `json:"created_at"`
}

func newBookingResponse(r *models.Reservation) bookingResponse {
	return bookingResponse{
		ID:          r.ID,
		RoomID:      r.RoomID,
		StartDate:   models.FormatDate(r.StartDate),
		EndDate:     models.FormatDate(r.EndDate),
		IsCancelled: r.Cancelled,
		CreatedAt:   r.CreatedAt,
	}
}

// CreateBookingRequest is the body of POST /api/v1/bookings.
type CreateBookingRequest struct {
	RoomID    int64  `json:"room_id"`
	StartDate string `json:"start_date"` // Format: YYYY-MM-DD
	EndDate   string `json:"end_date"`   // Format: YYYY-MM-DD
}

// parseRoomFilter reads min_capacity, max_capacity, min_price, max_price and ordering.
func parseRoomFilter(q url.Values) (*models.RoomFilter, error) {
	f := &models.RoomFilter{Ordering: q.Get("ordering")}
	if !models.ValidOrdering(f.Ordering) {
		return nil, fmt.Errorf("invalid ordering %q; use price_per_day or capacity", f.Ordering)
	}

	for name, dst := range map[string]*int{"min_capacity": &f.MinCapacity, "max_capacity": &f.MaxCapacity} {
		if v := q.Get(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return nil, fmt.Errorf("invalid %s", name)
			}
			*dst = n
		}
	}
	for name, dst := range map[string]**int64{"min_price": &f.MinPrice, "max_price": &f.MaxPrice} {
		if v := q.Get(name); v != "" {
			cents, err := models.ParseCents(v)
			if err != nil {
				return nil, fmt.Errorf("invalid %s", name)
			}
			*dst = &cents
		}
	}
	return f, nil
}

// GET /api/v1/rooms
func (s *HTTPServer) handleListRooms(w http.ResponseWriter, r *http.Request) {
	filter, err := parseRoomFilter(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rooms, err := s.catalog.ListRooms(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newRoomResponses(filter.Apply(rooms)))
}

// GET /api/v1/rooms/available?start_date=YYYY-MM-DD&end_date=YYYY-MM-DD
func (s *HTTPServer) handleAvailableRooms(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("start_date") == "" || q.Get("end_date") == "" {
		writeError(w, http.StatusBadRequest, "start_date and end_date are required")
		return
	}
	start, err := time.Parse(models.DateLayout, q.Get("start_date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start_date format; expected YYYY-MM-DD")
		return
	}
	end, err := time.Parse(models.DateLayout, q.Get("end_date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid end_date format; expected YYYY-MM-DD")
		return
	}

	filter, err := parseRoomFilter(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rooms, err := s.availability.ListAvailable(r.Context(), start, end, filter)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newRoomResponses(rooms))
}

// GET /api/v1/bookings
func (s *HTTPServer) handleListBookings(w http.ResponseWriter, r *http.Request) {
	reservations, err := s.bookings.ListBookingsForRequester(r.Context(), requesterFrom(r.Context()))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	out := make([]bookingResponse, 0, len(reservations))
	for i := range reservations {
		out = append(out, newBookingResponse(&reservations[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

// POST /api/v1/bookings
func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	var req CreateBookingRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.RoomID <= 0 {
		writeError(w, http.StatusBadRequest, "room_id is required")
		return
	}

	start, err := models.ParseDate(req.StartDate)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	end, err := models.ParseDate(req.EndDate)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	reservation, err := s.bookings.CreateBooking(r.Context(), req.RoomID, requesterFrom(r.Context()), start, end)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newBookingResponse(reservation))
}

// GET /api/v1/bookings/{id}
func (s *HTTPServer) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}

	reservation, err := s.bookings.GetBooking(r.Context(), id, requesterFrom(r.Context()))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newBookingResponse(reservation))
}

// POST /api/v1/bookings/{id}/cancel
func (s *HTTPServer) handleCancelBooking(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}

	reservation, err := s.bookings.CancelBooking(r.Context(), id, requesterFrom(r.Context()))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newBookingResponse(reservation))
}
