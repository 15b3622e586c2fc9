package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"roombooking/internal/models"
	"roombooking/internal/repository"
	"roombooking/internal/service"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// RequesterHeader carries the authenticated user id set by the upstream auth layer.
const RequesterHeader = "X-User-ID"

// HTTPServer exposes the booking core over JSON/HTTP.
type HTTPServer struct {
	bookings     *service.BookingService
	availability *service.AvailabilityService
	catalog      repository.RoomCatalog
	limiter      *requesterLimiter
	logger       *zerolog.Logger
	server       *http.Server
}

// RateLimitConfig is a per-requester token bucket.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

func NewHTTPServer(
	port int,
	bookings *service.BookingService,
	availability *service.AvailabilityService,
	catalog repository.RoomCatalog,
	rl RateLimitConfig,
	logger *zerolog.Logger,
) *HTTPServer {
	s := &HTTPServer{
		bookings:     bookings,
		availability: availability,
		catalog:      catalog,
		limiter:      newRequesterLimiter(rl.RequestsPerSecond, rl.Burst),
		logger:       logger,
	}
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *HTTPServer) routes() http.Handler {
	r := mux.NewRouter()
	r.Use(s.requestIDMiddleware, s.loggingMiddleware, s.rateLimitMiddleware)

	// Routes live on the root router: mux only reports a method mismatch as 405
	// from the router that owns MethodNotAllowedHandler.
	r.HandleFunc("/api/v1/rooms", s.handleListRooms).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/rooms/available", s.handleAvailableRooms).Methods(http.MethodGet)

	r.Handle("/api/v1/bookings", s.requireRequester(http.HandlerFunc(s.handleListBookings))).Methods(http.MethodGet)
	r.Handle("/api/v1/bookings", s.requireRequester(http.HandlerFunc(s.handleCreateBooking))).Methods(http.MethodPost)
	r.Handle("/api/v1/bookings/{id:[0-9]+}", s.requireRequester(http.HandlerFunc(s.handleGetBooking))).Methods(http.MethodGet)
	r.Handle("/api/v1/bookings/{id:[0-9]+}/cancel", s.requireRequester(http.HandlerFunc(s.handleCancelBooking))).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}

// Handler returns the routed handler, for tests and embedding.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *HTTPServer) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(ctxShutdown)
	}()

	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps the error taxonomy onto HTTP status codes.
func (s *HTTPServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, models.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrConflict):
		writeError(w, http.StatusConflict, models.ErrConflict.Error())
	case errors.Is(err, models.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "request cancelled")
	default:
		s.logger.Error().Err(err).Str("request_id", requestIDFrom(r.Context())).Msg("Internal error")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
