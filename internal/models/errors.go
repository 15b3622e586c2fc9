package models

import "errors"

// Error taxonomy shared by the store, the coordinator and the HTTP adapter.
// Callers wrap these with context and match them with errors.Is.
var (
	ErrValidation = errors.New("validation error")
	ErrConflict   = errors.New("room already booked for these dates")
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
)
