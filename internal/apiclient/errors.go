package apiclient

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthorized is wrapped by APIError for 401 responses.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden is wrapped by APIError for 403 responses.
	ErrForbidden = errors.New("forbidden")
)

// APIError is a non-2xx answer from the SEATIFY API.  Message is the
// backend's own text when it sent one.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("seatify api: %d %s", e.Status, http.StatusText(e.Status))
}

// Unwrap lets errors.Is match ErrUnauthorized and ErrForbidden.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	}
	return nil
}

// IsAuthFailure reports whether err came from a 401 or 403.
func IsAuthFailure(err error) bool {
	return errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrForbidden)
}

// MessageOf returns the backend's message for err, or fallback when err
// carries none.
func MessageOf(err error, fallback string) string {
	var ae *APIError
	if errors.As(err, &ae) && ae.Message != "" {
		return ae.Message
	}
	return fallback
}

// StatusOf returns the upstream HTTP status for err, or 502 when the API was
// unreachable or answered something unreadable.
func StatusOf(err error) int {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.Status
	}
	return http.StatusBadGateway
}
