package models

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport indicates the request never produced an HTTP response
	ErrTransport = errors.New("transport failure")
	// ErrService indicates the upstream service reported a failure
	ErrService = errors.New("service failure")
	// ErrMalformed indicates a response that could not be decoded
	ErrMalformed = errors.New("malformed response")
	// ErrNoPlan is returned by operations that need a current plan
	ErrNoPlan = errors.New("no current plan")
	// ErrNoItinerary is returned when the current plan has no itinerary yet
	ErrNoItinerary = errors.New("plan has no itinerary")
	// ErrImageNotFound is returned when an image id cannot be resolved
	ErrImageNotFound = errors.New("image not found")
	// ErrInvalidParams wraps trip parameter validation failures
	ErrInvalidParams = errors.New("invalid trip parameters")
)

// APIError is a non-success status returned by an upstream API
type APIError struct {
	Service    string
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error (status %d) at %s: %s", e.Service, e.StatusCode, e.Endpoint, e.Message)
}

// Unwrap classifies API errors as service failures
func (e *APIError) Unwrap() error {
	return ErrService
}

// TransportError wraps a network failure so it matches ErrTransport
func TransportError(service string, err error) error {
	return fmt.Errorf("%s request failed: %w: %w", service, ErrTransport, err)
}

// MalformedError wraps a decode failure so it matches ErrMalformed
func MalformedError(service string, err error) error {
	return fmt.Errorf("%s response decode failed: %w: %w", service, ErrMalformed, err)
}
