package db

import (
	"errors"
	"fmt"
)

// SPARQL endpoint errors
var (
	// ErrEndpointUnreachable is returned when the endpoint cannot be reached or the call was canceled
	ErrEndpointUnreachable = errors.New("sparql endpoint unreachable")

	// ErrMalformedQuery is returned when the endpoint rejects the statement as invalid SPARQL
	ErrMalformedQuery = errors.New("sparql endpoint rejected the statement")

	// ErrEndpointInternal is returned for 5xx responses
	ErrEndpointInternal = errors.New("sparql endpoint internal error")

	// ErrUnexpectedStatus is returned for any other non-2xx response
	ErrUnexpectedStatus = errors.New("sparql endpoint returned unexpected status")
)

// EndpointError describes a failed endpoint call.
type EndpointError struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *EndpointError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("sparql %s: %v", e.Op, e.Err)
	}
	if e.Body == "" {
		return fmt.Sprintf("sparql %s: %v (status %d)", e.Op, e.Err, e.StatusCode)
	}
	return fmt.Sprintf("sparql %s: %v (status %d): %s", e.Op, e.Err, e.StatusCode, e.Body)
}

func (e *EndpointError) Unwrap() error {
	return e.Err
}

// classifyStatus maps a non-2xx status code to its sentinel.
func classifyStatus(code int) error {
	switch {
	case code == 400:
		return ErrMalformedQuery
	case code >= 500 && code <= 599:
		return ErrEndpointInternal
	default:
		return ErrUnexpectedStatus
	}
}
