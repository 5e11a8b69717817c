package rdf

import "errors"

// Model errors
var (
	ErrMalformedTerm    = errors.New("malformed term")
	ErrMalformedPattern = errors.New("malformed pattern")
)
