package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"skmf.evalgo.org/auth"
	"skmf.evalgo.org/db"
	"skmf.evalgo.org/rdf"
	"skmf.evalgo.org/resource"
)

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, rdf.ErrMalformedTerm),
		errors.Is(err, rdf.ErrMalformedPattern),
		errors.Is(err, auth.ErrInvalidUsername),
		errors.Is(err, auth.ErrEmptyPassword),
		errors.Is(err, auth.ErrPasswordTooShort),
		errors.Is(err, auth.ErrWeakPassword):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrRevokedToken):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrAccountDisabled):
		return http.StatusForbidden
	case errors.Is(err, resource.ErrResourceExists),
		errors.Is(err, auth.ErrUserExists):
		return http.StatusConflict
	case errors.Is(err, resource.ErrUnsupportedOperation):
		return http.StatusNotImplemented
	case errors.Is(err, db.ErrEndpointUnreachable),
		errors.Is(err, auth.ErrRevocationCheck):
		return http.StatusServiceUnavailable
	case errors.Is(err, db.ErrEndpointInternal),
		errors.Is(err, db.ErrMalformedQuery),
		errors.Is(err, db.ErrUnexpectedStatus):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// httpError converts err into an echo error carrying the mapped status.
// Server side failures keep their details internal.
func httpError(err error) *echo.HTTPError {
	code := statusFor(err)
	message := err.Error()
	if code >= http.StatusInternalServerError {
		message = http.StatusText(code)
	}
	return echo.NewHTTPError(code, message).SetInternal(err)
}
