// Package api exposes the resource layer and account management over HTTP.
// This file holds the helpers that carry the authenticated caller through a request.
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"skmf.evalgo.org/auth"
	"skmf.evalgo.org/common"
)

// contextKeyClaims is where the JWT middleware stores the parsed token.
const contextKeyClaims = "user"

// SetClaims stores the validated token claims in the Echo context.
// This is called by the JWT middleware after successful authentication.
//
// Parameters:
//   - c: Echo context
//   - claims: The validated claims
//
// Example:
//
//	func fakeAuth(next echo.HandlerFunc) echo.HandlerFunc {
//	    return func(c echo.Context) error {
//	        SetClaims(c, &auth.Claims{Username: "admin"})
//	        return next(c)
//	    }
//	}
func SetClaims(c echo.Context, claims *auth.Claims) {
	c.Set(contextKeyClaims, claims)
}

// GetClaims retrieves the authenticated caller's claims from the Echo context.
//
// Returns:
//   - *auth.Claims: The claims, or nil if the request is not authenticated
//   - bool: true if claims were found
func GetClaims(c echo.Context) (*auth.Claims, bool) {
	claims, ok := c.Get(contextKeyClaims).(*auth.Claims)
	return claims, ok && claims != nil
}

// RequireClaims rejects requests that reached a handler without claims and
// copies the username into the request context for logging.
func RequireClaims() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, ok := GetClaims(c)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}
			req := c.Request()
			c.SetRequest(req.WithContext(common.WithUser(req.Context(), claims.Username)))
			return next(c)
		}
	}
}
