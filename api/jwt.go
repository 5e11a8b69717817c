package api

import (
	"net/http"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// JWTMiddleware authenticates bearer tokens through the auth service, which
// also rejects revoked tokens.
func (h *Handlers) JWTMiddleware() echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ContextKey:  contextKeyClaims,
		TokenLookup: "header:Authorization:Bearer ",
		ParseTokenFunc: func(c echo.Context, token string) (interface{}, error) {
			return h.Auth.Authenticate(c.Request().Context(), token)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			if code := statusFor(err); code != http.StatusInternalServerError {
				return httpError(err)
			}
			return echo.NewHTTPError(http.StatusUnauthorized, "missing or malformed jwt").SetInternal(err)
		},
	})
}

// SetupRoutes registers the public auth routes and the protected API.
func SetupRoutes(e *echo.Echo, h *Handlers) {
	e.POST("/auth/login", h.Login)

	protected := []echo.MiddlewareFunc{h.JWTMiddleware(), RequireClaims()}
	e.POST("/auth/logout", h.Logout, protected...)

	g := e.Group("/api", protected...)
	g.GET("/me", h.Me)
	g.POST("/me/password", h.ChangePassword)
	g.GET("/resources", h.ListResources)
	g.POST("/resources", h.CreateResource)
	g.POST("/entries", h.FindEntries)
	g.GET("/subjects", h.GetSubject)
	g.GET("/subjects/export", h.ExportSubject, middleware.Gzip())
	g.POST("/users", h.CreateUser)
}
