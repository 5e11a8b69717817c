// Package http provides the echo server setup shared by the SKMF API:
// standard middleware, health and metrics endpoints and error rendering.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"skmf.evalgo.org/common"
)

// ServerConfig contains configuration for creating an Echo server
type ServerConfig struct {
	Address         string
	Debug           bool
	BodyLimit       string // e.g., "1M"
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string // For CORS
	RateLimit       float64  // Requests per second (0 = no limit)
}

// DefaultServerConfig returns a server config with sensible defaults
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Address:         ":8080",
		BodyLimit:       "1M",
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		AllowedOrigins:  []string{"*"},
	}
}

// NewEchoServer creates a new Echo server with standard middleware
func NewEchoServer(config ServerConfig) *echo.Echo {
	e := echo.New()

	e.HideBanner = true
	e.HidePort = true
	e.Debug = config.Debug
	e.HTTPErrorHandler = CustomHTTPErrorHandler

	e.Use(middleware.RequestID())
	e.Use(RequestContextMiddleware())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log := common.RequestLogger(v.Method, v.URI, v.RequestID).WithFields(map[string]interface{}{
				"status":  v.Status,
				"latency": v.Latency.String(),
			})
			if v.Error != nil {
				log.WithError(v.Error).Warn("request failed")
				return nil
			}
			log.Info("request")
			return nil
		},
	}))
	e.Use(middleware.Recover())

	if config.BodyLimit != "" {
		e.Use(middleware.BodyLimit(config.BodyLimit))
	}

	if len(config.AllowedOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: config.AllowedOrigins,
			AllowMethods: []string{
				http.MethodGet,
				http.MethodPost,
				http.MethodOptions,
			},
			AllowHeaders: []string{
				echo.HeaderOrigin,
				echo.HeaderContentType,
				echo.HeaderAccept,
				echo.HeaderAuthorization,
			},
		}))
	}

	e.Use(SecurityHeadersMiddleware())

	if config.RateLimit > 0 {
		e.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(
			rate.Limit(config.RateLimit),
		)))
	}

	return e
}

// RequestContextMiddleware copies the request id into the request context so
// that loggers further down can pick it up.
func RequestContextMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Response().Header().Get(echo.HeaderXRequestID)
			if id == "" {
				id = c.Request().Header.Get(echo.HeaderXRequestID)
			}
			if id != "" {
				req := c.Request()
				c.SetRequest(req.WithContext(common.WithRequestID(req.Context(), id)))
			}
			return next(c)
		}
	}
}

// HealthResponse represents a health check response
type HealthResponse struct {
	Status  string                 `json:"status"`
	Service string                 `json:"service,omitempty"`
	Version string                 `json:"version,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// HealthCheck reports the state of one dependency.
type HealthCheck func(ctx context.Context) error

// HealthCheckHandler reports healthy when every check passes and 503 otherwise.
func HealthCheckHandler(serviceName, version string, checks map[string]HealthCheck) echo.HandlerFunc {
	return func(c echo.Context) error {
		resp := HealthResponse{
			Status:  "healthy",
			Service: serviceName,
			Version: version,
		}
		code := http.StatusOK
		if len(checks) > 0 {
			resp.Details = make(map[string]interface{}, len(checks))
		}
		for name, check := range checks {
			if err := check(c.Request().Context()); err != nil {
				resp.Status = "unhealthy"
				resp.Details[name] = err.Error()
				code = http.StatusServiceUnavailable
				continue
			}
			resp.Details[name] = "ok"
		}
		return c.JSON(code, resp)
	}
}

// RegisterOperational adds /healthz and /metrics.
func RegisterOperational(e *echo.Echo, serviceName, version string, checks map[string]HealthCheck) {
	e.GET("/healthz", HealthCheckHandler(serviceName, version, checks))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// SecurityHeadersMiddleware adds security headers to responses
func SecurityHeadersMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Response().Header().Set("X-Content-Type-Options", "nosniff")
			c.Response().Header().Set("X-Frame-Options", "DENY")
			return next(c)
		}
	}
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Message string                 `json:"message,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// CustomHTTPErrorHandler renders every error as an ErrorResponse.
func CustomHTTPErrorHandler(err error, c echo.Context) {
	code := http.StatusInternalServerError
	message := err.Error()

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		message = fmt.Sprint(he.Message)
	}

	if c.Response().Committed {
		return
	}
	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, ErrorResponse{
			Error:   http.StatusText(code),
			Message: message,
		})
	}
	if err != nil {
		common.Logger.WithError(err).Error("failed to send error response")
	}
}
