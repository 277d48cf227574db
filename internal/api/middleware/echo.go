package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"ece-marketplace/pkg/logger"

	"github.com/labstack/echo/v4"
)

// RequestLogger logs one line per request once the handler has run.
func RequestLogger(log logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			req := c.Request()
			log.Info("Request handled",
				"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
				"method", req.Method,
				"path", req.URL.Path,
				"status", c.Response().Status,
				"remote_addr", c.RealIP(),
				"latency", time.Since(start).String())
			return err
		}
	}
}

// AdminAuth requires "Authorization: Bearer <token>". An empty token rejects
// every request.
func AdminAuth(token string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			given := strings.TrimPrefix(header, "Bearer ")
			if token == "" || given == header ||
				subtle.ConstantTimeCompare([]byte(given), []byte(token)) != 1 {
				return c.JSON(http.StatusUnauthorized, map[string]interface{}{
					"success": false,
					"error":   "Unauthorized - Admin access required",
				})
			}
			return next(c)
		}
	}
}
