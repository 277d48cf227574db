package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"ece-marketplace/internal/domain"
	"ece-marketplace/pkg/logger"

	"github.com/labstack/echo/v4"
)

type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func respond(c echo.Context, status int, data interface{}, message string) error {
	return c.JSON(status, Response{Success: true, Data: data, Message: message})
}

// StatusFor maps a service error onto an HTTP status.
func StatusFor(err error) int {
	switch domain.KindOf(err) {
	case domain.KindValidation, domain.KindInsufficientBalance, domain.KindInvalidState:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindAlreadyExists:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// fail writes the error envelope. Unexpected errors are logged and replaced
// with fallback so nothing internal reaches the client.
func fail(c echo.Context, log logger.Logger, err error, fallback string) error {
	status := StatusFor(err)
	message := fallback
	var derr *domain.Error
	if status != http.StatusInternalServerError && errors.As(err, &derr) {
		message = derr.Message
	} else {
		log.Error("Request failed", "method", c.Request().Method, "path", c.Path(),
			"request_id", c.Response().Header().Get(echo.HeaderXRequestID), "error", err)
	}
	return c.JSON(status, Response{Success: false, Error: message})
}

// ErrorHandler renders errors that escape handlers (routing, binding,
// middleware) in the same envelope.
func ErrorHandler(log logger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status := http.StatusInternalServerError
		message := "Internal server error"

		var he *echo.HTTPError
		if errors.As(err, &he) {
			status = he.Code
			if m, ok := he.Message.(string); ok {
				message = m
			} else {
				message = http.StatusText(status)
			}
		} else if domain.KindOf(err) != "" {
			_ = fail(c, log, err, message)
			return
		} else {
			log.Error("Unhandled error", "path", c.Path(), "error", err)
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(status)
			return
		}
		_ = c.JSON(status, Response{Success: false, Error: message})
	}
}

func queryInt(c echo.Context, name string, fallback int) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return domain.Validation("Invalid request body")
	}
	return c.Validate(req)
}
