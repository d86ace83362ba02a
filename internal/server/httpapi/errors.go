package httpapi

import (
	"errors"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/labstack/echo/v4"

	"github.com/dmitrijs2005/teamboard/internal/common"
)

// statusFor maps a service error kind to an HTTP status. Unknown errors
// are internal.
func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrorValidation), errors.Is(err, common.ErrorBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrInvalidCredentials),
		errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrDecryption):
		return http.StatusUnauthorized
	case errors.Is(err, common.ErrorForbidden):
		return http.StatusForbidden
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrorConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// errorHandler renders every handler error as errorResponse JSON.
// Details of internal errors are logged, never returned.
func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	ctx := c.Request().Context()
	status := http.StatusInternalServerError
	body := errorResponse{Error: http.StatusText(status)}

	var (
		he   *echo.HTTPError
		verr validation.Errors
	)
	switch {
	case errors.As(err, &verr):
		status = http.StatusBadRequest
		body = errorResponse{Error: "validation failed", Details: verr}
	case errors.As(err, &he):
		status = he.Code
		body = errorResponse{Error: http.StatusText(status)}
		if msg, ok := he.Message.(string); ok && msg != "" {
			body.Error = msg
		}
	default:
		status = statusFor(err)
		if status == http.StatusInternalServerError {
			s.logger.Error(ctx, "request failed", "path", c.Path(), "error", err)
		} else {
			body = errorResponse{Error: err.Error()}
		}
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, body)
	}
	if err != nil {
		s.logger.Warn(ctx, "write error response", "error", err)
	}
}
