package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/userhub/identity-service/internal/api/handler"
	"github.com/userhub/identity-service/internal/core/domain"
)

// statusUnauthenticated answers requests that carry no session credential.
const statusUnauthenticated = http.StatusTeapot

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps domain error kinds to this API's status codes.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders the response envelope: {"message": "...", "content": ...}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, body := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, body)
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, handler.Response) {
	var de *domain.Error
	if errors.As(err, &de) {
		if code, ok := statusFor(de.Kind); ok {
			return code, handler.Response{Message: de.Message, Content: de.Content}
		}
	}

	// Echo's own errors (unknown route, method not allowed, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, handler.Response{Message: fmt.Sprintf("%v", he.Message)}
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, handler.Response{Message: "Internal server error."}
}

// statusFor holds the wire contract; 418, 400 for conflicts and 401 for
// missing privileges are intentional.
func statusFor(kind error) (int, bool) {
	switch kind {
	case domain.ErrUnauthenticated:
		return statusUnauthenticated, true
	case domain.ErrInvalidToken,
		domain.ErrInvalidArgument,
		domain.ErrConflict:
		return http.StatusBadRequest, true
	case domain.ErrForbidden:
		return http.StatusUnauthorized, true
	case domain.ErrNotFound,
		domain.ErrInvalidCredentials:
		return http.StatusNotFound, true
	case domain.ErrAuthServiceUnavailable:
		return http.StatusServiceUnavailable, true
	}
	return 0, false
}
