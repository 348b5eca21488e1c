package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/userhub/identity-service/internal/api/session"
	"github.com/userhub/identity-service/internal/core/domain"
)

// LoginRequired stops the request with domain.ErrLoginRequired when the
// session carries no bearer token. Only presence is checked here; whether
// the token is still valid is decided by the token service when the handler
// resolves the caller.
func LoginRequired() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if session.FromContext(c).Token() == "" {
				return domain.ErrLoginRequired
			}
			return next(c)
		}
	}
}
