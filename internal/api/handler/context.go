package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/userhub/identity-service/internal/api/session"
	"github.com/userhub/identity-service/internal/core/domain"
)

// sessionToken returns the bearer token of the caller's session and performs
// the same fast-fail presence check as the LoginRequired gate, so a handler
// mounted without the gate still never calls the service anonymously.
func sessionToken(c echo.Context) (string, error) {
	token := session.FromContext(c).Token()
	if token == "" {
		return "", domain.ErrLoginRequired
	}
	return token, nil
}
