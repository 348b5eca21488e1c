package service

import (
	"strings"

	"github.com/userhub/identity-service/internal/core/domain"
)

// RequiresRole is the authorization policy: it returns nil when a caller
// holding resolved may perform an operation that requires required, and a
// domain.ErrForbidden error otherwise. An empty requirement always allows.
func RequiresRole(resolved, required string) error {
	if required == "" || resolved == required {
		return nil
	}
	if required == domain.RoleAdmin {
		return domain.ErrAdminRequired
	}
	return &domain.Error{
		Kind:    domain.ErrForbidden,
		Message: titleCase(required) + " privileges required.",
	}
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
