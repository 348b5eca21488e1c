package handler

import (
	"github.com/userhub/identity-service/internal/api/metrics"
	"github.com/userhub/identity-service/internal/core/domain"
)

// record counts one account operation under its outcome.
func record(op string, err error) {
	metrics.AccountOperationsTotal.WithLabelValues(op, resultLabel(err)).Inc()
}

func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	switch domain.KindOf(err) {
	case domain.ErrUnauthenticated:
		return "unauthenticated"
	case domain.ErrInvalidToken:
		return "invalid_token"
	case domain.ErrForbidden:
		return "forbidden"
	case domain.ErrInvalidArgument:
		return "invalid_argument"
	case domain.ErrConflict:
		return "conflict"
	case domain.ErrNotFound:
		return "not_found"
	case domain.ErrInvalidCredentials:
		return "invalid_credentials"
	case domain.ErrAuthServiceUnavailable:
		return "auth_service_unavailable"
	default:
		return "error"
	}
}
