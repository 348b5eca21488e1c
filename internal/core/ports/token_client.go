package ports

import "context"

// IssuedToken is what the token service hands back on login. Fields holds
// the complete response body, AccessToken included.
type IssuedToken struct {
	AccessToken string
	Fields      map[string]any
}

// TokenClient talks to the external token service. Errors are domain errors:
// ErrInvalidToken when the service rejects the credential and
// ErrAuthServiceUnavailable when the service could not be reached or failed.
type TokenClient interface {
	Issue(ctx context.Context, userID, role string) (*IssuedToken, error)
	ResolveIdentity(ctx context.Context, token string) (string, error)
	ResolveRole(ctx context.Context, token string) (string, error)
	Blacklist(ctx context.Context, token string) error
}
