// Package tokenclient is the HTTP adapter for the external token service.
//
// The service exposes four GET endpoints:
//
//	/token?user_id=<id>&role=<role>    issue a token
//	/user_id                           identity behind the bearer token
//	/user_role                         role behind the bearer token
//	/blacklist                         revoke the bearer token
package tokenclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/userhub/identity-service/internal/core/domain"
	"github.com/userhub/identity-service/internal/core/ports"
)

const (
	defaultTimeout = 5 * time.Second
	maxBodyBytes   = 1 << 20
)

var _ ports.TokenClient = (*Client)(nil)

// Client calls the token service over HTTP. Every call is bounded by the
// configured timeout; expiry is reported as domain.ErrAuthServiceUnavailable.
type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

// New returns a Client for the token service at baseURL. A default timeout
// is applied when none is provided.
func New(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}
}

// Issue asks for a token bound to userID and role. All fields of the answer
// are kept so they can be handed to the client unchanged.
func (c *Client) Issue(ctx context.Context, userID, role string) (*ports.IssuedToken, error) {
	q := url.Values{"user_id": {userID}, "role": {role}}
	body, err := c.get(ctx, "issue", "/token?"+q.Encode(), "")
	if err != nil {
		return nil, err
	}
	token := stringField(body, "access_token")
	if token == "" {
		return nil, c.unavailable("issue", fmt.Errorf("response carries no access_token"))
	}
	return &ports.IssuedToken{AccessToken: token, Fields: body}, nil
}

// ResolveIdentity returns the user id the token was issued for.
func (c *Client) ResolveIdentity(ctx context.Context, token string) (string, error) {
	return c.resolve(ctx, "resolve_identity", "/user_id", "user_id", token)
}

// ResolveRole returns the role name the token was issued with.
func (c *Client) ResolveRole(ctx context.Context, token string) (string, error) {
	return c.resolve(ctx, "resolve_role", "/user_role", "user_role", token)
}

// Blacklist revokes the token. Any failure, including a rejected token, is
// reported as domain.ErrAuthServiceUnavailable so the caller retries instead
// of dropping a token that may still be valid.
func (c *Client) Blacklist(ctx context.Context, token string) error {
	if _, err := c.get(ctx, "blacklist", "/blacklist", token); err != nil {
		if _, ok := err.(*unavailableError); ok {
			return err
		}
		return c.unavailable("blacklist", fmt.Errorf("token rejected: %s", err.Error()))
	}
	return nil
}

func (c *Client) resolve(ctx context.Context, op, path, field, token string) (string, error) {
	body, err := c.get(ctx, op, path, token)
	if err != nil {
		return "", err
	}
	v := stringField(body, field)
	if v == "" {
		requestsTotal.WithLabelValues(op, outcomeInvalidToken).Inc()
		return "", domain.InvalidToken(body)
	}
	return v, nil
}

// get performs the request and decodes a JSON object body. 401, 403 and 422
// mean the token was refused; any other non-2xx status, transport error or
// timeout means the service is unavailable.
func (c *Client) get(ctx context.Context, op, path, token string) (map[string]any, error) {
	start := time.Now()
	defer func() {
		requestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, c.unavailable(op, err)
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.unavailable(op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, c.unavailable(op, err)
	}
	var body map[string]any
	decodeErr := json.Unmarshal(raw, &body)

	switch {
	case resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusForbidden,
		resp.StatusCode == http.StatusUnprocessableEntity:
		requestsTotal.WithLabelValues(op, outcomeInvalidToken).Inc()
		if decodeErr != nil {
			return nil, domain.InvalidToken(map[string]any{"msg": strings.TrimSpace(string(raw))})
		}
		return nil, domain.InvalidToken(body)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, c.unavailable(op, fmt.Errorf("unexpected status %d", resp.StatusCode))
	case decodeErr != nil && len(raw) > 0:
		return nil, c.unavailable(op, fmt.Errorf("decode response: %w", decodeErr))
	}

	requestsTotal.WithLabelValues(op, outcomeOK).Inc()
	if body == nil {
		body = map[string]any{}
	}
	return body, nil
}

func (c *Client) unavailable(op string, cause error) error {
	requestsTotal.WithLabelValues(op, outcomeUnavailable).Inc()
	c.log.Warn().Err(cause).Str("operation", op).Msg("token service call failed")
	return &unavailableError{op: op, cause: cause}
}

// unavailableError matches domain.ErrTokenService (and so
// domain.ErrAuthServiceUnavailable) while keeping the cause for logs.
type unavailableError struct {
	op    string
	cause error
}

func (e *unavailableError) Error() string {
	return fmt.Sprintf("token service %s: %v", e.op, e.cause)
}

func (e *unavailableError) Unwrap() []error {
	return []error{domain.ErrTokenService, e.cause}
}

// stringField reads a string or numeric field; ids may come back as numbers.
func stringField(body map[string]any, key string) string {
	switch v := body[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}
