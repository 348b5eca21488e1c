// Package session carries the caller's bearer token between requests.
//
// The browser only holds an opaque session id in a cookie; the token itself
// lives server side in a Store. Middleware loads the session once per request
// and handlers reach it through FromContext.
package session

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/segmentio/ksuid"

	"github.com/userhub/identity-service/internal/core/domain"
)

const contextKey = "session"

// ErrUnavailable is matched by every error returned when the Store fails.
var ErrUnavailable = &domain.Error{
	Kind:    domain.ErrAuthServiceUnavailable,
	Message: "Session store unavailable, try again.",
}

// Store persists session id → bearer token mappings. Get returns an empty
// token and no error when the id is unknown or expired.
type Store interface {
	Get(ctx context.Context, id string) (string, error)
	Set(ctx context.Context, id, token string, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

// Options configures the session cookie.
type Options struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
}

func (o Options) withDefaults() Options {
	if o.CookieName == "" {
		o.CookieName = "session"
	}
	if o.TTL <= 0 {
		o.TTL = 24 * time.Hour
	}
	return o
}

// Session is the per-request view of the caller's session.
type Session struct {
	store Store
	opts  Options
	id    string
	token string
}

// Token returns the bearer token bound to the session, or "" when the caller
// is not logged in.
func (s *Session) Token() string {
	if s == nil {
		return ""
	}
	return s.token
}

// Start binds token to a fresh session id and sends the cookie. Any previous
// session of the caller is dropped.
func (s *Session) Start(c echo.Context, token string) error {
	ctx := c.Request().Context()
	if s.id != "" {
		if err := s.store.Delete(ctx, s.id); err != nil {
			return fmt.Errorf("%w: drop previous: %w", ErrUnavailable, err)
		}
	}

	id := ksuid.New().String()
	if err := s.store.Set(ctx, id, token, s.opts.TTL); err != nil {
		return fmt.Errorf("%w: save: %w", ErrUnavailable, err)
	}
	s.id, s.token = id, token

	c.SetCookie(&http.Cookie{
		Name:     s.opts.CookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(s.opts.TTL / time.Second),
		HttpOnly: true,
		Secure:   s.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Clear forgets the token and expires the cookie.
func (s *Session) Clear(c echo.Context) error {
	if s.id != "" {
		if err := s.store.Delete(c.Request().Context(), s.id); err != nil {
			return fmt.Errorf("%w: delete: %w", ErrUnavailable, err)
		}
	}
	s.id, s.token = "", ""

	c.SetCookie(&http.Cookie{
		Name:     s.opts.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Middleware loads the session named by the request cookie into the echo
// context. A missing, unknown or expired id yields an empty session. Attach
// it only to routes that read the session, so that public routes keep
// working while the store is down.
func Middleware(store Store, opts Options) echo.MiddlewareFunc {
	opts = opts.withDefaults()
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			s := &Session{store: store, opts: opts}
			if cookie, err := c.Cookie(opts.CookieName); err == nil && cookie.Value != "" {
				token, err := store.Get(c.Request().Context(), cookie.Value)
				if err != nil {
					return fmt.Errorf("%w: load: %w", ErrUnavailable, err)
				}
				if token != "" {
					s.id, s.token = cookie.Value, token
				}
			}
			c.Set(contextKey, s)
			return next(c)
		}
	}
}

// FromContext returns the session loaded by Middleware, or nil when the
// middleware did not run. A nil *Session reports an empty Token.
func FromContext(c echo.Context) *Session {
	s, _ := c.Get(contextKey).(*Session)
	return s
}
