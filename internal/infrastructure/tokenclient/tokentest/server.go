// Package tokentest provides an in-process stand-in for the external token
// service. Tokens are HS256 JWTs carrying the user id as subject and the
// role as a claim; revoked tokens are remembered by their jti.
package tokentest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const secret = "tokentest-secret"

// Server is a fake token service. Set Fail to make every endpoint answer 500.
type Server struct {
	*httptest.Server

	Fail atomic.Bool

	mu      sync.Mutex
	revoked map[string]struct{}
	seq     atomic.Int64
}

// NewServer starts a fake token service. Callers must Close it.
func NewServer() *Server {
	s := &Server{revoked: make(map[string]struct{})}
	mux := http.NewServeMux()
	mux.HandleFunc("/token", s.issue)
	mux.HandleFunc("/user_id", s.claim("sub", "user_id"))
	mux.HandleFunc("/user_role", s.claim("role", "user_role"))
	mux.HandleFunc("/blacklist", s.blacklist)
	s.Server = httptest.NewServer(s.failing(mux))
	return s
}

// Sign mints a token the way /token does, for tests that need one directly.
func (s *Server) Sign(userID, role string) string {
	claims := jwt.MapClaims{
		"sub":  userID,
		"role": role,
		"jti":  fmt.Sprintf("jti-%d", s.seq.Add(1)),
		"iat":  time.Now().Unix(),
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		panic(err)
	}
	return signed
}

// Revoked reports whether token has been blacklisted.
func (s *Server) Revoked(token string) bool {
	claims, err := parse(token)
	if err != nil {
		return false
	}
	jti, _ := claims["jti"].(string)
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.revoked[jti]
	return ok
}

func (s *Server) failing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.Fail.Load() {
			http.Error(w, `{"msg":"internal error"}`, http.StatusInternalServerError)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) issue(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	role := r.URL.Query().Get("role")
	if userID == "" || role == "" {
		writeJSON(w, http.StatusBadRequest, `{"msg":"user_id and role are required"}`)
		return
	}
	writeJSON(w, http.StatusOK, fmt.Sprintf(`{"access_token":%q,"token_type":"bearer"}`, s.Sign(userID, role)))
}

func (s *Server) claim(claim, field string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := s.authorize(w, r)
		if !ok {
			return
		}
		v, _ := claims[claim].(string)
		writeJSON(w, http.StatusOK, fmt.Sprintf(`{%q:%q}`, field, v))
	}
}

func (s *Server) blacklist(w http.ResponseWriter, r *http.Request) {
	claims, ok := s.authorize(w, r)
	if !ok {
		return
	}
	jti, _ := claims["jti"].(string)
	s.mu.Lock()
	s.revoked[jti] = struct{}{}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, `{"msg":"Token revoked"}`)
}

func (s *Server) authorize(w http.ResponseWriter, r *http.Request) (jwt.MapClaims, bool) {
	header := r.Header.Get("Authorization")
	raw, found := strings.CutPrefix(header, "Bearer ")
	if !found || raw == "" {
		writeJSON(w, http.StatusUnauthorized, `{"msg":"Missing Authorization Header"}`)
		return nil, false
	}
	claims, err := parse(raw)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, fmt.Sprintf(`{"msg":%q}`, err.Error()))
		return nil, false
	}
	jti, _ := claims["jti"].(string)
	s.mu.Lock()
	_, revoked := s.revoked[jti]
	s.mu.Unlock()
	if revoked {
		writeJSON(w, http.StatusUnauthorized, `{"msg":"Token has been revoked"}`)
		return nil, false
	}
	return claims, true
}

func parse(raw string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	tkn, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !tkn.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
