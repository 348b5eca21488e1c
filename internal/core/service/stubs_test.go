package service

import (
	"context"
	"strings"
	"sync"

	"github.com/userhub/identity-service/internal/core/domain"
	"github.com/userhub/identity-service/internal/core/ports"
)

// ---------------------------------------------------------------------------
// Identity store stubs
// ---------------------------------------------------------------------------

type stubUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User

	// createErr, when set, is returned by Create without storing anything.
	createErr error
	creates   int
	updates   int
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[string]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

func (r *stubUserRepo) find(match func(*domain.User) bool) *domain.User {
	for _, u := range r.users {
		if match(u) {
			return cloneUser(u)
		}
	}
	return nil
}

func (r *stubUserRepo) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.find(func(u *domain.User) bool { return u.Username == username }), nil
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.find(func(u *domain.User) bool { return u.Email == email }), nil
}

func (r *stubUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneUser(r.users[id]), nil
}

func (r *stubUserRepo) FindAll(_ context.Context) ([]*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, cloneUser(u))
	}
	return out, nil
}

func (r *stubUserRepo) FindByEmailSuffix(_ context.Context, suffix string) ([]*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.User
	for _, u := range r.users {
		if strings.HasSuffix(u.Email, suffix) {
			out = append(out, cloneUser(u))
		}
	}
	return out, nil
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creates++
	if r.createErr != nil {
		return r.createErr
	}
	for _, u := range r.users {
		if u.ID == user.ID || u.Username == user.Username || u.Email == user.Email {
			return domain.ErrUserExists
		}
	}
	r.users[user.ID] = cloneUser(user)
	return nil
}

func (r *stubUserRepo) Update(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return domain.ErrUserNotFound
	}
	r.updates++
	r.users[user.ID] = cloneUser(user)
	return nil
}

func (r *stubUserRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return domain.ErrUserNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *stubUserRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}

type stubRoleRepo struct {
	roles map[int]*domain.Role
}

func newStubRoleRepo() *stubRoleRepo {
	return &stubRoleRepo{roles: map[int]*domain.Role{
		domain.AdminRoleID: {ID: domain.AdminRoleID, Name: domain.RoleAdmin},
		domain.UserRoleID:  {ID: domain.UserRoleID, Name: domain.RoleUser},
	}}
}

func (r *stubRoleRepo) FindByID(_ context.Context, id int) (*domain.Role, error) {
	role, ok := r.roles[id]
	if !ok {
		return nil, nil
	}
	clone := *role
	return &clone, nil
}

func (r *stubRoleRepo) FindByName(_ context.Context, name string) (*domain.Role, error) {
	for _, role := range r.roles {
		if role.Name == name {
			clone := *role
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *stubRoleRepo) Create(_ context.Context, role *domain.Role) error {
	for _, existing := range r.roles {
		if existing.ID == role.ID || existing.Name == role.Name {
			return domain.ErrRoleExists
		}
	}
	clone := *role
	r.roles[role.ID] = &clone
	return nil
}

// ---------------------------------------------------------------------------
// Token service stub
// ---------------------------------------------------------------------------

type session struct {
	userID string
	role   string
}

type stubTokens struct {
	mu          sync.Mutex
	live        map[string]session
	blacklisted []string

	issueErr     error
	resolveErr   error
	blacklistErr error
}

func newStubTokens() *stubTokens {
	return &stubTokens{live: make(map[string]session)}
}

// grant registers token as a live credential for userID/role.
func (s *stubTokens) grant(token, userID, role string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.live[token] = session{userID: userID, role: role}
	return token
}

func (s *stubTokens) Issue(_ context.Context, userID, role string) (*ports.IssuedToken, error) {
	if s.issueErr != nil {
		return nil, s.issueErr
	}
	token := s.grant("tok-"+userID, userID, role)
	return &ports.IssuedToken{
		AccessToken: token,
		Fields:      map[string]any{"access_token": token},
	}, nil
}

func (s *stubTokens) lookup(token string) (session, error) {
	if s.resolveErr != nil {
		return session{}, s.resolveErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.live[token]
	if !ok {
		return session{}, domain.InvalidToken(map[string]any{"msg": "Token has been revoked"})
	}
	return sess, nil
}

func (s *stubTokens) ResolveIdentity(_ context.Context, token string) (string, error) {
	sess, err := s.lookup(token)
	return sess.userID, err
}

func (s *stubTokens) ResolveRole(_ context.Context, token string) (string, error) {
	sess, err := s.lookup(token)
	return sess.role, err
}

func (s *stubTokens) Blacklist(_ context.Context, token string) error {
	if s.blacklistErr != nil {
		return s.blacklistErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.live, token)
	s.blacklisted = append(s.blacklisted, token)
	return nil
}
