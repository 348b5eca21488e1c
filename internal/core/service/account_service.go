package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/userhub/identity-service/internal/core/domain"
	"github.com/userhub/identity-service/internal/core/ports"
)

// ErrDeletedNotLoggedOut is returned by DeleteMe when the account was removed
// but its token could not be blacklisted.
var ErrDeletedNotLoggedOut = &domain.Error{
	Kind:    domain.ErrAuthServiceUnavailable,
	Message: "User deleted, but logout failed, try logging out again.",
}

// ErrPasswordTooLong is returned when a password exceeds what bcrypt hashes.
var ErrPasswordTooLong = &domain.Error{
	Kind:    domain.ErrInvalidArgument,
	Message: "Password is too long.",
}

// AccountService implements the identity use cases.
type AccountService struct {
	users    ports.UserRepository
	roles    ports.RoleRepository
	tokens   ports.TokenClient
	hashCost int
	log      zerolog.Logger
}

func NewAccountService(
	users ports.UserRepository,
	roles ports.RoleRepository,
	tokens ports.TokenClient,
	hashCost int,
	log zerolog.Logger,
) *AccountService {
	if hashCost < bcrypt.MinCost || hashCost > bcrypt.MaxCost {
		hashCost = bcrypt.DefaultCost
	}
	return &AccountService{
		users:    users,
		roles:    roles,
		tokens:   tokens,
		hashCost: hashCost,
		log:      log,
	}
}

// Register validates the form and creates a non-privileged user. Rules are
// checked in a fixed order and the first failing one is reported.
func (s *AccountService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	switch {
	case in.Username == "":
		return nil, domain.ErrBlankUsername
	case in.Password1 == "":
		return nil, domain.ErrBlankPassword
	case in.Password1 != in.Password2:
		return nil, domain.ErrPasswordsMismatch
	case !domain.ValidEmail(in.Email):
		return nil, domain.ErrInvalidEmail
	}

	byEmail, err := s.users.FindByEmail(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	if byEmail != nil {
		return nil, domain.ErrEmailTaken
	}
	byName, err := s.users.FindByUsername(ctx, in.Username)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	if byName != nil {
		return nil, domain.ErrUsernameTaken
	}

	hash, err := s.hash(in.Password1)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	user := domain.NewUser(domain.NewUserParams{
		Username:     in.Username,
		PasswordHash: hash,
		Email:        in.Email,
		Language:     in.Language,
	})

	// The store has the final say on uniqueness: a concurrent registration
	// may have won since the checks above.
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, domain.ErrUserExists
		}
		return nil, fmt.Errorf("register: %w", err)
	}

	s.log.Info().Str("user_id", user.ID).Str("username", user.Username).Msg("user registered")
	return user, nil
}

// Login verifies the credentials and asks the token service for a token.
// Unknown usernames and wrong passwords are indistinguishable to the caller.
func (s *AccountService) Login(ctx context.Context, username, password string) (*ports.LoginResult, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, domain.ErrBadLogin
	}

	role, err := s.roles.FindByID(ctx, user.RoleID)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if role == nil {
		return nil, fmt.Errorf("login: role %d of user %s does not exist", user.RoleID, user.ID)
	}

	token, err := s.tokens.Issue(ctx, user.ID, role.Name)
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("user_id", user.ID).Str("role", role.Name).Msg("user logged in")
	return &ports.LoginResult{User: user, Token: token}, nil
}

// Logout blacklists the token. The caller must keep its session when this
// fails so the token is not forgotten locally while still valid remotely.
func (s *AccountService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return domain.ErrLoginRequired
	}
	if err := s.tokens.Blacklist(ctx, token); err != nil {
		s.log.Warn().Err(err).Msg("logout: blacklist failed")
		if errors.Is(err, domain.ErrAuthServiceUnavailable) {
			return domain.ErrTokenService
		}
		return err
	}
	return nil
}

// Me returns the caller's own record.
func (s *AccountService) Me(ctx context.Context, token string) (*domain.User, error) {
	return s.caller(ctx, token)
}

// UpdateMe changes either the caller's password or language. When the three
// password fields are all present the password branch is taken and any
// language value is ignored.
func (s *AccountService) UpdateMe(ctx context.Context, token string, in ports.UpdateMeInput) (*ports.UpdateMeResult, error) {
	user, err := s.caller(ctx, token)
	if err != nil {
		return nil, err
	}

	switch {
	case in.OldPassword != "" && in.Password1 != "" && in.Password2 != "":
		if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.OldPassword)) != nil ||
			in.Password1 != in.Password2 {
			return nil, domain.ErrOldPasswordInvalid
		}
		hash, err := s.hash(in.Password1)
		if err != nil {
			return nil, fmt.Errorf("update me: %w", err)
		}
		user.PasswordHash = hash
		if err := s.users.Update(ctx, user); err != nil {
			return nil, fmt.Errorf("update me: %w", err)
		}
		s.log.Info().Str("user_id", user.ID).Msg("password changed")
		return &ports.UpdateMeResult{Outcome: ports.PasswordChanged, User: user}, nil

	case in.Language != "":
		lang, err := domain.ParseLanguage(in.Language)
		if err != nil {
			return nil, err
		}
		user.Language = lang
		if err := s.users.Update(ctx, user); err != nil {
			return nil, fmt.Errorf("update me: %w", err)
		}
		s.log.Info().Str("user_id", user.ID).Str("language", string(lang)).Msg("language changed")
		return &ports.UpdateMeResult{Outcome: ports.LanguageChanged, User: user}, nil
	}

	return nil, domain.ErrUpdateArguments
}

// DeleteMe removes the caller's account and then logs the caller out. The
// two steps are independent: a failed logout does not restore the account.
func (s *AccountService) DeleteMe(ctx context.Context, token string) (*domain.User, error) {
	user, err := s.caller(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := s.users.Delete(ctx, user.ID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("delete me: %w", err)
	}
	s.log.Info().Str("user_id", user.ID).Str("username", user.Username).Msg("user deleted own account")

	if err := s.tokens.Blacklist(ctx, token); err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("delete me: blacklist failed")
		return user, ErrDeletedNotLoggedOut
	}
	return user, nil
}

// GetUser is the public lookup by id.
func (s *AccountService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

// DeleteUser removes any account. Admin only; a missing target is reported
// as an invalid argument rather than not-found.
func (s *AccountService) DeleteUser(ctx context.Context, token, id string) (*domain.User, error) {
	if err := s.requireRole(ctx, token, domain.RoleAdmin); err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("delete user: %w", err)
	}
	if user == nil {
		return nil, domain.ErrNoSuchUser
	}
	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNoSuchUser
		}
		return nil, fmt.Errorf("delete user: %w", err)
	}

	s.log.Info().Str("user_id", user.ID).Str("username", user.Username).Msg("user deleted by admin")
	return user, nil
}

// ListUsers returns every user. Detailed is set only for administrators.
func (s *AccountService) ListUsers(ctx context.Context, token string) (*ports.UserList, error) {
	users, err := s.users.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	role, err := s.tokens.ResolveRole(ctx, token)
	if err != nil {
		return nil, err
	}
	return &ports.UserList{
		Detailed: RequiresRole(role, domain.RoleAdmin) == nil,
		Users:    users,
	}, nil
}

// caller resolves the session token to the stored user.
func (s *AccountService) caller(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, domain.ErrLoginRequired
	}
	id, err := s.tokens.ResolveIdentity(ctx, token)
	if err != nil {
		return nil, err
	}
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("resolve caller: %w", err)
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

func (s *AccountService) requireRole(ctx context.Context, token, required string) error {
	if token == "" {
		return domain.ErrLoginRequired
	}
	role, err := s.tokens.ResolveRole(ctx, token)
	if err != nil {
		return err
	}
	return RequiresRole(role, required)
}

func (s *AccountService) hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", ErrPasswordTooLong
	}
	if err != nil {
		return "", err
	}
	return string(b), nil
}
