package ports

import (
	"context"

	"github.com/userhub/identity-service/internal/core/domain"
)

// RegisterInput carries the registration form.
type RegisterInput struct {
	Username  string
	Password1 string
	Password2 string
	Email     string
	Language  string
}

// UpdateMeInput carries a self-service update. A request either changes the
// password (all three password fields set) or the language.
type UpdateMeInput struct {
	OldPassword string
	Password1   string
	Password2   string
	Language    string
}

// UpdateOutcome tells which branch of a self-service update was applied.
type UpdateOutcome int

const (
	PasswordChanged UpdateOutcome = iota + 1
	LanguageChanged
)

// UpdateMeResult is returned by a successful self-service update.
type UpdateMeResult struct {
	Outcome UpdateOutcome
	User    *domain.User
}

// LoginResult bundles the authenticated user with the issued token.
type LoginResult struct {
	User  *domain.User
	Token *IssuedToken
}

// UserList is the payload of the user listing. Detailed is true when the
// caller is an administrator and Users carries full records; otherwise only
// usernames should be exposed.
type UserList struct {
	Detailed bool
	Users    []*domain.User
}

// AccountService defines the identity use cases. Gated operations take the
// bearer token found in the caller's session.
type AccountService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
	Login(ctx context.Context, username, password string) (*LoginResult, error)
	Logout(ctx context.Context, token string) error

	Me(ctx context.Context, token string) (*domain.User, error)
	UpdateMe(ctx context.Context, token string, in UpdateMeInput) (*UpdateMeResult, error)
	DeleteMe(ctx context.Context, token string) (*domain.User, error)

	GetUser(ctx context.Context, id string) (*domain.User, error)
	DeleteUser(ctx context.Context, token, id string) (*domain.User, error)
	ListUsers(ctx context.Context, token string) (*UserList, error)

	GenerateTestUsers(ctx context.Context, token string, count int) (int, error)
	PurgeTestUsers(ctx context.Context, token string) (int, error)
}
