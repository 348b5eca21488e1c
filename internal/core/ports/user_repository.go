package ports

import (
	"context"

	"github.com/userhub/identity-service/internal/core/domain"
)

// UserRepository is the identity store for users. Lookups return (nil, nil)
// when nothing matches. Create and Update return domain.ErrConflict when the
// username or email uniqueness constraint would be violated.
type UserRepository interface {
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindAll(ctx context.Context) ([]*domain.User, error)
	// FindByEmailSuffix returns every user whose email ends with suffix.
	FindByEmailSuffix(ctx context.Context, suffix string) ([]*domain.User, error)
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	Delete(ctx context.Context, id string) error
}

// RoleRepository is the identity store for roles.
type RoleRepository interface {
	FindByID(ctx context.Context, id int) (*domain.Role, error)
	FindByName(ctx context.Context, name string) (*domain.Role, error)
	Create(ctx context.Context, role *domain.Role) error
}
