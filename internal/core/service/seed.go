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

const (
	AdminUserID   = "0"
	AdminUsername = "admin"
	AdminEmail    = "admin@admin.com"
)

// SeedOptions configures the baseline records created at startup.
type SeedOptions struct {
	AdminPassword string
	HashCost      int
}

// Seed creates the ADMIN and USER roles and the admin account. Records that
// already exist are left untouched, so Seed can run on every startup.
func Seed(ctx context.Context, roles ports.RoleRepository, users ports.UserRepository, opts SeedOptions, log zerolog.Logger) error {
	for _, role := range []domain.Role{
		{ID: domain.AdminRoleID, Name: domain.RoleAdmin},
		{ID: domain.UserRoleID, Name: domain.RoleUser},
	} {
		if err := roles.Create(ctx, &role); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				log.Debug().Str("role", role.Name).Msg("seed: role already present")
				continue
			}
			return fmt.Errorf("seed role %s: %w", role.Name, err)
		}
		log.Info().Str("role", role.Name).Int("role_id", role.ID).Msg("seed: role created")
	}

	password := opts.AdminPassword
	if password == "" {
		password = AdminUsername
	}
	cost := opts.HashCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	admin := domain.NewUser(domain.NewUserParams{
		ID:           AdminUserID,
		RoleID:       domain.AdminRoleID,
		Username:     AdminUsername,
		PasswordHash: string(hash),
		Email:        AdminEmail,
	})
	if err := users.Create(ctx, admin); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			log.Debug().Msg("seed: admin already present")
			return nil
		}
		return fmt.Errorf("seed admin: %w", err)
	}
	log.Info().Str("user_id", admin.ID).Msg("seed: admin created")
	return nil
}
