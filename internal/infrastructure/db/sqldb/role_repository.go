package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/userhub/identity-service/internal/core/domain"
	"github.com/userhub/identity-service/internal/core/ports"
)

var _ ports.RoleRepository = (*RoleRepository)(nil)

// RoleRepository provides data access for the roles table.
type RoleRepository struct {
	db *sqlx.DB
}

func NewRoleRepository(db *sqlx.DB) *RoleRepository { return &RoleRepository{db: db} }

func (r *RoleRepository) Create(ctx context.Context, role *domain.Role) error {
	q := r.db.Rebind(`INSERT INTO roles (id, name) VALUES (?, ?)`)
	if _, err := r.db.ExecContext(ctx, q, role.ID, role.Name); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrRoleExists
		}
		return fmt.Errorf("insert role: %w", err)
	}
	return nil
}

func (r *RoleRepository) FindByID(ctx context.Context, id int) (*domain.Role, error) {
	return r.get(ctx, `id = ?`, id)
}

func (r *RoleRepository) FindByName(ctx context.Context, name string) (*domain.Role, error) {
	return r.get(ctx, `name = ?`, name)
}

func (r *RoleRepository) get(ctx context.Context, where string, arg any) (*domain.Role, error) {
	var role domain.Role
	q := r.db.Rebind(`SELECT id, name FROM roles WHERE ` + where)
	if err := r.db.QueryRowxContext(ctx, q, arg).Scan(&role.ID, &role.Name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find role: %w", err)
	}
	return &role, nil
}
