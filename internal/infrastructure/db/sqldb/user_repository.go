package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/userhub/identity-service/internal/core/domain"
	"github.com/userhub/identity-service/internal/core/ports"
)

const userColumns = `id, role_id, username, password_hash, email, registration_date, language`

var _ ports.UserRepository = (*UserRepository)(nil)

// UserRepository provides data access for the users table using sqlx.
type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository { return &UserRepository{db: db} }

type userRow struct {
	ID               string `db:"id"`
	RoleID           int    `db:"role_id"`
	Username         string `db:"username"`
	PasswordHash     string `db:"password_hash"`
	Email            string `db:"email"`
	RegistrationDate int64  `db:"registration_date"`
	Language         string `db:"language"`
}

func (r userRow) toDomain() *domain.User {
	return &domain.User{
		ID:               r.ID,
		RoleID:           r.RoleID,
		Username:         r.Username,
		PasswordHash:     r.PasswordHash,
		Email:            r.Email,
		RegistrationDate: time.Unix(r.RegistrationDate, 0).UTC(),
		Language:         domain.Language(r.Language),
	}
}

// Create inserts a user. Duplicate id, username or email → domain.ErrUserExists.
func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	q := r.db.Rebind(`INSERT INTO users (` + userColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	_, err := r.db.ExecContext(ctx, q,
		u.ID, u.RoleID, u.Username, u.PasswordHash, u.Email, u.RegistrationDate.Unix(), string(u.Language))
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrUserExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// Update persists the mutable fields: password hash and language.
func (r *UserRepository) Update(ctx context.Context, u *domain.User) error {
	q := r.db.Rebind(`UPDATE users SET password_hash = ?, language = ? WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, q, u.PasswordHash, string(u.Language), u.ID)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return requireAffected(res, "update user")
}

// Delete removes the user. A missing id → domain.ErrUserNotFound.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM users WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return requireAffected(res, "delete user")
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.get(ctx, `username = ?`, username)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.get(ctx, `email = ?`, email)
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return r.get(ctx, `id = ?`, id)
}

// FindAll returns every user ordered by registration date.
func (r *UserRepository) FindAll(ctx context.Context) ([]*domain.User, error) {
	return r.selectUsers(ctx, `1 = 1`)
}

// FindByEmailSuffix matches emails ending with suffix; LIKE wildcards in
// suffix are taken literally.
func (r *UserRepository) FindByEmailSuffix(ctx context.Context, suffix string) ([]*domain.User, error) {
	return r.selectUsers(ctx, `email LIKE ? ESCAPE '\'`, "%"+escapeLike(suffix))
}

func (r *UserRepository) get(ctx context.Context, where string, args ...any) (*domain.User, error) {
	var row userRow
	q := r.db.Rebind(`SELECT ` + userColumns + ` FROM users WHERE ` + where)
	if err := r.db.GetContext(ctx, &row, q, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return row.toDomain(), nil
}

func (r *UserRepository) selectUsers(ctx context.Context, where string, args ...any) ([]*domain.User, error) {
	var rows []userRow
	q := r.db.Rebind(`SELECT ` + userColumns + ` FROM users WHERE ` + where + ` ORDER BY registration_date, id`)
	if err := r.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	users := make([]*domain.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.toDomain())
	}
	return users, nil
}

func requireAffected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
