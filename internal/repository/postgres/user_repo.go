// internal/repository/postgres/user_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"

	"workdesk-service/internal/domain/auth"
	xerrors "workdesk-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepository is the production user directory.
type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

// FindByUsername retrieves a user with its role and explicit permission set.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*auth.Account, error) {
	query := `
		SELECT u.id, u.username, u.password_hash,
		       u.display_name, u.display_name_ar, u.is_active,
		       u.created_at, u.updated_at,
		       r.id, r.name, r.level, r.permissions
		FROM users u
		JOIN roles r ON r.id = u.role_id
		WHERE LOWER(u.username) = LOWER($1) AND u.deleted_at IS NULL
	`

	var account auth.Account
	err := r.db.QueryRow(ctx, query, username).Scan(
		&account.User.ID, &account.User.Username, &account.PasswordHash,
		&account.User.DisplayName, &account.User.DisplayNameAr, &account.User.IsActive,
		&account.User.CreatedAt, &account.User.UpdatedAt,
		&account.User.Role.ID, &account.User.Role.Name, &account.User.Role.Level,
		&account.User.Role.Permissions,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	permissions, err := r.findPermissions(ctx, account.User.ID)
	if err != nil {
		return nil, err
	}
	account.User.Permissions = permissions

	return &account, nil
}

func (r *UserRepository) findPermissions(ctx context.Context, userID string) ([]auth.Permission, error) {
	query := `
		SELECT resource, action
		FROM user_permissions
		WHERE user_id = $1
		ORDER BY resource, action
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query permissions: %w", err)
	}
	defer rows.Close()

	var permissions []auth.Permission
	for rows.Next() {
		var p auth.Permission
		if err := rows.Scan(&p.Resource, &p.Action); err != nil {
			return nil, fmt.Errorf("failed to scan permission: %w", err)
		}
		permissions = append(permissions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read permissions: %w", err)
	}

	return permissions, nil
}
