package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/pesio-ai/be-plt-approvals/internal/database"
	"github.com/pesio-ai/be-plt-approvals/internal/errors"
)

// UserDirectoryRepository resolves users for approver assignment from the
// tenant-scoped users table.
type UserDirectoryRepository struct {
	db *database.DB
}

// NewUserDirectoryRepository creates a new UserDirectoryRepository.
func NewUserDirectoryRepository(db *database.DB) *UserDirectoryRepository {
	return &UserDirectoryRepository{db: db}
}

// FindUserByID returns the user with the given id within a tenant, or nil
// when no such user exists.
func (r *UserDirectoryRepository) FindUserByID(ctx context.Context, tenantID, userID string) (*User, error) {
	query := `
		SELECT id, tenant_id, name, email, roles
		FROM users
		WHERE id = $1 AND tenant_id = $2
	`

	u := &User{}
	err := r.db.QueryRow(ctx, query, userID, tenantID).Scan(
		&u.ID,
		&u.TenantID,
		&u.Name,
		&u.Email,
		&u.Roles,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to find user")
	}
	return u, nil
}

// FindUsersByRole returns all users in a tenant holding the given role.
func (r *UserDirectoryRepository) FindUsersByRole(ctx context.Context, tenantID, role string) ([]*User, error) {
	query := `
		SELECT id, tenant_id, name, email, roles
		FROM users
		WHERE tenant_id = $1 AND $2 = ANY(roles)
		ORDER BY name ASC
	`

	rows, err := r.db.Query(ctx, query, tenantID, role)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to find users by role")
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u := &User{}
		if err := rows.Scan(&u.ID, &u.TenantID, &u.Name, &u.Email, &u.Roles); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan user")
		}
		users = append(users, u)
	}
	return users, nil
}
