package authz

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed persistence for permission data.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// RolePermissions returns the default grants for a role. An unknown role
// returns an empty slice, which resolves to an empty set downstream.
func (r *Repository) RolePermissions(ctx context.Context, role string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT permission FROM role_permissions WHERE role = $1 ORDER BY permission`, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var perms []string
	for rows.Next() {
		var perm string
		if err := rows.Scan(&perm); err != nil {
			return nil, err
		}
		perms = append(perms, perm)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return perms, nil
}

// UserOverrides returns the individual permission rows for a user.
func (r *Repository) UserOverrides(ctx context.Context, userID int64) ([]Override, error) {
	rows, err := r.pool.Query(ctx, `SELECT permission, granted FROM individual_permissions WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var overrides []Override
	for rows.Next() {
		var ov Override
		if err := rows.Scan(&ov.Permission, &ov.Granted); err != nil {
			return nil, err
		}
		overrides = append(overrides, ov)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return overrides, nil
}

// SetOverride upserts an individual permission override.
func (r *Repository) SetOverride(ctx context.Context, userID int64, perm string, granted bool) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO individual_permissions (user_id, permission, granted)
VALUES ($1, $2, $3)
ON CONFLICT (user_id, permission) DO UPDATE SET granted = EXCLUDED.granted`, userID, perm, granted)
	return err
}

// ClearOverride removes an individual permission override, restoring the
// role default for that permission.
func (r *Repository) ClearOverride(ctx context.Context, userID int64, perm string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM individual_permissions WHERE user_id = $1 AND permission = $2`, userID, perm)
	return err
}
