package users

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tillpoint/tillpoint/internal/shared"
)

// Repository provides PostgreSQL backed persistence for staff accounts.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `id, organization_id, email, name, password_hash, role, COALESCE(department_id, 0), is_active, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.OrganizationID, &u.Email, &u.Name, &u.PasswordHash, &u.Role, &u.DepartmentID, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// List returns every account within a tenant ordered by name.
func (r *Repository) List(ctx context.Context, orgID int64) ([]User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users WHERE organization_id = $1 ORDER BY name`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.OrganizationID, &u.Email, &u.Name, &u.PasswordHash, &u.Role, &u.DepartmentID, &u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Get fetches an account inside a tenant.
func (r *Repository) Get(ctx context.Context, orgID, id int64) (*User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 AND organization_id = $2`, id, orgID))
}

// Create inserts an account. Duplicate emails surface as shared.ErrConflict.
func (r *Repository) Create(ctx context.Context, u *User) (*User, error) {
	created, err := scanUser(r.pool.QueryRow(ctx, `INSERT INTO users (organization_id, email, name, password_hash, role, department_id, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, NULLIF($6, 0), $7, NOW(), NOW())
RETURNING `+userColumns, u.OrganizationID, u.Email, u.Name, u.PasswordHash, u.Role, u.DepartmentID, u.IsActive))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, shared.ErrConflict
		}
		return nil, err
	}
	return created, nil
}

// Update persists mutable account fields.
func (r *Repository) Update(ctx context.Context, u *User) (*User, error) {
	updated, err := scanUser(r.pool.QueryRow(ctx, `UPDATE users
SET name = $1, role = $2, department_id = NULLIF($3, 0), is_active = $4, updated_at = NOW()
WHERE id = $5 AND organization_id = $6
RETURNING `+userColumns, u.Name, u.Role, u.DepartmentID, u.IsActive, u.ID, u.OrganizationID))
	if err != nil {
		return nil, err
	}
	return updated, nil
}
