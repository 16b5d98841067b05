package org

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tillpoint/tillpoint/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// CreateOrganization inserts a new tenant. A duplicate slug surfaces as
// shared.ErrConflict.
func (r *Repository) CreateOrganization(ctx context.Context, name, slug string) (*Organization, error) {
	var o Organization
	err := r.pool.QueryRow(ctx, `INSERT INTO organizations (name, slug, status, created_at, updated_at)
VALUES ($1, $2, $3, NOW(), NOW())
RETURNING id, name, slug, status, created_at, updated_at`, name, slug, StatusActive).
		Scan(&o.ID, &o.Name, &o.Slug, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, shared.ErrConflict
		}
		return nil, err
	}
	return &o, nil
}

// GetOrganization fetches a tenant by id.
func (r *Repository) GetOrganization(ctx context.Context, id int64) (*Organization, error) {
	var o Organization
	err := r.pool.QueryRow(ctx, `SELECT id, name, slug, status, created_at, updated_at FROM organizations WHERE id = $1`, id).
		Scan(&o.ID, &o.Name, &o.Slug, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

// CreateDepartment inserts a department within a tenant.
func (r *Repository) CreateDepartment(ctx context.Context, orgID int64, name string) (*Department, error) {
	var d Department
	err := r.pool.QueryRow(ctx, `INSERT INTO departments (organization_id, name, created_at)
VALUES ($1, $2, NOW())
RETURNING id, organization_id, name, created_at`, orgID, name).
		Scan(&d.ID, &d.OrganizationID, &d.Name, &d.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, shared.ErrConflict
		}
		return nil, err
	}
	return &d, nil
}

// ListDepartments returns the departments of a tenant ordered by name.
func (r *Repository) ListDepartments(ctx context.Context, orgID int64) ([]Department, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, organization_id, name, created_at FROM departments WHERE organization_id = $1 ORDER BY name`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var departments []Department
	for rows.Next() {
		var d Department
		if err := rows.Scan(&d.ID, &d.OrganizationID, &d.Name, &d.CreatedAt); err != nil {
			return nil, err
		}
		departments = append(departments, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return departments, nil
}

// DeleteDepartment removes a department inside the tenant. Missing rows
// surface as shared.ErrNotFound.
func (r *Repository) DeleteDepartment(ctx context.Context, orgID, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM departments WHERE id = $1 AND organization_id = $2`, id, orgID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
