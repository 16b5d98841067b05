package masterdata

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tillpoint/tillpoint/internal/authz"
	"github.com/tillpoint/tillpoint/internal/shared"
)

// Repository provides PostgreSQL backed persistence for customers and
// suppliers.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// scopeClause translates a visibility scope into a WHERE fragment. $1 is
// always the tenant id; extra args start at $2.
func scopeClause(scope authz.Scope) (string, []any) {
	switch scope.Kind {
	case authz.ScopeDepartment:
		return " AND (created_by = $2 OR creator_dept_id = $3)", []any{scope.UserID, scope.DepartmentID}
	case authz.ScopeOwn:
		return " AND created_by = $2", []any{scope.UserID}
	default:
		return "", nil
	}
}

const customerColumns = `id, organization_id, name, phone, email, address, credit_balance, created_by, COALESCE(creator_dept_id, 0), created_at, updated_at`

func scanCustomer(row pgx.Row) (*Customer, error) {
	var c Customer
	err := row.Scan(&c.ID, &c.OrganizationID, &c.Name, &c.Phone, &c.Email, &c.Address, &c.CreditBalance, &c.CreatedBy, &c.CreatorDeptID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// ListCustomers returns the customers visible under scope, newest first.
func (r *Repository) ListCustomers(ctx context.Context, orgID int64, scope authz.Scope) ([]Customer, error) {
	clause, extra := scopeClause(scope)
	query := fmt.Sprintf(`SELECT %s FROM customers WHERE organization_id = $1%s ORDER BY created_at DESC`, customerColumns, clause)
	rows, err := r.pool.Query(ctx, query, append([]any{orgID}, extra...)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Customer
	for rows.Next() {
		var c Customer
		if err := rows.Scan(&c.ID, &c.OrganizationID, &c.Name, &c.Phone, &c.Email, &c.Address, &c.CreditBalance, &c.CreatedBy, &c.CreatorDeptID, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetCustomer fetches a customer inside a tenant.
func (r *Repository) GetCustomer(ctx context.Context, orgID, id int64) (*Customer, error) {
	return scanCustomer(r.pool.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1 AND organization_id = $2`, id, orgID))
}

// CreateCustomer inserts a customer.
func (r *Repository) CreateCustomer(ctx context.Context, c *Customer) (*Customer, error) {
	return scanCustomer(r.pool.QueryRow(ctx, `INSERT INTO customers (organization_id, name, phone, email, address, credit_balance, created_by, creator_dept_id, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, 0, $6, NULLIF($7, 0), NOW(), NOW())
RETURNING `+customerColumns, c.OrganizationID, c.Name, c.Phone, c.Email, c.Address, c.CreatedBy, c.CreatorDeptID))
}

// UpdateCustomer persists mutable customer fields.
func (r *Repository) UpdateCustomer(ctx context.Context, c *Customer) (*Customer, error) {
	return scanCustomer(r.pool.QueryRow(ctx, `UPDATE customers
SET name = $1, phone = $2, email = $3, address = $4, updated_at = NOW()
WHERE id = $5 AND organization_id = $6
RETURNING `+customerColumns, c.Name, c.Phone, c.Email, c.Address, c.ID, c.OrganizationID))
}

// DeleteCustomer removes a customer.
func (r *Repository) DeleteCustomer(ctx context.Context, orgID, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM customers WHERE id = $1 AND organization_id = $2`, id, orgID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

const supplierColumns = `id, organization_id, name, phone, email, address, created_by, COALESCE(creator_dept_id, 0), created_at, updated_at`

func scanSupplier(row pgx.Row) (*Supplier, error) {
	var s Supplier
	err := row.Scan(&s.ID, &s.OrganizationID, &s.Name, &s.Phone, &s.Email, &s.Address, &s.CreatedBy, &s.CreatorDeptID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

// ListSuppliers returns the suppliers visible under scope, newest first.
func (r *Repository) ListSuppliers(ctx context.Context, orgID int64, scope authz.Scope) ([]Supplier, error) {
	clause, extra := scopeClause(scope)
	query := fmt.Sprintf(`SELECT %s FROM suppliers WHERE organization_id = $1%s ORDER BY created_at DESC`, supplierColumns, clause)
	rows, err := r.pool.Query(ctx, query, append([]any{orgID}, extra...)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Supplier
	for rows.Next() {
		var s Supplier
		if err := rows.Scan(&s.ID, &s.OrganizationID, &s.Name, &s.Phone, &s.Email, &s.Address, &s.CreatedBy, &s.CreatorDeptID, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetSupplier fetches a supplier inside a tenant.
func (r *Repository) GetSupplier(ctx context.Context, orgID, id int64) (*Supplier, error) {
	return scanSupplier(r.pool.QueryRow(ctx, `SELECT `+supplierColumns+` FROM suppliers WHERE id = $1 AND organization_id = $2`, id, orgID))
}

// CreateSupplier inserts a supplier.
func (r *Repository) CreateSupplier(ctx context.Context, s *Supplier) (*Supplier, error) {
	return scanSupplier(r.pool.QueryRow(ctx, `INSERT INTO suppliers (organization_id, name, phone, email, address, created_by, creator_dept_id, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, 0), NOW(), NOW())
RETURNING `+supplierColumns, s.OrganizationID, s.Name, s.Phone, s.Email, s.Address, s.CreatedBy, s.CreatorDeptID))
}

// UpdateSupplier persists mutable supplier fields.
func (r *Repository) UpdateSupplier(ctx context.Context, s *Supplier) (*Supplier, error) {
	return scanSupplier(r.pool.QueryRow(ctx, `UPDATE suppliers
SET name = $1, phone = $2, email = $3, address = $4, updated_at = NOW()
WHERE id = $5 AND organization_id = $6
RETURNING `+supplierColumns, s.Name, s.Phone, s.Email, s.Address, s.ID, s.OrganizationID))
}

// DeleteSupplier removes a supplier.
func (r *Repository) DeleteSupplier(ctx context.Context, orgID, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM suppliers WHERE id = $1 AND organization_id = $2`, id, orgID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
