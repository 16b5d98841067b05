package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tillpoint/tillpoint/internal/authz"
	"github.com/tillpoint/tillpoint/internal/shared"
)

// Repository persists products and ledger reads in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the operations the service runs inside a stock
// transaction.
type TxRepository interface {
	AppendTransaction(ctx context.Context, t StockTransaction) error
	DecrementStock(ctx context.Context, orgID, productID, qty int64, allowNegative bool) error
	IncrementStock(ctx context.Context, orgID, productID, qty int64) error
	LedgerQuantity(ctx context.Context, orgID, productID int64) (int64, error)
	SetQuantity(ctx context.Context, orgID, productID, qty int64) error
	CreateProduct(ctx context.Context, p *Product) (*Product, error)
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("inventory repository not initialised")
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	wrapper := &txRepository{tx: tx}
	if err := fn(ctx, wrapper); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

func (r *txRepository) AppendTransaction(ctx context.Context, t StockTransaction) error {
	return AppendTransaction(ctx, r.tx, t)
}

func (r *txRepository) DecrementStock(ctx context.Context, orgID, productID, qty int64, allowNegative bool) error {
	return DecrementStock(ctx, r.tx, orgID, productID, qty, allowNegative)
}

func (r *txRepository) IncrementStock(ctx context.Context, orgID, productID, qty int64) error {
	return IncrementStock(ctx, r.tx, orgID, productID, qty)
}

func (r *txRepository) LedgerQuantity(ctx context.Context, orgID, productID int64) (int64, error) {
	return LedgerQuantity(ctx, r.tx, orgID, productID)
}

func (r *txRepository) SetQuantity(ctx context.Context, orgID, productID, qty int64) error {
	tag, err := r.tx.Exec(ctx, `UPDATE products SET quantity = $1, updated_at = NOW() WHERE id = $2 AND organization_id = $3`, qty, productID, orgID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *txRepository) CreateProduct(ctx context.Context, p *Product) (*Product, error) {
	return createProduct(ctx, r.tx, p)
}

const productColumns = `id, organization_id, sku, name, price, cost, quantity, created_by, COALESCE(creator_dept_id, 0), created_at, updated_at`

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.OrganizationID, &p.SKU, &p.Name, &p.Price, &p.Cost, &p.Quantity, &p.CreatedBy, &p.CreatorDeptID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func createProduct(ctx context.Context, db DBTX, p *Product) (*Product, error) {
	created, err := scanProduct(db.QueryRow(ctx, `INSERT INTO products (organization_id, sku, name, price, cost, quantity, created_by, creator_dept_id, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, 0), NOW(), NOW())
RETURNING `+productColumns, p.OrganizationID, p.SKU, p.Name, p.Price, p.Cost, p.Quantity, p.CreatedBy, p.CreatorDeptID))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, shared.ErrConflict
		}
		return nil, err
	}
	return created, nil
}

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

// ListProducts returns the products visible under scope ordered by name.
func (r *Repository) ListProducts(ctx context.Context, orgID int64, scope authz.Scope) ([]Product, error) {
	clause, extra := scopeClause(scope)
	query := fmt.Sprintf(`SELECT %s FROM products WHERE organization_id = $1%s ORDER BY name`, productColumns, clause)
	rows, err := r.pool.Query(ctx, query, append([]any{orgID}, extra...)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProducts(rows)
}

func collectProducts(rows pgx.Rows) ([]Product, error) {
	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.OrganizationID, &p.SKU, &p.Name, &p.Price, &p.Cost, &p.Quantity, &p.CreatedBy, &p.CreatorDeptID, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetProduct fetches a product inside a tenant.
func (r *Repository) GetProduct(ctx context.Context, orgID, id int64) (*Product, error) {
	return scanProduct(r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1 AND organization_id = $2`, id, orgID))
}

// UpdateProduct persists mutable catalogue fields. Quantity only moves
// through the ledger.
func (r *Repository) UpdateProduct(ctx context.Context, p *Product) (*Product, error) {
	updated, err := scanProduct(r.pool.QueryRow(ctx, `UPDATE products
SET sku = $1, name = $2, price = $3, cost = $4, updated_at = NOW()
WHERE id = $5 AND organization_id = $6
RETURNING `+productColumns, p.SKU, p.Name, p.Price, p.Cost, p.ID, p.OrganizationID))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, shared.ErrConflict
		}
		return nil, err
	}
	return updated, nil
}

// DeleteProduct removes a product.
func (r *Repository) DeleteProduct(ctx context.Context, orgID, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1 AND organization_id = $2`, id, orgID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ListTransactions returns a product's ledger entries, newest first.
func (r *Repository) ListTransactions(ctx context.Context, orgID, productID int64, limit, offset int) ([]StockTransaction, error) {
	if limit <= 0 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.pool.Query(ctx, `SELECT id, organization_id, product_id, delta, kind, COALESCE(ref_type, ''), COALESCE(ref_id, 0), note, created_by, created_at
FROM stock_transactions
WHERE organization_id = $1 AND product_id = $2
ORDER BY id DESC
LIMIT $3 OFFSET $4`, orgID, productID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []StockTransaction
	for rows.Next() {
		var t StockTransaction
		if err := rows.Scan(&t.ID, &t.OrganizationID, &t.ProductID, &t.Delta, &t.Kind, &t.RefType, &t.RefID, &t.Note, &t.CreatedBy, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// CountTransactions returns the number of ledger entries for a product.
func (r *Repository) CountTransactions(ctx context.Context, orgID, productID int64) (int, error) {
	var total int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM stock_transactions WHERE organization_id = $1 AND product_id = $2`, orgID, productID).Scan(&total)
	return total, err
}

// ListLowStock returns products at or below the threshold.
func (r *Repository) ListLowStock(ctx context.Context, orgID, threshold int64) ([]Product, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+productColumns+` FROM products WHERE organization_id = $1 AND quantity <= $2 ORDER BY quantity ASC`, orgID, threshold)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProducts(rows)
}

// ListProductIDs returns every product id in a tenant, for reconciliation.
func (r *Repository) ListProductIDs(ctx context.Context, orgID int64) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM products WHERE organization_id = $1 ORDER BY id`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

// ListOrganizationIDs returns every tenant that owns products, for the
// reconcile job.
func (r *Repository) ListOrganizationIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT organization_id FROM products ORDER BY organization_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}
