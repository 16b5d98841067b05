package procurement

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tillpoint/tillpoint/internal/authz"
	"github.com/tillpoint/tillpoint/internal/inventory"
	"github.com/tillpoint/tillpoint/internal/sequence"
	"github.com/tillpoint/tillpoint/internal/shared"
)

// Repository persists purchases in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the operations the receiving workflow runs inside
// one transaction.
type TxRepository interface {
	NextPurchaseNo(ctx context.Context, orgID int64, prefix string) (string, error)
	SupplierExists(ctx context.Context, orgID, supplierID int64) (bool, error)
	GetProductName(ctx context.Context, orgID, productID int64) (string, error)
	IncrementStock(ctx context.Context, orgID, productID, qty int64) error
	UpdateProductCost(ctx context.Context, orgID, productID int64, cost float64) error
	AppendStockTransaction(ctx context.Context, t inventory.StockTransaction) error
	InsertPurchase(ctx context.Context, p *Purchase) (int64, error)
	InsertPurchaseItems(ctx context.Context, purchaseID int64, items []PurchaseItem) error
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("procurement repository not initialised")
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

func (r *txRepository) NextPurchaseNo(ctx context.Context, orgID int64, prefix string) (string, error) {
	return sequence.Next(ctx, r.tx, orgID, sequence.DocTypePurchase, prefix)
}

func (r *txRepository) SupplierExists(ctx context.Context, orgID, supplierID int64) (bool, error) {
	var exists bool
	err := r.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM suppliers WHERE id = $1 AND organization_id = $2)`, supplierID, orgID).Scan(&exists)
	return exists, err
}

func (r *txRepository) GetProductName(ctx context.Context, orgID, productID int64) (string, error) {
	var name string
	err := r.tx.QueryRow(ctx, `SELECT name FROM products WHERE id = $1 AND organization_id = $2`, productID, orgID).Scan(&name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", shared.ErrNotFound
		}
		return "", err
	}
	return name, nil
}

func (r *txRepository) IncrementStock(ctx context.Context, orgID, productID, qty int64) error {
	return inventory.IncrementStock(ctx, r.tx, orgID, productID, qty)
}

func (r *txRepository) UpdateProductCost(ctx context.Context, orgID, productID int64, cost float64) error {
	_, err := r.tx.Exec(ctx, `UPDATE products SET cost = $1, updated_at = NOW() WHERE id = $2 AND organization_id = $3`, cost, productID, orgID)
	return err
}

func (r *txRepository) AppendStockTransaction(ctx context.Context, t inventory.StockTransaction) error {
	return inventory.AppendTransaction(ctx, r.tx, t)
}

func (r *txRepository) InsertPurchase(ctx context.Context, p *Purchase) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO purchases (organization_id, purchase_no, supplier_id, total, note, created_by, creator_dept_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, 0), NOW())
RETURNING id`, p.OrganizationID, p.PurchaseNo, p.SupplierID, p.Total, p.Note, p.CreatedBy, p.CreatorDeptID).Scan(&id)
	return id, err
}

func (r *txRepository) InsertPurchaseItems(ctx context.Context, purchaseID int64, items []PurchaseItem) error {
	for _, item := range items {
		if _, err := r.tx.Exec(ctx, `INSERT INTO purchase_items (purchase_id, product_id, product_name, quantity, unit_cost, line_total)
VALUES ($1, $2, $3, $4, $5, $6)`, purchaseID, item.ProductID, item.ProductName, item.Quantity, item.UnitCost, item.LineTotal); err != nil {
			return err
		}
	}
	return nil
}

const purchaseColumns = `id, organization_id, purchase_no, supplier_id, total, note, created_by, COALESCE(creator_dept_id, 0), created_at`

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

// ListPurchases returns the purchases visible under scope, newest first.
func (r *Repository) ListPurchases(ctx context.Context, orgID int64, scope authz.Scope) ([]Purchase, error) {
	clause, extra := scopeClause(scope)
	query := fmt.Sprintf(`SELECT %s FROM purchases WHERE organization_id = $1%s ORDER BY id DESC`, purchaseColumns, clause)
	rows, err := r.pool.Query(ctx, query, append([]any{orgID}, extra...)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Purchase
	for rows.Next() {
		var p Purchase
		if err := rows.Scan(&p.ID, &p.OrganizationID, &p.PurchaseNo, &p.SupplierID, &p.Total, &p.Note, &p.CreatedBy, &p.CreatorDeptID, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetPurchase fetches one purchase with its items.
func (r *Repository) GetPurchase(ctx context.Context, orgID, id int64) (*Purchase, error) {
	var p Purchase
	err := r.pool.QueryRow(ctx, `SELECT `+purchaseColumns+` FROM purchases WHERE id = $1 AND organization_id = $2`, id, orgID).
		Scan(&p.ID, &p.OrganizationID, &p.PurchaseNo, &p.SupplierID, &p.Total, &p.Note, &p.CreatedBy, &p.CreatorDeptID, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	rows, err := r.pool.Query(ctx, `SELECT id, purchase_id, product_id, product_name, quantity, unit_cost, line_total
FROM purchase_items WHERE purchase_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var item PurchaseItem
		if err := rows.Scan(&item.ID, &item.PurchaseID, &item.ProductID, &item.ProductName, &item.Quantity, &item.UnitCost, &item.LineTotal); err != nil {
			return nil, err
		}
		p.Items = append(p.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &p, nil
}
