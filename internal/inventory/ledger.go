package inventory

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tillpoint/tillpoint/internal/shared"
)

// DBTX is the subset of pgx behavior the ledger helpers need. Both
// *pgxpool.Pool and pgx.Tx satisfy it, so the sale and purchase workflows
// can run stock movements inside their own transactions.
type DBTX interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// AppendTransaction writes one immutable ledger row.
func AppendTransaction(ctx context.Context, db DBTX, t StockTransaction) error {
	_, err := db.Exec(ctx, `INSERT INTO stock_transactions (organization_id, product_id, delta, kind, ref_type, ref_id, note, created_by, created_at)
VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, 0), $7, $8, NOW())`,
		t.OrganizationID, t.ProductID, t.Delta, t.Kind, t.RefType, t.RefID, t.Note, t.CreatedBy)
	return err
}

// DecrementStock atomically reduces a product's cached quantity. The guard
// in the WHERE clause is what prevents overselling under concurrency; a
// zero row count distinguishes a missing product from insufficient stock
// with a follow-up read. allowNegative drops the guard for tenants that
// tolerate backorders.
func DecrementStock(ctx context.Context, db DBTX, orgID, productID, qty int64, allowNegative bool) error {
	if qty <= 0 {
		return errors.New("decrement quantity must be positive")
	}
	guard := ` AND quantity >= $1`
	if allowNegative {
		guard = ``
	}
	tag, err := db.Exec(ctx, `UPDATE products SET quantity = quantity - $1, updated_at = NOW()
WHERE id = $2 AND organization_id = $3`+guard, qty, productID, orgID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1 AND organization_id = $2)`, productID, orgID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return shared.ErrNotFound
		}
		return shared.ErrInsufficientStock
	}
	return nil
}

// IncrementStock raises a product's cached quantity.
func IncrementStock(ctx context.Context, db DBTX, orgID, productID, qty int64) error {
	if qty <= 0 {
		return errors.New("increment quantity must be positive")
	}
	tag, err := db.Exec(ctx, `UPDATE products SET quantity = quantity + $1, updated_at = NOW()
WHERE id = $2 AND organization_id = $3`, qty, productID, orgID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// LedgerQuantity sums the ledger for one product. This is the authoritative
// on-hand figure.
func LedgerQuantity(ctx context.Context, db DBTX, orgID, productID int64) (int64, error) {
	var sum int64
	err := db.QueryRow(ctx, `SELECT COALESCE(SUM(delta), 0) FROM stock_transactions WHERE organization_id = $1 AND product_id = $2`, orgID, productID).Scan(&sum)
	return sum, err
}
