package sales

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tillpoint/tillpoint/internal/authz"
	"github.com/tillpoint/tillpoint/internal/inventory"
	"github.com/tillpoint/tillpoint/internal/sequence"
	"github.com/tillpoint/tillpoint/internal/shared"
)

// Repository persists sales in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the operations the checkout runs inside one
// transaction. Stock movements and the invoice counter share the same
// pgx.Tx, so a failure anywhere unwinds everything including the number.
type TxRepository interface {
	NextInvoiceNo(ctx context.Context, orgID int64, prefix string) (string, error)
	GetProduct(ctx context.Context, orgID, productID int64) (*ProductSnapshot, error)
	DecrementStock(ctx context.Context, orgID, productID, qty int64, allowNegative bool) error
	AppendStockTransaction(ctx context.Context, t inventory.StockTransaction) error
	InsertSale(ctx context.Context, s *Sale) (int64, error)
	InsertSaleItems(ctx context.Context, saleID int64, items []SaleItem) error
	CustomerExists(ctx context.Context, orgID, customerID int64) (bool, error)
	InsertCreditSale(ctx context.Context, orgID, saleID, customerID int64, amount float64, dueDate time.Time) error
	AddCustomerCredit(ctx context.Context, orgID, customerID int64, amount float64) error
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("sales repository not initialised")
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

func (r *txRepository) NextInvoiceNo(ctx context.Context, orgID int64, prefix string) (string, error) {
	return sequence.Next(ctx, r.tx, orgID, sequence.DocTypeSale, prefix)
}

func (r *txRepository) GetProduct(ctx context.Context, orgID, productID int64) (*ProductSnapshot, error) {
	var p ProductSnapshot
	err := r.tx.QueryRow(ctx, `SELECT id, name, price FROM products WHERE id = $1 AND organization_id = $2`, productID, orgID).
		Scan(&p.ID, &p.Name, &p.Price)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *txRepository) DecrementStock(ctx context.Context, orgID, productID, qty int64, allowNegative bool) error {
	return inventory.DecrementStock(ctx, r.tx, orgID, productID, qty, allowNegative)
}

func (r *txRepository) AppendStockTransaction(ctx context.Context, t inventory.StockTransaction) error {
	return inventory.AppendTransaction(ctx, r.tx, t)
}

func (r *txRepository) InsertSale(ctx context.Context, s *Sale) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO sales (organization_id, invoice_no, customer_id, subtotal, discount, tax_amount, total, payment_method, payment_status, note, created_by, creator_dept_id, created_at)
VALUES ($1, $2, NULLIF($3, 0), $4, $5, $6, $7, $8, $9, $10, $11, NULLIF($12, 0), NOW())
RETURNING id`, s.OrganizationID, s.InvoiceNo, s.CustomerID, s.Subtotal, s.Discount, s.TaxAmount, s.Total, s.PaymentMethod, s.PaymentStatus, s.Note, s.CreatedBy, s.CreatorDeptID).Scan(&id)
	return id, err
}

func (r *txRepository) InsertSaleItems(ctx context.Context, saleID int64, items []SaleItem) error {
	for _, item := range items {
		if _, err := r.tx.Exec(ctx, `INSERT INTO sale_items (sale_id, product_id, product_name, quantity, unit_price, line_total)
VALUES ($1, $2, $3, $4, $5, $6)`, saleID, item.ProductID, item.ProductName, item.Quantity, item.UnitPrice, item.LineTotal); err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepository) CustomerExists(ctx context.Context, orgID, customerID int64) (bool, error) {
	var exists bool
	err := r.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM customers WHERE id = $1 AND organization_id = $2)`, customerID, orgID).Scan(&exists)
	return exists, err
}

func (r *txRepository) InsertCreditSale(ctx context.Context, orgID, saleID, customerID int64, amount float64, dueDate time.Time) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO credit_sales (organization_id, sale_id, customer_id, amount, amount_paid, balance, due_date, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, 0, $4, $5, 'pending', NOW(), NOW())`, orgID, saleID, customerID, amount, dueDate)
	return err
}

func (r *txRepository) AddCustomerCredit(ctx context.Context, orgID, customerID int64, amount float64) error {
	tag, err := r.tx.Exec(ctx, `UPDATE customers SET credit_balance = credit_balance + $1, updated_at = NOW()
WHERE id = $2 AND organization_id = $3`, amount, customerID, orgID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

const saleColumns = `id, organization_id, invoice_no, COALESCE(customer_id, 0), subtotal, discount, tax_amount, total, payment_method, payment_status, note, created_by, COALESCE(creator_dept_id, 0), created_at`

func scanSale(row pgx.Row) (*Sale, error) {
	var s Sale
	err := row.Scan(&s.ID, &s.OrganizationID, &s.InvoiceNo, &s.CustomerID, &s.Subtotal, &s.Discount, &s.TaxAmount, &s.Total, &s.PaymentMethod, &s.PaymentStatus, &s.Note, &s.CreatedBy, &s.CreatorDeptID, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
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

// ListSales returns the sales visible under scope, newest first.
func (r *Repository) ListSales(ctx context.Context, orgID int64, scope authz.Scope) ([]Sale, error) {
	clause, extra := scopeClause(scope)
	query := fmt.Sprintf(`SELECT %s FROM sales WHERE organization_id = $1%s ORDER BY id DESC`, saleColumns, clause)
	rows, err := r.pool.Query(ctx, query, append([]any{orgID}, extra...)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Sale
	for rows.Next() {
		var s Sale
		if err := rows.Scan(&s.ID, &s.OrganizationID, &s.InvoiceNo, &s.CustomerID, &s.Subtotal, &s.Discount, &s.TaxAmount, &s.Total, &s.PaymentMethod, &s.PaymentStatus, &s.Note, &s.CreatedBy, &s.CreatorDeptID, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetSale fetches one sale with its items.
func (r *Repository) GetSale(ctx context.Context, orgID, id int64) (*Sale, error) {
	s, err := scanSale(r.pool.QueryRow(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1 AND organization_id = $2`, id, orgID))
	if err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, `SELECT id, sale_id, product_id, product_name, quantity, unit_price, line_total
FROM sale_items WHERE sale_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var item SaleItem
		if err := rows.Scan(&item.ID, &item.SaleID, &item.ProductID, &item.ProductName, &item.Quantity, &item.UnitPrice, &item.LineTotal); err != nil {
			return nil, err
		}
		s.Items = append(s.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return s, nil
}
