package credit

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tillpoint/tillpoint/internal/shared"
)

// Repository persists credit sales and payments in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the operations a payment application runs inside one
// transaction. The FOR UPDATE read serializes concurrent payments against
// the same receivable.
type TxRepository interface {
	GetCreditSaleForUpdate(ctx context.Context, orgID, id int64) (*CreditSale, error)
	UpdateCreditSale(ctx context.Context, orgID, id int64, amountPaid, balance float64, status string) error
	InsertPayment(ctx context.Context, orgID int64, p *Payment) (int64, error)
	SubtractCustomerCredit(ctx context.Context, orgID, customerID int64, amount float64) error
	SetSalePaymentStatus(ctx context.Context, orgID, saleID int64, status string) error
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("credit repository not initialised")
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

const creditSaleColumns = `id, organization_id, sale_id, customer_id, amount, amount_paid, balance, due_date, status, created_at, updated_at`

func scanCreditSale(row pgx.Row) (*CreditSale, error) {
	var c CreditSale
	err := row.Scan(&c.ID, &c.OrganizationID, &c.SaleID, &c.CustomerID, &c.Amount, &c.AmountPaid, &c.Balance, &c.DueDate, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *txRepository) GetCreditSaleForUpdate(ctx context.Context, orgID, id int64) (*CreditSale, error) {
	return scanCreditSale(r.tx.QueryRow(ctx, `SELECT `+creditSaleColumns+` FROM credit_sales WHERE id = $1 AND organization_id = $2 FOR UPDATE`, id, orgID))
}

func (r *txRepository) UpdateCreditSale(ctx context.Context, orgID, id int64, amountPaid, balance float64, status string) error {
	tag, err := r.tx.Exec(ctx, `UPDATE credit_sales SET amount_paid = $1, balance = $2, status = $3, updated_at = NOW()
WHERE id = $4 AND organization_id = $5`, amountPaid, balance, status, id, orgID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *txRepository) InsertPayment(ctx context.Context, orgID int64, p *Payment) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO credit_payments (organization_id, credit_sale_id, amount, method, note, created_by, created_at)
VALUES ($1, $2, $3, $4, $5, $6, NOW())
RETURNING id`, orgID, p.CreditSaleID, p.Amount, p.Method, p.Note, p.CreatedBy).Scan(&id)
	return id, err
}

func (r *txRepository) SubtractCustomerCredit(ctx context.Context, orgID, customerID int64, amount float64) error {
	tag, err := r.tx.Exec(ctx, `UPDATE customers SET credit_balance = credit_balance - $1, updated_at = NOW()
WHERE id = $2 AND organization_id = $3`, amount, customerID, orgID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *txRepository) SetSalePaymentStatus(ctx context.Context, orgID, saleID int64, status string) error {
	tag, err := r.tx.Exec(ctx, `UPDATE sales SET payment_status = $1 WHERE id = $2 AND organization_id = $3`, status, saleID, orgID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// List returns a tenant's credit sales, optionally filtered by customer or
// status, newest first.
func (r *Repository) List(ctx context.Context, orgID, customerID int64, status string) ([]CreditSale, error) {
	query := `SELECT ` + creditSaleColumns + ` FROM credit_sales WHERE organization_id = $1`
	args := []any{orgID}
	if customerID != 0 {
		args = append(args, customerID)
		query += fmt.Sprintf(` AND customer_id = $%d`, len(args))
	}
	if status != "" {
		args = append(args, status)
		query += fmt.Sprintf(` AND status = $%d`, len(args))
	}
	query += ` ORDER BY id DESC`
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []CreditSale
	for rows.Next() {
		var c CreditSale
		if err := rows.Scan(&c.ID, &c.OrganizationID, &c.SaleID, &c.CustomerID, &c.Amount, &c.AmountPaid, &c.Balance, &c.DueDate, &c.Status, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Get fetches one credit sale with its payments.
func (r *Repository) Get(ctx context.Context, orgID, id int64) (*CreditSale, error) {
	c, err := scanCreditSale(r.pool.QueryRow(ctx, `SELECT `+creditSaleColumns+` FROM credit_sales WHERE id = $1 AND organization_id = $2`, id, orgID))
	if err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, `SELECT id, credit_sale_id, amount, method, note, created_by, created_at
FROM credit_payments WHERE credit_sale_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.CreditSaleID, &p.Amount, &p.Method, &p.Note, &p.CreatedBy, &p.CreatedAt); err != nil {
			return nil, err
		}
		c.Payments = append(c.Payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return c, nil
}
