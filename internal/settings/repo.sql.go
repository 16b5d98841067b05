package settings

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed persistence for tenant settings.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Get reads a tenant's settings row. Missing rows fall back to Defaults.
func (r *Repository) Get(ctx context.Context, orgID int64) (Settings, error) {
	var s Settings
	err := r.pool.QueryRow(ctx, `SELECT organization_id, invoice_prefix, purchase_prefix, tax_rate, low_stock_threshold, updated_at
FROM org_settings WHERE organization_id = $1`, orgID).
		Scan(&s.OrganizationID, &s.InvoicePrefix, &s.PurchasePrefix, &s.TaxRate, &s.LowStockThreshold, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Defaults(orgID), nil
		}
		return Settings{}, err
	}
	return s, nil
}

// Put upserts a tenant's settings row.
func (r *Repository) Put(ctx context.Context, s Settings) (Settings, error) {
	var out Settings
	err := r.pool.QueryRow(ctx, `INSERT INTO org_settings (organization_id, invoice_prefix, purchase_prefix, tax_rate, low_stock_threshold, updated_at)
VALUES ($1, $2, $3, $4, $5, NOW())
ON CONFLICT (organization_id) DO UPDATE SET
	invoice_prefix = EXCLUDED.invoice_prefix,
	purchase_prefix = EXCLUDED.purchase_prefix,
	tax_rate = EXCLUDED.tax_rate,
	low_stock_threshold = EXCLUDED.low_stock_threshold,
	updated_at = NOW()
RETURNING organization_id, invoice_prefix, purchase_prefix, tax_rate, low_stock_threshold, updated_at`,
		s.OrganizationID, s.InvoicePrefix, s.PurchasePrefix, s.TaxRate, s.LowStockThreshold).
		Scan(&out.OrganizationID, &out.InvoicePrefix, &out.PurchasePrefix, &out.TaxRate, &out.LowStockThreshold, &out.UpdatedAt)
	if err != nil {
		return Settings{}, err
	}
	return out, nil
}
