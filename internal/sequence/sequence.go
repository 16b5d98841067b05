// Package sequence issues gapless per-tenant document numbers. The counter
// row is advanced with an upsert inside the caller's transaction, so the
// row lock taken by the update serializes concurrent issuers and the number
// is rolled back together with the document when the workflow aborts.
package sequence

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Document types with their own counters.
const (
	DocTypeSale     = "sale"
	DocTypePurchase = "purchase"
)

// DBTX is the subset of pgx behavior the sequencer needs. Both *pgxpool.Pool
// and pgx.Tx satisfy it; workflows pass their open transaction.
type DBTX interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Next advances the counter for (orgID, docType) and returns the document
// number formatted as PREFIX-NNNNNN.
func Next(ctx context.Context, db DBTX, orgID int64, docType, prefix string) (string, error) {
	var lastNo int64
	err := db.QueryRow(ctx, `INSERT INTO invoice_sequences (organization_id, doc_type, last_no)
VALUES ($1, $2, 1)
ON CONFLICT (organization_id, doc_type) DO UPDATE SET last_no = invoice_sequences.last_no + 1
RETURNING last_no`, orgID, docType).Scan(&lastNo)
	if err != nil {
		return "", fmt.Errorf("advance %s sequence: %w", docType, err)
	}
	return Format(prefix, lastNo), nil
}

// Format renders a document number. Numbers wider than six digits keep all
// their digits.
func Format(prefix string, n int64) string {
	return fmt.Sprintf("%s-%06d", prefix, n)
}
