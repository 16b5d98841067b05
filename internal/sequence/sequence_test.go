package sequence

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

type fakeRow struct {
	val int64
	err error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*int64)) = r.val
	return nil
}

// fakeDB advances an in-memory counter per (org, docType) key the way the
// upsert does.
type fakeDB struct {
	counters map[[2]any]int64
}

func (db *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	key := [2]any{args[0], args[1]}
	db.counters[key]++
	return fakeRow{val: db.counters[key]}
}

func (db *fakeDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}

func (db *fakeDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func TestNextIsMonotonicPerCounter(t *testing.T) {
	db := &fakeDB{counters: make(map[[2]any]int64)}

	first, err := Next(context.Background(), db, 1, DocTypeSale, "INV")
	require.NoError(t, err)
	require.Equal(t, "INV-000001", first)

	second, err := Next(context.Background(), db, 1, DocTypeSale, "INV")
	require.NoError(t, err)
	require.Equal(t, "INV-000002", second)

	// Purchases and other tenants advance independently.
	pur, err := Next(context.Background(), db, 1, DocTypePurchase, "PUR")
	require.NoError(t, err)
	require.Equal(t, "PUR-000001", pur)

	other, err := Next(context.Background(), db, 2, DocTypeSale, "INV")
	require.NoError(t, err)
	require.Equal(t, "INV-000001", other)
}

func TestFormatKeepsWideNumbers(t *testing.T) {
	require.Equal(t, "INV-000042", Format("INV", 42))
	require.Equal(t, "INV-1234567", Format("INV", 1234567))
}
