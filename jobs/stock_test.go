package jobs

import (
	"context"
	"log/slog"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/tillpoint/tillpoint/internal/inventory"
	jobmetrics "github.com/tillpoint/tillpoint/internal/jobs"
	"github.com/tillpoint/tillpoint/internal/settings"
)

type fakeLowStockRepo struct {
	products map[int64][]inventory.Product
	lastOrg  int64
}

func (f *fakeLowStockRepo) ListLowStock(ctx context.Context, orgID, threshold int64) ([]inventory.Product, error) {
	f.lastOrg = orgID
	var out []inventory.Product
	for _, p := range f.products[orgID] {
		if p.Quantity <= threshold {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeSettings struct {
	cfg settings.Settings
}

func (f fakeSettings) Get(ctx context.Context, orgID int64) (settings.Settings, error) {
	return f.cfg, nil
}

func TestLowStockJobScopesToTenant(t *testing.T) {
	repo := &fakeLowStockRepo{products: map[int64][]inventory.Product{
		10: {
			{ID: 1, OrganizationID: 10, SKU: "TEA-003", Quantity: 4},
			{ID: 2, OrganizationID: 10, SKU: "COF-001", Quantity: 40},
		},
	}}
	job := NewLowStockJob(repo, fakeSettings{cfg: settings.Defaults(10)}, slog.Default(), jobmetrics.NewMetrics(prometheus.NewRegistry()))

	task, err := NewLowStockCheckTask(10)
	require.NoError(t, err)

	require.NoError(t, job.Handle(context.Background(), task))
	require.EqualValues(t, 10, repo.lastOrg)
}

func TestLowStockJobSkipsMalformedPayload(t *testing.T) {
	job := NewLowStockJob(&fakeLowStockRepo{}, fakeSettings{}, slog.Default(), jobmetrics.NewMetrics(prometheus.NewRegistry()))

	bad := asynq.NewTask(TaskLowStockCheck, []byte("{not json"))
	err := job.Handle(context.Background(), bad)
	require.ErrorIs(t, err, asynq.SkipRetry)
}
