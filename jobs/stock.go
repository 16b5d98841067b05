package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/tillpoint/tillpoint/internal/inventory"
	jobmetrics "github.com/tillpoint/tillpoint/internal/jobs"
	"github.com/tillpoint/tillpoint/internal/settings"
)

// StockReconcileJob realigns cached product quantities with the ledger.
type StockReconcileJob struct {
	service *inventory.Service
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

// NewStockReconcileJob constructs the job.
func NewStockReconcileJob(service *inventory.Service, logger *slog.Logger, metrics *jobmetrics.Metrics) *StockReconcileJob {
	return &StockReconcileJob{service: service, logger: logger, metrics: metrics}
}

// Handle processes TaskStockReconcile tasks.
func (j *StockReconcileJob) Handle(ctx context.Context, t *asynq.Task) error {
	tracker := j.metrics.Track("stock_reconcile")
	fixed, err := j.service.ReconcileAll(ctx)
	if err != nil {
		j.logger.Error("stock reconcile", slog.Any("error", err), slog.Int("fixed", fixed))
		return tracker.End(err)
	}
	if fixed > 0 {
		j.logger.Warn("stock reconcile corrected drift", slog.Int("fixed", fixed))
		j.metrics.AddDrift(fixed)
	} else {
		j.logger.Info("stock reconcile clean")
	}
	return tracker.End(nil)
}

// LowStockRepository lists products below a threshold.
type LowStockRepository interface {
	ListLowStock(ctx context.Context, orgID, threshold int64) ([]inventory.Product, error)
}

// SettingsSource reads the tenant threshold.
type SettingsSource interface {
	Get(ctx context.Context, orgID int64) (settings.Settings, error)
}

// LowStockJob sweeps one tenant for products at or below its threshold and
// surfaces them in the logs for the ops channel to pick up.
type LowStockJob struct {
	repo     LowStockRepository
	settings SettingsSource
	logger   *slog.Logger
	metrics  *jobmetrics.Metrics
}

// NewLowStockJob constructs the job.
func NewLowStockJob(repo LowStockRepository, settingsSrc SettingsSource, logger *slog.Logger, metrics *jobmetrics.Metrics) *LowStockJob {
	return &LowStockJob{repo: repo, settings: settingsSrc, logger: logger, metrics: metrics}
}

// Handle processes TaskLowStockCheck tasks.
func (j *LowStockJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload LowStockPayload
	if err := decodePayload(t, &payload); err != nil {
		return err
	}
	tracker := j.metrics.Track("low_stock_check")
	cfg, err := j.settings.Get(ctx, payload.OrganizationID)
	if err != nil {
		return tracker.End(err)
	}
	products, err := j.repo.ListLowStock(ctx, payload.OrganizationID, cfg.LowStockThreshold)
	if err != nil {
		return tracker.End(err)
	}
	for _, p := range products {
		j.logger.Warn("low stock",
			slog.Int64("org_id", payload.OrganizationID),
			slog.Int64("product_id", p.ID),
			slog.String("sku", p.SKU),
			slog.Int64("quantity", p.Quantity),
			slog.Int64("threshold", cfg.LowStockThreshold))
	}
	j.metrics.AddLowStock(payload.OrganizationID, len(products))
	return tracker.End(nil)
}
