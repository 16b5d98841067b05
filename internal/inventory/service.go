package inventory

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"log/slog"

	"github.com/tillpoint/tillpoint/internal/authz"
	"github.com/tillpoint/tillpoint/internal/observability"
	"github.com/tillpoint/tillpoint/internal/settings"
	"github.com/tillpoint/tillpoint/internal/shared"
)

// RepositoryPort defines data access methods for products and the ledger.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListProducts(ctx context.Context, orgID int64, scope authz.Scope) ([]Product, error)
	GetProduct(ctx context.Context, orgID, id int64) (*Product, error)
	UpdateProduct(ctx context.Context, p *Product) (*Product, error)
	DeleteProduct(ctx context.Context, orgID, id int64) error
	ListTransactions(ctx context.Context, orgID, productID int64, limit, offset int) ([]StockTransaction, error)
	CountTransactions(ctx context.Context, orgID, productID int64) (int, error)
	ListLowStock(ctx context.Context, orgID, threshold int64) ([]Product, error)
	ListProductIDs(ctx context.Context, orgID int64) ([]int64, error)
	ListOrganizationIDs(ctx context.Context) ([]int64, error)
}

// PermissionSource resolves the requester's effective permission set.
type PermissionSource interface {
	Resolve(ctx context.Context, role string, userID int64) (authz.PermissionSet, error)
}

// SettingsSource reads tenant settings; the low-stock listing uses the
// configured threshold.
type SettingsSource interface {
	Get(ctx context.Context, orgID int64) (settings.Settings, error)
}

// Auditor records stock movements in the audit trail.
type Auditor interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service handles the product catalogue and stock movements.
type Service struct {
	repo     RepositoryPort
	perms    PermissionSource
	settings SettingsSource
	audit    Auditor
	logger   *slog.Logger

	// AllowNegativeStock drops the oversell guard tenant-wide. Off by
	// default; set from configuration for backorder-tolerant deployments.
	AllowNegativeStock bool

	// Metrics counts stock movements; optional.
	Metrics *observability.Metrics
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, perms PermissionSource, settingsSrc SettingsSource, audit Auditor, logger *slog.Logger) *Service {
	return &Service{repo: repo, perms: perms, settings: settingsSrc, audit: audit, logger: logger}
}

func productMeta(p *Product) authz.RecordMeta {
	return authz.RecordMeta{OrganizationID: p.OrganizationID, CreatedBy: p.CreatedBy, CreatorDeptID: p.CreatorDeptID}
}

func (s *Service) resolve(ctx context.Context, rc shared.RequestContext) (authz.PermissionSet, error) {
	return s.perms.Resolve(ctx, rc.Role, rc.UserID)
}

// readableProduct loads a product and applies the read gate: records the
// requester may not see are reported as missing.
func (s *Service) readableProduct(ctx context.Context, rc shared.RequestContext, perms authz.PermissionSet, id int64) (*Product, error) {
	p, err := s.repo.GetProduct(ctx, rc.OrganizationID, id)
	if err != nil {
		return nil, err
	}
	if !authz.CanAccess(perms, rc, productMeta(p), authz.ActionRead, authz.ResourceProducts) {
		return nil, shared.ErrNotFound
	}
	return p, nil
}

// ProductInput carries catalogue fields for create and update.
type ProductInput struct {
	SKU      string  `json:"sku" validate:"required"`
	Name     string  `json:"name" validate:"required"`
	Price    float64 `json:"price" validate:"gte=0"`
	Cost     float64 `json:"cost" validate:"gte=0"`
	Quantity int64   `json:"quantity" validate:"gte=0"`
}

func canManageProducts(perms authz.PermissionSet, rc shared.RequestContext) bool {
	return rc.Role == authz.RoleAdmin || perms.Has(authz.ManagePermission(authz.ResourceProducts))
}

// ListProducts returns the products the requester may see.
func (s *Service) ListProducts(ctx context.Context, rc shared.RequestContext) ([]Product, error) {
	perms, err := s.resolve(ctx, rc)
	if err != nil {
		return nil, err
	}
	return s.repo.ListProducts(ctx, rc.OrganizationID, authz.ListScope(perms, rc))
}

// GetProduct returns one product if the requester may read it.
func (s *Service) GetProduct(ctx context.Context, rc shared.RequestContext, id int64) (*Product, error) {
	perms, err := s.resolve(ctx, rc)
	if err != nil {
		return nil, err
	}
	return s.readableProduct(ctx, rc, perms, id)
}

// CreateProduct registers a product. An opening quantity becomes the first
// ledger entry so the ledger sum matches the cached column from day one.
func (s *Service) CreateProduct(ctx context.Context, rc shared.RequestContext, in ProductInput) (*Product, error) {
	perms, err := s.resolve(ctx, rc)
	if err != nil {
		return nil, err
	}
	if !canManageProducts(perms, rc) {
		return nil, shared.ErrForbidden
	}
	if strings.TrimSpace(in.SKU) == "" || strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("%w: sku and name required", shared.ErrValidation)
	}
	var created *Product
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var txErr error
		created, txErr = tx.CreateProduct(ctx, &Product{
			OrganizationID: rc.OrganizationID,
			SKU:            strings.TrimSpace(in.SKU),
			Name:           strings.TrimSpace(in.Name),
			Price:          in.Price,
			Cost:           in.Cost,
			Quantity:       in.Quantity,
			CreatedBy:      rc.UserID,
			CreatorDeptID:  rc.DepartmentID,
		})
		if txErr != nil {
			return txErr
		}
		if in.Quantity > 0 {
			return tx.AppendTransaction(ctx, StockTransaction{
				OrganizationID: rc.OrganizationID,
				ProductID:      created.ID,
				Delta:          in.Quantity,
				Kind:           KindInitial,
				Note:           "opening stock",
				CreatedBy:      rc.UserID,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// UpdateProduct modifies catalogue fields. Quantity is deliberately absent:
// stock only moves through Adjust and the commerce workflows.
func (s *Service) UpdateProduct(ctx context.Context, rc shared.RequestContext, id int64, in ProductInput) (*Product, error) {
	perms, err := s.resolve(ctx, rc)
	if err != nil {
		return nil, err
	}
	p, err := s.readableProduct(ctx, rc, perms, id)
	if err != nil {
		return nil, err
	}
	if !authz.CanAccess(perms, rc, productMeta(p), authz.ActionUpdate, authz.ResourceProducts) {
		return nil, shared.ErrForbidden
	}
	p.SKU = strings.TrimSpace(in.SKU)
	p.Name = strings.TrimSpace(in.Name)
	p.Price = in.Price
	p.Cost = in.Cost
	return s.repo.UpdateProduct(ctx, p)
}

// DeleteProduct removes a product the requester may delete.
func (s *Service) DeleteProduct(ctx context.Context, rc shared.RequestContext, id int64) error {
	perms, err := s.resolve(ctx, rc)
	if err != nil {
		return err
	}
	p, err := s.readableProduct(ctx, rc, perms, id)
	if err != nil {
		return err
	}
	if !authz.CanAccess(perms, rc, productMeta(p), authz.ActionDelete, authz.ResourceProducts) {
		return shared.ErrForbidden
	}
	return s.repo.DeleteProduct(ctx, rc.OrganizationID, id)
}

// Adjust applies a manual signed stock correction, recording both the
// cached quantity change and the ledger entry atomically.
func (s *Service) Adjust(ctx context.Context, rc shared.RequestContext, productID, delta int64, note string) error {
	if delta == 0 {
		return fmt.Errorf("%w: adjustment delta must not be zero", shared.ErrValidation)
	}
	perms, err := s.resolve(ctx, rc)
	if err != nil {
		return err
	}
	if rc.Role != authz.RoleAdmin && !perms.Has(authz.PermAdjustStock) {
		return shared.ErrForbidden
	}
	if _, err := s.readableProduct(ctx, rc, perms, productID); err != nil {
		return err
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if delta < 0 {
			if err := tx.DecrementStock(ctx, rc.OrganizationID, productID, -delta, s.AllowNegativeStock); err != nil {
				return err
			}
		} else {
			if err := tx.IncrementStock(ctx, rc.OrganizationID, productID, delta); err != nil {
				return err
			}
		}
		return tx.AppendTransaction(ctx, StockTransaction{
			OrganizationID: rc.OrganizationID,
			ProductID:      productID,
			Delta:          delta,
			Kind:           KindAdjustment,
			Note:           note,
			CreatedBy:      rc.UserID,
		})
	})
	if err != nil {
		return err
	}
	if s.Metrics != nil {
		s.Metrics.CountStockMovement(KindAdjustment)
	}
	if s.audit != nil {
		if auditErr := s.audit.Record(ctx, shared.AuditLog{
			OrganizationID: rc.OrganizationID,
			ActorID:        rc.UserID,
			Action:         "stock.adjust",
			Entity:         "product",
			EntityID:       strconv.FormatInt(productID, 10),
			Meta:           map[string]any{"delta": delta, "note": note},
		}); auditErr != nil && s.logger != nil {
			s.logger.Warn("audit write failed", slog.Any("error", auditErr))
		}
	}
	return nil
}

// History returns a page of a product's ledger entries, newest first, if the
// requester may read the product.
func (s *Service) History(ctx context.Context, rc shared.RequestContext, productID int64, page, perPage int) ([]StockTransaction, shared.Pagination, error) {
	perms, err := s.resolve(ctx, rc)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	if _, err := s.readableProduct(ctx, rc, perms, productID); err != nil {
		return nil, shared.Pagination{}, err
	}
	if perPage <= 0 || perPage > 200 {
		perPage = 50
	}
	if page <= 0 {
		page = 1
	}
	total, err := s.repo.CountTransactions(ctx, rc.OrganizationID, productID)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	entries, err := s.repo.ListTransactions(ctx, rc.OrganizationID, productID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return entries, shared.NewPagination(page, perPage, total), nil
}

// LowStock lists products at or below the tenant's configured threshold.
func (s *Service) LowStock(ctx context.Context, rc shared.RequestContext) ([]Product, error) {
	cfg, err := s.settings.Get(ctx, rc.OrganizationID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListLowStock(ctx, rc.OrganizationID, cfg.LowStockThreshold)
}

// Reconcile realigns every cached product quantity in a tenant with its
// ledger sum and returns how many rows drifted. The background job calls
// this per tenant.
func (s *Service) Reconcile(ctx context.Context, orgID int64) (int, error) {
	ids, err := s.repo.ListProductIDs(ctx, orgID)
	if err != nil {
		return 0, err
	}
	fixed := 0
	for _, productID := range ids {
		err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			want, err := tx.LedgerQuantity(ctx, orgID, productID)
			if err != nil {
				return err
			}
			p, err := s.repo.GetProduct(ctx, orgID, productID)
			if err != nil {
				return err
			}
			if p.Quantity == want {
				return nil
			}
			if s.logger != nil {
				s.logger.Warn("stock drift detected",
					slog.Int64("org_id", orgID),
					slog.Int64("product_id", productID),
					slog.Int64("cached", p.Quantity),
					slog.Int64("ledger", want))
			}
			if err := tx.SetQuantity(ctx, orgID, productID, want); err != nil {
				return err
			}
			fixed++
			return nil
		})
		if err != nil {
			return fixed, err
		}
	}
	return fixed, nil
}

// ReconcileAll runs Reconcile for every tenant with products.
func (s *Service) ReconcileAll(ctx context.Context) (int, error) {
	orgs, err := s.repo.ListOrganizationIDs(ctx)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, orgID := range orgs {
		fixed, err := s.Reconcile(ctx, orgID)
		total += fixed
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
