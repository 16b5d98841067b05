package procurement

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"

	"github.com/tillpoint/tillpoint/internal/authz"
	"github.com/tillpoint/tillpoint/internal/inventory"
	"github.com/tillpoint/tillpoint/internal/observability"
	"github.com/tillpoint/tillpoint/internal/settings"
	"github.com/tillpoint/tillpoint/internal/shared"
)

// RepositoryPort defines data access methods for purchases.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListPurchases(ctx context.Context, orgID int64, scope authz.Scope) ([]Purchase, error)
	GetPurchase(ctx context.Context, orgID, id int64) (*Purchase, error)
}

// PermissionSource resolves the requester's effective permission set.
type PermissionSource interface {
	Resolve(ctx context.Context, role string, userID int64) (authz.PermissionSet, error)
}

// SettingsSource reads tenant settings for the purchase number prefix.
type SettingsSource interface {
	Get(ctx context.Context, orgID int64) (settings.Settings, error)
}

// Auditor records received purchases in the audit trail.
type Auditor interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates the receiving workflow: the document number, stock
// increments, ledger rows and cost updates commit or roll back together.
type Service struct {
	repo     RepositoryPort
	perms    PermissionSource
	settings SettingsSource
	audit    Auditor
	logger   *slog.Logger

	// Metrics counts received purchases; optional.
	Metrics *observability.Metrics
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, perms PermissionSource, settingsSrc SettingsSource, audit Auditor, logger *slog.Logger) *Service {
	return &Service{repo: repo, perms: perms, settings: settingsSrc, audit: audit, logger: logger}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// LineInput is one received line.
type LineInput struct {
	ProductID int64   `json:"product_id" validate:"required,gt=0"`
	Quantity  int64   `json:"quantity" validate:"required,gt=0"`
	UnitCost  float64 `json:"unit_cost" validate:"gte=0"`
}

// CreateInput carries a receiving request.
type CreateInput struct {
	SupplierID int64       `json:"supplier_id" validate:"required,gt=0"`
	Note       string      `json:"note"`
	Items      []LineInput `json:"items" validate:"required,min=1,dive"`
}

// Create runs the purchase workflow.
func (s *Service) Create(ctx context.Context, rc shared.RequestContext, in CreateInput) (*Purchase, error) {
	perms, err := s.perms.Resolve(ctx, rc.Role, rc.UserID)
	if err != nil {
		return nil, err
	}
	if rc.Role != authz.RoleAdmin && !perms.Has(authz.PermCreatePurchases) {
		return nil, shared.ErrForbidden
	}
	if in.SupplierID <= 0 {
		return nil, fmt.Errorf("%w: supplier required", shared.ErrValidation)
	}
	if len(in.Items) == 0 {
		return nil, fmt.Errorf("%w: purchase requires at least one item", shared.ErrValidation)
	}
	for _, line := range in.Items {
		if line.ProductID <= 0 || line.Quantity <= 0 {
			return nil, fmt.Errorf("%w: product_id and quantity must be positive", shared.ErrValidation)
		}
		if line.UnitCost < 0 {
			return nil, fmt.Errorf("%w: unit_cost must not be negative", shared.ErrValidation)
		}
	}

	cfg, err := s.settings.Get(ctx, rc.OrganizationID)
	if err != nil {
		return nil, err
	}

	purchase := &Purchase{
		OrganizationID: rc.OrganizationID,
		SupplierID:     in.SupplierID,
		Note:           in.Note,
		CreatedBy:      rc.UserID,
		CreatorDeptID:  rc.DepartmentID,
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		ok, err := tx.SupplierExists(ctx, rc.OrganizationID, in.SupplierID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: unknown supplier", shared.ErrValidation)
		}

		purchaseNo, err := tx.NextPurchaseNo(ctx, rc.OrganizationID, cfg.PurchasePrefix)
		if err != nil {
			return err
		}
		purchase.PurchaseNo = purchaseNo

		var total float64
		items := make([]PurchaseItem, 0, len(in.Items))
		for _, line := range in.Items {
			name, err := tx.GetProductName(ctx, rc.OrganizationID, line.ProductID)
			if err != nil {
				if err == shared.ErrNotFound {
					return fmt.Errorf("%w: unknown product %d", shared.ErrValidation, line.ProductID)
				}
				return err
			}
			lineTotal := round2(line.UnitCost * float64(line.Quantity))
			total += lineTotal
			items = append(items, PurchaseItem{
				ProductID:   line.ProductID,
				ProductName: name,
				Quantity:    line.Quantity,
				UnitCost:    line.UnitCost,
				LineTotal:   lineTotal,
			})
		}
		purchase.Total = round2(total)

		purchaseID, err := tx.InsertPurchase(ctx, purchase)
		if err != nil {
			return err
		}
		purchase.ID = purchaseID
		if err := tx.InsertPurchaseItems(ctx, purchaseID, items); err != nil {
			return err
		}
		purchase.Items = items

		for _, item := range items {
			if err := tx.IncrementStock(ctx, rc.OrganizationID, item.ProductID, item.Quantity); err != nil {
				return err
			}
			if err := tx.UpdateProductCost(ctx, rc.OrganizationID, item.ProductID, item.UnitCost); err != nil {
				return err
			}
			if err := tx.AppendStockTransaction(ctx, inventory.StockTransaction{
				OrganizationID: rc.OrganizationID,
				ProductID:      item.ProductID,
				Delta:          item.Quantity,
				Kind:           inventory.KindPurchase,
				RefType:        "purchase",
				RefID:          purchaseID,
				CreatedBy:      rc.UserID,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.Metrics != nil {
		s.Metrics.CountStockMovement(inventory.KindPurchase)
	}
	if s.audit != nil {
		if auditErr := s.audit.Record(ctx, shared.AuditLog{
			OrganizationID: rc.OrganizationID,
			ActorID:        rc.UserID,
			Action:         "purchase.create",
			Entity:         "purchase",
			EntityID:       strconv.FormatInt(purchase.ID, 10),
			Meta:           map[string]any{"purchase_no": purchase.PurchaseNo, "total": purchase.Total},
		}); auditErr != nil && s.logger != nil {
			s.logger.Warn("audit write failed", slog.Any("error", auditErr))
		}
	}
	return purchase, nil
}

// List returns the purchases the requester may see.
func (s *Service) List(ctx context.Context, rc shared.RequestContext) ([]Purchase, error) {
	perms, err := s.perms.Resolve(ctx, rc.Role, rc.UserID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListPurchases(ctx, rc.OrganizationID, authz.ListScope(perms, rc))
}

// Get returns one purchase if the requester may read it.
func (s *Service) Get(ctx context.Context, rc shared.RequestContext, id int64) (*Purchase, error) {
	p, err := s.repo.GetPurchase(ctx, rc.OrganizationID, id)
	if err != nil {
		return nil, err
	}
	perms, err := s.perms.Resolve(ctx, rc.Role, rc.UserID)
	if err != nil {
		return nil, err
	}
	meta := authz.RecordMeta{OrganizationID: p.OrganizationID, CreatedBy: p.CreatedBy, CreatorDeptID: p.CreatorDeptID}
	if !authz.CanAccess(perms, rc, meta, authz.ActionRead, authz.ResourcePurchases) {
		return nil, shared.ErrNotFound
	}
	return p, nil
}
