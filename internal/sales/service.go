package sales

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/tillpoint/tillpoint/internal/authz"
	"github.com/tillpoint/tillpoint/internal/inventory"
	"github.com/tillpoint/tillpoint/internal/observability"
	"github.com/tillpoint/tillpoint/internal/settings"
	"github.com/tillpoint/tillpoint/internal/shared"
)

// RepositoryPort defines data access methods for sales.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListSales(ctx context.Context, orgID int64, scope authz.Scope) ([]Sale, error)
	GetSale(ctx context.Context, orgID, id int64) (*Sale, error)
}

// PermissionSource resolves the requester's effective permission set.
type PermissionSource interface {
	Resolve(ctx context.Context, role string, userID int64) (authz.PermissionSet, error)
}

// SettingsSource reads tenant settings for the tax rate and invoice prefix.
type SettingsSource interface {
	Get(ctx context.Context, orgID int64) (settings.Settings, error)
}

// Auditor records checkouts in the audit trail.
type Auditor interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// LowStockNotifier schedules a low-stock sweep after a checkout. Failures
// are logged, never surfaced: the sale already committed.
type LowStockNotifier interface {
	EnqueueLowStockCheck(ctx context.Context, orgID int64) error
}

// Service coordinates the checkout workflow: pricing, stock, the invoice
// number and the optional credit leg commit or roll back as one unit.
type Service struct {
	repo     RepositoryPort
	perms    PermissionSource
	settings SettingsSource
	audit    Auditor
	notifier LowStockNotifier
	logger   *slog.Logger

	// AllowNegativeStock drops the oversell guard tenant-wide.
	AllowNegativeStock bool

	// Metrics counts committed checkouts; optional.
	Metrics *observability.Metrics
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, perms PermissionSource, settingsSrc SettingsSource, audit Auditor, notifier LowStockNotifier, logger *slog.Logger) *Service {
	return &Service{repo: repo, perms: perms, settings: settingsSrc, audit: audit, notifier: notifier, logger: logger}
}

// LineInput is one requested cart line.
type LineInput struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int64 `json:"quantity" validate:"required,gt=0"`
}

// CreateInput carries a checkout request. Discount is an absolute amount
// taken off the subtotal before tax.
type CreateInput struct {
	CustomerID    int64       `json:"customer_id"`
	PaymentMethod string      `json:"payment_method" validate:"required,oneof=cash card credit"`
	Discount      float64     `json:"discount" validate:"gte=0"`
	Note          string      `json:"note"`
	Items         []LineInput `json:"items" validate:"required,min=1,dive"`
}

// creditTermDays is how long a customer has to settle a credit sale.
const creditTermDays = 30

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// mergeLines folds duplicate product ids so one conditional decrement per
// product covers the whole cart.
func mergeLines(items []LineInput) ([]LineInput, error) {
	index := make(map[int64]int)
	var merged []LineInput
	for _, item := range items {
		if item.ProductID <= 0 || item.Quantity <= 0 {
			return nil, fmt.Errorf("%w: product_id and quantity must be positive", shared.ErrValidation)
		}
		if at, ok := index[item.ProductID]; ok {
			merged[at].Quantity += item.Quantity
			continue
		}
		index[item.ProductID] = len(merged)
		merged = append(merged, item)
	}
	return merged, nil
}

// Create runs the sale workflow.
func (s *Service) Create(ctx context.Context, rc shared.RequestContext, in CreateInput) (*Sale, error) {
	perms, err := s.perms.Resolve(ctx, rc.Role, rc.UserID)
	if err != nil {
		return nil, err
	}
	if rc.Role != authz.RoleAdmin && !perms.Has(authz.PermCreateSales) {
		return nil, shared.ErrForbidden
	}
	if len(in.Items) == 0 {
		return nil, fmt.Errorf("%w: sale requires at least one item", shared.ErrValidation)
	}
	lines, err := mergeLines(in.Items)
	if err != nil {
		return nil, err
	}
	if in.Discount < 0 {
		return nil, fmt.Errorf("%w: discount cannot be negative", shared.ErrValidation)
	}
	if in.PaymentMethod == PaymentCredit && in.CustomerID == 0 {
		return nil, fmt.Errorf("%w: credit sales require a customer", shared.ErrValidation)
	}
	switch in.PaymentMethod {
	case PaymentCash, PaymentCard, PaymentCredit:
	default:
		return nil, fmt.Errorf("%w: unknown payment method %q", shared.ErrValidation, in.PaymentMethod)
	}

	cfg, err := s.settings.Get(ctx, rc.OrganizationID)
	if err != nil {
		return nil, err
	}

	sale := &Sale{
		OrganizationID: rc.OrganizationID,
		CustomerID:     in.CustomerID,
		PaymentMethod:  in.PaymentMethod,
		PaymentStatus:  StatusPaid,
		Note:           in.Note,
		CreatedBy:      rc.UserID,
		CreatorDeptID:  rc.DepartmentID,
	}
	if in.PaymentMethod == PaymentCredit {
		sale.PaymentStatus = StatusPending
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if in.CustomerID != 0 {
			ok, err := tx.CustomerExists(ctx, rc.OrganizationID, in.CustomerID)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: unknown customer", shared.ErrValidation)
			}
		}

		invoiceNo, err := tx.NextInvoiceNo(ctx, rc.OrganizationID, cfg.InvoicePrefix)
		if err != nil {
			return err
		}
		sale.InvoiceNo = invoiceNo

		var subtotal float64
		items := make([]SaleItem, 0, len(lines))
		for _, line := range lines {
			product, err := tx.GetProduct(ctx, rc.OrganizationID, line.ProductID)
			if err != nil {
				if err == shared.ErrNotFound {
					return fmt.Errorf("%w: unknown product %d", shared.ErrValidation, line.ProductID)
				}
				return err
			}
			if err := tx.DecrementStock(ctx, rc.OrganizationID, line.ProductID, line.Quantity, s.AllowNegativeStock); err != nil {
				return err
			}
			lineTotal := round2(product.Price * float64(line.Quantity))
			subtotal += lineTotal
			items = append(items, SaleItem{
				ProductID:   product.ID,
				ProductName: product.Name,
				Quantity:    line.Quantity,
				UnitPrice:   product.Price,
				LineTotal:   lineTotal,
			})
		}
		sale.Subtotal = round2(subtotal)
		sale.Discount = round2(in.Discount)
		if sale.Discount > sale.Subtotal {
			return fmt.Errorf("%w: discount %0.2f exceeds subtotal %0.2f", shared.ErrValidation, sale.Discount, sale.Subtotal)
		}
		taxable := round2(sale.Subtotal - sale.Discount)
		sale.TaxAmount = round2(taxable * cfg.TaxRate)
		sale.Total = round2(taxable + sale.TaxAmount)

		saleID, err := tx.InsertSale(ctx, sale)
		if err != nil {
			return err
		}
		sale.ID = saleID
		if err := tx.InsertSaleItems(ctx, saleID, items); err != nil {
			return err
		}
		sale.Items = items

		for _, item := range items {
			if err := tx.AppendStockTransaction(ctx, inventory.StockTransaction{
				OrganizationID: rc.OrganizationID,
				ProductID:      item.ProductID,
				Delta:          -item.Quantity,
				Kind:           inventory.KindSale,
				RefType:        "sale",
				RefID:          saleID,
				CreatedBy:      rc.UserID,
			}); err != nil {
				return err
			}
		}

		if in.PaymentMethod == PaymentCredit {
			dueDate := time.Now().AddDate(0, 0, creditTermDays)
			if err := tx.InsertCreditSale(ctx, rc.OrganizationID, saleID, in.CustomerID, sale.Total, dueDate); err != nil {
				return err
			}
			if err := tx.AddCustomerCredit(ctx, rc.OrganizationID, in.CustomerID, sale.Total); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, shared.ErrInsufficientStock) && s.Metrics != nil {
			s.Metrics.CountStockRejection()
		}
		return nil, err
	}

	if s.Metrics != nil {
		s.Metrics.CountSale(sale.PaymentMethod)
		s.Metrics.CountStockMovement(inventory.KindSale)
	}
	if s.audit != nil {
		if auditErr := s.audit.Record(ctx, shared.AuditLog{
			OrganizationID: rc.OrganizationID,
			ActorID:        rc.UserID,
			Action:         "sale.create",
			Entity:         "sale",
			EntityID:       strconv.FormatInt(sale.ID, 10),
			Meta: map[string]any{
				"invoice_no":     sale.InvoiceNo,
				"total":          sale.Total,
				"payment_method": sale.PaymentMethod,
			},
		}); auditErr != nil && s.logger != nil {
			s.logger.Warn("audit write failed", slog.Any("error", auditErr))
		}
	}
	if s.notifier != nil {
		if err := s.notifier.EnqueueLowStockCheck(ctx, rc.OrganizationID); err != nil && s.logger != nil {
			s.logger.Warn("low stock check enqueue failed", slog.Any("error", err))
		}
	}
	return sale, nil
}

// List returns the sales the requester may see.
func (s *Service) List(ctx context.Context, rc shared.RequestContext) ([]Sale, error) {
	perms, err := s.perms.Resolve(ctx, rc.Role, rc.UserID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListSales(ctx, rc.OrganizationID, authz.ListScope(perms, rc))
}

// Get returns one sale if the requester may read it.
func (s *Service) Get(ctx context.Context, rc shared.RequestContext, id int64) (*Sale, error) {
	sale, err := s.repo.GetSale(ctx, rc.OrganizationID, id)
	if err != nil {
		return nil, err
	}
	perms, err := s.perms.Resolve(ctx, rc.Role, rc.UserID)
	if err != nil {
		return nil, err
	}
	meta := authz.RecordMeta{OrganizationID: sale.OrganizationID, CreatedBy: sale.CreatedBy, CreatorDeptID: sale.CreatorDeptID}
	if !authz.CanAccess(perms, rc, meta, authz.ActionRead, authz.ResourceSales) {
		return nil, shared.ErrNotFound
	}
	return sale, nil
}
