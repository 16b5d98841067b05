package settings

import (
	"context"
	"fmt"
	"strings"

	"github.com/tillpoint/tillpoint/internal/authz"
	"github.com/tillpoint/tillpoint/internal/shared"
)

// RepositoryPort defines data access methods for tenant settings.
type RepositoryPort interface {
	Get(ctx context.Context, orgID int64) (Settings, error)
	Put(ctx context.Context, s Settings) (Settings, error)
}

// Service handles tenant settings reads and updates.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Get returns the requester's tenant settings. Any authenticated member may
// read them; workflows depend on the values.
func (s *Service) Get(ctx context.Context, rc shared.RequestContext) (Settings, error) {
	return s.repo.Get(ctx, rc.OrganizationID)
}

// UpdateInput carries the mutable settings fields.
type UpdateInput struct {
	InvoicePrefix     string  `json:"invoice_prefix" validate:"required,max=8"`
	PurchasePrefix    string  `json:"purchase_prefix" validate:"required,max=8"`
	TaxRate           float64 `json:"tax_rate"`
	LowStockThreshold int64   `json:"low_stock_threshold"`
}

// Update writes new settings. Requires the manage_settings permission or
// the admin role.
func (s *Service) Update(ctx context.Context, rc shared.RequestContext, perms authz.PermissionSet, in UpdateInput) (Settings, error) {
	if rc.Role != authz.RoleAdmin && !perms.Has(authz.PermManageSettings) {
		return Settings{}, shared.ErrForbidden
	}
	if in.TaxRate < 0 || in.TaxRate > 1 {
		return Settings{}, fmt.Errorf("%w: tax_rate must be between 0 and 1", shared.ErrValidation)
	}
	if in.LowStockThreshold < 0 {
		return Settings{}, fmt.Errorf("%w: low_stock_threshold must not be negative", shared.ErrValidation)
	}
	next := Settings{
		OrganizationID:    rc.OrganizationID,
		InvoicePrefix:     strings.ToUpper(strings.TrimSpace(in.InvoicePrefix)),
		PurchasePrefix:    strings.ToUpper(strings.TrimSpace(in.PurchasePrefix)),
		TaxRate:           in.TaxRate,
		LowStockThreshold: in.LowStockThreshold,
	}
	return s.repo.Put(ctx, next)
}
