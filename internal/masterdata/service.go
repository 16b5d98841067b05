package masterdata

import (
	"context"
	"fmt"
	"strings"

	"github.com/tillpoint/tillpoint/internal/authz"
	"github.com/tillpoint/tillpoint/internal/shared"
)

// RepositoryPort defines data access methods for customers and suppliers.
type RepositoryPort interface {
	ListCustomers(ctx context.Context, orgID int64, scope authz.Scope) ([]Customer, error)
	GetCustomer(ctx context.Context, orgID, id int64) (*Customer, error)
	CreateCustomer(ctx context.Context, c *Customer) (*Customer, error)
	UpdateCustomer(ctx context.Context, c *Customer) (*Customer, error)
	DeleteCustomer(ctx context.Context, orgID, id int64) error

	ListSuppliers(ctx context.Context, orgID int64, scope authz.Scope) ([]Supplier, error)
	GetSupplier(ctx context.Context, orgID, id int64) (*Supplier, error)
	CreateSupplier(ctx context.Context, s *Supplier) (*Supplier, error)
	UpdateSupplier(ctx context.Context, s *Supplier) (*Supplier, error)
	DeleteSupplier(ctx context.Context, orgID, id int64) error
}

// PermissionSource resolves the requester's effective permission set.
type PermissionSource interface {
	Resolve(ctx context.Context, role string, userID int64) (authz.PermissionSet, error)
}

// Service handles customer and supplier business logic with per-record
// visibility checks.
type Service struct {
	repo  RepositoryPort
	perms PermissionSource
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, perms PermissionSource) *Service {
	return &Service{repo: repo, perms: perms}
}

func customerMeta(c *Customer) authz.RecordMeta {
	return authz.RecordMeta{OrganizationID: c.OrganizationID, CreatedBy: c.CreatedBy, CreatorDeptID: c.CreatorDeptID}
}

func supplierMeta(s *Supplier) authz.RecordMeta {
	return authz.RecordMeta{OrganizationID: s.OrganizationID, CreatedBy: s.CreatedBy, CreatorDeptID: s.CreatorDeptID}
}

// authorize enforces the read-first gate: a record the requester cannot read
// is reported as missing, a readable record the requester cannot mutate is
// forbidden.
func authorize(perms authz.PermissionSet, rc shared.RequestContext, meta authz.RecordMeta, action authz.Action, resource string) error {
	if !authz.CanAccess(perms, rc, meta, authz.ActionRead, resource) {
		return shared.ErrNotFound
	}
	if action != authz.ActionRead && !authz.CanAccess(perms, rc, meta, action, resource) {
		return shared.ErrForbidden
	}
	return nil
}

// CustomerInput carries customer fields for create and update.
type CustomerInput struct {
	Name    string `json:"name" validate:"required"`
	Phone   string `json:"phone"`
	Email   string `json:"email" validate:"omitempty,email"`
	Address string `json:"address"`
}

// ListCustomers returns the customers the requester may see.
func (s *Service) ListCustomers(ctx context.Context, rc shared.RequestContext) ([]Customer, error) {
	perms, err := s.perms.Resolve(ctx, rc.Role, rc.UserID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListCustomers(ctx, rc.OrganizationID, authz.ListScope(perms, rc))
}

// GetCustomer returns one customer if the requester may read it.
func (s *Service) GetCustomer(ctx context.Context, rc shared.RequestContext, id int64) (*Customer, error) {
	c, err := s.repo.GetCustomer(ctx, rc.OrganizationID, id)
	if err != nil {
		return nil, err
	}
	perms, err := s.perms.Resolve(ctx, rc.Role, rc.UserID)
	if err != nil {
		return nil, err
	}
	if err := authorize(perms, rc, customerMeta(c), authz.ActionRead, authz.ResourceCustomers); err != nil {
		return nil, err
	}
	return c, nil
}

// CreateCustomer records a new customer owned by the requester.
func (s *Service) CreateCustomer(ctx context.Context, rc shared.RequestContext, in CustomerInput) (*Customer, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("%w: customer name required", shared.ErrValidation)
	}
	return s.repo.CreateCustomer(ctx, &Customer{
		OrganizationID: rc.OrganizationID,
		Name:           strings.TrimSpace(in.Name),
		Phone:          in.Phone,
		Email:          in.Email,
		Address:        in.Address,
		CreatedBy:      rc.UserID,
		CreatorDeptID:  rc.DepartmentID,
	})
}

// UpdateCustomer modifies a customer the requester may manage.
func (s *Service) UpdateCustomer(ctx context.Context, rc shared.RequestContext, id int64, in CustomerInput) (*Customer, error) {
	c, err := s.repo.GetCustomer(ctx, rc.OrganizationID, id)
	if err != nil {
		return nil, err
	}
	perms, err := s.perms.Resolve(ctx, rc.Role, rc.UserID)
	if err != nil {
		return nil, err
	}
	if err := authorize(perms, rc, customerMeta(c), authz.ActionUpdate, authz.ResourceCustomers); err != nil {
		return nil, err
	}
	c.Name = strings.TrimSpace(in.Name)
	c.Phone = in.Phone
	c.Email = in.Email
	c.Address = in.Address
	return s.repo.UpdateCustomer(ctx, c)
}

// DeleteCustomer removes a customer the requester may delete.
func (s *Service) DeleteCustomer(ctx context.Context, rc shared.RequestContext, id int64) error {
	c, err := s.repo.GetCustomer(ctx, rc.OrganizationID, id)
	if err != nil {
		return err
	}
	perms, err := s.perms.Resolve(ctx, rc.Role, rc.UserID)
	if err != nil {
		return err
	}
	if err := authorize(perms, rc, customerMeta(c), authz.ActionDelete, authz.ResourceCustomers); err != nil {
		return err
	}
	if c.CreditBalance > 0 {
		return fmt.Errorf("%w: customer has outstanding credit", shared.ErrConflict)
	}
	return s.repo.DeleteCustomer(ctx, rc.OrganizationID, id)
}

// SupplierInput carries supplier fields for create and update.
type SupplierInput struct {
	Name    string `json:"name" validate:"required"`
	Phone   string `json:"phone"`
	Email   string `json:"email" validate:"omitempty,email"`
	Address string `json:"address"`
}

// ListSuppliers returns the suppliers the requester may see.
func (s *Service) ListSuppliers(ctx context.Context, rc shared.RequestContext) ([]Supplier, error) {
	perms, err := s.perms.Resolve(ctx, rc.Role, rc.UserID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListSuppliers(ctx, rc.OrganizationID, authz.ListScope(perms, rc))
}

// GetSupplier returns one supplier if the requester may read it.
func (s *Service) GetSupplier(ctx context.Context, rc shared.RequestContext, id int64) (*Supplier, error) {
	sup, err := s.repo.GetSupplier(ctx, rc.OrganizationID, id)
	if err != nil {
		return nil, err
	}
	perms, err := s.perms.Resolve(ctx, rc.Role, rc.UserID)
	if err != nil {
		return nil, err
	}
	if err := authorize(perms, rc, supplierMeta(sup), authz.ActionRead, authz.ResourceSuppliers); err != nil {
		return nil, err
	}
	return sup, nil
}

// CreateSupplier records a new supplier owned by the requester.
func (s *Service) CreateSupplier(ctx context.Context, rc shared.RequestContext, in SupplierInput) (*Supplier, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("%w: supplier name required", shared.ErrValidation)
	}
	return s.repo.CreateSupplier(ctx, &Supplier{
		OrganizationID: rc.OrganizationID,
		Name:           strings.TrimSpace(in.Name),
		Phone:          in.Phone,
		Email:          in.Email,
		Address:        in.Address,
		CreatedBy:      rc.UserID,
		CreatorDeptID:  rc.DepartmentID,
	})
}

// UpdateSupplier modifies a supplier the requester may manage.
func (s *Service) UpdateSupplier(ctx context.Context, rc shared.RequestContext, id int64, in SupplierInput) (*Supplier, error) {
	sup, err := s.repo.GetSupplier(ctx, rc.OrganizationID, id)
	if err != nil {
		return nil, err
	}
	perms, err := s.perms.Resolve(ctx, rc.Role, rc.UserID)
	if err != nil {
		return nil, err
	}
	if err := authorize(perms, rc, supplierMeta(sup), authz.ActionUpdate, authz.ResourceSuppliers); err != nil {
		return nil, err
	}
	sup.Name = strings.TrimSpace(in.Name)
	sup.Phone = in.Phone
	sup.Email = in.Email
	sup.Address = in.Address
	return s.repo.UpdateSupplier(ctx, sup)
}

// DeleteSupplier removes a supplier the requester may delete.
func (s *Service) DeleteSupplier(ctx context.Context, rc shared.RequestContext, id int64) error {
	sup, err := s.repo.GetSupplier(ctx, rc.OrganizationID, id)
	if err != nil {
		return err
	}
	perms, err := s.perms.Resolve(ctx, rc.Role, rc.UserID)
	if err != nil {
		return err
	}
	if err := authorize(perms, rc, supplierMeta(sup), authz.ActionDelete, authz.ResourceSuppliers); err != nil {
		return err
	}
	return s.repo.DeleteSupplier(ctx, rc.OrganizationID, id)
}
