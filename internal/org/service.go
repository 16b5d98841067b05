package org

import (
	"context"
	"fmt"
	"strings"

	"github.com/tillpoint/tillpoint/internal/authz"
	"github.com/tillpoint/tillpoint/internal/shared"
)

// RepositoryPort defines data access methods for tenants and departments.
type RepositoryPort interface {
	CreateOrganization(ctx context.Context, name, slug string) (*Organization, error)
	GetOrganization(ctx context.Context, id int64) (*Organization, error)
	CreateDepartment(ctx context.Context, orgID int64, name string) (*Department, error)
	ListDepartments(ctx context.Context, orgID int64) ([]Department, error)
	DeleteDepartment(ctx context.Context, orgID, id int64) error
}

// Service handles tenant and department management.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// CreateOrganization registers a new tenant. The slug is derived from the
// name when not supplied.
func (s *Service) CreateOrganization(ctx context.Context, name, slug string) (*Organization, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: organization name required", shared.ErrValidation)
	}
	if slug == "" {
		slug = Slugify(name)
	}
	if slug == "" {
		return nil, fmt.Errorf("%w: organization slug required", shared.ErrValidation)
	}
	return s.repo.CreateOrganization(ctx, name, slug)
}

// GetCurrent returns the requester's own tenant.
func (s *Service) GetCurrent(ctx context.Context, rc shared.RequestContext) (*Organization, error) {
	return s.repo.GetOrganization(ctx, rc.OrganizationID)
}

// CreateDepartment adds a department to the requester's tenant. Admin only.
func (s *Service) CreateDepartment(ctx context.Context, rc shared.RequestContext, name string) (*Department, error) {
	if rc.Role != authz.RoleAdmin {
		return nil, shared.ErrForbidden
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: department name required", shared.ErrValidation)
	}
	return s.repo.CreateDepartment(ctx, rc.OrganizationID, name)
}

// ListDepartments lists the requester's tenant departments.
func (s *Service) ListDepartments(ctx context.Context, rc shared.RequestContext) ([]Department, error) {
	return s.repo.ListDepartments(ctx, rc.OrganizationID)
}

// DeleteDepartment removes a department. Admin only.
func (s *Service) DeleteDepartment(ctx context.Context, rc shared.RequestContext, id int64) error {
	if rc.Role != authz.RoleAdmin {
		return shared.ErrForbidden
	}
	return s.repo.DeleteDepartment(ctx, rc.OrganizationID, id)
}
