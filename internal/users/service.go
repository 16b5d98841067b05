package users

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/tillpoint/tillpoint/internal/authz"
	"github.com/tillpoint/tillpoint/internal/shared"
)

// RepositoryPort defines data access methods for staff accounts.
type RepositoryPort interface {
	List(ctx context.Context, orgID int64) ([]User, error)
	Get(ctx context.Context, orgID, id int64) (*User, error)
	Create(ctx context.Context, u *User) (*User, error)
	Update(ctx context.Context, u *User) (*User, error)
}

// OverridePort persists per-user permission overrides.
type OverridePort interface {
	UserOverrides(ctx context.Context, userID int64) ([]authz.Override, error)
	SetOverride(ctx context.Context, userID int64, perm string, granted bool) error
	ClearOverride(ctx context.Context, userID int64, perm string) error
}

// Invalidator drops cached permission sets after override changes.
type Invalidator interface {
	Invalidate(ctx context.Context, userID int64)
}

// Service handles account administration. Every operation is restricted to
// tenant admins.
type Service struct {
	repo      RepositoryPort
	overrides OverridePort
	resolver  Invalidator
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, overrides OverridePort, resolver Invalidator) *Service {
	return &Service{repo: repo, overrides: overrides, resolver: resolver}
}

// CreateInput carries fields for a new account.
type CreateInput struct {
	Email        string `json:"email" validate:"required,email"`
	Name         string `json:"name" validate:"required"`
	Password     string `json:"password" validate:"required,min=8"`
	Role         string `json:"role" validate:"required"`
	DepartmentID int64  `json:"department_id"`
}

// UpdateInput carries mutable account fields.
type UpdateInput struct {
	Name         string `json:"name" validate:"required"`
	Role         string `json:"role" validate:"required"`
	DepartmentID int64  `json:"department_id"`
	IsActive     bool   `json:"is_active"`
}

func validRole(role string) bool {
	switch role {
	case authz.RoleAdmin, authz.RoleManager, authz.RoleCashier:
		return true
	}
	return false
}

func requireAdmin(rc shared.RequestContext) error {
	if rc.Role != authz.RoleAdmin {
		return shared.ErrForbidden
	}
	return nil
}

// List returns the tenant's accounts.
func (s *Service) List(ctx context.Context, rc shared.RequestContext) ([]User, error) {
	if err := requireAdmin(rc); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, rc.OrganizationID)
}

// Get returns one account in the tenant.
func (s *Service) Get(ctx context.Context, rc shared.RequestContext, id int64) (*User, error) {
	if err := requireAdmin(rc); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, rc.OrganizationID, id)
}

// Create registers a staff account in the requester's tenant.
func (s *Service) Create(ctx context.Context, rc shared.RequestContext, in CreateInput) (*User, error) {
	if err := requireAdmin(rc); err != nil {
		return nil, err
	}
	if !validRole(in.Role) {
		return nil, fmt.Errorf("%w: unknown role %q", shared.ErrValidation, in.Role)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &User{
		OrganizationID: rc.OrganizationID,
		Email:          strings.ToLower(strings.TrimSpace(in.Email)),
		Name:           strings.TrimSpace(in.Name),
		PasswordHash:   string(hash),
		Role:           in.Role,
		DepartmentID:   in.DepartmentID,
		IsActive:       true,
	}
	return s.repo.Create(ctx, u)
}

// Update modifies an account. Admins cannot change their own role or
// deactivate themselves, which keeps every tenant with at least one
// working admin session.
func (s *Service) Update(ctx context.Context, rc shared.RequestContext, id int64, in UpdateInput) (*User, error) {
	if err := requireAdmin(rc); err != nil {
		return nil, err
	}
	if !validRole(in.Role) {
		return nil, fmt.Errorf("%w: unknown role %q", shared.ErrValidation, in.Role)
	}
	current, err := s.repo.Get(ctx, rc.OrganizationID, id)
	if err != nil {
		return nil, err
	}
	if id == rc.UserID {
		if in.Role != current.Role {
			return nil, fmt.Errorf("%w: cannot change own role", shared.ErrValidation)
		}
		if !in.IsActive {
			return nil, fmt.Errorf("%w: cannot deactivate own account", shared.ErrValidation)
		}
	}
	current.Name = strings.TrimSpace(in.Name)
	current.Role = in.Role
	current.DepartmentID = in.DepartmentID
	current.IsActive = in.IsActive
	updated, err := s.repo.Update(ctx, current)
	if err != nil {
		return nil, err
	}
	// Role changes alter the effective permission set.
	s.resolver.Invalidate(ctx, id)
	return updated, nil
}

// ListOverrides returns the per-user permission overrides for an account.
func (s *Service) ListOverrides(ctx context.Context, rc shared.RequestContext, id int64) ([]authz.Override, error) {
	if err := requireAdmin(rc); err != nil {
		return nil, err
	}
	if _, err := s.repo.Get(ctx, rc.OrganizationID, id); err != nil {
		return nil, err
	}
	overrides, err := s.overrides.UserOverrides(ctx, id)
	if err != nil {
		return nil, err
	}
	if overrides == nil {
		overrides = []authz.Override{}
	}
	return overrides, nil
}

// SetOverride grants or revokes a single permission for one account on top
// of its role defaults.
func (s *Service) SetOverride(ctx context.Context, rc shared.RequestContext, id int64, perm string, granted bool) error {
	if err := requireAdmin(rc); err != nil {
		return err
	}
	if !knownPermission(perm) {
		return fmt.Errorf("%w: unknown permission %q", shared.ErrValidation, perm)
	}
	if _, err := s.repo.Get(ctx, rc.OrganizationID, id); err != nil {
		return err
	}
	if err := s.overrides.SetOverride(ctx, id, perm, granted); err != nil {
		return err
	}
	s.resolver.Invalidate(ctx, id)
	return nil
}

// ClearOverride removes an override so the role default applies again.
func (s *Service) ClearOverride(ctx context.Context, rc shared.RequestContext, id int64, perm string) error {
	if err := requireAdmin(rc); err != nil {
		return err
	}
	if _, err := s.repo.Get(ctx, rc.OrganizationID, id); err != nil {
		return err
	}
	if err := s.overrides.ClearOverride(ctx, id, perm); err != nil {
		return err
	}
	s.resolver.Invalidate(ctx, id)
	return nil
}

func knownPermission(perm string) bool {
	for _, p := range authz.Catalogue() {
		if p == perm {
			return true
		}
	}
	return false
}
