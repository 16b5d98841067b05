package masterdata

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tillpoint/tillpoint/internal/authz"
	"github.com/tillpoint/tillpoint/internal/shared"
)

type memoryRepo struct {
	customers map[int64]*Customer
	suppliers map[int64]*Supplier
	nextID    int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{customers: make(map[int64]*Customer), suppliers: make(map[int64]*Supplier)}
}

func inScope(scope authz.Scope, createdBy, creatorDept int64) bool {
	switch scope.Kind {
	case authz.ScopeAll:
		return true
	case authz.ScopeDepartment:
		return createdBy == scope.UserID || (creatorDept != 0 && creatorDept == scope.DepartmentID)
	default:
		return createdBy == scope.UserID
	}
}

func (r *memoryRepo) ListCustomers(ctx context.Context, orgID int64, scope authz.Scope) ([]Customer, error) {
	var out []Customer
	for _, c := range r.customers {
		if c.OrganizationID == orgID && inScope(scope, c.CreatedBy, c.CreatorDeptID) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (r *memoryRepo) GetCustomer(ctx context.Context, orgID, id int64) (*Customer, error) {
	c, ok := r.customers[id]
	if !ok || c.OrganizationID != orgID {
		return nil, shared.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *memoryRepo) CreateCustomer(ctx context.Context, c *Customer) (*Customer, error) {
	r.nextID++
	cp := *c
	cp.ID = r.nextID
	r.customers[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r *memoryRepo) UpdateCustomer(ctx context.Context, c *Customer) (*Customer, error) {
	cp := *c
	r.customers[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r *memoryRepo) DeleteCustomer(ctx context.Context, orgID, id int64) error {
	delete(r.customers, id)
	return nil
}

func (r *memoryRepo) ListSuppliers(ctx context.Context, orgID int64, scope authz.Scope) ([]Supplier, error) {
	var out []Supplier
	for _, s := range r.suppliers {
		if s.OrganizationID == orgID && inScope(scope, s.CreatedBy, s.CreatorDeptID) {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *memoryRepo) GetSupplier(ctx context.Context, orgID, id int64) (*Supplier, error) {
	s, ok := r.suppliers[id]
	if !ok || s.OrganizationID != orgID {
		return nil, shared.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *memoryRepo) CreateSupplier(ctx context.Context, s *Supplier) (*Supplier, error) {
	r.nextID++
	cp := *s
	cp.ID = r.nextID
	r.suppliers[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r *memoryRepo) UpdateSupplier(ctx context.Context, s *Supplier) (*Supplier, error) {
	cp := *s
	r.suppliers[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r *memoryRepo) DeleteSupplier(ctx context.Context, orgID, id int64) error {
	delete(r.suppliers, id)
	return nil
}

// staticPerms returns the same permission set for every caller.
type staticPerms struct {
	set authz.PermissionSet
}

func (p staticPerms) Resolve(ctx context.Context, role string, userID int64) (authz.PermissionSet, error) {
	return p.set, nil
}

func TestGetCustomerHidesUnreadableRecords(t *testing.T) {
	repo := newMemoryRepo()
	repo.customers[1] = &Customer{ID: 1, OrganizationID: 10, Name: "Ada", CreatedBy: 5}
	svc := NewService(repo, staticPerms{set: authz.NewPermissionSet()})

	// A cashier without view permissions cannot see a colleague's customer.
	rc := shared.RequestContext{UserID: 2, Role: authz.RoleCashier, OrganizationID: 10}
	_, err := svc.GetCustomer(context.Background(), rc, 1)
	require.ErrorIs(t, err, shared.ErrNotFound)

	// The creator can.
	owner := shared.RequestContext{UserID: 5, Role: authz.RoleCashier, OrganizationID: 10}
	c, err := svc.GetCustomer(context.Background(), owner, 1)
	require.NoError(t, err)
	require.Equal(t, "Ada", c.Name)
}

func TestUpdateCustomerReadableButNotManageableIsForbidden(t *testing.T) {
	repo := newMemoryRepo()
	repo.customers[1] = &Customer{ID: 1, OrganizationID: 10, Name: "Ada", CreatedBy: 5, CreatorDeptID: 3}
	svc := NewService(repo, staticPerms{set: authz.NewPermissionSet(authz.PermViewAllData)})

	rc := shared.RequestContext{UserID: 2, Role: authz.RoleCashier, OrganizationID: 10}
	_, err := svc.UpdateCustomer(context.Background(), rc, 1, CustomerInput{Name: "Ada L"})
	require.ErrorIs(t, err, shared.ErrForbidden)
}

func TestUpdateCustomerWithManagePermission(t *testing.T) {
	repo := newMemoryRepo()
	repo.customers[1] = &Customer{ID: 1, OrganizationID: 10, Name: "Ada", CreatedBy: 5}
	svc := NewService(repo, staticPerms{set: authz.NewPermissionSet(
		authz.PermViewAllData, authz.ManagePermission(authz.ResourceCustomers),
	)})

	rc := shared.RequestContext{UserID: 2, Role: authz.RoleManager, OrganizationID: 10}
	c, err := svc.UpdateCustomer(context.Background(), rc, 1, CustomerInput{Name: "Ada Lovelace"})
	require.NoError(t, err)
	require.Equal(t, "Ada Lovelace", c.Name)
}

func TestDeleteCustomerWithOutstandingCredit(t *testing.T) {
	repo := newMemoryRepo()
	repo.customers[1] = &Customer{ID: 1, OrganizationID: 10, Name: "Ada", CreatedBy: 5, CreditBalance: 120}
	svc := NewService(repo, staticPerms{set: authz.NewPermissionSet()})

	rc := shared.RequestContext{UserID: 1, Role: authz.RoleAdmin, OrganizationID: 10}
	err := svc.DeleteCustomer(context.Background(), rc, 1)
	require.ErrorIs(t, err, shared.ErrConflict)
}

func TestCrossTenantCustomerIsNotFound(t *testing.T) {
	repo := newMemoryRepo()
	repo.customers[1] = &Customer{ID: 1, OrganizationID: 11, Name: "Ada", CreatedBy: 5}
	svc := NewService(repo, staticPerms{set: authz.NewPermissionSet()})

	rc := shared.RequestContext{UserID: 1, Role: authz.RoleAdmin, OrganizationID: 10}
	_, err := svc.GetCustomer(context.Background(), rc, 1)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestListCustomersScopesToDepartment(t *testing.T) {
	repo := newMemoryRepo()
	repo.customers[1] = &Customer{ID: 1, OrganizationID: 10, Name: "Mine", CreatedBy: 2, CreatorDeptID: 3}
	repo.customers[2] = &Customer{ID: 2, OrganizationID: 10, Name: "Dept", CreatedBy: 5, CreatorDeptID: 3}
	repo.customers[3] = &Customer{ID: 3, OrganizationID: 10, Name: "Other", CreatedBy: 7, CreatorDeptID: 4}
	svc := NewService(repo, staticPerms{set: authz.NewPermissionSet(authz.PermViewDepartmentData)})

	rc := shared.RequestContext{UserID: 2, Role: authz.RoleCashier, DepartmentID: 3, OrganizationID: 10}
	list, err := svc.ListCustomers(context.Background(), rc)
	require.NoError(t, err)
	require.Len(t, list, 2)
}

func TestSupplierLifecycle(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, staticPerms{set: authz.NewPermissionSet()})
	rc := shared.RequestContext{UserID: 2, Role: authz.RoleManager, DepartmentID: 3, OrganizationID: 10}

	s, err := svc.CreateSupplier(context.Background(), rc, SupplierInput{Name: "Acme Wholesale"})
	require.NoError(t, err)
	require.Equal(t, rc.UserID, s.CreatedBy)
	require.Equal(t, rc.DepartmentID, s.CreatorDeptID)

	got, err := svc.GetSupplier(context.Background(), rc, s.ID)
	require.NoError(t, err)
	require.Equal(t, "Acme Wholesale", got.Name)

	require.NoError(t, svc.DeleteSupplier(context.Background(), rc, s.ID))
}
