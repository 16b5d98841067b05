package org

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tillpoint/tillpoint/internal/authz"
	"github.com/tillpoint/tillpoint/internal/shared"
)

type memoryOrgRepo struct {
	orgs        map[int64]*Organization
	departments map[int64]*Department
	slugs       map[string]struct{}
	nextOrgID   int64
	nextDeptID  int64
}

func newMemoryOrgRepo() *memoryOrgRepo {
	return &memoryOrgRepo{
		orgs:        make(map[int64]*Organization),
		departments: make(map[int64]*Department),
		slugs:       make(map[string]struct{}),
	}
}

func (r *memoryOrgRepo) CreateOrganization(ctx context.Context, name, slug string) (*Organization, error) {
	if _, exists := r.slugs[slug]; exists {
		return nil, shared.ErrConflict
	}
	r.slugs[slug] = struct{}{}
	r.nextOrgID++
	o := &Organization{ID: r.nextOrgID, Name: name, Slug: slug, Status: StatusActive}
	r.orgs[o.ID] = o
	return o, nil
}

func (r *memoryOrgRepo) GetOrganization(ctx context.Context, id int64) (*Organization, error) {
	o, ok := r.orgs[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return o, nil
}

func (r *memoryOrgRepo) CreateDepartment(ctx context.Context, orgID int64, name string) (*Department, error) {
	r.nextDeptID++
	d := &Department{ID: r.nextDeptID, OrganizationID: orgID, Name: name}
	r.departments[d.ID] = d
	return d, nil
}

func (r *memoryOrgRepo) ListDepartments(ctx context.Context, orgID int64) ([]Department, error) {
	var out []Department
	for _, d := range r.departments {
		if d.OrganizationID == orgID {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (r *memoryOrgRepo) DeleteDepartment(ctx context.Context, orgID, id int64) error {
	d, ok := r.departments[id]
	if !ok || d.OrganizationID != orgID {
		return shared.ErrNotFound
	}
	delete(r.departments, id)
	return nil
}

func TestSlugify(t *testing.T) {
	require.Equal(t, "acme-retail", Slugify("Acme Retail"))
	require.Equal(t, "cafe-du-monde", Slugify("Café du Monde!"))
	require.Equal(t, "store-42", Slugify("  Store   42  "))
	require.Equal(t, "", Slugify("!!!"))
}

func TestCreateOrganizationDerivesSlug(t *testing.T) {
	svc := NewService(newMemoryOrgRepo())

	o, err := svc.CreateOrganization(context.Background(), "Café du Monde", "")
	require.NoError(t, err)
	require.Equal(t, "cafe-du-monde", o.Slug)
}

func TestCreateOrganizationDuplicateSlug(t *testing.T) {
	svc := NewService(newMemoryOrgRepo())

	_, err := svc.CreateOrganization(context.Background(), "Acme", "")
	require.NoError(t, err)
	_, err = svc.CreateOrganization(context.Background(), "Acme", "")
	require.ErrorIs(t, err, shared.ErrConflict)
}

func TestDepartmentAdminOnly(t *testing.T) {
	svc := NewService(newMemoryOrgRepo())
	admin := shared.RequestContext{UserID: 1, Role: authz.RoleAdmin, OrganizationID: 10}
	cashier := shared.RequestContext{UserID: 2, Role: authz.RoleCashier, OrganizationID: 10}

	_, err := svc.CreateDepartment(context.Background(), cashier, "Front")
	require.ErrorIs(t, err, shared.ErrForbidden)

	d, err := svc.CreateDepartment(context.Background(), admin, "Front")
	require.NoError(t, err)
	require.Equal(t, int64(10), d.OrganizationID)

	err = svc.DeleteDepartment(context.Background(), cashier, d.ID)
	require.ErrorIs(t, err, shared.ErrForbidden)

	require.NoError(t, svc.DeleteDepartment(context.Background(), admin, d.ID))
}

func TestDeleteDepartmentScopedToTenant(t *testing.T) {
	repo := newMemoryOrgRepo()
	svc := NewService(repo)
	admin := shared.RequestContext{UserID: 1, Role: authz.RoleAdmin, OrganizationID: 10}
	otherAdmin := shared.RequestContext{UserID: 9, Role: authz.RoleAdmin, OrganizationID: 11}

	d, err := svc.CreateDepartment(context.Background(), admin, "Back")
	require.NoError(t, err)

	err = svc.DeleteDepartment(context.Background(), otherAdmin, d.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
}
