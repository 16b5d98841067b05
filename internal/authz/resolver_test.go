package authz

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type memoryPermRepo struct {
	roles     map[string][]string
	overrides map[int64][]Override
}

func (r *memoryPermRepo) RolePermissions(ctx context.Context, role string) ([]string, error) {
	return r.roles[role], nil
}

func (r *memoryPermRepo) UserOverrides(ctx context.Context, userID int64) ([]Override, error) {
	return r.overrides[userID], nil
}

func TestResolveMergesRoleDefaults(t *testing.T) {
	repo := &memoryPermRepo{
		roles: map[string][]string{
			RoleCashier: {PermCreateSales, PermViewDepartmentData},
		},
	}
	resolver := NewResolver(repo, nil, nil)

	set, err := resolver.Resolve(context.Background(), RoleCashier, 7)
	require.NoError(t, err)
	require.True(t, set.Has(PermCreateSales))
	require.True(t, set.Has(PermViewDepartmentData))
	require.Len(t, set, 2)
}

func TestResolveOverridePrecedence(t *testing.T) {
	// Role grants {A,B}; overrides revoke B and grant C -> exactly {A,C}.
	repo := &memoryPermRepo{
		roles: map[string][]string{
			RoleManager: {PermCreateSales, PermViewAllData},
		},
		overrides: map[int64][]Override{
			3: {
				{Permission: PermViewAllData, Granted: false},
				{Permission: PermAdjustStock, Granted: true},
			},
		},
	}
	resolver := NewResolver(repo, nil, nil)

	set, err := resolver.Resolve(context.Background(), RoleManager, 3)
	require.NoError(t, err)
	require.True(t, set.Has(PermCreateSales))
	require.True(t, set.Has(PermAdjustStock))
	require.False(t, set.Has(PermViewAllData))
	require.Len(t, set, 2)
}

func TestResolveGrantNotInRole(t *testing.T) {
	repo := &memoryPermRepo{
		roles: map[string][]string{},
		overrides: map[int64][]Override{
			9: {{Permission: PermApplyPayments, Granted: true}},
		},
	}
	resolver := NewResolver(repo, nil, nil)

	set, err := resolver.Resolve(context.Background(), RoleCashier, 9)
	require.NoError(t, err)
	require.True(t, set.Has(PermApplyPayments))
	require.Len(t, set, 1)
}

func TestResolveUnknownRoleFailsClosed(t *testing.T) {
	repo := &memoryPermRepo{roles: map[string][]string{}}
	resolver := NewResolver(repo, nil, nil)

	set, err := resolver.Resolve(context.Background(), "intern", 1)
	require.NoError(t, err)
	require.Empty(t, set)
}

func TestResolveRevokeAbsentPermissionIsNoop(t *testing.T) {
	repo := &memoryPermRepo{
		roles: map[string][]string{
			RoleCashier: {PermCreateSales},
		},
		overrides: map[int64][]Override{
			4: {{Permission: PermViewAllData, Granted: false}},
		},
	}
	resolver := NewResolver(repo, nil, nil)

	set, err := resolver.Resolve(context.Background(), RoleCashier, 4)
	require.NoError(t, err)
	require.True(t, set.Has(PermCreateSales))
	require.Len(t, set, 1)
}
