package settings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tillpoint/tillpoint/internal/authz"
	"github.com/tillpoint/tillpoint/internal/shared"
)

type memorySettingsRepo struct {
	rows map[int64]Settings
}

func (r *memorySettingsRepo) Get(ctx context.Context, orgID int64) (Settings, error) {
	if s, ok := r.rows[orgID]; ok {
		return s, nil
	}
	return Defaults(orgID), nil
}

func (r *memorySettingsRepo) Put(ctx context.Context, s Settings) (Settings, error) {
	r.rows[s.OrganizationID] = s
	return s, nil
}

func TestGetFallsBackToDefaults(t *testing.T) {
	svc := NewService(&memorySettingsRepo{rows: map[int64]Settings{}})
	rc := shared.RequestContext{UserID: 1, Role: authz.RoleCashier, OrganizationID: 7}

	s, err := svc.Get(context.Background(), rc)
	require.NoError(t, err)
	require.Equal(t, "INV", s.InvoicePrefix)
	require.Equal(t, "PUR", s.PurchasePrefix)
	require.EqualValues(t, 10, s.LowStockThreshold)
}

func TestUpdateRequiresManageSettings(t *testing.T) {
	svc := NewService(&memorySettingsRepo{rows: map[int64]Settings{}})
	rc := shared.RequestContext{UserID: 2, Role: authz.RoleManager, OrganizationID: 7}
	in := UpdateInput{InvoicePrefix: "inv", PurchasePrefix: "po", TaxRate: 0.2, LowStockThreshold: 5}

	_, err := svc.Update(context.Background(), rc, authz.NewPermissionSet(), in)
	require.ErrorIs(t, err, shared.ErrForbidden)

	s, err := svc.Update(context.Background(), rc, authz.NewPermissionSet(authz.PermManageSettings), in)
	require.NoError(t, err)
	require.Equal(t, "INV", s.InvoicePrefix)
	require.Equal(t, "PO", s.PurchasePrefix)
	require.Equal(t, 0.2, s.TaxRate)
}

func TestUpdateRejectsBadTaxRate(t *testing.T) {
	svc := NewService(&memorySettingsRepo{rows: map[int64]Settings{}})
	rc := shared.RequestContext{UserID: 1, Role: authz.RoleAdmin, OrganizationID: 7}

	_, err := svc.Update(context.Background(), rc, authz.NewPermissionSet(), UpdateInput{
		InvoicePrefix: "INV", PurchasePrefix: "PUR", TaxRate: 1.5,
	})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Update(context.Background(), rc, authz.NewPermissionSet(), UpdateInput{
		InvoicePrefix: "INV", PurchasePrefix: "PUR", LowStockThreshold: -1,
	})
	require.ErrorIs(t, err, shared.ErrValidation)
}
