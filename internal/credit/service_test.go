package credit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tillpoint/tillpoint/internal/authz"
	"github.com/tillpoint/tillpoint/internal/shared"
)

type memoryRepo struct {
	creditSales  map[int64]*CreditSale
	payments     []Payment
	customers    map[int64]float64
	saleStatuses map[int64]string
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		creditSales:  make(map[int64]*CreditSale),
		customers:    make(map[int64]float64),
		saleStatuses: make(map[int64]string),
	}
}

func (r *memoryRepo) clone() *memoryRepo {
	cp := newMemoryRepo()
	for id, cs := range r.creditSales {
		v := *cs
		cp.creditSales[id] = &v
	}
	cp.payments = append([]Payment(nil), r.payments...)
	for id, bal := range r.customers {
		cp.customers[id] = bal
	}
	for id, st := range r.saleStatuses {
		cp.saleStatuses[id] = st
	}
	return cp
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	saved := r.clone()
	if err := fn(ctx, &memoryTx{repo: r}); err != nil {
		*r = *saved
		return err
	}
	return nil
}

func (r *memoryRepo) List(ctx context.Context, orgID, customerID int64, status string) ([]CreditSale, error) {
	var out []CreditSale
	for _, cs := range r.creditSales {
		if cs.OrganizationID != orgID {
			continue
		}
		if customerID != 0 && cs.CustomerID != customerID {
			continue
		}
		if status != "" && cs.Status != status {
			continue
		}
		out = append(out, *cs)
	}
	return out, nil
}

func (r *memoryRepo) Get(ctx context.Context, orgID, id int64) (*CreditSale, error) {
	cs, ok := r.creditSales[id]
	if !ok || cs.OrganizationID != orgID {
		return nil, shared.ErrNotFound
	}
	cp := *cs
	for _, p := range r.payments {
		if p.CreditSaleID == id {
			cp.Payments = append(cp.Payments, p)
		}
	}
	return &cp, nil
}

type memoryTx struct {
	repo *memoryRepo
}

func (t *memoryTx) GetCreditSaleForUpdate(ctx context.Context, orgID, id int64) (*CreditSale, error) {
	cs, ok := t.repo.creditSales[id]
	if !ok || cs.OrganizationID != orgID {
		return nil, shared.ErrNotFound
	}
	cp := *cs
	return &cp, nil
}

func (t *memoryTx) UpdateCreditSale(ctx context.Context, orgID, id int64, amountPaid, balance float64, status string) error {
	cs := t.repo.creditSales[id]
	cs.AmountPaid = amountPaid
	cs.Balance = balance
	cs.Status = status
	return nil
}

func (t *memoryTx) InsertPayment(ctx context.Context, orgID int64, p *Payment) (int64, error) {
	cp := *p
	cp.ID = int64(len(t.repo.payments) + 1)
	t.repo.payments = append(t.repo.payments, cp)
	return cp.ID, nil
}

func (t *memoryTx) SubtractCustomerCredit(ctx context.Context, orgID, customerID int64, amount float64) error {
	if _, ok := t.repo.customers[customerID]; !ok {
		return shared.ErrNotFound
	}
	t.repo.customers[customerID] -= amount
	return nil
}

func (t *memoryTx) SetSalePaymentStatus(ctx context.Context, orgID, saleID int64, status string) error {
	t.repo.saleStatuses[saleID] = status
	return nil
}

type staticPerms struct {
	set authz.PermissionSet
}

func (p staticPerms) Resolve(ctx context.Context, role string, userID int64) (authz.PermissionSet, error) {
	return p.set, nil
}

func managerCtx() shared.RequestContext {
	return shared.RequestContext{UserID: 3, Role: authz.RoleManager, OrganizationID: 10}
}

func seedRepo() *memoryRepo {
	repo := newMemoryRepo()
	repo.creditSales[1] = &CreditSale{
		ID: 1, OrganizationID: 10, SaleID: 50, CustomerID: 7,
		Amount: 100, Balance: 100, Status: StatusPending,
	}
	repo.customers[7] = 100
	repo.saleStatuses[50] = "pending"
	return repo
}

func newTestService(repo *memoryRepo) *Service {
	return NewService(repo, staticPerms{set: authz.NewPermissionSet(authz.PermApplyPayments)}, nil, nil)
}

func TestApplyPartialPayment(t *testing.T) {
	repo := seedRepo()
	svc := newTestService(repo)

	cs, err := svc.ApplyPayment(context.Background(), managerCtx(), 1, PaymentInput{Amount: 40, Method: "cash"})
	require.NoError(t, err)
	require.Equal(t, StatusPartial, cs.Status)
	require.Equal(t, 40.0, cs.AmountPaid)
	require.Equal(t, 60.0, cs.Balance)

	require.Equal(t, 60.0, repo.customers[7])
	require.Len(t, repo.payments, 1)

	// The originating sale is not settled yet; partial never leaks into
	// sales.payment_status.
	require.Equal(t, "pending", repo.saleStatuses[50])

	// amount_paid + balance reconciles with the opening amount.
	stored := repo.creditSales[1]
	require.Equal(t, stored.Amount, stored.AmountPaid+stored.Balance)
}

func TestFullPaymentSettlesSale(t *testing.T) {
	repo := seedRepo()
	svc := newTestService(repo)

	_, err := svc.ApplyPayment(context.Background(), managerCtx(), 1, PaymentInput{Amount: 40, Method: "cash"})
	require.NoError(t, err)
	cs, err := svc.ApplyPayment(context.Background(), managerCtx(), 1, PaymentInput{Amount: 60, Method: "card"})
	require.NoError(t, err)

	require.Equal(t, StatusPaid, cs.Status)
	require.Equal(t, 100.0, cs.AmountPaid)
	require.Zero(t, cs.Balance)
	require.Equal(t, StatusPaid, repo.saleStatuses[50])
	require.Zero(t, repo.customers[7])

	stored := repo.creditSales[1]
	require.Equal(t, stored.Amount, stored.AmountPaid+stored.Balance)
}

func TestOverpaymentRejected(t *testing.T) {
	repo := seedRepo()
	svc := newTestService(repo)

	_, err := svc.ApplyPayment(context.Background(), managerCtx(), 1, PaymentInput{Amount: 150, Method: "cash"})
	require.ErrorIs(t, err, shared.ErrValidation)

	// Nothing moved.
	require.Equal(t, 100.0, repo.creditSales[1].Balance)
	require.Equal(t, 100.0, repo.customers[7])
	require.Empty(t, repo.payments)
}

func TestPaymentAgainstSettledSaleConflicts(t *testing.T) {
	repo := seedRepo()
	svc := newTestService(repo)

	_, err := svc.ApplyPayment(context.Background(), managerCtx(), 1, PaymentInput{Amount: 100, Method: "cash"})
	require.NoError(t, err)

	_, err = svc.ApplyPayment(context.Background(), managerCtx(), 1, PaymentInput{Amount: 1, Method: "cash"})
	require.ErrorIs(t, err, shared.ErrConflict)
}

func TestApplyPaymentRequiresPermission(t *testing.T) {
	repo := seedRepo()
	svc := NewService(repo, staticPerms{set: authz.NewPermissionSet()}, nil, nil)

	_, err := svc.ApplyPayment(context.Background(), managerCtx(), 1, PaymentInput{Amount: 10, Method: "cash"})
	require.ErrorIs(t, err, shared.ErrForbidden)
}

func TestApplyPaymentUnknownReceivable(t *testing.T) {
	svc := newTestService(seedRepo())

	_, err := svc.ApplyPayment(context.Background(), managerCtx(), 99, PaymentInput{Amount: 10, Method: "cash"})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestListFiltersByStatus(t *testing.T) {
	repo := seedRepo()
	repo.creditSales[2] = &CreditSale{ID: 2, OrganizationID: 10, SaleID: 51, CustomerID: 7, Amount: 50, Balance: 0, Status: StatusPaid}
	svc := newTestService(repo)

	open, err := svc.List(context.Background(), managerCtx(), 0, StatusPending)
	require.NoError(t, err)
	require.Len(t, open, 1)

	_, err = svc.List(context.Background(), managerCtx(), 0, "bogus")
	require.ErrorIs(t, err, shared.ErrValidation)
}
