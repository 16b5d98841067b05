package sales

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tillpoint/tillpoint/internal/authz"
	"github.com/tillpoint/tillpoint/internal/inventory"
	"github.com/tillpoint/tillpoint/internal/sequence"
	"github.com/tillpoint/tillpoint/internal/settings"
	"github.com/tillpoint/tillpoint/internal/shared"
)

type fakeProduct struct {
	snapshot ProductSnapshot
	quantity int64
}

type fakeReceivable struct {
	amount  float64
	dueDate time.Time
}

// memoryRepo models the full transactional state with snapshot rollback so
// the tests can assert that a failed checkout leaves nothing behind.
type memoryRepo struct {
	products    map[int64]*fakeProduct
	customers   map[int64]float64
	sales       []Sale
	items       map[int64][]SaleItem
	creditSales map[int64]fakeReceivable
	ledger      []inventory.StockTransaction
	invoiceSeq  int64
	nextSaleID  int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		products:    make(map[int64]*fakeProduct),
		customers:   make(map[int64]float64),
		items:       make(map[int64][]SaleItem),
		creditSales: make(map[int64]fakeReceivable),
	}
}

func (r *memoryRepo) clone() *memoryRepo {
	cp := newMemoryRepo()
	for id, p := range r.products {
		v := *p
		cp.products[id] = &v
	}
	for id, bal := range r.customers {
		cp.customers[id] = bal
	}
	cp.sales = append([]Sale(nil), r.sales...)
	for id, items := range r.items {
		cp.items[id] = append([]SaleItem(nil), items...)
	}
	for id, v := range r.creditSales {
		cp.creditSales[id] = v
	}
	cp.ledger = append([]inventory.StockTransaction(nil), r.ledger...)
	cp.invoiceSeq = r.invoiceSeq
	cp.nextSaleID = r.nextSaleID
	return cp
}

func (r *memoryRepo) restore(from *memoryRepo) {
	*r = *from
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	saved := r.clone()
	if err := fn(ctx, &memoryTx{repo: r}); err != nil {
		r.restore(saved)
		return err
	}
	return nil
}

func (r *memoryRepo) ListSales(ctx context.Context, orgID int64, scope authz.Scope) ([]Sale, error) {
	var out []Sale
	for _, s := range r.sales {
		if s.OrganizationID == orgID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *memoryRepo) GetSale(ctx context.Context, orgID, id int64) (*Sale, error) {
	for _, s := range r.sales {
		if s.ID == id && s.OrganizationID == orgID {
			cp := s
			cp.Items = append([]SaleItem(nil), r.items[id]...)
			return &cp, nil
		}
	}
	return nil, shared.ErrNotFound
}

type memoryTx struct {
	repo *memoryRepo
}

func (t *memoryTx) NextInvoiceNo(ctx context.Context, orgID int64, prefix string) (string, error) {
	t.repo.invoiceSeq++
	return sequence.Format(prefix, t.repo.invoiceSeq), nil
}

func (t *memoryTx) GetProduct(ctx context.Context, orgID, productID int64) (*ProductSnapshot, error) {
	p, ok := t.repo.products[productID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	snap := p.snapshot
	return &snap, nil
}

func (t *memoryTx) DecrementStock(ctx context.Context, orgID, productID, qty int64, allowNegative bool) error {
	p, ok := t.repo.products[productID]
	if !ok {
		return shared.ErrNotFound
	}
	if !allowNegative && p.quantity < qty {
		return shared.ErrInsufficientStock
	}
	p.quantity -= qty
	return nil
}

func (t *memoryTx) AppendStockTransaction(ctx context.Context, tr inventory.StockTransaction) error {
	t.repo.ledger = append(t.repo.ledger, tr)
	return nil
}

func (t *memoryTx) InsertSale(ctx context.Context, s *Sale) (int64, error) {
	t.repo.nextSaleID++
	cp := *s
	cp.ID = t.repo.nextSaleID
	cp.Items = nil
	t.repo.sales = append(t.repo.sales, cp)
	return cp.ID, nil
}

func (t *memoryTx) InsertSaleItems(ctx context.Context, saleID int64, items []SaleItem) error {
	t.repo.items[saleID] = append([]SaleItem(nil), items...)
	return nil
}

func (t *memoryTx) CustomerExists(ctx context.Context, orgID, customerID int64) (bool, error) {
	_, ok := t.repo.customers[customerID]
	return ok, nil
}

func (t *memoryTx) InsertCreditSale(ctx context.Context, orgID, saleID, customerID int64, amount float64, dueDate time.Time) error {
	t.repo.creditSales[saleID] = fakeReceivable{amount: amount, dueDate: dueDate}
	return nil
}

func (t *memoryTx) AddCustomerCredit(ctx context.Context, orgID, customerID int64, amount float64) error {
	if _, ok := t.repo.customers[customerID]; !ok {
		return shared.ErrNotFound
	}
	t.repo.customers[customerID] += amount
	return nil
}

type staticPerms struct {
	set authz.PermissionSet
}

func (p staticPerms) Resolve(ctx context.Context, role string, userID int64) (authz.PermissionSet, error) {
	return p.set, nil
}

type staticSettings struct {
	cfg settings.Settings
}

func (s staticSettings) Get(ctx context.Context, orgID int64) (settings.Settings, error) {
	return s.cfg, nil
}

type recordingNotifier struct {
	orgs []int64
}

func (n *recordingNotifier) EnqueueLowStockCheck(ctx context.Context, orgID int64) error {
	n.orgs = append(n.orgs, orgID)
	return nil
}

func cashierCtx() shared.RequestContext {
	return shared.RequestContext{UserID: 4, Role: authz.RoleCashier, DepartmentID: 2, OrganizationID: 10}
}

func seedRepo() *memoryRepo {
	repo := newMemoryRepo()
	repo.products[1] = &fakeProduct{snapshot: ProductSnapshot{ID: 1, Name: "Beans", Price: 4.50}, quantity: 20}
	repo.products[2] = &fakeProduct{snapshot: ProductSnapshot{ID: 2, Name: "Rice", Price: 12.00}, quantity: 5}
	repo.customers[7] = 0
	return repo
}

func newTestService(repo *memoryRepo, taxRate float64, notifier LowStockNotifier) *Service {
	cfg := settings.Defaults(10)
	cfg.TaxRate = taxRate
	perms := staticPerms{set: authz.NewPermissionSet(authz.PermCreateSales)}
	return NewService(repo, perms, staticSettings{cfg: cfg}, nil, notifier, nil)
}

func TestCreateSaleComputesTotalsAndLedger(t *testing.T) {
	repo := seedRepo()
	notifier := &recordingNotifier{}
	svc := newTestService(repo, 0.10, notifier)

	sale, err := svc.Create(context.Background(), cashierCtx(), CreateInput{
		PaymentMethod: PaymentCash,
		Items: []LineInput{
			{ProductID: 1, Quantity: 2},
			{ProductID: 2, Quantity: 1},
		},
	})
	require.NoError(t, err)
	require.Equal(t, "INV-000001", sale.InvoiceNo)
	require.Equal(t, 21.00, sale.Subtotal)
	require.Equal(t, 2.10, sale.TaxAmount)
	require.Equal(t, 23.10, sale.Total)
	require.Equal(t, StatusPaid, sale.PaymentStatus)

	require.EqualValues(t, 18, repo.products[1].quantity)
	require.EqualValues(t, 4, repo.products[2].quantity)

	require.Len(t, repo.ledger, 2)
	for _, tr := range repo.ledger {
		require.Equal(t, inventory.KindSale, tr.Kind)
		require.Negative(t, tr.Delta)
		require.Equal(t, sale.ID, tr.RefID)
	}
	require.Equal(t, []int64{10}, notifier.orgs)
}

func TestCreateSaleInsufficientStockRollsBackEverything(t *testing.T) {
	repo := seedRepo()
	svc := newTestService(repo, 0, nil)

	// The first line would succeed; the second oversells. Nothing commits.
	_, err := svc.Create(context.Background(), cashierCtx(), CreateInput{
		PaymentMethod: PaymentCash,
		Items: []LineInput{
			{ProductID: 1, Quantity: 2},
			{ProductID: 2, Quantity: 6},
		},
	})
	require.ErrorIs(t, err, shared.ErrInsufficientStock)

	require.EqualValues(t, 20, repo.products[1].quantity)
	require.EqualValues(t, 5, repo.products[2].quantity)
	require.Empty(t, repo.sales)
	require.Empty(t, repo.ledger)
	require.Zero(t, repo.invoiceSeq)
}

func TestCreateSaleMergesDuplicateLines(t *testing.T) {
	repo := seedRepo()
	svc := newTestService(repo, 0, nil)

	sale, err := svc.Create(context.Background(), cashierCtx(), CreateInput{
		PaymentMethod: PaymentCash,
		Items: []LineInput{
			{ProductID: 1, Quantity: 2},
			{ProductID: 1, Quantity: 3},
		},
	})
	require.NoError(t, err)
	require.Len(t, sale.Items, 1)
	require.EqualValues(t, 5, sale.Items[0].Quantity)
	require.EqualValues(t, 15, repo.products[1].quantity)
}

func TestCreateCreditSale(t *testing.T) {
	repo := seedRepo()
	svc := newTestService(repo, 0, nil)

	sale, err := svc.Create(context.Background(), cashierCtx(), CreateInput{
		CustomerID:    7,
		PaymentMethod: PaymentCredit,
		Items:         []LineInput{{ProductID: 1, Quantity: 2}},
	})
	require.NoError(t, err)
	require.Equal(t, StatusPending, sale.PaymentStatus)

	receivable := repo.creditSales[sale.ID]
	require.Equal(t, sale.Total, receivable.amount)
	require.Equal(t, sale.Total, repo.customers[7])

	// The receivable falls due thirty days out.
	wantDue := time.Now().AddDate(0, 0, 30)
	require.WithinDuration(t, wantDue, receivable.dueDate, time.Minute)
}

func TestCreateSaleAppliesDiscount(t *testing.T) {
	repo := seedRepo()
	svc := newTestService(repo, 0.10, nil)

	sale, err := svc.Create(context.Background(), cashierCtx(), CreateInput{
		PaymentMethod: PaymentCash,
		Discount:      1.00,
		Items: []LineInput{
			{ProductID: 1, Quantity: 2},
			{ProductID: 2, Quantity: 1},
		},
	})
	require.NoError(t, err)
	require.Equal(t, 21.00, sale.Subtotal)
	require.Equal(t, 1.00, sale.Discount)
	// Tax applies to the discounted amount.
	require.Equal(t, 2.00, sale.TaxAmount)
	require.Equal(t, 22.00, sale.Total)
	require.Equal(t, sale.Discount, repo.sales[0].Discount)
}

func TestCreateSaleDiscountExceedingSubtotal(t *testing.T) {
	repo := seedRepo()
	svc := newTestService(repo, 0, nil)

	_, err := svc.Create(context.Background(), cashierCtx(), CreateInput{
		PaymentMethod: PaymentCash,
		Discount:      100,
		Items:         []LineInput{{ProductID: 1, Quantity: 1}},
	})
	require.ErrorIs(t, err, shared.ErrValidation)

	// Rejected inside the transaction; stock and the counter are untouched.
	require.EqualValues(t, 20, repo.products[1].quantity)
	require.Empty(t, repo.sales)
	require.Zero(t, repo.invoiceSeq)
}

func TestCreateCreditSaleRequiresCustomer(t *testing.T) {
	svc := newTestService(seedRepo(), 0, nil)

	_, err := svc.Create(context.Background(), cashierCtx(), CreateInput{
		PaymentMethod: PaymentCredit,
		Items:         []LineInput{{ProductID: 1, Quantity: 1}},
	})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreateSaleUnknownCustomer(t *testing.T) {
	svc := newTestService(seedRepo(), 0, nil)

	_, err := svc.Create(context.Background(), cashierCtx(), CreateInput{
		CustomerID:    99,
		PaymentMethod: PaymentCash,
		Items:         []LineInput{{ProductID: 1, Quantity: 1}},
	})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreateSaleRequiresPermission(t *testing.T) {
	repo := seedRepo()
	svc := NewService(repo, staticPerms{set: authz.NewPermissionSet()}, staticSettings{cfg: settings.Defaults(10)}, nil, nil, nil)

	_, err := svc.Create(context.Background(), cashierCtx(), CreateInput{
		PaymentMethod: PaymentCash,
		Items:         []LineInput{{ProductID: 1, Quantity: 1}},
	})
	require.ErrorIs(t, err, shared.ErrForbidden)
}

func TestInvoiceNumbersAreSequential(t *testing.T) {
	repo := seedRepo()
	svc := newTestService(repo, 0, nil)

	for i := 1; i <= 3; i++ {
		sale, err := svc.Create(context.Background(), cashierCtx(), CreateInput{
			PaymentMethod: PaymentCash,
			Items:         []LineInput{{ProductID: 1, Quantity: 1}},
		})
		require.NoError(t, err)
		require.Equal(t, fmt.Sprintf("INV-%06d", i), sale.InvoiceNo)
	}
}

func TestGetSaleAppliesReadGate(t *testing.T) {
	repo := seedRepo()
	svc := newTestService(repo, 0, nil)

	sale, err := svc.Create(context.Background(), cashierCtx(), CreateInput{
		PaymentMethod: PaymentCash,
		Items:         []LineInput{{ProductID: 1, Quantity: 1}},
	})
	require.NoError(t, err)

	// Another cashier without broad visibility cannot see the receipt.
	other := shared.RequestContext{UserID: 9, Role: authz.RoleCashier, OrganizationID: 10}
	_, err = svc.Get(context.Background(), other, sale.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)

	got, err := svc.Get(context.Background(), cashierCtx(), sale.ID)
	require.NoError(t, err)
	require.Equal(t, sale.InvoiceNo, got.InvoiceNo)
	require.Len(t, got.Items, 1)
}
