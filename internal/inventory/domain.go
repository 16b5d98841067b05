package inventory

import "time"

// Product is a sellable item with a cached on-hand quantity. The quantity
// column is the fast path; the stock_transactions ledger is the source of
// truth and the reconcile job realigns the two.
type Product struct {
	ID             int64     `json:"id"`
	OrganizationID int64     `json:"organization_id"`
	SKU            string    `json:"sku"`
	Name           string    `json:"name"`
	Price          float64   `json:"price"`
	Cost           float64   `json:"cost"`
	Quantity       int64     `json:"quantity"`
	CreatedBy      int64     `json:"created_by"`
	CreatorDeptID  int64     `json:"creator_dept_id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Ledger entry kinds.
const (
	KindInitial    = "initial"
	KindSale       = "sale"
	KindPurchase   = "purchase"
	KindAdjustment = "adjustment"
	KindReconcile  = "reconcile"
)

// StockTransaction is one immutable movement in the stock ledger. Delta is
// signed: sales are negative, purchases positive.
type StockTransaction struct {
	ID             int64     `json:"id"`
	OrganizationID int64     `json:"organization_id"`
	ProductID      int64     `json:"product_id"`
	Delta          int64     `json:"delta"`
	Kind           string    `json:"kind"`
	RefType        string    `json:"ref_type,omitempty"`
	RefID          int64     `json:"ref_id,omitempty"`
	Note           string    `json:"note,omitempty"`
	CreatedBy      int64     `json:"created_by"`
	CreatedAt      time.Time `json:"created_at"`
}
