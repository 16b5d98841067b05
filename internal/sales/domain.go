package sales

import "time"

// Payment methods accepted at the till.
const (
	PaymentCash   = "cash"
	PaymentCard   = "card"
	PaymentCredit = "credit"
)

// Payment status of a sale. A credit sale stays pending until its
// receivable is fully settled; there is no in-between state here.
const (
	StatusPaid    = "paid"
	StatusPending = "pending"
)

// Sale is a completed checkout. Monetary fields are captured at sale time;
// later product price changes never rewrite history.
type Sale struct {
	ID             int64      `json:"id"`
	OrganizationID int64      `json:"organization_id"`
	InvoiceNo      string     `json:"invoice_no"`
	CustomerID     int64      `json:"customer_id,omitempty"`
	Subtotal       float64    `json:"subtotal"`
	Discount       float64    `json:"discount"`
	TaxAmount      float64    `json:"tax_amount"`
	Total          float64    `json:"total"`
	PaymentMethod  string     `json:"payment_method"`
	PaymentStatus  string     `json:"payment_status"`
	Note           string     `json:"note,omitempty"`
	CreatedBy      int64      `json:"created_by"`
	CreatorDeptID  int64      `json:"creator_dept_id"`
	CreatedAt      time.Time  `json:"created_at"`
	Items          []SaleItem `json:"items,omitempty"`
}

// SaleItem is one line of a sale with the unit price snapshotted from the
// product at checkout.
type SaleItem struct {
	ID          int64   `json:"id"`
	SaleID      int64   `json:"sale_id"`
	ProductID   int64   `json:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    int64   `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	LineTotal   float64 `json:"line_total"`
}

// ProductSnapshot is what the checkout needs to price a line.
type ProductSnapshot struct {
	ID    int64
	Name  string
	Price float64
}
