package credit

import "time"

// Credit sale status.
const (
	StatusPending = "pending"
	StatusPartial = "partial"
	StatusPaid    = "paid"
)

// CreditSale is the receivable opened when a sale is paid on credit.
// Balance counts down and AmountPaid counts up as payments land; Amount
// never changes, so amount_paid + balance == amount holds after every
// payment.
type CreditSale struct {
	ID             int64     `json:"id"`
	OrganizationID int64     `json:"organization_id"`
	SaleID         int64     `json:"sale_id"`
	CustomerID     int64     `json:"customer_id"`
	Amount         float64   `json:"amount"`
	AmountPaid     float64   `json:"amount_paid"`
	Balance        float64   `json:"balance"`
	DueDate        time.Time `json:"due_date"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	Payments []Payment `json:"payments,omitempty"`
}

// Payment is one repayment applied against a credit sale.
type Payment struct {
	ID           int64     `json:"id"`
	CreditSaleID int64     `json:"credit_sale_id"`
	Amount       float64   `json:"amount"`
	Method       string    `json:"method"`
	Note         string    `json:"note,omitempty"`
	CreatedBy    int64     `json:"created_by"`
	CreatedAt    time.Time `json:"created_at"`
}
