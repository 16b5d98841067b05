package masterdata

import "time"

// Customer is a buyer a tenant sells to, on the till or on credit.
// CreditBalance mirrors the open credit ledger total and is maintained by
// the credit workflows.
type Customer struct {
	ID             int64     `json:"id"`
	OrganizationID int64     `json:"organization_id"`
	Name           string    `json:"name"`
	Phone          string    `json:"phone"`
	Email          string    `json:"email"`
	Address        string    `json:"address"`
	CreditBalance  float64   `json:"credit_balance"`
	CreatedBy      int64     `json:"created_by"`
	CreatorDeptID  int64     `json:"creator_dept_id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Supplier is a vendor a tenant purchases stock from.
type Supplier struct {
	ID             int64     `json:"id"`
	OrganizationID int64     `json:"organization_id"`
	Name           string    `json:"name"`
	Phone          string    `json:"phone"`
	Email          string    `json:"email"`
	Address        string    `json:"address"`
	CreatedBy      int64     `json:"created_by"`
	CreatorDeptID  int64     `json:"creator_dept_id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
