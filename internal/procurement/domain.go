package procurement

import "time"

// Purchase is a received delivery from a supplier. Stock lands the moment
// the purchase is recorded; cost fields snapshot the supplier invoice.
type Purchase struct {
	ID             int64          `json:"id"`
	OrganizationID int64          `json:"organization_id"`
	PurchaseNo     string         `json:"purchase_no"`
	SupplierID     int64          `json:"supplier_id"`
	Total          float64        `json:"total"`
	Note           string         `json:"note,omitempty"`
	CreatedBy      int64          `json:"created_by"`
	CreatorDeptID  int64          `json:"creator_dept_id"`
	CreatedAt      time.Time      `json:"created_at"`
	Items          []PurchaseItem `json:"items,omitempty"`
}

// PurchaseItem is one received line.
type PurchaseItem struct {
	ID          int64   `json:"id"`
	PurchaseID  int64   `json:"purchase_id"`
	ProductID   int64   `json:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    int64   `json:"quantity"`
	UnitCost    float64 `json:"unit_cost"`
	LineTotal   float64 `json:"line_total"`
}
