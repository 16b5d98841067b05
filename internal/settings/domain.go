package settings

import "time"

// Settings holds the per-tenant operational knobs read by the commerce
// workflows. A tenant without a row gets Defaults().
type Settings struct {
	OrganizationID    int64     `json:"organization_id"`
	InvoicePrefix     string    `json:"invoice_prefix"`
	PurchasePrefix    string    `json:"purchase_prefix"`
	TaxRate           float64   `json:"tax_rate"`
	LowStockThreshold int64     `json:"low_stock_threshold"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Defaults returns the settings applied before a tenant customizes anything.
func Defaults(orgID int64) Settings {
	return Settings{
		OrganizationID:    orgID,
		InvoicePrefix:     "INV",
		PurchasePrefix:    "PUR",
		TaxRate:           0,
		LowStockThreshold: 10,
	}
}
