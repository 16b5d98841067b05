package authz

// Roles known to the platform. Roles are stored as plain strings; an unknown
// role simply resolves to an empty permission set.
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleCashier = "cashier"
)

// Data-visibility permissions.
const (
	PermViewAllData        = "view_all_data"
	PermViewDepartmentData = "view_department_data"
	PermDeleteRecords      = "delete_records"
)

// Operation permissions.
const (
	PermCreateSales     = "create_sales"
	PermCreatePurchases = "create_purchases"
	PermApplyPayments   = "apply_payments"
	PermAdjustStock     = "adjust_stock"
	PermManageSettings  = "manage_settings"
)

// Resource names used to derive manage_<resource> permissions.
const (
	ResourceProducts  = "products"
	ResourceCustomers = "customers"
	ResourceSuppliers = "suppliers"
	ResourcePurchases = "purchases"
	ResourceSales     = "sales"
)

// ManagePermission derives the resource-wide manage permission name.
func ManagePermission(resource string) string {
	return "manage_" + resource
}

// Catalogue lists every permission the platform understands, used for
// seeding and admin screens.
func Catalogue() []string {
	perms := []string{
		PermViewAllData,
		PermViewDepartmentData,
		PermDeleteRecords,
		PermCreateSales,
		PermCreatePurchases,
		PermApplyPayments,
		PermAdjustStock,
		PermManageSettings,
	}
	for _, res := range []string{ResourceProducts, ResourceCustomers, ResourceSuppliers, ResourcePurchases, ResourceSales} {
		perms = append(perms, ManagePermission(res))
	}
	return perms
}
