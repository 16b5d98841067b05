package auth

import "time"

// User represents an authenticated account within a tenant.
type User struct {
	ID             int64
	Email          string
	Name           string
	PasswordHash   string
	Role           string
	DepartmentID   int64 // zero when unassigned
	OrganizationID int64
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
