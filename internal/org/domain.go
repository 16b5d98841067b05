package org

import "time"

// Status enumerates organization lifecycle states.
type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
)

// Organization is the tenant boundary. Every tenant-scoped row in the system
// carries its id; nothing crosses it.
type Organization struct {
	ID        int64
	Name      string
	Slug      string
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Department groups users for department-level data visibility.
type Department struct {
	ID             int64
	OrganizationID int64
	Name           string
	CreatedAt      time.Time
}
