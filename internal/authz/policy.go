package authz

import "github.com/tillpoint/tillpoint/internal/shared"

// Action enumerates what a requester wants to do with a record.
type Action string

const (
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// RecordMeta carries the ownership attributes of a record relevant to
// visibility. CreatorDeptID is the department of the record's creator, zero
// when the creator belongs to no department.
type RecordMeta struct {
	OrganizationID int64
	CreatedBy      int64
	CreatorDeptID  int64
}

// ScopeKind classifies how wide a listing query may range.
type ScopeKind int

const (
	// ScopeAll covers every record in the requester's tenant.
	ScopeAll ScopeKind = iota
	// ScopeDepartment covers records created by the requester or by users in
	// the requester's department.
	ScopeDepartment
	// ScopeOwn covers only records created by the requester.
	ScopeOwn
)

// Scope is the query predicate repositories translate into SQL. It is always
// additionally bound to the requester's organization; no scope ever crosses
// the tenant boundary.
type Scope struct {
	Kind         ScopeKind
	UserID       int64
	DepartmentID int64
}

// CanAccess decides whether the requester may perform action on the record
// described by meta. The resource name parameterises the manage_<resource>
// check; a single policy serves every resource type.
//
// Precedence, evaluated strictly in order:
//  1. tenant mismatch denies unconditionally
//  2. the admin role is unrestricted within its tenant
//  3. view_all_data (read) or manage_<resource> (update/delete) is
//     unrestricted within the tenant
//  4. delete also accepts delete_records, but scoped: the holder may delete
//     their own records, or records created within their department
//  5. view_department_data plus a department: own records or records created
//     within the requester's department
//  6. otherwise only the requester's own records
func CanAccess(perms PermissionSet, rc shared.RequestContext, meta RecordMeta, action Action, resource string) bool {
	if meta.OrganizationID != rc.OrganizationID {
		return false
	}
	if rc.Role == RoleAdmin {
		return true
	}

	switch action {
	case ActionRead:
		if perms.Has(PermViewAllData) {
			return true
		}
	case ActionUpdate:
		if perms.Has(ManagePermission(resource)) {
			return true
		}
	case ActionDelete:
		if perms.Has(ManagePermission(resource)) {
			return true
		}
		if perms.Has(PermDeleteRecords) {
			if meta.CreatedBy == rc.UserID {
				return true
			}
			if rc.DepartmentID != 0 && meta.CreatorDeptID != 0 && meta.CreatorDeptID == rc.DepartmentID {
				return true
			}
		}
	}

	if perms.Has(PermViewDepartmentData) && rc.DepartmentID != 0 {
		if meta.CreatedBy == rc.UserID {
			return true
		}
		return meta.CreatorDeptID != 0 && meta.CreatorDeptID == rc.DepartmentID
	}
	return meta.CreatedBy == rc.UserID
}

// ListScope computes the widest listing predicate the requester is entitled
// to. Repositories combine it with the tenant filter.
func ListScope(perms PermissionSet, rc shared.RequestContext) Scope {
	if rc.Role == RoleAdmin || perms.Has(PermViewAllData) {
		return Scope{Kind: ScopeAll}
	}
	if perms.Has(PermViewDepartmentData) && rc.DepartmentID != 0 {
		return Scope{Kind: ScopeDepartment, UserID: rc.UserID, DepartmentID: rc.DepartmentID}
	}
	return Scope{Kind: ScopeOwn, UserID: rc.UserID}
}
