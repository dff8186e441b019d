package core

import "stockcore/pkg/domain"

// Role names a built-in permission profile.
type Role string

// Built-in roles mirroring the deployed role matrix.
const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleStaff   Role = "staff"
)

var rolePermissions = map[Role]map[Capability]bool{
	RoleAdmin: {
		domain.CapManageUsers:     true,
		domain.CapManageInventory: true,
		domain.CapManageSuppliers: true,
		domain.CapManageOrders:    true,
		domain.CapViewReports:     true,
		domain.CapManageSettings:  true,
		domain.CapDeleteItems:     true,
	},
	RoleManager: {
		domain.CapManageUsers:     false,
		domain.CapManageInventory: true,
		domain.CapManageSuppliers: true,
		domain.CapManageOrders:    true,
		domain.CapViewReports:     true,
		domain.CapManageSettings:  false,
		domain.CapDeleteItems:     true,
	},
	RoleStaff: {
		domain.CapManageUsers:     false,
		domain.CapManageInventory: true,
		domain.CapManageSuppliers: false,
		domain.CapManageOrders:    true,
		domain.CapViewReports:     false,
		domain.CapManageSettings:  false,
		domain.CapDeleteItems:     false,
	},
}

// RolePermissions returns a PermissionProvider for a built-in role. Unknown
// roles fall back to the staff profile.
func RolePermissions(role Role) domain.PermissionProvider {
	perms, ok := rolePermissions[role]
	if !ok {
		perms = rolePermissions[RoleStaff]
	}
	return domain.PermissionFunc(func(c Capability) bool {
		return perms[c]
	})
}

// AllowAll grants every capability. Used as the service default when no
// provider is configured and in tests exercising non-permission paths.
func AllowAll() domain.PermissionProvider {
	return domain.PermissionFunc(func(Capability) bool { return true })
}
