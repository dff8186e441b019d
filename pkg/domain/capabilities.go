package domain

// Capability names a permission checked before mutating operations. Read and
// derived operations require no capability.
type Capability string

// Capabilities consumed by the core. The identity provider behind the
// PermissionProvider decides how they map to principals.
const (
	CapManageInventory Capability = "canManageInventory"
	CapManageSuppliers Capability = "canManageSuppliers"
	CapManageOrders    Capability = "canManageOrders"
	CapManageUsers     Capability = "canManageUsers"
	CapManageSettings  Capability = "canManageSettings"
	CapViewReports     Capability = "canViewReports"
	CapDeleteItems     Capability = "canDeleteItems"
)

// PermissionProvider answers capability checks for the current principal.
// Implementations must be safe for concurrent use.
type PermissionProvider interface {
	HasPermission(capability Capability) bool
}

// PermissionFunc adapts a plain function to a PermissionProvider.
type PermissionFunc func(Capability) bool

// HasPermission implements PermissionProvider.
func (f PermissionFunc) HasPermission(capability Capability) bool { return f(capability) }
