package ports

// PermissionOracle answers capability questions about the current user.
// Transports consult it; the workflow engine never does.
type PermissionOracle interface {
	HasPermission(permission string) bool
	HasRole(role string) bool
}
