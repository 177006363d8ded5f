// Package permissions decides whether an admin user may perform a
// capability. All checks funnel through here; screens never re-implement
// the role/feature logic inline. The same evaluation is expected to run in
// the platform API itself, so these checks gate affordances rather than
// act as the security boundary.
package permissions

import "github.com/claritel/admin-console/types"

// Capability codes recognized by the console.
const (
	TenantManagement = "tenant.management"
	CreateSubAdmin   = "user.subadmin.create"
	CreateSuperAdmin = "user.superadmin.create"
)

// Has reports whether the user may perform the capability identified by
// code. A nil user has no permissions. RolePlatformSuperAdmin has every
// permission, even with an empty feature set; every other role must carry
// the code in its feature set.
func Has(user *types.User, code string) bool {
	if user == nil {
		return false
	}
	if user.Role == types.RolePlatformSuperAdmin {
		return true
	}
	return user.HasFeature(code)
}

// HasAny reports whether the user may perform at least one of the given
// capabilities. With an empty code list it is false for every
// non-privileged user.
func HasAny(user *types.User, codes []string) bool {
	if user == nil {
		return false
	}
	if user.Role == types.RolePlatformSuperAdmin {
		return true
	}
	for _, code := range codes {
		if user.HasFeature(code) {
			return true
		}
	}
	return false
}

// HasAll reports whether the user may perform every one of the given
// capabilities. With an empty code list it is vacuously true for any
// non-nil user.
func HasAll(user *types.User, codes []string) bool {
	if user == nil {
		return false
	}
	if user.Role == types.RolePlatformSuperAdmin {
		return true
	}
	for _, code := range codes {
		if !user.HasFeature(code) {
			return false
		}
	}
	return true
}
