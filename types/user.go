package types

import "slices"

// Platform admin roles as returned by the platform API.
const (
	// RolePlatformSuperAdmin is the privileged role: it is authorized for
	// every capability regardless of its feature-code set.
	RolePlatformSuperAdmin = "platform_super_admin"

	RoleSuperAdmin = "super_admin"
	RoleSubAdmin   = "sub_admin"
)

// User statuses as returned by the platform API.
const (
	UserStatusActive   = "active"
	UserStatusInactive = "inactive"
)

// User represents a platform admin account as the API returns it.
type User struct {
	// ID is the unique identifier of the user.
	ID string `json:"id"`

	// FullName is the user's display name.
	FullName string `json:"fullName"`

	// Email is the user's login email address.
	Email string `json:"email"`

	// Role is one of the Role* constants.
	Role string `json:"role"`

	// Features is the set of capability codes granted to the user.
	// Order carries no meaning. It may be empty for any role;
	// RolePlatformSuperAdmin is authorized for everything regardless.
	Features []string `json:"features"`

	// MFAEnabled reports whether the user has completed two-factor
	// enrollment.
	MFAEnabled bool `json:"mfaEnabled"`

	// Status is either UserStatusActive or UserStatusInactive.
	Status string `json:"status"`
}

// HasFeature reports whether code is present in the user's feature set.
// It does not apply the privileged-role short-circuit; use the
// permissions package for authorization decisions.
func (u User) HasFeature(code string) bool {
	return slices.Contains(u.Features, code)
}
