// Package domain defines the shared records, game tables and sentinel errors
// of the LumeCoin economy.
package domain

const (
	// RoleOwner represents the bot owner with the highest privileges.
	RoleOwner = "owner"
	// RoleAdmin represents elevated administrators below the owner.
	RoleAdmin = "admin"
	// RoleUser represents a standard user with no elevated privileges.
	RoleUser = "user"
)

// Privilege is the single capability level consulted by every privileged
// operation. Owner implicitly carries every admin capability.
type Privilege int

const (
	PrivilegeNone Privilege = iota
	PrivilegeAdmin
	PrivilegeOwner
)

// PrivilegeForRole maps a stored role string to its capability level.
func PrivilegeForRole(role string) Privilege {
	switch role {
	case RoleOwner:
		return PrivilegeOwner
	case RoleAdmin:
		return PrivilegeAdmin
	default:
		return PrivilegeNone
	}
}

// Elevated reports whether the privilege grants access to the admin panel.
func (p Privilege) Elevated() bool {
	return p >= PrivilegeAdmin
}
