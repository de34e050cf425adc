package auth

import "errors"

// Role represents an authorisation tier in the system.
type Role string

const (
	// RoleUser is a household member with read and command access.
	RoleUser Role = "user"

	// RoleAdmin has full system control: devices, commissioning, settings.
	RoleAdmin Role = "admin"
)

// ValidRoles is the set of recognised roles.
var ValidRoles = []Role{RoleUser, RoleAdmin}

// IsValidRole returns true if the role is recognised.
func IsValidRole(r Role) bool {
	for _, v := range ValidRoles {
		if r == v {
			return true
		}
	}
	return false
}

// Sentinel errors for auth operations.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenExpired       = errors.New("token has expired")
	ErrTokenInvalid       = errors.New("invalid token")
)
