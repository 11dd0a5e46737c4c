package auth

import (
	"strings"
	"time"
)

// Role is a closed enumeration of the role codes known to the service.
type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleFarmer Role = "FARMER"
	RoleBuyer  Role = "BUYER"
)

const scopePrefix = "ROLE_"

// ParseRole maps a role code to its enum value. Unknown codes are rejected
// rather than carried through as free-form strings.
func ParseRole(code string) (Role, bool) {
	switch Role(strings.ToUpper(strings.TrimSpace(code))) {
	case RoleAdmin:
		return RoleAdmin, true
	case RoleFarmer:
		return RoleFarmer, true
	case RoleBuyer:
		return RoleBuyer, true
	default:
		return "", false
	}
}

// ScopeFromRoles renders the wire-format scope claim: "ROLE_" + code,
// space-joined, in the order given.
func ScopeFromRoles(roles []Role) string {
	parts := make([]string, 0, len(roles))
	for _, r := range roles {
		parts = append(parts, scopePrefix+string(r))
	}
	return strings.Join(parts, " ")
}

// RolesFromScope parses a scope claim back into the closed enumeration.
// Entries that do not carry the ROLE_ prefix or name an unknown code are
// dropped; a tampered scope can widen nothing.
func RolesFromScope(scope string) []Role {
	var roles []Role
	seen := make(map[Role]struct{})
	for _, part := range strings.Fields(scope) {
		code, ok := strings.CutPrefix(part, scopePrefix)
		if !ok {
			continue
		}
		role, ok := ParseRole(code)
		if !ok {
			continue
		}
		if _, dup := seen[role]; dup {
			continue
		}
		seen[role] = struct{}{}
		roles = append(roles, role)
	}
	return roles
}

const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

// User is an account in the credential store.
type User struct {
	ID           string
	Username     string
	FullName     string
	PasswordHash string
	Status       string
	Roles        []Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Principal is the authenticated identity attached to a request after token
// verification. It is reconstructed per request and never persisted.
type Principal struct {
	UserID   string
	Username string
	Roles    []Role
}

// HasRole reports whether the principal carries the given role.
func (p Principal) HasRole(role Role) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the principal carries the ADMIN role.
func (p Principal) IsAdmin() bool { return p.HasRole(RoleAdmin) }
