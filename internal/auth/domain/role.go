package domain

import (
	"errors"
	"strings"
)

// Role is the closed set of account roles. Role checks are exact match only,
// ADMIN does not satisfy a CLIENT or FEE_EARNER requirement.
type Role string

const (
	RoleAdmin     Role = "ADMIN"
	RoleClient    Role = "CLIENT"
	RoleFeeEarner Role = "FEE_EARNER"
)

var ErrUnknownRole = errors.New("domain: unknown role")

// Roles lists every valid role.
var Roles = []Role{RoleAdmin, RoleClient, RoleFeeEarner}

// ParseRole accepts the canonical upper-case names as well as the lower-case
// names used on the invite API ("client", "fee_earner").
func ParseRole(s string) (Role, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(RoleAdmin):
		return RoleAdmin, nil
	case string(RoleClient):
		return RoleClient, nil
	case string(RoleFeeEarner):
		return RoleFeeEarner, nil
	default:
		return "", ErrUnknownRole
	}
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleClient || r == RoleFeeEarner
}

// Invitable reports whether an invite may target this role. Admin accounts are
// never provisioned through invites.
func (r Role) Invitable() bool {
	return r == RoleClient || r == RoleFeeEarner
}

// WireName is the lower-case form used in invite payloads.
func (r Role) WireName() string { return strings.ToLower(string(r)) }

func (r Role) String() string { return string(r) }
