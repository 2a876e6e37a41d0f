package auth

import (
	"sort"
	"strings"
)

// Role is one of the fixed membership roles
type Role string

const (
	RoleMember    Role = "Member"
	RoleAdmin     Role = "Admin"
	RoleModerator Role = "Moderator"
	RoleVIP       Role = "VIP"
)

// AllRoles lists every known role
var AllRoles = []Role{RoleMember, RoleAdmin, RoleModerator, RoleVIP}

// ParseRole matches a role name case-insensitively
func ParseRole(name string) (Role, bool) {
	for _, r := range AllRoles {
		if strings.EqualFold(string(r), strings.TrimSpace(name)) {
			return r, true
		}
	}
	return "", false
}

// RoleSet is an immutable set of roles
type RoleSet struct {
	roles map[Role]struct{}
}

// NewRoleSet builds a set from the given roles
func NewRoleSet(roles ...Role) RoleSet {
	m := make(map[Role]struct{}, len(roles))
	for _, r := range roles {
		m[r] = struct{}{}
	}
	return RoleSet{roles: m}
}

// ParseRoleSet builds a set from role names, skipping unknown names
func ParseRoleSet(names []string) RoleSet {
	roles := make([]Role, 0, len(names))
	for _, n := range names {
		if r, ok := ParseRole(n); ok {
			roles = append(roles, r)
		}
	}
	return NewRoleSet(roles...)
}

// Has reports whether the set contains r
func (s RoleSet) Has(r Role) bool {
	_, ok := s.roles[r]
	return ok
}

// Intersects reports whether any of the given roles is in the set
func (s RoleSet) Intersects(roles ...Role) bool {
	for _, r := range roles {
		if s.Has(r) {
			return true
		}
	}
	return false
}

// Len returns the number of roles in the set
func (s RoleSet) Len() int {
	return len(s.roles)
}

// Names returns the role names in sorted order
func (s RoleSet) Names() []string {
	out := make([]string, 0, len(s.roles))
	for r := range s.roles {
		out = append(out, string(r))
	}
	sort.Strings(out)
	return out
}
