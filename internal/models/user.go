package models

// Permission names a single grant on a user account.
type Permission string

// PermissionAdmin allows mutating calls against the registry and the
// placement engine. Other grants are intentionally undefined for now.
const PermissionAdmin Permission = "ADMIN"

// PermissionSet is an explicit set of grants. It replaces the legacy
// permission bitmask with named membership tests.
type PermissionSet []Permission

// Has reports whether the set contains the given permission.
func (s PermissionSet) Has(p Permission) bool {
	for _, item := range s {
		if item == p {
			return true
		}
	}
	return false
}

// User binds login identities to exactly one Person. Authentication happens
// in the external identity provider; the engine only consults permissions.
type User struct {
	ID          int64         `json:"id"`
	Logins      string        `json:"logins"`
	Permissions PermissionSet `json:"permissions"`
	PersonID    int64         `json:"person_id"`
	Notes       string        `json:"notes,omitempty"`
}

// IsAdmin reports whether the account carries the admin grant.
func (u User) IsAdmin() bool {
	return u.Permissions.Has(PermissionAdmin)
}
