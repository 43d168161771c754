package domain

// Identity is the authenticated principal resolved by the identity provider.
type Identity struct {
	UserID string
	Email  string
	Roles  []string
}

// HasRole reports whether the identity carries the named role.
func (i Identity) HasRole(role string) bool {
	for _, r := range i.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// RoleAdmin gates the audit query surface.
const RoleAdmin = "admin"
