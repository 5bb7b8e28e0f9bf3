package authz

// Role classifies an account and determines its baseline and delegable
// capabilities. Exactly one role is assigned per account.
type Role string

const (
	// RoleSuperadmin administers the platform itself: admin_unit accounts and
	// their delegable page sets. It has no authoring capabilities.
	RoleSuperadmin Role = "superadmin"
	// RoleAdminUnit manages the authors of a single government unit.
	RoleAdminUnit Role = "admin_unit"
	// RoleAuthor writes content on the pages granted to it.
	RoleAuthor Role = "author"
)

// PermissionCategory names the bundle of pages a creator role may assign to
// the role one level below it. It is never stored against a user.
type PermissionCategory string

const (
	// CategorySuperadminOnly covers the platform-administration pages.
	CategorySuperadminOnly PermissionCategory = "superadmin_only"
	// CategoryAdminUnitOptions covers pages assignable when creating an admin_unit.
	CategoryAdminUnitOptions PermissionCategory = "admin_unit_options"
	// CategoryAuthorOptions covers pages an admin_unit may grant to its authors.
	CategoryAuthorOptions PermissionCategory = "author_options"
)

// ParseRole converts a stored string into a Role. Unknown values report false.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleSuperadmin, RoleAdminUnit, RoleAuthor:
		return Role(s), true
	}
	return "", false
}

// Valid reports whether the role is one of the three known values.
func (r Role) Valid() bool {
	_, ok := ParseRole(string(r))
	return ok
}

// Label returns the display name used by the UI and decision logging.
func (r Role) Label() string {
	switch r {
	case RoleSuperadmin:
		return "Superadmin"
	case RoleAdminUnit:
		return "Admin Perangkat Daerah"
	case RoleAuthor:
		return "Penulis"
	}
	return ""
}

// CreatableRoles returns the roles an account with role r may create.
// Delegation is always one level down. Unknown roles yield nothing.
func CreatableRoles(r Role) []Role {
	switch r {
	case RoleSuperadmin:
		return []Role{RoleAdminUnit}
	case RoleAdminUnit:
		return []Role{RoleAuthor}
	}
	return nil
}

// CanCreateRole reports whether creator may create an account with role target.
func CanCreateRole(creator, target Role) bool {
	for _, r := range CreatableRoles(creator) {
		if r == target {
			return true
		}
	}
	return false
}

// AssignableCategory returns the page category role r selects from when
// provisioning its subordinate role. Authors delegate nothing.
func AssignableCategory(r Role) (PermissionCategory, bool) {
	switch r {
	case RoleSuperadmin:
		return CategoryAdminUnitOptions, true
	case RoleAdminUnit:
		return CategoryAuthorOptions, true
	}
	return "", false
}
