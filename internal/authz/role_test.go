package authz

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCreatableRoles(t *testing.T) {
	require.Equal(t, []Role{RoleAdminUnit}, CreatableRoles(RoleSuperadmin))
	require.Equal(t, []Role{RoleAuthor}, CreatableRoles(RoleAdminUnit))
	require.Empty(t, CreatableRoles(RoleAuthor))
	require.Empty(t, CreatableRoles(Role("moderator")))
}

func TestCanCreateRole(t *testing.T) {
	require.True(t, CanCreateRole(RoleSuperadmin, RoleAdminUnit))
	require.False(t, CanCreateRole(RoleSuperadmin, RoleAuthor))
	require.False(t, CanCreateRole(RoleSuperadmin, RoleSuperadmin))
	require.True(t, CanCreateRole(RoleAdminUnit, RoleAuthor))
	require.False(t, CanCreateRole(RoleAdminUnit, RoleAdminUnit))
	require.False(t, CanCreateRole(RoleAuthor, RoleAuthor))
}

func TestAssignableCategory(t *testing.T) {
	cat, ok := AssignableCategory(RoleSuperadmin)
	require.True(t, ok)
	require.Equal(t, CategoryAdminUnitOptions, cat)

	cat, ok = AssignableCategory(RoleAdminUnit)
	require.True(t, ok)
	require.Equal(t, CategoryAuthorOptions, cat)

	_, ok = AssignableCategory(RoleAuthor)
	require.False(t, ok)
	_, ok = AssignableCategory(Role(""))
	require.False(t, ok)
}

func TestParseRole(t *testing.T) {
	for _, s := range []string{"superadmin", "admin_unit", "author"} {
		role, ok := ParseRole(s)
		require.True(t, ok)
		require.True(t, role.Valid())
		require.NotEmpty(t, role.Label())
	}
	_, ok := ParseRole("Superadmin")
	require.False(t, ok)
	_, ok = ParseRole("")
	require.False(t, ok)
}

func TestCategoryPages(t *testing.T) {
	require.Equal(t, []Page{PageDashboard, PageUserManagement}, CategoryPages(CategorySuperadminOnly))

	adminPages := CategoryPages(CategoryAdminUnitOptions)
	authorPages := CategoryPages(CategoryAuthorOptions)
	require.Len(t, adminPages, len(authorPages)+1)

	// Settings is delegable to admin_unit accounts but never to authors.
	require.Contains(t, adminPages, PageSettings)
	require.NotContains(t, authorPages, PageSettings)
	for _, p := range authorPages {
		require.Contains(t, adminPages, p)
		require.NotEqual(t, PageDashboard, p)
		require.NotEqual(t, PageUserManagement, p)
	}

	require.Empty(t, CategoryPages(PermissionCategory("everything")))
}

func TestParsePage(t *testing.T) {
	for _, p := range AllPages() {
		parsed, ok := ParsePage(string(p))
		require.True(t, ok)
		require.Equal(t, p, parsed)
		require.NotEmpty(t, p.Label())
	}
	_, ok := ParsePage("galeri")
	require.False(t, ok)
}
