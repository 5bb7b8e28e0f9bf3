package authz

import "sort"

// PageSet is a deduplicated set of granted page codes.
type PageSet map[Page]struct{}

// NewPageSet builds a PageSet from raw codes, dropping duplicates and values
// that are not known page codes.
func NewPageSet(pages ...Page) PageSet {
	set := make(PageSet, len(pages))
	for _, p := range pages {
		if p.Valid() {
			set[p] = struct{}{}
		}
	}
	return set
}

// ParsePageSet builds a PageSet from stored strings, dropping unknown codes.
func ParsePageSet(codes []string) PageSet {
	set := make(PageSet, len(codes))
	for _, c := range codes {
		if p, ok := ParsePage(c); ok {
			set[p] = struct{}{}
		}
	}
	return set
}

// Has reports membership.
func (s PageSet) Has(p Page) bool {
	_, ok := s[p]
	return ok
}

// Sorted returns the members in lexical order.
func (s PageSet) Sorted() []Page {
	pages := make([]Page, 0, len(s))
	for p := range s {
		pages = append(pages, p)
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i] < pages[j] })
	return pages
}

// Identity is the decision engine's snapshot of the acting user: id, role and
// the materialized grant set. It is rebuilt wholesale at sign-in or refresh
// and must never be mutated piecemeal.
type Identity struct {
	UserID int64
	Role   Role
	Pages  PageSet
}

// Valid reports whether the identity denotes an authenticated account.
func (id Identity) Valid() bool {
	return id.UserID > 0 && id.Role.Valid()
}

// Subject is the engine's view of a target user row.
type Subject struct {
	ID        int64
	Role      Role
	CreatedBy *int64
}

// Rights enumerates the management actions an actor may take on a target.
type Rights struct {
	View          bool
	EditProfile   bool
	EditRole      bool
	EditGrants    bool
	Delete        bool
	ResetPassword bool
}

// HasPageAccess decides whether the identity may access a page.
//
// Superadmin access is computed, never read from stored grants, and is
// deliberately narrow: platform administration only, no authoring pages.
// An admin_unit always manages its own authors regardless of stored grants.
// Everyone else falls through to the materialized grant set.
func HasPageAccess(id Identity, page Page) bool {
	if !id.Valid() || !page.Valid() {
		return false
	}
	switch id.Role {
	case RoleSuperadmin:
		return page == PageDashboard || page == PageUserManagement
	case RoleAdminUnit:
		if page == PageUserManagement {
			return true
		}
	}
	return id.Pages.Has(page)
}

// ManageRights evaluates the per-action management predicates of the actor
// over the target. A nil target or an invalid actor fails closed: all rights
// are denied rather than raising an error past the caller.
func ManageRights(actor Identity, target *Subject) Rights {
	if !actor.Valid() || target == nil || target.ID <= 0 || !target.Role.Valid() {
		return Rights{}
	}

	self := actor.UserID == target.ID
	// created_by is the sole ownership test: an admin_unit has no rights over
	// authors it did not create, whatever their role.
	owns := actor.Role == RoleAdminUnit &&
		target.Role == RoleAuthor &&
		target.CreatedBy != nil &&
		*target.CreatedBy == actor.UserID

	view := actor.Role == RoleSuperadmin || self || owns

	// A superadmin target keeps its role and grants immutable through this
	// model; changing them is an out-of-band bootstrap concern. Self
	// role-downgrade is likewise disallowed.
	editRole := target.Role != RoleSuperadmin &&
		((actor.Role == RoleSuperadmin && !self) || owns)

	// Nobody edits their own grant set, superadmin included.
	editGrants := editRole && !self && target.Role != RoleSuperadmin

	return Rights{
		View:          view,
		EditProfile:   view,
		EditRole:      editRole,
		EditGrants:    editGrants,
		Delete:        !self && (actor.Role == RoleSuperadmin || owns),
		ResetPassword: view,
	}
}
